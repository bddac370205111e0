package report

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes constructs the router exposing the report-generation endpoints and
// the recent-artifacts listing. The generation endpoints block the caller
// through render and publish.
func (s *Service) Routes() (http.Handler, error) {
	if s == nil {
		return nil, errors.New("nil service")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/checklist-report/{template_id}/pdf", s.handleChecklistReport)
	r.Post("/checklist-report/{inspection_id}/{version_id}/{asset_id}/pdf", s.handleInspectionReport)
	r.Get("/reports/recent", s.handleRecentReports)

	return r, nil
}

func (s *Service) handleChecklistReport(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "template_id")

	report, err := s.BuildChecklistReport(r.Context(), templateID)
	if err != nil {
		s.respondFailure(w, err, "template_id", templateID)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"url": report.URL, "status": "success"})
}

func (s *Service) handleInspectionReport(w http.ResponseWriter, r *http.Request) {
	inspectionID := chi.URLParam(r, "inspection_id")
	versionID := chi.URLParam(r, "version_id")
	assetID := chi.URLParam(r, "asset_id")

	report, err := s.BuildInspectionReport(r.Context(), inspectionID, versionID, assetID)
	if err != nil {
		s.respondFailure(w, err, "inspection_id", inspectionID)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"url": report.URL, "status": "success"})
}

func (s *Service) handleRecentReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := s.artifacts.RecentArtifacts(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list recent reports")
		http.Error(w, "Error listing reports", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// respondFailure maps typed not-found outcomes to a 404 with the reason text
// and collapses everything else into a generic 500. Full detail only ever
// reaches the log.
func (s *Service) respondFailure(w http.ResponseWriter, err error, idField, idValue string) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		s.log.Info().Str(idField, idValue).Str("reason", nf.Reason).Msg("report not generated")
		http.Error(w, nf.Reason, http.StatusNotFound)
		return
	}

	s.log.Error().Err(err).Str(idField, idValue).Msg("generate report")
	http.Error(w, "Error generating report", http.StatusInternalServerError)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
