package report

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestRouter(t *testing.T, docs documentSource, publisher artifactPublisher) http.Handler {
	t.Helper()

	svc, _ := newTestService(t, docs, publisher)
	router, err := svc.Routes()
	if err != nil {
		t.Fatalf("Routes() error = %v", err)
	}
	return router
}

func TestChecklistReportEndpoint(t *testing.T) {
	docs := &fakeDocs{doc: sampleDocument()}
	publisher := &fakePublisher{url: "https://bucket.example/signed"}
	router := newTestRouter(t, docs, publisher)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checklist-report/t1/pdf", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}

	var body struct {
		URL    string `json:"url"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.URL != "https://bucket.example/signed" || body.Status != "success" {
		t.Fatalf("body = %+v", body)
	}

	if len(docs.checklistCalls) != 1 || docs.checklistCalls[0] != "t1" {
		t.Fatalf("checklist calls = %v", docs.checklistCalls)
	}
}

func TestInspectionReportEndpoint(t *testing.T) {
	docs := &fakeDocs{doc: sampleDocument()}
	publisher := &fakePublisher{url: "https://bucket.example/signed"}
	router := newTestRouter(t, docs, publisher)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checklist-report/i1/v1/a1/pdf", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if len(docs.inspectionCalls) != 1 || docs.inspectionCalls[0] != "i1" {
		t.Fatalf("inspection calls = %v", docs.inspectionCalls)
	}
	if len(docs.checklistCalls) != 0 {
		t.Fatalf("three-segment path routed to checklist handler: %v", docs.checklistCalls)
	}
}

func TestChecklistReportEndpointNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "template missing", err: ErrTemplateNotFound, want: "Template not found"},
		{name: "version missing", err: ErrVersionNotFound, want: "Template version not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &fakeDocs{err: tt.err}
			router := newTestRouter(t, docs, &fakePublisher{})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checklist-report/nope/pdf", nil))

			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.want {
				t.Fatalf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInspectionReportEndpointNoAnswers(t *testing.T) {
	docs := &fakeDocs{err: ErrAnswersNotFound}
	router := newTestRouter(t, docs, &fakePublisher{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checklist-report/i1/v1/a1/pdf", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "Answers not found" {
		t.Fatalf("body = %q", got)
	}
}

func TestRecentReportsEndpoint(t *testing.T) {
	svc, _ := newTestService(t, &fakeDocs{}, &fakePublisher{})
	svc.artifacts = &fakeArtifacts{created: []PublishedArtifact{
		{Name: "newest.pdf", Status: ArtifactStatusActive},
		{Name: "older.pdf", Status: ArtifactStatusActive},
	}}
	router, err := svc.Routes()
	if err != nil {
		t.Fatalf("Routes() error = %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/recent?limit=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	var body struct {
		Reports []PublishedArtifact `json:"reports"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Reports) != 1 || body.Reports[0].Name != "newest.pdf" {
		t.Fatalf("reports = %+v", body.Reports)
	}
}

func TestRecentReportsEndpointRejectsBadLimit(t *testing.T) {
	tests := []string{"0", "101", "-3", "soon"}
	for _, limit := range tests {
		t.Run(limit, func(t *testing.T) {
			router := newTestRouter(t, &fakeDocs{}, &fakePublisher{})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/recent?limit="+limit, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestReportEndpointInternalFailure(t *testing.T) {
	docs := &fakeDocs{doc: sampleDocument()}
	publisher := &fakePublisher{err: errors.New("bucket unreachable")}
	router := newTestRouter(t, docs, publisher)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checklist-report/t1/pdf", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// Internal detail stays in the log, never in the response body.
	body := strings.TrimSpace(rec.Body.String())
	if body != "Error generating report" {
		t.Fatalf("body = %q", body)
	}
}
