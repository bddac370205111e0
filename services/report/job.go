package report

import "encoding/json"

// JobKind identifies which report a queue message asks for.
type JobKind int

const (
	// JobUnknown covers payloads that match neither job shape, including
	// bodies that are not valid JSON. Unknown jobs are logged and discarded.
	JobUnknown JobKind = iota
	// JobChecklist requests a blank checklist report for a template.
	JobChecklist
	// JobInspection requests a filled report for one inspection instance.
	JobInspection
)

// ReportJob is the decoded form of an inbound queue message.
type ReportJob struct {
	Kind JobKind

	TemplateID   string
	InspectionID string
	VersionID    string
	AssetID      string
}

// DecodeReportJob classifies a raw message body. A payload carrying all of
// versionId, inspectionId and assetId is an inspection job; otherwise a
// payload carrying templateId is a checklist job; anything else is unknown.
func DecodeReportJob(data []byte) ReportJob {
	var payload struct {
		TemplateID   string `json:"templateId"`
		InspectionID string `json:"inspectionId"`
		VersionID    string `json:"versionId"`
		AssetID      string `json:"assetId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ReportJob{Kind: JobUnknown}
	}

	if payload.InspectionID != "" && payload.VersionID != "" && payload.AssetID != "" {
		return ReportJob{
			Kind:         JobInspection,
			InspectionID: payload.InspectionID,
			VersionID:    payload.VersionID,
			AssetID:      payload.AssetID,
		}
	}

	if payload.TemplateID != "" {
		return ReportJob{Kind: JobChecklist, TemplateID: payload.TemplateID}
	}

	return ReportJob{Kind: JobUnknown}
}
