package report

import "testing"

func TestDecodeReportJob(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ReportJob
	}{
		{
			name: "checklist payload",
			body: `{"templateId":"t1"}`,
			want: ReportJob{Kind: JobChecklist, TemplateID: "t1"},
		},
		{
			name: "inspection payload",
			body: `{"inspectionId":"i1","versionId":"v1","assetId":"a1"}`,
			want: ReportJob{Kind: JobInspection, InspectionID: "i1", VersionID: "v1", AssetID: "a1"},
		},
		{
			name: "inspection fields win over templateId",
			body: `{"templateId":"t1","inspectionId":"i1","versionId":"v1","assetId":"a1"}`,
			want: ReportJob{Kind: JobInspection, InspectionID: "i1", VersionID: "v1", AssetID: "a1"},
		},
		{
			name: "partial inspection shape falls through to unknown",
			body: `{"inspectionId":"i1","versionId":"v1"}`,
			want: ReportJob{Kind: JobUnknown},
		},
		{
			name: "partial inspection shape with templateId is a checklist job",
			body: `{"templateId":"t1","inspectionId":"i1"}`,
			want: ReportJob{Kind: JobChecklist, TemplateID: "t1"},
		},
		{
			name: "empty object",
			body: `{}`,
			want: ReportJob{Kind: JobUnknown},
		},
		{
			name: "not json",
			body: `version report please`,
			want: ReportJob{Kind: JobUnknown},
		},
		{
			name: "unrelated fields",
			body: `{"url":"https://example.com/x.pdf","source":"report-service"}`,
			want: ReportJob{Kind: JobUnknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeReportJob([]byte(tt.body))
			if got != tt.want {
				t.Fatalf("DecodeReportJob() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
