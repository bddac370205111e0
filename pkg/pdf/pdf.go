// Package pdf converts rendered report HTML into PDF files on disk.
package pdf

import (
	"errors"

	"github.com/go-pdf/fpdf"
)

// WriteFile renders the basic-HTML string into a PDF document at path. Any
// rendering or I/O failure is returned as-is; cleanup of partial files is the
// caller's responsibility.
func WriteFile(html, path string) error {
	if html == "" {
		return errors.New("empty document")
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Checklist Report", true)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 11)

	writer := doc.HTMLBasicNew()
	_, lineHt := doc.GetFontSize()
	writer.Write(lineHt*1.4, html)

	return doc.OutputFileAndClose(path)
}
