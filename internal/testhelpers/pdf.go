// Package testhelpers builds fixtures shared by package tests.
package testhelpers

import (
	"bytes"
	"fmt"
	"strings"
)

// PDF builds a minimal, well-formed PDF. Each argument is one page; each
// string is drawn as its own text object, so it comes back as its own line.
func PDF(pages ...[]string) []byte {
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"", // page tree, filled below
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	kids := make([]string, 0, len(pages))
	for _, lines := range pages {
		pageObj := len(objs) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))

		var cs strings.Builder
		y := 760
		for _, l := range lines {
			fmt.Fprintf(&cs, "BT /F1 11 Tf 50 %d Td (%s) Tj ET\n", y, escapeString(l))
			y -= 16
		}
		content := cs.String()
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageObj+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content),
		)
	}
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

// ReportLines is the text of a well-formed EFRIS report with the given identifier.
func ReportLines(tin, name, date, assessment, amount string) []string {
	return []string{
		"EFRIS Compliance Report",
		"TIN: " + tin,
		"Trade Name: " + name + " Address: Plot 12 Kampala Road",
		"Issued Date: " + date,
		"Fiscal Document Number: " + assessment,
		"Tax Amount " + amount,
	}
}

// SplitReportLines is ReportLines with every label and its value drawn as
// separate text objects, so each value comes back on the line after its label.
func SplitReportLines(tin, name, date, assessment, amount string) []string {
	return []string{
		"EFRIS Compliance Report",
		"TIN:", tin,
		"Trade Name:", name,
		"Address: Plot 12 Kampala Road",
		"Issued Date:", date,
		"Fiscal Document Number:", assessment,
		"Tax Amount", amount,
	}
}

func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
