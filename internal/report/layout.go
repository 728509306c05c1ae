package report

import (
	"fmt"
	"time"

	"github.com/veriscope/console/internal/result"
)

// document is what both report sources are reduced to before layout
type document struct {
	ID        string
	Type      string
	Status    string
	CreatedAt *time.Time
	Reference string
	Provided  []string

	// Analysis is nil when nothing was stored
	Analysis *result.Result

	// EntryStatus stands in for entries that carry no status of their own
	EntryStatus string
}

func statusColor(d result.Decision) rgb {
	switch d.Verdict {
	case result.Accepted:
		return acceptedText
	case result.Rejected:
		return rejectedText
	}
	return neutralText
}

func (r *Renderer) formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.In(r.location).Format("2006-01-02 15:04:05 MST")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (r *Renderer) render(doc document) ([]byte, error) {
	p := r.newPage("Verification Report " + doc.ID)
	decision := result.Classify(doc.Status)
	created := r.formatTime(doc.CreatedAt)

	r.header(p, doc, decision, created)
	r.requestDetails(p, doc, decision, created)
	r.analysis(p, doc)

	return p.output()
}

func (r *Renderer) header(p *page, doc document, decision result.Decision, created string) {
	p.pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
	p.pdf.Rect(0, 0, pageWidth, 22, "F")

	p.color(white)
	p.font("B", 16)
	p.text(marginLeft, 11, "Verification Report")

	p.font("", 9)
	p.text(marginLeft, 17, "ID: "+doc.ID)
	p.text(marginLeft+70, 17, "Type: "+orDash(doc.Type))
	if created != "-" {
		p.text(marginLeft+120, 17, "Date: "+created)
	}

	if decision.Label != string(result.Unknown) {
		p.color(statusColor(decision))
		p.text(pageWidth-marginLeft-40, 11, "Status: "+decision.Label)
	}

	p.color(black)
	p.y = 28
}

func (r *Renderer) requestDetails(p *page, doc document, decision result.Decision, created string) {
	p.section("1. Request Details")

	p.wrapped("Comparison ID: "+doc.ID, marginLeft, maxWidth)
	p.wrapped("Type: "+orDash(doc.Type), marginLeft, maxWidth)
	p.wrapped("Overall Status: "+decision.Label, marginLeft, maxWidth)
	p.wrapped("Created At: "+created, marginLeft, maxWidth)
	p.wrapped("Reference File: "+orDash(doc.Reference), marginLeft, maxWidth)

	if len(doc.Provided) == 0 {
		p.wrapped("Provided Files: -", marginLeft, maxWidth)
	} else {
		p.wrapped(fmt.Sprintf("Provided Files (%d):", len(doc.Provided)), marginLeft, maxWidth)
		for i, name := range doc.Provided {
			p.wrapped(fmt.Sprintf("• %d. %s", i+1, name), marginLeft+indent, maxWidth-indent)
		}
	}
	p.y += 4
}

func (r *Renderer) analysis(p *page, doc document) {
	p.section("2. Analysis Summary")

	switch {
	case doc.Analysis == nil:
		p.wrapped("No structured analysis was stored for this comparison.", marginLeft, maxWidth)
		return
	case !doc.Analysis.Recognized():
		p.wrapped("Structured analysis is available but not in a known format.", marginLeft, maxWidth)
		return
	}

	if doc.Analysis.TotalCost != nil {
		p.wrapped(fmt.Sprintf("Total Cost: %.4f", *doc.Analysis.TotalCost), marginLeft, maxWidth)
		p.y += 1
	}

	itemNoun, countNoun := "Result", "Results"
	if doc.Analysis.Kind == result.KindSignature {
		itemNoun, countNoun = "Signature", "Signatures"
	}

	for _, g := range doc.Analysis.Groups {
		p.breakIfBelow(pageBottom - 5)

		p.font("B", 12)
		p.color(headerFill)
		p.wrapped(fmt.Sprintf("File: %s (%s: %d)", g.Filename, countNoun, len(g.Entries)), marginLeft, maxWidth)
		p.body()
		p.y += 1

		for _, e := range g.Entries {
			r.entry(p, e, itemNoun, doc.EntryStatus)
		}
		p.y += 3
	}
}

// entry writes one result line and the differences its report lists
func (r *Renderer) entry(p *page, e result.Entry, noun, fallbackStatus string) {
	decision := e.Decision
	if e.RawStatus == "" && fallbackStatus != "" {
		decision = result.Classify(fallbackStatus)
	}
	decided := decision.Label != string(result.Unknown)

	line := fmt.Sprintf("• %s #%d", noun, e.Index)
	sep := ": "
	if decided {
		line += sep + "Status = " + decision.Label
		sep = ", "
	}
	if e.Confidence != nil {
		line += fmt.Sprintf("%sConfidence = %.2f%%", sep, *e.Confidence)
	}

	if decided {
		p.color(statusColor(decision))
		p.font("B", 12)
	}
	p.wrapped(line, marginLeft+indent, maxWidth-indent)
	p.body()

	level := marginLeft + 2*indent
	r.differences(p, "Pixel difference", e.Report.PixelDifferences(), level)
	r.differences(p, "Stroke difference", e.Report.StrokeDifferences(), level)

	if features := e.Report.FacialFeatures(); len(features) > 0 {
		p.wrapped("• Facial features:", level, maxWidth-(level-marginLeft))
		for _, f := range features {
			p.wrapped(f.Label+": "+f.Value, level+indent, maxWidth-(level+indent-marginLeft))
		}
		p.y += 2
	}

	p.y += 1
}

func (r *Renderer) differences(p *page, label string, diffs []result.Difference, x float64) {
	if len(diffs) == 0 {
		return
	}
	width := maxWidth - (x - marginLeft)
	child := x + indent

	for i, d := range diffs {
		if d.Text != "" {
			p.wrapped(fmt.Sprintf("• %s %d: %s", label, i+1, d.Text), x, width)
			continue
		}
		p.wrapped(fmt.Sprintf("• %s %d:", label, i+1), x, width)
		if d.Region != "" {
			p.wrapped("Region: "+d.Region, child, width-indent)
		}
		if d.Description != "" {
			p.wrapped("Details: "+d.Description, child, width-indent)
		}
		for _, f := range d.Fields {
			p.wrapped(f.Label+": "+f.Value, child, width-indent)
		}
	}
	p.y += 2
}
