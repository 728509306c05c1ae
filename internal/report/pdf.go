// Package report renders verification reports as PDF documents, either from
// a stored history record or from the live result of a comparison session.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// A4 portrait, millimetres
const (
	pageWidth  = 210.0
	marginLeft = 12.0
	maxWidth   = 185.0
	lineHeight = 6.0
	indent     = 4.0
	pageBottom = 280.0
	pageTop    = 20.0
)

type rgb struct{ r, g, b int }

var (
	headerFill   = rgb{15, 23, 42}
	sectionBlue  = rgb{37, 99, 235}
	ruleGray     = rgb{209, 213, 219}
	black        = rgb{0, 0, 0}
	white        = rgb{255, 255, 255}
	acceptedText = rgb{22, 163, 74}
	rejectedText = rgb{220, 38, 38}
	neutralText  = rgb{75, 85, 99}
)

// Renderer builds report PDFs
type Renderer struct {
	compress bool
	now      func() time.Time
	location *time.Location
}

// Option configures a Renderer
type Option func(*Renderer)

// WithoutCompression leaves page content streams uncompressed
func WithoutCompression() Option {
	return func(r *Renderer) { r.compress = false }
}

// WithClock sets the time used for the creation date and session reports
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithLocation sets the zone dates are printed in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) { r.location = loc }
}

// NewRenderer creates a renderer
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		compress: true,
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// page wraps an fpdf document with a cursor and the text translator
type page struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	y   float64
}

func (r *Renderer) newPage(title string) *page {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(r.now())
	pdf.SetTitle(title, true)
	pdf.SetCreator("Veriscope Console", true)
	pdf.AddPage()

	return &page{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (p *page) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *page) color(c rgb) {
	p.pdf.SetTextColor(c.r, c.g, c.b)
}

func (p *page) font(style string, size float64) {
	p.pdf.SetFont("Helvetica", style, size)
}

func (p *page) text(x, y float64, s string) {
	p.pdf.Text(x, y, p.tr(s))
}

// wrapped writes s within width starting at x, breaking pages as needed
func (p *page) wrapped(s string, x, width float64) {
	for _, line := range p.split(p.tr(s), width) {
		p.breakIfBelow(pageBottom)
		p.pdf.Text(x, p.y, line)
		p.y += lineHeight
	}
}

func (p *page) breakIfBelow(limit float64) {
	if p.y > limit {
		p.pdf.AddPage()
		p.y = pageTop
	}
}

// split breaks already translated text into lines no wider than width.
// Words longer than a line are cut.
func (p *page) split(s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	line := ""
	for _, w := range words {
		candidate := w
		if line != "" {
			candidate = line + " " + w
		}
		if p.pdf.GetStringWidth(candidate) <= width {
			line = candidate
			continue
		}
		if line != "" {
			lines = append(lines, line)
		}
		for p.pdf.GetStringWidth(w) > width {
			n := p.fit(w, width)
			lines = append(lines, w[:n])
			w = w[n:]
		}
		line = w
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// fit is the longest prefix of s, at least one byte, that fits width
func (p *page) fit(s string, width float64) int {
	n := 1
	for n < len(s) && p.pdf.GetStringWidth(s[:n+1]) <= width {
		n++
	}
	return n
}

func (p *page) section(title string) {
	p.breakIfBelow(pageBottom - 10)
	p.font("B", 13)
	p.color(sectionBlue)
	p.text(marginLeft, p.y, title)
	p.y += 3
	p.pdf.SetDrawColor(ruleGray.r, ruleGray.g, ruleGray.b)
	p.pdf.Line(marginLeft, p.y, marginLeft+70, p.y)
	p.y += 6
	p.body()
}

func (p *page) body() {
	p.font("", 11)
	p.color(black)
}
