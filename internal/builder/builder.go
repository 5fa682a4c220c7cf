// Package builder renders a resume draft into a single-column A4 PDF.
package builder

import (
	"bytes"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"resumescore/internal/errors"
	"resumescore/internal/types"
)

const (
	fontFamily   = "Helvetica"
	leftMargin   = 10.0
	bulletIndent = 15.0
	pageBreak    = 15.0
)

// Section is one titled block of the rendered resume.
type Section struct {
	Title   string
	Content func(d types.ResumeDraft) string
}

// Sections lists the blocks in render order. Blank ones are skipped.
var Sections = []Section{
	{"PROFESSIONAL SUMMARY", func(d types.ResumeDraft) string { return d.Summary }},
	{"WORK EXPERIENCE", func(d types.ResumeDraft) string { return d.Experience }},
	{"PROJECTS", func(d types.ResumeDraft) string { return d.Projects }},
	{"EDUCATION", func(d types.ResumeDraft) string { return d.Education }},
	{"TECHNICAL SKILLS", func(d types.ResumeDraft) string { return d.Skills }},
	{"CERTIFICATIONS", func(d types.ResumeDraft) string { return d.Certifications }},
	{"ACHIEVEMENTS", func(d types.ResumeDraft) string { return d.Achievements }},
}

// Builder renders drafts. The zero value is not usable; call New.
type Builder struct {
	compress bool
}

// Option customizes a Builder.
type Option func(*Builder)

// WithCompression toggles stream compression in the output. It is on by default.
func WithCompression(on bool) Option {
	return func(b *Builder) {
		b.compress = on
	}
}

// New creates a builder.
func New(opts ...Option) *Builder {
	b := &Builder{compress: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Render validates the draft and writes the PDF to w.
func (b *Builder) Render(draft types.ResumeDraft, w io.Writer) error {
	if err := types.Validate(&draft); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(b.compress)
	pdf.SetAutoPageBreak(true, pageBreak)
	pdf.SetCreator("resumescore", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(Clean(s)) }

	pdf.SetTitle(text(draft.FullName), false)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, text(strings.ToUpper(strings.TrimSpace(draft.FullName))), "", 1, "C", false, 0, "")

	pdf.SetFont(fontFamily, "", 10)
	if contact := ContactLine(draft); contact != "" {
		pdf.CellFormat(0, 5, text(contact), "", 1, "C", false, 0, "")
	}
	pdf.Ln(8)

	for _, s := range Sections {
		content := s.Content(draft)
		if strings.TrimSpace(content) == "" {
			continue
		}

		pdf.SetFont(fontFamily, "B", 11)
		pdf.SetFillColor(245, 245, 245)
		pdf.CellFormat(0, 7, s.Title, "", 1, "", true, 0, "")
		pdf.Ln(2)

		pdf.SetFont(fontFamily, "", 10)
		for _, line := range strings.Split(content, "\n") {
			line = text(strings.TrimSpace(line))
			if line == "" {
				pdf.Ln(2)
				continue
			}
			if isBullet(line) {
				pdf.SetX(bulletIndent)
			} else {
				pdf.SetX(leftMargin)
			}
			pdf.MultiCell(0, 5, line, "", "", false)
		}
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return errors.NewInternalError(errors.ErrCodeRenderFailed, "Failed to render resume PDF", err)
	}
	return nil
}

// RenderBytes renders the draft into memory.
func (b *Builder) RenderBytes(draft types.ResumeDraft) ([]byte, error) {
	var buf bytes.Buffer
	if err := b.Render(draft, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContactLine joins the non-blank contact fields with " | ".
func ContactLine(d types.ResumeDraft) string {
	var parts []string
	for _, p := range []string{d.Email, d.Phone, d.Location} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

// Clean reduces s to Latin-1, the range the core PDF fonts can draw. Bullets and en dashes
// become hyphens; anything else outside the range is dropped.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '•' || r == '–':
			b.WriteByte('-')
		case r == '\t' || r == '\n' || (r >= 0x20 && r < 0x7f) || (r >= 0xa0 && r <= 0xff):
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")
}

// Filename is the attachment name offered for a user's rendered resume.
func Filename(username string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(username) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "resume.pdf"
	}
	return "builder_" + b.String() + ".pdf"
}
