// Package extract pulls plain text out of uploaded resumes and job descriptions.
package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"resumescore/internal/errors"
)

// SupportedExtensions lists the file types Text understands.
var SupportedExtensions = []string{".pdf", ".docx", ".html", ".htm", ".txt", ".md"}

var (
	xmlTags         = regexp.MustCompile(`<[^>]+>`)
	horizontalSpace = regexp.MustCompile(`[ \t\r\f\v\x{00A0}]+`)
	blankRuns       = regexp.MustCompile(`\n\s*\n+`)
)

// jobPostingSelectors locate the posting body on common job boards, most specific first.
var jobPostingSelectors = []string{
	".job-description",
	"#job-description",
	".job-details",
	".posting-content",
	"[data-testid='job-description']",
	"main",
	"article",
}

// IsSupported reports whether filename has an extension Text can handle.
func IsSupported(filename string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(filename)))
}

// Text extracts plain text from data, choosing the parser by the extension of filename.
func Text(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return fromPDF(data)
	case ".docx":
		return fromDocx(data)
	case ".html", ".htm":
		return FromHTML(string(data))
	case ".txt", ".md":
		return string(data), nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported file type %q, expected one of %s", ext, strings.Join(SupportedExtensions, ", ")), nil).
			WithContext("filename", filename)
	}
}

// Extractor wraps Text with logging. A PDF that cannot be read yields empty text instead
// of an error, so scoring still produces a (low) result for it.
type Extractor struct {
	logger *errors.Logger
}

// New creates an Extractor.
func New(logger *errors.Logger) *Extractor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Extractor{logger: logger}
}

// Text extracts text from an uploaded file.
func (e *Extractor) Text(filename string, data []byte) (string, error) {
	text, err := Text(filename, data)
	if err == nil {
		return text, nil
	}
	if errors.IsType(err, errors.ErrorTypeValidation) {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		e.logger.LogError(err, "PDF text extraction failed, scoring empty text", "filename", filename)
		return "", nil
	}
	return "", err
}

func fromPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", extractionError("pdf", fmt.Errorf("%v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extractionError("pdf", err)
	}
	rs, err := r.GetPlainText()
	if err != nil {
		return "", extractionError("pdf", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rs); err != nil {
		return "", extractionError("pdf", err)
	}
	return cleanWhitespace(buf.String()), nil
}

func fromDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", extractionError("docx", err)
	}

	idx := slices.IndexFunc(zr.File, func(f *zip.File) bool { return f.Name == "word/document.xml" })
	if idx < 0 {
		return "", extractionError("docx", fmt.Errorf("no word/document.xml in archive"))
	}
	rc, err := zr.File[idx].Open()
	if err != nil {
		return "", extractionError("docx", err)
	}
	defer func() { _ = rc.Close() }()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", extractionError("docx", err)
	}

	doc := string(raw)
	doc = strings.ReplaceAll(doc, "</w:p>", "\n")
	doc = strings.ReplaceAll(doc, "<w:tab/>", "\t")
	doc = xmlTags.ReplaceAllString(doc, "")
	return cleanWhitespace(unescapeXML(doc)), nil
}

var xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

// FromHTML returns the readable text of an HTML page, preferring the job posting body when
// one of the usual containers is present.
func FromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", extractionError("html", err)
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	content := doc.Find("body")
	for _, sel := range jobPostingSelectors {
		if s := doc.Find(sel); s.Length() > 0 {
			content = s.First()
			break
		}
	}

	// Block elements carry no newline in Text(); add one so headings stay on their own line.
	content.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return cleanWhitespace(content.Text()), nil
}

func cleanWhitespace(s string) string {
	s = horizontalSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func extractionError(kind string, cause error) error {
	return errors.NewIOError(errors.ErrCodeExtractionFailed, fmt.Sprintf("failed to extract text from %s", kind), cause)
}
