package builder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumescore/internal/errors"
	"resumescore/internal/types"
)

func TestRender(t *testing.T) {
	draft := types.ResumeDraft{
		FullName:   "Ada Lovelace",
		Email:      "ada@example.com",
		Location:   "London",
		Summary:    "Analyst of engines.",
		Experience: "Analytical Engine Notes\n• Wrote the first algorithm\n\n* Translated Menabrea",
		Skills:     "Mathematics – Poetry",
	}

	out, err := New(WithCompression(false)).RenderBytes(draft)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	for _, want := range []string{
		"(ADA LOVELACE)",
		"(ada@example.com | London)",
		"(PROFESSIONAL SUMMARY)",
		"(WORK EXPERIENCE)",
		"(- Wrote the first algorithm)",
		"(TECHNICAL SKILLS)",
		"(Mathematics - Poetry)",
	} {
		assert.Contains(t, string(out), want)
	}
	for _, skipped := range []string{"(PROJECTS)", "(EDUCATION)", "(CERTIFICATIONS)", "(ACHIEVEMENTS)"} {
		assert.NotContains(t, string(out), skipped)
	}
}

func TestRenderCompressed(t *testing.T) {
	out, err := New().RenderBytes(types.ResumeDraft{FullName: "Grace Hopper", Summary: "Compilers."})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.NotContains(t, string(out), "(PROFESSIONAL SUMMARY)")
}

func TestRenderValidation(t *testing.T) {
	_, err := New().RenderBytes(types.ResumeDraft{Email: "ada@example.com"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = New().RenderBytes(types.ResumeDraft{FullName: "Ada", Email: "not-an-email"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"• bullet":        "- bullet",
		"2019 – 2021":     "2019 - 2021",
		"café":            "café",
		"naïve 🚀 rocket": "naïve  rocket",
		"日本語":             "",
		"tab\tstays":      "tab\tstays",
	}
	for in, want := range tests {
		assert.Equal(t, want, Clean(in), in)
	}
}

func TestContactLineAndFilename(t *testing.T) {
	assert.Equal(t, "a@b.co | 555-0100", ContactLine(types.ResumeDraft{Email: "a@b.co", Phone: " 555-0100 "}))
	assert.Equal(t, "", ContactLine(types.ResumeDraft{}))

	assert.Equal(t, "builder_ada.pdf", Filename("Ada"))
	assert.Equal(t, "builder_ada_l.pdf", Filename("ada_l/../"))
	assert.Equal(t, "resume.pdf", Filename("../"))
}
