package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownDocuments(t *testing.T) {
	c := New()

	tests := []struct {
		name          string
		filename      string
		wantType      string
		wantLevel     string
		wantSuggested string
	}{
		{
			name:          "level and type combined",
			filename:      "12th_marksheet.pdf",
			wantType:      DocTypeMarksheet,
			wantLevel:     Level12th,
			wantSuggested: "12thMarksheet.pdf",
		},
		{
			name:          "tenth spelled out",
			filename:      "tenth grade report.jpg",
			wantType:      DocTypeMarksheet,
			wantLevel:     Level10th,
			wantSuggested: "10thMarksheet.jpg",
		},
		{
			name:          "graduation degree",
			filename:      "graduation_degree.pdf",
			wantType:      DocTypeCertificate,
			wantLevel:     LevelGraduation,
			wantSuggested: "GraduationCertificate.pdf",
		},
		{
			name:          "passport photo",
			filename:      "passport_photo.jpeg",
			wantType:      DocTypePhoto,
			wantLevel:     Unknown,
			wantSuggested: "Photo.jpeg",
		},
		{
			name:          "signature",
			filename:      "signature.png",
			wantType:      DocTypeSignature,
			wantLevel:     Unknown,
			wantSuggested: "Signature.png",
		},
		{
			name:          "aadhaar card",
			filename:      "aadhar_card.pdf",
			wantType:      DocTypeIdentity,
			wantLevel:     Unknown,
			wantSuggested: "IdentityProof.pdf",
		},
		{
			name:          "marksheet inside a longer name",
			filename:      "my_marksheet_scan.pdf",
			wantType:      DocTypeMarksheet,
			wantLevel:     Unknown,
			wantSuggested: "Marksheet.pdf",
		},
		{
			name:          "experience letter",
			filename:      "work_experience.pdf",
			wantType:      DocTypeExperience,
			wantLevel:     Unknown,
			wantSuggested: "ExperienceCertificate.pdf",
		},
		{
			name:          "uppercase input",
			filename:      "12TH_MARKSHEET.PDF",
			wantType:      DocTypeMarksheet,
			wantLevel:     Level12th,
			wantSuggested: "12thMarksheet.pdf",
		},
		{
			name:          "post graduation",
			filename:      "mtech_transcript.pdf",
			wantType:      DocTypeMarksheet,
			wantLevel:     LevelPostGraduation,
			wantSuggested: "PostGraduationMarksheet.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.filename)
			assert.Equal(t, tt.wantType, got.DocumentType)
			assert.Equal(t, tt.wantLevel, got.EducationLevel)
			assert.Equal(t, tt.wantSuggested, got.SuggestedName)
			assert.Equal(t, tt.filename, got.OriginalName)
		})
	}
}

func TestClassifyMarksheetSubstringAlwaysWins(t *testing.T) {
	c := New()
	for _, filename := range []string{
		"marksheet.pdf",
		"MARKSHEET",
		"old-marksheet-copy.png",
		"my_MarkSheet_2019.jpg",
	} {
		got := c.Classify(filename)
		assert.Equal(t, DocTypeMarksheet, got.DocumentType, "filename %q", filename)
	}
}

func TestClassifyTenthLevel(t *testing.T) {
	c := New()
	for _, filename := range []string{"10th.pdf", "tenth_result.jpg", "class 10 certificate.pdf", "sslc.pdf"} {
		got := c.Classify(filename)
		assert.Equal(t, Level10th, got.EducationLevel, "filename %q", filename)
	}
}

func TestClassifyEmptyFilename(t *testing.T) {
	got := New().Classify("")

	assert.Equal(t, Unknown, got.DocumentType)
	assert.Equal(t, Unknown, got.EducationLevel)
	assert.Equal(t, FallbackName, got.SuggestedName)
	assert.Zero(t, got.Confidence)
	assert.Empty(t, got.DetectedPatterns)
}

func TestClassifyExtensionOnly(t *testing.T) {
	// ".pdf" has an empty stem; it must classify as unknown, not panic.
	got := New().Classify(".pdf")

	assert.Equal(t, Unknown, got.DocumentType)
	assert.Equal(t, Unknown, got.EducationLevel)
	assert.Equal(t, "Document.pdf", got.SuggestedName)
}

func TestClassifyNoExtension(t *testing.T) {
	got := New().Classify("signature")

	require.Equal(t, DocTypeSignature, got.DocumentType)
	assert.Equal(t, "Signature", got.SuggestedName, "no extension must be appended")
}

func TestClassifyConfidenceIncrements(t *testing.T) {
	c := New()

	// Type only: base + 0.5.
	typeOnly := c.Classify("autograph.png")
	assert.InDelta(t, 0.5, typeOnly.Confidence, 1e-9)

	// Level only: base + 0.3.
	levelOnly := c.Classify("12th.pdf")
	assert.InDelta(t, 0.3, levelOnly.Confidence, 1e-9)

	// Both plus the multi-match bonus, clamped.
	both := c.Classify("12th_marksheet.pdf")
	assert.InDelta(t, 1.0, both.Confidence, 1e-9)
	assert.Greater(t, both.Confidence, typeOnly.Confidence)
}

func TestClassifyConfidenceBounds(t *testing.T) {
	c := New()
	inputs := []string{
		"",
		".",
		"...",
		"marksheet_certificate_photo_signature_10th_12th_graduation.pdf",
		strings.Repeat("marksheet_", 4096) + ".pdf",
		strings.Repeat("x", 10000),
	}
	for _, filename := range inputs {
		got := c.Classify(filename)
		assert.GreaterOrEqual(t, got.Confidence, 0.0, "filename %.40q", filename)
		assert.LessOrEqual(t, got.Confidence, 1.0, "filename %.40q", filename)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New()
	first := c.Classify("10th_marksheet_final.pdf")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("10th_marksheet_final.pdf"))
	}
}

// Re-classifying a suggested name is allowed to diverge from the original
// classification; the rename is one-way, not a round trip. "ews_form.pdf"
// classifies as a category certificate, but its suggested name
// "CategoryCertificate.pdf" re-classifies as a plain certificate because the
// certificate rule is declared first.
func TestClassifySuggestedNameNotRoundTrip(t *testing.T) {
	c := New()
	first := c.Classify("ews_form.pdf")
	require.Equal(t, DocTypeCategory, first.DocumentType)
	require.Equal(t, "CategoryCertificate.pdf", first.SuggestedName)

	second := c.Classify(first.SuggestedName)
	assert.Equal(t, DocTypeCertificate, second.DocumentType)
}

func TestClassifyDetectedPatterns(t *testing.T) {
	got := New().Classify("12th_marksheet.pdf")

	require.NotEmpty(t, got.DetectedPatterns)
	assert.Contains(t, got.DetectedPatterns, `marksheet:marksheet|mark\s*sheet`)
	assert.Contains(t, got.DetectedPatterns, `12th:12th|twelfth|class\s*12|xii\s*class|hsc|intermediate`)
	assert.True(t, got.Standardized)
}

func TestNewWithRulesOrderWins(t *testing.T) {
	rules := []Rule{
		mustRule("first", `doc`),
		mustRule("second", `document`),
	}
	c := NewWithRules(rules, nil)

	got := c.Classify("document.txt")
	assert.Equal(t, "first", got.DocumentType, "declaration order decides ties")
}
