package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examprep/examdocflow/internal/classify"
	"github.com/examprep/examdocflow/internal/models"
)

func TestAnalyzerProcessSingle(t *testing.T) {
	f := NewFilenameAnalyzer()

	resp, err := f.Process(context.Background(), &models.FilenameAnalyzerRequest{
		Filename: "12th_marksheet.pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, classify.DocTypeMarksheet, resp.Results[0].DocumentType)
	assert.Equal(t, "12thMarksheet.pdf", resp.Results[0].SuggestedName)
}

func TestAnalyzerProcessBatch(t *testing.T) {
	f := NewFilenameAnalyzer()

	resp, err := f.Process(context.Background(), &models.FilenameAnalyzerRequest{
		Filenames: []string{"photo.jpg", "unintelligible.bin", "caste_certificate.pdf"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, classify.DocTypePhoto, resp.Results[0].DocumentType)
	assert.Equal(t, classify.Unknown, resp.Results[1].DocumentType)
	assert.Equal(t, "Document.bin", resp.Results[1].SuggestedName)
}

func TestAnalyzerProcessEmptyRequest(t *testing.T) {
	f := NewFilenameAnalyzer()

	_, err := f.Process(context.Background(), &models.FilenameAnalyzerRequest{})
	assert.Error(t, err)
}

func TestSplitObjectName(t *testing.T) {
	tests := []struct {
		object   string
		wantExam string
		wantFile string
	}{
		{"upsc/12th_marksheet.pdf", "upsc", "12th_marksheet.pdf"},
		{"photo.jpg", "", "photo.jpg"},
		{"ssc/2024/signature.png", "ssc", "signature.png"},
		{"gate/", "gate", ""},
	}
	for _, tt := range tests {
		examID, filename := splitObjectName(tt.object)
		assert.Equal(t, tt.wantExam, examID, "object %q", tt.object)
		assert.Equal(t, tt.wantFile, filename, "object %q", tt.object)
	}
}

func TestSuggestedStem(t *testing.T) {
	c := classify.New()

	assert.Equal(t, "12thMarksheet", suggestedStem(c.Classify("12th_marksheet.pdf")))
	assert.Equal(t, "Signature", suggestedStem(c.Classify("signature")))
	assert.Equal(t, "Document", suggestedStem(c.Classify("")))
}
