package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/examprep/examdocflow/internal/classify"
	"github.com/examprep/examdocflow/internal/models"
)

// FilenameAnalyzerFunction wraps the filename classifier for the workflow.
// It needs no cloud clients: classification is pure and never fails, so the
// only request error is an empty request.
type FilenameAnalyzerFunction struct {
	classifier *classify.Classifier
}

// NewFilenameAnalyzer creates a new FilenameAnalyzerFunction instance.
func NewFilenameAnalyzer() *FilenameAnalyzerFunction {
	return &FilenameAnalyzerFunction{classifier: classify.New()}
}

// Process classifies one filename or a batch. Unmatched filenames are not
// errors; they come back as "unknown" with the fallback suggested name.
func (f *FilenameAnalyzerFunction) Process(ctx context.Context, req *models.FilenameAnalyzerRequest) (*models.FilenameAnalyzerResponse, error) {
	logCtx := slog.With("executionId", req.ExecutionID)

	filenames := req.Filenames
	if len(filenames) == 0 {
		if req.Filename == "" {
			return nil, fmt.Errorf("filename or filenames must be provided")
		}
		filenames = []string{req.Filename}
	}

	results := make([]classify.Result, 0, len(filenames))
	for _, name := range filenames {
		results = append(results, f.classifier.Classify(name))
	}
	logCtx.Info("Filename analysis complete.", "count", len(results))

	return &models.FilenameAnalyzerResponse{
		Status:  "success",
		Results: results,
	}, nil
}
