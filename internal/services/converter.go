package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/examprep/examdocflow/internal/convert"
	"github.com/examprep/examdocflow/internal/exam"
	"github.com/examprep/examdocflow/internal/gcp"
	"github.com/examprep/examdocflow/internal/models"
)

// ConverterConfig holds all configuration for the document-converter service.
type ConverterConfig struct {
	ProjectID      string
	ArtifactBucket string
	CollectionName string
	ExamConfigPath string
}

// ConverterFunction holds the dependencies for the conversion worker. It is
// the standalone counterpart of the ingestor's inline conversion step, used
// when the workflow re-converts a document (for example after an exam
// profile change).
type ConverterFunction struct {
	storageClient   *storage.Client
	firestoreClient *firestore.Client
	exams           *exam.Registry
	config          ConverterConfig
}

// NewConverter creates a new ConverterFunction instance.
func NewConverter(ctx context.Context) (*ConverterFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := ConverterConfig{
		ProjectID:      projectID,
		ArtifactBucket: gcp.GetEnv("ARTIFACT_BUCKET", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		ExamConfigPath: gcp.GetEnv("EXAM_CONFIG_PATH", ""),
	}
	if config.ArtifactBucket == "" {
		return nil, fmt.Errorf("ARTIFACT_BUCKET environment variable must be set")
	}

	exams := exam.DefaultRegistry()
	if config.ExamConfigPath != "" {
		loaded, err := exam.Load(config.ExamConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load exam config: %w", err)
		}
		exams = loaded
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &ConverterFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		exams:           exams,
		config:          config,
	}, nil
}

// Process converts one recorded document to its exam's submission rule and
// stores the artifact. Re-running the step returns the existing artifact
// instead of converting twice.
func (f *ConverterFunction) Process(ctx context.Context, req *models.DocumentConverterRequest) (*models.DocumentConverterResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "executionId", req.ExecutionID)
	logCtx.Info("Starting conversion.")

	docRef := f.firestoreClient.Collection(f.config.CollectionName).Doc(req.DocumentID)
	snapshot, err := docRef.Get(ctx)
	if err != nil {
		logCtx.Error("Failed to load document record", "error", err)
		return nil, fmt.Errorf("failed to load document %s: %w", req.DocumentID, err)
	}
	var doc models.Document
	if err := snapshot.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", req.DocumentID, err)
	}

	// Idempotency: a previous attempt may already have produced the artifact.
	if existing, size, err := f.findExistingArtifact(ctx, req.DocumentID); err != nil {
		logCtx.Error("Failed to list existing artifacts", "error", err)
		return nil, err
	} else if existing != "" {
		logCtx.Info("Artifact already exists. Skipping conversion.", "gcsObject", existing)
		return &models.DocumentConverterResponse{
			Status:      "success",
			ArtifactURI: fmt.Sprintf("gs://%s/%s", f.config.ArtifactBucket, existing),
			Filename:    existing[strings.LastIndex(existing, "/")+1:],
			SizeBytes:   size,
		}, nil
	}

	sourceURI := req.SourceURI
	if sourceURI == "" {
		sourceURI = doc.SourceURI
	}
	data, mimeType, err := f.readSource(ctx, sourceURI)
	if err != nil {
		logCtx.Error("Failed to download source object", "error", err, "sourceUri", sourceURI)
		return nil, err
	}

	examID := req.ExamID
	if examID == "" {
		examID = doc.ExamID
	}
	rule := f.exams.Profile(examID).RuleFor(doc.DocumentType)

	stem := strings.TrimSuffix(doc.SuggestedFilename, "."+extOf(doc.SuggestedFilename))
	output, err := convert.Convert(convert.Input{
		Filename: doc.OriginalFilename,
		Data:     data,
		MIMEType: mimeType,
	}, rule, stem)
	if err != nil {
		logCtx.Error("Conversion failed", "error", err)
		if updErr := f.markFailed(ctx, docRef, err); updErr != nil {
			logCtx.Error("CRITICAL: Failed to record FAILED status", "updateError", updErr)
		}
		return nil, err
	}

	objectName := fmt.Sprintf("%s/%s", req.DocumentID, output.Filename)
	bucketHandle := f.storageClient.Bucket(f.config.ArtifactBucket)
	if err := gcp.SaveToGCSAtomically(ctx, bucketHandle, objectName, output.Data, output.MIMEType); err != nil {
		logCtx.Error("Failed to save artifact to GCS", "error", err, "object", objectName)
		return nil, err
	}

	artifactURI := fmt.Sprintf("gs://%s/%s", f.config.ArtifactBucket, objectName)
	updates := []firestore.Update{
		{Path: "artifactUri", Value: artifactURI},
		{Path: "artifactSizeBytes", Value: output.Size},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		logCtx.Error("Failed to record artifact on document", "error", err)
		return nil, fmt.Errorf("failed to record artifact: %w", err)
	}

	logCtx.Info("Conversion complete.", "artifactUri", artifactURI, "sizeBytes", output.Size)
	return &models.DocumentConverterResponse{
		Status:      "success",
		ArtifactURI: artifactURI,
		Filename:    output.Filename,
		SizeBytes:   output.Size,
	}, nil
}

// findExistingArtifact looks for any object already stored under the
// document's prefix in the artifact bucket.
func (f *ConverterFunction) findExistingArtifact(ctx context.Context, documentID string) (string, int64, error) {
	query := &storage.Query{Prefix: documentID + "/"}
	it := f.storageClient.Bucket(f.config.ArtifactBucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return "", 0, nil
		}
		if err != nil {
			return "", 0, fmt.Errorf("failed to list artifacts for %s: %w", documentID, err)
		}
		return attrs.Name, attrs.Size, nil
	}
}

func (f *ConverterFunction) readSource(ctx context.Context, sourceURI string) ([]byte, string, error) {
	bucket, object, err := gcp.ParseGCSUri(sourceURI)
	if err != nil {
		return nil, "", err
	}
	reader, err := f.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get GCS object reader for %s: %w", sourceURI, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", sourceURI, err)
	}
	return data, reader.Attrs.ContentType, nil
}

func (f *ConverterFunction) markFailed(ctx context.Context, docRef *firestore.DocumentRef, convErr error) error {
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "status", Value: models.StatusFailed},
		{Path: "errorDetails", Value: convErr.Error()},
	})
	return err
}

func extOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return ""
}
