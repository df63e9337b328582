package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/examprep/examdocflow/internal/classify"
	"github.com/examprep/examdocflow/internal/convert"
	"github.com/examprep/examdocflow/internal/exam"
	"github.com/examprep/examdocflow/internal/gcp"
	"github.com/examprep/examdocflow/internal/models"
)

type IngestorConfig struct {
	ProjectID        string
	ArtifactBucket   string
	ArchiveBucket    string
	CollectionName   string
	ExamConfigPath   string
	WorkflowID       string
	WorkflowLocation string
}

// IngestorFunction runs the whole per-document pipeline on upload: classify
// the filename, record the document, convert it to the exam's submission
// rule, store the artifact, and hand off to the verification workflow.
type IngestorFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	classifier       *classify.Classifier
	exams            *exam.Registry
	config           IngestorConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func NewIngestor(ctx context.Context) (*IngestorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := IngestorConfig{
		ProjectID:        projectID,
		ArtifactBucket:   gcp.GetEnv("ARTIFACT_BUCKET", ""),
		ArchiveBucket:    gcp.GetEnv("ARCHIVE_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		ExamConfigPath:   gcp.GetEnv("EXAM_CONFIG_PATH", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", "document-verification-orchestrator"),
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

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}

	f := &IngestorFunction{
		storageClient:    storageClient,
		firestoreClient:  firestoreClient,
		executionsClient: executionsClient,
		classifier:       classify.New(),
		exams:            exams,
		config:           config,
	}
	slog.Info("Upload ingestor initialized.", "workflowId", config.WorkflowID)
	return f, nil
}

// Process handles one uploaded object. Permanent conversion failures are
// recorded as FAILED on the document and the event is acknowledged cleanly,
// so the remaining uploads of a batch keep flowing; infrastructure failures
// are returned so the event is retried.
func (f *IngestorFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new upload.")

	data, err := f.readObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source object", "error", err)
		return err
	}

	hash := sha256.Sum256(data)
	fileHash := hex.EncodeToString(hash[:])
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, docID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", docID)
		return nil // Clean exit for a duplicate
	}

	examID, filename := splitObjectName(e.Name)
	result := f.classifier.Classify(filename)
	logCtx.Info("Filename classified.",
		"documentType", result.DocumentType,
		"educationLevel", result.EducationLevel,
		"confidence", result.Confidence,
	)

	docRef, err := f.createInitialDocument(ctx, fileHash, examID, e, result)
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created master document in Firestore.")

	rule := f.exams.Profile(examID).RuleFor(result.DocumentType)
	output, err := f.convertDocument(ctx, logCtx, docRef, filename, data, rule, result)
	if err != nil {
		if isPermanentConversionError(err) {
			return nil // Recorded as FAILED; do not retry the event.
		}
		return err
	}

	artifactURI, err := f.storeArtifact(ctx, logCtx, docRef, e.Name, data, output)
	if err != nil {
		return err
	}

	executionID := uuid.NewString()
	if err := f.triggerWorkflow(ctx, logCtx, docRef, artifactURI, executionID); err != nil {
		return err
	}

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusVerifying},
		{Path: "artifactUri", Value: artifactURI},
		{Path: "artifactSizeBytes", Value: output.Size},
		{Path: "workflowExecutionId", Value: executionID},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to record artifact on document", err)
	}

	logCtx.Info("Hand-off to verification workflow complete.", "artifactUri", artifactURI)
	return nil
}

// splitObjectName resolves the exam ID from the object path. Uploads land
// under "<examID>/<filename>"; a bare filename gets the default profile.
func splitObjectName(objectName string) (examID, filename string) {
	dir, file := path.Split(objectName)
	examID = strings.Trim(dir, "/")
	if idx := strings.Index(examID, "/"); idx >= 0 {
		examID = examID[:idx]
	}
	return examID, file
}

func (f *IngestorFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *IngestorFunction) createInitialDocument(ctx context.Context, fileHash, examID string, e GCSEvent, result classify.Result) (*firestore.DocumentRef, error) {
	newDoc := models.Document{
		FileHash:          fileHash,
		OriginalFilename:  result.OriginalName,
		SuggestedFilename: result.SuggestedName,
		DocumentType:      result.DocumentType,
		EducationLevel:    result.EducationLevel,
		Confidence:        result.Confidence,
		ExamID:            examID,
		Status:            models.StatusAnalyzing,
		SourceURI:         fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name),
		CreatedAt:         time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to create master document: %w", err)
	}
	return docRef, nil
}

func (f *IngestorFunction) convertDocument(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, filename string, data []byte, rule exam.DocumentRule, result classify.Result) (*convert.Output, error) {
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "status", Value: models.StatusConverting}}); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to CONVERTING", err)
	}

	output, err := convert.Convert(convert.Input{Filename: filename, Data: data}, rule, suggestedStem(result))
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to convert document", err)
	}
	logCtx.Info("Document converted.", "targetFormat", rule.Format, "sizeBytes", output.Size)
	return output, nil
}

// suggestedStem strips the extension off the classifier's suggested name;
// the converter appends the target format's own extension.
func suggestedStem(result classify.Result) string {
	name := result.SuggestedName
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

// storeArtifact uploads the converted artifact and archives the original
// side by side. Both uploads retry independently.
func (f *IngestorFunction) storeArtifact(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, sourceName string, original []byte, output *convert.Output) (string, error) {
	artifactObject := fmt.Sprintf("%s/%s", docRef.ID, output.Filename)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	eg.Go(func() error {
		return f.uploadWithRetry(gctx, f.config.ArtifactBucket, artifactObject, output.Data, output.MIMEType)
	})
	if f.config.ArchiveBucket != "" {
		archiveObject := fmt.Sprintf("%s/%s", docRef.ID, path.Base(sourceName))
		eg.Go(func() error {
			return f.uploadWithRetry(gctx, f.config.ArchiveBucket, archiveObject, original, "")
		})
	}
	if err := eg.Wait(); err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to store artifact", err)
	}

	artifactURI := fmt.Sprintf("gs://%s/%s", f.config.ArtifactBucket, artifactObject)
	logCtx.Info("Artifact stored.", "artifactUri", artifactURI)
	return artifactURI, nil
}

func (f *IngestorFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, artifactURI, executionID string) error {
	logCtx.Info("Triggering verification workflow.")
	workflowPayload := map[string]interface{}{
		"documentId":  docRef.ID,
		"artifactUri": artifactURI,
		"executionId": executionID,
	}
	payloadBytes, err := json.Marshal(workflowPayload)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	_, err = f.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	return nil
}

func (f *IngestorFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	// Wrap rather than flatten so callers can still test for the conversion
	// sentinels with errors.Is.
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *IngestorFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func (f *IngestorFunction) readObject(ctx context.Context, bucket, object string) ([]byte, error) {
	reader, err := f.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object: %w", err)
	}
	return data, nil
}

func (f *IngestorFunction) uploadWithRetry(ctx context.Context, bucket, destObject string, data []byte, contentType string) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()
			return gcp.SaveToGCSAtomically(writeCtx, f.storageClient.Bucket(bucket), destObject, data, contentType)
		}()

		if err == nil {
			return nil // Success!
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

// isPermanentConversionError reports whether retrying the upload event could
// ever succeed. Size and format failures are properties of the file itself.
func isPermanentConversionError(err error) bool {
	return errors.Is(err, convert.ErrSizeLimitExceeded) ||
		errors.Is(err, convert.ErrUnsupportedConversion) ||
		errors.Is(err, convert.ErrDecodeFailed)
}
