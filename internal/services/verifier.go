package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/vertexai/genai"

	"github.com/examprep/examdocflow/internal/gcp"
	"github.com/examprep/examdocflow/internal/models"
)

// VerifierConfig holds configuration for the document-verifier service.
type VerifierConfig struct {
	ProjectID      string
	VertexAIRegion string
	CollectionName string
}

// VerifierFunction cross-checks a converted artifact against the document
// type its filename classified as. The check is advisory: a mismatch is
// recorded on the document for a human to review, never an automatic
// failure.
type VerifierFunction struct {
	firestoreClient *firestore.Client
	vertexClient    *gcp.VertexClient
	config          VerifierConfig
}

// NewVerifier creates a new VerifierFunction instance.
func NewVerifier(ctx context.Context) (*VerifierFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := VerifierConfig{
		ProjectID:      projectID,
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	return &VerifierFunction{
		firestoreClient: firestoreClient,
		vertexClient:    vertexClient,
		config:          config,
	}, nil
}

// verifierVerdict mirrors the JSON object the model is instructed to return.
type verifierVerdict struct {
	Category  string `json:"category"`
	Rationale string `json:"rationale"`
}

// Process inspects one artifact and records the verdict on its document.
func (f *VerifierFunction) Process(ctx context.Context, req *models.DocumentVerifierRequest) (*models.DocumentVerifierResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "executionId", req.ExecutionID)
	logCtx.Info("Starting document verification.")

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

	artifactURI := req.ArtifactURI
	if artifactURI == "" {
		artifactURI = doc.ArtifactURI
	}
	if artifactURI == "" {
		return nil, fmt.Errorf("document %s has no artifact to verify", req.DocumentID)
	}

	model := f.vertexClient.VerifierModel
	prompt := genai.Text(gcp.VerifierUserPrompt)
	filePart := genai.FileData{
		MIMEType: mimeTypeForURI(artifactURI),
		FileURI:  artifactURI,
	}

	geminiResp, err := model.GenerateContent(ctx, filePart, prompt)
	if err != nil {
		logCtx.Error("Call to Vertex AI for verification failed", "error", err)
		return nil, fmt.Errorf("failed to generate verification verdict from gemini: %w", err)
	}

	raw := extractResponseText(geminiResp)

	// Sanity check for LLM refusal. A refusal must fail the step rather than
	// be recorded as a verdict.
	refusalPhrases := []string{
		"i am unable to",
		"i cannot fulfill",
		"i cannot answer",
		"as a large language model",
	}
	lowerRaw := strings.ToLower(raw)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowerRaw, phrase) {
			err := fmt.Errorf("gemini response indicates refusal to verify document")
			logCtx.Error("LLM refusal detected", "error", err, "response", raw)
			return nil, err
		}
	}

	var verdict verifierVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		logCtx.Error("Verdict was not valid JSON", "error", err, "response", raw)
		return nil, fmt.Errorf("failed to parse verifier verdict: %w", err)
	}

	match := verdict.Category == doc.DocumentType
	verdictSummary := fmt.Sprintf("observed=%s expected=%s match=%t", verdict.Category, doc.DocumentType, match)

	updates := []firestore.Update{
		{Path: "verificationResult", Value: verdictSummary},
		{Path: "status", Value: models.StatusCompleted},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		logCtx.Error("Failed to record verification verdict", "error", err)
		return nil, fmt.Errorf("failed to record verdict: %w", err)
	}

	logCtx.Info("Verification complete.", "observedType", verdict.Category, "match", match)
	return &models.DocumentVerifierResponse{
		Status:       "success",
		Match:        match,
		ObservedType: verdict.Category,
		Rationale:    verdict.Rationale,
	}, nil
}

// extractResponseText concatenates the text parts of the model response.
func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			builder.WriteString(string(txt))
		}
	}

	contentStr := strings.TrimSpace(builder.String())
	contentStr = strings.TrimPrefix(contentStr, "```json")
	contentStr = strings.TrimPrefix(contentStr, "```")
	contentStr = strings.TrimSuffix(contentStr, "```")
	return strings.TrimSpace(contentStr)
}

// mimeTypeForURI maps an artifact's extension to the MIME type Gemini needs
// for FileData parts. Artifacts only ever have the three target formats.
func mimeTypeForURI(uri string) string {
	switch {
	case strings.HasSuffix(uri, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(uri, ".png"):
		return "image/png"
	default:
		return "image/jpeg"
	}
}
