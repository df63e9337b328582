package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Verifier Model Prompts ---
const VerifierSystemPrompt = "You are a document inspection tool for exam application portals. Given a single uploaded document, you decide which coarse category it belongs to. You must output your response as a valid JSON object."
const VerifierUserPrompt = `Inspect the attached document and decide its category.

Allowed categories, choose exactly one:
marksheet, certificate, photo, signature, identity, category, experience, unknown

Guidance:
- "marksheet": a grade report, transcript, or statement of marks.
- "certificate": a degree, diploma, or qualification certificate.
- "photo": a passport-style photograph of a person.
- "signature": a handwritten signature on a plain background.
- "identity": a government identity document (Aadhaar, PAN, passport, voter ID, driving license).
- "category": a caste, reservation, or income certificate.
- "experience": an employment or work experience certificate.
- "unknown": none of the above can be determined.

Respond with a single JSON object with exactly two keys:
  "category": one of the allowed category strings.
  "rationale": one short sentence explaining the decision.

Do not include any text before or after the JSON object.`

// VertexClient holds the pre-configured generative model used to cross-check
// converted artifacts against their filename classification.
type VertexClient struct {
	VerifierModel *genai.GenerativeModel
	baseClient    *genai.Client
}

// NewVertexClient creates a new client holding the verifier model.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	verifierModel := baseClient.GenerativeModel("gemini-1.5-flash")
	verifierModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(VerifierSystemPrompt)},
	}
	verifierModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output so the response parses without scraping.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	verifierModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		VerifierModel: verifierModel,
		baseClient:    baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
