package models

import "time"

// Document status values. One writer (the workflow driver) moves a record
// forward; any stage may set StatusFailed with ErrorDetails and the batch
// continues with its remaining documents.
const (
	StatusReceived   = "RECEIVED"
	StatusAnalyzing  = "ANALYZING"
	StatusConverting = "CONVERTING"
	StatusVerifying  = "VERIFYING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Document is the master record for one uploaded exam document in Firestore.
// It carries the classification outcome, the conversion artifact, and the
// overall processing status.
type Document struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	OriginalFilename    string    `firestore:"originalFilename,omitempty"`
	SuggestedFilename   string    `firestore:"suggestedFilename,omitempty"`
	DocumentType        string    `firestore:"documentType,omitempty"`
	EducationLevel      string    `firestore:"educationLevel,omitempty"`
	Confidence          float64   `firestore:"confidence,omitempty"`
	ExamID              string    `firestore:"examId,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	SourceURI           string    `firestore:"sourceUri,omitempty"`
	ArtifactURI         string    `firestore:"artifactUri,omitempty"`
	ArtifactSizeBytes   int64     `firestore:"artifactSizeBytes,omitempty"`
	VerificationResult  string    `firestore:"verificationResult,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}
