package models

import "github.com/examprep/examdocflow/internal/classify"

// These structs define the JSON payloads for HTTP requests and responses
// between the Cloud Workflow and the worker Cloud Functions.

// FilenameAnalyzerRequest is the input for the filename-analyzer function.
// Either Filename or Filenames must be set; Filenames takes precedence.
type FilenameAnalyzerRequest struct {
	Filename    string   `json:"filename,omitempty"`
	Filenames   []string `json:"filenames,omitempty"`
	ExecutionID string   `json:"executionId,omitempty"`
}

// FilenameAnalyzerResponse is the output of the filename-analyzer function.
type FilenameAnalyzerResponse struct {
	Status  string            `json:"status"`
	Results []classify.Result `json:"results"`
}

// DocumentConverterRequest is the input for the document-converter function.
type DocumentConverterRequest struct {
	DocumentID  string `json:"documentId"`
	SourceURI   string `json:"sourceUri"`
	ExamID      string `json:"examId"`
	ExecutionID string `json:"executionId"`
}

// DocumentConverterResponse is the output of the document-converter function.
type DocumentConverterResponse struct {
	Status      string `json:"status"`
	ArtifactURI string `json:"artifactUri"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// DocumentVerifierRequest is the input for the document-verifier function.
type DocumentVerifierRequest struct {
	DocumentID  string `json:"documentId"`
	ArtifactURI string `json:"artifactUri"`
	ExecutionID string `json:"executionId"`
}

// DocumentVerifierResponse is the output of the document-verifier function.
// Verification is advisory: a mismatch never fails the workflow by itself.
type DocumentVerifierResponse struct {
	Status       string `json:"status"`
	Match        bool   `json:"match"`
	ObservedType string `json:"observedType"`
	Rationale    string `json:"rationale"`
}
