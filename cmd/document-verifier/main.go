package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/examprep/examdocflow/internal/models"
	"github.com/examprep/examdocflow/internal/services"
)

var (
	verifierInstance *services.VerifierFunction
	once             sync.Once
	initErr          error
)

func init() {
	functions.HTTP("HandleVerifyDocument", handleVerifyDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// handleVerifyDocument is the HTTP handler.
func handleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		verifierInstance, initErr = services.NewVerifier(context.Background())
	})
	if initErr != nil {
		log.Printf("CRITICAL: Verifier initialization failed: %v", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.DocumentVerifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Could not decode request body: %v", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := verifierInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside the Process method.
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Printf("ERROR: Failed to write response: %v", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
