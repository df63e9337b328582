package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/examprep/examdocflow/internal/models"
	"github.com/examprep/examdocflow/internal/services"
)

var analyzerInstance = services.NewFilenameAnalyzer()

func init() {
	functions.HTTP("HandleAnalyzeFilename", handleAnalyzeFilename)
}

// main is required by the Go Functions Framework.
func main() {}

// handleAnalyzeFilename is the HTTP handler. The analyzer has no cloud
// dependencies, so unlike the other workers there is nothing to lazily
// initialize.
func handleAnalyzeFilename(w http.ResponseWriter, r *http.Request) {
	var req models.FilenameAnalyzerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Could not decode request body: %v", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := analyzerInstance.Process(r.Context(), &req)
	if err != nil {
		// The only Process error is an empty request.
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Printf("ERROR: Failed to write response: %v", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
