package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/examprep/examdocflow/internal/services"
)

var (
	ingestorInstance *services.IngestorFunction
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework routes GCS finalize
	// events here.
	functions.CloudEvent("IngestUpload", ingestUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// ingestUpload is the Cloud Function entry point for new uploads.
func ingestUpload(ctx context.Context, e cloudevents.Event) error {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		ingestorInstance, initErr = services.NewIngestor(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Delegate the actual processing to the pipeline. Errors are already
	// logged with context; returning one marks the invocation as failed so
	// the event is redelivered.
	return ingestorInstance.Process(ctx, gcsEvent)
}
