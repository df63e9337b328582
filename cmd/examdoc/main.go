// Command examdoc classifies and converts exam documents in a local
// directory, without any cloud dependencies. It is the offline counterpart
// of the upload pipeline: the same classifier, the same exam profiles, the
// same converter.
//
// Usage:
//
//	examdoc [-exam id] [-config exams.yaml] [-apply] [-out dir] <dir>
//
// Without -apply it only prints the suggested names; with -apply it writes
// converted artifacts to -out (default: alongside the originals).
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/examprep/examdocflow/internal/classify"
	"github.com/examprep/examdocflow/internal/convert"
	"github.com/examprep/examdocflow/internal/exam"
)

func main() {
	examID := flag.String("exam", "", "exam profile id (empty uses the default rule for every document)")
	configPath := flag.String("config", "", "path to an exam profile YAML (default: built-in registry)")
	apply := flag.Bool("apply", false, "convert files and write artifacts instead of only printing suggestions")
	outDir := flag.String("out", "", "output directory for converted artifacts (default: the input directory)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: examdoc [-exam id] [-config exams.yaml] [-apply] [-out dir] <dir>")
		os.Exit(2)
	}
	dir := flag.Arg(0)

	exams := exam.DefaultRegistry()
	if *configPath != "" {
		loaded, err := exam.Load(*configPath)
		if err != nil {
			slog.Error("Failed to load exam config", "error", err)
			os.Exit(1)
		}
		exams = loaded
	}
	profile := exams.Profile(*examID)
	if *examID != "" && profile == nil {
		slog.Error("Unknown exam id", "examId", *examID)
		os.Exit(1)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("Failed to read directory", "dir", dir, "error", err)
		os.Exit(1)
	}
	target := *outDir
	if target == "" {
		target = dir
	}

	classifier := classify.New()
	failed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		result := classifier.Classify(name)
		fmt.Printf("%-40s -> %-30s type=%-11s level=%-15s confidence=%.2f\n",
			name, result.SuggestedName, result.DocumentType, result.EducationLevel, result.Confidence)

		if !*apply {
			continue
		}
		// Per-file failures are reported and the loop moves on; one bad scan
		// must not block the rest of the batch.
		if err := convertFile(dir, target, name, profile, result); err != nil {
			slog.Error("Conversion failed", "file", name, "error", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func convertFile(dir, outDir, name string, profile *exam.Profile, result classify.Result) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	rule := profile.RuleFor(result.DocumentType)
	stem := strings.TrimSuffix(result.SuggestedName, filepath.Ext(result.SuggestedName))
	output, err := convert.Convert(convert.Input{Filename: name, Data: data}, rule, stem)
	if err != nil {
		return err
	}

	outPath := filepath.Join(outDir, output.Filename)
	if err := os.WriteFile(outPath, output.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	slog.Info("Artifact written.", "file", name, "artifact", outPath, "sizeBytes", output.Size)
	return nil
}
