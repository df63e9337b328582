package convert

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/examprep/examdocflow/internal/exam"
)

// toPDF converts a source document to PDF. PDFs are validated and optimized
// in place; JPEG and PNG sources are embedded as a single-page PDF.
func toPDF(data []byte, sourceMIME string, rule exam.DocumentRule) ([]byte, error) {
	switch sourceMIME {
	case "application/pdf":
		// Scanned marksheets routinely shrink well below portal limits when
		// optimized, so PDFs are always rewritten rather than passed through.
		out, err := optimizePDF(data)
		if err != nil {
			return nil, err
		}
		// A malformed optimizer result never beats a valid original.
		if int64(len(out)) > rule.MaxBytes && int64(len(data)) <= rule.MaxBytes {
			return data, nil
		}
		return out, nil
	case "image/jpeg", "image/png":
		return imageToPDF(data)
	default:
		return nil, fmt.Errorf("source %s: %w", sourceMIME, ErrUnsupportedConversion)
	}
}

// optimizePDF validates and rewrites a PDF with relaxed validation, the same
// settings used for uploaded scans of unknown provenance.
func optimizePDF(data []byte) ([]byte, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &buf, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return buf.Bytes(), nil
}

// imageToPDF embeds an image as a single full-size page.
func imageToPDF(data []byte) ([]byte, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	var buf bytes.Buffer
	imgs := []io.Reader{bytes.NewReader(data)}
	if err := api.ImportImages(nil, &buf, imgs, nil, cfg); err != nil {
		return nil, fmt.Errorf("failed to embed image in pdf: %w", err)
	}
	return buf.Bytes(), nil
}
