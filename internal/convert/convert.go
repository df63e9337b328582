// Package convert re-encodes uploaded documents so they satisfy an exam's
// submission rule: target format, maximum byte size, and (for images) a
// maximum pixel width. A source that already satisfies its rule passes
// through byte-identical; everything else is transcoded with pdfcpu and the
// standard image codecs.
package convert

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/examprep/examdocflow/internal/exam"
)

// Sentinel errors. The error text doubles as a stable machine-readable code
// recorded on failed document records.
var (
	ErrUnsupportedConversion = errors.New("unsupported_conversion")
	ErrSizeLimitExceeded     = errors.New("size_limit_exceeded")
	ErrDecodeFailed          = errors.New("decode_failed")
)

// Input is one source document held in memory. MIMEType may be empty, in
// which case the content is sniffed.
type Input struct {
	Filename string
	Data     []byte
	MIMEType string
}

// Output is a converted artifact ready for upload.
type Output struct {
	Filename string
	Data     []byte
	MIMEType string
	Size     int64
}

var targetMIMETypes = map[string]string{
	exam.FormatPDF:  "application/pdf",
	exam.FormatJPEG: "image/jpeg",
	exam.FormatPNG:  "image/png",
}

// Convert produces an artifact satisfying rule from in. The output filename
// is stem plus the target format's extension; stem is normally the
// classifier's suggested name without its extension.
//
// Failures are per-document and never partial: on error the source is left
// untouched and no Output is returned.
func Convert(in Input, rule exam.DocumentRule, stem string) (*Output, error) {
	targetMIME, ok := targetMIMETypes[rule.Format]
	if !ok {
		return nil, fmt.Errorf("target format %q: %w", rule.Format, ErrUnsupportedConversion)
	}

	sourceMIME := in.MIMEType
	if sourceMIME == "" {
		sourceMIME = http.DetectContentType(in.Data)
	}
	sourceMIME = normalizeMIME(sourceMIME)

	var (
		data []byte
		err  error
	)
	switch rule.Format {
	case exam.FormatPDF:
		data, err = toPDF(in.Data, sourceMIME, rule)
	case exam.FormatJPEG, exam.FormatPNG:
		data, err = toImage(in.Data, sourceMIME, rule)
	}
	if err != nil {
		return nil, fmt.Errorf("convert %s to %s: %w", in.Filename, rule.Format, err)
	}

	if int64(len(data)) > rule.MaxBytes {
		return nil, fmt.Errorf("converted size %d exceeds limit %d: %w",
			len(data), rule.MaxBytes, ErrSizeLimitExceeded)
	}

	return &Output{
		Filename: stem + "." + rule.Format,
		Data:     data,
		MIMEType: targetMIME,
		Size:     int64(len(data)),
	}, nil
}

// normalizeMIME strips parameters and maps aliases ("image/jpg") onto their
// canonical form.
func normalizeMIME(mime string) string {
	mime = strings.TrimSpace(strings.ToLower(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if mime == "image/jpg" {
		return "image/jpeg"
	}
	return mime
}
