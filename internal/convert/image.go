package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"

	"github.com/examprep/examdocflow/internal/exam"
)

// JPEG quality ladder walked when an encoded image is over the size limit.
var jpegQualities = []int{85, 75, 65, 50, 35, 20}

// toImage converts an image source to the rule's JPEG or PNG target.
// PDF sources are rejected: rasterizing a PDF page is out of scope here and
// the workflow reports it as an unsupported conversion.
func toImage(data []byte, sourceMIME string, rule exam.DocumentRule) ([]byte, error) {
	switch sourceMIME {
	case "image/jpeg", "image/png":
	default:
		return nil, fmt.Errorf("source %s: %w", sourceMIME, ErrUnsupportedConversion)
	}

	// Passthrough when the bytes already satisfy the rule. DecodeConfig reads
	// only the header, so the width check stays cheap.
	if sourceMIME == targetMIMETypes[rule.Format] && int64(len(data)) <= rule.MaxBytes {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		if rule.MaxWidth <= 0 || cfg.Width <= rule.MaxWidth {
			return data, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	img = downscale(img, rule.MaxWidth)

	if rule.Format == exam.FormatPNG {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
		if int64(buf.Len()) > rule.MaxBytes {
			return nil, fmt.Errorf("png output %d bytes over limit %d: %w",
				buf.Len(), rule.MaxBytes, ErrSizeLimitExceeded)
		}
		return buf.Bytes(), nil
	}

	return encodeJPEGWithinLimit(img, rule.MaxBytes)
}

// downscale resizes img to maxWidth preserving aspect ratio. Images already
// narrow enough (or an unset limit) are returned unchanged.
func downscale(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	return resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
}

// encodeJPEGWithinLimit walks the quality ladder until the encoded size fits
// maxBytes. JPEG quality below the last rung degrades documents beyond
// legibility, so past that point the conversion fails instead.
func encodeJPEGWithinLimit(img image.Image, maxBytes int64) ([]byte, error) {
	var buf bytes.Buffer
	for _, quality := range jpegQualities {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
		if int64(buf.Len()) <= maxBytes {
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("jpeg output %d bytes over limit %d at minimum quality: %w",
		buf.Len(), maxBytes, ErrSizeLimitExceeded)
}
