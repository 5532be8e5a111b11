// Package artwork converts arbitrary cover image input into a compliant,
// size-bounded JPEG suitable for upload.
//
// Input can be raw image bytes, a data URI, or a remote URL. The output is
// always a square JPEG produced by a crop-to-center fit, re-encoded at
// descending quality until it fits the byte budget. Normalization is
// deterministic for identical input and budget.
package artwork

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/psync/internal/shared"
	"golang.org/x/image/draw"
)

const (
	// targetDimension is the square edge length of normalized covers.
	targetDimension = 640

	qualityStart = 90
	qualityStep  = 10
	qualityFloor = 30

	// maxFetchBytes caps how much of a remote image is read before decoding.
	maxFetchBytes = 16 << 20
)

// Normalizer produces size-bounded square JPEGs from arbitrary image input.
type Normalizer struct {
	budget     int
	httpClient *http.Client
}

// NewNormalizer creates a normalizer with the given byte budget. A zero or
// negative budget falls back to 256KB.
func NewNormalizer(budget int, httpClient *http.Client) *Normalizer {
	if budget <= 0 {
		budget = 256 << 10
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Normalizer{budget: budget, httpClient: httpClient}
}

// Budget returns the hard byte budget for normalized output.
func (n *Normalizer) Budget() int { return n.budget }

// Normalize resolves the input to image bytes and produces a compliant JPEG.
//
// The input is treated as a URL when it starts with http:// or https://, as a
// data URI when it starts with data:, and as base64-encoded bytes otherwise.
// For raw bytes use [Normalizer.NormalizeBytes] directly.
func (n *Normalizer) Normalize(ctx context.Context, input string) ([]byte, error) {
	input = strings.TrimSpace(input)

	switch {
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		raw, err := n.fetch(ctx, input)
		if err != nil {
			return nil, err
		}
		return n.NormalizeBytes(raw)
	case strings.HasPrefix(input, "data:"):
		raw, err := decodeDataURI(input)
		if err != nil {
			return nil, err
		}
		return n.NormalizeBytes(raw)
	default:
		raw, err := base64.StdEncoding.DecodeString(input)
		if err != nil {
			return nil, fmt.Errorf("%w: input is not a URL, data URI, or base64 image", shared.ErrUnprocessableImage)
		}
		return n.NormalizeBytes(raw)
	}
}

// NormalizeBytes decodes raw image bytes, crops to a centered square, scales
// to the target dimension, and re-encodes as JPEG under the byte budget.
//
// Returns [shared.ErrUnprocessableImage] when the input cannot be decoded or
// when the minimum quality floor still produces an over-budget artifact. An
// over-budget result is never returned.
func (n *Normalizer) NormalizeBytes(raw []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnprocessableImage, err)
	}

	squared := cropCenterSquare(src)

	scaled := image.NewRGBA(image.Rect(0, 0, targetDimension, targetDimension))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), squared, squared.Bounds(), draw.Over, nil)

	for quality := qualityStart; quality >= qualityFloor; quality -= qualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrUnprocessableImage, err)
		}
		if buf.Len() <= n.budget {
			return buf.Bytes(), nil
		}
	}

	return nil, fmt.Errorf("%w: %d byte budget unreachable at minimum quality", shared.ErrUnprocessableImage, n.budget)
}

// cropCenterSquare returns the largest centered square region of the image.
// The aspect ratio is never stretched.
func cropCenterSquare(src image.Image) image.Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == height {
		return src
	}

	edge := width
	if height < edge {
		edge = height
	}

	x0 := bounds.Min.X + (width-edge)/2
	y0 := bounds.Min.Y + (height-edge)/2
	rect := image.Rect(x0, y0, x0+edge, y0+edge)

	cropped := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.Draw(cropped, cropped.Bounds(), src, rect.Min, draw.Src)
	return cropped
}

// fetch downloads the image at url, capped at maxFetchBytes.
func (n *Normalizer) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnprocessableImage, err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image fetch returned status %d", shared.ErrUnprocessableImage, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return raw, nil
}

// decodeDataURI extracts the payload from a data: URI. Only base64 payloads
// are supported.
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: malformed data URI", shared.ErrUnprocessableImage)
	}

	meta := uri[len("data:"):comma]
	payload := uri[comma+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: data URI payload must be base64", shared.ErrUnprocessableImage)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnprocessableImage, err)
	}

	return raw, nil
}
