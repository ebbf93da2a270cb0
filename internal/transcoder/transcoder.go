// Package transcoder decodes uploaded images, clamps them to a
// size-dependent maximum width, and re-encodes them as JPEG.
package transcoder

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ContentType is the MIME type of every transcoder output.
const ContentType = "image/jpeg"

// hugeSourcePixels is the pixel count above which resampling switches from
// Lanczos to the much cheaper Box filter.
const hugeSourcePixels = 30_000_000

// Policy is the output constraint chosen for one upload: larger payloads get
// a tighter width and lower JPEG quality to bound memory and output size.
type Policy struct {
	MaxWidth int
	Quality  int
}

// PolicyFor picks the tier for a payload of the given byte length.
func PolicyFor(payloadSize int64) Policy {
	switch {
	case payloadSize <= 4<<20:
		return Policy{MaxWidth: 1920, Quality: 80}
	case payloadSize <= 10<<20:
		return Policy{MaxWidth: 1920, Quality: 75}
	case payloadSize <= 20<<20:
		return Policy{MaxWidth: 1600, Quality: 70}
	default:
		return Policy{MaxWidth: 1280, Quality: 65}
	}
}

// Result is a finished transcode: JPEG bytes plus the stored dimensions.
type Result struct {
	Data    []byte
	Width   int
	Height  int
	Quality int
}

// Transcode decodes payload, downsamples it if it is wider than the policy
// allows (aspect ratio preserved), and re-encodes it as JPEG.
func Transcode(payload []byte) (*Result, error) {
	policy := PolicyFor(int64(len(payload)))

	src, err := imaging.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	var out image.Image = src
	if srcWidth > policy.MaxWidth {
		filter := imaging.Lanczos
		if srcWidth*srcHeight > hugeSourcePixels {
			filter = imaging.Box
		}
		// Height 0 derives the proportional height, rounded to nearest.
		out = imaging.Resize(src, policy.MaxWidth, 0, filter)
		// Drop the full-size decode before encoding so peak memory holds
		// at most one large buffer per request.
		src = nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(policy.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	outBounds := out.Bounds()
	return &Result{
		Data:    buf.Bytes(),
		Width:   outBounds.Dx(),
		Height:  outBounds.Dy(),
		Quality: policy.Quality,
	}, nil
}
