package session

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/vibe-virtuoso/backend/internal/landmark"
)

// ErrBadFrame wraps every reason a frame payload could not be decoded.
var ErrBadFrame = errors.New("bad frame")

// DecodeFrame decodes a data-URI ("data:image/jpeg;base64,...") or bare
// base64 image payload. Only the image header is parsed; frames larger
// than maxPixels are rejected. A maxPixels of zero means no limit.
func DecodeFrame(payload string, maxPixels int) (landmark.Frame, error) {
	if payload == "" {
		return landmark.Frame{}, fmt.Errorf("%w: empty image", ErrBadFrame)
	}

	encoded := payload
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return landmark.Frame{}, fmt.Errorf("%w: data URI without payload", ErrBadFrame)
		}
		if !strings.HasSuffix(header, ";base64") {
			return landmark.Frame{}, fmt.Errorf("%w: data URI is not base64", ErrBadFrame)
		}
		encoded = body
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return landmark.Frame{}, fmt.Errorf("%w: base64: %v", ErrBadFrame, err)
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return landmark.Frame{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return landmark.Frame{}, fmt.Errorf("%w: empty %dx%d image", ErrBadFrame, cfg.Width, cfg.Height)
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return landmark.Frame{}, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrBadFrame, cfg.Width, cfg.Height, maxPixels)
	}
	return landmark.Frame{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
