package image

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const DefaultMediaType = "image/png"

var ErrInvalidImage = errors.New("invalid image payload")

// Encoded is a binary image paired with its media type. Values are treated as
// immutable once built; callers that need to modify Data must copy it.
type Encoded struct {
	Data      []byte `json:"-"`
	MediaType string `json:"media_type"`
}

// Sniff builds an Encoded from raw bytes, detecting the media type from
// content.
func Sniff(data []byte) Encoded {
	return Encoded{Data: data, MediaType: http.DetectContentType(data)}
}

// ParseDataURI accepts "data:<mime>;base64,<payload>" or a bare base64 payload,
// in which case the media type falls back to image/png.
func ParseDataURI(s string) (Encoded, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Encoded{}, fmt.Errorf("%w: empty data uri", ErrInvalidImage)
	}

	mediaType := DefaultMediaType
	payload := s
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found {
			return Encoded{}, fmt.Errorf("%w: malformed data uri", ErrInvalidImage)
		}
		if !strings.HasSuffix(header, ";base64") {
			return Encoded{}, fmt.Errorf("%w: data uri is not base64", ErrInvalidImage)
		}
		if mt := strings.TrimSuffix(header, ";base64"); mt != "" {
			mediaType = mt
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Encoded{}, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	img := Encoded{Data: data, MediaType: mediaType}
	if err := img.Validate(); err != nil {
		return Encoded{}, err
	}
	return img, nil
}

func (e Encoded) DataURI() string {
	return "data:" + e.mediaType() + ";base64," + base64.StdEncoding.EncodeToString(e.Data)
}

func (e Encoded) Validate() error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: no data", ErrInvalidImage)
	}
	if !strings.HasPrefix(e.mediaType(), "image/") {
		return fmt.Errorf("%w: unsupported media type %q", ErrInvalidImage, e.MediaType)
	}
	return nil
}

func (e Encoded) IsZero() bool {
	return len(e.Data) == 0
}

// Extension returns a file extension for the media type, including the dot.
func (e Encoded) Extension() string {
	switch e.mediaType() {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func (e Encoded) mediaType() string {
	if mt := strings.TrimSpace(e.MediaType); mt != "" {
		return strings.ToLower(mt)
	}
	return DefaultMediaType
}
