package session

import (
	"context"
	"errors"
	"time"

	"github.com/dmorgan81/decorai/internal/image"
)

type Status string

const (
	Idle       Status = "idle"
	Processing Status = "processing"
	Succeeded  Status = "succeeded"
	Failed     Status = "failed"
)

const (
	FallbackErrorMessage    = "Erro de conexão com o servidor de IA. Tente novamente em instantes."
	EmptyResultErrorMessage = "A IA não conseguiu renderizar a imagem decorada. Tente descrever o estilo de outra forma."
)

var (
	ErrMissingInput = errors.New("missing input")
	ErrBusy         = errors.New("a decoration is already in progress")
	ErrSuperseded   = errors.New("session changed before the decoration settled")
	ErrCollaborator = errors.New("image generation failed")
	ErrEmptyResult  = image.ErrEmptyResult
)

// Result is the outcome of one successful generation call. A new Result
// replaces the previous one; existing values are never modified.
type Result struct {
	ID             string        `json:"id"`
	SourceImage    image.Encoded `json:"source_image"`
	GeneratedImage image.Encoded `json:"generated_image"`
	Style          string        `json:"style"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	Status     Status         `json:"status"`
	Source     *image.Encoded `json:"source,omitempty"`
	Style      string         `json:"style,omitempty"`
	Result     *Result        `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	Generation uint64         `json:"generation"`
}

// Settlement is delivered once per submitted decoration. Err is ErrSuperseded
// when the session was reset while the call was outstanding.
type Settlement struct {
	Result *Result
	Err    error
}

// Session is the full set of operations a presentation layer may perform.
type Session interface {
	SetSourceImage(image.Encoded) error
	Submit(ctx context.Context, style string) (<-chan Settlement, error)
	SubmitRandom(ctx context.Context) (string, <-chan Settlement, error)
	Decorate(ctx context.Context, style string) (*Result, error)
	DecorateRandom(ctx context.Context) (*Result, error)
	Reset()
	Snapshot() Snapshot
}

type StylePicker interface {
	Pick() string
}
