package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/dmorgan81/decorai/internal/session"
	"github.com/dmorgan81/decorai/internal/store"
	"github.com/dmorgan81/decorai/internal/watermark"
	"github.com/samber/do"
	_ "golang.org/x/image/webp"
)

const (
	Caption        = "Decorado com DecorAI"
	FilenamePrefix = "decorai_projeto_"
	ContentType    = "image/png"
)

var ErrExportFailed = errors.New("export failed")

type Artifact struct {
	Name        string
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

type Exporter struct {
	uploader store.Uploader
	layout   watermark.Layout
	now      func() time.Time
}

func NewExporter(i *do.Injector) (*Exporter, error) {
	return New(do.MustInvoke[store.Uploader](i)), nil
}

func New(uploader store.Uploader) *Exporter {
	return &Exporter{uploader: uploader, layout: watermark.DefaultLayout, now: time.Now}
}

// Filename embeds the epoch milliseconds of t.
func Filename(t time.Time) string {
	return FilenamePrefix + strconv.FormatInt(t.UnixMilli(), 10) + ".png"
}

// Render watermarks the generated image of result and encodes it as PNG. The
// result is only read.
func (e *Exporter) Render(ctx context.Context, result *session.Result) (Artifact, error) {
	if result == nil || result.GeneratedImage.IsZero() {
		return Artifact{}, fmt.Errorf("%w: no generated image", ErrExportFailed)
	}
	log := log.FromContextOrDiscard(ctx).WithGroup("exporter").With("result", result.ID)

	src, err := imaging.Decode(bytes.NewReader(result.GeneratedImage.Data), imaging.AutoOrientation(true))
	if err != nil {
		log.Warn("could not decode generated image", "error", err)
		return Artifact{}, fmt.Errorf("%w: decode: %w", ErrExportFailed, err)
	}

	marked, err := watermark.Apply(src, Caption, e.layout)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: watermark: %w", ErrExportFailed, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, marked, imaging.PNG); err != nil {
		return Artifact{}, fmt.Errorf("%w: encode: %w", ErrExportFailed, err)
	}

	bounds := marked.Bounds()
	artifact := Artifact{
		Name:        Filename(e.now()),
		Data:        buf.Bytes(),
		ContentType: ContentType,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}
	log.Info("rendered watermarked image", "name", artifact.Name, "width", artifact.Width, "height", artifact.Height)
	return artifact, nil
}

// Export renders the artifact and saves it through the uploader.
func (e *Exporter) Export(ctx context.Context, result *session.Result) (Artifact, error) {
	artifact, err := e.Render(ctx, result)
	if err != nil {
		return Artifact{}, err
	}
	if err := e.uploader.Upload(ctx, store.UploadParams{
		Name:        artifact.Name,
		Data:        artifact.Data,
		ContentType: artifact.ContentType,
		Metadata:    Metadata(result),
	}); err != nil {
		return Artifact{}, err
	}
	return artifact, nil
}

// Metadata describes result for object storage. The style is query-escaped
// because object metadata must stay ASCII.
func Metadata(result *session.Result) map[string]string {
	return map[string]string{
		"id":      result.ID,
		"style":   url.QueryEscape(result.Style),
		"created": strconv.FormatInt(result.CreatedAt.UnixMilli(), 10),
	}
}
