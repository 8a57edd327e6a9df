package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmorgan81/decorai/internal/export"
	"github.com/dmorgan81/decorai/internal/feed"
	"github.com/dmorgan81/decorai/internal/image"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/dmorgan81/decorai/internal/page"
	"github.com/dmorgan81/decorai/internal/session"
	"github.com/dmorgan81/decorai/internal/store"
	"github.com/samber/do"
)

// Input is a single decoration request. Source is a data URI or bare base64
// image; SourceKey names an object already in the store instead. An empty
// Style draws one from the catalog.
type Input struct {
	Source    string `json:"source,omitempty"`
	SourceKey string `json:"source_key,omitempty"`
	Style     string `json:"style,omitempty"`
}

type Output struct {
	ID        string    `json:"id"`
	Style     string    `json:"style"`
	Image     string    `json:"image"`
	Page      string    `json:"page"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedGenerator interface {
	Generate(context.Context) ([]byte, error)
}

type Handler struct {
	sessions    func() session.Session
	downloader  store.Downloader
	uploader    store.Uploader
	invalidator store.Invalidator
	exporter    *export.Exporter
	templator   *page.Templator
	feed        FeedGenerator
}

func NewHandler(i *do.Injector) (*Handler, error) {
	h := &Handler{
		sessions:    do.MustInvoke[func() session.Session](i),
		downloader:  do.MustInvoke[store.Downloader](i),
		uploader:    do.MustInvoke[store.Uploader](i),
		invalidator: do.MustInvoke[store.Invalidator](i),
		exporter:    do.MustInvoke[*export.Exporter](i),
		templator:   do.MustInvoke[*page.Templator](i),
	}
	if g, err := do.Invoke[*feed.Generator](i); err == nil {
		h.feed = g
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler").With("style", input.Style, "source_key", input.SourceKey)
	log.Info("handling lambda invocation")

	src, err := h.source(ctx, input)
	if err != nil {
		return Output{}, err
	}

	sess := h.sessions()
	if err := sess.SetSourceImage(src); err != nil {
		return Output{}, err
	}

	var result *session.Result
	if strings.TrimSpace(input.Style) == "" {
		result, err = sess.DecorateRandom(ctx)
	} else {
		result, err = sess.Decorate(ctx, input.Style)
	}
	if err != nil {
		log.Error("decoration failed", "error", err, "message", sess.Snapshot().Error)
		return Output{}, err
	}

	artifact, err := h.exporter.Export(ctx, result)
	if err != nil {
		return Output{}, err
	}

	pageName := strings.TrimSuffix(artifact.Name, ".png") + ".html"
	html, err := h.templator.Template(ctx, page.ParamsFor(result, artifact.Name))
	if err != nil {
		return Output{}, err
	}

	metadata := export.Metadata(result)
	uploads := []store.UploadParams{
		{
			Name:        pageName,
			Data:        html,
			ContentType: "text/html",
			Metadata:    metadata,
		},
		{
			Name:        "latest.png",
			Data:        artifact.Data,
			ContentType: artifact.ContentType,
			Metadata:    metadata,
		},
		{
			Name:        "latest.html",
			Data:        html,
			ContentType: "text/html",
			Metadata:    metadata,
		},
	}
	paths := []string{"/" + artifact.Name, "/" + pageName, "/latest.png", "/latest.html"}

	for _, u := range uploads {
		if err := h.uploader.Upload(ctx, u); err != nil {
			return Output{}, err
		}
	}

	if h.feed != nil {
		rss, err := h.feed.Generate(ctx)
		if err != nil {
			return Output{}, err
		}
		if err := h.uploader.Upload(ctx, store.UploadParams{
			Name:        feed.Name,
			Data:        rss,
			ContentType: "application/rss+xml",
		}); err != nil {
			return Output{}, err
		}
		paths = append(paths, "/"+feed.Name)
	}

	if err := h.invalidator.Invalidate(ctx, paths); err != nil {
		return Output{}, err
	}

	return Output{
		ID:        result.ID,
		Style:     result.Style,
		Image:     artifact.Name,
		Page:      pageName,
		CreatedAt: result.CreatedAt,
	}, nil
}

func (h *Handler) source(ctx context.Context, input Input) (image.Encoded, error) {
	if input.SourceKey != "" {
		data, contentType, err := h.downloader.Download(ctx, input.SourceKey)
		if err != nil {
			return image.Encoded{}, err
		}
		if !strings.HasPrefix(contentType, "image/") {
			return image.Sniff(data), nil
		}
		return image.Encoded{Data: data, MediaType: contentType}, nil
	}
	if strings.TrimSpace(input.Source) == "" {
		return image.Encoded{}, session.ErrMissingInput
	}
	src, err := image.ParseDataURI(input.Source)
	if err != nil {
		return image.Encoded{}, fmt.Errorf("%w: %w", session.ErrMissingInput, err)
	}
	return src, nil
}
