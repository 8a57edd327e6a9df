package export

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	"image/color"
	"image/png"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/dmorgan81/decorai/internal/image"
	"github.com/dmorgan81/decorai/internal/session"
	"github.com/dmorgan81/decorai/internal/store"
)

type recordingUploader struct {
	uploads []store.UploadParams
	err     error
}

func (u *recordingUploader) Upload(_ context.Context, params store.UploadParams) error {
	u.uploads = append(u.uploads, params)
	return u.err
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 90, G: 140, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func testResult(data []byte) *session.Result {
	return &session.Result{
		ID:             "result-1",
		SourceImage:    image.Encoded{Data: []byte("src"), MediaType: "image/jpeg"},
		GeneratedImage: image.Encoded{Data: data, MediaType: "image/png"},
		Style:          "Estilo Escandinavo, muita luz natural",
		CreatedAt:      time.UnixMilli(1700000000000),
	}
}

func TestRenderProducesWatermarkedPNG(t *testing.T) {
	original := encodePNG(t, 640, 480)
	result := testResult(append([]byte(nil), original...))
	e := New(&recordingUploader{})
	e.now = func() time.Time { return time.UnixMilli(1712345678901) }

	artifact, err := e.Render(context.Background(), result)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if artifact.Name != "decorai_projeto_1712345678901.png" {
		t.Fatalf("name = %q", artifact.Name)
	}
	if artifact.ContentType != "image/png" || artifact.Width != 640 || artifact.Height != 480 {
		t.Fatalf("artifact = %+v", artifact)
	}

	decoded, err := png.Decode(bytes.NewReader(artifact.Data))
	if err != nil {
		t.Fatalf("artifact is not a PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 640 || decoded.Bounds().Dy() != 480 {
		t.Fatalf("decoded bounds = %v", decoded.Bounds())
	}
	if !bytes.Equal(result.GeneratedImage.Data, original) {
		t.Fatal("generated image bytes were modified")
	}
}

func TestRenderRejectsUndecodableImage(t *testing.T) {
	result := testResult([]byte("definitely not an image"))
	before := *result

	_, err := New(&recordingUploader{}).Render(context.Background(), result)
	if !errors.Is(err, ErrExportFailed) {
		t.Fatalf("err = %v, want ErrExportFailed", err)
	}
	if result.ID != before.ID || string(result.GeneratedImage.Data) != "definitely not an image" {
		t.Fatal("result was modified")
	}
}

func TestRenderRejectsMissingResult(t *testing.T) {
	e := New(&recordingUploader{})
	if _, err := e.Render(context.Background(), nil); !errors.Is(err, ErrExportFailed) {
		t.Fatalf("err = %v, want ErrExportFailed", err)
	}
	if _, err := e.Render(context.Background(), testResult(nil)); !errors.Is(err, ErrExportFailed) {
		t.Fatalf("err = %v, want ErrExportFailed", err)
	}
}

func TestExportUploadsArtifact(t *testing.T) {
	uploader := &recordingUploader{}
	e := New(uploader)

	artifact, err := e.Export(context.Background(), testResult(encodePNG(t, 64, 48)))
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if len(uploader.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(uploader.uploads))
	}
	up := uploader.uploads[0]
	if !regexp.MustCompile(`^decorai_projeto_\d+\.png$`).MatchString(up.Name) || up.Name != artifact.Name {
		t.Fatalf("upload name = %q", up.Name)
	}
	if up.ContentType != "image/png" || !bytes.Equal(up.Data, artifact.Data) {
		t.Fatalf("upload = %+v", up)
	}
	style, err := url.QueryUnescape(up.Metadata["style"])
	if err != nil || style != "Estilo Escandinavo, muita luz natural" {
		t.Fatalf("style metadata = %q", up.Metadata["style"])
	}
	if up.Metadata["id"] != "result-1" || up.Metadata["created"] != "1700000000000" {
		t.Fatalf("metadata = %#v", up.Metadata)
	}
}

func TestExportPropagatesUploadError(t *testing.T) {
	boom := errors.New("bucket gone")
	e := New(&recordingUploader{err: boom})
	if _, err := e.Export(context.Background(), testResult(encodePNG(t, 32, 32))); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
