package page

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmorgan81/decorai/internal/image"
	"github.com/dmorgan81/decorai/internal/session"
)

func TestTemplateKeepsDataURIs(t *testing.T) {
	result := &session.Result{
		ID:             "r1",
		SourceImage:    image.Encoded{Data: []byte("before"), MediaType: "image/jpeg"},
		GeneratedImage: image.Encoded{Data: []byte("after"), MediaType: "image/png"},
		Style:          "Estilo Japandi <minimalista>",
		CreatedAt:      time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
	}

	var g Templator
	html, err := g.Template(context.Background(), ParamsFor(result, "/sessions/s1/download"))
	if err != nil {
		t.Fatalf("Template returned error: %v", err)
	}
	out := string(html)

	for _, want := range []string{
		`src="data:image/jpeg;base64,YmVmb3Jl"`,
		`src="data:image/png;base64,YWZ0ZXI="`,
		`href="/sessions/s1/download"`,
		"Estilo Japandi &lt;minimalista&gt;",
		"09/03/2024 14:30",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(out, "ZgotmplZ") {
		t.Fatal("image source was sanitized away")
	}
}

func TestTemplateWithoutDownload(t *testing.T) {
	var g Templator
	html, err := g.Template(context.Background(), Params{Before: "data:image/png;base64,AA==", After: "data:image/png;base64,AA==", Style: "x"})
	if err != nil {
		t.Fatalf("Template returned error: %v", err)
	}
	if strings.Contains(string(html), "Baixar projeto") {
		t.Fatal("download link rendered without a target")
	}
}
