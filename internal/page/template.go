package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"sync"

	"github.com/dmorgan81/decorai/internal/log"
	"github.com/dmorgan81/decorai/internal/session"
	"github.com/samber/do"
)

//go:embed assets/comparison.html
var comparisonTmpl string

// Params feeds the comparison page. Before and After are typed as URLs so
// data URIs are not replaced by html/template's sanitizer.
type Params struct {
	Before    template.URL
	After     template.URL
	Style     string
	CreatedAt string
	Download  string
}

// ParamsFor builds comparison params from a result, embedding both images.
func ParamsFor(result *session.Result, download string) Params {
	return Params{
		Before:    template.URL(result.SourceImage.DataURI()),
		After:     template.URL(result.GeneratedImage.DataURI()),
		Style:     result.Style,
		CreatedAt: result.CreatedAt.UTC().Format("02/01/2006 15:04"),
		Download:  download,
	}
}

type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func NewTemplator(_ *do.Injector) (*Templator, error) {
	return &Templator{}, nil
}

func (g *Templator) Template(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.New("comparison").Parse(comparisonTmpl))
	})

	log := log.FromContextOrDiscard(ctx).WithGroup("templator")
	log.Info("generating comparison page", "style", params.Style)

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
