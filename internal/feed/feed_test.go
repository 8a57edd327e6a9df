package feed

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeClient struct {
	keys []string
	meta map[string]map[string]string
	err  error
}

func (c *fakeClient) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for _, k := range c.keys {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (c *fakeClient) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &s3.HeadObjectOutput{
		Metadata:     c.meta[aws.ToString(in.Key)],
		LastModified: aws.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}, nil
}

func TestGenerateNewestFirst(t *testing.T) {
	client := &fakeClient{
		keys: []string{
			"decorai_projeto_1700000000000.png",
			"decorai_projeto_1700000500000.png",
			"decorai_projeto_1700000100000.html",
			"feed.xml",
		},
		meta: map[string]map[string]string{
			"decorai_projeto_1700000000000.png": {"id": "old", "style": url.QueryEscape("Estilo Rústico"), "created": "1700000000000"},
			"decorai_projeto_1700000500000.png": {"id": "new", "style": url.QueryEscape("Estilo Japandi"), "created": "1700000500000"},
		},
	}
	g := New(client, "bucket", "https://example.com/")

	rss, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	out := string(rss)

	newer := strings.Index(out, "Estilo Japandi")
	older := strings.Index(out, "Estilo Rústico")
	if newer < 0 || older < 0 {
		t.Fatalf("feed is missing items:\n%s", out)
	}
	if newer > older {
		t.Fatal("items are not ordered newest first")
	}
	if !strings.Contains(out, "https://example.com/decorai_projeto_1700000500000.png") {
		t.Fatal("item link not built from site url")
	}
	if strings.Contains(out, ".html") {
		t.Fatal("non image object included")
	}
}

func TestGenerateHeadFailure(t *testing.T) {
	boom := errors.New("boom")
	g := New(&fakeClient{keys: []string{"decorai_projeto_1.png"}, err: boom}, "bucket", "https://example.com")

	if _, err := g.Generate(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
