package feed

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/decorai/internal/export"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const Name = "feed.xml"

type Client interface {
	s3.ListObjectsV2APIClient
	s3.HeadObjectAPIClient
}

type Generator struct {
	client  Client
	bucket  string
	siteURL string
	now     func() time.Time
}

func NewS3Generator(i *do.Injector) (*Generator, error) {
	return New(
		do.MustInvoke[*s3.Client](i),
		do.MustInvokeNamed[string](i, "bucket"),
		do.MustInvokeNamed[string](i, "site_url"),
	), nil
}

func New(client Client, bucket, siteURL string) *Generator {
	return &Generator{client: client, bucket: bucket, siteURL: strings.TrimRight(siteURL, "/"), now: time.Now}
}

// Generate lists every exported project in the bucket and renders them as
// RSS, newest first.
func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed").With("bucket", g.bucket)
	log.Info("generating rss feed")

	feed := feeds.Feed{
		Title:       "DecorAI",
		Description: "Projetos decorados com DecorAI",
		Link:        &feeds.Link{Href: g.siteURL},
		Updated:     g.now(),
	}

	pager := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(export.FilenamePrefix),
	})

	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		objs := lo.Filter(page.Contents, func(o s3types.Object, _ int) bool {
			key := aws.ToString(o.Key)
			return strings.HasPrefix(key, export.FilenamePrefix) && strings.HasSuffix(key, ".png")
		})

		for _, obj := range objs {
			obj := obj
			group.Go(func() error {
				out, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
					Bucket: aws.String(g.bucket),
					Key:    obj.Key,
				})
				if err != nil {
					return err
				}
				item := g.item(aws.ToString(obj.Key), out)

				mu.Lock()
				defer mu.Unlock()
				feed.Add(item)
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	log.Info("collected projects", "count", len(feed.Items))

	feed.Sort(func(a, b *feeds.Item) bool {
		return a.Created.After(b.Created)
	})
	rss, err := feed.ToRss()
	return []byte(rss), err
}

func (g *Generator) item(key string, out *s3.HeadObjectOutput) *feeds.Item {
	meta := out.Metadata
	style, err := url.QueryUnescape(meta["style"])
	if err != nil {
		style = meta["style"]
	}

	created := aws.ToTime(out.LastModified)
	if ms, err := strconv.ParseInt(meta["created"], 10, 64); err == nil {
		created = time.UnixMilli(ms).UTC()
	}

	return &feeds.Item{
		Id:          lo.Ternary(meta["id"] != "", meta["id"], key),
		Title:       lo.Ternary(style != "", style, key),
		Description: style,
		Link:        &feeds.Link{Href: g.siteURL + "/" + key},
		Created:     created,
		Updated:     aws.ToTime(out.LastModified),
	}
}
