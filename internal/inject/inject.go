package inject

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/decorai/internal/config"
	"github.com/dmorgan81/decorai/internal/export"
	"github.com/dmorgan81/decorai/internal/feed"
	"github.com/dmorgan81/decorai/internal/handle"
	"github.com/dmorgan81/decorai/internal/handler"
	"github.com/dmorgan81/decorai/internal/image"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/dmorgan81/decorai/internal/page"
	"github.com/dmorgan81/decorai/internal/param"
	"github.com/dmorgan81/decorai/internal/prompt"
	"github.com/dmorgan81/decorai/internal/session"
	"github.com/dmorgan81/decorai/internal/store"
	"github.com/samber/do"
)

// Setup registers every service. AWS clients are only built when something
// asks for them, so a local run without a bucket never touches AWS.
func Setup(ctx context.Context, cfg *config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[*config.Config](injector, cfg)

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, &http.Client{Timeout: cfg.GenerationTimeout})

	// Local runs resolve parameter names against the environment.
	if cfg.Development() || cfg.Bucket == "" {
		do.ProvideValue[param.Fetcher](injector, param.EnvFetcher{Lookup: os.LookupEnv})
	} else {
		do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	}

	do.ProvideNamed[string](injector, "gemini_key", func(i *do.Injector) (string, error) {
		if cfg.GeminiAPIKey != "" {
			return cfg.GeminiAPIKey, nil
		}
		return do.MustInvoke[param.Fetcher](i).Fetch(ctx, cfg.GeminiAPIKeyParam)
	})
	do.ProvideNamed[[]string](injector, "styles", func(i *do.Injector) ([]string, error) {
		if cfg.StylesParam == "" {
			return prompt.DefaultStyles, nil
		}
		styles, err := do.MustInvoke[param.Fetcher](i).FetchAll(ctx, cfg.StylesParam)
		if err != nil || len(styles) == 0 {
			log.Warn("falling back to default styles", "param", cfg.StylesParam, "error", err)
			return prompt.DefaultStyles, nil
		}
		return styles, nil
	})
	do.ProvideNamedValue[string](injector, "gemini_model", cfg.GeminiModel)
	do.ProvideNamedValue[string](injector, "gemini_base_url", cfg.GeminiBaseURL)
	do.ProvideNamedValue[string](injector, "bucket", cfg.Bucket)
	do.ProvideNamedValue[string](injector, "distribution", cfg.Distribution)
	do.ProvideNamedValue[string](injector, "site_url", cfg.SiteURL)
	do.ProvideNamedValue[string](injector, "export_dir", cfg.ExportDir)
	do.ProvideNamedValue[int64](injector, "max_upload_bytes", cfg.MaxUploadBytes)

	do.Provide[*prompt.Randomizer](injector, prompt.NewRandomizer)
	do.Provide[image.Generator](injector, image.NewGeminiGenerator)

	if cfg.Bucket != "" {
		do.Provide[*store.S3Store](injector, store.NewS3Store)
		do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
			return do.MustInvoke[*store.S3Store](i), nil
		})
		do.Provide[store.Downloader](injector, func(i *do.Injector) (store.Downloader, error) {
			return do.MustInvoke[*store.S3Store](i), nil
		})
		do.Provide[*feed.Generator](injector, feed.NewS3Generator)
	} else {
		do.Provide[*store.FileStore](injector, store.NewFileStore)
		do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
			return do.MustInvoke[*store.FileStore](i), nil
		})
		do.Provide[store.Downloader](injector, func(i *do.Injector) (store.Downloader, error) {
			return do.MustInvoke[*store.FileStore](i), nil
		})
	}
	if cfg.Distribution != "" {
		do.Provide[store.Invalidator](injector, store.NewCloudFrontInvalidator)
	} else {
		do.ProvideValue[store.Invalidator](injector, store.NopInvalidator{})
	}

	do.Provide[*export.Exporter](injector, export.NewExporter)
	do.Provide[*page.Templator](injector, page.NewTemplator)

	do.Provide[func() session.Session](injector, func(i *do.Injector) (func() session.Session, error) {
		generator := do.MustInvoke[image.Generator](i)
		randomizer := do.MustInvoke[*prompt.Randomizer](i)
		return func() session.Session {
			return session.NewController(generator, randomizer)
		}, nil
	})
	do.Provide[*session.Registry](injector, func(i *do.Injector) (*session.Registry, error) {
		return session.NewRegistry(do.MustInvoke[func() session.Session](i), cfg.SessionIdle), nil
	})

	do.Provide[*handler.Handler](injector, handler.NewHandler)
	do.Provide[*handle.Server](injector, handle.NewServer)

	return injector
}
