package param

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
)

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
	FetchAll(context.Context, string) ([]string, error)
}

// EnvFetcher resolves parameters from environment variables for local runs.
// The path names the variable; FetchAll splits its value on "|".
type EnvFetcher struct {
	Lookup func(string) (string, bool)
}

func (f EnvFetcher) Fetch(_ context.Context, path string) (string, error) {
	v, ok := f.lookup(path)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("parameter %q is not set", path)
	}
	return v, nil
}

func (f EnvFetcher) FetchAll(ctx context.Context, path string) ([]string, error) {
	v, err := f.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return lo.Compact(lo.Map(strings.Split(v, "|"), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})), nil
}

func (f EnvFetcher) lookup(key string) (string, bool) {
	if f.Lookup != nil {
		return f.Lookup(key)
	}
	return os.LookupEnv(key)
}
