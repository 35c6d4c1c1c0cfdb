package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

const maxConfigDocumentSize = 4 << 20

// HTTPConfigDocuments reads documents from
// <base>/<owner>/<repo>/<branch>/<path>. Each fetch is a single attempt.
type HTTPConfigDocuments struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewHTTPConfigDocuments(cfg types.Config) HTTPConfigDocuments {
	return HTTPConfigDocuments{
		BaseURL: cfg.RawBaseURL,
		Token:   cfg.GitHubToken,
		Timeout: cfg.HTTPTimeout,
	}
}

func (a HTTPConfigDocuments) DocumentURL(location types.ConfigLocation, path string) string {
	base := a.BaseURL
	if strings.TrimSpace(base) == "" {
		base = types.DefaultRawBaseURL
	}
	return shared.JoinURL(base, location.Repo.Owner, location.Repo.Name, string(location.Branch), path)
}

func (a HTTPConfigDocuments) FetchDocument(ctx context.Context, location types.ConfigLocation, path string) ([]byte, error) {
	url := a.DocumentURL(location, path)
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = types.DefaultHTTPTimeout
	}
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, shared.KindError(shared.KindConfigFetch, url, err)
	}
	if token := strings.TrimSpace(a.Token); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, shared.KindError(shared.KindConfigFetch, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, shared.KindError(shared.KindConfigFetch, url, shared.HTTPStatusError(resp.StatusCode, url))
	}
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigDocumentSize))
	if err != nil {
		return nil, shared.KindError(shared.KindConfigFetch, url, err)
	}
	log.Ctx(ctx).Debug().Str("url", url).Int("bytes", len(content)).Msg("fetched config document")
	return content, nil
}

// DirConfigDocuments reads documents from a local mirror laid out as
// <root>/<owner>/<repo>/<branch>/<path>.
type DirConfigDocuments struct {
	Root string
}

func NewDirConfigDocuments(root string) DirConfigDocuments {
	return DirConfigDocuments{Root: root}
}

func (a DirConfigDocuments) FetchDocument(_ context.Context, location types.ConfigLocation, path string) ([]byte, error) {
	full := filepath.Join(a.Root, location.Repo.Owner, location.Repo.Name, string(location.Branch), filepath.FromSlash(path))
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, shared.KindError(shared.KindConfigFetch, full, err)
	}
	return content, nil
}

// FixtureConfigDocuments serves documents from memory, keyed by
// FixtureKey. Used in tests and dry runs.
type FixtureConfigDocuments struct {
	Documents map[string][]byte
}

func NewFixtureConfigDocuments() FixtureConfigDocuments {
	return FixtureConfigDocuments{Documents: map[string][]byte{}}
}

func FixtureKey(location types.ConfigLocation, path string) string {
	return fmt.Sprintf("%s@%s:%s", location.Repo.FullName(), location.Branch, path)
}

func (a FixtureConfigDocuments) Add(location types.ConfigLocation, path string, content string) FixtureConfigDocuments {
	a.Documents[FixtureKey(location, path)] = []byte(content)
	return a
}

func (a FixtureConfigDocuments) FetchDocument(_ context.Context, location types.ConfigLocation, path string) ([]byte, error) {
	key := FixtureKey(location, path)
	content, ok := a.Documents[key]
	if !ok {
		return nil, shared.KindError(shared.KindConfigFetch, key, os.ErrNotExist)
	}
	return content, nil
}

// FallbackConfigDocuments tries Primary and, when it cannot be reached,
// Fallback. Parse errors are never masked since only fetches fall back.
type FallbackConfigDocuments struct {
	Primary  ports.ConfigDocumentPort
	Fallback ports.ConfigDocumentPort
}

func (a FallbackConfigDocuments) FetchDocument(ctx context.Context, location types.ConfigLocation, path string) ([]byte, error) {
	content, err := a.Primary.FetchDocument(ctx, location, path)
	if err == nil || a.Fallback == nil || ctx.Err() != nil {
		return content, err
	}
	log.Ctx(ctx).Warn().
		Err(err).
		Str("location", location.String()).
		Str("path", path).
		Msg("config document fetch failed, using fallback")
	content, fallbackErr := a.Fallback.FetchDocument(ctx, location, path)
	if fallbackErr != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg(fmt.Sprintf("%s: %s (fallback: %v)", shared.KindConfigFetch, location, fallbackErr)).
			WithCause(err)
	}
	return content, nil
}

var _ ports.ConfigDocumentPort = HTTPConfigDocuments{}
var _ ports.ConfigDocumentPort = DirConfigDocuments{}
var _ ports.ConfigDocumentPort = FixtureConfigDocuments{}
var _ ports.ConfigDocumentPort = FallbackConfigDocuments{}
