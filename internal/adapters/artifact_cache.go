package adapters

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"cascade-builds/internal/ports"
	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

const cacheArchiveName = "artifact-cache.tar.gz"

// ArtifactCache downloads a gzipped tarball of a pre-populated local
// artifact repository and unpacks it. The archive is kept in ArchiveDir and
// downloaded again only when the remote .md5 differs from the stored one.
type ArtifactCache struct {
	ArchiveDir string
	Timeout    time.Duration
}

func NewArtifactCache(cfg types.Config, archiveDir string) ArtifactCache {
	return ArtifactCache{ArchiveDir: archiveDir, Timeout: cfg.HTTPTimeout}
}

// Prepare reports whether the archive had to be downloaded.
func (c ArtifactCache) Prepare(ctx context.Context, url string, destDir string) (bool, error) {
	if strings.TrimSpace(url) == "" {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact cache url is empty")
	}
	if err := os.MkdirAll(c.ArchiveDir, 0755); err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifact cache directory").
			WithCause(err)
	}
	archive := filepath.Join(c.ArchiveDir, cacheArchiveName)
	download := c.shouldDownload(ctx, url, archive)
	if download {
		if err := c.download(ctx, url, archive); err != nil {
			return false, err
		}
	} else {
		log.Ctx(ctx).Info().Str("archive", archive).Msg("artifact cache is up to date")
	}
	if err := unpackTarGz(archive, destDir); err != nil {
		return download, err
	}
	log.Ctx(ctx).Info().Str("dir", destDir).Msg("artifact cache unpacked")
	return download, nil
}

func (c ArtifactCache) shouldDownload(ctx context.Context, url string, archive string) bool {
	if _, err := os.Stat(archive); err != nil {
		return true
	}
	local, err := os.ReadFile(archive + ".md5")
	if err != nil {
		return true
	}
	remote, err := c.get(ctx, url+".md5")
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("could not read remote cache checksum, forcing download")
		return true
	}
	return checksumField(local) != checksumField(remote)
}

func (c ArtifactCache) download(ctx context.Context, url string, archive string) error {
	log.Ctx(ctx).Info().Str("url", url).Str("archive", archive).Msg("downloading artifact cache")
	resp, err := c.open(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp := archive + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifact cache archive").
			WithCause(err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("failed to download artifact cache").
			WithCause(err)
	}
	if err := file.Close(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write artifact cache archive").
			WithCause(err)
	}
	if err := os.Rename(tmp, archive); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to store artifact cache archive").
			WithCause(err)
	}
	// The checksum is optional; a missing one only forces the next download.
	if sum, err := c.get(ctx, url+".md5"); err == nil {
		_ = os.WriteFile(archive+".md5", sum, 0644)
	} else {
		_ = os.Remove(archive + ".md5")
	}
	return nil
}

func (c ArtifactCache) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, 1<<10))
}

func (c ArtifactCache) open(ctx context.Context, url string) (*http.Response, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = types.DefaultHTTPTimeout
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid artifact cache url").
			WithCause(err)
	}
	// The archive can be large; the timeout bounds only the response headers.
	client := &http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: timeout,
	}}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("artifact cache request failed").
			WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("artifact cache request failed").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}
	return resp, nil
}

func checksumField(content []byte) string {
	fields := strings.Fields(string(content))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

func unpackTarGz(archive string, destDir string) error {
	file, err := os.Open(archive)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("artifact cache archive not found").
			WithCause(err)
	}
	defer file.Close()
	gz, err := gzip.NewReader(file)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact cache archive is not gzip").
			WithCause(err)
	}
	defer gz.Close()
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create artifact repository directory").
			WithCause(err)
	}

	reader := tar.NewReader(gz)
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read artifact cache archive").
				WithCause(err)
		}
		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, 0755)
		case tar.TypeReg:
			err = writeTarFile(reader, target, header.FileInfo().Mode().Perm())
		default:
			continue
		}
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to unpack " + header.Name).
				WithCause(err)
		}
	}
}

func writeTarFile(reader io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func safeJoin(root string, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("archive entry %q escapes %s", name, root))
	}
	return target, nil
}

var _ ports.ArtifactCachePort = ArtifactCache{}
