package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// downloadParallelism bounds concurrent file downloads.
const downloadParallelism = 8

// ErrIncompleteIssuance is returned when the File API lists fewer files than a
// complete issuance has.
var ErrIncompleteIssuance = errors.New("issuance is incomplete")

// ListFiles returns the forecast file names available for the bundle.
func (c *Client) ListFiles(ctx context.Context, bundle, timeBundle string) ([]string, error) {
	q := url.Values{}
	q.Set("bundles", bundle)
	q.Set("time_bundle", timeBundle)
	endpoint := strings.TrimRight(c.Host, "/") + "/forecast/file?" + q.Encode()

	body, err := c.get(ctx, endpoint, c.authHeader())
	if err != nil {
		return nil, errors.Wrap(err, "failed to list forecast files")
	}

	var apiResponse struct {
		Files *[]string `json:"files"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if apiResponse.Files == nil {
		return nil, errors.New("response did not contain a files element")
	}
	return *apiResponse.Files, nil
}

// DownloadCompleteIssuance downloads every file of the latest issuance into
// dir, but only once the issuance is complete. Files already present are
// skipped. It returns the paths written or found.
func (c *Client) DownloadCompleteIssuance(ctx context.Context, bundle, timeBundle, dir string) ([]string, error) {
	expected, err := ExpectedSteps(timeBundle)
	if err != nil {
		return nil, err
	}
	files, err := c.ListFiles(ctx, bundle, timeBundle)
	if err != nil {
		return nil, err
	}
	if len(files) != expected {
		return nil, fmt.Errorf("%w: there are %d files and we were expecting %d", ErrIncompleteIssuance, len(files), expected)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadParallelism)
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			path, err := c.downloadFile(gctx, name, dir)
			paths[i] = path
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (c *Client) downloadFile(ctx context.Context, name, dir string) (string, error) {
	path := filepath.Join(dir, filepath.Base(name))
	if _, err := os.Stat(path); err == nil {
		c.Logger.Debug().Str("file", name).Msg("already downloaded, skipping")
		return path, nil
	}

	c.Logger.Info().Str("file", name).Str("path", path).Msg("downloading")
	endpoint := strings.TrimRight(c.Host, "/") + "/forecast/file/" + url.PathEscape(name)
	data, err := c.get(ctx, endpoint, c.authHeader())
	if err != nil {
		return "", errors.Wrapf(err, "failed to download %s", name)
	}

	// Write to a temp file then rename so a partial download never looks complete.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write tmp failed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename failed: %w", err)
	}
	return path, nil
}
