package hfhub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// DownloadOptions tunes a snapshot download.
type DownloadOptions struct {
	// Pattern filters files by glob, e.g. "data/en/*.mds". Empty matches
	// everything.
	Pattern string
	// Workers is the number of parallel downloads. Defaults to 8.
	Workers int
	// Retries is the number of attempts after the first failure. Defaults
	// to 2, matching the streaming dataset's download_retry.
	Retries int
	// RetryWait is the pause between attempts. Defaults to 5s.
	RetryWait time.Duration
}

const (
	defaultWorkers   = 8
	defaultRetries   = 2
	defaultRetryWait = 5 * time.Second
)

// Snapshot downloads the files of a repository revision matching the options
// into destDir, preserving repository paths. It returns the local paths
// written.
func (c *Client) Snapshot(ctx context.Context, repoType RepoType, repoID, revision, destDir string, opts DownloadOptions) ([]string, error) {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}
	if revision == "" {
		revision = "main"
	}

	files, err := c.ListFiles(ctx, repoType, repoID, revision)
	if err != nil {
		return nil, err
	}

	var selected []RepoFile
	for _, file := range files {
		if opts.Pattern != "" {
			ok, err := path.Match(opts.Pattern, file.Path)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", opts.Pattern, err)
			}
			if !ok {
				continue
			}
		}
		selected = append(selected, file)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no files in %s match %q", repoID, opts.Pattern)
	}

	c.logger.Info("downloading snapshot",
		"repo", repoID, "revision", revision, "files", len(selected), "workers", opts.Workers)

	locals := make([]string, len(selected))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, file := range selected {
		g.Go(func() error {
			local := filepath.Join(destDir, filepath.FromSlash(file.Path))
			if err := c.downloadWithRetry(ctx, repoType, repoID, revision, file.Path, local, opts); err != nil {
				return fmt.Errorf("%s: %w", file.Path, err)
			}
			locals[i] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return locals, nil
}

func (c *Client) downloadWithRetry(ctx context.Context, repoType RepoType, repoID, revision, remotePath, local string, opts DownloadOptions) error {
	var err error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying download", "path", remotePath, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.RetryWait):
			}
		}
		if err = c.DownloadFile(ctx, repoType, repoID, revision, remotePath, local); err == nil {
			return nil
		}
	}
	return err
}

// DownloadFile fetches one repository file to a local path, creating parent
// directories as needed. The file is written via a temp name so a failed
// download never leaves a truncated file behind.
func (c *Client) DownloadFile(ctx context.Context, repoType RepoType, repoID, revision, remotePath, local string) error {
	if revision == "" {
		revision = "main"
	}
	u := fmt.Sprintf("%s/%s%s/resolve/%s/%s",
		c.endpoint, repoType.resolvePrefix(), repoID, url.PathEscape(revision), remotePath)

	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp, u)
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(local), filepath.Base(local)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), local)
}
