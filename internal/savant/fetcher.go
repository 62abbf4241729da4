// Package savant locates and downloads play videos from Baseball Savant.
package savant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/PuerkitoBio/goquery"

	"github.com/plunkbot/plunkbot/internal/config"
)

// ErrVideoUnavailable reports that the play page carries no video. Savant
// lags the live feed by a while, so this is a normal per-item condition the
// next run retries.
var ErrVideoUnavailable = errors.New("no video available for play")

// Fetcher scrapes the Savant play page for the mp4 source and streams it to
// the shared video directory.
type Fetcher struct {
	pageURL    string
	videoDir   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher constructs a video fetcher writing into videoDir.
func NewFetcher(cfg config.SavantConfig, videoDir string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		pageURL:  cfg.VideoPageURL,
		videoDir: videoDir,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// VideoPath returns the well-known artifact path for a play's video.
func (f *Fetcher) VideoPath(gamePk int, playID string) string {
	return filepath.Join(f.videoDir, fmt.Sprintf("%d_%s.mp4", gamePk, playID))
}

// Fetch downloads the video for a play, returning the local path. When the
// artifact already exists the download is skipped; discovery of the same play
// across runs must not re-fetch.
func (f *Fetcher) Fetch(ctx context.Context, gamePk int, playID string) (string, error) {
	path := f.VideoPath(gamePk, playID)
	if _, err := os.Stat(path); err == nil {
		f.logger.Debug("video already on disk", "path", path)
		return path, nil
	}

	videoURL, err := f.locate(ctx, playID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(f.videoDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create video directory: %w", err)
	}

	if err := f.download(ctx, videoURL, path); err != nil {
		return "", err
	}

	f.logger.Info("video downloaded", "game_pk", gamePk, "play_id", playID, "path", path)
	return path, nil
}

// locate scrapes the play page for the mp4 source URL.
func (f *Fetcher) locate(ctx context.Context, playID string) (string, error) {
	pageURL := fmt.Sprintf("%s?playId=%s", f.pageURL, url.QueryEscape(playID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch play page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("play page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse play page: %w", err)
	}

	src, ok := doc.Find(`div.video-box video source[type="video/mp4"]`).First().Attr("src")
	if !ok || src == "" {
		return "", fmt.Errorf("play %s: %w", playID, ErrVideoUnavailable)
	}

	return src, nil
}

// download streams the mp4 to a temp file in the target directory, then
// renames it into place so a crashed run never leaves a truncated artifact at
// the well-known path.
func (f *Fetcher) download(ctx context.Context, videoURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("video fetch returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.videoDir, filepath.Base(path)+".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write video: %w", err)
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		return fmt.Errorf("short video download: %d of %d bytes", written, resp.ContentLength)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to finalize video file: %w", err)
	}

	return nil
}
