package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/pageharvest/pageharvest/internal/common"
)

// OCRExtractor implements PageExtractor by fetching the page image over HTTP
// and running it through tesseract.
type OCRExtractor struct {
	cfg    common.OCRConfig
	client *http.Client
	runner Runner
	log    *slog.Logger
}

func NewOCRExtractor(cfg common.OCRConfig, log *slog.Logger) *OCRExtractor {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "./tmp"
	}
	return &OCRExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		runner: newExecRunner(log),
		log:    log,
	}
}

func (e *OCRExtractor) Extract(ctx context.Context, pageRef string) (string, error) {
	path, cleanup, err := e.fetch(ctx, pageRef)
	if err != nil {
		return "", err
	}
	defer cleanup()

	stdout, stderr, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Lang)
	if err != nil {
		return "", fmt.Errorf("ocr %s: %w (%s)", pageRef, err, truncate(string(stderr), 256))
	}
	e.log.Debug("page ocr ok", "page", pageRef, "bytes", len(stdout))
	return string(stdout), nil
}

// fetch downloads the page image into the artifact cache dir and returns the
// temp path plus its cleanup.
func (e *OCRExtractor) fetch(ctx context.Context, pageRef string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageRef, nil)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", pageRef, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", pageRef, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("fetch %s: unexpected status %s", pageRef, resp.Status)
	}

	if err := os.MkdirAll(e.cfg.CacheDir, 0o755); err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp(e.cfg.CacheDir, "page-*.img")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("fetch %s: %w", pageRef, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
