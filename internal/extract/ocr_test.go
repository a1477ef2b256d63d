package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageharvest/pageharvest/internal/common"
)

// fakeRunner pretends to be tesseract: it echoes the fetched file's content.
type fakeRunner struct {
	lastName string
	lastArgs []string
	err      error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.lastName = name
	r.lastArgs = args
	if r.err != nil {
		return nil, []byte("tesseract blew up"), r.err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}

func TestOCRExtractorFetchesAndRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake image bytes"))
	}))
	defer srv.Close()

	runner := &fakeRunner{}
	e := NewOCRExtractor(common.OCRConfig{Lang: "jpn", CacheDir: t.TempDir()}, discardLogger())
	e.runner = runner

	text, err := e.Extract(context.Background(), srv.URL+"/page1.png")
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", text)

	assert.Equal(t, "tesseract", runner.lastName)
	require.Len(t, runner.lastArgs, 4)
	assert.Equal(t, []string{"stdout", "-l", "jpn"}, runner.lastArgs[1:])

	// The downloaded temp file is cleaned up after the run.
	_, statErr := os.Stat(runner.lastArgs[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestOCRExtractorRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := NewOCRExtractor(common.OCRConfig{CacheDir: t.TempDir()}, discardLogger())
	e.runner = &fakeRunner{}

	_, err := e.Extract(context.Background(), srv.URL+"/missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestOCRExtractorWrapsRunnerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("img"))
	}))
	defer srv.Close()

	e := NewOCRExtractor(common.OCRConfig{CacheDir: t.TempDir()}, discardLogger())
	e.runner = &fakeRunner{err: context.DeadlineExceeded}

	_, err := e.Extract(context.Background(), srv.URL+"/page1.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract blew up")
}
