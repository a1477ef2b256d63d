package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passAll accepts every segment, so engine tests exercise assembly rather
// than the classifier.
type passAll struct{}

func (passAll) Plausible(string) bool { return true }

// stubExtractor serves canned per-page text or errors.
type stubExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (s stubExtractor) Extract(_ context.Context, ref string) (string, error) {
	if err, ok := s.errs[ref]; ok {
		return "", err
	}
	return s.texts[ref], nil
}

func TestRunAssemblesSurvivingPagesInOrder(t *testing.T) {
	ex := stubExtractor{
		texts: map[string]string{
			"p1": "first page text here",
			"p3": "third page text here",
		},
		errs: map[string]error{"p2": errors.New("fetch exploded")},
	}
	e := NewEngine(ex, passAll{}, discardLogger())

	res := e.Run(context.Background(), []string{"p1", "p2", "p3"})

	assert.False(t, res.AllFailed, "one failed page must not fail the job")
	assert.Equal(t, 2, res.PagesUsed)

	wantBody := "first page text here" + PageBoundary + "third page text here"
	assert.True(t, strings.HasPrefix(res.Text, wantBody), "surviving pages keep their original order")

	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Page)
	assert.Equal(t, "p2", res.Failures[0].Ref)
	assert.Contains(t, res.Failures[0].Reason, "fetch exploded")
	assert.Contains(t, res.Text, "page 2 (p2): fetch exploded")
}

func TestRunAllPagesFailed(t *testing.T) {
	ex := stubExtractor{errs: map[string]error{
		"p1": errors.New("boom"),
		"p2": errors.New("boom"),
	}}
	e := NewEngine(ex, passAll{}, discardLogger())

	res := e.Run(context.Background(), []string{"p1", "p2"})

	assert.True(t, res.AllFailed)
	assert.Equal(t, 0, res.PagesUsed)
	assert.Len(t, res.Failures, 2)
	assert.Contains(t, res.Text, "page 1 (p1): boom")
	assert.Contains(t, res.Text, "page 2 (p2): boom")
}

func TestRunNothingSurvivesFiltering(t *testing.T) {
	ex := stubExtractor{texts: map[string]string{"p1": "   \n\n  "}}
	e := NewEngine(ex, passAll{}, discardLogger())

	res := e.Run(context.Background(), []string{"p1"})

	assert.True(t, res.AllFailed)
	assert.Empty(t, res.Failures, "an empty page is not a failure")
	assert.Equal(t, "no usable text extracted from any page", res.Text)
}

func TestRunSkipsEmptyPageSilently(t *testing.T) {
	ex := stubExtractor{texts: map[string]string{
		"p1": "opening scene",
		"p2": "12345 $$$", // stripped to nothing
		"p3": "closing scene",
	}}
	e := NewEngine(ex, passAll{}, discardLogger())

	res := e.Run(context.Background(), []string{"p1", "p2", "p3"})

	assert.False(t, res.AllFailed)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 2, res.PagesUsed)
	// The empty page contributes no boundary and no marker.
	assert.Equal(t, "opening scene"+PageBoundary+"closing scene", res.Text)
}

func TestRunFiltersImplausibleSegments(t *testing.T) {
	raw := "the night was dark and the street was empty\n\nxkcdqwrtplkzzz\n\nshe walked home along the river"
	ex := stubExtractor{texts: map[string]string{"p1": raw}}
	e := NewEngine(ex, GibberishClassifier{}, discardLogger(), WithDictionary(DefaultDictionary()))

	res := e.Run(context.Background(), []string{"p1"})

	assert.False(t, res.AllFailed)
	assert.NotContains(t, res.Text, "xkcdqwrtplkzzz")
	assert.Contains(t, res.Text, "the night was dark")
	assert.Contains(t, res.Text, "she walked home")
}

// slowExtractor tracks how many extractions run at once.
type slowExtractor struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowExtractor) Extract(ctx context.Context, ref string) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(20 * time.Millisecond):
		return "some page text here", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	ex := &slowExtractor{}
	e := NewEngine(ex, passAll{}, discardLogger(), WithConcurrency(2))

	pages := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	res := e.Run(context.Background(), pages)

	assert.False(t, res.AllFailed)
	assert.Equal(t, len(pages), res.PagesUsed)
	assert.LessOrEqual(t, ex.peak.Load(), int32(2), "fan-out must stay within the configured bound")
}

// blockedExtractor never returns until its context is cancelled.
type blockedExtractor struct{}

func (blockedExtractor) Extract(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunJobTimeoutMarksPagesTimedOut(t *testing.T) {
	e := NewEngine(blockedExtractor{}, passAll{}, discardLogger(),
		WithJobTimeout(50*time.Millisecond))

	res := e.Run(context.Background(), []string{"p1", "p2"})

	assert.True(t, res.AllFailed)
	require.Len(t, res.Failures, 2)
	for _, f := range res.Failures {
		assert.Contains(t, f.Reason, "timed out")
	}
}
