package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// PageBoundary separates the text of consecutive surviving pages in the
// assembled result. Pages yielding nothing contribute no boundary.
const PageBoundary = "\n\n----- page break -----\n\n"

// failureHeader delimits the per-page failure summary appended to a partial
// result.
const failureHeader = "----- extraction failures -----"

// PageFailure records one failed page: its 1-based position, its reference,
// and why it failed.
type PageFailure struct {
	Page   int
	Ref    string
	Reason string
}

// Result is the outcome of running one job.
type Result struct {
	// Text is the final result to persist: the assembled page text, with a
	// delimited failure summary appended when some pages failed, or the
	// failure summary alone when nothing survived.
	Text string
	// PagesUsed counts pages that contributed at least one segment.
	PagesUsed int
	Failures  []PageFailure
	// AllFailed is set when every page failed or yielded nothing; the job
	// should be recorded as failed rather than done.
	AllFailed bool
}

// Engine executes one claimed job: a bounded concurrent fan-out over the
// job's pages, per-page cleaning and filtering, and in-order reassembly.
type Engine struct {
	extractor  PageExtractor
	classifier Classifier
	dict       *Dictionary // nil disables the second-pass token check

	concurrency int
	pageTimeout time.Duration
	jobTimeout  time.Duration
	log         *slog.Logger
}

type EngineOption func(*Engine)

func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithPageTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.pageTimeout = d
		}
	}
}

func WithJobTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.jobTimeout = d
		}
	}
}

func WithDictionary(d *Dictionary) EngineOption {
	return func(e *Engine) { e.dict = d }
}

func NewEngine(extractor PageExtractor, classifier Classifier, log *slog.Logger, opts ...EngineOption) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		extractor:   extractor,
		classifier:  classifier,
		concurrency: 4,
		pageTimeout: 2 * time.Minute,
		jobTimeout:  30 * time.Minute,
		log:         log,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run fans out over the job's ordered pages with bounded concurrency and
// reassembles the surviving segments in original page order. Page failures
// are data, not faults: they end up in the result's failure summary, and the
// job still completes. The job-level timeout cancels outstanding pages,
// which are recorded as failed with a timeout reason.
func (e *Engine) Run(ctx context.Context, pages []string) Result {
	jobCtx, cancel := context.WithTimeout(ctx, e.jobTimeout)
	defer cancel()

	segsByPage := make([][]string, len(pages))
	errByPage := make([]error, len(pages))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range pages {
		i := i
		g.Go(func() error {
			if err := jobCtx.Err(); err != nil {
				errByPage[i] = fmt.Errorf("aborted: %w", err)
				return nil
			}
			pageCtx, cancelPage := context.WithTimeout(jobCtx, e.pageTimeout)
			defer cancelPage()
			segsByPage[i], errByPage[i] = e.processPage(pageCtx, pages[i])
			return nil
		})
	}
	_ = g.Wait()

	return e.assemble(pages, segsByPage, errByPage)
}

// processPage runs the per-page sub-task pipeline: extract raw text, split
// into segments, strip noise, drop empties, keep only plausible segments,
// and optionally apply the dictionary-ratio second pass.
func (e *Engine) processPage(ctx context.Context, ref string) ([]string, error) {
	raw, err := e.extractor.Extract(ctx, ref)
	if err != nil {
		return nil, err
	}
	var kept []string
	for _, seg := range SplitSegments(raw) {
		seg = strings.TrimSpace(StripNoise(seg))
		if seg == "" {
			continue
		}
		if !e.classifier.Plausible(PadForClassifier(seg)) {
			continue
		}
		if e.dict != nil && !e.dict.Sensible(seg) {
			continue
		}
		kept = append(kept, seg)
	}
	return kept, nil
}

func (e *Engine) assemble(pages []string, segsByPage [][]string, errByPage []error) Result {
	var (
		parts    []string
		failures []PageFailure
		used     int
	)
	for i := range pages {
		if err := errByPage[i]; err != nil {
			reason := err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				reason = "timed out: " + reason
			}
			failures = append(failures, PageFailure{Page: i + 1, Ref: pages[i], Reason: reason})
			continue
		}
		if len(segsByPage[i]) == 0 {
			// Nothing survived filtering; the page is skipped silently.
			continue
		}
		parts = append(parts, strings.Join(segsByPage[i], "\n"))
		used++
	}

	assembled := strings.Join(parts, PageBoundary)
	res := Result{PagesUsed: used, Failures: failures}

	switch {
	case assembled == "":
		res.AllFailed = true
		if len(failures) > 0 {
			res.Text = failureSummary(failures)
		} else {
			res.Text = "no usable text extracted from any page"
		}
	case len(failures) > 0:
		res.Text = assembled + "\n\n" + failureSummary(failures)
	default:
		res.Text = assembled
	}

	e.log.Info("job extraction finished",
		"pages", len(pages), "pages_used", used, "pages_failed", len(failures), "all_failed", res.AllFailed)
	return res
}

func failureSummary(failures []PageFailure) string {
	var b strings.Builder
	b.WriteString(failureHeader)
	for _, f := range failures {
		fmt.Fprintf(&b, "\npage %d (%s): %s", f.Page, f.Ref, f.Reason)
	}
	return b.String()
}
