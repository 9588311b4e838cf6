package crawler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/aaofetch/internal/config"
	"github.com/nao1215/aaofetch/internal/model"
	"github.com/nao1215/aaofetch/internal/transport"
)

// Recorder receives an audit trail of a run. Recording failures are logged
// and never affect the crawl.
type Recorder interface {
	StartRun(ctx context.Context, run *model.RunResult) (int64, error)
	RecordDownload(ctx context.Context, runID int64, file *model.DownloadedFile) error
	FinishRun(ctx context.Context, run *model.RunResult) error
}

// Controller drives the crawl through the listing, one page at a time.
//
// State machine: a run starts Running and ends StoppedOk or StoppedError.
// The transition happens only in the per-page step.
type Controller struct {
	pages          PageFetcher
	docs           DocumentFetcher
	pacer          *Pacer
	emptyPageLimit int
	listingURL     string
	recorder       Recorder
	logger         *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPagePacer sets the delay applied before every page fetch.
func WithPagePacer(p *Pacer) ControllerOption {
	return func(c *Controller) {
		c.pacer = p
	}
}

// WithEmptyPageLimit sets how many consecutive pages without document links
// end the crawl.
func WithEmptyPageLimit(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.emptyPageLimit = n
		}
	}
}

// WithRecorder attaches an audit recorder.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithListingURL sets the URL reported in the RunResult.
func WithListingURL(u string) ControllerOption {
	return func(c *Controller) {
		c.listingURL = u
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller from its collaborators.
func NewController(pages PageFetcher, docs DocumentFetcher, opts ...ControllerOption) *Controller {
	c := &Controller{
		pages:          pages,
		docs:           docs,
		emptyPageLimit: config.DefaultEmptyPageLimit,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewControllerFromConfig wires a Controller with a Listing, a Downloader,
// pacers sharing one request-rate floor, and the robots policy when enabled.
func NewControllerFromConfig(cfg *config.Config, client *transport.Client, logger *slog.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = slog.Default()
	}

	var robots *RobotsPolicy
	if cfg.RespectRobots {
		robots = NewRobotsPolicy(client, cfg.UserAgent, logger)
	}

	limiter := NewRequestLimiter(cfg.MinRequestInterval)

	harvester := NewHarvester(
		WithContentRegion(cfg.ContentRegion),
		WithDocumentExtension(cfg.DocumentExtension),
	)

	listing := NewListing(client, cfg.ListingURL,
		WithListingParams(cfg.ListingParams),
		WithPageParam(cfg.PageParam),
		WithListingContentType(cfg.ListingContentType),
		WithMaxBodySize(cfg.MaxBodySize),
		WithHarvester(harvester),
		WithListingRobots(robots),
		WithListingLogger(logger),
	)

	downloader := NewDownloader(client, cfg.DownloadDir,
		WithDocumentPacer(NewPacer(limiter, cfg.DocumentDelay.Min, cfg.DocumentDelay.Max)),
		WithDocumentContentType(cfg.DocumentContentType),
		WithFileExtension(cfg.DocumentExtension),
		WithChunkSize(cfg.ChunkSize),
		WithDocumentRobots(robots),
		WithDownloaderLogger(logger),
	)

	base := []ControllerOption{
		WithPagePacer(NewPacer(limiter, cfg.PageDelay.Min, cfg.PageDelay.Max)),
		WithEmptyPageLimit(cfg.EmptyPageLimit),
		WithListingURL(cfg.ListingURL),
		WithControllerLogger(logger),
	}
	return NewController(listing, downloader, append(base, opts...)...)
}

// Run crawls pages 0..maxPages-1 until a stop condition fires.
//
// The returned RunResult is always non-nil and terminal. A non-nil error is
// returned only for fatal conditions: a storage failure (wrapping ErrStorage)
// or cancellation of ctx. A failed page fetch ends the run as StoppedError
// but is reported through the result and the log, not as an error.
func (c *Controller) Run(ctx context.Context, maxPages int) (*model.RunResult, error) {
	result := model.NewRunResult(c.listingURL)
	c.startRun(ctx, result)
	defer c.finishRun(ctx, result)

	c.logger.Info("crawl started", "listing", c.listingURL, "max_pages", maxPages)

	emptyStreak := 0
	for index := 0; ; index++ {
		if index >= maxPages {
			c.logger.Info("reached maximum page limit", "max_pages", maxPages)
			result.Stop(model.StateStoppedOk, model.ReasonMaxPages, nil)
			break
		}

		if err := c.pacer.Wait(ctx); err != nil {
			return c.interrupted(result, err)
		}

		page, err := c.pages.FetchPage(ctx, index)
		if err != nil {
			if ctx.Err() != nil {
				return c.interrupted(result, ctx.Err())
			}
			c.logger.Error("failed to fetch listing page", "page", index, "error", err)
			result.Stop(model.StateStoppedError, model.ReasonFetchFailed, err)
			break
		}

		result.PagesFetched++
		result.LinksFound += len(page.Links)
		c.logger.Info("page fetched", "page", index, "links", len(page.Links), "has_next", page.HasNext)

		if !page.HasLinks() {
			emptyStreak++
			c.logger.Info("no documents on page", "page", index, "consecutive", emptyStreak)
			if emptyStreak >= c.emptyPageLimit {
				c.logger.Info("consecutive pages without documents, assuming end of results", "pages", emptyStreak)
				result.Stop(model.StateStoppedOk, model.ReasonNoDocuments, nil)
				break
			}
		} else {
			emptyStreak = 0
			if err := c.downloadAll(ctx, result, page.Links); err != nil {
				if errors.Is(err, ErrStorage) {
					c.logger.Error("storage failure, stopping", "error", err)
					result.Stop(model.StateStoppedError, model.ReasonStorage, err)
					return result, err
				}
				return c.interrupted(result, err)
			}
		}

		if !page.HasNext {
			c.logger.Info("no next page, stopping", "page", index)
			result.Stop(model.StateStoppedOk, model.ReasonNoNextPage, nil)
			break
		}
	}

	c.logger.Info("crawl finished",
		"state", result.State.String(),
		"reason", string(result.Reason),
		"pages", result.PagesFetched,
		"downloaded", result.Downloaded,
		"already_present", result.AlreadyPresent,
		"failed", result.Failed,
	)
	return result, nil
}

// downloadAll hands every link to the DocumentFetcher in order. Individual
// failures are counted and logged. It returns only fatal errors: storage
// failures and context cancellation.
func (c *Controller) downloadAll(ctx context.Context, result *model.RunResult, links []string) error {
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}

		file, err := c.docs.Download(ctx, link)
		if err != nil {
			if errors.Is(err, ErrStorage) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.Failed++
			c.logger.Warn("download failed", "url", link, "error", err)
			continue
		}

		result.RecordFile(*file)
		if c.recorder != nil && !file.AlreadyPresent {
			if err := c.recorder.RecordDownload(ctx, result.ID, file); err != nil {
				c.logger.Warn("failed to record download", "file", file.Filename, "error", err)
			}
		}
	}
	return nil
}

// interrupted ends the run because ctx was cancelled.
func (c *Controller) interrupted(result *model.RunResult, err error) (*model.RunResult, error) {
	c.logger.Warn("crawl interrupted", "pages", result.PagesFetched)
	result.Stop(model.StateStoppedError, model.ReasonInterrupted, err)
	return result, err
}

// startRun registers the run with the recorder.
func (c *Controller) startRun(ctx context.Context, result *model.RunResult) {
	if c.recorder == nil {
		return
	}
	id, err := c.recorder.StartRun(ctx, result)
	if err != nil {
		c.logger.Warn("failed to record run start", "error", err)
		return
	}
	result.ID = id
}

// finishRun stores the final state with the recorder. Cancellation of ctx
// is detached so an interrupted run is still recorded.
func (c *Controller) finishRun(ctx context.Context, result *model.RunResult) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.FinishRun(context.WithoutCancel(ctx), result); err != nil {
		c.logger.Warn("failed to record run finish", "error", err)
	}
}
