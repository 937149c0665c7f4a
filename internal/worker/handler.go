package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/mapper"
	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/featurepic/pkg/resilience"
)

const (
	statusPublished = "published"
	statusDiscarded = "discarded"
	statusInvalid   = "invalid"
	statusFailed    = "failed"
)

type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

type ResultStore interface {
	Save(ctx context.Context, jobID, fingerprint string, results []mapper.Result) error
}

// Deps are the optional collaborators of a Handler. Nil fields are
// disabled.
type Deps struct {
	Cache      *mapper.ResultCache
	Store      ResultStore
	Metrics    *metrics.Metrics
	JobTimeout time.Duration
	Retry      resilience.RetryConfig
}

type Handler struct {
	engine    *mapper.Engine
	publisher Publisher
	deps      Deps
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandler(engine *mapper.Engine, publisher Publisher, deps Deps) *Handler {
	return &Handler{
		engine:    engine,
		publisher: publisher,
		deps:      deps,
		logger:    slog.Default().With("component", "map-worker"),
		now:       time.Now,
	}
}

// Handle processes one map job message. It satisfies kafka.MessageHandler.
// Malformed jobs return an error wrapping apperrors.ErrInvalidInput so the
// consumer skips them.
func (h *Handler) Handle(ctx context.Context, key, value []byte) error {
	job, err := kafka.DecodeJSON[MapJob](value)
	if err != nil {
		h.count(statusInvalid)
		return err
	}
	if job.JobID == "" {
		job.JobID = string(key)
	}
	if job.JobID == "" || job.Feature.ID == "" {
		h.count(statusInvalid)
		return apperrors.New(apperrors.ErrInvalidInput, "map job needs job_id and feature.id")
	}
	logger := h.logger.With("job_id", job.JobID, "feature_id", job.Feature.ID)

	opts := h.engine.Options()
	if job.RemoveDuplicatesInScan != nil {
		opts.RemoveDuplicatesInScan = *job.RemoveDuplicatesInScan
	}
	if job.RemoveOutliers != nil {
		opts.RemoveOutliers = *job.RemoveOutliers
	}

	result, cached, err := h.resolve(ctx, job, opts)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			h.count(statusInvalid)
		} else {
			h.count(statusFailed)
		}
		return fmt.Errorf("mapping job %s: %w", job.JobID, err)
	}
	if result.Discarded {
		h.count(statusDiscarded)
		logger.Info("feature discarded, nothing published")
		return nil
	}

	fingerprint := h.engine.Grid().Fingerprint()
	if h.deps.Store != nil {
		err := resilience.Retry(ctx, "store-result", h.deps.Retry, func() error {
			return h.deps.Store.Save(ctx, job.JobID, fingerprint, []mapper.Result{result})
		})
		if err != nil {
			h.count(statusFailed)
			return err
		}
	}

	event := kafka.Event{
		Key: job.JobID,
		Value: MapResult{
			JobID:       job.JobID,
			Fingerprint: fingerprint,
			Cached:      cached,
			MappedAt:    h.now().UTC(),
			Result:      result,
		},
	}
	err = resilience.Retry(ctx, "publish-result", h.deps.Retry, func() error {
		return h.publisher.Publish(ctx, event)
	})
	if err != nil {
		h.count(statusFailed)
		return err
	}
	h.count(statusPublished)
	logger.Info("map result published",
		"matched", result.Summary.Matched,
		"missing", result.Summary.Missing,
		"out_of_range", result.Summary.OutOfRange,
		"cached", cached,
	)
	return nil
}

func (h *Handler) resolve(ctx context.Context, job MapJob, opts mapper.Options) (mapper.Result, bool, error) {
	compute := func() (mapper.Result, error) {
		var result mapper.Result
		err := resilience.WithTimeout(ctx, h.deps.JobTimeout, "map-job", func(ctx context.Context) error {
			f, err := h.engine.MapFeatureWith(ctx, job.Feature, opts)
			if err != nil {
				return err
			}
			result = mapper.ResultOf(f)
			return nil
		})
		if err != nil {
			return mapper.Result{}, err
		}
		return result, nil
	}
	if h.deps.Cache == nil {
		result, err := compute()
		return result, false, err
	}
	key := mapper.Key(h.engine.Grid().Fingerprint(), job.Feature, opts)
	return h.deps.Cache.GetOrCompute(ctx, key, compute)
}

func (h *Handler) count(status string) {
	if h.deps.Metrics != nil {
		h.deps.Metrics.JobsTotal.WithLabelValues(status).Inc()
	}
}
