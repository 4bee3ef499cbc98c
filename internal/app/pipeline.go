package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"autodeck/internal/metrics"
	"autodeck/internal/model"
	"autodeck/internal/structurer"
	"autodeck/internal/theme"
)

const defaultBatchParallelism = 2

var validate = validator.New(validator.WithRequiredStructEnabled())

type Pipeline struct {
	service *Service
}

type GenerateResult struct {
	Path      string
	Title     string
	Slides    int
	Citations int
	// URL is set when the deck was uploaded.
	URL string
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service}
}

// Generate is shorthand for NewPipeline(svc).Generate returning the deck path.
func Generate(ctx context.Context, svc *Service, req model.TopicRequest) (string, error) {
	result, err := NewPipeline(svc).Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return result.Path, nil
}

func (pipeline *Pipeline) Generate(ctx context.Context, req model.TopicRequest) (*GenerateResult, error) {
	req = req.Normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	spec, err := theme.Resolve(req.Style)
	if err != nil {
		return nil, err
	}
	gateway, err := pipeline.service.Gateway(ctx, req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	svc := pipeline.service
	logger := slog.With("run_id", uuid.NewString())
	start := time.Now()
	status := "error"
	defer func() {
		metrics.ObserveGeneration(req.Provider, status, time.Since(start))
	}()

	logger.Info("Gathering research...", "topic", req.Topic)
	items := svc.gather(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("Structuring outline...", "provider", req.Provider, "slides", req.SlideCount)
	st := structurer.New(gateway, svc.prompts, structurer.Options{
		Retries:     svc.cfg.Retry.StructurerRetries,
		Parallelism: svc.cfg.Generation.Parallelism,
	})
	outline, err := st.Structure(ctx, req, items, spec)
	if err != nil {
		return nil, fmt.Errorf("structure outline: %w", err)
	}

	logger.Info("Rendering slides...", "slides", outline.SlideCount(), "style", spec.Name)
	deck, err := svc.renderer.Render(ctx, outline, spec, svc.resolverFor(req.Provider), items)
	if err != nil {
		return nil, err
	}
	data, err := svc.writer.Write(deck)
	if err != nil {
		return nil, err
	}

	// a cancelled run leaves nothing on disk
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := DeckPath(svc.storage.OutputDir(), req.Topic, req.OutputPath)
	saved, err := svc.storage.SaveDeck(data, path)
	if err != nil {
		return nil, &model.RenderError{Op: "write", Err: err}
	}
	logger.Info("Deck saved", "path", saved, "slides", len(deck.Slides))

	result := &GenerateResult{
		Path:      saved,
		Title:     deck.Title,
		Slides:    len(deck.Slides),
		Citations: deck.Citations(),
	}

	if svc.uploader != nil {
		logger.Info("Uploading deck...", "path", saved)
		url, err := svc.uploader.Upload(ctx, saved)
		if err != nil {
			return nil, &model.RenderError{Op: "upload", Err: err}
		}
		result.URL = url
	}

	status = "ok"
	return result, nil
}

type BatchResult struct {
	Request model.TopicRequest
	Result  *GenerateResult
	Err     error
}

// GenerateBatch runs every request through the same service with at most
// parallelism runs in flight. A failed run does not stop the others; results
// keep the order of reqs. No two decks of a batch share a file.
func (pipeline *Pipeline) GenerateBatch(ctx context.Context, reqs []model.TopicRequest, parallelism int) []BatchResult {
	if parallelism <= 0 {
		parallelism = defaultBatchParallelism
	}
	reqs = assignPaths(pipeline.service.storage.OutputDir(), reqs)

	results := make([]BatchResult, len(reqs))
	g := new(errgroup.Group)
	g.SetLimit(parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := pipeline.Generate(ctx, req)
			if err != nil {
				slog.Warn("Batch item failed", "topic", req.Topic, "error", err)
			}
			results[i] = BatchResult{Request: req, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func validateRequest(req model.TopicRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewConfigError("", "invalid request: %v", err)
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return model.NewConfigError(field, "must not be empty")
	case "gte", "lte":
		return model.NewConfigError(field, "must be between 1 and %d, got %v", model.MaxSlideCount, fe.Value())
	default:
		return model.NewConfigError(field, "failed %s validation", fe.Tag())
	}
}
