// Package pipeline drives the multi-provider recognition pipeline: window
// scheduling over frames, per-recognizer outcome collection, and assembly of
// the final response.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/wangpeng1017/demoocr/internal/config"
	"github.com/wangpeng1017/demoocr/internal/extract"
	"github.com/wangpeng1017/demoocr/internal/frames"
	"github.com/wangpeng1017/demoocr/internal/models"
	"github.com/wangpeng1017/demoocr/internal/recognizer"
)

// ErrUnsupportedMedia marks uploads that are neither image/* nor video/*.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// rawTextSeparator joins per-frame raw text inside one recognizer's summary.
const rawTextSeparator = "\n---\n"

// Service runs recognition requests against a fixed recognizer registry.
// All fields are read-only after construction, so one Service serves
// concurrent requests without locking.
type Service struct {
	recognizers []recognizer.Recognizer
	window      int
	fps         int
	maxFrames   int

	extractFrames func(ctx context.Context, video []byte, opts frames.Options) ([][]byte, error)
}

func New(cfg config.Config) *Service {
	return &Service{
		recognizers:   recognizer.Registry(cfg),
		window:        cfg.FrameConcurrency,
		fps:           cfg.TargetFPS,
		maxFrames:     cfg.MaxFrames,
		extractFrames: frames.Extract,
	}
}

// Process routes an upload by media type: video/* through frame extraction,
// image/* as a single frame. Frame-extraction failure is fatal to the whole
// request; individual recognizer failures are not.
func (s *Service) Process(ctx context.Context, data []byte, mimeType, filename string) (*models.ProcessResult, error) {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		frameSeq, err := s.extractFrames(ctx, data, frames.Options{FPS: s.fps, MaxFrames: s.maxFrames})
		if err != nil {
			return nil, fmt.Errorf("frame extraction failed: %w", err)
		}
		input := models.ProcessInput{Kind: models.InputVideo, Filename: filename, FramesProcessed: len(frameSeq)}
		return s.run(ctx, input, frameSeq, "image/jpeg"), nil
	case strings.HasPrefix(mimeType, "image/"):
		input := models.ProcessInput{Kind: models.InputImage, Filename: filename}
		return s.run(ctx, input, [][]byte{data}, mimeType), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mimeType)
	}
}

func (s *Service) run(ctx context.Context, input models.ProcessInput, frameSeq [][]byte, mimeType string) *models.ProcessResult {
	slog.Info("Running recognition pipeline",
		"input", input.Kind, "filename", input.Filename,
		"frames", len(frameSeq), "recognizers", len(s.recognizers), "window", s.window)

	outcomes := s.schedule(ctx, frameSeq, mimeType)
	summaries, records := s.collect(outcomes)
	return assemble(input, summaries, records)
}

// schedule partitions the frame sequence into contiguous windows of
// s.window frames and processes windows sequentially. Within a window all
// (frame, recognizer) invocations run concurrently and every one settles
// before the next window starts, bounding peak outbound calls to
// window x |recognizers|. Returns one outcome slot per (frame, recognizer),
// indexed by frame then registration order.
func (s *Service) schedule(ctx context.Context, frameSeq [][]byte, mimeType string) [][]recognizer.Outcome {
	outcomes := make([][]recognizer.Outcome, len(frameSeq))
	for i := range outcomes {
		outcomes[i] = make([]recognizer.Outcome, len(s.recognizers))
	}

	for start := 0; start < len(frameSeq); start += s.window {
		end := min(start+s.window, len(frameSeq))

		var wg sync.WaitGroup
		for fi := start; fi < end; fi++ {
			for ri, rec := range s.recognizers {
				wg.Add(1)
				go func(fi, ri int, rec recognizer.Recognizer) {
					defer wg.Done()
					// Each goroutine owns exactly one slot; wg.Wait orders
					// these writes before the collection pass reads them.
					outcomes[fi][ri] = recognizer.Invoke(ctx, rec, frameSeq[fi], mimeType)
				}(fi, ri, rec)
			}
		}
		wg.Wait()
	}

	return outcomes
}

// collect folds the settled outcome grid into one summary per recognizer
// plus the flat record sequence feeding deduplication. Records keep frame
// order first, registration order second. A recognizer counts as successful
// if any frame succeeded; one that fails on every frame gets an explicit
// failure entry carrying its last error. Zero frames yield an empty summary
// map.
func (s *Service) collect(outcomes [][]recognizer.Outcome) (map[string]models.RecognizerSummary, []models.ProductRecord) {
	type fold struct {
		succeeded  bool
		durationMs int64
		rawParts   []string
		lastErr    string
	}

	folds := make([]fold, len(s.recognizers))
	var records []models.ProductRecord

	for _, frameOutcomes := range outcomes {
		for ri := range s.recognizers {
			o := frameOutcomes[ri]
			f := &folds[ri]
			f.durationMs += o.DurationMs
			if o.Status == models.StatusSuccess {
				f.succeeded = true
				if o.RawText != "" {
					f.rawParts = append(f.rawParts, o.RawText)
				}
				records = append(records, o.Records...)
			} else {
				f.lastErr = o.Error
			}
		}
	}

	summaries := make(map[string]models.RecognizerSummary, len(s.recognizers))
	if len(outcomes) == 0 {
		return summaries, records
	}

	for ri, rec := range s.recognizers {
		f := folds[ri]
		summary := models.RecognizerSummary{
			Name:       rec.Name(),
			Kind:       rec.Kind(),
			DurationMs: f.durationMs,
		}
		if f.succeeded {
			summary.Status = models.StatusSuccess
			summary.RawText = strings.Join(f.rawParts, rawTextSeparator)
		} else {
			summary.Status = models.StatusFailure
			summary.Error = f.lastErr
		}
		summaries[string(rec.Key())] = summary
	}

	return summaries, records
}

// assemble is a pure transform; any failure here would be a programming
// defect rather than a runtime condition.
func assemble(input models.ProcessInput, summaries map[string]models.RecognizerSummary, records []models.ProductRecord) *models.ProcessResult {
	return &models.ProcessResult{
		Input:       input,
		Recognizers: summaries,
		Aggregated: models.AggregatedResult{
			Items:     extract.Dedupe(records),
			DedupedBy: extract.DedupedBy,
		},
	}
}
