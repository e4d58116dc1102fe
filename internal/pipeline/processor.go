// Package pipeline drives the per-frame vision pipeline: capture, change scoring,
// keyframe tracking, OCR and downstream delivery.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/google/uuid"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/fingerprint"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/grpcclient"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/ocr"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/screen"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/similarity"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/syncx"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/trace"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/tracker"
)

// FrameCapturer produces frames.
type FrameCapturer interface {
	CaptureFrame(ctx context.Context, m screen.Monitor) (*screen.CaptureResult, error)
}

// TextWriter persists a frame's new/current/previous lines.
type TextWriter interface {
	WriteFrame(ctx context.Context, frame uint64, newLines, current, previous []string) error
}

// IndexQueue accepts frame text for the downstream indexer.
type IndexQueue interface {
	Add(item grpcclient.IndexItem)
}

// Options tunes frame processing.
type Options struct {
	Monitor        screen.Monitor
	CaptureTimeout time.Duration
	OCR            ocr.Config

	// OCR is skipped when the frame is perceptually the same as the last OCR'd frame
	// (pHash distance <= MaxHashDistance) and its change score is below ChangeThreshold.
	ChangeThreshold float64
	MaxHashDistance int

	SkipIdenticalFrames bool
	KeyframeWindow      int  // 0 disables automatic keyframe resets
	SaveTextFiles       bool // initial saving state
}

// FrameResult describes one processed frame.
type FrameResult struct {
	Frame           uint64            `json:"frame"`
	CapturedAt      time.Time         `json:"captured_at"`
	CaptureDuration time.Duration     `json:"capture_duration"`
	Fingerprint     uint64            `json:"fingerprint"`
	Identical       bool              `json:"identical"`
	Compared        bool              `json:"compared"`
	Similarity      similarity.Result `json:"similarity"`
	MaxFrame        uint64            `json:"max_frame"`
	MaxScore        float64           `json:"max_score"`
	OCRSkipped      bool              `json:"ocr_skipped"`
	OCRError        string            `json:"ocr_error,omitempty"`
	Lines           []ocr.LineRecord  `json:"lines"`
	NewLines        []ocr.LineRecord  `json:"new_lines"`
	Text            string            `json:"text"`
	Windows         int               `json:"windows"`
}

// State is what readers outside the driving goroutine see.
type State struct {
	Last          *FrameResult
	Image         *image.RGBA
	Keyframe      tracker.Keyframe
	HasKeyframe   bool
	KeyframeImage *image.RGBA
	Saving        bool
}

// Processor runs the frame pipeline. ProcessFrame and Run must be called from a single
// goroutine; the accessors are safe from any goroutine.
type Processor struct {
	capturer  FrameCapturer
	extractor ocr.Extractor
	writer    TextWriter
	index     IndexQueue
	history   *History
	opts      Options
	session   string

	// driver-goroutine state
	frame      uint64
	prevImage  *image.RGBA
	prevHash   uint64
	ocrHash    *goimagehash.ImageHash
	prevLines  []ocr.LineRecord
	prevText   string
	ocrFrames  int
	tracker    *tracker.Tracker
	keyframeIm *image.RGBA

	state *syncx.RWGuard[State]
}

// NewProcessor creates a processor. writer and index may be nil.
func NewProcessor(capturer FrameCapturer, extractor ocr.Extractor, writer TextWriter, index IndexQueue, opts Options) *Processor {
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = DefaultCaptureTimeout
	}
	return &Processor{
		capturer:  capturer,
		extractor: extractor,
		writer:    writer,
		index:     index,
		history:   NewHistory(HistoryMaxEntries, HistoryEventBuffer),
		opts:      opts,
		session:   uuid.NewString(),
		tracker:   tracker.New(),
		state:     syncx.NewGuard(State{Saving: opts.SaveTextFiles}),
	}
}

// Session identifies this processor's run in events and index items.
func (p *Processor) Session() string { return p.session }

// History returns the frame history.
func (p *Processor) History() *History { return p.history }

// Events returns the frame event stream.
func (p *Processor) Events() <-chan Event { return p.history.Events() }

// Recent returns up to n of the newest OCR'd frames.
func (p *Processor) Recent(n int) []Entry { return p.history.Recent(n) }

// Snapshot returns the published state and its version.
func (p *Processor) Snapshot() (State, uint64) { return p.state.Load() }

// SetSaving toggles per-frame text files.
func (p *Processor) SetSaving(enabled bool) {
	p.state.Write(func(s *State) { s.Saving = enabled })
}

// Run processes a frame every interval until ctx is done.
func (p *Processor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("frame pipeline started", "session", p.session, "interval", interval, "ocr", p.extractor.Name())
	for {
		select {
		case <-ctx.Done():
			slog.Info("frame pipeline stopped", "session", p.session, "frames", p.frame)
			return
		case <-ticker.C:
			if _, err := p.ProcessFrame(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("frame failed", "error", err)
			}
		}
	}
}

// ProcessFrame captures and processes one frame.
func (p *Processor) ProcessFrame(ctx context.Context) (*FrameResult, error) {
	ctx, span := trace.StartSpan(ctx, "process_frame")
	defer span.End()
	log := trace.Logger(ctx)

	captureCtx, cancel := context.WithTimeout(ctx, p.opts.CaptureTimeout)
	capture, err := p.capturer.CaptureFrame(captureCtx, p.opts.Monitor)
	cancel()
	if err != nil {
		span.SetAttr("error", err.Error())
		return nil, err
	}

	p.frame++
	span.SetAttr("frame", p.frame)
	res := &FrameResult{
		Frame:           p.frame,
		CapturedAt:      capture.CapturedAt,
		CaptureDuration: capture.Duration,
		Fingerprint:     capture.Fingerprint,
		Windows:         len(capture.Windows),
	}

	if p.opts.SkipIdenticalFrames && p.prevImage != nil && capture.Fingerprint == p.prevHash {
		// Byte-identical frames score 0 without running either metric.
		res.Identical = true
		res.Compared = true
		res.Similarity = similarity.Result{Structural: 1}
		if p.tracker.Observe(res.Frame, 0) {
			p.keyframeIm = capture.Image
		}
		res.MaxFrame, res.MaxScore = p.tracker.MaxOrdinal(), p.tracker.MaxScore()
		res.Lines, res.Text, res.OCRSkipped = p.prevLines, p.prevText, true
		log.Debug("identical frame", "frame", p.frame)
		p.publish(res, capture.Image)
		p.rollKeyframeWindow()
		return res, nil
	}

	if err := p.score(ctx, res, capture.Image); err != nil {
		return nil, err
	}

	if p.shouldSkipOCR(res, capture.Image) {
		res.OCRSkipped = true
		res.Lines, res.Text = p.prevLines, p.prevText
	} else {
		p.recognize(ctx, res, capture.Image)
	}

	p.prevImage = capture.Image
	p.prevHash = capture.Fingerprint
	p.publish(res, capture.Image)
	p.rollKeyframeWindow()
	return res, nil
}

// score compares the frame with the previous one and feeds the tracker.
// A dimension change skips the comparison; the frame still counts with score 0.
func (p *Processor) score(ctx context.Context, res *FrameResult, img *image.RGBA) error {
	log := trace.Logger(ctx)

	var prev image.Image
	if p.prevImage != nil {
		prev = p.prevImage
	}
	sim, err := similarity.Compare(prev, img)
	switch {
	case apperrors.IsCode(err, apperrors.CodeDimensionMismatch):
		log.Warn("frame dimensions changed, skipping comparison", "frame", res.Frame,
			"previous", p.prevImage.Rect.Size(), "current", img.Rect.Size())
	case err != nil:
		return err
	default:
		res.Similarity = sim
		res.Compared = prev != nil
	}

	if p.tracker.Observe(res.Frame, res.Similarity.Score) {
		p.keyframeIm = img
	}
	res.MaxFrame, res.MaxScore = p.tracker.MaxOrdinal(), p.tracker.MaxScore()

	log.Debug("frame compared",
		"frame", res.Frame,
		"histogram_diff", res.Similarity.Histogram,
		"ssim_diff", 1-res.Similarity.Structural,
		"current_average", res.Similarity.Score,
		"max_average", res.MaxScore,
		"max_frame", res.MaxFrame,
	)
	return nil
}

func (p *Processor) shouldSkipOCR(res *FrameResult, img *image.RGBA) bool {
	hash, err := fingerprint.Perceptual(img)
	if err != nil {
		return false
	}
	if p.ocrHash == nil || res.Similarity.Score >= p.opts.ChangeThreshold {
		p.ocrHash = hash
		return false
	}
	dist, err := fingerprint.Distance(p.ocrHash, hash)
	if err != nil || dist > p.opts.MaxHashDistance {
		p.ocrHash = hash
		return false
	}
	slog.Debug("skipping OCR for similar frame", "frame", res.Frame, "distance", dist)
	return true
}

// recognize runs OCR, diffs against the previous OCR'd frame and hands the text on.
// OCR failures are scoped to the frame: they are logged and published, not returned.
func (p *Processor) recognize(ctx context.Context, res *FrameResult, img *image.RGBA) {
	log := trace.Logger(ctx)

	tokens, err := p.extractor.ExtractTokens(ctx, img, p.opts.OCR)
	if err != nil {
		res.OCRError = err.Error()
		res.Lines, res.Text = p.prevLines, p.prevText
		p.ocrHash = nil
		log.Warn("ocr failed", "frame", res.Frame, "engine", p.extractor.Name(), "error", err)
		p.history.Emit(Event{Type: EventOCRError, Session: p.session, Frame: res.Frame, Error: err.Error(), Timestamp: time.Now()})
		return
	}

	var previous []string
	if p.ocrFrames > 0 {
		previous = ocr.Lines(p.prevLines)
	}
	res.Lines = ocr.Reconstruct(tokens)
	res.NewLines = ocr.NewLines(p.prevLines, res.Lines)
	res.Text = ocr.FullText(tokens)
	p.prevLines, p.prevText = res.Lines, res.Text
	p.ocrFrames++

	newText := ocr.Lines(res.NewLines)
	if p.saving() && p.writer != nil {
		// The writer logs its own failures.
		_ = p.writer.WriteFrame(ctx, res.Frame, newText, ocr.Lines(res.Lines), previous)
	}

	if p.index != nil && len(res.NewLines) > 0 && len(res.Text) >= MinIndexTextLength {
		p.index.Add(grpcclient.IndexItem{
			ID:         uuid.NewString(),
			SessionID:  p.session,
			Frame:      res.Frame,
			Monitor:    monitorName(p.opts.Monitor),
			Text:       res.Text,
			Lines:      ocr.Lines(res.Lines),
			NewLines:   newText,
			Score:      res.Similarity.Score,
			CapturedAt: res.CapturedAt,
		})
	}

	p.history.Add(Entry{
		Frame:     res.Frame,
		Timestamp: res.CapturedAt,
		Text:      res.Text,
		Lines:     ocr.Lines(res.Lines),
		NewLines:  newText,
		Score:     res.Similarity.Score,
	})
	log.Debug("frame recognized", "frame", res.Frame, "lines", len(res.Lines), "new_lines", len(res.NewLines))
}

// rollKeyframeWindow closes the window after KeyframeWindow observations.
func (p *Processor) rollKeyframeWindow() {
	if p.opts.KeyframeWindow <= 0 || p.tracker.Observations() < p.opts.KeyframeWindow {
		return
	}
	if kf, ok := p.tracker.Max(); ok {
		p.history.Emit(Event{Type: EventKeyframe, Session: p.session, Frame: kf.Ordinal, Score: kf.Score, Timestamp: kf.ObservedAt})
	}
	p.tracker.Reset()
}

func (p *Processor) publish(res *FrameResult, img *image.RGBA) {
	kf, ok := p.tracker.Max()
	kfImage := p.keyframeIm
	p.state.Write(func(s *State) {
		s.Last = res
		s.Image = img
		s.Keyframe = kf
		s.HasKeyframe = ok
		s.KeyframeImage = kfImage
	})
	p.history.Emit(Event{
		Type:      EventFrame,
		Session:   p.session,
		Frame:     res.Frame,
		Score:     res.Similarity.Score,
		Text:      res.Text,
		NewLines:  ocr.Lines(res.NewLines),
		Timestamp: res.CapturedAt,
	})
}

func (p *Processor) saving() bool {
	return syncx.View(p.state, func(s State) bool { return s.Saving })
}

func monitorName(m screen.Monitor) string {
	if m.Name != "" {
		return m.Name
	}
	return "primary"
}
