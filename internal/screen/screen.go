// Package screen captures monitor and window images through platform backends.
package screen

import (
	"context"
	stderrors "errors"
	"image"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/fingerprint"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/trace"
)

// ErrWindowsUnsupported is returned by backends that cannot enumerate windows.
var ErrWindowsUnsupported = stderrors.New("per-window capture not supported")

// Monitor identifies the display to capture. Name is backend specific (an output
// name on Wayland); ID is a 0-based display index.
type Monitor struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// WindowImage is one visible window captured alongside the primary image.
type WindowImage struct {
	Image   *image.RGBA
	Title   string
	AppID   string
	Focused bool
}

// CaptureResult is one frame. The images are never mutated after capture.
type CaptureResult struct {
	Image       *image.RGBA
	Windows     []WindowImage
	Fingerprint uint64
	Duration    time.Duration // primary capture plus hashing
	CapturedAt  time.Time
}

// Backend implements platform-specific capture.
type Backend interface {
	CaptureImage(ctx context.Context, m Monitor) (*image.RGBA, error)
	CaptureVisibleWindows(ctx context.Context) ([]WindowImage, error)
}

// Capturer produces frames from a Backend.
type Capturer struct {
	backend Backend
	tempDir string

	unsupportedOnce sync.Once
}

// New creates a capturer over b.
func New(b Backend) *Capturer {
	return &Capturer{backend: b}
}

// NewPlatform creates a capturer over the backend for the running OS.
func NewPlatform() *Capturer {
	tmpDir, err := os.MkdirTemp("", "vision-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	c := New(newPlatformBackend(tmpDir))
	c.tempDir = tmpDir
	return c
}

// CaptureFrame captures the monitor and the visible windows concurrently.
// A primary failure fails the call and cancels the window capture. A window failure is
// logged and leaves Windows empty.
func (c *Capturer) CaptureFrame(ctx context.Context, m Monitor) (*CaptureResult, error) {
	g, gctx := errgroup.WithContext(ctx)

	res := &CaptureResult{CapturedAt: time.Now()}
	var winErr error

	g.Go(func() error {
		start := time.Now()
		img, err := c.backend.CaptureImage(gctx, m)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeCaptureFailed, "capture monitor").
				WithMetadata("monitor", monitorLabel(m))
		}
		if img == nil {
			return apperrors.New(apperrors.CodeCaptureFailed, "backend returned no image").
				WithMetadata("monitor", monitorLabel(m))
		}
		res.Image = img
		res.Fingerprint = fingerprint.Hash(img)
		res.Duration = time.Since(start)
		return nil
	})
	g.Go(func() error {
		res.Windows, winErr = c.backend.CaptureVisibleWindows(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if winErr != nil {
		res.Windows = nil
		c.logWindowError(ctx, winErr)
	}
	return res, nil
}

func (c *Capturer) logWindowError(ctx context.Context, err error) {
	if stderrors.Is(err, ErrWindowsUnsupported) {
		c.unsupportedOnce.Do(func() {
			trace.Logger(ctx).Debug("window capture unavailable", "error", err)
		})
		return
	}
	werr := apperrors.Wrap(err, apperrors.CodeSecondaryCaptureFailed, "capture windows")
	trace.Logger(ctx).Warn("failed to capture window images", "error", werr)
}

// Close removes the capturer's temp directory.
func (c *Capturer) Close() {
	if c.tempDir != "" && c.tempDir != os.TempDir() {
		os.RemoveAll(c.tempDir)
	}
}

func monitorLabel(m Monitor) string {
	if m.Name != "" {
		return m.Name
	}
	return "display-" + strconv.Itoa(m.ID)
}
