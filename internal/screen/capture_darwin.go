//go:build darwin

package screen

import (
	"context"
	"image"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

type darwinBackend struct {
	tempDir string
	seq     atomic.Uint64
}

func newPlatformBackend(tempDir string) Backend {
	return &darwinBackend{tempDir: tempDir}
}

// CaptureImage uses screencapture. -x: no sound, -m: main display, -D: display number (1-based).
func (d *darwinBackend) CaptureImage(ctx context.Context, m Monitor) (*image.RGBA, error) {
	out := filepath.Join(d.tempDir, "screen-"+strconv.FormatUint(d.seq.Add(1), 10)+".png")
	args := []string{"-x", "-t", "png"}
	if m.ID > 0 {
		args = append(args, "-D", strconv.Itoa(m.ID+1))
	} else {
		args = append(args, "-m")
	}
	return captureToFile(ctx, out, "screencapture", append(args, out)...)
}

func (d *darwinBackend) CaptureVisibleWindows(context.Context) ([]WindowImage, error) {
	return nil, ErrWindowsUnsupported
}
