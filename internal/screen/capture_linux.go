//go:build linux

package screen

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

type linuxBackend struct {
	tempDir string
	seq     atomic.Uint64
}

func newPlatformBackend(tempDir string) Backend {
	return &linuxBackend{tempDir: tempDir}
}

func (l *linuxBackend) tempFile(prefix string) string {
	return filepath.Join(l.tempDir, prefix+"-"+strconv.FormatUint(l.seq.Add(1), 10)+".png")
}

// CaptureImage prefers grim on Wayland, then gnome-screenshot, then scrot.
func (l *linuxBackend) CaptureImage(ctx context.Context, m Monitor) (*image.RGBA, error) {
	out := l.tempFile("screen")
	switch {
	case os.Getenv("WAYLAND_DISPLAY") != "" && hasTool("grim"):
		args := []string{}
		if m.Name != "" {
			args = append(args, "-o", m.Name)
		}
		return captureToFile(ctx, out, "grim", append(args, out)...)
	case hasTool("gnome-screenshot"):
		return captureToFile(ctx, out, "gnome-screenshot", "-f", out)
	case hasTool("scrot"):
		return captureToFile(ctx, out, "scrot", "-o", out)
	default:
		return nil, fmt.Errorf("no screenshot tool found (install grim, gnome-screenshot or scrot)")
	}
}

// hyprClient is the subset of `hyprctl clients -j` we use.
type hyprClient struct {
	At             [2]int `json:"at"`
	Size           [2]int `json:"size"`
	Title          string `json:"title"`
	Class          string `json:"class"`
	Mapped         bool   `json:"mapped"`
	Hidden         bool   `json:"hidden"`
	FocusHistoryID int    `json:"focusHistoryID"`
}

// CaptureVisibleWindows crops each mapped Hyprland client with grim.
func (l *linuxBackend) CaptureVisibleWindows(ctx context.Context) ([]WindowImage, error) {
	if !hasTool("hyprctl") || !hasTool("grim") {
		return nil, ErrWindowsUnsupported
	}
	raw, err := exec.CommandContext(ctx, "hyprctl", "clients", "-j").Output()
	if err != nil {
		return nil, fmt.Errorf("hyprctl clients: %w", err)
	}
	var clients []hyprClient
	if err := json.Unmarshal(raw, &clients); err != nil {
		return nil, fmt.Errorf("parse hyprctl clients: %w", err)
	}

	var windows []WindowImage
	for _, c := range clients {
		if !c.Mapped || c.Hidden || c.Size[0] <= 0 || c.Size[1] <= 0 {
			continue
		}
		geometry := fmt.Sprintf("%d,%d %dx%d", c.At[0], c.At[1], c.Size[0], c.Size[1])
		out := l.tempFile("window")
		img, err := captureToFile(ctx, out, "grim", "-g", geometry, out)
		if err != nil {
			return nil, fmt.Errorf("capture window %q: %w", c.Title, err)
		}
		windows = append(windows, WindowImage{
			Image:   img,
			Title:   c.Title,
			AppID:   c.Class,
			Focused: c.FocusHistoryID == 0,
		})
	}
	return windows, nil
}
