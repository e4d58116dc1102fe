//go:build windows

package screen

import (
	"context"
	"image"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// Copies the selected screen into a bitmap with System.Drawing and saves it as PNG.
const windowsCaptureScript = `
Add-Type -AssemblyName System.Windows.Forms, System.Drawing
$screens = [System.Windows.Forms.Screen]::AllScreens
$idx = [int]$args[1]
if ($idx -ge $screens.Length) { $idx = 0 }
$b = $screens[$idx].Bounds
$bmp = New-Object System.Drawing.Bitmap $b.Width, $b.Height
$g = [System.Drawing.Graphics]::FromImage($bmp)
$g.CopyFromScreen($b.Location, [System.Drawing.Point]::Empty, $b.Size)
$bmp.Save($args[0], [System.Drawing.Imaging.ImageFormat]::Png)
$g.Dispose()
$bmp.Dispose()
`

type windowsBackend struct {
	tempDir string
	seq     atomic.Uint64
}

func newPlatformBackend(tempDir string) Backend {
	return &windowsBackend{tempDir: tempDir}
}

func (w *windowsBackend) CaptureImage(ctx context.Context, m Monitor) (*image.RGBA, error) {
	out := filepath.Join(w.tempDir, "screen-"+strconv.FormatUint(w.seq.Add(1), 10)+".png")
	return captureToFile(ctx, out, "powershell", "-NoProfile", "-NonInteractive",
		"-Command", "& {"+windowsCaptureScript+"}", out, strconv.Itoa(m.ID))
}

// TODO: enumerate top-level windows with EnumWindows + PrintWindow via x/sys/windows.
func (w *windowsBackend) CaptureVisibleWindows(context.Context) ([]WindowImage, error) {
	return nil, ErrWindowsUnsupported
}
