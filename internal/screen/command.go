package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strings"
)

// captureToFile runs a capture tool that writes an image to path, then decodes it.
func captureToFile(ctx context.Context, path, name string, args ...string) (*image.RGBA, error) {
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return DecodeFile(path)
}

func hasTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
