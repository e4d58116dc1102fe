//go:build !windows && !darwin

package ocr

import (
	"context"
	"os/exec"
	"runtime"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

const nativeEngine = ""

func nativeCommand(context.Context, string, string) (*exec.Cmd, error) {
	return nil, apperrors.Newf(apperrors.CodeOCRUnavailable, "native ocr not supported on %s", runtime.GOOS)
}
