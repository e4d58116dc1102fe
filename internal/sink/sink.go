// Package sink writes per-frame text output to disk.
package sink

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/trace"
)

// DefaultDir is relative to the working directory.
const DefaultDir = "text_json"

// Category names, also used as file name prefixes.
const (
	CategoryNew      = "new_text"
	CategoryCurrent  = "current_text"
	CategoryPrevious = "previous_text"
)

const filePerm = 0o644

// Writer writes new/current/previous line sets for a frame as text files, one line per row.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir (DefaultDir when empty).
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = DefaultDir
	}
	return &Writer{dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// WriteFrame writes {category}_{frame}.txt for each category. previous is skipped when nil.
// The directory is created on demand; failing that aborts the frame. Each file is
// attempted independently and failures are joined.
func (w *Writer) WriteFrame(ctx context.Context, frame uint64, newLines, current, previous []string) error {
	log := trace.Logger(ctx)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		appErr := apperrors.Wrap(err, apperrors.CodeIOFailure, "create output directory").
			WithMetadata("dir", w.dir)
		log.Error("failed to create text output directory", "error", appErr)
		return appErr
	}

	type file struct {
		category string
		lines    []string
	}
	files := []file{
		{CategoryNew, newLines},
		{CategoryCurrent, current},
	}
	if previous != nil {
		files = append(files, file{CategoryPrevious, previous})
	}

	var errs []error
	for _, f := range files {
		path := w.Path(f.category, frame)
		if err := os.WriteFile(path, []byte(joinLines(f.lines)), filePerm); err != nil {
			appErr := apperrors.Wrap(err, apperrors.CodeIOFailure, "write text file").
				WithMetadata("path", path)
			log.Error("failed to write text file", "category", f.category, "frame", frame, "error", appErr)
			errs = append(errs, appErr)
			continue
		}
		log.Debug("wrote text file", "path", path, "lines", len(f.lines))
	}
	return stderrors.Join(errs...)
}

// joinLines terminates every line with a newline.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Path returns the file path for a category and frame.
func (w *Writer) Path(category string, frame uint64) string {
	return filepath.Join(w.dir, category+"_"+strconv.FormatUint(frame, 10)+".txt")
}
