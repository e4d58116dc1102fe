package sink

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return string(data)
}

func TestWriteFrame(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	w := NewWriter(dir)

	err := w.WriteFrame(t.Context(), 7,
		[]string{"new line"},
		[]string{"menu", "new line"},
		[]string{"menu"},
	)
	if err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	tests := []struct {
		category string
		want     string
	}{
		{CategoryNew, "new line\n"},
		{CategoryCurrent, "menu\nnew line\n"},
		{CategoryPrevious, "menu\n"},
	}
	for _, tt := range tests {
		if got := readFile(t, filepath.Join(dir, tt.category+"_7.txt")); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestWriteFrameWithoutPrevious(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	if err := w.WriteFrame(t.Context(), 1, nil, []string{"first"}, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := os.Stat(w.Path(CategoryPrevious, 1)); !os.IsNotExist(err) {
		t.Error("previous file should not be written on the first frame")
	}
	if got := readFile(t, w.Path(CategoryNew, 1)); got != "" {
		t.Errorf("new = %q, want empty file", got)
	}
}

func TestWriteFramePartialFailure(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	// A directory where the current file should go makes only that write fail.
	if err := os.Mkdir(w.Path(CategoryCurrent, 3), 0o755); err != nil {
		t.Fatal(err)
	}

	err := w.WriteFrame(t.Context(), 3, []string{"a"}, []string{"a", "b"}, []string{"b"})
	if !apperrors.IsCode(err, apperrors.CodeIOFailure) {
		t.Fatalf("err = %v, want IO_FAILURE", err)
	}
	if got := readFile(t, w.Path(CategoryNew, 3)); got != "a\n" {
		t.Errorf("new = %q, want %q", got, "a\n")
	}
	if got := readFile(t, w.Path(CategoryPrevious, 3)); got != "b\n" {
		t.Errorf("previous = %q, want %q", got, "b\n")
	}
}

func TestWriteFrameDirectoryFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWriter(filepath.Join(blocker, "out"))
	err := w.WriteFrame(t.Context(), 1, []string{"x"}, []string{"x"}, nil)
	if !apperrors.IsCode(err, apperrors.CodeIOFailure) {
		t.Errorf("err = %v, want IO_FAILURE", err)
	}
}

func TestNewWriterDefaultDir(t *testing.T) {
	if got := NewWriter("").Dir(); got != DefaultDir {
		t.Errorf("Dir() = %q, want %q", got, DefaultDir)
	}
	if got := NewWriter("").Path(CategoryNew, 12); got != filepath.Join(DefaultDir, "new_text_12.txt") {
		t.Errorf("Path = %q", got)
	}
}
