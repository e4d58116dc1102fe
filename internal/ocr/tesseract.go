package ocr

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

// Tesseract extracts word tokens by shelling out to the tesseract CLI in TSV mode.
type Tesseract struct {
	// Binary is the tesseract executable (default: tesseract on PATH)
	Binary string
}

// NewTesseract creates a tesseract extractor.
func NewTesseract() *Tesseract {
	return &Tesseract{Binary: "tesseract"}
}

// Name returns the engine name.
func (t *Tesseract) Name() string { return EngineTesseract }

// Available reports whether the tesseract binary can be found.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.Binary)
	return err == nil
}

// ExtractTokens runs tesseract on img and parses its TSV output.
func (t *Tesseract) ExtractTokens(ctx context.Context, img image.Image, cfg Config) ([]Token, error) {
	if !t.Available() {
		return nil, apperrors.Newf(apperrors.CodeOCRUnavailable, "%s not installed", t.Binary)
	}

	var input bytes.Buffer
	if err := png.Encode(&input, img); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIncompatibleInput, "encode image for tesseract")
	}

	cmd := exec.CommandContext(ctx, t.Binary, tesseractArgs(cfg)...)
	cmd.Stdin = &input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "tesseract failed").
			WithMetadata("stderr", strings.TrimSpace(stderr.String()))
	}

	tokens, err := ParseTSV(&stdout)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "parse tesseract tsv")
	}
	return tokens, nil
}

// tesseractArgs builds: stdin stdout -l LANG --dpi N --psm N --oem N [-c k=v ...] tsv
func tesseractArgs(cfg Config) []string {
	args := []string{"stdin", "stdout"}
	if cfg.Language != "" {
		args = append(args, "-l", cfg.Language)
	}
	if cfg.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(cfg.DPI))
	}
	args = append(args,
		"--psm", strconv.Itoa(cfg.PageSegMode),
		"--oem", strconv.Itoa(int(cfg.EngineMode)),
	)

	keys := make([]string, 0, len(cfg.Variables))
	for k := range cfg.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-c", k+"="+cfg.Variables[k])
	}
	return append(args, "tsv")
}

// tsvColumns is the tesseract TSV header layout.
var tsvColumns = []string{
	"level", "page_num", "block_num", "par_num", "line_num", "word_num",
	"left", "top", "width", "height", "conf", "text",
}

// ParseTSV reads tesseract TSV output into tokens, one per data row, in order.
// Structural rows (pages, blocks, paragraphs, lines) have word_num 0 and conf -1.
func ParseTSV(r io.Reader) ([]Token, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var tokens []Token
	header := true
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), "\r")
		if row == "" {
			continue
		}
		fields := strings.SplitN(row, "\t", len(tsvColumns))
		if header {
			header = false
			if fields[0] == tsvColumns[0] {
				continue
			}
		}
		tok, err := parseTSVRow(fields)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeOCRExtractFailed, "tsv line %d", line)
		}
		tokens = append(tokens, tok)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

func parseTSVRow(fields []string) (Token, error) {
	if len(fields) < len(tsvColumns)-1 {
		return Token{}, apperrors.Newf(apperrors.CodeOCRExtractFailed, "want %d columns, got %d", len(tsvColumns), len(fields))
	}

	ints := make([]int, 10)
	for i := range ints {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return Token{}, err
		}
		ints[i] = v
	}
	conf, err := strconv.ParseFloat(strings.TrimSpace(fields[10]), 64)
	if err != nil {
		return Token{}, err
	}
	var text string
	if len(fields) == len(tsvColumns) {
		text = fields[11]
	}

	return Token{
		Text:       text,
		Confidence: conf,
		Position: Position{
			Level:     ints[0],
			Page:      ints[1],
			Block:     ints[2],
			Paragraph: ints[3],
			Line:      ints[4],
			Word:      ints[5],
		},
		Box: image.Rect(ints[6], ints[7], ints[6]+ints[8], ints[7]+ints[9]),
	}, nil
}
