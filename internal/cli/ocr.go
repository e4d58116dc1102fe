package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/good-listener/backend/vision/internal/config"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/grpcclient"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/ocr"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/screen"
)

var (
	ocrEngine   string
	ocrLanguage string
	ocrJSON     bool
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image]",
	Short: "Extract line-grouped text from an image",
	Long: `Runs the configured OCR engine on an image file and prints one line per
recognized text line with its mean confidence.`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

func init() {
	ocrCmd.Flags().StringVarP(&ocrEngine, "engine", "e", "", "OCR engine (tesseract, windows, apple, unstructured)")
	ocrCmd.Flags().StringVarP(&ocrLanguage, "lang", "l", "", "OCR language")
	ocrCmd.Flags().BoolVar(&ocrJSON, "json", false, "output line records as JSON")
	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ocrEngine != "" {
		cfg.OCR.Engine = ocrEngine
	}
	if ocrLanguage != "" {
		cfg.OCR.Language = ocrLanguage
	}

	extractor, closeFn, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	img, err := screen.DecodeFile(args[0])
	if err != nil {
		return err
	}
	tokens, err := extractor.ExtractTokens(cmd.Context(), img, cfg.OCR.Config)
	if err != nil {
		return fmt.Errorf("ocr failed: %w", err)
	}
	lines := ocr.Reconstruct(tokens)

	if ocrJSON {
		data, err := json.MarshalIndent(lines, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal lines: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(lines) == 0 {
		cmd.Println("No text found.")
		return nil
	}
	for _, l := range lines {
		cmd.Printf("[%6s] %s\n", l.ConfidenceString(), l.Text)
	}
	return nil
}

// newExtractor builds the configured OCR engine, dialing the recognition sidecar
// when one is configured.
func newExtractor(cfg *config.Config) (ocr.Extractor, func(), error) {
	closeFn := func() {}
	var remote ocr.Recognizer
	if cfg.RecognitionAddr != "" && strings.EqualFold(cfg.OCR.Engine, ocr.EngineUnstructured) {
		client, err := grpcclient.New(cfg.RecognitionAddr, grpcclient.DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to recognition sidecar: %w", err)
		}
		remote = client
		closeFn = func() { _ = client.Close() }
	}

	extractor, err := ocr.NewExtractor(cfg.OCR.Engine, remote)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return extractor, closeFn, nil
}
