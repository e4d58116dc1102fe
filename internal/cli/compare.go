package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/good-listener/backend/vision/internal/screen"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/similarity"
)

var compareJSON bool

var compareCmd = &cobra.Command{
	Use:   "compare [previous] [current]",
	Short: "Score the change between two images",
	Long: `Prints the histogram distance, structural similarity and combined change score
for two image files. Structural similarity needs images of equal size.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	prev, err := screen.DecodeFile(args[0])
	if err != nil {
		return err
	}
	cur, err := screen.DecodeFile(args[1])
	if err != nil {
		return err
	}

	res, err := similarity.Compare(prev, cur)
	if err != nil {
		return fmt.Errorf("compare failed: %w", err)
	}

	if compareJSON {
		data, err := json.MarshalIndent(map[string]float64{
			"histogram":  res.Histogram,
			"structural": res.Structural,
			"score":      res.Score,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("histogram diff:  %.4f\n", res.Histogram)
	cmd.Printf("ssim diff:       %.4f\n", 1-res.Structural)
	cmd.Printf("score:           %.4f\n", res.Score)
	return nil
}
