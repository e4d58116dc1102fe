// Vision server - captures the screen, tracks change and extracts text
package main

import (
	"os"

	"github.com/GriffinCanCode/good-listener/backend/vision/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
