// Package main is the photobooth command: it serves the booth over HTTP
// (locally or behind API Gateway on Lambda) and runs the compose, decorate
// and qr stages from the terminal.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpang/photobooth/internal/lambdaboot"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Flags shared by every subcommand.
var (
	assetsDirFlag string
	dataDirFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "photobooth",
	Short: "Fish photobooth: capture, decorate and share photo strips",
	Long: `Photobooth composes two photos into a framed strip, decorates it with
stickers and exports or shares the result.

Examples:
  photobooth serve --port 8080
  photobooth compose --top a.jpg --bottom b.jpg
  photobooth compose --pick --upload
  photobooth decorate --script stickers.json --format pdf
  photobooth qr https://example.com/view.html?id=photo_1`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	cfg := lambdaboot.LoadConfig()
	rootCmd.PersistentFlags().StringVar(&assetsDirFlag, "assets-dir", cfg.AssetsDir, "Directory holding the Assets/ tree")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", cfg.DataDir, "Directory for the hand-off slot and local shares")

	rootCmd.AddCommand(serveCmd, composeCmd, decorateCmd, qrCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig returns the environment configuration with the shared flags
// applied.
func loadConfig() lambdaboot.Config {
	cfg := lambdaboot.LoadConfig()
	cfg.AssetsDir = assetsDirFlag
	cfg.DataDir = dataDirFlag
	return cfg
}
