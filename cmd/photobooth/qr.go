package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photobooth/internal/logging"
	"github.com/fpang/photobooth/internal/share"
)

var qrFileFlag string

var qrCmd = &cobra.Command{
	Use:   "qr <url>",
	Short: "Render a share QR code",
	Long: `QR renders a 256x256 QR code for a link, black on white at the highest
error correction level. A link that cannot be encoded is rendered as a text
card instead.

Examples:
  photobooth qr https://booth.example.com/view.html?id=photo_1700000000000
  photobooth qr booth.example.com -o qr.png`,
	Args: cobra.ExactArgs(1),
	Run:  runQR,
}

func init() {
	qrCmd.Flags().StringVarP(&qrFileFlag, "out", "o", "qr.png", "Output PNG file")
}

func runQR(cmd *cobra.Command, args []string) {
	logging.Init()

	link, err := share.NormalizeURL(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid link")
	}
	img, fallback := share.Code(link)
	if fallback {
		log.Warn().Str("url", link).Msg("QR generation failed, wrote a text card")
	}
	if err := writePNG(qrFileFlag, img); err != nil {
		log.Fatal().Err(err).Msg("Failed to write QR code")
	}
	fmt.Printf("\n  %s -> %s\n\n", link, qrFileFlag)
}

// writePNG encodes img to path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
