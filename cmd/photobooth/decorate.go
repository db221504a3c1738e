package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photobooth/internal/cli"
	"github.com/fpang/photobooth/internal/decorate"
	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/lambdaboot"
	"github.com/fpang/photobooth/internal/logging"
	"github.com/fpang/photobooth/internal/sticker"
)

var (
	scriptFlag   string
	formatFlag   string
	decorateOut  string
	stickersFlag []string
	shareFlag    bool
	qrOutFlag    string
	askFlag      bool
)

var decorateCmd = &cobra.Command{
	Use:   "decorate",
	Short: "Decorate the composed strip and export or share it",
	Long: `Decorate takes the strip out of the hand-off slot (it can be decorated
once), replays a JSON event script against the sticker stage and exports the
result. A script is {"steps": [...]} where each step has an "op":

  add     {"sticker": "fish"}
  button  {"button": "seaweed"}      cycles seaweed1, seaweed2
  down    {"pointer": "mouse"|"touch", "x", "y" | "touches": [{x, y}]}
  move    same fields as down
  up      same fields as down; touches are the fingers still down
  key     {"key": "ArrowLeft"|"ArrowRight"|"Delete"|"+"|"-"}
  reset
  wait    {"ms": 400}

Examples:
  photobooth decorate --sticker fish --sticker bubble
  photobooth decorate --script moves.json --format pdf
  photobooth decorate --script moves.json --share --qr-out qr.png`,
	Args: cobra.NoArgs,
	Run:  runDecorate,
}

func init() {
	decorateCmd.Flags().StringVarP(&scriptFlag, "script", "s", "", "JSON event script to replay")
	decorateCmd.Flags().StringArrayVar(&stickersFlag, "sticker", nil, "Sticker button to press before the script (repeatable)")
	decorateCmd.Flags().StringVarP(&formatFlag, "format", "f", decorate.FormatPNG, "Export format: png, pdf or zip")
	decorateCmd.Flags().StringVarP(&decorateOut, "out", "o", "", "Output file (default fish-photobooth.<format>)")
	decorateCmd.Flags().BoolVar(&shareFlag, "share", false, "Also create a share link and QR code")
	decorateCmd.Flags().StringVar(&qrOutFlag, "qr-out", "", "Write the share QR code to this PNG file")
	decorateCmd.Flags().BoolVar(&askFlag, "ask", false, "Confirm double-tap deletes in a native dialog")
}

func runDecorate(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()
	cfg := loadConfig()
	ctx := context.Background()

	out := decorateOut
	if out == "" {
		out = defaultExportName(formatFlag)
		if out == "" {
			log.Fatal().Str("format", formatFlag).Msg("Unknown export format")
		}
	}

	var script *decorate.Script
	if scriptFlag != "" {
		f, err := os.Open(scriptFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open script")
		}
		script, err = decorate.ParseScript(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Str("path", scriptFlag).Msg("Invalid script")
		}
	}

	slot, err := handoff.NewFileSlot(cfg.SlotDir())
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.SlotDir()).Msg("Failed to open hand-off slot")
	}
	var opts []decorate.Option
	if askFlag {
		opts = append(opts, decorate.WithConfirmer(sticker.ConfirmFunc(cli.ConfirmDialog)))
	}
	stage, err := decorate.Open(ctx, slot, decorate.NewAssets(cfg.AssetsDir), opts...)
	if errors.Is(err, decorate.ErrNoPhoto) {
		log.Fatal().Msg("No photo found! Run `photobooth compose` first")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open decoration stage")
	}

	for _, b := range stickersFlag {
		if _, err := stage.Press(sticker.Button(b)); err != nil {
			log.Fatal().Err(err).Msg("Failed to add sticker")
		}
	}
	if err := stage.Replay(script); err != nil {
		log.Fatal().Err(err).Msg("Script failed")
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create output file")
	}
	if err := stage.Export(f, formatFlag); err != nil {
		f.Close()
		log.Fatal().Err(err).Msg("Export failed")
	}
	if err := f.Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output file")
	}
	fmt.Printf("\n  Saved %s\n", out)

	if shareFlag {
		startup := lambdaboot.StartupLog("decorate", initStart).Version(version)
		svc, err := lambdaboot.NewShareService(ctx, cfg, startup)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialise sharing")
		}
		startup.Log()

		res, err := stage.Share(ctx, svc)
		if err != nil {
			log.Fatal().Err(err).Msg("Share failed")
		}
		fmt.Printf("  Share link: %s\n  Expires:    %s\n", res.URL, res.ExpiresAt.Format(time.RFC1123))
		if res.Fallback {
			fmt.Println("  (QR code unavailable, showing the link as text)")
		}
		if qrOutFlag != "" {
			if err := writePNG(qrOutFlag, res.QR); err != nil {
				log.Fatal().Err(err).Msg("Failed to write QR code")
			}
			fmt.Printf("  QR code:    %s\n", qrOutFlag)
		}
	}
	fmt.Println()
}

func defaultExportName(format string) string {
	switch format {
	case decorate.FormatPNG:
		return decorate.ExportFilename
	case decorate.FormatPDF:
		return decorate.PDFFilename
	case decorate.FormatBundle:
		return decorate.BundleFilename
	}
	return ""
}
