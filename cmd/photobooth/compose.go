package main

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photobooth/internal/capture"
	"github.com/fpang/photobooth/internal/cli"
	"github.com/fpang/photobooth/internal/decorate"
	"github.com/fpang/photobooth/internal/filehandler"
	"github.com/fpang/photobooth/internal/handoff"
	"github.com/fpang/photobooth/internal/logging"
	"github.com/fpang/photobooth/internal/metrics"
)

var (
	topFlag    string
	bottomFlag string
	pickFlag   bool
	dirFlag    string
	uploadFlag bool
	facingFlag string
	zoomFlag   float64
	frameFlag  string
	stripOut   string
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose two photos into a framed strip",
	Long: `Compose fills the top and bottom halves of the strip, overlays the frame
and stores the result in the hand-off slot for the decorate stage.

By default the photos go through the camera path: each is center-cropped to
the half's aspect ratio (after zoom) and mirrored for the user-facing camera.
With --upload they are placed at their original size, centred in each half.

Examples:
  photobooth compose --top a.jpg --bottom b.jpg
  photobooth compose --top a.jpg --bottom b.jpg --facing environment --zoom 1.5
  photobooth compose --pick --upload --out strip.png
  photobooth compose --dir ~/booth-shots   # first two images by name
  photobooth compose   # prompts for both paths`,
	Args: cobra.NoArgs,
	Run:  runCompose,
}

func init() {
	composeCmd.Flags().StringVar(&topFlag, "top", "", "Photo for the top half")
	composeCmd.Flags().StringVar(&bottomFlag, "bottom", "", "Photo for the bottom half")
	composeCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose both photos in a native file dialog")
	composeCmd.Flags().StringVar(&dirFlag, "dir", "", "Use the first two images in this directory")
	composeCmd.Flags().BoolVar(&uploadFlag, "upload", false, "Place photos like the upload page instead of the camera")
	composeCmd.Flags().StringVar(&facingFlag, "facing", string(capture.FacingUser), "Camera facing: user (mirrored) or environment")
	composeCmd.Flags().Float64Var(&zoomFlag, "zoom", 1, "Camera zoom level")
	composeCmd.Flags().StringVar(&frameFlag, "frame", "", "Frame asset path (default: the selected frame)")
	composeCmd.Flags().StringVarP(&stripOut, "out", "o", "", "Also write the strip PNG to this file")
}

func runCompose(cmd *cobra.Command, args []string) {
	logging.Init()
	cfg := loadConfig()
	ctx := context.Background()

	paths := composePaths()
	var imgs []image.Image
	for _, p := range paths {
		if err := cli.ValidateImagePath(p); err != nil {
			log.Fatal().Err(err).Msg("Invalid photo")
		}
		if f, err := filehandler.LoadImageFile(p); err == nil && f.Metadata != nil {
			log.Info().Str("path", p).Str("exif", f.Metadata.Summary()).Msg("Photo metadata")
		}
		img, err := filehandler.LoadImage(p)
		if err != nil {
			log.Fatal().Err(err).Str("path", p).Msg("Failed to load photo")
		}
		imgs = append(imgs, img)
	}

	slot, err := handoff.NewFileSlot(cfg.SlotDir())
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.SlotDir()).Msg("Failed to open hand-off slot")
	}
	assets := decorate.NewAssets(cfg.AssetsDir)
	if frameFlag != "" {
		if err := slot.Put(ctx, handoff.KeySelectedFrame, frameFlag); err != nil {
			log.Fatal().Err(err).Msg("Failed to store frame selection")
		}
	}
	framePath := handoff.FramePath(ctx, slot)
	frame, err := assets.Frame(framePath)
	if err != nil {
		log.Warn().Err(err).Str("frame", framePath).Msg("Frame unavailable, composing without overlay")
		frame = nil
	}

	var strip *capture.Strip
	source := "camera"
	if uploadFlag {
		source = "upload"
		strip = composeUpload(ctx, imgs, frame, slot)
	} else {
		strip = composeCamera(ctx, imgs, frame, slot)
	}

	metric := metrics.StripComposed
	if uploadFlag {
		metric = metrics.StripUploaded
	}
	metrics.New(metrics.Namespace).Dimension("Source", source).Count(metric).Flush()

	if stripOut != "" {
		if err := writePNG(stripOut, strip.Image()); err != nil {
			log.Fatal().Err(err).Msg("Failed to write strip")
		}
		log.Info().Str("path", stripOut).Msg("Strip written")
	}
	fmt.Printf("\n  Strip ready in %s. Run `photobooth decorate` next.\n\n", cfg.SlotDir())
}

// composePaths returns the top and bottom photo paths from a directory, the
// native picker, flags or stdin prompts.
func composePaths() []string {
	if dirFlag != "" {
		dir := cli.ValidateAndResolveDirectory(dirFlag)
		files, err := filehandler.ScanImages(dir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to scan directory")
		}
		paths, err := stripPair(files)
		if err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Not enough photos")
		}
		return paths
	}
	if pickFlag {
		picked, err := cli.PickImages("Choose the top and bottom photos")
		if err != nil {
			log.Fatal().Err(err).Msg("No photos picked")
		}
		if len(picked) == 1 {
			bottom, err := cli.PickImage("Choose the bottom photo")
			if err != nil {
				log.Fatal().Err(err).Msg("No bottom photo picked")
			}
			picked = append(picked, bottom)
		}
		if len(picked) != 2 {
			log.Fatal().Int("count", len(picked)).Msg("Pick exactly two photos")
		}
		return picked
	}
	top, bottom := topFlag, bottomFlag
	if top == "" {
		top = cli.PromptForPath(os.Stdin, os.Stdout, "Top photo", "")
	}
	if bottom == "" {
		bottom = cli.PromptForPath(os.Stdin, os.Stdout, "Bottom photo", top)
	}
	return []string{top, bottom}
}

// stripPair takes the first two scanned images as top and bottom. Extra
// images are ignored with a log line.
func stripPair(files []*filehandler.ImageFile) ([]string, error) {
	if len(files) < 2 {
		return nil, fmt.Errorf("need two images, found %d", len(files))
	}
	if len(files) > 2 {
		log.Info().Int("ignored", len(files)-2).Msg("Using the first two images")
	}
	return []string{files[0].Path, files[1].Path}, nil
}

func composeCamera(ctx context.Context, imgs []image.Image, frame image.Image, slot handoff.Slot) *capture.Strip {
	facing := capture.Facing(facingFlag)
	if facing != capture.FacingUser && facing != capture.FacingEnvironment {
		log.Fatal().Str("facing", facingFlag).Msg("Facing must be user or environment")
	}

	cam := capture.NewCamera(capture.NewStillSource().AddFrames(facing, imgs...), facing)
	if err := cam.Start(ctx); err != nil {
		cli.HandleCameraError(err)
	}
	booth := capture.NewBooth(cam, frame, slot)
	defer booth.Close()
	cam.Zoom().Set(ctx, zoomFlag)

	for booth.Stage() < capture.StageDone {
		if err := booth.Capture(ctx); err != nil {
			cli.HandleCameraError(err)
		}
	}
	return booth.Strip()
}

func composeUpload(ctx context.Context, imgs []image.Image, frame image.Image, slot handoff.Slot) *capture.Strip {
	u := capture.NewUploader(frame, slot)
	for _, img := range imgs {
		if err := u.Load(img); err != nil {
			log.Fatal().Err(err).Msg("Failed to load photo")
		}
		if err := u.Confirm(); err != nil {
			log.Fatal().Err(err).Msg("Failed to confirm photo")
		}
	}
	if _, err := u.Ready(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to store strip")
	}
	return u.Strip()
}
