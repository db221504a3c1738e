// Package cli holds the interactive helpers shared by the photobooth
// commands: path validation, stdin prompts and native dialogs.
package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/capture"
	"github.com/fpang/photobooth/internal/filehandler"
)

// ValidateAndResolveDirectory checks that the path exists and is a directory,
// then returns the absolute path. Exits fatally on failure.
func ValidateAndResolveDirectory(dirPath string) string {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Fatal().Str("path", dirPath).Msg("Directory not found")
		}
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to access directory")
	}
	if !info.IsDir() {
		log.Fatal().Str("path", dirPath).Msg("Path is not a directory")
	}

	if absPath, err := filepath.Abs(dirPath); err == nil {
		dirPath = absPath
	}
	return dirPath
}

// ValidateImagePath checks that path is a readable file with a supported
// image extension.
func ValidateImagePath(path string) error {
	if !filehandler.IsImage(filepath.Ext(path)) {
		return errors.New("unsupported image type: " + path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("path is a directory: " + path)
	}
	return nil
}

// HandleCameraError logs a camera failure with a hint for its kind and
// exits.
func HandleCameraError(err error) {
	var camErr *capture.CameraError
	if errors.As(err, &camErr) {
		switch camErr.Kind {
		case capture.ErrorKindPermission:
			log.Fatal().Err(err).Msg("Camera access was denied. Allow camera access and try again")
		case capture.ErrorKindNotFound:
			log.Fatal().Err(err).Str("facing", string(camErr.Facing)).Msg("No camera found for this facing. Try switching cameras")
		default:
			log.Fatal().Err(err).Msg("Camera error")
		}
	} else {
		log.Fatal().Err(err).Msg("unexpected error while capturing")
	}
	os.Exit(1)
}
