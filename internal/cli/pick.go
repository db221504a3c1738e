package cli

import (
	"errors"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
)

// ErrPickCanceled is returned when the user closes a dialog.
var ErrPickCanceled = errors.New("selection canceled")

var imageFilter = zenity.FileFilters{
	{
		Name:     "Images",
		Patterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.webp", "*.bmp"},
	},
}

// PickImages opens the native multi-file dialog filtered to images.
func PickImages(title string) ([]string, error) {
	selected, err := zenity.SelectFileMultiple(zenity.Title(title), imageFilter)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return nil, ErrPickCanceled
		}
		return nil, err
	}
	log.Info().Int("count", len(selected)).Msg("Files picked via native dialog")
	return selected, nil
}

// PickImage opens the native single-file dialog filtered to images.
func PickImage(title string) (string, error) {
	selected, err := zenity.SelectFile(zenity.Title(title), imageFilter)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrPickCanceled
		}
		return "", err
	}
	return selected, nil
}

// ConfirmDialog shows a native OK/Cancel question and reports whether OK
// was chosen.
func ConfirmDialog(question string) bool {
	err := zenity.Question(question, zenity.Title("Fish Photobooth"), zenity.OKLabel("Delete"), zenity.CancelLabel("Keep"))
	if err != nil && !errors.Is(err, zenity.ErrCanceled) {
		log.Warn().Err(err).Msg("Confirm dialog failed")
	}
	return err == nil
}
