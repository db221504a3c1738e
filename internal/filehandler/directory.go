package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ScanImages lists the supported images directly inside dirPath, sorted by
// name. Hidden files and subdirectories are skipped.
func ScanImages(dirPath string) ([]*ImageFile, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", dirPath)
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []*ImageFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !IsImage(filepath.Ext(name)) {
			continue
		}
		f, err := LoadImageFile(filepath.Join(dirPath, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Skipping unreadable image")
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	log.Debug().Str("path", dirPath).Int("images", len(files)).Msg("Directory scanned")
	return files, nil
}
