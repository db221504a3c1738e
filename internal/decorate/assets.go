package decorate

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/filehandler"
	"github.com/fpang/photobooth/internal/sticker"
)

// ErrAssetPath is returned for an asset path that leaves the assets root.
var ErrAssetPath = errors.New("asset path escapes the assets root")

// StickerLoader resolves a sticker name to its image.
type StickerLoader interface {
	Sticker(name string) (image.Image, error)
}

// Assets loads page assets from a directory tree laid out like the site
// (Assets/fish-photobooth/...). Decoded images are cached for the life of
// the value; it is safe for concurrent use.
type Assets struct {
	root string

	mu    sync.Mutex
	cache map[string]image.Image
}

var _ StickerLoader = (*Assets)(nil)

// NewAssets returns a loader rooted at dir.
func NewAssets(dir string) *Assets {
	return &Assets{root: dir, cache: make(map[string]image.Image)}
}

// Root returns the assets directory.
func (a *Assets) Root() string { return a.root }

// Open decodes the asset at the slash-separated path rel.
func (a *Assets) Open(rel string) (image.Image, error) {
	clean := path.Clean(strings.TrimPrefix(rel, "/"))
	if !filepath.IsLocal(filepath.FromSlash(clean)) {
		return nil, fmt.Errorf("%w: %s", ErrAssetPath, rel)
	}

	a.mu.Lock()
	img, ok := a.cache[clean]
	a.mu.Unlock()
	if ok {
		return img, nil
	}

	img, err := filehandler.LoadImage(filepath.Join(a.root, filepath.FromSlash(clean)))
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", clean, err)
	}

	a.mu.Lock()
	a.cache[clean] = img
	a.mu.Unlock()
	log.Debug().Str("asset", clean).Msg("Asset loaded")
	return img, nil
}

// Sticker loads a catalog sticker. A sticker shipped as SVG instead of PNG
// is rasterised at its viewBox size.
func (a *Assets) Sticker(name string) (image.Image, error) {
	if !sticker.Known(name) {
		return nil, fmt.Errorf("unknown sticker %q", name)
	}
	p := sticker.AssetPath(name)
	img, err := a.Open(p)
	if err == nil {
		return img, nil
	}
	svg := strings.TrimSuffix(p, path.Ext(p)) + ".svg"
	if _, statErr := os.Stat(filepath.Join(a.root, filepath.FromSlash(svg))); statErr != nil {
		return nil, err
	}
	return a.Open(svg)
}

// Frame loads the frame overlay at rel, usually handoff.FramePath.
func (a *Assets) Frame(rel string) (image.Image, error) {
	return a.Open(rel)
}
