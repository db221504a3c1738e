package sticker

import (
	"fmt"
	"path"
)

// StickerDir is the asset directory holding the sticker images.
const StickerDir = "Assets/fish-photobooth/camerapage/stickers"

// Button is one of the sticker buttons on the decoration page.
type Button string

const (
	ButtonFish    Button = "fish"
	ButtonOctopus Button = "octopus"
	ButtonSeaweed Button = "seaweed"
	ButtonAxolotl Button = "axolotl"
	ButtonBubble  Button = "bubble"
)

// buttonVariants lists the sticker names each button cycles through.
var buttonVariants = map[Button][]string{
	ButtonFish:    {"fish"},
	ButtonOctopus: {"octopus"},
	ButtonSeaweed: {"seaweed1", "seaweed2"},
	ButtonAxolotl: {"axolotl"},
	ButtonBubble:  {"bubble1", "bubble2"},
}

// Buttons returns the buttons in page order.
func Buttons() []Button {
	return []Button{ButtonFish, ButtonOctopus, ButtonSeaweed, ButtonAxolotl, ButtonBubble}
}

// Names returns every sticker name in catalog order.
func Names() []string {
	var names []string
	for _, b := range Buttons() {
		names = append(names, buttonVariants[b]...)
	}
	return names
}

// Variants returns the sticker names a button cycles through, or nil for an
// unknown button.
func Variants(b Button) []string {
	return append([]string(nil), buttonVariants[b]...)
}

// AssetPath returns the asset path of a sticker name.
func AssetPath(name string) string {
	return path.Join(StickerDir, name+".png")
}

// Catalog hands out sticker names per button, cycling through the variants
// of buttons that have more than one.
type Catalog struct {
	next map[Button]int
}

// NewCatalog returns a catalog with every cycle at its first variant.
func NewCatalog() *Catalog {
	return &Catalog{next: make(map[Button]int)}
}

// Next returns the sticker name for a press of b and advances its cycle.
func (c *Catalog) Next(b Button) (string, error) {
	variants, ok := buttonVariants[b]
	if !ok {
		return "", fmt.Errorf("unknown sticker button %q", b)
	}
	i := c.next[b]
	c.next[b] = (i + 1) % len(variants)
	return variants[i], nil
}

// Known reports whether name is a catalog sticker.
func Known(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}
