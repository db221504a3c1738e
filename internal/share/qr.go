package share

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// QR card geometry.
const (
	QRSize = 256

	qrModuleWidth = 8
	maxURLLength  = 4096

	cardTitle      = "Share this link:"
	cardTitleY     = 100
	cardLineStartY = 130
	cardLineStep   = 15
	cardLineChars  = 35
)

var (
	qrDark  = color.RGBA{A: 0xff}
	qrLight = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// NormalizeURL trims s, defaults a missing scheme to https and accepts only
// absolute http(s) URLs with a host.
func NormalizeURL(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", fmt.Errorf("URL is required")
	}
	if !strings.Contains(v, "://") {
		v = "https://" + v
	}
	if len(v) > maxURLLength {
		return "", fmt.Errorf("URL is too long")
	}
	u, err := url.ParseRequestURI(v)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("only http and https URLs are supported")
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must include a valid host")
	}
	return u.String(), nil
}

// QR encodes text at the highest error correction level, dark on light, and
// scales the symbol to QRSize x QRSize.
func QR(text string) (image.Image, error) {
	qrc, err := qrcode.NewWith(text, qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest))
	if err != nil {
		return nil, fmt.Errorf("encode QR: %w", err)
	}

	tmpFile := filepath.Join(os.TempDir(), "qr-"+uuid.NewString()+".png")
	defer os.Remove(tmpFile)

	writer, err := standard.New(tmpFile,
		standard.WithQRWidth(qrModuleWidth),
		standard.WithBorderWidth(0),
		standard.WithBgColor(qrLight),
		standard.WithFgColor(qrDark),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err != nil {
		return nil, fmt.Errorf("create QR writer: %w", err)
	}
	if err := qrc.Save(writer); err != nil {
		return nil, fmt.Errorf("write QR: %w", err)
	}
	_ = writer.Close()

	f, err := os.Open(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("open QR image: %w", err)
	}
	defer f.Close()
	symbol, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode QR image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, QRSize, QRSize))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), symbol, symbol.Bounds(), draw.Src, nil)
	return dst, nil
}

// TextCard renders the link as text on a QRSize square: a title line and
// the URL broken into 35-character lines, all centred.
func TextCard(link string) *image.RGBA {
	card := image.NewRGBA(image.Rect(0, 0, QRSize, QRSize))
	draw.Draw(card, card.Bounds(), image.NewUniform(qrLight), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: card, Src: image.NewUniform(qrDark), Face: basicfont.Face7x13}
	centered := func(s string, y int) {
		w := d.MeasureString(s).Round()
		d.Dot = fixed.P(QRSize/2-w/2, y)
		d.DrawString(s)
	}

	centered(cardTitle, cardTitleY)
	for i, line := range chunk(link, cardLineChars) {
		centered(line, cardLineStartY+i*cardLineStep)
	}
	return card
}

// Code returns the QR for link, or the text card when the link cannot be
// encoded. fallback reports which one was produced.
func Code(link string) (img image.Image, fallback bool) {
	img, err := QR(link)
	if err != nil {
		return TextCard(link), true
	}
	return img, false
}

func chunk(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
