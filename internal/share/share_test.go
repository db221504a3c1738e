package share

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fpang/photobooth/internal/events"
	"github.com/fpang/photobooth/internal/metrics"
	"github.com/fpang/photobooth/internal/store"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type recordingNotifier struct {
	events []events.ShareCreated
	err    error
}

func (n *recordingNotifier) ShareCreated(_ context.Context, ev events.ShareCreated) error {
	n.events = append(n.events, ev)
	return n.err
}

func newTestService(t *testing.T, clock time.Time, opts ...Option) *Service {
	t.Helper()
	dir := t.TempDir()
	blobs, err := NewFileBlobs(dir + "/blobs")
	if err != nil {
		t.Fatal(err)
	}
	index, err := store.NewFileStore(dir + "/index")
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithClock(func() time.Time { return clock })}, opts...)
	s, err := NewService("booth.example/fish/", blobs, index, opts...)
	if err != nil {
		t.Fatal(err)
	}
	s.suffix = func() string { return "0123abcd" }
	return s
}

func TestService_ShareAndLookup(t *testing.T) {
	ctx := context.Background()
	clock := time.Now()
	n := &recordingNotifier{}
	s := newTestService(t, clock, WithNotifier(n))
	data := pngBytes(t)

	res, err := s.Share(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	wantID := "photo_" + strconv.FormatInt(clock.UnixMilli(), 10) + "_0123abcd"
	if res.ID != wantID {
		t.Errorf("ID = %q, want %q", res.ID, wantID)
	}
	if !ValidID(res.ID) {
		t.Errorf("generated id %q fails ValidID", res.ID)
	}
	if want := "https://booth.example/fish/view.html?id=" + wantID; res.URL != want {
		t.Errorf("URL = %q, want %q", res.URL, want)
	}
	if res.Fallback || res.QR.Bounds().Dx() != QRSize || res.QR.Bounds().Dy() != QRSize {
		t.Errorf("QR = %v fallback=%v", res.QR.Bounds(), res.Fallback)
	}
	if len(n.events) != 1 || n.events[0].ShareID != wantID || n.events[0].URL != res.URL {
		t.Errorf("notifier events = %+v", n.events)
	}

	got, rec, err := s.Lookup(ctx, "  "+res.ID+" ")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("lookup returned different bytes")
	}
	if rec.Backend != "file" || rec.Size != int64(len(data)) || rec.ContentType != "image/png" {
		t.Errorf("record = %+v", rec)
	}
}

func TestService_LookupErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, time.Now())

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"empty", "", ErrMissingID},
		{"blank", "   ", ErrMissingID},
		{"unknown", "photo_1_00000000", ErrNotFound},
		{"legacy shape unknown", "photo_1700000000000", ErrNotFound},
		{"path traversal", "../../etc/passwd", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.Lookup(ctx, tt.id); !errors.Is(err, tt.want) {
				t.Errorf("Lookup(%q) = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}

func TestService_ExpiredShare(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, time.Now().Add(-48*time.Hour))

	res, err := s.Share(ctx, pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Lookup(ctx, res.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired lookup = %v, want ErrNotFound", err)
	}
}

func TestService_ShareRejects(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, time.Now(), WithMaxBytes(10))

	if _, err := s.Share(ctx, []byte("not a png")); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("non-PNG = %v, want ErrInvalidImage", err)
	}
	if _, err := s.Share(ctx, pngBytes(t)); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized = %v, want ErrTooLarge", err)
	}
}

func TestService_NotifierFailureDoesNotFailShare(t *testing.T) {
	n := &recordingNotifier{err: errors.New("bus down")}
	s := newTestService(t, time.Now(), WithNotifier(n))
	if _, err := s.Share(context.Background(), pngBytes(t)); err != nil {
		t.Fatalf("Share = %v", err)
	}
	if len(n.events) != 1 {
		t.Errorf("notifier called %d times", len(n.events))
	}
}

func TestNewService_BadBaseURL(t *testing.T) {
	if _, err := NewService("ftp://booth.example", nil, nil); err == nil {
		t.Error("expected error for ftp base URL")
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://booth.example/a", "https://booth.example/a", false},
		{"  booth.example/view.html?id=x ", "https://booth.example/view.html?id=x", false},
		{"http://localhost:8080", "http://localhost:8080", false},
		{"", "", true},
		{"ftp://booth.example", "", true},
		{"https://", "", true},
		{"https://booth.example/" + strings.Repeat("a", 4096), "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func dark(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r < 0x4000 && g < 0x4000 && b < 0x4000
}

func TestQR_FinderPatternsInCorners(t *testing.T) {
	img, err := QR("https://booth.example/view.html?id=photo_1700000000000_0123abcd")
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != QRSize || b.Dy() != QRSize {
		t.Fatalf("bounds = %v", b)
	}
	for _, p := range []image.Point{{0, 0}, {QRSize - 1, 0}, {0, QRSize - 1}} {
		if !dark(img, p.X, p.Y) {
			t.Errorf("finder corner %v is not dark", p)
		}
	}
}

func TestCode_FallsBackToTextCard(t *testing.T) {
	link := "https://booth.example/view.html?id=" + strings.Repeat("x", 3500)
	img, fallback := Code(link)
	if !fallback {
		t.Fatal("expected fallback for a link beyond QR capacity")
	}
	if b := img.Bounds(); b.Dx() != QRSize || b.Dy() != QRSize {
		t.Errorf("card bounds = %v", b)
	}
}

func TestTextCard(t *testing.T) {
	card := TextCard("https://booth.example/view.html?id=photo_1_0123abcd")
	if dark(card, 0, 0) || dark(card, QRSize-1, QRSize-1) {
		t.Error("card background should be white")
	}
	rowHasInk := func(y0, y1 int) bool {
		for y := y0; y <= y1; y++ {
			for x := 0; x < QRSize; x++ {
				if dark(card, x, y) {
					return true
				}
			}
		}
		return false
	}
	if !rowHasInk(cardTitleY-12, cardTitleY) {
		t.Error("title not drawn")
	}
	if !rowHasInk(cardLineStartY+cardLineStep-12, cardLineStartY+cardLineStep) {
		t.Error("second URL line not drawn")
	}
	if rowHasInk(cardLineStartY+2*cardLineStep-12, QRSize-1) {
		t.Error("unexpected third URL line")
	}
}

func TestChunk(t *testing.T) {
	got := chunk(strings.Repeat("a", 70)+"b", cardLineChars)
	if len(got) != 3 || len(got[0]) != 35 || got[2] != "b" {
		t.Errorf("chunk = %q", got)
	}
	if got := chunk("", 35); len(got) != 0 {
		t.Errorf("chunk(\"\") = %q", got)
	}
}

func TestFileBlobs_RejectsEscapingKeys(t *testing.T) {
	b, err := NewFileBlobs(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := b.Put(ctx, "../escape.png", []byte("x"), "image/png"); err == nil {
		t.Error("expected error for escaping key")
	}
	if _, _, err := b.Get(ctx, "shares/none.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}

// linkedBlobs is a file store that also hands out direct links.
type linkedBlobs struct {
	*FileBlobs
	base string
}

func (b linkedBlobs) Link(_ context.Context, key string) (string, bool, error) {
	return b.base + key, b.base != "", nil
}

func TestService_DirectURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blobs, err := NewFileBlobs(dir + "/blobs")
	if err != nil {
		t.Fatal(err)
	}
	index, err := store.NewFileStore(dir + "/index")
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewService("http://booth.test", linkedBlobs{blobs, "https://cdn.test/"}, index)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Share(ctx, pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}

	url, err := s.DirectURL(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.test/shares/"+res.ID+".png" {
		t.Errorf("DirectURL = %q", url)
	}
	if _, err := s.DirectURL(ctx, "photo_1_00000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}

	// Stores without links leave serving to the caller.
	plain := newTestService(t, time.Now())
	res, err = plain.Share(ctx, pngBytes(t))
	if err != nil {
		t.Fatal(err)
	}
	if url, err := plain.DirectURL(ctx, res.ID); url != "" || err != nil {
		t.Errorf("file store DirectURL = %q, %v", url, err)
	}
}

func TestS3Blobs_LinkRequiresPresign(t *testing.T) {
	b := NewS3Blobs(nil, "booth", DefaultMaxBytes)
	if url, ok, err := b.Link(context.Background(), "shares/a.png"); ok || url != "" || err != nil {
		t.Errorf("Link without presign = %q, %v, %v", url, ok, err)
	}
}
