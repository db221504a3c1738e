// Package share stores finished photos under generated ids and builds the
// link and QR code that point at them.
package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/events"
	"github.com/fpang/photobooth/internal/metrics"
	"github.com/fpang/photobooth/internal/store"
)

// DefaultMaxBytes caps the size of a shared image.
const DefaultMaxBytes = 20 << 20

const (
	idPrefix    = "photo_"
	keyPrefix   = "shares/"
	contentType = "image/png"
	viewPage    = "view.html"
)

var (
	// ErrMissingID is returned by Lookup for an empty id.
	ErrMissingID = errors.New("Please enter a photo ID")
	// ErrNotFound is returned by Lookup for an unknown or expired id.
	ErrNotFound = errors.New("photo not found")
	// ErrInvalidImage is returned by Share when the body is not a PNG.
	ErrInvalidImage = errors.New("shared image must be a PNG")
	// ErrTooLarge is returned by Share when the body exceeds the limit.
	ErrTooLarge = errors.New("shared image is too large")
)

var idPattern = regexp.MustCompile(`^photo_[0-9]+(_[0-9a-f]{8})?$`)

// ValidID reports whether id has the shape of a generated share id.
func ValidID(id string) bool { return idPattern.MatchString(id) }

// Notifier is told about every new share. Failures are logged and do not
// fail the share.
type Notifier interface {
	ShareCreated(ctx context.Context, ev events.ShareCreated) error
}

// Result is a stored share.
type Result struct {
	ID        string
	URL       string
	QR        image.Image
	Fallback  bool
	ExpiresAt time.Time
}

// Service creates and resolves shares.
type Service struct {
	baseURL  string
	blobs    BlobStore
	index    store.ShareStore
	notifier Notifier
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time
	suffix   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets how long shares stay reachable.
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithNotifier sets the share notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMaxBytes sets the largest accepted image.
func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a service whose links live under baseURL.
func NewService(baseURL string, blobs BlobStore, index store.ShareStore, opts ...Option) (*Service, error) {
	base, err := NormalizeURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("share base URL: %w", err)
	}
	s := &Service{
		baseURL:  strings.TrimRight(base, "/"),
		blobs:    blobs,
		index:    index,
		ttl:      store.DefaultShareTTL,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
		suffix: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseURL returns the normalized link base.
func (s *Service) BaseURL() string { return s.baseURL }

// MaxBytes returns the largest accepted image.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// ViewURL returns the viewer link for id.
func (s *Service) ViewURL(id string) string {
	return s.baseURL + "/" + viewPage + "?id=" + url.QueryEscape(id)
}

// NewID returns a fresh id of the form photo_<unix-ms>_<8 hex>.
func (s *Service) NewID() string {
	return fmt.Sprintf("%s%d_%s", idPrefix, s.now().UnixMilli(), s.suffix())
}

// Share stores data, which must be a PNG, and returns its id, link and QR.
func (s *Service) Share(ctx context.Context, data []byte) (*Result, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, ErrInvalidImage
	}

	now := s.now()
	id := s.NewID()
	key := keyPrefix + id + ".png"
	if err := s.blobs.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store share %s: %w", id, err)
	}

	rec := &store.ShareRecord{
		ID:          id,
		Key:         key,
		Backend:     s.blobs.Backend(),
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(s.ttl).Unix(),
	}
	if err := s.index.PutShare(ctx, rec); err != nil {
		return nil, fmt.Errorf("index share %s: %w", id, err)
	}

	link := s.ViewURL(id)
	qr, fallback := Code(link)

	if s.notifier != nil {
		ev := events.ShareCreated{
			ShareID:   id,
			URL:       link,
			Backend:   rec.Backend,
			Size:      rec.Size,
			CreatedAt: rec.CreatedAt,
			ExpiresAt: rec.ExpiresAt,
		}
		if err := s.notifier.ShareCreated(ctx, ev); err != nil {
			log.Warn().Err(err).Str("shareId", id).Msg("Share notification failed")
		}
	}

	m := metrics.New(metrics.Namespace).
		Dimension("Backend", rec.Backend).
		Count(metrics.ShareCreated).
		Metric(metrics.ShareBytes, float64(rec.Size), metrics.UnitBytes).
		Property("shareId", id)
	if fallback {
		m.Count(metrics.QRFallback)
	}
	m.Flush()

	log.Info().
		Str("shareId", id).
		Str("backend", rec.Backend).
		Int64("size", rec.Size).
		Bool("qrFallback", fallback).
		Msg("Photo shared")

	return &Result{
		ID:        id,
		URL:       link,
		QR:        qr,
		Fallback:  fallback,
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
	}, nil
}

// Lookup returns the stored bytes and record for id.
func (s *Service) Lookup(ctx context.Context, id string) ([]byte, *store.ShareRecord, error) {
	rec, err := s.record(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	data, _, err := s.blobs.Get(ctx, rec.Key)
	if errors.Is(err, ErrNotFound) {
		s.miss(rec.ID, "blob missing")
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read share %s: %w", rec.ID, err)
	}
	return data, rec, nil
}

// DirectURL returns a time-limited link straight to the stored image when the
// blob store supports one. An empty string means the caller should serve the
// bytes itself.
func (s *Service) DirectURL(ctx context.Context, id string) (string, error) {
	linker, ok := s.blobs.(Linker)
	if !ok {
		return "", nil
	}
	rec, err := s.record(ctx, id)
	if err != nil {
		return "", err
	}
	url, ok, err := linker.Link(ctx, rec.Key)
	if err != nil {
		return "", fmt.Errorf("link share %s: %w", rec.ID, err)
	}
	if !ok {
		return "", nil
	}
	return url, nil
}

func (s *Service) record(ctx context.Context, id string) (*store.ShareRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingID
	}
	if !ValidID(id) {
		s.miss(id, "malformed")
		return nil, ErrNotFound
	}

	rec, err := s.index.GetShare(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup share %s: %w", id, err)
	}
	if rec == nil {
		s.miss(id, "unknown")
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *Service) miss(id, reason string) {
	log.Debug().Str("shareId", id).Str("reason", reason).Msg("Share lookup miss")
	metrics.New(metrics.Namespace).
		Count(metrics.ShareLookupMiss).
		Property("reason", reason).
		Flush()
}
