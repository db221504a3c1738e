package capture

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
)

// Software zoom limits, used when the stream has no hardware zoom.
const (
	SoftwareZoomMin  = 1.0
	SoftwareZoomMax  = 3.0
	SoftwareZoomStep = 0.1

	hardwareZoomSteps = 20
)

// ZoomControl is the zoom slider of a stream. With hardware zoom the value is
// applied to the stream; otherwise it is kept and applied as a crop at
// capture time.
type ZoomControl struct {
	stream   Stream
	hw       ZoomRange
	hardware bool
	value    float64
}

func newZoomControl(s Stream) *ZoomControl {
	z := &ZoomControl{stream: s, value: 1}
	if s != nil {
		z.hw, z.hardware = s.ZoomCapability()
	}
	return z
}

// Hardware reports whether the stream zooms in hardware.
func (z *ZoomControl) Hardware() bool { return z.hardware }

// Value returns the current zoom level.
func (z *ZoomControl) Value() float64 { return z.value }

// Range returns the slider limits and step.
func (z *ZoomControl) Range() (min, max, step float64) {
	if z.hardware {
		return z.hw.Min, z.hw.Max, (z.hw.Max - z.hw.Min) / hardwareZoomSteps
	}
	return SoftwareZoomMin, SoftwareZoomMax, SoftwareZoomStep
}

// SoftwareFactor returns the crop zoom to apply at capture: the value when
// zooming in software, 1 otherwise.
func (z *ZoomControl) SoftwareFactor() float64 {
	if z.hardware {
		return 1
	}
	return z.value
}

// Set changes the zoom level. Hardware zoom is clamped to the stream's range;
// if the stream rejects it the failure is logged and the level is unchanged.
func (z *ZoomControl) Set(ctx context.Context, v float64) {
	v = z.clamp(v)

	if z.hardware && z.stream != nil {
		if err := z.stream.ApplyZoom(ctx, v); err != nil {
			log.Warn().Err(err).Float64("zoom", v).Msg("Zoom constraint failed")
			return
		}
	}
	z.value = v
}

// In steps the zoom up by one slider step.
func (z *ZoomControl) In(ctx context.Context) {
	_, max, step := z.Range()
	z.Set(ctx, math.Min(z.value+step, max))
}

// Out steps the zoom down by one slider step.
func (z *ZoomControl) Out(ctx context.Context) {
	min, _, step := z.Range()
	z.Set(ctx, math.Max(z.value-step, min))
}

func (z *ZoomControl) clamp(v float64) float64 {
	min, max, _ := z.Range()
	return math.Max(min, math.Min(max, v))
}
