package decorate

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fpang/photobooth/internal/sticker"
)

// Step operations.
const (
	OpAdd    = "add"
	OpButton = "button"
	OpDown   = "down"
	OpMove   = "move"
	OpUp     = "up"
	OpKey    = "key"
	OpReset  = "reset"
	OpWait   = "wait"
)

// Pointer kinds.
const (
	PointerMouse = "mouse"
	PointerTouch = "touch"
)

// MaxScriptSteps bounds a replayed script.
const MaxScriptSteps = 10000

// Step is one recorded input. Coordinates are canvas pixels.
//
// Time only moves on "wait" steps, so two touch downs with no wait of at
// least sticker.DoubleTapWindow between them count as a double tap.
type Step struct {
	Op      string          `json:"op"`
	Sticker string          `json:"sticker,omitempty"`
	Button  sticker.Button  `json:"button,omitempty"`
	Pointer string          `json:"pointer,omitempty"`
	X       float64         `json:"x,omitempty"`
	Y       float64         `json:"y,omitempty"`
	Touches []sticker.Point `json:"touches,omitempty"`
	Key     string          `json:"key,omitempty"`
	MS      int             `json:"ms,omitempty"`

	// Confirm answers a delete prompt raised by this step. Nil defers to
	// the stage's confirmer.
	Confirm *bool `json:"confirm,omitempty"`
}

// Script is an ordered list of steps.
type Script struct {
	Steps []Step `json:"steps"`
}

// ParseScript reads a JSON script and validates every step.
func ParseScript(r io.Reader) (*Script, error) {
	var s Script
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(s.Steps) > MaxScriptSteps {
		return nil, fmt.Errorf("script has %d steps, limit is %d", len(s.Steps), MaxScriptSteps)
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return &s, nil
}

func (s Step) validate() error {
	switch s.Op {
	case OpAdd:
		if !sticker.Known(s.Sticker) {
			return fmt.Errorf("unknown sticker %q", s.Sticker)
		}
	case OpButton:
		if _, err := sticker.NewCatalog().Next(s.Button); err != nil {
			return err
		}
	case OpDown, OpMove, OpUp:
		if _, err := s.event(); err != nil {
			return err
		}
	case OpKey:
		if s.Key == "" {
			return fmt.Errorf("key step without a key")
		}
	case OpWait:
		if s.MS < 0 {
			return fmt.Errorf("negative wait %d", s.MS)
		}
	case OpReset:
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}

// event builds the pointer event of a down, move or up step.
func (s Step) event() (sticker.PointerEvent, error) {
	switch s.Pointer {
	case "", PointerMouse:
		return sticker.Mouse{X: s.X, Y: s.Y}, nil
	case PointerTouch:
		return sticker.Touch{Points: s.Touches}, nil
	}
	return nil, fmt.Errorf("unknown pointer %q", s.Pointer)
}

func (s Step) wait() time.Duration {
	return time.Duration(s.MS) * time.Millisecond
}
