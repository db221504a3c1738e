package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromptForPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   string
		want  string
	}{
		{"answer", "strip.png\n", "x.png", "strip.png"},
		{"trimmed", "  top.jpg  \n", "", "top.jpg"},
		{"empty takes default", "\n", "x.png", "x.png"},
		{"eof takes default", "", "x.png", "x.png"},
		{"no newline", "last.png", "", "last.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got := PromptForPath(strings.NewReader(tt.input), &out, "Top photo", tt.def)
			if got != tt.want {
				t.Errorf("PromptForPath = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(out.String(), "Top photo") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestPromptConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := PromptConfirm(strings.NewReader(tt.input), &out, "Delete this sticker?"); got != tt.want {
			t.Errorf("PromptConfirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidateImagePath(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "top.png")
	if err := os.WriteFile(img, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateImagePath(img); err != nil {
		t.Errorf("valid path: %v", err)
	}
	if err := ValidateImagePath(filepath.Join(dir, "notes.txt")); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if err := ValidateImagePath(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := ValidateImagePath(filepath.Join(dir, "dir.png")); err == nil {
		t.Error("expected error for directory")
	}
}
