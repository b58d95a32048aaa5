package window

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/terratile/internal/config"
)

func TestFromPreview(t *testing.T) {
	p := config.Default().Preview
	p.Fullscreen = true

	got := FromPreview("tileview", p)
	want := Config{Title: "tileview", Width: p.Width, Height: p.Height, Fullscreen: true, VSync: p.VSync, MSAA: p.MSAA}
	if got != want {
		t.Errorf("FromPreview = %+v, want %+v", got, want)
	}
}

func TestGLAttributes(t *testing.T) {
	tests := []struct {
		name        string
		msaa        int
		wantSamples int // 0 means no multisample attributes
	}{
		{"no msaa", 0, 0},
		{"4x", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := Config{MSAA: tt.msaa}.glAttributes()
			samples := 0
			core := false
			for _, a := range attrs {
				switch a.attr {
				case sdl.GL_MULTISAMPLESAMPLES:
					samples = a.value
				case sdl.GL_CONTEXT_PROFILE_MASK:
					core = a.value == sdl.GL_CONTEXT_PROFILE_CORE
				}
			}
			if samples != tt.wantSamples {
				t.Errorf("samples = %d, want %d", samples, tt.wantSamples)
			}
			if !core {
				t.Error("core profile not requested")
			}
		})
	}
}

func TestWindowFlags(t *testing.T) {
	windowed := Config{}.windowFlags()
	if windowed&sdl.WINDOW_OPENGL == 0 || windowed&sdl.WINDOW_RESIZABLE == 0 {
		t.Errorf("windowed flags %#x missing OpenGL or resizable", windowed)
	}
	if windowed&sdl.WINDOW_FULLSCREEN_DESKTOP != 0 {
		t.Errorf("windowed flags %#x include fullscreen", windowed)
	}
	if full := (Config{Fullscreen: true}).windowFlags(); full&sdl.WINDOW_FULLSCREEN_DESKTOP == 0 {
		t.Errorf("fullscreen flags %#x missing fullscreen", full)
	}
}
