package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{"tile", true},
		{"tiles", true},

		// Fetch progress has its own live program.
		{"fetch", false},
		{"stack", false},
		{"version", false},
		{"unknown", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			got := IsTUISupported(tt.viewType)
			if got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestTileModel_View(t *testing.T) {
	feature := map[string]any{
		"type": "Feature",
		"properties": map[string]any{
			"key":        "128:16:30.0:15:3:80",
			"resolution": 30.0,
		},
		"geometry": map[string]any{"type": "Polygon"},
	}

	m := NewTileModel("tile", feature)
	view := m.View()

	if !strings.Contains(view, "128:16:30.0:15:3:80") {
		t.Errorf("view missing tile key:\n%s", view)
	}
	if !strings.Contains(view, "Polygon") {
		t.Errorf("view missing geometry type:\n%s", view)
	}
}

func TestTileModel_QuitOnKey(t *testing.T) {
	m := NewTileModel("tile", map[string]any{})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if updated.(TileModel).View() != "" {
		t.Error("quitting model should render nothing")
	}
}

func TestTileModel_InvalidData(t *testing.T) {
	m := NewTileModel("tile", "not a feature")
	if !strings.Contains(m.View(), "Invalid data type") {
		t.Errorf("expected invalid-data message, got:\n%s", m.View())
	}
}

func TestFetchModel_Progress(t *testing.T) {
	m := NewFetchModel("landsat:LC08:PRE:TOAR:meta")

	var model tea.Model = m
	model, _ = model.Update(chunkMsg(1024))
	model, _ = model.Update(chunkMsg(2048))

	fm := model.(FetchModel)
	if fm.chunks != 2 {
		t.Errorf("chunks = %d, want 2", fm.chunks)
	}
	if fm.bytes != 3072 {
		t.Errorf("bytes = %d, want 3072", fm.bytes)
	}
	if !strings.Contains(fm.View(), "2 chunks") {
		t.Errorf("view missing chunk count:\n%s", fm.View())
	}
}

func TestFetchModel_Done(t *testing.T) {
	var model tea.Model = NewFetchModel("scene-1")

	model, cmd := model.Update(doneMsg{location: "out/scene-1.npy"})
	if cmd == nil {
		t.Fatal("expected quit command after done")
	}
	view := model.(FetchModel).View()
	if !strings.Contains(view, "out/scene-1.npy") {
		t.Errorf("view missing artifact location:\n%s", view)
	}
}

func TestRun_UnsupportedView(t *testing.T) {
	if err := Run("fetch", nil); err == nil {
		t.Fatal("expected error for unsupported view type")
	}
}
