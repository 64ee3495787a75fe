package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// TileModel is a Bubble Tea model for read-only tile views. It renders a
// GeoJSON tile feature (or feature collection) as a property sheet.
type TileModel struct {
	viewType string
	data     any
	width    int
	quitting bool
}

// NewTileModel creates a tile view model.
func NewTileModel(viewType string, data any) TileModel {
	return TileModel{viewType: viewType, data: data}
}

// Init implements tea.Model.
func (m TileModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m TileModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m TileModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "tile":
		content = renderFeature(m.data)
	case "tiles":
		content = renderFeatureCollection(m.data)
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func renderFeature(data any) string {
	feature, ok := data.(map[string]any)
	if !ok {
		return "Invalid data type for tile view"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Tile"))
	b.WriteString("\n")

	props, _ := feature["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []string
	for _, name := range names {
		rows = append(rows,
			LabelStyle.Render(name)+ValueStyle.Render(fmt.Sprintf("%v", props[name])))
	}
	if geom, ok := feature["geometry"].(map[string]any); ok {
		rows = append(rows,
			LabelStyle.Render("geometry")+ValueStyle.Render(fmt.Sprintf("%v", geom["type"])))
	}

	b.WriteString(BoxStyle.Render(strings.Join(rows, "\n")))
	return b.String()
}

func renderFeatureCollection(data any) string {
	fc, ok := data.(map[string]any)
	if !ok {
		return "Invalid data type for tiles view"
	}
	features, _ := fc["features"].([]any)

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Tiles (%d)", len(features))))
	b.WriteString("\n")

	for _, f := range features {
		feature, ok := f.(map[string]any)
		if !ok {
			continue
		}
		props, _ := feature["properties"].(map[string]any)
		b.WriteString(ValueStyle.Render(fmt.Sprintf("%v", props["key"])))
		b.WriteString("\n")
	}
	return b.String()
}
