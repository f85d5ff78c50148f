// ABOUTME: Bubbletea model for the soundscape console
// ABOUTME: Renders engine and scene status and turns keys into actions
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Sendspin/soundscape-go/internal/biome"
	"github.com/Sendspin/soundscape-go/internal/resolver"
	"github.com/Sendspin/soundscape-go/internal/weather"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const volumeStep = 0.05

// StatusMsg updates TUI state
type StatusMsg struct {
	Initialized  bool
	Muted        bool
	MasterVolume float64
	Biome        string
	TimeOfDay    string
	WeatherCode  int
	Layers       []resolver.Layer
	Active       []string
	FailedLoads  []string
	Clients      int
	Crossfades   int
}

// Model represents the TUI state
type Model struct {
	controls *Controls

	// Engine
	initialized bool
	muted       bool
	volume      float64
	crossfades  int

	// Scene
	sceneBiome string
	sceneTime  string
	sceneCode  int
	layers     []resolver.Layer
	active     map[string]bool
	failed     []string
	clients    int

	// Selection
	biomeIdx   int
	timeIdx    int
	weatherIdx int

	quitting bool
	width    int
	height   int
}

// NewModel creates a new TUI model
func NewModel(controls *Controls, sel Selection) Model {
	m := Model{
		controls: controls,
		volume:   sel.Volume,
		active:   make(map[string]bool),
	}
	for i, b := range biome.All {
		if string(b) == sel.Biome {
			m.biomeIdx = i
		}
	}
	for i, tod := range resolver.TimesOfDay {
		if string(tod) == sel.TimeOfDay {
			m.timeIdx = i
		}
	}
	for i, p := range weather.Presets {
		if p.Name == sel.Weather {
			m.weatherIdx = i
		}
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// Selection returns the currently selected scene
func (m Model) Selection() Selection {
	return Selection{
		Biome:     string(biome.All[m.biomeIdx]),
		TimeOfDay: string(resolver.TimesOfDay[m.timeIdx]),
		Weather:   weather.Presets[m.weatherIdx].Name,
		Volume:    m.volume,
	}
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "enter":
		m.emit(Action{Kind: ActionStart})
	case "up":
		m.volume = clamp(m.volume + volumeStep)
		m.emit(Action{Kind: ActionVolume, Volume: m.volume})
	case "down":
		m.volume = clamp(m.volume - volumeStep)
		m.emit(Action{Kind: ActionVolume, Volume: m.volume})
	case "m":
		m.muted = !m.muted
		m.emit(Action{Kind: ActionMute})
	case "b":
		m.biomeIdx = (m.biomeIdx + 1) % len(biome.All)
		m.emitScene()
	case "t":
		m.timeIdx = (m.timeIdx + 1) % len(resolver.TimesOfDay)
		m.emitScene()
	case "w":
		m.weatherIdx = (m.weatherIdx + 1) % len(weather.Presets)
		m.emitScene()
	case "s":
		m.emit(Action{Kind: ActionStop})
	}

	return m, nil
}

func (m Model) emitScene() {
	sel := m.Selection()
	m.emit(Action{
		Kind:      ActionScene,
		Biome:     sel.Biome,
		TimeOfDay: sel.TimeOfDay,
		Weather:   sel.Weather,
	})
}

func (m Model) emit(a Action) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Actions <- a:
	default:
		// Don't block the UI if nobody is listening
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.initialized = msg.Initialized
	m.muted = msg.Muted
	m.volume = msg.MasterVolume
	m.sceneBiome = msg.Biome
	m.sceneTime = msg.TimeOfDay
	m.sceneCode = msg.WeatherCode
	m.layers = msg.Layers
	m.failed = msg.FailedLoads
	m.clients = msg.Clients
	m.crossfades = msg.Crossfades

	m.active = make(map[string]bool, len(msg.Active))
	for _, id := range msg.Active {
		m.active[id] = true
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Fading out...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	layerHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	warnStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("203"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("Soundscape"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Audio: "))
	if m.initialized {
		b.WriteString(valueStyle.Render("running"))
	} else {
		b.WriteString(warnStyle.Render("stopped (press enter to start)"))
	}
	b.WriteString("\n")

	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	b.WriteString(headerStyle.Render("Volume: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 10), int(m.volume*100+0.5), muteIcon)))
	b.WriteString("\n")

	sel := m.Selection()
	b.WriteString(headerStyle.Render("Selected: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s / %s / %s", sel.Biome, sel.TimeOfDay, sel.Weather)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Playing: "))
	if m.sceneBiome == "" {
		b.WriteString(valueStyle.Render("nothing"))
	} else {
		b.WriteString(valueStyle.Render(fmt.Sprintf("%s / %s / code %d", m.sceneBiome, m.sceneTime, m.sceneCode)))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Crossfades: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.crossfades)))
	b.WriteString(headerStyle.Render("  Clients: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.clients)))
	b.WriteString("\n\n")

	b.WriteString(layerHeaderStyle.Render(fmt.Sprintf("Layers (%d)", len(m.layers))))
	b.WriteString("\n\n")

	if len(m.layers) == 0 {
		b.WriteString(valueStyle.Render("  No layers"))
		b.WriteString("\n")
	}
	for _, l := range m.layers {
		marker := "○"
		if m.active[l.ID] {
			marker = "●"
		}
		b.WriteString(fmt.Sprintf("  %s %-16s", marker, l.ID))
		b.WriteString(valueStyle.Render(fmt.Sprintf(" [%s] %3d%% %s", renderBar(l.Volume, 10), int(l.Volume*100+0.5), l.Category)))
		b.WriteString("\n")
	}

	if len(m.failed) > 0 {
		failed := append([]string(nil), m.failed...)
		sort.Strings(failed)
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("Failed to load: " + strings.Join(failed, ", ")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render(
		"enter:Start  ↑/↓:Volume  m:Mute  b:Biome  t:Time  w:Weather  s:Stop  q:Quit"))

	return b.String()
}

// Utility functions
func renderBar(value float64, width int) string {
	filled := int(value*float64(width) + 0.5)
	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString("░")
		}
	}
	return bar.String()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	// Keep keyboard steps on round percentages
	return float64(int(v*100+0.5)) / 100
}
