// ABOUTME: TUI initialization and control channels
// ABOUTME: Wraps the bubbletea program for the soundscape console
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ActionKind identifies a user request from the TUI
type ActionKind int

const (
	ActionStart  ActionKind = iota // user gesture that starts audio
	ActionVolume                   // master volume changed
	ActionMute                     // mute toggled
	ActionScene                    // biome, time of day or weather changed
	ActionStop                     // stop the soundscape
)

// Action is a request emitted by the TUI
type Action struct {
	Kind      ActionKind
	Volume    float64
	Biome     string
	TimeOfDay string
	Weather   string
}

// Controls holds the channels the TUI reports on
type Controls struct {
	Actions chan Action
	Quit    chan struct{}
}

// NewControls creates the control channels
func NewControls() *Controls {
	return &Controls{
		Actions: make(chan Action, 10),
		Quit:    make(chan struct{}, 1),
	}
}

// Selection is the initial scene shown in the TUI
type Selection struct {
	Biome     string
	TimeOfDay string
	Weather   string
	Volume    float64
}

// Run creates the TUI program. The caller runs it.
func Run(controls *Controls, sel Selection) *tea.Program {
	return tea.NewProgram(NewModel(controls, sel), tea.WithAltScreen())
}
