// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ollachat/internal/ollama"
)

// =============================================================================
// MODEL PICKER
// =============================================================================

// modelItem adapts ModelInfo to the list's default delegate.
type modelItem struct {
	info    ollama.ModelInfo
	current bool
}

func (i modelItem) Title() string {
	if i.current {
		return i.info.Name + " (current)"
	}
	return i.info.Name
}

func (i modelItem) Description() string {
	parts := []string{i.info.FormatSize()}
	for _, s := range []string{i.info.Details.Family, i.info.Details.ParameterSize, i.info.Details.QuantizationLevel} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " · ")
}

func (i modelItem) FilterValue() string { return i.info.Name }

var pickerStyle = lipgloss.NewStyle().Margin(1, 2)

// pickerModel is a bubbletea model listing installed models. choice is set
// when the user confirms; it stays empty on abort.
type pickerModel struct {
	list   list.Model
	choice string
}

func newPicker(models []ollama.ModelInfo, current string) pickerModel {
	items := make([]list.Item, 0, len(models))
	selected := 0
	for i, m := range models {
		items = append(items, modelItem{info: m, current: m.Name == current})
		if m.Name == current {
			selected = i
		}
	}
	l := list.New(items, list.NewDefaultDelegate(), DefaultTerminalWidth, 20)
	l.Title = "Select a model"
	l.Select(selected)
	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := pickerStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(modelItem); ok {
				m.choice = item.info.Name
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.choice != "" {
		return ""
	}
	return pickerStyle.Render(m.list.View())
}

// pickModel runs the picker and returns the chosen name, "" when aborted.
func pickModel(models []ollama.ModelInfo, current string, in io.Reader, out io.Writer) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("no models installed")
	}
	p := tea.NewProgram(newPicker(models, current), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("model picker: %w", err)
	}
	return final.(pickerModel).choice, nil
}
