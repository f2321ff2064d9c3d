package cli

import (
	"os"
	"os/exec"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.mode == panelGrammars {
			m.mode = panelDiagnostics
		} else {
			m.mode = panelGrammars
		}
		return m, nil
	case "t":
		m.showTrend = !m.showTrend
		if m.showTrend {
			m = loadTrend(m)
		}
		return m, nil
	case "o":
		path := selectedPath(m)
		if path == "" {
			m.editorStatus = statusStyle.Render("No grammar selected.")
			return m, nil
		}
		return m, openEditorCmd(path)
	}

	if m.mode == panelDiagnostics {
		switch msg.String() {
		case "esc", "backspace":
			m.mode = panelGrammars
			return m, nil
		}
		var cmd tea.Cmd
		m.diagList, cmd = m.diagList.Update(msg)
		return m, cmd
	}

	if msg.String() == "enter" {
		return selectGrammar(m), nil
	}
	var cmd tea.Cmd
	m.grammarList, cmd = m.grammarList.Update(msg)
	return m, cmd
}

func selectedPath(m model) string {
	if m.mode == panelDiagnostics {
		return m.selected
	}
	if it, ok := m.grammarList.SelectedItem().(item); ok {
		return it.key
	}
	return ""
}

// selectGrammar focuses the diagnostics panel on the highlighted grammar.
func selectGrammar(m model) model {
	path := selectedPath(m)
	st, ok := m.states[path]
	if !ok {
		return m
	}
	m.selected = path
	m.diagList.SetItems(diagnosticItems(st))
	m.diagList.ResetSelected()
	m.mode = panelDiagnostics
	if m.showTrend {
		m = loadTrend(m)
	}
	return m
}

func loadTrend(m model) model {
	m.trendPoints, m.trendErr = nil, ""
	if m.trend == nil {
		return m
	}
	path := m.selected
	if path == "" {
		path = selectedPath(m)
	}
	st, ok := m.states[path]
	if !ok {
		return m
	}
	points, err := m.trend(st.grammar)
	if err != nil {
		m.trendErr = err.Error()
		return m
	}
	m.trendPoints = points
	return m
}

func openEditorCmd(path string) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	cmd := exec.Command(editor, path)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorResultMsg{target: path, err: err}
	})
}
