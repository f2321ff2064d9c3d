package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sapling/internal/core/app"
	"sapling/internal/data/history"
	"sapling/internal/engine/validate"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	rejectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	key         string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type panelMode int

const (
	panelGrammars panelMode = iota
	panelDiagnostics
)

// grammarState is the latest validation outcome of one watched file.
type grammarState struct {
	path        string
	grammar     string
	outcome     history.Outcome
	errMsg      string
	diagnostics []validate.Diagnostic
	cached      bool
	at          time.Time
}

func (s grammarState) counts() (warnings, infos int) {
	for _, d := range s.diagnostics {
		switch d.Severity {
		case validate.SeverityWarning:
			warnings++
		case validate.SeverityInfo:
			infos++
		}
	}
	return warnings, infos
}

func stateFromUpdate(u app.Update) grammarState {
	res := u.Result
	st := grammarState{
		path:    res.Path,
		grammar: res.GrammarName(),
		outcome: res.Outcome(),
		cached:  res.Cached,
		at:      u.At,
	}
	if res.Err != nil {
		st.errMsg = res.Err.Error()
	}
	if res.Report != nil {
		st.diagnostics = append([]validate.Diagnostic(nil), res.Report.Diagnostics...)
	}
	return st
}

// trendFunc loads the recorded trend of a grammar; nil when history is off.
type trendFunc func(grammar string) ([]history.TrendPoint, error)

type updateMsg struct {
	state grammarState
}

type editorResultMsg struct {
	target string
	err    error
}

type model struct {
	grammarList list.Model
	diagList    list.Model
	mode        panelMode

	states   map[string]grammarState
	paths    []string
	selected string

	trend       trendFunc
	showTrend   bool
	trendPoints []history.TrendPoint
	trendErr    string

	lastUpdate   time.Time
	editorStatus string
}

func initialModel(trend trendFunc) model {
	grammarList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	grammarList.Title = "Watched Grammars"
	grammarList.SetShowStatusBar(false)
	grammarList.SetFilteringEnabled(true)

	diagList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	diagList.Title = "Diagnostics"
	diagList.SetShowStatusBar(false)
	diagList.SetFilteringEnabled(true)

	return model{
		grammarList: grammarList,
		diagList:    diagList,
		mode:        panelGrammars,
		states:      make(map[string]grammarState),
		trend:       trend,
		lastUpdate:  time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.grammarList.SetSize(width, height)
		m.diagList.SetSize(width, height)
	case updateMsg:
		st := msg.state
		if _, seen := m.states[st.path]; !seen {
			m.paths = append(m.paths, st.path)
			sort.Strings(m.paths)
		}
		m.states[st.path] = st
		m.lastUpdate = st.at
		m.grammarList.SetItems(grammarItems(m))
		if m.selected == st.path {
			m.diagList.SetItems(diagnosticItems(st))
			if m.showTrend {
				m = loadTrend(m)
			}
		}
		return m, nil
	case editorResultMsg:
		if msg.err != nil {
			m.editorStatus = statusStyle.Render(fmt.Sprintf("Editor failed: %v", msg.err))
		} else {
			m.editorStatus = statusStyle.Render(fmt.Sprintf("Edited: %s", msg.target))
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.mode == panelGrammars {
		m.grammarList, cmd = m.grammarList.Update(msg)
	} else {
		m.diagList, cmd = m.diagList.Update(msg)
	}
	return m, cmd
}

func grammarItems(m model) []list.Item {
	items := make([]list.Item, 0, len(m.paths))
	for _, path := range m.paths {
		st := m.states[path]
		items = append(items, item{
			title: fmt.Sprintf("%s (%s)", path, st.grammar),
			desc:  stateSummary(st),
			key:   path,
		})
	}
	return items
}

func stateSummary(st grammarState) string {
	if st.outcome != history.OutcomeOK {
		return fmt.Sprintf("%s: %s", st.outcome, st.errMsg)
	}
	warnings, infos := st.counts()
	summary := fmt.Sprintf("ok | %d warning(s) | %d info", warnings, infos)
	if st.cached {
		summary += " | cached"
	}
	return summary
}

func diagnosticItems(st grammarState) []list.Item {
	if st.outcome != history.OutcomeOK {
		return []list.Item{item{title: string(st.outcome), desc: st.errMsg, key: st.path}}
	}
	items := make([]list.Item, 0, len(st.diagnostics))
	for _, d := range st.diagnostics {
		items = append(items, item{
			title: fmt.Sprintf("%s %s", d.Severity, d.Code),
			desc:  d.Message,
			key:   d.Rule,
		})
	}
	return items
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d grammars",
		m.lastUpdate.Format("15:04:05"), len(m.paths)))

	rejected, warnings := 0, 0
	for _, st := range m.states {
		if st.outcome != history.OutcomeOK {
			rejected++
		}
		w, _ := st.counts()
		warnings += w
	}
	var summary string
	if rejected == 0 && warnings == 0 {
		summary = successStyle.Render("All grammars clean")
	} else {
		summary = fmt.Sprintf("%s | %s",
			rejectedStyle.Render(fmt.Sprintf("%d rejected", rejected)),
			warningStyle.Render(fmt.Sprintf("%d warnings", warnings)))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Sapling Grammar Monitor"), status, summary)

	body := m.grammarList.View()
	if m.mode == panelDiagnostics {
		body = renderDiagnosticsPanel(m)
	}
	if m.showTrend {
		body += "\n\n" + renderTrendOverlay(m)
	}
	if m.editorStatus != "" {
		body += "\n\n" + m.editorStatus
	}
	return docStyle.Render(header + "\n" + renderHelp(m) + "\n\n" + body)
}

func renderHelp(m model) string {
	keys := "Keys: tab panel | / filter | enter diagnostics | t trend | o edit | q quit"
	if m.mode == panelDiagnostics {
		keys = "Keys: tab panel | / filter | esc back | t trend | o edit | q quit"
	}
	return statusStyle.Render(keys)
}

func renderDiagnosticsPanel(m model) string {
	st, ok := m.states[m.selected]
	if !ok {
		return statusStyle.Render("Select a grammar and press enter.")
	}
	heading := fmt.Sprintf("%s (%s)", st.path, st.grammar)
	if len(st.diagnostics) == 0 && st.outcome == history.OutcomeOK {
		return heading + "\n\n" + successStyle.Render("No diagnostics.")
	}
	return heading + "\n\n" + m.diagList.View()
}

func renderTrendOverlay(m model) string {
	if m.trend == nil {
		return statusStyle.Render("Trend unavailable (set [history] enabled = true to record runs).")
	}
	if m.trendErr != "" {
		return rejectedStyle.Render("Trend error: " + m.trendErr)
	}
	if len(m.trendPoints) == 0 {
		return statusStyle.Render("No recorded runs for the selected grammar.")
	}
	last := m.trendPoints[len(m.trendPoints)-1]
	changed := "no"
	if last.Changed {
		changed = "yes"
	}
	return strings.Join([]string{
		"Trend: " + last.Run.Grammar,
		fmt.Sprintf("  Runs: %d", len(m.trendPoints)),
		fmt.Sprintf("  Rules: %d (%+d)", last.Run.RuleCount, last.DeltaRules),
		fmt.Sprintf("  Diagnostics: %d (%+d)", last.DiagnosticCount, last.DeltaDiagnostics),
		fmt.Sprintf("  Content changed: %s", changed),
	}, "\n")
}
