package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/tokensync/internal/model"
	"github.com/klauern/tokensync/internal/report"
	"github.com/klauern/tokensync/internal/sync"
)

// ConflictAction represents what the user chose to do after reviewing.
type ConflictAction int

const (
	// ConflictActionNone means no action was taken (user quit).
	ConflictActionNone ConflictAction = iota
	// ConflictActionResolve means the user confirmed the chosen resolutions.
	ConflictActionResolve
	// ConflictActionCancel means the user cancelled.
	ConflictActionCancel
)

// ConflictListResult contains the result of the review.
type ConflictListResult struct {
	Action ConflictAction
	// Resolutions holds one entry per decided conflict, in conflict order.
	// Undecided conflicts are left out, which keeps the local token.
	Resolutions []sync.Resolution
}

type conflictPhase int

const (
	phaseList conflictPhase = iota
	phaseDetail
)

type conflictKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Local    key.Binding
	Remote   key.Binding
	Clear    key.Binding
	Suggest  key.Binding
	Confirm  key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func defaultConflictKeyMap() conflictKeyMap {
	return conflictKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "view details")),
		Local:    key.NewBinding(key.WithKeys("l", "1"), key.WithHelp("l/1", "take local")),
		Remote:   key.NewBinding(key.WithKeys("r", "2"), key.WithHelp("r/2", "take remote")),
		Clear:    key.NewBinding(key.WithKeys("x", "3"), key.WithHelp("x/3", "undecide")),
		Suggest:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "accept suggestions")),
		Confirm:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "apply")),
		Back:     key.NewBinding(key.WithKeys("b", "esc"), key.WithHelp("b/esc", "back")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "page down")),
	}
}

// ConflictListModel is the BubbleTea model for reviewing detected conflicts.
type ConflictListModel struct {
	conflicts   []sync.Conflict
	decisions   map[string]sync.Strategy // keyed by ConflictID.Key()
	table       table.Model
	viewport    viewport.Model
	keys        conflictKeyMap
	result      ConflictListResult
	phase       conflictPhase
	cursor      int
	showHelp    bool
	confirmMode bool
	width       int
	height      int
	quitting    bool
	ready       bool
}

var conflictStyles = struct {
	Help         lipgloss.Style
	Status       lipgloss.Style
	Local        lipgloss.Style
	Remote       lipgloss.Style
	Info         lipgloss.Style
	Warning      lipgloss.Style
	Resolved     lipgloss.Style
	Confirm      lipgloss.Style
	SectionTitle lipgloss.Style
}{
	Help:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Status:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Local:        lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	Remote:       lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
	Info:         lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true),
	Warning:      lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	Resolved:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Confirm:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true).Padding(0, 1),
	SectionTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(1, 0),
}

const pathColumnWidth = 36

// NewConflictListModel creates a review model for the given conflicts.
func NewConflictListModel(conflicts []sync.Conflict) ConflictListModel {
	columns := []table.Column{
		{Title: "", Width: 2},
		{Title: "Path", Width: pathColumnWidth},
		{Title: "Kind", Width: 14},
		{Title: "Severity", Width: 8},
		{Title: "Resolution", Width: 12},
	}

	rows := make([]table.Row, len(conflicts))
	for i, c := range conflicts {
		rows[i] = buildConflictRow(c, "")
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ConflictListModel{
		conflicts: conflicts,
		decisions: make(map[string]sync.Strategy),
		table:     t,
		keys:      defaultConflictKeyMap(),
		phase:     phaseList,
	}
}

func buildConflictRow(c sync.Conflict, decision sync.Strategy) table.Row {
	status := "○"
	resolution := "-"
	if decision != "" {
		status = "✓"
		resolution = string(decision)
	}
	return table.Row{
		status,
		truncateText(c.Path().String(), pathColumnWidth),
		string(c.Kind()),
		string(c.Severity),
		resolution,
	}
}

// Init implements tea.Model.
func (m ConflictListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConflictListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.phase == phaseDetail {
		return m.updateDetail(msg)
	}
	return m.updateList(msg)
}

func (m ConflictListModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-10, 5))

	case tea.KeyMsg:
		if m.confirmMode {
			switch msg.String() {
			case "y", "Y":
				m.result = ConflictListResult{
					Action:      ConflictActionResolve,
					Resolutions: m.buildResolutions(),
				}
				m.quitting = true
				return m, tea.Quit
			case "n", "N", "esc":
				m.confirmMode = false
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Select):
			if len(m.conflicts) > 0 {
				m.cursor = m.table.Cursor()
				m.phase = phaseDetail
				m.ready = false
			}
			return m, nil

		case key.Matches(msg, m.keys.Local):
			m.decideAt(m.table.Cursor(), sync.StrategyTakeLocal)
			return m, nil

		case key.Matches(msg, m.keys.Remote):
			m.decideAt(m.table.Cursor(), sync.StrategyTakeRemote)
			return m, nil

		case key.Matches(msg, m.keys.Clear):
			m.decideAt(m.table.Cursor(), "")
			return m, nil

		case key.Matches(msg, m.keys.Suggest):
			m.acceptSuggestions()
			return m, nil

		case key.Matches(msg, m.keys.Confirm):
			if len(m.decisions) > 0 {
				m.confirmMode = true
			}
			return m, nil

		case key.Matches(msg, m.keys.Back):
			m.result = ConflictListResult{Action: ConflictActionCancel}
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ConflictListModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := max(msg.Height-10, 5)
		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, viewportHeight)
			m.viewport.SetContent(m.buildDetailContent())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = viewportHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Back):
			m.phase = phaseList
			return m, nil

		case key.Matches(msg, m.keys.Local):
			m.decideAt(m.cursor, sync.StrategyTakeLocal)
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil

		case key.Matches(msg, m.keys.Remote):
			m.decideAt(m.cursor, sync.StrategyTakeRemote)
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil

		case key.Matches(msg, m.keys.Clear):
			m.decideAt(m.cursor, "")
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// decideAt records a strategy for the conflict at idx. An empty strategy
// clears the decision. Conflicts that are not decidable stay undecided.
func (m *ConflictListModel) decideAt(idx int, strategy sync.Strategy) {
	if idx < 0 || idx >= len(m.conflicts) {
		return
	}
	c := m.conflicts[idx]
	if strategy != "" && !c.Decidable() {
		return
	}
	if strategy == "" {
		delete(m.decisions, c.ID.Key())
	} else {
		m.decisions[c.ID.Key()] = strategy
	}

	rows := m.table.Rows()
	if idx < len(rows) {
		rows[idx] = buildConflictRow(c, strategy)
		m.table.SetRows(rows)
	}
}

// acceptSuggestions decides every auto-resolvable conflict with its
// suggested strategy, leaving existing decisions alone.
func (m *ConflictListModel) acceptSuggestions() {
	for i, c := range m.conflicts {
		if !c.AutoResolvable || c.Suggested == sync.StrategyManual {
			continue
		}
		if _, decided := m.decisions[c.ID.Key()]; decided {
			continue
		}
		m.decideAt(i, c.Suggested)
	}
}

func (m ConflictListModel) buildResolutions() []sync.Resolution {
	var resolutions []sync.Resolution
	for _, c := range m.conflicts {
		strategy, ok := m.decisions[c.ID.Key()]
		if !ok {
			continue
		}
		path := c.Path()
		resolutions = append(resolutions, sync.Resolution{
			ConflictID: c.ID.String(),
			Strategy:   strategy,
			Path:       &path,
		})
	}
	return resolutions
}

func (m ConflictListModel) buildDetailContent() string {
	if m.cursor < 0 || m.cursor >= len(m.conflicts) {
		return "No conflict selected"
	}

	c := m.conflicts[m.cursor]
	width := max(m.width-4, 40)
	var b strings.Builder

	b.WriteString(conflictStyles.SectionTitle.Render("Conflict"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Path:      %s\n", c.Path())
	fmt.Fprintf(&b, "  Kind:      %s\n", report.KindTitle(c.Kind()))
	severity := string(c.Severity)
	if c.Severity == sync.SeverityHigh {
		severity = conflictStyles.Warning.Render(severity)
	}
	fmt.Fprintf(&b, "  Severity:  %s\n", severity)
	b.WriteString("  ")
	b.WriteString(formatDetail("Summary:   ", c.Description, width))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Suggested: %s\n", c.Suggested)

	if strategy, ok := m.decisions[c.ID.Key()]; ok {
		b.WriteString("\n")
		b.WriteString(conflictStyles.Resolved.Render("  Resolution: " + string(strategy)))
		b.WriteString("\n")
	}

	switch d := c.Detail.(type) {
	case sync.ValueChange:
		if len(d.ModeDiffs) > 0 {
			b.WriteString("\n")
			b.WriteString(formatDetail("  Modes differ: ", strings.Join(d.ModeDiffs, ", "), width))
			b.WriteString("\n")
		}
	case sync.NameConflict:
		b.WriteString(conflictStyles.SectionTitle.Render("Colliding paths"))
		b.WriteString("\n")
		for _, p := range d.Paths {
			fmt.Fprintf(&b, "  %s / %s\n", p.Collection, p.Name)
		}
	}

	if tok, ok := c.LocalToken(); ok {
		b.WriteString(conflictStyles.SectionTitle.Render("Local"))
		b.WriteString("\n")
		b.WriteString(conflictStyles.Local.Render(renderToken(tok)))
		b.WriteString("\n")
	}
	if tok, ok := c.RemoteToken(); ok {
		b.WriteString(conflictStyles.SectionTitle.Render("Remote"))
		b.WriteString("\n")
		b.WriteString(conflictStyles.Remote.Render(renderToken(tok)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if !c.Decidable() {
		b.WriteString(conflictStyles.Info.Render("Rename one of the colliding tokens at the source; this conflict stays undecided"))
		return b.String()
	}
	b.WriteString(conflictStyles.Info.Render("Press: l=local, r=remote, x=undecide"))
	return b.String()
}

// renderToken pretty-prints a token without its provenance.
func renderToken(tok model.Token) string {
	data, err := json.MarshalIndent(tok.WithoutMetadata(), "  ", "  ")
	if err != nil {
		return fmt.Sprintf("  <unprintable token: %v>", err)
	}
	return "  " + string(data)
}

// View implements tea.Model.
func (m ConflictListModel) View() string {
	if m.quitting {
		return ""
	}
	if m.phase == phaseDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m ConflictListModel) viewList() string {
	var b strings.Builder

	b.WriteString(Styles.Title.Render(fmt.Sprintf("Token conflicts (%d)", len(m.conflicts))))
	b.WriteString("\n\n")
	b.WriteString(conflictStyles.Info.Render("Undecided conflicts keep the local token"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.confirmMode {
		b.WriteString("\n")
		msg := fmt.Sprintf("Apply %d resolution(s)? (y/n)", len(m.decisions))
		b.WriteString(conflictStyles.Confirm.Render(msg))
		return b.String()
	}

	status := fmt.Sprintf("%d/%d decided", len(m.decisions), len(m.conflicts))
	if len(m.decisions) > 0 {
		status += " • press y to apply"
	}
	b.WriteString(conflictStyles.Status.Render(status))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(conflictStyles.Help.Render(listHelp))
	} else {
		b.WriteString(conflictStyles.Help.Render(strings.Join([]string{
			"↑/↓ navigate", "enter details", "l local", "r remote", "a suggested", "? help", "q quit",
		}, " • ")))
	}
	return b.String()
}

func (m ConflictListModel) viewDetail() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	path := ""
	if m.cursor >= 0 && m.cursor < len(m.conflicts) {
		path = m.conflicts[m.cursor].Path().String()
	}
	b.WriteString(Styles.Title.Render("Conflict: " + path))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(conflictStyles.Status.Render(fmt.Sprintf("Scroll: %d%%", int(m.viewport.ScrollPercent()*100))))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(conflictStyles.Help.Render(detailHelp))
	} else {
		b.WriteString(conflictStyles.Help.Render(strings.Join([]string{
			"↑/↓ scroll", "l local", "r remote", "x undecide", "b back", "? help",
		}, " • ")))
	}
	return b.String()
}

const listHelp = `Navigation:
  ↑/k      Move up
  ↓/j      Move down
  Enter    View conflict details

Resolution:
  l/1      Take the local token
  r/2      Take the remote token
  x/3      Clear the decision
  a        Accept suggestions for auto-resolvable conflicts

Actions:
  y        Apply decided resolutions
  b/Esc    Cancel

General:
  ?        Toggle full help
  q        Quit`

const detailHelp = `Navigation:
  ↑/k      Scroll up
  ↓/j      Scroll down
  PgUp     Page up
  PgDown   Page down

Resolution:
  l/1      Take the local token
  r/2      Take the remote token
  x/3      Clear the decision

Actions:
  b/Esc    Back to list

General:
  ?        Toggle full help
  q        Quit`

// Result returns the result of the user interaction.
func (m ConflictListModel) Result() ConflictListResult {
	return m.result
}

// RunConflictList runs the interactive review and returns the result.
func RunConflictList(conflicts []sync.Conflict) (ConflictListResult, error) {
	if len(conflicts) == 0 {
		return ConflictListResult{}, nil
	}

	finalModel, err := Run(NewConflictListModel(conflicts))
	if err != nil {
		return ConflictListResult{}, err
	}
	if m, ok := finalModel.(ConflictListModel); ok {
		return m.Result(), nil
	}
	return ConflictListResult{}, nil
}
