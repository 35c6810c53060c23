// Package tui is the terminal client: the submission form above the
// dashboard list.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"textsubmission/app/apperr"
	"textsubmission/app/models"
	"textsubmission/client/dashboard"
	"textsubmission/client/events"
	"textsubmission/client/form"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// API is everything the form and dashboard need from the server.
type API interface {
	form.Creator
	dashboard.API
}

type focus int

const (
	focusForm focus = iota
	focusList
)

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modeConfirmDelete
)

type loadedMsg struct{ err error }
type submittedMsg struct{ err error }
type savedMsg struct{ err error }
type deletedMsg struct {
	deleted bool
	err     error
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3498db"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9b59b6")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c8d"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71"))
)

type model struct {
	ctx       context.Context
	form      *form.Form
	dash      *dashboard.Dashboard
	input     textinput.Model
	editInput textinput.Model
	focus     focus
	mode      mode
	cursor    int
	pending   models.Submission
}

func newModel(ctx context.Context, f *form.Form, d *dashboard.Dashboard, rule models.TextRule) model {
	input := textinput.New()
	input.Placeholder = "Type something to submit"
	input.Width = rule.Max
	input.Prompt = "> "
	input.Focus()

	editInput := textinput.New()
	editInput.Width = rule.Max
	editInput.Prompt = ""
	editInput.TextStyle = selectedStyle

	return model{
		ctx:       ctx,
		form:      f,
		dash:      d,
		input:     input,
		editInput: editInput,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadCmd())
}

func (m model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.dash.Load(m.ctx)}
	}
}

func (m model) submitCmd() tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{err: m.form.Submit(m.ctx)}
	}
}

func (m model) saveCmd(id int) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{err: m.dash.SaveEdit(m.ctx, id)}
	}
}

// deleteCmd runs after the user already answered the prompt in the view.
func (m model) deleteCmd(id int) tea.Cmd {
	return func() tea.Msg {
		deleted, err := m.dash.Delete(m.ctx, id, func(string) bool { return true })
		return deletedMsg{deleted: deleted, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		case modeEdit:
			return m.updateEdit(msg)
		}
		if msg.String() == "tab" {
			return m.toggleFocus(), nil
		}
		if m.focus == focusForm {
			return m.updateForm(msg)
		}
		return m.updateList(msg)

	case loadedMsg, deletedMsg:
		m.clampCursor()
		return m, nil

	case submittedMsg:
		if msg.err == nil {
			m.input.SetValue("")
		}
		return m, nil

	case savedMsg:
		if msg.err == nil {
			m.mode = modeBrowse
			m.editInput.Blur()
		}
		return m, nil
	}
	return m, nil
}

func (m model) toggleFocus() model {
	if m.focus == focusForm {
		m.focus = focusList
		m.input.Blur()
	} else {
		m.focus = focusForm
		m.input.Focus()
	}
	return m
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		if !m.form.CanSubmit() {
			m.form.SetText(m.input.Value())
			return m, nil
		}
		return m, m.submitCmd()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.form.SetText(m.input.Value())
	return m, cmd
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.dash.Snapshot().Submissions
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadCmd()
	case "e":
		if row, ok := m.selected(rows); ok {
			m.dash.StartEdit(row)
			m.editInput.SetValue(row.Text)
			m.editInput.CursorEnd()
			m.editInput.Focus()
			m.mode = modeEdit
		}
	case "d":
		if row, ok := m.selected(rows); ok {
			m.pending = row
			m.mode = modeConfirmDelete
		}
	}
	return m, nil
}

func (m model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return m, m.saveCmd(m.dash.Snapshot().EditingID)
	case tea.KeyEsc:
		m.dash.CancelEdit()
		m.editInput.Blur()
		m.mode = modeBrowse
		return m, nil
	}

	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	m.dash.SetEditText(m.editInput.Value())
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeBrowse
		return m, m.deleteCmd(m.pending.ID)
	case "n", "N", "esc":
		m.mode = modeBrowse
	}
	return m, nil
}

func (m model) selected(rows []models.Submission) (models.Submission, bool) {
	if m.cursor < 0 || m.cursor >= len(rows) {
		return models.Submission{}, false
	}
	return rows[m.cursor], true
}

func (m *model) clampCursor() {
	n := len(m.dash.Snapshot().Submissions)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Text submissions"))
	b.WriteString("\n")

	// form
	state := m.form.State()
	b.WriteString(sectionStyle.Render("New submission"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("  " + mutedStyle.Render(m.form.Counter()) + "\n")
	if err := m.form.Error(); err != nil && state.Touched {
		b.WriteString(errorStyle.Render(apperr.PublicMessage(err)) + "\n")
	}
	switch {
	case state.IsSubmitting:
		b.WriteString(mutedStyle.Render("Submitting...") + "\n")
	case state.SubmitMessage != "" && state.SubmitSuccess:
		b.WriteString(successStyle.Render(state.SubmitMessage) + "\n")
	case state.SubmitMessage != "":
		b.WriteString(errorStyle.Render(state.SubmitMessage) + "\n")
	}

	// dashboard
	snap := m.dash.Snapshot()
	b.WriteString(sectionStyle.Render("Submissions"))
	b.WriteString("\n")
	if snap.IsLoading {
		b.WriteString(mutedStyle.Render("Loading...") + "\n")
	}
	if snap.ErrorMessage != "" {
		b.WriteString(errorStyle.Render(snap.ErrorMessage) + "\n")
	}
	if len(snap.Submissions) == 0 && !snap.IsLoading {
		b.WriteString(mutedStyle.Render("No submissions yet.") + "\n")
	}
	for i, row := range snap.Submissions {
		cursor := "  "
		if m.focus == focusList && i == m.cursor {
			cursor = "> "
		}
		stamp := mutedStyle.Render(row.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if m.mode == modeEdit && snap.Editing && snap.EditingID == row.ID {
			fmt.Fprintf(&b, "%s#%d %s  %s\n", cursor, row.ID, m.editInput.View(), stamp)
			continue
		}
		text := row.Text
		if m.focus == focusList && i == m.cursor {
			text = selectedStyle.Render(text)
		}
		fmt.Fprintf(&b, "%s#%d %s  %s\n", cursor, row.ID, text, stamp)
	}
	if snap.Alert != "" {
		b.WriteString(errorStyle.Render(snap.Alert) + "\n")
	}

	b.WriteString("\n")
	switch m.mode {
	case modeConfirmDelete:
		b.WriteString(dashboard.DeletePrompt(m.pending.Text) + " [y/N]\n")
	case modeEdit:
		b.WriteString(mutedStyle.Render("enter save • esc cancel • ctrl+c quit") + "\n")
	default:
		if m.focus == focusForm {
			b.WriteString(mutedStyle.Render("enter submit • tab list • ctrl+c quit") + "\n")
		} else {
			b.WriteString(mutedStyle.Render("↑/↓ select • e edit • d delete • r reload • tab form • ctrl+c quit") + "\n")
		}
	}
	return b.String()
}

// Run starts the terminal client against api until the user quits or ctx
// is cancelled. Created submissions trigger an immediate list reload.
func Run(ctx context.Context, api API, rule models.TextRule, logger *slog.Logger, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := events.NewBus()
	f := form.New(api, bus, rule, logger)
	d := dashboard.New(api, rule, logger)

	p := tea.NewProgram(newModel(ctx, f, d, rule), append(opts, tea.WithContext(ctx))...)
	go d.Watch(ctx, bus, func(err error) {
		p.Send(loadedMsg{err: err})
	})

	_, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal client: %w", err)
	}
	return nil
}
