package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/tallyhq/tally/internal/export"
	"github.com/tallyhq/tally/internal/transaction"
)

const exportTimeout = 2 * time.Minute

type exportState int

const (
	exportStateTimeframe exportState = iota
	exportStateOptions
	exportStateExporting
	exportStateResult
)

// exportOptions holds the options form bindings.
type exportOptions struct {
	path   string
	status string
}

var exportStatuses = []struct {
	label  string
	status *transaction.Status
}{
	{"Everything", nil},
	{"Categorized only", new(transaction.StatusCategorized)},
	{"Split only", new(transaction.StatusSplit)},
	{"Still in review", new(transaction.StatusUncategorized)},
}

type ExportModel struct {
	CommonModel
	exportService *export.Service

	state   exportState
	picker  TimeframePicker
	filter  transaction.ListFilter
	form    *huh.Form
	opts    *exportOptions
	spinner spinner.Model

	summary string
	err     error
}

func NewExportModel(svc *export.Service) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ExportModel{
		exportService: svc,
		picker:        NewTimeframePicker(TimeframeThisMonth),
		opts: &exportOptions{
			path:   filepath.Join("exports", export.Filename(time.Now())),
			status: exportStatuses[0].label,
		},
		spinner: s,
	}
}

func (m ExportModel) Title() string { return "Export Transactions" }

func (m ExportModel) ShortHelp() string {
	switch m.state {
	case exportStateResult:
		return "Esc: back to menu"
	case exportStateExporting:
		return "Exporting..."
	}

	return "Esc: back | Enter: confirm"
}

func (m ExportModel) Init() tea.Cmd {
	return nil
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.filter = transaction.ListFilter{}
		m.filter.StartDate, m.filter.EndDate = msg.Bounds()
		m.form = m.optionsForm()
		m.state = exportStateOptions

		return m, m.form.Init()

	case exportResultMsg:
		m.state = exportStateResult
		m.summary, m.err = msg.summary, msg.err

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.back()
		}
	}

	switch m.state {
	case exportStateTimeframe:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		return m, cmd
	case exportStateOptions:
		return m.updateOptions(msg)
	case exportStateExporting:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ExportModel) back() (tea.Model, tea.Cmd) {
	switch m.state {
	case exportStateTimeframe:
		if !m.picker.IsSelecting() {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(tea.KeyMsg{Type: tea.KeyEsc})

			return m, cmd
		}
	case exportStateOptions:
		m.state = exportStateTimeframe
		m.picker.Reset()

		return m, nil
	case exportStateExporting:
		return m, nil
	}

	return m, Back
}

func (m ExportModel) updateOptions(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	filter := m.filter
	for _, s := range exportStatuses {
		if s.label == m.opts.status {
			filter.Status = s.status
		}
	}

	m.state = exportStateExporting
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.exportCmd(filter, m.opts.path))
}

func (m ExportModel) optionsForm() *huh.Form {
	labels := make([]string, len(exportStatuses))
	for i, s := range exportStatuses {
		labels[i] = s.label
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transactions").
				Options(huh.NewOptions(labels...)...).
				Value(&m.opts.status),
			huh.NewInput().
				Title("Output File").
				Description("Missing directories are created").
				Placeholder("exports/transactions.csv").
				Value(&m.opts.path),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case exportStateTimeframe:
		return style.Render(m.picker.View())
	case exportStateOptions:
		return style.Render(m.form.View())
	case exportStateExporting:
		return style.Render(m.spinner.View() + " Exporting transactions...")
	case exportStateResult:
		if m.err != nil {
			return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		}

		return style.Render(successStyle.Bold(true).Render("Export complete") + "\n\n" + m.summary)
	}

	return ""
}

type exportResultMsg struct {
	summary string
	err     error
}

func (m ExportModel) exportCmd(filter transaction.ListFilter, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return exportResultMsg{err: err}
		}

		f, err := os.Create(path)
		if err != nil {
			return exportResultMsg{err: err}
		}
		defer f.Close()

		n, err := m.exportService.WriteCSV(ctx, filter, f)
		if err != nil {
			return exportResultMsg{err: fmt.Errorf("writing %s: %w", path, err)}
		}

		return exportResultMsg{summary: fmt.Sprintf("Wrote %d rows to %s\nSplit transactions have one row per line.", n, path)}
	}
}
