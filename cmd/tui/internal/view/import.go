package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/importer"
	"github.com/tallyhq/tally/internal/transaction"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateLoading importState = iota
	importStateSetup
	importStateFilePick
	importStateImporting
	importStateConflicts
	importStateResult
)

var formatLabels = map[importer.Format]string{
	importer.FormatAuto: "Detect from file",
	importer.FormatCGD:  "CGD bank export",
	importer.FormatCSV:  "Generic CSV (date, description, amount)",
	importer.FormatOFX:  "OFX / QFX / QBO",
}

// importSetup holds the setup form bindings.
type importSetup struct {
	bank   uuid.UUID
	format importer.Format
}

// conflictPicks marks which duplicates the user wants imported anyway.
type conflictPicks map[int]bool

type ImportModel struct {
	CommonModel
	txService      *transaction.Service
	importService  *importer.Service
	accountService *account.Service

	state      importState
	chart      *account.Chart
	form       *huh.Form
	setup      *importSetup
	filePicker filepicker.Model

	pending   []transaction.CreateParams
	conflicts []transaction.Conflict
	picks     conflictPicks
	list      list.Model

	summary string
	err     error
}

func NewImportModel(txSvc *transaction.Service, impSvc *importer.Service, accountSvc *account.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.AllowedTypes = []string{".csv", ".txt", ".ofx", ".qfx", ".qbo"}
	fp.SetHeight(15)

	return ImportModel{
		txService:      txSvc,
		importService:  impSvc,
		accountService: accountSvc,
		filePicker:     fp,
	}
}

func (m ImportModel) Title() string { return "Import Transactions" }

func (m ImportModel) ShortHelp() string {
	switch m.state {
	case importStateConflicts:
		return "Space: toggle | a: all | n: none | Enter: import | Esc: cancel"
	case importStateFilePick:
		return "Enter: open | Esc: back to setup"
	}

	return "Esc: back"
}

func (m ImportModel) Init() tea.Cmd {
	return m.loadChartCmd()
}

type importChartMsg struct {
	chart *account.Chart
	err   error
}

func (m ImportModel) loadChartCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		chart, err := m.accountService.Chart(ctx)

		return importChartMsg{chart: chart, err: err}
	}
}

// bankOptions lists the balance-sheet accounts a statement can belong to.
func bankOptions(chart *account.Chart) []huh.Option[uuid.UUID] {
	opts := []huh.Option[uuid.UUID]{huh.NewOption("(none)", uuid.Nil)}

	for _, a := range chart.All() {
		if chart.IsSuspense(a.ID) {
			continue
		}

		if a.Type == account.TypeAsset || a.Type == account.TypeLiability {
			opts = append(opts, huh.NewOption(FormatAccount(a), a.ID))
		}
	}

	return opts
}

func (m ImportModel) startSetup() (ImportModel, tea.Cmd) {
	if m.setup == nil {
		m.setup = &importSetup{format: importer.FormatAuto}
	}

	formats := make([]huh.Option[importer.Format], 0, len(formatLabels))
	for _, f := range []importer.Format{importer.FormatAuto, importer.FormatCGD, importer.FormatCSV, importer.FormatOFX} {
		formats = append(formats, huh.NewOption(formatLabels[f], f))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[uuid.UUID]().
				Title("Bank account").
				Description("Imported rows are booked against this account").
				Options(bankOptions(m.chart)...).
				Value(&m.setup.bank),
			huh.NewSelect[importer.Format]().
				Title("File format").
				Options(formats...).
				Value(&m.setup.format),
		),
	).WithShowHelp(false)

	m.state = importStateSetup

	return m, m.form.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case importChartMsg:
		if msg.err != nil {
			return m.finish("", msg.err), nil
		}

		m.chart = msg.chart

		return m.startSetup()

	case importResultMsg:
		if msg.err != nil {
			return m.finish("", msg.err), nil
		}

		if len(msg.result.Conflicts) == 0 {
			return m.finish(importSummary(len(msg.result.Imported), 0), nil), nil
		}

		return m.showConflicts(msg.result), nil

	case confirmResultMsg:
		if msg.err != nil {
			return m.finish("", msg.err), nil
		}

		return m.finish(importSummary(msg.count, msg.skipped), nil), nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc && m.state != importStateSetup {
			return m.handleEsc()
		}
	}

	switch m.state {
	case importStateSetup:
		return m.updateSetup(msg)
	case importStateFilePick:
		return m.updateFilePick(msg)
	case importStateConflicts:
		return m.updateConflicts(msg)
	}

	return m, nil
}

func (m ImportModel) updateSetup(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = importStateFilePick

	return m, m.filePicker.Init()
}

func (m ImportModel) updateFilePick(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if ok, path := m.filePicker.DidSelectFile(msg); ok {
		m.state = importStateImporting
		m.summary = fmt.Sprintf("Importing %s...", path)

		return m, m.importCmd(path, *m.setup)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick, importStateResult, importStateConflicts:
		m.pending, m.conflicts, m.picks = nil, nil, nil
		m.err = nil
		m.summary = ""

		if m.chart == nil {
			return m, Back
		}

		return m.startSetup()
	}

	return m, Back
}

func (m ImportModel) finish(summary string, err error) ImportModel {
	m.state = importStateResult
	m.summary = summary
	m.err = err

	return m
}

func importSummary(imported, skipped int) string {
	s := fmt.Sprintf("Imported %d transactions into Suspense for review.", imported)
	if skipped > 0 {
		s += fmt.Sprintf(" Skipped %d duplicates.", skipped)
	}

	return s
}

func (m ImportModel) showConflicts(result *transaction.ImportResult) ImportModel {
	m.pending = result.New
	m.conflicts = result.Conflicts
	m.picks = make(conflictPicks, len(result.Conflicts))
	m.state = importStateConflicts

	items := make([]list.Item, len(m.conflicts))
	for i, c := range m.conflicts {
		items[i] = conflictItem{conflict: c, index: i}
	}

	m.list = list.New(items, conflictDelegate{picks: m.picks}, 80, 20)
	m.list.Title = fmt.Sprintf("%d possible duplicates, %d new", len(m.conflicts), len(m.pending))
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(false)
	m.list.SetShowHelp(false)

	return m
}

func (m ImportModel) updateConflicts(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case " ":
			idx := m.list.Index()
			m.picks[idx] = !m.picks[idx]

			return m, nil
		case "a", "n":
			for i := range m.conflicts {
				m.picks[i] = keyMsg.String() == "a"
			}

			return m, nil
		case "enter":
			return m, m.confirmCmd()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateLoading:
		return lipgloss.NewStyle().Padding(2).Render("Loading accounts...")
	case importStateSetup:
		return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select file to import (%s):\n\n%s", formatLabels[m.setup.format], m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.summary)
	case importStateConflicts:
		return lipgloss.NewStyle().Padding(1).Render(m.list.View())
	case importStateResult:
		style := lipgloss.NewStyle().Padding(2)
		if m.err != nil {
			return style.Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n(Esc to go back)")
		}

		return style.Render(successStyle.Render(m.summary) + "\n\n(Esc to import another file)")
	}

	return ""
}

type importResultMsg struct {
	result *transaction.ImportResult
	err    error
}

type confirmResultMsg struct {
	count   int
	skipped int
	err     error
}

func (m ImportModel) importCmd(path string, setup importSetup) tea.Cmd {
	chart := m.chart

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		var opts importer.Options
		if s := chart.Suspense(); s != nil {
			opts.SuspenseAccountID = &s.ID
		}

		if setup.bank != uuid.Nil {
			opts.BankAccountID = &setup.bank
		}

		format := setup.format
		if format == importer.FormatAuto {
			format = importer.DetectFormat(path)
		}

		params, err := m.importService.Import(format, f, opts)
		if err != nil {
			return importResultMsg{err: err}
		}

		result, err := m.txService.ImportBatch(ctx, params)

		return importResultMsg{result: result, err: err}
	}
}

func (m ImportModel) confirmCmd() tea.Cmd {
	params := append([]transaction.CreateParams(nil), m.pending...)
	skipped := 0

	for i, c := range m.conflicts {
		if m.picks[i] {
			params = append(params, c.Incoming)
		} else {
			skipped++
		}
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		txs, err := m.txService.CreateBatch(ctx, params)

		return confirmResultMsg{count: len(txs), skipped: skipped, err: err}
	}
}

type conflictItem struct {
	conflict transaction.Conflict
	index    int
}

func (i conflictItem) FilterValue() string { return i.conflict.Incoming.Description }

type conflictDelegate struct {
	picks conflictPicks
}

func (d conflictDelegate) Height() int                             { return 2 }
func (d conflictDelegate) Spacing() int                            { return 1 }
func (d conflictDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d conflictDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(conflictItem)
	if !ok {
		return
	}

	box := "[ ]"
	if d.picks[item.index] {
		box = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	in, ex := item.conflict.Incoming, item.conflict.Existing

	fmt.Fprintf(w, "%s%s %s  %10s  %s\n", cursor, box, FormatDate(in.Date), FormatAmount(in.Amount), in.Description)
	fmt.Fprint(w, faintStyle.Render(fmt.Sprintf("      already have: %s  %10s  %s [%s]",
		FormatDate(ex.Date), FormatAmount(ex.Amount), ex.Description, ex.Status)))
}
