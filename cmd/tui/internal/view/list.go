package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/split"
	"github.com/tallyhq/tally/internal/transaction"
)

type listMode int

const (
	listModeBrowse listMode = iota
	listModeEdit
	listModeConfirmDelete
)

var statusFilters = []struct {
	label  string
	status *transaction.Status
}{
	{"All", nil},
	{"Uncategorized", new(transaction.StatusUncategorized)},
	{"Categorized", new(transaction.StatusCategorized)},
	{"Split", new(transaction.StatusSplit)},
}

var dateFilters = []Timeframe{TimeframeAll, TimeframeThisMonth, TimeframeLastMonth, TimeframeLast90Days}

// listEdit holds the edit form bindings.
type listEdit struct {
	desc    string
	account uuid.UUID
}

type ListModel struct {
	CommonModel
	txService      *transaction.Service
	accountService *account.Service
	splitService   *split.Service

	mode  listMode
	table table.Model
	txs   []*transaction.Transaction
	chart *account.Chart
	form  *huh.Form
	edit  *listEdit

	statusIdx int
	dateIdx   int

	loading bool
	err     error
	status  string
}

func NewListModel(txSvc *transaction.Service, accountSvc *account.Service, splitSvc *split.Service) ListModel {
	return ListModel{
		txService:      txSvc,
		accountService: accountSvc,
		splitService:   splitSvc,
		table: newTable(
			table.Column{Title: "Date", Width: 12},
			table.Column{Title: "Status", Width: 14},
			table.Column{Title: "Amount", Width: 10},
			table.Column{Title: "Description", Width: 40},
			table.Column{Title: "Account", Width: 30},
		),
		loading: true,
	}
}

func (m ListModel) Title() string { return "Transactions List" }

func (m ListModel) ShortHelp() string {
	switch m.mode {
	case listModeEdit:
		return "Navigate form | Esc: cancel"
	case listModeConfirmDelete:
		return "y: delete | any other key: cancel"
	}

	return "Esc: back | e: edit | u: back to review | D: delete | s: status | d: dates | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ListModel) filter(now time.Time) transaction.ListFilter {
	f := transaction.ListFilter{Status: statusFilters[m.statusIdx].status}

	if tf := dateFilters[m.dateIdx]; tf != TimeframeAll {
		start, end := dayBounds(timeframeToDateRange(tf, now))
		f.StartDate, f.EndDate = &start, &end
	}

	return f
}

func (m ListModel) current() *transaction.Transaction {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	return m.txs[idx]
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		m.err = msg.err

		if msg.err == nil {
			m.txs, m.chart = msg.txs, msg.chart
			m.table.SetRows(m.rows())
		}

		return m, nil

	case listDoneMsg:
		m.status = msg.text
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		m.mode = listModeBrowse
		m.form, m.edit = nil, nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-10, 5))
		return m, nil
	}

	switch m.mode {
	case listModeEdit:
		return m.updateEdit(msg)
	case listModeConfirmDelete:
		return m.updateConfirm(msg)
	}

	return m.updateBrowse(msg)
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "s":
			m.statusIdx = (m.statusIdx + 1) % len(statusFilters)
			return m, m.loadCmd()
		case "d":
			m.dateIdx = (m.dateIdx + 1) % len(dateFilters)
			return m, m.loadCmd()
		case "e":
			return m.startEdit()
		case "u":
			if tx := m.current(); tx != nil && tx.Status != transaction.StatusUncategorized {
				return m, m.uncategorizeCmd(tx)
			}

			return m, nil
		case "D":
			if tx := m.current(); tx != nil {
				m.mode = listModeConfirmDelete
				m.status = fmt.Sprintf("Delete %q (%s)? (y/N)", tx.Description, FormatAmount(tx.Amount))
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ListModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	m.mode = listModeBrowse
	m.status = ""

	if keyMsg.String() != "y" {
		return m, nil
	}

	tx := m.current()
	if tx == nil {
		return m, nil
	}

	return m, m.deleteCmd(tx)
}

func (m ListModel) startEdit() (tea.Model, tea.Cmd) {
	tx := m.current()
	if tx == nil || m.chart == nil {
		return m, nil
	}

	m.edit = &listEdit{desc: tx.Description}
	if tx.AccountID != nil {
		m.edit.account = *tx.AccountID
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Description").
				Value(&m.edit.desc).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("description cannot be empty")
					}

					return nil
				}),
			huh.NewSelect[uuid.UUID]().
				Title("Account").
				Description("Picking an account replaces any split").
				Options(accountOptions(m.chart)...).
				Height(8).
				Value(&m.edit.account),
		),
	).WithWidth(45).WithShowHelp(false)

	m.mode = listModeEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.mode = listModeBrowse
		m.form, m.edit = nil, nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd(m.current(), *m.edit)
}

func (m ListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	header := fmt.Sprintf("Filter: [s] Status: %s | [d] Date: %s",
		activeStyle(statusFilters[m.statusIdx].label),
		activeStyle(dateFilters[m.dateIdx].String()),
	)

	var total int64
	for _, tx := range m.txs {
		total += tx.Amount
	}

	footer := faintStyle.Render(fmt.Sprintf("%d transactions, net %s", len(m.txs), FormatAmount(total)))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
		footer,
	)

	if m.mode == listModeEdit && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Edit Transaction\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = faintStyle.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ListModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.txs))

	for _, tx := range m.txs {
		acct := "-"

		switch {
		case tx.Status == transaction.StatusSplit:
			acct = "(split)"
		case tx.AccountID != nil && m.chart != nil:
			acct = FormatAccount(m.chart.ByID(*tx.AccountID))
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			string(tx.Status),
			FormatAmount(tx.Amount),
			tx.Description,
			acct,
		})
	}

	return rows
}

// accountOptions lists the chart for a picker, Suspense first.
func accountOptions(chart *account.Chart) []huh.Option[uuid.UUID] {
	opts := make([]huh.Option[uuid.UUID], 0, len(chart.All()))

	if s := chart.Suspense(); s != nil {
		opts = append(opts, huh.NewOption(FormatAccount(s)+" (uncategorized)", s.ID))
	}

	for _, a := range chart.All() {
		if !chart.IsSuspense(a.ID) {
			opts = append(opts, huh.NewOption(FormatAccount(a), a.ID))
		}
	}

	return opts
}

type loadListMsg struct {
	txs   []*transaction.Transaction
	chart *account.Chart
	err   error
}

func (m ListModel) loadCmd() tea.Cmd {
	filter := m.filter(time.Now())

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		chart, err := m.accountService.Chart(ctx)
		if err != nil {
			return loadListMsg{err: err}
		}

		txs, err := m.txService.List(ctx, filter)

		return loadListMsg{txs: txs, chart: chart, err: err}
	}
}

type listDoneMsg struct {
	text string
	err  error
}

// rebook drops any split and books tx to accountID, sending it back to
// review when accountID is Suspense.
func (m ListModel) rebook(ctx context.Context, tx *transaction.Transaction, accountID uuid.UUID) error {
	if tx.Status == transaction.StatusSplit {
		if err := m.splitService.Delete(ctx, tx.ID); err != nil {
			return err
		}
	}

	if m.chart.IsSuspense(accountID) {
		return m.txService.Uncategorize(ctx, tx.ID, &accountID)
	}

	return m.txService.Categorize(ctx, tx.ID, accountID)
}

func (m ListModel) saveCmd(tx *transaction.Transaction, edit listEdit) tea.Cmd {
	if tx == nil {
		return nil
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if desc := strings.TrimSpace(edit.desc); desc != tx.Description {
			tx.Description = desc
			if err := m.txService.Update(ctx, tx); err != nil {
				return listDoneMsg{err: err}
			}
		}

		if tx.AccountID != nil && *tx.AccountID == edit.account {
			return listDoneMsg{text: "Saved."}
		}

		return listDoneMsg{text: "Saved.", err: m.rebook(ctx, tx, edit.account)}
	}
}

func (m ListModel) uncategorizeCmd(tx *transaction.Transaction) tea.Cmd {
	suspense := m.chart.Suspense()
	if suspense == nil {
		return func() tea.Msg { return listDoneMsg{err: errors.New("no Suspense account in the chart")} }
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return listDoneMsg{text: "Sent back to review.", err: m.rebook(ctx, tx, suspense.ID)}
	}
}

func (m ListModel) deleteCmd(tx *transaction.Transaction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return listDoneMsg{text: fmt.Sprintf("Deleted %q.", tx.Description), err: m.txService.Delete(ctx, tx.ID)}
	}
}
