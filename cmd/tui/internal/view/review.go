package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyhq/tally/internal/review"
	"github.com/tallyhq/tally/internal/split"
)

const (
	applyTimeout  = 5 * time.Minute
	splitFormRows = 3
)

type reviewState int

const (
	reviewStateTimeframe reviewState = iota
	reviewStateLoading
	reviewStateWorkbench
	reviewStateAccount
	reviewStateSplit
	reviewStateApplying
	reviewStateReport
)

type ReviewModel struct {
	CommonModel
	reviewService *review.Service

	state           reviewState
	timeframePicker TimeframePicker
	filter          review.Filter

	sess    *review.Session
	list    list.Model
	form    *huh.Form
	binding *reviewBinding
	spinner spinner.Model

	saveRules bool
	progress  *applyProgress
	report    *review.Report

	status string
	err    error
}

// reviewBinding holds the values huh writes for the form on screen.
type reviewBinding struct {
	itemID    uuid.UUID
	account   uuid.UUID
	remainder uuid.UUID
	rows      [splitFormRows]splitFormRow
}

type splitFormRow struct {
	account uuid.UUID
	percent string
}

type applyProgress struct {
	done  atomic.Int64
	total atomic.Int64
}

func NewReviewModel(svc *review.Service) ReviewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	l := list.New([]list.Item{}, reviewDelegate{}, 100, 20)
	l.Title = "Review"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return ReviewModel{
		reviewService:   svc,
		timeframePicker: NewTimeframePicker(TimeframeThisWeek),
		list:            l,
		spinner:         s,
		saveRules:       true,
	}
}

func (m ReviewModel) Title() string { return "Review Transactions" }

func (m ReviewModel) ShortHelp() string {
	switch m.state {
	case reviewStateWorkbench:
		return "Space: select | a: select eligible | n: none | c: account | s: split | x: clear | d: save rule | r: toggle auto-rules | Enter: apply selected | Esc: back"
	case reviewStateAccount, reviewStateSplit:
		return "Esc: cancel"
	case reviewStateReport:
		return "Enter: continue | Esc: back to menu"
	}

	return "Esc: back | Enter: select"
}

func (m ReviewModel) Init() tea.Cmd {
	return nil
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.filter.StartDate, m.filter.EndDate = msg.Bounds()
		m.state = reviewStateLoading

		return m, tea.Batch(m.spinner.Tick, m.openCmd())

	case sessionMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = reviewStateReport

			return m, nil
		}

		m.sess = msg.sess
		m.state = reviewStateWorkbench
		m.status = fmt.Sprintf("%d transactions to review, %d eligible for bulk apply.",
			m.sess.Len(), len(m.sess.Eligible()))
		m.refreshList()

		return m, nil

	case applyResultMsg:
		m.state = reviewStateReport
		m.report = msg.report
		m.err = msg.err
		m.refreshList()

		return m, nil

	case ruleSavedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Saving rule failed: %v", msg.err))
		} else {
			m.status = fmt.Sprintf("Saved default split for %s.", msg.merchant)
		}

		m.refreshList()

		return m, nil

	case spinner.TickMsg:
		if m.state == reviewStateLoading || m.state == reviewStateApplying {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)

			return m, cmd
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	}

	switch m.state {
	case reviewStateTimeframe:
		return m.updateTimeframe(msg)
	case reviewStateWorkbench:
		return m.updateWorkbench(msg)
	case reviewStateAccount, reviewStateSplit:
		return m.updateForm(msg)
	case reviewStateReport:
		return m.updateReport(msg)
	}

	return m, nil
}

func (m ReviewModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
			return m, Back
		}
	}

	var cmd tea.Cmd
	m.timeframePicker, cmd = m.timeframePicker.Update(msg)

	return m, cmd
}

func (m ReviewModel) current() (*review.Item, bool) {
	ri, ok := m.list.SelectedItem().(reviewItem)
	if !ok {
		return nil, false
	}

	return ri.item, true
}

func (m ReviewModel) updateWorkbench(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)

		return m, cmd
	}

	it, hasItem := m.current()

	switch keyMsg.String() {
	case "esc":
		m.state = reviewStateTimeframe
		m.timeframePicker.Reset()
		m.sess = nil

		return m, nil
	case " ":
		if hasItem {
			if m.sess.IsSelected(it.ID()) {
				m.sess.Deselect(it.ID())
			} else {
				m.sess.Select(it.ID())
			}

			m.refreshList()
		}

		return m, nil
	case "a":
		n := m.sess.SelectEligible()
		m.status = fmt.Sprintf("Selected %d eligible transactions.", n)
		m.refreshList()

		return m, nil
	case "n":
		m.sess.Deselect(m.sess.Selected()...)
		m.refreshList()

		return m, nil
	case "x":
		if hasItem {
			_ = m.sess.ClearAccount(it.ID())
			_ = m.sess.ClearSplit(it.ID())
			m.refreshList()
		}

		return m, nil
	case "r":
		m.saveRules = !m.saveRules
		return m, nil
	case "c":
		if hasItem {
			return m.openAccountForm(it)
		}
	case "s":
		if hasItem {
			return m.openSplitForm(it)
		}
	case "d":
		if hasItem {
			return m, m.saveRuleCmd(it.ID())
		}
	case "enter":
		if len(m.sess.Selected()) == 0 {
			m.status = "Nothing selected."
			return m, nil
		}

		m.state = reviewStateApplying
		m.progress = &applyProgress{}

		return m, tea.Batch(m.spinner.Tick, m.applyCmd())
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m ReviewModel) openAccountForm(it *review.Item) (tea.Model, tea.Cmd) {
	m.binding = &reviewBinding{itemID: it.ID()}

	switch {
	case it.ManualAccountID != nil:
		m.binding.account = *it.ManualAccountID
	case it.Suggestion.AccountID() != nil:
		m.binding.account = *it.Suggestion.AccountID()
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[uuid.UUID]().
				Title("Account for " + it.Transaction.Description).
				Options(accountOptions(m.sess.Chart())...).
				Height(12).
				Value(&m.binding.account),
		),
	).WithWidth(60).WithShowHelp(false)

	m.state = reviewStateAccount

	return m, m.form.Init()
}

func (m ReviewModel) openSplitForm(it *review.Item) (tea.Model, tea.Cmd) {
	sheet, err := m.sess.NewSheet(it.ID())
	if err != nil {
		m.status = errorStyle.Render(err.Error())
		return m, nil
	}

	m.binding = &reviewBinding{itemID: it.ID()}

	if r := sheet.Remainder(); r.AccountID != nil {
		m.binding.remainder = *r.AccountID
	}

	for i, f := range sheet.Rows() {
		if i >= splitFormRows {
			break
		}

		if f.AccountID != nil {
			m.binding.rows[i].account = *f.AccountID
		}

		m.binding.rows[i].percent = f.Percent.String()
	}

	chart := m.sess.Chart()
	rowOpts := append([]huh.Option[uuid.UUID]{huh.NewOption("(unused)", uuid.Nil)}, accountOptions(chart)...)

	fields := make([]huh.Field, 0, splitFormRows*2+1)

	for i := range splitFormRows {
		row := &m.binding.rows[i]

		fields = append(fields,
			huh.NewSelect[uuid.UUID]().
				Title(fmt.Sprintf("Line %d account", i+1)).
				Options(rowOpts...).
				Height(6).
				Value(&row.account),
			huh.NewInput().
				Title(fmt.Sprintf("Line %d percent", i+1)).
				Placeholder("0").
				Value(&row.percent).
				Validate(validatePercent),
		)
	}

	fields = append(fields,
		huh.NewSelect[uuid.UUID]().
			Title("Remainder account").
			Options(accountOptions(chart)...).
			Height(6).
			Value(&m.binding.remainder),
	)

	m.form = huh.NewForm(huh.NewGroup(fields...)).WithWidth(60).WithShowHelp(false)
	m.state = reviewStateSplit

	return m, m.form.Init()
}

func validatePercent(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.New("not a number")
	}

	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("must be between 0 and 100")
	}

	return nil
}

func (m ReviewModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = reviewStateWorkbench
		m.form = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	var err error
	if m.state == reviewStateAccount {
		err = m.sess.SetAccount(m.binding.itemID, m.binding.account)
	} else {
		err = m.applySplitForm()
	}

	if err != nil {
		m.status = errorStyle.Render(err.Error())
	} else {
		m.status = "Decision recorded."
		m.sess.Select(m.binding.itemID)
	}

	m.state = reviewStateWorkbench
	m.form = nil
	m.refreshList()

	return m, nil
}

func (m ReviewModel) applySplitForm() error {
	it, ok := m.sess.Item(m.binding.itemID)
	if !ok {
		return review.ErrItemNotFound
	}

	remainder := m.binding.remainder
	sheet := split.NewSheet(decimal.New(it.Transaction.Amount, -2), &remainder)

	for _, row := range m.binding.rows {
		pct := strings.TrimSpace(row.percent)
		if row.account == uuid.Nil || pct == "" {
			continue
		}

		d, err := decimal.NewFromString(pct)
		if err != nil {
			return err
		}

		acct := row.account
		id := sheet.AddRow(m.sess.Chart().ByID(acct).Name, &acct)

		if err := sheet.SetPercent(id, d); err != nil {
			return err
		}
	}

	return m.sess.SetSplit(it.ID(), sheet)
}

func (m ReviewModel) updateReport(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyEsc:
		return m, Back
	case tea.KeyEnter:
		if m.sess == nil {
			return m, Back
		}

		m.state = reviewStateWorkbench
		m.report = nil
		m.err = nil
		m.status = fmt.Sprintf("%d transactions left.", m.sess.Len())
	}

	return m, nil
}

func (m *ReviewModel) refreshList() {
	if m.sess == nil {
		return
	}

	chart := m.sess.Chart()
	items := make([]list.Item, 0, m.sess.Len())

	for _, it := range m.sess.Items() {
		items = append(items, reviewItem{
			item:     it,
			selected: m.sess.IsSelected(it.ID()),
			eligible: it.Eligible(chart),
			target:   target(it, m.sess),
		})
	}

	m.list.SetItems(items)
}

// target describes what applying the item would book.
func target(it *review.Item, sess *review.Session) string {
	chart := sess.Chart()

	switch it.Path(chart) {
	case review.PathManualSplit:
		return fmt.Sprintf("split into %d lines", len(it.Shares))
	case review.PathDefaultRule:
		return fmt.Sprintf("default split (%d lines)", len(it.DefaultRule.Lines))
	case review.PathManualAccount:
		return FormatAccount(chart.ByID(*it.ManualAccountID))
	}

	if id := it.Suggestion.AccountID(); id != nil {
		return FormatAccount(chart.ByID(*id)) + " (suggested)"
	}

	if name := it.MerchantName(); name != "" {
		return name + ", no account"
	}

	return "no suggestion"
}

func (m ReviewModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case reviewStateTimeframe:
		return style.Render(m.timeframePicker.View())

	case reviewStateLoading:
		return style.Render(m.spinner.View() + " Loading transactions and suggestions...")

	case reviewStateWorkbench:
		rules := "off"
		if m.saveRules {
			rules = "on"
		}

		header := fmt.Sprintf("Selected: %s | Save split rules: %s",
			activeStyle(fmt.Sprint(len(m.sess.Selected()))), activeStyle(rules))

		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			header,
			faintStyle.Render(m.status),
			m.list.View(),
		))

	case reviewStateAccount, reviewStateSplit:
		title := "Pick Account"
		if m.state == reviewStateSplit {
			title = "Split Transaction (lines get a share, the rest goes to the remainder)"
		}

		return style.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()))

	case reviewStateApplying:
		return style.Render(fmt.Sprintf("%s Applying %d/%d...",
			m.spinner.View(), m.progress.done.Load(), m.progress.total.Load()))

	case reviewStateReport:
		return style.Render(m.viewReport())
	}

	return ""
}

func (m ReviewModel) viewReport() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	}

	if m.report != nil {
		b.WriteString(successStyle.Render(m.report.Summary()))
		b.WriteString("\n")

		for _, f := range m.report.Failures {
			fmt.Fprintf(&b, "\n  %s  %s: %v", f.TransactionID, f.Path, f.Err)
		}
	}

	b.WriteString("\n\n(Enter to continue reviewing, Esc to go back)")

	return b.String()
}

type sessionMsg struct {
	sess *review.Session
	err  error
}

func (m ReviewModel) openCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		sess, err := m.reviewService.Open(ctx, filter)

		return sessionMsg{sess: sess, err: err}
	}
}

type applyResultMsg struct {
	report *review.Report
	err    error
}

func (m ReviewModel) applyCmd() tea.Cmd {
	sess := m.sess
	progress := m.progress
	opts := review.ApplyOptions{
		SaveRules: m.saveRules,
		Progress: func(done, total int) {
			progress.done.Store(int64(done))
			progress.total.Store(int64(total))
		},
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
		defer cancel()

		report, err := m.reviewService.Apply(ctx, sess, nil, opts)

		return applyResultMsg{report: report, err: err}
	}
}

type ruleSavedMsg struct {
	merchant string
	err      error
}

func (m ReviewModel) saveRuleCmd(id uuid.UUID) tea.Cmd {
	sess := m.sess

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		rule, err := m.reviewService.SaveDefaultRule(ctx, sess, id)
		if err != nil {
			return ruleSavedMsg{err: err}
		}

		return ruleSavedMsg{merchant: rule.MerchantName}
	}
}

type reviewItem struct {
	item     *review.Item
	selected bool
	eligible bool
	target   string
}

func (i reviewItem) Title() string       { return i.item.Transaction.Description }
func (i reviewItem) Description() string { return i.target }
func (i reviewItem) FilterValue() string { return i.item.Transaction.Description }

type reviewDelegate struct{}

func (d reviewDelegate) Height() int                             { return 2 }
func (d reviewDelegate) Spacing() int                            { return 0 }
func (d reviewDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d reviewDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(reviewItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	checkbox := "[ ]"
	if item.selected {
		checkbox = "[x]"
	}

	tx := item.item.Transaction

	line1 := fmt.Sprintf("%s%s %s  %10s  %s",
		cursor, checkbox, FormatDate(tx.Date), FormatAmount(tx.Amount), tx.Description)

	line2 := "      -> " + item.target
	if item.eligible {
		line2 = successStyle.Render(line2)
	} else {
		line2 = faintStyle.Render(line2)
	}

	fmt.Fprintf(w, "%s\n%s\n", line1, line2)
}
