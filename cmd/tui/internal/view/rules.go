package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tallyhq/tally/internal/account"
	"github.com/tallyhq/tally/internal/splitrule"
)

// RulesModel lists the merchant split rules and lets the user delete them.
type RulesModel struct {
	CommonModel
	ruleService    *splitrule.Service
	accountService *account.Service

	table   table.Model
	rules   []*splitrule.Rule
	chart   *account.Chart
	confirm bool
	status  string
	err     error
}

func NewRulesModel(ruleSvc *splitrule.Service, accountSvc *account.Service) RulesModel {
	return RulesModel{
		ruleService:    ruleSvc,
		accountService: accountSvc,
		table: newTable(
			table.Column{Title: "Merchant", Width: 28},
			table.Column{Title: "Lines", Width: 80},
		),
	}
}

func (m RulesModel) Title() string { return "Split Rules" }

func (m RulesModel) ShortHelp() string {
	if m.confirm {
		return "y: delete | any other key: cancel"
	}

	return "Esc: back | D: delete | r: refresh"
}

func (m RulesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m RulesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case rulesLoadedMsg:
		m.err = msg.err
		m.rules = msg.rules
		m.chart = msg.chart
		m.refreshTable()

		return m, nil

	case ruleDeletedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("Delete failed: %v", msg.err))
			return m, nil
		}

		m.status = "Rule deleted."

		return m, m.loadCmd()

	case tea.KeyMsg:
		if m.confirm {
			m.confirm = false

			idx := m.table.Cursor()
			if msg.String() == "y" && idx >= 0 && idx < len(m.rules) {
				return m, m.deleteCmd(m.rules[idx])
			}

			m.status = ""

			return m, nil
		}

		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			return m, m.loadCmd()
		case "D":
			if len(m.rules) > 0 {
				m.confirm = true
				m.status = fmt.Sprintf("Delete the rule for %s? (y/N)", m.rules[m.table.Cursor()].MerchantName)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *RulesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.rules))

	for _, r := range m.rules {
		parts := make([]string, 0, len(r.Lines))

		for _, l := range r.Lines {
			name := l.AccountID.String()
			if m.chart != nil {
				if a := m.chart.ByID(l.AccountID); a != nil {
					name = a.Name
				}
			}

			parts = append(parts, fmt.Sprintf("%s %s%%", name, l.Percent.StringFixed(2)))
		}

		rows = append(rows, table.Row{r.MerchantName, strings.Join(parts, ", ")})
	}

	m.table.SetRows(rows)
}

func (m RulesModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	content := m.table.View()
	if len(m.rules) == 0 {
		content = "No split rules yet. Rules are saved from the review screen."
	}

	if m.status != "" {
		content = m.status + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

type rulesLoadedMsg struct {
	rules []*splitrule.Rule
	chart *account.Chart
	err   error
}

func (m RulesModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		chart, err := m.accountService.Chart(ctx)
		if err != nil {
			return rulesLoadedMsg{err: err}
		}

		rules, err := m.ruleService.List(ctx)

		return rulesLoadedMsg{rules: rules, chart: chart, err: err}
	}
}

type ruleDeletedMsg struct {
	err error
}

func (m RulesModel) deleteCmd(r *splitrule.Rule) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return ruleDeletedMsg{err: m.ruleService.Delete(ctx, r.ID)}
	}
}
