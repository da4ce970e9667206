package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/tallyhq/tally/cmd/tui/internal/view"
	"github.com/tallyhq/tally/internal/account"
	accountStore "github.com/tallyhq/tally/internal/account/store"
	"github.com/tallyhq/tally/internal/category"
	categoryStore "github.com/tallyhq/tally/internal/category/store"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/database"
	"github.com/tallyhq/tally/internal/export"
	"github.com/tallyhq/tally/internal/importer"
	"github.com/tallyhq/tally/internal/merchant"
	merchantStore "github.com/tallyhq/tally/internal/merchant/store"
	"github.com/tallyhq/tally/internal/review"
	"github.com/tallyhq/tally/internal/split"
	splitStore "github.com/tallyhq/tally/internal/split/store"
	"github.com/tallyhq/tally/internal/splitrule"
	ruleStore "github.com/tallyhq/tally/internal/splitrule/store"
	"github.com/tallyhq/tally/internal/transaction"
	txStore "github.com/tallyhq/tally/internal/transaction/store"
)

type services struct {
	tx       *transaction.Service
	accounts *account.Service
	splits   *split.Service
	rules    *splitrule.Service
	importer *importer.Service
	review   *review.Service
	export   *export.Service
}

// screen is a menu entry. Each visit builds a fresh view.
type screen struct {
	key   string
	label string
	open  func(services) view.View
}

var screens = []screen{
	{"1", "Import Transactions", func(s services) view.View { return view.NewImportModel(s.tx, s.importer, s.accounts) }},
	{"2", "Review & Categorize", func(s services) view.View { return view.NewReviewModel(s.review) }},
	{"3", "List Transactions", func(s services) view.View { return view.NewListModel(s.tx, s.accounts, s.splits) }},
	{"4", "Split Rules", func(s services) view.View { return view.NewRulesModel(s.rules, s.accounts) }},
	{"5", "Export CSV", func(s services) view.View { return view.NewExportModel(s.export) }},
}

type model struct {
	svc    services
	active view.View // nil on the menu
	size   *tea.WindowSizeMsg
}

func newServices() (services, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return services{}, fmt.Errorf("loading config: %w", err)
	}

	// The terminal belongs to the TUI; logs go to a file when one is set.
	if path := os.Getenv("TALLY_TUI_LOG"); path != "" {
		if f, err := tea.LogToFile(path, "tally"); err == nil {
			slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel()})))
		}
	} else {
		slog.SetDefault(slog.New(slog.DiscardHandler))
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return services{}, fmt.Errorf("connecting to database: %w", err)
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(db); err != nil {
			return services{}, fmt.Errorf("migrating database: %w", err)
		}
	}

	designation := account.Designation{
		SuspenseName: cfg.Ledger.SuspenseName,
		MiscNames:    cfg.Ledger.MiscNames,
		MiscCodes:    cfg.Ledger.MiscCodes,
	}

	txSvc := transaction.NewService(txStore.New(db))
	accountSvc := account.NewService(accountStore.New(db), designation)
	splitSvc := split.NewService(splitStore.New(db))
	ruleSvc := splitrule.NewService(ruleStore.New(db))
	merchantSvc := merchant.NewService(merchantStore.New(db), txSvc)

	return services{
		tx:       txSvc,
		accounts: accountSvc,
		splits:   splitSvc,
		rules:    ruleSvc,
		importer: importer.NewService(),
		export:   export.NewService(txSvc, accountSvc, splitSvc),
		review: review.NewService(review.Deps{
			Transactions: txSvc,
			Merchants:    merchantSvc,
			Categories:   category.NewService(categoryStore.New(db)),
			Charts:       accountSvc,
			Splits:       splitSvc,
			Rules:        ruleSvc,
		}, nil),
	}, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) open(s screen) (tea.Model, tea.Cmd) {
	m.active = s.open(m.svc)
	cmds := []tea.Cmd{m.active.Init()}

	if m.size != nil {
		size := *m.size
		cmds = append(cmds, func() tea.Msg { return size })
	}

	return m, tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.size = &msg
	case view.BackMsg:
		m.active = nil
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.active == nil {
			if msg.String() == "q" {
				return m, tea.Quit
			}

			for _, s := range screens {
				if msg.String() == s.key {
					return m.open(s)
				}
			}

			return m, nil
		}
	}

	if m.active == nil {
		return m, nil
	}

	next, cmd := m.active.Update(msg)
	m.active = next.(view.View)

	return m, cmd
}

func (m model) View() string {
	if m.active == nil {
		var b strings.Builder
		b.WriteString("Tally\n\n")

		for _, s := range screens {
			fmt.Fprintf(&b, "%s. %s\n", s.key, s.label)
		}

		b.WriteString("\nq. Quit")

		return lipgloss.NewStyle().Padding(2).Render(b.String())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(m.active.Title()),
		m.active.View(),
		lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(m.active.ShortHelp()),
	)
}

func main() {
	svc, err := newServices()
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(model{svc: svc}, tea.WithAltScreen()).Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
