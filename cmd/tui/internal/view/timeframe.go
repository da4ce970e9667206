package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Timeframe indexes the picker presets.
type Timeframe int

const (
	TimeframeThisWeek Timeframe = iota
	TimeframeLastWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeLast90Days
	TimeframeThisYear
	TimeframeAll
	TimeframeCustom
)

type preset struct {
	label string
	span  func(now time.Time) (time.Time, time.Time)
}

var presets = [...]preset{
	TimeframeThisWeek: {"This Week", func(now time.Time) (time.Time, time.Time) {
		return weekStart(now), now
	}},
	TimeframeLastWeek: {"Last Week", func(now time.Time) (time.Time, time.Time) {
		end := weekStart(now).AddDate(0, 0, -1)
		return end.AddDate(0, 0, -6), end
	}},
	TimeframeThisMonth: {"This Month", func(now time.Time) (time.Time, time.Time) {
		return monthStart(now), now
	}},
	TimeframeLastMonth: {"Last Month", func(now time.Time) (time.Time, time.Time) {
		start := monthStart(now).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, -1)
	}},
	TimeframeLast90Days: {"Last 90 Days", func(now time.Time) (time.Time, time.Time) {
		return now.AddDate(0, 0, -89), now
	}},
	TimeframeThisYear: {"This Year", func(now time.Time) (time.Time, time.Time) {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), now
	}},
	TimeframeAll:    {label: "All Time"},
	TimeframeCustom: {label: "Custom Range"},
}

func (t Timeframe) String() string {
	if t < 0 || int(t) >= len(presets) {
		return "Unknown"
	}

	return presets[t].label
}

// weekStart returns the Monday of now's week.
func weekStart(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	return now.AddDate(0, 0, -offset)
}

func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// timeframeToDateRange returns the calendar days covered by a preset. All
// and Custom have no fixed span and return zero times.
func timeframeToDateRange(tf Timeframe, now time.Time) (time.Time, time.Time) {
	if tf < 0 || int(tf) >= len(presets) || presets[tf].span == nil {
		return time.Time{}, time.Time{}
	}

	return presets[tf].span(now)
}

// dayBounds widens a day range to [start 00:00:00, end 23:59:59] in UTC,
// the zone transaction dates are stored in.
func dayBounds(start, end time.Time) (time.Time, time.Time) {
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
}

// parseCustomRange reads "YYYY-MM-DD..YYYY-MM-DD". A single date selects
// that day.
func parseCustomRange(s string) (time.Time, time.Time, error) {
	from, to, found := strings.Cut(strings.TrimSpace(s), "..")
	if !found {
		to = from
	}

	start, err := time.Parse(time.DateOnly, strings.TrimSpace(from))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start date (YYYY-MM-DD)")
	}

	end, err := time.Parse(time.DateOnly, strings.TrimSpace(to))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end date (YYYY-MM-DD)")
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end date is before start date")
	}

	start, end = dayBounds(start, end)

	return start, end, nil
}

// TimeframeSelectedMsg carries the chosen range. Start and End are zero when
// All is set.
type TimeframeSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

// Bounds returns the range as optional filter bounds, nil for All.
func (m TimeframeSelectedMsg) Bounds() (*time.Time, *time.Time) {
	if m.All {
		return nil, nil
	}

	return &m.Start, &m.End
}

// TimeframePicker lists the presets from a minimum one down to Custom Range.
type TimeframePicker struct {
	custom   bool
	selected Timeframe
	first    Timeframe
	input    textinput.Model
	err      error
}

func NewTimeframePicker(first Timeframe) TimeframePicker {
	in := textinput.New()
	in.Placeholder = "2024-01-01..2024-03-31"
	in.CharLimit = 22
	in.Width = 24
	in.Prompt = "Range: "

	return TimeframePicker{
		selected: first,
		first:    first,
		input:    in,
	}
}

func (m TimeframePicker) Init() tea.Cmd {
	return nil
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if m.custom {
		return m.updateCustom(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "up", "k":
		if m.selected > m.first {
			m.selected--
		}
	case "down", "j":
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case "enter":
		return m.choose(time.Now())
	}

	return m, nil
}

func (m TimeframePicker) choose(now time.Time) (TimeframePicker, tea.Cmd) {
	switch m.selected {
	case TimeframeCustom:
		m.custom = true
		m.err = nil
		m.input.Focus()

		return m, textinput.Blink
	case TimeframeAll:
		return m, emit(TimeframeSelectedMsg{All: true})
	}

	start, end := dayBounds(timeframeToDateRange(m.selected, now))

	return m, emit(TimeframeSelectedMsg{Start: start, End: end})
}

func (m TimeframePicker) updateCustom(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.custom = false
			m.err = nil
			m.input.Blur()

			return m, nil
		case tea.KeyEnter:
			start, end, err := parseCustomRange(m.input.Value())
			if err != nil {
				m.err = err
				return m, nil
			}

			m.err = nil

			return m, emit(TimeframeSelectedMsg{Start: start, End: end})
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m TimeframePicker) View() string {
	var b strings.Builder

	if m.custom {
		b.WriteString("Enter Custom Range:\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n(Enter to confirm, Esc to go back)")
	} else {
		b.WriteString("Select Timeframe:\n\n")

		for tf := m.first; tf <= TimeframeCustom; tf++ {
			cursor := " "
			if tf == m.selected {
				cursor = ">"
			}

			fmt.Fprintf(&b, "%s %s\n", cursor, tf)
		}

		b.WriteString("\n(Enter to select, Esc to go back)")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("\n\nError: %v", m.err)))
	}

	return b.String()
}

// IsSelecting reports whether the preset list, not the custom input, has focus.
func (m TimeframePicker) IsSelecting() bool {
	return !m.custom
}

func (m *TimeframePicker) Reset() {
	m.custom = false
	m.selected = m.first
	m.err = nil
	m.input.Blur()
	m.input.SetValue("")
}
