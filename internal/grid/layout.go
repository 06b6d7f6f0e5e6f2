// Package grid turns a habit set and a date window into positioned cells.
//
// ComputeLayout is pure: every derived field (GridWidth, TodayColumnX, ...)
// is a return value, so callers recompute instead of mutating cached state.
package grid

import (
	"math"
	"time"
)

// DateLayout is the calendar-date format used for log keys.
const DateLayout = "2006-01-02"

// PastRatio is the share of the visible window spent on past days.
const PastRatio = 0.8

// CellState is the derived fill state of one (habit, date) cell.
type CellState string

const (
	CellEmpty  CellState = "empty"
	CellFilled CellState = "filled"
	CellFuture CellState = "future"
)

// Habit is the subset of a habit the layout needs.
type Habit struct {
	ID    string
	Name  string
	Color string
}

// LogLookup reports whether a habit is completed on a date (YYYY-MM-DD).
type LogLookup interface {
	Completed(habitID, date string) bool
}

// LookupFunc adapts a function to LogLookup.
type LookupFunc func(habitID, date string) bool

func (f LookupFunc) Completed(habitID, date string) bool { return f(habitID, date) }

// Metrics holds pixel sizes for the grid.
type Metrics struct {
	CellSize     float64 `json:"cell_size"`
	CellGap      float64 `json:"cell_gap"`
	Padding      float64 `json:"padding"`
	LabelWidth   float64 `json:"label_width"`
	HeaderHeight float64 `json:"header_height"`
}

// Stride is the distance between two neighbouring cell origins.
func (m Metrics) Stride() float64 {
	return m.CellSize + m.CellGap
}

// Cell size presets.
const (
	PresetSmall  = "small"
	PresetMedium = "medium"
	PresetLarge  = "large"
)

var presetSizes = map[string]float64{
	PresetSmall:  12,
	PresetMedium: 16,
	PresetLarge:  22,
}

// IsPreset reports whether name is a known cell-size preset.
func IsPreset(name string) bool {
	_, ok := presetSizes[name]
	return ok
}

// MetricsForPreset returns the metrics for a cell-size preset, falling back
// to medium for unknown names.
func MetricsForPreset(name string) Metrics {
	size, ok := presetSizes[name]
	if !ok {
		size = presetSizes[PresetMedium]
	}
	return Metrics{
		CellSize:     size,
		CellGap:      math.Max(2, math.Round(size/6)),
		Padding:      16,
		LabelWidth:   140,
		HeaderHeight: 32,
	}
}

// Input describes one layout request.
type Input struct {
	Habits     []Habit
	Logs       LogLookup
	DaysToShow int
	Today      time.Time
	Metrics    Metrics
	// MonthName formats month labels; defaults to the three-letter English name.
	MonthName func(time.Month) string
}

// Cell is one positioned (habit, date) square; X and Y are its top-left corner.
type Cell struct {
	HabitID string    `json:"habit_id"`
	Date    string    `json:"date"`
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	State   CellState `json:"state"`
	Color   string    `json:"color,omitempty"`
}

// MonthLabel marks the column where a month starts being shown.
type MonthLabel struct {
	Col  int     `json:"col"`
	X    float64 `json:"x"`
	Text string  `json:"text"`
	Year int     `json:"year"`
}

// RowLabel anchors a habit name at the start of its row.
type RowLabel struct {
	HabitID string  `json:"habit_id"`
	Name    string  `json:"name"`
	Row     int     `json:"row"`
	Y       float64 `json:"y"`
}

// Layout is the full output of ComputeLayout.
type Layout struct {
	Dates        []string     `json:"dates"`
	Cells        []Cell       `json:"cells"`
	MonthLabels  []MonthLabel `json:"month_labels"`
	Rows         []RowLabel   `json:"rows"`
	GridWidth    float64      `json:"grid_width"`
	GridHeight   float64      `json:"grid_height"`
	TodayIndex   int          `json:"today_index"`
	TodayColumnX float64      `json:"today_column_x"`
	Metrics      Metrics      `json:"metrics"`
}

// Empty reports whether there is nothing to draw; callers should show an
// empty-state affordance instead of the grid.
func (l Layout) Empty() bool {
	return len(l.Cells) == 0
}

// Windows splits a visible day count into past and future windows.
// Today sits at index past.
func Windows(daysToShow int) (past, future int) {
	if daysToShow <= 0 {
		return 0, 0
	}
	past = int(math.Floor(float64(daysToShow) * PastRatio))
	future = daysToShow - past - 1
	return past, future
}

// DateRange returns the contiguous date sequence for the window around today.
func DateRange(today time.Time, daysToShow int) []time.Time {
	past, _ := Windows(daysToShow)
	start := startOfDay(today).AddDate(0, 0, -past)

	dates := make([]time.Time, 0, daysToShow)
	for i := 0; i < daysToShow; i++ {
		dates = append(dates, start.AddDate(0, 0, i))
	}
	return dates
}

// ComputeLayout positions every (habit, date) cell.
func ComputeLayout(in Input) Layout {
	out := Layout{Metrics: in.Metrics}
	if len(in.Habits) == 0 || in.DaysToShow <= 0 {
		return out
	}

	m := in.Metrics
	stride := m.Stride()
	monthName := in.MonthName
	if monthName == nil {
		monthName = func(month time.Month) string { return month.String()[:3] }
	}

	today := startOfDay(in.Today)
	todayKey := today.Format(DateLayout)
	days := DateRange(today, in.DaysToShow)
	past, _ := Windows(in.DaysToShow)

	out.Dates = make([]string, len(days))
	seenMonths := make(map[[2]int]bool)
	for j, day := range days {
		out.Dates[j] = day.Format(DateLayout)
		key := [2]int{day.Year(), int(day.Month())}
		if day.Day() <= 7 && !seenMonths[key] {
			seenMonths[key] = true
			out.MonthLabels = append(out.MonthLabels, MonthLabel{
				Col:  j,
				X:    columnX(m, j),
				Text: monthName(day.Month()),
				Year: day.Year(),
			})
		}
	}

	out.Cells = make([]Cell, 0, len(in.Habits)*len(days))
	out.Rows = make([]RowLabel, 0, len(in.Habits))
	for i, habit := range in.Habits {
		y := m.Padding + m.HeaderHeight + float64(i)*stride
		out.Rows = append(out.Rows, RowLabel{HabitID: habit.ID, Name: habit.Name, Row: i, Y: y})

		for j, date := range out.Dates {
			cell := Cell{
				HabitID: habit.ID,
				Date:    date,
				Row:     i,
				Col:     j,
				X:       columnX(m, j),
				Y:       y,
				State:   CellEmpty,
			}
			switch {
			case date > todayKey:
				cell.State = CellFuture
			case in.Logs != nil && in.Logs.Completed(habit.ID, date):
				cell.State = CellFilled
				cell.Color = habit.Color
			}
			out.Cells = append(out.Cells, cell)
		}
	}

	cols := float64(len(days))
	rows := float64(len(in.Habits))
	out.GridWidth = 2*m.Padding + m.LabelWidth + cols*stride - m.CellGap
	out.GridHeight = 2*m.Padding + m.HeaderHeight + rows*stride - m.CellGap
	out.TodayIndex = past
	out.TodayColumnX = columnX(m, past) + m.CellSize/2

	return out
}

func columnX(m Metrics, col int) float64 {
	return m.Padding + m.LabelWidth + float64(col)*m.Stride()
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
