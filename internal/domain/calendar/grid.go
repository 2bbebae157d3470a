package calendar

// Weekdays are the Monday-first column headers.
var Weekdays = []string{"월", "화", "수", "목", "금", "토", "일"}

// Cell is one day of the grid.
type Cell struct {
	Date       string `json:"date"`
	Day        int    `json:"day"`
	Status     Status `json:"status"`
	IsToday    bool   `json:"is_today"`
	IsSelected bool   `json:"is_selected"`
	Selectable bool   `json:"selectable"`
}

// View is the rendered month.
type View struct {
	Label         string   `json:"label"`
	Year          int      `json:"year"`
	Month         int      `json:"month"`
	Weekdays      []string `json:"weekdays"`
	LeadingBlanks int      `json:"leading_blanks"`
	Cells         []Cell   `json:"cells"`
	Selected      string   `json:"selected,omitempty"`
	Today         string   `json:"today"`
}

// BuildView lays out mm on a Monday-first grid.
func BuildView(mm MonthMap, selected, today string) View {
	m := mm.Month
	view := View{
		Label:         m.Label(),
		Year:          m.Year,
		Month:         int(m.Month),
		Weekdays:      Weekdays,
		LeadingBlanks: m.LeadingBlanks(),
		Cells:         make([]Cell, 0, m.Days()),
		Selected:      selected,
		Today:         today,
	}
	for day := 1; day <= m.Days(); day++ {
		date := m.Date(day)
		view.Cells = append(view.Cells, Cell{
			Date:       date,
			Day:        day,
			Status:     mm.Status(date),
			IsToday:    date == today,
			IsSelected: date == selected,
			Selectable: date <= today,
		})
	}
	return view
}
