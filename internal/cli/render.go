package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"creatorhub/internal/export"
	"creatorhub/internal/views"
	"creatorhub/pkg/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cellStyle    = lipgloss.NewStyle().Width(16).Align(lipgloss.Center).Padding(0, 1)

	loadColors = map[views.LoadLevel]lipgloss.Color{
		views.LoadLight:    lipgloss.Color("42"),
		views.LoadModerate: lipgloss.Color("214"),
		views.LoadHeavy:    lipgloss.Color("196"),
	}
	healthColors = map[views.HealthStatus]lipgloss.Color{
		views.HealthGood:     lipgloss.Color("42"),
		views.HealthAtRisk:   lipgloss.Color("214"),
		views.HealthCritical: lipgloss.Color("196"),
	}
)

// renderWeek draws one cell per day colored by load level.
func renderWeek(w io.Writer, days []views.DayLoad) {
	heads := make([]string, len(days))
	cells := make([]string, len(days))
	for i, d := range days {
		heads[i] = cellStyle.Render(d.Date.Format("Mon 02"))
		cells[i] = cellStyle.Background(loadColors[d.Level]).Foreground(lipgloss.Color("0")).
			Render(fmt.Sprintf("%d (%s)", d.Total, d.Level))
	}
	fmt.Fprintln(w, titleStyle.Render("Week of "+days[0].Date.Format("2 Jan 2006")))
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, heads...))
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	if i := views.Busiest(days); i >= 0 {
		d := days[i]
		fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("busiest: %s with %d events and %d tasks", d.Date.Format("Monday"), d.Events, d.Tasks)))
	}
}

func renderHealth(w io.Writer, s views.CreatorSummary) {
	status := lipgloss.NewStyle().Foreground(healthColors[s.Status]).Render(string(s.Status))
	fmt.Fprintf(w, "%s %d/100 %s\n", titleStyle.Render("Health"), s.AverageHealth, status)
	fmt.Fprintf(w, "active companies %d  open tasks %d  overdue %d  upcoming events %d  goals %d/%d\n",
		s.ActiveCompanies, s.OpenTasks, s.OverdueTasks, s.UpcomingEvents, s.GoalsDone, s.GoalsTotal)
	for _, c := range s.Companies {
		label := lipgloss.NewStyle().Foreground(healthColors[c.Status]).Render(fmt.Sprintf("%3d", c.Score))
		fmt.Fprintf(w, "  %s  %s\n", label, c.Name)
	}
}

func renderMoves(w io.Writer, moves []views.Move) {
	if len(moves) == 0 {
		fmt.Fprintln(w, successStyle.Render("No heavy days to rebalance."))
		return
	}
	for _, m := range moves {
		fmt.Fprintf(w, "%s  %s -> %s\n", m.Title, m.From.Format("Mon 02 15:04"), m.To.Format("Mon 02 15:04"))
	}
}

func renderEvents(w io.Writer, events []domain.CalendarEvent) {
	for _, ev := range events {
		fmt.Fprintf(w, "%s  %s\n", ev.Start.Format("Mon 02 15:04"), ev.Title)
	}
}

func renderExport(w io.Writer, rec export.Record) {
	if rec.Status == export.StatusFailed {
		fmt.Fprintln(w, errorStyle.Render("export "+rec.ID+" failed: "+rec.Error))
		return
	}
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("export %s %s", rec.ID, rec.Status)))
	for _, a := range rec.Artifacts {
		where := a.URL
		if where == "" {
			where = a.Key
		}
		fmt.Fprintf(w, "  %-15s %-4s %4d rows  %s\n", a.Entity, a.Format, a.Rows, where)
	}
}

func renderActivity(w io.Writer, items []domain.Activity) {
	for _, a := range items {
		line := fmt.Sprintf("%s  %-13s %-14s %s", a.CreatedAt.Format("02 Jan 15:04"), a.Type, a.Entity, a.DisplayName)
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
