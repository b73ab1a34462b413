package views

import (
	"sort"
	"time"

	"creatorhub/pkg/domain"
)

// Move proposes a new due date for one task.
type Move struct {
	TaskID string
	Title  string
	From   time.Time
	To     time.Time
}

var priorityRank = map[domain.Priority]int{
	domain.PriorityLow:    0,
	domain.PriorityMedium: 1,
	domain.PriorityHigh:   2,
}

// SuggestRebalance proposes task moves off heavy days onto the lightest day
// of the week until every day is at most moderate or no day has room.
// Events never move. Lower priority tasks move first; high priority tasks
// stay put. The time of day of each due date is kept. days is not modified.
func SuggestRebalance(days []DayLoad, tasks []domain.Task, th Thresholds) []Move {
	if len(days) == 0 {
		return nil
	}
	totals := make([]int, len(days))
	for i, d := range days {
		totals[i] = d.Total
	}
	byDay := make([][]domain.Task, len(days))
	for _, t := range tasks {
		if !t.Open() || t.DueDate == nil || t.Priority == domain.PriorityHigh {
			continue
		}
		due := StartOfDay(t.DueDate.In(days[0].Date.Location()))
		for i, d := range days {
			if d.Date.Equal(due) {
				byDay[i] = append(byDay[i], t)
				break
			}
		}
	}
	for i := range byDay {
		sort.SliceStable(byDay[i], func(a, b int) bool {
			return priorityRank[byDay[i][a].Priority] < priorityRank[byDay[i][b].Priority]
		})
	}

	var moves []Move
	for src := range days {
		for totals[src] > th.Moderate && len(byDay[src]) > 0 {
			dst := lightest(totals, src)
			if dst < 0 || totals[dst]+1 > th.Moderate {
				break
			}
			t := byDay[src][0]
			byDay[src] = byDay[src][1:]
			from := *t.DueDate
			offset := from.Sub(StartOfDay(from))
			moves = append(moves, Move{TaskID: t.ID, Title: t.Title, From: from, To: days[dst].Date.Add(offset)})
			totals[src]--
			totals[dst]++
		}
	}
	return moves
}

func lightest(totals []int, skip int) int {
	best := -1
	for i, n := range totals {
		if i == skip {
			continue
		}
		if best < 0 || n < totals[best] {
			best = i
		}
	}
	return best
}

// RebalancePatch turns a move into the task patch that applies it.
func RebalancePatch(m Move) domain.TaskPatch {
	to := m.To
	return domain.TaskPatch{DueDate: &to}
}
