package task

import (
	"sort"
	"strings"
	"time"

	"taskboard/internal/model"
)

// DueBucket selects a relative due-date window.
type DueBucket string

const (
	DueAll      DueBucket = ""
	DueToday    DueBucket = "today"
	DueTomorrow DueBucket = "tomorrow"
	DueThisWeek DueBucket = "this-week"
	DueOverdue  DueBucket = "overdue"
	DueCustom   DueBucket = "custom"
)

// Filter narrows a task list. All set predicates must match (AND).
type Filter struct {
	ProjectID string
	Status    model.TaskStatus
	Priority  model.TaskPriority
	Due       DueBucket
	DueStart  *time.Time
	DueEnd    *time.Time
	Search    string
}

type SortField string

const (
	SortTitle     SortField = "title"
	SortProject   SortField = "project"
	SortStatus    SortField = "status"
	SortPriority  SortField = "priority"
	SortDueDate   SortField = "due_date"
	SortStartDate SortField = "start_date"
	SortEndDate   SortField = "end_date"
)

type Sort struct {
	Field SortField
	Desc  bool
}

// FilterTasks applies the filter conjunctively. The free-text search matches
// title, description, project name and subtask titles, case-insensitively.
func FilterTasks(tasks []model.Task, projects map[string]model.Project, f Filter, now time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if matchesFilter(&t, projects, f, now) {
			out = append(out, t)
		}
	}
	return out
}

func matchesFilter(t *model.Task, projects map[string]model.Project, f Filter, now time.Time) bool {
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Search != "" && !matchesSearch(t, projects, f.Search) {
		return false
	}
	return matchesDue(t.DueDate, f, now)
}

func matchesSearch(t *model.Task, projects map[string]model.Project, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	if p, ok := projects[t.ProjectID]; ok && strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	for _, st := range t.Subtasks {
		if strings.Contains(strings.ToLower(st.Title), q) {
			return true
		}
	}
	return false
}

func matchesDue(due time.Time, f Filter, now time.Time) bool {
	switch f.Due {
	case DueAll:
		return true
	case DueToday:
		return sameDay(due, now)
	case DueTomorrow:
		return sameDay(due, now.AddDate(0, 0, 1))
	case DueThisWeek:
		start := startOfWeek(now)
		return !due.Before(start) && due.Before(start.AddDate(0, 0, 7))
	case DueOverdue:
		return due.Before(startOfDay(now))
	case DueCustom:
		if f.DueStart == nil || f.DueEnd == nil {
			return true
		}
		return !due.Before(*f.DueStart) && !due.After(*f.DueEnd)
	}
	return true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the preceding (or current) Sunday at midnight.
func startOfWeek(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}

// SortTasks orders the slice in place by one key. Absent start/end dates sort
// after present ones regardless of direction. The sort is stable so ties keep
// their relative order.
func SortTasks(tasks []model.Task, projects map[string]model.Project, s Sort) {
	if s.Field == "" {
		s.Field = SortDueDate
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := &tasks[i], &tasks[j]
		switch s.Field {
		case SortTitle:
			return ordered(strings.Compare(a.Title, b.Title), s.Desc)
		case SortProject:
			return ordered(strings.Compare(projectName(projects, a.ProjectID), projectName(projects, b.ProjectID)), s.Desc)
		case SortStatus:
			return ordered(strings.Compare(string(a.Status), string(b.Status)), s.Desc)
		case SortPriority:
			return ordered(strings.Compare(string(a.Priority), string(b.Priority)), s.Desc)
		case SortStartDate:
			return lessOptionalTime(a.StartDate, b.StartDate, s.Desc)
		case SortEndDate:
			return lessOptionalTime(a.EndDate, b.EndDate, s.Desc)
		default:
			return ordered(compareTime(a.DueDate, b.DueDate), s.Desc)
		}
	})
}

func projectName(projects map[string]model.Project, id string) string {
	if p, ok := projects[id]; ok {
		return p.Name
	}
	return ""
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func ordered(cmp int, desc bool) bool {
	if desc {
		return cmp > 0
	}
	return cmp < 0
}

func lessOptionalTime(a, b *time.Time, desc bool) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return ordered(compareTime(*a, *b), desc)
}
