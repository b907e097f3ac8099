package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
)

// Monday 2025-03-10.
var queryNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

var queryProjects = map[string]model.Project{
	"p1": {ID: "p1", Name: "Work"},
	"p2": {ID: "p2", Name: "Garden"},
}

func queryTasks() []model.Task {
	return []model.Task{
		{
			ID: "t1", Title: "Write report", ProjectID: "p1",
			Status: model.StatusInProgress, Priority: model.PriorityHigh,
			DueDate: time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC),
		},
		{
			ID: "t2", Title: "Water plants", ProjectID: "p2",
			Status: model.StatusTodo, Priority: model.PriorityLow,
			DueDate:  time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC),
			Subtasks: []model.Subtask{{ID: "s1", Title: "Buy fertilizer"}},
		},
		{
			ID: "t3", Title: "File taxes", ProjectID: "p1",
			Status: model.StatusTodo, Priority: model.PriorityHigh,
			DueDate: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			ID: "t4", Title: "Plan offsite", ProjectID: "p1",
			Status: model.StatusCompleted, Priority: model.PriorityMedium,
			DueDate: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		},
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterTasks(t *testing.T) {
	tasks := queryTasks()

	t.Run("no filter keeps everything", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{}, queryNow)
		assert.Len(t, out, 4)
	})

	t.Run("by project", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{ProjectID: "p2"}, queryNow)
		assert.Equal(t, []string{"t2"}, ids(out))
	})

	t.Run("by status", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{Status: model.StatusTodo}, queryNow)
		assert.Equal(t, []string{"t2", "t3"}, ids(out))
	})

	t.Run("conjunctive", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{Status: model.StatusTodo, Priority: model.PriorityHigh}, queryNow)
		assert.Equal(t, []string{"t3"}, ids(out))
	})

	t.Run("due today", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{Due: DueToday}, queryNow)
		assert.Equal(t, []string{"t1"}, ids(out))
	})

	t.Run("due tomorrow", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{Due: DueTomorrow}, queryNow)
		assert.Equal(t, []string{"t2"}, ids(out))
	})

	t.Run("overdue excludes today", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{Due: DueOverdue}, queryNow)
		assert.Equal(t, []string{"t3"}, ids(out))
	})

	t.Run("this week", func(t *testing.T) {
		// Week starts Sunday 2025-03-09.
		out := FilterTasks(tasks, queryProjects, Filter{Due: DueThisWeek}, queryNow)
		assert.Equal(t, []string{"t1", "t2", "t4"}, ids(out))
	})

	t.Run("custom range", func(t *testing.T) {
		start := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
		out := FilterTasks(tasks, queryProjects, Filter{Due: DueCustom, DueStart: &start, DueEnd: &end}, queryNow)
		assert.Equal(t, []string{"t2", "t4"}, ids(out))
	})

	t.Run("search matches title case-insensitively", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{Search: "REPORT"}, queryNow)
		assert.Equal(t, []string{"t1"}, ids(out))
	})

	t.Run("search matches project name", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{Search: "garden"}, queryNow)
		assert.Equal(t, []string{"t2"}, ids(out))
	})

	t.Run("search matches subtask title", func(t *testing.T) {
		out := FilterTasks(tasks, queryProjects, Filter{Search: "fertilizer"}, queryNow)
		assert.Equal(t, []string{"t2"}, ids(out))
	})
}

func TestSortTasks(t *testing.T) {
	t.Run("default is due date ascending", func(t *testing.T) {
		tasks := queryTasks()
		SortTasks(tasks, queryProjects, Sort{})
		assert.Equal(t, []string{"t3", "t1", "t2", "t4"}, ids(tasks))
	})

	t.Run("title descending", func(t *testing.T) {
		tasks := queryTasks()
		SortTasks(tasks, queryProjects, Sort{Field: SortTitle, Desc: true})
		assert.Equal(t, []string{"t1", "t2", "t4", "t3"}, ids(tasks))
	})

	t.Run("project name ascending", func(t *testing.T) {
		tasks := queryTasks()
		SortTasks(tasks, queryProjects, Sort{Field: SortProject})
		require.Len(t, tasks, 4)
		assert.Equal(t, "t2", tasks[0].ID, "Garden sorts before Work")
	})

	t.Run("missing start dates sort last either direction", func(t *testing.T) {
		start := time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)
		tasks := []model.Task{
			{ID: "a"},
			{ID: "b", StartDate: &start},
		}
		SortTasks(tasks, queryProjects, Sort{Field: SortStartDate})
		assert.Equal(t, []string{"b", "a"}, ids(tasks))

		SortTasks(tasks, queryProjects, Sort{Field: SortStartDate, Desc: true})
		assert.Equal(t, []string{"b", "a"}, ids(tasks))
	})
}
