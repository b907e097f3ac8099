package model

import "time"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "Todo"
	StatusInProgress TaskStatus = "InProgress"
	StatusCompleted  TaskStatus = "Completed"
	StatusOnHold     TaskStatus = "OnHold"
	StatusBlocked    TaskStatus = "Blocked"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusOnHold, StatusBlocked:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "Daily"
	RecurrenceWeekly  RecurrenceType = "Weekly"
	RecurrenceMonthly RecurrenceType = "Monthly"
	RecurrenceYearly  RecurrenceType = "Yearly"
)

// RecurrencePattern describes how a task repeats. DaysOfWeek uses
// 0 = Sunday .. 6 = Saturday and applies to weekly recurrence only.
type RecurrencePattern struct {
	Type       RecurrenceType `json:"type"`
	Interval   int            `json:"interval"`
	DaysOfWeek []int          `json:"days_of_week,omitempty"`
	DayOfMonth int            `json:"day_of_month,omitempty"`
	EndDate    *time.Time     `json:"end_date,omitempty"`
}

type Subtask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Task owns its subtasks and history rows exclusively. Completed is derived
// from Status on every write and is never set by callers directly.
type Task struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	ProjectID    string             `json:"project_id"`
	Status       TaskStatus         `json:"status"`
	Priority     TaskPriority       `json:"priority"`
	DueDate      time.Time          `json:"due_date"`
	Completed    bool               `json:"completed"`
	StartDate    *time.Time         `json:"start_date,omitempty"`
	EndDate      *time.Time         `json:"end_date,omitempty"`
	ParentTaskID *string            `json:"parent_task_id,omitempty"`
	Recurrence   *RecurrencePattern `json:"recurrence,omitempty"`
	Subtasks     []Subtask          `json:"subtasks"`
	History      []HistoryEntry     `json:"history"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
