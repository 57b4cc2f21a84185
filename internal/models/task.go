package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus статус выполнения задачи.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
	TaskPostponed  TaskStatus = "postponed"
)

// Task задача или процессуальный срок, принадлежащий одному пользователю.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Priority     string     `json:"priority"`
	Status       TaskStatus `json:"status"`
	DueAt        time.Time  `json:"due_at"`
	ReminderSent bool       `json:"reminder_sent"` // выставляется только после успешной отправки
}
