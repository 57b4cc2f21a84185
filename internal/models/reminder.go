package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderKind различает типы записей, по которым отправляются напоминания.
type ReminderKind string

const (
	KindTask           ReminderKind = "task"
	KindFinancialEntry ReminderKind = "financial_entry"
)

// Owner получатель напоминания.
type Owner struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Reminder общая возможность записи, для которой может быть отправлено напоминание.
// Сканер возвращает срез Reminder, диспетчер обрабатывает их одинаково.
type Reminder interface {
	RecordID() uuid.UUID
	Kind() ReminderKind
	Recipient() Owner
	DueDate() time.Time
}

// DueTask задача со сроком сегодня вместе с владельцем.
type DueTask struct {
	Task
	Owner Owner
}

func (t *DueTask) RecordID() uuid.UUID { return t.ID }
func (t *DueTask) Kind() ReminderKind  { return KindTask }
func (t *DueTask) Recipient() Owner    { return t.Owner }
func (t *DueTask) DueDate() time.Time  { return t.DueAt }

// OverdueEntry просроченная финансовая запись вместе с владельцем.
type OverdueEntry struct {
	FinancialEntry
	Owner Owner
}

func (e *OverdueEntry) RecordID() uuid.UUID { return e.ID }
func (e *OverdueEntry) Kind() ReminderKind  { return KindFinancialEntry }
func (e *OverdueEntry) Recipient() Owner    { return e.Owner }
func (e *OverdueEntry) DueDate() time.Time  { return e.DueAt }
