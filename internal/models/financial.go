package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryType вид финансовой записи.
type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

// EntryStatus статус оплаты финансовой записи.
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryPaid      EntryStatus = "paid"
	EntryOverdue   EntryStatus = "overdue"
	EntryCancelled EntryStatus = "cancelled"
	EntryPartial   EntryStatus = "partial"
)

// FinancialEntry запись к получению или к оплате.
// Amount хранится строкой в формате NUMERIC, чтобы не терять копейки.
type FinancialEntry struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Type        EntryType   `json:"type"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      string      `json:"amount"`
	DueAt       time.Time   `json:"due_at"`
	PaidAt      *time.Time  `json:"paid_at,omitempty"`
	Status      EntryStatus `json:"status"`
	AlertSent   bool        `json:"alert_sent"`
}
