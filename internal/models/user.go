// Package models содержит доменные структуры юридической системы:
// пользователей (подписчиков), задачи, финансовые записи и общий
// интерфейс напоминаний, с которым работают сканер и диспетчер уведомлений.
package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanType тариф подписчика.
type PlanType string

const (
	PlanTrial        PlanType = "trial"
	PlanBasic        PlanType = "basic"
	PlanProfessional PlanType = "professional"
	PlanEnterprise   PlanType = "enterprise"
)

// User представляет подписчика системы (адвоката или офис).
type User struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	PlanType    PlanType   `json:"plan_type"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"` // nil: дата окончания пробного периода не задана
	IsActive    bool       `json:"is_active"`
}
