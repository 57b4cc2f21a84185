// Package entitlement решает, может ли подписчик пользоваться защищёнными
// маршрутами: пробный период ограничен датой окончания, платный тариф
// действует, пока подписка активна.
package entitlement

import (
	"time"

	"github.com/magabrotheeeer/juridico/internal/models"
)

// Reason причина отказа в доступе.
type Reason string

const (
	ReasonNotFound     Reason = "NOT_FOUND"
	ReasonTrialExpired Reason = "TRIAL_EXPIRED"
	ReasonPlanInactive Reason = "PLAN_INACTIVE"
)

// Decision результат проверки доступа. Reason пуст, если доступ разрешён.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision              { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

// CheckAccess чистая функция политики тарифов.
// Пробный период включает сам момент окончания. Пробный тариф без даты
// окончания считается действующим.
func CheckAccess(user *models.User, now time.Time) Decision {
	switch {
	case user == nil:
		return deny(ReasonNotFound)
	case user.PlanType == models.PlanTrial:
		if user.TrialEndsAt != nil && now.After(*user.TrialEndsAt) {
			return deny(ReasonTrialExpired)
		}
		return allow()
	case !user.IsActive:
		return deny(ReasonPlanInactive)
	default:
		return allow()
	}
}
