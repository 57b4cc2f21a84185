package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/juridico/internal/models"
)

// GetUser возвращает подписчика по его ID. Если пользователя нет, ошибка оборачивает sql.ErrNoRows.
func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, COALESCE(email, ''), plan_type, trial_ends_at, is_active
			  FROM users
			  WHERE id = $1`
	u := &models.User{}
	var trialEndsAt sql.NullTime
	if err := s.DB.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.PlanType, &trialEndsAt, &u.IsActive,
	); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if trialEndsAt.Valid {
		u.TrialEndsAt = &trialEndsAt.Time
	}
	return u, nil
}
