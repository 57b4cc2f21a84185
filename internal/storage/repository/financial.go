package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/juridico/internal/models"
)

// OverdueEntries возвращает неоплаченные записи со сроком раньше now, по которым
// уведомление ещё не отправлено.
func (s *Storage) OverdueEntries(ctx context.Context, now time.Time) ([]*models.OverdueEntry, error) {
	const op = "storage.OverdueEntries"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT f.id, f.user_id, f.type, f.category, f.description, f.amount::TEXT,
			      f.due_at, f.paid_at, f.status, f.alert_sent, u.name, COALESCE(u.email, '')
			  FROM financial_entries f
			  JOIN users u ON u.id = f.user_id
			  WHERE f.status = $1
			    AND f.due_at < $2
			    AND f.alert_sent = FALSE
			  ORDER BY f.due_at, f.id`
	rows, err := s.DB.QueryContext(ctx, query, string(models.EntryPending), now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.OverdueEntry
	for rows.Next() {
		var e models.OverdueEntry
		var paidAt sql.NullTime
		if err = rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Category, &e.Description, &e.Amount,
			&e.DueAt, &paidAt, &e.Status, &e.AlertSent, &e.Owner.Name, &e.Owner.Email,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if paidAt.Valid {
			e.PaidAt = &paidAt.Time
		}
		e.Owner.ID = e.UserID
		result = append(result, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkEntryAlertSent выставляет флаг только если он ещё сброшен.
func (s *Storage) MarkEntryAlertSent(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "storage.MarkEntryAlertSent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE financial_entries SET alert_sent = TRUE WHERE id = $1 AND alert_sent = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// ResetEntryAlerts сбрасывает все выставленные флаги уведомлений и возвращает их количество.
func (s *Storage) ResetEntryAlerts(ctx context.Context) (int, error) {
	const op = "storage.ResetEntryAlerts"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE financial_entries SET alert_sent = FALSE WHERE alert_sent = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}
