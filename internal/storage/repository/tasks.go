package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/juridico/internal/models"
)

// DueTasks возвращает незавершённые задачи со сроком в [from, to), по которым
// напоминание ещё не отправлено. Email владельца может быть пустым.
func (s *Storage) DueTasks(ctx context.Context, from, to time.Time) ([]*models.DueTask, error) {
	const op = "storage.DueTasks"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT t.id, t.user_id, t.title, t.description, t.priority, t.status,
			      t.due_at, t.reminder_sent, u.name, COALESCE(u.email, '')
			  FROM tasks t
			  JOIN users u ON u.id = t.user_id
			  WHERE t.status <> $1
			    AND t.due_at >= $2 AND t.due_at < $3
			    AND t.reminder_sent = FALSE
			  ORDER BY t.due_at, t.id`
	rows, err := s.DB.QueryContext(ctx, query, string(models.TaskDone), from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DueTask
	for rows.Next() {
		var t models.DueTask
		if err = rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Priority, &t.Status,
			&t.DueAt, &t.ReminderSent, &t.Owner.Name, &t.Owner.Email,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		t.Owner.ID = t.UserID
		result = append(result, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkTaskReminderSent выставляет флаг только если он ещё сброшен.
// Возвращает false, если строку уже пометил кто-то другой или её нет.
func (s *Storage) MarkTaskReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "storage.MarkTaskReminderSent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE tasks SET reminder_sent = TRUE WHERE id = $1 AND reminder_sent = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// ResetTaskReminders сбрасывает все выставленные флаги напоминаний и возвращает их количество.
func (s *Storage) ResetTaskReminders(ctx context.Context) (int, error) {
	const op = "storage.ResetTaskReminders"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE tasks SET reminder_sent = FALSE WHERE reminder_sent = TRUE`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(n), nil
}
