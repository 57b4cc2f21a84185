package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/juridico/internal/migrations"
	"github.com/magabrotheeeer/juridico/internal/models"
)

// setupTestDatabase поднимает контейнер PostgreSQL и накатывает миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

// testDataFactory содержит методы для создания тестовых данных
type testDataFactory struct {
	storage *Storage
}

func (f *testDataFactory) createUser(t *testing.T, name, email string, plan models.PlanType, trialEnd *time.Time, active bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	var emailArg any
	if email != "" {
		emailArg = email
	}
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, name, email, plan_type, trial_ends_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, name, emailArg, string(plan), trialEnd, active)
	require.NoError(t, err)
	return id
}

func (f *testDataFactory) createTask(t *testing.T, userID uuid.UUID, title string, status models.TaskStatus, dueAt time.Time, sent bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := f.storage.DB.Exec(`INSERT INTO tasks (id, user_id, title, priority, status, due_at, reminder_sent)
		VALUES ($1, $2, $3, 'high', $4, $5, $6)`,
		id, userID, title, string(status), dueAt, sent)
	require.NoError(t, err)
	return id
}

func (f *testDataFactory) createEntry(t *testing.T, userID uuid.UUID, status models.EntryStatus, dueAt time.Time, sent bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := f.storage.DB.Exec(`INSERT INTO financial_entries
		(id, user_id, type, category, description, amount, due_at, status, alert_sent)
		VALUES ($1, $2, 'expense', 'rent', 'Office rent', 1500.50, $3, $4, $5)`,
		id, userID, dueAt, string(status), sent)
	require.NoError(t, err)
	return id
}
