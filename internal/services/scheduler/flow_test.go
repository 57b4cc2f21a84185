package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/juridico/internal/config"
	"github.com/magabrotheeeer/juridico/internal/models"
	"github.com/magabrotheeeer/juridico/internal/services/dispatcher"
	"github.com/magabrotheeeer/juridico/internal/services/resetter"
	"github.com/magabrotheeeer/juridico/internal/services/scanner"
)

// memStore хранилище в памяти с теми же условиями выборки и условной
// установкой флагов, что и репозиторий PostgreSQL.
type memStore struct {
	mu      sync.Mutex
	tasks   []*models.DueTask
	entries []*models.OverdueEntry
}

func (s *memStore) DueTasks(_ context.Context, from, to time.Time) ([]*models.DueTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DueTask
	for _, t := range s.tasks {
		if t.Status != models.TaskDone && !t.ReminderSent && !t.DueAt.Before(from) && t.DueAt.Before(to) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memStore) OverdueEntries(_ context.Context, now time.Time) ([]*models.OverdueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.OverdueEntry
	for _, e := range s.entries {
		if e.Status == models.EntryPending && !e.AlertSent && e.DueAt.Before(now) {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memStore) MarkTaskReminderSent(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id && !t.ReminderSent {
			t.ReminderSent = true
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) MarkEntryAlertSent(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id && !e.AlertSent {
			e.AlertSent = true
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ResetTaskReminders(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.ReminderSent {
			t.ReminderSent = false
			n++
		}
	}
	return n, nil
}

func (s *memStore) ResetEntryAlerts(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.AlertSent {
			e.AlertSent = false
			n++
		}
	}
	return n, nil
}

// recordingTransport считает успешные отправки по адресату.
// Первые failFirst вызовов завершаются ошибкой.
type recordingTransport struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	sent      []models.Message
}

func (t *recordingTransport) Send(_ context.Context, msg models.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.calls <= t.failFirst {
		return errors.New("smtp: 421 service not available")
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *recordingTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

func newNotificationScheduler(t *testing.T, store *memStore, tr *recordingTransport, now *time.Time) *Scheduler {
	t.Helper()
	loc := saoPaulo(t)
	renderer, err := dispatcher.NewRenderer("Ali Software Jurídico", "http://localhost:3001", loc)
	require.NoError(t, err)

	d := dispatcher.New(tr, store, renderer, config.Notification{Workers: 2, SendTimeout: time.Second}, newNoopLogger())
	s := New(loc, newNoopLogger(), WithClock(func() time.Time { return *now }))
	require.NoError(t, s.RegisterAll(NotificationJobs(
		config.Scheduler{TasksAt: "09:00", FinancialAt: "08:00", ResetAt: "00:00"},
		scanner.New(store, loc, newNoopLogger()),
		d,
		resetter.New(store, newNoopLogger()),
	)))
	return s
}

func owner() models.Owner {
	return models.Owner{ID: uuid.New(), Name: "Ana Souza", Email: "ana@example.com"}
}

func TestNotificationFlow_TaskSentOncePerDay(t *testing.T) {
	loc := saoPaulo(t)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
	due := &models.DueTask{
		Task:  models.Task{ID: uuid.New(), Title: "Audiência", Priority: "high", Status: models.TaskPending, DueAt: now.Add(5 * time.Hour)},
		Owner: owner(),
	}
	done := &models.DueTask{
		Task:  models.Task{ID: uuid.New(), Title: "Petição", Status: models.TaskDone, DueAt: now.Add(time.Hour)},
		Owner: owner(),
	}
	tomorrow := &models.DueTask{
		Task:  models.Task{ID: uuid.New(), Title: "Prazo", Status: models.TaskPending, DueAt: now.AddDate(0, 0, 1)},
		Owner: owner(),
	}
	store := &memStore{tasks: []*models.DueTask{due, done, tomorrow}}
	tr := &recordingTransport{}
	s := newNotificationScheduler(t, store, tr, &now)

	first, err := s.RunNow(context.Background(), JobTasks)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Found)
	assert.Equal(t, dispatcher.Report{Sent: 1}, first.Report)

	now = now.Add(2 * time.Hour)
	second, err := s.RunNow(context.Background(), JobTasks)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Found)
	assert.Equal(t, dispatcher.Report{}, second.Report)

	assert.Equal(t, 1, tr.sentCount())
	assert.True(t, due.ReminderSent)
	assert.False(t, tomorrow.ReminderSent)
	assert.Equal(t, "ana@example.com", tr.sent[0].To)
}

func TestNotificationFlow_FailedSendRetriedNextCycle(t *testing.T) {
	loc := saoPaulo(t)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)
	task := &models.DueTask{
		Task:  models.Task{ID: uuid.New(), Title: "Audiência", Status: models.TaskInProgress, DueAt: now.Add(time.Hour)},
		Owner: owner(),
	}
	store := &memStore{tasks: []*models.DueTask{task}}
	tr := &recordingTransport{failFirst: 1}
	s := newNotificationScheduler(t, store, tr, &now)

	first, err := s.RunNow(context.Background(), JobTasks)
	require.NoError(t, err)
	assert.Equal(t, dispatcher.Report{Failed: 1}, first.Report)
	assert.False(t, task.ReminderSent)

	second, err := s.RunNow(context.Background(), JobTasks)
	require.NoError(t, err)
	assert.Equal(t, dispatcher.Report{Sent: 1}, second.Report)
	assert.True(t, task.ReminderSent)

	third, err := s.RunNow(context.Background(), JobTasks)
	require.NoError(t, err)
	assert.Equal(t, 0, third.Found)
	assert.Equal(t, 1, tr.sentCount())
}

func TestNotificationFlow_OverdueEntryAlertedDailyAfterReset(t *testing.T) {
	loc := saoPaulo(t)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, loc)
	entry := &models.OverdueEntry{
		FinancialEntry: models.FinancialEntry{
			ID:          uuid.New(),
			Type:        models.EntryExpense,
			Category:    "Aluguel",
			Description: "Aluguel do escritório",
			Amount:      "3500.00",
			DueAt:       now.AddDate(0, 0, -3),
			Status:      models.EntryPending,
		},
		Owner: owner(),
	}
	paid := &models.OverdueEntry{
		FinancialEntry: models.FinancialEntry{ID: uuid.New(), Type: models.EntryIncome, Amount: "100.00", DueAt: now.AddDate(0, 0, -1), Status: models.EntryPaid},
		Owner:          owner(),
	}
	store := &memStore{entries: []*models.OverdueEntry{entry, paid}}
	tr := &recordingTransport{}
	s := newNotificationScheduler(t, store, tr, &now)

	for i := 0; i < 2; i++ {
		_, err := s.RunNow(context.Background(), JobFinancial)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tr.sentCount())
	assert.True(t, entry.AlertSent)

	now = time.Date(2025, 3, 11, 0, 0, 0, 0, loc)
	reset, err := s.RunNow(context.Background(), JobReset)
	require.NoError(t, err)
	assert.Equal(t, 1, reset.Reset)
	assert.False(t, entry.AlertSent)

	now = time.Date(2025, 3, 11, 8, 0, 0, 0, loc)
	res, err := s.RunNow(context.Background(), JobFinancial)
	require.NoError(t, err)
	assert.Equal(t, dispatcher.Report{Sent: 1}, res.Report)
	assert.Equal(t, 2, tr.sentCount())
}
