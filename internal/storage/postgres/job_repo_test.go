package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/reachforge/puppet/internal/config"
	"github.com/reachforge/puppet/internal/models"
)

func seedJob(t *testing.T, repo *JobRepository, id string, status config.JobStatus) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:          id,
		UserID:      "user-1",
		ProfileURL:  "https://www.linkedin.com/in/lead",
		Priority:    5,
		Status:      status,
		ScheduledAt: time.Now().UTC().Add(-time.Minute),
		MaxRetries:  3,
	}
	require.NoError(t, repo.Create(context.Background(), job))
	if status != config.JobStatusPending {
		require.NoError(t, repo.db.Model(job).Update("status", status).Error)
	}
	return job
}

func runJob(t *testing.T, repo *JobRepository, id string) {
	t.Helper()
	claimed, err := repo.MarkQueued(context.Background(), id)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, repo.MarkRunning(context.Background(), id, "scheduler-a"))
}

func TestJobRepository_MarkQueued_ClaimsOnlyOnce(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))
	seedJob(t, repo, "job-1", config.JobStatusPending)

	claimed, err := repo.MarkQueued(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second dispatcher loses the race.
	claimed, err = repo.MarkQueued(context.Background(), "job-1")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestJobRepository_Complete_GuardedByRunningStatus(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))
	ctx := context.Background()
	seedJob(t, repo, "job-1", config.JobStatusPending)

	_, err := repo.MarkQueued(ctx, "job-1")
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunning(ctx, "job-1", "scheduler-abc"))

	// An admin kills the job while the executor is mid-run.
	require.NoError(t, repo.Cancel(ctx, "job-1"))

	// The late completion is discarded: the kill stands.
	require.NoError(t, repo.Complete(ctx, "job-1", datatypes.JSON([]byte(`{"connected":true}`))))

	job, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusCancelled, job.Status)
	assert.Empty(t, job.Result)
}

func TestJobRepository_RetryLater_IncrementsRetryCount(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))
	ctx := context.Background()
	seedJob(t, repo, "job-1", config.JobStatusPending)

	later := time.Now().UTC().Add(time.Minute)
	for attempt := 1; attempt <= 2; attempt++ {
		runJob(t, repo, "job-1")
		require.NoError(t, repo.RetryLater(ctx, "job-1", later))

		job, err := repo.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, config.JobStatusPending, job.Status)
		assert.Equal(t, attempt, job.RetryCount)
		assert.Equal(t, 0, job.AdminRetryCount)
	}
}

func TestJobRepository_KilledJobIsNotResurrected(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))
	ctx := context.Background()
	seedJob(t, repo, "job-1", config.JobStatusPending)
	runJob(t, repo, "job-1")

	// An admin kills the job while the executor is mid-run.
	require.NoError(t, repo.Cancel(ctx, "job-1"))

	// The in-flight execution then ends with a transient error; none of the
	// late outcome writes may touch the cancelled row.
	require.NoError(t, repo.RetryLater(ctx, "job-1", time.Now().UTC()))
	require.NoError(t, repo.Fail(ctx, "job-1", "navigation timeout"))
	require.NoError(t, repo.Warn(ctx, "job-1", config.DetectionCaptcha, "", "late detection"))

	job, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusCancelled, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Empty(t, job.ErrorMessage)
}

func TestJobRepository_Cancel_TerminalStatusesStay(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))
	ctx := context.Background()
	seedJob(t, repo, "done", config.JobStatusCompleted)

	require.NoError(t, repo.Cancel(ctx, "done"))

	job, err := repo.Get(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusCompleted, job.Status)
}

func TestJobRepository_AdminRetry_TracksSeparateCounter(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))
	ctx := context.Background()
	seedJob(t, repo, "job-1", config.JobStatusWarning)

	require.NoError(t, repo.AdminRetry(ctx, "job-1"))

	job, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, config.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.RetryCount)
	assert.Equal(t, 1, job.AdminRetryCount)
}

func TestJobRepository_ListReady_OrderAndFilters(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	jobs := []models.Job{
		{ID: "low-prio", UserID: "user-1", Priority: 8, Status: config.JobStatusPending, ScheduledAt: now.Add(-time.Hour)},
		{ID: "high-prio", UserID: "user-1", Priority: 1, Status: config.JobStatusPending, ScheduledAt: now.Add(-time.Minute)},
		{ID: "future", UserID: "user-1", Priority: 1, Status: config.JobStatusPending, ScheduledAt: now.Add(time.Hour)},
		{ID: "paused", UserID: "user-1", Priority: 1, Status: config.JobStatusPending, ScheduledAt: now.Add(-time.Hour), PausedByAdmin: true},
		{ID: "paused-user", UserID: "user-2", Priority: 1, Status: config.JobStatusPending, ScheduledAt: now.Add(-time.Hour)},
	}
	for i := range jobs {
		require.NoError(t, repo.Create(ctx, &jobs[i]))
	}
	require.NoError(t, db.Create(&models.UserAutomationSettings{
		ID: "s-2", UserID: "user-2", PausedByAdmin: true,
	}).Error)

	ready, err := repo.ListReady(ctx, 10)
	require.NoError(t, err)

	ids := make([]string, len(ready))
	for i, j := range ready {
		ids[i] = j.ID
	}
	assert.Equal(t, []string{"high-prio", "low-prio"}, ids)
}

func TestJobRepository_ListStuckRunning(t *testing.T) {
	repo := NewJobRepository(SetupTestDB(t))
	ctx := context.Background()

	seedJob(t, repo, "fresh", config.JobStatusPending)
	_, err := repo.MarkQueued(ctx, "fresh")
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunning(ctx, "fresh", "scheduler-a"))

	seedJob(t, repo, "stuck", config.JobStatusPending)
	_, err = repo.MarkQueued(ctx, "stuck")
	require.NoError(t, err)
	require.NoError(t, repo.MarkRunning(ctx, "stuck", "scheduler-b"))
	stale := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, repo.db.Model(&models.Job{}).Where("id = ?", "stuck").Update("started_at", stale).Error)

	stuck, err := repo.ListStuckRunning(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "stuck", stuck[0].ID)
}
