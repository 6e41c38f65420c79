/*
scheduler.go - Background runner for sensitivity jobs

PURPOSE:
  Large sensitivity grids can take longer than a request should. Clients
  submit a job, get an id back immediately, and poll GET /api/jobs/{id}.
  Jobs are persisted in sqlite so their status and result survive the
  request that created them.

DESIGN:
  - A fixed pool of runner goroutines reads job ids from a buffered queue
  - Each job moves pending -> running -> completed | failed
  - On Start, jobs left pending or running by a previous process are
    re-queued
  - Stop cancels in-flight grids and waits for the runners to exit

USAGE:
  runner := NewJobRunner(store, generator, metrics, 2)
  runner.Start()
  // ... later
  runner.Stop()

SEE ALSO:
  - handlers.go: SubmitSensitivityJob, GetJob endpoints
  - analysis/sensitivity.go: Generator
  - store/sqlite/sqlite.go: sensitivity_jobs table
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/feasibility-engine/analysis"
	"github.com/warp/feasibility-engine/feaso"
	"github.com/warp/feasibility-engine/store/sqlite"
)

// Job statuses.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

const jobQueueSize = 64

// ErrQueueFull is returned by Submit when the runner is saturated.
var ErrQueueFull = errors.New("sensitivity job queue is full")

// JobRunner executes sensitivity jobs in the background.
type JobRunner struct {
	Store     *sqlite.Store
	Generator *analysis.Generator
	Workers   int

	metrics *Metrics
	queue   chan string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewJobRunner creates a runner. It does nothing until Start.
func NewJobRunner(store *sqlite.Store, gen *analysis.Generator, metrics *Metrics, workers int) *JobRunner {
	if workers <= 0 {
		workers = 1
	}
	return &JobRunner{
		Store:     store,
		Generator: gen,
		Workers:   workers,
		metrics:   metrics,
		queue:     make(chan string, jobQueueSize),
	}
}

// Start launches the runners and re-queues unfinished jobs.
func (jr *JobRunner) Start() {
	jr.mu.Lock()
	defer jr.mu.Unlock()

	if jr.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	jr.cancel = cancel

	for i := 0; i < jr.Workers; i++ {
		jr.wg.Add(1)
		go jr.run(ctx)
	}
	jr.recover(ctx)

	slog.Info("job runner started", "workers", jr.Workers)
}

// Stop cancels running jobs and waits for the runners to exit.
func (jr *JobRunner) Stop() {
	jr.mu.Lock()
	defer jr.mu.Unlock()

	if jr.cancel == nil {
		return
	}
	jr.cancel()
	jr.wg.Wait()
	jr.cancel = nil
	slog.Info("job runner stopped")
}

func (jr *JobRunner) run(ctx context.Context) {
	defer jr.wg.Done()

	for {
		select {
		case id := <-jr.queue:
			jr.metrics.jobsQueued.Dec()
			if err := jr.RunNow(ctx, id); err != nil && ctx.Err() == nil {
				slog.Error("sensitivity job failed", "job_id", id, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// recover re-queues jobs an earlier process did not finish.
func (jr *JobRunner) recover(ctx context.Context) {
	for _, status := range []string{JobPending, JobRunning} {
		jobs, err := jr.Store.ListJobs(ctx, status)
		if err != nil {
			slog.Error("failed to list unfinished jobs", "status", status, "error", err)
			continue
		}
		for _, j := range jobs {
			if err := jr.enqueue(j.ID); err != nil {
				slog.Warn("could not re-queue job", "job_id", j.ID, "error", err)
			}
		}
	}
}

// Submit persists a pending job for scenarioID and queues it.
func (jr *JobRunner) Submit(ctx context.Context, scenarioID feaso.ScenarioID, req SensitivityRequest) (sqlite.Job, error) {
	if _, _, err := parseSensitivityRequest(req); err != nil {
		return sqlite.Job{}, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return sqlite.Job{}, err
	}

	job := sqlite.Job{
		ID:          uuid.NewString(),
		ScenarioID:  scenarioID,
		Status:      JobPending,
		RequestJSON: string(body),
		CreatedAt:   time.Now(),
	}
	if err := jr.Store.SaveJob(ctx, job); err != nil {
		return sqlite.Job{}, err
	}
	if err := jr.enqueue(job.ID); err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		if saveErr := jr.Store.SaveJob(ctx, job); saveErr != nil {
			slog.Error("failed to record rejected job", "job_id", job.ID, "error", saveErr)
		}
		return job, err
	}
	return job, nil
}

func (jr *JobRunner) enqueue(id string) error {
	select {
	case jr.queue <- id:
		jr.metrics.jobsQueued.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// RunNow executes a job synchronously and records its outcome. The returned
// error is the job's failure, already persisted on the job.
func (jr *JobRunner) RunNow(ctx context.Context, id string) (err error) {
	job, err := jr.Store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == JobCompleted || job.Status == JobFailed {
		return nil
	}

	started := time.Now()
	job.Status = JobRunning
	job.StartedAt = &started
	if err := jr.Store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job running: %w", err)
	}
	defer jr.metrics.Observe("sensitivity_job", started, &err)

	result, runErr := jr.execute(ctx, job)
	if runErr != nil && ctx.Err() != nil {
		// Shutting down: leave the job running so the next Start picks it up.
		return runErr
	}

	completed := time.Now()
	job.CompletedAt = &completed
	if runErr != nil {
		job.Status = JobFailed
		job.Error = runErr.Error()
	} else {
		job.Status = JobCompleted
		job.ResultJSON = result
	}
	if err := jr.Store.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		return fmt.Errorf("failed to record job outcome: %w", err)
	}

	slog.Info("sensitivity job finished",
		"job_id", job.ID,
		"scenario_id", job.ScenarioID,
		"status", job.Status,
		"elapsed", completed.Sub(started))
	return runErr
}

func (jr *JobRunner) execute(ctx context.Context, job sqlite.Job) (string, error) {
	var req SensitivityRequest
	if err := json.Unmarshal([]byte(job.RequestJSON), &req); err != nil {
		return "", fmt.Errorf("corrupt job request: %w", err)
	}
	xAxis, yAxis, err := parseSensitivityRequest(req)
	if err != nil {
		return "", err
	}

	b, err := feaso.Load(ctx, jr.Store, job.ScenarioID)
	if err != nil {
		return "", err
	}
	grid, err := jr.Generator.Generate(ctx, b.Scenario, b.Site, b.Linked, xAxis, yAxis, req.StepsX, req.StepsY)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(SensitivityResponse{XAxis: xAxis, YAxis: yAxis, Grid: grid})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// toJobDTO decodes the stored request and result.
func toJobDTO(j sqlite.Job) JobDTO {
	dto := JobDTO{
		ID:          j.ID,
		ScenarioID:  string(j.ScenarioID),
		Status:      j.Status,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
	}
	if err := json.Unmarshal([]byte(j.RequestJSON), &dto.Request); err != nil {
		slog.Warn("job request is not valid JSON", "job_id", j.ID, "error", err)
	}
	if j.ResultJSON != "" {
		var res SensitivityResponse
		if err := json.Unmarshal([]byte(j.ResultJSON), &res); err != nil {
			slog.Warn("job result is not valid JSON", "job_id", j.ID, "error", err)
		} else {
			dto.Result = &res
		}
	}
	return dto
}
