// File: internal/jobs/backend_probe.go
package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"auth_portal/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ProbeResult is the outcome of one backend health check.
type ProbeResult struct {
	Reachable  bool
	StatusCode int
	Error      string
	CheckedAt  time.Time
}

// BackendProbeJob periodically checks the backend health endpoint so the
// login view can warn when the authentication service is down.
type BackendProbeJob struct {
	healthURL     string
	schedule      string
	httpClient    *http.Client
	logger        *zap.Logger
	cronScheduler *cron.Cron

	mu   sync.RWMutex
	last *ProbeResult
}

// NewBackendProbeJob creates a new BackendProbeJob.
func NewBackendProbeJob(cfg *config.Config, logger *zap.Logger) *BackendProbeJob {
	timeout := cfg.BackendTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	scheduler := cron.New(cron.WithLogger(NewCronLogger(logger.Named("cron"))))

	return &BackendProbeJob{
		healthURL:     cfg.BackendHealthURL,
		schedule:      cfg.BackendProbeSchedule,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger.Named("BackendProbeJob"),
		cronScheduler: scheduler,
	}
}

// SetupAndStart runs one probe immediately, then schedules the rest.
func (j *BackendProbeJob) SetupAndStart() error {
	if j.schedule == "" || j.healthURL == "" {
		j.logger.Warn("Backend probe schedule or health URL not defined. Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(j.schedule, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule backend probe", zap.String("spec", j.schedule), zap.Error(err))
		return err
	}

	j.logger.Info("Backend probe scheduled", zap.String("spec", j.schedule), zap.Any("jobID", jobID))
	go j.runJob()
	j.cronScheduler.Start()
	return nil
}

// Last returns the most recent probe result, if any probe has completed.
func (j *BackendProbeJob) Last() (ProbeResult, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.last == nil {
		return ProbeResult{}, false
	}
	return *j.last, true
}

func (j *BackendProbeJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), j.httpClient.Timeout)
	defer cancel()

	result := j.Probe(ctx)
	j.mu.Lock()
	previous := j.last
	j.last = &result
	j.mu.Unlock()

	switch {
	case previous == nil || previous.Reachable != result.Reachable:
		if result.Reachable {
			j.logger.Info("Backend is reachable", zap.String("url", j.healthURL), zap.Int("status", result.StatusCode))
		} else {
			j.logger.Warn("Backend is unreachable", zap.String("url", j.healthURL), zap.String("error", result.Error))
		}
	default:
		j.logger.Debug("Backend probe completed", zap.Bool("reachable", result.Reachable))
	}
}

// Probe performs a single health check. Any 2xx answer counts as reachable.
func (j *BackendProbeJob) Probe(ctx context.Context) ProbeResult {
	result := ProbeResult{CheckedAt: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.healthURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("build request: %v", err)
		return result
	}
	resp, err := j.httpClient.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	result.StatusCode = resp.StatusCode
	result.Reachable = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !result.Reachable {
		result.Error = resp.Status
	}
	return result
}

// Stop gracefully stops the cron scheduler.
func (j *BackendProbeJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping backend probe scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Backend probe scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Backend probe scheduler stop timed out.")
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron at debug level; cron is chatty.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), "MISSING_VALUE"))
		}
	}
	return fields
}
