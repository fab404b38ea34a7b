package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type snapshotRequestMetrics struct {
	logger         *log.Logger
	start          time.Time
	authDuration   time.Duration
	fetchDuration  time.Duration
	encodeDuration time.Duration
	listsReturned  int
	tasksReturned  int
	errorStage     string
}

func newSnapshotRequestMetrics(logger *log.Logger) *snapshotRequestMetrics {
	return &snapshotRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *snapshotRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *snapshotRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *snapshotRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *snapshotRequestMetrics) SetCounts(lists, tasks int) {
	if lists < 0 {
		lists = 0
	}
	if tasks < 0 {
		tasks = 0
	}
	m.listsReturned = lists
	m.tasksReturned = tasks
}

func (m *snapshotRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *snapshotRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":          "/api/boards/:id",
		"status":         status,
		"total_ms":       durationToMillis(time.Since(m.start)),
		"lists_returned": m.listsReturned,
		"tasks_returned": m.tasksReturned,
	}

	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.fetchDuration > 0 {
		fields["fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("board.snapshot.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
