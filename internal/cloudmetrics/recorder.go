package cloudmetrics

import "sync"

// Recorder receives accounting events from the rest of the codebase.
// A noop implementation stays active until cloud metrics are enabled,
// so call sites never need nil checks.
type Recorder interface {
	RecordEventIngested(tenantID, eventType string)
	RecordRecommendationServed(tenantID, channel string)
	RecordEngineError(tenantID, operation string)
}

type noopRecorder struct{}

func (noopRecorder) RecordEventIngested(string, string)        {}
func (noopRecorder) RecordRecommendationServed(string, string) {}
func (noopRecorder) RecordEngineError(string, string)          {}

var (
	activeRecorder Recorder = noopRecorder{}
	recorderMu     sync.RWMutex
)

func setRecorder(rec Recorder) {
	if rec == nil {
		return
	}
	recorderMu.Lock()
	activeRecorder = rec
	recorderMu.Unlock()
}

func RecordEventIngested(tenantID, eventType string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordEventIngested(tenantID, eventType)
}

func RecordRecommendationServed(tenantID, channel string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordRecommendationServed(tenantID, channel)
}

func RecordEngineError(tenantID, operation string) {
	recorderMu.RLock()
	rec := activeRecorder
	recorderMu.RUnlock()
	rec.RecordEngineError(tenantID, operation)
}
