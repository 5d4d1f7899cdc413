// Package metrics defines the observability hooks of the rebuild pipeline.
package metrics

import "time"

// Recorder receives rebuild and live-reload observations. Implementations
// must be safe for concurrent use.
type Recorder interface {
	// ObserveRebuild records one change-handling or build invocation.
	// status is one of skipped|succeeded|partial|failed.
	ObserveRebuild(status string, d time.Duration)
	// ObserveCompile records one document compile.
	ObserveCompile(success bool, d time.Duration)
	IncReloadBroadcast()
	SetReloadClients(n int)
	SetGraphDocuments(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not wired).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRebuild(string, time.Duration) {}
func (NoopRecorder) ObserveCompile(bool, time.Duration)   {}
func (NoopRecorder) IncReloadBroadcast()                  {}
func (NoopRecorder) SetReloadClients(int)                 {}
func (NoopRecorder) SetGraphDocuments(int)                {}
