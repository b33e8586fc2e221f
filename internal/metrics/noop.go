package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder. All methods are
// empty, providing zero overhead when metrics are disabled.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordLogin(authSource string, success bool)                             {}
func (n *NoopMetrics) RecordLogout()                                                           {}
func (n *NoopMetrics) RecordOAuthCallback(provider string, success bool)                       {}
func (n *NoopMetrics) RecordGarminConnect(success bool)                                        {}
func (n *NoopMetrics) RecordGarminCallback(result string)                                      {}
func (n *NoopMetrics) RecordGarminSync(success bool, synced, total int, d time.Duration)       {}
func (n *NoopMetrics) RecordWorkoutCreated(source string)                                      {}
func (n *NoopMetrics) RecordWorkoutDeleted(source string)                                      {}
func (n *NoopMetrics) SetConnectedUsers(count int)                                             {}
func (n *NoopMetrics) SetWorkoutsBySource(source string, count int)                            {}
func (n *NoopMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration)   {}
func (n *NoopMetrics) IncHTTPInFlight()                                                        {}
func (n *NoopMetrics) DecHTTPInFlight()                                                        {}
