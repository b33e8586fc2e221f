package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics surface the rest of the application records
// against. A noop implementation backs deployments with metrics disabled.
type Recorder interface {
	// Authentication
	RecordLogin(authSource string, success bool)
	RecordLogout()
	RecordOAuthCallback(provider string, success bool)

	// Garmin connect flow
	RecordGarminConnect(success bool)
	RecordGarminCallback(result string) // "connected", "mismatch", "missing_params", "upstream_error"
	RecordGarminSync(success bool, synced, total int, duration time.Duration)

	// Workouts
	RecordWorkoutCreated(source string)
	RecordWorkoutDeleted(source string)

	// Gauges
	SetConnectedUsers(count int)
	SetWorkoutsBySource(source string, count int)

	// HTTP
	RecordHTTPRequest(method, path, status string, duration time.Duration)
	IncHTTPInFlight()
	DecHTTPInFlight()
}

var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	LoginTotal         *prometheus.CounterVec
	LogoutTotal        prometheus.Counter
	OAuthCallbackTotal *prometheus.CounterVec

	GarminConnectTotal  *prometheus.CounterVec
	GarminCallbackTotal *prometheus.CounterVec
	GarminSyncTotal     *prometheus.CounterVec
	GarminSyncActivitiesConsidered prometheus.Counter
	GarminSyncActivitiesImported   prometheus.Counter
	GarminSyncDuration  prometheus.Histogram

	WorkoutsCreatedTotal *prometheus.CounterVec
	WorkoutsDeletedTotal *prometheus.CounterVec

	GarminConnectedUsers prometheus.Gauge
	WorkoutsBySource     *prometheus.GaugeVec

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag. With enabled=false a noop
// recorder is returned. Uses sync.Once so Prometheus collectors are only
// registered once across tests and restarts within a process.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		LoginTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_logins_total",
				Help: "Total number of login attempts",
			},
			[]string{"auth_source", "result"},
		),
		LogoutTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fittrack_logouts_total",
				Help: "Total number of logouts",
			},
		),
		OAuthCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_oauth_callbacks_total",
				Help: "Total number of sign-in OAuth callbacks processed",
			},
			[]string{"provider", "result"},
		),
		GarminConnectTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_garmin_connect_total",
				Help: "Total number of Garmin connect attempts started",
			},
			[]string{"result"},
		),
		GarminCallbackTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_garmin_callback_total",
				Help: "Total number of Garmin OAuth callbacks by outcome",
			},
			[]string{"result"},
		),
		GarminSyncTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_garmin_sync_total",
				Help: "Total number of Garmin activity sync runs",
			},
			[]string{"result"},
		),
		GarminSyncActivitiesConsidered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fittrack_garmin_sync_activities_considered_total",
				Help: "Total number of remote activities considered during sync",
			},
		),
		GarminSyncActivitiesImported: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fittrack_garmin_sync_activities_imported_total",
				Help: "Total number of remote activities imported as new workouts",
			},
		),
		GarminSyncDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fittrack_garmin_sync_duration_seconds",
				Help:    "Duration of Garmin sync runs",
				Buckets: prometheus.DefBuckets,
			},
		),
		WorkoutsCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_workouts_created_total",
				Help: "Total number of workouts created",
			},
			[]string{"source"},
		),
		WorkoutsDeletedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_workouts_deleted_total",
				Help: "Total number of workouts deleted",
			},
			[]string{"source"},
		),
		GarminConnectedUsers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fittrack_garmin_connected_users",
				Help: "Number of users with stored Garmin credentials",
			},
		),
		WorkoutsBySource: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fittrack_workouts_by_source",
				Help: "Number of workout records by source",
			},
			[]string{"source"},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fittrack_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fittrack_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordLogin(authSource string, success bool) {
	m.LoginTotal.WithLabelValues(authSource, result(success)).Inc()
}

func (m *Metrics) RecordLogout() {
	m.LogoutTotal.Inc()
}

func (m *Metrics) RecordOAuthCallback(provider string, success bool) {
	m.OAuthCallbackTotal.WithLabelValues(provider, result(success)).Inc()
}

func (m *Metrics) RecordGarminConnect(success bool) {
	m.GarminConnectTotal.WithLabelValues(result(success)).Inc()
}

func (m *Metrics) RecordGarminCallback(outcome string) {
	m.GarminCallbackTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordGarminSync(success bool, synced, total int, duration time.Duration) {
	m.GarminSyncTotal.WithLabelValues(result(success)).Inc()
	if success {
		m.GarminSyncActivitiesConsidered.Add(float64(total))
		m.GarminSyncActivitiesImported.Add(float64(synced))
	}
	m.GarminSyncDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordWorkoutCreated(source string) {
	m.WorkoutsCreatedTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordWorkoutDeleted(source string) {
	m.WorkoutsDeletedTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) SetConnectedUsers(count int) {
	m.GarminConnectedUsers.Set(float64(count))
}

func (m *Metrics) SetWorkoutsBySource(source string, count int) {
	m.WorkoutsBySource.WithLabelValues(source).Set(float64(count))
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncHTTPInFlight() { m.HTTPRequestsInFlight.Inc() }
func (m *Metrics) DecHTTPInFlight() { m.HTTPRequestsInFlight.Dec() }
