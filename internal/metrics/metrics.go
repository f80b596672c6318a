package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics contains the Prometheus collectors for playback sessions
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	SessionsStarted  *prometheus.CounterVec
	SessionsStopped  *prometheus.CounterVec
	SessionDuration  prometheus.Histogram
	StartFailures    *prometheus.CounterVec
	Reconnects       *prometheus.CounterVec
	PlayerErrors     *prometheus.CounterVec
	CommandsHandled  *prometheus.CounterVec
	TrackCacheLookup *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "radio_active_sessions",
			Help: "Current number of live voice sessions",
		}),
		SessionsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_sessions_started_total",
			Help: "Sessions started, by kind",
		}, []string{"kind"}),
		SessionsStopped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_sessions_stopped_total",
			Help: "Sessions torn down, by reason",
		}, []string{"reason"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "radio_session_duration_seconds",
			Help:    "Lifetime of torn down sessions",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1s to ~3 days
		}),
		StartFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_session_start_failures_total",
			Help: "Session factories that failed, by kind",
		}, []string{"kind"}),
		Reconnects: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_reconnects_total",
			Help: "Reconnect attempts, by outcome",
		}, []string{"outcome"}),
		PlayerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_player_errors_total",
			Help: "Player errors, by class",
		}, []string{"class"}),
		CommandsHandled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_commands_total",
			Help: "Slash commands and buttons handled",
		}, []string{"command"}),
		TrackCacheLookup: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_track_cache_lookups_total",
			Help: "Track cache lookups, by result",
		}, []string{"result"}),
	}
}

// RecordStart records a successfully started session.
func (m *Metrics) RecordStart(kind string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(kind).Inc()
	m.ActiveSessions.Inc()
}

// RecordStop records a torn down session and its lifetime.
func (m *Metrics) RecordStop(reason string, lifetime time.Duration) {
	if m == nil {
		return
	}
	m.SessionsStopped.WithLabelValues(reason).Inc()
	m.SessionDuration.Observe(lifetime.Seconds())
	m.ActiveSessions.Dec()
}

// RecordStartFailure records a failed session factory.
func (m *Metrics) RecordStartFailure(kind string) {
	if m == nil {
		return
	}
	m.StartFailures.WithLabelValues(kind).Inc()
}

// RecordReconnect records a reconnect outcome: scheduled, ok, failed, superseded, exhausted.
func (m *Metrics) RecordReconnect(outcome string) {
	if m == nil {
		return
	}
	m.Reconnects.WithLabelValues(outcome).Inc()
}

// RecordPlayerError records a player error as transient or fatal.
func (m *Metrics) RecordPlayerError(class string) {
	if m == nil {
		return
	}
	m.PlayerErrors.WithLabelValues(class).Inc()
}

// RecordCommand counts a handled command or button.
func (m *Metrics) RecordCommand(name string) {
	if m == nil {
		return
	}
	m.CommandsHandled.WithLabelValues(name).Inc()
}

// RecordCacheLookup counts a track cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.TrackCacheLookup.WithLabelValues(result).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("module", "metrics").Str("addr", addr).Msg("Metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
