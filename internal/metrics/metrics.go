package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the client-side instruments on a private registry so tests
// and multiple clients never collide on the global one.
type Recorder struct {
	Registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	unauthorized prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "receiptdesk_api_requests_total",
				Help: "Backend API calls by operation and outcome",
			},
			[]string{"op", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "receiptdesk_api_request_duration_seconds",
				Help:    "Backend API call latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"op"},
		),
		unauthorized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptdesk_session_unauthorized_total",
			Help: "Responses that cleared the session",
		}),
	}
	r.Registry.MustRegister(r.requests, r.latency, r.unauthorized)
	return r
}

// ObserveRequest records one finished call. status is the HTTP status code
// as text, or "error" for transport failures.
func (r *Recorder) ObserveRequest(op, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(op, status).Inc()
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) IncUnauthorized() {
	if r == nil {
		return
	}
	r.unauthorized.Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
