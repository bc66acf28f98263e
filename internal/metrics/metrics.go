package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependency labels.
const (
	Embedding     = "embedding"
	VectorSearch  = "vector_search"
	VectorUpsert  = "vector_upsert"
	LLMGeneration = "llm_generation"
)

// Recorder owns a private registry. A nil *Recorder records nothing.
type Recorder struct {
	registry          *prometheus.Registry
	dependencyLatency *prometheus.HistogramVec
	turns             *prometheus.CounterVec
	chunksIngested    prometheus.Counter
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		dependencyLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragchat_dependency_latency_seconds",
			Help:    "Latency of external service calls.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"service"}),
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ragchat_turns_total",
			Help: "Conversation turns answered, by chat variant.",
		}, []string{"variant"}),
		chunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "ragchat_chunks_ingested_total",
			Help: "Chunks written to the vector store.",
		}),
	}
}

// Since observes the time elapsed since start for a dependency:
//
//	defer rec.Since(metrics.Embedding, time.Now())
func (r *Recorder) Since(service string, start time.Time) {
	if r == nil {
		return
	}
	r.dependencyLatency.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

func (r *Recorder) Turn(variant string) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(variant).Inc()
}

func (r *Recorder) ChunksIngested(n int) {
	if r == nil {
		return
	}
	r.chunksIngested.Add(float64(n))
}

// Serve exposes /metrics on addr until the returned shutdown func is called.
// It returns the bound address, which differs from addr when the port is 0.
func (r *Recorder) Serve(addr string, log logr.Logger) (string, func(context.Context) error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "metrics server stopped")
		}
	}()
	log.V(1).Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr().String(), srv.Shutdown, nil
}
