package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Turn("rag")
	r.Turn("rag")
	r.Turn("simple")
	r.ChunksIngested(7)
	r.Since(Embedding, time.Now().Add(-time.Second))

	assert.InDelta(t, 2, testutil.ToFloat64(r.turns.WithLabelValues("rag")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.turns.WithLabelValues("simple")), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(r.chunksIngested), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(r.dependencyLatency))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Turn("rag")
		r.ChunksIngested(1)
		r.Since(VectorSearch, time.Now())
	})
}

func TestServe(t *testing.T) {
	r := NewRecorder()
	r.ChunksIngested(3)

	addr, shutdown, err := r.Serve("127.0.0.1:0", logr.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ragchat_chunks_ingested_total 3")
}
