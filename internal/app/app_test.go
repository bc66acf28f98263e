package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/config"
	"ragchat/internal/domain"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// fakeChat answers every completion with reply and keeps the requests.
type fakeChat struct {
	mu       sync.Mutex
	requests [][]message
}

func (f *fakeChat) handler(t *testing.T, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []message `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.requests = append(f.requests, req.Messages)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"id":"1","object":"chat.completion","created":0,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":%q}}]}`, reply)
	}
}

func (f *fakeChat) seen() [][]message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]message(nil), f.requests...)
}

func testConfig(t *testing.T, serverURL string) *config.AppConfig {
	t.Helper()
	t.Setenv("RAGCHAT_TEST_KEY", "secret")
	cfg := config.Default()
	cfg.OpenAI.BaseURL = serverURL + "/v1"
	cfg.OpenAI.APIKeyEnv = "RAGCHAT_TEST_KEY"
	cfg.Embedder.Type = "tfidf"
	cfg.Chat.Stream = false
	cfg.Ingest.ShowProgress = false
	cfg.Retrieval.ShowContext = false
	return cfg
}

func newApp(t *testing.T, cfg *config.AppConfig) *App {
	t.Helper()
	a, err := New(cfg, logr.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	return a
}

func TestRunRAGAnswersFromIngestedFile(t *testing.T) {
	chat := &fakeChat{}
	srv := httptest.NewServer(chat.handler(t, "Blue."))
	t.Cleanup(srv.Close)

	source := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(source, []byte("The sky is blue. Grass is green."), 0o644))
	cfg := testConfig(t, srv.URL)
	cfg.Ingest.Source = source

	var out bytes.Buffer
	err := newApp(t, cfg).RunRAG(context.Background(), strings.NewReader("What color is the sky?\nexit\n"), &out)
	require.NoError(t, err)

	requests := chat.seen()
	require.Len(t, requests, 1)
	assert.Equal(t, []message{{
		Role:    "user",
		Content: "Context:\nThe sky is blue. Grass is green.\n\nUser Question: What color is the sky?",
	}}, requests[0])
	assert.Contains(t, out.String(), "Knowledge stored: 1 chunks")
	assert.Contains(t, out.String(), "Blue.")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestRunRAGMissingSource(t *testing.T) {
	chat := &fakeChat{}
	srv := httptest.NewServer(chat.handler(t, "unused"))
	t.Cleanup(srv.Close)
	cfg := testConfig(t, srv.URL)
	cfg.Ingest.Source = filepath.Join(t.TempDir(), "missing.txt")

	err := newApp(t, cfg).RunRAG(context.Background(), strings.NewReader("exit\n"), &bytes.Buffer{})
	require.ErrorIs(t, err, domain.ErrIO)
	assert.Empty(t, chat.seen())
}

func TestRunChatKeepsHistory(t *testing.T) {
	chat := &fakeChat{}
	srv := httptest.NewServer(chat.handler(t, "  hello  "))
	t.Cleanup(srv.Close)
	cfg := testConfig(t, srv.URL)

	var out bytes.Buffer
	err := newApp(t, cfg).RunChat(context.Background(), strings.NewReader("hi\nhow are you\nEXIT\n"), &out, false)
	require.NoError(t, err)

	requests := chat.seen()
	require.Len(t, requests, 2)
	assert.Equal(t, []message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "how are you"},
	}, requests[1])
	assert.Contains(t, out.String(), "hello")
}

func TestMissingAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAI.APIKeyEnv = "RAGCHAT_TEST_UNSET_KEY"
	t.Setenv("RAGCHAT_TEST_UNSET_KEY", "")

	err := newApp(t, cfg).RunChat(context.Background(), strings.NewReader(""), &bytes.Buffer{}, false)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Chunker.Overlap = cfg.Chunker.MaxSize
	_, err := New(cfg, logr.Discard())
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCloseRunsInReverseOrder(t *testing.T) {
	a := &App{}
	var order []string
	a.onClose("first", func() error { order = append(order, "first"); return nil })
	a.onClose("second", func() error { order = append(order, "second"); return assert.AnError })

	err := a.Close()
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"second", "first"}, order)
	require.NoError(t, a.Close())
}
