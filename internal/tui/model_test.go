package tui

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/conversation"
	"ragchat/internal/llm"
)

type scriptedResponder struct {
	fragments []string
	err       error
	inputs    []string
}

func (r *scriptedResponder) Respond(_ context.Context, input string) iter.Seq2[string, error] {
	r.inputs = append(r.inputs, input)
	return llm.Once(func(yield func(string, error) bool) {
		for _, f := range r.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if r.err != nil {
			yield("", r.err)
		}
	})
}

// blockingResponder yields one fragment, then waits for its turn to be
// cancelled before offering a late one.
type blockingResponder struct {
	blocked  chan struct{}
	finished chan struct{}
}

func (r *blockingResponder) Respond(ctx context.Context, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer close(r.finished)
		if !yield("first ", nil) {
			return
		}
		close(r.blocked)
		<-ctx.Done()
		yield("late", nil)
	}
}

func sized(t *testing.T, r conversation.Responder) Model {
	t.Helper()
	next, _ := New(context.Background(), r, "Chat", "summary").Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func enter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

// drain feeds pulled fragments back into the model until the reply ends.
func drain(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil && i < 100; i++ {
		msg := cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			return m, cmd
		}
		next, c := m.Update(msg)
		m, cmd = next.(Model), c
		if fm, ok := msg.(fragmentMsg); ok && (fm.done || fm.err != nil) {
			return m, cmd
		}
	}
	return m, cmd
}

func TestStreamsReplyIntoTranscript(t *testing.T) {
	r := &scriptedResponder{fragments: []string{"The sky ", "is blue."}}
	m, cmd := enter(t, sized(t, r), "  What color is the sky?  ")
	require.NotNil(t, cmd)
	m, _ = drain(t, m, cmd)

	assert.Equal(t, []string{"What color is the sky?"}, r.inputs)
	assert.NoError(t, m.Err())
	assert.Nil(t, m.next)
	assert.Contains(t, m.renderTranscript(), "The sky is blue.")
	assert.Contains(t, m.View(), "Ready.")
	assert.Empty(t, m.input.Value())
}

func TestExitQuitsWithoutResponder(t *testing.T) {
	r := &scriptedResponder{}
	_, cmd := enter(t, sized(t, r), " EXIT ")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
	assert.Empty(t, r.inputs)
}

func TestBlankInputIgnored(t *testing.T) {
	r := &scriptedResponder{}
	_, cmd := enter(t, sized(t, r), "   ")
	assert.Nil(t, cmd)
	assert.Empty(t, r.inputs)
}

func TestResponderErrorEndsProgram(t *testing.T) {
	cause := errors.New("chat down")
	r := &scriptedResponder{fragments: []string{"partial"}, err: cause}
	m, cmd := enter(t, sized(t, r), "hi")
	m, cmd = drain(t, m, cmd)

	require.ErrorIs(t, m.Err(), cause)
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestViewBeforeSize(t *testing.T) {
	m := New(context.Background(), &scriptedResponder{}, "Chat", "")
	assert.Equal(t, "Loading...", m.View())
	assert.Contains(t, sized(t, &scriptedResponder{}).View(), "No messages yet.")
}

func TestQuitWhileFragmentPending(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyCtrlD} {
		r := &blockingResponder{blocked: make(chan struct{}), finished: make(chan struct{})}
		m, cmd := enter(t, sized(t, r), "hi")
		next, cmd := m.Update(cmd())
		m = next.(Model)
		require.NotNil(t, cmd)

		pending := make(chan tea.Msg, 1)
		go func() { pending <- cmd() }()
		<-r.blocked

		type result struct {
			m    Model
			quit tea.Cmd
		}
		updated := make(chan result, 1)
		go func() {
			next, quit := m.Update(tea.KeyMsg{Type: key})
			updated <- result{next.(Model), quit}
		}()
		select {
		case res := <-updated:
			m = res.m
			require.NotNil(t, res.quit)
			_, ok := res.quit().(tea.QuitMsg)
			assert.True(t, ok)
		case <-time.After(time.Second):
			t.Fatalf("%v blocked while a fragment was pending", key)
		}

		select {
		case msg := <-pending:
			after, c := m.Update(msg)
			assert.Nil(t, c)
			assert.NotContains(t, after.(Model).renderTranscript(), "late")
		case <-time.After(time.Second):
			t.Fatal("pending fragment never returned")
		}
		select {
		case <-r.finished:
		case <-time.After(time.Second):
			t.Fatal("responder was not stopped")
		}
	}
}
