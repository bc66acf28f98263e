package conversation

import (
	"context"
	"iter"
	"strings"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/history"
	"ragchat/internal/llm"
	"ragchat/internal/metrics"
)

type SimpleOptions struct {
	Params domain.GenerationParams
	Stream bool
	// MaxMessages and MaxChars bound the history sent per turn; 0 is unbounded.
	MaxMessages int
	MaxChars    int
	Metrics     *metrics.Recorder
}

// Simple is a plain chat that resubmits the conversation history each turn.
type Simple struct {
	chat    domain.ChatModel
	history domain.HistoryStore
	opts    SimpleOptions
}

func NewSimple(chat domain.ChatModel, store domain.HistoryStore, opts SimpleOptions) *Simple {
	return &Simple{chat: chat, history: store, opts: opts}
}

func (s *Simple) Respond(ctx context.Context, input string) iter.Seq2[string, error] {
	return llm.Once(func(yield func(string, error) bool) {
		all, err := s.history.Messages(ctx)
		if err != nil {
			yield("", err)
			return
		}
		question := domain.Message{Role: domain.RoleUser, Content: input}
		messages := history.Window(append(all, question), s.opts.MaxMessages, s.opts.MaxChars)

		began := time.Now()
		var reply string
		if s.opts.Stream {
			var b strings.Builder
			for fragment, err := range s.chat.Stream(ctx, messages, s.opts.Params) {
				if err != nil {
					s.opts.Metrics.Since(metrics.LLMGeneration, began)
					yield("", err)
					return
				}
				b.WriteString(fragment)
				if !yield(fragment, nil) {
					return
				}
			}
			reply = strings.TrimSpace(b.String())
		} else {
			text, err := s.chat.Complete(ctx, messages, s.opts.Params)
			if err != nil {
				s.opts.Metrics.Since(metrics.LLMGeneration, began)
				yield("", err)
				return
			}
			reply = strings.TrimSpace(text)
			if !yield(reply, nil) {
				return
			}
		}
		s.opts.Metrics.Since(metrics.LLMGeneration, began)

		// The question is stored only together with its answer.
		answer := domain.Message{Role: domain.RoleAssistant, Content: reply}
		if err := s.history.Append(ctx, question, answer); err != nil {
			yield("", err)
			return
		}
		s.opts.Metrics.Turn("simple")
	})
}
