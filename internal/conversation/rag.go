package conversation

import (
	"context"
	"iter"
	"strings"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/llm"
	"ragchat/internal/metrics"
)

// Retriever fetches the chunk texts most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

type RAGOptions struct {
	TopK   int
	Params domain.GenerationParams
	Stream bool
	// ShowContext echoes the retrieved chunks and the final prompt.
	ShowContext bool
	Render      *Renderer
	Metrics     *metrics.Recorder
}

// RAG answers each input independently from retrieved context.
type RAG struct {
	retriever Retriever
	chat      domain.ChatModel
	opts      RAGOptions
}

func NewRAG(retriever Retriever, chat domain.ChatModel, opts RAGOptions) *RAG {
	return &RAG{retriever: retriever, chat: chat, opts: opts}
}

// BuildPrompt joins the context chunks with newlines ahead of the question.
func BuildPrompt(contextTexts []string, question string) string {
	return "Context:\n" + strings.Join(contextTexts, "\n") + "\n\nUser Question: " + question
}

func (r *RAG) Respond(ctx context.Context, input string) iter.Seq2[string, error] {
	return llm.Once(func(yield func(string, error) bool) {
		texts, err := r.retriever.Retrieve(ctx, input, r.opts.TopK)
		if err != nil {
			yield("", err)
			return
		}
		prompt := BuildPrompt(texts, input)
		if r.opts.ShowContext && r.opts.Render != nil {
			r.opts.Render.Retrieved(texts)
			r.opts.Render.FinalPrompt(prompt)
		}

		messages := []domain.Message{{Role: domain.RoleUser, Content: prompt}}
		began := time.Now()
		defer r.opts.Metrics.Since(metrics.LLMGeneration, began)

		var reply iter.Seq2[string, error]
		if r.opts.Stream {
			reply = r.chat.Stream(ctx, messages, r.opts.Params)
		} else {
			text, err := r.chat.Complete(ctx, messages, r.opts.Params)
			if err != nil {
				yield("", err)
				return
			}
			reply = llm.Single(text)
		}
		for fragment, err := range reply {
			if !yield(fragment, err) || err != nil {
				return
			}
		}
		r.opts.Metrics.Turn("rag")
	})
}
