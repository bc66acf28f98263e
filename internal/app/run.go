package app

import (
	"context"
	"fmt"
	"io"

	"ragchat/internal/conversation"
	"ragchat/internal/service"
	"ragchat/internal/tui"
)

const (
	ragTitle    = "RAG Chatbot (Type 'exit' to stop)"
	simpleTitle = "Chatbot (Type 'exit' to stop)"
)

// Ingest indexes path with the configured rebuild policy.
func (a *App) Ingest(ctx context.Context, path string, forceRebuild bool) (service.IngestReport, error) {
	idx, err := a.Index(ctx)
	if err != nil {
		return service.IngestReport{}, err
	}
	ing, err := a.Ingestor(idx)
	if err != nil {
		return service.IngestReport{}, err
	}
	return ing.Ingest(ctx, path, forceRebuild)
}

// RunRAG ingests the configured source, then answers questions from it
// until exit.
func (a *App) RunRAG(ctx context.Context, in io.Reader, out io.Writer) error {
	idx, err := a.Index(ctx)
	if err != nil {
		return err
	}
	ing, err := a.Ingestor(idx)
	if err != nil {
		return err
	}
	chat, err := a.ChatModel(ctx, a.cfg.Chat)
	if err != nil {
		return err
	}

	report, err := ing.Ingest(ctx, a.cfg.Ingest.Source, a.cfg.Ingest.ForceRebuild)
	if err != nil {
		return err
	}
	summary := fmt.Sprintf("Knowledge stored: %d chunks from %s (%d in store).", report.Chunks, report.Source, report.StoreSize)
	if report.Summary != "" {
		summary += "\n" + report.Summary
	}

	tuiMode := a.cfg.UI.Mode == "tui"
	render := conversation.NewRenderer(out, "AI")
	opts := conversation.RAGOptions{
		TopK:        a.cfg.Retrieval.TopK,
		Params:      params(a.cfg.Chat),
		Stream:      a.cfg.Chat.Stream,
		ShowContext: a.cfg.Retrieval.ShowContext && !tuiMode,
		Render:      render,
		Metrics:     a.metrics,
	}
	responder := conversation.NewRAG(service.NewRetriever(idx, a.log.WithName("retriever")), chat, opts)
	if tuiMode {
		return tui.Run(ctx, responder, ragTitle, summary)
	}
	render.Banner(ragTitle, summary)
	return conversation.NewLoop(responder, in, render, a.log.WithName("loop")).Run(ctx)
}

// RunChat runs the history-keeping chat. With reset the stored history is
// discarded first.
func (a *App) RunChat(ctx context.Context, in io.Reader, out io.Writer, reset bool) error {
	chat, err := a.ChatModel(ctx, a.cfg.SimpleChat)
	if err != nil {
		return err
	}
	store, err := a.History()
	if err != nil {
		return err
	}
	if reset {
		if err := store.Reset(ctx); err != nil {
			return err
		}
	}

	responder := conversation.NewSimple(chat, store, conversation.SimpleOptions{
		Params:      params(a.cfg.SimpleChat),
		Stream:      a.cfg.SimpleChat.Stream,
		MaxMessages: a.cfg.History.MaxMessages,
		MaxChars:    a.cfg.History.MaxChars,
		Metrics:     a.metrics,
	})
	if a.cfg.UI.Mode == "tui" {
		return tui.Run(ctx, responder, simpleTitle, "")
	}
	render := conversation.NewRenderer(out, "AI")
	render.Banner(simpleTitle, "")
	return conversation.NewLoop(responder, in, render, a.log.WithName("loop")).Run(ctx)
}
