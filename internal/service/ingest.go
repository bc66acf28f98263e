package service

import (
	"context"
	"io"

	"github.com/go-logr/logr"
	"github.com/schollz/progressbar/v3"

	"ragchat/internal/domain"
)

// IngestReport describes one ingestion run.
type IngestReport struct {
	Source    string
	Chunks    int
	StoreSize int
	Summary   string
}

type IngestOptions struct {
	// SummarySentences bounds the extractive summary; 0 disables it.
	SummarySentences int
	// Progress receives a progress bar while chunks are embedded. Nil hides it.
	Progress io.Writer
	Log      logr.Logger
}

// Ingestor loads a document, chunks it and writes the chunks to an Index.
type Ingestor struct {
	chunker    domain.Chunker
	index      *Index
	summarizer domain.Summarizer
	opts       IngestOptions
}

func NewIngestor(chunker domain.Chunker, index *Index, summarizer domain.Summarizer, opts IngestOptions) *Ingestor {
	return &Ingestor{chunker: chunker, index: index, summarizer: summarizer, opts: opts}
}

// Ingest indexes the file at path. With forceRebuild the index is cleared
// first, otherwise new chunks are added to whatever is stored.
func (g *Ingestor) Ingest(ctx context.Context, path string, forceRebuild bool) (IngestReport, error) {
	log := g.opts.Log.WithValues("source", path)
	if forceRebuild {
		if err := g.index.Clear(ctx); err != nil {
			return IngestReport{}, err
		}
		log.V(1).Info("cleared index")
	}

	doc, err := ReadDocument(path)
	if err != nil {
		return IngestReport{}, err
	}
	chunks, err := g.chunker.Chunk(doc)
	if err != nil {
		return IngestReport{}, err
	}

	var progress func(int)
	if g.opts.Progress != nil && len(chunks) > 0 {
		bar := progressbar.NewOptions(len(chunks),
			progressbar.OptionSetWriter(g.opts.Progress),
			progressbar.OptionSetDescription("embedding chunks"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
		progress = func(n int) { _ = bar.Add(n) }
	}
	if err := g.index.insert(ctx, chunks, progress); err != nil {
		return IngestReport{}, err
	}

	size, err := g.index.Count(ctx)
	if err != nil {
		return IngestReport{}, err
	}
	report := IngestReport{Source: path, Chunks: len(chunks), StoreSize: size}
	if g.summarizer != nil && g.opts.SummarySentences > 0 {
		report.Summary, err = g.summarizer.Summarize(doc.Content, g.opts.SummarySentences)
		if err != nil {
			return IngestReport{}, err
		}
	}
	log.Info("ingested document", "chunks", report.Chunks, "storeSize", report.StoreSize)
	return report, nil
}
