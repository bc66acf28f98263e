package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"ragchat/internal/domain"
)

// Recursive delegates splitting to langchaingo's recursive character
// splitter. The splitter may trim whitespace at chunk edges, so offsets are
// located afterwards and set to -1 when a chunk cannot be found verbatim.
type Recursive struct {
	splitter textsplitter.RecursiveCharacter
	overlap  int
}

func NewRecursive(maxSize, overlap int) (*Recursive, error) {
	if err := validate(maxSize, overlap); err != nil {
		return nil, err
	}
	return &Recursive{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(maxSize),
			textsplitter.WithChunkOverlap(overlap),
		),
		overlap: overlap,
	}, nil
}

func (r *Recursive) Chunk(document domain.Document) ([]domain.Chunk, error) {
	content := document.Content
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	texts, err := r.splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", document.Path, err)
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	from := 0
	prevEnd := -1
	for i, text := range texts {
		start, end := -1, -1
		if pos := strings.Index(content[from:], text); pos >= 0 {
			b := from + pos
			start = utf8.RuneCountInString(content[:b])
			end = start + utf8.RuneCountInString(text)
			from = b + 1
		}
		ov := 0
		if start >= 0 && prevEnd > start {
			ov = prevEnd - start
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: document.ID,
			Source:     document.Path,
			Text:       text,
			Index:      i,
			Start:      start,
			End:        end,
			Overlap:    ov,
		})
		if end >= 0 {
			prevEnd = end
		}
	}
	return chunks, nil
}
