package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"ragchat/internal/domain"
)

// SentenceChunker groups whole sentences into chunks, repeating the last
// overlapSentences sentences of a chunk at the start of the next one.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

// sentence is a trimmed sentence as a byte range of the content.
type sentence struct{ start, end int }

func (c *SentenceChunker) sentences(content string) []sentence {
	var out []sentence
	add := func(start, end int) {
		s := content[start:end]
		trimmedLeft := strings.TrimLeftFunc(s, unicode.IsSpace)
		start += len(s) - len(trimmedLeft)
		end = start + len(strings.TrimRightFunc(trimmedLeft, unicode.IsSpace))
		if end > start {
			out = append(out, sentence{start, end})
		}
	}
	last := 0
	for _, m := range c.splitter.FindAllStringIndex(content, -1) {
		add(m[0], m[1])
		last = m[1]
	}
	// Trailing text without terminal punctuation is a sentence too.
	if last < len(content) {
		add(last, len(content))
	}
	return out
}

func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	content := document.Content
	sentences := c.sentences(content)
	if len(sentences) == 0 {
		return nil, nil
	}

	runeOffset := func(b int) int { return utf8.RuneCountInString(content[:b]) }

	var chunks []domain.Chunk
	prevEnd := 0
	i := 0
	idx := 0
	for i < len(sentences) {
		end := i + c.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		startByte, endByte := sentences[i].start, sentences[end-1].end
		start, stop := runeOffset(startByte), runeOffset(endByte)
		ov := 0
		if idx > 0 && prevEnd > start {
			ov = prevEnd - start
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: document.ID,
			Source:     document.Path,
			Text:       content[startByte:endByte],
			Index:      idx,
			Start:      start,
			End:        stop,
			Overlap:    ov,
		})
		if end == len(sentences) {
			break
		}
		prevEnd = stop
		i = end - c.overlapSentences
		idx++
	}
	return chunks, nil
}
