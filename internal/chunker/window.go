package chunker

import (
	"fmt"
	"unicode"

	"github.com/google/uuid"

	"ragchat/internal/domain"
)

// Boundaries tried inside a window, most preferred first. A cut lands right
// after the separator.
var boundaries = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
}

// Split cuts text into windows of at most maxSize runes. Consecutive windows
// share exactly overlap runes, so dropping the first overlap runes of every
// window after the first and concatenating gives text back.
func Split(text string, maxSize, overlap int) ([]string, error) {
	runes := []rune(text)
	spans, err := spans(runes, maxSize, overlap)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, string(runes[s[0]:s[1]]))
	}
	return out, nil
}

func validate(maxSize, overlap int) error {
	if overlap < 0 || maxSize <= overlap {
		return fmt.Errorf("%w: chunk size %d must exceed overlap %d >= 0", domain.ErrConfiguration, maxSize, overlap)
	}
	return nil
}

// spans returns [start, end) rune ranges.
func spans(runes []rune, maxSize, overlap int) ([][2]int, error) {
	if err := validate(maxSize, overlap); err != nil {
		return nil, err
	}
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	var out [][2]int
	start := 0
	for {
		if n-start <= maxSize {
			out = append(out, [2]int{start, n})
			return out, nil
		}
		end := start + maxSize
		// The lower bound keeps every window moving forward past the overlap
		// and at least half full.
		lo := max(start+overlap+1, start+maxSize/2)
		cut := findCut(runes, lo, end)
		out = append(out, [2]int{start, cut})
		start = cut - overlap
	}
}

// findCut picks a cut position in [lo, hi].
func findCut(runes []rune, lo, hi int) int {
	for _, sep := range boundaries {
		if p := lastBoundary(runes, sep, lo, hi); p >= 0 {
			return p
		}
	}
	for p := hi; p >= lo; p-- {
		if unicode.IsSpace(runes[p-1]) {
			return p
		}
	}
	return hi
}

// lastBoundary returns the largest position p in [lo, hi] that directly
// follows an occurrence of sep, or -1.
func lastBoundary(runes []rune, sep []rune, lo, hi int) int {
	for p := hi; p >= lo; p-- {
		i := p - len(sep)
		if i < 0 {
			break
		}
		if hasPrefixAt(runes, sep, i) {
			return p
		}
	}
	return -1
}

func hasPrefixAt(runes, sep []rune, i int) bool {
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}

// Window is the default chunker: fixed-size rune windows with a fixed
// overlap, cut at natural boundaries where possible.
type Window struct {
	maxSize int
	overlap int
}

func NewWindow(maxSize, overlap int) (*Window, error) {
	if err := validate(maxSize, overlap); err != nil {
		return nil, err
	}
	return &Window{maxSize: maxSize, overlap: overlap}, nil
}

func (w *Window) Chunk(document domain.Document) ([]domain.Chunk, error) {
	runes := []rune(document.Content)
	ranges, err := spans(runes, w.maxSize, w.overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(ranges))
	for i, r := range ranges {
		ov := 0
		if i > 0 {
			ov = w.overlap
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: document.ID,
			Source:     document.Path,
			Text:       string(runes[r[0]:r[1]]),
			Index:      i,
			Start:      r[0],
			End:        r[1],
			Overlap:    ov,
		})
	}
	return chunks, nil
}
