// Package summarizer builds the short extractive summary printed after a
// document is ingested.
package summarizer

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strings"
)

const defaultSentences = 5

var (
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// FrequencySummarizer keeps the sentences whose words recur most often in
// the document.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: stopwords}
}

// Summarize returns at most maxSentences sentences, in document order. A
// non-positive maxSentences means 5. Text without sentence punctuation is
// returned trimmed.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = defaultSentences
	}
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	words := make([][]string, len(sentences))
	for i, sentence := range sentences {
		words[i] = tokens(sentence)
	}
	weight := s.weights(words)

	scores := make([]float64, len(sentences))
	order := make([]int, len(sentences))
	for i, ws := range words {
		scores[i] = score(ws, weight)
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(scores[b], scores[a]) })

	picked := order[:min(maxSentences, len(order))]
	slices.Sort(picked)
	parts := make([]string, len(picked))
	for i, idx := range picked {
		parts[i] = strings.TrimSpace(sentences[idx])
	}
	return strings.Join(parts, " "), nil
}

// weights counts every non-stopword and scales the counts into (0, 1].
func (s *FrequencySummarizer) weights(words [][]string) map[string]float64 {
	weight := make(map[string]float64)
	top := 0.0
	for _, ws := range words {
		for _, w := range ws {
			if _, skip := s.stopwords[w]; skip {
				continue
			}
			weight[w]++
			top = max(top, weight[w])
		}
	}
	for w, n := range weight {
		weight[w] = n / top
	}
	return weight
}

// score damps long sentences by the square root of their word count.
func score(words []string, weight map[string]float64) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += weight[w]
	}
	return sum / math.Sqrt(float64(len(words)))
}

func tokens(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

var stopwords = func() map[string]struct{} {
	list := strings.Fields(`
		a an the and or but if then else for to of in on at by with as
		is are was were be been being it this that these those from
		up down over under again further than so such into about between
		through during before after above below out off own same too very
		can will just don should now`)
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		set[w] = struct{}{}
	}
	return set
}()
