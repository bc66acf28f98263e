package llm

import (
	"errors"
	"iter"
	"strings"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when a reply stream is ranged over a second time.
var ErrStreamConsumed = errors.New("reply stream already consumed")

// Once makes seq single-use: a second range yields ErrStreamConsumed and stops.
func Once(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}

// Single is a stream with exactly one fragment.
func Single(text string) iter.Seq2[string, error] {
	return Once(func(yield func(string, error) bool) {
		yield(text, nil)
	})
}

// Fail is a stream that yields err and ends.
func Fail(err error) iter.Seq2[string, error] {
	return Once(func(yield func(string, error) bool) {
		yield("", err)
	})
}

// Collect drains seq and joins its fragments.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for fragment, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(fragment)
	}
	return b.String(), nil
}
