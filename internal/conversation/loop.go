// Package conversation runs the read-respond loop shared by both chat
// commands.
package conversation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/go-logr/logr"

	"ragchat/internal/domain"
)

// State of a Loop.
type State int

const (
	AwaitingInput State = iota
	Processing
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting-input"
	case Processing:
		return "processing"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ExitCommand ends a conversation.
const ExitCommand = "exit"

// IsExit reports whether line is the exit command, ignoring case and
// surrounding whitespace.
func IsExit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), ExitCommand)
}

// Responder turns one user input into a reply stream. The stream is lazy
// and can be ranged over once.
type Responder interface {
	Respond(ctx context.Context, input string) iter.Seq2[string, error]
}

type Loop struct {
	responder Responder
	in        *bufio.Scanner
	render    *Renderer
	log       logr.Logger
	state     State
}

func NewLoop(responder Responder, in io.Reader, render *Renderer, log logr.Logger) *Loop {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Loop{responder: responder, in: sc, render: render, log: log}
}

func (l *Loop) State() State { return l.state }

// Run reads lines until exit or end of input. The first responder error
// stops the loop and is returned.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.state = AwaitingInput
		if err := ctx.Err(); err != nil {
			l.state = Terminated
			return err
		}
		l.render.UserPrompt()
		if !l.in.Scan() {
			l.state = Terminated
			if err := l.in.Err(); err != nil {
				return fmt.Errorf("%w: read input: %w", domain.ErrIO, err)
			}
			l.render.Fragment("\n")
			l.render.Goodbye()
			return nil
		}
		line := l.in.Text()
		if IsExit(line) {
			l.state = Terminated
			l.render.Goodbye()
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		l.state = Processing
		if err := l.turn(ctx, line); err != nil {
			l.state = Terminated
			return err
		}
	}
}

func (l *Loop) turn(ctx context.Context, input string) error {
	started := false
	for fragment, err := range l.responder.Respond(ctx, input) {
		if err != nil {
			if started {
				l.render.ReplyEnd()
			}
			return err
		}
		if !started {
			l.render.ReplyStart()
			started = true
		}
		l.render.Fragment(fragment)
	}
	if !started {
		l.render.ReplyStart()
	}
	l.render.ReplyEnd()
	l.log.V(2).Info("turn complete")
	return nil
}
