package conflict

import (
	"context"
	"slices"

	"github.com/thiagokokada/gitstate/internal/git/state"
)

type Decision uint8

const (
	KeepMine Decision = iota + 1
	UseTheirs
	RunMergeTool
	Cancel
)

func (d Decision) String() string {
	switch d {
	case KeepMine:
		return "keep mine"
	case UseTheirs:
		return "use theirs"
	case RunMergeTool:
		return "run merge tool"
	case Cancel:
		return "cancel"
	default:
		return "none"
	}
}

// Prompt describes one pending decision.
type Prompt struct {
	Path    string
	Kind    state.ConflictKind
	Binary  bool
	Options []Decision
}

func (p Prompt) Allows(d Decision) bool {
	return slices.Contains(p.Options, d)
}

// Decider supplies user decisions. Both methods block until an answer is
// available or ctx is done.
type Decider interface {
	Decide(ctx context.Context, p Prompt) (Decision, error)
	// AcceptUnmodified is asked when a merge tool exited without changing
	// the merged file.
	AcceptUnmodified(ctx context.Context, path string) (bool, error)
}

// DeciderFuncs adapts plain functions. A nil AcceptFunc declines.
type DeciderFuncs struct {
	DecideFunc func(ctx context.Context, p Prompt) (Decision, error)
	AcceptFunc func(ctx context.Context, path string) (bool, error)
}

func (f DeciderFuncs) Decide(ctx context.Context, p Prompt) (Decision, error) {
	if f.DecideFunc == nil {
		return 0, ErrNoDecider
	}
	return f.DecideFunc(ctx, p)
}

func (f DeciderFuncs) AcceptUnmodified(ctx context.Context, path string) (bool, error) {
	if f.AcceptFunc == nil {
		return false, nil
	}
	return f.AcceptFunc(ctx, path)
}

// Fixed always answers d and accepts unmodified results when accept is true.
func Fixed(d Decision, accept bool) Decider {
	return DeciderFuncs{
		DecideFunc: func(context.Context, Prompt) (Decision, error) { return d, nil },
		AcceptFunc: func(context.Context, string) (bool, error) { return accept, nil },
	}
}

// Question is one request delivered by a ChannelDecider. Exactly one Reply
// must be sent for it.
type Question struct {
	Prompt Prompt
	// Unmodified marks an accept-unmodified confirmation; only Answer.Accept
	// is read for it.
	Unmodified bool
	reply      chan Answer
}

type Answer struct {
	Decision Decision
	Accept   bool
	Err      error
}

// Reply never blocks.
func (q Question) Reply(a Answer) {
	select {
	case q.reply <- a:
	default:
	}
}

// ChannelDecider hands questions to another goroutine, typically a UI loop,
// and blocks until it replies.
type ChannelDecider struct {
	questions chan Question
}

func NewChannelDecider() *ChannelDecider {
	return &ChannelDecider{questions: make(chan Question)}
}

func (c *ChannelDecider) Questions() <-chan Question {
	return c.questions
}

func (c *ChannelDecider) ask(ctx context.Context, q Question) (Answer, error) {
	q.reply = make(chan Answer, 1)
	select {
	case c.questions <- q:
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	}
	select {
	case a := <-q.reply:
		return a, a.Err
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	}
}

func (c *ChannelDecider) Decide(ctx context.Context, p Prompt) (Decision, error) {
	a, err := c.ask(ctx, Question{Prompt: p})
	return a.Decision, err
}

func (c *ChannelDecider) AcceptUnmodified(ctx context.Context, path string) (bool, error) {
	a, err := c.ask(ctx, Question{Prompt: Prompt{Path: path}, Unmodified: true})
	return a.Accept, err
}

var (
	_ Decider = DeciderFuncs{}
	_ Decider = (*ChannelDecider)(nil)
)
