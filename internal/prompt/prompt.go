// Package prompt asks conflict resolution questions on the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/mattn/go-isatty"

	"github.com/thiagokokada/gitstate/internal/git/conflict"
	"github.com/thiagokokada/gitstate/internal/git/state"
)

var ErrNotTerminal = errors.New("interactive prompts need a terminal")

type askFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

// Decider implements conflict.Decider with survey prompts.
type Decider struct {
	ask askFunc
}

// IsTerminal reports whether stdin and stdout are both terminals.
func IsTerminal() bool {
	tty := func(f *os.File) bool {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return tty(os.Stdin) && tty(os.Stdout)
}

// New returns a terminal decider, or ErrNotTerminal when not attached to one.
func New() (*Decider, error) {
	if !IsTerminal() {
		return nil, ErrNotTerminal
	}
	return &Decider{ask: survey.AskOne}, nil
}

func label(d conflict.Decision, p conflict.Prompt) string {
	switch d {
	case conflict.KeepMine:
		if !p.Kind.HasOurs() {
			return "Keep mine (delete the file)"
		}
		return "Keep mine"
	case conflict.UseTheirs:
		if !p.Kind.HasTheirs() {
			return "Use theirs (delete the file)"
		}
		return "Use theirs"
	case conflict.RunMergeTool:
		return "Run merge tool"
	case conflict.Cancel:
		return "Cancel"
	}
	return d.String()
}

func message(p conflict.Prompt) string {
	what := "conflict"
	if p.Binary {
		what = "binary conflict"
	}
	switch p.Kind {
	case state.ConflictChanges, state.ConflictNone:
		return fmt.Sprintf("%s: %s", p.Path, what)
	default:
		return fmt.Sprintf("%s: %s (%s)", p.Path, what, p.Kind)
	}
}

// Decide shows the offered options. Interrupting the prompt answers Cancel.
func (d *Decider) Decide(ctx context.Context, p conflict.Prompt) (conflict.Decision, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	labels := make([]string, 0, len(p.Options))
	byLabel := make(map[string]conflict.Decision, len(p.Options))
	for _, opt := range p.Options {
		l := label(opt, p)
		labels = append(labels, l)
		byLabel[l] = opt
	}
	var answer string
	err := d.ask(&survey.Select{Message: message(p), Options: labels}, &answer)
	if errors.Is(err, terminal.InterruptErr) {
		return conflict.Cancel, nil
	}
	if err != nil {
		return 0, err
	}
	choice, ok := byLabel[answer]
	if !ok {
		return 0, fmt.Errorf("%w: %q", conflict.ErrInvalidDecision, answer)
	}
	return choice, nil
}

func (d *Decider) AcceptUnmodified(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var ok bool
	err := d.ask(&survey.Confirm{
		Message: fmt.Sprintf("%s was not changed by the merge tool. Stage it anyway?", path),
	}, &ok)
	if errors.Is(err, terminal.InterruptErr) {
		return false, nil
	}
	return ok, err
}

var _ conflict.Decider = (*Decider)(nil)
