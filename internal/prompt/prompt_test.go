package prompt

import (
	"context"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/gitstate/internal/git/conflict"
	"github.com/thiagokokada/gitstate/internal/git/state"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	var shown *survey.Select
	d := &Decider{ask: func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
		shown = p.(*survey.Select)
		*response.(*string) = "Use theirs (delete the file)"
		return nil
	}}
	got, err := d.Decide(context.Background(), conflict.Prompt{
		Path:    "gone.txt",
		Kind:    state.ConflictDeletedByThem,
		Binary:  true,
		Options: []conflict.Decision{conflict.KeepMine, conflict.UseTheirs, conflict.Cancel},
	})
	require.NoError(t, err)
	assert.Equal(t, conflict.UseTheirs, got)
	assert.Equal(t, "gone.txt: binary conflict (DeletedByThem)", shown.Message)
	assert.Equal(t, []string{"Keep mine", "Use theirs (delete the file)", "Cancel"}, shown.Options)
}

func TestDecide_InterruptCancels(t *testing.T) {
	t.Parallel()

	d := &Decider{ask: func(survey.Prompt, any, ...survey.AskOpt) error { return terminal.InterruptErr }}
	got, err := d.Decide(context.Background(), conflict.Prompt{Path: "a", Options: []conflict.Decision{conflict.KeepMine, conflict.Cancel}})
	require.NoError(t, err)
	assert.Equal(t, conflict.Cancel, got)

	ok, err := d.AcceptUnmodified(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcceptUnmodified(t *testing.T) {
	t.Parallel()

	d := &Decider{ask: func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
		assert.Contains(t, p.(*survey.Confirm).Message, "a.txt")
		*response.(*bool) = true
		return nil
	}}
	ok, err := d.AcceptUnmodified(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}
