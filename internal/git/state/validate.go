package state

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistentBranches reports a branch listing that violates the
// single-active-branch invariant. Callers must treat it as fatal.
var ErrInconsistentBranches = errors.New("inconsistent branch state")

// ValidateBranches checks that exactly one branch is active and that the
// active branch is either local or the detached HEAD entry.
func ValidateBranches(branches []BranchRef) error {
	var active []string
	for _, b := range branches {
		if !b.IsActive {
			continue
		}
		if b.IsRemote && !b.IsHeadDetached {
			return fmt.Errorf("%w: remote branch %q marked active", ErrInconsistentBranches, b.FullName)
		}
		active = append(active, b.FullName)
	}
	switch len(active) {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: no active branch", ErrInconsistentBranches)
	default:
		return fmt.Errorf("%w: %d active branches (%s)", ErrInconsistentBranches, len(active), strings.Join(active, ", "))
	}
}
