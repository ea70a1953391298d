package stopflow

import (
	"context"
	"fmt"
)

// DraftKey namespaces a draft by the user building it and the target route,
// so two routes edited on the same account never share state.
type DraftKey struct {
	UserID  uint
	RouteID uint
}

const (
	stageIdentity = "identity"
	stageSchedule = "schedule"
	stagePhotos   = "photos"
	stageProgress = "progress"
)

func (k DraftKey) stage(name string) string {
	return fmt.Sprintf("%s%s", k.Prefix(), name)
}

// Prefix is the common prefix of every entry stored for this draft.
func (k DraftKey) Prefix() string {
	return fmt.Sprintf("draft/%d/%d/", k.UserID, k.RouteID)
}

// pendingSubmission fails with ErrSubmissionPending while a partly written
// submission is checkpointed for key. Its stop already carries stages 1 and 2,
// so editing them now would never reach the remote.
func pendingSubmission(ctx context.Context, drafts DraftStore, key DraftKey) error {
	var p progress
	ok, err := drafts.Get(ctx, key.stage(stageProgress), &p)
	if err != nil {
		return fmt.Errorf("load submission progress: %w", err)
	}
	if ok && p.StopID != 0 {
		return fmt.Errorf("%w (stop %d)", ErrSubmissionPending, p.StopID)
	}
	return nil
}
