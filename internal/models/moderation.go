package models

// ModerationAction is an admin decision on a topic
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
	ActionResolve ModerationAction = "resolve"
	ActionReopen  ModerationAction = "reopen"
)

// ReopenedStatus is where reopened topics return to
const ReopenedStatus = StatusPending

// RejectCommentPrefix starts the system comment left when rejecting with a reason
const RejectCommentPrefix = "❌ **Тема отклонена.** Причина: "

// Transition returns the status a topic moves to when action is applied,
// or ErrInvalidTransition if the action is not allowed from current.
func Transition(current PostStatus, action ModerationAction) (PostStatus, error) {
	switch action {
	case ActionApprove:
		if current == StatusPending || current == StatusOpen {
			return StatusApproved, nil
		}
	case ActionReject:
		if current == StatusPending || current == StatusOpen {
			return StatusRejected, nil
		}
	case ActionResolve:
		if current.IsValid() && current != StatusResolved && current != StatusRejected {
			return StatusResolved, nil
		}
	case ActionReopen:
		if current == StatusApproved || current == StatusResolved || current == StatusRejected {
			return ReopenedStatus, nil
		}
	}
	return "", ErrInvalidTransition
}

// IsValid reports whether a is a known moderation action
func (a ModerationAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionResolve, ActionReopen:
		return true
	}
	return false
}
