package model

// ViolationReason is the free-text category a client-side detector attaches
// to a violation. Any string is accepted; the constants below are the
// recommended tags.
type ViolationReason string

const (
	ViolationFullscreenExit    ViolationReason = "fullscreen_exit"
	ViolationTabChange         ViolationReason = "tab_change"
	ViolationForbiddenShortcut ViolationReason = "forbidden_shortcut"
	ViolationRightClick        ViolationReason = "right_click"
	ViolationCopy              ViolationReason = "copy"
	ViolationPaste             ViolationReason = "paste"
	ViolationLeaveAttempt      ViolationReason = "leave_attempt"

	// ViolationUnknown replaces an empty reason.
	ViolationUnknown ViolationReason = "Unknown"
)

var knownViolations = map[ViolationReason]struct{}{
	ViolationFullscreenExit:    {},
	ViolationTabChange:         {},
	ViolationForbiddenShortcut: {},
	ViolationRightClick:        {},
	ViolationCopy:              {},
	ViolationPaste:             {},
	ViolationLeaveAttempt:      {},
}

// IsKnown reports whether r is one of the recommended tags.
func (r ViolationReason) IsKnown() bool {
	_, ok := knownViolations[r]
	return ok
}
