package outline

import "courseline/internal/apierr"

// Status is the derived badge status of an outline item.
type Status string

const (
	StatusStaffOnly          Status = "staff_only"
	StatusGated              Status = "gated"
	StatusLive               Status = "live"
	StatusUnscheduled        Status = "unscheduled"
	StatusPublishedNotLive   Status = "published_not_live"
	StatusUnpublishedChanges Status = "unpublished_changes"
	StatusDraft              Status = "draft"
)

// DeriveStatus computes the badge status of an item. Visibility wins
// over publish state; the precedence order is fixed.
func DeriveStatus(it Item) Status {
	switch {
	case it.VisibilityState == VisibilityStaffOnly:
		return StatusStaffOnly
	case it.VisibilityState == VisibilityGated:
		return StatusGated
	case it.VisibilityState == VisibilityLive:
		return StatusLive
	case it.VisibilityState == VisibilityUnscheduled:
		return StatusUnscheduled
	case it.Published && !it.HasChanges:
		return StatusPublishedNotLive
	case it.Published && it.HasChanges:
		return StatusUnpublishedChanges
	default:
		return StatusDraft
	}
}

// IsPublishable reports whether a publish call for the item would do
// anything. Publishing a live or published item without pending changes
// is a redundant call and therefore disallowed.
func IsPublishable(it Item) bool {
	s := DeriveStatus(it)
	if (s == StatusLive || s == StatusPublishedNotLive) && !it.HasChanges {
		return false
	}
	return true
}

// RequestStatus tracks the lifecycle of one logical request channel.
type RequestStatus string

const (
	RequestIdle       RequestStatus = ""
	RequestInProgress RequestStatus = "in-progress"
	RequestSuccessful RequestStatus = "successful"
	RequestFailed     RequestStatus = "failed"
	RequestDenied     RequestStatus = "denied"
)

// Channel names one logical request channel. Channels own their status
// and error independently; they never leak state into one another.
type Channel string

const (
	ChannelOutlineIndex Channel = "outline-index"
	ChannelReindex      Channel = "reindex"
	ChannelSectionLoad  Channel = "section-load"
	ChannelCourseLaunch Channel = "course-launch"
	ChannelSaving       Channel = "saving"
)

// ChannelState is the current status plus the normalized error, if any,
// of one channel.
type ChannelState struct {
	Status RequestStatus
	Err    *apierr.Details
}
