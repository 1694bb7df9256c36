package outline

import "courseline/internal/apierr"

// Command is the closed set of state transitions accepted by the store.
// Every variant is applied by a single exhaustive switch in apply; the
// unexported marker keeps the union sealed to this package's variants.
type Command interface {
	isCommand()
}

// OutlineFetched replaces the whole outline from a freshly fetched
// document. Applying it twice with the same payload is idempotent.
type OutlineFetched struct {
	Doc OutlineDocument
}

// SectionsUpdated replaces each top-level section whose id is a key in
// Sections; other sections are untouched. Supports partial refresh
// after mutations that may touch sibling sections.
type SectionsUpdated struct {
	Sections map[string]Item
}

// SectionsReplaced swaps the whole sections list, used by the drag
// reconciler to commit or roll back a visual arrangement.
type SectionsReplaced struct {
	Sections []Item
}

// SectionAdded appends a section to the end of the top-level list.
type SectionAdded struct {
	Item Item
}

// SubsectionAdded appends a subsection to its parent section,
// de-duplicating by id to tolerate duplicate dispatches.
type SubsectionAdded struct {
	ParentLocator string
	Item          Item
}

// SectionDeleted removes the section with the given id, if present.
type SectionDeleted struct {
	ItemID string
}

// SubsectionDeleted removes one subsection addressed by its full path.
type SubsectionDeleted struct {
	SectionID string
	ItemID    string
}

// UnitDeleted removes one unit addressed by its full path.
type UnitDeleted struct {
	SectionID    string
	SubsectionID string
	ItemID       string
}

// SectionDuplicated inserts Item immediately after the section AfterID.
type SectionDuplicated struct {
	AfterID string
	Item    Item
}

// SectionsReordered re-sorts the top-level list to match OrderedIDs.
// Ids absent from OrderedIDs keep their relative order at the end.
type SectionsReordered struct {
	OrderedIDs []string
}

// SubsectionsReordered re-sorts one section's children the same way.
type SubsectionsReordered struct {
	SectionID  string
	OrderedIDs []string
}

// UnitsReordered re-sorts one subsection's children the same way.
type UnitsReordered struct {
	SectionID    string
	SubsectionID string
	OrderedIDs   []string
}

// ScrollFlagsReset clears ShouldScroll recursively on every item.
type ScrollFlagsReset struct{}

// ChannelStatusChanged moves one request channel to a new status,
// optionally attaching a normalized error.
type ChannelStatusChanged struct {
	Channel Channel
	Status  RequestStatus
	Err     *apierr.Details
}

// ErrorDismissed clears the error on one channel without touching its
// status.
type ErrorDismissed struct {
	Channel Channel
}

// CourseActionsUpdated merges course-level capability flags.
type CourseActionsUpdated struct {
	Actions Actions
}

// ChecklistUpdated merges launch/best-practice counters into the
// status bar.
type ChecklistUpdated struct {
	Checklist Checklist
}

// SelfPacedUpdated records the course pacing flag.
type SelfPacedUpdated struct {
	SelfPaced bool
}

// HighlightsEmailsEnabled records that highlight emails were turned on
// for the course.
type HighlightsEmailsEnabled struct {
	Enabled bool
}

// PasteNoticesAdded records the static-file notices of one paste under
// a notice id so several pending notices can be dismissed
// independently.
type PasteNoticesAdded struct {
	ID      string
	Notices FileNotices
}

// PasteNoticesRemoved dismisses the notices with the given ids.
type PasteNoticesRemoved struct {
	IDs []string
}

// ClipboardUpdated records the current clipboard content, whether the
// copy happened locally or arrived from another process via broadcast.
type ClipboardUpdated struct {
	Content ClipboardContent
}

func (OutlineFetched) isCommand()          {}
func (SectionsUpdated) isCommand()         {}
func (SectionsReplaced) isCommand()        {}
func (SectionAdded) isCommand()            {}
func (SubsectionAdded) isCommand()         {}
func (SectionDeleted) isCommand()          {}
func (SubsectionDeleted) isCommand()       {}
func (UnitDeleted) isCommand()             {}
func (SectionDuplicated) isCommand()       {}
func (SectionsReordered) isCommand()       {}
func (SubsectionsReordered) isCommand()    {}
func (UnitsReordered) isCommand()          {}
func (ScrollFlagsReset) isCommand()        {}
func (ChannelStatusChanged) isCommand()    {}
func (ErrorDismissed) isCommand()          {}
func (CourseActionsUpdated) isCommand()    {}
func (ChecklistUpdated) isCommand()        {}
func (SelfPacedUpdated) isCommand()        {}
func (HighlightsEmailsEnabled) isCommand() {}
func (PasteNoticesAdded) isCommand()       {}
func (PasteNoticesRemoved) isCommand()     {}
func (ClipboardUpdated) isCommand()        {}
