package outline

// Category discriminates the three nesting levels of the course tree.
type Category string

const (
	CategoryChapter    Category = "chapter"    // section
	CategorySequential Category = "sequential" // subsection
	CategoryVertical   Category = "vertical"   // unit
)

// ChildCategory returns the category one nesting level below c.
func (c Category) ChildCategory() Category {
	switch c {
	case CategoryChapter:
		return CategorySequential
	case CategorySequential:
		return CategoryVertical
	default:
		return ""
	}
}

// Visibility is the scheduling/visibility state reported by the backend.
type Visibility string

const (
	VisibilityStaffOnly   Visibility = "staff_only"
	VisibilityGated       Visibility = "gated"
	VisibilityLive        Visibility = "live"
	VisibilityUnscheduled Visibility = "unscheduled"
	VisibilityDefault     Visibility = ""
)

// Actions are the capability flags granted by the backend per item.
// Operations must respect them regardless of what the caller offers.
type Actions struct {
	Deletable     bool `json:"deletable"`
	Draggable     bool `json:"draggable"`
	ChildAddable  bool `json:"childAddable"`
	Duplicable    bool `json:"duplicable"`
	AllowMoveUp   bool `json:"allowMoveUp"`
	AllowMoveDown bool `json:"allowMoveDown"`
}

// Item is one node of the outline tree: a section, subsection or unit,
// discriminated by Category. Children is ordered and the order is
// semantically significant.
type Item struct {
	ID              string     `json:"id"`
	DisplayName     string     `json:"displayName"`
	Category        Category   `json:"category"`
	Published       bool       `json:"published"`
	HasChanges      bool       `json:"hasChanges"`
	VisibilityState Visibility `json:"visibilityState"`
	Highlights      []string   `json:"highlights,omitempty"`
	Actions         Actions    `json:"actions"`
	Children        []Item     `json:"children,omitempty"`

	// ShouldScroll is a transient view hint, never persisted remotely.
	ShouldScroll bool `json:"shouldScroll,omitempty"`
}

// Clone deep-copies the item and its subtree.
func (it Item) Clone() Item {
	out := it
	if it.Highlights != nil {
		out.Highlights = append([]string(nil), it.Highlights...)
	}
	out.Children = CloneItems(it.Children)
	return out
}

// CloneItems deep-copies a sibling list.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// FileNotices reports static-asset side effects of a paste operation.
type FileNotices struct {
	NewFiles         []string `json:"newFiles,omitempty"`
	ConflictingFiles []string `json:"conflictingFiles,omitempty"`
	ErrorFiles       []string `json:"errorFiles,omitempty"`
}

// Empty reports whether the notice carries nothing worth showing.
func (n FileNotices) Empty() bool {
	return len(n.NewFiles) == 0 && len(n.ConflictingFiles) == 0 && len(n.ErrorFiles) == 0
}

// ClipboardContent describes what the user last copied, shared across
// processes through the clipboard broadcaster.
type ClipboardContent struct {
	SourceUsageKey   string   `json:"sourceUsageKey"`
	Category         Category `json:"category"`
	DisplayName      string   `json:"displayName"`
	SourceCourseID   string   `json:"sourceCourseId,omitempty"`
	SourceEditURL    string   `json:"sourceEditUrl,omitempty"`
	ContentTimestamp string   `json:"contentTimestamp,omitempty"`
}

// Checklist carries launch/best-practice readiness counters for the
// status bar.
type Checklist struct {
	TotalCourseLaunchChecks            int `json:"totalCourseLaunchChecks"`
	CompletedCourseLaunchChecks        int `json:"completedCourseLaunchChecks"`
	TotalCourseBestPracticesChecks     int `json:"totalCourseBestPracticesChecks"`
	CompletedCourseBestPracticesChecks int `json:"completedCourseBestPracticesChecks"`
}

// StatusBar aggregates course-level display data refreshed alongside
// the outline.
type StatusBar struct {
	ReleaseDate                   string    `json:"releaseDate"`
	HighlightsEnabledForMessaging bool      `json:"highlightsEnabledForMessaging"`
	SelfPaced                     bool      `json:"selfPaced"`
	Checklist                     Checklist `json:"checklist"`
}

// OutlineDocument is the full outline payload returned by the backend
// index endpoint.
type OutlineDocument struct {
	CourseID                      string  `json:"courseId"`
	CourseDisplayName             string  `json:"courseDisplayName"`
	CreatedOn                     string  `json:"createdOn,omitempty"`
	ReleaseDate                   string  `json:"releaseDate,omitempty"`
	Sections                      []Item  `json:"sections"`
	CourseActions                 Actions `json:"actions"`
	CustomRelativeDatesActive     bool    `json:"customRelativeDatesActive"`
	ProctoredExamsEnabled         bool    `json:"proctoredExamsEnabled"`
	HighlightsEnabledForMessaging bool    `json:"highlightsEnabledForMessaging"`
	SelfPaced                     bool    `json:"selfPaced"`
}
