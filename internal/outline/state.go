package outline

import (
	"sort"
	"sync"
)

// State is the normalized outline tree plus per-channel request status.
// It is only mutated through Apply on a Store.
type State struct {
	CourseID                  string
	CourseDisplayName         string
	CreatedOn                 string
	Sections                  []Item
	CourseActions             Actions
	CustomRelativeDatesActive bool
	ProctoredExamsEnabled     bool
	StatusBar                 StatusBar
	Channels                  map[Channel]ChannelState
	PasteFileNotices          map[string]FileNotices
	Clipboard                 ClipboardContent
}

// Store is the single shared holder of outline state. All writes go
// through Apply; commands are applied in call order.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore returns a store with an empty tree and idle channels.
func NewStore() *Store {
	return &Store{
		state: State{
			Channels:         map[Channel]ChannelState{},
			PasteFileNotices: map[string]FileNotices{},
		},
	}
}

// Apply runs one command against the state. Commands referencing
// non-existent parents are no-ops: remote and local state can
// transiently diverge and a stale command must not crash the client.
func (s *Store) Apply(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.apply(cmd)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Sections returns a deep copy of the top-level section list.
func (s *Store) Sections() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneItems(s.state.Sections)
}

// Channel returns the current state of one request channel.
func (s *Store) Channel(ch Channel) ChannelState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Channels[ch]
}

// Section returns a deep copy of the section with the given id.
func (s *Store) Section(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.state.Sections {
		if s.state.Sections[i].ID == id {
			return s.state.Sections[i].Clone(), true
		}
	}
	return Item{}, false
}

// PublishableItemIDs walks the whole tree and collects the ids of items
// for which a publish call would not be redundant, in display order.
func (s *Store) PublishableItemIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	var walk func(items []Item)
	walk = func(items []Item) {
		for i := range items {
			if IsPublishable(items[i]) {
				ids = append(ids, items[i].ID)
			}
			walk(items[i].Children)
		}
	}
	walk(s.state.Sections)
	return ids
}

func (st State) clone() State {
	out := st
	out.Sections = CloneItems(st.Sections)
	out.Channels = make(map[Channel]ChannelState, len(st.Channels))
	for k, v := range st.Channels {
		out.Channels[k] = v
	}
	out.PasteFileNotices = make(map[string]FileNotices, len(st.PasteFileNotices))
	for k, v := range st.PasteFileNotices {
		out.PasteFileNotices[k] = v
	}
	return out
}

func (st *State) apply(cmd Command) {
	switch c := cmd.(type) {
	case OutlineFetched:
		st.CourseID = c.Doc.CourseID
		st.CourseDisplayName = c.Doc.CourseDisplayName
		st.CreatedOn = c.Doc.CreatedOn
		st.Sections = CloneItems(c.Doc.Sections)
		st.CourseActions = c.Doc.CourseActions
		st.CustomRelativeDatesActive = c.Doc.CustomRelativeDatesActive
		st.ProctoredExamsEnabled = c.Doc.ProctoredExamsEnabled
		st.StatusBar.ReleaseDate = c.Doc.ReleaseDate
		st.StatusBar.HighlightsEnabledForMessaging = c.Doc.HighlightsEnabledForMessaging
		st.StatusBar.SelfPaced = c.Doc.SelfPaced

	case SectionsUpdated:
		for i := range st.Sections {
			if repl, ok := c.Sections[st.Sections[i].ID]; ok {
				st.Sections[i] = repl.Clone()
			}
		}

	case SectionsReplaced:
		st.Sections = CloneItems(c.Sections)

	case SectionAdded:
		st.Sections = append(st.Sections, c.Item.Clone())

	case SubsectionAdded:
		for i := range st.Sections {
			if st.Sections[i].ID != c.ParentLocator {
				continue
			}
			kept := st.Sections[i].Children[:0:0]
			for _, child := range st.Sections[i].Children {
				if child.ID != c.Item.ID {
					kept = append(kept, child)
				}
			}
			st.Sections[i].Children = append(kept, c.Item.Clone())
		}

	case SectionDeleted:
		st.Sections = deleteByID(st.Sections, c.ItemID)

	case SubsectionDeleted:
		for i := range st.Sections {
			if st.Sections[i].ID == c.SectionID {
				st.Sections[i].Children = deleteByID(st.Sections[i].Children, c.ItemID)
			}
		}

	case UnitDeleted:
		for i := range st.Sections {
			if st.Sections[i].ID != c.SectionID {
				continue
			}
			for j := range st.Sections[i].Children {
				if st.Sections[i].Children[j].ID == c.SubsectionID {
					st.Sections[i].Children[j].Children = deleteByID(st.Sections[i].Children[j].Children, c.ItemID)
				}
			}
		}

	case SectionDuplicated:
		out := make([]Item, 0, len(st.Sections)+1)
		for _, sec := range st.Sections {
			out = append(out, sec)
			if sec.ID == c.AfterID {
				out = append(out, c.Item.Clone())
			}
		}
		st.Sections = out

	case SectionsReordered:
		st.Sections = reorderByIDs(st.Sections, c.OrderedIDs)

	case SubsectionsReordered:
		for i := range st.Sections {
			if st.Sections[i].ID == c.SectionID {
				st.Sections[i].Children = reorderByIDs(st.Sections[i].Children, c.OrderedIDs)
			}
		}

	case UnitsReordered:
		for i := range st.Sections {
			if st.Sections[i].ID != c.SectionID {
				continue
			}
			for j := range st.Sections[i].Children {
				if st.Sections[i].Children[j].ID == c.SubsectionID {
					st.Sections[i].Children[j].Children = reorderByIDs(st.Sections[i].Children[j].Children, c.OrderedIDs)
				}
			}
		}

	case ScrollFlagsReset:
		var clear func(items []Item)
		clear = func(items []Item) {
			for i := range items {
				items[i].ShouldScroll = false
				clear(items[i].Children)
			}
		}
		clear(st.Sections)

	case ChannelStatusChanged:
		st.Channels[c.Channel] = ChannelState{Status: c.Status, Err: c.Err}

	case ErrorDismissed:
		cs := st.Channels[c.Channel]
		cs.Err = nil
		st.Channels[c.Channel] = cs

	case CourseActionsUpdated:
		st.CourseActions = c.Actions

	case ChecklistUpdated:
		st.StatusBar.Checklist = mergeChecklist(st.StatusBar.Checklist, c.Checklist)

	case SelfPacedUpdated:
		st.StatusBar.SelfPaced = c.SelfPaced

	case HighlightsEmailsEnabled:
		st.StatusBar.HighlightsEnabledForMessaging = c.Enabled

	case PasteNoticesAdded:
		if c.ID != "" && !c.Notices.Empty() {
			st.PasteFileNotices[c.ID] = c.Notices
		}

	case PasteNoticesRemoved:
		for _, id := range c.IDs {
			delete(st.PasteFileNotices, id)
		}

	case ClipboardUpdated:
		st.Clipboard = c.Content
	}
}

func deleteByID(items []Item, id string) []Item {
	out := items[:0:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// reorderByIDs stably re-sorts items to match order. Ids missing from
// order keep their relative position at the end of the list; that is
// the documented policy for partial orderings.
func reorderByIDs(items []Item, order []string) []Item {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	out := CloneItems(items)
	sort.SliceStable(out, func(i, j int) bool {
		ri, ok := rank[out[i].ID]
		if !ok {
			ri = len(order)
		}
		rj, ok := rank[out[j].ID]
		if !ok {
			rj = len(order)
		}
		return ri < rj
	})
	return out
}

func mergeChecklist(dst, src Checklist) Checklist {
	if src.TotalCourseLaunchChecks != 0 || src.CompletedCourseLaunchChecks != 0 {
		dst.TotalCourseLaunchChecks = src.TotalCourseLaunchChecks
		dst.CompletedCourseLaunchChecks = src.CompletedCourseLaunchChecks
	}
	if src.TotalCourseBestPracticesChecks != 0 || src.CompletedCourseBestPracticesChecks != 0 {
		dst.TotalCourseBestPracticesChecks = src.TotalCourseBestPracticesChecks
		dst.CompletedCourseBestPracticesChecks = src.CompletedCourseBestPracticesChecks
	}
	return dst
}
