package outline

import (
	"reflect"
	"testing"

	"courseline/internal/apierr"
)

func section(id string, children ...Item) Item {
	return Item{ID: id, DisplayName: "Section " + id, Category: CategoryChapter, Children: children}
}

func subsection(id string, children ...Item) Item {
	return Item{ID: id, DisplayName: "Subsection " + id, Category: CategorySequential, Children: children}
}

func unit(id string) Item {
	return Item{ID: id, DisplayName: "Unit " + id, Category: CategoryVertical}
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

func seedStore() *Store {
	s := NewStore()
	s.Apply(OutlineFetched{Doc: OutlineDocument{
		CourseID:          "course-v1:acme+101+2026",
		CourseDisplayName: "Intro",
		Sections: []Item{
			section("s1", subsection("s1.1", unit("u1"), unit("u2")), subsection("s1.2")),
			section("s2", subsection("s2.1")),
			section("s3"),
		},
	}})
	return s
}

func TestOutlineFetchedIdempotent(t *testing.T) {
	doc := OutlineDocument{
		CourseID:  "course-v1:acme+101+2026",
		Sections:  []Item{section("a"), section("b")},
		SelfPaced: true,
	}
	s := NewStore()
	s.Apply(OutlineFetched{Doc: doc})
	first := s.Snapshot()
	s.Apply(OutlineFetched{Doc: doc})
	second := s.Snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("refetching the same document changed the state:\n%+v\n%+v", first, second)
	}
	if !second.StatusBar.SelfPaced {
		t.Fatalf("self paced flag not carried into status bar")
	}
}

func TestSectionsUpdatedReplacesOnlyNamed(t *testing.T) {
	s := seedStore()
	repl := section("s2")
	repl.DisplayName = "renamed"
	s.Apply(SectionsUpdated{Sections: map[string]Item{"s2": repl, "missing": section("missing")}})
	secs := s.Sections()
	if got := ids(secs); !reflect.DeepEqual(got, []string{"s1", "s2", "s3"}) {
		t.Fatalf("section order changed: %v", got)
	}
	if secs[1].DisplayName != "renamed" {
		t.Fatalf("s2 not replaced: %q", secs[1].DisplayName)
	}
	if secs[0].DisplayName == "renamed" || secs[2].DisplayName == "renamed" {
		t.Fatalf("unrelated sections were touched")
	}
}

func TestSubsectionAddedDeduplicatesByID(t *testing.T) {
	s := seedStore()
	s.Apply(SubsectionAdded{ParentLocator: "s2", Item: subsection("s2.2")})
	s.Apply(SubsectionAdded{ParentLocator: "s2", Item: subsection("s2.2")})
	sec, ok := s.Section("s2")
	if !ok {
		t.Fatalf("section s2 missing")
	}
	if got := ids(sec.Children); !reflect.DeepEqual(got, []string{"s2.1", "s2.2"}) {
		t.Fatalf("duplicate add not collapsed: %v", got)
	}
}

func TestSubsectionAddedUnknownParentIsNoop(t *testing.T) {
	s := seedStore()
	before := s.Snapshot()
	s.Apply(SubsectionAdded{ParentLocator: "nope", Item: subsection("orphan")})
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatalf("adding under a missing parent mutated the tree")
	}
}

func TestDeleteByPath(t *testing.T) {
	s := seedStore()
	s.Apply(UnitDeleted{SectionID: "s1", SubsectionID: "s1.1", ItemID: "u1"})
	sec, _ := s.Section("s1")
	if got := ids(sec.Children[0].Children); !reflect.DeepEqual(got, []string{"u2"}) {
		t.Fatalf("unit delete: %v", got)
	}

	s.Apply(SubsectionDeleted{SectionID: "s1", ItemID: "s1.2"})
	sec, _ = s.Section("s1")
	if got := ids(sec.Children); !reflect.DeepEqual(got, []string{"s1.1"}) {
		t.Fatalf("subsection delete: %v", got)
	}

	s.Apply(SectionDeleted{ItemID: "s3"})
	if got := ids(s.Sections()); !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Fatalf("section delete: %v", got)
	}

	// Deleting something already gone is a no-op.
	s.Apply(SectionDeleted{ItemID: "s3"})
	if got := ids(s.Sections()); !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Fatalf("repeated delete changed the list: %v", got)
	}
}

func TestSectionDuplicatedInsertsAfterSource(t *testing.T) {
	s := seedStore()
	s.Apply(SectionDuplicated{AfterID: "s2", Item: section("s2-copy")})
	if got := ids(s.Sections()); !reflect.DeepEqual(got, []string{"s1", "s2", "s2-copy", "s3"}) {
		t.Fatalf("duplicate placement: %v", got)
	}
}

func TestReorderRoundTrip(t *testing.T) {
	s := NewStore()
	s.Apply(OutlineFetched{Doc: OutlineDocument{
		Sections: []Item{section("A"), section("B"), section("C")},
	}})
	s.Apply(SectionsReordered{OrderedIDs: []string{"C", "A", "B"}})
	if got := ids(s.Sections()); !reflect.DeepEqual(got, []string{"C", "A", "B"}) {
		t.Fatalf("reorder: %v", got)
	}
	s.Apply(SectionsReordered{OrderedIDs: []string{"A", "B", "C"}})
	if got := ids(s.Sections()); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("round trip: %v", got)
	}
}

func TestReorderMissingIDsStaySortedLast(t *testing.T) {
	s := NewStore()
	s.Apply(OutlineFetched{Doc: OutlineDocument{
		Sections: []Item{section("A"), section("B"), section("C"), section("D")},
	}})
	s.Apply(SectionsReordered{OrderedIDs: []string{"C", "A"}})
	if got := ids(s.Sections()); !reflect.DeepEqual(got, []string{"C", "A", "B", "D"}) {
		t.Fatalf("partial reorder: %v", got)
	}
}

func TestReorderNestedLevels(t *testing.T) {
	s := seedStore()
	s.Apply(UnitsReordered{SectionID: "s1", SubsectionID: "s1.1", OrderedIDs: []string{"u2", "u1"}})
	sec, _ := s.Section("s1")
	if got := ids(sec.Children[0].Children); !reflect.DeepEqual(got, []string{"u2", "u1"}) {
		t.Fatalf("unit reorder: %v", got)
	}

	s.Apply(SubsectionsReordered{SectionID: "s1", OrderedIDs: []string{"s1.2", "s1.1"}})
	sec, _ = s.Section("s1")
	if got := ids(sec.Children); !reflect.DeepEqual(got, []string{"s1.2", "s1.1"}) {
		t.Fatalf("subsection reorder: %v", got)
	}

	before := s.Snapshot()
	s.Apply(UnitsReordered{SectionID: "s1", SubsectionID: "nope", OrderedIDs: []string{"u1"}})
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Fatalf("reorder under missing subsection mutated the tree")
	}
}

func TestScrollFlagsResetIsRecursive(t *testing.T) {
	s := NewStore()
	sec := section("s1", subsection("s1.1", unit("u1")))
	sec.ShouldScroll = true
	sec.Children[0].ShouldScroll = true
	sec.Children[0].Children[0].ShouldScroll = true
	s.Apply(OutlineFetched{Doc: OutlineDocument{Sections: []Item{sec}}})
	s.Apply(ScrollFlagsReset{})
	got, _ := s.Section("s1")
	if got.ShouldScroll || got.Children[0].ShouldScroll || got.Children[0].Children[0].ShouldScroll {
		t.Fatalf("scroll flags survived reset: %+v", got)
	}
}

func TestChannelStatusAndDismiss(t *testing.T) {
	s := NewStore()
	s.Apply(ChannelStatusChanged{Channel: ChannelSaving, Status: RequestFailed, Err: &apierr.Details{Kind: apierr.KindServerError, Dismissible: true, Status: 500}})
	s.Apply(ChannelStatusChanged{Channel: ChannelReindex, Status: RequestInProgress})

	cs := s.Channel(ChannelSaving)
	if cs.Status != RequestFailed || cs.Err == nil {
		t.Fatalf("saving channel: %+v", cs)
	}
	if got := s.Channel(ChannelReindex); got.Status != RequestInProgress || got.Err != nil {
		t.Fatalf("reindex channel leaked state: %+v", got)
	}

	s.Apply(ErrorDismissed{Channel: ChannelSaving})
	cs = s.Channel(ChannelSaving)
	if cs.Err != nil {
		t.Fatalf("dismiss did not clear the error")
	}
	if cs.Status != RequestFailed {
		t.Fatalf("dismiss changed the status: %v", cs.Status)
	}
}

func TestPasteNoticesLifecycle(t *testing.T) {
	s := NewStore()
	s.Apply(PasteNoticesAdded{ID: "n1", Notices: FileNotices{NewFiles: []string{"a.png"}}})
	s.Apply(PasteNoticesAdded{ID: "n2", Notices: FileNotices{ConflictingFiles: []string{"b.png"}}})
	s.Apply(PasteNoticesAdded{ID: "n3", Notices: FileNotices{}}) // nothing to show
	snap := s.Snapshot()
	if len(snap.PasteFileNotices) != 2 {
		t.Fatalf("notices: %+v", snap.PasteFileNotices)
	}
	s.Apply(PasteNoticesRemoved{IDs: []string{"n1", "n3"}})
	snap = s.Snapshot()
	if _, ok := snap.PasteFileNotices["n2"]; !ok || len(snap.PasteFileNotices) != 1 {
		t.Fatalf("removal: %+v", snap.PasteFileNotices)
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := seedStore()
	snap := s.Snapshot()
	snap.Sections[0].DisplayName = "mutated"
	snap.Sections[0].Children[0].Children[0].DisplayName = "mutated"
	sec, _ := s.Section("s1")
	if sec.DisplayName == "mutated" || sec.Children[0].Children[0].DisplayName == "mutated" {
		t.Fatalf("snapshot shares memory with the store")
	}
}

func TestNoDuplicateIDsAfterMutations(t *testing.T) {
	s := seedStore()
	s.Apply(SectionDuplicated{AfterID: "s1", Item: section("s1-copy")})
	s.Apply(SubsectionAdded{ParentLocator: "s2", Item: subsection("s2.1")}) // same id as existing
	seen := map[string]bool{}
	var walk func(items []Item)
	walk = func(items []Item) {
		for _, it := range items {
			if seen[it.ID] {
				t.Fatalf("duplicate id %q in tree", it.ID)
			}
			seen[it.ID] = true
			walk(it.Children)
		}
	}
	walk(s.Sections())
}

func TestPublishableItemIDsWalksWholeTree(t *testing.T) {
	s := NewStore()
	draftUnit := unit("u1") // draft, publishable
	liveSub := subsection("sub1", draftUnit)
	liveSub.VisibilityState = VisibilityLive // live without changes, not publishable
	changed := section("sec1", liveSub)
	changed.Published = true
	changed.HasChanges = true // unpublished changes, publishable
	clean := section("sec2")
	clean.Published = true
	clean.VisibilityState = VisibilityLive
	s.Apply(OutlineFetched{Doc: OutlineDocument{Sections: []Item{changed, clean}}})

	if got := s.PublishableItemIDs(); !reflect.DeepEqual(got, []string{"sec1", "u1"}) {
		t.Fatalf("publishable ids: %v", got)
	}
}
