package dnd

import (
	"errors"
	"reflect"
	"testing"

	"courseline/internal/outline"
)

var allowAll = outline.Actions{
	Deletable:     true,
	Draggable:     true,
	ChildAddable:  true,
	Duplicable:    true,
	AllowMoveUp:   true,
	AllowMoveDown: true,
}

func sec(id string, children ...outline.Item) outline.Item {
	return outline.Item{ID: id, Category: outline.CategoryChapter, Actions: allowAll, Children: children}
}

func sub(id string, children ...outline.Item) outline.Item {
	return outline.Item{ID: id, Category: outline.CategorySequential, Actions: allowAll, Children: children}
}

func unit(id string) outline.Item {
	return outline.Item{ID: id, Category: outline.CategoryVertical, Actions: allowAll}
}

func topIDs(items []outline.Item) []string {
	return idsOf(items)
}

func TestSectionDragReorders(t *testing.T) {
	tree := []outline.Item{sec("A"), sec("B"), sec("C")}
	g, err := BeginDrag(tree, "C")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("A", false); err != nil {
		t.Fatalf("over: %v", err)
	}
	commit, err := g.DragEnd()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if commit == nil {
		t.Fatalf("expected a commit")
	}
	if !reflect.DeepEqual(commit.OrderedIDs, []string{"C", "A", "B"}) {
		t.Fatalf("order: %v", commit.OrderedIDs)
	}
	if commit.Level != LevelSection || commit.SectionID != "" {
		t.Fatalf("commit: %+v", commit)
	}
	// The caller's slice stays untouched.
	if got := topIDs(tree); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("input mutated: %v", got)
	}
}

func TestBelowMidpointInsertsAfter(t *testing.T) {
	tree := []outline.Item{sec("A"), sec("B"), sec("C")}
	g, err := BeginDrag(tree, "A")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("B", true); err != nil {
		t.Fatalf("over: %v", err)
	}
	commit, err := g.DragEnd()
	if err != nil || commit == nil {
		t.Fatalf("end: %v %v", commit, err)
	}
	if !reflect.DeepEqual(commit.OrderedIDs, []string{"B", "A", "C"}) {
		t.Fatalf("order: %v", commit.OrderedIDs)
	}
}

func TestNetNoopProducesNoCommit(t *testing.T) {
	tree := []outline.Item{sec("A"), sec("B"), sec("C")}
	g, err := BeginDrag(tree, "A")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("B", true); err != nil {
		t.Fatalf("over: %v", err)
	}
	if err := g.DragOver("B", false); err != nil { // drag back up
		t.Fatalf("over: %v", err)
	}
	commit, err := g.DragEnd()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if commit != nil {
		t.Fatalf("no-op gesture produced a commit: %+v", commit)
	}
}

func TestUnitDragWithinSubsection(t *testing.T) {
	tree := []outline.Item{sec("s1", sub("b1", unit("u1"), unit("u2"), unit("u3")))}
	g, err := BeginDrag(tree, "u3")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("u1", false); err != nil {
		t.Fatalf("over: %v", err)
	}
	commit, err := g.DragEnd()
	if err != nil || commit == nil {
		t.Fatalf("end: %v %v", commit, err)
	}
	if commit.Level != LevelUnit || commit.SectionID != "s1" || commit.SubsectionID != "b1" {
		t.Fatalf("commit: %+v", commit)
	}
	if !reflect.DeepEqual(commit.OrderedIDs, []string{"u3", "u1", "u2"}) {
		t.Fatalf("order: %v", commit.OrderedIDs)
	}
	if commit.PrevSectionID != "" {
		t.Fatalf("prev section set on same-container move")
	}
}

func TestSubsectionCrossSectionViaDropZone(t *testing.T) {
	tree := []outline.Item{
		sec("s1", sub("b1"), sub("b2")),
		sec("s2", sub("b3")),
	}
	g, err := BeginDrag(tree, "b2")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("s2", false); err != nil {
		t.Fatalf("over: %v", err)
	}
	commit, err := g.DragEnd()
	if err != nil || commit == nil {
		t.Fatalf("end: %v %v", commit, err)
	}
	if commit.SectionID != "s2" || commit.PrevSectionID != "s1" {
		t.Fatalf("commit: %+v", commit)
	}
	if !reflect.DeepEqual(commit.OrderedIDs, []string{"b3", "b2"}) {
		t.Fatalf("order: %v", commit.OrderedIDs)
	}
}

func TestCrossCategoryHoverIgnored(t *testing.T) {
	tree := []outline.Item{sec("s1", sub("b1", unit("u1"))), sec("s2")}
	g, err := BeginDrag(tree, "s2")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("u1", false); err != nil {
		t.Fatalf("over: %v", err)
	}
	commit, err := g.DragEnd()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if commit != nil {
		t.Fatalf("hover over a unit moved a section: %+v", commit)
	}
}

func TestChildAddableGuardBlocksMove(t *testing.T) {
	locked := sec("s2")
	locked.Actions.ChildAddable = false
	tree := []outline.Item{sec("s1", sub("b1")), locked}
	g, err := BeginDrag(tree, "b1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("s2", false); err != nil {
		t.Fatalf("over: %v", err)
	}
	commit, err := g.DragEnd()
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if commit != nil {
		t.Fatalf("moved into a section that does not accept children: %+v", commit)
	}
}

func TestNotDraggableRejectedAtBegin(t *testing.T) {
	pinned := sec("s1")
	pinned.Actions.Draggable = false
	if _, err := BeginDrag([]outline.Item{pinned, sec("s2")}, "s1"); !errors.Is(err, ErrNotDraggable) {
		t.Fatalf("err: %v", err)
	}
}

func TestCancelRestoresPreDrag(t *testing.T) {
	tree := []outline.Item{sec("s1", sub("b1", unit("u1"), unit("u2"), unit("u3")))}
	g, err := BeginDrag(tree, "u3")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("u1", false); err != nil {
		t.Fatalf("over: %v", err)
	}
	restored := g.Cancel()
	got := idsOf(restored[0].Children[0].Children)
	if !reflect.DeepEqual(got, []string{"u1", "u2", "u3"}) {
		t.Fatalf("cancel left order %v", got)
	}
}

func TestCommitPreDragIsRollbackSnapshot(t *testing.T) {
	tree := []outline.Item{sec("s1", sub("b1", unit("u1"), unit("u2"), unit("u3")))}
	g, err := BeginDrag(tree, "u3")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := g.DragOver("u1", false); err != nil {
		t.Fatalf("over: %v", err)
	}
	commit, err := g.DragEnd()
	if err != nil || commit == nil {
		t.Fatalf("end: %v %v", commit, err)
	}
	got := idsOf(commit.PreDrag[0].Children[0].Children)
	if !reflect.DeepEqual(got, []string{"u1", "u2", "u3"}) {
		t.Fatalf("rollback snapshot order: %v", got)
	}
	arranged := idsOf(commit.Arrangement[0].Children[0].Children)
	if !reflect.DeepEqual(arranged, []string{"u3", "u1", "u2"}) {
		t.Fatalf("arrangement order: %v", arranged)
	}
}
