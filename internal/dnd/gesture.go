// Package dnd reconciles drag gestures over the outline tree. A
// Gesture works on a deep copy of the sections list: over events
// rearrange the copy, and DragEnd reports what changed so the caller
// can persist the order and roll back if the backend rejects it.
package dnd

import (
	"errors"
	"fmt"

	"courseline/internal/outline"
)

// Level is the tree depth a gesture operates on, fixed at BeginDrag.
type Level int

const (
	LevelSection Level = iota
	LevelSubsection
	LevelUnit
)

var (
	// ErrNotDraggable means the backend withheld drag capability.
	ErrNotDraggable = errors.New("item is not draggable")
	// ErrNoActiveDrag means DragOver/DragEnd without BeginDrag.
	ErrNoActiveDrag = errors.New("no drag in progress")
)

// Commit describes a finished gesture with a net change. OrderedIDs is
// the child order of the container the item ended up in; PreDrag is
// the snapshot to restore when persisting fails.
type Commit struct {
	Level         Level
	SectionID     string // section whose contents changed; empty at section level
	PrevSectionID string // section the item left, when it crossed sections
	SubsectionID  string // destination subsection, unit level only
	OrderedIDs    []string
	Arrangement   []outline.Item
	PreDrag       []outline.Item
}

// Gesture is one in-flight drag. Not safe for concurrent use.
type Gesture struct {
	preDrag        []outline.Item
	current        []outline.Item
	activeID       string
	level          Level
	startSectionID string
	active         bool
}

// BeginDrag starts a gesture for the item with activeID. The sections
// list is deep-copied; the caller's slice is never touched.
func BeginDrag(sections []outline.Item, activeID string) (*Gesture, error) {
	snapshot := outline.CloneItems(sections)
	ref, ok := locate(snapshot, activeID)
	if !ok {
		return nil, fmt.Errorf("item %s not in tree", activeID)
	}
	if !refItem(snapshot, ref).Actions.Draggable {
		return nil, ErrNotDraggable
	}
	g := &Gesture{
		preDrag:  snapshot,
		current:  outline.CloneItems(snapshot),
		activeID: activeID,
		level:    ref.level,
		active:   true,
	}
	if ref.level >= LevelSubsection {
		g.startSectionID = snapshot[ref.sectionIdx].ID
	}
	return g, nil
}

// Sections returns the working arrangement for rendering.
func (g *Gesture) Sections() []outline.Item {
	return outline.CloneItems(g.current)
}

// DragOver moves the active item relative to the hovered element.
// overID may be a sibling of the active item, an item of the same
// category in another container, or a container one level up (its drop
// zone). belowMidpoint places the item after a hovered sibling instead
// of before it. Hovering anything that is not a legal target is
// ignored; the gesture simply keeps its current arrangement.
func (g *Gesture) DragOver(overID string, belowMidpoint bool) error {
	if !g.active {
		return ErrNoActiveDrag
	}
	if overID == g.activeID || overID == "" {
		return nil
	}
	over, ok := locate(g.current, overID)
	if !ok {
		return nil
	}
	switch g.level {
	case LevelSection:
		if over.level != LevelSection {
			return nil
		}
		g.current = moveAmong(g.current, g.activeID, overID, belowMidpoint)
	case LevelSubsection:
		g.dragOverSubsection(over, belowMidpoint)
	case LevelUnit:
		g.dragOverUnit(over, belowMidpoint)
	}
	return nil
}

func (g *Gesture) dragOverSubsection(over itemRef, belowMidpoint bool) {
	active, ok := locate(g.current, g.activeID)
	if !ok {
		return
	}
	switch over.level {
	case LevelSection:
		// Container drop zone: append to the hovered section.
		dst := &g.current[over.sectionIdx]
		if dst.ID == g.current[active.sectionIdx].ID || !dst.Actions.ChildAddable {
			return
		}
		it := g.takeActive(active)
		dst = &g.current[over.sectionIdx] // takeActive does not reindex sections
		dst.Children = append(dst.Children, it)
	case LevelSubsection:
		if over.sectionIdx != active.sectionIdx && !g.current[over.sectionIdx].Actions.ChildAddable {
			return
		}
		overItemID := g.overIDAt(over)
		it := g.takeActive(active)
		dst := &g.current[over.sectionIdx]
		idx := indexOf(dst.Children, overItemID)
		if belowMidpoint {
			idx++
		}
		dst.Children = insertAt(dst.Children, idx, it)
	}
}

func (g *Gesture) dragOverUnit(over itemRef, belowMidpoint bool) {
	active, ok := locate(g.current, g.activeID)
	if !ok {
		return
	}
	switch over.level {
	case LevelSubsection:
		dst := &g.current[over.sectionIdx].Children[over.subIdx]
		sameContainer := over.sectionIdx == active.sectionIdx && over.subIdx == active.subIdx
		if sameContainer || !dst.Actions.ChildAddable {
			return
		}
		it := g.takeActive(active)
		dst = &g.current[over.sectionIdx].Children[over.subIdx]
		dst.Children = append(dst.Children, it)
	case LevelUnit:
		sameContainer := over.sectionIdx == active.sectionIdx && over.subIdx == active.subIdx
		if !sameContainer && !g.current[over.sectionIdx].Children[over.subIdx].Actions.ChildAddable {
			return
		}
		overItemID := g.overIDAt(over)
		it := g.takeActive(active)
		dst := &g.current[over.sectionIdx].Children[over.subIdx]
		idx := indexOf(dst.Children, overItemID)
		if belowMidpoint {
			idx++
		}
		dst.Children = insertAt(dst.Children, idx, it)
	}
}

func (g *Gesture) overIDAt(ref itemRef) string {
	return refItem(g.current, ref).ID
}

// takeActive removes the active item from its current container and
// returns it. Section-level gestures never call it.
func (g *Gesture) takeActive(active itemRef) outline.Item {
	var it outline.Item
	switch active.level {
	case LevelSubsection:
		sec := &g.current[active.sectionIdx]
		it = sec.Children[active.subIdx]
		sec.Children = removeAt(sec.Children, active.subIdx)
	case LevelUnit:
		sub := &g.current[active.sectionIdx].Children[active.subIdx]
		it = sub.Children[active.unitIdx]
		sub.Children = removeAt(sub.Children, active.unitIdx)
	}
	return it
}

// DragEnd finishes the gesture. It returns nil when the arrangement is
// a net no-op so callers skip the backend call entirely.
func (g *Gesture) DragEnd() (*Commit, error) {
	if !g.active {
		return nil, ErrNoActiveDrag
	}
	g.active = false
	if treeEqual(g.preDrag, g.current) {
		return nil, nil
	}
	active, ok := locate(g.current, g.activeID)
	if !ok {
		return nil, fmt.Errorf("item %s lost during drag", g.activeID)
	}
	c := &Commit{
		Level:       g.level,
		Arrangement: outline.CloneItems(g.current),
		PreDrag:     outline.CloneItems(g.preDrag),
	}
	switch g.level {
	case LevelSection:
		c.OrderedIDs = idsOf(g.current)
	case LevelSubsection:
		sec := g.current[active.sectionIdx]
		c.SectionID = sec.ID
		c.OrderedIDs = idsOf(sec.Children)
		if g.startSectionID != sec.ID {
			c.PrevSectionID = g.startSectionID
		}
	case LevelUnit:
		sec := g.current[active.sectionIdx]
		sub := sec.Children[active.subIdx]
		c.SectionID = sec.ID
		c.SubsectionID = sub.ID
		c.OrderedIDs = idsOf(sub.Children)
		if g.startSectionID != sec.ID {
			c.PrevSectionID = g.startSectionID
		}
	}
	return c, nil
}

// Cancel abandons the gesture and returns the pre-drag snapshot.
func (g *Gesture) Cancel() []outline.Item {
	g.active = false
	g.current = outline.CloneItems(g.preDrag)
	return outline.CloneItems(g.preDrag)
}

// moveAmong reorders a sibling list so that the item with activeID
// lands before (or after, belowMidpoint) the item with overID.
func moveAmong(items []outline.Item, activeID, overID string, belowMidpoint bool) []outline.Item {
	from := indexOf(items, activeID)
	if from < 0 {
		return items
	}
	it := items[from]
	rest := removeAt(items, from)
	to := indexOf(rest, overID)
	if to < 0 {
		return items
	}
	if belowMidpoint {
		to++
	}
	return insertAt(rest, to, it)
}

type itemRef struct {
	level      Level
	sectionIdx int
	subIdx     int
	unitIdx    int
}

func locate(sections []outline.Item, id string) (itemRef, bool) {
	for i := range sections {
		if sections[i].ID == id {
			return itemRef{level: LevelSection, sectionIdx: i}, true
		}
		for j := range sections[i].Children {
			if sections[i].Children[j].ID == id {
				return itemRef{level: LevelSubsection, sectionIdx: i, subIdx: j}, true
			}
			for k := range sections[i].Children[j].Children {
				if sections[i].Children[j].Children[k].ID == id {
					return itemRef{level: LevelUnit, sectionIdx: i, subIdx: j, unitIdx: k}, true
				}
			}
		}
	}
	return itemRef{}, false
}

func refItem(sections []outline.Item, ref itemRef) outline.Item {
	switch ref.level {
	case LevelSection:
		return sections[ref.sectionIdx]
	case LevelSubsection:
		return sections[ref.sectionIdx].Children[ref.subIdx]
	default:
		return sections[ref.sectionIdx].Children[ref.subIdx].Children[ref.unitIdx]
	}
}

func indexOf(items []outline.Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func removeAt(items []outline.Item, i int) []outline.Item {
	out := make([]outline.Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func insertAt(items []outline.Item, i int, it outline.Item) []outline.Item {
	if i < 0 {
		i = 0
	}
	if i > len(items) {
		i = len(items)
	}
	out := make([]outline.Item, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, it)
	return append(out, items[i:]...)
}

func idsOf(items []outline.Item) []string {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

// treeEqual compares only structure: ids and their nesting order.
func treeEqual(a, b []outline.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !treeEqual(a[i].Children, b[i].Children) {
			return false
		}
	}
	return true
}
