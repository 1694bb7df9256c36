package dnd

import "courseline/internal/outline"

// PlannedMove is a keyboard-initiated move ready to persist: the new
// child order of the destination container plus the full arrangement
// to apply locally.
type PlannedMove struct {
	SectionID     string
	PrevSectionID string
	SubsectionID  string
	OrderedIDs    []string
	Sections      []outline.Item
}

func canStep(a outline.Actions, step int) bool {
	if !a.Draggable {
		return false
	}
	if step < 0 {
		return a.AllowMoveUp
	}
	return a.AllowMoveDown
}

func arrayMove(items []outline.Item, from, to int) []outline.Item {
	it := items[from]
	return insertAt(removeAt(items, from), to, it)
}

// CanMoveSection reports whether a section can shift by step.
func CanMoveSection(sections []outline.Item, sectionID string, step int) bool {
	_, ok := PlanSectionMove(sections, sectionID, step)
	return ok
}

// PlanSectionMove shifts a section by step (-1 up, +1 down).
func PlanSectionMove(sections []outline.Item, sectionID string, step int) (PlannedMove, bool) {
	i := indexOf(sections, sectionID)
	if i < 0 || !canStep(sections[i].Actions, step) {
		return PlannedMove{}, false
	}
	j := i + step
	if j < 0 || j >= len(sections) {
		return PlannedMove{}, false
	}
	arr := arrayMove(outline.CloneItems(sections), i, j)
	return PlannedMove{OrderedIDs: idsOf(arr), Sections: arr}, true
}

// PlanSubsectionMove shifts a subsection by step. At the edge of its
// section it spills into the adjacent section: upward lands at that
// section's end, downward at its start.
func PlanSubsectionMove(sections []outline.Item, sectionID, subsectionID string, step int) (PlannedMove, bool) {
	arr := outline.CloneItems(sections)
	si := indexOf(arr, sectionID)
	if si < 0 {
		return PlannedMove{}, false
	}
	sec := &arr[si]
	bi := indexOf(sec.Children, subsectionID)
	if bi < 0 || !canStep(sec.Children[bi].Actions, step) {
		return PlannedMove{}, false
	}
	if tgt := bi + step; tgt >= 0 && tgt < len(sec.Children) {
		sec.Children = arrayMove(sec.Children, bi, tgt)
		return PlannedMove{SectionID: sec.ID, OrderedIDs: idsOf(sec.Children), Sections: arr}, true
	}
	di := si + step
	if di < 0 || di >= len(arr) || !arr[di].Actions.ChildAddable {
		return PlannedMove{}, false
	}
	sub := sec.Children[bi]
	sec.Children = removeAt(sec.Children, bi)
	dst := &arr[di]
	if step < 0 {
		dst.Children = append(dst.Children, sub)
	} else {
		dst.Children = insertAt(dst.Children, 0, sub)
	}
	return PlannedMove{
		SectionID:     dst.ID,
		PrevSectionID: sec.ID,
		OrderedIDs:    idsOf(dst.Children),
		Sections:      arr,
	}, true
}

// PlanUnitMove shifts a unit by step. At the edge of its subsection it
// spills into the adjacent subsection, and at the edge of its section
// into the nearest subsection of the adjacent section.
func PlanUnitMove(sections []outline.Item, sectionID, subsectionID, unitID string, step int) (PlannedMove, bool) {
	arr := outline.CloneItems(sections)
	si := indexOf(arr, sectionID)
	if si < 0 {
		return PlannedMove{}, false
	}
	sec := &arr[si]
	bi := indexOf(sec.Children, subsectionID)
	if bi < 0 {
		return PlannedMove{}, false
	}
	sub := &sec.Children[bi]
	ui := indexOf(sub.Children, unitID)
	if ui < 0 || !canStep(sub.Children[ui].Actions, step) {
		return PlannedMove{}, false
	}
	if tgt := ui + step; tgt >= 0 && tgt < len(sub.Children) {
		sub.Children = arrayMove(sub.Children, ui, tgt)
		return PlannedMove{SectionID: sec.ID, SubsectionID: sub.ID, OrderedIDs: idsOf(sub.Children), Sections: arr}, true
	}

	u := sub.Children[ui]
	if dbi := bi + step; dbi >= 0 && dbi < len(sec.Children) {
		dst := &sec.Children[dbi]
		if !dst.Actions.ChildAddable {
			return PlannedMove{}, false
		}
		sub.Children = removeAt(sub.Children, ui)
		if step < 0 {
			dst.Children = append(dst.Children, u)
		} else {
			dst.Children = insertAt(dst.Children, 0, u)
		}
		return PlannedMove{SectionID: sec.ID, SubsectionID: dst.ID, OrderedIDs: idsOf(dst.Children), Sections: arr}, true
	}

	dsi := si + step
	if dsi < 0 || dsi >= len(arr) || len(arr[dsi].Children) == 0 {
		return PlannedMove{}, false
	}
	dsec := &arr[dsi]
	var dst *outline.Item
	if step < 0 {
		dst = &dsec.Children[len(dsec.Children)-1]
	} else {
		dst = &dsec.Children[0]
	}
	if !dst.Actions.ChildAddable {
		return PlannedMove{}, false
	}
	sub.Children = removeAt(sub.Children, ui)
	if step < 0 {
		dst.Children = append(dst.Children, u)
	} else {
		dst.Children = insertAt(dst.Children, 0, u)
	}
	return PlannedMove{
		SectionID:     dsec.ID,
		PrevSectionID: sec.ID,
		SubsectionID:  dst.ID,
		OrderedIDs:    idsOf(dst.Children),
		Sections:      arr,
	}, true
}
