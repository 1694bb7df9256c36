package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"courseline/internal/frame"
	"courseline/internal/outline"
)

// HandleFrameMessage decodes one raw frame message and performs the
// operations the engine owns: deletes and duplicates go through the
// same handlers direct calls use. View-only messages (edit, manage
// access, height, scroll) are returned to the caller untouched so the
// host can react; frame errors are logged.
func (e Engine) HandleFrameMessage(ctx context.Context, raw []byte) (frame.Message, error) {
	msg, err := frame.Decode(raw)
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case frame.DeleteItemRequested:
		path, ok := e.findPath(m.Locator)
		if !ok {
			return msg, fmt.Errorf("delete request for unknown item %s", m.Locator)
		}
		switch path.Category {
		case outline.CategoryChapter:
			return msg, e.DeleteSection(ctx, path.SectionID)
		case outline.CategorySequential:
			return msg, e.DeleteSubsection(ctx, path.SectionID, path.SubsectionID)
		default:
			return msg, e.DeleteUnit(ctx, path.SectionID, path.SubsectionID, path.UnitID)
		}
	case frame.DuplicateItemRequested:
		path, ok := e.findPath(m.Locator)
		if !ok {
			return msg, fmt.Errorf("duplicate request for unknown item %s", m.Locator)
		}
		var opErr error
		switch path.Category {
		case outline.CategoryChapter:
			_, opErr = e.DuplicateSection(ctx, path.SectionID)
		case outline.CategorySequential:
			_, opErr = e.DuplicateSubsection(ctx, path.SectionID, path.SubsectionID)
		default:
			_, opErr = e.DuplicateUnit(ctx, path.SectionID, path.SubsectionID, path.UnitID)
		}
		return msg, opErr
	case frame.ErrorReported:
		e.Log.Error("frame reported error", zap.String("title", m.Title), zap.String("message", m.Message))
		return msg, nil
	default:
		return msg, nil
	}
}

type itemPath struct {
	SectionID    string
	SubsectionID string
	UnitID       string
	Category     outline.Category
}

// findPath locates an item in the current tree. The category comes
// from the nesting depth, not the item payload, so a partially
// populated tree still routes correctly.
func (e Engine) findPath(locator string) (itemPath, bool) {
	for _, sec := range e.Store.Sections() {
		if sec.ID == locator {
			return itemPath{SectionID: sec.ID, Category: outline.CategoryChapter}, true
		}
		for _, sub := range sec.Children {
			if sub.ID == locator {
				return itemPath{SectionID: sec.ID, SubsectionID: sub.ID, Category: outline.CategorySequential}, true
			}
			for _, u := range sub.Children {
				if u.ID == locator {
					return itemPath{SectionID: sec.ID, SubsectionID: sub.ID, UnitID: u.ID, Category: outline.CategoryVertical}, true
				}
			}
		}
	}
	return itemPath{}, false
}
