package engine

import (
	"context"
	"fmt"

	"courseline/internal/outline"
)

// PublishItem publishes one item and refreshes its containing section.
func (e Engine) PublishItem(ctx context.Context, sectionID, itemID string) error {
	return e.withSaving(ctx, ProcessingSaving, "publish item", func(ctx context.Context) error {
		if err := e.Gateway.PublishItem(ctx, itemID); err != nil {
			return fmt.Errorf("publish %s: %w", itemID, err)
		}
		return e.refreshSection(ctx, sectionID, "")
	})
}

// PublishAll publishes every item in the tree with something to
// publish, strictly one at a time. The backend races itself on
// concurrent publishes of related blocks, so the batch runs as a
// single queue task and stops at the first failure. Afterwards every
// top-level section is refetched so partial progress is visible.
// With nothing to publish this is a no-op: no calls, no notification.
func (e Engine) PublishAll(ctx context.Context) error {
	ids := e.Store.PublishableItemIDs()
	if len(ids) == 0 {
		return nil
	}
	return e.withSaving(ctx, ProcessingSaving, "publish all", func(ctx context.Context) error {
		publishErr := e.queue.Submit(ctx, func(ctx context.Context) error {
			for _, id := range ids {
				if err := e.Gateway.PublishItem(ctx, id); err != nil {
					return fmt.Errorf("publish %s: %w", id, err)
				}
			}
			return nil
		})
		sections := e.Store.Sections()
		sectionIDs := make([]string, len(sections))
		for i := range sections {
			sectionIDs[i] = sections[i].ID
		}
		if err := e.FetchSections(ctx, sectionIDs, ""); err != nil && publishErr == nil {
			publishErr = err
		}
		return publishErr
	})
}

// EnableHighlightsEmails turns on weekly highlight emails for the
// course and records the flag in the status bar.
func (e Engine) EnableHighlightsEmails(ctx context.Context) error {
	return e.withSaving(ctx, ProcessingSaving, "enable highlights emails", func(ctx context.Context) error {
		if err := e.Gateway.EnableHighlightsEmails(ctx, e.CourseID); err != nil {
			return fmt.Errorf("enable highlights emails: %w", err)
		}
		e.Store.Apply(outline.HighlightsEmailsEnabled{Enabled: true})
		return nil
	})
}

// UpdateHighlights replaces the highlight list on one item and
// refreshes its containing section.
func (e Engine) UpdateHighlights(ctx context.Context, sectionID, itemID string, highlights []string) error {
	return e.withSaving(ctx, ProcessingSaving, "update highlights", func(ctx context.Context) error {
		if err := e.Gateway.UpdateHighlights(ctx, itemID, highlights); err != nil {
			return fmt.Errorf("update highlights on %s: %w", itemID, err)
		}
		return e.refreshSection(ctx, sectionID, "")
	})
}
