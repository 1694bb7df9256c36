package engine

import (
	"context"
	"fmt"

	"courseline/internal/outline"
)

// AddSection creates an empty section at the end of the outline and
// returns its locator. The new section is flagged for scrolling.
func (e Engine) AddSection(ctx context.Context, displayName string) (string, error) {
	var locator string
	err := e.withSaving(ctx, ProcessingSaving, "add section", func(ctx context.Context) error {
		loc, err := e.Gateway.CreateItem(ctx, CreateItemRequest{
			ParentLocator: e.CourseID,
			Category:      outline.CategoryChapter,
			DisplayName:   displayName,
		})
		if err != nil {
			return fmt.Errorf("create section: %w", err)
		}
		it, err := e.Gateway.Item(ctx, loc)
		if err != nil {
			return fmt.Errorf("fetch created section %s: %w", loc, err)
		}
		it.ShouldScroll = true
		e.Store.Apply(outline.SectionAdded{Item: it})
		locator = loc
		return nil
	})
	return locator, err
}

// AddSubsection creates an empty subsection under a section.
func (e Engine) AddSubsection(ctx context.Context, sectionID, displayName string) (string, error) {
	var locator string
	err := e.withSaving(ctx, ProcessingSaving, "add subsection", func(ctx context.Context) error {
		loc, err := e.Gateway.CreateItem(ctx, CreateItemRequest{
			ParentLocator: sectionID,
			Category:      outline.CategorySequential,
			DisplayName:   displayName,
		})
		if err != nil {
			return fmt.Errorf("create subsection: %w", err)
		}
		it, err := e.Gateway.Item(ctx, loc)
		if err != nil {
			return fmt.Errorf("fetch created subsection %s: %w", loc, err)
		}
		it.ShouldScroll = true
		e.Store.Apply(outline.SubsectionAdded{ParentLocator: sectionID, Item: it})
		locator = loc
		return nil
	})
	return locator, err
}

// AddUnit creates an empty unit under a subsection and refreshes the
// containing section so the new unit shows up in place.
func (e Engine) AddUnit(ctx context.Context, sectionID, subsectionID, displayName string) (string, error) {
	var locator string
	err := e.withSaving(ctx, ProcessingSaving, "add unit", func(ctx context.Context) error {
		loc, err := e.Gateway.CreateItem(ctx, CreateItemRequest{
			ParentLocator: subsectionID,
			Category:      outline.CategoryVertical,
			DisplayName:   displayName,
		})
		if err != nil {
			return fmt.Errorf("create unit: %w", err)
		}
		locator = loc
		return e.refreshSection(ctx, sectionID, loc)
	})
	return locator, err
}

// DeleteSection removes a section remotely, then locally.
func (e Engine) DeleteSection(ctx context.Context, sectionID string) error {
	return e.withSaving(ctx, ProcessingDeleting, "delete section", func(ctx context.Context) error {
		if err := e.Gateway.DeleteItem(ctx, sectionID); err != nil {
			return fmt.Errorf("delete %s: %w", sectionID, err)
		}
		e.Store.Apply(outline.SectionDeleted{ItemID: sectionID})
		return nil
	})
}

// DeleteSubsection removes a subsection addressed by its full path.
func (e Engine) DeleteSubsection(ctx context.Context, sectionID, subsectionID string) error {
	return e.withSaving(ctx, ProcessingDeleting, "delete subsection", func(ctx context.Context) error {
		if err := e.Gateway.DeleteItem(ctx, subsectionID); err != nil {
			return fmt.Errorf("delete %s: %w", subsectionID, err)
		}
		e.Store.Apply(outline.SubsectionDeleted{SectionID: sectionID, ItemID: subsectionID})
		return nil
	})
}

// DeleteUnit removes a unit addressed by its full path.
func (e Engine) DeleteUnit(ctx context.Context, sectionID, subsectionID, unitID string) error {
	return e.withSaving(ctx, ProcessingDeleting, "delete unit", func(ctx context.Context) error {
		if err := e.Gateway.DeleteItem(ctx, unitID); err != nil {
			return fmt.Errorf("delete %s: %w", unitID, err)
		}
		e.Store.Apply(outline.UnitDeleted{SectionID: sectionID, SubsectionID: subsectionID, ItemID: unitID})
		return nil
	})
}

// DuplicateSection copies a section and inserts the copy right after
// the source, flagged for scrolling.
func (e Engine) DuplicateSection(ctx context.Context, sectionID string) (string, error) {
	var locator string
	err := e.withSaving(ctx, ProcessingDuplicating, "duplicate section", func(ctx context.Context) error {
		loc, err := e.Gateway.DuplicateItem(ctx, sectionID, e.CourseID)
		if err != nil {
			return fmt.Errorf("duplicate %s: %w", sectionID, err)
		}
		it, err := e.Gateway.Item(ctx, loc)
		if err != nil {
			return fmt.Errorf("fetch duplicated section %s: %w", loc, err)
		}
		it.ShouldScroll = true
		e.Store.Apply(outline.SectionDuplicated{AfterID: sectionID, Item: it})
		locator = loc
		return nil
	})
	return locator, err
}

// DuplicateSubsection copies a subsection inside its section.
func (e Engine) DuplicateSubsection(ctx context.Context, sectionID, subsectionID string) (string, error) {
	var locator string
	err := e.withSaving(ctx, ProcessingDuplicating, "duplicate subsection", func(ctx context.Context) error {
		loc, err := e.Gateway.DuplicateItem(ctx, subsectionID, sectionID)
		if err != nil {
			return fmt.Errorf("duplicate %s: %w", subsectionID, err)
		}
		locator = loc
		return e.refreshSection(ctx, sectionID, loc)
	})
	return locator, err
}

// DuplicateUnit copies a unit inside its subsection.
func (e Engine) DuplicateUnit(ctx context.Context, sectionID, subsectionID, unitID string) (string, error) {
	var locator string
	err := e.withSaving(ctx, ProcessingDuplicating, "duplicate unit", func(ctx context.Context) error {
		loc, err := e.Gateway.DuplicateItem(ctx, unitID, subsectionID)
		if err != nil {
			return fmt.Errorf("duplicate %s: %w", unitID, err)
		}
		locator = loc
		return e.refreshSection(ctx, sectionID, loc)
	})
	return locator, err
}

// EditDisplayName renames one item and refreshes its containing
// section.
func (e Engine) EditDisplayName(ctx context.Context, sectionID, itemID, displayName string) error {
	return e.withSaving(ctx, ProcessingSaving, "edit display name", func(ctx context.Context) error {
		if err := e.Gateway.EditDisplayName(ctx, itemID, displayName); err != nil {
			return fmt.Errorf("rename %s: %w", itemID, err)
		}
		return e.refreshSection(ctx, sectionID, "")
	})
}

// Configure writes arbitrary item settings and refreshes the
// containing section. The typed setters below cover the common cases.
func (e Engine) Configure(ctx context.Context, sectionID, itemID string, metadata map[string]any) error {
	return e.withSaving(ctx, ProcessingSaving, "configure item", func(ctx context.Context) error {
		if err := e.Gateway.ConfigureItem(ctx, itemID, metadata); err != nil {
			return fmt.Errorf("configure %s: %w", itemID, err)
		}
		return e.refreshSection(ctx, sectionID, "")
	})
}

// SetStaffLock hides or reveals an item for non-staff users.
func (e Engine) SetStaffLock(ctx context.Context, sectionID, itemID string, locked bool) error {
	return e.Configure(ctx, sectionID, itemID, map[string]any{"visible_to_staff_only": locked})
}

// SetReleaseDate schedules an item's release.
func (e Engine) SetReleaseDate(ctx context.Context, sectionID, itemID, start string) error {
	return e.Configure(ctx, sectionID, itemID, map[string]any{"start": start})
}
