package studio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courseline/internal/outline"
)

// Store is the block storage behind the stub Studio API.
type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

var (
	ErrNotFound    = errors.New("not found")
	ErrNoClipboard = errors.New("clipboard is empty")
)

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type courseRow struct {
	ID                string
	DisplayName       string
	CreatedOn         string
	ReleaseDate       string
	SelfPaced         bool
	HighlightsEnabled bool
}

type blockRow struct {
	Locator            string
	CourseID           string
	Parent             string
	Category           string
	Position           int
	DisplayName        string
	Published          bool
	HasChanges         bool
	VisibleToStaffOnly bool
	ReleaseDate        string
	Highlights         []string
}

// EnsureCourse creates the course row if it does not exist yet.
func (s Store) EnsureCourse(ctx context.Context, id, displayName string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO courses(id,display_name,created_on) VALUES (?,?,?) ON CONFLICT(id) DO NOTHING`,
		id, displayName, s.now().UTC().Format(time.RFC3339))
	return err
}

func (s Store) GetCourse(ctx context.Context, id string) (courseRow, error) {
	var c courseRow
	err := s.DB.QueryRowContext(ctx,
		`SELECT id,display_name,created_on,release_date,self_paced,highlights_enabled FROM courses WHERE id=?`, id).
		Scan(&c.ID, &c.DisplayName, &c.CreatedOn, &c.ReleaseDate, &c.SelfPaced, &c.HighlightsEnabled)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// SetHighlightsEnabled turns highlight emails on or off for a course.
func (s Store) SetHighlightsEnabled(ctx context.Context, courseID string, enabled bool) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE courses SET highlights_enabled=? WHERE id=?`, enabled, courseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s Store) getBlock(ctx context.Context, locator string) (blockRow, error) {
	var (
		b          blockRow
		highlights string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT locator,course_id,parent,category,position,display_name,published,has_changes,visible_to_staff_only,release_date,highlights
		 FROM blocks WHERE locator=?`, locator).
		Scan(&b.Locator, &b.CourseID, &b.Parent, &b.Category, &b.Position, &b.DisplayName,
			&b.Published, &b.HasChanges, &b.VisibleToStaffOnly, &b.ReleaseDate, &highlights)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal([]byte(highlights), &b.Highlights); err != nil {
		return b, fmt.Errorf("block %s highlights: %w", locator, err)
	}
	return b, nil
}

func (s Store) children(ctx context.Context, parent string) ([]blockRow, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT locator,course_id,parent,category,position,display_name,published,has_changes,visible_to_staff_only,release_date,highlights
		 FROM blocks WHERE parent=? ORDER BY position`, parent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []blockRow
	for rows.Next() {
		var (
			b          blockRow
			highlights string
		)
		if err := rows.Scan(&b.Locator, &b.CourseID, &b.Parent, &b.Category, &b.Position, &b.DisplayName,
			&b.Published, &b.HasChanges, &b.VisibleToStaffOnly, &b.ReleaseDate, &highlights); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(highlights), &b.Highlights); err != nil {
			return nil, fmt.Errorf("block %s highlights: %w", b.Locator, err)
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// InsertBlock appends a block as the last child of its parent.
func (s Store) InsertBlock(ctx context.Context, locator, courseID, parent, category, displayName string) error {
	var position int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks WHERE parent=?`, parent).Scan(&position); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO blocks(locator,course_id,parent,category,position,display_name) VALUES (?,?,?,?,?,?)`,
		locator, courseID, parent, category, position, displayName)
	return err
}

// DeleteBlock removes a block and its subtree, then compacts sibling
// positions.
func (s Store) DeleteBlock(ctx context.Context, locator string) error {
	b, err := s.getBlock(ctx, locator)
	if err != nil {
		return err
	}
	if err := s.deleteSubtree(ctx, locator); err != nil {
		return err
	}
	return s.compactPositions(ctx, b.Parent)
}

func (s Store) deleteSubtree(ctx context.Context, locator string) error {
	kids, err := s.children(ctx, locator)
	if err != nil {
		return err
	}
	for _, k := range kids {
		if err := s.deleteSubtree(ctx, k.Locator); err != nil {
			return err
		}
	}
	_, err = s.DB.ExecContext(ctx, `DELETE FROM blocks WHERE locator=?`, locator)
	return err
}

func (s Store) compactPositions(ctx context.Context, parent string) error {
	kids, err := s.children(ctx, parent)
	if err != nil {
		return err
	}
	for i, k := range kids {
		if k.Position == i {
			continue
		}
		if _, err := s.DB.ExecContext(ctx, `UPDATE blocks SET position=? WHERE locator=?`, i, k.Locator); err != nil {
			return err
		}
	}
	return nil
}

// CopyBlockTree copies a block subtree under parent. The copy is placed
// right after the source when the parent is unchanged, otherwise
// appended. Copies always start out as unpublished drafts.
func (s Store) CopyBlockTree(ctx context.Context, locator, parent, nameSuffix string, newID func() string) (string, error) {
	src, err := s.getBlock(ctx, locator)
	if err != nil {
		return "", err
	}
	position := src.Position + 1
	if parent != src.Parent {
		var count int
		if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks WHERE parent=?`, parent).Scan(&count); err != nil {
			return "", err
		}
		position = count
	} else {
		// Shift later siblings to open a slot after the source.
		if _, err := s.DB.ExecContext(ctx,
			`UPDATE blocks SET position=position+1 WHERE parent=? AND position>=?`, parent, position); err != nil {
			return "", err
		}
	}
	newLocator := newID()
	highlights, _ := json.Marshal(src.Highlights)
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO blocks(locator,course_id,parent,category,position,display_name,visible_to_staff_only,release_date,highlights)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		newLocator, src.CourseID, parent, src.Category, position, src.DisplayName+nameSuffix,
		src.VisibleToStaffOnly, src.ReleaseDate, string(highlights))
	if err != nil {
		return "", err
	}
	kids, err := s.children(ctx, locator)
	if err != nil {
		return "", err
	}
	for _, k := range kids {
		if _, err := s.CopyBlockTree(ctx, k.Locator, newLocator, "", newID); err != nil {
			return "", err
		}
	}
	return newLocator, nil
}

// PublishBlock publishes a block and everything beneath it.
func (s Store) PublishBlock(ctx context.Context, locator string) error {
	if _, err := s.getBlock(ctx, locator); err != nil {
		return err
	}
	return s.publishSubtree(ctx, locator)
}

func (s Store) publishSubtree(ctx context.Context, locator string) error {
	if _, err := s.DB.ExecContext(ctx,
		`UPDATE blocks SET published=1, has_changes=0 WHERE locator=?`, locator); err != nil {
		return err
	}
	kids, err := s.children(ctx, locator)
	if err != nil {
		return err
	}
	for _, k := range kids {
		if err := s.publishSubtree(ctx, k.Locator); err != nil {
			return err
		}
	}
	return nil
}

// ConfigureBlock applies a metadata patch. Unknown keys are rejected so
// client typos surface instead of silently doing nothing.
func (s Store) ConfigureBlock(ctx context.Context, locator string, metadata map[string]any) error {
	if _, err := s.getBlock(ctx, locator); err != nil {
		return err
	}
	for key, value := range metadata {
		switch key {
		case "visible_to_staff_only":
			v, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value for visible_to_staff_only: %v", value)
			}
			if _, err := s.DB.ExecContext(ctx,
				`UPDATE blocks SET visible_to_staff_only=?, has_changes=1 WHERE locator=?`, v, locator); err != nil {
				return err
			}
		case "start":
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value for start: %v", value)
			}
			if _, err := s.DB.ExecContext(ctx,
				`UPDATE blocks SET release_date=?, has_changes=1 WHERE locator=?`, v, locator); err != nil {
				return err
			}
		default:
			return fmt.Errorf("invalid metadata key %q", key)
		}
	}
	return nil
}

// RenameBlock updates the display name and marks the block changed.
func (s Store) RenameBlock(ctx context.Context, locator, displayName string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE blocks SET display_name=?, has_changes=1 WHERE locator=?`, displayName, locator)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetOrder reorders the children of parent to match orderedIDs. A
// listed block that currently lives elsewhere is reparented, which is
// how cross-container moves arrive. Its old parent is compacted.
func (s Store) SetOrder(ctx context.Context, parent string, orderedIDs []string) error {
	kids, err := s.children(ctx, parent)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(kids))
	for _, k := range kids {
		known[k.Locator] = true
	}
	oldParents := map[string]bool{}
	for _, id := range orderedIDs {
		if known[id] {
			continue
		}
		b, err := s.getBlock(ctx, id)
		if err != nil {
			return fmt.Errorf("invalid child %s for parent %s", id, parent)
		}
		if _, err := s.DB.ExecContext(ctx, `UPDATE blocks SET parent=? WHERE locator=?`, parent, id); err != nil {
			return err
		}
		oldParents[b.Parent] = true
	}
	rank := make(map[string]int, len(orderedIDs))
	for i, id := range orderedIDs {
		rank[id] = i
	}
	// Unlisted children keep their relative order after the listed ones.
	next := len(orderedIDs)
	for _, k := range kids {
		if _, listed := rank[k.Locator]; !listed {
			rank[k.Locator] = next
			next++
		}
	}
	for id, pos := range rank {
		if _, err := s.DB.ExecContext(ctx, `UPDATE blocks SET position=? WHERE locator=?`, pos, id); err != nil {
			return err
		}
	}
	for old := range oldParents {
		if err := s.compactPositions(ctx, old); err != nil {
			return err
		}
	}
	return nil
}

// SetHighlights replaces the highlight list of a block.
func (s Store) SetHighlights(ctx context.Context, locator string, highlights []string) error {
	if highlights == nil {
		highlights = []string{}
	}
	data, err := json.Marshal(highlights)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE blocks SET highlights=?, has_changes=1 WHERE locator=?`, string(data), locator)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetClipboard stages the copied block. The clipboard holds one entry.
func (s Store) SetClipboard(ctx context.Context, content outline.ClipboardContent) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO clipboard(id,source_usage_key,category,display_name,source_course_id,copied_at)
		 VALUES (1,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET source_usage_key=excluded.source_usage_key, category=excluded.category,
		   display_name=excluded.display_name, source_course_id=excluded.source_course_id, copied_at=excluded.copied_at`,
		content.SourceUsageKey, string(content.Category), content.DisplayName, content.SourceCourseID, content.ContentTimestamp)
	return err
}

func (s Store) GetClipboard(ctx context.Context) (outline.ClipboardContent, error) {
	var (
		c        outline.ClipboardContent
		category string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT source_usage_key,category,display_name,source_course_id,copied_at FROM clipboard WHERE id=1`).
		Scan(&c.SourceUsageKey, &category, &c.DisplayName, &c.SourceCourseID, &c.ContentTimestamp)
	if err == sql.ErrNoRows {
		return c, ErrNoClipboard
	}
	c.Category = outline.Category(category)
	return c, err
}

// BuildItem assembles the outline item tree rooted at locator.
func (s Store) BuildItem(ctx context.Context, locator string) (outline.Item, error) {
	b, err := s.getBlock(ctx, locator)
	if err != nil {
		return outline.Item{}, err
	}
	siblings, err := s.children(ctx, b.Parent)
	if err != nil {
		return outline.Item{}, err
	}
	return s.buildItem(ctx, b, len(siblings))
}

func (s Store) buildItem(ctx context.Context, b blockRow, siblingCount int) (outline.Item, error) {
	it := outline.Item{
		ID:              b.Locator,
		DisplayName:     b.DisplayName,
		Category:        outline.Category(b.Category),
		Published:       b.Published,
		HasChanges:      b.HasChanges,
		VisibilityState: s.visibility(b),
		Highlights:      b.Highlights,
		Actions: outline.Actions{
			Deletable:     true,
			Draggable:     true,
			Duplicable:    true,
			ChildAddable:  outline.Category(b.Category) != outline.CategoryVertical,
			AllowMoveUp:   b.Position > 0,
			AllowMoveDown: b.Position < siblingCount-1,
		},
	}
	kids, err := s.children(ctx, b.Locator)
	if err != nil {
		return outline.Item{}, err
	}
	for _, k := range kids {
		child, err := s.buildItem(ctx, k, len(kids))
		if err != nil {
			return outline.Item{}, err
		}
		it.Children = append(it.Children, child)
	}
	return it, nil
}

func (s Store) visibility(b blockRow) outline.Visibility {
	if b.VisibleToStaffOnly {
		return outline.VisibilityStaffOnly
	}
	if b.Published && b.ReleaseDate != "" {
		if t, err := time.Parse(time.RFC3339, b.ReleaseDate); err == nil && !t.After(s.now()) {
			return outline.VisibilityLive
		}
	}
	return outline.VisibilityDefault
}

// BuildOutline assembles the full outline document for a course.
func (s Store) BuildOutline(ctx context.Context, courseID string) (outline.OutlineDocument, error) {
	c, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return outline.OutlineDocument{}, err
	}
	sections, err := s.children(ctx, courseID)
	if err != nil {
		return outline.OutlineDocument{}, err
	}
	doc := outline.OutlineDocument{
		CourseID:                      c.ID,
		CourseDisplayName:             c.DisplayName,
		CreatedOn:                     c.CreatedOn,
		ReleaseDate:                   c.ReleaseDate,
		CourseActions:                 outline.Actions{ChildAddable: true},
		HighlightsEnabledForMessaging: c.HighlightsEnabled,
		SelfPaced:                     c.SelfPaced,
	}
	for _, sec := range sections {
		it, err := s.buildItem(ctx, sec, len(sections))
		if err != nil {
			return outline.OutlineDocument{}, err
		}
		doc.Sections = append(doc.Sections, it)
	}
	return doc, nil
}

// LaunchChecks computes the pre-launch readiness report.
func (s Store) LaunchChecks(ctx context.Context, courseID string) ([]LaunchCheckRow, bool, error) {
	c, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, false, err
	}
	var sections, published int
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blocks WHERE course_id=? AND category='chapter'`, courseID).Scan(&sections); err != nil {
		return nil, false, err
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blocks WHERE course_id=? AND published=1`, courseID).Scan(&published); err != nil {
		return nil, false, err
	}
	checks := []LaunchCheckRow{
		{Name: "has_sections", Passed: sections > 0},
		{Name: "has_published_content", Passed: published > 0},
		{Name: "release_date_set", Passed: c.ReleaseDate != ""},
	}
	return checks, c.SelfPaced, nil
}

// LaunchCheckRow is one named readiness check.
type LaunchCheckRow struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}
