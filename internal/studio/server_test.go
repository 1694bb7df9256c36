package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"courseline/internal/db"
	"courseline/internal/engine"
	"courseline/internal/migrate"
	"courseline/internal/outline"
	courselinesdk "courseline/sdk/go"
)

const testCourse = "course-v1:acme+cl101+2026"

type testServer struct {
	URL   string
	close func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "courseline.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := Store{DB: conn}
	if err := store.EnsureCourse(context.Background(), testCourse, "Demo Course"); err != nil {
		t.Fatalf("ensure course: %v", err)
	}
	handler, err := New(Config{Store: store, Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL: "http://" + ln.Addr().String(),
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func newTestEngine(t *testing.T, srv *testServer, token string) engine.Engine {
	t.Helper()
	client := courselinesdk.New(srv.URL)
	client.BearerToken = token
	e := engine.New(testCourse, client, nil)
	t.Cleanup(e.Close)
	return e
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestOutlinePublishLifecycle(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	e := newTestEngine(t, srv, "")
	ctx := context.Background()

	if err := e.FetchOutlineIndex(ctx); err != nil {
		t.Fatalf("fetch outline: %v", err)
	}
	if snap := e.Store.Snapshot(); snap.CourseDisplayName != "Demo Course" || len(snap.Sections) != 0 {
		t.Fatalf("fresh course snapshot: %+v", snap)
	}

	secID, err := e.AddSection(ctx, "Week 1")
	if err != nil {
		t.Fatalf("add section: %v", err)
	}
	subID, err := e.AddSubsection(ctx, secID, "Lesson 1")
	if err != nil {
		t.Fatalf("add subsection: %v", err)
	}
	if _, err := e.AddUnit(ctx, secID, subID, "Intro"); err != nil {
		t.Fatalf("add unit: %v", err)
	}

	sec, ok := e.Store.Section(secID)
	if !ok {
		t.Fatalf("section %s missing from store", secID)
	}
	if sec.Published || !sec.HasChanges {
		t.Fatalf("fresh section not a draft: %+v", sec)
	}
	if outline.DeriveStatus(sec) != outline.StatusDraft {
		t.Fatalf("status: %s", outline.DeriveStatus(sec))
	}

	if err := e.PublishItem(ctx, secID, secID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	sec, _ = e.Store.Section(secID)
	if !sec.Published || sec.HasChanges {
		t.Fatalf("section not published: %+v", sec)
	}
	if len(sec.Children) != 1 || !sec.Children[0].Published {
		t.Fatalf("publish did not cascade to subsection: %+v", sec.Children)
	}
	if outline.DeriveStatus(sec) != outline.StatusPublishedNotLive {
		t.Fatalf("status after publish: %s", outline.DeriveStatus(sec))
	}
	// Everything is published, so a bulk publish has nothing to do.
	if ids := e.Store.PublishableItemIDs(); len(ids) != 0 {
		t.Fatalf("publishable after full publish: %v", ids)
	}
}

func TestRenameAndStaffLockRoundTrip(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	e := newTestEngine(t, srv, "")
	ctx := context.Background()

	secID, err := e.AddSection(ctx, "Week 1")
	if err != nil {
		t.Fatalf("add section: %v", err)
	}
	if err := e.EditDisplayName(ctx, secID, secID, "Week One"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := e.SetStaffLock(ctx, secID, secID, true); err != nil {
		t.Fatalf("staff lock: %v", err)
	}
	sec, _ := e.Store.Section(secID)
	if sec.DisplayName != "Week One" {
		t.Fatalf("display name: %q", sec.DisplayName)
	}
	if sec.VisibilityState != outline.VisibilityStaffOnly {
		t.Fatalf("visibility: %q", sec.VisibilityState)
	}
}

func TestDuplicatePlacesCopyAfterSource(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	e := newTestEngine(t, srv, "")
	ctx := context.Background()

	s1, err := e.AddSection(ctx, "Week 1")
	if err != nil {
		t.Fatalf("add s1: %v", err)
	}
	if _, err := e.AddSection(ctx, "Week 2"); err != nil {
		t.Fatalf("add s2: %v", err)
	}
	copied, err := e.DuplicateSection(ctx, s1)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	sections := e.Store.Sections()
	if len(sections) != 3 || sections[1].ID != copied {
		ids := make([]string, len(sections))
		for i, s := range sections {
			ids[i] = s.ID
		}
		t.Fatalf("copy not placed after source: %v", ids)
	}
	if sections[1].DisplayName != "Week 1 (Copy)" {
		t.Fatalf("copy name: %q", sections[1].DisplayName)
	}
}

func TestCopyPasteAcrossSections(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	e := newTestEngine(t, srv, "")
	ctx := context.Background()

	s1, _ := e.AddSection(ctx, "Week 1")
	sub1, _ := e.AddSubsection(ctx, s1, "Lesson 1")
	unitID, err := e.AddUnit(ctx, s1, sub1, "Intro")
	if err != nil {
		t.Fatalf("add unit: %v", err)
	}
	s2, _ := e.AddSection(ctx, "Week 2")
	sub2, err := e.AddSubsection(ctx, s2, "Lesson 2")
	if err != nil {
		t.Fatalf("add subsection 2: %v", err)
	}

	if err := e.CopyToClipboard(ctx, unitID); err != nil {
		t.Fatalf("copy: %v", err)
	}
	snap := e.Store.Snapshot()
	if snap.Clipboard.SourceUsageKey != unitID {
		t.Fatalf("clipboard: %+v", snap.Clipboard)
	}

	if _, err := e.PasteInto(ctx, s2, sub2); err != nil {
		t.Fatalf("paste: %v", err)
	}
	sec2, _ := e.Store.Section(s2)
	if len(sec2.Children) != 1 || len(sec2.Children[0].Children) != 1 {
		t.Fatalf("pasted unit missing: %+v", sec2)
	}
	pasted := sec2.Children[0].Children[0]
	if pasted.DisplayName != "Intro" || pasted.ID == unitID {
		t.Fatalf("pasted unit: %+v", pasted)
	}
}

func TestReorderSectionsRoundTrip(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	e := newTestEngine(t, srv, "")
	ctx := context.Background()

	s1, _ := e.AddSection(ctx, "A")
	s2, _ := e.AddSection(ctx, "B")
	s3, _ := e.AddSection(ctx, "C")
	if err := e.ReorderSections(ctx, []string{s3, s1, s2}, func() {}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	// A second engine sees the persisted order.
	other := newTestEngine(t, srv, "")
	if err := other.FetchOutlineIndex(ctx); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	sections := other.Store.Sections()
	got := make([]string, len(sections))
	for i, s := range sections {
		got[i] = s.ID
	}
	want := []string{s3, s1, s2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestMoveUnitAcrossSections(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	e := newTestEngine(t, srv, "")
	ctx := context.Background()

	s1, _ := e.AddSection(ctx, "Week 1")
	sub1, _ := e.AddSubsection(ctx, s1, "Lesson 1")
	u1, _ := e.AddUnit(ctx, s1, sub1, "Intro")
	s2, _ := e.AddSection(ctx, "Week 2")
	sub2, _ := e.AddSubsection(ctx, s2, "Lesson 2")
	u2, err := e.AddUnit(ctx, s2, sub2, "Recap")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Pull u1 out of sub1 and drop it before u2 in sub2.
	if err := e.ReorderUnits(ctx, s2, s1, sub2, []string{u1, u2}, func() {}); err != nil {
		t.Fatalf("move unit: %v", err)
	}
	sec1, _ := e.Store.Section(s1)
	if len(sec1.Children[0].Children) != 0 {
		t.Fatalf("unit still in source subsection: %+v", sec1.Children[0].Children)
	}
	sec2, _ := e.Store.Section(s2)
	units := sec2.Children[0].Children
	if len(units) != 2 || units[0].ID != u1 || units[1].ID != u2 {
		t.Fatalf("destination units: %+v", units)
	}
}

func TestForbiddenWithoutToken(t *testing.T) {
	const secret = "test-secret"
	srv := newTestServer(t, AuthConfig{JWTSecret: secret})

	e := newTestEngine(t, srv, "")
	if err := e.FetchOutlineIndex(context.Background()); err == nil {
		t.Fatalf("unauthenticated fetch succeeded")
	}
	cs := e.Store.Channel(outline.ChannelOutlineIndex)
	if cs.Status != outline.RequestDenied {
		t.Fatalf("channel status: %q", cs.Status)
	}
	if cs.Err == nil || cs.Err.Dismissible {
		t.Fatalf("denied error should not be dismissible: %+v", cs.Err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "author",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	authed := newTestEngine(t, srv, token)
	if err := authed.FetchOutlineIndex(context.Background()); err != nil {
		t.Fatalf("authenticated fetch: %v", err)
	}
}

func TestCreateItemValidation(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})

	res, data := doJSON(t, http.MethodPost, srv.URL+"/v0/items", map[string]any{
		"parent_locator": testCourse,
		"category":       "video",
		"display_name":   "nope",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid category status %d: %s", res.StatusCode, string(data))
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error.Code != "bad_request" {
		t.Fatalf("error envelope: %s", string(data))
	}

	res, data = doJSON(t, http.MethodPost, srv.URL+"/v0/items", map[string]any{
		"parent_locator": "block-v1:chapter+missing",
		"category":       "sequential",
		"display_name":   "orphan",
	})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing parent status %d: %s", res.StatusCode, string(data))
	}
}

func TestLaunchReport(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	e := newTestEngine(t, srv, "")
	ctx := context.Background()

	report, err := e.FetchCourseLaunch(ctx)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if len(report.Checks) != 3 {
		t.Fatalf("checks: %+v", report.Checks)
	}
	for _, c := range report.Checks {
		if c.Passed {
			t.Fatalf("empty course passed check %s", c.Name)
		}
	}

	secID, _ := e.AddSection(ctx, "Week 1")
	if err := e.PublishItem(ctx, secID, secID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	report, err = e.FetchCourseLaunch(ctx)
	if err != nil {
		t.Fatalf("second launch: %v", err)
	}
	passed := 0
	for _, c := range report.Checks {
		if c.Passed {
			passed++
		}
	}
	if passed != 2 {
		t.Fatalf("expected has_sections and has_published_content to pass, got %+v", report.Checks)
	}
	snap := e.Store.Snapshot()
	if snap.StatusBar.Checklist.CompletedCourseLaunchChecks != 2 {
		t.Fatalf("checklist: %+v", snap.StatusBar.Checklist)
	}
}
