package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/privai-labs/privai-agent/internal/platform"
	"github.com/privai-labs/privai-agent/internal/state"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return logger.WithField("component", "test")
}

func testStore(t *testing.T) *state.Store {
	t.Helper()
	s := state.Open(filepath.Join(t.TempDir(), "state.db"), testLog())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNormalizeLabel(t *testing.T) {
	cases := []struct {
		click Click
		want  string
	}{
		{Click{AriaLabel: "  Post  "}, "post"},
		{Click{AriaDescription: "Share Now"}, "share now"},
		{Click{Text: "Start a post"}, "start a post"},
		{Click{AriaLabel: "Post", Text: "ignored"}, "post"},
		{Click{}, ""},
	}
	for _, c := range cases {
		if got := NormalizeLabel(c.click); got != c.want {
			t.Errorf("NormalizeLabel(%+v) = %q, want %q", c.click, got, c.want)
		}
	}
}

func TestClassifyPostBeforeComment(t *testing.T) {
	// "reply" is a post keyword on Twitter and a comment keyword on
	// LinkedIn; precedence is per-platform.
	if kind, ok := Classify(platform.Twitter, "reply"); !ok || kind != state.ActivityPost {
		t.Errorf("twitter reply = %v, %v", kind, ok)
	}
	if kind, ok := Classify(platform.LinkedIn, "reply to comment"); !ok || kind != state.ActivityComment {
		t.Errorf("linkedin reply = %v, %v", kind, ok)
	}
	if kind, ok := Classify(platform.LinkedIn, "comment"); !ok || kind != state.ActivityComment {
		t.Errorf("linkedin comment = %v, %v", kind, ok)
	}
	if _, ok := Classify(platform.LinkedIn, "like"); ok {
		t.Error("like must not classify")
	}
	if _, ok := Classify(platform.LinkedIn, ""); ok {
		t.Error("empty label must not classify")
	}
}

type fakeTranscriber struct {
	uploads []string
}

func (f *fakeTranscriber) Upload(_ context.Context, src string) {
	f.uploads = append(f.uploads, src)
}

func TestHandleClickRecordsPost(t *testing.T) {
	s := testStore(t)
	var streamed []state.Activity
	tr := &fakeTranscriber{}
	m := New(platform.LinkedIn, s, tr, func(a state.Activity) { streamed = append(streamed, a) }, testLog())

	m.HandleClick(context.Background(), Click{
		AriaLabel: "Post",
		Composer:  "Hello world\n",
		VideoSrc:  "https://cdn.example.com/v.mp4",
	})

	got, err := s.ListActivity(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 activity entry, got %d", len(got))
	}
	a := got[0]
	if a.Platform != platform.LinkedIn || a.Kind != state.ActivityPost || a.Text != "Hello world" {
		t.Errorf("recorded %+v", a)
	}
	if len(streamed) != 1 {
		t.Errorf("stream hook fired %d times", len(streamed))
	}
	if len(tr.uploads) != 1 || tr.uploads[0] != "https://cdn.example.com/v.mp4" {
		t.Errorf("video handoff = %v", tr.uploads)
	}
}

func TestHandleClickCommentSkipsVideo(t *testing.T) {
	s := testStore(t)
	tr := &fakeTranscriber{}
	m := New(platform.LinkedIn, s, tr, nil, testLog())

	m.HandleClick(context.Background(), Click{
		AriaLabel: "Comment",
		Composer:  "nice take",
		VideoSrc:  "https://cdn.example.com/v.mp4",
	})

	got, _ := s.ListActivity(10)
	if len(got) != 1 || got[0].Kind != state.ActivityComment {
		t.Fatalf("recorded %+v", got)
	}
	if len(tr.uploads) != 0 {
		t.Error("comment actions must not trigger video upload")
	}
}

func TestHandleClickIgnoresUnclassified(t *testing.T) {
	s := testStore(t)
	m := New(platform.LinkedIn, s, nil, nil, testLog())

	m.HandleClick(context.Background(), Click{AriaLabel: "Like"})
	m.HandleClick(context.Background(), Click{})

	if got, _ := s.ListActivity(10); len(got) != 0 {
		t.Errorf("unclassified clicks recorded: %+v", got)
	}
}

func seedConnected(t *testing.T, s *state.Store, p platform.Platform, st state.PlatformState) {
	t.Helper()
	ps := s.LoadPlatforms()
	ps[p] = st
	if err := s.SavePlatforms(ps); err != nil {
		t.Fatal(err)
	}
}

func TestGateRequiresFullState(t *testing.T) {
	s := testStore(t)

	attaches := 0
	g := NewGate(s, func(context.Context, platform.Platform) error {
		attaches++
		return nil
	}, testLog())
	ctx := context.Background()

	// monitor=true but no account id: partial state never authorizes.
	seedConnected(t, s, platform.LinkedIn, state.PlatformState{Connected: true, Monitor: true})
	if _, ok := g.Activate(ctx, "page-1", "www.linkedin.com"); ok {
		t.Error("partial state must not authorize monitoring")
	}

	// connected+accountId but monitor off.
	seedConnected(t, s, platform.LinkedIn, state.PlatformState{Connected: true, AccountID: "johndoe"})
	if _, ok := g.Activate(ctx, "page-1", "www.linkedin.com"); ok {
		t.Error("monitor=false must not authorize monitoring")
	}

	if attaches != 0 {
		t.Errorf("attach ran %d times", attaches)
	}
}

func TestGateAttachesOncePerPage(t *testing.T) {
	s := testStore(t)
	seedConnected(t, s, platform.LinkedIn, state.PlatformState{Connected: true, Monitor: true, AccountID: "johndoe"})

	attaches := 0
	g := NewGate(s, func(context.Context, platform.Platform) error {
		attaches++
		return nil
	}, testLog())
	ctx := context.Background()

	if p, ok := g.Activate(ctx, "page-1", "www.linkedin.com"); !ok || p != platform.LinkedIn {
		t.Fatalf("Activate = %v, %v", p, ok)
	}
	if _, ok := g.Activate(ctx, "page-1", "www.linkedin.com"); !ok {
		t.Fatal("second activation should still report attached")
	}
	if attaches != 1 {
		t.Errorf("attach ran %d times, want 1", attaches)
	}

	// A new page lifetime attaches again.
	g.Reset("page-1")
	g.Activate(ctx, "page-1", "www.linkedin.com")
	if attaches != 2 {
		t.Errorf("attach after reset ran %d times, want 2", attaches)
	}
}

// Two pages of the same platform latch independently: a connect tab
// opening next to a running monitor tab still gets its own click hook, and
// one page's navigation must not clear the other's latch.
func TestGateTracksPagesIndependently(t *testing.T) {
	s := testStore(t)
	seedConnected(t, s, platform.LinkedIn, state.PlatformState{Connected: true, Monitor: true, AccountID: "johndoe"})

	attaches := 0
	g := NewGate(s, func(context.Context, platform.Platform) error {
		attaches++
		return nil
	}, testLog())
	ctx := context.Background()

	if _, ok := g.Activate(ctx, "monitor-tab", "www.linkedin.com"); !ok {
		t.Fatal("monitor tab should attach")
	}
	if _, ok := g.Activate(ctx, "connect-tab", "www.linkedin.com"); !ok {
		t.Fatal("second page on the same platform should attach")
	}
	if attaches != 2 {
		t.Fatalf("attach ran %d times, want one per page", attaches)
	}

	// connect-tab navigates; monitor-tab's latch survives.
	g.Reset("connect-tab")
	if _, ok := g.Activate(ctx, "monitor-tab", "www.linkedin.com"); !ok {
		t.Fatal("monitor tab should still report attached")
	}
	if attaches != 2 {
		t.Errorf("reset of one page re-attached another: %d attaches", attaches)
	}
	g.Activate(ctx, "connect-tab", "www.linkedin.com")
	if attaches != 3 {
		t.Errorf("reset page should attach again, got %d attaches", attaches)
	}
}

func TestGateIgnoresUnsupportedHosts(t *testing.T) {
	s := testStore(t)
	g := NewGate(s, func(context.Context, platform.Platform) error {
		t.Fatal("attach must not run for unsupported hosts")
		return nil
	}, testLog())

	if _, ok := g.Activate(context.Background(), "page-1", "news.ycombinator.com"); ok {
		t.Error("unsupported host authorized")
	}
}

// End-to-end: a connected-and-monitored LinkedIn page captures a labeled
// "Post" click with its composer snapshot.
func TestGateAndMonitorEndToEnd(t *testing.T) {
	s := testStore(t)
	seedConnected(t, s, platform.LinkedIn, state.PlatformState{Connected: true, Monitor: true, AccountID: "johndoe"})

	var mon *Monitor
	g := NewGate(s, func(_ context.Context, p platform.Platform) error {
		mon = New(p, s, nil, nil, testLog())
		return nil
	}, testLog())

	ctx := context.Background()
	if _, ok := g.Activate(ctx, "page-1", "www.linkedin.com"); !ok {
		t.Fatal("expected activation on www.linkedin.com")
	}

	mon.HandleClick(ctx, Click{AriaLabel: "Post", Composer: "Hello world"})

	got, err := s.ListActivity(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	a := got[0]
	if a.Platform != platform.LinkedIn || a.Kind != state.ActivityPost || a.Text != "Hello world" {
		t.Errorf("captured %+v", a)
	}
}
