package novelty

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qepting91/postwatch/internal/domain"
	"github.com/qepting91/postwatch/internal/identity"
	"github.com/qepting91/postwatch/internal/storage"
)

type env struct {
	dir     string
	history *storage.JSONHistory
	daily   *storage.DailyStore
}

// newEnv loads the stores from dir the way a fresh process would.
func newEnv(t *testing.T, dir string) env {
	t.Helper()
	h := storage.NewJSONHistory(filepath.Join(dir, "history.json"))
	if _, err := h.Load(); err != nil {
		t.Fatalf("load history: %v", err)
	}
	return env{dir: dir, history: h, daily: storage.NewDailyStore(dir)}
}

func (e env) resolver(at time.Time) *Resolver {
	return New(e.history, e.daily, WithClock(func() time.Time { return at }), WithLocation(time.UTC))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func batch() []domain.SourceResult {
	return []domain.SourceResult{
		{URL: "https://site/u/1", Label: "alice", Items: []domain.ScrapedItem{
			{Title: "hello", Link: "https://site/post/42", SourceLabel: "alice"},
			{Title: "world", Link: "https://site/post/43", SourceLabel: "alice"},
		}},
		{URL: "https://site/u/2", Label: "bob", Items: []domain.ScrapedItem{
			{Title: "bob's post", Link: "https://site/post/77", SourceLabel: "bob"},
		}},
	}
}

func TestResolveBootstrapAllNovel(t *testing.T) {
	e := newEnv(t, t.TempDir())
	res, err := e.resolver(day(2025, 6, 1)).Resolve(batch())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Novel) != 3 {
		t.Fatalf("expected whole batch novel on first run, got %d", len(res.Novel))
	}
	want := []string{"https://site/post/42", "https://site/post/43", "https://site/post/77"}
	for i, link := range want {
		if res.Novel[i].Link != link {
			t.Errorf("novel[%d] = %s, want %s", i, res.Novel[i].Link, link)
		}
	}
	if res.NovelBySource["https://site/u/1"] != 2 || res.NovelBySource["https://site/u/2"] != 1 {
		t.Errorf("unexpected per-source counts %v", res.NovelBySource)
	}
	if res.Day != "2025-06-01" {
		t.Errorf("unexpected day %s", res.Day)
	}
}

func TestResolveIdempotent(t *testing.T) {
	dir := t.TempDir()
	first, err := newEnv(t, dir).resolver(day(2025, 6, 1)).Resolve(batch())
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Novel) == 0 {
		t.Fatal("first run should find novel items")
	}
	before, err := os.ReadFile(filepath.Join(dir, "history.json"))
	if err != nil {
		t.Fatal(err)
	}

	second, err := newEnv(t, dir).resolver(day(2025, 6, 1)).Resolve(batch())
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Novel) != 0 {
		t.Errorf("second run should find nothing, got %+v", second.Novel)
	}
	after, err := os.ReadFile(filepath.Join(dir, "history.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("history changed on a run with no novel items")
	}

	bucket, _ := storage.NewDailyStore(dir).Load("2025-06-01")
	if len(bucket) != 3 {
		t.Errorf("expected 3 bucket entries after two runs, got %d", len(bucket))
	}
}

func TestResolveAtMostOnceAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	link := "https://site/post/42"
	seen := 0
	for i := 0; i < 5; i++ {
		items := []domain.SourceResult{{URL: "https://site/u/1", Label: "alice", Items: []domain.ScrapedItem{
			// Title drifts between runs; identity must not.
			{Title: "hello v" + string(rune('0'+i)), Link: link},
		}}}
		res, err := newEnv(t, dir).resolver(day(2025, 6, 1+i)).Resolve(items)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		seen += len(res.Novel)
		if i == 0 && len(res.Novel) != 1 {
			t.Fatalf("first run should report the link")
		}
	}
	if seen != 1 {
		t.Errorf("link reported %d times, want exactly once", seen)
	}
}

func TestResolveDayPartitioning(t *testing.T) {
	dir := t.TempDir()
	if _, err := newEnv(t, dir).resolver(day(2025, 6, 1)).Resolve(batch()); err != nil {
		t.Fatal(err)
	}
	if _, err := newEnv(t, dir).resolver(day(2025, 6, 2)).Resolve(batch()); err != nil {
		t.Fatal(err)
	}

	daily := storage.NewDailyStore(dir)
	d1, _ := daily.Load("2025-06-01")
	d2, _ := daily.Load("2025-06-02")
	if len(d1) != 3 {
		t.Errorf("expected 3 entries on 2025-06-01, got %d", len(d1))
	}
	if len(d2) != 0 {
		t.Errorf("re-observed items leaked into 2025-06-02: %+v", d2)
	}
	days, _ := daily.Days()
	if len(days) != 1 {
		t.Errorf("expected one bucket on disk, got %v", days)
	}
}

func TestResolveSameLinkTwoSources(t *testing.T) {
	e := newEnv(t, t.TempDir())
	in := []domain.SourceResult{
		{URL: "https://site/u/1", Label: "alice", Items: []domain.ScrapedItem{{Title: "shared", Link: "https://site/post/1"}}},
		{URL: "https://site/u/2", Label: "bob", Items: []domain.ScrapedItem{{Title: "shared again", Link: "https://site/post/1"}}},
	}
	res, err := e.resolver(day(2025, 6, 1)).Resolve(in)
	if err != nil {
		t.Fatalf("duplicate link across sources must not fail: %v", err)
	}
	if len(res.Novel) != 1 || res.Novel[0].Source != "alice" {
		t.Errorf("first occurrence should win, got %+v", res.Novel)
	}
}

func TestResolveIgnoresObservedAsToday(t *testing.T) {
	e := newEnv(t, t.TempDir())
	in := []domain.SourceResult{{URL: "https://site/u/1", Label: "alice", Items: []domain.ScrapedItem{
		{Title: "old looking", Link: "https://site/post/9", ObservedAsToday: false},
	}}}
	res, err := e.resolver(day(2025, 6, 1)).Resolve(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Novel) != 1 {
		t.Fatal("freshness flag must not gate novelty")
	}
	rec := e.history.Len()
	if rec != 1 {
		t.Errorf("expected 1 history record, got %d", rec)
	}
}

func TestResolveSkipsEmptyLink(t *testing.T) {
	e := newEnv(t, t.TempDir())
	in := []domain.SourceResult{{URL: "https://site/u/1", Items: []domain.ScrapedItem{{Title: "no link"}}}}
	res, err := e.resolver(day(2025, 6, 1)).Resolve(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Novel) != 0 {
		t.Errorf("item without link must not be recorded")
	}
}

type failingHistory struct {
	*storage.JSONHistory
}

func (failingHistory) Persist() error { return domain.ErrStoragePersist }

func TestResolvePersistFailureRedetects(t *testing.T) {
	dir := t.TempDir()
	e := newEnv(t, dir)
	broken := New(failingHistory{e.history}, e.daily,
		WithClock(func() time.Time { return day(2025, 6, 1) }), WithLocation(time.UTC))

	_, err := broken.Resolve(batch())
	if !errors.Is(err, domain.ErrStoragePersist) {
		t.Fatalf("expected ErrStoragePersist, got %v", err)
	}
	// Bucket must not be written when history was not.
	if days, _ := e.daily.Days(); len(days) != 0 {
		t.Errorf("bucket written despite history failure: %v", days)
	}

	res, err := newEnv(t, dir).resolver(day(2025, 6, 1)).Resolve(batch())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Novel) != 3 {
		t.Errorf("items should be re-detected after a failed persist, got %d", len(res.Novel))
	}
}

type failingBuckets struct{}

func (failingBuckets) Append(domain.Day, []domain.Entry) error { return domain.ErrStoragePersist }

func TestResolveBucketFailureSurfaces(t *testing.T) {
	e := newEnv(t, t.TempDir())
	r := New(e.history, failingBuckets{}, WithClock(func() time.Time { return day(2025, 6, 1) }))
	if _, err := r.Resolve(batch()); !errors.Is(err, domain.ErrStoragePersist) {
		t.Fatalf("expected bucket failure to surface, got %v", err)
	}
}

type dupHistory struct{}

func (dupHistory) Contains(domain.Identity) bool { return false }
func (dupHistory) Insert(id domain.Identity, _ domain.HistoryRecord) error {
	return domain.ErrDuplicateIdentity
}
func (dupHistory) Persist() error { return nil }

func TestResolveDuplicateIdentityIsFatal(t *testing.T) {
	r := New(dupHistory{}, failingBuckets{})
	_, err := r.Resolve(batch())
	if !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
}

func TestResolveRecordsFirstSeenDay(t *testing.T) {
	e := newEnv(t, t.TempDir())
	shanghai := time.FixedZone("CST", 8*60*60)
	// 23:30 UTC on the 1st is the 2nd in UTC+8.
	at := time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC)
	r := New(e.history, e.daily, WithClock(func() time.Time { return at }), WithLocation(shanghai))

	res, err := r.Resolve(batch())
	if err != nil {
		t.Fatal(err)
	}
	if res.Day != "2025-06-02" {
		t.Errorf("expected run day 2025-06-02, got %s", res.Day)
	}
	records, _ := storage.NewJSONHistory(filepath.Join(e.dir, "history.json")).Load()
	rec := records[identity.Fingerprint("https://site/post/42")]
	if rec.FirstSeenDay != "2025-06-02" {
		t.Errorf("first_seen_day = %s, want 2025-06-02", rec.FirstSeenDay)
	}
}
