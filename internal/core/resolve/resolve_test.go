package resolve

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/Dropzone/internal/adapter"
	"github.com/Ning0612/Dropzone/internal/domain"
	"github.com/Ning0612/Dropzone/internal/metrics"
	"github.com/Ning0612/Dropzone/internal/progress"
)

// mockFile is an in-memory file entry
type mockFile struct {
	name string
	size int64
	err  error
}

func (f *mockFile) Name() string { return f.name }
func (f *mockFile) IsDir() bool  { return false }

func (f *mockFile) File(ctx context.Context) (domain.FileCandidate, error) {
	if f.err != nil {
		return domain.FileCandidate{}, f.err
	}
	return domain.NewFileCandidate(f.name, "text/plain", f.size), nil
}

// mockDir is an in-memory directory whose listing is served in fixed pages.
// It records how often it was listed and whether listing calls overlapped.
type mockDir struct {
	name    string
	pages   [][]adapter.Entry
	failAt  int // page index that fails; -1 for none
	failErr error
	delay   time.Duration

	calls      atomic.Int32
	inFlight   atomic.Int32
	overlapped atomic.Bool
}

func dir(name string, pages ...[]adapter.Entry) *mockDir {
	return &mockDir{name: name, pages: pages, failAt: -1}
}

func page(entries ...adapter.Entry) []adapter.Entry { return entries }

func file(name string) *mockFile { return &mockFile{name: name, size: 1} }

func (d *mockDir) Name() string { return d.name }
func (d *mockDir) IsDir() bool  { return true }

func (d *mockDir) CreateReader() adapter.DirectoryReader {
	return &mockReader{dir: d}
}

type mockReader struct {
	dir  *mockDir
	next int
}

func (r *mockReader) ReadEntries(ctx context.Context) ([]adapter.Entry, error) {
	d := r.dir
	d.calls.Add(1)
	if d.inFlight.Add(1) > 1 {
		d.overlapped.Store(true)
	}
	defer d.inFlight.Add(-1)

	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if r.next == d.failAt {
		return nil, d.failErr
	}
	if r.next >= len(d.pages) {
		r.next++
		return nil, nil
	}
	p := d.pages[r.next]
	r.next++
	return p, nil
}

func names(files []domain.FileCandidate) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func entries(es ...adapter.Entry) Payload {
	items := make([]Item, len(es))
	for i, e := range es {
		items[i] = EntryItem(e)
	}
	return Payload{Items: items, EntriesSupported: true}
}

func TestResolve_FileAndDirectory(t *testing.T) {
	d := dir("docs", page(file("a.txt"), file("b.txt")))
	payload := entries(file("top.txt"), d)

	files, err := NewDefaultResolver().Resolve(context.Background(), payload, true)

	require.NoError(t, err)
	assert.Equal(t, []string{"top.txt", "a.txt", "b.txt"}, names(files))
	assert.Equal(t, "docs/a.txt", files[1].Path)
}

func TestResolve_EmptyDirectory(t *testing.T) {
	files, err := NewDefaultResolver().Resolve(context.Background(), entries(dir("empty")), true)

	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestResolve_StopsAtFirstEmptyPage(t *testing.T) {
	d := dir("one", page(file("only.txt")))

	files, err := NewDefaultResolver().Resolve(context.Background(), entries(d), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"only.txt"}, names(files))
	assert.Equal(t, int32(2), d.calls.Load(), "one page then one empty page, no further listing")
}

func TestResolve_ReadsEveryPage(t *testing.T) {
	d := dir("paged",
		page(file("1.txt"), file("2.txt")),
		page(file("3.txt")),
		page(file("4.txt"), file("5.txt")),
	)

	files, err := NewDefaultResolver().Resolve(context.Background(), entries(d), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"1.txt", "2.txt", "3.txt", "4.txt", "5.txt"}, names(files))
	assert.Equal(t, int32(4), d.calls.Load())
}

func TestResolve_NestedOrder(t *testing.T) {
	// root/
	//   a.txt
	//   sub1/ (x.txt, deep/ (z.txt))
	//   b.txt          (second page)
	//   sub2/ (y.txt)  (second page)
	deep := dir("deep", page(file("z.txt")))
	sub1 := dir("sub1", page(file("x.txt"), deep))
	sub2 := dir("sub2", page(file("y.txt")))
	root := dir("root", page(file("a.txt"), sub1), page(file("b.txt"), sub2))
	other := dir("other", page(file("o.txt")))

	payload := entries(root, file("top1.txt"), other, file("top2.txt"))

	files, err := NewDefaultResolver().Resolve(context.Background(), payload, true)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"top1.txt", "top2.txt",
		"a.txt", "b.txt", "x.txt", "z.txt", "y.txt",
		"o.txt",
	}, names(files))
	assert.Equal(t, "root/sub1/deep/z.txt", files[5].Path)
}

func TestResolve_OrderIndependentOfLatency(t *testing.T) {
	slow := dir("slow", page(file("s1.txt"), file("s2.txt")))
	slow.delay = 30 * time.Millisecond
	fast := dir("fast", page(file("f1.txt")))

	files, err := NewDefaultResolver().Resolve(context.Background(), entries(slow, fast), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"s1.txt", "s2.txt", "f1.txt"}, names(files))
}

func TestResolve_MaterializationFailureDropsOnlyThatEntry(t *testing.T) {
	broken := &mockFile{name: "broken.txt", err: errors.New("read failed")}
	sibling := dir("sibling", page(file("ok2.txt")))
	d := dir("d", page(file("ok1.txt"), broken, file("ok3.txt")))

	var dropped []string
	var mu sync.Mutex
	reporter := progress.NewCallbackReporter(func(u progress.Update) {
		if u.Type == progress.UpdateDropped {
			mu.Lock()
			dropped = append(dropped, u.Path)
			mu.Unlock()
		}
	})

	files, err := NewDefaultResolver(WithReporter(reporter)).Resolve(context.Background(), entries(d, sibling), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"ok1.txt", "ok3.txt", "ok2.txt"}, names(files))
	assert.Equal(t, []string{"d/broken.txt"}, dropped)
}

func TestResolve_ListingFailureKeepsCollected(t *testing.T) {
	d := dir("d", page(file("first.txt")), page(file("never.txt")))
	d.failAt = 1
	d.failErr = domain.ErrPermissionDenied
	sibling := dir("sibling", page(file("s.txt")))

	files, err := NewDefaultResolver().Resolve(context.Background(), entries(d, sibling), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"first.txt", "s.txt"}, names(files))
	assert.Equal(t, int32(2), d.calls.Load())
}

func TestResolve_NoConcurrentListingOfOneDirectory(t *testing.T) {
	subs := make([]adapter.Entry, 0, 10)
	for i := 0; i < 10; i++ {
		s := dir("s", page(file("f.txt")))
		s.delay = time.Millisecond
		subs = append(subs, s)
	}
	root := dir("root", page(subs[:5]...), page(subs[5:]...))
	root.delay = 2 * time.Millisecond

	files, err := NewDefaultResolver().Resolve(context.Background(), entries(root), true)

	require.NoError(t, err)
	assert.Len(t, files, 10)
	assert.False(t, root.overlapped.Load())
	for _, s := range subs {
		assert.False(t, s.(*mockDir).overlapped.Load())
	}
}

func TestResolve_ExpansionOffIgnoresDirectories(t *testing.T) {
	d := dir("d", page(file("inside.txt")))
	payload := entries(file("a.txt"), d, file("b.txt"))

	files, err := NewDefaultResolver().Resolve(context.Background(), payload, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names(files))
	assert.Zero(t, d.calls.Load())
}

func TestResolve_NoEntrySupportIgnoresDirectories(t *testing.T) {
	d := dir("d", page(file("inside.txt")))
	c := domain.NewFileCandidate("flat.txt", "text/plain", 3)
	payload := Payload{Items: []Item{FileItem(c), EntryItem(d)}}

	files, err := NewDefaultResolver().Resolve(context.Background(), payload, true)

	require.NoError(t, err)
	assert.Equal(t, []string{"flat.txt"}, names(files))
	assert.Zero(t, d.calls.Load())
}

func TestResolve_Cancelled(t *testing.T) {
	d := dir("slow", page(file("a.txt")))
	d.delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	files, err := NewDefaultResolver().Resolve(ctx, entries(d), true)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, files)
}

func TestResolve_MaxConcurrentListings(t *testing.T) {
	var inFlight, peak atomic.Int32
	subs := make([]adapter.Entry, 0, 8)
	for i := 0; i < 8; i++ {
		subs = append(subs, &countingDir{mockDir: dir("s", page(file("f.txt"))), inFlight: &inFlight, peak: &peak})
	}

	files, err := NewDefaultResolver(WithMaxConcurrentListings(2)).Resolve(context.Background(), entries(subs...), true)

	require.NoError(t, err)
	assert.Len(t, files, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

// countingDir tracks listing concurrency across directories
type countingDir struct {
	*mockDir
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (d *countingDir) CreateReader() adapter.DirectoryReader {
	return &countingReader{inner: d.mockDir.CreateReader(), d: d}
}

type countingReader struct {
	inner adapter.DirectoryReader
	d     *countingDir
}

func (r *countingReader) ReadEntries(ctx context.Context) ([]adapter.Entry, error) {
	n := r.d.inFlight.Add(1)
	defer r.d.inFlight.Add(-1)
	for {
		p := r.d.peak.Load()
		if n <= p || r.d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return r.inner.ReadEntries(ctx)
}

func TestResolve_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	broken := &mockFile{name: "broken", err: domain.ErrNotFound}
	d := dir("d", page(file("a.txt"), broken, dir("e")))

	_, err := NewDefaultResolver(WithMetrics(rec)).Resolve(context.Background(), entries(d), true)
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, reg, "dropzone_directories_expanded_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "dropzone_entries_dropped_total"))
}

func counterValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()

	families, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// closingDir hands out readers that report Close back to a shared tally
type closingDir struct {
	*mockDir
	created *atomic.Int32
	closed  *atomic.Int32
}

func (d *closingDir) CreateReader() adapter.DirectoryReader {
	d.created.Add(1)
	return &closingReader{DirectoryReader: d.mockDir.CreateReader(), closed: d.closed}
}

type closingReader struct {
	adapter.DirectoryReader
	closed *atomic.Int32
	once   sync.Once
}

func (r *closingReader) Close() error {
	r.once.Do(func() { r.closed.Add(1) })
	return nil
}

func TestResolve_ClosesReaders(t *testing.T) {
	var created, closed atomic.Int32
	wrap := func(d *mockDir) *closingDir { return &closingDir{mockDir: d, created: &created, closed: &closed} }

	broken := dir("broken", page(file("x.txt")))
	broken.failAt = 0
	broken.failErr = domain.ErrNotFound
	nested := wrap(dir("inner", page(file("b.txt"))))
	outer := wrap(dir("outer", page(file("a.txt"), nested)))

	files, err := NewDefaultResolver().Resolve(context.Background(), entries(outer, wrap(broken)), true)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names(files))
	assert.Equal(t, int32(3), created.Load())
	assert.Equal(t, created.Load(), closed.Load())
}

func TestResolve_ClosesReadersWhenCancelledWaitingForSlot(t *testing.T) {
	var created, closed atomic.Int32
	subs := make([]adapter.Entry, 0, 4)
	for i := 0; i < 4; i++ {
		subs = append(subs, &closingDir{mockDir: dir("s", page(file("f.txt"))), created: &created, closed: &closed})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefaultResolver(WithMaxConcurrentListings(1)).Resolve(ctx, entries(subs...), true)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Greater(t, created.Load(), int32(0))
	assert.Equal(t, created.Load(), closed.Load(), "every created reader is closed")
}
