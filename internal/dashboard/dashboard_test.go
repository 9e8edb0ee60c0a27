package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pbaille/thoughtboard/internal/domain"
	"github.com/pbaille/thoughtboard/internal/render"
	"github.com/pbaille/thoughtboard/internal/thoughts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu          sync.Mutex
	latest      *domain.Thought
	latestErr   error
	all         []domain.Thought
	allErr      error
	latestCalls int
	allCalls    int
}

func (f *fakeSource) Latest(ctx context.Context) (*domain.Thought, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls++
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	if f.latest == nil {
		return nil, thoughts.ErrNotFound
	}
	t := *f.latest
	return &t, nil
}

func (f *fakeSource) All(ctx context.Context) ([]domain.Thought, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allCalls++
	if f.allErr != nil {
		return nil, f.allErr
	}
	return append([]domain.Thought(nil), f.all...), nil
}

func (f *fakeSource) push(t domain.Thought) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all = append(f.all, t)
	f.latest = &t
}

func thought(id, text string) domain.Thought {
	return domain.Thought{ID: domain.ID(id), Thought: text, Input: "prev-" + text, Timestamp: "2025-01-19 18:30:00"}
}

func renders(p *Page, id string) int {
	r, _ := p.Region(id)
	return r.Renders
}

func historyTexts(content string) []string {
	var out []string
	for _, part := range strings.Split(content, `<div class="text-lg mb-3">`)[1:] {
		out = append(out, part[:strings.Index(part, "<")])
	}
	return out
}

func TestFetchLatestNotFound(t *testing.T) {
	page := NewPage()
	page.Set(RegionLastUpdate, "Updated: earlier")
	d := New(&fakeSource{}, page, Options{})

	d.FetchLatest(context.Background())

	assert.Equal(t, render.Empty(), page.Content(RegionLatest))
	assert.Equal(t, "", page.Content(RegionLastUpdate))
	assert.NotContains(t, page.Content(RegionLatest), "Failed")
}

func TestFetchLatestServerError(t *testing.T) {
	page := NewPage()
	d := New(&fakeSource{latestErr: &thoughts.StatusError{Code: 500}}, page, Options{})

	d.FetchLatest(context.Background())

	content := page.Content(RegionLatest)
	assert.Contains(t, content, "Failed to fetch latest thought")
	assert.Contains(t, content, "500")
	assert.NotContains(t, content, "No thoughts generated yet")
	assert.Equal(t, 0, renders(page, RegionHistory))
}

func TestFetchLatestSuccess(t *testing.T) {
	page := NewPage()
	th := thought("1", "hello")
	d := New(&fakeSource{latest: &th}, page, Options{})

	d.FetchLatest(context.Background())

	assert.Equal(t, render.Latest(th), page.Content(RegionLatest))
	assert.Equal(t, "Updated: January 19, 2025 at 18:30", page.Content(RegionLastUpdate))
	assert.Equal(t, 0, renders(page, RegionHistory))
}

func TestFetchLatestNetworkError(t *testing.T) {
	page := NewPage()
	page.Set(RegionLastUpdate, "Updated: earlier")
	d := New(&fakeSource{latestErr: errors.New("connection refused")}, page, Options{})

	d.FetchLatest(context.Background())

	assert.Contains(t, page.Content(RegionLatest), "connection refused")
	assert.Equal(t, "Updated: earlier", page.Content(RegionLastUpdate))
}

func TestFetchHistoryOrder(t *testing.T) {
	page := NewPage()
	src := &fakeSource{all: []domain.Thought{thought("1", "A"), thought("2", "B"), thought("3", "C")}}
	d := New(src, page, Options{})

	d.FetchHistory(context.Background())

	assert.Equal(t, []string{"B", "A"}, historyTexts(page.Content(RegionHistory)))
	assert.Equal(t, 0, renders(page, RegionLatest))
}

func TestFetchHistoryEmpty(t *testing.T) {
	page := NewPage()
	d := New(&fakeSource{all: []domain.Thought{}}, page, Options{})

	d.FetchHistory(context.Background())

	assert.Equal(t, render.Empty(), page.Content(RegionHistory))
}

func TestFetchHistorySingle(t *testing.T) {
	page := NewPage()
	d := New(&fakeSource{all: []domain.Thought{thought("1", "A")}}, page, Options{})

	d.FetchHistory(context.Background())

	assert.Equal(t, "", page.Content(RegionHistory))
	assert.Equal(t, 1, renders(page, RegionHistory))
}

func TestFetchHistoryError(t *testing.T) {
	page := NewPage()
	d := New(&fakeSource{allErr: &thoughts.StatusError{Code: 404}}, page, Options{})

	d.FetchHistory(context.Background())

	content := page.Content(RegionHistory)
	assert.Contains(t, content, "Failed to fetch thought history")
	assert.Contains(t, content, "404")
	assert.Equal(t, 0, renders(page, RegionLatest))
}

func TestCheckForUpdates(t *testing.T) {
	page := NewPage()
	src := &fakeSource{}
	src.push(thought("1", "A"))
	d := New(src, page, Options{})

	require.True(t, d.CheckForUpdates(context.Background()))
	last, ok := d.LastKnown()
	require.True(t, ok)
	assert.Equal(t, domain.ID("1"), last.ID)
	assert.Equal(t, 1, renders(page, RegionLatest))
	assert.Equal(t, 1, renders(page, RegionHistory))

	// same id: nothing is re-rendered
	assert.False(t, d.CheckForUpdates(context.Background()))
	assert.Equal(t, 1, renders(page, RegionLatest))
	assert.Equal(t, 1, renders(page, RegionHistory))

	src.push(thought("2", "B"))
	assert.True(t, d.CheckForUpdates(context.Background()))
	assert.Equal(t, 2, renders(page, RegionLatest))
	assert.Equal(t, 2, renders(page, RegionHistory))
	assert.Contains(t, page.Content(RegionLatest), ">B<")
	assert.Equal(t, []string{"A"}, historyTexts(page.Content(RegionHistory)))
}

func TestCheckForUpdatesAbandonsOnFailure(t *testing.T) {
	for name, err := range map[string]error{
		"not found": thoughts.ErrNotFound,
		"status":    &thoughts.StatusError{Code: 503},
		"network":   errors.New("dial tcp: refused"),
	} {
		t.Run(name, func(t *testing.T) {
			page := NewPage()
			d := New(&fakeSource{latestErr: err}, page, Options{})

			assert.False(t, d.CheckForUpdates(context.Background()))
			_, ok := d.LastKnown()
			assert.False(t, ok)
			for _, id := range Regions {
				assert.Equal(t, 0, renders(page, id), id)
			}
		})
	}
}

func TestInitRendersBothRegions(t *testing.T) {
	page := NewPage()
	src := &fakeSource{}
	src.push(thought("1", "A"))
	src.push(thought("2", "B"))
	d := New(src, page, Options{})

	d.Init(context.Background())

	assert.Contains(t, page.Content(RegionLatest), ">B<")
	assert.Equal(t, []string{"A"}, historyTexts(page.Content(RegionHistory)))
	assert.NotEmpty(t, page.Content(RegionLastUpdate))
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}

type fakeClock struct {
	mu      sync.Mutex
	tickers map[time.Duration]*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{tickers: make(map[time.Duration]*fakeTicker)}
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers[d] = t
	return t
}

func (c *fakeClock) ticker(d time.Duration) *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[d]
}

// tick delivers one tick and reports whether a timer loop received it
func (c *fakeClock) tick(d time.Duration) bool {
	t := c.ticker(d)
	if t == nil {
		return false
	}
	select {
	case t.ch <- time.Now():
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func TestRunDrivesTimers(t *testing.T) {
	const poll, refresh = time.Second, time.Minute

	page := NewPage()
	src := &fakeSource{}
	src.push(thought("1", "A"))
	clock := newFakeClock()
	d := New(src, page, Options{PollInterval: poll, RefreshInterval: refresh, NewTicker: clock.NewTicker})

	require.NoError(t, d.Run(context.Background()))
	defer d.Stop()

	// startup render
	assert.Equal(t, 1, renders(page, RegionLatest))
	require.Eventually(t, func() bool {
		return clock.ticker(poll) != nil && clock.ticker(refresh) != nil
	}, time.Second, 5*time.Millisecond)

	// first poll has no remembered id, so it refreshes
	require.True(t, clock.tick(poll))
	require.Eventually(t, func() bool { return renders(page, RegionLatest) == 2 }, time.Second, 5*time.Millisecond)

	// unchanged id: a second poll is a no-op. The third tick is only
	// received once the second has been fully handled.
	require.True(t, clock.tick(poll))
	require.True(t, clock.tick(poll))
	assert.Equal(t, 2, renders(page, RegionLatest))

	// full refresh ignores ids
	require.True(t, clock.tick(refresh))
	require.Eventually(t, func() bool { return renders(page, RegionHistory) == 3 }, time.Second, 5*time.Millisecond)
}

func TestRunTwice(t *testing.T) {
	clock := newFakeClock()
	d := New(&fakeSource{}, NewPage(), Options{NewTicker: clock.NewTicker})

	require.NoError(t, d.Run(context.Background()))
	defer d.Stop()

	assert.ErrorIs(t, d.Run(context.Background()), ErrAlreadyStarted)
	assert.ErrorIs(t, d.Start(context.Background()), ErrAlreadyStarted)
}

func TestStopEndsTimers(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{}
	src.push(thought("1", "A"))
	d := New(src, NewPage(), Options{PollInterval: time.Second, RefreshInterval: time.Minute, NewTicker: clock.NewTicker})

	require.NoError(t, d.Start(context.Background()))
	require.Eventually(t, func() bool {
		return clock.ticker(time.Second) != nil && clock.ticker(time.Minute) != nil
	}, time.Second, 5*time.Millisecond)

	d.Stop()

	assert.False(t, clock.tick(time.Second))
	assert.False(t, clock.tick(time.Minute))
	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 0, src.latestCalls)
}

func TestStopBeforeStart(t *testing.T) {
	clock := newFakeClock()
	d := New(&fakeSource{}, NewPage(), Options{NewTicker: clock.NewTicker})

	d.Stop()
	require.NoError(t, d.Start(context.Background()))
	d.Stop()

	assert.Nil(t, clock.ticker(DefaultPollInterval))
}

type hangingSource struct {
	started chan struct{}
}

func (h *hangingSource) Latest(ctx context.Context) (*domain.Thought, error) {
	h.started <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (h *hangingSource) All(ctx context.Context) ([]domain.Thought, error) {
	h.started <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStopCancelsInitialRender(t *testing.T) {
	clock := newFakeClock()
	src := &hangingSource{started: make(chan struct{}, 2)}
	d := New(src, NewPage(), Options{NewTicker: clock.NewTicker})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	for i := 0; i < 2; i++ {
		select {
		case <-src.started:
		case <-time.After(time.Second):
			t.Fatal("initial fetches did not start")
		}
	}

	d.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Contains(t, d.Page().Content(RegionLatest), "Failed to fetch latest thought")
	assert.Nil(t, clock.ticker(DefaultPollInterval))
}

func TestAgainstHTTPServer(t *testing.T) {
	status := http.StatusOK
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/thoughts/latest":
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			w.Write([]byte(`{"id": 3, "thought": "C", "input": "B", "timestamp": "2025-01-19 18:30:00"}`))
		case "/thoughts":
			w.Write([]byte(`[{"id": 1, "thought": "A"}, {"id": 2, "thought": "B"}, {"id": 3, "thought": "C"}]`))
		}
	}))
	defer srv.Close()

	client, err := thoughts.NewClient(srv.URL, 0, nil)
	require.NoError(t, err)
	page := NewPage()
	d := New(client, page, Options{})

	d.Init(context.Background())
	assert.Contains(t, page.Content(RegionLatest), "Previous Thought: B")
	assert.Equal(t, []string{"B", "A"}, historyTexts(page.Content(RegionHistory)))

	for code, want := range map[int]string{
		http.StatusNotFound:            "No thoughts generated yet",
		http.StatusInternalServerError: "HTTP error! status: 500",
	} {
		mu.Lock()
		status = code
		mu.Unlock()

		d.FetchLatest(context.Background())
		assert.Contains(t, page.Content(RegionLatest), want)
	}
	assert.Equal(t, "", page.Content(RegionLastUpdate))
}

func TestRegionJSONOmitsUnsetTime(t *testing.T) {
	page := NewPage()
	page.Set(RegionLatest, "x")

	data, err := json.Marshal(page.Snapshot())
	require.NoError(t, err)

	var regions []map[string]any
	require.NoError(t, json.Unmarshal(data, &regions))
	require.Len(t, regions, len(Regions))
	for _, r := range regions {
		_, ok := r["updated_at"]
		assert.Equal(t, r["id"] == RegionLatest, ok, "region %v", r["id"])
	}
}

func TestHistoryEntries(t *testing.T) {
	assert.Nil(t, HistoryEntries(nil))
	assert.Empty(t, HistoryEntries([]domain.Thought{thought("1", "A")}))

	got := HistoryEntries([]domain.Thought{thought("1", "A"), thought("2", "B"), thought("3", "C")})
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Thought)
	assert.Equal(t, "A", got[1].Thought)
}
