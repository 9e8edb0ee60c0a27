package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/pbaille/thoughtboard/internal/domain"
	"github.com/pbaille/thoughtboard/internal/render"
	"github.com/pbaille/thoughtboard/internal/thoughts"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval    = 30 * time.Second
	DefaultRefreshInterval = 10 * time.Minute
)

// ErrAlreadyStarted is returned when Run or Start is called a second time
var ErrAlreadyStarted = errors.New("dashboard already started")

// Source is the thoughts API as seen by the dashboard. Latest must return
// thoughts.ErrNotFound when there is nothing to show yet.
type Source interface {
	Latest(ctx context.Context) (*domain.Thought, error)
	All(ctx context.Context) ([]domain.Thought, error)
}

// Ticker delivers ticks until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the TickerFunc backed by time.NewTicker
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Options configures a Dashboard. Zero values select the defaults.
type Options struct {
	PollInterval    time.Duration
	RefreshInterval time.Duration
	Logger          *log.Logger
	NewTicker       TickerFunc
}

// Dashboard keeps a Page in sync with the thoughts API
type Dashboard struct {
	source Source
	page   *Page
	opts   Options
	logger *log.Logger

	mu        sync.Mutex
	lastKnown *domain.Thought
	claimed   bool
	stopped   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a dashboard rendering source into page
func New(source Source, page *Page, opts Options) *Dashboard {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Dashboard{
		source: source,
		page:   page,
		opts:   opts,
		logger: logger,
	}
}

// Page returns the page the dashboard renders into
func (d *Dashboard) Page() *Page {
	return d.page
}

// LastKnown returns the thought remembered by the last update check
func (d *Dashboard) LastKnown() (domain.Thought, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastKnown == nil {
		return domain.Thought{}, false
	}
	return *d.lastKnown, true
}

// FetchLatest renders the latest thought and the last-update time. A 404
// from the API is the empty state, not an error. Failures are rendered in
// the latest region and never returned.
func (d *Dashboard) FetchLatest(ctx context.Context) {
	d.logger.Printf("Fetching latest thought...")

	thought, err := d.source.Latest(ctx)
	switch {
	case errors.Is(err, thoughts.ErrNotFound):
		d.logger.Printf("No thoughts available yet")
		d.page.Set(RegionLatest, render.Empty())
		d.page.Set(RegionLastUpdate, "")
		return
	case err != nil:
		d.logger.Printf("Error fetching latest thought: %v", err)
		d.page.Set(RegionLatest, render.Failure("Failed to fetch latest thought", err.Error()))
		return
	}

	d.debugJSON("Latest thought data", thought)
	d.page.Set(RegionLatest, render.Latest(*thought))
	d.page.Set(RegionLastUpdate, render.UpdatedAt(*thought))
}

// FetchHistory renders every thought except the most recent, newest first
func (d *Dashboard) FetchHistory(ctx context.Context) {
	d.logger.Printf("Fetching thought history...")

	list, err := d.source.All(ctx)
	if err != nil {
		d.logger.Printf("Error fetching thought history: %v", err)
		d.page.Set(RegionHistory, render.Failure("Failed to fetch thought history", err.Error()))
		return
	}

	d.debugJSON("Thought history data", list)
	if len(list) == 0 {
		d.page.Set(RegionHistory, render.Empty())
		return
	}

	d.page.Set(RegionHistory, render.History(HistoryEntries(list)))
}

// HistoryEntries takes a chronological list, drops the most recent thought,
// which the latest region already shows, and reverses the rest.
func HistoryEntries(list []domain.Thought) []domain.Thought {
	if len(list) == 0 {
		return nil
	}
	rest := list[:len(list)-1]
	out := make([]domain.Thought, len(rest))
	for i, t := range rest {
		out[len(rest)-1-i] = t
	}
	return out
}

// Refresh re-fetches both views concurrently and waits for both
func (d *Dashboard) Refresh(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		d.FetchLatest(ctx)
		return nil
	})
	g.Go(func() error {
		d.FetchHistory(ctx)
		return nil
	})
	_ = g.Wait()
}

// Init performs the initial render
func (d *Dashboard) Init(ctx context.Context) {
	d.logger.Printf("Initializing page...")
	d.Refresh(ctx)
}

// CheckForUpdates compares the latest thought's ID with the remembered one
// and refreshes both views when it changed. It reports whether a refresh ran.
// Non-success responses abandon the check silently.
func (d *Dashboard) CheckForUpdates(ctx context.Context) bool {
	latest, err := d.source.Latest(ctx)
	if err != nil {
		var se *thoughts.StatusError
		if !errors.Is(err, thoughts.ErrNotFound) && !errors.As(err, &se) {
			d.logger.Printf("Error checking for updates: %v", err)
		}
		return false
	}

	d.mu.Lock()
	changed := d.lastKnown == nil || d.lastKnown.ID != latest.ID
	if changed {
		d.lastKnown = latest
	}
	d.mu.Unlock()

	if !changed {
		return false
	}

	d.logger.Printf("New thought detected, updating display...")
	d.Refresh(ctx)
	return true
}

// Run renders the page once and then starts the update timers. It may be
// called only once.
func (d *Dashboard) Run(ctx context.Context) error {
	ctx, err := d.claim(ctx)
	if err != nil {
		return err
	}
	d.Init(ctx)
	d.startTimers(ctx)
	return nil
}

// Start starts the update timers without an initial render
func (d *Dashboard) Start(ctx context.Context) error {
	ctx, err := d.claim(ctx)
	if err != nil {
		return err
	}
	d.startTimers(ctx)
	return nil
}

// Stop cancels both timers and waits for them to exit. In-flight fetches,
// including the initial render started by Run, are cancelled through their
// context.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	d.stopped = true
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

// claim marks the dashboard as started and returns the context Stop cancels
func (d *Dashboard) claim(parent context.Context) (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.claimed {
		return nil, ErrAlreadyStarted
	}
	d.claimed = true

	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	if d.stopped {
		cancel()
	}
	return ctx, nil
}

func (d *Dashboard) startTimers(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.wg.Add(2)
	go d.every(ctx, d.opts.PollInterval, func(ctx context.Context) { d.CheckForUpdates(ctx) })
	go d.every(ctx, d.opts.RefreshInterval, d.Init)
}

func (d *Dashboard) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer d.wg.Done()

	t := d.opts.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			fn(ctx)
		}
	}
}

func (d *Dashboard) debugJSON(label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	d.logger.Printf("%s: %s", label, data)
}
