package dashboard

import (
	"sync"
	"time"
)

// Region IDs the host page must provide
const (
	RegionLatest     = "latestThought"
	RegionHistory    = "thoughtHistory"
	RegionLastUpdate = "lastUpdateTime"
)

// Regions lists every region in page order
var Regions = []string{RegionLatest, RegionLastUpdate, RegionHistory}

// Region is the rendered state of one display region
type Region struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Renders   int       `json:"renders"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Page holds the display regions. Writes to a region replace its content;
// the last write wins.
type Page struct {
	mu      sync.RWMutex
	regions map[string]*Region
	now     func() time.Time
}

// NewPage creates a page with every region empty
func NewPage() *Page {
	p := &Page{
		regions: make(map[string]*Region, len(Regions)),
		now:     time.Now,
	}
	for _, id := range Regions {
		p.regions[id] = &Region{ID: id}
	}
	return p
}

// Set replaces the content of a region
func (p *Page) Set(id, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.regions[id]
	if !ok {
		return
	}
	r.Content = content
	r.Renders++
	r.UpdatedAt = p.now()
}

// Region returns a copy of one region
func (p *Page) Region(id string) (Region, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.regions[id]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Content returns the current content of a region
func (p *Page) Content(id string) string {
	r, _ := p.Region(id)
	return r.Content
}

// Snapshot returns a copy of every region in page order
func (p *Page) Snapshot() []Region {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Region, 0, len(Regions))
	for _, id := range Regions {
		out = append(out, *p.regions[id])
	}
	return out
}
