package api

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/pbaille/thoughtboard/internal/dashboard"
	"github.com/pbaille/thoughtboard/internal/domain"
)

//go:embed templates/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	RefreshSeconds int
	Latest         template.HTML
	History        template.HTML
	LastUpdate     string
}

// DashboardView is the read side of a running dashboard
type DashboardView interface {
	Page() *dashboard.Page
	LastKnown() (domain.Thought, bool)
}

// SnapshotResponse is the body of GET /api/dashboard
type SnapshotResponse struct {
	Regions   []dashboard.Region `json:"regions"`
	LastKnown *domain.ID         `json:"last_known_id,omitempty"`
}

type dashboardHandler struct {
	view           DashboardView
	refreshSeconds int
}

// NewDashboardHandler serves the rendered page, its regions and a JSON
// snapshot. Browsers reload the page every refreshSeconds.
func NewDashboardHandler(view DashboardView, refreshSeconds int) http.Handler {
	if refreshSeconds <= 0 {
		refreshSeconds = 30
	}
	h := &dashboardHandler{view: view, refreshSeconds: refreshSeconds}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /regions/{id}", h.region)
	mux.HandleFunc("GET /api/dashboard", h.snapshot)
	mux.HandleFunc("GET /health", health)
	return mux
}

func (h *dashboardHandler) index(w http.ResponseWriter, r *http.Request) {
	page := h.view.Page()

	// region fragments are produced by the render package, which escapes
	// all record text; the last-update region is plain text
	data := indexData{
		RefreshSeconds: h.refreshSeconds,
		Latest:         template.HTML(page.Content(dashboard.RegionLatest)),
		History:        template.HTML(page.Content(dashboard.RegionHistory)),
		LastUpdate:     page.Content(dashboard.RegionLastUpdate),
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, data); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *dashboardHandler) region(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	region, ok := h.view.Page().Region(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown region: "+id)
		return
	}

	if id == dashboard.RegionLastUpdate {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.Write([]byte(region.Content))
}

func (h *dashboardHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	resp := SnapshotResponse{Regions: h.view.Page().Snapshot()}
	if last, ok := h.view.LastKnown(); ok {
		resp.LastKnown = &last.ID
	}
	writeJSON(w, http.StatusOK, resp)
}
