package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/hydro-monitor/internal/history"
	"github.com/afroash/hydro-monitor/internal/poller"
	"github.com/afroash/hydro-monitor/internal/sink"
)

// APIHandler handles HTTP API requests for the dashboard
type APIHandler struct {
	store     *history.Store
	poller    *poller.Poller
	forwarder *sink.Forwarder // may be nil
	hub       *Hub            // may be nil
	lookback  time.Duration
	logger    zerolog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(store *history.Store, p *poller.Poller, forwarder *sink.Forwarder, hub *Hub, logger zerolog.Logger) *APIHandler {
	lookback := 24 * time.Hour
	if p != nil {
		lookback = p.Lookback()
	}
	return &APIHandler{
		store:     store,
		poller:    p,
		forwarder: forwarder,
		hub:       hub,
		lookback:  lookback,
		logger:    logger,
	}
}

// HandleCurrent returns the latest reading, or 404 before the first
// successful poll so the page can show its "waiting for first reading"
// state.
func (api *APIHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	latest := api.store.Latest()
	if latest == nil {
		http.Error(w, "No readings yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(latest)
}

// windowResponse is the charting payload: rows keyed by timestamp with
// the three numeric series, plus the signals the page branches on.
type windowResponse struct {
	Rows     history.Window `json:"rows"`
	Empty    bool           `json:"empty"`
	Single   bool           `json:"single"`
	Lookback string         `json:"lookback"`
}

// HandleWindow returns the display window for charting. An optional
// lookback query param overrides the configured duration.
func (api *APIHandler) HandleWindow(w http.ResponseWriter, r *http.Request) {
	lookback := api.lookback
	if param := r.URL.Query().Get("lookback"); param != "" {
		parsed, err := time.ParseDuration(param)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid lookback duration", http.StatusBadRequest)
			return
		}
		lookback = parsed
	}

	window := api.store.Window(time.Now(), lookback)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(windowResponse{
		Rows:     window,
		Empty:    window.IsEmpty(),
		Single:   window.HasSingle(),
		Lookback: lookback.String(),
	})
}

// statsResponse combines the stats of every component
type statsResponse struct {
	History   history.StoreStats   `json:"history"`
	Poller    *poller.Stats        `json:"poller,omitempty"`
	Forwarder *sink.ForwarderStats `json:"forwarder,omitempty"`
	Clients   int                  `json:"dashboard_clients"`
}

// HandleStats returns combined pipeline statistics
func (api *APIHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{History: api.store.Stats()}
	if api.poller != nil {
		stats := api.poller.Stats()
		resp.Poller = &stats
	}
	if api.forwarder != nil {
		stats := api.forwarder.Stats()
		resp.Forwarder = &stats
	}
	if api.hub != nil {
		resp.Clients = api.hub.ClientCount()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
