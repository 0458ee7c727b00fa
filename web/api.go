package web

import (
	"encoding/json"
	"net/http"

	"kitsunedns/cache"
	"kitsunedns/stats"
)

// API handles REST API endpoints
type API struct {
	stats *stats.Stats
	cache *cache.Cache
}

// NewAPI creates a new API handler
func NewAPI(st *stats.Stats, c *cache.Cache) *API {
	return &API{
		stats: st,
		cache: c,
	}
}

// HandleStats returns statistics as JSON
func (a *API) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := a.stats.GetSnapshot()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		http.Error(w, "Error encoding JSON", http.StatusInternalServerError)
		return
	}
}

// CacheEntry describes one cached name for the dashboard.
type CacheEntry struct {
	Name    string   `json:"name"`
	Answers []string `json:"answers"`
}

// CacheListing is the payload of the cache endpoint.
type CacheListing struct {
	Count   int          `json:"count"`
	Entries []CacheEntry `json:"entries"`
}

// HandleCache returns the cached names and their answers as JSON
func (a *API) HandleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	names := a.cache.Names()
	listing := CacheListing{
		Count:   len(names),
		Entries: make([]CacheEntry, 0, len(names)),
	}
	for _, name := range names {
		packet, ok := a.cache.Lookup(name)
		if !ok {
			continue
		}

		entry := CacheEntry{Name: name, Answers: make([]string, 0, len(packet.Answers))}
		for _, rr := range packet.Answers {
			entry.Answers = append(entry.Answers, rr.DataString())
		}
		listing.Entries = append(listing.Entries, entry)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := json.NewEncoder(w).Encode(listing); err != nil {
		http.Error(w, "Error encoding JSON", http.StatusInternalServerError)
		return
	}
}
