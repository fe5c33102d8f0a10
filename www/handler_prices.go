package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/orinocoz/energymeter/types"
)

type pricesResponse struct {
	Prices   []types.EnergyPrice `json:"prices"`
	Updated  time.Time           `json:"updated"`
	Provider string              `json:"provider"`
	Stale    bool                `json:"stale"`
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	snap, err := s.cache.Get(r.Context())
	if err != nil {
		s.logger.Error("error fetching energy prices", slog.Any("error", err))
		writeJSONError(w, http.StatusBadGateway, "Failed to fetch prices", err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, pricesResponse{
		Prices:   snap.Prices,
		Updated:  snap.Updated,
		Provider: snap.Provider,
		Stale:    snap.Stale,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}{"ok", s.now().UTC()})
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, s.engine.Reference())
}
