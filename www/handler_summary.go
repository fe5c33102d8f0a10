package www

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/orinocoz/energymeter/optimize"
	"github.com/orinocoz/energymeter/settings"
	"github.com/orinocoz/energymeter/summary"
)

// requestSettings applies the duration, mode, resolution and kwh query
// parameters to the current settings.
func (s *Server) requestSettings(r *http.Request) (settings.Settings, error) {
	res := s.settings.Current()

	if v, ok, err := floatParam(r.URL, "duration"); err != nil {
		return res, fmt.Errorf("%w: duration: %w", settings.ErrInvalid, err)
	} else if ok {
		res.DurationHours = v
	}
	if v, ok, err := floatParam(r.URL, "kwh"); err != nil {
		return res, fmt.Errorf("%w: kwh: %w", settings.ErrInvalid, err)
	} else if ok {
		res.KWh = v
	}
	if v, ok, err := intParam(r.URL, "resolution"); err != nil {
		return res, fmt.Errorf("%w: resolution: %w", settings.ErrInvalid, err)
	} else if ok {
		res.Resolution = v
	}
	if m := r.URL.Query().Get("mode"); m != "" {
		res.Mode = optimize.Mode(m)
	}

	if err := res.Validate(s.engine.Reference()); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	st, err := s.requestSettings(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	snap, err := s.cache.Get(r.Context())
	if err != nil {
		s.logger.Error("error fetching energy prices", slog.Any("error", err))
		writeJSONError(w, http.StatusBadGateway, "Failed to fetch prices", err)
		return
	}

	writeJSON(w, http.StatusOK, summary.Build(s.engine, st, snap, s.now()))
}

func (s *Server) handleBestWindow(w http.ResponseWriter, r *http.Request) {
	st, err := s.requestSettings(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	snap, err := s.cache.Get(r.Context())
	if err != nil {
		s.logger.Error("error fetching energy prices", slog.Any("error", err))
		writeJSONError(w, http.StatusBadGateway, "Failed to fetch prices", err)
		return
	}

	now := s.now()
	best := summary.BestWindow(s.engine, st, snap.Prices, now)
	if best == nil {
		writeJSON(w, http.StatusOK, errorResponse{Error: "not enough data"})
		return
	}
	writeJSON(w, http.StatusOK, summary.Window{BestWindow: best, Countdown: summary.Countdown(best, now)})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Current())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := s.settings.Update(r.Context(), body)
	if errors.Is(err, settings.ErrInvalid) {
		writeJSONError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}
	if err != nil {
		s.logger.Error("error saving settings", slog.Any("error", err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	res, err := s.settings.Reset(r.Context())
	if err != nil {
		s.logger.Error("error resetting settings", slog.Any("error", err))
		writeJSONError(w, http.StatusInternalServerError, "Failed to reset settings", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
