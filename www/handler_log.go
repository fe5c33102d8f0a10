package www

import (
	"log/slog"
	"net/http"

	"github.com/orinocoz/energymeter/database"
	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/logging"
)

type logEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Attrs     string `json:"attrs,omitempty"`
}

// NewLogHandler pages through the persisted log, newest first.
func NewLogHandler(logger *slog.Logger, logs LogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := max(intOrDefault(r.URL, "page", 1), 1)
		pageSize := intOrDefault(r.URL, "pageSize", 25)
		if pageSize <= 0 || pageSize > 500 {
			pageSize = 25
		}
		minLevel := slog.LevelDebug
		if lvl := r.URL.Query().Get("level"); lvl != "" {
			minLevel = logging.LevelFromString(&lvl)
		}

		rows, err := logs.GetLogEntries(r.Context(), minLevel, page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			writeJSONError(w, http.StatusInternalServerError, "log unavailable", err)
			return
		}

		entries := make([]logEntry, len(rows))
		for i, row := range rows {
			entries[i] = toLogEntry(row)
		}
		writeJSON(w, http.StatusOK, struct {
			Page     int        `json:"page"`
			PageSize int        `json:"pageSize"`
			Entries  []logEntry `json:"entries"`
		}{page, pageSize, entries})
	}
}

func toLogEntry(row database.LogEntryRow) logEntry {
	return logEntry{
		Timestamp: hours.FormatTimeInGuiTimezone(row.Timestamp),
		Level:     slog.Level(row.Level).String(),
		Message:   row.Message,
		Attrs:     row.Attrs,
	}
}
