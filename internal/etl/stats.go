package etl

import "log/slog"

// Stage identifies a pipeline stage in logs.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// Stats counts what a single run did.
type Stats struct {
	Extracted int `json:"extracted"`
	Staged    int `json:"staged"`
	Retained  int `json:"retained"`
	Tables    int `json:"tables"`
	Loaded    int `json:"loaded"`
}

// Duplicates returns how many staged records were dropped by deduplication.
func (s Stats) Duplicates() int { return s.Staged - s.Retained }

// LogValue implements slog.LogValuer for structured logging.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("extracted", s.Extracted),
		slog.Int("staged", s.Staged),
		slog.Int("retained", s.Retained),
		slog.Int("duplicates", s.Duplicates()),
		slog.Int("tables", s.Tables),
		slog.Int("loaded", s.Loaded),
	)
}
