package etl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"consultetl/internal/domain"
)

// ── Source ──────────────────────────────────────────────────
// A Source extracts raw consultation records from an external file.
// Implementations live in etl/sources/, one file per source type.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// ConfigField describes a single configuration input for a source.
type ConfigField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
	Help     string `json:"help,omitempty"`
}

// SourceSpec describes a source type: its label and config fields.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Source is the interface every data source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Extract reads every record of the source. A failure anywhere in the
	// input fails the whole extraction; no partial result is returned.
	Extract(ctx context.Context, cfg SourceConfig) ([]domain.RawRecord, error)
}

// ValidateConfig checks that every required config field of spec is set.
func ValidateConfig(spec SourceSpec, cfg SourceConfig) error {
	for _, f := range spec.ConfigFields {
		if !f.Required {
			continue
		}
		v, ok := cfg[f.Key]
		if !ok || v == nil || v == "" {
			return fmt.Errorf("%s: %s is required", spec.Type, f.Key)
		}
	}
	return nil
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
// Called from init() in each source implementation file.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type, or an error if not found.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}
