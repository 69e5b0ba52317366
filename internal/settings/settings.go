// Package settings manages the per-index and per-field configuration of the
// sparse ANN engine: the immutable is_sparse flag and the clustering/pruning
// algorithm parameters described in spec §3. It follows the teacher's
// internal/config pattern (JSON-backed struct, validated at load time,
// mutex-guarded manager) generalized from application settings to algorithm
// parameters.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"seismic/internal/sparseerr"
)

// IndexSettings holds the immutable per-index configuration named in spec §3.
type IndexSettings struct {
	IsSparse bool `json:"is_sparse" yaml:"is_sparse"`
}

// FieldAlgoParams holds the clustering/pruning parameters for one sparse
// field mapping. Field names resolve the spec §9 open question in favor of
// SummaryPruneRatio/NPostings (see DESIGN.md); the discarded Alpha/Lambda
// spellings are rejected explicitly by ValidateRawKeys.
type FieldAlgoParams struct {
	// NPostings is the max postings retained per term; 0 disables the cap.
	NPostings int `json:"n_postings" yaml:"n_postings"`
	// SummaryPruneRatio (alpha) is the alpha-mass retained in a cluster summary, in (0, 1].
	SummaryPruneRatio float64 `json:"summary_prune_ratio" yaml:"summary_prune_ratio"`
	// ClusterRatio (beta) targets clusters-per-term ≈ beta * posting_length, in (0, 1).
	ClusterRatio float64 `json:"cluster_ratio" yaml:"cluster_ratio"`
	// AlgoTriggerDocCount is the minimum segment doc count before clustering applies.
	AlgoTriggerDocCount int `json:"algo_trigger_doc_count" yaml:"algo_trigger_doc_count"`
	// HeapFactor is the pruning slack, >= 1.0.
	HeapFactor float64 `json:"heap_factor" yaml:"heap_factor"`
	// K is the top-k bound per query.
	K int `json:"k" yaml:"k"`
	// PostingPruneRatio bounds posting retention as a fraction of segment doc count.
	PostingPruneRatio float64 `json:"posting_prune_ratio" yaml:"posting_prune_ratio"`
	// PostingMinimumLength is a floor on retained posting length (default 160).
	PostingMinimumLength int `json:"posting_minimum_length" yaml:"posting_minimum_length"`
}

// DefaultFieldAlgoParams returns parameters matching spec §4.4's defaults
// (PostingMinimumLength 160) and otherwise conservative, safe values.
func DefaultFieldAlgoParams() FieldAlgoParams {
	return FieldAlgoParams{
		NPostings:            0,
		SummaryPruneRatio:    0.4,
		ClusterRatio:         0.1,
		AlgoTriggerDocCount:  1000,
		HeapFactor:           1.2,
		K:                    10,
		PostingPruneRatio:    1.0,
		PostingMinimumLength: 160,
	}
}

// Validate rejects any parameter outside the ranges fixed by spec §3. The
// discarded legacy field spellings ("alpha"/"lambda") cannot be seen on the
// decoded struct; ValidateRawKeys checks for them on the raw map instead.
func (p FieldAlgoParams) Validate() error {
	switch {
	case p.NPostings < 0:
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Validate", fmt.Errorf("n_postings must be >= 0, got %d", p.NPostings))
	case p.SummaryPruneRatio <= 0 || p.SummaryPruneRatio > 1:
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Validate", fmt.Errorf("summary_prune_ratio must be in (0,1], got %v", p.SummaryPruneRatio))
	case p.ClusterRatio <= 0 || p.ClusterRatio >= 1:
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Validate", fmt.Errorf("cluster_ratio must be in (0,1), got %v", p.ClusterRatio))
	case p.AlgoTriggerDocCount < 0:
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Validate", fmt.Errorf("algo_trigger_doc_count must be >= 0, got %d", p.AlgoTriggerDocCount))
	case p.HeapFactor < 1.0:
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Validate", fmt.Errorf("heap_factor must be >= 1.0, got %v", p.HeapFactor))
	case p.K <= 0:
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Validate", fmt.Errorf("k must be > 0, got %d", p.K))
	case p.PostingPruneRatio <= 0 || p.PostingPruneRatio > 1:
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Validate", fmt.Errorf("posting_prune_ratio must be in (0,1], got %v", p.PostingPruneRatio))
	case p.PostingMinimumLength < 0:
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Validate", fmt.Errorf("posting_minimum_length must be >= 0, got %d", p.PostingMinimumLength))
	}
	return nil
}

// legacyFieldNames are the discarded spellings from spec §9's open question;
// a raw config map carrying either key is rejected before it ever reaches
// FieldAlgoParams so the two naming schemes can never coexist silently.
var legacyFieldNames = []string{"alpha", "lambda"}

// ValidateRawKeys rejects a raw (already-unmarshalled-to-map) field config
// that still carries the discarded "alpha"/"lambda" spellings.
func ValidateRawKeys(raw map[string]json.RawMessage) error {
	for _, name := range legacyFieldNames {
		if _, ok := raw[name]; ok {
			return sparseerr.New(sparseerr.KindInvalidParameter, "settings.ValidateRawKeys",
				fmt.Errorf("field %q is not a supported parameter name; use %q/%q instead", name, "summary_prune_ratio", "n_postings"))
		}
	}
	return nil
}

// FieldMapping associates a sparse field name with its algorithm parameters.
type FieldMapping struct {
	Field  string          `json:"field" yaml:"field"`
	Params FieldAlgoParams `json:"params" yaml:"params"`
}

// Document is the on-disk (or wire) representation of one index's settings:
// the immutable sparse flag plus every field's algorithm parameters.
type Document struct {
	Index  IndexSettings  `json:"index" yaml:"index"`
	Fields []FieldMapping `json:"fields" yaml:"fields"`
}

// Manager loads, validates, and serves index/field settings, mirroring the
// teacher's ConfigManager (mutex-guarded, path-backed, Load/Save).
type Manager struct {
	mu       sync.RWMutex
	path     string
	doc      Document
	byIndex  map[string]Document
}

// NewManager creates a settings Manager backed by the given JSON file path.
// Use NewManagerFromDocument to construct one in-memory (e.g. in tests).
func NewManager(path string) *Manager {
	return &Manager{path: path, byIndex: make(map[string]Document)}
}

// NewManagerFromDocument constructs a Manager directly from a validated
// Document, bypassing disk I/O (used by tests).
func NewManagerFromDocument(indexName string, doc Document) (*Manager, error) {
	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	m := &Manager{byIndex: make(map[string]Document)}
	m.byIndex[indexName] = doc
	return m, nil
}

func validateDocument(doc Document) error {
	for _, fm := range doc.Fields {
		if err := fm.Params.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the settings file from disk, validating every field mapping and
// rejecting any field params object that carries the legacy "alpha"/"lambda"
// keys (ValidateRawKeys).
// A missing file is not an error; an empty Document is installed instead,
// matching the teacher's "initialize with defaults" Load behavior.
func (m *Manager) Load(indexName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.byIndex[indexName] = Document{}
			return nil
		}
		return sparseerr.New(sparseerr.KindStorageError, "settings.Load", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Load", fmt.Errorf("parse settings file: %w", err))
	}
	var raw struct {
		Fields []struct {
			Params map[string]json.RawMessage `json:"params"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.Load", fmt.Errorf("parse settings file: %w", err))
	}
	for _, f := range raw.Fields {
		if err := ValidateRawKeys(f.Params); err != nil {
			return err
		}
	}
	if err := validateDocument(doc); err != nil {
		return err
	}
	m.byIndex[indexName] = doc
	return nil
}

// LoadYAML is the YAML-form sibling of Load, offered for operator-editable
// configs alongside the JSON API surface (see SPEC_FULL.md domain stack).
// Unlike Load, it does not check for the legacy "alpha"/"lambda" keys:
// unknown YAML keys are ignored by the decoder.
func (m *Manager) LoadYAML(indexName string, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return sparseerr.New(sparseerr.KindStorageError, "settings.LoadYAML", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return sparseerr.New(sparseerr.KindInvalidParameter, "settings.LoadYAML", fmt.Errorf("parse settings yaml: %w", err))
	}
	if err := validateDocument(doc); err != nil {
		return err
	}
	m.byIndex[indexName] = doc
	return nil
}

// IndexSettings returns the immutable settings for the named index.
func (m *Manager) IndexSettings(indexName string) (IndexSettings, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.byIndex[indexName]
	return doc.Index, ok
}

// FieldParams returns the algorithm parameters for a (index, field) pair.
func (m *Manager) FieldParams(indexName, field string) (FieldAlgoParams, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.byIndex[indexName]
	if !ok {
		return FieldAlgoParams{}, false
	}
	for _, fm := range doc.Fields {
		if fm.Field == field {
			return fm.Params, true
		}
	}
	return FieldAlgoParams{}, false
}

// Set installs a validated Document for indexName (used by tests and by the
// admin layer when an index is created or its mapping changes).
func (m *Manager) Set(indexName string, doc Document) error {
	if err := validateDocument(doc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byIndex[indexName] = doc
	return nil
}

// IsSparse reports whether indexName is configured as a sparse index; a
// missing index is treated as not-sparse, which is what the admin layer's
// InvalidIndices validation (spec §4.8) relies on.
func (m *Manager) IsSparse(indexName string) bool {
	s, ok := m.IndexSettings(indexName)
	return ok && s.IsSparse
}
