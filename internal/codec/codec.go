package codec

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

// Schema versions this codec understands. Version 1 predates build stats and
// typed evidence; it is upgraded on read, never written back as-is.
const (
	CurrentSchemaVersion = 2
	schemaVersionV1      = 1
)

// ErrSchemaVersionMismatch is returned for documents written by an unknown
// (usually newer) schema. The file is left untouched so a newer binary can
// still read it.
var ErrSchemaVersionMismatch = errors.New("codec: unsupported index schema version")

// Config contains configuration for the Codec
type Config struct {
	// Logger receives upgrade notices (default: slog.Default())
	Logger *slog.Logger
}

// Codec serializes capability indexes to and from versioned YAML documents
type Codec struct {
	log *slog.Logger
}

// New creates a new Codec
func New(config *Config) *Codec {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Codec{log: cfg.Logger}
}

// Encode renders the index as a current-version YAML document. The stored
// schema version is stamped here; callers never set it by hand.
func (c *Codec) Encode(index *types.CapabilityIndex) ([]byte, error) {
	if index == nil {
		return nil, fmt.Errorf("codec: nil index")
	}

	doc := *index
	doc.SchemaVersion = CurrentSchemaVersion
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now().UTC()
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("cannot encode index: %w", err)
	}
	return data, nil
}

// Decode parses a YAML index document. Current-version documents load
// directly; version 1 documents are upgraded in memory; anything else is
// ErrSchemaVersionMismatch.
func (c *Codec) Decode(data []byte) (*types.CapabilityIndex, error) {
	var header struct {
		SchemaVersion int `yaml:"schema_version"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("cannot parse index document: %w", err)
	}

	switch header.SchemaVersion {
	case CurrentSchemaVersion:
		var index types.CapabilityIndex
		if err := yaml.Unmarshal(data, &index); err != nil {
			return nil, fmt.Errorf("cannot decode index: %w", err)
		}
		return &index, nil

	case schemaVersionV1:
		return c.upgradeV1(data)

	default:
		return nil, fmt.Errorf("schema version %d (supported: %d, %d): %w",
			header.SchemaVersion, schemaVersionV1, CurrentSchemaVersion, ErrSchemaVersionMismatch)
	}
}

// Version 1 documents carried free-form evidence maps and no build stats.
type indexV1 struct {
	SchemaVersion    int                   `yaml:"schema_version"`
	GeneratedAt      time.Time             `yaml:"generated_at"`
	Elements         map[string]*elementV1 `yaml:"elements"`
	ActionTriggerMap map[string][]string   `yaml:"action_trigger_map"`
}

type elementV1 struct {
	Record        types.ElementRecord   `yaml:"record"`
	Profile       types.SemanticProfile `yaml:"profile"`
	OutboundEdges []edgeV1              `yaml:"outbound_edges"`
}

type edgeV1 struct {
	SourceID string            `yaml:"source_id"`
	TargetID string            `yaml:"target_id"`
	Kind     string            `yaml:"kind"`
	Weight   float64           `yaml:"weight"`
	Evidence map[string]string `yaml:"evidence"`
}

// upgradeV1 lifts a version 1 document to the current schema. Free-form
// evidence becomes opaque evidence, missing build stats are synthesized from
// the element set, and edges with kinds outside the closed set are dropped.
func (c *Codec) upgradeV1(data []byte) (*types.CapabilityIndex, error) {
	var old indexV1
	if err := yaml.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("cannot decode v1 index: %w", err)
	}

	index := &types.CapabilityIndex{
		SchemaVersion:    CurrentSchemaVersion,
		GeneratedAt:      old.GeneratedAt,
		Elements:         make(map[string]*types.IndexedElement, len(old.Elements)),
		ActionTriggerMap: old.ActionTriggerMap,
	}

	dropped := 0
	edgeTotal := 0
	for id, el := range old.Elements {
		upgraded := &types.IndexedElement{
			Record:  el.Record,
			Profile: el.Profile,
		}
		for _, e := range el.OutboundEdges {
			kind := types.RelationKind(e.Kind)
			if !kind.Known() {
				dropped++
				continue
			}
			upgraded.OutboundEdges = append(upgraded.OutboundEdges, types.RelationshipEdge{
				SourceID: e.SourceID,
				TargetID: e.TargetID,
				Kind:     kind,
				Weight:   e.Weight,
				Evidence: types.OpaqueEvidence(flattenEvidence(e.Evidence)),
			})
			edgeTotal++
		}
		index.Elements[id] = upgraded
	}

	index.BuildStats = types.BuildStats{
		Strategy:        types.StrategyFull,
		ElementsIndexed: len(index.Elements),
		EdgesCreated:    edgeTotal,
		Completeness:    types.CompletenessFull,
	}
	if dropped > 0 {
		index.BuildStats.Warnings = append(index.BuildStats.Warnings,
			fmt.Sprintf("schema upgrade dropped %d edges with unknown kinds", dropped))
	}

	c.log.Info("upgraded index schema",
		"from", schemaVersionV1,
		"to", CurrentSchemaVersion,
		"elements", len(index.Elements),
		"dropped_edges", dropped)

	return index, nil
}

// flattenEvidence renders a v1 evidence map as a stable key=value line
func flattenEvidence(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, " ")
}

// ReadFile loads and decodes the index at path. A missing file is
// types.ErrNotFound so callers can distinguish "no index yet" from damage.
func (c *Codec) ReadFile(path string) (*types.CapabilityIndex, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("index %s: %w", path, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read index %s: %w", path, err)
	}
	return c.Decode(data)
}

// WriteFile persists the index atomically: the document is written to a
// temp file in the destination directory, flushed, then renamed over path.
// A reader never sees a half-written index.
//
// An on-disk document with a newer schema version is never overwritten;
// that situation means an older binary is running against a newer data dir.
func (c *Codec) WriteFile(path string, index *types.CapabilityIndex) error {
	if err := c.checkOverwrite(path); err != nil {
		return err
	}

	data, err := c.Encode(index)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".index-*.yaml")
	if err != nil {
		return fmt.Errorf("cannot create temp index file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot write index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot flush index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot close temp index file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot publish index %s: %w", path, err)
	}
	return nil
}

func (c *Codec) checkOverwrite(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot inspect existing index %s: %w", path, err)
	}

	var header struct {
		SchemaVersion int `yaml:"schema_version"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		// Damaged file; replacing it is the repair
		return nil
	}
	if header.SchemaVersion > CurrentSchemaVersion {
		return fmt.Errorf("existing index %s has schema version %d, refusing overwrite: %w",
			path, header.SchemaVersion, ErrSchemaVersionMismatch)
	}
	return nil
}
