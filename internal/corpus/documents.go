package corpus

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed term_snapshot.schema.json
var termSnapshotSchemaJSON string

//go:embed provenance_snapshot.schema.json
var provenanceSnapshotSchemaJSON string

// TermSnapshotDocument is the externally maintained IDF snapshot format.
type TermSnapshotDocument struct {
	SnapshotVersion string           `json:"snapshot_version"`
	GeneratedAt     string           `json:"generated_at"`
	TotalDocuments  int64            `json:"total_documents"`
	Terms           map[string]int64 `json:"terms"`
}

// ProvenanceTierEntry is one row of the provenance snapshot format.
type ProvenanceTierEntry struct {
	SourceType       string  `json:"source_type"`
	Tier             string  `json:"tier"`
	ReliabilityScore float64 `json:"reliability_score"`
}

// ProvenanceSnapshotDocument is the externally maintained provenance table format.
type ProvenanceSnapshotDocument struct {
	SnapshotVersion string                `json:"snapshot_version"`
	GeneratedAt     string                `json:"generated_at"`
	Tiers           []ProvenanceTierEntry `json:"tiers"`
}

var (
	compileOnce           sync.Once
	termSchema            *jsonschema.Schema
	provenanceSchema      *jsonschema.Schema
	compiledSchemaErr     error
	provenanceCompiledErr error
)

// LoadDocuments builds a snapshot from versioned JSON documents, validating
// both against their embedded schemas before use.
func LoadDocuments(termPath, provenancePath string) (*Snapshot, error) {
	termDoc, err := loadTermDocument(termPath)
	if err != nil {
		return nil, err
	}
	provDoc, err := loadProvenanceDocument(provenancePath)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:       termDoc.SnapshotVersion,
		TotalDocs:     termDoc.TotalDocuments,
		termIDF:       make(map[string]float64, len(termDoc.Terms)),
		provenance:    make(map[string]float64, len(provDoc.Tiers)),
		provenanceTie: make(map[string]string, len(provDoc.Tiers)),
	}

	if ts, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(termDoc.GeneratedAt)); parseErr == nil {
		snap.BuiltAt = ts.UTC()
	}

	for term, df := range termDoc.Terms {
		snap.termIDF[term] = normalizedIDF(snap.TotalDocs, df)
	}
	for _, tier := range provDoc.Tiers {
		snap.provenance[tier.SourceType] = tier.ReliabilityScore
		snap.provenanceTie[tier.SourceType] = tier.Tier
	}

	return snap, nil
}

func loadTermDocument(path string) (*TermSnapshotDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read term snapshot %s: %w", path, err)
	}

	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode term snapshot JSON: %w", err)
	}

	schema, err := loadTermSchema()
	if err != nil {
		return nil, fmt.Errorf("load term snapshot schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("term snapshot schema validation failed: %w", err)
	}

	var doc TermSnapshotDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal term snapshot: %w", err)
	}
	if doc.TotalDocuments <= 0 {
		return nil, fmt.Errorf("term snapshot total_documents must be > 0")
	}
	return &doc, nil
}

func loadProvenanceDocument(path string) (*ProvenanceSnapshotDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provenance snapshot %s: %w", path, err)
	}

	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode provenance snapshot JSON: %w", err)
	}

	schema, err := loadProvenanceSchema()
	if err != nil {
		return nil, fmt.Errorf("load provenance snapshot schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("provenance snapshot schema validation failed: %w", err)
	}

	var doc ProvenanceSnapshotDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal provenance snapshot: %w", err)
	}
	if len(doc.Tiers) == 0 {
		return nil, fmt.Errorf("provenance snapshot has no tiers")
	}
	return &doc, nil
}

func loadTermSchema() (*jsonschema.Schema, error) {
	compileSchemas()
	return termSchema, compiledSchemaErr
}

func loadProvenanceSchema() (*jsonschema.Schema, error) {
	compileSchemas()
	return provenanceSchema, provenanceCompiledErr
}

func compileSchemas() {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("term_snapshot.schema.json", strings.NewReader(termSnapshotSchemaJSON)); err != nil {
			compiledSchemaErr = err
			provenanceCompiledErr = err
			return
		}
		if err := compiler.AddResource("provenance_snapshot.schema.json", strings.NewReader(provenanceSnapshotSchemaJSON)); err != nil {
			compiledSchemaErr = err
			provenanceCompiledErr = err
			return
		}

		termSchema, compiledSchemaErr = compiler.Compile("term_snapshot.schema.json")
		provenanceSchema, provenanceCompiledErr = compiler.Compile("provenance_snapshot.schema.json")
	})
}

func decodeStrictJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if err := requireEOF(dec); err != nil {
		return nil, err
	}
	return value, nil
}

func requireEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing JSON content")
	}
	return nil
}
