package indexer

import (
	"encoding/json"
	"fmt"
	"time"
)

// DocumentsArtifact is the versioned envelope around the flat document list.
type DocumentsArtifact struct {
	Version     string           `json:"version"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Count       int              `json:"count"`
	Documents   []SearchDocument `json:"documents"`
}

// Artifacts holds the serialized outputs of one build, keyed for the
// artifact store. Extras carries the optional per-concern projections.
type Artifacts struct {
	Documents []byte
	Metadata  []byte

	// Extras maps artifact basename to payload, populated when individual
	// file generation is enabled.
	Extras map[string][]byte
}

// Export serializes a build result according to its output policy. The
// documents artifact is always produced; the metadata artifact and the
// individual projections are policy-gated.
func Export(res *BuildResult) (*Artifacts, error) {
	if res == nil {
		return nil, fmt.Errorf("indexer: nil build result")
	}
	out := res.Config.Output

	docsEnv := DocumentsArtifact{
		Version:     ArtifactVersion,
		GeneratedAt: res.Metadata.GeneratedAt,
		Count:       len(res.Documents),
		Documents:   res.Documents,
	}
	docs, err := marshal(docsEnv, out.PrettyPrint)
	if err != nil {
		return nil, fmt.Errorf("indexer: marshal documents: %w", err)
	}
	arts := &Artifacts{Documents: docs}

	if out.GenerateMetadataJSON {
		meta := *res.Metadata
		if !out.IncludeStatistics {
			meta.Statistics = nil
		}
		b, err := marshal(meta, out.PrettyPrint)
		if err != nil {
			return nil, fmt.Errorf("indexer: marshal metadata: %w", err)
		}
		arts.Metadata = b
	}

	if out.GenerateIndividualFiles {
		extras, err := exportExtras(res, out.PrettyPrint)
		if err != nil {
			return nil, err
		}
		arts.Extras = extras
	}

	return arts, nil
}

// exportExtras produces the standalone projections consumed by clients that
// do not want the full metadata artifact: the table of contents and the
// revision-date list.
func exportExtras(res *BuildResult, pretty bool) (map[string][]byte, error) {
	extras := make(map[string][]byte, 2)

	toc := struct {
		Version         string        `json:"version"`
		TableOfContents []TOCDivision `json:"tableOfContents"`
	}{ArtifactVersion, res.Metadata.TableOfContents}
	b, err := marshal(toc, pretty)
	if err != nil {
		return nil, fmt.Errorf("indexer: marshal toc: %w", err)
	}
	extras["toc.json"] = b

	revs := struct {
		Version       string         `json:"version"`
		RevisionDates []RevisionDate `json:"revisionDates"`
	}{ArtifactVersion, res.Metadata.RevisionDates}
	b, err = marshal(revs, pretty)
	if err != nil {
		return nil, fmt.Errorf("indexer: marshal revision dates: %w", err)
	}
	extras["revisions.json"] = b

	return extras, nil
}

func marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// ParseDocumentsArtifact decodes and version-checks a documents artifact.
// The runtime engine goes through this on every load.
func ParseDocumentsArtifact(data []byte) (*DocumentsArtifact, error) {
	var art DocumentsArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("indexer: decode documents artifact: %w", err)
	}
	if art.Version != ArtifactVersion {
		return nil, fmt.Errorf("indexer: documents artifact version %q, want %q", art.Version, ArtifactVersion)
	}
	return &art, nil
}

// ParseMetadataArtifact decodes and version-checks a metadata artifact.
func ParseMetadataArtifact(data []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("indexer: decode metadata artifact: %w", err)
	}
	if meta.Version != ArtifactVersion {
		return nil, fmt.Errorf("indexer: metadata artifact version %q, want %q", meta.Version, ArtifactVersion)
	}
	return &meta, nil
}
