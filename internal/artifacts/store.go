// Package artifacts defines the artifact file-system abstraction: where the
// build pipeline publishes its outputs and where the runtime engine loads
// them from.
package artifacts

import (
	"fmt"
	"time"

	"github.com/hagall/raido/internal/indexer"
)

// Canonical artifact file names under the store root.
const (
	DocumentsFile = "search-documents.json"
	MetadataFile  = "search-metadata.json"
)

// Info describes one artifact file. The checksum drives change detection in
// the rebuild watcher.
type Info struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Store is the interface for artifact file operations. Paths are relative
// to the store root.
type Store interface {
	// List returns metadata for every .json file under dir.
	List(dir string) ([]Info, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}

// Publish writes a build's serialized artifacts into the store. The
// documents artifact goes last so a watcher keyed on it never observes the
// new documents alongside stale metadata.
func Publish(s Store, a *indexer.Artifacts) error {
	if a == nil {
		return fmt.Errorf("artifacts: nothing to publish")
	}
	for name, payload := range a.Extras {
		if err := s.Write(name, payload); err != nil {
			return err
		}
	}
	if a.Metadata != nil {
		if err := s.Write(MetadataFile, a.Metadata); err != nil {
			return err
		}
	}
	return s.Write(DocumentsFile, a.Documents)
}

// LoadDocuments reads and decodes the documents artifact.
func LoadDocuments(s Store) (*indexer.DocumentsArtifact, error) {
	data, err := s.Read(DocumentsFile)
	if err != nil {
		return nil, err
	}
	return indexer.ParseDocumentsArtifact(data)
}

// LoadMetadata reads and decodes the metadata artifact.
func LoadMetadata(s Store) (*indexer.Metadata, error) {
	data, err := s.Read(MetadataFile)
	if err != nil {
		return nil, err
	}
	return indexer.ParseMetadataArtifact(data)
}
