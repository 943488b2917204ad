package document

import (
	"encoding/json"
	"fmt"
	"os"
)

// Parse decodes a hierarchical document from JSON and validates its
// structure.
func Parse(data []byte) (*Code, error) {
	var c Code
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads and parses a hierarchical document from disk.
func LoadFile(path string) (*Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	return Parse(data)
}
