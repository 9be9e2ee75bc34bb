// Package storage defines the docs-directory file abstraction used by the
// Markdown importer.
package storage

import "time"

// FileMetadata is a lightweight view of one Markdown file on disk.
type FileMetadata struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for docs-directory file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the docs root).
	List(dir string) ([]FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the docs root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the docs root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the docs root).
	Delete(path string) error
}
