// Package storage owns the on-disk layout of capture images. Paths
// stored in the database are relative to the storage root, so the root
// can be moved or remounted without rewriting rows.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage resolves and writes capture assets under a single root.
type Storage struct {
	root string
}

// New ensures the storage root exists and returns a handle to it.
func New(root string) (*Storage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %s: %w", root, err)
	}
	return &Storage{root: abs}, nil
}

// Root returns the absolute storage root directory.
func (s *Storage) Root() string {
	return s.root
}

// ImageRel returns the relative path for a capture's full image.
// Group members live under their group's directory so a whole crawl or
// frame set can be inspected or removed together.
func (s *Storage) ImageRel(capturePublicID, groupPublicID string) string {
	if groupPublicID != "" {
		return filepath.Join("groups", groupPublicID, capturePublicID+".png")
	}
	return filepath.Join("captures", capturePublicID+".png")
}

// ThumbRel returns the relative path for a capture's thumbnail.
func (s *Storage) ThumbRel(capturePublicID, groupPublicID string) string {
	if groupPublicID != "" {
		return filepath.Join("groups", groupPublicID, capturePublicID+"_thumb.jpg")
	}
	return filepath.Join("captures", capturePublicID+"_thumb.jpg")
}

// Abs resolves a stored relative path against the root.
func (s *Storage) Abs(rel string) string {
	return filepath.Join(s.root, rel)
}

// Exists reports whether a stored relative path is present on disk.
func (s *Storage) Exists(rel string) bool {
	_, err := os.Stat(s.Abs(rel))
	return err == nil
}

// Write persists data at the given relative path, creating parent
// directories as needed. It returns the absolute path written.
func (s *Storage) Write(rel string, data []byte) (string, error) {
	abs := s.Abs(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write asset %s: %w", rel, err)
	}
	return abs, nil
}

// Remove deletes a stored asset. Missing files are not an error; a
// reconcile pass may race a manual cleanup.
func (s *Storage) Remove(rel string) error {
	err := os.Remove(s.Abs(rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
