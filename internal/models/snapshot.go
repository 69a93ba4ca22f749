package models

import "time"

// Snapshot is everything that survives a restart. Tags, filters and credentials are not in it.
type Snapshot struct {
	Items          []ContentItem `json:"items"`
	GitHubUsername string        `json:"githubUsername"`
	// SavedAt is row metadata for the database backends and never part of the document.
	SavedAt time.Time `json:"-"`
}
