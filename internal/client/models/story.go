// Package models defines client-side data models used by the DiCerita CLI.
package models

import "time"

// Story is a single story record as cached locally. The durable copy is
// owned by the persistent store; facade and UI code hold disposable copies.
type Story struct {
	// ID is a globally unique identifier. Server-assigned for synced
	// stories, a temporary local id (temp_ prefix) for unsynced creations.
	ID string

	// Author is the display name of the story's creator.
	Author string

	// Description is the story text, bounded to MaxDescriptionLen by the
	// write-side validator.
	Description string

	// PhotoURL points at the story's image asset.
	PhotoURL string

	// CreatedAt is the server-side creation time in UTC.
	CreatedAt time.Time

	// Lat and Lon are the optional story location.
	Lat *float64
	Lon *float64

	// CachedAt is local-only: when this copy was written to the store.
	CachedAt time.Time

	// Cached is a local-only marker set on every store write.
	Cached bool
}

// StoryPage is one page of stories as returned by the remote API.
type StoryPage struct {
	Stories    []Story
	Page       int
	Size       int
	TotalPages int
}

// MaxDescriptionLen bounds the story description accepted by the validator.
const MaxDescriptionLen = 1000
