package model

import (
	"path"
	"time"
)

// Package model contains domain models shared across layers.
// Models carry no persistence tags; repositories map them explicitly.

// DocumentContentType is the only content type a pane may hold.
const DocumentContentType = "text/html"

// blobPrefix is the key prefix under which pane documents are stored.
const blobPrefix = "panes"

// RemovalReason records why a pane's metadata was tombstoned.
type RemovalReason string

const (
	// RemovalDeleted marks a pane removed before it expired (owner delete).
	RemovalDeleted RemovalReason = "deleted"
	// RemovalExpired marks a pane removed at or after its expiry.
	RemovalExpired RemovalReason = "expired"
)

// Pane is an uploaded document plus its metadata.
//
// RemovedAt and RemovedReason are set once the pane is removed. The record
// itself stays behind as a tombstone so the id is never reissued.
type Pane struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"owner_id"`
	OriginalName  string        `json:"original_name"`
	SizeBytes     int64         `json:"size_bytes"`
	ContentType   string        `json:"content_type"`
	BlobPath      string        `json:"blob_path"`
	CreatedAt     time.Time     `json:"created_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	ViewCount     int64         `json:"view_count"`
	IsPublic      bool          `json:"is_public"`
	RemovedAt     *time.Time    `json:"removed_at,omitempty"`
	RemovedReason RemovalReason `json:"removed_reason,omitempty"`
}

// BlobPath returns the blob store key for a pane id.
func BlobPath(id string) string {
	return path.Join(blobPrefix, id+".html")
}

// Removed reports whether the pane is a tombstone.
func (p *Pane) Removed() bool {
	return p.RemovedAt != nil
}

// State is the access-time classification of a live pane.
type State int

const (
	StateActive State = iota
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Classify reports whether p is still servable at now.
// A pane is expired once now reaches ExpiresAt.
func Classify(p *Pane, now time.Time) State {
	if now.Before(p.ExpiresAt) {
		return StateActive
	}
	return StateExpired
}

// RemovalReasonAt picks the tombstone reason for removing p at now.
func RemovalReasonAt(p *Pane, now time.Time) RemovalReason {
	if Classify(p, now) == StateExpired {
		return RemovalExpired
	}
	return RemovalDeleted
}
