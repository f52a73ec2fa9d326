// Package store holds the document store the reputation engine reads posts
// and badge sets from. Writes are compare-and-swap on a per-document version:
// a write carrying a stale version fails with ErrConflict and the caller is
// expected to re-read and retry.
package store

import (
	"context"
	"errors"

	"communityAPI/internal/badge"
	"communityAPI/internal/notification"
	"communityAPI/internal/post"
	"communityAPI/internal/workspace"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrConflict    = errors.New("document was modified concurrently")
	ErrUnavailable = errors.New("document store unavailable")
)

type DocumentStore interface {
	// ListPostsByTopic returns every post in topic, newest first.
	ListPostsByTopic(ctx context.Context, topic workspace.Topic) ([]*post.Post, error)
	GetPost(ctx context.Context, topic workspace.Topic, postID string) (*post.Post, error)
	// PutPost creates the post when p.Version is 0 and otherwise replaces it
	// if the stored version still equals p.Version. On success p.Version holds
	// the new version.
	PutPost(ctx context.Context, p *post.Post) error

	GetUserReputation(ctx context.Context, userID string) (*badge.UserReputation, error)
	// PutUserReputation follows the same version rules as PutPost.
	PutUserReputation(ctx context.Context, rep *badge.UserReputation) error

	DeviceRegistry

	Ping(ctx context.Context) error
	Close() error
}

type DeviceRegistry interface {
	RegisterDevice(ctx context.Context, device notification.DeviceToken) error
	ListDevices(ctx context.Context, userID string) ([]notification.DeviceToken, error)
}
