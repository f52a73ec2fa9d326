package services

import (
	"errors"
	"fmt"

	"communityAPI/internal/post"
	"communityAPI/internal/store"
)

var (
	ErrNotFound     = errors.New("post not found")
	ErrInvalidScore = fmt.Errorf("score must be a whole number between %d and %d", post.MinScore, post.MaxScore)
	ErrSelfRating   = errors.New("you cannot rate your own post")
	ErrEmptyContent = errors.New("post content cannot be empty")
	ErrUnknownTopic = errors.New("unknown workspace topic")

	// Store level failures keep the store's sentinels so errors.Is works on
	// anything the store returned, however deeply wrapped.
	ErrStoreUnavailable = store.ErrUnavailable
	ErrConflict         = store.ErrConflict
)
