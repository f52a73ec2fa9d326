package store

import (
	"context"
	"sort"
	"sync"

	"communityAPI/internal/badge"
	"communityAPI/internal/notification"
	"communityAPI/internal/post"
	"communityAPI/internal/workspace"
)

// MemoryStore keeps every document in process. It backs tests and local
// development; values are cloned on the way in and out.
type MemoryStore struct {
	mu          sync.RWMutex
	posts       map[workspace.Topic]map[string]*post.Post
	reputations map[string]*badge.UserReputation
	devices     map[string]notification.DeviceToken // by token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:       make(map[workspace.Topic]map[string]*post.Post),
		reputations: make(map[string]*badge.UserReputation),
		devices:     make(map[string]notification.DeviceToken),
	}
}

func (s *MemoryStore) ListPostsByTopic(ctx context.Context, topic workspace.Topic) ([]*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*post.Post, 0, len(s.posts[topic]))
	for _, p := range s.posts[topic] {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetPost(ctx context.Context, topic workspace.Topic, postID string) (*post.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[topic][postID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) PutPost(ctx context.Context, p *post.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.posts[p.Topic]
	if !ok {
		byID = make(map[string]*post.Post)
		s.posts[p.Topic] = byID
	}

	current, exists := byID[p.ID]
	switch {
	case p.Version == 0 && exists:
		return ErrConflict
	case p.Version != 0 && !exists:
		return ErrNotFound
	case exists && current.Version != p.Version:
		return ErrConflict
	}

	p.Version++
	byID[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) GetUserReputation(ctx context.Context, userID string) (*badge.UserReputation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rep, ok := s.reputations[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return rep.Clone(), nil
}

func (s *MemoryStore) PutUserReputation(ctx context.Context, rep *badge.UserReputation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.reputations[rep.UserID]
	switch {
	case rep.Version == 0 && exists:
		return ErrConflict
	case rep.Version != 0 && !exists:
		return ErrNotFound
	case exists && current.Version != rep.Version:
		return ErrConflict
	}

	rep.Version++
	s.reputations[rep.UserID] = rep.Clone()
	return nil
}

func (s *MemoryStore) RegisterDevice(ctx context.Context, device notification.DeviceToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A token belongs to one device, so re-registering moves it to the new user.
	s.devices[device.Token] = device
	return nil
}

func (s *MemoryStore) ListDevices(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []notification.DeviceToken{}
	for _, d := range s.devices {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}
