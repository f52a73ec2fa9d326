package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"communityAPI/internal/badge"
	"communityAPI/internal/notification"
	"communityAPI/internal/post"
	"communityAPI/internal/workspace"
)

// Firestore layout, kept compatible with the web client:
//
//	workspaces/{topic}/posts/{postId}
//	users/{userId}                  badges, version
//	deviceTokens/{token}            userId, platform
const (
	workspacesCollection = "workspaces"
	postsCollection      = "posts"
	usersCollection      = "users"
	devicesCollection    = "deviceTokens"
)

type firestoreRating struct {
	UserID string `firestore:"userId"`
	Rating int    `firestore:"rating"`
}

type firestorePost struct {
	Content         string            `firestore:"content"`
	UserID          string            `firestore:"userId"`
	UserDisplayName string            `firestore:"userDisplayName"`
	Timestamp       time.Time         `firestore:"timestamp"`
	Ratings         []firestoreRating `firestore:"ratings"`
	AverageRating   float64           `firestore:"averageRating"`
	HelpfulCount    int               `firestore:"helpfulCount"`
	Version         int64             `firestore:"version"`
}

type firestoreUser struct {
	Badges  map[string]time.Time `firestore:"badges"`
	Version int64                `firestore:"version"`
}

type firestoreDevice struct {
	UserID    string    `firestore:"userId"`
	Token     string    `firestore:"token"`
	Platform  string    `firestore:"platform"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) posts(topic workspace.Topic) *firestore.CollectionRef {
	return s.client.Collection(workspacesCollection).Doc(string(topic)).Collection(postsCollection)
}

func (s *FirestoreStore) ListPostsByTopic(ctx context.Context, topic workspace.Topic) ([]*post.Post, error) {
	docs, err := s.posts(topic).OrderBy("timestamp", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", classifyFirestoreError(err))
	}

	posts := make([]*post.Post, 0, len(docs))
	for _, doc := range docs {
		p, err := decodePost(topic, doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (s *FirestoreStore) GetPost(ctx context.Context, topic workspace.Topic, postID string) (*post.Post, error) {
	doc, err := s.posts(topic).Doc(postID).Get(ctx)
	if err != nil {
		return nil, classifyFirestoreError(err)
	}
	return decodePost(topic, doc)
}

func (s *FirestoreStore) PutPost(ctx context.Context, p *post.Post) error {
	ref := s.posts(p.Topic).Doc(p.ID)
	data := encodePost(p)
	data.Version = p.Version + 1

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			if p.Version != 0 {
				return ErrNotFound
			}
			return tx.Create(ref, data)
		}

		var current firestorePost
		if err := snap.DataTo(&current); err != nil {
			return fmt.Errorf("failed to decode post %s: %w", p.ID, err)
		}
		if current.Version == 0 {
			current.Version = 1
		}
		if p.Version == 0 || current.Version != p.Version {
			return ErrConflict
		}
		return tx.Set(ref, data)
	})
	if err != nil {
		return classifyFirestoreError(err)
	}

	p.Version = data.Version
	return nil
}

func (s *FirestoreStore) GetUserReputation(ctx context.Context, userID string) (*badge.UserReputation, error) {
	doc, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		return nil, classifyFirestoreError(err)
	}

	var u firestoreUser
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}
	// The web client creates user documents without badges or a version.
	if u.Version == 0 && len(u.Badges) == 0 {
		return nil, ErrNotFound
	}

	rep := badge.NewUserReputation(userID)
	rep.Version = u.Version
	for name, at := range u.Badges {
		rep.Badges[badge.Name(name)] = at
	}
	return rep, nil
}

func (s *FirestoreStore) PutUserReputation(ctx context.Context, rep *badge.UserReputation) error {
	ref := s.client.Collection(usersCollection).Doc(rep.UserID)
	badges := make(map[string]time.Time, len(rep.Badges))
	for name, at := range rep.Badges {
		badges[string(name)] = at
	}
	next := rep.Version + 1

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		var current firestoreUser
		if err == nil {
			if err := snap.DataTo(&current); err != nil {
				return fmt.Errorf("failed to decode user %s: %w", rep.UserID, err)
			}
		} else if rep.Version != 0 {
			return ErrNotFound
		}
		if current.Version != rep.Version {
			return ErrConflict
		}

		// Merge so other fields the web client keeps on the user document survive.
		return tx.Set(ref, map[string]any{"badges": badges, "version": next}, firestore.MergeAll)
	})
	if err != nil {
		return classifyFirestoreError(err)
	}

	rep.Version = next
	return nil
}

func (s *FirestoreStore) RegisterDevice(ctx context.Context, device notification.DeviceToken) error {
	// Keyed by token so a device that changes hands stops reaching its old owner.
	ref := s.client.Collection(devicesCollection).Doc(device.Token)
	_, err := ref.Set(ctx, firestoreDevice{
		UserID:    device.UserID,
		Token:     device.Token,
		Platform:  device.Platform,
		CreatedAt: device.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to register device: %w", classifyFirestoreError(err))
	}
	return nil
}

func (s *FirestoreStore) ListDevices(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	docs, err := s.client.Collection(devicesCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", classifyFirestoreError(err))
	}

	devices := make([]notification.DeviceToken, 0, len(docs))
	for _, doc := range docs {
		var d firestoreDevice
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode device: %w", err)
		}
		devices = append(devices, notification.DeviceToken{
			UserID:    d.UserID,
			Token:     d.Token,
			Platform:  d.Platform,
			CreatedAt: d.CreatedAt,
		})
	}
	return devices, nil
}

// Ping reads a document that need not exist; only transport errors count.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(workspacesCollection).Doc(string(workspace.AcademicPressure)).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return classifyFirestoreError(err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func encodePost(p *post.Post) firestorePost {
	ratings := make([]firestoreRating, 0, len(p.Ratings))
	for _, r := range p.Ratings {
		ratings = append(ratings, firestoreRating{UserID: r.RaterID, Rating: r.Score})
	}
	return firestorePost{
		Content:         p.Content,
		UserID:          p.AuthorID,
		UserDisplayName: p.AuthorDisplayName,
		Timestamp:       p.CreatedAt,
		Ratings:         ratings,
		AverageRating:   p.AverageRating,
		HelpfulCount:    p.HelpfulCount,
		Version:         p.Version,
	}
}

func decodePost(topic workspace.Topic, doc *firestore.DocumentSnapshot) (*post.Post, error) {
	var fp firestorePost
	if err := doc.DataTo(&fp); err != nil {
		return nil, fmt.Errorf("failed to decode post %s: %w", doc.Ref.ID, err)
	}

	p := &post.Post{
		ID:                doc.Ref.ID,
		AuthorID:          fp.UserID,
		AuthorDisplayName: fp.UserDisplayName,
		Topic:             topic,
		Content:           fp.Content,
		Ratings:           make([]post.Rating, 0, len(fp.Ratings)),
		CreatedAt:         fp.Timestamp,
		Version:           fp.Version,
	}
	for _, r := range fp.Ratings {
		p.Ratings = append(p.Ratings, post.Rating{RaterID: r.UserID, Score: r.Rating})
	}
	// Documents written by the web client carry no version; treat them as
	// version 1 so the first engine write can still compare-and-swap.
	if p.Version == 0 {
		p.Version = 1
	}
	p.Recompute()
	return p, nil
}

func classifyFirestoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}

	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists, codes.Aborted, codes.FailedPrecondition:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
