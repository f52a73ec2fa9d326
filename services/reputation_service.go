package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"communityAPI/internal/badge"
	"communityAPI/internal/keylock"
	"communityAPI/internal/leaderboard"
	"communityAPI/internal/metrics"
	"communityAPI/internal/post"
	"communityAPI/internal/stats"
	"communityAPI/internal/store"
	"communityAPI/internal/workspace"
)

const (
	// scanConcurrency bounds how many topics are listed at once.
	scanConcurrency = 4

	maxWriteRetries = 8

	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// BadgeNotifier is told about badges right after they are persisted.
type BadgeNotifier interface {
	NotifyBadges(userID string, names []badge.Name)
}

// FeedPublisher fans post changes out to live workspace listeners.
type FeedPublisher interface {
	Publish(topic workspace.Topic, action string, p *post.Post)
}

type RatingResult struct {
	Post      *post.Post   `json:"post"`
	NewBadges []badge.Name `json:"new_badges"`
}

type ReputationService struct {
	store    store.DocumentStore
	logger   *zap.SugaredLogger
	notifier BadgeNotifier
	feed     FeedPublisher

	postLocks *keylock.Locker
	userLocks *keylock.Locker

	now        func() time.Time
	newID      func() string
	newBackOff func() backoff.BackOff
}

func NewReputationService(st store.DocumentStore, logger *zap.SugaredLogger) *ReputationService {
	return &ReputationService{
		store:      st,
		logger:     logger,
		postLocks:  keylock.New(),
		userLocks:  keylock.New(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		newBackOff: defaultBackOff,
	}
}

// SetNotifier allows injecting the push dispatcher from main.go.
func (s *ReputationService) SetNotifier(n BadgeNotifier) {
	s.notifier = n
}

func (s *ReputationService) SetFeed(f FeedPublisher) {
	s.feed = f
}

func defaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(10*time.Millisecond),
		backoff.WithMaxInterval(250*time.Millisecond),
		backoff.WithMaxElapsedTime(5*time.Second),
	), maxWriteRetries)
}

func (s *ReputationService) SubmitPost(ctx context.Context, userID, displayName, topicName, content string) (*post.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	topic, ok := workspace.Parse(topicName)
	if !ok {
		return nil, ErrUnknownTopic
	}

	p := post.New(s.newID(), userID, displayName, topic, content, s.now())
	if err := s.store.PutPost(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	metrics.PostsSubmitted.WithLabelValues(topic.Slug()).Inc()
	s.logger.Infow("Post submitted", "post_id", p.ID, "topic", topic, "user_id", userID)
	s.publish(topic, FeedPostCreated, p)

	return p, nil
}

func (s *ReputationService) ListWorkspacePosts(ctx context.Context, topicName string) ([]*post.Post, error) {
	topic, ok := workspace.Parse(topicName)
	if !ok {
		return nil, ErrUnknownTopic
	}

	posts, err := s.store.ListPostsByTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// GetPost reports ErrNotFound for a topic outside the enumeration too: no
// post can live there.
func (s *ReputationService) GetPost(ctx context.Context, topicName, postID string) (*post.Post, error) {
	topic, ok := workspace.Parse(topicName)
	if !ok {
		return nil, ErrNotFound
	}

	p, err := s.store.GetPost(ctx, topic, postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// RecordRating upserts raterID's score on the post and then re-evaluates the
// author's badges. The read-modify-write on the post is serialized per post in
// process and guarded by the store's version check across processes; a lost
// race is retried with backoff.
func (s *ReputationService) RecordRating(ctx context.Context, postID, topicName, raterID string, score int) (*RatingResult, error) {
	if !post.ValidScore(score) {
		return nil, ErrInvalidScore
	}
	topic, ok := workspace.Parse(topicName)
	if !ok {
		return nil, ErrNotFound
	}

	unlock := s.postLocks.Lock(string(topic) + "/" + postID)

	var (
		updated  *post.Post
		changed  bool
		previous int
	)
	attempts := 0
	op := func() error {
		attempts++
		p, err := s.store.GetPost(ctx, topic, postID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return backoff.Permanent(ErrNotFound)
			}
			return backoff.Permanent(fmt.Errorf("failed to load post: %w", err))
		}
		if p.AuthorID == raterID {
			return backoff.Permanent(ErrSelfRating)
		}

		updated = p
		previous, _ = p.RatingBy(raterID)
		if !p.Upsert(raterID, score) {
			return nil
		}

		if err := s.store.PutPost(ctx, p); err != nil {
			if errors.Is(err, store.ErrConflict) {
				metrics.RatingConflicts.Inc()
				s.logger.Debugw("Rating write conflicted, retrying", "post_id", postID, "attempt", attempts)
				return err
			}
			if errors.Is(err, store.ErrNotFound) {
				return backoff.Permanent(ErrNotFound)
			}
			return backoff.Permanent(fmt.Errorf("failed to save rating: %w", err))
		}
		changed = true
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx))
	unlock()
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			s.logger.Warnw("Rating abandoned after repeated conflicts", "post_id", postID, "attempts", attempts)
			return nil, fmt.Errorf("failed to record rating after %d attempts: %w", attempts, err)
		}
		return nil, err
	}

	if changed {
		metrics.RatingsRecorded.WithLabelValues(strconv.Itoa(score)).Inc()
		s.logger.Infow("Rating recorded", "post_id", postID, "topic", topic, "rater_id", raterID, "score", score,
			"previous_score", previous, "helpful_count", updated.HelpfulCount, "average_rating", updated.AverageRating)
		s.publish(topic, FeedPostRated, updated)
	}

	_, newBadges, err := s.EvaluateBadges(ctx, updated.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("rating saved but badge evaluation failed: %w", err)
	}

	if newBadges == nil {
		newBadges = []badge.Name{}
	}
	return &RatingResult{Post: updated, NewBadges: newBadges}, nil
}

// EvaluateBadges recomputes userID's statistics from every workspace and
// awards any catalog badge newly satisfied. It returns the reputation and the
// badges added by this call. Badges are never removed, so running it again
// without new ratings is a no-op.
func (s *ReputationService) EvaluateBadges(ctx context.Context, userID string) (*badge.UserReputation, []badge.Name, error) {
	unlock := s.userLocks.Lock(userID)
	defer unlock()

	start := time.Now()
	posts, err := s.collectPosts(ctx)
	if err != nil {
		return nil, nil, err
	}
	h := stats.Aggregate(userID, posts)
	metrics.BadgeEvaluationDuration.Observe(time.Since(start).Seconds())

	var (
		rep   *badge.UserReputation
		added []badge.Name
	)
	op := func() error {
		current, err := s.store.GetUserReputation(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			current = badge.NewUserReputation(userID)
		} else if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to load reputation: %w", err))
		}

		rep = current
		added = current.Award(h, s.now())
		if len(added) == 0 {
			return nil
		}

		if err := s.store.PutUserReputation(ctx, current); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("failed to save reputation: %w", err))
		}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		return nil, nil, err
	}

	if len(added) > 0 {
		for _, name := range added {
			metrics.BadgesAwarded.WithLabelValues(string(name)).Inc()
		}
		s.logger.Infow("Badges awarded", "user_id", userID, "badges", added,
			"total_helpful", h.TotalHelpful, "received", h.ReceivedCount, "mean_received", h.MeanReceived)
		if s.notifier != nil {
			s.notifier.NotifyBadges(userID, added)
		}
	}

	return rep, added, nil
}

// GetReputation returns the stored badges, or an empty reputation for users
// who have not earned any. It never creates a document.
func (s *ReputationService) GetReputation(ctx context.Context, userID string) (*badge.UserReputation, error) {
	rep, err := s.store.GetUserReputation(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return badge.NewUserReputation(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reputation: %w", err)
	}
	return rep, nil
}

func (s *ReputationService) GetUserStats(ctx context.Context, userID string) (*stats.Helpfulness, error) {
	posts, err := s.collectPosts(ctx)
	if err != nil {
		return nil, err
	}
	h := stats.Aggregate(userID, posts)
	return &h, nil
}

func (s *ReputationService) GetHelperLeaderboard(ctx context.Context, userID string, limit int) (*leaderboard.Leaderboard, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	posts, err := s.collectPosts(ctx)
	if err != nil {
		return nil, err
	}

	byAuthor := make(map[string][]*post.Post)
	names := make(map[string]string)
	latest := make(map[string]time.Time)
	for _, p := range posts {
		byAuthor[p.AuthorID] = append(byAuthor[p.AuthorID], p)
		if at, ok := latest[p.AuthorID]; !ok || p.CreatedAt.After(at) {
			latest[p.AuthorID] = p.CreatedAt
			names[p.AuthorID] = p.AuthorDisplayName
		}
	}

	helpers := make([]stats.Helpfulness, 0, len(byAuthor))
	for author, authored := range byAuthor {
		helpers = append(helpers, stats.Aggregate(author, authored))
	}

	return leaderboard.Build(helpers, names, userID, limit), nil
}

// collectPosts lists every workspace. Results keep topic order so callers see
// the same sequence for the same corpus.
func (s *ReputationService) collectPosts(ctx context.Context) ([]*post.Post, error) {
	topics := workspace.All()
	perTopic := make([][]*post.Post, len(topics))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, topic := range topics {
		i, topic := i, topic
		g.Go(func() error {
			posts, err := s.store.ListPostsByTopic(gctx, topic)
			if err != nil {
				return fmt.Errorf("failed to list %q: %w", topic, err)
			}
			perTopic[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect posts: %w", err)
	}

	var all []*post.Post
	for _, posts := range perTopic {
		all = append(all, posts...)
	}
	return all, nil
}

func (s *ReputationService) publish(topic workspace.Topic, action string, p *post.Post) {
	if s.feed != nil {
		s.feed.Publish(topic, action, p.Clone())
	}
}
