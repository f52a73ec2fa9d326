package badge

import (
	"time"

	"communityAPI/internal/stats"
)

type Name string

const (
	CertifiedListener Name = "Certified Listener"
	WisdomKeeper      Name = "Wisdom Keeper"
	CommunityChampion Name = "Community Champion"
	EmpathyExpert     Name = "Empathy Expert"
)

type CriteriaType string

const (
	CriteriaTotalHelpful CriteriaType = "total_helpful"
	CriteriaMeanReceived CriteriaType = "mean_received"
)

// Badge is a catalog entry. Rules only ever look at lifetime totals, so once
// satisfied they stay satisfied and an earned badge is never revoked.
type Badge struct {
	Name          Name         `json:"name"`
	Description   string       `json:"description"`
	Icon          string       `json:"icon"`
	CriteriaType  CriteriaType `json:"criteria_type"`
	CriteriaValue float64      `json:"criteria_value"`
	MinRatings    int          `json:"min_ratings,omitempty"`
}

var catalog = []Badge{
	{Name: CertifiedListener, Description: "Helped 3+ people", Icon: "🎧", CriteriaType: CriteriaTotalHelpful, CriteriaValue: 3},
	{Name: WisdomKeeper, Description: "Shared 5+ helpful insights", Icon: "📚", CriteriaType: CriteriaTotalHelpful, CriteriaValue: 5},
	{Name: CommunityChampion, Description: "Top contributor", Icon: "🏆", CriteriaType: CriteriaTotalHelpful, CriteriaValue: 10},
	{Name: EmpathyExpert, Description: "Average rating >4.5", Icon: "💝", CriteriaType: CriteriaMeanReceived, CriteriaValue: 4.5, MinRatings: 5},
}

// Catalog returns a copy of the static badge catalog in award order.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(name Name) (Badge, bool) {
	for _, b := range catalog {
		if b.Name == name {
			return b, true
		}
	}
	return Badge{}, false
}

// Satisfied reports whether h meets the badge rule.
func (b Badge) Satisfied(h stats.Helpfulness) bool {
	switch b.CriteriaType {
	case CriteriaTotalHelpful:
		return float64(h.TotalHelpful) >= b.CriteriaValue
	case CriteriaMeanReceived:
		return h.ReceivedCount >= b.MinRatings && h.MeanReceived >= b.CriteriaValue
	default:
		return false
	}
}

// UserReputation is the append-only set of badges a user has earned.
type UserReputation struct {
	UserID string             `json:"user_id"`
	Badges map[Name]time.Time `json:"badges"`

	// Version is the store's concurrency token. Zero means not yet stored.
	Version int64 `json:"-"`
}

func NewUserReputation(userID string) *UserReputation {
	return &UserReputation{UserID: userID, Badges: make(map[Name]time.Time)}
}

func (r *UserReputation) Has(name Name) bool {
	_, ok := r.Badges[name]
	return ok
}

// Award adds every catalog badge h now qualifies for and r does not hold yet,
// stamped with earnedAt. It returns the newly added names in catalog order.
func (r *UserReputation) Award(h stats.Helpfulness, earnedAt time.Time) []Name {
	if r.Badges == nil {
		r.Badges = make(map[Name]time.Time)
	}

	var added []Name
	for _, b := range catalog {
		if r.Has(b.Name) || !b.Satisfied(h) {
			continue
		}
		r.Badges[b.Name] = earnedAt
		added = append(added, b.Name)
	}
	return added
}

func (r *UserReputation) Clone() *UserReputation {
	if r == nil {
		return nil
	}
	c := &UserReputation{UserID: r.UserID, Version: r.Version, Badges: make(map[Name]time.Time, len(r.Badges))}
	for name, at := range r.Badges {
		c.Badges[name] = at
	}
	return c
}

// EarnedBadge is the display projection of a held badge.
type EarnedBadge struct {
	Badge
	EarnedAt time.Time `json:"earned_at"`
}

// Earned lists held catalog badges in catalog order. Names no longer in the
// catalog are not shown.
func (r *UserReputation) Earned() []EarnedBadge {
	out := make([]EarnedBadge, 0, len(r.Badges))
	for _, b := range catalog {
		if at, ok := r.Badges[b.Name]; ok {
			out = append(out, EarnedBadge{Badge: b, EarnedAt: at})
		}
	}
	return out
}
