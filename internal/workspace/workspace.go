package workspace

import "strings"

// Topic is one of the fixed peer-support workspaces.
type Topic string

const (
	AcademicPressure   Topic = "Academic Pressure"
	FamilyExpectations Topic = "Family Expectations"
	CareerConfusion    Topic = "Career Confusion"
	SocialAnxiety      Topic = "Social Anxiety"
	FinancialStress    Topic = "Financial Stress"
	RelationshipIssues Topic = "Relationship Issues"
	IdentityCrisis     Topic = "Identity Crisis"
	MentalHealth       Topic = "Mental Health"
	TimeManagement     Topic = "Time Management"
	FuturePlanning     Topic = "Future Planning"
)

var topics = []Topic{
	AcademicPressure,
	FamilyExpectations,
	CareerConfusion,
	SocialAnxiety,
	FinancialStress,
	RelationshipIssues,
	IdentityCrisis,
	MentalHealth,
	TimeManagement,
	FuturePlanning,
}

var bySlug = func() map[string]Topic {
	m := make(map[string]Topic, len(topics))
	for _, t := range topics {
		m[t.Slug()] = t
	}
	return m
}()

// Info is the public projection of a topic.
type Info struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// All returns the topics in display order. The slice is a copy.
func All() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

// Catalog returns the display projection of every topic.
func Catalog() []Info {
	out := make([]Info, 0, len(topics))
	for _, t := range topics {
		out = append(out, Info{Name: string(t), Slug: t.Slug()})
	}
	return out
}

// Parse accepts either the exact topic name or its slug.
func Parse(s string) (Topic, bool) {
	s = strings.TrimSpace(s)
	if t := Topic(s); t.Valid() {
		return t, true
	}
	t, ok := bySlug[strings.ToLower(s)]
	return t, ok
}

func (t Topic) Valid() bool {
	for _, known := range topics {
		if t == known {
			return true
		}
	}
	return false
}

// Slug is the lower-case, dash separated form used in URLs.
func (t Topic) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(t)), " ", "-")
}

func (t Topic) String() string {
	return string(t)
}
