package model

import "strings"

// Evidence is a single supporting record attached to a match under review.
// Values are read-only once fetched.
type Evidence struct {
	ID              string   `json:"evidenceId" yaml:"evidenceId"`                             // Opaque identifier, unique within a result set
	Title           string   `json:"title,omitempty" yaml:"title,omitempty"`                   // Free text, may be blank
	Credibility     string   `json:"credibility,omitempty" yaml:"credibility,omitempty"`       // high, medium, low or absent
	OriginalURL     string   `json:"originalUrl,omitempty" yaml:"originalUrl,omitempty"`       // Source link, may be blank
	Source          string   `json:"source,omitempty" yaml:"source,omitempty"`                 // Publisher name
	Summary         string   `json:"summary,omitempty" yaml:"summary,omitempty"`               // Short abstract
	PublicationDate string   `json:"publicationDate,omitempty" yaml:"publicationDate,omitempty"` // As supplied by the backend
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// EvidenceView is an Evidence prepared for display
type EvidenceView struct {
	Evidence
	Tier CredibilityTier `json:"tier"` // Sort rank derived from the raw credibility
}

// HasLink reports whether the evidence carries a usable source link
func (e Evidence) HasLink() bool {
	return strings.TrimSpace(e.OriginalURL) != ""
}

// CredibilityTier is the ordinal rank used to order evidences
type CredibilityTier int

const (
	TierHigh     CredibilityTier = 1
	TierMedium   CredibilityTier = 2
	TierLow      CredibilityTier = 3
	TierUnranked CredibilityTier = 4 // Absent, empty or unrecognized credibility
)

// ParseCredibility maps a raw credibility value to its tier.
// Unrecognized values, including future labels, rank last.
func ParseCredibility(raw string) CredibilityTier {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return TierHigh
	case "medium":
		return TierMedium
	case "low":
		return TierLow
	default:
		return TierUnranked
	}
}

func (t CredibilityTier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return "unranked"
	}
}
