package models

import "time"

// ThreatLevel bands the 0-100 threat score.
//
//	SAFE     (<25):  no action, not persisted
//	LOW      (25-44)
//	MEDIUM   (45-64)
//	HIGH     (65-79)
//	CRITICAL (>=80)
type ThreatLevel string

const (
	LevelSafe     ThreatLevel = "SAFE"
	LevelLow      ThreatLevel = "LOW"
	LevelMedium   ThreatLevel = "MEDIUM"
	LevelHigh     ThreatLevel = "HIGH"
	LevelCritical ThreatLevel = "CRITICAL"
)

// levelRank orders levels for override comparisons (higher wins on ties).
func levelRank(l ThreatLevel) int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelCritical:
		return 4
	default:
		return 0
	}
}

// MaxLevel returns the higher of two threat levels.
func MaxLevel(a, b ThreatLevel) ThreatLevel {
	if levelRank(b) > levelRank(a) {
		return b
	}
	return a
}

// ThreatCategory tags which threat domain(s) a detection belongs to.
type ThreatCategory string

const (
	CategoryWildlife ThreatCategory = "WILDLIFE"
	CategoryHuman    ThreatCategory = "HUMAN_TRAFFICKING"
	CategoryBoth     ThreatCategory = "BOTH"
	CategorySafe     ThreatCategory = "SAFE"
)

// ThreatAssessment is the scorer's verdict for a single listing.
type ThreatAssessment struct {
	Score           int            `json:"score"` // 0-100
	Level           ThreatLevel    `json:"level"`
	Category        ThreatCategory `json:"category"`
	RequiresReview  bool           `json:"requiresHumanReview"`
	Confidence      float64        `json:"confidence"` // 0.0-1.0
	Reasoning       string         `json:"reasoning"`
	Indicators      []string       `json:"indicators"`
	ExclusionWeight int            `json:"exclusionWeight"`
}

// Detection is the persisted, scored record derived from a Listing.
// listing_url is the unique key at the store.
type Detection struct {
	EvidenceID       string         `json:"evidence_id"`
	ObservedAt       time.Time      `json:"observed_at"`
	Platform         Platform       `json:"platform"`
	ListingURL       string         `json:"listing_url"`
	ListingTitle     string         `json:"listing_title"`
	ListingDesc      string         `json:"listing_description"`
	ListingPrice     string         `json:"listing_price"`
	ListingLocation  string         `json:"listing_location"`
	SearchTerm       string         `json:"search_term"`
	ThreatScore      int            `json:"threat_score"`
	ThreatLevel      ThreatLevel    `json:"threat_level"`
	ThreatCategory   ThreatCategory `json:"threat_category"`
	RequiresReview   bool           `json:"requires_human_review"`
	ConfidenceScore  float64        `json:"confidence_score"`
	EnhancementNotes string         `json:"enhancement_notes,omitempty"`
	VisionAnalyzed   bool           `json:"vision_analyzed"`
	Backfill         bool           `json:"backfill,omitempty"`
}
