package models

import "time"

// TurnMetrics is the score bundle for a single turn. Derived on demand and
// never persisted directly; scalar scores get folded into checkpoint quality
// snapshots.
type TurnMetrics struct {
	TurnNumber         int                `json:"turn_number"`
	CoherenceScore     float64            `json:"coherence_score"`
	RelevanceScore     float64            `json:"relevance_score"`
	DiversityScore     float64            `json:"diversity_score"`
	AuthenticityScore  float64            `json:"authenticity_score"`
	ResponseTime       float64            `json:"response_time"`
	ReferenceCount     int                `json:"reference_count"`
	NewArguments       int                `json:"new_arguments"`
	LinguisticFeatures map[string]float64 `json:"linguistic_features"`
}

// QualityReport aggregates quality over a whole session.
type QualityReport struct {
	OverallScore    float64   `json:"overall_score"`
	Coherence       float64   `json:"coherence"`
	Relevance       float64   `json:"relevance"`
	Engagement      float64   `json:"engagement"`
	Authenticity    float64   `json:"authenticity"`
	Alerts          []string  `json:"alerts"`
	Recommendations []string  `json:"recommendations"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot flattens the report's scalar scores for embedding in a checkpoint.
func (r *QualityReport) Snapshot() map[string]float64 {
	return map[string]float64{
		"overall":      r.OverallScore,
		"coherence":    r.Coherence,
		"relevance":    r.Relevance,
		"engagement":   r.Engagement,
		"authenticity": r.Authenticity,
	}
}
