package services

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"debateloop/models"

	"github.com/montanaflynn/stats"
)

// QualityThresholds holds the fixed constants of the scoring heuristics.
// The values come from the reference analysis of real debate data; tune them
// here, not in the scoring code.
type QualityThresholds struct {
	CoherenceDrop       float64 // alert if coherence below
	TopicDrift          float64 // alert if relevance below
	Repetition          float64 // alert if diversity below
	FakeDetection       float64 // alert if authenticity below
	VarianceMin         float64 // response-time variance below this suggests fixed delays
	VarianceMax         float64 // variance above this indicates abnormal spread
	RecommendationFloor float64 // recommend intervention for any component below
}

// DefaultQualityThresholds returns the reference constants.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		CoherenceDrop:       0.6,
		TopicDrift:          0.7,
		Repetition:          0.5,
		FakeDetection:       0.4,
		VarianceMin:         0.3,
		VarianceMax:         5.0,
		RecommendationFloor: 0.7,
	}
}

var (
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	phrasePattern   = regexp.MustCompile(`[\p{L}\p{N}_]{4,}`)
	sentencePattern = regexp.MustCompile(`[。！？.!?]`)
	hiraganaPattern = regexp.MustCompile(`[ぁ-ん]`)
	katakanaPattern = regexp.MustCompile(`[ァ-ヴ]`)
	kanjiPattern    = regexp.MustCompile(`[一-龯]`)

	// Phrases meaning "as I/you said earlier" in either working language.
	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`先ほど.*言った`),
		regexp.MustCompile(`前の.*主張`),
		regexp.MustCompile(`さっき.*述べた`),
		regexp.MustCompile(`(?i)you mentioned`),
		regexp.MustCompile(`(?i)you said`),
		regexp.MustCompile(`(?i)your point about`),
	}
)

// Function words of the debate's two working languages, excluded from keyword
// extraction.
var stopWords = map[string]struct{}{
	"は": {}, "が": {}, "を": {}, "に": {}, "で": {}, "と": {}, "の": {}, "から": {}, "まで": {},
	"the": {}, "is": {}, "are": {}, "was": {}, "were": {}, "been": {}, "be": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "should": {}, "could": {}, "may": {}, "might": {},
}

// QualityCalculator derives real-time quality metrics from turn text and
// timing. Scoring is pure apart from the keyword cache.
type QualityCalculator struct {
	thresholds QualityThresholds

	cacheMu   sync.Mutex
	wordCache map[string][]string
}

func NewQualityCalculator(thresholds QualityThresholds) *QualityCalculator {
	return &QualityCalculator{
		thresholds: thresholds,
		wordCache:  make(map[string][]string),
	}
}

// CalculateTurnMetrics computes all metrics for a single turn against the
// session's history and topic.
func (q *QualityCalculator) CalculateTurnMetrics(turn models.DiscussionTurn, session *models.DebateSession, topic string) models.TurnMetrics {
	var history []models.DiscussionTurn
	for _, t := range session.TurnHistory {
		if t.TurnNumber < turn.TurnNumber {
			history = append(history, t)
		}
	}

	return models.TurnMetrics{
		TurnNumber:         turn.TurnNumber,
		CoherenceScore:     q.coherence(turn, history),
		RelevanceScore:     q.relevance(turn, topic),
		DiversityScore:     q.diversity(turn, history),
		AuthenticityScore:  q.authenticity(session),
		ResponseTime:       turn.ResponseTime,
		ReferenceCount:     q.countReferences(turn),
		NewArguments:       q.countNewArguments(turn, history),
		LinguisticFeatures: q.linguisticFeatures(turn.Message),
	}
}

// coherence measures how much a turn lexically retains from the last three
// preceding turns. The first turn is coherent by definition.
func (q *QualityCalculator) coherence(turn models.DiscussionTurn, history []models.DiscussionTurn) float64 {
	if len(history) == 0 {
		return 1.0
	}

	historyKeywords := make(map[string]struct{})
	start := len(history) - 3
	if start < 0 {
		start = 0
	}
	for _, h := range history[start:] {
		for _, w := range q.extractKeywords(h.Message) {
			historyKeywords[w] = struct{}{}
		}
	}
	if len(historyKeywords) == 0 {
		return 0.8
	}

	common := make(map[string]struct{})
	for _, w := range q.extractKeywords(turn.Message) {
		if _, ok := historyKeywords[w]; ok {
			common[w] = struct{}{}
		}
	}

	score := 2 * float64(len(common)) / float64(len(historyKeywords))
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// relevance measures keyword overlap between a turn and the debate topic.
func (q *QualityCalculator) relevance(turn models.DiscussionTurn, topic string) float64 {
	topicWords := q.extractKeywords(topic)
	if len(topicWords) == 0 {
		return 0.5
	}
	topicSet := make(map[string]struct{}, len(topicWords))
	for _, w := range topicWords {
		topicSet[w] = struct{}{}
	}

	matches := 0
	for _, w := range q.extractKeywords(turn.Message) {
		if _, ok := topicSet[w]; ok {
			matches++
		}
	}

	score := float64(matches) / float64(len(topicWords)) * 1.5
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// diversity is the unique-to-total keyword ratio across the agent's own
// turns, guarding against repetitive responses.
func (q *QualityCalculator) diversity(turn models.DiscussionTurn, history []models.DiscussionTurn) float64 {
	var agentTurns []models.DiscussionTurn
	for _, t := range history {
		if t.AgentID == turn.AgentID {
			agentTurns = append(agentTurns, t)
		}
	}
	if len(agentTurns) == 0 {
		return 1.0
	}

	var all []string
	for _, t := range append(agentTurns, turn) {
		all = append(all, q.extractKeywords(t.Message)...)
	}
	if len(all) == 0 {
		return 0.5
	}

	unique := make(map[string]struct{}, len(all))
	for _, w := range all {
		unique[w] = struct{}{}
	}
	return float64(len(unique)) / float64(len(all))
}

// authenticity fingerprints response timing across the whole session.
// Suspiciously uniform variance suggests synthetic fixed delays; an abnormal
// spread is also penalized. This is a coarse heuristic, not a statistical
// test.
func (q *QualityCalculator) authenticity(session *models.DebateSession) float64 {
	var times []float64
	for _, t := range session.TurnHistory {
		if t.ResponseTime > 0 {
			times = append(times, t.ResponseTime)
		}
	}
	if len(times) < 3 {
		return 0.8
	}

	variance, err := stats.SampleVariance(times)
	if err != nil {
		return 0.8
	}

	switch {
	case variance < q.thresholds.VarianceMin:
		return 0.3
	case variance > q.thresholds.VarianceMax:
		return 0.7
	default:
		return 1.0
	}
}

// extractKeywords returns lowercase alphanumeric tokens longer than two
// runes, minus stop words. Results are cached per text.
func (q *QualityCalculator) extractKeywords(text string) []string {
	q.cacheMu.Lock()
	cached, ok := q.wordCache[text]
	q.cacheMu.Unlock()
	if ok {
		return cached
	}

	var keywords []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords = append(keywords, w)
	}

	q.cacheMu.Lock()
	q.wordCache[text] = keywords
	q.cacheMu.Unlock()
	return keywords
}

// linguisticFeatures extracts display-only diagnostics: sentence shape,
// punctuation usage, and script-class ratios.
func (q *QualityCalculator) linguisticFeatures(text string) map[string]float64 {
	features := make(map[string]float64)

	var sentences []string
	for _, s := range sentencePattern.Split(text, -1) {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	sentenceCount := len(sentences)
	totalSentenceLen := 0
	for _, s := range sentences {
		totalSentenceLen += utf8.RuneCountInString(s)
	}
	denom := sentenceCount
	if denom == 0 {
		denom = 1
	}
	features["sentence_count"] = float64(sentenceCount)
	features["avg_sentence_length"] = float64(totalSentenceLen) / float64(denom)

	textLen := utf8.RuneCountInString(text)
	if textLen == 0 {
		textLen = 1
	}
	features["exclamation_ratio"] = float64(strings.Count(text, "！")) / float64(textLen)
	features["question_ratio"] = float64(strings.Count(text, "？")) / float64(textLen)
	features["hiragana_ratio"] = float64(len(hiraganaPattern.FindAllString(text, -1))) / float64(textLen)
	features["katakana_ratio"] = float64(len(katakanaPattern.FindAllString(text, -1))) / float64(textLen)
	features["kanji_ratio"] = float64(len(kanjiPattern.FindAllString(text, -1))) / float64(textLen)

	return features
}

// countReferences counts explicit callbacks to earlier arguments.
func (q *QualityCalculator) countReferences(turn models.DiscussionTurn) int {
	count := 0
	for _, p := range referencePatterns {
		count += len(p.FindAllString(turn.Message, -1))
	}
	return count
}

// countNewArguments estimates new arguments from novel 4+-character terms,
// roughly three novel terms per argument.
func (q *QualityCalculator) countNewArguments(turn models.DiscussionTurn, history []models.DiscussionTurn) int {
	seen := make(map[string]struct{})
	for _, h := range history {
		for _, w := range phrasePattern.FindAllString(strings.ToLower(h.Message), -1) {
			seen[w] = struct{}{}
		}
	}

	novel := make(map[string]struct{})
	for _, w := range phrasePattern.FindAllString(strings.ToLower(turn.Message), -1) {
		if _, ok := seen[w]; !ok {
			novel[w] = struct{}{}
		}
	}
	return len(novel) / 3
}

// CalculateSessionQuality aggregates per-turn metrics into a session report
// with alerts and recommended interventions.
func (q *QualityCalculator) CalculateSessionQuality(session *models.DebateSession) models.QualityReport {
	if len(session.TurnHistory) == 0 {
		return models.QualityReport{
			Alerts:          []string{"No turns in session"},
			Recommendations: []string{"Start the debate"},
			Timestamp:       time.Now(),
		}
	}

	var coherences, relevances, diversities, authenticities []float64
	totalReferences := 0
	for _, turn := range session.TurnHistory {
		m := q.CalculateTurnMetrics(turn, session, session.Topic)
		coherences = append(coherences, m.CoherenceScore)
		relevances = append(relevances, m.RelevanceScore)
		diversities = append(diversities, m.DiversityScore)
		authenticities = append(authenticities, m.AuthenticityScore)
		totalReferences += m.ReferenceCount
	}

	coherence, _ := stats.Mean(coherences)
	relevance, _ := stats.Mean(relevances)
	diversity, _ := stats.Mean(diversities)
	authenticity, _ := stats.Mean(authenticities)

	referenceRate := float64(totalReferences) / float64(len(session.TurnHistory)) * 0.2
	if referenceRate > 1.0 {
		referenceRate = 1.0
	}
	engagement := (diversity + referenceRate) / 2
	overall := (coherence + relevance + engagement + authenticity) / 4

	var alerts []string
	if coherence < q.thresholds.CoherenceDrop {
		alerts = append(alerts, fmt.Sprintf("Low coherence: %.1f%%", coherence*100))
	}
	if relevance < q.thresholds.TopicDrift {
		alerts = append(alerts, fmt.Sprintf("Topic drift detected: %.1f%%", relevance*100))
	}
	if diversity < q.thresholds.Repetition {
		alerts = append(alerts, fmt.Sprintf("High repetition: %.1f%%", diversity*100))
	}
	if authenticity < q.thresholds.FakeDetection {
		alerts = append(alerts, fmt.Sprintf("Authenticity concern: %.1f%%", authenticity*100))
	}

	var recommendations []string
	if coherence < q.thresholds.RecommendationFloor {
		recommendations = append(recommendations, "Encourage agents to reference previous points")
	}
	if relevance < q.thresholds.RecommendationFloor {
		recommendations = append(recommendations, "Steer conversation back to main topic")
	}
	if engagement < q.thresholds.RecommendationFloor {
		recommendations = append(recommendations, "Introduce new perspectives or challenges")
	}
	if authenticity < q.thresholds.RecommendationFloor {
		recommendations = append(recommendations, "Check backend connectivity and response patterns")
	}

	return models.QualityReport{
		OverallScore:    overall,
		Coherence:       coherence,
		Relevance:       relevance,
		Engagement:      engagement,
		Authenticity:    authenticity,
		Alerts:          alerts,
		Recommendations: recommendations,
		Timestamp:       time.Now(),
	}
}
