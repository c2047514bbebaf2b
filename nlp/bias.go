package nlp

import (
	"math"
	"strings"
	"time"
)

// BiasPatterns scores generalizing language per protected class
type BiasPatterns struct {
	Gender     float64 `json:"gender"`
	Race       float64 `json:"race"`
	Religion   float64 `json:"religion"`
	Age        float64 `json:"age"`
	Disability float64 `json:"disability"`
}

// SentimentScores is the positive/negative/neutral share of the message,
// summing to 1
type SentimentScores struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// BiasResult is the bias and toxicity analysis payload returned to clients
type BiasResult struct {
	ToxicityScore   float64         `json:"toxicity_score"`
	BiasPatterns    BiasPatterns    `json:"bias_patterns"`
	Language        string          `json:"language"`
	Sentiment       SentimentScores `json:"sentiment"`
	Recommendations []string        `json:"recommendations"`
	UserID          string          `json:"user_id"`
	Timestamp       time.Time       `json:"timestamp"`
}

var toxicTerms = map[string]bool{
	"hate":       true,
	"stupid":     true,
	"idiot":      true,
	"idiots":     true,
	"awful":      true,
	"worst":      true,
	"useless":    true,
	"pathetic":   true,
	"disgusting": true,
	"shut":       true,
}

// Bias phrases are matched as substrings of the lowercased text so
// multi-word generalizations count.
var biasPhrases = map[string][]string{
	"gender":     {"all men", "all women", "like a girl", "man up", "women can't", "men can't", "typical woman", "typical man"},
	"race":       {"those people", "you people", "go back to", "their kind"},
	"religion":   {"all muslims", "all christians", "all jews", "all atheists", "religious people are"},
	"age":        {"too old to", "too young to", "ok boomer", "old people are", "young people are"},
	"disability": {"crazy person", "insane person", "what a psycho", "retard"},
}

var positiveTerms = map[string]bool{
	"good":      true,
	"great":     true,
	"love":      true,
	"happy":     true,
	"wonderful": true,
	"thanks":    true,
	"thankful":  true,
	"excellent": true,
	"nice":      true,
	"better":    true,
}

var negativeTerms = map[string]bool{
	"bad":      true,
	"hate":     true,
	"awful":    true,
	"terrible": true,
	"worst":    true,
	"sad":      true,
	"angry":    true,
	"worse":    true,
	"horrible": true,
	"ugly":     true,
}

// AnalyzeBias scores toxicity, generalizing language, and sentiment for a
// message. Each toxic word adds a fifth to the toxicity score and each bias
// phrase a quarter to its pattern, both capped at 1.
func AnalyzeBias(text, userID string) BiasResult {
	lowered := strings.ToLower(text)
	tokens := tokenize(text)

	toxic := 0
	positive := 0
	negative := 0
	for _, token := range tokens {
		if toxicTerms[token] {
			toxic++
		}
		if positiveTerms[token] {
			positive++
		}
		if negativeTerms[token] {
			negative++
		}
	}

	patterns := BiasPatterns{
		Gender:     phraseScore(lowered, biasPhrases["gender"]),
		Race:       phraseScore(lowered, biasPhrases["race"]),
		Religion:   phraseScore(lowered, biasPhrases["religion"]),
		Age:        phraseScore(lowered, biasPhrases["age"]),
		Disability: phraseScore(lowered, biasPhrases["disability"]),
	}

	denom := float64(positive + negative + 1)
	result := BiasResult{
		ToxicityScore: math.Min(1, float64(toxic)/5),
		BiasPatterns:  patterns,
		Language:      "English",
		Sentiment: SentimentScores{
			Positive: float64(positive) / denom,
			Negative: float64(negative) / denom,
			Neutral:  1 / denom,
		},
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}

	if result.ToxicityScore >= 0.4 {
		result.Recommendations = append(result.Recommendations, "Soften hostile or insulting wording")
	}
	if patterns.Gender+patterns.Race+patterns.Religion+patterns.Age+patterns.Disability > 0 {
		result.Recommendations = append(result.Recommendations,
			"Consider using more inclusive language",
			"Avoid generalizations about groups of people")
	}
	return result
}

func phraseScore(text string, phrases []string) float64 {
	hits := 0
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			hits++
		}
	}
	return math.Min(1, float64(hits)/4)
}
