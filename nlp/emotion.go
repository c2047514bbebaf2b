package nlp

import (
	"time"
)

// EmotionScores is the per-emotion share of the message, summing to 1
type EmotionScores struct {
	Joy      float64 `json:"joy"`
	Sadness  float64 `json:"sadness"`
	Anger    float64 `json:"anger"`
	Fear     float64 `json:"fear"`
	Surprise float64 `json:"surprise"`
	Neutral  float64 `json:"neutral"`
}

// VoiceEmotions carries arousal/valence cues from an audio clip. It is null
// in results for text-only analysis.
type VoiceEmotions struct {
	Arousal         float64 `json:"arousal"`
	Valence         float64 `json:"valence"`
	DominantEmotion string  `json:"dominant_emotion"`
}

// EmotionResult is the emotion analysis payload returned to clients
type EmotionResult struct {
	Emotions        EmotionScores  `json:"emotions"`
	DominantEmotion string         `json:"dominant_emotion"`
	Confidence      float64        `json:"confidence"`
	VoiceEmotions   *VoiceEmotions `json:"voice_emotions"`
	UserID          string         `json:"user_id"`
	Timestamp       time.Time      `json:"timestamp"`
}

var emotionLexicon = map[string][]string{
	"joy":      {"happy", "glad", "great", "love", "loved", "wonderful", "excited", "joy", "amazing", "proud", "grateful", "fun", "enjoyed"},
	"sadness":  {"sad", "down", "unhappy", "miss", "missed", "lonely", "cry", "cried", "lost", "hurt", "grief", "hopeless", "tired"},
	"anger":    {"angry", "mad", "furious", "hate", "hated", "annoyed", "unfair", "rage", "frustrated", "irritated"},
	"fear":     {"afraid", "scared", "worried", "anxious", "nervous", "panic", "fear", "dread", "terrified"},
	"surprise": {"wow", "surprised", "unexpected", "suddenly", "unbelievable", "shocked", "stunned"},
}

var emotionTerms = make(map[string]string)

func init() {
	for emotion, terms := range emotionLexicon {
		for _, term := range terms {
			emotionTerms[term] = emotion
		}
	}
}

// emotionOrder fixes the tie-break order for the dominant emotion
var emotionOrder = []string{"joy", "sadness", "anger", "fear", "surprise"}

// AnalyzeEmotion scores the emotional content of a message. Scores are word
// counts against a fixed lexicon, normalized so the distribution sums to 1
// with one share reserved for neutral. Text with no emotion words is fully
// neutral.
func AnalyzeEmotion(text, userID string) EmotionResult {
	counts := make(map[string]int)
	total := 0
	for _, token := range tokenize(text) {
		if emotion, ok := emotionTerms[token]; ok {
			counts[emotion]++
			total++
		}
	}

	result := EmotionResult{
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}

	if total == 0 {
		result.Emotions.Neutral = 1
		result.DominantEmotion = "neutral"
		result.Confidence = 1
		return result
	}

	denom := float64(total + 1)
	score := func(emotion string) float64 {
		return float64(counts[emotion]) / denom
	}
	result.Emotions = EmotionScores{
		Joy:      score("joy"),
		Sadness:  score("sadness"),
		Anger:    score("anger"),
		Fear:     score("fear"),
		Surprise: score("surprise"),
		Neutral:  1 / denom,
	}

	for _, emotion := range emotionOrder {
		if s := score(emotion); s > result.Confidence {
			result.DominantEmotion = emotion
			result.Confidence = s
		}
	}
	return result
}
