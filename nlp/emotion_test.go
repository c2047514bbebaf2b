package nlp_test

import (
	"math"
	"testing"

	"github.com/spidervirus/FutureSelf/nlp"
)

func within(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestAnalyzeEmotionJoy(t *testing.T) {
	result := nlp.AnalyzeEmotion("I am so happy and grateful today", "user-1")

	if result.DominantEmotion != "joy" {
		t.Errorf("Expected dominant emotion joy, got %q", result.DominantEmotion)
	}
	if !within(result.Emotions.Joy, 2.0/3.0) {
		t.Errorf("Expected joy score 2/3, got %f", result.Emotions.Joy)
	}
	if !within(result.Confidence, result.Emotions.Joy) {
		t.Errorf("Expected confidence to match the dominant score, got %f", result.Confidence)
	}
	if result.UserID != "user-1" {
		t.Errorf("Expected user ID to pass through, got %q", result.UserID)
	}
	if result.VoiceEmotions != nil {
		t.Errorf("Expected no voice emotions for text analysis, got %+v", result.VoiceEmotions)
	}
	if result.Timestamp.IsZero() {
		t.Error("Expected a timestamp on the result")
	}
}

func TestAnalyzeEmotionNeutral(t *testing.T) {
	result := nlp.AnalyzeEmotion("the meeting is at three", "user-1")

	if result.DominantEmotion != "neutral" {
		t.Errorf("Expected dominant emotion neutral, got %q", result.DominantEmotion)
	}
	if !within(result.Emotions.Neutral, 1) {
		t.Errorf("Expected neutral score 1, got %f", result.Emotions.Neutral)
	}
}

func TestAnalyzeEmotionPicksStrongest(t *testing.T) {
	result := nlp.AnalyzeEmotion("I was scared and worried but also happy", "user-1")

	if result.DominantEmotion != "fear" {
		t.Errorf("Expected dominant emotion fear, got %q", result.DominantEmotion)
	}
	if !within(result.Emotions.Fear, 0.5) {
		t.Errorf("Expected fear score 0.5, got %f", result.Emotions.Fear)
	}
	if !within(result.Emotions.Joy, 0.25) {
		t.Errorf("Expected joy score 0.25, got %f", result.Emotions.Joy)
	}
}

func TestAnalyzeEmotionTieBreaksInFixedOrder(t *testing.T) {
	result := nlp.AnalyzeEmotion("I was happy then sad", "user-1")

	if result.DominantEmotion != "joy" {
		t.Errorf("Expected tied scores to pick joy, got %q", result.DominantEmotion)
	}
}

func TestAnalyzeEmotionSumsToOne(t *testing.T) {
	inputs := []string{
		"I am so happy and grateful today",
		"the meeting is at three",
		"scared worried happy sad angry wow",
	}
	for _, input := range inputs {
		e := nlp.AnalyzeEmotion(input, "user-1").Emotions
		sum := e.Joy + e.Sadness + e.Anger + e.Fear + e.Surprise + e.Neutral
		if !within(sum, 1) {
			t.Errorf("Expected scores for %q to sum to 1, got %f", input, sum)
		}
	}
}
