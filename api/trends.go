package api

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/spidervirus/FutureSelf/nlp"
)

//Trend classifications for a metric over daily averages
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

//slopeThreshold is the smallest per-day slope counted as a real change
const slopeThreshold = 0.01

//MetricTrend represents the direction of one metric over daily averages
type MetricTrend struct {
	Trend   string  `json:"trend"`
	Slope   float64 `json:"slope"`
	Average float64 `json:"average"`
	Current float64 `json:"current"`
}

//DateRange represents the period a trend report covers
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

//EmotionSummary represents summary statistics over a period of emotion analyses
type EmotionSummary struct {
	TotalAnalyses       int            `json:"total_analyses"`
	MostCommonEmotion   string         `json:"most_common_emotion"`
	AverageConfidence   float64        `json:"average_confidence"`
	EmotionDistribution map[string]int `json:"emotion_distribution"`
	DateRange           *DateRange     `json:"date_range"`
}

//EmotionTrends represents per-emotion trends and summary statistics for a period.
//Message is set instead when the period holds no analyses.
type EmotionTrends struct {
	Message string                  `json:"message,omitempty"`
	Trends  map[string]*MetricTrend `json:"trends"`
	Summary *EmotionSummary         `json:"summary,omitempty"`
}

//BiasSummary represents summary statistics over a period of bias analyses
type BiasSummary struct {
	TotalAnalyses        int                  `json:"total_analyses"`
	AverageToxicity      float64              `json:"average_toxicity"`
	MaxToxicity          float64              `json:"max_toxicity"`
	BiasPatternsDetected map[string]int       `json:"bias_patterns_detected"`
	LanguageDistribution map[string]int       `json:"language_distribution"`
	OverallSentiment     *nlp.SentimentScores `json:"overall_sentiment"`
	DateRange            *DateRange           `json:"date_range"`
}

//BiasTrends represents toxicity and sentiment trends and summary statistics for a period.
//Message is set instead when the period holds no analyses.
type BiasTrends struct {
	Message string                  `json:"message,omitempty"`
	Trends  map[string]*MetricTrend `json:"trends"`
	Summary *BiasSummary            `json:"summary,omitempty"`
}

//emotionMetrics are the metrics tracked by emotion trend reports
var emotionMetrics = []string{"joy", "sadness", "anger", "fear", "surprise", "neutral"}

//biasMetrics are the metrics tracked by bias trend reports
var biasMetrics = []string{"toxicity_score", "sentiment_positive", "sentiment_negative", "sentiment_neutral"}

//linearSlope returns the least-squares slope of the series against x = 0, 1, ... n-1
func linearSlope(series []float64) float64 {
	n := float64(len(series))

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	return (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
}

//classifyTrend classifies a day-ordered series of daily averages.
//Fewer than two days cannot show a direction.
func classifyTrend(daily []float64) *MetricTrend {
	t := &MetricTrend{Current: daily[len(daily)-1]}

	var sum float64
	for _, v := range daily {
		sum += v
	}
	t.Average = sum / float64(len(daily))

	if len(daily) < 2 {
		t.Trend = TrendInsufficientData
		return t
	}

	t.Slope = linearSlope(daily)
	switch {
	case t.Slope > slopeThreshold:
		t.Trend = TrendIncreasing
	case t.Slope < -slopeThreshold:
		t.Trend = TrendDecreasing
	default:
		t.Trend = TrendStable
	}

	return t
}

//ComputeEmotionTrends computes per-emotion trends over daily averages of the
//given analyses, with summary statistics for the start to end period
func ComputeEmotionTrends(analyses []*nlp.EmotionResult, start, end time.Time) *EmotionTrends {
	if len(analyses) == 0 {
		return &EmotionTrends{
			Message: "No emotion data found for the specified period",
			Trends:  map[string]*MetricTrend{},
		}
	}

	byDay := make(map[time.Time][]*nlp.EmotionResult)
	for _, a := range analyses {
		day := a.Timestamp.UTC().Truncate(24 * time.Hour)
		byDay[day] = append(byDay[day], a)
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	series := make(map[string][]float64, len(emotionMetrics))
	for _, day := range days {
		group := byDay[day]

		sums := make(map[string]float64, len(emotionMetrics))
		for _, a := range group {
			sums["joy"] += a.Emotions.Joy
			sums["sadness"] += a.Emotions.Sadness
			sums["anger"] += a.Emotions.Anger
			sums["fear"] += a.Emotions.Fear
			sums["surprise"] += a.Emotions.Surprise
			sums["neutral"] += a.Emotions.Neutral
		}

		for _, metric := range emotionMetrics {
			series[metric] = append(series[metric], sums[metric]/float64(len(group)))
		}
	}

	trends := make(map[string]*MetricTrend, len(emotionMetrics))
	for _, metric := range emotionMetrics {
		trends[metric] = classifyTrend(series[metric])
	}

	distribution := make(map[string]int)
	var confidence float64
	for _, a := range analyses {
		distribution[a.DominantEmotion]++
		confidence += a.Confidence
	}

	names := make([]string, 0, len(distribution))
	for name := range distribution {
		names = append(names, name)
	}
	sort.Strings(names)

	mostCommon := "unknown"
	best := 0
	for _, name := range names {
		if distribution[name] > best {
			mostCommon = name
			best = distribution[name]
		}
	}

	return &EmotionTrends{
		Trends: trends,
		Summary: &EmotionSummary{
			TotalAnalyses:       len(analyses),
			MostCommonEmotion:   mostCommon,
			AverageConfidence:   confidence / float64(len(analyses)),
			EmotionDistribution: distribution,
			DateRange:           &DateRange{Start: start, End: end},
		},
	}
}

//ComputeBiasTrends computes toxicity and sentiment trends over daily averages
//of the given analyses, with summary statistics for the start to end period
func ComputeBiasTrends(analyses []*nlp.BiasResult, start, end time.Time) *BiasTrends {
	if len(analyses) == 0 {
		return &BiasTrends{
			Message: "No bias analysis data found for the specified period",
			Trends:  map[string]*MetricTrend{},
		}
	}

	byDay := make(map[time.Time][]*nlp.BiasResult)
	for _, a := range analyses {
		day := a.Timestamp.UTC().Truncate(24 * time.Hour)
		byDay[day] = append(byDay[day], a)
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	series := make(map[string][]float64, len(biasMetrics))
	for _, day := range days {
		group := byDay[day]

		sums := make(map[string]float64, len(biasMetrics))
		for _, a := range group {
			sums["toxicity_score"] += a.ToxicityScore
			sums["sentiment_positive"] += a.Sentiment.Positive
			sums["sentiment_negative"] += a.Sentiment.Negative
			sums["sentiment_neutral"] += a.Sentiment.Neutral
		}

		for _, metric := range biasMetrics {
			series[metric] = append(series[metric], sums[metric]/float64(len(group)))
		}
	}

	trends := make(map[string]*MetricTrend, len(biasMetrics))
	for _, metric := range biasMetrics {
		trends[metric] = classifyTrend(series[metric])
	}

	summary := &BiasSummary{
		TotalAnalyses:        len(analyses),
		BiasPatternsDetected: make(map[string]int),
		LanguageDistribution: make(map[string]int),
		OverallSentiment:     new(nlp.SentimentScores),
		DateRange:            &DateRange{Start: start, End: end},
	}

	for _, a := range analyses {
		summary.AverageToxicity += a.ToxicityScore
		if a.ToxicityScore > summary.MaxToxicity {
			summary.MaxToxicity = a.ToxicityScore
		}

		if a.BiasPatterns.Gender > 0 {
			summary.BiasPatternsDetected["gender"]++
		}
		if a.BiasPatterns.Race > 0 {
			summary.BiasPatternsDetected["race"]++
		}
		if a.BiasPatterns.Religion > 0 {
			summary.BiasPatternsDetected["religion"]++
		}
		if a.BiasPatterns.Age > 0 {
			summary.BiasPatternsDetected["age"]++
		}
		if a.BiasPatterns.Disability > 0 {
			summary.BiasPatternsDetected["disability"]++
		}

		summary.LanguageDistribution[a.Language]++

		summary.OverallSentiment.Positive += a.Sentiment.Positive
		summary.OverallSentiment.Negative += a.Sentiment.Negative
		summary.OverallSentiment.Neutral += a.Sentiment.Neutral
	}

	n := float64(len(analyses))
	summary.AverageToxicity /= n
	summary.OverallSentiment.Positive /= n
	summary.OverallSentiment.Negative /= n
	summary.OverallSentiment.Neutral /= n

	return &BiasTrends{Trends: trends, Summary: summary}
}

//ReadEmotionTrends returns emotion trends for the given user over the last days days, or an error if one occurred
func ReadEmotionTrends(ctx context.Context, userID string, days int) (*EmotionTrends, error) {
	if days < 1 {
		return nil, &Error{Description: "Could not validate days", Type: ErrorTypeUser, Err: errors.New("days must be positive")}
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	analyses, err := ReadEmotionAnalyses(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	return ComputeEmotionTrends(analyses, start, end), nil
}

//ReadBiasTrends returns bias trends for the given user over the last days days, or an error if one occurred
func ReadBiasTrends(ctx context.Context, userID string, days int) (*BiasTrends, error) {
	if days < 1 {
		return nil, &Error{Description: "Could not validate days", Type: ErrorTypeUser, Err: errors.New("days must be positive")}
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	analyses, err := ReadBiasAnalyses(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	return ComputeBiasTrends(analyses, start, end), nil
}
