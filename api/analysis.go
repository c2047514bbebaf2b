package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spidervirus/FutureSelf/nlp"
)

//CreateEmotionAnalysis stores the given emotion analysis and returns its ID, or an error if one occurred
func CreateEmotionAnalysis(ctx context.Context, analysis *nlp.EmotionResult) (id int64, err error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	if err := ValidateString("user_id", analysis.UserID, 36); err != nil {
		return 0, &Error{Description: "Could not validate emotion analysis", Type: ErrorTypeUser, Err: err}
	}

	emotions, err := json.Marshal(analysis.Emotions)
	if err != nil {
		return 0, &Error{Description: "Could not marshal emotions json", Type: ErrorTypeServer, Err: err}
	}

	res, err := tx.Exec("INSERT INTO emotion_analysis(user_id, emotions, dominant_emotion, confidence, created_at) VALUES(?, ?, ?, ?, ?);",
		analysis.UserID,
		emotions,
		analysis.DominantEmotion,
		analysis.Confidence,
		analysis.Timestamp.UTC(),
	)
	if err != nil {
		return 0, &Error{Description: "Could not insert emotion analysis", Type: ErrorTypeServer, Err: err}
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, &Error{Description: "Could not fetch emotion analysis id", Type: ErrorTypeServer, Err: err}
	}

	return id, nil
}

//ReadEmotionAnalyses returns the emotion analyses for the given user between start and end in ascending
//chronological order, or an error if one occurred. Only stored fields are populated on the results.
func ReadEmotionAnalyses(ctx context.Context, userID string, start, end time.Time) ([]*nlp.EmotionResult, error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	var analyses []*nlp.EmotionResult

	rows, err := tx.Query("SELECT user_id, emotions, dominant_emotion, confidence, created_at FROM emotion_analysis WHERE user_id=? AND created_at>=? AND created_at<=? ORDER BY created_at;",
		userID, start, end)
	if err != nil {
		return nil, &Error{Description: fmt.Sprintf("Could not query emotion analyses for User(%s)", userID), Type: ErrorTypeServer, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		a := new(nlp.EmotionResult)
		var emotions []byte

		if err := rows.Scan(&(a.UserID), &emotions, &(a.DominantEmotion), &(a.Confidence), &(a.Timestamp)); err != nil {
			return nil, &Error{Description: fmt.Sprintf("Could not scan emotion analysis row for User(%s)", userID), Type: ErrorTypeServer, Err: err}
		}

		if err := json.Unmarshal(emotions, &(a.Emotions)); err != nil {
			return nil, &Error{Description: fmt.Sprintf("Could not unmarshal emotions json for User(%s)", userID), Type: ErrorTypeServer, Err: err}
		}

		analyses = append(analyses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, &Error{Description: fmt.Sprintf("Could not scan emotion analysis rows for User(%s)", userID), Type: ErrorTypeServer, Err: err}
	}

	return analyses, nil
}

//CreateBiasAnalysis stores the given bias analysis and returns its ID, or an error if one occurred
func CreateBiasAnalysis(ctx context.Context, analysis *nlp.BiasResult) (id int64, err error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	if err := ValidateString("user_id", analysis.UserID, 36); err != nil {
		return 0, &Error{Description: "Could not validate bias analysis", Type: ErrorTypeUser, Err: err}
	}

	patterns, err := json.Marshal(analysis.BiasPatterns)
	if err != nil {
		return 0, &Error{Description: "Could not marshal bias patterns json", Type: ErrorTypeServer, Err: err}
	}

	sentiment, err := json.Marshal(analysis.Sentiment)
	if err != nil {
		return 0, &Error{Description: "Could not marshal sentiment json", Type: ErrorTypeServer, Err: err}
	}

	res, err := tx.Exec("INSERT INTO bias_analysis(user_id, toxicity_score, bias_patterns, language, sentiment, created_at) VALUES(?, ?, ?, ?, ?, ?);",
		analysis.UserID,
		analysis.ToxicityScore,
		patterns,
		analysis.Language,
		sentiment,
		analysis.Timestamp.UTC(),
	)
	if err != nil {
		return 0, &Error{Description: "Could not insert bias analysis", Type: ErrorTypeServer, Err: err}
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, &Error{Description: "Could not fetch bias analysis id", Type: ErrorTypeServer, Err: err}
	}

	return id, nil
}

//ReadBiasAnalyses returns the bias analyses for the given user between start and end in ascending
//chronological order, or an error if one occurred. Only stored fields are populated on the results.
func ReadBiasAnalyses(ctx context.Context, userID string, start, end time.Time) ([]*nlp.BiasResult, error) {
	tx := ctx.Value(TransactionKey).(*sql.Tx)

	var analyses []*nlp.BiasResult

	rows, err := tx.Query("SELECT user_id, toxicity_score, bias_patterns, language, sentiment, created_at FROM bias_analysis WHERE user_id=? AND created_at>=? AND created_at<=? ORDER BY created_at;",
		userID, start, end)
	if err != nil {
		return nil, &Error{Description: fmt.Sprintf("Could not query bias analyses for User(%s)", userID), Type: ErrorTypeServer, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		a := new(nlp.BiasResult)
		var patterns, sentiment []byte

		if err := rows.Scan(&(a.UserID), &(a.ToxicityScore), &patterns, &(a.Language), &sentiment, &(a.Timestamp)); err != nil {
			return nil, &Error{Description: fmt.Sprintf("Could not scan bias analysis row for User(%s)", userID), Type: ErrorTypeServer, Err: err}
		}

		if err := json.Unmarshal(patterns, &(a.BiasPatterns)); err != nil {
			return nil, &Error{Description: fmt.Sprintf("Could not unmarshal bias patterns json for User(%s)", userID), Type: ErrorTypeServer, Err: err}
		}

		if err := json.Unmarshal(sentiment, &(a.Sentiment)); err != nil {
			return nil, &Error{Description: fmt.Sprintf("Could not unmarshal sentiment json for User(%s)", userID), Type: ErrorTypeServer, Err: err}
		}

		analyses = append(analyses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, &Error{Description: fmt.Sprintf("Could not scan bias analysis rows for User(%s)", userID), Type: ErrorTypeServer, Err: err}
	}

	return analyses, nil
}
