package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spidervirus/FutureSelf/api"
	"github.com/spidervirus/FutureSelf/nlp"
)

//POST /nlp/emotion
func handleAnalyzeEmotion(w http.ResponseWriter, r *http.Request) *handlerResponse {
	var req *AnalyzeRequest
	d := json.NewDecoder(r.Body)

	err := d.Decode(&req)
	if err != nil || req == nil {
		return handleError(http.StatusBadRequest, fmt.Errorf("Could not decode json: %v", err))
	}

	if req.Message == "" {
		return handleError(http.StatusBadRequest, errors.New("message empty"))
	}

	user := r.Context().Value(api.UserKey).(*api.User)

	result := nlp.AnalyzeEmotion(req.Message, user.ID)

	_, err = api.CreateEmotionAnalysis(r.Context(), &result)
	if resp := checkAPIError(err); resp != nil {
		return resp
	}

	return &handlerResponse{Code: http.StatusOK, Body: result}
}

//POST /nlp/bias
func handleAnalyzeBias(w http.ResponseWriter, r *http.Request) *handlerResponse {
	var req *AnalyzeRequest
	d := json.NewDecoder(r.Body)

	err := d.Decode(&req)
	if err != nil || req == nil {
		return handleError(http.StatusBadRequest, fmt.Errorf("Could not decode json: %v", err))
	}

	if req.Message == "" {
		return handleError(http.StatusBadRequest, errors.New("message empty"))
	}

	user := r.Context().Value(api.UserKey).(*api.User)

	result := nlp.AnalyzeBias(req.Message, user.ID)

	_, err = api.CreateBiasAnalysis(r.Context(), &result)
	if resp := checkAPIError(err); resp != nil {
		return resp
	}

	return &handlerResponse{Code: http.StatusOK, Body: result}
}
