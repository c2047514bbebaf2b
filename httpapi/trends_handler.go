package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spidervirus/FutureSelf/api"
)

//defaultTrendDays is the analysis window when no days parameter is given
const defaultTrendDays = 30

//trendDays reads the days query parameter, or returns the default window
func trendDays(r *http.Request) (int, *handlerResponse) {
	q := r.URL.Query().Get("days")
	if q == "" {
		return defaultTrendDays, nil
	}

	days, err := strconv.Atoi(q)
	if err != nil {
		return 0, handleError(http.StatusBadRequest, fmt.Errorf("Could not decode days: %v", err))
	}
	return days, nil
}

//GET /analytics/emotion
func handleEmotionTrends(w http.ResponseWriter, r *http.Request) *handlerResponse {
	days, errResp := trendDays(r)
	if errResp != nil {
		return errResp
	}

	user := r.Context().Value(api.UserKey).(*api.User)

	trends, err := api.ReadEmotionTrends(r.Context(), user.ID, days)
	if resp := checkAPIError(err); resp != nil {
		return resp
	}

	return &handlerResponse{Code: http.StatusOK, Body: trends}
}

//GET /analytics/bias
func handleBiasTrends(w http.ResponseWriter, r *http.Request) *handlerResponse {
	days, errResp := trendDays(r)
	if errResp != nil {
		return errResp
	}

	user := r.Context().Value(api.UserKey).(*api.User)

	trends, err := api.ReadBiasTrends(r.Context(), user.ID, days)
	if resp := checkAPIError(err); resp != nil {
		return resp
	}

	return &handlerResponse{Code: http.StatusOK, Body: trends}
}
