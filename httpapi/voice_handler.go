package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spidervirus/FutureSelf/api"
	"github.com/spidervirus/FutureSelf/speech"
)

//maxClipBytes caps the size of an uploaded voice clip
const maxClipBytes = 10 << 20

//POST /transcribe
func handleTranscribe(transcriber speech.Transcriber) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		user := r.Context().Value(api.UserKey).(*api.User)

		if id := r.URL.Query().Get("user_id"); id != "" && id != user.ID {
			return handleError(http.StatusBadRequest, fmt.Errorf("user id mismatch: Query: %s, Authenticated: %s", id, user.ID))
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			return handleError(http.StatusBadRequest, fmt.Errorf("Could not read file field: %v", err))
		}
		defer file.Close()

		audio, err := io.ReadAll(io.LimitReader(file, maxClipBytes+1))
		if err != nil {
			return handleError(http.StatusBadRequest, fmt.Errorf("Could not read file field: %v", err))
		}
		if len(audio) > maxClipBytes {
			return handleError(http.StatusRequestEntityTooLarge, errors.New("clip too large"))
		}

		if _, err = speech.ParseWAV(audio); err != nil {
			return handleError(http.StatusBadRequest, fmt.Errorf("Could not decode clip: %v", err))
		}

		text, err := transcriber.Transcribe(r.Context(), audio)
		if err != nil {
			return handleError(http.StatusInternalServerError, fmt.Errorf("Could not transcribe clip: %v", err))
		}

		return &handlerResponse{Code: http.StatusOK, Body: &TranscribeResponse{TranscribedText: text, UserID: user.ID}}
	}
}

//POST /synthesize
func handleSynthesize(synthesizer speech.Synthesizer) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		var req *SynthesizeRequest
		d := json.NewDecoder(r.Body)

		err := d.Decode(&req)
		if err != nil || req == nil {
			return handleError(http.StatusBadRequest, fmt.Errorf("Could not decode json: %v", err))
		}

		if req.Text == "" {
			return handleError(http.StatusBadRequest, errors.New("text empty"))
		}

		user := r.Context().Value(api.UserKey).(*api.User)

		audio, err := synthesizer.Synthesize(r.Context(), req.Text)
		if err != nil {
			return handleError(http.StatusInternalServerError, fmt.Errorf("Could not synthesize text: %v", err))
		}

		return &handlerResponse{Code: http.StatusOK, Body: &SynthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString(audio),
			UserID:       user.ID,
		}}
	}
}
