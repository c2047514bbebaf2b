package httpapi

import "github.com/spidervirus/FutureSelf/api"

//AuthenticateResponse is a successful authentication response including the session key,
//an access token for clients that authenticate with a Bearer header, and the User
type AuthenticateResponse struct {
	SessionKey  string    `json:"session_key"`
	AccessToken string    `json:"access_token"`
	User        *api.User `json:"user"`
}

//TranscribeResponse is the transcript of an uploaded voice clip
type TranscribeResponse struct {
	TranscribedText string `json:"transcribed_text"`
	UserID          string `json:"user_id"`
}

//SynthesizeResponse carries synthesized speech, base64-encoded
type SynthesizeResponse struct {
	AudioContent string `json:"audio_content"`
	UserID       string `json:"user_id"`
}
