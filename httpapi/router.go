package httpapi

import (
	"database/sql"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spidervirus/FutureSelf/persona"
	"github.com/spidervirus/FutureSelf/speech"
)

//defaultTokenDuration is the access token validity when none is configured
const defaultTokenDuration = 24 * time.Hour

//defaultTranscript is returned by the stand-in transcriber when no speech-to-text
//backend is configured
const defaultTranscript = "Voice note received"

//defaultCacheMaxBytes caps the persona conversation cache when no size is configured
const defaultCacheMaxBytes = 1 << 20

//RouterConfig holds the credentials and service backends for the HTTP API
type RouterConfig struct {
	JWTSecret     string
	TokenDuration time.Duration

	//AIEndpoint enables model-backed replies when set; otherwise replies are scripted
	AIEndpoint    string
	AIModel       string
	CacheMaxBytes int

	Responder   persona.Responder //overrides the AI fields when set
	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
}

//NewRouter returns an HTTP router for the HTTP API. cfg must be non-nil.
func NewRouter(w io.Writer, s SessionStore, db *sql.DB, cfg *RouterConfig) http.Handler {
	responder := cfg.Responder
	if responder == nil {
		if cfg.AIEndpoint != "" {
			cacheMaxBytes := cfg.CacheMaxBytes
			if cacheMaxBytes <= 0 {
				cacheMaxBytes = defaultCacheMaxBytes
			}
			responder = persona.NewAIResponder(persona.NewAIClient(cfg.AIEndpoint, cfg.AIModel), persona.NewLRUStore(cacheMaxBytes))
		} else {
			responder = &persona.ScriptedResponder{}
		}
	}

	transcriber := cfg.Transcriber
	if transcriber == nil {
		transcriber = &speech.StaticTranscriber{Text: defaultTranscript}
	}

	synthesizer := cfg.Synthesizer
	if synthesizer == nil {
		synthesizer = speech.SilenceSynthesizer{}
	}

	tokenDuration := cfg.TokenDuration
	if tokenDuration <= 0 {
		tokenDuration = defaultTokenDuration
	}

	//construct middleware
	var m = func(h returnHandler) http.Handler {
		return logMiddleware(jsonMiddleware(txMiddleware(authMiddleware(h, s, cfg.JWTSecret), db)), w)
	}

	//public routes skip authMiddleware so new users can register and sign in
	var public = func(h returnHandler) http.Handler {
		return logMiddleware(jsonMiddleware(txMiddleware(h, db)), w)
	}

	r := mux.NewRouter()

	r.Path("/users/").Methods("POST").Handler(public(handleCreateUserWithCredentials))
	r.Path("/users/{id}").Methods("GET").Handler(m(handleReadUser))
	r.Path("/users/{id}").Methods("POST").Handler(m(handleUpdateUser))
	r.Path("/users/{id}/password").Methods("POST").Handler(m(handleChangeUserPassword))

	r.Path("/messages").Methods("POST").Handler(m(handleCreateMessage))
	r.Path("/messages").Methods("GET").Handler(m(handleReadMessages))

	r.Path("/nlp/emotion").Methods("POST").Handler(m(handleAnalyzeEmotion))
	r.Path("/nlp/bias").Methods("POST").Handler(m(handleAnalyzeBias))

	r.Path("/analytics/emotion").Methods("GET").Handler(m(handleEmotionTrends))
	r.Path("/analytics/bias").Methods("GET").Handler(m(handleBiasTrends))

	r.Path("/transcribe").Methods("POST").Handler(m(handleTranscribe(transcriber)))
	r.Path("/synthesize").Methods("POST").Handler(m(handleSynthesize(synthesizer)))

	r.Path("/auth").Methods("POST").Handler(public(handleAuthenticate(s, cfg.JWTSecret, tokenDuration)))

	//the reply stream is not JSON framed, so it mounts outside the JSON middleware
	r.Path("/chat/stream").Methods("POST").Handler(streamAuthMiddleware(NewStreamHandler(responder), s, db, cfg.JWTSecret, w))

	r.NotFoundHandler = m(notFoundHandler)

	return http.StripPrefix("/api/1.0", r)
}
