package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/spidervirus/FutureSelf/api"
)

type handlerResponse struct {
	Code int
	Body interface{}
	User *api.User
	Err  error
}

type returnHandler func(http.ResponseWriter, *http.Request) *handlerResponse

const logTemplate = "{{.Date}} {{.Method}} {{.Path}}{{if .Query}}?{{.Query}}{{end}} {{.Code}} ({{.Status}}) {{if .User}}, User: {{.User.ID}}:{{.User.Email}}{{end}}{{if .Err}}, Error: {{.Err}}{{end}}\n"

type logData struct {
	Date   string
	User   *api.User
	Status string
	Code   int
	Method string
	Path   string
	Query  string
	Err    error
}

//writeLog writes one request log line to writer
func writeLog(writer io.Writer, r *http.Request, user *api.User, code int, err error) {
	terr := template.Must(template.New("log").Parse(logTemplate)).Execute(writer, &logData{
		Date:   time.Now().Format("2006-01-02:15:04:05 -0700"),
		User:   user,
		Status: http.StatusText(code),
		Code:   code,
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Err:    err,
	})

	if terr != nil {
		panic(terr)
	}
}

func logMiddleware(next returnHandler, writer io.Writer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := next(w, r)
		writeLog(writer, r, resp.User, resp.Code, resp.Err)
	})
}

func jsonMiddleware(next returnHandler) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		var resp *handlerResponse

		if r.Method != "GET" {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil {
				resp = handleError(http.StatusBadRequest, errors.New("Could not parse Content-Type"))
				goto serve
			}
			//multipart is allowed for the voice upload endpoint
			if mediaType != "application/json" && mediaType != "multipart/form-data" {
				resp = handleError(http.StatusBadRequest, errors.New("Content-Type not application/json or multipart/form-data"))
				goto serve
			}
		}

		w.Header().Set("Content-Type", "application/json")
		resp = next(w, r)

	serve:
		w.WriteHeader(resp.Code)
		e := json.NewEncoder(w)
		err := e.Encode(resp.Body)
		if err != nil {
			return handleError(http.StatusInternalServerError, fmt.Errorf("Could encode json: %v", err))
		}
		return resp
	}
}

//authenticateRequest resolves the X-Session-Key or Authorization header on the request
//to the id of the user it was sent for
func authenticateRequest(r *http.Request, s SessionStore, secret string) (userID string, errResp *handlerResponse) {
	if key := r.Header.Get("X-Session-Key"); key != "" {
		sess, err := s.Check(key)
		if err != nil {
			return "", handleError(http.StatusInternalServerError, fmt.Errorf("Could not check session key: %v", err))
		}
		if sess == nil {
			return "", handleError(http.StatusUnauthorized, errors.New("Could not find session"))
		}
		return sess.UserID, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", handleError(http.StatusUnauthorized, errors.New("X-Session-Key and Authorization headers empty"))
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", handleError(http.StatusUnauthorized, errors.New("Could not parse Authorization header"))
	}

	userID, err := ParseAccessToken(parts[1], secret)
	if err != nil {
		return "", handleError(http.StatusUnauthorized, fmt.Errorf("Could not verify access token: %v", err))
	}

	return userID, nil
}

func authMiddleware(next returnHandler, s SessionStore, secret string) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		userID, errResp := authenticateRequest(r, s, secret)
		if errResp != nil {
			return errResp
		}

		user, err := api.ReadUser(r.Context(), userID)
		if resp := checkAPIError(err); resp != nil {
			return resp
		}
		if user == nil {
			return handleError(http.StatusUnauthorized, errors.New("Could not find user for session"))
		}

		ctx := context.WithValue(r.Context(), api.UserKey, user)
		resp := next(w, r.WithContext(ctx))
		resp.User = user

		return resp
	}
}

func txMiddleware(next returnHandler, db *sql.DB) returnHandler {
	return func(w http.ResponseWriter, r *http.Request) *handlerResponse {
		tx, err := db.Begin()
		if err != nil {
			return handleError(http.StatusInternalServerError, fmt.Errorf("Could not begin transaction: %v", err))
		}

		ctx := context.WithValue(r.Context(), api.TransactionKey, tx)
		resp := next(w, r.WithContext(ctx))

		if err = tx.Commit(); err != nil {
			if rErr := tx.Rollback(); rErr != nil && rErr != sql.ErrTxDone {
				return handleError(http.StatusInternalServerError, fmt.Errorf("Could not rollback transaction: %v", rErr))
			}
			return handleError(http.StatusInternalServerError, fmt.Errorf("Could not commit transaction: %v", err))
		}

		return resp
	}
}
