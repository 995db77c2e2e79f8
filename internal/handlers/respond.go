package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"minecarbon/internal/apperr"
	mw "minecarbon/internal/middleware"
)

const maxBodyBytes = 1 << 20

// writeJSON marshals before writing the header so an unencodable value becomes a
// 500 instead of a 200 with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "internal server error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// writeError maps err to a status code. Internal errors are logged and replaced
// by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Code == apperr.Internal {
		logger.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, ae.Status(), errorResponse{Error: ae.Message})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Validationf("invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return id, nil
}

// session is only called behind RequireAuth; a missing session is a wiring bug.
func session(r *http.Request) (mw.Session, error) {
	s, ok := mw.SessionFrom(r.Context())
	if !ok {
		return mw.Session{}, apperr.Unauthorizedf("missing session")
	}
	return s, nil
}

// ownPath checks that the {userId} path value names the caller.
func ownPath(r *http.Request, s mw.Session) error {
	id, err := pathID(r, "userId")
	if err != nil {
		return err
	}
	if id != s.UserID {
		return apperr.Forbiddenf("cannot access another user's records")
	}
	return nil
}
