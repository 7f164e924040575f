package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arianrhod/internal/chat"
	"github.com/cory-johannsen/arianrhod/internal/document"
	"github.com/cory-johannsen/arianrhod/internal/game/character"
	"github.com/cory-johannsen/arianrhod/internal/game/resolver"
	"github.com/cory-johannsen/arianrhod/internal/scripting"
	"github.com/cory-johannsen/arianrhod/internal/storage/postgres"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var cfgErr *character.ConfigurationError
	switch {
	case errors.Is(err, postgres.ErrActorNotFound),
		errors.Is(err, postgres.ErrItemNotFound),
		errors.Is(err, scripting.ErrMacroNotFound):
		return http.StatusNotFound
	case errors.Is(err, postgres.ErrActorExists):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, chat.ErrEmptyFormula),
		errors.Is(err, chat.ErrInvalidFormula):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrDerivedField),
		errors.Is(err, document.ErrImmutableField),
		errors.Is(err, character.ErrInvalidItemType),
		errors.Is(err, resolver.ErrUnknownActorType),
		errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSONError(w, status, "internal error")
		return
	}
	writeJSONError(w, status, err.Error())
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding body: %v", errBadRequest, err)
	}
	return nil
}
