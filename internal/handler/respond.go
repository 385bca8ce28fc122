package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/service"
	"github.com/crave-grocer/api/internal/session"
)

// serviceErrorResponse is the body of a failed tool call.
type serviceErrorResponse struct {
	Kind        string   `json:"kind"`
	Detail      string   `json:"detail"`
	Suggestions []string `json:"suggestions"`
}

// writeServiceError maps service and session errors to a status and body.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		status := http.StatusInternalServerError
		switch se.Kind {
		case enum.ErrorKindValidation:
			status = http.StatusBadRequest
		case enum.ErrorKindNotFound:
			status = http.StatusNotFound
		case enum.ErrorKindOutOfRange:
			status = http.StatusUnprocessableEntity
		case enum.ErrorKindPersistence:
			log.Printf("ERROR: %s: %v", op, se.Err)
		}
		suggestions := se.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		writeJSON(w, status, serviceErrorResponse{Kind: se.Kind, Detail: se.Detail, Suggestions: suggestions})
		return
	}

	if errors.Is(err, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}

	log.Printf("ERROR: %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// writeValidationError reports a request the handler rejected before it
// reached the service, in the same shape as a service validation error.
func writeValidationError(w http.ResponseWriter, prefix string, err error) {
	writeJSON(w, http.StatusBadRequest, serviceErrorResponse{
		Kind:        enum.ErrorKindValidation,
		Detail:      prefix + ": " + err.Error(),
		Suggestions: []string{},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
