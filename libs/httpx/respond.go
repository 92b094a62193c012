package httpx

import (
	"encoding/json"
	"net/http"
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Data    any          `json:"data,omitempty"`
}

// WriteJSON writes v verbatim. Handlers that need extra top-level fields
// (pagination counters) build their own response struct and use this.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func OKMessage(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, envelope{Success: true, Data: data})
}

func Error(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, envelope{Success: false, Message: message})
}

func ValidationFailed(w http.ResponseWriter, message string, errs []FieldError) {
	WriteJSON(w, http.StatusBadRequest, envelope{Success: false, Message: message, Errors: errs})
}
