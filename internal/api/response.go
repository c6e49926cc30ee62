package api

import (
	"encoding/json"
	"net/http"
)

// Status of an API response
type Status string

const (
	StatusOk    Status = "Ok"
	StatusError Status = "Error"
)

// Response is the envelope every endpoint answers with. The HTTP status
// code always matches the envelope's status.
type Response struct {
	Status Status      `json:"status"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func writeOk(w http.ResponseWriter, statusCode int, result interface{}) {
	writeJSON(w, statusCode, &Response{Status: StatusOk, Result: result})
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, &Response{Status: StatusError, Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
