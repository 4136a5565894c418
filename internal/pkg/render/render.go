package render

import (
	"encoding/json"
	"net/http"
)

type errResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

func ChiJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ChiErr(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	ChiJSON(w, status, errResponse{Error: msg})
}

// ChiCategoryErr is ChiErr with a machine-readable failure category.
func ChiCategoryErr(w http.ResponseWriter, status int, category, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	ChiJSON(w, status, errResponse{Error: msg, Category: category})
}
