// Package handlers agrupa os handlers HTTP da aplicação.
package handlers

import (
	"encoding/json"
	"net/http"
)

// TestHandler responde com uma mensagem simples para exercitar o limiter.
func TestHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"service": "faculty-api",
		"message": "Request successful",
	})
}
