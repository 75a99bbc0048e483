package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Nikhil9989/faculty-api/internal/core/ports"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// NewHealthHandler devolve o handler de saúde. Um store configurado e fora do
// ar derruba o status para 503; sem store (modo degradado) a API continua
// saudável, apenas sinaliza a ausência.
func NewHealthHandler(store ports.CounterStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := healthResponse{Status: "ok", Checks: map[string]string{}}
		code := http.StatusOK

		switch {
		case store == nil:
			response.Status = "degraded"
			response.Checks["counter_store"] = "not configured"
		default:
			if err := store.HealthCheck(r.Context()); err != nil {
				response.Status = "unhealthy"
				response.Checks["counter_store"] = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				response.Checks["counter_store"] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(response)
	}
}
