package http

import (
	"net/http"

	"github.com/shophub/auth/internal/auth/store"
	"github.com/shophub/auth/pkg/httpx"
)

type readyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking critical dependencies, currently just database
//	@Description	connectivity.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	readyResponse
//	@Failure		503	{object}	readyResponse	"service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := readyResponse{Status: "ok", Database: "ok"}
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			response.Status = "degraded"
			response.Database = "error: " + err.Error()
			statusCode = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, statusCode, response)
	}
}
