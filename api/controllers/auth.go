package controllers

import (
	"net/http"

	"github.com/angelmondragon/assetflow-backend/api/responses"
	"github.com/angelmondragon/assetflow-backend/api/validators"
	"github.com/angelmondragon/assetflow-backend/internal/auth"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

// IssueToken handles POST /jwt.
func IssueToken(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable("auth", logg)
	}
	return jsonCommand(logg, http.StatusOK, func(r *http.Request, body auth.TokenRequest) (*auth.TokenResponse, error) {
		return svc.IssueToken(r.Context(), body)
	})
}

// jsonCommand decodes and validates a JSON body of type In, runs call and
// writes its result with status.
func jsonCommand[In, Out any](logg *logger.Logger, status int, call func(r *http.Request, body In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body In
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := call(r, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

func unavailable(name string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, serviceUnavailable(name))
	}
}
