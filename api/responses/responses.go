// Package responses writes the JSON envelopes every handler returns:
// {"data": ...} on success and {"error", "code", "statusCode"} on failure.
package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/assetflow-backend/pkg/errors"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
	"github.com/angelmondragon/assetflow-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	_ = writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps err onto its public envelope. Errors without a code are
// reported as internal and their text is kept out of the response.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		ctx = logg.WithFields(ctx, logFields(err, typed))
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.error")
		}
	}

	if encErr := writeJSON(w, meta.HTTPStatus, envelope(typed, meta)); encErr != nil && logg != nil {
		logg.Error(ctx, "encode error response", encErr)
	}
}

func envelope(typed *pkgerrors.Error, meta pkgerrors.Metadata) types.ErrorEnvelope {
	msg := meta.PublicMessage
	if meta.ExposeMessage {
		if m := typed.Message(); m != "" {
			msg = m
		}
		// dependency failures carry the processor or store message
		if typed.Code() == pkgerrors.CodeDependency {
			if cause := errors.Unwrap(typed); cause != nil {
				msg += ": " + cause.Error()
			}
		}
	}
	env := types.ErrorEnvelope{
		Error:      msg,
		Code:       string(typed.Code()),
		StatusCode: meta.HTTPStatus,
	}
	if meta.DetailsAllowed {
		env.Details = typed.Details()
	}
	return env
}

func logFields(err error, typed *pkgerrors.Error) map[string]any {
	fields := pkgerrors.Dump(err).Fields()
	if details, ok := typed.Details().(map[string]any); ok {
		if step, ok := details["step"]; ok {
			fields["step"] = step
		}
	}
	return fields
}

func writeJSON(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}
