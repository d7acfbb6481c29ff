package writer

import (
	"errors"
	"net/http"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// retryable reports whether every failure inside err is transient. A batch
// with any permanently rejected row is not retried.
func retryable(err error) bool {
	if err == nil {
		return false
	}

	var putErr cbigquery.PutMultiError
	if errors.As(err, &putErr) {
		if len(putErr) == 0 {
			return false
		}
		for _, rowErr := range putErr {
			if !allRetryable(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return allRetryable(multi)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

func allRetryable(errs cbigquery.MultiError) bool {
	if len(errs) == 0 {
		return false
	}
	for _, err := range errs {
		if !retryable(err) {
			return false
		}
	}
	return true
}
