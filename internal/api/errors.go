package api

import (
	"context"
	"errors"

	"github.com/matheus3301/wppbridge/internal/delivery"
	"github.com/matheus3301/wppbridge/internal/gateway"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC codes. Resolution failures are
// checked first: they wrap the gateway error that ended the escalation.
func toStatus(op string, err error) error {
	code := codes.Internal
	var resErr *delivery.ResolutionError
	var stErr *gateway.StatusError
	switch {
	case errors.As(err, &resErr):
		code = codes.FailedPrecondition
	case errors.As(err, &stErr):
		code = codes.InvalidArgument
		if stErr.Status >= 500 {
			code = codes.Unavailable
		}
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}

func invalid(format string, args ...any) error {
	return grpcstatus.Errorf(codes.InvalidArgument, format, args...)
}
