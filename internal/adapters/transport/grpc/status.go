package grpc

import (
	"github.com/google/netsim/internal/core/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcStatusError maps a domain.Kind onto the grpc/status code a client
// expects (spec.md §7: "gRPC handlers translate these to
// google.golang.org/grpc/status codes").
func grpcStatusError(kind domain.Kind, msg string) error {
	var c codes.Code
	switch kind {
	case domain.KindInvalidArgument, domain.KindParseError:
		c = codes.InvalidArgument
	case domain.KindNotFound:
		c = codes.NotFound
	case domain.KindAlreadyExists:
		c = codes.AlreadyExists
	case domain.KindUnavailable:
		c = codes.Unavailable
	default:
		c = codes.Internal
	}
	return status.Error(c, msg)
}
