package echo

import (
	"context"
	"errors"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ErrRefused is returned by a Service configured to fail.
var ErrRefused = errors.New("echo refused")

// Service is the demo Echo implementation.
type Service struct {
	Fail bool
}

func (s *Service) Echo(_ context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	if s.Fail {
		return nil, ErrRefused
	}
	return wrapperspb.Bytes(req.GetValue()), nil
}
