package greeting

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RefusedError is returned by a Service configured to fail a method.
type RefusedError struct {
	Method string
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("greeting: %s refused", e.Method)
}

// Service is the demo Greeting implementation.
type Service struct {
	FailHello   bool
	FailGoodbye bool
}

func (s *Service) SayHello(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if s.FailHello {
		return nil, &RefusedError{Method: "SayHello"}
	}
	return wrapperspb.String(fmt.Sprintf("Hello, %s!", req.GetValue())), nil
}

func (s *Service) SayGoodbye(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if s.FailGoodbye {
		return nil, &RefusedError{Method: "SayGoodbye"}
	}
	return wrapperspb.String(fmt.Sprintf("Goodbye, %s!", req.GetValue())), nil
}
