package recovery

import "fmt"

// StrictStrategy implements a fail-fast policy: any page error abandons the
// whole extraction.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy implements the default best-effort policy: page errors are
// accumulated and the page's contribution is marked missing, leaving the
// extracted data flagged incomplete.
type LenientStrategy struct {
	Errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx Context, err error, location Location) Action {
	s.Errors = append(s.Errors, fmt.Errorf("[%s] page %d: %w", location.Stage, location.Page, err))
	return ActionDegrade
}
