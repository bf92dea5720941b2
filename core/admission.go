package core

import "context"

// Admission is the tier quota boundary. Implementations decide whether a
// request, an agent slot or a search may proceed for an identity. Refusals
// wrap ErrQuotaExceeded.
type Admission interface {
	AllowRequest(ctx context.Context, id Identity) error
	AcquireAgent(ctx context.Context, id Identity) (func(), error)
	AllowSearch(ctx context.Context, id Identity) error
}

// AllowAll admits everything.
type AllowAll struct{}

// AllowRequest implements Admission.
func (AllowAll) AllowRequest(context.Context, Identity) error { return nil }

// AcquireAgent implements Admission.
func (AllowAll) AcquireAgent(context.Context, Identity) (func(), error) { return func() {}, nil }

// AllowSearch implements Admission.
func (AllowAll) AllowSearch(context.Context, Identity) error { return nil }
