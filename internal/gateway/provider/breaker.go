package provider

import (
	"context"

	"diagnoseme/internal/pkg/circuit"
)

// BreakerProvider short-circuits calls while the upstream keeps failing.
type BreakerProvider struct {
	ModelProvider
	cb *circuit.CircuitBreaker
}

func WithBreaker(p ModelProvider, cb *circuit.CircuitBreaker) ModelProvider {
	if p == nil || cb == nil {
		return p
	}
	return &BreakerProvider{ModelProvider: p, cb: cb}
}

func (b *BreakerProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	var out string
	err := b.cb.Execute(func() error {
		var err error
		out, err = b.ModelProvider.Call(ctx, payload)
		return err
	}, context.Canceled)
	return out, err
}
