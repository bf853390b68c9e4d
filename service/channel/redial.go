package channel

import (
	"context"
	"time"

	"CarePortal/tools/errs"

	"github.com/cenkalti/backoff/v4"
)

// RedialPolicy caps the exponential backoff used when an owner rebuilds
// its channel after a close.
type RedialPolicy struct {
	MaxInterval time.Duration
	MaxElapsed  time.Duration
}

// Redial builds fresh channels until one opens or the policy gives up.
// The channel itself never reconnects; retrying is an owner decision,
// and each attempt gets a brand-new instance.
func Redial(ctx context.Context, policy RedialPolicy, build func() *Channel) (*Channel, error) {
	bo := backoff.NewExponentialBackOff()
	if policy.MaxInterval > 0 {
		bo.MaxInterval = policy.MaxInterval
	}
	bo.MaxElapsedTime = policy.MaxElapsed

	var ch *Channel
	op := func() error {
		ch = build()
		if err := ch.Open(ctx); err != nil {
			return err
		}
		if ch.State() != StateOpen {
			return errs.ErrTransportUnavailable
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, errs.Wrap(err)
	}
	return ch, nil
}
