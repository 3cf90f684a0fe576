package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cartflow/pkg/cart"
)

// State is a step of the checkout flow.
type State int

const (
	Idle State = iota
	Reviewing
	Submitting
	Redirected
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reviewing:
		return "reviewing"
	case Submitting:
		return "submitting"
	case Redirected:
		return "redirected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an action is not allowed in the
// current state.
var ErrInvalidTransition = errors.New("checkout: invalid transition")

// OrderSubmitter sends an order and returns the payment redirect URL.
type OrderSubmitter interface {
	Submit(ctx context.Context, c Contact, s cart.State) (string, error)
}

// Flow tracks one shopper's way from reviewing the cart to the payment
// redirect. Redirected is terminal; a failed submit can be retried.
type Flow struct {
	mu        sync.Mutex
	state     State
	submitter OrderSubmitter
}

// NewFlow creates a flow in the Idle state.
func NewFlow(submitter OrderSubmitter) *Flow {
	return &Flow{submitter: submitter}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Sync moves the flow between Idle and Reviewing following the cart
// contents. A Failed flow returns to Reviewing. Submitting and Redirected
// are left alone.
func (f *Flow) Sync(s cart.State) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Idle, Reviewing, Failed:
		if len(s) > 0 {
			f.state = Reviewing
		} else {
			f.state = Idle
		}
	}
	return f.state
}

// Submit sends the order. It is allowed from Reviewing and from Failed.
func (f *Flow) Submit(ctx context.Context, c Contact, s cart.State) (string, error) {
	f.mu.Lock()
	if f.state == Failed && len(s) > 0 {
		f.state = Reviewing
	}
	if f.state != Reviewing {
		st := f.state
		f.mu.Unlock()
		return "", fmt.Errorf("%w: submit from %s", ErrInvalidTransition, st)
	}
	f.state = Submitting
	f.mu.Unlock()

	redirect, err := f.submitter.Submit(ctx, c, s)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Failed
		return "", err
	}
	f.state = Redirected
	return redirect, nil
}
