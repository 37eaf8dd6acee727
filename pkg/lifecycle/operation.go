package lifecycle

import (
	"context"
	"errors"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
)

// Operation changes a loaded item in place. The controller hands it a private
// copy and commits the result only if the operation returns nil and advanced
// the version by exactly one. Operations built by the Engine helpers below
// satisfy that contract.
type Operation func(ctx context.Context, item *cartitem.Item) error

// errNoChange lets an operation finish without anything to commit.
var errNoChange = errors.New("lifecycle: nothing to change")

// TransitionOp returns an Operation that moves the item to state to.
func (e *Engine) TransitionOp(to cartitem.State, opts ...AttemptOption) Operation {
	return func(ctx context.Context, item *cartitem.Item) error {
		_, err := e.Attempt(ctx, item, to, opts...)
		return err
	}
}

// QuantityOp returns an Operation that sets the quantity and recomputes the total.
func (e *Engine) QuantityOp(quantity int) Operation {
	return e.UpdateOp(func(item *cartitem.Item) error {
		return item.SetQuantity(quantity)
	})
}

// UpdateOp returns an Operation running fn through Engine.Update.
func (e *Engine) UpdateOp(fn MutateFunc) Operation {
	return func(ctx context.Context, item *cartitem.Item) error {
		return e.Update(ctx, item, fn)
	}
}

// ManageStateOp returns an Operation that expires the item when due and
// otherwise leaves it alone.
func (e *Engine) ManageStateOp() Operation {
	return func(ctx context.Context, item *cartitem.Item) error {
		changed, err := e.ManageState(ctx, item)
		if err != nil {
			return err
		}
		if !changed {
			return errNoChange
		}
		return nil
	}
}

// MergeFunc reconciles a lost optimistic write. base is the item the failed
// attempt started from, attempted is what it tried to store, and latest is a
// copy of what is stored now; MergeFunc edits latest into the value to commit.
// It runs through Engine.Update, so it cannot change state.
type MergeFunc func(base, attempted, latest *cartitem.Item) error

// MergeQuantity applies the attempted quantity delta on top of the latest
// quantity, so two concurrent "+1" edits both land.
func MergeQuantity(base, attempted, latest *cartitem.Item) error {
	return latest.SetQuantity(latest.Quantity + attempted.Quantity - base.Quantity)
}
