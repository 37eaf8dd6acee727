package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/CrysisFangz/TheFinalMarket-sub018/pkg/cartitem"
)

// Rule names reported in Violations.
const (
	RulePurchasableState   = "purchasable_state"
	RulePositiveQuantity   = "positive_quantity"
	RuleMaxQuantity        = "max_quantity"
	RuleTotalConsistent    = "total_price_consistent"
	RuleLockNotExpired     = "lock_not_expired"
	RuleNotPurchased       = "not_purchased"
	RuleInventoryAvailable = "inventory_available"
)

// DefaultMaxQuantity bounds a single line item at purchase time.
const DefaultMaxQuantity = 99

// CartValidator is the stock business-rule validator for purchase and cancellation.
type CartValidator struct {
	maxQuantity int
	now         func() time.Time
}

// Option configures a CartValidator.
type Option func(*CartValidator)

// WithMaxQuantity overrides DefaultMaxQuantity. Non-positive values are ignored.
func WithMaxQuantity(n int) Option {
	return func(v *CartValidator) {
		if n > 0 {
			v.maxQuantity = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *CartValidator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewCartValidator(opts ...Option) *CartValidator {
	v := &CartValidator{
		maxQuantity: DefaultMaxQuantity,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks the rules attached to the target state. Targets without
// rules always pass.
func (v *CartValidator) Validate(_ context.Context, item *cartitem.Item, to cartitem.State) error {
	switch to {
	case cartitem.Purchased:
		return Apply(v.purchaseRules(item)...)
	case cartitem.Cancelled:
		return Apply(cancelRules(item)...)
	default:
		return nil
	}
}

func (v *CartValidator) purchaseRules(item *cartitem.Item) []Rule {
	now := v.now()
	return []Rule{
		{
			Check:     item.IsPurchasable,
			Violation: Violation{Rule: RulePurchasableState, Message: fmt.Sprintf("item in state '%s' cannot be purchased", item.State)},
		},
		{
			Check:     func() bool { return item.Quantity > 0 },
			Violation: Violation{Rule: RulePositiveQuantity, Message: "quantity must be positive"},
		},
		{
			Check:     func() bool { return item.Quantity <= v.maxQuantity },
			Violation: Violation{Rule: RuleMaxQuantity, Message: fmt.Sprintf("quantity must not exceed %d", v.maxQuantity)},
		},
		{
			Check:     func() bool { return item.TotalPrice == cartitem.CalculateTotal(item.UnitPrice, item.Quantity) },
			Violation: Violation{Rule: RuleTotalConsistent, Message: "total price does not match unit price and quantity"},
		},
		{
			Check:     func() bool { return !item.LockExpired(now) },
			Violation: Violation{Rule: RuleLockNotExpired, Message: "purchase lock has expired"},
		},
	}
}

func cancelRules(item *cartitem.Item) []Rule {
	return []Rule{
		{
			Check:     func() bool { return !item.IsPurchased() },
			Violation: Violation{Rule: RuleNotPurchased, Message: "purchased items cannot be cancelled"},
		},
	}
}
