// Package cartitem defines the cart line item entity and the state table
// that governs its lifecycle.
//
// An item moves between six states:
//
//	active ──▶ locked ──▶ purchased
//	  │  │        │  └──▶ expired, cancelled, active
//	  │  └──▶ expired, cancelled, abandoned
//	  └──▶ purchased
//
// purchased, cancelled, expired and abandoned are final: they have no
// outgoing edges and an item that enters one never changes state again.
//
// The table is a package-level, read-only map, so every function here is
// safe for concurrent use. Item is a plain struct: it exposes read-only
// predicates (IsLocked, IsPurchasable, ...) but never changes its own state.
// Transitions are performed by the lifecycle package.
//
// # Usage
//
//	if cartitem.IsValidTransition(item.State, cartitem.Locked) {
//	    // ...
//	}
//
//	for _, next := range cartitem.Transitions(cartitem.Active) {
//	    fmt.Println(next)
//	}
//
// Prices are stored in minor currency units and TotalPrice is always
// CalculateTotal(UnitPrice, Quantity); use SetQuantity to keep them in sync.
package cartitem
