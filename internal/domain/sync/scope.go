package sync

import "sort"

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

// Scope is the set of entities one reconciliation pass considers: either the
// full known universe of skus and orders, or a specific subset.
type Scope struct {
	full     bool
	skus     map[string]struct{}
	orderIDs map[string]struct{}
}

// FullScope returns a scope covering all known skus and orders
func FullScope() Scope {
	return Scope{full: true}
}

// PartialScope returns a scope covering only the given skus and external
// order IDs. Empty strings are ignored.
func PartialScope(skus, orderIDs []string) Scope {
	s := Scope{
		skus:     make(map[string]struct{}, len(skus)),
		orderIDs: make(map[string]struct{}, len(orderIDs)),
	}
	for _, sku := range skus {
		if sku != "" {
			s.skus[sku] = struct{}{}
		}
	}
	for _, id := range orderIDs {
		if id != "" {
			s.orderIDs[id] = struct{}{}
		}
	}
	return s
}

// IsFull returns true if the scope covers everything
func (s Scope) IsFull() bool {
	return s.full
}

// IsEmpty returns true if the scope covers nothing
func (s Scope) IsEmpty() bool {
	return !s.full && len(s.skus) == 0 && len(s.orderIDs) == 0
}

// ContainsSKU returns true if the scope includes the sku
func (s Scope) ContainsSKU(sku string) bool {
	if s.full {
		return true
	}
	_, ok := s.skus[sku]
	return ok
}

// ContainsOrder returns true if the scope includes the external order ID
func (s Scope) ContainsOrder(orderID string) bool {
	if s.full {
		return true
	}
	_, ok := s.orderIDs[orderID]
	return ok
}

// SKUs returns the scoped skus in sorted order. Nil for a full scope.
func (s Scope) SKUs() []string {
	if s.full {
		return nil
	}
	out := make([]string, 0, len(s.skus))
	for sku := range s.skus {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out
}

// OrderIDs returns the scoped external order IDs in sorted order. Nil for a
// full scope.
func (s Scope) OrderIDs() []string {
	if s.full {
		return nil
	}
	out := make([]string, 0, len(s.orderIDs))
	for id := range s.orderIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Merge returns the union of two scopes. Merging with a full scope yields a
// full scope; the scheduler uses this to coalesce webhook bursts into one
// pass.
func (s Scope) Merge(other Scope) Scope {
	if s.full || other.full {
		return FullScope()
	}
	merged := PartialScope(nil, nil)
	for sku := range s.skus {
		merged.skus[sku] = struct{}{}
	}
	for sku := range other.skus {
		merged.skus[sku] = struct{}{}
	}
	for id := range s.orderIDs {
		merged.orderIDs[id] = struct{}{}
	}
	for id := range other.orderIDs {
		merged.orderIDs[id] = struct{}{}
	}
	return merged
}

// Overlaps returns true if the two scopes share any entity
func (s Scope) Overlaps(other Scope) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return false
	}
	if s.full || other.full {
		return true
	}
	for sku := range s.skus {
		if _, ok := other.skus[sku]; ok {
			return true
		}
	}
	for id := range s.orderIDs {
		if _, ok := other.orderIDs[id]; ok {
			return true
		}
	}
	return false
}
