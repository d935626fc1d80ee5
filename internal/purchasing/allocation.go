package purchasing

// AllocationIndex maps product ids committed to at least one active order.
// It is derived state: always recomputed from the full order list, never
// patched incrementally, so it cannot drift from the source of truth.
type AllocationIndex map[int64]struct{}

// ComputeActiveAllocations scans all orders and collects the product ids of
// every order whose status is neither Received nor Cancelled.
func ComputeActiveAllocations(orders []Order) AllocationIndex {
	idx := make(AllocationIndex)
	for _, order := range orders {
		if order.Terminal() {
			continue
		}
		for _, line := range order.Lines {
			idx[line.ProductID] = struct{}{}
		}
	}
	return idx
}

// IsAllocated reports whether the product appears in any active order.
func (a AllocationIndex) IsAllocated(productID int64) bool {
	_, ok := a[productID]
	return ok
}
