package ledger

// AllocationStatus is the derived status of an allocation
type AllocationStatus string

const (
	AllocationStatusActive         AllocationStatus = "ACTIVE"
	AllocationStatusPartiallySpent AllocationStatus = "PARTIALLY_SPENT"
	AllocationStatusFullySpent     AllocationStatus = "FULLY_SPENT"
	AllocationStatusFrozen         AllocationStatus = "FROZEN"
	AllocationStatusCancelled      AllocationStatus = "CANCELLED"
	AllocationStatusExpired        AllocationStatus = "EXPIRED"
)

// IsValid checks if the status is a valid AllocationStatus
func (s AllocationStatus) IsValid() bool {
	switch s {
	case AllocationStatusActive, AllocationStatusPartiallySpent, AllocationStatusFullySpent,
		AllocationStatusFrozen, AllocationStatusCancelled, AllocationStatusExpired:
		return true
	}
	return false
}

func (s AllocationStatus) String() string {
	return string(s)
}

// AcceptsTransactions returns false for administratively blocked allocations
func (s AllocationStatus) AcceptsTransactions() bool {
	return s != AllocationStatusFrozen && s != AllocationStatusCancelled && s != AllocationStatusExpired
}

// AllocationOverride is an administrative flag that takes precedence over the
// spending-derived status. The zero value means no override.
type AllocationOverride string

const (
	OverrideNone      AllocationOverride = ""
	OverrideFrozen    AllocationOverride = "FROZEN"
	OverrideCancelled AllocationOverride = "CANCELLED"
	OverrideExpired   AllocationOverride = "EXPIRED"
)

func (o AllocationOverride) IsValid() bool {
	switch o {
	case OverrideNone, OverrideFrozen, OverrideCancelled, OverrideExpired:
		return true
	}
	return false
}

// IsFinal returns true for overrides that can never be lifted
func (o AllocationOverride) IsFinal() bool {
	return o == OverrideCancelled || o == OverrideExpired
}

// DeriveAllocationStatus is the single rule mapping ledger totals and the
// administrative override to a status.
func DeriveAllocationStatus(allocated, spent int64, override AllocationOverride) AllocationStatus {
	switch override {
	case OverrideFrozen:
		return AllocationStatusFrozen
	case OverrideCancelled:
		return AllocationStatusCancelled
	case OverrideExpired:
		return AllocationStatusExpired
	}
	if allocated-spent == 0 {
		return AllocationStatusFullySpent
	}
	if spent > 0 {
		return AllocationStatusPartiallySpent
	}
	return AllocationStatusActive
}
