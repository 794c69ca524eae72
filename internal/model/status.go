package model

import "fmt"

// LockerStatus is the availability state of a locker
type LockerStatus string

const (
	LockerAvailable   LockerStatus = "AVAILABLE"
	LockerOccupied    LockerStatus = "OCCUPIED"
	LockerMaintenance LockerStatus = "MAINTENANCE"
)

var lockerTransitions = map[LockerStatus][]LockerStatus{
	LockerAvailable:   {LockerOccupied, LockerMaintenance},
	LockerOccupied:    {LockerAvailable},
	LockerMaintenance: {LockerAvailable},
}

// Valid reports whether s is one of the declared locker states
func (s LockerStatus) Valid() bool {
	_, ok := lockerTransitions[s]
	return ok
}

// CanTransitionTo reports whether the locker state machine allows s -> next
func (s LockerStatus) CanTransitionTo(next LockerStatus) bool {
	for _, allowed := range lockerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseLockerStatus converts a stored string into a LockerStatus
func ParseLockerStatus(v string) (LockerStatus, error) {
	s := LockerStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown locker status %q", v)
	}
	return s, nil
}

// ItemStatus is the lifecycle state of a deposited item
type ItemStatus string

const (
	ItemStored       ItemStatus = "STORED"
	ItemCollected    ItemStatus = "COLLECTED"
	ItemForceRemoved ItemStatus = "FORCE_REMOVED"
)

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStored:       {ItemCollected, ItemForceRemoved},
	ItemCollected:    nil,
	ItemForceRemoved: nil,
}

// Valid reports whether s is one of the declared item states
func (s ItemStatus) Valid() bool {
	_, ok := itemTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s
func (s ItemStatus) Terminal() bool {
	return s.Valid() && len(itemTransitions[s]) == 0
}

// CanTransitionTo reports whether the item state machine allows s -> next
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransactionStatus is the state of a billing record
type TransactionStatus string

const (
	TransactionOngoing   TransactionStatus = "ONGOING"
	TransactionCompleted TransactionStatus = "COMPLETED"
)

// Valid reports whether s is one of the declared transaction states
func (s TransactionStatus) Valid() bool {
	return s == TransactionOngoing || s == TransactionCompleted
}
