package fieldunit

// DefaultCapacityUnits is the factory ledger capacity in meter pulses.
// At 9844 pulses per liter this is roughly two liters per cycle budget.
const DefaultCapacityUnits = 20000

// PulsesPerLiter is the flow meter's calibration constant.
const PulsesPerLiter = 9844

// RemainingPercent derives the ledger's remaining capacity as a whole
// percentage, truncated, clamped to [0,100]. used may exceed capacity
// when the watchdog folds a final burst of pulses past the limit.
func RemainingPercent(used, capacity int64) int {
	if capacity <= 0 {
		return 0
	}
	pct := (capacity - used) * 100 / capacity
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// LedgerExhausted reports whether the ledger has no capacity left.
func LedgerExhausted(used, capacity int64) bool {
	return used >= capacity
}
