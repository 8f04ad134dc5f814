// Package actuator defines the controller's authoritative view of the
// physical actuators in the greenhouse (sprinklers, heaters, coolers,
// windows) and their persistence.
//
// Each actuator record tracks a protocol status that is mutated only by
// the command dispatcher (to waiting) and the confirmation tracker (to
// the terminal states). The device itself is the source of truth for
// refusals and water metering; the controller mirrors the outcome of
// each command via the last_result payload.
//
// # Status Lifecycle
//
//	idle → waiting → started → completed
//	              ↘ refused
//	              ↘ unreachable (confirmation timeout)
//
// A waiting actuator has exactly one outstanding confirmation timer.
// Terminal states have none.
package actuator
