// Package fieldunit implements the device-side firmware: the MQTT
// agent a sensor unit or actuator runs in the field.
//
// An actuator unit interprets control commands, drives its relay (and
// servo, for windows), meters water through a pulse counter, and
// reports command outcomes. A sensor unit reports readings on its
// configured interval and picks up interval changes from its retained
// settings channel.
//
// The control handler processes one command at a time and the flow
// watchdog runs as a background goroutine; the pulse counter's edge
// callback fires from the hardware driver's goroutine and is the one
// genuine concurrency hazard, handled with an atomic read-and-reset.
package fieldunit
