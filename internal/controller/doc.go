// Package controller implements the greenhouse-side protocol engine:
// the registration handshake, settings synchronisation, sensor data
// intake, and the actuator command path.
//
// Inbound MQTT messages flow through a single dispatch path. The one
// exception is the confirmation tracker, whose timers fire on their own
// goroutines; its pending table is guarded by a mutex shared with the
// dispatch path.
//
// Command lifecycle:
//
//	issue ──publish──▶ waiting ──started──▶ started ──completed──▶ idle
//	                      │                              └─refused─▶ idle
//	                      └──no response in 5s──▶ unreachable
//
// A response arriving after the unreachable deadline still overwrites
// the status: a real answer beats a timeout guess.
package controller
