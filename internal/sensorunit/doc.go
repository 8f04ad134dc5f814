// Package sensorunit defines the controller's records for the sensor
// units reporting environmental readings, the pending enrollment queue
// for unknown devices, and threshold alerts raised from readings.
//
// A sensor unit record is created only when an administrator confirms a
// pending registration; until then the device exists solely as a row in
// the pending_registrations table and every check request it sends is
// answered with registered=false.
package sensorunit
