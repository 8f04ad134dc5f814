package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading records one reading from a sensor unit in the
// sensor_readings measurement. The write is buffered and flushed
// asynchronously, so the call never blocks message handling; failures
// surface through the SetOnError callback.
func (c *Client) WriteSensorReading(unitID, sensorType string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		"sensor_readings",
		map[string]string{"unit_id": unitID, "sensor_type": sensorType},
		map[string]interface{}{"value": value},
		time.Now(),
	))
}

// WriteWaterLevel records a sprinkler's reservoir state after a
// completed or refused watering run.
func (c *Client) WriteWaterLevel(actuatorID string, remainingPercent int, pulses int64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		"water_level",
		map[string]string{"actuator_id": actuatorID},
		map[string]interface{}{
			"remaining_percent": remainingPercent,
			"pulses":            pulses,
		},
		time.Now(),
	))
}
