package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/norian27/Smart-Greenhouse-System/internal/actuator"
	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/config"
	"github.com/norian27/Smart-Greenhouse-System/internal/infrastructure/mqtt"
	"github.com/norian27/Smart-Greenhouse-System/internal/sensorunit"
)

// handlerTimeout bounds the database work done for one inbound message.
const handlerTimeout = 10 * time.Second

// Controller is the greenhouse-side protocol engine. It owns the
// inbound message handlers, the command dispatcher and the confirmation
// tracker, and keeps the persisted records as the authoritative view of
// the installation.
type Controller struct {
	cfg        *config.Config
	bus        MessageBus
	actuators  actuator.Repository
	sensors    sensorunit.Repository
	history    HistoryWriter
	tracker    *Tracker
	dispatcher *Dispatcher
	automation *Automation
	topics     mqtt.Topics
	logger     Logger
}

// New wires a controller from its collaborators. broadcaster and
// history may be nil; automation runs only when the site is configured
// as automated.
func New(cfg *config.Config, bus MessageBus, actuators actuator.Repository, sensors sensorunit.Repository, history HistoryWriter, broadcaster Broadcaster, logger Logger) *Controller {
	tracker := NewTracker(actuators, broadcaster, logger, cfg.ConfirmTimeout())
	dispatcher := NewDispatcher(actuators, bus, tracker, logger)

	c := &Controller{
		cfg:        cfg,
		bus:        bus,
		actuators:  actuators,
		sensors:    sensors,
		history:    history,
		tracker:    tracker,
		dispatcher: dispatcher,
		logger:     logger,
	}
	if cfg.Greenhouse.Automated {
		c.automation = NewAutomation(actuators, dispatcher, logger)
	}
	return c
}

// Dispatcher exposes the command path for the API layer.
func (c *Controller) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Tracker exposes the confirmation tracker, mainly for tests and
// diagnostics endpoints.
func (c *Controller) Tracker() *Tracker {
	return c.tracker
}

// Start subscribes the controller's handlers on the bus. It returns
// once all subscriptions are registered; message processing happens on
// the transport's handler goroutines.
func (c *Controller) Start(ctx context.Context) error {
	qos := byte(c.cfg.MQTT.QoS)

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{c.topics.AllChecks(), c.handleCheck},
		{c.topics.AllRegistrations(), c.handleRegister},
		{c.topics.AllSettingsRequests(), c.handleSettingsRequest},
		{c.topics.AllSensorData(), c.handleData},
		{c.topics.AllControlResponses(), c.handleControlResponse},
	}
	for _, s := range subs {
		if err := c.bus.Subscribe(s.topic, qos, s.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", s.topic, err)
		}
	}

	c.logger.Info("controller started",
		"greenhouse_id", c.cfg.Greenhouse.ID,
		"automated", c.cfg.Greenhouse.Automated,
		"subscriptions", len(subs))
	return nil
}

// handleCheck answers a device's boot-time registration query. The
// identifier is looked up across both the sensor unit and actuator
// tables.
func (c *Controller) handleCheck(topic string, _ []byte) error {
	deviceID := deviceIDFromTopic(topic)
	if deviceID == "" {
		c.logger.Warn("check request without device id", "topic", topic)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	registered, err := c.isRegistered(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("looking up device %s: %w", deviceID, err)
	}

	payload, err := json.Marshal(CheckResponseMessage{Registered: registered})
	if err != nil {
		return fmt.Errorf("encoding check response: %w", err)
	}
	if err := c.bus.Publish(c.topics.CheckResponse(deviceID), payload, byte(c.cfg.MQTT.QoS), false); err != nil {
		return fmt.Errorf("publishing check response: %w", err)
	}

	c.logger.Debug("answered check", "device_id", deviceID, "registered", registered)
	return nil
}

// isRegistered reports whether the identifier names a known sensor
// unit or actuator.
func (c *Controller) isRegistered(ctx context.Context, deviceID string) (bool, error) {
	if _, err := c.sensors.GetByID(ctx, deviceID); err == nil {
		return true, nil
	} else if !errors.Is(err, sensorunit.ErrNotFound) {
		return false, err
	}

	if _, err := c.actuators.GetByID(ctx, deviceID); err == nil {
		return true, nil
	} else if !errors.Is(err, actuator.ErrNotFound) {
		return false, err
	}

	return false, nil
}

// handleRegister records an enrollment request. Requests are
// idempotent: a device retrying its registration leaves the original
// pending row untouched. Confirmation into a full record is an
// administrative action through the API.
func (c *Controller) handleRegister(topic string, payload []byte) error {
	var msg RegisterMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("dropping malformed register request", "topic", topic, "error", err)
		return nil
	}
	if msg.UniqueIdentifier == "" {
		msg.UniqueIdentifier = deviceIDFromTopic(topic)
	}
	if msg.UniqueIdentifier == "" {
		c.logger.Warn("dropping register request without identifier", "topic", topic)
		return nil
	}

	deviceType := sensorunit.DeviceType(msg.DeviceType)
	if !deviceType.Valid() {
		deviceType = sensorunit.DeviceSensor
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	reg := &sensorunit.PendingRegistration{
		DeviceID:   msg.UniqueIdentifier,
		DeviceType: deviceType,
		Payload:    payload,
	}
	if err := c.sensors.CreatePending(ctx, reg); err != nil {
		return fmt.Errorf("recording enrollment request: %w", err)
	}

	c.logger.Info("enrollment requested",
		"device_id", msg.UniqueIdentifier, "device_type", deviceType)
	return nil
}

// handleSettingsRequest republishes the device's current reporting
// interval. The response is retained so a device that reconnects later
// still sees it.
func (c *Controller) handleSettingsRequest(topic string, _ []byte) error {
	deviceID := deviceIDFromTopic(topic)
	if deviceID == "" {
		c.logger.Warn("settings request without device id", "topic", topic)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	return c.PublishSettings(ctx, deviceID)
}

// PublishSettings pushes a unit's reporting interval to its retained
// settings channel. The API layer calls this whenever the interval
// changes server-side.
func (c *Controller) PublishSettings(ctx context.Context, deviceID string) error {
	unit, err := c.sensors.GetByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, sensorunit.ErrNotFound) {
			c.logger.Warn("settings requested by unknown device", "device_id", deviceID)
			return nil
		}
		return fmt.Errorf("loading sensor unit %s: %w", deviceID, err)
	}

	payload, err := json.Marshal(SettingsMessage{DataFrequency: unit.DataFrequency})
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := c.bus.PublishRetained(c.topics.SettingsResponse(deviceID), payload); err != nil {
		return fmt.Errorf("publishing settings: %w", err)
	}

	c.logger.Debug("settings published",
		"device_id", deviceID, "data_frequency", unit.DataFrequency)
	return nil
}

// handleData ingests a sensor unit's periodic report: latest readings
// and last-seen on the record, history to the time-series store,
// threshold alerts, and an automation pass.
func (c *Controller) handleData(topic string, payload []byte) error {
	var msg DataMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("dropping malformed data report", "topic", topic, "error", err)
		return nil
	}
	if msg.UniqueIdentifier == "" {
		msg.UniqueIdentifier = deviceIDFromTopic(topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	unit, err := c.sensors.GetByID(ctx, msg.UniqueIdentifier)
	if err != nil {
		if errors.Is(err, sensorunit.ErrNotFound) {
			c.logger.Warn("dropping data from unregistered device",
				"device_id", msg.UniqueIdentifier)
			return nil
		}
		return fmt.Errorf("loading sensor unit %s: %w", msg.UniqueIdentifier, err)
	}

	readings := make(map[string]float64, len(msg.Data))
	for _, r := range msg.Data {
		if r.Type == "" {
			continue
		}
		readings[r.Type] = r.Value
	}
	if len(readings) == 0 {
		c.logger.Warn("dropping empty data report", "device_id", unit.ID)
		return nil
	}

	now := time.Now().UTC()
	if err := c.sensors.RecordReadings(ctx, unit.ID, readings, now); err != nil {
		return fmt.Errorf("recording readings for %s: %w", unit.ID, err)
	}

	if c.history != nil {
		for sensorType, value := range readings {
			c.history.WriteSensorReading(unit.ID, sensorType, value)
		}
	}

	c.checkThresholds(ctx, unit, readings)

	if c.automation != nil {
		c.automation.Evaluate(ctx, unit.GreenhouseID, readings)
	}

	c.logger.Debug("data recorded", "device_id", unit.ID, "readings", len(readings))
	return nil
}

// checkThresholds raises an alert for each reading outside its
// configured range and resolves open alerts once the reading returns
// to range.
func (c *Controller) checkThresholds(ctx context.Context, unit *sensorunit.SensorUnit, readings map[string]float64) {
	for sensorType, value := range readings {
		th, ok := c.cfg.Control.Thresholds[sensorType]
		if !ok {
			continue
		}

		if value >= th.Min && value <= th.Max {
			c.resolveOpenAlerts(ctx, unit.ID, sensorType)
			continue
		}

		if c.hasOpenAlert(ctx, unit.ID, sensorType) {
			continue
		}

		alert := &sensorunit.Alert{
			Greenhouse: unit.GreenhouseID,
			UnitID:     unit.ID,
			SensorType: sensorType,
			Message: fmt.Sprintf("%s reading %.1f outside range [%.1f, %.1f]",
				sensorType, value, th.Min, th.Max),
		}
		if err := c.sensors.RaiseAlert(ctx, alert); err != nil {
			c.logger.Error("raising alert",
				"device_id", unit.ID, "sensor_type", sensorType, "error", err)
			continue
		}
		c.logger.Warn("alert raised",
			"device_id", unit.ID, "sensor_type", sensorType, "value", value)
	}
}

// hasOpenAlert reports whether an unresolved alert already exists for
// the unit and sensor type, to avoid raising duplicates every report.
func (c *Controller) hasOpenAlert(ctx context.Context, unitID, sensorType string) bool {
	alerts, err := c.sensors.ListAlertsByUnit(ctx, unitID)
	if err != nil {
		c.logger.Error("listing alerts", "device_id", unitID, "error", err)
		return false
	}
	for _, a := range alerts {
		if a.SensorType == sensorType && a.Open() {
			return true
		}
	}
	return false
}

// resolveOpenAlerts closes any open alerts for the unit and sensor type.
func (c *Controller) resolveOpenAlerts(ctx context.Context, unitID, sensorType string) {
	alerts, err := c.sensors.ListAlertsByUnit(ctx, unitID)
	if err != nil {
		c.logger.Error("listing alerts", "device_id", unitID, "error", err)
		return
	}
	now := time.Now().UTC()
	for _, a := range alerts {
		if a.SensorType != sensorType || !a.Open() {
			continue
		}
		if err := c.sensors.ResolveAlert(ctx, a.ID, now); err != nil {
			c.logger.Error("resolving alert", "alert_id", a.ID, "error", err)
		}
	}
}

// handleControlResponse routes a device's command outcome to the
// tracker, and mirrors sprinkler ledger state into history.
func (c *Controller) handleControlResponse(topic string, payload []byte) error {
	var msg ResponseMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("dropping malformed control response", "topic", topic, "error", err)
		return nil
	}
	if msg.UniqueIdentifier == "" {
		msg.UniqueIdentifier = deviceIDFromTopic(topic)
	}
	if msg.UniqueIdentifier == "" {
		c.logger.Warn("dropping control response without identifier", "topic", topic)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := c.tracker.HandleResponse(ctx, msg.UniqueIdentifier, msg); err != nil {
		return err
	}

	if c.history != nil && msg.Status == ResponseCompleted {
		if result, err := ParseResultPayload(msg.Data); err == nil && result != nil {
			c.history.WriteWaterLevel(msg.UniqueIdentifier, result.RemainingPercent, result.PulsesFolded)
		}
	}

	return nil
}
