// Package mqtt wraps the paho client for the greenhouse message bus.
//
// The controller and every field unit talk only through the broker,
// so devices can drop off and reconnect without either side holding a
// direct connection. The wrapper adds what raw paho leaves to the
// caller: broker failover across configured hosts, a subscription
// table replayed after reconnect, a retained last-will on
// system/status, and panic recovery around message handlers.
//
// Typical controller usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllSensorData(), 1,
//	    func(topic string, payload []byte) error {
//	        return ingest(topic, payload)
//	    })
//
// Payloads are opaque bytes here; JSON encoding and topic semantics
// live with the callers (controller, fieldunit).
package mqtt
