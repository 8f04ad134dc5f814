package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outbound messages at 1MB, matching typical
// broker limits. Greenhouse payloads are a few hundred bytes; anything
// near this limit is a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends a message and waits for broker acknowledgement (per
// the requested QoS) up to the publish timeout. Commands and responses
// go out at QoS 1 and unretained; retained state uses PublishRetained.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// PublishRetained publishes a retained message at the configured
// default QoS. Used for state a late subscriber must see immediately,
// like a unit's settings.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
