package device

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTController drives a commodity MQTT-addressable relay/smart-plug: it
// publishes "ON"/"OFF" to <address>/command and reads the last retained
// message on <address>/state for verification, the topic convention
// Shelly/Tasmota-style firmwares follow.
type MQTTController struct {
	*baseController
	client       mqtt.Client
	broker       string
	stateTopic   string
	commandTopic string

	lastState chan TriState
}

// NewMQTTController builds a controller for a device reachable at address
// (used to derive its MQTT topic namespace) via the given broker URL.
func NewMQTTController(lg *slog.Logger, broker, address string, discov Discoverer, policy RetryPolicy) *MQTTController {
	m := &MQTTController{
		broker:       broker,
		stateTopic:   fmt.Sprintf("%s/state", address),
		commandTopic: fmt.Sprintf("%s/command", address),
		lastState:    make(chan TriState, 1),
	}
	m.baseController = newBaseController(lg, address, m, policy, discov)
	return m
}

func (m *MQTTController) connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions().AddBroker(m.broker).SetConnectTimeout(5 * time.Second)
	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("device: mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("device: mqtt connect failed: %w", err)
	}
	subToken := m.client.Subscribe(m.stateTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		switch string(msg.Payload()) {
		case "ON", "on", "1":
			select {
			case m.lastState <- On:
			default:
				<-m.lastState
				m.lastState <- On
			}
		case "OFF", "off", "0":
			select {
			case m.lastState <- Off:
			default:
				<-m.lastState
				m.lastState <- Off
			}
		}
	})
	subToken.WaitTimeout(5 * time.Second)
	return subToken.Error()
}

func (m *MQTTController) send(ctx context.Context, on bool) error {
	if m.client == nil {
		return fmt.Errorf("device: mqtt client not connected")
	}
	payload := "OFF"
	if on {
		payload = "ON"
	}
	token := m.client.Publish(m.commandTopic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("device: mqtt publish failed: %w", err)
	}
	return nil
}

func (m *MQTTController) read(ctx context.Context) (TriState, error) {
	if m.client == nil {
		return Unknown, fmt.Errorf("device: mqtt client not connected")
	}
	select {
	case s := <-m.lastState:
		m.lastState <- s
		return s, nil
	case <-time.After(2 * time.Second):
		return Unknown, fmt.Errorf("device: no retained state received on %s", m.stateTopic)
	case <-ctx.Done():
		return Unknown, ctx.Err()
	}
}
