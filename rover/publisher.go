package rover

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CommandMessage is the payload sent to the simulator after each tick.
type CommandMessage struct {
	MissionID string  `json:"missionId"`
	Tick      uint64  `json:"tick"`
	Mode      Mode    `json:"mode"`
	Throttle  float64 `json:"throttle"`
	Brake     float64 `json:"brake"`
	Steer     float64 `json:"steer"`
	Pickup    bool    `json:"pickup"`
	Timestamp int64   `json:"timestamp"`
}

// CommandPublisher sends actuation commands and mission status over MQTT.
// A nil client disables publishing.
type CommandPublisher struct {
	client        mqtt.Client
	commandTopic  string
	publishPrefix string
	qos           byte
	retain        bool
}

// NewCommandPublisher creates a publisher for the topics in cfg.
// MQTT_PUBLISH_PREFIX overrides the configured status prefix.
func NewCommandPublisher(client mqtt.Client, cfg MQTTConfig) *CommandPublisher {
	return &CommandPublisher{
		client:        client,
		commandTopic:  cfg.CommandTopic,
		publishPrefix: envOr("MQTT_PUBLISH_PREFIX", orDefault(cfg.PublishPrefix, "rovermesh")),
		qos:           cfg.QoS,
		retain:        cfg.RetainStatus,
	}
}

// PublishCommand sends the actuation decided for one tick. Commands are
// never retained so a restarting simulator does not replay a stale one.
func (p *CommandPublisher) PublishCommand(missionID string, res TickResult) error {
	msg := CommandMessage{
		MissionID: missionID,
		Tick:      res.Tick,
		Mode:      res.Mode,
		Throttle:  res.Command.Throttle,
		Brake:     res.Command.Brake,
		Steer:     res.Command.Steer,
		Pickup:    res.Command.Pickup,
		Timestamp: time.Now().Unix(),
	}
	return p.publish(p.commandTopic, false, msg)
}

// PublishStatus sends the mission snapshot to <prefix>/status, retained
// unless mqtt.retainStatus is off.
func (p *CommandPublisher) PublishStatus(snap Snapshot) error {
	topic := fmt.Sprintf("%s/status", p.publishPrefix)
	return p.publish(topic, p.retain, snap)
}

func (p *CommandPublisher) publish(topic string, retain bool, v any) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}
	return nil
}
