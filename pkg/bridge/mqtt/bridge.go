// Package mqtt mirrors Z-Wave values onto an MQTT broker and accepts
// writes from it.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// Network is the part of the manager the bridge uses.
type Network interface {
	Value(vid zwave.ValueID) (zwave.Value, error)
	SetValueFromString(vid zwave.ValueID, s string) error
}

// client is the subset of pahomqtt.Client the bridge calls.
type client interface {
	Publish(topic string, qos byte, retained bool, payload any) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Bridge publishes value state and notifications and routes set requests
// to the network. Register Bridge.Watch with the bridge as context.
type Bridge struct {
	cfg      Config
	clientID string
	client   client
	network  Network
	log      zerolog.Logger
}

type statePayload struct {
	Value    any       `json:"value"`
	AsString string    `json:"as_string"`
	Label    string    `json:"label"`
	Units    string    `json:"units,omitempty"`
	Time     time.Time `json:"time"`
}

type eventPayload struct {
	Type    string    `json:"type"`
	NodeID  uint8     `json:"node_id"`
	ValueID string    `json:"value_id,omitempty"`
	Code    string    `json:"code,omitempty"`
	State   string    `json:"state,omitempty"`
	Time    time.Time `json:"time"`
}

// Connect dials the broker, announces the bridge and subscribes to writes.
func Connect(cfg Config, network Network) (*Bridge, error) {
	id := cfg.clientID()
	opts := buildClientOptions(cfg, id)

	b := newBridge(cfg, id, nil, network)
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		// Runs again after every reconnect; clean sessions lose subscriptions.
		if err := b.start(); err != nil {
			b.log.Error().Err(err).Msg("Restoring MQTT subscription")
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.log.Warn().Err(err).Msg("MQTT connection lost")
	})

	c := pahomqtt.NewClient(opts)
	b.client = c
	token := c.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	b.log.Info().Str("broker", cfg.Broker).Msg("MQTT bridge connected")
	return b, nil
}

func newBridge(cfg Config, clientID string, c client, network Network) *Bridge {
	return &Bridge{
		cfg:      cfg,
		clientID: clientID,
		client:   c,
		network:  network,
		log:      log.With().Str("component", "mqtt").Str("client_id", clientID).Logger(),
	}
}

// start publishes the online status and subscribes to writes.
func (b *Bridge) start() error {
	b.publish(statusTopic(b.cfg.Prefix), true, statusPayload("online", b.clientID))

	token := b.client.Subscribe(setFilter(b.cfg.Prefix), b.cfg.QoS, b.onSet)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Close announces a graceful shutdown and disconnects.
func (b *Bridge) Close() {
	token := b.client.Publish(statusTopic(b.cfg.Prefix), 1, true, statusPayload("offline", b.clientID))
	token.WaitTimeout(defaultPublishTimeout)
	b.client.Disconnect(disconnectQuiesce)
}

// Watch mirrors a notification onto the broker. Value notifications
// update the retained state topic; all notifications go to the events
// topic of their home.
func (b *Bridge) Watch(n zwave.Notification, _ any) {
	switch n.Type {
	case zwave.NotificationValueAdded, zwave.NotificationValueChanged, zwave.NotificationValueRefreshed:
		b.publishValue(n)
	case zwave.NotificationValueRemoved:
		// An empty retained message clears the topic.
		b.publish(valueTopic(b.cfg.Prefix, n.ValueID), true, "")
	}

	ev := eventPayload{Type: n.Type.String(), NodeID: uint8(n.NodeID), Time: n.Time}
	if n.HasValueID() {
		ev.ValueID = n.ValueID.String()
	}
	if c, ok := n.Code(); ok {
		ev.Code = c.String()
	}
	if st, ok := n.ControllerState(); ok {
		ev.State = st.String()
	}
	data, _ := json.Marshal(ev)
	b.publish(eventsTopic(b.cfg.Prefix, n.HomeID), false, data)
}

func (b *Bridge) publishValue(n zwave.Notification) {
	v, err := b.network.Value(n.ValueID)
	if err != nil {
		b.log.Debug().Err(err).Str("value", n.ValueID.String()).Msg("Value gone before publishing")
		return
	}
	if !v.IsSet || v.WriteOnly {
		return
	}
	data, err := json.Marshal(statePayload{
		Value:    v.Data,
		AsString: v.String(),
		Label:    v.Label,
		Units:    v.Units,
		Time:     n.Time,
	})
	if err != nil {
		b.log.Warn().Err(err).Msg("Encoding value state")
		return
	}
	b.publish(valueTopic(b.cfg.Prefix, n.ValueID), true, data)
}

// publish sends without waiting; watchers must not block delivery.
func (b *Bridge) publish(topic string, retained bool, payload any) {
	token := b.client.Publish(topic, b.cfg.QoS, retained, payload)
	go func() {
		if !token.WaitTimeout(defaultPublishTimeout) {
			b.log.Warn().Str("topic", topic).Msg("MQTT publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			b.log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

func (b *Bridge) onSet(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("topic", msg.Topic()).Msg("MQTT set handler panicked")
		}
	}()

	vid, err := parseSetTopic(b.cfg.Prefix, msg.Topic())
	if err != nil {
		b.log.Warn().Err(err).Msg("Ignoring MQTT write")
		return
	}
	if err := b.network.SetValueFromString(vid, string(msg.Payload())); err != nil {
		b.log.Warn().Err(err).Str("value", vid.String()).Msg("MQTT write rejected")
		return
	}
	b.log.Debug().Str("value", vid.String()).Msg("MQTT write queued")
}
