package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/zwave"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	mu        sync.Mutex
	published []published
	filter    string
	handler   pahomqtt.MessageHandler
	subErr    error
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload any) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var s string
	switch p := payload.(type) {
	case string:
		s = p
	case []byte:
		s = string(p)
	}
	c.published = append(c.published, published{topic, retained, s})
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb pahomqtt.MessageHandler) pahomqtt.Token {
	c.filter, c.handler = topic, cb
	return doneToken{err: c.subErr}
}

func (c *fakeClient) Disconnect(uint) {}

func (c *fakeClient) on(topic string) []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []published
	for _, p := range c.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

type message struct {
	topic   string
	payload string
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 1 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte   { return []byte(m.payload) }
func (m message) Ack()              {}

type fakeNetwork struct {
	values map[zwave.ValueID]zwave.Value
	sets   map[zwave.ValueID]string
}

func (n *fakeNetwork) Value(vid zwave.ValueID) (zwave.Value, error) {
	v, ok := n.values[vid]
	if !ok {
		return zwave.Value{}, zwave.ErrUnknownValue
	}
	return v, nil
}

func (n *fakeNetwork) SetValueFromString(vid zwave.ValueID, s string) error {
	if _, ok := n.values[vid]; !ok {
		return zwave.ErrUnknownValue
	}
	n.sets[vid] = s
	return nil
}

var level = zwave.ValueID{HomeID: 0xcafe, NodeID: 4, Genre: zwave.GenreUser, CommandClassID: zwave.CCSwitchMultilevel, Instance: 1, Type: zwave.ValueTypeByte}

func newTestBridge(t *testing.T) (*Bridge, *fakeClient, *fakeNetwork) {
	t.Helper()
	c := &fakeClient{}
	n := &fakeNetwork{
		values: map[zwave.ValueID]zwave.Value{
			level: {ID: level, Label: "Level", Max: 99, IsSet: true, Data: uint8(42)},
		},
		sets: map[zwave.ValueID]string{},
	}
	cfg := DefaultConfig()
	b := newBridge(cfg, "test", c, n)
	require.NoError(t, b.start())
	return b, c, n
}

func TestStartAnnouncesAndSubscribes(t *testing.T) {
	_, c, _ := newTestBridge(t)

	assert.Equal(t, "zwave/+/+/+/set", c.filter)
	status := c.on("zwave/status")
	require.Len(t, status, 1)
	assert.True(t, status[0].retained)
	assert.Contains(t, status[0].payload, `"status":"online"`)
}

func TestStartReportsSubscribeFailure(t *testing.T) {
	c := &fakeClient{subErr: errors.New("not authorized")}
	b := newBridge(DefaultConfig(), "test", c, &fakeNetwork{})
	assert.ErrorIs(t, b.start(), ErrSubscribeFailed)
}

func TestValueChangedPublishesRetainedState(t *testing.T) {
	b, c, _ := newTestBridge(t)

	b.Watch(zwave.Notification{Type: zwave.NotificationValueChanged, HomeID: 0xcafe, NodeID: 4, ValueID: level}, b)

	state := c.on("zwave/0x0000cafe/4/" + level.String())
	require.Len(t, state, 1)
	assert.True(t, state[0].retained)
	var got statePayload
	require.NoError(t, json.Unmarshal([]byte(state[0].payload), &got))
	assert.Equal(t, float64(42), got.Value)
	assert.Equal(t, "42", got.AsString)

	events := c.on("zwave/0x0000cafe/events")
	require.Len(t, events, 1)
	assert.False(t, events[0].retained)
	assert.Contains(t, events[0].payload, `"type":"value_changed"`)
}

func TestValueRemovedClearsState(t *testing.T) {
	b, c, _ := newTestBridge(t)

	b.Watch(zwave.Notification{Type: zwave.NotificationValueRemoved, HomeID: 0xcafe, NodeID: 4, ValueID: level}, b)

	state := c.on("zwave/0x0000cafe/4/" + level.String())
	require.Len(t, state, 1)
	assert.Empty(t, state[0].payload)
}

func TestSetRoutesToNetwork(t *testing.T) {
	_, c, n := newTestBridge(t)

	c.handler(nil, message{topic: "zwave/0x0000cafe/4/" + level.String() + "/set", payload: "55"})
	assert.Equal(t, "55", n.sets[level])

	// segments that disagree with the value id are ignored
	c.handler(nil, message{topic: "zwave/0x0000beef/4/" + level.String() + "/set", payload: "1"})
	c.handler(nil, message{topic: "zwave/0x0000cafe/5/" + level.String() + "/set", payload: "1"})
	c.handler(nil, message{topic: "zwave/0x0000cafe/4/zz/set", payload: "1"})
	assert.Equal(t, "55", n.sets[level])
}

func TestParseSetTopic(t *testing.T) {
	vid, err := parseSetTopic("zwave", "zwave/0x0000cafe/4/"+level.String()+"/set")
	require.NoError(t, err)
	assert.Equal(t, level, vid)

	_, err = parseSetTopic("zwave", "other/0x0000cafe/4/"+level.String()+"/set")
	assert.ErrorIs(t, err, ErrInvalidTopic)
	_, err = parseSetTopic("zwave", "zwave/0x0000cafe/4/"+level.String())
	assert.ErrorIs(t, err, ErrInvalidTopic)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(), "disabled bridges are not checked")

	cfg.Enabled = true
	assert.NoError(t, cfg.Validate())

	cfg.QoS = 3
	cfg.Prefix = "zwave/#"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qos")
	assert.Contains(t, err.Error(), "prefix")
}
