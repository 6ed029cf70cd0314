package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/manager"
	"github.com/urmzd/zwcore/pkg/schema"
	"github.com/urmzd/zwcore/pkg/zwave"
)

const testHome zwave.HomeID = 0x00abcdef

func newTestServer(t *testing.T) *Server {
	t.Helper()
	opts := manager.DefaultOptions()
	opts.LogLevel = "warn"
	opts.PollInterval = time.Hour
	opts.ShutdownGrace = time.Second
	m, err := manager.Create(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Destroy() })

	queried := make(chan struct{})
	var once sync.Once
	require.NoError(t, m.AddWatcher(func(n zwave.Notification, _ any) {
		if n.Type == zwave.NotificationAllNodesQueried || n.Type == zwave.NotificationAllNodesQueriedSomeDead {
			once.Do(func() { close(queried) })
		}
	}, t.Name()))
	require.NoError(t, m.AddDriver(fmt.Sprintf("sim://mcp?home=%d", uint32(testHome))))
	select {
	case <-queried:
	case <-time.After(5 * time.Second):
		t.Fatal("network was not queried in time")
	}
	return NewServer(m, schema.NewValidator(), "test")
}

// call invokes a registered tool by name.
func call(t *testing.T, s *Server, name string, args map[string]any) (string, bool) {
	t.Helper()
	var h server.ToolHandlerFunc
	for _, tool := range s.tools() {
		if tool.Tool.Name == name {
			h = tool.Handler
		}
	}
	require.NotNil(t, h, "tool %s is not registered", name)

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestHealthAndDrivers(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, "get_health", nil)
	require.False(t, isErr)
	var health GetHealthOutput
	require.NoError(t, json.Unmarshal([]byte(text), &health))
	assert.Equal(t, "healthy", health.Status)
	require.Len(t, health.Drivers, 1)
	assert.Equal(t, testHome.String(), health.Drivers[0].HomeID)

	_, isErr = call(t, s, "add_driver", map[string]any{"endpoint": health.Drivers[0].Endpoint})
	assert.True(t, isErr, "attaching the same endpoint twice fails")
}

func TestNodeByNameOrID(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, "get_node", map[string]any{"node": "lamp"})
	require.False(t, isErr, text)
	var out GetNodeOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.EqualValues(t, 3, out.Node.ID)
	assert.Equal(t, "Living Room", out.Node.Location)
	assert.NotEmpty(t, out.Node.Values)

	text, isErr = call(t, s, "get_node", map[string]any{"node": "4", "home": testHome.String()})
	require.False(t, isErr, text)

	_, isErr = call(t, s, "get_node", map[string]any{"node": "no such node"})
	assert.True(t, isErr)
	_, isErr = call(t, s, "get_node", map[string]any{"node": "4", "home": "kitchen"})
	assert.True(t, isErr)
	_, isErr = call(t, s, "get_node", map[string]any{})
	assert.True(t, isErr)
}

func TestSetValueIsValidated(t *testing.T) {
	s := newTestServer(t)
	level := zwave.ValueID{HomeID: testHome, NodeID: 4, Genre: zwave.GenreUser, CommandClassID: zwave.CCSwitchMultilevel, Instance: 1, Type: zwave.ValueTypeByte}

	text, isErr := call(t, s, "get_value", map[string]any{"value_id": level.String()})
	require.False(t, isErr, text)
	assert.Contains(t, text, `"schema"`)

	text, isErr = call(t, s, "set_value", map[string]any{"value_id": level.String(), "payload": map[string]any{"value": float64(150)}})
	assert.True(t, isErr)
	assert.Contains(t, text, "validation failed")

	text, isErr = call(t, s, "set_value", map[string]any{"value_id": level.String(), "payload": map[string]any{"value": float64(30)}})
	require.False(t, isErr, text)

	assert.Eventually(t, func() bool {
		text, _ := call(t, s, "get_value", map[string]any{"value_id": level.String()})
		var out GetValueOutput
		return json.Unmarshal([]byte(text), &out) == nil && out.Value.Reading == "30"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRenameAndSwitch(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, "rename_node", map[string]any{"node": "6", "new_name": "Hall Sensor", "location": "Hall"})
	require.False(t, isErr, text)

	assert.Eventually(t, func() bool {
		text, isErr := call(t, s, "get_node", map[string]any{"node": "hall sensor"})
		var out GetNodeOutput
		return !isErr && json.Unmarshal([]byte(text), &out) == nil && out.Node.Location == "Hall"
	}, 3*time.Second, 20*time.Millisecond)

	text, isErr = call(t, s, "turn_on", map[string]any{"node": "Lamp"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "turned on")
}

func TestInclusionLifecycle(t *testing.T) {
	s := newTestServer(t)

	_, isErr := call(t, s, "start_inclusion", nil)
	require.False(t, isErr)

	text, isErr := call(t, s, "start_exclusion", nil)
	assert.True(t, isErr, "a second controller command is refused while busy")
	assert.Contains(t, text, "failed to start remove_device")

	_, isErr = call(t, s, "cancel_controller_command", nil)
	assert.False(t, isErr)
}

func TestToolNamesAreUnique(t *testing.T) {
	s := NewServer(nil, schema.NewValidator(), "test")
	seen := map[string]bool{}
	for _, tool := range s.tools() {
		assert.False(t, seen[tool.Tool.Name], "duplicate tool %s", tool.Tool.Name)
		seen[tool.Tool.Name] = true
		assert.NotEmpty(t, tool.Tool.Description, tool.Tool.Name)
	}
	assert.Len(t, seen, 16)
}
