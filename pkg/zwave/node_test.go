package zwave

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHome HomeID = 0xF4C5B8DC

type recorder struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recorder) emit(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) types() []NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NotificationType, len(r.got))
	for i, n := range r.got {
		out[i] = n.Type
	}
	return out
}

func switchValue(node NodeID) Value {
	return Value{
		ID: ValueID{
			HomeID:         testHome,
			NodeID:         node,
			Genre:          GenreUser,
			CommandClassID: CCSwitchBinary,
			Instance:       1,
			Type:           ValueTypeBool,
		},
		Label: "Switch",
	}
}

func TestNodeRegistryNames(t *testing.T) {
	reg := NewNodeRegistry(testHome, nil)
	require.NoError(t, reg.AddNode(Node{ID: 3}, false))

	name, err := reg.NodeName(3)
	require.NoError(t, err)
	assert.Empty(t, name)

	require.NoError(t, reg.UpdateNode(3, NotificationNodeNaming, func(n *Node) {
		n.Name = "Lamp"
		n.ManufacturerName = "Aeotec"
		n.ProductName = "Smart Switch 6"
	}))

	name, _ = reg.NodeName(3)
	assert.Equal(t, "Lamp", name)
	manufacturer, _ := reg.ManufacturerName(3)
	assert.Equal(t, "Aeotec", manufacturer)
	product, _ := reg.ProductName(3)
	assert.Equal(t, "Smart Switch 6", product)

	_, err = reg.NodeName(9)
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = reg.ManufacturerName(9)
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = reg.ProductName(9)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestNodeRegistryNotifiesStructuralChanges(t *testing.T) {
	rec := &recorder{}
	reg := NewNodeRegistry(testHome, rec.emit)

	require.NoError(t, reg.AddNode(Node{ID: 5}, true))
	require.NoError(t, reg.AddValue(switchValue(5)))
	require.Error(t, reg.AddValue(switchValue(5)), "duplicate value ids are rejected")
	require.Error(t, reg.AddNode(Node{ID: 5}, false), "duplicate nodes are rejected")
	require.NoError(t, reg.RemoveNode(5))

	assert.Equal(t, []NotificationType{
		NotificationNodeNew,
		NotificationNodeAdded,
		NotificationValueAdded,
		NotificationValueRemoved,
		NotificationNodeRemoved,
	}, rec.types())

	for _, n := range rec.got {
		assert.Equal(t, testHome, n.HomeID)
		assert.Equal(t, NodeID(5), n.NodeID)
	}
	assert.ErrorIs(t, reg.RemoveNode(5), ErrUnknownNode)
}

func TestNodeRegistryValueLookups(t *testing.T) {
	reg := NewNodeRegistry(testHome, nil)
	require.NoError(t, reg.AddNode(Node{ID: 5}, false))
	sw := switchValue(5)
	require.NoError(t, reg.AddValue(sw))

	v, err := reg.Value(sw.ID)
	require.NoError(t, err)
	assert.Equal(t, "Switch", v.Label)
	assert.False(t, v.IsSet)

	info, err := reg.Describe(sw.ID)
	require.NoError(t, err)
	assert.Equal(t, "Switch", info.Label)

	missing := sw.ID
	missing.Index = 7
	_, err = reg.Value(missing)
	assert.ErrorIs(t, err, ErrUnknownValue)

	otherNode := sw.ID
	otherNode.NodeID = 9
	_, err = reg.Value(otherNode)
	assert.ErrorIs(t, err, ErrUnknownNode)

	otherHome := sw.ID
	otherHome.HomeID = 1
	_, err = reg.Value(otherHome)
	assert.ErrorIs(t, err, ErrUnknownHome)

	_, _, err = reg.Validate(sw.ID, uint8(1))
	assert.ErrorIs(t, err, ErrTypeMismatch)
	_, data, err := reg.Validate(sw.ID, true)
	require.NoError(t, err)
	assert.Equal(t, true, data)

	// Validation never stores anything.
	v, _ = reg.Value(sw.ID)
	assert.False(t, v.IsSet)
}

func TestSetValueDataChangedVersusRefreshed(t *testing.T) {
	rec := &recorder{}
	reg := NewNodeRegistry(testHome, rec.emit)
	require.NoError(t, reg.AddNode(Node{ID: 5}, false))
	sw := switchValue(5)
	require.NoError(t, reg.AddValue(sw))

	changed, err := reg.SetValueData(sw.ID, false)
	require.NoError(t, err)
	assert.True(t, changed, "first reading always counts as a change")

	changed, err = reg.SetValueData(sw.ID, false)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = reg.SetValueData(sw.ID, true)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, []NotificationType{
		NotificationNodeAdded,
		NotificationValueAdded,
		NotificationValueChanged,
		NotificationValueRefreshed,
		NotificationValueChanged,
	}, rec.types())

	v, _ := reg.Value(sw.ID)
	assert.Equal(t, "True", v.String())
}

func TestPollIntensityAndDeadState(t *testing.T) {
	rec := &recorder{}
	reg := NewNodeRegistry(testHome, rec.emit)
	require.NoError(t, reg.AddNode(Node{ID: 5}, false))
	sw := switchValue(5)
	require.NoError(t, reg.AddValue(sw))

	require.NoError(t, reg.SetPollIntensity(sw.ID, 1))
	require.NoError(t, reg.SetPollIntensity(sw.ID, 2))
	assert.Equal(t, []ValueID{sw.ID}, reg.Polled())
	require.NoError(t, reg.SetPollIntensity(sw.ID, 0))
	assert.Empty(t, reg.Polled())

	reg.SetNodeDead(5, true)
	reg.SetNodeDead(5, true)
	reg.SetNodeDead(5, false)

	assert.Equal(t, []NotificationType{
		NotificationNodeAdded,
		NotificationValueAdded,
		NotificationPollingEnabled,
		NotificationPollingDisabled,
		NotificationNotification,
		NotificationNotification,
	}, rec.types())

	code, ok := rec.got[4].Code()
	require.True(t, ok)
	assert.Equal(t, CodeDead, code)
	code, _ = rec.got[5].Code()
	assert.Equal(t, CodeAlive, code)
}

func TestNodesSnapshotIsolation(t *testing.T) {
	reg := NewNodeRegistry(testHome, nil)
	require.NoError(t, reg.AddNode(Node{ID: 7, CommandClasses: []uint8{CCBasic}}, false))
	require.NoError(t, reg.AddNode(Node{ID: 2}, false))

	nodes := reg.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, NodeID(2), nodes[0].ID)
	assert.Equal(t, NodeID(7), nodes[1].ID)

	nodes[1].CommandClasses[0] = 0xAA
	n, err := reg.Node(7)
	require.NoError(t, err)
	assert.True(t, n.Supports(CCBasic))
}

func TestNotificationAccessors(t *testing.T) {
	n := Notification{Type: NotificationNotification, RawCode: uint8(CodeTimeout)}
	code, ok := n.Code()
	assert.True(t, ok)
	assert.Equal(t, CodeTimeout, code)
	_, ok = n.ControllerState()
	assert.False(t, ok)

	c := Notification{Type: NotificationControllerCommand, RawCode: uint8(ControllerStateCompleted)}
	_, ok = c.Code()
	assert.False(t, ok)
	st, ok := c.ControllerState()
	assert.True(t, ok)
	assert.True(t, st.Terminal())

	assert.Equal(t, "value_changed", NotificationValueChanged.String())
	assert.Equal(t, "node_reset", NotificationNodeReset.String())
}

func TestDriverDataAdd(t *testing.T) {
	a := DriverData{WriteCnt: 2, ACKCnt: 1}
	b := DriverData{WriteCnt: 3, Retries: 4}
	sum := a.Add(b)
	assert.Equal(t, uint32(5), sum.WriteCnt)
	assert.Equal(t, uint32(1), sum.ACKCnt)
	assert.Equal(t, uint32(4), sum.Retries)
}
