package manager

import (
	"encoding/json"
	"slices"

	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/schema"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// DriverState returns the lifecycle state of the session driving home.
func (m *Manager) DriverState(home zwave.HomeID) (driver.State, error) {
	s, err := m.session(home)
	if err != nil {
		return driver.StateStopped, err
	}
	return s.State(), nil
}

// Statistics returns the driver counters of home.
func (m *Manager) Statistics(home zwave.HomeID) (zwave.DriverData, error) {
	s, err := m.session(home)
	if err != nil {
		return zwave.DriverData{}, err
	}
	return s.Statistics(), nil
}

// ControllerNodeID returns the node id of the controller of home.
func (m *Manager) ControllerNodeID(home zwave.HomeID) (zwave.NodeID, error) {
	s, err := m.session(home)
	if err != nil {
		return 0, err
	}
	return s.ControllerNodeID(), nil
}

// Nodes returns a snapshot of the nodes of home.
func (m *Manager) Nodes(home zwave.HomeID) ([]zwave.Node, error) {
	reg, err := m.registry(home)
	if err != nil {
		return nil, err
	}
	return reg.Nodes(), nil
}

// Node returns a snapshot of one node.
func (m *Manager) Node(home zwave.HomeID, node zwave.NodeID) (zwave.Node, error) {
	reg, err := m.registry(home)
	if err != nil {
		return zwave.Node{}, err
	}
	return reg.Node(node)
}

// NodeName returns the node name, empty until reported.
func (m *Manager) NodeName(home zwave.HomeID, node zwave.NodeID) (string, error) {
	reg, err := m.registry(home)
	if err != nil {
		return "", err
	}
	return reg.NodeName(node)
}

// NodeManufacturerName returns the manufacturer name, empty until reported.
func (m *Manager) NodeManufacturerName(home zwave.HomeID, node zwave.NodeID) (string, error) {
	reg, err := m.registry(home)
	if err != nil {
		return "", err
	}
	return reg.ManufacturerName(node)
}

// NodeProductName returns the product name, empty until reported.
func (m *Manager) NodeProductName(home zwave.HomeID, node zwave.NodeID) (string, error) {
	reg, err := m.registry(home)
	if err != nil {
		return "", err
	}
	return reg.ProductName(node)
}

// Values returns the values of one node.
func (m *Manager) Values(home zwave.HomeID, node zwave.NodeID) ([]zwave.Value, error) {
	reg, err := m.registry(home)
	if err != nil {
		return nil, err
	}
	return reg.Values(node)
}

// Value returns one value.
func (m *Manager) Value(vid zwave.ValueID) (zwave.Value, error) {
	reg, err := m.registry(vid.HomeID)
	if err != nil {
		return zwave.Value{}, err
	}
	return reg.Value(vid)
}

// ValueInfo returns the label, help, units and bounds of a value.
func (m *Manager) ValueInfo(vid zwave.ValueID) (zwave.ValueInfo, error) {
	reg, err := m.registry(vid.HomeID)
	if err != nil {
		return zwave.ValueInfo{}, err
	}
	return reg.Describe(vid)
}

// GetValueAsString renders the current reading, empty while unset.
func (m *Manager) GetValueAsString(vid zwave.ValueID) (string, error) {
	v, err := m.Value(vid)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// GetValueListItems returns the labels of a list value.
func (m *Manager) GetValueListItems(vid zwave.ValueID) ([]string, error) {
	v, err := m.Value(vid)
	if err != nil {
		return nil, err
	}
	if v.ID.Type != zwave.ValueTypeList {
		return nil, zwave.ErrTypeMismatch
	}
	labels := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		labels = append(labels, item.Label)
	}
	return slices.Clip(labels), nil
}

// ValueSchema returns the JSON schema of a write payload for vid.
func (m *Manager) ValueSchema(vid zwave.ValueID) (json.RawMessage, error) {
	v, err := m.Value(vid)
	if err != nil {
		return nil, err
	}
	return schema.ForValue(v), nil
}
