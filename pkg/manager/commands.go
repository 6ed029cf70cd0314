package manager

import (
	"github.com/urmzd/zwcore/pkg/driver"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Commands are validated synchronously by the addressed session and
// complete asynchronously; outcomes arrive as notifications.

// SwitchAllOn broadcasts SWITCH_ALL ON on home.
func (m *Manager) SwitchAllOn(home zwave.HomeID) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.SwitchAllOn()
}

// SwitchAllOff broadcasts SWITCH_ALL OFF on home.
func (m *Manager) SwitchAllOff(home zwave.HomeID) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.SwitchAllOff()
}

// SetNodeOn turns a node on.
func (m *Manager) SetNodeOn(home zwave.HomeID, node zwave.NodeID) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.SetNodeOn(node)
}

// SetNodeOff turns a node off.
func (m *Manager) SetNodeOff(home zwave.HomeID, node zwave.NodeID) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.SetNodeOff(node)
}

// SetValue requests a new reading for vid.
func (m *Manager) SetValue(vid zwave.ValueID, data any) error {
	s, err := m.session(vid.HomeID)
	if err != nil {
		return err
	}
	return s.SetValue(vid, data)
}

// SetValueFromString parses str for the type of vid and sets it.
func (m *Manager) SetValueFromString(vid zwave.ValueID, str string) error {
	s, err := m.session(vid.HomeID)
	if err != nil {
		return err
	}
	return s.SetValueFromString(vid, str)
}

// SetValueJSON converts a decoded JSON scalar for the type of vid and
// sets it.
func (m *Manager) SetValueJSON(vid zwave.ValueID, raw any) error {
	v, err := m.Value(vid)
	if err != nil {
		return err
	}
	data, err := zwave.FromJSON(&v, raw)
	if err != nil {
		return err
	}
	return m.SetValue(vid, data)
}

// RefreshValue reads vid from its node again.
func (m *Manager) RefreshValue(vid zwave.ValueID) error {
	s, err := m.session(vid.HomeID)
	if err != nil {
		return err
	}
	return s.RefreshValue(vid)
}

// EnablePoll polls vid every intensity-th pass.
func (m *Manager) EnablePoll(vid zwave.ValueID, intensity uint8) error {
	s, err := m.session(vid.HomeID)
	if err != nil {
		return err
	}
	return s.EnablePoll(vid, intensity)
}

// DisablePoll stops polling vid.
func (m *Manager) DisablePoll(vid zwave.ValueID) error {
	s, err := m.session(vid.HomeID)
	if err != nil {
		return err
	}
	return s.DisablePoll(vid)
}

// IsPolled reports whether vid is polled.
func (m *Manager) IsPolled(vid zwave.ValueID) (bool, error) {
	s, err := m.session(vid.HomeID)
	if err != nil {
		return false, err
	}
	return s.IsPolled(vid)
}

// RefreshNodeInfo queries a node again.
func (m *Manager) RefreshNodeInfo(home zwave.HomeID, node zwave.NodeID) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.RefreshNodeInfo(node)
}

// SetNodeName names a node.
func (m *Manager) SetNodeName(home zwave.HomeID, node zwave.NodeID, name string) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.SetNodeName(node, name)
}

// SetNodeLocation sets the location of a node.
func (m *Manager) SetNodeLocation(home zwave.HomeID, node zwave.NodeID, location string) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.SetNodeLocation(node, location)
}

// BeginControllerCommand starts an exclusive controller command on home.
func (m *Manager) BeginControllerCommand(home zwave.HomeID, cmd driver.ControllerCommand, node zwave.NodeID) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.BeginControllerCommand(cmd, node)
}

// CancelControllerCommand aborts the exclusive command on home. It
// succeeds without a notification when nothing is in progress.
func (m *Manager) CancelControllerCommand(home zwave.HomeID) error {
	s, err := m.session(home)
	if err != nil {
		return err
	}
	return s.CancelControllerCommand()
}
