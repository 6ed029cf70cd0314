package zwave

import (
	"fmt"
	"time"
)

// NotificationType identifies what a Notification reports.
type NotificationType uint8

const (
	NotificationValueAdded NotificationType = iota
	NotificationValueRemoved
	NotificationValueChanged
	NotificationValueRefreshed
	NotificationGroup
	NotificationNodeNew
	NotificationNodeAdded
	NotificationNodeRemoved
	NotificationNodeProtocolInfo
	NotificationNodeNaming
	NotificationNodeEvent
	NotificationPollingDisabled
	NotificationPollingEnabled
	NotificationSceneEvent
	NotificationCreateButton
	NotificationDeleteButton
	NotificationButtonOn
	NotificationButtonOff
	NotificationDriverReady
	NotificationDriverFailed
	NotificationDriverReset
	NotificationEssentialNodeQueriesComplete
	NotificationNodeQueriesComplete
	NotificationAwakeNodesQueried
	NotificationAllNodesQueriedSomeDead
	NotificationAllNodesQueried
	NotificationNotification
	NotificationDriverRemoved
	NotificationControllerCommand
	NotificationNodeReset
	notificationTypeCount
)

var notificationTypeNames = [...]string{
	"value_added", "value_removed", "value_changed", "value_refreshed", "group",
	"node_new", "node_added", "node_removed", "node_protocol_info", "node_naming",
	"node_event", "polling_disabled", "polling_enabled", "scene_event", "create_button",
	"delete_button", "button_on", "button_off", "driver_ready", "driver_failed",
	"driver_reset", "essential_node_queries_complete", "node_queries_complete",
	"awake_nodes_queried", "all_nodes_queried_some_dead", "all_nodes_queried",
	"notification", "driver_removed", "controller_command", "node_reset",
}

func (t NotificationType) String() string {
	if t < notificationTypeCount {
		return notificationTypeNames[t]
	}
	return fmt.Sprintf("notification_type(%d)", uint8(t))
}

// ValueScoped reports whether notifications of this type carry a ValueID.
func (t NotificationType) ValueScoped() bool {
	switch t {
	case NotificationValueAdded, NotificationValueRemoved, NotificationValueChanged,
		NotificationValueRefreshed, NotificationPollingDisabled, NotificationPollingEnabled:
		return true
	}
	return false
}

// NotificationCode qualifies notifications of type NotificationNotification.
type NotificationCode uint8

const (
	CodeMsgComplete NotificationCode = iota // a message round trip completed
	CodeTimeout                             // a message timed out or was abandoned
	CodeNoOperation                         // reply to a no-operation probe
	CodeAwake                               // a sleeping node woke up
	CodeSleep                               // a node went to sleep
	CodeDead                                // a node stopped responding
	CodeAlive                               // a dead node responded again
	notificationCodeCount
)

var notificationCodeNames = [...]string{"msg_complete", "timeout", "no_operation", "awake", "sleep", "dead", "alive"}

func (c NotificationCode) String() string {
	if c < notificationCodeCount {
		return notificationCodeNames[c]
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// ControllerState qualifies notifications of type NotificationControllerCommand.
type ControllerState uint8

const (
	ControllerStateNormal ControllerState = iota
	ControllerStateStarting
	ControllerStateCancel
	ControllerStateError
	ControllerStateWaiting
	ControllerStateSleeping
	ControllerStateInProgress
	ControllerStateCompleted
	ControllerStateFailed
	ControllerStateNodeOK
	ControllerStateNodeFailed
	controllerStateCount
)

var controllerStateNames = [...]string{
	"normal", "starting", "cancel", "error", "waiting", "sleeping",
	"in_progress", "completed", "failed", "node_ok", "node_failed",
}

func (s ControllerState) String() string {
	if s < controllerStateCount {
		return controllerStateNames[s]
	}
	return fmt.Sprintf("controller_state(%d)", uint8(s))
}

// Terminal reports whether the state ends a controller command.
func (s ControllerState) Terminal() bool {
	switch s {
	case ControllerStateCancel, ControllerStateError, ControllerStateCompleted,
		ControllerStateFailed, ControllerStateNodeOK, ControllerStateNodeFailed:
		return true
	}
	return false
}

// Notification is an immutable event record. It is produced once,
// delivered to every watcher registered at production time, then dropped.
type Notification struct {
	Type    NotificationType `json:"type"`
	HomeID  HomeID           `json:"home_id"`
	NodeID  NodeID           `json:"node_id"`
	ValueID ValueID          `json:"value_id"`
	RawCode uint8            `json:"code"`
	Time    time.Time        `json:"time"`
}

// Code returns the notification code. It is only defined for
// NotificationNotification; controller command notifications carry a
// ControllerState instead.
func (n Notification) Code() (NotificationCode, bool) {
	if n.Type != NotificationNotification {
		return 0, false
	}
	return NotificationCode(n.RawCode), true
}

// ControllerState returns the controller command state carried by a
// NotificationControllerCommand.
func (n Notification) ControllerState() (ControllerState, bool) {
	if n.Type != NotificationControllerCommand {
		return 0, false
	}
	return ControllerState(n.RawCode), true
}

// HasValueID reports whether the notification is value-scoped.
func (n Notification) HasValueID() bool {
	return n.Type.ValueScoped()
}

func (n Notification) String() string {
	s := fmt.Sprintf("%s home=%s node=%d", n.Type, n.HomeID, n.NodeID)
	if n.HasValueID() {
		s += " value=" + n.ValueID.String()
	}
	if c, ok := n.Code(); ok {
		s += " code=" + c.String()
	}
	if st, ok := n.ControllerState(); ok {
		s += " state=" + st.String()
	}
	return s
}
