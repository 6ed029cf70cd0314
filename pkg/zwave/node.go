package zwave

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Node is a snapshot of one device on the mesh.
type Node struct {
	ID               NodeID  `json:"id"`
	Name             string  `json:"name"`
	Location         string  `json:"location"`
	ManufacturerName string  `json:"manufacturer_name"`
	ProductName      string  `json:"product_name"`
	ManufacturerID   uint16  `json:"manufacturer_id"`
	ProductType      uint16  `json:"product_type"`
	ProductID        uint16  `json:"product_id"`
	Basic            uint8   `json:"basic"`
	Generic          uint8   `json:"generic"`
	Specific         uint8   `json:"specific"`
	CommandClasses   []uint8 `json:"command_classes"`
	Listening        bool    `json:"listening"`
	Dead             bool    `json:"dead"`
	QueriesComplete  bool    `json:"queries_complete"`
}

// Supports reports whether the node advertised command class cc.
func (n *Node) Supports(cc uint8) bool {
	return slices.Contains(n.CommandClasses, cc)
}

type nodeEntry struct {
	info   Node
	values map[ValueID]*Value
}

// NodeRegistry owns the nodes of one HomeID and their values.
//
// Mutations are made by the owning driver session. Each mutation emits
// its notification while the write lock is held, so a watcher never
// observes a structural change without its notice. Read methods are safe
// from any goroutine.
type NodeRegistry struct {
	home  HomeID
	emit  func(Notification)
	mu    sync.RWMutex
	nodes map[NodeID]*nodeEntry
}

// NewNodeRegistry creates an empty registry for home. emit must not block.
func NewNodeRegistry(home HomeID, emit func(Notification)) *NodeRegistry {
	if emit == nil {
		emit = func(Notification) {}
	}
	return &NodeRegistry{
		home:  home,
		emit:  emit,
		nodes: make(map[NodeID]*nodeEntry),
	}
}

// HomeID returns the network the registry belongs to.
func (r *NodeRegistry) HomeID() HomeID {
	return r.home
}

func (r *NodeRegistry) notify(t NotificationType, node NodeID, vid ValueID, code uint8) {
	r.emit(Notification{
		Type:    t,
		HomeID:  r.home,
		NodeID:  node,
		ValueID: vid,
		RawCode: code,
		Time:    time.Now(),
	})
}

// --- reads ---

// Len returns the number of nodes.
func (r *NodeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Node returns a snapshot of one node.
func (r *NodeRegistry) Node(id NodeID) (Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	n := e.info
	n.CommandClasses = slices.Clone(e.info.CommandClasses)
	return n, nil
}

// Nodes returns snapshots of all nodes ordered by id.
func (r *NodeRegistry) Nodes() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Node, 0, len(r.nodes))
	for _, e := range r.nodes {
		n := e.info
		n.CommandClasses = slices.Clone(e.info.CommandClasses)
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b Node) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// NodeName returns the node name, empty until the device reports one.
func (r *NodeRegistry) NodeName(id NodeID) (string, error) {
	n, err := r.Node(id)
	return n.Name, err
}

// ManufacturerName returns the manufacturer name, empty until known.
func (r *NodeRegistry) ManufacturerName(id NodeID) (string, error) {
	n, err := r.Node(id)
	return n.ManufacturerName, err
}

// ProductName returns the product name, empty until known.
func (r *NodeRegistry) ProductName(id NodeID) (string, error) {
	n, err := r.Node(id)
	return n.ProductName, err
}

// Value returns a copy of the value addressed by vid.
func (r *NodeRegistry) Value(vid ValueID) (Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, err := r.lookup(vid)
	if err != nil {
		return Value{}, err
	}
	return v.Clone(), nil
}

// Values returns copies of a node's values ordered by command class,
// instance and index.
func (r *NodeRegistry) Values(id NodeID) ([]Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	out := make([]Value, 0, len(e.values))
	for _, v := range e.values {
		out = append(out, v.Clone())
	}
	slices.SortFunc(out, func(a, b Value) int {
		return cmp.Or(
			cmp.Compare(a.ID.CommandClassID, b.ID.CommandClassID),
			cmp.Compare(a.ID.Instance, b.ID.Instance),
			cmp.Compare(a.ID.Index, b.ID.Index),
		)
	})
	return out, nil
}

// Describe returns label, help, units and bounds of a value.
func (r *NodeRegistry) Describe(vid ValueID) (ValueInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, err := r.lookup(vid)
	if err != nil {
		return ValueInfo{}, err
	}
	return v.Info(), nil
}

// Validate checks data against the value and returns the value snapshot
// and the canonical data. Nothing is modified.
func (r *NodeRegistry) Validate(vid ValueID, data any) (Value, any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, err := r.lookup(vid)
	if err != nil {
		return Value{}, nil, err
	}
	canonical, err := v.Check(data)
	if err != nil {
		return Value{}, nil, err
	}
	return v.Clone(), canonical, nil
}

// Polled returns the ids of values with a non-zero poll intensity.
func (r *NodeRegistry) Polled() []ValueID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ValueID
	for _, e := range r.nodes {
		for id, v := range e.values {
			if v.PollIntensity > 0 {
				out = append(out, id)
			}
		}
	}
	slices.SortFunc(out, func(a, b ValueID) int {
		return cmp.Or(cmp.Compare(a.NodeID, b.NodeID), cmp.Compare(a.CommandClassID, b.CommandClassID), cmp.Compare(a.Index, b.Index))
	})
	return out
}

func (r *NodeRegistry) lookup(vid ValueID) (*Value, error) {
	if vid.HomeID != r.home {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHome, vid.HomeID)
	}
	e, ok := r.nodes[vid.NodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, vid.NodeID)
	}
	v, ok := e.values[vid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownValue, vid)
	}
	return v, nil
}

// --- mutations (owning session only) ---

// AddNode inserts a node and emits NodeNew (for freshly included nodes)
// followed by NodeAdded.
func (r *NodeRegistry) AddNode(n Node, included bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[n.ID]; ok {
		return fmt.Errorf("node %d already present", n.ID)
	}
	n.CommandClasses = slices.Clone(n.CommandClasses)
	r.nodes[n.ID] = &nodeEntry{info: n, values: make(map[ValueID]*Value)}
	if included {
		r.notify(NotificationNodeNew, n.ID, ValueID{}, 0)
	}
	r.notify(NotificationNodeAdded, n.ID, ValueID{}, 0)
	return nil
}

// RemoveNode deletes a node, emitting ValueRemoved for each of its values
// and then NodeRemoved.
func (r *NodeRegistry) RemoveNode(id NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	ids := make([]ValueID, 0, len(e.values))
	for vid := range e.values {
		ids = append(ids, vid)
	}
	slices.SortFunc(ids, func(a, b ValueID) int {
		return cmp.Or(cmp.Compare(a.CommandClassID, b.CommandClassID), cmp.Compare(a.Index, b.Index))
	})
	for _, vid := range ids {
		delete(e.values, vid)
		r.notify(NotificationValueRemoved, id, vid, 0)
	}
	delete(r.nodes, id)
	r.notify(NotificationNodeRemoved, id, ValueID{}, 0)
	return nil
}

// UpdateNode applies fn to a node and emits a notification of type t.
func (r *NodeRegistry) UpdateNode(id NodeID, t NotificationType, fn func(*Node)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	fn(&e.info)
	e.info.ID = id
	r.notify(t, id, ValueID{}, 0)
	return nil
}

// SetNodeDead flips the alive state of a node and emits a
// Notification/Dead or Notification/Alive on change.
func (r *NodeRegistry) SetNodeDead(id NodeID, dead bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.nodes[id]
	if !ok || e.info.Dead == dead {
		return
	}
	e.info.Dead = dead
	code := CodeAlive
	if dead {
		code = CodeDead
	}
	r.notify(NotificationNotification, id, ValueID{}, uint8(code))
}

// AddValue inserts a value into its node and emits ValueAdded. The value's
// HomeID is forced to the registry's.
func (r *NodeRegistry) AddValue(v Value) error {
	v.ID.HomeID = r.home
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.nodes[v.ID.NodeID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, v.ID.NodeID)
	}
	if _, dup := e.values[v.ID]; dup {
		return fmt.Errorf("value %s already present", v.ID)
	}
	nv := v.Clone()
	e.values[v.ID] = &nv
	r.notify(NotificationValueAdded, v.ID.NodeID, v.ID, 0)
	return nil
}

// RemoveValue deletes a value and emits ValueRemoved.
func (r *NodeRegistry) RemoveValue(vid ValueID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.lookup(vid); err != nil {
		return err
	}
	delete(r.nodes[vid.NodeID].values, vid)
	r.notify(NotificationValueRemoved, vid.NodeID, vid, 0)
	return nil
}

// SetValueData stores a confirmed reading. It emits ValueChanged when the
// data differs from the stored reading (or the value was unset) and
// ValueRefreshed otherwise.
func (r *NodeRegistry) SetValueData(vid ValueID, data any) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.lookup(vid)
	if err != nil {
		return false, err
	}
	changed := !v.IsSet || !Equal(v.Data, data)
	v.Data = data
	v.IsSet = true
	if changed {
		r.notify(NotificationValueChanged, vid.NodeID, vid, 0)
	} else {
		r.notify(NotificationValueRefreshed, vid.NodeID, vid, 0)
	}
	return changed, nil
}

// SetPollIntensity changes how often a value is polled and emits
// PollingEnabled or PollingDisabled when polling is switched on or off.
func (r *NodeRegistry) SetPollIntensity(vid ValueID, intensity uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.lookup(vid)
	if err != nil {
		return err
	}
	was := v.PollIntensity > 0
	v.PollIntensity = intensity
	switch {
	case !was && intensity > 0:
		r.notify(NotificationPollingEnabled, vid.NodeID, vid, 0)
	case was && intensity == 0:
		r.notify(NotificationPollingDisabled, vid.NodeID, vid, 0)
	}
	return nil
}

// Clear drops every node without emitting notifications. Used when the
// owning session is released.
func (r *NodeRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = make(map[NodeID]*nodeEntry)
}
