// Package zwave holds the protocol-level data model shared by the driver,
// the manager and the outer surfaces: identifiers, values, nodes,
// notifications and driver statistics.
package zwave

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// HomeID identifies one controller network.
type HomeID uint32

// String formats a HomeID the way controllers print it (0xXXXXXXXX).
func (h HomeID) String() string {
	return fmt.Sprintf("0x%08x", uint32(h))
}

// NodeID identifies a device within a HomeID.
type NodeID uint8

const (
	// MaxNodeID is the highest addressable node on a Z-Wave network.
	MaxNodeID NodeID = 232

	// BroadcastNodeID addresses every node.
	BroadcastNodeID NodeID = 0xFF
)

// Valid reports whether n can address a single node.
func (n NodeID) Valid() bool {
	return n >= 1 && n <= MaxNodeID
}

// Genre classifies a value so applications can filter low level
// system or configuration parameters.
type Genre uint8

const (
	GenreBasic  Genre = iota // level controlled by basic commands
	GenreUser                // values an ordinary user is interested in
	GenreConfig              // device-specific configuration parameters
	GenreSystem              // values of significance only to protocol experts
	genreCount
)

var genreNames = [...]string{"basic", "user", "config", "system"}

func (g Genre) String() string {
	if g < genreCount {
		return genreNames[g]
	}
	return fmt.Sprintf("genre(%d)", uint8(g))
}

// ValueType is the type of data a value holds.
type ValueType uint8

const (
	ValueTypeBool     ValueType = iota // boolean
	ValueTypeByte                      // 8-bit unsigned
	ValueTypeDecimal                   // non-integer carried as a decimal string
	ValueTypeInt                       // 32-bit signed
	ValueTypeList                      // one item selected from a list
	ValueTypeSchedule                  // climate control schedule
	ValueTypeShort                     // 16-bit signed
	ValueTypeString                    // text
	ValueTypeButton                    // write-only trigger
	ValueTypeRaw                       // byte collection
	valueTypeCount
)

var valueTypeNames = [...]string{
	"bool", "byte", "decimal", "int", "list", "schedule", "short", "string", "button", "raw",
}

func (t ValueType) String() string {
	if t < valueTypeCount {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Numeric reports whether values of type t carry min/max bounds.
func (t ValueType) Numeric() bool {
	switch t {
	case ValueTypeByte, ValueTypeShort, ValueTypeInt, ValueTypeDecimal:
		return true
	}
	return false
}

// ValueID is the composite identity of one device attribute. It is
// comparable and used directly as a map key.
type ValueID struct {
	HomeID         HomeID
	NodeID         NodeID
	Genre          Genre
	CommandClassID uint8
	Instance       uint8
	Index          uint8
	Type           ValueType
}

// ValueIDRecordSize is the length of the fixed-layout ValueID record.
const ValueIDRecordSize = 10

// MarshalBinary encodes the ValueID as the fixed-layout record used
// wherever a value address crosses a process boundary:
//
//	home_id u32 (little endian) | node_id | genre | command_class_id | instance | index | value_type
func (v ValueID) MarshalBinary() ([]byte, error) {
	return v.AppendBinary(make([]byte, 0, ValueIDRecordSize))
}

// AppendBinary appends the fixed-layout record to b.
func (v ValueID) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint32(b, uint32(v.HomeID))
	return append(b, byte(v.NodeID), byte(v.Genre), v.CommandClassID, v.Instance, v.Index, byte(v.Type)), nil
}

// UnmarshalBinary decodes a fixed-layout record.
func (v *ValueID) UnmarshalBinary(data []byte) error {
	if len(data) != ValueIDRecordSize {
		return fmt.Errorf("%w: value id record must be %d bytes, got %d", ErrInvalidValueID, ValueIDRecordSize, len(data))
	}
	id := ValueID{
		HomeID:         HomeID(binary.LittleEndian.Uint32(data[0:4])),
		NodeID:         NodeID(data[4]),
		Genre:          Genre(data[5]),
		CommandClassID: data[6],
		Instance:       data[7],
		Index:          data[8],
		Type:           ValueType(data[9]),
	}
	if id.Genre >= genreCount {
		return fmt.Errorf("%w: genre %d", ErrInvalidValueID, data[5])
	}
	if id.Type >= valueTypeCount {
		return fmt.Errorf("%w: value type %d", ErrInvalidValueID, data[9])
	}
	*v = id
	return nil
}

// String returns the hex form of the record. It is stable and safe to use
// in URLs and MQTT topics.
func (v ValueID) String() string {
	b, _ := v.MarshalBinary()
	return hex.EncodeToString(b)
}

// ParseValueID decodes the hex form produced by ValueID.String.
func ParseValueID(s string) (ValueID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ValueID{}, fmt.Errorf("%w: %v", ErrInvalidValueID, err)
	}
	var id ValueID
	if err := id.UnmarshalBinary(raw); err != nil {
		return ValueID{}, err
	}
	return id, nil
}

// MarshalText implements encoding.TextMarshaler so ValueIDs encode as
// their hex record in JSON.
func (v ValueID) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *ValueID) UnmarshalText(text []byte) error {
	id, err := ParseValueID(string(text))
	if err != nil {
		return err
	}
	*v = id
	return nil
}
