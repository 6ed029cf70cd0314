package driver

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Value indexes within the command classes that expose more than one value.
const (
	indexTemperature = 1
	indexEnergy      = 0 // meter scale 0 (kWh)
	indexPower       = 8 // meter scale 2 (W)
)

// maxNameLen is the longest name or location Node Naming carries.
const maxNameLen = 16

// valuesFor lists the values a command class creates on a node.
func valuesFor(node zwave.NodeID, cc uint8) []zwave.Value {
	id := func(g zwave.Genre, index uint8, t zwave.ValueType) zwave.ValueID {
		return zwave.ValueID{NodeID: node, Genre: g, CommandClassID: cc, Instance: 1, Index: index, Type: t}
	}

	switch cc {
	case zwave.CCSwitchBinary:
		return []zwave.Value{{ID: id(zwave.GenreUser, 0, zwave.ValueTypeBool), Label: "Switch"}}
	case zwave.CCSwitchMultilevel:
		return []zwave.Value{{ID: id(zwave.GenreUser, 0, zwave.ValueTypeByte), Label: "Level", Min: 0, Max: 99}}
	case zwave.CCSwitchAll:
		return []zwave.Value{{
			ID:    id(zwave.GenreSystem, 0, zwave.ValueTypeList),
			Label: "Switch All",
			Help:  "Response to the SWITCH_ALL ON and OFF broadcasts",
			Items: zwave.SwitchAllItems,
		}}
	case zwave.CCSensorMultilevel:
		return []zwave.Value{{
			ID:       id(zwave.GenreUser, indexTemperature, zwave.ValueTypeDecimal),
			Label:    "Temperature",
			Units:    "C",
			ReadOnly: true,
		}}
	case zwave.CCMeter:
		return []zwave.Value{
			{ID: id(zwave.GenreUser, indexEnergy, zwave.ValueTypeDecimal), Label: "Energy", Units: "kWh", ReadOnly: true},
			{ID: id(zwave.GenreUser, indexPower, zwave.ValueTypeDecimal), Label: "Power", Units: "W", ReadOnly: true},
		}
	}
	return nil
}

// configValues lists the configuration parameters of a known product.
func configValues(node zwave.NodeID, product zwave.Product) []zwave.Value {
	values := make([]zwave.Value, 0, len(product.Params))
	for _, p := range product.Params {
		values = append(values, zwave.Value{
			ID: zwave.ValueID{
				NodeID:         node,
				Genre:          zwave.GenreConfig,
				CommandClassID: zwave.CCConfiguration,
				Instance:       1,
				Index:          p.Index,
				Type:           p.Type,
			},
			Label: p.Label,
			Help:  p.Help,
			Units: p.Units,
			Min:   p.Min,
			Max:   p.Max,
		})
	}
	return values
}

// getRequest returns the GET command for a value and the prefix of the
// report that answers it.
func getRequest(vid zwave.ValueID) (get, report []byte, ok bool) {
	switch vid.CommandClassID {
	case zwave.CCSwitchBinary, zwave.CCSwitchMultilevel:
		return []byte{vid.CommandClassID, serialapi.CmdGet}, []byte{vid.CommandClassID, serialapi.CmdReport}, true
	case zwave.CCSwitchAll:
		return []byte{zwave.CCSwitchAll, serialapi.CmdSwitchAllGet}, []byte{zwave.CCSwitchAll, serialapi.CmdSwitchAllReport}, true
	case zwave.CCSensorMultilevel:
		return []byte{zwave.CCSensorMultilevel, serialapi.CmdSensorMultilevelGet},
			[]byte{zwave.CCSensorMultilevel, serialapi.CmdSensorMultilevelReport}, true
	case zwave.CCMeter:
		scale := vid.Index / 4
		return []byte{zwave.CCMeter, serialapi.CmdMeterGet, scale << 3},
			[]byte{zwave.CCMeter, serialapi.CmdMeterReport}, true
	case zwave.CCConfiguration:
		return []byte{zwave.CCConfiguration, serialapi.CmdConfigurationGet, vid.Index},
			[]byte{zwave.CCConfiguration, serialapi.CmdConfigurationReport, vid.Index}, true
	}
	return nil, nil, false
}

// setCommand encodes a validated reading as the SET command of its class.
func setCommand(v zwave.Value, data any) ([]byte, error) {
	vid := v.ID
	switch vid.CommandClassID {
	case zwave.CCSwitchBinary:
		if on, ok := data.(bool); ok {
			return []byte{zwave.CCSwitchBinary, serialapi.CmdSet, onOff(on)}, nil
		}
	case zwave.CCSwitchMultilevel:
		if level, ok := data.(uint8); ok {
			return []byte{zwave.CCSwitchMultilevel, serialapi.CmdSet, level}, nil
		}
	case zwave.CCSwitchAll:
		if mode, ok := data.(int32); ok {
			return []byte{zwave.CCSwitchAll, serialapi.CmdSwitchAllSet, byte(mode)}, nil
		}
	case zwave.CCConfiguration:
		cmd := []byte{zwave.CCConfiguration, serialapi.CmdConfigurationSet, vid.Index}
		switch d := data.(type) {
		case uint8:
			return append(cmd, 1, d), nil
		case int16:
			return binary.BigEndian.AppendUint16(append(cmd, 2), uint16(d)), nil
		case int32:
			return binary.BigEndian.AppendUint32(append(cmd, 4), uint32(d)), nil
		}
	default:
		return nil, fmt.Errorf("%w: setting %s values", zwave.ErrUnsupported, zwave.CommandClassName(vid.CommandClassID))
	}
	return nil, fmt.Errorf("%w: %s cannot encode %T", zwave.ErrTypeMismatch, v.Label, data)
}

func onOff(on bool) byte {
	if on {
		return 0xFF
	}
	return 0x00
}

// reading is one value update decoded from a report.
type reading struct {
	id   zwave.ValueID
	data any
}

// decodeReading turns a value report into a reading. It returns false for
// commands that do not carry a value.
func decodeReading(node *zwave.Node, cmd []byte) (reading, bool) {
	if len(cmd) < 3 {
		return reading{}, false
	}
	id := func(cc uint8, g zwave.Genre, index uint8, t zwave.ValueType) zwave.ValueID {
		return zwave.ValueID{NodeID: node.ID, Genre: g, CommandClassID: cc, Instance: 1, Index: index, Type: t}
	}
	cc, op, args := cmd[0], cmd[1], cmd[2:]

	switch {
	case cc == zwave.CCBasic && op == serialapi.CmdReport:
		// basic maps onto whichever switch the node has
		switch {
		case node.Supports(zwave.CCSwitchBinary):
			return reading{id(zwave.CCSwitchBinary, zwave.GenreUser, 0, zwave.ValueTypeBool), args[0] != 0}, true
		case node.Supports(zwave.CCSwitchMultilevel):
			return reading{id(zwave.CCSwitchMultilevel, zwave.GenreUser, 0, zwave.ValueTypeByte), level(args[0])}, true
		}

	case cc == zwave.CCSwitchBinary && op == serialapi.CmdReport:
		return reading{id(cc, zwave.GenreUser, 0, zwave.ValueTypeBool), args[0] != 0}, true

	case cc == zwave.CCSwitchMultilevel && op == serialapi.CmdReport:
		return reading{id(cc, zwave.GenreUser, 0, zwave.ValueTypeByte), level(args[0])}, true

	case cc == zwave.CCSwitchAll && op == serialapi.CmdSwitchAllReport:
		return reading{id(cc, zwave.GenreSystem, 0, zwave.ValueTypeList), int32(args[0])}, true

	case cc == zwave.CCSensorMultilevel && op == serialapi.CmdSensorMultilevelReport:
		if args[0] != serialapi.SensorTypeTemperature {
			return reading{}, false
		}
		s, _, _, err := serialapi.DecodeDecimal(args[1:])
		if err != nil {
			return reading{}, false
		}
		return reading{id(cc, zwave.GenreUser, indexTemperature, zwave.ValueTypeDecimal), s}, true

	case cc == zwave.CCMeter && op == serialapi.CmdMeterReport:
		if args[0]&0x1F != serialapi.MeterTypeElectric {
			return reading{}, false
		}
		s, scale, _, err := serialapi.DecodeDecimal(args[1:])
		if err != nil || (scale != serialapi.MeterScaleKWh && scale != serialapi.MeterScaleW) {
			return reading{}, false
		}
		return reading{id(cc, zwave.GenreUser, scale*4, zwave.ValueTypeDecimal), s}, true

	case cc == zwave.CCConfiguration && op == serialapi.CmdConfigurationReport:
		if len(args) < 2 {
			return reading{}, false
		}
		param, size := args[0], int(args[1]&0x07)
		if len(args) < 2+size {
			return reading{}, false
		}
		raw := args[2 : 2+size]
		switch size {
		case 1:
			return reading{id(cc, zwave.GenreConfig, param, zwave.ValueTypeByte), raw[0]}, true
		case 2:
			return reading{id(cc, zwave.GenreConfig, param, zwave.ValueTypeShort), int16(binary.BigEndian.Uint16(raw))}, true
		case 4:
			return reading{id(cc, zwave.GenreConfig, param, zwave.ValueTypeInt), int32(binary.BigEndian.Uint32(raw))}, true
		}
	}
	return reading{}, false
}

// level normalizes a multilevel report; 0xFF means "on at the last level".
func level(b byte) uint8 {
	if b > 99 {
		return 99
	}
	return b
}

// switchValue returns the on/off value of a node, preferring the binary
// switch.
func switchValue(n *zwave.Node, home zwave.HomeID) (zwave.ValueID, bool) {
	vid := zwave.ValueID{HomeID: home, NodeID: n.ID, Genre: zwave.GenreUser, Instance: 1}
	switch {
	case n.Supports(zwave.CCSwitchBinary):
		vid.CommandClassID, vid.Type = zwave.CCSwitchBinary, zwave.ValueTypeBool
	case n.Supports(zwave.CCSwitchMultilevel):
		vid.CommandClassID, vid.Type = zwave.CCSwitchMultilevel, zwave.ValueTypeByte
	default:
		return zwave.ValueID{}, false
	}
	return vid, true
}

// nameCommand encodes a Node Naming set with the ASCII charset.
func nameCommand(op uint8, name string) []byte {
	return append([]byte{zwave.CCNodeNaming, op, 0x00}, truncateName(name)...)
}

// truncateName cuts name to maxNameLen bytes without splitting a rune.
func truncateName(name string) string {
	if len(name) <= maxNameLen {
		return name
	}
	n := maxNameLen
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	return name[:n]
}
