package simulator

import (
	"encoding/binary"
	"slices"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

// Device is a simulated Z-Wave node.
type Device struct {
	ID             zwave.NodeID
	Basic          uint8
	Generic        uint8
	Specific       uint8
	Listening      bool
	CommandClasses []uint8
	ManufacturerID uint16
	ProductType    uint16
	ProductID      uint16
	Name           string
	Location       string

	// Dead devices never answer node information requests or commands.
	Dead bool

	On          bool
	Level       uint8
	SwitchAll   uint8
	Temperature string
	Power       string
	Energy      string
	Config      map[uint8]int32
}

// SmartSwitch returns a binary switch with a power meter.
func SmartSwitch(id zwave.NodeID) Device {
	return Device{
		ID:        id,
		Basic:     zwave.BasicTypeRoutingSlave,
		Generic:   zwave.GenericTypeSwitchBinary,
		Specific:  0x01,
		Listening: true,
		CommandClasses: []uint8{
			zwave.CCSwitchBinary, zwave.CCSwitchAll, zwave.CCMeter, zwave.CCConfiguration,
			zwave.CCManufacturerSpecific, zwave.CCNodeNaming,
		},
		ManufacturerID: 0x0086, ProductType: 0x0003, ProductID: 0x0060,
		SwitchAll: 0xFF,
		Power:     "0",
		Energy:    "1.25",
		Config:    defaults(0x0086, 0x0003, 0x0060),
	}
}

// Dimmer returns a multilevel switch with a power meter.
func Dimmer(id zwave.NodeID) Device {
	return Device{
		ID:        id,
		Basic:     zwave.BasicTypeRoutingSlave,
		Generic:   zwave.GenericTypeSwitchMultilevel,
		Specific:  0x01,
		Listening: true,
		CommandClasses: []uint8{
			zwave.CCSwitchMultilevel, zwave.CCSwitchAll, zwave.CCMeter, zwave.CCConfiguration,
			zwave.CCManufacturerSpecific, zwave.CCNodeNaming,
		},
		ManufacturerID: 0x010F, ProductType: 0x0102, ProductID: 0x1000,
		SwitchAll: 0xFF,
		Power:     "0",
		Energy:    "0.5",
		Config:    defaults(0x010F, 0x0102, 0x1000),
	}
}

// MultiSensor returns a mains powered temperature sensor.
func MultiSensor(id zwave.NodeID) Device {
	return Device{
		ID:        id,
		Basic:     zwave.BasicTypeRoutingSlave,
		Generic:   zwave.GenericTypeSensorMultilevel,
		Specific:  0x01,
		Listening: true,
		CommandClasses: []uint8{
			zwave.CCSensorMultilevel, zwave.CCConfiguration,
			zwave.CCManufacturerSpecific, zwave.CCNodeNaming,
		},
		ManufacturerID: 0x0086, ProductType: 0x0002, ProductID: 0x0064,
		Temperature: "21.5",
		Config:      defaults(0x0086, 0x0002, 0x0064),
	}
}

func defaults(m, t, p uint16) map[uint8]int32 {
	cfg := make(map[uint8]int32)
	if prod, ok := zwave.LookupProduct(m, t, p); ok {
		for _, param := range prod.Params {
			cfg[param.Index] = param.Default
		}
	}
	return cfg
}

func (d *Device) supports(cc uint8) bool {
	return slices.Contains(d.CommandClasses, cc)
}

func (d *Device) protocolInfo() serialapi.ProtocolInfo {
	return serialapi.ProtocolInfo{
		Listening: d.Listening,
		Routing:   true,
		Basic:     d.Basic,
		Generic:   d.Generic,
		Specific:  d.Specific,
	}
}

func (d *Device) nif() []byte {
	return serialapi.EncodeNIF(d.Basic, d.Generic, d.Specific, d.CommandClasses)
}

func (d *Device) setOn(on bool) {
	d.On = on
	if d.supports(zwave.CCSwitchMultilevel) {
		if on && d.Level == 0 {
			d.Level = 99
		} else if !on {
			d.Level = 0
		}
	}
	if on {
		d.Power = "42.5"
	} else {
		d.Power = "0"
	}
}

func (d *Device) setLevel(level uint8) {
	if level == 0xFF {
		level = 99
	}
	if level > 99 {
		level = 99
	}
	d.Level = level
	d.setOn(level > 0)
}

func onByte(on bool) byte {
	if on {
		return 0xFF
	}
	return 0x00
}

// handle applies a command class payload and returns the report to send
// back, if any.
func (d *Device) handle(cmd []byte) []byte {
	if len(cmd) < 1 {
		return nil
	}
	cc := cmd[0]
	var op uint8
	if len(cmd) > 1 {
		op = cmd[1]
	}
	args := cmd[min(len(cmd), 2):]

	switch cc {
	case zwave.CCBasic:
		switch op {
		case serialapi.CmdSet:
			if len(args) < 1 {
				return nil
			}
			if d.supports(zwave.CCSwitchMultilevel) {
				d.setLevel(args[0])
			} else {
				d.setOn(args[0] != 0)
			}
		case serialapi.CmdGet:
			if d.supports(zwave.CCSwitchMultilevel) {
				return []byte{zwave.CCBasic, serialapi.CmdReport, d.Level}
			}
			return []byte{zwave.CCBasic, serialapi.CmdReport, onByte(d.On)}
		}

	case zwave.CCSwitchBinary:
		switch op {
		case serialapi.CmdSet:
			if len(args) > 0 {
				d.setOn(args[0] != 0)
			}
		case serialapi.CmdGet:
			return []byte{zwave.CCSwitchBinary, serialapi.CmdReport, onByte(d.On)}
		}

	case zwave.CCSwitchMultilevel:
		switch op {
		case serialapi.CmdSet:
			if len(args) > 0 {
				d.setLevel(args[0])
			}
		case serialapi.CmdGet:
			return []byte{zwave.CCSwitchMultilevel, serialapi.CmdReport, d.Level}
		}

	case zwave.CCSwitchAll:
		switch op {
		case serialapi.CmdSwitchAllSet:
			if len(args) > 0 {
				d.SwitchAll = args[0]
			}
		case serialapi.CmdSwitchAllGet:
			return []byte{zwave.CCSwitchAll, serialapi.CmdSwitchAllReport, d.SwitchAll}
		case serialapi.CmdSwitchAllOn:
			if d.SwitchAll == 0x02 || d.SwitchAll == 0xFF {
				d.setOn(true)
			}
		case serialapi.CmdSwitchAllOff:
			if d.SwitchAll == 0x01 || d.SwitchAll == 0xFF {
				d.setOn(false)
			}
		}

	case zwave.CCSensorMultilevel:
		if op == serialapi.CmdSensorMultilevelGet {
			enc, err := serialapi.EncodeDecimal(d.Temperature, 0)
			if err != nil {
				return nil
			}
			return append([]byte{zwave.CCSensorMultilevel, serialapi.CmdSensorMultilevelReport, serialapi.SensorTypeTemperature}, enc...)
		}

	case zwave.CCMeter:
		if op == serialapi.CmdMeterGet {
			scale := serialapi.MeterScaleW
			if len(args) > 0 {
				scale = (args[0] >> 3) & 0x03
			}
			reading := d.Power
			if scale == serialapi.MeterScaleKWh {
				reading = d.Energy
			}
			enc, err := serialapi.EncodeDecimal(reading, scale)
			if err != nil {
				return nil
			}
			return append([]byte{zwave.CCMeter, serialapi.CmdMeterReport, serialapi.MeterTypeElectric}, enc...)
		}

	case zwave.CCConfiguration:
		switch op {
		case serialapi.CmdConfigurationSet:
			if len(args) < 3 {
				return nil
			}
			param, size := args[0], int(args[1]&0x07)
			if len(args) < 2+size {
				return nil
			}
			d.Config[param] = decodeSigned(args[2 : 2+size])
		case serialapi.CmdConfigurationGet:
			if len(args) < 1 {
				return nil
			}
			param := args[0]
			v, ok := d.Config[param]
			if !ok {
				return nil
			}
			size := paramSize(d, param)
			out := []byte{zwave.CCConfiguration, serialapi.CmdConfigurationReport, param, byte(size)}
			return append(out, encodeSigned(v, size)...)
		}

	case zwave.CCManufacturerSpecific:
		if op == serialapi.CmdManufacturerSpecificGet {
			out := []byte{zwave.CCManufacturerSpecific, serialapi.CmdManufacturerSpecificReport}
			out = binary.BigEndian.AppendUint16(out, d.ManufacturerID)
			out = binary.BigEndian.AppendUint16(out, d.ProductType)
			return binary.BigEndian.AppendUint16(out, d.ProductID)
		}

	case zwave.CCNodeNaming:
		switch op {
		case serialapi.CmdNodeNamingSet:
			if len(args) > 0 {
				d.Name = string(args[1:])
			}
		case serialapi.CmdNodeNamingGet:
			return append([]byte{zwave.CCNodeNaming, serialapi.CmdNodeNamingReport, 0x00}, d.Name...)
		case serialapi.CmdNodeNamingLocationSet:
			if len(args) > 0 {
				d.Location = string(args[1:])
			}
		case serialapi.CmdNodeNamingLocationGet:
			return append([]byte{zwave.CCNodeNaming, serialapi.CmdNodeNamingLocationReport, 0x00}, d.Location...)
		}
	}
	return nil
}

func paramSize(d *Device, index uint8) int {
	if prod, ok := zwave.LookupProduct(d.ManufacturerID, d.ProductType, d.ProductID); ok {
		for _, p := range prod.Params {
			if p.Index == index {
				return p.Size()
			}
		}
	}
	return 1
}

func encodeSigned(v int32, size int) []byte {
	switch size {
	case 1:
		return []byte{byte(int8(v))}
	case 2:
		return binary.BigEndian.AppendUint16(nil, uint16(int16(v)))
	}
	return binary.BigEndian.AppendUint32(nil, uint32(v))
}

func decodeSigned(b []byte) int32 {
	switch len(b) {
	case 1:
		return int32(int8(b[0]))
	case 2:
		return int32(int16(binary.BigEndian.Uint16(b)))
	case 4:
		return int32(binary.BigEndian.Uint32(b))
	}
	return 0
}
