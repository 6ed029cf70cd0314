package zwave

import "fmt"

// Command class identifiers handled by the driver.
const (
	CCNoOperation          uint8 = 0x00
	CCBasic                uint8 = 0x20
	CCSwitchBinary         uint8 = 0x25
	CCSwitchMultilevel     uint8 = 0x26
	CCSwitchAll            uint8 = 0x27
	CCSensorMultilevel     uint8 = 0x31
	CCMeter                uint8 = 0x32
	CCConfiguration        uint8 = 0x70
	CCManufacturerSpecific uint8 = 0x72
	CCNodeNaming           uint8 = 0x77
	CCVersion              uint8 = 0x86
)

var commandClassNames = map[uint8]string{
	CCNoOperation:          "COMMAND_CLASS_NO_OPERATION",
	CCBasic:                "COMMAND_CLASS_BASIC",
	CCSwitchBinary:         "COMMAND_CLASS_SWITCH_BINARY",
	CCSwitchMultilevel:     "COMMAND_CLASS_SWITCH_MULTILEVEL",
	CCSwitchAll:            "COMMAND_CLASS_SWITCH_ALL",
	CCSensorMultilevel:     "COMMAND_CLASS_SENSOR_MULTILEVEL",
	CCMeter:                "COMMAND_CLASS_METER",
	CCConfiguration:        "COMMAND_CLASS_CONFIGURATION",
	CCManufacturerSpecific: "COMMAND_CLASS_MANUFACTURER_SPECIFIC",
	CCNodeNaming:           "COMMAND_CLASS_NODE_NAMING",
	CCVersion:              "COMMAND_CLASS_VERSION",
}

// CommandClassName returns the canonical name of cc.
func CommandClassName(cc uint8) string {
	if name, ok := commandClassNames[cc]; ok {
		return name
	}
	return fmt.Sprintf("COMMAND_CLASS_0x%02X", cc)
}

// SwitchAllItems are the list items of the SWITCH_ALL mode value.
var SwitchAllItems = []ListItem{
	{Label: "Disabled", Value: 0x00},
	{Label: "Off Enabled", Value: 0x01},
	{Label: "On Enabled", Value: 0x02},
	{Label: "On and Off Enabled", Value: 0xFF},
}

// Basic device classes reported by GET_NODE_PROTOCOL_INFO.
const (
	BasicTypeController       uint8 = 0x01
	BasicTypeStaticController uint8 = 0x02
	BasicTypeSlave            uint8 = 0x03
	BasicTypeRoutingSlave     uint8 = 0x04
)

// Generic device classes used by the built-in devices.
const (
	GenericTypeStaticController uint8 = 0x02
	GenericTypeSwitchBinary     uint8 = 0x10
	GenericTypeSwitchMultilevel uint8 = 0x11
	GenericTypeSensorMultilevel uint8 = 0x21
	GenericTypeMeter            uint8 = 0x31
)
