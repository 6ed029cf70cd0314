package serialapi

import "fmt"

// Serial API function IDs
const (
	FuncGetInitData               uint8 = 0x02
	FuncApplicationCommandHandler uint8 = 0x04
	FuncSendData                  uint8 = 0x13
	FuncGetVersion                uint8 = 0x15
	FuncMemoryGetID               uint8 = 0x20
	FuncGetNodeProtocolInfo       uint8 = 0x41
	FuncApplicationUpdate         uint8 = 0x49
	FuncAddNodeToNetwork          uint8 = 0x4A
	FuncRemoveNodeFromNetwork     uint8 = 0x4B
	FuncRequestNodeInfo           uint8 = 0x60
	FuncIsFailedNodeID            uint8 = 0x62
)

var funcNames = map[uint8]string{
	FuncGetInitData:               "SERIAL_API_GET_INIT_DATA",
	FuncApplicationCommandHandler: "APPLICATION_COMMAND_HANDLER",
	FuncSendData:                  "ZW_SEND_DATA",
	FuncGetVersion:                "ZW_GET_VERSION",
	FuncMemoryGetID:               "ZW_MEMORY_GET_ID",
	FuncGetNodeProtocolInfo:       "ZW_GET_NODE_PROTOCOL_INFO",
	FuncApplicationUpdate:         "ZW_APPLICATION_UPDATE",
	FuncAddNodeToNetwork:          "ZW_ADD_NODE_TO_NETWORK",
	FuncRemoveNodeFromNetwork:     "ZW_REMOVE_NODE_FROM_NETWORK",
	FuncRequestNodeInfo:           "ZW_REQUEST_NODE_INFO",
	FuncIsFailedNodeID:            "ZW_IS_FAILED_NODE_ID",
}

// FuncName returns the symbolic name of a function ID.
func FuncName(fn uint8) string {
	if name, ok := funcNames[fn]; ok {
		return name
	}
	return fmt.Sprintf("FUNC_0x%02X", fn)
}

// SEND_DATA transmit options and callback statuses
const (
	TransmitOptionACK       uint8 = 0x01
	TransmitOptionAutoRoute uint8 = 0x04
	TransmitOptionExplore   uint8 = 0x20
	DefaultTransmitOptions        = TransmitOptionACK | TransmitOptionAutoRoute | TransmitOptionExplore

	TransmitCompleteOK      uint8 = 0x00
	TransmitCompleteNoACK   uint8 = 0x01
	TransmitCompleteFail    uint8 = 0x02
	TransmitRoutingNotIdle  uint8 = 0x03
	TransmitCompleteNoRoute uint8 = 0x04
)

// APPLICATION_UPDATE statuses
const (
	UpdateStateNodeInfoReceived  uint8 = 0x84
	UpdateStateNodeInfoReqFailed uint8 = 0x81
	UpdateStateNewIDAssigned     uint8 = 0x40
	UpdateStateDeleteDone        uint8 = 0x20
)

// APPLICATION_COMMAND_HANDLER receive status bits
const (
	ReceiveStatusRoutedBusy uint8 = 0x01
	ReceiveStatusBroadcast  uint8 = 0x04
)

// ADD/REMOVE_NODE modes and callback statuses
const (
	AddNodeAny  uint8 = 0x01
	AddNodeStop uint8 = 0x05

	RemoveNodeAny  uint8 = 0x01
	RemoveNodeStop uint8 = 0x05

	NodeStatusLearnReady       uint8 = 0x01
	NodeStatusNodeFound        uint8 = 0x02
	NodeStatusAddingSlave      uint8 = 0x03 // also "removing slave"
	NodeStatusAddingController uint8 = 0x04
	NodeStatusProtocolDone     uint8 = 0x05
	NodeStatusDone             uint8 = 0x06
	NodeStatusFailed           uint8 = 0x07
)

// NodeBitmapLen is the size of the node list in GET_INIT_DATA.
const NodeBitmapLen = 29

// Command IDs within the command classes the driver speaks.
const (
	CmdSet    uint8 = 0x01
	CmdGet    uint8 = 0x02
	CmdReport uint8 = 0x03

	CmdSwitchAllSet    uint8 = 0x01
	CmdSwitchAllGet    uint8 = 0x02
	CmdSwitchAllReport uint8 = 0x03
	CmdSwitchAllOn     uint8 = 0x04
	CmdSwitchAllOff    uint8 = 0x05

	CmdSensorMultilevelGet    uint8 = 0x04
	CmdSensorMultilevelReport uint8 = 0x05

	CmdMeterGet    uint8 = 0x01
	CmdMeterReport uint8 = 0x02

	CmdConfigurationSet    uint8 = 0x04
	CmdConfigurationGet    uint8 = 0x05
	CmdConfigurationReport uint8 = 0x06

	CmdManufacturerSpecificGet    uint8 = 0x04
	CmdManufacturerSpecificReport uint8 = 0x05

	CmdNodeNamingSet            uint8 = 0x01
	CmdNodeNamingGet            uint8 = 0x02
	CmdNodeNamingReport         uint8 = 0x03
	CmdNodeNamingLocationSet    uint8 = 0x04
	CmdNodeNamingLocationGet    uint8 = 0x05
	CmdNodeNamingLocationReport uint8 = 0x06

	CmdNoOperation uint8 = 0x00
)

// Sensor and meter codes
const (
	SensorTypeTemperature uint8 = 0x01
	MeterTypeElectric     uint8 = 0x01

	MeterScaleKWh uint8 = 0x00
	MeterScaleW   uint8 = 0x02
)
