package serialapi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// --- host requests ---

// GetVersionRequest asks for the controller library version.
func GetVersionRequest() Frame { return Request(FuncGetVersion) }

// MemoryGetIDRequest asks for the HomeID and the controller node id.
func MemoryGetIDRequest() Frame { return Request(FuncMemoryGetID) }

// GetInitDataRequest asks for the list of nodes known to the controller.
func GetInitDataRequest() Frame { return Request(FuncGetInitData) }

// NodeProtocolInfoRequest asks for the protocol information of a node.
func NodeProtocolInfoRequest(node zwave.NodeID) Frame {
	return Request(FuncGetNodeProtocolInfo, byte(node))
}

// RequestNodeInfoRequest asks a node for its node information frame.
func RequestNodeInfoRequest(node zwave.NodeID) Frame {
	return Request(FuncRequestNodeInfo, byte(node))
}

// IsFailedNodeRequest asks whether the controller lists node as failed.
func IsFailedNodeRequest(node zwave.NodeID) Frame {
	return Request(FuncIsFailedNodeID, byte(node))
}

// SendDataRequest transmits a command class payload to a node.
func SendDataRequest(node zwave.NodeID, command []byte, callbackID uint8) Frame {
	p := make([]byte, 0, len(command)+4)
	p = append(p, byte(node), byte(len(command)))
	p = append(p, command...)
	p = append(p, DefaultTransmitOptions, callbackID)
	return Request(FuncSendData, p...)
}

// AddNodeRequest starts or stops inclusion.
func AddNodeRequest(mode, callbackID uint8) Frame {
	return Request(FuncAddNodeToNetwork, mode, callbackID)
}

// RemoveNodeRequest starts or stops exclusion.
func RemoveNodeRequest(mode, callbackID uint8) Frame {
	return Request(FuncRemoveNodeFromNetwork, mode, callbackID)
}

// --- parsed payloads ---

// VersionInfo is the GET_VERSION response.
type VersionInfo struct {
	Library     string
	LibraryType uint8
}

// ParseVersion decodes a GET_VERSION response.
func ParseVersion(p []byte) (VersionInfo, error) {
	if len(p) < 13 {
		return VersionInfo{}, fmt.Errorf("version response: %w", ErrFrameTooShort)
	}
	lib := string(bytes.TrimRight(p[:12], "\x00"))
	return VersionInfo{Library: lib, LibraryType: p[12]}, nil
}

// EncodeVersion builds a GET_VERSION response payload.
func EncodeVersion(v VersionInfo) []byte {
	p := make([]byte, 12, 13)
	copy(p, v.Library)
	return append(p, v.LibraryType)
}

// ParseMemoryGetID decodes a MEMORY_GET_ID response: home id (big endian)
// followed by the controller node id.
func ParseMemoryGetID(p []byte) (zwave.HomeID, zwave.NodeID, error) {
	if len(p) < 5 {
		return 0, 0, fmt.Errorf("memory id response: %w", ErrFrameTooShort)
	}
	return zwave.HomeID(binary.BigEndian.Uint32(p[:4])), zwave.NodeID(p[4]), nil
}

// EncodeMemoryGetID builds a MEMORY_GET_ID response payload.
func EncodeMemoryGetID(home zwave.HomeID, node zwave.NodeID) []byte {
	return append(binary.BigEndian.AppendUint32(nil, uint32(home)), byte(node))
}

// InitData is the GET_INIT_DATA response.
type InitData struct {
	Version      uint8
	Capabilities uint8
	Nodes        []zwave.NodeID
}

// ParseInitData decodes a GET_INIT_DATA response.
func ParseInitData(p []byte) (InitData, error) {
	if len(p) < 3 {
		return InitData{}, fmt.Errorf("init data: %w", ErrFrameTooShort)
	}
	n := int(p[2])
	if len(p) < 3+n {
		return InitData{}, fmt.Errorf("init data bitmap: %w", ErrFrameTooShort)
	}
	return InitData{Version: p[0], Capabilities: p[1], Nodes: DecodeNodeBitmap(p[3 : 3+n])}, nil
}

// EncodeInitData builds a GET_INIT_DATA response payload.
func EncodeInitData(d InitData) []byte {
	p := []byte{d.Version, d.Capabilities, NodeBitmapLen}
	p = append(p, EncodeNodeBitmap(d.Nodes)...)
	return append(p, 0x07, 0x00) // chip type, chip version
}

// DecodeNodeBitmap lists the node ids whose bits are set. Bit 0 of byte 0
// is node 1.
func DecodeNodeBitmap(bitmap []byte) []zwave.NodeID {
	var nodes []zwave.NodeID
	for i, b := range bitmap {
		for bit := range 8 {
			if b&(1<<bit) != 0 {
				id := i*8 + bit + 1
				if id <= int(zwave.MaxNodeID) {
					nodes = append(nodes, zwave.NodeID(id))
				}
			}
		}
	}
	return nodes
}

// EncodeNodeBitmap is the inverse of DecodeNodeBitmap.
func EncodeNodeBitmap(nodes []zwave.NodeID) []byte {
	bitmap := make([]byte, NodeBitmapLen)
	for _, n := range nodes {
		if !n.Valid() {
			continue
		}
		i := int(n) - 1
		bitmap[i/8] |= 1 << (i % 8)
	}
	return bitmap
}

// ProtocolInfo is the GET_NODE_PROTOCOL_INFO response.
type ProtocolInfo struct {
	Listening bool
	Routing   bool
	Basic     uint8
	Generic   uint8
	Specific  uint8
}

// ParseProtocolInfo decodes a GET_NODE_PROTOCOL_INFO response. A zero
// generic class means the controller does not know the node.
func ParseProtocolInfo(p []byte) (ProtocolInfo, error) {
	if len(p) < 6 {
		return ProtocolInfo{}, fmt.Errorf("protocol info: %w", ErrFrameTooShort)
	}
	return ProtocolInfo{
		Listening: p[0]&0x80 != 0,
		Routing:   p[0]&0x40 != 0,
		Basic:     p[3],
		Generic:   p[4],
		Specific:  p[5],
	}, nil
}

// Encode builds a GET_NODE_PROTOCOL_INFO response payload.
func (pi ProtocolInfo) Encode() []byte {
	var capability byte = 0x53 // 100k, protocol version 3
	if pi.Listening {
		capability |= 0x80
	}
	if pi.Routing {
		capability |= 0x40
	}
	return []byte{capability, 0x1C, 0x00, pi.Basic, pi.Generic, pi.Specific}
}

// NodeUpdate is an APPLICATION_UPDATE request or an add/remove node
// callback carrying a node information frame.
type NodeUpdate struct {
	CallbackID     uint8
	Status         uint8
	Node           zwave.NodeID
	Basic          uint8
	Generic        uint8
	Specific       uint8
	CommandClasses []uint8
}

// ParseApplicationUpdate decodes APPLICATION_UPDATE:
// status, node, len, basic, generic, specific, command classes.
func ParseApplicationUpdate(p []byte) (NodeUpdate, error) {
	if len(p) < 2 {
		return NodeUpdate{}, fmt.Errorf("application update: %w", ErrFrameTooShort)
	}
	u := NodeUpdate{Status: p[0], Node: zwave.NodeID(p[1])}
	if len(p) > 2 {
		if err := u.parseNIF(p[2:]); err != nil {
			return NodeUpdate{}, err
		}
	}
	return u, nil
}

// ParseNodeStatusCallback decodes an ADD/REMOVE_NODE callback:
// callback id, status, node, len, basic, generic, specific, command classes.
func ParseNodeStatusCallback(p []byte) (NodeUpdate, error) {
	if len(p) < 2 {
		return NodeUpdate{}, fmt.Errorf("node status callback: %w", ErrFrameTooShort)
	}
	u := NodeUpdate{CallbackID: p[0], Status: p[1]}
	if len(p) > 2 {
		u.Node = zwave.NodeID(p[2])
	}
	if len(p) > 3 {
		if err := u.parseNIF(p[3:]); err != nil {
			return NodeUpdate{}, err
		}
	}
	return u, nil
}

func (u *NodeUpdate) parseNIF(p []byte) error {
	n := int(p[0])
	if n == 0 {
		return nil
	}
	if n < 3 || len(p) < 1+n {
		return fmt.Errorf("node information frame: %w", ErrFrameTooShort)
	}
	u.Basic, u.Generic, u.Specific = p[1], p[2], p[3]
	u.CommandClasses = append([]uint8(nil), p[4:1+n]...)
	return nil
}

// EncodeNIF builds the len-prefixed node information frame.
func EncodeNIF(basic, generic, specific uint8, ccs []uint8) []byte {
	p := []byte{byte(3 + len(ccs)), basic, generic, specific}
	return append(p, ccs...)
}

// ApplicationCommand is an inbound command class frame from a node.
type ApplicationCommand struct {
	Status  uint8
	Source  zwave.NodeID
	Command []byte
}

// Broadcast reports whether the frame was received as a broadcast.
func (a ApplicationCommand) Broadcast() bool {
	return a.Status&ReceiveStatusBroadcast != 0
}

// ParseApplicationCommand decodes APPLICATION_COMMAND_HANDLER:
// rx status, source node, len, command.
func ParseApplicationCommand(p []byte) (ApplicationCommand, error) {
	if len(p) < 3 {
		return ApplicationCommand{}, fmt.Errorf("application command: %w", ErrFrameTooShort)
	}
	n := int(p[2])
	if n < 1 || len(p) < 3+n {
		return ApplicationCommand{}, fmt.Errorf("application command body: %w", ErrFrameTooShort)
	}
	return ApplicationCommand{
		Status:  p[0],
		Source:  zwave.NodeID(p[1]),
		Command: append([]byte(nil), p[3:3+n]...),
	}, nil
}

// EncodeApplicationCommand builds an APPLICATION_COMMAND_HANDLER payload.
func EncodeApplicationCommand(a ApplicationCommand) []byte {
	p := []byte{a.Status, byte(a.Source), byte(len(a.Command))}
	return append(p, a.Command...)
}

// SendDataCallback is the asynchronous completion of SEND_DATA.
type SendDataCallback struct {
	CallbackID uint8
	Status     uint8
}

// ParseSendDataCallback decodes a SEND_DATA callback request.
func ParseSendDataCallback(p []byte) (SendDataCallback, error) {
	if len(p) < 2 {
		return SendDataCallback{}, fmt.Errorf("send data callback: %w", ErrFrameTooShort)
	}
	return SendDataCallback{CallbackID: p[0], Status: p[1]}, nil
}

// ParseSendData decodes a host SEND_DATA request: node, len, command,
// tx options, callback id.
func ParseSendData(p []byte) (zwave.NodeID, []byte, uint8, error) {
	if len(p) < 2 {
		return 0, nil, 0, fmt.Errorf("send data: %w", ErrFrameTooShort)
	}
	n := int(p[1])
	if len(p) < 2+n+2 {
		return 0, nil, 0, fmt.Errorf("send data body: %w", ErrFrameTooShort)
	}
	return zwave.NodeID(p[0]), p[2 : 2+n], p[2+n+1], nil
}

// --- decimal encoding used by sensor and meter reports ---

// EncodeDecimal encodes a decimal literal as the precision/scale/size
// byte followed by a big endian two's complement integer.
func EncodeDecimal(s string, scale uint8) ([]byte, error) {
	s = strings.TrimSpace(s)
	precision := 0
	digits := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		precision = len(s) - i - 1
		digits = s[:i] + s[i+1:]
	}
	if precision > 7 {
		return nil, fmt.Errorf("decimal %q has more than 7 fractional digits", s)
	}
	v, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("decimal %q: %w", s, err)
	}

	size := 4
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		size = 1
	case v >= math.MinInt16 && v <= math.MaxInt16:
		size = 2
	}

	out := []byte{byte(precision<<5) | (scale&0x03)<<3 | byte(size)}
	switch size {
	case 1:
		out = append(out, byte(int8(v)))
	case 2:
		out = binary.BigEndian.AppendUint16(out, uint16(int16(v)))
	default:
		out = binary.BigEndian.AppendUint32(out, uint32(int32(v)))
	}
	return out, nil
}

// DecodeDecimal is the inverse of EncodeDecimal. It returns the literal,
// the scale and the number of bytes consumed.
func DecodeDecimal(p []byte) (string, uint8, int, error) {
	if len(p) < 1 {
		return "", 0, 0, ErrFrameTooShort
	}
	precision := int(p[0] >> 5)
	scale := (p[0] >> 3) & 0x03
	size := int(p[0] & 0x07)
	if len(p) < 1+size {
		return "", 0, 0, ErrFrameTooShort
	}

	var v int64
	switch size {
	case 1:
		v = int64(int8(p[1]))
	case 2:
		v = int64(int16(binary.BigEndian.Uint16(p[1:3])))
	case 4:
		v = int64(int32(binary.BigEndian.Uint32(p[1:5])))
	default:
		return "", 0, 0, fmt.Errorf("unsupported decimal size %d", size)
	}
	return formatDecimal(v, precision), scale, 1 + size, nil
}

func formatDecimal(v int64, precision int) string {
	if precision == 0 {
		return strconv.FormatInt(v, 10)
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	for len(digits) <= precision {
		digits = "0" + digits
	}
	cut := len(digits) - precision
	return sign + digits[:cut] + "." + digits[cut:]
}
