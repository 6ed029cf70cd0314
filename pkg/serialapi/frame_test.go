package serialapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/zwcore/pkg/zwave"
)

func TestEncodeKnownFrame(t *testing.T) {
	// GET_VERSION request as sent by every Z-Wave host.
	raw, err := GetVersionRequest().Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x03, 0x00, 0x15, 0xE9}, raw)

	f, err := Decode(raw[1:])
	require.NoError(t, err)
	assert.Equal(t, FuncGetVersion, f.Func)
	assert.False(t, f.IsResponse())
	assert.Empty(t, f.Payload)
}

func TestDecodeRejectsCorruption(t *testing.T) {
	raw, err := SendDataRequest(5, []byte{0x25, 0x02}, 7).Encode()
	require.NoError(t, err)

	bad := append([]byte(nil), raw[1:]...)
	bad[len(bad)-1] ^= 0xFF
	_, err = Decode(bad)
	assert.ErrorIs(t, err, ErrBadChecksum)

	_, err = Decode([]byte{0x03, 0x00})
	assert.ErrorIs(t, err, ErrFrameTooShort)
}

func TestSendDataRoundTrip(t *testing.T) {
	f := SendDataRequest(5, []byte{0x25, 0x02}, 7)
	node, cmd, cb, err := ParseSendData(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, zwave.NodeID(5), node)
	assert.Equal(t, []byte{0x25, 0x02}, cmd)
	assert.Equal(t, uint8(7), cb)
}

func TestNodeBitmap(t *testing.T) {
	nodes := []zwave.NodeID{1, 3, 5, 9, 232}
	bitmap := EncodeNodeBitmap(nodes)
	assert.Len(t, bitmap, NodeBitmapLen)
	assert.Equal(t, byte(0x15), bitmap[0])
	assert.Equal(t, nodes, DecodeNodeBitmap(bitmap))

	data, err := ParseInitData(EncodeInitData(InitData{Version: 5, Capabilities: 8, Nodes: nodes}))
	require.NoError(t, err)
	assert.Equal(t, nodes, data.Nodes)
}

func TestMemoryGetIDBigEndian(t *testing.T) {
	p := EncodeMemoryGetID(0xF4C5B8DC, 1)
	assert.Equal(t, []byte{0xF4, 0xC5, 0xB8, 0xDC, 0x01}, p)
	home, node, err := ParseMemoryGetID(p)
	require.NoError(t, err)
	assert.Equal(t, zwave.HomeID(0xF4C5B8DC), home)
	assert.Equal(t, zwave.NodeID(1), node)
}

func TestDecimalCodec(t *testing.T) {
	tests := []struct {
		in    string
		scale uint8
		size  int
	}{
		{"12.5", 0, 1},
		{"21.5", 0, 2},
		{"-3.25", 1, 2},
		{"1200", 2, 2},
		{"0.05", 0, 1},
		{"100000", 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			enc, err := EncodeDecimal(tt.in, tt.scale)
			require.NoError(t, err)
			assert.Equal(t, 1+tt.size, len(enc))

			out, scale, n, err := DecodeDecimal(enc)
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
			assert.Equal(t, tt.scale, scale)
			assert.Equal(t, len(enc), n)
		})
	}
}

func TestNodeInformationFrames(t *testing.T) {
	nif := EncodeNIF(0x04, 0x10, 0x01, []uint8{0x25, 0x27, 0x72})
	u, err := ParseApplicationUpdate(append([]byte{UpdateStateNodeInfoReceived, 5}, nif...))
	require.NoError(t, err)
	assert.Equal(t, zwave.NodeID(5), u.Node)
	assert.Equal(t, uint8(0x10), u.Generic)
	assert.Equal(t, []uint8{0x25, 0x27, 0x72}, u.CommandClasses)

	cb, err := ParseNodeStatusCallback(append([]byte{9, NodeStatusAddingSlave, 7}, nif...))
	require.NoError(t, err)
	assert.Equal(t, uint8(9), cb.CallbackID)
	assert.Equal(t, zwave.NodeID(7), cb.Node)
	assert.Equal(t, uint8(0x04), cb.Basic)

	pi, err := ParseProtocolInfo(ProtocolInfo{Listening: true, Basic: 4, Generic: 0x10, Specific: 1}.Encode())
	require.NoError(t, err)
	assert.True(t, pi.Listening)
	assert.Equal(t, uint8(0x10), pi.Generic)
}

func TestLinksBackToBack(t *testing.T) {
	a, b := net.Pipe()
	host := NewLink(a, WithName("host"))
	ctrl := NewLink(b, WithName("controller"))
	defer host.Close()
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Both sides send at once; neither may deadlock on the unbuffered pipe.
	errc := make(chan error, 1)
	go func() { errc <- ctrl.Send(ctx, Response(FuncGetVersion, EncodeVersion(VersionInfo{Library: "Z-Wave 4.05", LibraryType: 1})...)) }()
	require.NoError(t, host.Send(ctx, GetVersionRequest()))
	require.NoError(t, <-errc)

	got := waitFrame(t, ctrl)
	assert.Equal(t, FuncGetVersion, got.Func)

	resp := waitFrame(t, host)
	require.True(t, resp.IsResponse())
	v, err := ParseVersion(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, "Z-Wave 4.05", v.Library)

	hs := host.Stats()
	assert.Equal(t, uint32(1), hs.WriteCnt)
	assert.Equal(t, uint32(1), hs.ReadCnt)
	assert.Equal(t, uint32(1), hs.ACKCnt)
}

func TestSendGivesUpWithoutACK(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	// Drain the far end without ever acknowledging.
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := b.Read(buf); err != nil {
				return
			}
		}
	}()

	host := NewLink(a, WithACKTimeout(20*time.Millisecond))
	defer host.Close()

	err := host.Send(context.Background(), GetVersionRequest())
	assert.ErrorIs(t, err, ErrNoACK)

	st := host.Stats()
	assert.Equal(t, uint32(DefaultMaxAttempts), st.WriteCnt)
	assert.Equal(t, uint32(DefaultMaxAttempts-1), st.Retries)
	assert.Equal(t, uint32(DefaultMaxAttempts), st.NoACK)
	assert.Equal(t, uint32(1), st.Dropped)
}

func TestLinkReportsPeerClose(t *testing.T) {
	a, b := net.Pipe()
	host := NewLink(a)
	require.NoError(t, b.Close())

	select {
	case <-host.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("link did not stop after the peer closed")
	}
	assert.ErrorIs(t, host.Err(), zwave.ErrTransport)
}

func waitFrame(t *testing.T, l *Link) Frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if f, ok := l.Next(); ok {
			return f
		}
		select {
		case <-l.Ready():
		case <-deadline:
			t.Fatal("no frame received")
		}
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		endpoint string
		want     PortConfig
		wantErr  bool
	}{
		{"/dev/ttyACM0", PortConfig{Path: "/dev/ttyACM0", BaudRate: DefaultBaudRate}, false},
		{"/dev/ttyUSB1?baud=57600", PortConfig{Path: "/dev/ttyUSB1", BaudRate: 57600}, false},
		{"COM3?", PortConfig{Path: "COM3", BaudRate: DefaultBaudRate}, false},
		{"/dev/ttyUSB1?baud=fast", PortConfig{}, true},
		{"/dev/ttyUSB1?baud=-1", PortConfig{}, true},
		{"?baud=9600", PortConfig{}, true},
	}
	for _, tt := range tests {
		got, err := ParsePort(tt.endpoint)
		if tt.wantErr {
			assert.Error(t, err, tt.endpoint)
			continue
		}
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.want, got)
	}
}
