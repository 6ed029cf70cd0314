// Package capture records notifications to a CBOR file and reads them
// back for replay and inspection.
package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// Record is one captured notification. Integer keys keep the file small.
type Record struct {
	Session string    `cbor:"1,keyasint"`
	Time    time.Time `cbor:"2,keyasint"`
	Type    uint8     `cbor:"3,keyasint"`
	HomeID  uint32    `cbor:"4,keyasint"`
	NodeID  uint8     `cbor:"5,keyasint"`
	ValueID string    `cbor:"6,keyasint,omitempty"`
	Code    uint8     `cbor:"7,keyasint,omitempty"`
	Reading string    `cbor:"8,keyasint,omitempty"`
}

// NewRecord converts a notification. reading is the value rendered as a
// string at capture time and may be empty.
func NewRecord(session string, n zwave.Notification, reading string) Record {
	r := Record{
		Session: session,
		Time:    n.Time,
		Type:    uint8(n.Type),
		HomeID:  uint32(n.HomeID),
		NodeID:  uint8(n.NodeID),
		Code:    n.RawCode,
		Reading: reading,
	}
	if n.HasValueID() {
		r.ValueID = n.ValueID.String()
	}
	return r
}

// Notification rebuilds the captured notification.
func (r Record) Notification() (zwave.Notification, error) {
	n := zwave.Notification{
		Type:    zwave.NotificationType(r.Type),
		HomeID:  zwave.HomeID(r.HomeID),
		NodeID:  zwave.NodeID(r.NodeID),
		RawCode: r.Code,
		Time:    r.Time,
	}
	if r.ValueID != "" {
		vid, err := zwave.ParseValueID(r.ValueID)
		if err != nil {
			return zwave.Notification{}, fmt.Errorf("record value id: %w", err)
		}
		n.ValueID = vid
	}
	return n, nil
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("capture: CBOR encoder mode: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("capture: CBOR decoder mode: %v", err))
	}
}

// Encode writes r to w.
func Encode(w io.Writer, r Record) error {
	return encMode.NewEncoder(w).Encode(r)
}
