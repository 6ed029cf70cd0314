package zwave

// DriverData holds the cumulative counters of one driver session. The
// counters only grow while the session is active.
type DriverData struct {
	SOFCnt            uint32 `json:"sof_cnt"`             // SOF bytes received
	ACKWaiting        uint32 `json:"ack_waiting"`         // unsolicited frames while waiting for an ACK
	ReadAborts        uint32 `json:"read_aborts"`         // reads aborted by timeouts
	BadChecksum       uint32 `json:"bad_checksum"`        // frames with a bad checksum
	ReadCnt           uint32 `json:"read_cnt"`            // frames read successfully
	WriteCnt          uint32 `json:"write_cnt"`           // frames written successfully
	CANCnt            uint32 `json:"can_cnt"`             // CAN bytes received
	NAKCnt            uint32 `json:"nak_cnt"`             // NAK bytes received
	ACKCnt            uint32 `json:"ack_cnt"`             // ACK bytes received
	OOFCnt            uint32 `json:"oof_cnt"`             // bytes out of framing
	Dropped           uint32 `json:"dropped"`             // messages dropped and not delivered
	Retries           uint32 `json:"retries"`             // messages retransmitted
	Callbacks         uint32 `json:"callbacks"`           // unexpected callbacks
	BadRoutes         uint32 `json:"badroutes"`           // failed messages due to bad route response
	NoACK             uint32 `json:"noack"`               // no ACK returned errors
	NetBusy           uint32 `json:"netbusy"`             // network busy or failure messages
	NotIdle           uint32 `json:"notidle"`             // commands refused while the controller was not idle
	NonDelivery       uint32 `json:"nondelivery"`         // messages not delivered to the network
	RoutedBusy        uint32 `json:"routedbusy"`          // messages received with routed busy status
	BroadcastReadCnt  uint32 `json:"broadcast_read_cnt"`  // broadcasts read
	BroadcastWriteCnt uint32 `json:"broadcast_write_cnt"` // broadcasts sent
}

// Add returns the field-wise sum of d and o.
func (d DriverData) Add(o DriverData) DriverData {
	return DriverData{
		SOFCnt:            d.SOFCnt + o.SOFCnt,
		ACKWaiting:        d.ACKWaiting + o.ACKWaiting,
		ReadAborts:        d.ReadAborts + o.ReadAborts,
		BadChecksum:       d.BadChecksum + o.BadChecksum,
		ReadCnt:           d.ReadCnt + o.ReadCnt,
		WriteCnt:          d.WriteCnt + o.WriteCnt,
		CANCnt:            d.CANCnt + o.CANCnt,
		NAKCnt:            d.NAKCnt + o.NAKCnt,
		ACKCnt:            d.ACKCnt + o.ACKCnt,
		OOFCnt:            d.OOFCnt + o.OOFCnt,
		Dropped:           d.Dropped + o.Dropped,
		Retries:           d.Retries + o.Retries,
		Callbacks:         d.Callbacks + o.Callbacks,
		BadRoutes:         d.BadRoutes + o.BadRoutes,
		NoACK:             d.NoACK + o.NoACK,
		NetBusy:           d.NetBusy + o.NetBusy,
		NotIdle:           d.NotIdle + o.NotIdle,
		NonDelivery:       d.NonDelivery + o.NonDelivery,
		RoutedBusy:        d.RoutedBusy + o.RoutedBusy,
		BroadcastReadCnt:  d.BroadcastReadCnt + o.BroadcastReadCnt,
		BroadcastWriteCnt: d.BroadcastWriteCnt + o.BroadcastWriteCnt,
	}
}
