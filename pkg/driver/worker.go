package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/zwave"
)

var (
	// errTimeout marks a transaction that exhausted its attempts
	errTimeout = errors.New("transaction timed out")

	// errRejected marks a request the controller refused in its response
	errRejected = errors.New("request rejected by controller")
)

// request describes one Serial API transaction.
type request struct {
	frame serialapi.Frame
	node  zwave.NodeID

	// response waits for the matching response frame; accept inspects it
	response bool
	accept   func(payload []byte) bool

	// callback waits for the SEND_DATA completion carrying a fresh callback id
	callback bool

	// reply waits for an inbound request frame the predicate accepts; the
	// frame is still handled as an ordinary inbound frame
	reply func(f serialapi.Frame) bool
}

// result of a transaction
type result struct {
	response serialapi.Frame
	reply    serialapi.Frame
}

func (s *Session) run() {
	defer close(s.done)

	if err := s.initialize(); err != nil {
		select {
		case <-s.stopReq:
			s.log.Info().Err(err).Msg("Driver initialization aborted by shutdown")
		default:
			s.log.Error().Err(err).Msg("Driver initialization failed")
			s.failed()
			<-s.stopReq
		}
	} else {
		s.serve()
	}
	s.release()
}

// serve is the steady state loop of a Ready session.
func (s *Session) serve() {
	poll := time.NewTimer(s.cfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-s.stopReq:
			return
		case <-s.link.Done():
			s.log.Error().Err(s.link.Err()).Msg("Controller link lost")
			s.failed()
			<-s.stopReq
			return
		case <-s.link.Ready():
			s.drainInbound()
		case <-s.jobs.Ready():
			s.runJobs(s.runCtx)
		case <-poll.C:
			poll.Reset(s.pollTick())
		}
	}
}

// runJobs executes queued jobs until the queue is empty or a shutdown is
// requested. Jobs queued while one runs are picked up in the same pass.
func (s *Session) runJobs(ctx context.Context) {
	for {
		select {
		case <-s.stopReq:
			return
		default:
		}
		j, ok := s.jobs.Pop()
		if !ok {
			return
		}
		s.exec(ctx, j)
	}
}

func (s *Session) exec(ctx context.Context, j job) {
	err := j.run(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil && j.controller:
		// a started command reports its own terminal state
		s.abandonControllerCommand()
	case ctx.Err() != nil:
		s.abandon(j)
	default:
		s.log.Warn().Err(err).Str("job", j.name).Uint8("node", uint8(j.node)).Msg("Command failed")
	}
}

// failed moves the session to Failed and reports every queued command.
func (s *Session) failed() {
	s.accepting.Store(false)
	s.setState(StateFailed)
	s.notify(zwave.NotificationDriverFailed, s.ControllerNodeID(), 0)
	for _, j := range s.jobs.Drain() {
		s.abandon(j)
	}
	s.abandonControllerCommand()
}

// release drains outstanding work within the grace period, reports what is
// left, emits DriverRemoved and frees the link and the registry.
func (s *Session) release() {
	if s.State() != StateFailed {
		deadline := s.runCtx
		for {
			j, ok := s.jobs.Pop()
			if !ok {
				break
			}
			if deadline.Err() != nil {
				s.abandon(j)
				continue
			}
			s.exec(deadline, j)
		}
		s.abandonControllerCommand()
	}
	for _, j := range s.jobs.Drain() {
		s.abandon(j)
	}
	s.jobs.Close()

	s.notify(zwave.NotificationDriverRemoved, s.ControllerNodeID(), 0)

	if err := s.link.Close(); err != nil {
		s.log.Debug().Err(err).Msg("Closing controller link")
	}
	if reg := s.registry.Load(); reg != nil {
		reg.Clear()
	}
	if s.claimed && s.cfg.Homes != nil {
		s.cfg.Homes.ReleaseHome(s.HomeID(), s)
	}
	s.setState(StateStopped)
	s.force()
	s.dispatch.Close()
	s.log.Info().Str("home_id", s.HomeID().String()).Msg("Driver removed")
}

// abandon reports a command that will never run. Internal follow-ups carry
// no node and are only logged.
func (s *Session) abandon(j job) {
	s.log.Warn().Str("job", j.name).Uint8("node", uint8(j.node)).Msg("Command abandoned")
	switch {
	case j.controller:
		s.notifyController(zwave.ControllerStateFailed)
	case j.node != 0:
		s.notifyCode(j.node, zwave.CodeTimeout)
	}
}

// drainInbound handles every frame that arrived outside a transaction.
func (s *Session) drainInbound() {
	for {
		f, ok := s.link.Next()
		if !ok {
			return
		}
		s.handleFrame(f)
	}
}

func (s *Session) nextCallbackID() uint8 {
	s.callbackSeq++
	if s.callbackSeq == 0 {
		s.callbackSeq = 1
	}
	return s.callbackSeq
}

// transact runs one request to completion, retrying up to MaxAttempts.
// Inbound frames that do not belong to the transaction are handled while
// it waits. Exhausting the attempts on a node request marks the node dead
// and reports a timeout for it.
func (s *Session) transact(ctx context.Context, req request) (result, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			s.count(func(d *zwave.DriverData) { d.Retries++ })
		}
		res, err := s.attempt(ctx, req)
		if err == nil {
			if req.callback && req.node.Valid() {
				if reg := s.registry.Load(); reg != nil {
					reg.SetNodeDead(req.node, false)
				}
			}
			return res, nil
		}
		if ctx.Err() != nil || errors.Is(err, zwave.ErrTransport) || errors.Is(err, errRejected) || errors.Is(err, serialapi.ErrNoACK) {
			return result{}, err
		}
		lastErr = err
		s.log.Debug().Err(err).Str("frame", req.frame.String()).Int("attempt", attempt).Msg("Transaction attempt failed")
	}

	s.count(func(d *zwave.DriverData) { d.Dropped++ })
	if req.node.Valid() {
		if reg := s.registry.Load(); reg != nil {
			reg.SetNodeDead(req.node, true)
		}
		s.notifyCode(req.node, zwave.CodeTimeout)
	}
	return result{}, fmt.Errorf("%w: %s: %v", errTimeout, serialapi.FuncName(req.frame.Func), lastErr)
}

func (s *Session) attempt(ctx context.Context, req request) (result, error) {
	frame := req.frame
	var cbID uint8
	if req.callback {
		cbID = s.nextCallbackID()
		frame.Payload = append([]byte(nil), frame.Payload...)
		frame.Payload[len(frame.Payload)-1] = cbID
	}

	if err := s.link.Send(ctx, frame); err != nil {
		if errors.Is(err, serialapi.ErrNoACK) {
			return result{}, err
		}
		if ctx.Err() != nil {
			return result{}, ctx.Err()
		}
		return result{}, fmt.Errorf("%w: %v", zwave.ErrTransport, err)
	}

	var res result
	needResponse, needCallback, needReply := req.response, req.callback, req.reply != nil
	timer := time.NewTimer(s.cfg.ResponseTimeout)
	defer timer.Stop()

	for needResponse || needCallback || needReply {
		select {
		case <-ctx.Done():
			return result{}, ctx.Err()
		case <-s.link.Done():
			return result{}, fmt.Errorf("%w: link closed", zwave.ErrTransport)
		case <-timer.C:
			return result{}, fmt.Errorf("no answer within %s", s.cfg.ResponseTimeout)
		case <-s.link.Ready():
		}

		for {
			f, ok := s.link.Next()
			if !ok {
				break
			}
			switch {
			case needResponse && f.IsResponse() && f.Func == frame.Func:
				needResponse = false
				res.response = f
				if req.accept != nil && !req.accept(f.Payload) {
					s.drainInbound()
					return res, fmt.Errorf("%w: %s", errRejected, f)
				}

			case needCallback && !needResponse && !f.IsResponse() && f.Func == serialapi.FuncSendData:
				cb, err := serialapi.ParseSendDataCallback(f.Payload)
				if err != nil || cb.CallbackID != cbID {
					s.handleFrame(f)
					continue
				}
				needCallback = false
				if err := s.transmitStatus(cb.Status); err != nil {
					// the ready signal is spent; handle the rest of the burst now
					s.drainInbound()
					return res, err
				}

			default:
				if needReply && !needResponse && !f.IsResponse() && req.reply(f) {
					needReply = false
					res.reply = f
				}
				s.handleFrame(f)
			}
		}
	}
	return res, nil
}

// transmitStatus maps a SEND_DATA completion status to the counters.
func (s *Session) transmitStatus(status uint8) error {
	switch status {
	case serialapi.TransmitCompleteOK:
		return nil
	case serialapi.TransmitCompleteNoACK:
		s.count(func(d *zwave.DriverData) { d.NoACK++ })
		return errors.New("node did not acknowledge")
	case serialapi.TransmitCompleteFail:
		s.count(func(d *zwave.DriverData) { d.NonDelivery++ })
		return errors.New("transmission failed")
	case serialapi.TransmitRoutingNotIdle:
		s.count(func(d *zwave.DriverData) { d.NetBusy++ })
		return errors.New("network busy")
	case serialapi.TransmitCompleteNoRoute:
		s.count(func(d *zwave.DriverData) { d.BadRoutes++ })
		return errors.New("no route")
	}
	s.count(func(d *zwave.DriverData) { d.NonDelivery++ })
	return fmt.Errorf("transmit status 0x%02X", status)
}

// sendCommand transmits a command class payload to a node and waits for
// the transmit callback. With a non-nil reply it also waits for the
// node's answer.
func (s *Session) sendCommand(ctx context.Context, node zwave.NodeID, cmd []byte, reply func(serialapi.Frame) bool) error {
	if node == zwave.BroadcastNodeID {
		s.count(func(d *zwave.DriverData) { d.BroadcastWriteCnt++ })
	}
	_, err := s.transact(ctx, request{
		frame:    serialapi.SendDataRequest(node, cmd, 0),
		node:     node,
		response: true,
		accept:   retValOK,
		callback: true,
		reply:    reply,
	})
	return err
}

func retValOK(p []byte) bool {
	return len(p) > 0 && p[0] != 0
}

// reportFrom matches an APPLICATION_COMMAND_HANDLER frame from node whose
// command starts with prefix.
func reportFrom(node zwave.NodeID, prefix ...byte) func(serialapi.Frame) bool {
	return func(f serialapi.Frame) bool {
		if f.Func != serialapi.FuncApplicationCommandHandler {
			return false
		}
		ac, err := serialapi.ParseApplicationCommand(f.Payload)
		if err != nil || ac.Source != node || len(ac.Command) < len(prefix) {
			return false
		}
		for i, b := range prefix {
			if ac.Command[i] != b {
				return false
			}
		}
		return true
	}
}
