/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package session implements the per-peer AVCTP connection: the
// {Disconnected, Connecting, Connected} state machine, its I/O pump,
// and the wiring between a transport.Transport and the avrcp.Dispatcher.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/facebook/avrcpd/avctp"
	"github.com/facebook/avrcpd/avrcp"
	"github.com/facebook/avrcpd/keysink"
	"github.com/facebook/avrcpd/player"
	"github.com/facebook/avrcpd/quirks"
	"github.com/facebook/avrcpd/transport"
)

// State is one of the three states a Session can be in.
type State int

// Session states, per the AVCTP connection lifecycle.
const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Errors returned by Session methods.
var (
	// ErrAlreadyConnected is returned by HandleInbound when the
	// Session already owns a transport: a second inbound connection
	// for a Session not in Disconnected is refused without a state
	// change.
	ErrAlreadyConnected = errors.New("session: already has an active transport")
	// ErrNotConnected is returned by SendPassthrough when the
	// Session is not Connected.
	ErrNotConnected = errors.New("session: not connected")
	// ErrNotSupported is returned by SendPassthrough when the peer
	// has not advertised the Target role.
	ErrNotSupported = errors.New("session: peer is not a Target")
)

// Authorizer decides whether an inbound connection from a device may
// proceed. Authorize must be explicitly asynchronous — it may involve
// user interaction (a pairing prompt) — and must return promptly with
// ctx.Err() once ctx is cancelled (the Session was destroyed or
// Disconnect was called while authorization was outstanding).
type Authorizer interface {
	Authorize(ctx context.Context, remote transport.Addr, deviceName string) (bool, error)
}

// Metrics receives Session-level counters. All methods must be safe
// to call from the Session's own goroutine. A nil Metrics is valid:
// every call site on Session checks for nil before calling through.
type Metrics interface {
	IncSessionConnected()
	IncSessionDisconnected()
	IncFrameByCode(code uint8)
	IncReject(reason string)
	IncPDU(pduID uint8)
	ObserveDispatchLatency(d time.Duration)
}

// OpenSink constructs the KeySink a Session opens on entering
// Connected. Per the KeySink contract, a failing OpenSink is logged
// once by the Session and Deliver calls are silent no-ops afterward —
// OpenSink itself may simply return the error.
type OpenSink func() (keysink.Sink, error)

// Config supplies a new Session's fixed collaborators and identity.
type Config struct {
	LocalAddr  transport.Addr
	RemoteAddr transport.Addr
	DeviceName string
	// IsTarget records whether the remote peer advertises the TG
	// (Target) role; only such peers may receive outbound
	// passthrough via SendPassthrough.
	IsTarget   bool
	Player     *player.Facade
	Authorizer Authorizer
	OpenSink   OpenSink
	Metrics    Metrics
}

// Session is a single (local-address, remote-address) AVCTP
// connection: its state machine, the transport it owns while
// Connected, and the per-connection quirk table. A Session in
// Connected state owns exactly one open transport and one active
// KeySink, per the data model invariant.
type Session struct {
	cfg Config

	quirks quirks.Table

	mu        sync.Mutex
	state     State
	tp        transport.Transport
	sink      keysink.Sink
	txCounter uint8

	cancelAuth context.CancelFunc
	destroyed  bool

	// registered tracks event IDs for which the peer most recently
	// sent REGISTER_NOTIFICATION and received an INTERIM response;
	// see avrcp.Notifier and NotifyRegistered.
	registered map[uint8]bool

	unsubscribe func()
}

// New returns a Disconnected Session for the given peer, with its
// quirk table seeded from the device-name match table.
func New(cfg Config) *Session {
	return &Session{
		cfg:        cfg,
		quirks:     quirks.ForDevice(cfg.DeviceName),
		registered: make(map[uint8]bool),
	}
}

// State returns the Session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LocalAddr and RemoteAddr identify the Session.
func (s *Session) LocalAddr() transport.Addr  { return s.cfg.LocalAddr }
func (s *Session) RemoteAddr() transport.Addr { return s.cfg.RemoteAddr }

// IsTarget reports whether the remote peer advertises the Target
// role.
func (s *Session) IsTarget() bool { return s.cfg.IsTarget }

// Quirks returns the Session's quirk table, for inspection by tests
// and by the stats/cmd surfaces; it must not be mutated by callers.
func (s *Session) Quirks() quirks.Table { return s.quirks }

// HandleInbound is called by listener.Listener once an inbound
// transport has been accepted for this Session's peer. It transitions
// Disconnected -> Connecting and schedules the asynchronous
// authorization hook; on success the Session moves to Connected and
// starts its read pump in a new goroutine. A second inbound while the
// Session is not Disconnected is refused and the transport closed,
// without any state change.
func (s *Session) HandleInbound(tp transport.Transport) error {
	s.mu.Lock()
	if s.destroyed || s.state != Disconnected {
		s.mu.Unlock()
		_ = tp.Close()
		return ErrAlreadyConnected
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.state = Connecting
	s.tp = tp
	s.cancelAuth = cancel
	s.mu.Unlock()

	go s.authorize(ctx)
	return nil
}

// authorize runs the (possibly slow, possibly user-facing) Authorizer
// hook and, on success, finishes the Connecting -> Connected
// transition and starts the read pump.
func (s *Session) authorize(ctx context.Context) {
	ok, err := s.cfg.Authorizer.Authorize(ctx, s.cfg.RemoteAddr, s.cfg.DeviceName)

	s.mu.Lock()
	if s.state != Connecting {
		// Disconnect/destroy raced us; the transport is already
		// closed and no further callbacks should fire.
		s.mu.Unlock()
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			log.Debugf("session: authorization for %s cancelled", s.cfg.RemoteAddr)
		} else {
			log.Warningf("session: authorization for %s failed: %v", s.cfg.RemoteAddr, err)
		}
		s.transitionDisconnectedLocked()
		s.mu.Unlock()
		return
	}
	if !ok {
		log.Warningf("session: authorization denied for %s", s.cfg.RemoteAddr)
		s.transitionDisconnectedLocked()
		s.mu.Unlock()
		return
	}

	sink, serr := s.cfg.OpenSink()
	if serr != nil {
		log.Warningf("session: opening key sink for %s: %v", s.cfg.RemoteAddr, serr)
		sink = keysink.NewRecorder() // logged once, subsequent Deliver calls are no-ops in spirit
	}
	s.sink = sink
	s.state = Connected
	s.unsubscribe = s.cfg.Player.Subscribe(s.onPlayerChange)
	s.mu.Unlock()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncSessionConnected()
	}
	_ = s.cfg.Player.Set(player.FieldConnected, true)
	log.Infof("session: %s connected", s.cfg.RemoteAddr)

	go s.pump()
}

// pump is the Session's I/O pump: it reads one AVCTP frame at a time,
// dispatches it, and writes back the response, in arrival order, for
// as long as the Session remains Connected.
func (s *Session) pump() {
	for {
		tp := s.currentTransport()
		if tp == nil {
			return
		}

		b, err := tp.Read()
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				log.Warningf("session: read from %s: %v", s.cfg.RemoteAddr, pkgerrors.Wrap(err, "transport read"))
			}
			s.handleTransportError()
			return
		}

		s.handleFrame(b)
	}
}

func (s *Session) currentTransport() transport.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected {
		return nil
	}
	return s.tp
}

// handleFrame decodes one wire message and, if it decodes, dispatches
// it and writes back the response. A DecodeError never tears down the
// Session: the frame is dropped (the (a) Short packet drop scenario).
func (s *Session) handleFrame(b []byte) {
	f, err := avctp.DecodeFrame(b)
	if err != nil {
		log.Debugf("session: dropping undecodable frame from %s: %v", s.cfg.RemoteAddr, err)
		return
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncFrameByCode(f.Code)
	}

	start := time.Now()
	resp, ok := avrcp.Dispatch(f, avrcp.Deps{
		Quirks:  s.quirks,
		Sink:    s.currentSink(),
		Player:  s.cfg.Player,
		Notify:  s,
		Metrics: s,
	})
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ObserveDispatchLatency(time.Since(start))
	}
	if !ok {
		return
	}
	if resp.Code == avctp.CodeRejected && s.cfg.Metrics != nil {
		s.cfg.Metrics.IncReject(fmt.Sprintf("opcode=0x%02x", f.Opcode))
	}

	tp := s.currentTransport()
	if tp == nil {
		return
	}
	if err := tp.Write(avctp.EncodeFrame(resp)); err != nil {
		log.Warningf("session: write to %s: %v", s.cfg.RemoteAddr, pkgerrors.Wrap(err, "transport write"))
		s.handleTransportError()
	}
}

func (s *Session) currentSink() keysink.Sink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// handleTransportError tears the Session down on a transport-layer
// failure or peer close. AVRCP-layer errors never reach here: only
// AVCTP and below terminate the Session.
func (s *Session) handleTransportError() {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	s.transitionDisconnectedLocked()
	s.mu.Unlock()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncSessionDisconnected()
	}
	_ = s.cfg.Player.Set(player.FieldConnected, false)
	log.Infof("session: %s disconnected", s.cfg.RemoteAddr)
}

// Disconnect tears the Session down from any state: it cancels any
// in-flight authorization, closes the sink and transport, and leaves
// the Session Disconnected. It is idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	wasConnected := s.state == Connected
	s.transitionDisconnectedLocked()
	s.mu.Unlock()

	if wasConnected {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.IncSessionDisconnected()
		}
		_ = s.cfg.Player.Set(player.FieldConnected, false)
	}
}

// Destroy permanently retires the Session: like Disconnect, but no
// further inbound connections will be accepted for it. Destroy
// guarantees no further callbacks for this Session fire.
func (s *Session) Destroy() {
	s.Disconnect()
	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()
}

// transitionDisconnectedLocked must be called with s.mu held. It
// cancels any in-flight authorization and closes the sink and
// transport owned by this Session.
func (s *Session) transitionDisconnectedLocked() {
	if s.cancelAuth != nil {
		s.cancelAuth()
		s.cancelAuth = nil
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.sink != nil {
		if err := s.sink.Close(); err != nil {
			log.Debugf("session: closing key sink for %s: %v", s.cfg.RemoteAddr, err)
		}
		s.sink = nil
	}
	if s.tp != nil {
		if err := s.tp.Close(); err != nil {
			log.Debugf("session: closing transport for %s: %v", s.cfg.RemoteAddr, err)
		}
		s.tp = nil
	}
	s.state = Disconnected
	s.registered = make(map[uint8]bool)
}

// SendPassthrough writes the two single-packet AVCTP frames (press
// then release) that make up one outbound panel passthrough command,
// per §4.7: transaction ids increase monotonically mod 16 across the
// pair. It may be called only on a Connected Session whose peer has
// advertised the Target role.
func (s *Session) SendPassthrough(opcode uint8) error {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if !s.cfg.IsTarget {
		s.mu.Unlock()
		return ErrNotSupported
	}
	tp := s.tp
	s.mu.Unlock()

	press := s.nextOutboundFrame(opcode)
	if err := tp.Write(avctp.EncodeFrame(press)); err != nil {
		return pkgerrors.Wrap(err, "session: write passthrough press")
	}

	release := s.nextOutboundFrame(opcode | 0x80)
	if err := tp.Write(avctp.EncodeFrame(release)); err != nil {
		return pkgerrors.Wrap(err, "session: write passthrough release")
	}
	return nil
}

// VolumeUp sends a VOLUME_UP passthrough press/release pair.
func (s *Session) VolumeUp() error { return s.SendPassthrough(avrcp.OpVolumeUp) }

// VolumeDown sends a VOLUME_DOWN passthrough press/release pair.
func (s *Session) VolumeDown() error { return s.SendPassthrough(avrcp.OpVolumeDown) }

func (s *Session) nextOutboundFrame(operand0 uint8) avctp.Frame {
	s.mu.Lock()
	tx := s.txCounter
	s.txCounter = (s.txCounter + 1) & 0x0F
	s.mu.Unlock()

	return avctp.Frame{
		Transaction: tx,
		PacketType:  avctp.PacketSingle,
		CR:          avctp.Command,
		PID:         avrcp.AVRemoteSvclassID,
		Code:        avctp.CodeControl,
		SubunitType: avctp.SubunitPanel,
		Opcode:      avctp.OpcodePassthrough,
		Operands:    []byte{operand0, 0x00},
	}
}

// onPlayerChange is wired as a player.Observer for the lifetime of a
// Connected Session: it translates an accepted PlayerFacade mutation
// into the REGISTER_NOTIFICATION event ID it corresponds to, if any,
// and pushes a CHANGED frame for any event the peer has an
// outstanding INTERIM registration for.
func (s *Session) onPlayerChange(change player.PropertyChanged) {
	switch change.Field {
	case player.FieldPlayState:
		s.NotifyRegistered(avrcp.EventPlaybackStatusChanged)
	case player.FieldTitle, player.FieldArtist, player.FieldAlbum, player.FieldNumber, player.FieldGenre, player.FieldTotalLengthMs:
		s.NotifyRegistered(avrcp.EventTrackChanged)
	}
}

// IncPDU implements avrcp.PDUCounter as a pass-through to the
// configured Metrics collector.
func (s *Session) IncPDU(pduID uint8) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.IncPDU(pduID)
	}
}

// RegisterInterim implements avrcp.Notifier: it records that the peer
// just received an INTERIM response for eventID, so a later
// PropertyChanged for that event pushes a spontaneous CHANGED frame.
func (s *Session) RegisterInterim(eventID uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registered[eventID] = true
}

// NotifyRegistered pushes a spontaneous AVCTP Command frame carrying
// a CHANGED Metadata PDU for eventID, if and only if the peer
// currently has an outstanding INTERIM registration for it. It is
// meant to be wired as a player.Observer: the PlayerFacade calls it
// synchronously from Set, on the same event-loop goroutine that will
// end up writing the frame.
func (s *Session) NotifyRegistered(eventID uint8) {
	s.mu.Lock()
	if !s.registered[eventID] || s.state != Connected {
		s.mu.Unlock()
		return
	}
	delete(s.registered, eventID)
	tp := s.tp
	s.mu.Unlock()

	st := s.cfg.Player.Snapshot()
	var body []byte
	switch eventID {
	case avrcp.EventPlaybackStatusChanged:
		body = []byte{eventID, avrcp.PlayStatusByte(st.PlayState)}
	case avrcp.EventTrackChanged:
		body = make([]byte, 9)
		body[0] = eventID
		if st.Title == "" && st.Artist == "" {
			for i := 1; i < len(body); i++ {
				body[i] = 0xFF
			}
		}
	default:
		return
	}

	f := s.nextOutboundFrame(0)
	f.Code = avctp.CodeChanged
	f.Opcode = avctp.OpcodeVendorDependent
	f.Operands = avctp.EncodeMetadata(avctp.MetadataPdu{
		CompanyID:  avctp.CompanyIDBTSIG,
		PduID:      avrcp.PduRegisterNotification,
		Parameters: body,
	})

	if err := tp.Write(avctp.EncodeFrame(f)); err != nil {
		log.Warningf("session: pushing %d CHANGED notification to %s: %v", eventID, s.cfg.RemoteAddr, err)
	}
}
