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

// Package listener accepts inbound transports on the well-known PSM,
// resolves them to a Session (creating one if the device is known),
// and gates them through authorization before handing them off. It
// owns the set of active Sessions, replacing the single global
// "connection"/"servers" list the reimplemented source used.
package listener

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/avrcpd/player"
	"github.com/facebook/avrcpd/session"
	"github.com/facebook/avrcpd/transport"
)

// DeviceResolver turns a remote address into the facts a new Session
// needs: its friendly name (for the quirk table) and whether it
// advertises the AVRCP Target role. This is the Listener's hook into
// the out-of-scope device-discovery/name-lookup and SDP layers.
type DeviceResolver interface {
	// Resolve reports ok=false for an address the device layer does
	// not know about; the inbound connection is then refused before
	// any Session is created.
	Resolve(remote transport.Addr) (deviceName string, isTarget bool, ok bool)
}

// Config supplies everything a Listener needs to build Sessions for
// newly accepted transports.
type Config struct {
	LocalAddr  transport.Addr
	Resolver   DeviceResolver
	Player     *player.Facade
	Authorizer session.Authorizer
	OpenSink   session.OpenSink
	Metrics    session.Metrics
}

// sessionKey identifies one Session by its (local, remote) address
// pair, per the data model.
type sessionKey struct {
	local, remote transport.Addr
}

// Listener accepts inbound transports and dispatches them to the
// Session responsible for their peer, creating that Session on first
// contact. The session table is a plain mutex-guarded map, the same
// shape as ptp4u/server's syncMapCli, sized for the handful of
// concurrently paired devices this profile expects rather than a
// high-fanout server.
type Listener struct {
	cfg Config

	mu       sync.Mutex
	sessions map[sessionKey]*session.Session

	tl     transport.Listener
	stopCh chan struct{}
}

// New returns a Listener with an empty session table.
func New(cfg Config) *Listener {
	return &Listener{
		cfg:      cfg,
		sessions: make(map[sessionKey]*session.Session),
		stopCh:   make(chan struct{}),
	}
}

// Start runs the accept loop against tl until Stop is called or
// Accept returns an error. It blocks; call it from its own goroutine.
func (l *Listener) Start(tl transport.Listener) error {
	l.mu.Lock()
	l.tl = tl
	l.mu.Unlock()

	for {
		tp, err := tl.Accept()
		if err != nil {
			select {
			case <-l.stopCh:
				return nil
			default:
				return fmt.Errorf("listener: accept: %w", err)
			}
		}
		l.handleAccept(tp)
	}
}

// Stop closes the underlying transport.Listener and every active
// Session. It does not wait for in-flight authorization hooks to
// observe cancellation.
func (l *Listener) Stop() error {
	close(l.stopCh)

	l.mu.Lock()
	tl := l.tl
	sessions := make([]*session.Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	for _, s := range sessions {
		s.Destroy()
	}
	if tl != nil {
		return tl.Close()
	}
	return nil
}

// Sessions returns a snapshot of the active session table, ordered
// arbitrarily. Used by the stats surface and by cmd/avrcpctl's table
// print.
func (l *Listener) Sessions() []*session.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*session.Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		out = append(out, s)
	}
	return out
}

// SessionByRemote returns the Session for remote, if one exists in
// the table under any local address (the listener only ever binds
// one local address in practice, but the table is keyed by the pair).
func (l *Listener) SessionByRemote(remote transport.Addr) (*session.Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, s := range l.sessions {
		if key.remote == remote {
			return s, true
		}
	}
	return nil, false
}

// handleAccept resolves tp's peer to a device, gets or creates its
// Session, and hands the transport off. A peer the resolver does not
// know about is refused outright, before any Session exists for it —
// per §4.6, inbound connections are only ever handed to a Session for
// a device that exists.
func (l *Listener) handleAccept(tp transport.Transport) {
	remote := tp.RemoteAddr()
	deviceName, isTarget, ok := l.cfg.Resolver.Resolve(remote)
	if !ok {
		log.Warningf("listener: refusing inbound connection from unknown device %s", remote)
		_ = tp.Close()
		return
	}

	s := l.getOrCreateSession(remote, deviceName, isTarget)
	if err := s.HandleInbound(tp); err != nil {
		log.Warningf("listener: refusing inbound connection from %s: %v", remote, err)
	}
}

func (l *Listener) getOrCreateSession(remote transport.Addr, deviceName string, isTarget bool) *session.Session {
	key := sessionKey{local: l.cfg.LocalAddr, remote: remote}

	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.sessions[key]; ok {
		return s
	}

	s := session.New(session.Config{
		LocalAddr:  l.cfg.LocalAddr,
		RemoteAddr: remote,
		DeviceName: deviceName,
		IsTarget:   isTarget,
		Player:     l.cfg.Player,
		Authorizer: l.cfg.Authorizer,
		OpenSink:   l.cfg.OpenSink,
		Metrics:    l.cfg.Metrics,
	})
	l.sessions[key] = s
	log.Infof("listener: created session for %s (%s)", remote, deviceName)
	return s
}
