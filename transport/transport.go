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

// Package transport abstracts the reliable, message-oriented channel a
// Session runs over. In production this is an L2CAP socket; that
// layer (socket setup, SDP registration, peer authorization) is out of
// scope for this repository and modeled here only by its contract.
package transport

import "errors"

// ErrClosed is returned by Read/Write once Close has been called.
var ErrClosed = errors.New("transport: use of closed transport")

// Addr identifies one endpoint of a Transport. String forms mirror how
// Bluetooth device addresses are usually rendered (e.g. AA:BB:CC:DD:EE:FF).
type Addr string

// Transport is a reliable, message-oriented, full-duplex channel
// between a local and a remote endpoint. One AVCTP packet maps to
// exactly one Read or Write call: implementations must preserve
// message boundaries, the way an L2CAP channel in basic mode does.
type Transport interface {
	// Read blocks until one message is available and returns it.
	// It returns ErrClosed after Close.
	Read() ([]byte, error)
	// Write sends one message. It returns ErrClosed after Close.
	Write(b []byte) error
	// Close releases the underlying channel. Close is idempotent.
	Close() error
	// LocalAddr and RemoteAddr identify the two endpoints.
	LocalAddr() Addr
	RemoteAddr() Addr
	// MTU is the negotiated inbound MTU in bytes.
	MTU() int
}

// Listener accepts inbound Transports. A real implementation binds to
// the well-known PSM and wraps incoming L2CAP channels; see
// listener.Listener for the Session-level gating on top of this.
type Listener interface {
	// Accept blocks until a new inbound Transport connects, or
	// returns an error if the Listener is closed.
	Accept() (Transport, error)
	Close() error
}
