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

package transport

import "sync"

const defaultMTU = 672

// Pipe is an in-memory Transport used by tests and by the companion
// end of NewPipe. Messages queued on one side of a Pipe are read from
// the other side's Read, preserving message boundaries the same way
// an L2CAP channel in basic mode would.
type Pipe struct {
	local, remote Addr
	mtu           int

	in  chan []byte
	out chan []byte

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	peerDone chan struct{}
}

// NewPipe returns two connected Pipes: writes on one side are read on
// the other. local/remote addresses are swapped between the two ends.
// Closing either end unblocks and fails the other end's Read and
// Write, the same way a peer hanging up an L2CAP channel would.
func NewPipe(localAddr, remoteAddr Addr) (a, b *Pipe) {
	ab := make(chan []byte, 16)
	ba := make(chan []byte, 16)
	aDone := make(chan struct{})
	bDone := make(chan struct{})

	a = &Pipe{local: localAddr, remote: remoteAddr, mtu: defaultMTU, in: ba, out: ab, done: aDone, peerDone: bDone}
	b = &Pipe{local: remoteAddr, remote: localAddr, mtu: defaultMTU, in: ab, out: ba, done: bDone, peerDone: aDone}
	return a, b
}

// Read implements Transport.
func (p *Pipe) Read() ([]byte, error) {
	select {
	case b, ok := <-p.in:
		if !ok {
			return nil, ErrClosed
		}
		return b, nil
	case <-p.done:
		return nil, ErrClosed
	case <-p.peerDone:
		return nil, ErrClosed
	}
}

// Write implements Transport.
func (p *Pipe) Write(b []byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.mu.Unlock()

	msg := append([]byte(nil), b...)
	select {
	case p.out <- msg:
		return nil
	case <-p.done:
		return ErrClosed
	case <-p.peerDone:
		return ErrClosed
	}
}

// Close implements Transport. Close is idempotent and unblocks any
// pending Read on this end.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	return nil
}

// LocalAddr implements Transport.
func (p *Pipe) LocalAddr() Addr { return p.local }

// RemoteAddr implements Transport.
func (p *Pipe) RemoteAddr() Addr { return p.remote }

// MTU implements Transport.
func (p *Pipe) MTU() int { return p.mtu }
