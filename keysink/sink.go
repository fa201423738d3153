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

// Package keysink delivers AVRCP panel key events to the host input
// layer. The Session never knows whether deliveries actually reach a
// device: a failed Open is logged once and subsequent Deliver calls
// silently no-op, per the AVCTP/AVRCP state machine contract.
package keysink

// Key codes, taken from the Linux input-event-codes.h key space, used
// for the panel opcodes this profile maps.
const (
	KeyPlayCD       uint16 = 200
	KeyStopCD       uint16 = 166
	KeyPauseCD      uint16 = 201
	KeyNextSong     uint16 = 163
	KeyPreviousSong uint16 = 165
	KeyRewind       uint16 = 168
	KeyFastForward  uint16 = 208
)

// Sink accepts key events and delivers them to the host input layer.
// Deliver and Close may both be called from the Session's I/O task;
// implementations must not block the event loop for more than a
// bounded, local amount of time.
type Sink interface {
	// Deliver emits a key-down event (pressed=true) or key-up event
	// (pressed=false) for keyCode, followed by a synchronization
	// marker.
	Deliver(keyCode uint16, pressed bool)
	// Close releases the sink. Deliver must not be called after
	// Close returns.
	Close() error
}
