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

package avrcp

import "github.com/facebook/avrcpd/keysink"

// keyMap is the static table from AVRCP passthrough opcode (low 7
// bits of operands[0]) to host input code.
var keyMap = map[uint8]uint16{
	OpPlay:     keysink.KeyPlayCD,
	OpStop:     keysink.KeyStopCD,
	OpPause:    keysink.KeyPauseCD,
	OpForward:  keysink.KeyNextSong,
	OpBackward: keysink.KeyPreviousSong,
	OpRewind:   keysink.KeyRewind,
	OpFastFwd:  keysink.KeyFastForward,
}

// lookupKey returns the host input code for an AVRCP passthrough
// opcode and whether the opcode is recognized.
func lookupKey(opcode uint8) (uint16, bool) {
	k, ok := keyMap[opcode]
	return k, ok
}
