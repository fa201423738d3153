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

// Package quirks holds per-device AVRCP workarounds, keyed by remote
// device name and, within a Session, by AVRCP opcode.
package quirks

import (
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Flags is a bitset of per-opcode quirk flags.
type Flags uint8

// NoRelease marks an opcode for which the peer never sends the
// release-bit-set follow-up: a single press must be synthesized as
// press immediately followed by release.
const NoRelease Flags = 1 << 0

// Table maps an AVRCP opcode to the quirk flags active for it within
// one Session.
type Table map[uint8]Flags

// Has reports whether flag is set for opcode.
func (t Table) Has(opcode uint8, flag Flags) bool {
	return t[opcode]&flag != 0
}

// deviceEntry is one row of the seed device-name match table.
type deviceEntry struct {
	namePrefix string
	opcodes    map[uint8]Flags
}

// seed is the built-in device-name match table. New entries learned
// from field reports are appended here or supplied via an external
// quirks file (see config.Config.QuirksFile).
var seed = []deviceEntry{
	{
		namePrefix: "Nokia CK-20W",
		opcodes: map[uint8]Flags{
			OpcodeForward:  NoRelease,
			OpcodeBackward: NoRelease,
			OpcodePlay:     NoRelease,
			OpcodePause:    NoRelease,
		},
	},
	{
		// A handful of cheap aftermarket car kits only ever send a
		// FORWARD press with no matching release.
		namePrefix: "CarKit",
		opcodes: map[uint8]Flags{
			OpcodeForward: NoRelease,
		},
	},
}

// AVRCP passthrough opcode values the quirk table needs to reference.
// These mirror avrcp.Op* but are duplicated here (as small
// constants, not an import) to keep quirks a leaf package with no
// dependency on the dispatcher.
const (
	OpcodePlay     uint8 = 0x44
	OpcodeStop     uint8 = 0x45
	OpcodePause    uint8 = 0x46
	OpcodeForward  uint8 = 0x4B
	OpcodeBackward uint8 = 0x4C
	OpcodeRewind   uint8 = 0x48
	OpcodeFastFwd  uint8 = 0x49
)

// fileEntry is one row of an external quirks file, keyed the same way
// as the built-in seed table but spelled out in YAML so field reports
// can be turned into a deployable fix without a rebuild.
type fileEntry struct {
	NamePrefix       string  `yaml:"name_prefix"`
	NoReleaseOpcodes []uint8 `yaml:"no_release_opcodes"`
}

// LoadFile appends the device-name quirk entries in the YAML file at
// path to the built-in seed table. It is meant to be called once,
// during daemon startup, before any Session is constructed.
func LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var entries []fileEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return err
	}

	for _, e := range entries {
		opcodes := make(map[uint8]Flags, len(e.NoReleaseOpcodes))
		for _, op := range e.NoReleaseOpcodes {
			opcodes[op] |= NoRelease
		}
		seed = append(seed, deviceEntry{namePrefix: e.NamePrefix, opcodes: opcodes})
	}
	return nil
}

// ForDevice builds the Table a new Session should start with, based on
// a case-insensitive prefix match against the remote device name. An
// unrecognized name yields an empty Table (no quirks).
func ForDevice(deviceName string) Table {
	lower := strings.ToLower(deviceName)
	t := make(Table)
	for _, e := range seed {
		if strings.HasPrefix(lower, strings.ToLower(e.namePrefix)) {
			for op, f := range e.opcodes {
				t[op] |= f
			}
		}
	}
	return t
}
