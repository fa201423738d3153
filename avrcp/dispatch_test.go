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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facebook/avrcpd/avctp"
	"github.com/facebook/avrcpd/keysink"
	"github.com/facebook/avrcpd/player"
	"github.com/facebook/avrcpd/quirks"
)

func newDeps() (Deps, *keysink.Recorder) {
	rec := keysink.NewRecorder()
	return Deps{
		Quirks: make(quirks.Table),
		Sink:   rec,
		Player: player.New(),
	}, rec
}

func TestDispatchFragmentedNotImplemented(t *testing.T) {
	d, _ := newDeps()
	f := avctp.Frame{PacketType: avctp.PacketStart, PID: avrcpPID()}
	resp, ok := Dispatch(f, d)
	require.True(t, ok)
	assert.Equal(t, avctp.Response, resp.CR)
	assert.Equal(t, avctp.CodeNotImplemented, resp.Code)
}

func TestDispatchWrongServiceClassRejected(t *testing.T) {
	d, _ := newDeps()
	f := avctp.Frame{PacketType: avctp.PacketSingle, PID: 0x1234}
	resp, ok := Dispatch(f, d)
	require.True(t, ok)
	assert.True(t, resp.IPID)
	assert.Equal(t, avctp.Response, resp.CR)
	assert.Equal(t, avctp.CodeRejected, resp.Code)
}

func TestDispatchResponseFramesDropped(t *testing.T) {
	d, _ := newDeps()
	f := avctp.Frame{PacketType: avctp.PacketSingle, PID: avrcpPID(), CR: avctp.Response}
	_, ok := Dispatch(f, d)
	assert.False(t, ok)
}

func TestDispatchPanelPlayPress(t *testing.T) {
	d, rec := newDeps()
	f := avctp.Frame{
		PacketType:  avctp.PacketSingle,
		PID:         avrcpPID(),
		CR:          avctp.Command,
		Code:        avctp.CodeControl,
		SubunitType: avctp.SubunitPanel,
		Opcode:      avctp.OpcodePassthrough,
		Operands:    []byte{OpPlay, 0x00},
	}
	resp, ok := Dispatch(f, d)
	require.True(t, ok)
	assert.Equal(t, avctp.CodeAccepted, resp.Code)
	assert.Equal(t, avctp.Response, resp.CR)

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, keysink.KeyPlayCD, events[0].KeyCode)
	assert.True(t, events[0].Pressed)
}

func TestDispatchPanelQuirkedPressSynthesizesRelease(t *testing.T) {
	d, rec := newDeps()
	d.Quirks[OpPlay] = quirks.NoRelease

	press := avctp.Frame{
		PacketType: avctp.PacketSingle, PID: avrcpPID(), CR: avctp.Command,
		Code: avctp.CodeControl, SubunitType: avctp.SubunitPanel, Opcode: avctp.OpcodePassthrough,
		Operands: []byte{OpPlay, 0x00},
	}
	_, ok := Dispatch(press, d)
	require.True(t, ok)

	release := press
	release.Operands = []byte{OpPlay | 0x80, 0x00}
	_, ok = Dispatch(release, d)
	require.True(t, ok)

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, keysink.KeyPlayCD, events[0].KeyCode)
	assert.True(t, events[0].Pressed)
	assert.Equal(t, keysink.KeyPlayCD, events[1].KeyCode)
	assert.False(t, events[1].Pressed)
}

func TestDispatchUnknownPassthroughOpcodeStillAccepted(t *testing.T) {
	d, rec := newDeps()
	f := avctp.Frame{
		PacketType: avctp.PacketSingle, PID: avrcpPID(), CR: avctp.Command,
		Code: avctp.CodeControl, SubunitType: avctp.SubunitPanel, Opcode: avctp.OpcodePassthrough,
		Operands: []byte{0x7E, 0x00}, // not in KeyMapping
	}
	resp, ok := Dispatch(f, d)
	require.True(t, ok)
	assert.Equal(t, avctp.CodeAccepted, resp.Code)
	assert.Empty(t, rec.Events())
}

func TestDispatchUnitInfo(t *testing.T) {
	d, _ := newDeps()
	f := avctp.Frame{
		PacketType: avctp.PacketSingle, PID: avrcpPID(), CR: avctp.Command,
		Code: avctp.CodeStatus, SubunitType: avctp.SubunitPanel, Opcode: avctp.OpcodeUnitInfo,
		Operands: []byte{0xff, 0xff, 0xff, 0xff, 0xff},
	}
	resp, ok := Dispatch(f, d)
	require.True(t, ok)
	assert.Equal(t, avctp.CodeStable, resp.Code)
	assert.Equal(t, uint8(0x07), resp.Operands[0])
	assert.Equal(t, avctp.SubunitPanel<<3, resp.Operands[1])
}

func TestDispatchNonBTSIGVendorNotImplemented(t *testing.T) {
	d, _ := newDeps()
	f := avctp.Frame{
		PacketType: avctp.PacketSingle, PID: avrcpPID(), CR: avctp.Command,
		Code: avctp.CodeControl, SubunitType: avctp.SubunitPanel, Opcode: avctp.OpcodeVendorDependent,
		Operands: []byte{0x00, 0x00, 0x01}, // not BT-SIG
	}
	resp, ok := Dispatch(f, d)
	require.True(t, ok)
	assert.Equal(t, avctp.CodeNotImplemented, resp.Code)
}

func TestDispatchOtherCommandRejected(t *testing.T) {
	d, _ := newDeps()
	f := avctp.Frame{
		PacketType: avctp.PacketSingle, PID: avrcpPID(), CR: avctp.Command,
		Code: avctp.CodeControl, SubunitType: avctp.SubunitUnit, Opcode: 0x00,
	}
	resp, ok := Dispatch(f, d)
	require.True(t, ok)
	assert.Equal(t, avctp.CodeRejected, resp.Code)
}

func avrcpPID() uint16 { return AVRemoteSvclassID }
