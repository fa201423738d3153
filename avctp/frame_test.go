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

package avctp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrameTooShort(t *testing.T) {
	_, err := DecodeFrame([]byte{0x02, 0x11, 0x0e})
	require.ErrorIs(t, err, ErrTooShort)
}

func TestDecodeEncodeFrameRoundTrip(t *testing.T) {
	cases := [][]byte{
		// UNITINFO query, scenario (b) of the AVRCP/AVCTP spec.
		{0x00, 0x11, 0x0e, 0x01, 0x48, 0x30, 0xff, 0xff, 0xff, 0xff, 0xff},
		// UNITINFO response.
		{0x02, 0x11, 0x0e, 0x0c, 0x48, 0x30, 0x07, 0x48, 0xff, 0xff, 0xff, 0xff},
		// PASSTHROUGH press, operands = 44 00.
		{0x00, 0x11, 0x0e, 0x00, 0x48, 0x7c, 0x44, 0x00},
	}

	for i, b := range cases {
		f, err := DecodeFrame(b)
		require.NoError(t, err, "case %d", i)
		got := EncodeFrame(f)
		assert.Equal(t, b, got, "case %d", i)
	}
}

func TestDecodeFrameFields(t *testing.T) {
	// AVCTP `00 11 0E` + AVRCP `01 48 30 FF FF FF FF FF`.
	b := []byte{0x00, 0x11, 0x0e, 0x01, 0x48, 0x30, 0xff, 0xff, 0xff, 0xff, 0xff}
	f, err := DecodeFrame(b)
	require.NoError(t, err)

	assert.Equal(t, uint8(0), f.Transaction)
	assert.Equal(t, PacketSingle, f.PacketType)
	assert.Equal(t, Command, f.CR)
	assert.False(t, f.IPID)
	assert.Equal(t, uint16(0x110e), f.PID)
	assert.Equal(t, CodeStatus, f.Code)
	assert.Equal(t, SubunitPanel, f.SubunitType)
	assert.Equal(t, uint8(0), f.SubunitID)
	assert.Equal(t, OpcodeUnitInfo, f.Opcode)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff}, f.Operands)
}

func TestEncodeFrameResponse(t *testing.T) {
	f := Frame{
		Transaction: 0,
		PacketType:  PacketSingle,
		CR:          Response,
		IPID:        false,
		PID:         0x110e,
		Code:        CodeStable,
		SubunitType: SubunitPanel,
		SubunitID:   0,
		Opcode:      OpcodeUnitInfo,
		Operands:    []byte{0x07, 0x48, 0xff, 0xff, 0xff, 0xff},
	}
	got := EncodeFrame(f)
	want := []byte{0x02, 0x11, 0x0e, 0x0c, 0x48, 0x30, 0x07, 0x48, 0xff, 0xff, 0xff, 0xff}
	assert.Equal(t, want, got)
}
