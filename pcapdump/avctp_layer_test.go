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

package pcapdump

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/require"

	"github.com/facebook/avrcpd/avctp"
)

func writeCapture(t *testing.T, path string, frames ...avctp.Frame) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for _, fr := range frames {
		b := avctp.EncodeFrame(fr)
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(b),
			Length:        len(b),
		}, b))
	}
}

func TestReadFramesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcap")
	want := avctp.Frame{
		Transaction: 3,
		PacketType:  avctp.PacketSingle,
		CR:          avctp.Command,
		PID:         0x110E,
		Code:        avctp.CodeControl,
		SubunitType: avctp.SubunitPanel,
		Opcode:      avctp.OpcodePassthrough,
		Operands:    []byte{0x44, 0x00},
	}
	writeCapture(t, path, want)

	got, err := ReadFrames(path, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, want, got[0])
}

func TestReadFramesSkipsHeaderBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcap")
	want := avctp.Frame{
		Transaction: 1,
		PacketType:  avctp.PacketSingle,
		CR:          avctp.Response,
		PID:         0x110E,
		Code:        avctp.CodeAccepted,
		SubunitType: avctp.SubunitPanel,
		Opcode:      avctp.OpcodePassthrough,
	}
	prefixed := append([]byte{0xAA, 0xBB, 0xCC}, avctp.EncodeFrame(want)...)

	f, err := os.Create(path)
	require.NoError(t, err)
	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(prefixed),
		Length:        len(prefixed),
	}, prefixed))
	require.NoError(t, f.Close())

	got, err := ReadFrames(path, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, want, got[0])
}
