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

// Package pcapdump decodes AVCTP/AVRCP frames out of a capture file,
// for offline inspection of a session recorded with a Bluetooth
// monitor (e.g. "btmon -w"). It is a diagnostic tool, not part of the
// daemon's live path: avrcpd never reads pcap files itself.
package pcapdump

import (
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/facebook/avrcpd/avctp"
)

// LayerAVCTP wraps one decoded avctp.Frame as a gopacket layer, the
// same wrapper shape pshark's LayerPTP uses for PTP packets.
type LayerAVCTP struct {
	layers.BaseLayer
	Frame avctp.Frame
}

// LayerTypeAVCTP is registered once at package init.
var LayerTypeAVCTP = gopacket.RegisterLayerType(
	4321,
	gopacket.LayerTypeMetadata{
		Name:    "AVCTP",
		Decoder: gopacket.DecodeFunc(decodeAVCTP),
	},
)

// LayerType implements gopacket.Layer.
func (l *LayerAVCTP) LayerType() gopacket.LayerType { return LayerTypeAVCTP }

// Payload implements gopacket.ApplicationLayer: AVCTP is always the
// innermost layer for this profile, so there is none.
func (l *LayerAVCTP) Payload() []byte { return nil }

func decodeAVCTP(data []byte, p gopacket.PacketBuilder) error {
	f, err := avctp.DecodeFrame(data)
	if err != nil {
		return fmt.Errorf("decoding AVCTP frame: %w", err)
	}
	l := &LayerAVCTP{BaseLayer: layers.BaseLayer{Contents: data}, Frame: f}
	p.AddLayer(l)
	p.SetApplicationLayer(l)
	return nil
}

// packetHandle abstracts the handle types pcapgo.Reader and
// pcapgo.NewNgReader return, mirroring pshark's packetHandle.
type packetHandle interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// openHandle opens path, trying the pcapng reader first and falling
// back to the legacy pcap reader, the same sequencing pshark uses
// since a capture's exact format is not known ahead of reading it.
func openHandle(f *os.File) (packetHandle, error) {
	h, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if err == nil {
		return h, nil
	}
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		return nil, fmt.Errorf("seeking: %w", serr)
	}
	return pcapgo.NewReader(f)
}

// ReadFrames decodes every AVCTP frame recorded in the capture file
// at path. skip bytes are dropped from the front of each packet's raw
// bytes before AVCTP decoding starts, to get past whatever HCI/L2CAP
// framing the capture tool wrote ahead of the AVCTP payload.
func ReadFrames(path string, skip int) ([]avctp.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	handle, err := openHandle(f)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	var frames []avctp.Frame
	src := gopacket.NewPacketSource(rawLinkSource{handle, skip}, LayerTypeAVCTP)
	src.DecodeOptions = gopacket.DecodeOptions{SkipDecodeRecovery: true}
	for packet := range src.Packets() {
		if l := packet.Layer(LayerTypeAVCTP); l != nil {
			frames = append(frames, l.(*LayerAVCTP).Frame)
		}
	}
	return frames, nil
}

// rawLinkSource re-registers every packet's link type as AVCTP
// directly: unlike pshark's PTP-over-UDP traffic, a Bluetooth monitor
// capture has no IP/UDP stack to unwrap first, so the packet's raw
// bytes (after skip) are handed straight to decodeAVCTP.
type rawLinkSource struct {
	packetHandle
	skip int
}

func (r rawLinkSource) ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error) {
	data, ci, err = r.packetHandle.ReadPacketData()
	if err != nil {
		return nil, ci, err
	}
	if r.skip >= len(data) {
		return nil, ci, fmt.Errorf("pcapdump: skip %d exceeds packet length %d", r.skip, len(data))
	}
	return data[r.skip:], ci, nil
}
