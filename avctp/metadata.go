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
	"encoding/binary"
	"fmt"
)

// CompanyIDBTSIG is the 24-bit company ID that marks a vendor-dependent
// AV/C payload as carrying an AVRCP Metadata Transfer PDU rather than a
// proprietary vendor extension.
const CompanyIDBTSIG uint32 = 0x001958

// minMetaLen is the minimum number of operand bytes needed to decode a
// metadata PDU: 3 bytes company ID + 4 bytes metadata header.
const minMetaLen = 7

// ErrMetaTooShort is returned by DecodeMetadata when the operands are
// too short to contain a company ID and metadata header.
var ErrMetaTooShort = fmt.Errorf("avctp: vendor-dependent operands shorter than %d bytes", minMetaLen)

// ErrMetaTruncated is returned when parameter_length claims more body
// bytes than are actually present.
var ErrMetaTruncated = fmt.Errorf("avctp: metadata parameter_length exceeds operand length")

// MetadataPdu is the parsed body of a vendor-dependent AVRCP Metadata
// Transfer payload, as nested inside a VENDORDEPENDENT AV/C frame.
type MetadataPdu struct {
	CompanyID  uint32 // 24 bits, upper byte always zero
	PduID      uint8
	PacketType uint8 // 2 bits
	Parameters []byte
}

// DecodeCompanyID reads the 24-bit big-endian company ID occupying the
// first 3 operand bytes. The bytes are extracted with explicit shifts,
// not a mask-without-shift, so the value is correct on any host.
func DecodeCompanyID(operands []byte) (uint32, error) {
	if len(operands) < 3 {
		return 0, ErrMetaTooShort
	}
	return uint32(operands[0])<<16 | uint32(operands[1])<<8 | uint32(operands[2]), nil
}

// EncodeCompanyID writes a 24-bit company ID as 3 big-endian bytes.
func EncodeCompanyID(id uint32) [3]byte {
	return [3]byte{
		byte((id >> 16) & 0xFF),
		byte((id >> 8) & 0xFF),
		byte(id & 0xFF),
	}
}

// DecodeMetadata parses a MetadataPdu out of a VENDORDEPENDENT frame's
// operands.
func DecodeMetadata(operands []byte) (MetadataPdu, error) {
	var m MetadataPdu
	if len(operands) < minMetaLen {
		return m, ErrMetaTooShort
	}

	companyID, err := DecodeCompanyID(operands[0:3])
	if err != nil {
		return m, err
	}
	m.CompanyID = companyID

	m.PduID = operands[3]
	m.PacketType = (operands[4] >> 6) & 0x03

	paramLen := binary.BigEndian.Uint16(operands[5:7])
	if int(paramLen) > len(operands)-minMetaLen {
		return m, ErrMetaTruncated
	}
	m.Parameters = append([]byte(nil), operands[minMetaLen:minMetaLen+int(paramLen)]...)

	return m, nil
}

// EncodeMetadata serializes a MetadataPdu into operand bytes suitable
// for a VENDORDEPENDENT frame, with m.CompanyID as the 3-byte company
// ID prefix.
func EncodeMetadata(m MetadataPdu) []byte {
	buf := make([]byte, minMetaLen+len(m.Parameters))

	id := EncodeCompanyID(m.CompanyID)
	copy(buf[0:3], id[:])

	buf[3] = m.PduID
	buf[4] = (m.PacketType & 0x03) << 6
	binary.BigEndian.PutUint16(buf[5:7], uint16(len(m.Parameters)))
	copy(buf[minMetaLen:], m.Parameters)

	return buf
}
