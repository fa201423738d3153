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
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/facebook/avrcpd/avctp"
	"github.com/facebook/avrcpd/player"
)

// metadataDispatch handles every Metadata Transfer PDU nested inside a
// BT-SIG vendor-dependent frame. It always returns a fresh response
// Frame built from scratch (never the mutated request buffer).
func metadataDispatch(f avctp.Frame, d Deps) (avctp.Frame, bool) {
	pdu, err := avctp.DecodeMetadata(f.Operands)
	if err != nil {
		return metaResponse(f, avctp.CodeRejected, 0, []byte{ErrInvalidCommand}), true
	}

	if d.Metrics != nil {
		d.Metrics.IncPDU(pdu.PduID)
	}

	switch pdu.PduID {
	case PduGetCapabilities:
		return handleGetCapabilities(f, pdu)
	case PduListPlayerSettingAttributes:
		return handleListPlayerSettingAttributes(f, pdu, d)
	case PduListPlayerSettingValues:
		return handleListPlayerSettingValues(f, pdu, d)
	case PduGetCurrentPlayerSettingValue:
		return handleGetCurrentPlayerSettingValue(f, pdu, d)
	case PduSetPlayerSettingValue:
		return handleSetPlayerSettingValue(f, pdu, d)
	case PduGetElementAttributes:
		return handleGetElementAttributes(f, pdu, d)
	case PduGetPlayStatus:
		return handleGetPlayStatus(f, pdu, d)
	case PduRegisterNotification:
		return handleRegisterNotification(f, pdu, d)
	case PduGetPlayerSettingAttributeText, PduGetPlayerSettingValueText,
		PduInformDisplayableCharset, PduInformBattStatusOfCT:
		return metaResponse(f, avctp.CodeNotImplemented, pdu.PduID, nil), true
	default:
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidCommand}), true
	}
}

func metaResponse(f avctp.Frame, code uint8, pduID uint8, params []byte) avctp.Frame {
	resp := f
	resp.CR = avctp.Response
	resp.Code = code
	resp.Operands = avctp.EncodeMetadata(avctp.MetadataPdu{
		CompanyID:  avctp.CompanyIDBTSIG,
		PduID:      pduID,
		PacketType: 0,
		Parameters: params,
	})
	return resp
}

func handleGetCapabilities(f avctp.Frame, pdu avctp.MetadataPdu) (avctp.Frame, bool) {
	if len(pdu.Parameters) < 1 {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
	switch pdu.Parameters[0] {
	case CapCompanyID:
		body := []byte{CapCompanyID, 1, 0x00, 0x19, 0x58}
		return metaResponse(f, avctp.CodeStable, pdu.PduID, body), true
	case CapEventsSupported:
		body := []byte{CapEventsSupported, 3, EventPlaybackStatusChanged, EventTrackChanged, EventTrackReachedEnd}
		return metaResponse(f, avctp.CodeStable, pdu.PduID, body), true
	default:
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
}

func handleListPlayerSettingAttributes(f avctp.Frame, pdu avctp.MetadataPdu, d Deps) (avctp.Frame, bool) {
	st := d.Player.Snapshot()
	var attrs []byte
	if st.Capabilities.Has(player.CanRepeat) || st.Capabilities.Has(player.CanLoop) {
		attrs = append(attrs, AttrRepeat)
	}
	if st.Capabilities.Has(player.CanShuffle) {
		attrs = append(attrs, AttrShuffle)
	}
	if st.Capabilities.Has(player.CanScan) {
		attrs = append(attrs, AttrScan)
	}

	body := append([]byte{uint8(len(attrs))}, attrs...)
	return metaResponse(f, avctp.CodeStable, pdu.PduID, body), true
}

func handleListPlayerSettingValues(f avctp.Frame, pdu avctp.MetadataPdu, d Deps) (avctp.Frame, bool) {
	if len(pdu.Parameters) < 1 {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
	st := d.Player.Snapshot()

	var values []byte
	switch pdu.Parameters[0] {
	case AttrRepeat:
		if !st.Capabilities.Has(player.CanRepeat) && !st.Capabilities.Has(player.CanLoop) {
			return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
		}
		values = append(values, RepeatOff)
		if st.Capabilities.Has(player.CanRepeat) {
			values = append(values, RepeatSingle)
		}
		if st.Capabilities.Has(player.CanLoop) {
			values = append(values, RepeatGroup)
		}
	case AttrShuffle:
		if !st.Capabilities.Has(player.CanShuffle) {
			return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
		}
		values = []byte{ValueOff, ValueGroup}
	case AttrScan:
		if !st.Capabilities.Has(player.CanScan) {
			return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
		}
		values = []byte{ValueOff, ValueGroup}
	default:
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}

	// (count, values[count]) — the original source's off-by-one in this
	// count is not reproduced here.
	body := append([]byte{uint8(len(values))}, values...)
	return metaResponse(f, avctp.CodeStable, pdu.PduID, body), true
}

func handleGetCurrentPlayerSettingValue(f avctp.Frame, pdu avctp.MetadataPdu, d Deps) (avctp.Frame, bool) {
	if len(pdu.Parameters) < 1 {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
	count := int(pdu.Parameters[0])
	if len(pdu.Parameters) < 1+count {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
	st := d.Player.Snapshot()

	body := []byte{uint8(count)}
	for i := 0; i < count; i++ {
		attr := pdu.Parameters[1+i]
		var value uint8
		switch attr {
		case AttrRepeat:
			switch {
			case st.Repeat:
				value = RepeatSingle
			case st.Endless:
				value = RepeatGroup
			default:
				value = RepeatOff
			}
		case AttrShuffle:
			if st.Shuffle {
				value = ValueGroup
			} else {
				value = ValueOff
			}
		case AttrScan:
			value = ValueOff
		default:
			return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
		}
		body = append(body, attr, value)
	}

	return metaResponse(f, avctp.CodeStable, pdu.PduID, body), true
}

func handleSetPlayerSettingValue(f avctp.Frame, pdu avctp.MetadataPdu, d Deps) (avctp.Frame, bool) {
	if len(pdu.Parameters) < 1 {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
	count := int(pdu.Parameters[0])
	if len(pdu.Parameters) < 1+2*count {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}

	// Exclusive 0..count, unlike the off-by-one inclusive loop in the
	// original source.
	for i := 0; i < count; i++ {
		attr := pdu.Parameters[1+2*i]
		value := pdu.Parameters[2+2*i]

		switch attr {
		case AttrRepeat:
			switch value {
			case RepeatOff:
				_ = d.Player.Set(player.FieldRepeat, false)
				_ = d.Player.Set(player.FieldEndless, false)
			case RepeatSingle:
				if err := d.Player.Set(player.FieldRepeat, true); err != nil {
					return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
				}
				_ = d.Player.Set(player.FieldEndless, false)
			case RepeatGroup:
				if err := d.Player.Set(player.FieldEndless, true); err != nil {
					return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
				}
				_ = d.Player.Set(player.FieldRepeat, false)
			default: // RepeatAll not representable in the facade.
				return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
			}
		case AttrShuffle:
			switch value {
			case ValueOff:
				_ = d.Player.Set(player.FieldShuffle, false)
			case ValueGroup:
				if err := d.Player.Set(player.FieldShuffle, true); err != nil {
					return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
				}
			default:
				return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
			}
		case AttrScan:
			switch value {
			case ValueOff, ValueGroup:
				// Accepted syntactically; scan is not modeled by the
				// facade, so nothing is mutated.
			default:
				return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
			}
		default:
			return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
		}
	}

	return metaResponse(f, avctp.CodeAccepted, pdu.PduID, nil), true
}

func handleGetElementAttributes(f avctp.Frame, pdu avctp.MetadataPdu, d Deps) (avctp.Frame, bool) {
	if len(pdu.Parameters) < 9 {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
	elementID := binary.BigEndian.Uint64(pdu.Parameters[0:8])
	if elementID != 0 {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
	numAttrs := int(pdu.Parameters[8])
	if len(pdu.Parameters) < 9+4*numAttrs {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}

	st := d.Player.Snapshot()
	body := []byte{uint8(numAttrs)}
	for i := 0; i < numAttrs; i++ {
		attrID := binary.BigEndian.Uint32(pdu.Parameters[9+4*i : 13+4*i])
		var value string
		switch attrID {
		case AttrTitle:
			value = st.Title
		case AttrArtist:
			value = st.Artist
		case AttrAlbum:
			value = st.Album
		case AttrNumber:
			value = st.Number
		case AttrTotal:
			// Not tracked by the facade (no playlist/track-count
			// concept); reported as present but empty rather than
			// fabricated.
			value = ""
		case AttrGenre:
			value = st.Genre
		case AttrPlayTime:
			value = strconv.FormatUint(uint64(st.TotalLengthMs), 10)
		default:
			return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
		}

		entry := make([]byte, 4+2+2+len(value))
		binary.BigEndian.PutUint32(entry[0:4], attrID)
		binary.BigEndian.PutUint16(entry[4:6], CharsetUTF8)
		binary.BigEndian.PutUint16(entry[6:8], uint16(len(value)))
		copy(entry[8:], value)
		body = append(body, entry...)
	}

	return metaResponse(f, avctp.CodeStable, pdu.PduID, body), true
}

func handleGetPlayStatus(f avctp.Frame, pdu avctp.MetadataPdu, d Deps) (avctp.Frame, bool) {
	st := d.Player.Snapshot()

	body := make([]byte, 9)
	binary.BigEndian.PutUint32(body[0:4], st.TotalLengthMs)
	binary.BigEndian.PutUint32(body[4:8], 0xFFFFFFFF) // position is not tracked
	body[8] = playStatusByte(st.PlayState)

	return metaResponse(f, avctp.CodeStable, pdu.PduID, body), true
}

// handleRegisterNotification answers REGISTER_NOTIFICATION with an
// immediate INTERIM response carrying the current value, and records
// the registration on Deps.Notify so the Session can push a
// spontaneous CHANGED frame later, once the registered event fires.
// This supplements the base PDU set: it is not required by the
// core spec but rounds out the GET_CAPABILITIES / EVENTS_SUPPORTED
// advertisement with the registration half of the handshake.
func handleRegisterNotification(f avctp.Frame, pdu avctp.MetadataPdu, d Deps) (avctp.Frame, bool) {
	if len(pdu.Parameters) < 1 {
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}
	eventID := pdu.Parameters[0]
	st := d.Player.Snapshot()

	var body []byte
	switch eventID {
	case EventPlaybackStatusChanged:
		body = []byte{eventID, playStatusByte(st.PlayState)}
	case EventTrackChanged:
		body = make([]byte, 9)
		body[0] = eventID
		if st.Title == "" && st.Artist == "" {
			for i := 1; i < len(body); i++ {
				body[i] = 0xFF
			}
		}
	default:
		return metaResponse(f, avctp.CodeRejected, pdu.PduID, []byte{ErrInvalidParam}), true
	}

	if d.Notify != nil {
		d.Notify.RegisterInterim(eventID)
	}

	return metaResponse(f, avctp.CodeInterim, pdu.PduID, body), true
}

// PlayStatusByte converts a player.PlayState to the wire byte used by
// GET_PLAY_STATUS and by REGISTER_NOTIFICATION's playback-status event
// body. Exported so session.Session can reuse it when pushing a
// spontaneous CHANGED notification.
func PlayStatusByte(ps player.PlayState) uint8 { return playStatusByte(ps) }

func playStatusByte(ps player.PlayState) uint8 {
	switch ps {
	case player.Stopped:
		return 0x00
	case player.Playing:
		return 0x01
	case player.Paused:
		return 0x02
	case player.FwdSeek:
		return 0x03
	case player.RevSeek:
		return 0x04
	case player.Error:
		return 0xFF
	default:
		panic(fmt.Sprintf("avrcp: unhandled play state %d", ps))
	}
}
