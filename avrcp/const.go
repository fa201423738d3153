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

// Package avrcp implements the AVCTP/AVRCP request dispatcher: the
// command classifier, Metadata Transfer PDU handlers and response
// constructor that sit between a Session's I/O pump and the process
// wide player.Facade.
package avrcp

// Well-known profile identifiers (Bluetooth SIG assigned numbers).
const (
	PSM                     uint16 = 0x0017
	AVRemoteSvclassID       uint16 = 0x110E
	AVRemoteTargetSvclassID uint16 = 0x110C
	AVCTPVersion            uint16 = 0x0103
	AVRCPVersion            uint16 = 0x0100
	FeaturesBitmap          uint16 = 0x000F
)

// Passthrough opcodes (AV/C Panel subunit, operation_id byte low 7
// bits), Table 9.21 of AVRCP 1.3.
const (
	OpPlay     uint8 = 0x44
	OpStop     uint8 = 0x45
	OpPause    uint8 = 0x46
	OpRewind   uint8 = 0x48
	OpFastFwd  uint8 = 0x49
	OpForward  uint8 = 0x4B
	OpBackward uint8 = 0x4C
	OpVolumeUp   uint8 = 0x41
	OpVolumeDown uint8 = 0x42
)

// Metadata Transfer PDU identifiers.
const (
	PduGetCapabilities               uint8 = 0x10
	PduListPlayerSettingAttributes   uint8 = 0x11
	PduListPlayerSettingValues       uint8 = 0x12
	PduGetCurrentPlayerSettingValue  uint8 = 0x13
	PduSetPlayerSettingValue         uint8 = 0x14
	PduGetPlayerSettingAttributeText uint8 = 0x15
	PduGetPlayerSettingValueText     uint8 = 0x16
	PduInformDisplayableCharset      uint8 = 0x17
	PduInformBattStatusOfCT          uint8 = 0x18
	PduGetElementAttributes          uint8 = 0x20
	PduGetPlayStatus                 uint8 = 0x30
	PduRegisterNotification          uint8 = 0x31
)

// GET_CAPABILITIES capability-id selectors.
const (
	CapCompanyID       uint8 = 0x2
	CapEventsSupported uint8 = 0x3
)

// Notification event IDs (subset this profile supports).
const (
	EventPlaybackStatusChanged uint8 = 0x01
	EventTrackChanged          uint8 = 0x02
	EventTrackReachedEnd       uint8 = 0x03
)

// Player Application Setting attribute IDs.
const (
	AttrEqualizer uint8 = 0x01
	AttrRepeat    uint8 = 0x02
	AttrShuffle   uint8 = 0x03
	AttrScan      uint8 = 0x04
)

// Repeat attribute values.
const (
	RepeatOff    uint8 = 0x1
	RepeatSingle uint8 = 0x2
	RepeatGroup  uint8 = 0x3
	RepeatAll    uint8 = 0x4
)

// Shuffle/Scan attribute values.
const (
	ValueOff   uint8 = 0x1
	ValueGroup uint8 = 0x2
)

// Element attribute IDs for GET_ELEMENT_ATTRIBUTES (AVRCP Table 6.13).
const (
	AttrTitle    uint32 = 0x1
	AttrArtist   uint32 = 0x2
	AttrAlbum    uint32 = 0x3
	AttrNumber   uint32 = 0x4 // track number
	AttrTotal    uint32 = 0x5 // total number of tracks
	AttrGenre    uint32 = 0x6
	AttrPlayTime uint32 = 0x7 // playing time, milliseconds
)

// CharsetUTF8 is the only charset identifier this implementation ever
// returns from GET_ELEMENT_ATTRIBUTES.
const CharsetUTF8 uint16 = 0x6A

// Metadata Transfer error codes.
const (
	ErrInvalidCommand   uint8 = 0x0
	ErrInvalidParam     uint8 = 0x1
	ErrParamNotFound    uint8 = 0x2
	ErrInternalError    uint8 = 0x3
)
