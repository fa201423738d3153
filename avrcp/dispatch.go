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
	log "github.com/sirupsen/logrus"

	"github.com/facebook/avrcpd/avctp"
	"github.com/facebook/avrcpd/keysink"
	"github.com/facebook/avrcpd/player"
	"github.com/facebook/avrcpd/quirks"
)

// Notifier receives REGISTER_NOTIFICATION bookkeeping. It is
// implemented by session.Session: the Dispatcher stays a pure
// function of (Frame, Deps.Player.Snapshot()), so the asynchronous
// half of event notification (pushing a spontaneous CHANGED frame
// once the registered event actually fires) lives on the Session,
// not here. RegisterInterim only records that an INTERIM response was
// sent for eventID; it never blocks and never produces a frame.
type Notifier interface {
	RegisterInterim(eventID uint8)
}

// PDUCounter receives one increment per dispatched Metadata Transfer
// PDU, keyed by its PDU ID, for the stats surface's "PDUs by id"
// counter (SPEC_FULL §5.5). It is implemented by session.Session as a
// pass-through to the configured Metrics collector.
type PDUCounter interface {
	IncPDU(pduID uint8)
}

// Deps are the collaborators the Dispatcher consults or drives while
// producing a response. Response construction itself stays a pure
// function of (Frame, Deps.Player.Snapshot()); Deps.Sink and
// Deps.Quirks exist so the panel passthrough branch can synthesize
// host key events as a side effect, per the AVRCP panel contract.
type Deps struct {
	Quirks  quirks.Table
	Sink    keysink.Sink
	Player  *player.Facade
	Notify  Notifier   // optional; nil skips the bookkeeping call, REGISTER_NOTIFICATION still answers INTERIM
	Metrics PDUCounter // optional; nil skips the PDU counter
}

// Dispatch classifies an inbound Frame and returns the Frame to send
// back, or ok=false if the frame must be silently dropped. Dispatch
// never returns a Frame with CR=Command: every classification branch
// either answers with CR=Response or drops the frame.
func Dispatch(f avctp.Frame, d Deps) (avctp.Frame, bool) {
	// 1. Fragmented packets are never reassembled, but AVCTP still
	// requires an answer.
	if f.PacketType != avctp.PacketSingle {
		return reject(f, avctp.CodeNotImplemented, false), true
	}

	// 2. Wrong service class: reject with ipid set.
	if f.PID != AVRemoteSvclassID {
		return reject(f, avctp.CodeRejected, true), true
	}

	// 3. Responses to our own outbound commands are absorbed, never
	// answered.
	if f.CR == avctp.Response {
		return avctp.Frame{}, false
	}

	// 4. Panel passthrough.
	if f.Code == avctp.CodeControl && f.SubunitType == avctp.SubunitPanel && f.Opcode == avctp.OpcodePassthrough {
		panelPassthrough(f.Operands, d)
		resp := f
		resp.CR = avctp.Response
		resp.Code = avctp.CodeAccepted
		return resp, true
	}

	// 5. UNITINFO / SUBUNITINFO.
	if f.Code == avctp.CodeStatus && (f.Opcode == avctp.OpcodeUnitInfo || f.Opcode == avctp.OpcodeSubunitInfo) {
		resp := f
		resp.CR = avctp.Response
		resp.Code = avctp.CodeStable
		operands := append([]byte(nil), f.Operands...)
		if len(operands) < 2 {
			operands = make([]byte, 2)
		}
		if f.Opcode == avctp.OpcodeUnitInfo {
			operands[0] = 0x07
		}
		operands[1] = avctp.SubunitPanel << 3
		resp.Operands = operands
		return resp, true
	}

	// 6. Vendor-dependent: only BT-SIG metadata PDUs are understood.
	if (f.Code == avctp.CodeStatus || f.Code == avctp.CodeControl) &&
		f.SubunitType == avctp.SubunitPanel && f.Opcode == avctp.OpcodeVendorDependent {
		if len(f.Operands) < 3 {
			return reject(f, avctp.CodeRejected, false), true
		}
		companyID, err := avctp.DecodeCompanyID(f.Operands[:3])
		if err != nil || companyID != avctp.CompanyIDBTSIG {
			resp := f
			resp.CR = avctp.Response
			resp.Code = avctp.CodeNotImplemented
			return resp, true
		}
		return metadataDispatch(f, d)
	}

	// 7. Anything else.
	return reject(f, avctp.CodeRejected, false), true
}

func reject(f avctp.Frame, code uint8, ipid bool) avctp.Frame {
	resp := f
	resp.CR = avctp.Response
	resp.Code = code
	resp.IPID = ipid
	return resp
}

// panelPassthrough synthesizes key-sink events from a PASSTHROUGH
// operand byte. operands[0] is state<<7 | opcode&0x7F; state=0 is
// press, state=1 is release.
func panelPassthrough(operands []byte, d Deps) {
	if len(operands) == 0 {
		return
	}
	state := operands[0] >> 7
	opcode := operands[0] & 0x7F
	pressed := state == 0

	keyCode, ok := lookupKey(opcode)
	if !ok {
		log.Debugf("avrcp: unsupported passthrough opcode 0x%02x", opcode)
		return
	}

	if d.Quirks.Has(opcode, quirks.NoRelease) {
		if pressed {
			d.Sink.Deliver(keyCode, true)
			d.Sink.Deliver(keyCode, false)
		}
		return
	}

	d.Sink.Deliver(keyCode, pressed)
}
