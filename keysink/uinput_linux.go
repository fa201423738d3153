//go:build linux

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

package keysink

import (
	"encoding/binary"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Linux uinput ioctl numbers and event codes (linux/uinput.h,
// linux/input-event-codes.h). These are not exported by x/sys/unix, so
// they are reproduced here the way a device driver shim would.
const (
	uiSetEvBit  = 0x40045564
	uiSetKeyBit = 0x40045565
	uiDevCreate = 0x5501
	uiDevDestroy = 0x5502

	evSyn = 0x00
	evKey = 0x01
	synReport = 0
)

const uinputMaxNameSize = 80

// uinputUserDev mirrors struct uinput_user_dev.
type uinputUserDev struct {
	Name        [uinputMaxNameSize]byte
	ID          uinputID
	EffectsMax  uint32
	AbsMax      [64]int32
	AbsMin      [64]int32
	AbsFuzz     [64]int32
	AbsFlat     [64]int32
}

type uinputID struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// inputEvent mirrors struct input_event on 64-bit Linux.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// UinputSink delivers key events through /dev/uinput, the same
// mechanism BlueZ's own input plugin uses to inject panel key presses
// into the host input layer.
type UinputSink struct {
	f *os.File
}

// OpenUinput creates and registers a virtual keyboard device capable of
// emitting every code in the KeyMapping table. The caller owns the
// returned Sink and must Close it when the owning Session leaves
// Connected.
func OpenUinput() (*UinputSink, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("keysink: open /dev/uinput: %w", err)
	}

	keys := []uint16{KeyPlayCD, KeyStopCD, KeyPauseCD, KeyNextSong, KeyPreviousSong, KeyRewind, KeyFastForward}

	if err := ioctlSetInt(f.Fd(), uiSetEvBit, evKey); err != nil {
		f.Close()
		return nil, fmt.Errorf("keysink: UI_SET_EVBIT: %w", err)
	}
	for _, k := range keys {
		if err := ioctlSetInt(f.Fd(), uiSetKeyBit, uintptr(k)); err != nil {
			f.Close()
			return nil, fmt.Errorf("keysink: UI_SET_KEYBIT(%d): %w", k, err)
		}
	}

	var dev uinputUserDev
	copy(dev.Name[:], "avrcpd virtual remote")
	dev.ID = uinputID{BusType: 0x06 /* BUS_VIRTUAL */, Vendor: 0x1, Product: 0x1, Version: 1}

	if err := binary.Write(f, binary.LittleEndian, dev); err != nil {
		f.Close()
		return nil, fmt.Errorf("keysink: write uinput_user_dev: %w", err)
	}

	if err := ioctlVoid(f.Fd(), uiDevCreate); err != nil {
		f.Close()
		return nil, fmt.Errorf("keysink: UI_DEV_CREATE: %w", err)
	}

	return &UinputSink{f: f}, nil
}

// Deliver writes a key event followed by a SYN_REPORT.
func (s *UinputSink) Deliver(keyCode uint16, pressed bool) {
	value := int32(0)
	if pressed {
		value = 1
	}
	if err := s.write(evKey, keyCode, value); err != nil {
		log.Warningf("keysink: write key event: %v", err)
		return
	}
	if err := s.write(evSyn, synReport, 0); err != nil {
		log.Warningf("keysink: write syn event: %v", err)
	}
}

func (s *UinputSink) write(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	return binary.Write(s.f, binary.LittleEndian, ev)
}

// Close destroys the virtual device and releases the fd.
func (s *UinputSink) Close() error {
	_ = ioctlVoid(s.f.Fd(), uiDevDestroy)
	return s.f.Close()
}

func ioctlSetInt(fd uintptr, req uint, value uintptr) error {
	return unix.IoctlSetInt(int(fd), uint(req), int(value))
}

func ioctlVoid(fd uintptr, req uint) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
