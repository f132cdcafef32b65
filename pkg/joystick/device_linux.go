//go:build linux

package joystick

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	jsiocgname uint = 0x80ff6a13

	jsEventButton uint8 = 0x01
	jsEventAxis   uint8 = 0x02
	jsEventInit   uint8 = 0x80
)

// jsEvent is struct js_event of linux/joystick.h.
type jsEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type device struct {
	file *os.File
	name string
}

// Open opens /dev/input/js<index>.
func Open(index int) (Device, error) {
	f, err := os.OpenFile(fmt.Sprintf("/dev/input/js%d", index), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	d := &device{file: f}
	var buf [256]byte
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(jsiocgname), uintptr(unsafe.Pointer(&buf))); errno != 0 {
		f.Close()
		return nil, errno
	}
	if pos := bytes.IndexByte(buf[:], 0); pos >= 0 {
		d.name = string(buf[:pos])
	} else {
		d.name = string(buf[:])
	}
	return d, nil
}

// DetectAndOpen opens the first available device from startIndex.
func DetectAndOpen(startIndex int) (Device, error) {
	for index := startIndex; index < 32; index++ {
		d, err := Open(index)
		if err == nil {
			return d, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, fs.ErrNotExist
}

func (d *device) Close() error {
	return d.file.Close()
}

func (d *device) Name() string {
	return d.name
}

func (d *device) ReadEvent() (Event, error) {
	var ev jsEvent
	if err := binary.Read(d.file, binary.LittleEndian, &ev); err != nil {
		return Event{}, err
	}
	return decodeEvent(ev), nil
}

func decodeEvent(ev jsEvent) Event {
	e := Event{Index: int(ev.Number), Value: int(ev.Value), Init: ev.Type&jsEventInit != 0}
	switch ev.Type &^ jsEventInit {
	case jsEventButton:
		e.Kind = EventButton
	case jsEventAxis:
		e.Kind = EventAxis
	}
	return e
}
