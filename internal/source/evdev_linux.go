//go:build linux

package source

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// inputEvent mirrors struct input_event on 64-bit kernels.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const inputEventSize = int(unsafe.Sizeof(inputEvent{}))

// absInfo mirrors struct input_absinfo.
type absInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// EVIOCGABS(code): _IOR('E', 0x40+code, struct input_absinfo)
func eviocgabs(code uint16) uintptr {
	return uintptr(0x80184540 + uint32(code))
}

// EvdevSource reads the kernel multitouch protocol-B stream from one input
// device and feeds synthesized motion events to the handler. The handler's
// suppression answer has no platform to go back to here, so it is recorded
// and otherwise discarded.
type EvdevSource struct {
	devicePath string
	deviceW    float64
	deviceH    float64
	onMotion   MotionHandler
	logger     *zap.Logger
}

// NewEvdevSource creates a source for devicePath (for example
// /dev/input/event2). The device's absolute axis ranges are mapped onto a
// deviceW x deviceH coordinate space.
func NewEvdevSource(devicePath string, deviceW, deviceH float64, onMotion MotionHandler, logger *zap.Logger) *EvdevSource {
	return &EvdevSource{
		devicePath: devicePath,
		deviceW:    deviceW,
		deviceH:    deviceH,
		onMotion:   onMotion,
		logger:     logger.Named("evdev"),
	}
}

// Run opens the device and pumps events until the context is cancelled.
func (s *EvdevSource) Run(ctx context.Context) error {
	fd, err := unix.Open(s.devicePath, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.devicePath, err)
	}

	// The fd is closed exactly once, whichever comes first: the read loop
	// returning, or cancellation unblocking a pending read. Without the
	// Once, a late close could hit a reused descriptor number.
	var closeOnce sync.Once
	closeFd := func() {
		closeOnce.Do(func() { unix.Close(fd) })
	}
	defer closeFd()

	go func() {
		<-ctx.Done()
		closeFd()
	}()

	tr := newTracker(s.deviceW, s.deviceH,
		s.axisRange(fd, absMTPositionX),
		s.axisRange(fd, absMTPositionY),
		s.axisRange(fd, absMTPressure),
		s.axisRange(fd, absMTTouchMajor),
	)

	s.logger.Info("reading touch device", zap.String("device", s.devicePath))

	buf := make([]byte, 64*inputEventSize)
	for {
		n, err := unix.Read(fd, buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("read %s: %w", s.devicePath, err)
		}
		if n%inputEventSize != 0 {
			return fmt.Errorf("partial event read from %s (%d bytes)", s.devicePath, n)
		}

		for off := 0; off < n; off += inputEventSize {
			ev := (*inputEvent)(unsafe.Pointer(&buf[off]))
			if ev.Type == evSyn && ev.Code == synReport {
				timeMs := ev.Sec*1000 + ev.Usec/1000
				for _, sample := range tr.commit(timeMs) {
					s.onMotion(sample)
				}
				continue
			}
			tr.apply(ev.Type, ev.Code, ev.Value)
		}
	}
}

// axisRange queries one absolute axis; devices without the axis yield an
// invalid (zero) range which the tracker treats as "not reported".
func (s *EvdevSource) axisRange(fd int, code uint16) absRange {
	var info absInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), eviocgabs(code), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return absRange{}
	}
	return absRange{min: info.Minimum, max: info.Maximum}
}
