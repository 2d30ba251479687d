//go:build !linux

package source

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// EvdevSource is only implemented on Linux.
type EvdevSource struct{}

func NewEvdevSource(devicePath string, deviceW, deviceH float64, onMotion MotionHandler, logger *zap.Logger) *EvdevSource {
	return &EvdevSource{}
}

func (s *EvdevSource) Run(ctx context.Context) error {
	return errors.New("evdev touch source is only available on linux")
}
