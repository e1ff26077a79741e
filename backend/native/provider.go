// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// halProvider is implemented by device providers that can hand out the
// underlying HAL objects (gogpu's App does).
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider creates a HALDevice sharing the GPU device of an external
// provider, such as a gogpu window. The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
// The provider keeps ownership of the device; the returned HALDevice
// only manages the resources it creates.
func FromProvider(provider gpucontext.DeviceProvider) (*HALDevice, error) {
	if provider == nil {
		return nil, ErrNilDevice
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T, not hal.Device", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T, not hal.Queue", ErrNoHAL, hp.HalQueue())
	}

	d, err := NewHALDevice(device, queue)
	if err != nil {
		return nil, err
	}

	info := provider.AdapterInfo()
	slogger().Info("batch2d: bridged provider device",
		"adapter", info.Name,
		"type", info.Type.String(),
		"surfaceFormat", provider.SurfaceFormat().String(),
	)
	return d, nil
}
