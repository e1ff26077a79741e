// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Headless is a HALDevice running on the noop HAL backend. It accepts
// every call and keeps no GPU state, which makes it suitable for tools
// and tests that exercise batching without a GPU or window.
type Headless struct {
	*HALDevice

	instance hal.Instance
	device   hal.Device
}

// NewHeadless opens the first noop adapter and wraps it in a HALDevice.
func NewHeadless() (*Headless, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("noop instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("noop: no adapters")
	}

	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("noop open: %w", err)
	}

	d, err := NewHALDevice(open.Device, open.Queue)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}

	slogger().Debug("batch2d: headless device opened", "adapter", adapters[0].Info.Name)
	return &Headless{HALDevice: d, instance: instance, device: open.Device}, nil
}

// Close destroys the noop device and instance.
func (h *Headless) Close() {
	h.device.Destroy()
	h.instance.Destroy()
}
