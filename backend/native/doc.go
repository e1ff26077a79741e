// Package native implements gpucore.Device on top of gogpu/wgpu/hal.
//
// [HALDevice] maps gpucore IDs to hal resources the same way for every
// HAL backend (Vulkan, Metal, DX12, GLES, software, noop). Use
// [NewHALDevice] with a device and queue you own, [FromProvider] to share
// the device of a gpucontext.DeviceProvider such as a gogpu window, or
// [NewHeadless] for a GPU-less noop device.
//
//	dev, err := native.NewHeadless()
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	b, err := batch2d.New(dev)
package native
