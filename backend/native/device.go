// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// HALDevice implements gpucore.Device using gogpu/wgpu/hal directly.
// It provides a bridge between the gpucore abstraction and the HAL layer.
//
// Descriptor sets are staged on the CPU: Bind* calls only record the
// resource for a binding, and UpdateDescriptorSet (re)creates the
// hal.BindGroup from the staged records. Input assemblers are pure
// bookkeeping because hal binds vertex and index buffers at draw time.
//
// Thread Safety: HALDevice is safe for concurrent use from multiple goroutines.
// All resource maps are protected by a mutex.
type HALDevice struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	// ID generation
	nextID atomic.Uint64

	// Resource tracking maps gpucore IDs to hal resources
	buffers    map[gpucore.BufferID]*halBuffer
	textures   map[gpucore.TextureID]*halTexture
	samplers   map[gpucore.SamplerID]hal.Sampler
	layouts    map[gpucore.DescriptorSetLayoutID]*halLayout
	sets       map[gpucore.DescriptorSetID]*descriptorSet
	assemblers map[gpucore.InputAssemblerID]gpucore.InputAssemblerDesc
}

type halBuffer struct {
	buf  hal.Buffer
	size uint64
}

type halTexture struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

type halLayout struct {
	layout  hal.BindGroupLayout
	entries []gpucore.LayoutEntry
}

func (l *halLayout) declares(binding uint32) bool {
	for _, e := range l.entries {
		if e.Binding == binding {
			return true
		}
	}
	return false
}

// stagedBinding records the resource bound at one binding slot.
type stagedBinding struct {
	buffer  gpucore.BufferID
	offset  uint64
	size    uint64
	texture gpucore.TextureID
	sampler gpucore.SamplerID
}

type descriptorSet struct {
	layout gpucore.DescriptorSetLayoutID
	staged map[uint32]stagedBinding
	group  hal.BindGroup
}

// NewHALDevice creates a new HALDevice wrapping the given device and queue.
func NewHALDevice(device hal.Device, queue hal.Queue) (*HALDevice, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}

	d := &HALDevice{
		device:     device,
		queue:      queue,
		buffers:    make(map[gpucore.BufferID]*halBuffer),
		textures:   make(map[gpucore.TextureID]*halTexture),
		samplers:   make(map[gpucore.SamplerID]hal.Sampler),
		layouts:    make(map[gpucore.DescriptorSetLayoutID]*halLayout),
		sets:       make(map[gpucore.DescriptorSetID]*descriptorSet),
		assemblers: make(map[gpucore.InputAssemblerID]gpucore.InputAssemblerDesc),
	}

	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)

	return d, nil
}

// newID generates a unique resource ID.
func (d *HALDevice) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// === Buffer Management ===

// CreateBuffer creates a GPU buffer.
func (d *HALDevice) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("nil buffer descriptor")
	}
	if desc.Size == 0 {
		return gpucore.InvalidID, ErrZeroSize
	}

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create buffer: %w", err)
	}

	id := gpucore.BufferID(d.newID())

	d.mu.Lock()
	d.buffers[id] = &halBuffer{buf: buf, size: desc.Size}
	d.mu.Unlock()

	return id, nil
}

// WriteBuffer uploads data to a buffer through the queue.
func (d *HALDevice) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.RLock()
	b, ok := d.buffers[id]
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("buffer %d: %w", id, ErrUnknownResource)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("buffer %d: write of %d bytes at %d exceeds size %d", id, len(data), offset, b.size)
	}
	if len(data) == 0 {
		return nil
	}

	if err := d.queue.WriteBuffer(b.buf, offset, data); err != nil {
		return fmt.Errorf("buffer %d: write: %w", id, err)
	}
	return nil
}

// DestroyBuffer releases a GPU buffer.
func (d *HALDevice) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	if ok {
		delete(d.buffers, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyBuffer(b.buf)
	}
}

// === Texture Management ===

// CreateTexture creates a sampled 2D texture and its default view.
func (d *HALDevice) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("nil texture descriptor")
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, ErrZeroSize
	}

	usage := desc.Usage
	if usage == 0 {
		usage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create texture: %w", err)
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.Label,
		Format:        desc.Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("failed to create texture view: %w", err)
	}

	id := gpucore.TextureID(d.newID())

	d.mu.Lock()
	d.textures[id] = &halTexture{
		tex:    tex,
		view:   view,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}
	d.mu.Unlock()

	return id, nil
}

// WriteTexture uploads texel data covering the whole texture.
func (d *HALDevice) WriteTexture(id gpucore.TextureID, data []byte) error {
	d.mu.RLock()
	t, ok := d.textures[id]
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("texture %d: %w", id, ErrUnknownResource)
	}

	bpp := bytesPerTexel(t.format)
	if bpp == 0 {
		return fmt.Errorf("texture %d: %w: %v", id, ErrUnsupportedFormat, t.format)
	}
	rowBytes := t.width * bpp
	if uint64(len(data)) < uint64(rowBytes)*uint64(t.height) {
		return fmt.Errorf("texture %d: %d bytes is short of %dx%d texels", id, len(data), t.width, t.height)
	}

	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: rowBytes, RowsPerImage: t.height},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("texture %d: write: %w", id, err)
	}
	return nil
}

// DestroyTexture releases a texture and its view.
func (d *HALDevice) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	t, ok := d.textures[id]
	if ok {
		delete(d.textures, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyTextureView(t.view)
		d.device.DestroyTexture(t.tex)
	}
}

// CreateSampler creates a texture sampler.
func (d *HALDevice) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("nil sampler descriptor")
	}

	sampler, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: desc.AddressMode,
		AddressModeV: desc.AddressMode,
		AddressModeW: desc.AddressMode,
		MagFilter:    desc.MagFilter,
		MinFilter:    desc.MinFilter,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
		Anisotropy:   1,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create sampler: %w", err)
	}

	id := gpucore.SamplerID(d.newID())

	d.mu.Lock()
	d.samplers[id] = sampler
	d.mu.Unlock()

	return id, nil
}

// DestroySampler releases a sampler.
func (d *HALDevice) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	s, ok := d.samplers[id]
	if ok {
		delete(d.samplers, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroySampler(s)
	}
}

// === Descriptor Sets ===

// CreateDescriptorSetLayout creates a descriptor set layout.
func (d *HALDevice) CreateDescriptorSetLayout(desc *gpucore.DescriptorSetLayoutDesc) (gpucore.DescriptorSetLayoutID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("nil descriptor set layout descriptor")
	}

	halEntries := make([]gputypes.BindGroupLayoutEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		halEntries[i] = convertLayoutEntry(entry)
	}

	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: halEntries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("failed to create descriptor set layout: %w", err)
	}

	id := gpucore.DescriptorSetLayoutID(d.newID())

	entries := make([]gpucore.LayoutEntry, len(desc.Entries))
	copy(entries, desc.Entries)

	d.mu.Lock()
	d.layouts[id] = &halLayout{layout: layout, entries: entries}
	d.mu.Unlock()

	return id, nil
}

// DestroyDescriptorSetLayout releases a descriptor set layout.
func (d *HALDevice) DestroyDescriptorSetLayout(id gpucore.DescriptorSetLayoutID) {
	d.mu.Lock()
	l, ok := d.layouts[id]
	if ok {
		delete(d.layouts, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyBindGroupLayout(l.layout)
	}
}

// CreateDescriptorSet creates an empty descriptor set for layout.
func (d *HALDevice) CreateDescriptorSet(layout gpucore.DescriptorSetLayoutID) (gpucore.DescriptorSetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.layouts[layout]; !ok {
		return gpucore.InvalidID, fmt.Errorf("descriptor set layout %d: %w", layout, ErrUnknownResource)
	}

	id := gpucore.DescriptorSetID(d.newID())
	d.sets[id] = &descriptorSet{
		layout: layout,
		staged: make(map[uint32]stagedBinding),
	}
	return id, nil
}

// BindBuffer stages a uniform buffer range at binding.
func (d *HALDevice) BindBuffer(set gpucore.DescriptorSetID, binding uint32, buf gpucore.BufferID, offset, size uint64) {
	d.stage(set, binding, stagedBinding{buffer: buf, offset: offset, size: size})
}

// BindTexture stages a texture at binding.
func (d *HALDevice) BindTexture(set gpucore.DescriptorSetID, binding uint32, tex gpucore.TextureID) {
	d.stage(set, binding, stagedBinding{texture: tex})
}

// BindSampler stages a sampler at binding.
func (d *HALDevice) BindSampler(set gpucore.DescriptorSetID, binding uint32, sampler gpucore.SamplerID) {
	d.stage(set, binding, stagedBinding{sampler: sampler})
}

func (d *HALDevice) stage(set gpucore.DescriptorSetID, binding uint32, b stagedBinding) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ds, ok := d.sets[set]; ok {
		ds.staged[binding] = b
	}
}

// UpdateDescriptorSet rebuilds the hal.BindGroup from the staged bindings.
// Bindings declared by the layout but never staged are left out, which
// leaves it to the backend to reject incomplete groups at draw time.
func (d *HALDevice) UpdateDescriptorSet(set gpucore.DescriptorSetID) error {
	d.mu.Lock()
	ds, ok := d.sets[set]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("descriptor set %d: %w", set, ErrUnknownResource)
	}
	layout := d.layouts[ds.layout]
	if layout == nil {
		d.mu.Unlock()
		return fmt.Errorf("descriptor set %d: layout %d: %w", set, ds.layout, ErrUnknownResource)
	}

	bindings := make([]uint32, 0, len(ds.staged))
	for binding := range ds.staged {
		bindings = append(bindings, binding)
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i] < bindings[j] })

	entries := make([]gputypes.BindGroupEntry, 0, len(bindings))
	for _, binding := range bindings {
		if !layout.declares(binding) {
			d.mu.Unlock()
			return fmt.Errorf("descriptor set %d: binding %d not in layout %d", set, binding, ds.layout)
		}
		entry, err := d.convertStagedBinding(binding, ds.staged[binding])
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("descriptor set %d: %w", set, err)
		}
		entries = append(entries, entry)
	}
	old := ds.group
	ds.group = nil
	d.mu.Unlock()

	if old != nil {
		d.device.DestroyBindGroup(old)
	}

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "batch2d-descriptor-set",
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("descriptor set %d: failed to create bind group: %w", set, err)
	}

	d.mu.Lock()
	if cur, ok := d.sets[set]; ok {
		cur.group = group
		group = nil
	}
	d.mu.Unlock()

	// The set was destroyed while the group was being created.
	if group != nil {
		d.device.DestroyBindGroup(group)
	}
	return nil
}

// DestroyDescriptorSet releases a descriptor set and its bind group.
func (d *HALDevice) DestroyDescriptorSet(id gpucore.DescriptorSetID) {
	d.mu.Lock()
	ds, ok := d.sets[id]
	if ok {
		delete(d.sets, id)
	}
	d.mu.Unlock()

	if ok && ds.group != nil {
		d.device.DestroyBindGroup(ds.group)
	}
}

// BindGroup returns the hal.BindGroup realized for a descriptor set,
// or nil if the set has not been updated yet.
func (d *HALDevice) BindGroup(id gpucore.DescriptorSetID) hal.BindGroup {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if ds, ok := d.sets[id]; ok {
		return ds.group
	}
	return nil
}

// === Input Assemblers ===

// CreateInputAssembler records an input assembler description.
func (d *HALDevice) CreateInputAssembler(desc *gpucore.InputAssemblerDesc) (gpucore.InputAssemblerID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("nil input assembler descriptor")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.buffers[desc.VertexBuffer]; !ok {
		return gpucore.InvalidID, fmt.Errorf("vertex buffer %d: %w", desc.VertexBuffer, ErrUnknownResource)
	}
	if desc.IndexBuffer != gpucore.InvalidID {
		if _, ok := d.buffers[desc.IndexBuffer]; !ok {
			return gpucore.InvalidID, fmt.Errorf("index buffer %d: %w", desc.IndexBuffer, ErrUnknownResource)
		}
	}

	record := *desc
	record.Attributes = append([]gpucore.Attribute(nil), desc.Attributes...)

	id := gpucore.InputAssemblerID(d.newID())
	d.assemblers[id] = record
	return id, nil
}

// DestroyInputAssembler forgets an input assembler.
func (d *HALDevice) DestroyInputAssembler(id gpucore.InputAssemblerID) {
	d.mu.Lock()
	delete(d.assemblers, id)
	d.mu.Unlock()
}

// InputAssembler returns the description recorded for id.
func (d *HALDevice) InputAssembler(id gpucore.InputAssemblerID) (gpucore.InputAssemblerDesc, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	desc, ok := d.assemblers[id]
	return desc, ok
}

// === Helpers ===

// convertLayoutEntry converts gpucore.LayoutEntry to gputypes.BindGroupLayoutEntry.
func convertLayoutEntry(entry gpucore.LayoutEntry) gputypes.BindGroupLayoutEntry {
	result := gputypes.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
	}

	switch entry.Type {
	case gpucore.BindingTypeUniformBuffer:
		result.Buffer = &gputypes.BufferBindingLayout{
			Type: gputypes.BufferBindingTypeUniform,
		}
	case gpucore.BindingTypeTexture:
		result.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case gpucore.BindingTypeSampler:
		result.Sampler = &gputypes.SamplerBindingLayout{
			Type: gputypes.SamplerBindingTypeFiltering,
		}
	}

	return result
}

// convertStagedBinding converts a staged binding to a bind group entry.
// Must be called with mu held.
func (d *HALDevice) convertStagedBinding(binding uint32, b stagedBinding) (gputypes.BindGroupEntry, error) {
	result := gputypes.BindGroupEntry{Binding: binding}

	switch {
	case b.buffer != gpucore.InvalidID:
		buf, ok := d.buffers[b.buffer]
		if !ok {
			return result, fmt.Errorf("binding %d: buffer %d: %w", binding, b.buffer, ErrUnknownResource)
		}
		result.Resource = gputypes.BufferBinding{
			Buffer: buf.buf.NativeHandle(),
			Offset: b.offset,
			Size:   b.size,
		}
	case b.texture != gpucore.InvalidID:
		tex, ok := d.textures[b.texture]
		if !ok {
			return result, fmt.Errorf("binding %d: texture %d: %w", binding, b.texture, ErrUnknownResource)
		}
		result.Resource = gputypes.TextureViewBinding{TextureView: tex.view.NativeHandle()}
	case b.sampler != gpucore.InvalidID:
		s, ok := d.samplers[b.sampler]
		if !ok {
			return result, fmt.Errorf("binding %d: sampler %d: %w", binding, b.sampler, ErrUnknownResource)
		}
		result.Resource = gputypes.SamplerBinding{Sampler: s.NativeHandle()}
	default:
		return result, fmt.Errorf("binding %d: empty binding", binding)
	}

	return result, nil
}

// bytesPerTexel returns the texel size of the uncompressed color formats
// the batcher uploads, or 0 for anything else.
func bytesPerTexel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return 4
	default:
		return 0
	}
}

// Stats reports the number of live resources per kind.
type Stats struct {
	Buffers         int
	Textures        int
	Samplers        int
	Layouts         int
	DescriptorSets  int
	InputAssemblers int
}

// Stats returns a snapshot of live resource counts.
func (d *HALDevice) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Stats{
		Buffers:         len(d.buffers),
		Textures:        len(d.textures),
		Samplers:        len(d.samplers),
		Layouts:         len(d.layouts),
		DescriptorSets:  len(d.sets),
		InputAssemblers: len(d.assemblers),
	}
}

// Compile-time interface check.
var _ gpucore.Device = (*HALDevice)(nil)
