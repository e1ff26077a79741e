package batch2d

import (
	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/internal/cache"
	"github.com/gogpu/batch2d/material"
)

// dsKey identifies a shared sprite descriptor set.
type dsKey struct {
	texture gpucore.TextureID
	sampler gpucore.SamplerID
}

// descriptorCache shares one descriptor set per texture and sampler pair
// across batches and frames.
type descriptorCache struct {
	dev  gpucore.Device
	sets *cache.Cache[dsKey, gpucore.DescriptorSetID]
}

func newDescriptorCache(dev gpucore.Device, limit int) *descriptorCache {
	return &descriptorCache{
		dev: dev,
		sets: cache.New(limit, func(_ dsKey, set gpucore.DescriptorSetID) {
			dev.DestroyDescriptorSet(set)
		}),
	}
}

// get returns the set for tex and sampler, creating it with layout on a
// miss. Cached sets are rebound and updated on every use.
func (c *descriptorCache) get(tex gpucore.TextureID, sampler gpucore.SamplerID, layout gpucore.DescriptorSetLayoutID) (gpucore.DescriptorSetID, error) {
	created := false
	set, err := c.sets.GetOrCreate(dsKey{texture: tex, sampler: sampler}, func() (gpucore.DescriptorSetID, error) {
		set, err := c.dev.CreateDescriptorSet(layout)
		if err != nil {
			return gpucore.InvalidID, err
		}
		c.bind(set, tex, sampler)
		if err := c.dev.UpdateDescriptorSet(set); err != nil {
			c.dev.DestroyDescriptorSet(set)
			return gpucore.InvalidID, err
		}
		created = true
		return set, nil
	})
	if err != nil || created {
		return set, err
	}

	c.bind(set, tex, sampler)
	if err := c.dev.UpdateDescriptorSet(set); err != nil {
		return gpucore.InvalidID, err
	}
	return set, nil
}

func (c *descriptorCache) bind(set gpucore.DescriptorSetID, tex gpucore.TextureID, sampler gpucore.SamplerID) {
	if tex == gpucore.InvalidID || sampler == gpucore.InvalidID {
		return
	}
	c.dev.BindTexture(set, material.BindingSpriteTexture, tex)
	c.dev.BindSampler(set, material.BindingSpriteSampler, sampler)
}

// release destroys the set of tex and sampler.
func (c *descriptorCache) release(tex gpucore.TextureID, sampler gpucore.SamplerID) bool {
	return c.sets.Delete(dsKey{texture: tex, sampler: sampler})
}

func (c *descriptorCache) trim() int { return c.sets.Trim() }

func (c *descriptorCache) clear() { c.sets.Clear() }

func (c *descriptorCache) len() int { return c.sets.Len() }
