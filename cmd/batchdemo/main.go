// Command batchdemo builds a synthetic 2D scene on a headless device and
// reports how the batcher merges it.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/batch2d"
	"github.com/gogpu/batch2d/backend/native"
	"github.com/gogpu/batch2d/gpucore"
	"github.com/gogpu/batch2d/material"
	"github.com/gogpu/batch2d/render"
	"github.com/gogpu/batch2d/scene"
)

var (
	quad        = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}
	quadUV      = []mgl32.Vec2{{0, 1}, {1, 1}, {0, 0}, {1, 0}}
	quadIndices = []uint16{0, 1, 2, 2, 1, 3}
)

func main() {
	var (
		sprites   = flag.Int("sprites", 200, "number of sprites")
		textures  = flag.Int("textures", 4, "number of distinct textures")
		frames    = flag.Int("frames", 3, "frames to build")
		masks     = flag.Int("masks", 2, "number of masked groups")
		multiplex = flag.Bool("multiplex", false, "use the texture multiplexing material")
		sorting   = flag.Bool("sort", false, "draw entities in priority order")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	batch2d.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	dev, err := native.NewHeadless()
	if err != nil {
		log.Fatalf("headless device: %v", err)
	}
	defer dev.Close()

	var opts []batch2d.Option
	if *sorting {
		opts = append(opts, batch2d.WithSortingCount(1))
	}
	b, err := batch2d.New(dev, opts...)
	if err != nil {
		log.Fatalf("batcher: %v", err)
	}
	defer b.Close()

	mb, err := scene.NewMeshBuffer(dev, scene.MeshBufferDesc{Label: "demo"})
	if err != nil {
		log.Fatalf("mesh buffer: %v", err)
	}
	defer mb.Destroy()
	b.SyncMeshBuffers(0, []*scene.MeshBuffer{mb})

	texIDs, smp, err := createTextures(dev, max(*textures, 1))
	if err != nil {
		log.Fatalf("textures: %v", err)
	}

	mat := b.Library().Get(material.UISprite)
	if *multiplex {
		mat = b.Library().Get(material.UISpriteMultiplex)
	}

	root := scene.NewNode("canvas")
	root.RenderScene = render.NewScene()
	if err := buildScene(root, mb, mat, texIDs, smp, *sprites, *masks); err != nil {
		log.Fatalf("scene: %v", err)
	}
	if err := b.SyncRootNodes(root); err != nil {
		log.Fatalf("roots: %v", err)
	}

	for frame := range *frames {
		b.Update()
		if err := b.UploadBuffers(); err != nil {
			log.Fatalf("frame %d: upload: %v", frame, err)
		}
		batches := root.RenderScene.BatchCount()
		batch2d.Logger().Info("frame built", "frame", frame, "sprites", *sprites, "batches", batches)
		b.Reset()
		root.ClearChangedFlags()
	}

	s := b.Stats()
	batch2d.Logger().Info("done",
		"frames", s.Frames,
		"poolHighWater", s.PoolHighWater,
		"descriptorSets", s.DescriptorSets,
		"multiplexCycles", s.MultiplexCycles)
}

func createTextures(dev gpucore.Device, n int) ([]gpucore.TextureID, gpucore.SamplerID, error) {
	smp, err := dev.CreateSampler(&gpucore.SamplerDesc{
		Label:       "demo",
		MagFilter:   gputypes.FilterModeLinear,
		MinFilter:   gputypes.FilterModeLinear,
		AddressMode: gputypes.AddressModeClampToEdge,
	})
	if err != nil {
		return nil, gpucore.InvalidID, err
	}
	ids := make([]gpucore.TextureID, n)
	for i := range ids {
		ids[i], err = dev.CreateTexture(&gpucore.TextureDesc{
			Label:  "demo",
			Width:  1,
			Height: 1,
			Format: gputypes.TextureFormatRGBA8Unorm,
		})
		if err != nil {
			return nil, gpucore.InvalidID, err
		}
	}
	return ids, smp, nil
}

// buildScene lays sprites out on a grid, cycling textures every few
// sprites, and wraps the first masks groups in mask nodes.
func buildScene(root *scene.Node, mb *scene.MeshBuffer, mat *material.Material, textures []gpucore.TextureID, smp gpucore.SamplerID, sprites, masks int) error {
	parent := root
	group := max(sprites/(masks+1), 1)
	for i := range sprites {
		if masks > 0 && i > 0 && i%group == 0 && i/group <= masks {
			m := scene.NewNode("mask")
			e, err := newSprite(mb, mat, textures[0], smp, 0)
			if err != nil {
				return err
			}
			e.SetMask(true, false)
			m.SetEntity(e)
			root.AddChild(m)
			parent = m
		}

		n := scene.NewNode("sprite")
		n.SetLocalTransform(mgl32.Translate3D(float32(i%20)*16, float32(i/20)*16, 0).Mul4(mgl32.Scale3D(16, 16, 1)))
		e, err := newSprite(mb, mat, textures[(i/8)%len(textures)], smp, int32(i%3))
		if err != nil {
			return err
		}
		n.SetEntity(e)
		parent.AddChild(n)
	}
	return nil
}

func newSprite(mb *scene.MeshBuffer, mat *material.Material, tex gpucore.TextureID, smp gpucore.SamplerID, priority int32) (*scene.RenderEntity, error) {
	d := scene.NewDrawInfo(scene.DrawComponent)
	if err := d.SetQuads(mb, quad, quadUV, quadIndices); err != nil {
		return nil, err
	}
	d.SetRenderState(mat, tex, smp)
	e := scene.NewRenderEntity(scene.EntityStatic)
	e.SetPriority(priority)
	e.AddDrawInfo(d)
	return e, nil
}
