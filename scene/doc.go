// Package scene provides the scene graph consumed by 2D batching.
//
// A Node tree carries transforms, opacity and visibility layers. A node
// may own a RenderEntity, whose ordered DrawInfo records describe what
// it draws. Component draws place their vertices in a shared MeshBuffer
// and append indices to it every frame; consecutive compatible draws then
// cover one contiguous index range and can be submitted as one batch.
//
// Example:
//
//	mb, _ := scene.NewMeshBuffer(dev, scene.MeshBufferDesc{Label: "ui"})
//	root := scene.NewNode("root")
//	sprite := scene.NewNode("sprite")
//	root.AddChild(sprite)
//
//	draw := scene.NewDrawInfo(scene.DrawComponent)
//	draw.SetRenderState(mat, tex, sampler)
//	_ = draw.SetQuads(mb, corners, uvs, []uint16{0, 1, 2, 2, 1, 3})
//
//	e := scene.NewRenderEntity(scene.EntityStatic)
//	e.AddDrawInfo(draw)
//	sprite.SetEntity(e)
package scene
