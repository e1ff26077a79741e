// Package material provides the materials consumed by the 2D batcher.
//
// A [Material] is an effect name plus one or more [Pass] values. Passes
// expose sampled-texture properties by name ("mainTexture", "texture0"
// ... "texture7") and record the textures and samplers bound to them.
// Effects whose name contains [MultiplexMarker] sample up to
// [MultiplexSlots] textures selected per vertex.
//
// [Library] creates the built-in descriptor set layouts and materials,
// including the stencil clear material used for masks.
package material
