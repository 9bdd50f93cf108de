package gltfutils

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// GLTFCacher carries one document and the entities already written to
// it, keyed by scene entity name.
type GLTFCacher struct {
	Doc *gltf.Document
	c   map[string]interface{}
}

func NewCacher() *GLTFCacher {
	return &GLTFCacher{
		Doc: gltf.NewDocument(),
		c:   make(map[string]interface{}),
	}
}

func (gc *GLTFCacher) AddCache(key string, d interface{}) {
	gc.c[key] = d
}

func (gc *GLTFCacher) GetCached(key string) interface{} {
	if v, e := gc.c[key]; e {
		return v
	}
	return nil
}

func (gc *GLTFCacher) GetCachedOr(key string, gen func() interface{}) interface{} {
	if v, e := gc.c[key]; e {
		return v
	}
	v := gen()
	gc.c[key] = v
	return v
}

// AddSceneRoot hangs an already appended node off the default scene.
func AddSceneRoot(doc *gltf.Document, node uint32) {
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, node)
}

// WriteMatrices stores mat4 accessor data the modeler package has no
// helper for. Used for inverse bind matrices.
func WriteMatrices(doc *gltf.Document, matrices []mgl32.Mat4) uint32 {
	data := make([]byte, 0, len(matrices)*16*4)
	var scratch [4]byte
	for _, m := range matrices {
		for i := 0; i < 16; i++ {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(m[i]))
			data = append(data, scratch[:]...)
		}
	}

	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, new(gltf.Buffer))
	}
	buffer := doc.Buffers[0]
	for len(buffer.Data)%4 != 0 {
		buffer.Data = append(buffer.Data, 0)
	}
	offset := uint32(len(buffer.Data))
	buffer.Data = append(buffer.Data, data...)
	buffer.ByteLength = uint32(len(buffer.Data))

	doc.BufferViews = append(doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: uint32(len(data)),
	})
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(uint32(len(doc.BufferViews) - 1)),
		ComponentType: gltf.ComponentFloat,
		Count:         uint32(len(matrices)),
		Type:          gltf.AccessorMat4,
	})
	return uint32(len(doc.Accessors) - 1)
}

// ExportBinary writes the document as one glb blob.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// ExportText writes readable gltf json with the buffer embedded, the
// encoder leaves data urls alone.
func ExportText(w io.Writer, doc *gltf.Document) error {
	for _, buffer := range doc.Buffers {
		if buffer.URI == "" && len(buffer.Data) > 0 {
			buffer.EmbeddedResource()
		}
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = false
	return encoder.Encode(doc)
}
