package exporter

import (
	"log"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/gms_browser/config"
	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/gms/geom"
	"github.com/mogaika/gms_browser/gms/skeleton"
	"github.com/mogaika/gms_browser/gms/skin"
	"github.com/mogaika/gms_browser/utils/gltfutils"
)

type GLTFTextureExported struct {
	SamplerIndex uint32
	ImageIndex   uint32
	TextureIndex uint32
}

type GLTFMaterialExported struct {
	MaterialId uint32
}

type GLTFModelExported struct {
	Skeleton  *skeleton.Skeleton
	BoneNodes []uint32
	SkinIndex *uint32
}

func logDiags(model string, diags []gms.Diagnostic) {
	for _, d := range diags {
		log.Printf("[exporter] %s: %v", model, d)
	}
}

func exportGLTFTexture(gltfCacher *gltfutils.GLTFCacher, tex *gms.Texture) *GLTFTextureExported {
	doc := gltfCacher.Doc
	gte := &GLTFTextureExported{}

	gte.SamplerIndex = uint32(len(doc.Samplers))
	doc.Samplers = append(doc.Samplers, &gltf.Sampler{
		MagFilter: gltf.MagLinear,
		WrapS:     gltf.WrapRepeat,
		WrapT:     gltf.WrapRepeat,
	})

	// dumps reference image files on disk, keep the reference instead
	// of inventing pixel data
	gte.ImageIndex = uint32(len(doc.Images))
	doc.Images = append(doc.Images, &gltf.Image{
		Name: tex.Name,
		URI:  strings.ReplaceAll(tex.FileName, "\\", "/"),
	})

	gte.TextureIndex = uint32(len(doc.Textures))
	doc.Textures = append(doc.Textures, &gltf.Texture{
		Name:    tex.Name,
		Sampler: gltf.Index(gte.SamplerIndex),
		Source:  gltf.Index(gte.ImageIndex),
	})

	return gte
}

func exportGLTFMaterial(m *gms.Model, gltfCacher *gltfutils.GLTFCacher, mat *gms.Material) *GLTFMaterialExported {
	doc := gltfCacher.Doc
	glme := &GLTFMaterialExported{}

	color := new([4]float32)
	*color = [4]float32{1, 1, 1, 1}
	if mat.Diffuse != nil {
		*color = mat.Diffuse.Floats()
	}

	gltfMaterial := &gltf.Material{
		Name:        mat.Name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
		},
	}

	for iLayer := range mat.Layers {
		layer := &mat.Layers[iLayer]
		if layer.TextureName == "" {
			continue
		}
		tex := m.TextureByName(layer.TextureName)
		if tex == nil || tex.FileName == "" {
			log.Printf("[exporter] Material %q layer texture %q has no file behind it", mat.Name, layer.TextureName)
			continue
		}
		gte := gltfCacher.GetCachedOr("texture:"+tex.Name, func() interface{} {
			return exportGLTFTexture(gltfCacher, tex)
		}).(*GLTFTextureExported)

		gltfMaterial.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index: gte.TextureIndex,
		}
		break
	}

	glme.MaterialId = uint32(len(doc.Materials))
	doc.Materials = append(doc.Materials, gltfMaterial)
	return glme
}

func gltfMaterialIndex(m *gms.Model, gltfCacher *gltfutils.GLTFCacher, name string) *uint32 {
	if name == "" {
		return nil
	}
	mat := m.MaterialByName(name)
	if mat == nil {
		log.Printf("[exporter] Mesh references material %q that was never declared", name)
		return nil
	}
	glme := gltfCacher.GetCachedOr("material:"+mat.Name, func() interface{} {
		return exportGLTFMaterial(m, gltfCacher, mat)
	}).(*GLTFMaterialExported)
	return gltf.Index(glme.MaterialId)
}

// vertex attributes become accessors only when the stream covers every
// vertex, short streams from truncated rows are dropped with a note
func gltfGroupAttributes(doc *gltf.Document, va *gms.VertexArray, scale float32) map[string]uint32 {
	verticesCount := len(va.Positions)
	attributes := make(map[string]uint32)

	positions := make([][3]float32, verticesCount)
	for i := range va.Positions {
		positions[i] = va.Positions[i].Mul(scale)
	}
	attributes["POSITION"] = modeler.WritePosition(doc, positions)

	if va.Format.HasNormal {
		if len(va.Normals) == verticesCount {
			normals := make([][3]float32, verticesCount)
			for i, normal := range va.Normals {
				if normal.Len() > 0.5 {
					normal = normal.Normalize()
				}
				normals[i] = normal
			}
			attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
		} else {
			log.Printf("[exporter] Arrays %q normals cover %d of %d vertices, stream dropped",
				va.Name, len(va.Normals), verticesCount)
		}
	}

	if va.Format.HasTexCoord {
		if len(va.UVs) == verticesCount {
			uvs := make([][2]float32, verticesCount)
			for i, uv := range va.UVs {
				uvs[i] = uv
			}
			attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
		} else {
			log.Printf("[exporter] Arrays %q texcoords cover %d of %d vertices, stream dropped",
				va.Name, len(va.UVs), verticesCount)
		}
	}

	if va.Format.HasColor {
		if len(va.Colors) == verticesCount {
			colors := make([][4]uint8, verticesCount)
			for i, color := range va.Colors {
				for c := 0; c < 4; c++ {
					v := color[c]
					if v < 0 {
						v = 0
					} else if v > 1 {
						v = 1
					}
					colors[i][c] = uint8(v*255.0 + 0.5)
				}
			}
			attributes["COLOR_0"] = modeler.WriteColor(doc, colors)
		} else {
			log.Printf("[exporter] Arrays %q colors cover %d of %d vertices, stream dropped",
				va.Name, len(va.Colors), verticesCount)
		}
	}

	return attributes
}

// every bound mesh is skinned in the document, a rigid mesh is full
// weights on its driving bone so vertices follow the bone exactly the
// way unweighted geometry follows it in the source tools
func gltfGroupSkinAttributes(glme *GLTFModelExported, doc *gltf.Document, m *gms.Model,
	mesh *gms.Mesh, va *gms.VertexArray, boneIndexOf map[string]int, attributes map[string]uint32) bool {

	ms, diags := skin.Resolve(m, mesh, &va.Weights, len(va.Positions))
	logDiags(m.Name, diags)
	if ms.Binding == skin.BINDING_NONE {
		return false
	}

	drivingBone := 0
	if idx, ok := boneIndexOf[ms.BoneName]; ok {
		drivingBone = idx
	}

	verticesCount := len(va.Positions)
	joints := make([][4]uint16, verticesCount)
	weights := make([][4]float32, verticesCount)
	dropped := 0

	for v := 0; v < verticesCount; v++ {
		var row []skin.VertexWeight
		if v < len(ms.Weights) {
			row = ms.Weights[v]
		}
		if len(row) == 0 {
			joints[v] = [4]uint16{uint16(drivingBone), 0, 0, 0}
			weights[v] = [4]float32{1, 0, 0, 0}
			continue
		}
		for i, vw := range row {
			if i >= 4 {
				dropped += len(row) - 4
				break
			}
			bi, ok := boneIndexOf[vw.BoneName]
			if !ok {
				continue
			}
			joints[v][i] = uint16(bi)
			weights[v][i] = vw.Weight
		}
	}
	if dropped > 0 {
		log.Printf("[exporter] Mesh %q carries more than four influences on some vertices, %d dropped", mesh.Name, dropped)
	}

	attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
	attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
	return true
}

func (glme *GLTFModelExported) ensureSkin(doc *gltf.Document, m *gms.Model) *uint32 {
	if glme.SkinIndex != nil {
		return glme.SkinIndex
	}
	ibm := make([]mgl32.Mat4, len(glme.Skeleton.Bones))
	for i := range glme.Skeleton.Bones {
		ibm[i] = glme.Skeleton.Bones[i].World.Inv()
	}
	accessor := gltfutils.WriteMatrices(doc, ibm)

	doc.Skins = append(doc.Skins, &gltf.Skin{
		Name:                m.Name,
		InverseBindMatrices: gltf.Index(accessor),
		Joints:              append([]uint32{}, glme.BoneNodes...),
	})
	glme.SkinIndex = gltf.Index(uint32(len(doc.Skins) - 1))
	return glme.SkinIndex
}

// ExportGLTF writes the whole model into the cacher's document. The
// document stays in the source Y up frame, only the configured scale is
// applied.
func ExportGLTF(m *gms.Model, gltfCacher *gltfutils.GLTFCacher) (*GLTFModelExported, error) {
	doc := gltfCacher.Doc
	settings := config.GetSettings()

	sk, diags := skeleton.Resolve(m, skeleton.Options{Scale: settings.Scale})
	logDiags(m.Name, diags)

	glme := &GLTFModelExported{
		Skeleton:  sk,
		BoneNodes: make([]uint32, len(sk.Bones)),
	}
	defer gltfCacher.AddCache("model:"+m.Name, glme)

	boneIndexOf := make(map[string]int, len(sk.Bones))
	for i := range sk.Bones {
		bt := &sk.Bones[i]
		boneIndexOf[bt.Name] = i

		rotation := skeleton.LocalRotation(&m.Bones[i])
		node := &gltf.Node{
			Name:        bt.Name,
			Translation: bt.Local.Col(3).Vec3(),
			Rotation:    rotation.V.Vec4(rotation.W),
			Scale:       mgl32.Vec3{1, 1, 1},
		}

		glme.BoneNodes[i] = uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, node)
	}
	for i := range sk.Bones {
		if p := sk.Bones[i].Parent; p >= 0 {
			parent := doc.Nodes[glme.BoneNodes[p]]
			parent.Children = append(parent.Children, glme.BoneNodes[i])
		} else {
			gltfutils.AddSceneRoot(doc, glme.BoneNodes[i])
		}
	}

	for iPart := range m.Parts {
		part := &m.Parts[iPart]
		for iMesh := range part.Meshes {
			mesh := &part.Meshes[iMesh]

			geo, diags := geom.Expand(m, mesh)
			logDiags(m.Name, diags)
			if geo.Empty() {
				if len(mesh.DrawCommands) > 0 {
					log.Printf("[exporter] Mesh %q expands to no primitives, skipped", mesh.Name)
				}
				continue
			}

			material := gltfMaterialIndex(m, gltfCacher, mesh.MaterialName)

			gltfMesh := &gltf.Mesh{Name: mesh.Name}
			skinned := false

			for iGroup := range geo.Groups {
				group := &geo.Groups[iGroup]
				va := m.Arrays[group.ArraysName]

				attributes := gltfGroupAttributes(doc, va, settings.Scale)
				if gltfGroupSkinAttributes(glme, doc, m, mesh, va, boneIndexOf, attributes) {
					skinned = true
				}

				if len(group.Triangles) > 0 {
					indices := make([]uint32, 0, len(group.Triangles)*3)
					for _, tri := range group.Triangles {
						indices = append(indices, tri[0], tri[1], tri[2])
					}
					gltfMesh.Primitives = append(gltfMesh.Primitives, &gltf.Primitive{
						Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
						Attributes: attributes,
						Material:   material,
					})
				}
				if len(group.Lines) > 0 {
					indices := make([]uint32, 0, len(group.Lines)*2)
					for _, line := range group.Lines {
						indices = append(indices, line[0], line[1])
					}
					gltfMesh.Primitives = append(gltfMesh.Primitives, &gltf.Primitive{
						Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
						Attributes: attributes,
						Material:   material,
						Mode:       gltf.PrimitiveLines,
					})
				}
				if len(group.Points) > 0 {
					gltfMesh.Primitives = append(gltfMesh.Primitives, &gltf.Primitive{
						Indices:    gltf.Index(modeler.WriteIndices(doc, append([]uint32{}, group.Points...))),
						Attributes: attributes,
						Material:   material,
						Mode:       gltf.PrimitivePoints,
					})
				}
			}

			if len(gltfMesh.Primitives) == 0 {
				continue
			}

			meshIndex := uint32(len(doc.Meshes))
			doc.Meshes = append(doc.Meshes, gltfMesh)

			node := &gltf.Node{
				Name: mesh.Name,
				Mesh: gltf.Index(meshIndex),
			}
			if skinned {
				node.Skin = glme.ensureSkin(doc, m)
			}
			gltfutils.AddSceneRoot(doc, uint32(len(doc.Nodes)))
			doc.Nodes = append(doc.Nodes, node)
		}
	}

	return glme, nil
}

func ExportGLTFDefault(m *gms.Model) (*gltf.Document, error) {
	gltfCacher := gltfutils.NewCacher()
	if _, err := ExportGLTF(m, gltfCacher); err != nil {
		return nil, err
	}
	return gltfCacher.Doc, nil
}
