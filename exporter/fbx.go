package exporter

import (
	"fmt"
	"log"
	"math"

	"github.com/mogaika/fbx/builders/bfbx73"

	"github.com/mogaika/gms_browser/config"
	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/gms/geom"
	"github.com/mogaika/gms_browser/gms/skeleton"
	"github.com/mogaika/gms_browser/utils"
	"github.com/mogaika/gms_browser/utils/fbxbuilder"
)

type FBXMaterialExported struct {
	MaterialId int64
}

type FBXModelExported struct {
	ModelId int64
	BoneIds []int64
}

func exportFBXMaterial(f *fbxbuilder.FBXBuilder, mat *gms.Material) *FBXMaterialExported {
	fe := &FBXMaterialExported{}

	color := utils.ColorFloat{1, 1, 1, 1}
	if mat.Diffuse != nil {
		color = *mat.Diffuse
	}
	ambient := utils.ColorFloat{0, 0, 0, 1}
	if mat.Ambient != nil {
		ambient = *mat.Ambient
	}

	fe.MaterialId = f.GenerateId()
	material := bfbx73.Material(fe.MaterialId, mat.Name+"\x00\x01Material", "").AddNodes(
		bfbx73.Version(102),
		bfbx73.ShadingModel("lambert"),
		bfbx73.MultiLayer(0),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("AmbientColor", "Color", "", "A", float64(ambient[0]), float64(ambient[1]), float64(ambient[2])),
			bfbx73.P("DiffuseColor", "Color", "", "A", float64(color[0]), float64(color[1]), float64(color[2])),
			bfbx73.P("Emissive", "Vector3D", "Vector", "", float64(0), float64(0), float64(0)),
			bfbx73.P("Ambient", "Vector3D", "Vector", "", float64(ambient[0]), float64(ambient[1]), float64(ambient[2])),
			bfbx73.P("Diffuse", "Vector3D", "Vector", "", float64(color[0]), float64(color[1]), float64(color[2])),
			bfbx73.P("Opacity", "double", "Number", "", float64(color[3])),
		),
	)

	f.AddObjects(material)
	return fe
}

func exportFBXBone(f *fbxbuilder.FBXBuilder, b *gms.Bone, bt *skeleton.BoneTransform) int64 {
	rotation := utils.QuatToEuler(skeleton.LocalRotation(b)).Mul(180.0 / math.Pi)
	t := bt.Local.Col(3).Vec3()

	modelId := f.GenerateId()
	model := bfbx73.Model(modelId, bt.Name+"\x00\x01Model", "LimbNode").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A+",
				float64(t.X()), float64(t.Y()), float64(t.Z())),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A+",
				float64(rotation[0]), float64(rotation[1]), float64(rotation[2])),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A+",
				float64(1), float64(1), float64(1)),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)

	attrId := f.GenerateId()
	nodeAttribute := bfbx73.NodeAttribute(attrId, bt.Name+"\x00\x01NodeAttribute", "LimbNode").AddNodes(
		bfbx73.TypeFlags("Skeleton"),
	)

	f.AddObjects(model, nodeAttribute)
	f.AddConnections(bfbx73.C("OO", attrId, modelId))
	return modelId
}

func exportFBXMeshGroup(f *fbxbuilder.FBXBuilder, name string, group *geom.Group, va *gms.VertexArray, scale float32) int64 {
	verticesCount := len(va.Positions)

	vertices := make([]float64, 0, verticesCount*3)
	for _, p := range va.Positions {
		p = p.Mul(scale)
		vertices = append(vertices, float64(p.X()), float64(p.Y()), float64(p.Z()))
	}

	indexes := make([]int32, 0, len(group.Triangles)*3)
	uvindexes := make([]int32, 0, len(group.Triangles)*3)
	for _, tri := range group.Triangles {
		indexes = append(indexes, int32(tri[0]), int32(tri[1]), -int32(tri[2])-1)
		uvindexes = append(uvindexes, int32(tri[0]), int32(tri[1]), int32(tri[2]))
	}

	haveNorm := va.Format.HasNormal && len(va.Normals) == verticesCount
	haveUV := va.Format.HasTexCoord && len(va.UVs) == verticesCount
	haveRgba := va.Format.HasColor && len(va.Colors) == verticesCount

	geometryId := f.GenerateId()
	geometryLayer := bfbx73.Layer(0).AddNodes(
		bfbx73.Version(100),
	)
	geometry := bfbx73.Geometry(geometryId, "\x00\x01Geometry", "Mesh").AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Color", "ColorRGB", "Color", "", float64(1), float64(1), float64(1)),
		),
		bfbx73.GeometryVersion(124),
		bfbx73.Vertices(vertices),
		bfbx73.PolygonVertexIndex(indexes),
		geometryLayer,
	)

	if haveNorm {
		normals := make([]float64, 0, verticesCount*3)
		for _, n := range va.Normals {
			normals = append(normals, float64(n.X()), float64(n.Y()), float64(n.Z()))
		}
		geometry.AddNode(
			bfbx73.LayerElementNormal(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Normals(normals),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementNormal"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	if haveRgba {
		rgba := make([]float64, 0, verticesCount*4)
		for _, c := range va.Colors {
			rgba = append(rgba, float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3]))
		}
		geometry.AddNode(
			bfbx73.LayerElementColor(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByVertice"),
				bfbx73.ReferenceInformationType("Direct"),
				bfbx73.Colors(rgba),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementColor"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	if haveUV {
		uv := make([]float64, 0, verticesCount*2)
		for _, t := range va.UVs {
			uv = append(uv, float64(t[0]), float64(-t[1]))
		}
		geometry.AddNode(
			bfbx73.LayerElementUV(0).AddNodes(
				bfbx73.Version(101),
				bfbx73.Name(""),
				bfbx73.MappingInformationType("ByPolygonVertex"),
				bfbx73.ReferenceInformationType("IndexToDirect"),
				bfbx73.UV(uv),
				bfbx73.UVIndex(uvindexes),
			),
		)
		geometryLayer.AddNode(
			bfbx73.LayerElement().AddNodes(
				bfbx73.Type("LayerElementUV"),
				bfbx73.TypedIndex(0),
			),
		)
	}

	geometry.AddNode(
		bfbx73.LayerElementMaterial(0).AddNodes(
			bfbx73.Version(101),
			bfbx73.Name(""),
			bfbx73.MappingInformationType("AllSame"),
			bfbx73.ReferenceInformationType("IndexToDirect"),
			bfbx73.Materials([]int32{0}),
		),
	)
	geometryLayer.AddNode(
		bfbx73.LayerElement().AddNodes(
			bfbx73.Type("LayerElementMaterial"),
			bfbx73.TypedIndex(0),
		),
	)

	modelId := f.GenerateId()
	model := bfbx73.Model(modelId, name+"\x00\x01Model", "Mesh").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("InheritType", "enum", "", "", int32(1)),
			bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", float64(0), float64(0), float64(0)),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", float64(1), float64(1), float64(1)),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)

	f.AddObjects(model, geometry)
	f.AddConnections(bfbx73.C("OO", geometryId, modelId))
	return modelId
}

// ExportFBX writes the skeleton as a limb hierarchy and every mesh as
// flat geometry. The binary format we emit carries no deformers, so
// weights stay behind, the glb dump is the one that keeps them.
func ExportFBX(m *gms.Model, f *fbxbuilder.FBXBuilder) *FBXModelExported {
	fe := &FBXModelExported{
		ModelId: f.GenerateId(),
		BoneIds: make([]int64, len(m.Bones)),
	}
	defer f.AddCache("model:"+m.Name, fe)

	settings := config.GetSettings()
	sk, diags := skeleton.Resolve(m, skeleton.Options{Scale: settings.Scale})
	logDiags(m.Name, diags)

	model := bfbx73.Model(fe.ModelId, m.Name+"\x00\x01Model", "Null").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70(),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)
	nodeAttribute := bfbx73.NodeAttribute(f.GenerateId(), m.Name+"\x00\x01NodeAttribute", "Null").AddNodes(
		bfbx73.TypeFlags("Null"),
	)
	f.AddConnections(bfbx73.C("OO", nodeAttribute.Properties[0].(int64), fe.ModelId))
	f.AddObjects(model, nodeAttribute)

	for i := range sk.Bones {
		fe.BoneIds[i] = exportFBXBone(f, &m.Bones[i], &sk.Bones[i])
	}
	for i := range sk.Bones {
		if p := sk.Bones[i].Parent; p >= 0 {
			f.AddConnections(bfbx73.C("OO", fe.BoneIds[i], fe.BoneIds[p]))
		} else {
			f.AddConnections(bfbx73.C("OO", fe.BoneIds[i], fe.ModelId))
		}
	}

	for iPart := range m.Parts {
		part := &m.Parts[iPart]
		for iMesh := range part.Meshes {
			mesh := &part.Meshes[iMesh]

			geo, diags := geom.Expand(m, mesh)
			logDiags(m.Name, diags)

			for iGroup := range geo.Groups {
				group := &geo.Groups[iGroup]
				if dropped := len(group.Lines) + len(group.Points); dropped > 0 {
					log.Printf("[exporter] Mesh %q: %d line and point primitives have no fbx form, dropped",
						mesh.Name, dropped)
				}
				if len(group.Triangles) == 0 {
					continue
				}

				name := mesh.Name
				if len(geo.Groups) > 1 {
					name = fmt.Sprintf("%s_%s", mesh.Name, group.ArraysName)
				}
				meshModelId := exportFBXMeshGroup(f, name, group, m.Arrays[group.ArraysName], settings.Scale)
				f.AddConnections(bfbx73.C("OO", meshModelId, fe.ModelId))

				if mesh.MaterialName != "" {
					if mat := m.MaterialByName(mesh.MaterialName); mat != nil {
						matFe := f.GetCachedOr("material:"+mat.Name, func() interface{} {
							return exportFBXMaterial(f, mat)
						}).(*FBXMaterialExported)
						f.AddConnections(bfbx73.C("OO", matFe.MaterialId, meshModelId))
					} else {
						log.Printf("[exporter] Mesh %q references material %q that was never declared",
							mesh.Name, mesh.MaterialName)
					}
				}
			}
		}
	}

	return fe
}

func ExportFBXDefault(m *gms.Model, filename string) *fbxbuilder.FBXBuilder {
	f := fbxbuilder.NewFBXBuilder(filename)
	fe := ExportFBX(m, f)
	f.AddConnections(bfbx73.C("OO", fe.ModelId, 0))
	return f
}
