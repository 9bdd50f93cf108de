package exporter_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gms_browser/config"
	"github.com/mogaika/gms_browser/exporter"
	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/utils"
)

func gltfModel() *gms.Model {
	return &gms.Model{
		Name: "rig",
		Bones: []gms.Bone{
			{Name: "hip", Scale: mgl32.Vec3{1, 1, 1}, BlendBones: []string{"hip", "tip"}},
			{Name: "tip", ParentName: "hip", Translation: mgl32.Vec3{0, 1, 0}, Scale: mgl32.Vec3{1, 1, 1}},
		},
		BoneIndex: map[string]int{"hip": 0, "tip": 1},
		Materials: []gms.Material{{
			Name:    "skin_mat",
			Diffuse: &utils.ColorFloat{1, 1, 1, 1},
			Layers:  []gms.Layer{{Name: "layer0", TextureName: "skin_tex"}},
		}},
		MaterialIndex: map[string]int{"skin_mat": 0},
		Textures:      []gms.Texture{{Name: "skin_tex", FileName: `textures\skin.png`}},
		TextureIndex:  map[string]int{"skin_tex": 0},
		Parts: []gms.Part{{
			Name: "body_Part",
			Meshes: []gms.Mesh{{
				Name:         "body_Mesh",
				MaterialName: "skin_mat",
				BlendSubset:  []int{0, 1},
				DrawCommands: []gms.DrawArraysCommand{{
					ArraysName:     "body_Arrays",
					Primitive:      gms.PRIM_TRIANGLES,
					VertsPerPrim:   3,
					PrimitiveCount: 1,
					Indices:        []int{0, 1, 2},
				}},
			}},
		}},
		PartBone: map[string]string{"body_Part": "hip"},
		Arrays: map[string]*gms.VertexArray{
			"body_Arrays": {
				Name:          "body_Arrays",
				Format:        gms.ArrayFormat{HasPosition: true, WeightCount: 2},
				DeclaredCount: 3,
				Positions:     []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				Weights: gms.VertexWeights{
					Form:  gms.WEIGHTS_DENSE,
					Dense: [][]float32{{0.3, 0.7}, {0, 1}, {1, 0}},
				},
			},
		},
	}
}

func TestExportGLTFDocument(t *testing.T) {
	old := config.GetSettings()
	defer config.SetSettings(old)
	if err := config.SetSettings(config.Settings{Scale: 1, ZUp: false}); err != nil {
		t.Fatal(err)
	}

	doc, err := exporter.ExportGLTFDefault(gltfModel())
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(doc.Nodes))
	}

	hip := doc.Nodes[0]
	if hip.Name != "hip" || len(hip.Children) != 1 || hip.Children[0] != 1 {
		t.Errorf("unexpected hip node %+v", hip)
	}
	if hip.Rotation != [4]float32{0, 0, 0, 1} {
		t.Errorf("hip rotation %v", hip.Rotation)
	}

	tip := doc.Nodes[1]
	if tip.Name != "tip" || tip.Translation != [3]float32{0, 1, 0} {
		t.Errorf("unexpected tip node %+v", tip)
	}

	meshNode := doc.Nodes[2]
	if meshNode.Mesh == nil || *meshNode.Mesh != 0 {
		t.Fatalf("mesh node carries no mesh: %+v", meshNode)
	}
	if meshNode.Skin == nil || *meshNode.Skin != 0 {
		t.Fatalf("bound mesh node carries no skin: %+v", meshNode)
	}

	if len(doc.Skins) != 1 {
		t.Fatalf("expected 1 skin, got %d", len(doc.Skins))
	}
	skin := doc.Skins[0]
	if len(skin.Joints) != 2 || skin.Joints[0] != 0 || skin.Joints[1] != 1 {
		t.Errorf("unexpected joints %v", skin.Joints)
	}
	if skin.InverseBindMatrices == nil {
		t.Error("skin has no inverse bind matrices")
	}

	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 1 {
		t.Fatalf("unexpected meshes %+v", doc.Meshes)
	}
	prim := doc.Meshes[0].Primitives[0]
	for _, attr := range []string{"POSITION", "JOINTS_0", "WEIGHTS_0"} {
		if _, ok := prim.Attributes[attr]; !ok {
			t.Errorf("primitive misses %s", attr)
		}
	}
	if prim.Material == nil || *prim.Material != 0 {
		t.Errorf("primitive material %v", prim.Material)
	}

	if len(doc.Materials) != 1 || doc.Materials[0].Name != "skin_mat" {
		t.Fatalf("unexpected materials %+v", doc.Materials)
	}
	pbr := doc.Materials[0].PBRMetallicRoughness
	if pbr.BaseColorTexture == nil || pbr.BaseColorTexture.Index != 0 {
		t.Errorf("material not textured: %+v", pbr)
	}
	if len(doc.Images) != 1 || doc.Images[0].URI != "textures/skin.png" {
		t.Errorf("unexpected images %+v", doc.Images)
	}

	// position, joints, weights, indices, inverse binds
	if len(doc.Accessors) != 5 {
		t.Errorf("expected 5 accessors, got %d", len(doc.Accessors))
	}

	if len(doc.Scenes[0].Nodes) != 2 {
		t.Errorf("expected 2 scene roots, got %v", doc.Scenes[0].Nodes)
	}
}

func TestExportGLTFRigidMesh(t *testing.T) {
	old := config.GetSettings()
	defer config.SetSettings(old)
	if err := config.SetSettings(config.Settings{Scale: 1, ZUp: false}); err != nil {
		t.Fatal(err)
	}

	m := gltfModel()
	mesh := &m.Parts[0].Meshes[0]
	mesh.BlendSubset = nil
	m.Arrays["body_Arrays"].Weights = gms.VertexWeights{}
	m.Arrays["body_Arrays"].Format.WeightCount = 0

	doc, err := exporter.ExportGLTFDefault(m)
	if err != nil {
		t.Fatal(err)
	}

	meshNode := doc.Nodes[2]
	if meshNode.Skin == nil {
		t.Fatal("rigid mesh should still be skinned to its driving bone")
	}
	prim := doc.Meshes[0].Primitives[0]
	if _, ok := prim.Attributes["JOINTS_0"]; !ok {
		t.Error("rigid mesh misses joint stream")
	}
	if _, ok := prim.Attributes["WEIGHTS_0"]; !ok {
		t.Error("rigid mesh misses weight stream")
	}
}
