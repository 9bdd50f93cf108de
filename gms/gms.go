package gms

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gms_browser/utils"
)

const FILE_SIGNATURE = ".GMS"

const (
	PRIM_TRIANGLES = iota
	PRIM_TRIANGLE_STRIP
	PRIM_TRIANGLE_FAN
	PRIM_POINTS
	PRIM_LINES
	PRIM_LINE_STRIP
)

var primitiveNames = map[string]int{
	"TRIANGLES":      PRIM_TRIANGLES,
	"TRIANGLE_STRIP": PRIM_TRIANGLE_STRIP,
	"TRIANGLE_FAN":   PRIM_TRIANGLE_FAN,
	"POINTS":         PRIM_POINTS,
	"LINES":          PRIM_LINES,
	"LINE_STRIP":     PRIM_LINE_STRIP,
}

func PrimitiveName(prim int) string {
	for name, p := range primitiveNames {
		if p == prim {
			return name
		}
	}
	return "UNKNOWN"
}

type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Bone is a node of the model skeleton. Rotation arrives either as a
// quaternion or as euler angles, never meaningfully both; when both were
// dumped the quaternion wins. The quaternion is stored exactly as dumped
// and encodes the inverse of the visual rotation.
type Bone struct {
	Name        string
	ParentName  string
	Translation mgl32.Vec3
	Quat        *mgl32.Quat
	Euler       mgl32.Vec3 // radians, applied in X then Y then Z order
	Scale       mgl32.Vec3
	BlendBones  []string
}

type Part struct {
	Name   string
	Meshes []Mesh
}

type Mesh struct {
	Name         string
	MaterialName string
	BlendSubset  []int
	DrawCommands []DrawArraysCommand
}

type DrawArraysCommand struct {
	ArraysName     string
	Primitive      int
	VertsPerPrim   int
	PrimitiveCount int
	Indices        []int
}

const (
	WEIGHTS_NONE = iota
	// one row of len(row) floats per vertex, channel == position in row
	WEIGHTS_DENSE
	// explicit (channel, value) pairs per vertex
	WEIGHTS_SPARSE
)

type WeightPair struct {
	Channel int
	Value   float32
}

// VertexWeights keeps the raw skinning stream in whichever of the two
// dump shapes it arrived, tagged once so consumers never re-sniff rows.
type VertexWeights struct {
	Form   int
	Dense  [][]float32
	Sparse [][]WeightPair
}

func (vw *VertexWeights) Rows() int {
	switch vw.Form {
	case WEIGHTS_DENSE:
		return len(vw.Dense)
	case WEIGHTS_SPARSE:
		return len(vw.Sparse)
	}
	return 0
}

// Empty reports whether no vertex carries a weight entry.
func (vw *VertexWeights) Empty() bool {
	switch vw.Form {
	case WEIGHTS_DENSE:
		for _, row := range vw.Dense {
			if len(row) != 0 {
				return false
			}
		}
	case WEIGHTS_SPARSE:
		for _, row := range vw.Sparse {
			if len(row) != 0 {
				return false
			}
		}
	}
	return true
}

type ArrayFormat struct {
	HasPosition bool
	HasNormal   bool
	HasTexCoord bool
	HasColor    bool
	WeightCount int
}

// VertexArray holds decoded per-vertex streams. Streams may end up with
// unequal lengths when data lines run short, check before indexing.
type VertexArray struct {
	Name          string
	Format        ArrayFormat
	DeclaredCount int
	Positions     []mgl32.Vec3
	Normals       []mgl32.Vec3
	UVs           []mgl32.Vec2
	Colors        []mgl32.Vec4
	Weights       VertexWeights
}

type Material struct {
	Name    string
	Diffuse *utils.ColorFloat
	Ambient *utils.ColorFloat
	Layers  []Layer
}

type Layer struct {
	Name        string
	Diffuse     *utils.ColorFloat
	Ambient     *utils.ColorFloat
	Specular    *utils.ColorFloat
	Emission    *utils.ColorFloat
	TextureName string
	Meshes      []Mesh
}

type Texture struct {
	Name     string
	FileName string
}

const (
	INTERP_CONSTANT = iota
	INTERP_LINEAR
	INTERP_HERMITE
	INTERP_CUBIC
	INTERP_SPHERICAL
	INTERP_UNKNOWN
)

var interpolationNames = map[string]int{
	"CONSTANT":  INTERP_CONSTANT,
	"LINEAR":    INTERP_LINEAR,
	"HERMITE":   INTERP_HERMITE,
	"CUBIC":     INTERP_CUBIC,
	"SPHERICAL": INTERP_SPHERICAL,
}

type FCurveFrame struct {
	Time   float32
	Values []float32
}

type FCurve struct {
	Name          string
	Interpolation int
	ValueCount    int
	FrameCount    int
	Frames        []FCurveFrame
}

type Motion struct {
	Name      string
	FrameRate float32
	FrameLoop [2]float32
	FCurves   []FCurve
}

// Model is the root of the parsed scene graph. Index maps point at the
// latest element of the matching slice when a dump repeats a name.
type Model struct {
	Name          string
	BBox          *BoundingBox
	Bones         []Bone
	BoneIndex     map[string]int
	Parts         []Part
	Materials     []Material
	MaterialIndex map[string]int
	Textures      []Texture
	TextureIndex  map[string]int
	Motions       []Motion
	Arrays        map[string]*VertexArray
	PartBone      map[string]string
}

func newModel() *Model {
	return &Model{
		BoneIndex:     make(map[string]int),
		MaterialIndex: make(map[string]int),
		TextureIndex:  make(map[string]int),
		Arrays:        make(map[string]*VertexArray),
		PartBone:      make(map[string]string),
	}
}

func (m *Model) BoneByName(name string) *Bone {
	if i, ok := m.BoneIndex[name]; ok {
		return &m.Bones[i]
	}
	return nil
}

func (m *Model) MaterialByName(name string) *Material {
	if i, ok := m.MaterialIndex[name]; ok {
		return &m.Materials[i]
	}
	return nil
}

func (m *Model) TextureByName(name string) *Texture {
	if i, ok := m.TextureIndex[name]; ok {
		return &m.Textures[i]
	}
	return nil
}

// ArraysOfMesh returns the vertex array behind the first draw command
// whose name resolves, which is how meshes reference geometry in dumps.
func (m *Model) ArraysOfMesh(mesh *Mesh) *VertexArray {
	for i := range mesh.DrawCommands {
		if va, ok := m.Arrays[mesh.DrawCommands[i].ArraysName]; ok {
			return va
		}
	}
	return nil
}

// PartNameForMesh maps a mesh name to the part that owns it. Exporters
// follow the source naming convention "x_Mesh" belongs to "x_Part".
func PartNameForMesh(meshName string) string {
	return strings.ReplaceAll(meshName, "_Mesh", "_Part")
}

// DrivingBone resolves the bone a mesh is attached to through the
// part mapping built from DrawPart directives.
func (m *Model) DrivingBone(meshName string) (string, bool) {
	name, ok := m.PartBone[PartNameForMesh(meshName)]
	return name, ok
}
