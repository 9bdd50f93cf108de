// Package skin resolves raw per-vertex weight streams against the bone
// palette a mesh draws with. BlendSubset entries are indices into the
// driving bone's BlendBones list, never direct bone indices, and weight
// channels are positions in the subset.
package skin

import (
	"github.com/mogaika/gms_browser/gms"
)

// weights below this leave no visible trace and are dropped
const WEIGHT_EPSILON = 1e-4

const (
	// per-vertex weights resolved to bone names
	BINDING_SKINNED = iota
	// whole mesh rides one bone
	BINDING_RIGID
	// mesh could not be tied to the skeleton
	BINDING_NONE
)

func BindingName(b int) string {
	switch b {
	case BINDING_SKINNED:
		return "SKINNED"
	case BINDING_RIGID:
		return "RIGID"
	case BINDING_NONE:
		return "NONE"
	}
	return "UNKNOWN"
}

type VertexWeight struct {
	BoneName string
	Weight   float32
}

// MeshSkin is the resolved binding of one mesh. Weights is indexed by
// vertex and only populated for BINDING_SKINNED, values are kept as
// dumped without renormalization.
type MeshSkin struct {
	Binding  int
	BoneName string
	Weights  [][]VertexWeight
}

// HasInfluences reports whether any vertex ended up with a weight.
func (ms *MeshSkin) HasInfluences() bool {
	for _, row := range ms.Weights {
		if len(row) > 0 {
			return true
		}
	}
	return false
}

// Resolve binds a mesh to the skeleton. vertexCount bounds the output,
// weight rows beyond it are dropped the way extra rows always were.
func Resolve(m *gms.Model, mesh *gms.Mesh, weights *gms.VertexWeights, vertexCount int) (*MeshSkin, []gms.Diagnostic) {
	var diags []gms.Diagnostic

	boneName, ok := m.DrivingBone(mesh.Name)
	if !ok {
		diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
			"No bone draws part %q, mesh %q left unbound", gms.PartNameForMesh(mesh.Name), mesh.Name)
		return &MeshSkin{Binding: BINDING_NONE}, diags
	}
	bone := m.BoneByName(boneName)
	if bone == nil {
		diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
			"Mesh %q driving bone %q does not exist, mesh left unbound", mesh.Name, boneName)
		return &MeshSkin{Binding: BINDING_NONE}, diags
	}

	if len(bone.BlendBones) == 0 && len(mesh.BlendSubset) == 0 {
		return &MeshSkin{Binding: BINDING_RIGID, BoneName: boneName}, diags
	}
	if len(bone.BlendBones) == 0 {
		diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
			"Mesh %q has a blend subset but bone %q carries no blend bones, falling back to rigid", mesh.Name, boneName)
		return &MeshSkin{Binding: BINDING_RIGID, BoneName: boneName}, diags
	}

	// map every usable subset value to its bone name once
	groups := make(map[int]string, len(mesh.BlendSubset))
	for _, local := range mesh.BlendSubset {
		if _, done := groups[local]; done {
			continue
		}
		if local < 0 || local >= len(bone.BlendBones) {
			diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
				"Blend subset entry %d of mesh %q is outside the %d blend bones of %q",
				local, mesh.Name, len(bone.BlendBones), boneName)
			continue
		}
		name := bone.BlendBones[local]
		if m.BoneByName(name) == nil {
			diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
				"Blend bone %q of %q does not exist, entry skipped", name, boneName)
			continue
		}
		groups[local] = name
	}

	ms := &MeshSkin{
		Binding:  BINDING_SKINNED,
		BoneName: boneName,
		Weights:  make([][]VertexWeight, vertexCount),
	}

	// a mesh with no weight data and a single subset entry is bound whole
	if weights.Empty() && len(mesh.BlendSubset) == 1 {
		if name, ok := groups[mesh.BlendSubset[0]]; ok {
			for v := range ms.Weights {
				ms.Weights[v] = []VertexWeight{{BoneName: name, Weight: 1}}
			}
		}
		return ms, diags
	}

	rows := weights.Rows()
	for v := 0; v < vertexCount && v < rows; v++ {
		for _, entry := range rowEntries(weights, v) {
			if entry.Channel < 0 || entry.Channel >= len(mesh.BlendSubset) {
				continue
			}
			if entry.Value < WEIGHT_EPSILON {
				continue
			}
			name, ok := groups[mesh.BlendSubset[entry.Channel]]
			if !ok {
				continue
			}
			ms.Weights[v] = append(ms.Weights[v], VertexWeight{BoneName: name, Weight: entry.Value})
		}
	}
	return ms, diags
}

// ResolveMesh resolves against the weight stream of the vertex array the
// mesh draws from.
func ResolveMesh(m *gms.Model, mesh *gms.Mesh) (*MeshSkin, []gms.Diagnostic) {
	if va := m.ArraysOfMesh(mesh); va != nil {
		return Resolve(m, mesh, &va.Weights, len(va.Positions))
	}
	return Resolve(m, mesh, &gms.VertexWeights{}, 0)
}

func rowEntries(w *gms.VertexWeights, v int) []gms.WeightPair {
	switch w.Form {
	case gms.WEIGHTS_DENSE:
		row := w.Dense[v]
		out := make([]gms.WeightPair, 0, len(row))
		for ch, val := range row {
			if val > 0 {
				out = append(out, gms.WeightPair{Channel: ch, Value: val})
			}
		}
		return out
	case gms.WEIGHTS_SPARSE:
		return w.Sparse[v]
	}
	return nil
}
