// Package skeleton turns the flat bone list of a parsed model into
// world-space transforms. Resolution is a pure pass over the model, the
// scene graph itself is never touched.
package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/utils"
)

type Options struct {
	// translation multiplier, 0 means 1
	Scale float32
	// rotate resolved points from the source Y-up convention to Z-up
	ZUp bool
}

type BoneTransform struct {
	Name   string
	Parent int // index into Bones, -1 for roots
	Local  mgl32.Mat4
	World  mgl32.Mat4
	Head   mgl32.Vec3
	Tail   mgl32.Vec3
	Length float32
}

type Skeleton struct {
	Bones []BoneTransform
	Index map[string]int
}

// ConvertZUp maps a point from the source Y-up frame to Z-up.
func ConvertZUp(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{v.X(), v.Z(), -v.Y()}
}

// LocalRotation returns the bone's rotation the way the dump means it.
// Stored quaternions encode the inverse of the visual rotation and take
// precedence over euler angles when both survived parsing.
func LocalRotation(b *gms.Bone) mgl32.Quat {
	if b.Quat != nil && b.Quat.Dot(*b.Quat) > 0 {
		return b.Quat.Inverse().Normalize()
	}
	return mgl32.Mat4ToQuat(utils.EulerToMat4(b.Euler))
}

func localMatrix(b *gms.Bone, scale float32) (mgl32.Mat4, bool) {
	var rot mgl32.Mat4
	badQuat := false
	switch {
	case b.Quat != nil && b.Quat.Dot(*b.Quat) > 0:
		rot = b.Quat.Inverse().Normalize().Mat4()
	case b.Quat != nil:
		rot = mgl32.Ident4()
		badQuat = true
	default:
		rot = utils.EulerToMat4(b.Euler)
	}
	t := b.Translation.Mul(scale)
	// bone scale is dumped but takes no part in the pose
	return mgl32.Translate3D(t.X(), t.Y(), t.Z()).Mul4(rot), badQuat
}

// Resolve computes world transforms, heads and tails for every bone of
// the model. Bones may reference parents declared later in the file.
// Dangling parent names and parent cycles degrade the affected bone to
// a root with a diagnostic.
func Resolve(m *gms.Model, opts Options) (*Skeleton, []gms.Diagnostic) {
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}

	n := len(m.Bones)
	sk := &Skeleton{
		Bones: make([]BoneTransform, n),
		Index: make(map[string]int, n),
	}
	var diags []gms.Diagnostic

	locals := make([]mgl32.Mat4, n)
	for i := range m.Bones {
		local, badQuat := localMatrix(&m.Bones[i], scale)
		if badQuat {
			diags = gms.Diagf(diags, gms.DIAG_FIELD, 0,
				"Bone %q carries a zero quaternion, rotation dropped", m.Bones[i].Name)
		}
		locals[i] = local
	}

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]uint8, n)
	worlds := make([]mgl32.Mat4, n)
	parents := make([]int, n)
	broken := make([]bool, n)

	var resolve func(i int) mgl32.Mat4
	resolve = func(i int) mgl32.Mat4 {
		switch state[i] {
		case visited:
			return worlds[i]
		case visiting:
			diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
				"Bone %q sits on a parent cycle, chain broken here", m.Bones[i].Name)
			broken[i] = true
			return locals[i]
		}
		state[i] = visiting

		b := &m.Bones[i]
		world := locals[i]
		parents[i] = -1
		if b.ParentName != "" {
			if pi, ok := m.BoneIndex[b.ParentName]; !ok {
				diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
					"Bone %q parent %q does not exist, treated as root", b.Name, b.ParentName)
			} else if pi == i {
				diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
					"Bone %q is its own parent, treated as root", b.Name)
			} else {
				world = resolve(pi).Mul4(locals[i])
				parents[i] = pi
			}
		}

		state[i] = visited
		worlds[i] = world
		return world
	}
	for i := range m.Bones {
		resolve(i)
	}
	for i := range m.Bones {
		if broken[i] {
			parents[i] = -1
			worlds[i] = locals[i]
		}
	}

	for i := range sk.Bones {
		bt := &sk.Bones[i]
		bt.Name = m.Bones[i].Name
		bt.Parent = parents[i]
		bt.Local = locals[i]
		bt.World = worlds[i]
		bt.Head = worlds[i].Col(3).Vec3()

		xAxis := worlds[i].Mat3().Mul3x1(mgl32.Vec3{1, 0, 0})
		if l := xAxis.Len(); l > 0 {
			xAxis = xAxis.Mul(1 / l)
		}
		bt.Tail = bt.Head.Add(xAxis.Mul(0.01 * scale))
		sk.Index[bt.Name] = i
	}

	// point each bone at its first declared child when one is close enough
	firstChildOf := make(map[string]int)
	for i := range m.Bones {
		pn := m.Bones[i].ParentName
		if pn == "" {
			continue
		}
		if _, ok := firstChildOf[pn]; !ok {
			firstChildOf[pn] = i
		}
	}
	for i := range sk.Bones {
		ci, ok := firstChildOf[sk.Bones[i].Name]
		if !ok {
			continue
		}
		dir := sk.Bones[ci].Head.Sub(sk.Bones[i].Head)
		if dir.Len() > 0.0001 {
			sk.Bones[i].Tail = sk.Bones[i].Head.Add(dir)
		}
	}

	if opts.ZUp {
		for i := range sk.Bones {
			bt := &sk.Bones[i]
			bt.Head = ConvertZUp(bt.Head)
			bt.Tail = ConvertZUp(bt.Tail)
			t := ConvertZUp(bt.World.Col(3).Vec3())
			bt.World[12], bt.World[13], bt.World[14] = t.X(), t.Y(), t.Z()
		}
	}

	for i := range sk.Bones {
		bt := &sk.Bones[i]
		bt.Length = bt.Tail.Sub(bt.Head).Len()
	}

	return sk, diags
}
