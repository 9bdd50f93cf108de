package skeleton_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/gms/skeleton"
)

func vecClose(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < 1e-4
}

func boneModel(bones ...gms.Bone) *gms.Model {
	m := &gms.Model{
		Bones:     bones,
		BoneIndex: make(map[string]int, len(bones)),
	}
	for i := range bones {
		m.BoneIndex[bones[i].Name] = i
	}
	return m
}

func ident() mgl32.Vec3 { return mgl32.Vec3{1, 1, 1} }

func TestChainTranslation(t *testing.T) {
	m := boneModel(
		gms.Bone{Name: "root", Translation: mgl32.Vec3{0, 1, 0}, Scale: ident()},
		gms.Bone{Name: "mid", ParentName: "root", Translation: mgl32.Vec3{0, 0, 2}, Scale: ident()},
	)
	sk, diags := skeleton.Resolve(m, skeleton.Options{})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if !vecClose(sk.Bones[1].Head, mgl32.Vec3{0, 1, 2}) {
		t.Errorf("mid head %v", sk.Bones[1].Head)
	}
	if sk.Bones[1].Parent != 0 || sk.Bones[0].Parent != -1 {
		t.Errorf("parents %d %d", sk.Bones[0].Parent, sk.Bones[1].Parent)
	}

	scaled, _ := skeleton.Resolve(m, skeleton.Options{Scale: 2})
	if !vecClose(scaled.Bones[1].Head, mgl32.Vec3{0, 2, 4}) {
		t.Errorf("scaled mid head %v", scaled.Bones[1].Head)
	}
}

func TestEulerRotationComposition(t *testing.T) {
	m := boneModel(
		gms.Bone{Name: "root", Euler: mgl32.Vec3{0, 0, math.Pi / 2}, Scale: ident()},
		gms.Bone{Name: "tip", ParentName: "root", Translation: mgl32.Vec3{1, 0, 0}, Scale: ident()},
	)
	sk, _ := skeleton.Resolve(m, skeleton.Options{})
	if !vecClose(sk.Bones[1].Head, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("rotated tip head %v; expected (0,1,0)", sk.Bones[1].Head)
	}
}

func TestQuaternionEncodesInverse(t *testing.T) {
	// dumps store the inverse, -90 degrees about Z resolves to +90
	s, c := float32(math.Sin(-math.Pi/4)), float32(math.Cos(-math.Pi/4))
	q := mgl32.Quat{W: c, V: mgl32.Vec3{0, 0, s}}
	m := boneModel(
		gms.Bone{Name: "root", Quat: &q, Scale: ident()},
		gms.Bone{Name: "tip", ParentName: "root", Translation: mgl32.Vec3{1, 0, 0}, Scale: ident()},
	)
	sk, _ := skeleton.Resolve(m, skeleton.Options{})
	if !vecClose(sk.Bones[1].Head, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("tip head %v; expected (0,1,0)", sk.Bones[1].Head)
	}
}

func TestQuaternionBeatsEuler(t *testing.T) {
	q := mgl32.Quat{W: 1}
	m := boneModel(
		gms.Bone{Name: "root", Quat: &q, Euler: mgl32.Vec3{0, 0, math.Pi / 2}, Scale: ident()},
		gms.Bone{Name: "tip", ParentName: "root", Translation: mgl32.Vec3{1, 0, 0}, Scale: ident()},
	)
	sk, _ := skeleton.Resolve(m, skeleton.Options{})
	if !vecClose(sk.Bones[1].Head, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("tip head %v; identity quaternion should win", sk.Bones[1].Head)
	}
}

func TestForwardParentReference(t *testing.T) {
	// child declared before its parent still lands on the full chain
	m := boneModel(
		gms.Bone{Name: "tip", ParentName: "root", Translation: mgl32.Vec3{0, 0, 1}, Scale: ident()},
		gms.Bone{Name: "root", Translation: mgl32.Vec3{5, 0, 0}, Scale: ident()},
	)
	sk, diags := skeleton.Resolve(m, skeleton.Options{})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if !vecClose(sk.Bones[0].Head, mgl32.Vec3{5, 0, 1}) {
		t.Errorf("tip head %v; expected (5,0,1)", sk.Bones[0].Head)
	}
}

func TestDanglingParent(t *testing.T) {
	m := boneModel(
		gms.Bone{Name: "lost", ParentName: "ghost", Translation: mgl32.Vec3{1, 2, 3}, Scale: ident()},
	)
	sk, diags := skeleton.Resolve(m, skeleton.Options{})
	if len(diags) != 1 || diags[0].Level != gms.DIAG_REFERENCE {
		t.Fatalf("expected one reference diagnostic, got %v", diags)
	}
	if sk.Bones[0].Parent != -1 || !vecClose(sk.Bones[0].Head, mgl32.Vec3{1, 2, 3}) {
		t.Errorf("dangling bone not a root: %+v", sk.Bones[0])
	}
}

func TestParentCycle(t *testing.T) {
	m := boneModel(
		gms.Bone{Name: "a", ParentName: "b", Translation: mgl32.Vec3{1, 0, 0}, Scale: ident()},
		gms.Bone{Name: "b", ParentName: "a", Translation: mgl32.Vec3{0, 1, 0}, Scale: ident()},
	)
	sk, diags := skeleton.Resolve(m, skeleton.Options{})
	if len(diags) == 0 {
		t.Fatal("cycle went unreported")
	}
	roots := 0
	for i := range sk.Bones {
		if sk.Bones[i].Parent == -1 {
			roots++
		}
		for j := 0; j < 3; j++ {
			if math.IsNaN(float64(sk.Bones[i].Head[j])) {
				t.Fatalf("bone %d head is NaN", i)
			}
		}
	}
	if roots == 0 {
		t.Error("cycle left no root to hang the hierarchy on")
	}
}

func TestSelfParent(t *testing.T) {
	m := boneModel(
		gms.Bone{Name: "ouro", ParentName: "ouro", Translation: mgl32.Vec3{1, 0, 0}, Scale: ident()},
	)
	sk, diags := skeleton.Resolve(m, skeleton.Options{})
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %v", diags)
	}
	if sk.Bones[0].Parent != -1 {
		t.Errorf("self parented bone kept parent %d", sk.Bones[0].Parent)
	}
}

func TestTails(t *testing.T) {
	m := boneModel(
		gms.Bone{Name: "root", Scale: ident()},
		gms.Bone{Name: "tip", ParentName: "root", Translation: mgl32.Vec3{0, 2, 0}, Scale: ident()},
	)
	sk, _ := skeleton.Resolve(m, skeleton.Options{})

	// a parent points at its first child
	if !vecClose(sk.Bones[0].Tail, sk.Bones[1].Head) {
		t.Errorf("root tail %v; expected child head %v", sk.Bones[0].Tail, sk.Bones[1].Head)
	}
	if math.Abs(float64(sk.Bones[0].Length-2)) > 1e-4 {
		t.Errorf("root length %v", sk.Bones[0].Length)
	}

	// a leaf grows a stub tail along its world x axis
	if !vecClose(sk.Bones[1].Tail, mgl32.Vec3{0.01, 2, 0}) {
		t.Errorf("leaf tail %v", sk.Bones[1].Tail)
	}
}

func TestCoincidingChildKeepsStubTail(t *testing.T) {
	m := boneModel(
		gms.Bone{Name: "root", Scale: ident()},
		gms.Bone{Name: "tip", ParentName: "root", Scale: ident()},
	)
	sk, _ := skeleton.Resolve(m, skeleton.Options{})
	if vecClose(sk.Bones[0].Tail, sk.Bones[0].Head) {
		t.Errorf("root tail collapsed onto its head: %+v", sk.Bones[0])
	}
}

func TestZUpConversion(t *testing.T) {
	m := boneModel(
		gms.Bone{Name: "root", Translation: mgl32.Vec3{0, 5, 2}, Scale: ident()},
	)
	sk, _ := skeleton.Resolve(m, skeleton.Options{ZUp: true})
	if !vecClose(sk.Bones[0].Head, mgl32.Vec3{0, 2, -5}) {
		t.Errorf("zup head %v; expected (0,2,-5)", sk.Bones[0].Head)
	}
	if !vecClose(sk.Bones[0].World.Col(3).Vec3(), mgl32.Vec3{0, 2, -5}) {
		t.Errorf("zup world translation %v", sk.Bones[0].World.Col(3).Vec3())
	}
}

func TestConvertZUp(t *testing.T) {
	got := skeleton.ConvertZUp(mgl32.Vec3{1, 2, 3})
	if !vecClose(got, mgl32.Vec3{1, 3, -2}) {
		t.Errorf("ConvertZUp = %v", got)
	}
}

func TestEmptyModel(t *testing.T) {
	sk, diags := skeleton.Resolve(&gms.Model{}, skeleton.Options{})
	if len(sk.Bones) != 0 || len(diags) != 0 {
		t.Errorf("empty model: %+v %v", sk, diags)
	}
}
