package geom_test

import (
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/gms/geom"
)

func arraysModel(name string, vertCount int) *gms.Model {
	return &gms.Model{Arrays: map[string]*gms.VertexArray{
		name: {Name: name, Positions: make([]mgl32.Vec3, vertCount)},
	}}
}

func drawMesh(cmds ...gms.DrawArraysCommand) *gms.Mesh {
	return &gms.Mesh{Name: "quad_Mesh", DrawCommands: cmds}
}

func expandOne(t *testing.T, m *gms.Model, mesh *gms.Mesh) *geom.Group {
	t.Helper()
	geo, diags := geom.Expand(m, mesh)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(geo.Groups) != 1 {
		t.Fatalf("%d groups", len(geo.Groups))
	}
	return &geo.Groups[0]
}

func TestTriangles(t *testing.T) {
	m := arraysModel("quad", 4)
	g := expandOne(t, m, drawMesh(gms.DrawArraysCommand{
		ArraysName: "quad", Primitive: gms.PRIM_TRIANGLES,
		VertsPerPrim: 3, PrimitiveCount: 2,
		Indices: []int{0, 1, 2, 2, 1, 3},
	}))
	want := [][3]uint32{{0, 1, 2}, {2, 1, 3}}
	if !reflect.DeepEqual(g.Triangles, want) {
		t.Errorf("triangles %v, want %v", g.Triangles, want)
	}
}

func TestStripWinding(t *testing.T) {
	m := arraysModel("quad", 4)
	g := expandOne(t, m, drawMesh(gms.DrawArraysCommand{
		ArraysName: "quad", Primitive: gms.PRIM_TRIANGLE_STRIP,
		VertsPerPrim: 4, PrimitiveCount: 1,
		Indices: []int{0, 1, 2, 3},
	}))
	// odd windows swap the leading pair to keep face orientation
	want := [][3]uint32{{0, 1, 2}, {2, 1, 3}}
	if !reflect.DeepEqual(g.Triangles, want) {
		t.Errorf("strip triangles %v, want %v", g.Triangles, want)
	}
}

func TestStripDegenerateWindows(t *testing.T) {
	m := arraysModel("quad", 4)
	g := expandOne(t, m, drawMesh(gms.DrawArraysCommand{
		ArraysName: "quad", Primitive: gms.PRIM_TRIANGLE_STRIP,
		VertsPerPrim: 5, PrimitiveCount: 1,
		Indices: []int{0, 1, 1, 2, 3},
	}))
	want := [][3]uint32{{1, 2, 3}}
	if !reflect.DeepEqual(g.Triangles, want) {
		t.Errorf("strip triangles %v, want %v", g.Triangles, want)
	}
}

func TestFan(t *testing.T) {
	m := arraysModel("quad", 4)
	g := expandOne(t, m, drawMesh(gms.DrawArraysCommand{
		ArraysName: "quad", Primitive: gms.PRIM_TRIANGLE_FAN,
		VertsPerPrim: 4, PrimitiveCount: 1,
		Indices: []int{0, 1, 2, 3},
	}))
	want := [][3]uint32{{0, 1, 2}, {0, 2, 3}}
	if !reflect.DeepEqual(g.Triangles, want) {
		t.Errorf("fan triangles %v, want %v", g.Triangles, want)
	}
}

func TestLinesAndPoints(t *testing.T) {
	m := arraysModel("quad", 4)
	g := expandOne(t, m, drawMesh(
		gms.DrawArraysCommand{
			ArraysName: "quad", Primitive: gms.PRIM_LINES,
			VertsPerPrim: 4, PrimitiveCount: 1,
			Indices: []int{0, 1, 2, 3},
		},
		gms.DrawArraysCommand{
			ArraysName: "quad", Primitive: gms.PRIM_LINE_STRIP,
			VertsPerPrim: 3, PrimitiveCount: 1,
			Indices: []int{0, 1, 2},
		},
		gms.DrawArraysCommand{
			ArraysName: "quad", Primitive: gms.PRIM_POINTS,
			VertsPerPrim: 1, PrimitiveCount: 3,
			Indices: []int{3, 0, 1},
		},
	))
	wantLines := [][2]uint32{{0, 1}, {2, 3}, {0, 1}, {1, 2}}
	if !reflect.DeepEqual(g.Lines, wantLines) {
		t.Errorf("lines %v, want %v", g.Lines, wantLines)
	}
	wantPoints := []uint32{3, 0, 1}
	if !reflect.DeepEqual(g.Points, wantPoints) {
		t.Errorf("points %v, want %v", g.Points, wantPoints)
	}
}

func TestOutOfRangePrimitiveDropped(t *testing.T) {
	m := arraysModel("quad", 3)
	geo, diags := geom.Expand(m, drawMesh(gms.DrawArraysCommand{
		ArraysName: "quad", Primitive: gms.PRIM_TRIANGLES,
		VertsPerPrim: 3, PrimitiveCount: 2,
		Indices: []int{0, 1, 2, 0, 1, 9},
	}))
	if len(diags) != 1 || diags[0].Level != gms.DIAG_REFERENCE {
		t.Fatalf("diagnostics %v", diags)
	}
	want := [][3]uint32{{0, 1, 2}}
	if !reflect.DeepEqual(geo.Groups[0].Triangles, want) {
		t.Errorf("triangles %v, want %v", geo.Groups[0].Triangles, want)
	}
}

func TestMissingArrays(t *testing.T) {
	m := &gms.Model{}
	geo, diags := geom.Expand(m, drawMesh(gms.DrawArraysCommand{
		ArraysName: "nope", Primitive: gms.PRIM_TRIANGLES,
		VertsPerPrim: 3, PrimitiveCount: 1,
		Indices: []int{0, 1, 2},
	}))
	if len(diags) != 1 || diags[0].Level != gms.DIAG_REFERENCE {
		t.Fatalf("diagnostics %v", diags)
	}
	if !geo.Empty() || len(geo.Groups) != 0 {
		t.Errorf("geometry %+v", geo)
	}
}

func TestZeroVertsPerPrim(t *testing.T) {
	m := arraysModel("quad", 4)
	geo, diags := geom.Expand(m, drawMesh(gms.DrawArraysCommand{
		ArraysName: "quad", Primitive: gms.PRIM_TRIANGLES,
		VertsPerPrim: 0, PrimitiveCount: 1,
	}))
	if len(diags) != 1 || diags[0].Level != gms.DIAG_FIELD {
		t.Fatalf("diagnostics %v", diags)
	}
	if len(geo.Groups) != 0 {
		t.Errorf("%d groups from a dropped command", len(geo.Groups))
	}
}

func TestDeclaredCountPastIndices(t *testing.T) {
	m := arraysModel("quad", 4)
	geo, diags := geom.Expand(m, drawMesh(gms.DrawArraysCommand{
		ArraysName: "quad", Primitive: gms.PRIM_TRIANGLES,
		VertsPerPrim: 3, PrimitiveCount: 3,
		Indices: []int{0, 1, 2},
	}))
	if len(diags) != 1 || diags[0].Level != gms.DIAG_FIELD {
		t.Fatalf("diagnostics %v", diags)
	}
	want := [][3]uint32{{0, 1, 2}}
	if !reflect.DeepEqual(geo.Groups[0].Triangles, want) {
		t.Errorf("triangles %v, want %v", geo.Groups[0].Triangles, want)
	}
}

func TestGroupsKeyedByArrays(t *testing.T) {
	m := arraysModel("quad", 4)
	m.Arrays["tail"] = &gms.VertexArray{Name: "tail", Positions: make([]mgl32.Vec3, 2)}
	geo, diags := geom.Expand(m, drawMesh(
		gms.DrawArraysCommand{
			ArraysName: "quad", Primitive: gms.PRIM_TRIANGLES,
			VertsPerPrim: 3, PrimitiveCount: 1, Indices: []int{0, 1, 2},
		},
		gms.DrawArraysCommand{
			ArraysName: "tail", Primitive: gms.PRIM_LINES,
			VertsPerPrim: 2, PrimitiveCount: 1, Indices: []int{0, 1},
		},
		gms.DrawArraysCommand{
			ArraysName: "quad", Primitive: gms.PRIM_TRIANGLES,
			VertsPerPrim: 3, PrimitiveCount: 1, Indices: []int{1, 2, 3},
		},
	))
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(geo.Groups) != 2 {
		t.Fatalf("%d groups", len(geo.Groups))
	}
	if geo.Groups[0].ArraysName != "quad" || geo.Groups[1].ArraysName != "tail" {
		t.Errorf("group order %q %q", geo.Groups[0].ArraysName, geo.Groups[1].ArraysName)
	}
	if len(geo.Groups[0].Triangles) != 2 || len(geo.Groups[1].Lines) != 1 {
		t.Errorf("group contents %+v", geo.Groups)
	}
}
