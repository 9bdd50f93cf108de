package gms

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/gms_browser/utils"
)

type parser struct {
	src   *LineSource
	model *Model
	diags []Diagnostic
	names utils.RandomNameGenerator
}

// NewModelFromData parses a textual model dump into a scene graph.
// Defects inside an intact block structure are reported as diagnostics,
// only a broken file shape (bad signature, unterminated block) is an
// error. Only the first Model block is read, the rest of the file is
// left alone.
func NewModelFromData(data []byte) (*Model, []Diagnostic, error) {
	src, err := NewLineSource(data)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasPrefix(src.FirstRaw(), FILE_SIGNATURE) {
		return nil, nil, errors.Errorf("Not a model dump: first line does not begin with %q", FILE_SIGNATURE)
	}

	p := &parser{src: src}
	p.src.Skip()

	for !p.src.EOF() {
		line := p.src.Peek(0)
		if line == "" || strings.HasPrefix(line, "//") {
			p.src.Skip()
			continue
		}
		if keywordOf(line) == "Model" {
			m, err := p.parseModel()
			if err != nil {
				return nil, p.diags, err
			}
			return m, p.diags, nil
		}
		// DefineEnum, DefineBlock, BlindData and whatever else preambles carry
		if err := p.skipUnknown(line); err != nil {
			return nil, p.diags, err
		}
	}

	p.diagf(DIAG_REFERENCE, 0, "No Model block in file")
	return newModel(), p.diags, nil
}

func keywordOf(line string) string {
	kw := line
	if i := strings.IndexAny(kw, " \t"); i >= 0 {
		kw = kw[:i]
	}
	return strings.TrimSuffix(kw, "{")
}

func (p *parser) diagf(level int, line int, format string, a ...interface{}) {
	p.diags = Diagf(p.diags, level, line, format, a...)
}

func (p *parser) tokens(line string, lineNo int) []token {
	toks, err := tokenizeLine(line)
	if err != nil {
		p.diagf(DIAG_FIELD, lineNo, "Tokenizer gave up on line: %v", err)
	}
	return toks
}

func (p *parser) placeholder(kind string, line int) string {
	name := p.names.RandomName()
	p.diagf(DIAG_REFERENCE, line, "Unnamed %s block, using generated name %q", kind, name)
	return name
}

type blockStart struct {
	name string
	line int
	toks []token
}

// openBlock consumes a block header. Both header shapes are accepted,
// the brace on the header line or alone on the following one.
func (p *parser) openBlock(kind string, needName bool) blockStart {
	lineNo := p.src.Line()
	header := p.src.Read()
	toks := p.tokens(header, lineNo)
	name, ok := firstString(toks)
	if !ok && needName {
		name = p.placeholder(kind, lineNo)
	}
	if !strings.HasSuffix(header, "{") {
		if brace := p.src.Read(); brace != "{" {
			p.diagf(DIAG_FIELD, lineNo+1, "Expected { after %s %q header, got %q", kind, name, brace)
		}
	}
	return blockStart{name: name, line: lineNo, toks: toks}
}

// walkBlock feeds every body line to handle until the closing brace.
// handle owns consuming the lines of whatever construct it recognizes.
func (p *parser) walkBlock(kind, name string, handle func(kw, line string, lineNo int) error) error {
	for {
		if p.src.EOF() {
			return errors.Errorf("Unterminated %s block %q", kind, name)
		}
		line := p.src.Peek(0)
		if line == "" || strings.HasPrefix(line, "//") {
			p.src.Skip()
			continue
		}
		if line == "}" {
			p.src.Skip()
			return nil
		}
		if line == "{" {
			p.diagf(DIAG_FIELD, p.src.Line(), "Stray { inside %s %q", kind, name)
			p.src.Skip()
			continue
		}
		if err := handle(keywordOf(line), line, p.src.Line()); err != nil {
			return err
		}
	}
}

// skipUnknown consumes an unrecognized directive, whole block included
// when one opens on this or the following line.
func (p *parser) skipUnknown(line string) error {
	lineNo := p.src.Line()
	p.src.Skip()
	opens := strings.HasSuffix(line, "{")
	if !opens && p.src.Peek(0) == "{" {
		p.src.Skip()
		opens = true
	}
	if !opens {
		return nil
	}
	for depth := 1; depth > 0; {
		if p.src.EOF() {
			return errors.Errorf("Unterminated block at line %d (%.40q)", lineNo, line)
		}
		next := p.src.Read()
		if strings.HasSuffix(next, "{") {
			depth++
		} else if next == "}" {
			depth--
		}
	}
	return nil
}

func (p *parser) leafFloats(line string, lineNo int) []float32 {
	p.src.Skip()
	return floatValues(p.tokens(line, lineNo))
}

func (p *parser) fillVec3(dst *mgl32.Vec3, kw string, vals []float32, lineNo int) {
	if copy(dst[:], vals) < 3 {
		p.diagf(DIAG_FIELD, lineNo, "%s expects 3 values, got %d", kw, len(vals))
	}
}

// leafColor reads an RGBA directive. Short lines leave the previous
// value in place.
func (p *parser) leafColor(kw string, line string, lineNo int) *utils.ColorFloat {
	vals := p.leafFloats(line, lineNo)
	if len(vals) < 4 {
		p.diagf(DIAG_FIELD, lineNo, "%s expects 4 values, got %d, ignored", kw, len(vals))
		return nil
	}
	c := utils.NewColorFloatA(vals)
	return &c
}

func dataRowFloats(line string) ([]float32, bool) {
	fields := strings.Fields(line)
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return out, true
		}
		out = append(out, float32(v))
	}
	return out, false
}

func (p *parser) parseModel() (*Model, error) {
	m := newModel()
	p.model = m
	start := p.openBlock("Model", true)
	m.Name = start.name

	err := p.walkBlock("Model", m.Name, func(kw, line string, lineNo int) error {
		switch kw {
		case "BoundingBox":
			return p.parseBoundingBox(line, lineNo)
		case "Bone":
			return p.parseBone()
		case "Part":
			return p.parsePart()
		case "Material":
			return p.parseMaterial()
		case "Texture":
			return p.parseTexture()
		case "Motion":
			return p.parseMotion()
		case "Arrays":
			return p.parseArrays()
		default:
			return p.skipUnknown(line)
		}
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (p *parser) parseBoundingBox(line string, lineNo int) error {
	vals := p.leafFloats(line, lineNo)
	if strings.HasSuffix(line, "{") {
		err := p.walkBlock("BoundingBox", "", func(_, body string, bodyNo int) error {
			p.src.Skip()
			more, bad := dataRowFloats(body)
			if bad {
				p.diagf(DIAG_FIELD, bodyNo, "BoundingBox holds a non-numeric token, tail dropped")
			}
			vals = append(vals, more...)
			return nil
		})
		if err != nil {
			return err
		}
	}
	bb := &BoundingBox{}
	if len(vals) >= 6 {
		bb.Min = mgl32.Vec3{vals[0], vals[1], vals[2]}
		bb.Max = mgl32.Vec3{vals[3], vals[4], vals[5]}
	} else {
		p.diagf(DIAG_FIELD, lineNo, "BoundingBox expects 6 values, got %d", len(vals))
	}
	p.model.BBox = bb
	return nil
}

func (p *parser) parseBone() error {
	start := p.openBlock("Bone", true)
	b := Bone{Name: start.name, Scale: mgl32.Vec3{1, 1, 1}}

	err := p.walkBlock("Bone", b.Name, func(kw, line string, lineNo int) error {
		switch kw {
		case "ParentBone":
			toks := p.tokens(line, lineNo)
			p.src.Skip()
			if name, ok := firstString(toks); ok {
				b.ParentName = name
			} else {
				p.diagf(DIAG_REFERENCE, lineNo, "ParentBone without a bone name, bone %q stays a root", b.Name)
			}
		case "Translate":
			p.fillVec3(&b.Translation, kw, p.leafFloats(line, lineNo), lineNo)
		case "RotateZYX", "RotateYXZ":
			p.fillVec3(&b.Euler, kw, p.leafFloats(line, lineNo), lineNo)
		case "RotateQ":
			vals := p.leafFloats(line, lineNo)
			if len(vals) >= 4 {
				b.Quat = &mgl32.Quat{W: vals[3], V: mgl32.Vec3{vals[0], vals[1], vals[2]}}
			} else {
				p.diagf(DIAG_FIELD, lineNo, "RotateQ expects 4 values, got %d, ignored", len(vals))
			}
		case "Scale":
			p.fillVec3(&b.Scale, kw, p.leafFloats(line, lineNo), lineNo)
		case "BlendBones":
			toks := p.tokens(line, lineNo)
			p.src.Skip()
			b.BlendBones = allStrings(toks)
			if ints := intValues(toks); len(ints) > 0 && ints[0] != len(b.BlendBones) {
				p.diagf(DIAG_FIELD, lineNo, "BlendBones declares %d names, found %d", ints[0], len(b.BlendBones))
			}
		case "DrawPart":
			toks := p.tokens(line, lineNo)
			p.src.Skip()
			if part, ok := firstString(toks); ok {
				if prev, dup := p.model.PartBone[part]; dup && prev != b.Name {
					p.diagf(DIAG_REFERENCE, lineNo, "Part %q was driven by bone %q, now %q", part, prev, b.Name)
				}
				p.model.PartBone[part] = b.Name
			} else {
				p.diagf(DIAG_REFERENCE, lineNo, "DrawPart without a part name")
			}
		default:
			return p.skipUnknown(line)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if _, dup := p.model.BoneIndex[b.Name]; dup {
		p.diagf(DIAG_REFERENCE, start.line, "Duplicate bone name %q, later definition wins", b.Name)
	}
	p.model.Bones = append(p.model.Bones, b)
	p.model.BoneIndex[b.Name] = len(p.model.Bones) - 1
	return nil
}

func (p *parser) parsePart() error {
	start := p.openBlock("Part", true)
	part := Part{Name: start.name}

	err := p.walkBlock("Part", part.Name, func(kw, line string, lineNo int) error {
		switch kw {
		case "Mesh":
			return p.parseMesh(&part.Meshes)
		case "Arrays":
			return p.parseArrays()
		default:
			// part level BoundingBox included, it is not kept
			return p.skipUnknown(line)
		}
	})
	if err != nil {
		return err
	}
	p.model.Parts = append(p.model.Parts, part)
	return nil
}

func (p *parser) parseArrays() error {
	start := p.openBlock("Arrays", true)

	format := ArrayFormat{}
	declared := 0
	for i, t := range start.toks {
		if t.kind != TOKEN_IDENT || !isFormatFlagsToken(t.text) {
			continue
		}
		format = ParseArrayFormat(t.text)
		if i+1 < len(start.toks) && start.toks[i+1].kind == TOKEN_NUMBER && isDigits(start.toks[i+1].text) {
			declared, _ = strconv.Atoi(start.toks[i+1].text)
		}
		break
	}
	if format == (ArrayFormat{}) {
		p.diagf(DIAG_FIELD, start.line, "Arrays %q header carries no format flags", start.name)
	}

	va := newVertexArray(start.name, format, declared)
	err := p.walkBlock("Arrays", va.Name, func(_, line string, lineNo int) error {
		p.src.Skip()
		vals, bad := dataRowFloats(line)
		if bad {
			p.diagf(DIAG_FIELD, lineNo, "Arrays %q data line holds a non-numeric token, tail dropped", va.Name)
		}
		va.appendRow(vals)
		return nil
	})
	if err != nil {
		return err
	}

	if _, dup := p.model.Arrays[va.Name]; dup {
		p.diagf(DIAG_REFERENCE, start.line, "Duplicate arrays name %q, later definition wins", va.Name)
	}
	if va.DeclaredCount != 0 && va.Format.HasPosition && len(va.Positions) != va.DeclaredCount {
		p.diagf(DIAG_FIELD, start.line, "Arrays %q declares %d vertices, decoded %d",
			va.Name, va.DeclaredCount, len(va.Positions))
	}
	p.model.Arrays[va.Name] = va
	return nil
}

func (p *parser) parseMesh(dst *[]Mesh) error {
	start := p.openBlock("Mesh", true)
	mesh := Mesh{Name: start.name}

	err := p.walkBlock("Mesh", mesh.Name, func(kw, line string, lineNo int) error {
		switch kw {
		case "SetMaterial":
			toks := p.tokens(line, lineNo)
			p.src.Skip()
			if name, ok := firstString(toks); ok {
				mesh.MaterialName = name
			} else {
				p.diagf(DIAG_REFERENCE, lineNo, "SetMaterial without a material name")
			}
		case "BlendSubset":
			toks := p.tokens(line, lineNo)
			p.src.Skip()
			ints := intValues(toks)
			if len(ints) == 0 {
				p.diagf(DIAG_FIELD, lineNo, "BlendSubset without a count")
				break
			}
			count, avail := ints[0], ints[1:]
			if count < 0 {
				count = 0
			}
			if count > len(avail) {
				p.diagf(DIAG_FIELD, lineNo, "BlendSubset declares %d indices, found %d", count, len(avail))
				count = len(avail)
			}
			mesh.BlendSubset = append([]int(nil), avail[:count]...)
		case "DrawArrays":
			return p.parseDrawArrays(&mesh)
		default:
			return p.skipUnknown(line)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*dst = append(*dst, mesh)
	return nil
}

func (p *parser) parseDrawArrays(mesh *Mesh) error {
	lineNo := p.src.Line()
	header := p.src.Read()
	toks := p.tokens(header, lineNo)

	cmd := DrawArraysCommand{Primitive: -1}
	if name, ok := firstString(toks); ok {
		cmd.ArraysName = name
	} else {
		p.diagf(DIAG_REFERENCE, lineNo, "DrawArrays without an arrays name")
	}

	for i, t := range toks {
		if t.kind != TOKEN_IDENT {
			continue
		}
		prim, ok := primitiveNames[strings.TrimPrefix(t.text, "PRIM_")]
		if !ok {
			continue
		}
		cmd.Primitive = prim
		if i+1 < len(toks) && toks[i+1].kind == TOKEN_NUMBER && isDigits(toks[i+1].text) {
			cmd.VertsPerPrim, _ = strconv.Atoi(toks[i+1].text)
		}
		if i+2 < len(toks) && toks[i+2].kind == TOKEN_NUMBER && isDigits(toks[i+2].text) {
			cmd.PrimitiveCount, _ = strconv.Atoi(toks[i+2].text)
		}
		for _, it := range toks[i+3:] {
			if n, ok := isIntToken(it); ok {
				cmd.Indices = append(cmd.Indices, n)
			}
		}
		break
	}
	if cmd.Primitive < 0 {
		p.diagf(DIAG_REFERENCE, lineNo, "DrawArrays without a known primitive type, command dropped")
	}

	// long index lists continue inside a block
	if strings.HasSuffix(header, "{") {
		err := p.walkBlock("DrawArrays", cmd.ArraysName, func(_, line string, _ int) error {
			p.src.Skip()
			for _, f := range strings.Fields(line) {
				if n, err := strconv.Atoi(f); err == nil {
					cmd.Indices = append(cmd.Indices, n)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if cmd.Primitive >= 0 {
		mesh.DrawCommands = append(mesh.DrawCommands, cmd)
	}
	return nil
}

func (p *parser) parseMaterial() error {
	start := p.openBlock("Material", true)
	mat := Material{Name: start.name}

	err := p.walkBlock("Material", mat.Name, func(kw, line string, lineNo int) error {
		switch kw {
		case "Diffuse":
			if c := p.leafColor(kw, line, lineNo); c != nil {
				mat.Diffuse = c
			}
		case "Ambient":
			if c := p.leafColor(kw, line, lineNo); c != nil {
				mat.Ambient = c
			}
		case "Layer":
			return p.parseLayer(&mat)
		default:
			// BlindData and RenderState blocks included
			return p.skipUnknown(line)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if _, dup := p.model.MaterialIndex[mat.Name]; dup {
		p.diagf(DIAG_REFERENCE, start.line, "Duplicate material name %q, later definition wins", mat.Name)
	}
	p.model.Materials = append(p.model.Materials, mat)
	p.model.MaterialIndex[mat.Name] = len(p.model.Materials) - 1
	return nil
}

func (p *parser) parseLayer(mat *Material) error {
	start := p.openBlock("Layer", false)
	layer := Layer{Name: start.name}

	err := p.walkBlock("Layer", layer.Name, func(kw, line string, lineNo int) error {
		switch kw {
		case "Diffuse":
			if c := p.leafColor(kw, line, lineNo); c != nil {
				layer.Diffuse = c
			}
		case "Ambient":
			if c := p.leafColor(kw, line, lineNo); c != nil {
				layer.Ambient = c
			}
		case "Specular":
			if c := p.leafColor(kw, line, lineNo); c != nil {
				layer.Specular = c
			}
		case "Emission":
			if c := p.leafColor(kw, line, lineNo); c != nil {
				layer.Emission = c
			}
		case "SetTexture":
			toks := p.tokens(line, lineNo)
			p.src.Skip()
			if name, ok := firstString(toks); ok {
				layer.TextureName = name
			} else {
				p.diagf(DIAG_REFERENCE, lineNo, "SetTexture without a texture name")
			}
		case "Mesh":
			return p.parseMesh(&layer.Meshes)
		default:
			return p.skipUnknown(line)
		}
		return nil
	})
	if err != nil {
		return err
	}
	mat.Layers = append(mat.Layers, layer)
	return nil
}

func (p *parser) parseTexture() error {
	start := p.openBlock("Texture", true)
	tex := Texture{Name: start.name}

	err := p.walkBlock("Texture", tex.Name, func(kw, line string, lineNo int) error {
		switch kw {
		case "FileName":
			toks := p.tokens(line, lineNo)
			p.src.Skip()
			if name, ok := firstString(toks); ok {
				tex.FileName = name
			} else {
				p.diagf(DIAG_FIELD, lineNo, "FileName without a value in texture %q", tex.Name)
			}
		default:
			return p.skipUnknown(line)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if _, dup := p.model.TextureIndex[tex.Name]; dup {
		p.diagf(DIAG_REFERENCE, start.line, "Duplicate texture name %q, later definition wins", tex.Name)
	}
	p.model.Textures = append(p.model.Textures, tex)
	p.model.TextureIndex[tex.Name] = len(p.model.Textures) - 1
	return nil
}

func (p *parser) parseMotion() error {
	start := p.openBlock("Motion", false)
	mo := Motion{Name: start.name}

	err := p.walkBlock("Motion", mo.Name, func(kw, line string, lineNo int) error {
		switch kw {
		case "FrameRate":
			vals := p.leafFloats(line, lineNo)
			if len(vals) >= 1 {
				mo.FrameRate = vals[0]
			} else {
				p.diagf(DIAG_FIELD, lineNo, "FrameRate without a value in motion %q", mo.Name)
			}
		case "FrameLoop":
			vals := p.leafFloats(line, lineNo)
			if len(vals) >= 2 {
				mo.FrameLoop = [2]float32{vals[0], vals[1]}
			} else {
				p.diagf(DIAG_FIELD, lineNo, "FrameLoop expects 2 values, got %d", len(vals))
			}
		case "FCurve", "Animate":
			return p.parseFCurve(kw, &mo)
		default:
			return p.skipUnknown(line)
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.model.Motions = append(p.model.Motions, mo)
	return nil
}

func (p *parser) parseFCurve(kw string, mo *Motion) error {
	lineNo := p.src.Line()
	header := p.src.Read()
	toks := p.tokens(header, lineNo)

	fc := FCurve{Interpolation: INTERP_UNKNOWN}
	if name, ok := firstString(toks); ok {
		fc.Name = name
	}
	for i, t := range toks {
		if t.kind != TOKEN_IDENT {
			continue
		}
		interp, ok := interpolationNames[t.text]
		if !ok {
			continue
		}
		fc.Interpolation = interp
		var nums []int
		for _, nt := range toks[i+1:] {
			if n, ok := isIntToken(nt); ok {
				nums = append(nums, n)
				if len(nums) == 2 {
					break
				}
			}
		}
		if len(nums) > 0 {
			fc.ValueCount = nums[0]
		}
		if len(nums) > 1 {
			fc.FrameCount = nums[1]
		}
		break
	}

	// a curve may be a bare directive or carry a key block
	opens := strings.HasSuffix(header, "{")
	if !opens && p.src.Peek(0) == "{" {
		p.src.Skip()
		opens = true
	}
	if opens {
		err := p.walkBlock(kw, fc.Name, func(_, line string, bodyNo int) error {
			p.src.Skip()
			vals, bad := dataRowFloats(line)
			if bad {
				p.diagf(DIAG_FIELD, bodyNo, "Curve key line holds a non-numeric token, tail dropped")
			}
			if len(vals) > 0 {
				fc.Frames = append(fc.Frames, FCurveFrame{Time: vals[0], Values: vals[1:]})
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	mo.FCurves = append(mo.FCurves, fc)
	return nil
}
