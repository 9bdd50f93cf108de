package exporter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/gms_browser/config"
	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/gms/geom"
	"github.com/mogaika/gms_browser/gms/skeleton"
	"github.com/mogaika/gms_browser/utils"
)

type objChunk struct {
	name     string
	material string
	group    *geom.Group
	va       *gms.VertexArray
}

func exportOBJMaterials(wm func(format string, args ...interface{}), m *gms.Model) {
	for i := range m.Materials {
		mat := &m.Materials[i]

		color := utils.ColorFloat{1, 1, 1, 1}
		if mat.Diffuse != nil {
			color = *mat.Diffuse
		}

		wm("newmtl %s", mat.Name)
		wm("Kd %f %f %f", color[0], color[1], color[2])
		if mat.Ambient != nil {
			wm("Ka %f %f %f", mat.Ambient[0], mat.Ambient[1], mat.Ambient[2])
		}
		wm("d %f", color[3])

		for iLayer := range mat.Layers {
			layer := &mat.Layers[iLayer]
			if layer.TextureName == "" {
				continue
			}
			tex := m.TextureByName(layer.TextureName)
			if tex == nil || tex.FileName == "" {
				continue
			}
			wm("map_Kd %s", strings.ReplaceAll(tex.FileName, "\\", "/"))
			break
		}
		wm("")
	}
}

// ExportOBJ writes the model geometry as a wavefront obj plus its
// material library. The obj format keeps no skeleton, geometry comes
// out in rest pose with the configured scale and axis swap applied.
func ExportOBJ(_w io.Writer, _wMatlib io.Writer, matlibRelativePath string, m *gms.Model) error {
	w := func(format string, args ...interface{}) {
		_w.Write(([]byte)(fmt.Sprintf(format+"\n", args...)))
	}
	wm := func(format string, args ...interface{}) {
		_wMatlib.Write(([]byte)(fmt.Sprintf(format+"\n", args...)))
	}

	settings := config.GetSettings()

	w("mtllib %s", filepath.Base(matlibRelativePath))

	exportOBJMaterials(wm, m)

	chunks := make([]objChunk, 0, 8)
	for iPart := range m.Parts {
		part := &m.Parts[iPart]
		for iMesh := range part.Meshes {
			mesh := &part.Meshes[iMesh]

			geo, diags := geom.Expand(m, mesh)
			logDiags(m.Name, diags)

			for iGroup := range geo.Groups {
				group := &geo.Groups[iGroup]
				name := mesh.Name
				if len(geo.Groups) > 1 {
					name = fmt.Sprintf("%s_%s", mesh.Name, group.ArraysName)
				}
				chunks = append(chunks, objChunk{
					name:     name,
					material: mesh.MaterialName,
					group:    group,
					va:       m.Arrays[group.ArraysName],
				})
			}
		}
	}

	for _, chunk := range chunks {
		va := chunk.va
		verticesCount := len(va.Positions)

		for _, p := range va.Positions {
			p = p.Mul(settings.Scale)
			if settings.ZUp {
				p = skeleton.ConvertZUp(p)
			}
			w("v %f %f %f", p[0], p[1], p[2])
		}

		if va.Format.HasTexCoord && len(va.UVs) == verticesCount {
			for _, uv := range va.UVs {
				w("vt %f %f", uv[0], -uv[1])
			}
		}

		if va.Format.HasNormal && len(va.Normals) == verticesCount {
			for _, n := range va.Normals {
				if settings.ZUp {
					n = skeleton.ConvertZUp(n)
				}
				w("vn %f %f %f", n[0], n[1], n[2])
			}
		}
	}

	iV := uint32(1)
	iT := uint32(1)
	iN := uint32(1)

	for _, chunk := range chunks {
		va := chunk.va
		verticesCount := len(va.Positions)

		w("o %s", chunk.name)
		if chunk.material != "" && m.MaterialByName(chunk.material) != nil {
			w("usemtl %s", chunk.material)
		}

		haveUV := va.Format.HasTexCoord && len(va.UVs) == verticesCount
		haveNorm := va.Format.HasNormal && len(va.Normals) == verticesCount

		for _, tri := range chunk.group.Triangles {
			if haveNorm {
				if haveUV {
					w("f %v/%v/%v %v/%v/%v %v/%v/%v",
						iV+tri[0], iT+tri[0], iN+tri[0],
						iV+tri[1], iT+tri[1], iN+tri[1],
						iV+tri[2], iT+tri[2], iN+tri[2])
				} else {
					w("f %v//%v %v//%v %v//%v",
						iV+tri[0], iN+tri[0],
						iV+tri[1], iN+tri[1],
						iV+tri[2], iN+tri[2])
				}
			} else {
				if haveUV {
					w("f %v/%v %v/%v %v/%v",
						iV+tri[0], iT+tri[0],
						iV+tri[1], iT+tri[1],
						iV+tri[2], iT+tri[2])
				} else {
					w("f %v %v %v",
						iV+tri[0],
						iV+tri[1],
						iV+tri[2])
				}
			}
		}

		for _, line := range chunk.group.Lines {
			w("l %v %v", iV+line[0], iV+line[1])
		}

		for _, point := range chunk.group.Points {
			w("p %v", iV+point)
		}

		iV += uint32(verticesCount)
		if haveUV {
			iT += uint32(verticesCount)
		}
		if haveNorm {
			iN += uint32(verticesCount)
		}
	}

	return nil
}

// ExportOBJZip bundles the obj and its mtl into one archive for a
// single download. Textures are file references in the dump, there is
// no image payload to pack next to them.
func ExportOBJZip(w io.Writer, m *gms.Model, name string) error {
	var buf, objBuf, mtlBuf bytes.Buffer

	z := zip.NewWriter(&buf)

	if err := ExportOBJ(&objBuf, &mtlBuf, name+".mtl", m); err != nil {
		return errors.Wrapf(err, "Unable to export obj for %q", m.Name)
	}

	wObj, err := z.Create(name + ".obj")
	if err != nil {
		return err
	}
	wObj.Write(objBuf.Bytes())

	wMtl, err := z.Create(name + ".mtl")
	if err != nil {
		return err
	}
	wMtl.Write(mtlBuf.Bytes())

	if err := z.Close(); err != nil {
		return err
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	return nil
}
