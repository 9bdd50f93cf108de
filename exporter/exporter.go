// Package exporter turns parsed models into interchange formats. The
// glb and gltf dumps carry the full scene with skinning, fbx keeps the
// skeleton and geometry, obj is geometry only.
package exporter

import (
	"io"

	"github.com/pkg/errors"

	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/utils/gltfutils"
)

// Formats lists the dump formats Export understands.
var Formats = []string{"glb", "gltf", "fbx", "obj"}

// Export writes the model in the named format. The obj dump comes out
// as a zip with the material library next to the geometry.
func Export(w io.Writer, format string, m *gms.Model) error {
	switch format {
	case "glb":
		doc, err := ExportGLTFDefault(m)
		if err != nil {
			return err
		}
		return gltfutils.ExportBinary(w, doc)
	case "gltf":
		doc, err := ExportGLTFDefault(m)
		if err != nil {
			return err
		}
		return gltfutils.ExportText(w, doc)
	case "fbx":
		return ExportFBXDefault(m, m.Name+".fbx").Write(w)
	case "obj":
		return ExportOBJZip(w, m, m.Name)
	default:
		return errors.Errorf("Unknown export format %q", format)
	}
}

// FileName returns the download name for a dump of the model.
func FileName(name string, format string) string {
	if format == "obj" {
		return name + ".obj.zip"
	}
	return name + "." + format
}
