package web

import (
	"bytes"
	"io/ioutil"
	"log"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/mogaika/gms_browser/config"
	"github.com/mogaika/gms_browser/exporter"
	"github.com/mogaika/gms_browser/gms"
	"github.com/mogaika/gms_browser/gms/geom"
	"github.com/mogaika/gms_browser/gms/skeleton"
	"github.com/mogaika/gms_browser/gms/skin"
	"github.com/mogaika/gms_browser/status"
	"github.com/mogaika/gms_browser/vfs"
	"github.com/mogaika/gms_browser/webutils"
)

var indexLock sync.Mutex
var indexCache []string

func scanModels(d vfs.Directory, prefix string, out *[]string) error {
	names, err := d.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		e, err := d.GetElement(name)
		if err != nil {
			log.Printf("[web] Cannot stat %q: %v", prefix+name, err)
			continue
		}
		if e.IsDirectory() {
			sub, ok := e.(vfs.Directory)
			if !ok {
				// the iso driver only serves the image root
				continue
			}
			if err := scanModels(sub, prefix+name+"/", out); err != nil {
				log.Printf("[web] Cannot scan %q: %v", prefix+name, err)
			}
		} else if strings.HasSuffix(strings.ToUpper(name), ".GMS") {
			*out = append(*out, prefix+name)
		}
	}
	return nil
}

func refreshIndex() ([]string, error) {
	indexLock.Lock()
	defer indexLock.Unlock()

	files := make([]string, 0, 32)
	if err := scanModels(ServerSource, "", &files); err != nil {
		return nil, err
	}
	sort.Strings(files)
	indexCache = files
	status.Info("Indexed %d model dumps", len(files))
	return files, nil
}

func cachedIndex() ([]string, error) {
	indexLock.Lock()
	cached := indexCache
	indexLock.Unlock()
	if cached != nil {
		return cached, nil
	}
	return refreshIndex()
}

func HandlerAjaxIndex(w http.ResponseWriter, r *http.Request) {
	files, err := cachedIndex()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, files)
}

func HandlerActionRefresh(w http.ResponseWriter, r *http.Request) {
	files, err := refreshIndex()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, files)
}

func loadModel(p string) (*gms.Model, []gms.Diagnostic, error) {
	f, err := vfs.WalkPathGetFile(ServerSource, p)
	if err != nil {
		return nil, nil, err
	}

	reader, err := vfs.OpenFileAndGetReader(f, true)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "Cannot read %q", p)
	}

	m, diags, err := gms.NewModelFromData(data)
	if err != nil {
		status.Error("%s: %v", p, err)
		return nil, nil, err
	}
	for _, d := range diags {
		status.Diag("%s: %v", p, d)
	}
	return m, diags, nil
}

type BoneView struct {
	Name   string
	Parent int
	Local  mgl32.Mat4
	World  mgl32.Mat4
	Head   mgl32.Vec3
	Tail   mgl32.Vec3
	Length float32
}

type MeshView struct {
	Name       string
	Material   string
	Binding    string
	BoneName   string `json:",omitempty"`
	Influenced int
	Triangles  int
	Lines      int
	Points     int
}

type PartView struct {
	Name   string
	Meshes []MeshView
}

type ArraysView struct {
	Name          string
	DeclaredCount int
	Vertices      int
	HasNormal     bool
	HasTexCoord   bool
	HasColor      bool
	WeightCount   int
}

type MotionView struct {
	Name      string
	FrameRate float32
	FrameLoop [2]float32
	FCurves   int
}

type ModelView struct {
	Name        string
	BBox        *gms.BoundingBox `json:",omitempty"`
	Bones       []BoneView
	Parts       []PartView
	Arrays      []ArraysView
	Materials   []gms.Material
	Textures    []gms.Texture
	Motions     []MotionView
	Diagnostics []string
}

func buildModelView(m *gms.Model, parseDiags []gms.Diagnostic) *ModelView {
	settings := config.GetSettings()
	view := &ModelView{
		Name:      m.Name,
		BBox:      m.BBox,
		Materials: m.Materials,
		Textures:  m.Textures,
	}

	diags := append([]gms.Diagnostic{}, parseDiags...)

	sk, skDiags := skeleton.Resolve(m, skeleton.Options{Scale: settings.Scale, ZUp: settings.ZUp})
	diags = append(diags, skDiags...)
	view.Bones = make([]BoneView, len(sk.Bones))
	for i := range sk.Bones {
		bt := &sk.Bones[i]
		view.Bones[i] = BoneView{
			Name:   bt.Name,
			Parent: bt.Parent,
			Local:  bt.Local,
			World:  bt.World,
			Head:   bt.Head,
			Tail:   bt.Tail,
			Length: bt.Length,
		}
	}

	for iPart := range m.Parts {
		part := &m.Parts[iPart]
		pv := PartView{Name: part.Name, Meshes: make([]MeshView, 0, len(part.Meshes))}
		for iMesh := range part.Meshes {
			mesh := &part.Meshes[iMesh]

			geo, geoDiags := geom.Expand(m, mesh)
			diags = append(diags, geoDiags...)

			ms, skinDiags := skin.ResolveMesh(m, mesh)
			diags = append(diags, skinDiags...)

			mv := MeshView{
				Name:     mesh.Name,
				Material: mesh.MaterialName,
				Binding:  skin.BindingName(ms.Binding),
				BoneName: ms.BoneName,
			}
			for _, row := range ms.Weights {
				if len(row) > 0 {
					mv.Influenced++
				}
			}
			for iGroup := range geo.Groups {
				group := &geo.Groups[iGroup]
				mv.Triangles += len(group.Triangles)
				mv.Lines += len(group.Lines)
				mv.Points += len(group.Points)
			}
			pv.Meshes = append(pv.Meshes, mv)
		}
		view.Parts = append(view.Parts, pv)
	}

	view.Arrays = make([]ArraysView, 0, len(m.Arrays))
	for _, va := range m.Arrays {
		view.Arrays = append(view.Arrays, ArraysView{
			Name:          va.Name,
			DeclaredCount: va.DeclaredCount,
			Vertices:      len(va.Positions),
			HasNormal:     va.Format.HasNormal,
			HasTexCoord:   va.Format.HasTexCoord,
			HasColor:      va.Format.HasColor,
			WeightCount:   va.Format.WeightCount,
		})
	}
	sort.Slice(view.Arrays, func(i, j int) bool { return view.Arrays[i].Name < view.Arrays[j].Name })

	for i := range m.Motions {
		mo := &m.Motions[i]
		view.Motions = append(view.Motions, MotionView{
			Name:      mo.Name,
			FrameRate: mo.FrameRate,
			FrameLoop: mo.FrameLoop,
			FCurves:   len(mo.FCurves),
		})
	}

	view.Diagnostics = make([]string, len(diags))
	for i, d := range diags {
		view.Diagnostics[i] = d.String()
	}
	return view
}

func HandlerAjaxModel(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]
	m, diags, err := loadModel(p)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, buildModelView(m, diags))
}

func HandlerDumpModel(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]
	format := mux.Vars(r)["format"]

	m, diags, err := loadModel(p)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	name := strings.TrimSuffix(path.Base(p), path.Ext(p))

	if format == "json" {
		webutils.WriteJsonFile(w, buildModelView(m, diags), name)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(&buf, format, m); err != nil {
		webutils.WriteError(w, err)
		return
	}
	status.Info("Exported %s as %s (%d bytes)", p, format, buf.Len())
	webutils.WriteFile(w, &buf, exporter.FileName(name, format))
}

func HandlerDumpRaw(w http.ResponseWriter, r *http.Request) {
	p := mux.Vars(r)["path"]
	f, err := vfs.WalkPathGetFile(ServerSource, p)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	reader, err := vfs.OpenFileAndGetReader(f, true)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	defer f.Close()

	webutils.WriteFile(w, reader, path.Base(p))
}

func HandlerAjaxSettings(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, config.GetSettings())
}

func HandlerActionSettings(w http.ResponseWriter, r *http.Request) {
	s := config.GetSettings()

	if v := r.FormValue("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 32)
		if err != nil {
			webutils.WriteError(w, errors.Wrapf(err, "Bad scale %q", v))
			return
		}
		s.Scale = float32(scale)
	}
	if v := r.FormValue("zup"); v != "" {
		zup, err := strconv.ParseBool(v)
		if err != nil {
			webutils.WriteError(w, errors.Wrapf(err, "Bad zup %q", v))
			return
		}
		s.ZUp = zup
	}
	if v := r.FormValue("encoding"); v != "" {
		s.Encoding = v
	}

	if err := config.SetSettings(s); err != nil {
		webutils.WriteError(w, err)
		return
	}
	if ServerSettingsPath != "" {
		if err := config.SaveSettings(ServerSettingsPath); err != nil {
			webutils.WriteError(w, err)
			return
		}
	}
	status.Info("Settings updated: scale %v, zup %v", s.Scale, s.ZUp)
	webutils.WriteJson(w, config.GetSettings())
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerWebsocketStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[web] ws upgrade error: %v", err)
		return
	}
	status.NewClient(conn)
}
