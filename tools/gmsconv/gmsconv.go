package main

import (
	"flag"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mogaika/gms_browser/config"
	"github.com/mogaika/gms_browser/exporter"
	"github.com/mogaika/gms_browser/gms"
)

func convert(inPath, outDir, format string) error {
	data, err := ioutil.ReadFile(inPath)
	if err != nil {
		return err
	}

	m, diags, err := gms.NewModelFromData(data)
	for _, d := range diags {
		log.Printf("[gmsconv] %s: %v", inPath, d)
	}
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))

	if format == "obj" {
		fObj, err := os.Create(filepath.Join(outDir, name+".obj"))
		if err != nil {
			return err
		}
		defer fObj.Close()
		fMtl, err := os.Create(filepath.Join(outDir, name+".mtl"))
		if err != nil {
			return err
		}
		defer fMtl.Close()

		if err := exporter.ExportOBJ(fObj, fMtl, name+".mtl", m); err != nil {
			return err
		}
		log.Printf("[gmsconv] %s -> %s (+ %s)", inPath, name+".obj", name+".mtl")
		return nil
	}

	outPath := filepath.Join(outDir, exporter.FileName(name, format))
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := exporter.Export(f, format, m); err != nil {
		return err
	}
	log.Printf("[gmsconv] %s -> %s", inPath, outPath)
	return nil
}

func main() {
	var in, out, format, settingsPath string
	flag.StringVar(&in, "in", "", "Path to gms file or folder with gms files")
	flag.StringVar(&out, "out", ".", "Output folder")
	flag.StringVar(&format, "format", "glb", "Output format (glb, gltf, fbx, obj)")
	flag.StringVar(&settingsPath, "settings", "", "Path to settings file")
	flag.Parse()

	if in == "" {
		flag.PrintDefaults()
		return
	}
	if settingsPath != "" {
		if err := config.LoadSettings(settingsPath); err != nil {
			log.Fatal(err)
		}
	}

	stat, err := os.Stat(in)
	if err != nil {
		log.Fatal(err)
	}

	if !stat.IsDir() {
		if err := convert(in, out, format); err != nil {
			log.Fatal(err)
		}
		return
	}

	entries, err := ioutil.ReadDir(in)
	if err != nil {
		log.Fatal(err)
	}
	converted := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToUpper(e.Name()), ".GMS") {
			continue
		}
		if err := convert(filepath.Join(in, e.Name()), out, format); err != nil {
			log.Printf("[gmsconv] %s: %v", e.Name(), err)
			continue
		}
		converted++
	}
	log.Printf("[gmsconv] Converted %d models", converted)
}
