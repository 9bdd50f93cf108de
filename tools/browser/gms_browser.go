package main

import (
	"flag"
	"log"

	"github.com/mogaika/gms_browser/config"
	"github.com/mogaika/gms_browser/vfs"
	"github.com/mogaika/gms_browser/web"
)

func main() {
	var addr, dir, iso, webPath, settingsPath string
	var nocache bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&dir, "dir", "", "Path to folder with gms dumps")
	flag.StringVar(&iso, "iso", "", "Path to iso file with gms dumps")
	flag.StringVar(&webPath, "web", "web", "Path to web source files")
	flag.StringVar(&settingsPath, "settings", "gms_browser.yaml", "Path to settings file")
	flag.BoolVar(&nocache, "nocache", false, "Ask browsers not to cache static files")
	flag.Parse()

	if err := config.LoadSettings(settingsPath); err != nil {
		log.Fatal(err)
	}

	var d vfs.Directory
	if iso != "" {
		isoFile := vfs.NewDirectoryDriverFile(iso)
		if err := isoFile.Open(true); err != nil {
			log.Fatal(err)
		}
		isoDriver, err := vfs.NewIsoDriver(isoFile)
		if err != nil {
			log.Fatal(err)
		}
		d = isoDriver
	} else if dir != "" {
		d = vfs.NewDirectoryDriver(dir)
	} else {
		flag.PrintDefaults()
		return
	}

	if err := web.StartServer(addr, d, webPath, settingsPath, nocache); err != nil {
		log.Fatal(err)
	}
}
