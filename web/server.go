package web

import (
	"log"
	"net/http"
	"os"
	"path"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/gms_browser/vfs"
)

// ServerSource is the directory the handlers browse. Set once on
// startup, handlers only read from it.
var ServerSource vfs.Directory

// ServerSettingsPath is where the settings action persists changes,
// empty keeps changes in memory only.
var ServerSettingsPath string

func noCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func StartServer(addr string, d vfs.Directory, webPath string, settingsPath string, nocache bool) error {
	ServerSource = d
	ServerSettingsPath = settingsPath

	r := mux.NewRouter()
	r.HandleFunc("/json/index", HandlerAjaxIndex)
	r.HandleFunc("/json/settings", HandlerAjaxSettings)
	r.HandleFunc("/json/model/{path:.*}", HandlerAjaxModel)
	r.HandleFunc("/dump/model/{format}/{path:.*}", HandlerDumpModel)
	r.HandleFunc("/dump/raw/{path:.*}", HandlerDumpRaw)
	r.HandleFunc("/action/refresh", HandlerActionRefresh)
	r.HandleFunc("/action/settings", HandlerActionSettings)
	r.HandleFunc("/ws/status", HandlerWebsocketStatus)

	static := http.Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))
	if nocache {
		static = noCacheHandler(static)
	}
	r.PathPrefix("/").Handler(static)

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
