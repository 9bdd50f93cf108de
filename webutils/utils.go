package webutils

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/pkg/errors"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	io.Copy(w, in)
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteResult(w, res)
}

func WriteJsonFile(w http.ResponseWriter, v interface{}, fileName string) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
		return
	}
	WriteFile(w, bytes.NewReader(data), fileName+".json")
}

func WriteResult(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		log.Printf("[web] Error when writing response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, srcErr error) {
	type jError struct {
		Error string `json:"error"`
	}
	log.Printf("[web] Handler error: %v", srcErr)
	data, err := json.Marshal(&jError{Error: srcErr.Error()})
	if err != nil {
		log.Printf("[web] Error marshaling error %q: %v", srcErr, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteResult(w, data)
}
