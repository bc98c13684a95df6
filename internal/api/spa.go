package api

import (
	"net/http"
	"os"
)

// spaFileSystem falls back to index.html for paths that don't exist, so the
// dashboard loads regardless of the requested route.
type spaFileSystem struct {
	root http.FileSystem
}

func (s *spaFileSystem) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if os.IsNotExist(err) {
		return s.root.Open("index.html")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
