package vfs

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

func OpenFileAndGetReader(f File, readonly bool) (*io.SectionReader, error) {
	if err := f.Open(readonly); err != nil {
		return nil, errors.Wrapf(err, "Cannot open file %q", f.Name())
	}
	r, err := f.Reader()
	if err != nil {
		defer f.Close()
		return nil, errors.Wrapf(err, "Cannot get file %q reader", f.Name())
	}
	return r, nil
}

func DirectoryGetFile(d Directory, name string) (File, error) {
	e, err := d.GetElement(name)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open file %q", name)
	}
	if e.IsDirectory() {
		return nil, errors.Errorf("File %q is directory, not a file", name)
	}
	return e.(File), nil
}

// WalkPath descends a slash separated path from d. Parent references
// are rejected, the served tree is the boundary.
func WalkPath(d Directory, p string) (Element, error) {
	var e Element = d
	for _, part := range strings.Split(p, "/") {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			return nil, errors.Errorf("Invalid path %q", p)
		}
		dir, ok := e.(Directory)
		if !ok {
			return nil, errors.Errorf("%q in %q is not a directory", e.Name(), p)
		}
		sub, err := dir.GetElement(part)
		if err != nil {
			return nil, errors.Wrapf(err, "Cannot find %q in %q", part, p)
		}
		e = sub
	}
	return e, nil
}

func WalkPathGetFile(d Directory, p string) (File, error) {
	e, err := WalkPath(d, p)
	if err != nil {
		return nil, err
	}
	if e.IsDirectory() {
		return nil, errors.Errorf("File %q is directory, not a file", p)
	}
	return e.(File), nil
}
