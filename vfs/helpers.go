package vfs

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

func OpenFileAndGetReader(f File) (*io.SectionReader, error) {
	if err := f.Open(); err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", f.Name())
	}
	r, err := f.Reader()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "Cannot get file '%s' reader", f.Name())
	}
	return r, nil
}

// ReadFile reads a whole file and closes it.
func ReadFile(f File) ([]byte, error) {
	r, err := OpenFileAndGetReader(f)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := make([]byte, r.Size())
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrapf(err, "Cannot read file '%s'", f.Name())
	}
	return data, nil
}

// getElementFold is GetElement falling back to a case insensitive match
// over the directory listing. Game data paths do not keep the on disk case.
func getElementFold(d Directory, name string) (Element, error) {
	e, err := d.GetElement(name)
	if err == nil {
		return e, nil
	}
	names, lerr := d.List()
	if lerr != nil {
		return nil, err
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return d.GetElement(n)
		}
	}
	return nil, err
}

// SplitPath splits a data path on both separators and drops empty and "." parts.
func SplitPath(p string) []string {
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	out := parts[:0]
	for _, part := range parts {
		if part != "." {
			out = append(out, part)
		}
	}
	return out
}

// OpenPath walks a slash or backslash separated path from root.
func OpenPath(root Directory, p string) (Element, error) {
	var e Element = root
	for _, part := range SplitPath(p) {
		d, ok := e.(Directory)
		if !ok || !e.IsDirectory() {
			return nil, errors.Errorf("'%s' is not a directory", e.Name())
		}
		next, err := getElementFold(d, part)
		if err != nil {
			return nil, errors.Wrapf(err, "Cannot open '%s'", p)
		}
		e = next
	}
	return e, nil
}

func OpenDirectory(root Directory, p string) (Directory, error) {
	e, err := OpenPath(root, p)
	if err != nil {
		return nil, err
	}
	if !e.IsDirectory() {
		return nil, errors.Errorf("'%s' is not a directory", p)
	}
	return e.(Directory), nil
}

// ReadPath reads the file at a data path relative to root.
func ReadPath(root Directory, p string) ([]byte, error) {
	e, err := OpenPath(root, p)
	if err != nil {
		return nil, err
	}
	if e.IsDirectory() {
		return nil, errors.Errorf("File '%s' is directory, not a file!", p)
	}
	return ReadFile(e.(File))
}
