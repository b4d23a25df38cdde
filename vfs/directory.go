package vfs

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DirectoryDriver exposes an OS directory. Children are looked up one path
// component at a time and never leave the directory.
type DirectoryDriver struct {
	path string
}

func NewDirectoryDriver(path string) *DirectoryDriver {
	return &DirectoryDriver{path: path}
}

func (dd *DirectoryDriver) Init(parent Directory) {}
func (dd *DirectoryDriver) Name() string          { return filepath.Base(dd.path) }
func (dd *DirectoryDriver) IsDirectory() bool     { return true }
func (dd *DirectoryDriver) Path() string          { return dd.path }

func (dd *DirectoryDriver) List() ([]string, error) {
	entries, err := os.ReadDir(dd.path)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot list directory '%s'", dd.path)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (dd *DirectoryDriver) GetElement(name string) (Element, error) {
	if name == "" || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, errors.Errorf("Invalid element name '%s'", name)
	}
	p := filepath.Join(dd.path, name)
	st, err := os.Stat(p)
	if err != nil {
		return nil, errors.Wrap(err, "Stat error")
	}
	if st.IsDir() {
		return NewDirectoryDriver(p), nil
	}
	return &DirectoryDriverFile{path: p, size: st.Size()}, nil
}

// DirectoryDriverFile is an OS file. Size is taken when the element is looked up.
type DirectoryDriverFile struct {
	path string
	size int64
	f    *os.File
}

func (ddf *DirectoryDriverFile) Init(parent Directory) {}
func (ddf *DirectoryDriverFile) Name() string          { return filepath.Base(ddf.path) }
func (ddf *DirectoryDriverFile) IsDirectory() bool     { return false }
func (ddf *DirectoryDriverFile) Size() int64           { return ddf.size }

func (ddf *DirectoryDriverFile) Open() error {
	if ddf.f != nil {
		return errors.Errorf("File '%s' already opened", ddf.path)
	}
	f, err := os.Open(ddf.path)
	if err != nil {
		return errors.Wrapf(err, "Cannot open '%s'", ddf.path)
	}
	ddf.f = f
	return nil
}

func (ddf *DirectoryDriverFile) Close() error {
	if ddf.f == nil {
		return nil
	}
	err := ddf.f.Close()
	ddf.f = nil
	return errors.Wrapf(err, "Cannot close '%s'", ddf.path)
}

func (ddf *DirectoryDriverFile) Reader() (*io.SectionReader, error) {
	if ddf.f == nil {
		return nil, errors.Errorf("File '%s' is not opened", ddf.path)
	}
	return io.NewSectionReader(ddf.f, 0, ddf.size), nil
}

func (ddf *DirectoryDriverFile) ReadAt(b []byte, off int64) (int, error) {
	if ddf.f == nil {
		return 0, errors.Errorf("File '%s' is not opened", ddf.path)
	}
	return ddf.f.ReadAt(b, off)
}
