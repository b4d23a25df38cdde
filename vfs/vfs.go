// Package vfs is the read-only file tree archives and levels are loaded from.
package vfs

import "io"

// Element is a named node of the tree. Implementations carry only metadata
// until a file is opened or a directory listed.
type Element interface {
	Init(parent Directory)
	Name() string
	IsDirectory() bool
}

// File must be opened before Reader or ReadAt are used.
type File interface {
	Element
	io.ReaderAt
	Size() int64
	Open() error
	Close() error
	Reader() (*io.SectionReader, error)
}

type Directory interface {
	Element
	// List returns child names in no particular order.
	List() ([]string, error)
	GetElement(name string) (Element, error)
}
