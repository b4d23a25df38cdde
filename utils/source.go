package utils

// ResourceSource describes where a loaded file came from.
type ResourceSource interface {
	Name() string
	Size() int64
}
