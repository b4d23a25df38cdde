package utils

import (
	"bytes"
	"strings"

	"github.com/mogaika/toshi_browser/config"

	"golang.org/x/text/transform"
)

// BytesToString decodes a NUL terminated string with the configured code page.
func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[0:n])
	if err != nil {
		return string(bs[0:n])
	}

	return string(s)
}

// ResourceKey maps a resource name to its lookup key: everything before the
// first dot, lower cased. "Crate.tmod" and "crate" share the key "crate".
func ResourceKey(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// AssetBaseName strips directories (both separators) and the extension.
// Case is preserved.
func AssetBaseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[:i]
	}
	return path
}
