package config

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// Strings inside archives are single byte code page text. Western releases
// use Windows-1252.
var (
	encodingLock sync.RWMutex
	encoding     = charmap.Windows1252
)

func findCharmap(name string) (*charmap.Charmap, bool) {
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok && strings.EqualFold(cm.String(), name) {
			return cm, true
		}
	}
	return nil, false
}

// SetEncoding selects the code page by its x/text name, case insensitive.
func SetEncoding(name string) error {
	cm, ok := findCharmap(name)
	if !ok {
		return errors.Errorf("Unknown encoding %q, expected one of: %s", name, strings.Join(ListEncodings(), ", "))
	}
	encodingLock.Lock()
	encoding = cm
	encodingLock.Unlock()
	return nil
}

func ListEncodings() []string {
	var list []string
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	sort.Strings(list)
	return list
}

func GetEncoding() *charmap.Charmap {
	encodingLock.RLock()
	defer encodingLock.RUnlock()
	return encoding
}
