package config

import (
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
)

type FormatVersion int32

const (
	FormatAuto FormatVersion = iota
	FormatV1
	FormatV2
)

func (v FormatVersion) String() string {
	switch v {
	case FormatV1:
		return "v1"
	case FormatV2:
		return "v2"
	default:
		return "auto"
	}
}

func ParseFormatVersion(s string) (FormatVersion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "0":
		return FormatAuto, nil
	case "v1", "1":
		return FormatV1, nil
	case "v2", "2":
		return FormatV2, nil
	}
	return FormatAuto, errors.Errorf("Unknown format version %q", s)
}

var formatVersion int32

// GetFormatVersion returns the container revision forced by the user, FormatAuto lets the parser detect it.
func GetFormatVersion() FormatVersion {
	return FormatVersion(atomic.LoadInt32(&formatVersion))
}

func SetFormatVersion(v FormatVersion) {
	atomic.StoreInt32(&formatVersion, int32(v))
}
