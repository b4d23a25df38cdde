package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
	MaxDepth:                12,
}

// DumpToOneLineString prints printable ASCII as is and everything else as \xNN.
func DumpToOneLineString(buf []byte) string {
	var sb strings.Builder
	for _, b := range buf {
		if b >= 0x20 && b < 0x7f {
			sb.WriteByte(b)
		} else {
			fmt.Fprintf(&sb, "\\x%02x", b)
		}
	}
	return sb.String()
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

func FDump(w io.Writer, a ...interface{}) {
	spewConfig.Fdump(w, a...)
}
