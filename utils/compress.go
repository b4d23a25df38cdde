package utils

import (
	"github.com/DataDog/zstd"
)

const compressionLevel = zstd.BestSpeed

// Compress packs a JSON or binary dump as a zstd frame.
func Compress(data []byte) ([]byte, error) {
	return zstd.CompressLevel(nil, data, compressionLevel)
}

func Decompress(data []byte) ([]byte, error) {
	return zstd.Decompress(nil, data)
}
