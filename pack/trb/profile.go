package trb

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/readat"
	"github.com/mogaika/toshi_browser/utils"
)

// JointLayout places the fields of a skeleton joint record.
type JointLayout struct {
	Stride           uint32
	Bind             uint32
	Transform        uint32
	InverseTransform uint32
	Extra            uint32
	HasExtra         bool
	Name             uint32
	Parent           uint32
}

// SkeletonLayout places the fields of a skeleton header.
type SkeletonLayout struct {
	Count             uint32
	Joints            uint32
	HasName           bool
	Name              uint32
	HasBoundingSphere bool
	BoundingSphere    uint32
}

// WeightLayout places the fields of a per vertex joint weight record.
type WeightLayout struct {
	Stride uint32
	// ByteWeights means three u8 weights normalized as a vector instead of three floats
	ByteWeights bool
	Weights     uint32
}

// Profile holds everything that differs between container revisions.
// Decoders shared by both revisions read struct layouts from here.
type Profile struct {
	Version config.FormatVersion
	Name    string

	Skeleton SkeletonLayout
	Joint    JointLayout
	Weight   WeightLayout

	parse func(data []byte) (*Archive, error)
}

var (
	ProfileV1 = &Profile{
		Version: config.FormatV1,
		Name:    "de Blob",
		Skeleton: SkeletonLayout{
			Count:  0x00,
			Joints: 0x34,
		},
		Joint: JointLayout{
			Stride:           0xB0,
			Bind:             0x00,
			Transform:        0x10,
			InverseTransform: 0x50,
			Name:             0x90,
			Parent:           0x94,
		},
		Weight: WeightLayout{Stride: 0x10, Weights: 0x04},
	}
	ProfileV2 = &Profile{
		Version: config.FormatV2,
		Name:    "de Blob 2",
		Skeleton: SkeletonLayout{
			Count:             0x10,
			Joints:            0x18,
			HasName:           true,
			Name:              0x38,
			HasBoundingSphere: true,
			BoundingSphere:    0x00,
		},
		Joint: JointLayout{
			Stride:           0xB0,
			Bind:             0x00,
			Transform:        0x10,
			InverseTransform: 0x50,
			Extra:            0x90,
			HasExtra:         true,
			Name:             0xA0,
			Parent:           0xA4,
		},
		Weight: WeightLayout{Stride: 0x07, ByteWeights: true, Weights: 0x04},
	}
)

func init() {
	ProfileV1.parse = parseV1
	ProfileV2.parse = parseV2
}

func ProfileFor(v config.FormatVersion) *Profile {
	switch v {
	case config.FormatV1:
		return ProfileV1
	case config.FormatV2:
		return ProfileV2
	}
	return nil
}

// DetectProfile guesses the container revision from its first bytes.
func DetectProfile(data []byte) (*Profile, error) {
	if len(data) >= 4 && bytes.Equal(data[:3], []byte(v1Magic)) {
		if data[3] != v1MarkerLittle && data[3] != v1MarkerBig {
			return nil, errors.Wrapf(ErrUnsupportedFormat, "magic %s", utils.DumpToOneLineString(data[:4]))
		}
		return ProfileV1, nil
	}
	if len(data) >= v2SectionTable {
		r := readat.NewReader(data, nil)
		if marker, _ := r.U8(v2EndianMarker); marker <= 1 {
			return ProfileV2, nil
		}
	}
	head := data
	if len(head) > 8 {
		head = head[:8]
	}
	return nil, errors.Wrapf(ErrUnsupportedFormat, "header %s", utils.DumpToOneLineString(head))
}

// Parse detects the revision unless one is forced through config and parses the container.
func Parse(data []byte) (*Archive, error) {
	p := ProfileFor(config.GetFormatVersion())
	if p == nil {
		var err error
		if p, err = DetectProfile(data); err != nil {
			return nil, err
		}
	}
	return ParseWithProfile(data, p)
}

func ParseWithProfile(data []byte, p *Profile) (*Archive, error) {
	a, err := p.parse(data)
	if err != nil {
		return nil, err
	}
	a.Profile = p
	return a, nil
}
