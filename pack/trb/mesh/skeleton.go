package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/toshi_browser/pack/trb"
)

func loadJoint(ctx *trb.LoadContext, off uint32) *Joint {
	l := ctx.Profile().Joint
	v, err := ctx.View(off, l.Stride)
	if err != nil {
		return nil
	}

	j := &Joint{Parent: v.I16(l.Parent)}
	v.F32s(l.Bind, j.Bind[:])
	v.F32s(l.Transform, j.Transform[:])
	v.F32s(l.InverseTransform, j.InverseTransform[:])
	if l.HasExtra {
		var extra mgl32.Vec4
		v.F32s(l.Extra, extra[:])
		j.Extra = &extra
	}
	j.Name, _ = ctx.PtrString(off + l.Name)
	return j
}

func loadSkeleton(ctx *trb.LoadContext, off uint32) *Skeleton {
	l := ctx.Profile().Skeleton
	count, err := ctx.Reader().U16(off + l.Count)
	if err != nil {
		return nil
	}

	s := &Skeleton{}
	if l.HasName {
		s.Name, _ = ctx.PtrString(off + l.Name)
	}
	if l.HasBoundingSphere {
		if bs, err := ctx.Vec4(off + l.BoundingSphere); err == nil {
			s.BoundingSphere = &bs
		}
	}
	if base, ok := ctx.Resolve(off + l.Joints); ok {
		s.Joints = trb.LoadStructArray(ctx, base, uint32(count), ctx.Profile().Joint.Stride, loadJoint)
	}
	return s
}

func loadJointWeights(ctx *trb.LoadContext, off uint32) *JointWeights {
	l := ctx.Profile().Weight
	v, err := ctx.View(off, l.Stride)
	if err != nil {
		return nil
	}

	jw := &JointWeights{}
	copy(jw.Indices[:], v.Bytes(0, 4))
	if l.ByteWeights {
		w := mgl32.Vec3{float32(v.U8(l.Weights)), float32(v.U8(l.Weights + 1)), float32(v.U8(l.Weights + 2))}
		if w.Len() > 0 {
			w = w.Normalize()
		}
		jw.Weights = w
	} else {
		v.F32s(l.Weights, jw.Weights[:])
	}
	return jw
}

func loadOptionalSkeleton(ctx *trb.LoadContext, ptr uint32) *Skeleton {
	if off, ok := ctx.Resolve(ptr); ok {
		return loadSkeleton(ctx, off)
	}
	return nil
}
