package trb

type SnapshotResource struct {
	Index int
	Key   string
	Kind  string
	Data  Resource
}

// Snapshot is the archive summary followed by every decoded resource in symbol order.
type Snapshot struct {
	Info      *ArchiveInfo
	Resources []SnapshotResource
}

func (ctx *LoadContext) Snapshot() *Snapshot {
	s := &Snapshot{Info: ctx.Info(), Resources: []SnapshotResource{}}
	for i := range ctx.archive.Symbols {
		res, ok := ctx.SymbolResource(i)
		if !ok {
			continue
		}
		s.Resources = append(s.Resources, SnapshotResource{
			Index: i,
			Key:   ctx.archive.Symbols[i].Key(),
			Kind:  res.ResourceType(),
			Data:  res,
		})
	}
	return s
}
