// Package scene assembles a level from its terrain, entity and common asset archives.
package scene

import (
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/toshi_browser/config"
	"github.com/mogaika/toshi_browser/logger"
	"github.com/mogaika/toshi_browser/pack"
	"github.com/mogaika/toshi_browser/pack/trb"
	"github.com/mogaika/toshi_browser/pack/trb/entity"
	"github.com/mogaika/toshi_browser/pack/trb/mesh"
	"github.com/mogaika/toshi_browser/pack/trb/terrain"
	"github.com/mogaika/toshi_browser/status"
	"github.com/mogaika/toshi_browser/vfs"
)

const (
	TerrainArchive  = "terrain.trb"
	EntitiesArchive = "entities.trb"

	// v2 mesh instances draw these first slots unless all slots are enabled
	defaultMeshSlots = 2
)

type Source string

const (
	SourceCell         Source = "cell"
	SourceInstance     Source = "instance"
	SourceMeshInstance Source = "mesh_instance"
	SourceEntity       Source = "entity"
	// every model of the terrain and entity archives is also drawn untransformed
	SourceArchive Source = "archive"
)

// Placement is one drawn model.
type Placement struct {
	Name      string
	Source    Source
	Archive   string
	Transform mgl32.Mat4

	Model *mesh.Model `json:"-"`

	ctx  *trb.LoadContext
	cell *trb.LoadContext
}

type Scene struct {
	Path       string
	Version    string
	Archives   []string
	Placements []*Placement
	// names no archive could resolve, in request order
	Missing []string

	library *Library
}

type Loader struct {
	cache *pack.InstanceCache
	cfg   config.SceneConfig
}

func NewLoader(cache *pack.InstanceCache, cfg config.SceneConfig) *Loader {
	return &Loader{cache: cache, cfg: cfg}
}

// Archive loads a TRB file by data path relative to the loader root.
func (l *Loader) Archive(p string) (*trb.LoadContext, error) {
	inst, err := l.cache.Get(p)
	if err != nil {
		return nil, err
	}
	ctx, ok := inst.(*trb.LoadContext)
	if !ok {
		return nil, errors.Errorf("'%s' is not a TRB archive", p)
	}
	return ctx, nil
}

type builder struct {
	l     *Loader
	s     *Scene
	log   *zap.Logger
	step  int
	steps int
}

func (b *builder) progress(msg string) {
	b.step++
	status.Progress(float32(b.step)/float32(b.steps), "%s: %s", b.s.Path, msg)
}

func (b *builder) archive(p string) *trb.LoadContext {
	ctx, err := b.l.Archive(p)
	if err != nil {
		b.log.Debug("archive not loaded", zap.String("path", p), zap.Error(err))
		return nil
	}
	b.s.Archives = append(b.s.Archives, ctx.Name)
	return ctx
}

func (b *builder) place(name string, source Source, transform *mgl32.Mat4, cell *trb.LoadContext) bool {
	if name == "" {
		return false
	}
	m, owner, ok := b.s.library.Find(cell, name)
	if !ok {
		b.log.Debug("could not find resource", zap.String("name", name))
		b.s.Missing = append(b.s.Missing, strings.ToLower(name))
		return false
	}
	p := &Placement{
		Name:      m.Name,
		Source:    source,
		Archive:   owner.Name,
		Transform: mgl32.Ident4(),
		Model:     m,
		ctx:       owner,
		cell:      cell,
	}
	if transform != nil {
		p.Transform = *transform
	}
	b.s.Placements = append(b.s.Placements, p)
	return true
}

func (b *builder) placeAll(ctx *trb.LoadContext) {
	for _, m := range mesh.Models(ctx) {
		b.s.Placements = append(b.s.Placements, &Placement{
			Name:      m.Name,
			Source:    SourceArchive,
			Archive:   ctx.Name,
			Transform: mgl32.Ident4(),
			Model:     m,
			ctx:       ctx,
		})
	}
}

func withPosition(transform *mgl32.Mat4, pos *mgl32.Vec3) *mgl32.Mat4 {
	m := mgl32.Ident4()
	if transform != nil {
		m = *transform
	}
	m.SetCol(3, pos.Vec4(1))
	return &m
}

func (b *builder) cellArchive(c *terrain.Cell) *trb.LoadContext {
	if c.Path == "" {
		return nil
	}
	return b.archive(c.Path)
}

func (b *builder) terrainV1(t *terrain.Terrain) {
	for _, c := range t.Cells {
		cell := b.cellArchive(c)

		transform := c.Transform
		if b.l.cfg.ApplyV1Positions && c.Position != nil {
			transform = withPosition(transform, c.Position)
		}
		b.place(c.Name, SourceCell, transform, cell)

		for _, inst := range c.Instances {
			transform := inst.Transform
			if b.l.cfg.ApplyV1Positions && inst.Position != nil {
				transform = withPosition(transform, inst.Position)
			}
			b.place(inst.ModelName(), SourceInstance, transform, cell)
		}
	}
}

func (b *builder) terrainV2(t *terrain.Terrain) {
	slots := defaultMeshSlots
	if b.l.cfg.LoadAllMeshSlots {
		slots = terrain.MeshSlots
	}
	for _, c := range t.Cells {
		cell := b.cellArchive(c)
		for _, mi := range c.MeshInstances {
			for _, name := range mi.ResourceNames(slots) {
				b.place(name, SourceMeshInstance, &mi.Transform, cell)
			}
		}
	}
}

// LoadLevel loads the level directory at levelPath. Archives that are missing or fail to
// parse are skipped, so a scene is returned for any existing level directory.
func (l *Loader) LoadLevel(levelPath string) (*Scene, error) {
	levelPath = strings.Join(vfs.SplitPath(levelPath), "/")
	if _, err := vfs.OpenDirectory(l.cache.Directory(), levelPath); err != nil {
		return nil, errors.Wrapf(err, "level '%s'", levelPath)
	}

	s := &Scene{Path: levelPath, Placements: []*Placement{}, library: NewLibrary()}
	searchPaths := append(append([]string{}, l.cfg.CommonPaths...), levelPath)
	b := &builder{
		l:     l,
		s:     s,
		log:   logger.Log.With(zap.String("level", levelPath)),
		steps: len(searchPaths)*len(l.cfg.CommonAssets) + 2,
	}

	for _, dir := range searchPaths {
		for _, name := range l.cfg.CommonAssets {
			b.progress(name)
			if ctx := b.archive(path.Join(dir, name)); ctx != nil {
				s.library.Add(ctx)
			}
		}
	}

	b.progress(TerrainArchive)
	if ctx := b.archive(path.Join(levelPath, TerrainArchive)); ctx != nil {
		s.Version = ctx.Profile().Name
		for _, t := range terrain.Resources(ctx) {
			if ctx.Profile().Version == config.FormatV1 {
				b.terrainV1(t)
			} else {
				b.terrainV2(t)
			}
		}
		b.placeAll(ctx)
	}

	b.progress(EntitiesArchive)
	if ctx := b.archive(path.Join(levelPath, EntitiesArchive)); ctx != nil {
		if s.Version == "" {
			s.Version = ctx.Profile().Name
		}
		for _, res := range entity.Resources(ctx) {
			for _, e := range res.Entities {
				for _, name := range e.MeshNames() {
					b.place(name, SourceEntity, e.Transform, nil)
				}
			}
		}
		b.placeAll(ctx)
	}

	b.log.Info("level loaded",
		zap.Int("archives", len(s.Archives)), zap.Int("models", s.library.Len()),
		zap.Int("placements", len(s.Placements)), zap.Int("missing", len(s.Missing)))
	status.Info("%s: %d placements, %d missing", levelPath, len(s.Placements), len(s.Missing))
	return s, nil
}
