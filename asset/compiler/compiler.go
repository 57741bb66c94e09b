package compiler

import (
	"context"
	"errors"
	"time"

	"github.com/achilleasa/polaris-bvh/asset/compiler/bvh"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

type sceneCompiler struct {
	parsedScene    *input.Scene
	optimizedScene *scene.Scene
	params         bvh.Params
	buildOpts      []bvh.Option
	onBuild        func(name string, tree *bvh.BVH)
	logger         log.Logger

	// A map of geometries to the root of their packed BVH. Objects sharing
	// a geometry share its BVH. Failed builds map to -1.
	geomRoots map[input.Geometry]int32

	// Objects that made it into the top level BVH, in instance order.
	instanced []*input.Object
}

// An Option customizes a compile.
type Option func(*sceneCompiler)

// Apply opts to every BVH builder.
func WithBuildOptions(opts ...bvh.Option) Option {
	return func(sc *sceneCompiler) {
		sc.buildOpts = append(sc.buildOpts, opts...)
	}
}

// Invoke fn with every BVH built by the compile. Object BVHs are reported
// with the object name and the top level BVH with an empty name.
func WithBuildCallback(fn func(name string, tree *bvh.BVH)) Option {
	return func(sc *sceneCompiler) {
		sc.onBuild = fn
	}
}

// Compile a scene representation parsed by a scene reader into a two level
// BVH. Every geometry gets its own BVH built in object space; a top level BVH
// then partitions the object instances.
//
// An object whose BVH fails to build is logged and left out of the scene.
// Invalid parameters and cancellation abort the whole compile.
func Compile(ctx context.Context, parsedScene *input.Scene, params bvh.Params, opts ...Option) (*scene.Scene, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	compiler := &sceneCompiler{
		parsedScene:    parsedScene,
		optimizedScene: scene.New(),
		params:         params,
		logger:         log.New("scene compiler"),
		geomRoots:      make(map[input.Geometry]int32),
	}
	for _, opt := range opts {
		opt(compiler)
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene")

	err := compiler.partitionGeometry(ctx)
	if err != nil {
		return nil, err
	}

	err = compiler.partitionInstances(ctx)
	if err != nil {
		return nil, err
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

func (sc *sceneCompiler) build(ctx context.Context, objects []*input.Object, params bvh.Params) (*bvh.BVH, error) {
	return bvh.NewBuilder(objects, params, sc.buildOpts...).Run(ctx)
}

func (sc *sceneCompiler) built(name string, tree *bvh.BVH) {
	if sc.onBuild != nil {
		sc.onBuild(name, tree)
	}
}

// Build a BVH for each scene geometry and create an instance for each object
// whose geometry BVH was built.
func (sc *sceneCompiler) partitionGeometry(ctx context.Context) error {
	start := time.Now()
	sc.logger.Notice("partitioning geometry")

	objParams := sc.params
	objParams.TopLevel = false

	for objIndex, obj := range sc.parsedScene.Objects {
		if obj == nil || obj.Geometry == nil || obj.Geometry.NumPrimitives() == 0 {
			continue
		}

		root, cached := sc.geomRoots[obj.Geometry]
		if !cached {
			sc.logger.Infof(`building BVH tree for "%s" (%s, %d primitives)`, obj.Name, obj.Geometry.Type(), obj.Geometry.NumPrimitives())

			// Build in object space; instances carry the object transform.
			local := &input.Object{
				Name:       obj.Name,
				Geometry:   obj.Geometry,
				Visibility: obj.Visibility,
			}
			tree, err := sc.build(ctx, []*input.Object{local}, objParams)
			switch {
			case errors.Is(err, bvh.ErrCancelled) || errors.Is(err, bvh.ErrInvalidParams):
				return err
			case err != nil:
				sc.logger.Warningf(`skipping object "%s": %v`, obj.Name, err)
				root = -1
			default:
				sc.built(obj.Name, tree)
				primOffset := len(sc.optimizedScene.PrimObject)
				root = int32(sc.optimizedScene.AppendBVH(tree))
				for slot := primOffset; slot < len(sc.optimizedScene.PrimObject); slot++ {
					sc.optimizedScene.PrimObject[slot] = int32(objIndex)
				}
			}
			sc.geomRoots[obj.Geometry] = root
		}
		if root < 0 {
			continue
		}

		transform := types.Identity()
		if obj.Transform != nil {
			// Traversal needs the world to object transform.
			transform = obj.Transform.Inv()
		}
		sc.optimizedScene.ObjectInstanceList = append(sc.optimizedScene.ObjectInstanceList, scene.ObjectInstance{
			ObjectIndex: uint32(objIndex),
			BvhRoot:     uint32(root),
			Visibility:  obj.Visibility,
			Transform:   transform,
		})
		sc.instanced = append(sc.instanced, obj)
	}

	sc.logger.Noticef("partitioned %d geometries in %d ms", len(sc.geomRoots), time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Partition the object instances so that each instance ends up in its own
// top level BVH leaf. Leaf slots reference instances through PrimObject.
func (sc *sceneCompiler) partitionInstances(ctx context.Context) error {
	if len(sc.instanced) == 0 {
		sc.logger.Warning("scene contains no renderable objects")
		return nil
	}

	sc.logger.Infof("building scene BVH tree (%d object instances)", len(sc.instanced))
	topParams := sc.params
	topParams.TopLevel = true
	tree, err := sc.build(ctx, sc.instanced, topParams)
	if err != nil {
		return err
	}

	sc.built("", tree)
	sc.optimizedScene.TopLevelRoot = int32(sc.optimizedScene.AppendBVH(tree))
	return nil
}
