package reader

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/log"
	"github.com/achilleasa/polaris-bvh/types"
)

const (
	defaultCurveRadius = 0.01
	defaultPointRadius = 0.01
)

// The geometry collected for an "o" or "g" statement. Faces, lines and
// points of a group end up in separate objects.
type wavefrontGroup struct {
	name   string
	mesh   *input.Mesh
	hair   *input.Hair
	points *input.PointCloud

	// Maps global vertex indices to mesh vertex indices.
	meshVerts map[int]int32
}

func newWavefrontGroup(name string) *wavefrontGroup {
	return &wavefrontGroup{
		name:      name,
		mesh:      input.NewMesh(name),
		hair:      input.NewHair(name + ".hair"),
		points:    input.NewPointCloud(name + ".points"),
		meshVerts: make(map[int]int32),
	}
}

func (g *wavefrontGroup) empty() bool {
	return len(g.mesh.Triangles) == 0 && len(g.hair.Curves) == 0 && len(g.points.Points) == 0
}

type wavefrontSceneReader struct {
	logger log.Logger

	rawScene *input.Scene

	groups    []*wavefrontGroup
	instances []*input.Object

	vertexList  []types.Vec3
	curveRadius float32
	pointRadius float32

	// A stack of include frames used for error reporting.
	errStack []string
}

func newWavefrontReader() *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:      log.New("wavefront scene reader"),
		rawScene:    input.NewScene(),
		vertexList:  make([]types.Vec3, 0),
		curveRadius: defaultCurveRadius,
		pointRadius: defaultPointRadius,
		errStack:    make([]string, 0),
	}
}

// Read scene definition from a wavefront obj file.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*input.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}

	r.verifyLastParsedGroup()
	for _, g := range r.groups {
		if len(g.mesh.Triangles) > 0 {
			r.rawScene.AddObject(input.NewObject(g.name, g.mesh))
		}
		if len(g.hair.Curves) > 0 {
			r.rawScene.AddObject(input.NewObject(g.hair.Name, g.hair))
		}
		if len(g.points.Points) > 0 {
			r.rawScene.AddObject(input.NewObject(g.points.Name, g.points))
		}
	}
	for _, inst := range r.instances {
		r.rawScene.AddObject(inst)
	}

	r.logger.Noticef("parsed scene with %d objects in %d ms", len(r.rawScene.Objects), time.Since(start).Nanoseconds()/1e6)
	return r.rawScene, nil
}

// Generate an error message that includes the include stack.
func (r *wavefrontSceneReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	return errors.New(strings.Trim(
		fmt.Sprintf("wavefront: [%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
		"\n",
	))
}

func (r *wavefrontSceneReader) pushFrame(msg string) {
	r.errStack = append([]string{msg}, r.errStack...)
}

func (r *wavefrontSceneReader) popFrame() {
	r.errStack = r.errStack[1:]
}

// Get the group new geometry is appended to.
func (r *wavefrontSceneReader) currentGroup() *wavefrontGroup {
	if len(r.groups) == 0 {
		r.groups = append(r.groups, newWavefrontGroup("default"))
	}
	return r.groups[len(r.groups)-1]
}

func (r *wavefrontSceneReader) verifyLastParsedGroup() {
	last := len(r.groups) - 1
	if last >= 0 && r.groups[last].empty() {
		r.logger.Warningf(`dropping group "%s" as it contains no geometry`, r.groups[last].name)
		r.groups = r.groups[:last]
	}
}

func (r *wavefrontSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	// Positive indices in included files are relative to the first vertex
	// of the included file.
	relVertexOffset := len(r.vertexList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.popFrame()
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn", "vt", "s", "usemtl", "mtllib":
			// Shading data does not affect the acceleration structure.
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.verifyLastParsedGroup()
			r.groups = append(r.groups, newWavefrontGroup(lineTokens[1]))
		case "f":
			if err = r.parseFace(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "l":
			if err = r.parseLine(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "p":
			if err = r.parsePoints(lineTokens, relVertexOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "curve_radius":
			if r.curveRadius, err = parseRadius(lineTokens); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "point_radius":
			if r.pointRadius, err = parseRadius(lineTokens); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "instance":
			instance, err := r.parseInstance(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.instances = append(r.instances, instance)
		default:
			r.logger.Debugf(`%s:%d: ignoring unsupported statement "%s"`, res.Path(), lineNum, lineTokens[0])
		}
	}

	return scanner.Err()
}

// Parse a face and triangulate it as a fan around its first vertex.
func (r *wavefrontSceneReader) parseFace(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(lineTokens)-1)
	}

	g := r.currentGroup()
	indices := make([]int32, len(lineTokens)-1)
	expIndices := 0
	for arg := range indices {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}

		local, exists := g.meshVerts[vOffset]
		if !exists {
			local = int32(len(g.mesh.Verts))
			g.mesh.Verts = append(g.mesh.Verts, r.vertexList[vOffset])
			g.meshVerts[vOffset] = local
		}
		indices[arg] = local
	}

	for i := 1; i+1 < len(indices); i++ {
		g.mesh.Triangles = append(g.mesh.Triangles, [3]int32{indices[0], indices[i], indices[i+1]})
	}
	return nil
}

// Parse a polyline into a hair curve.
func (r *wavefrontSceneReader) parseLine(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 3 {
		return fmt.Errorf(`unsupported syntax for "l"; expected at least 2 arguments; got %d`, len(lineTokens)-1)
	}

	keys := make([]types.Vec3, len(lineTokens)-1)
	for arg := range keys {
		// Lines may carry texture coordinates as v/vt.
		vToken := strings.Split(lineTokens[arg+1], "/")[0]
		vOffset, err := selectFaceCoordIndex(vToken, len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for line argument %d: %s", arg, err.Error())
		}
		keys[arg] = r.vertexList[vOffset]
	}
	r.currentGroup().hair.AddCurve(keys, r.curveRadius)
	return nil
}

func (r *wavefrontSceneReader) parsePoints(lineTokens []string, relVertexOffset int) error {
	if len(lineTokens) < 2 {
		return fmt.Errorf(`unsupported syntax for "p"; expected at least 1 argument; got 0`)
	}

	points := r.currentGroup().points
	for arg := 1; arg < len(lineTokens); arg++ {
		vOffset, err := selectFaceCoordIndex(lineTokens[arg], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for point argument %d: %s", arg-1, err.Error())
		}
		points.AddPoint(r.vertexList[vOffset], r.pointRadius)
	}
	return nil
}

// Parse an instance statement that places another copy of a group mesh.
func (r *wavefrontSceneReader) parseInstance(lineTokens []string) (*input.Object, error) {
	if len(lineTokens) != 11 {
		return nil, fmt.Errorf(`unsupported syntax for "instance"; expected 10 arguments: mesh_name tX tY tZ yaw pitch roll sX sY sZ; got %d`, len(lineTokens)-1)
	}

	meshName := lineTokens[1]
	var mesh *input.Mesh
	for _, g := range r.groups {
		if g.name == meshName && len(g.mesh.Triangles) > 0 {
			mesh = g.mesh
			break
		}
	}
	if mesh == nil {
		return nil, fmt.Errorf(`unknown mesh with name "%s"`, meshName)
	}

	var args [9]float32
	for index := range args {
		v, err := strconv.ParseFloat(lineTokens[index+2], 32)
		if err != nil {
			return nil, err
		}
		args[index] = float32(v)
	}

	deg := float32(math.Pi / 180.0)
	rot := types.Rotate(args[5]*deg, types.XYZ(0, 0, 1)).
		Mul(types.Rotate(args[4]*deg, types.XYZ(0, 1, 0))).
		Mul(types.Rotate(args[3]*deg, types.XYZ(1, 0, 0)))
	transform := types.Translate(args[0], args[1], args[2]).
		Mul(rot).
		Mul(types.Scale(args[6], args[7], args[8]))

	inst := input.NewObject(fmt.Sprintf("%s.instance%d", meshName, len(r.instances)), mesh)
	inst.Transform = &transform
	return inst, nil
}

// Resolve an obj element index. Negative indices are relative to the end of
// the list; positive ones are 1-based and relative to relOffset.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

func parseFloat32(lineTokens []string) (float32, error) {
	if len(lineTokens) < 2 {
		return 0, fmt.Errorf(`unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	val, err := strconv.ParseFloat(lineTokens[1], 32)
	if err != nil {
		return 0, err
	}

	return float32(val), nil
}

func parseRadius(lineTokens []string) (float32, error) {
	radius, err := parseFloat32(lineTokens)
	if err != nil {
		return 0, err
	}
	if radius < 0 || math.IsInf(float64(radius), 0) || math.IsNaN(float64(radius)) {
		return 0, fmt.Errorf(`invalid radius %v for "%s"`, radius, lineTokens[0])
	}
	return radius, nil
}

func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
