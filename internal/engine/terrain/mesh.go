package terrain

import "github.com/go-gl/mathgl/mgl32"

// BuildPlaneMesh sizes a flat plane to the tile footprint. Height is not baked into
// the mesh; it reaches the renderer through the height-map uniform.
func BuildPlaneMesh(cfg TileConfig) (*PlaneMesh, error) {
	if err := cfg.TileCount.Validate(); err != nil {
		return nil, err
	}

	return &PlaneMesh{
		Size:           mgl32.Vec2{float32(cfg.TileCount.Width), float32(cfg.TileCount.Depth)},
		SubdivideWidth: cfg.TileCount.Width - 1, // doesn't include outer edges
		SubdivideDepth: cfg.TileCount.Depth - 1, // doesn't include outer edges
	}, nil
}

// Geometry expands the plane into vertex and index buffers.
//
// The plane is centred on the origin in the XZ plane with +Y normals. There are
// SubdivideWidth+2 vertices along X and SubdivideDepth+2 along Z. UVs run from
// (0,0) at the -X/-Z corner to (1,1) at the +X/+Z corner, matching the collision
// volume's (col, row) orientation.
func (p *PlaneMesh) Geometry() *Mesh {
	cols := p.SubdivideWidth + 2
	rows := p.SubdivideDepth + 2
	if cols < 2 || rows < 2 {
		return &Mesh{}
	}

	half := p.Size.Mul(0.5)
	up := mgl32.Vec3{0, 1, 0}

	mesh := &Mesh{
		Vertices: make([]Vertex, 0, cols*rows),
		Indices:  make([]uint32, 0, (cols-1)*(rows-1)*6),
		Bounds: Bounds{
			Min: mgl32.Vec3{-half.X(), 0, -half.Y()},
			Max: mgl32.Vec3{half.X(), 0, half.Y()},
		},
	}

	for row := 0; row < rows; row++ {
		v := float32(row) / float32(rows-1)
		for col := 0; col < cols; col++ {
			u := float32(col) / float32(cols-1)
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position: mgl32.Vec3{u*p.Size.X() - half.X(), 0, v*p.Size.Y() - half.Y()},
				Normal:   up,
				TexCoord: mgl32.Vec2{u, v},
			})
		}
	}

	// Two counter-clockwise triangles per quad when viewed from +Y.
	for row := 0; row < rows-1; row++ {
		for col := 0; col < cols-1; col++ {
			i := uint32(row*cols + col)
			next := i + uint32(cols)
			mesh.Indices = append(mesh.Indices,
				i, next, i+1,
				i+1, next, next+1,
			)
		}
	}

	return mesh
}
