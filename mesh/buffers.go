package mesh

import "github.com/vgpu/glyphview/gfx"

// Buffers is the GPU-resident counterpart of Data: one static buffer per
// payload field. A new upload always replaces the full set; there is no
// partial update. The owner destroys the previous set when replacing it.
type Buffers struct {
	ctx gfx.Context

	BQuads                gfx.BufferID
	BVertexPositions      gfx.BufferID
	BVertexPathIDs        gfx.BufferID
	BVertexLoopBlinnData  gfx.BufferID
	CoverInteriorIndices  gfx.BufferID
	CoverCurveIndices     gfx.BufferID
	EdgeUpperLineIndices  gfx.BufferID
	EdgeUpperCurveIndices gfx.BufferID
	EdgeLowerLineIndices  gfx.BufferID
	EdgeLowerCurveIndices gfx.BufferID

	// InteriorIndexCount and CurveIndexCount are the draw counts for the
	// two direct passes.
	InteriorIndexCount int
	CurveIndexCount    int

	// PathCount is the number of paths in the mesh.
	PathCount int
}

// bufferFields is the static classification table: which payload fields
// are vertex-array buffers and which are index buffers.
var bufferFields = []struct {
	kind gfx.BufferKind
	data func(*Data) []byte
	dst  func(*Buffers) *gfx.BufferID
}{
	{gfx.BufferKindVertex, func(d *Data) []byte { return d.BQuads }, func(b *Buffers) *gfx.BufferID { return &b.BQuads }},
	{gfx.BufferKindVertex, func(d *Data) []byte { return d.BVertexPositions }, func(b *Buffers) *gfx.BufferID { return &b.BVertexPositions }},
	{gfx.BufferKindVertex, func(d *Data) []byte { return d.BVertexPathIDs }, func(b *Buffers) *gfx.BufferID { return &b.BVertexPathIDs }},
	{gfx.BufferKindVertex, func(d *Data) []byte { return d.BVertexLoopBlinnData }, func(b *Buffers) *gfx.BufferID { return &b.BVertexLoopBlinnData }},
	{gfx.BufferKindIndex, func(d *Data) []byte { return d.CoverInteriorIndices }, func(b *Buffers) *gfx.BufferID { return &b.CoverInteriorIndices }},
	{gfx.BufferKindIndex, func(d *Data) []byte { return d.CoverCurveIndices }, func(b *Buffers) *gfx.BufferID { return &b.CoverCurveIndices }},
	{gfx.BufferKindIndex, func(d *Data) []byte { return d.EdgeUpperLineIndices }, func(b *Buffers) *gfx.BufferID { return &b.EdgeUpperLineIndices }},
	{gfx.BufferKindIndex, func(d *Data) []byte { return d.EdgeUpperCurveIndices }, func(b *Buffers) *gfx.BufferID { return &b.EdgeUpperCurveIndices }},
	{gfx.BufferKindIndex, func(d *Data) []byte { return d.EdgeLowerLineIndices }, func(b *Buffers) *gfx.BufferID { return &b.EdgeLowerLineIndices }},
	{gfx.BufferKindIndex, func(d *Data) []byte { return d.EdgeLowerCurveIndices }, func(b *Buffers) *gfx.BufferID { return &b.EdgeLowerCurveIndices }},
}

// Upload creates the full GPU buffer set for a decoded payload. The upload
// is all-or-nothing: on failure every buffer created so far is released
// and no Buffers value is returned.
func Upload(ctx gfx.Context, data *Data) (*Buffers, error) {
	b := &Buffers{
		ctx:                ctx,
		InteriorIndexCount: data.CoverInteriorIndexCount(),
		CurveIndexCount:    data.CoverCurveIndexCount(),
		PathCount:          data.MaxPathID(),
	}
	for _, f := range bufferFields {
		id, err := ctx.CreateBuffer(f.kind, f.data(data))
		if err != nil {
			b.Destroy()
			return nil, err
		}
		*f.dst(b) = id
	}
	return b, nil
}

// Destroy releases every buffer in the set. Safe to call on a partially
// constructed set.
func (b *Buffers) Destroy() {
	for _, f := range bufferFields {
		dst := f.dst(b)
		b.ctx.DeleteBuffer(*dst)
		*dst = gfx.InvalidID
	}
}
