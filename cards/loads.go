package cards

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/LetterRay/bulkdata/field"
)

// load0 is the shared storage of the concentrated vector loads (FORCE,
// MOMENT): a magnitude and a direction triple in a coordinate frame.
//
//	+-------+-----+------+-----+-----+----+----+----+
//	|   1   |  2  |  3   |  4  |  5  | 6  | 7  | 8  |
//	+=======+=====+======+=====+=====+====+====+====+
//	| FORCE | SID | NODE | CID | MAG | N1 | N2 | N3 |
//	+-------+-----+------+-----+-----+----+----+----+
type load0 struct {
	name  string
	cards []load0Staged
	n     int

	LoadID  []int
	NodeID  []int
	CoordID []int
	Mag     []float64
	N       []float64 // direction triples, stride 3
}

type load0Staged struct {
	sid, nid, cid int
	mag           float64
	n             [3]float64
}

func (l *load0) Type() string { return l.name }
func (l *load0) Len() int     { return l.n }

// Add stages one load from already-typed values.
func (l *load0) Add(sid, nid int, mag float64, n [3]float64, cid int) int {
	l.cards = append(l.cards, load0Staged{sid: sid, nid: nid, cid: cid, mag: mag, n: n})
	l.n++
	return l.n
}

func (l *load0) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	nid, err := c.Integer(2, "node")
	if err != nil {
		return 0, err
	}
	cid, err := c.IntegerOrBlank(3, "cid", 0)
	if err != nil {
		return 0, err
	}
	mag, err := c.Double(4, "mag")
	if err != nil {
		return 0, err
	}
	var n [3]float64
	for k, name := range [3]string{"N1", "N2", "N3"} {
		n[k], err = c.DoubleOrBlank(5+k, name, 0)
		if err != nil {
			return 0, err
		}
	}
	return l.Add(sid, nid, mag, n, cid), nil
}

func (l *load0) ParseCards() error {
	if len(l.cards) == 0 {
		return nil
	}
	for _, s := range l.cards {
		l.LoadID = append(l.LoadID, s.sid)
		l.NodeID = append(l.NodeID, s.nid)
		l.CoordID = append(l.CoordID, s.cid)
		l.Mag = append(l.Mag, s.mag)
		l.N = append(l.N, s.n[0], s.n[1], s.n[2])
	}
	l.cards = nil
	l.n = len(l.LoadID)
	checkParallel(l.name, l.n, len(l.NodeID), len(l.CoordID), len(l.Mag), len(l.N)/3)
	return nil
}

func (l *load0) Sort() {
	if intsAscending(l.LoadID) {
		return
	}
	perm := argsort(l.LoadID)
	l.LoadID = gatherInts(perm, l.LoadID)
	l.NodeID = gatherInts(perm, l.NodeID)
	l.CoordID = gatherInts(perm, l.CoordID)
	l.Mag = gatherFloats(perm, l.Mag)
	l.N = gatherStrided(perm, l.N, 3)
}

func (l *load0) sliceByIndex(rows []int) *load0 {
	out := &load0{name: l.name, n: len(rows)}
	out.LoadID = gatherInts(rows, l.LoadID)
	out.NodeID = gatherInts(rows, l.NodeID)
	out.CoordID = gatherInts(rows, l.CoordID)
	out.Mag = gatherFloats(rows, l.Mag)
	out.N = gatherStrided(rows, l.N, 3)
	return out
}

func (l *load0) LoadIDs() []int { return l.LoadID }

func (l *load0) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, l.name, "node_id", refs.NodeIDs(), l.NodeID, false)
	checkRefs(missing, l.name, "coord_id", refs.CoordIDs(), l.CoordID, true)
}

func (l *load0) WriteFile(w io.Writer, size int, isDouble bool) error {
	if l.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(l.NodeID), size)
	printCard := field.PrintCard(size, isDouble)
	for i, sid := range l.LoadID {
		fields := []any{l.name, sid, l.NodeID[i],
			field.SetBlankIfDefault(l.CoordID[i], 0),
			l.Mag[i], l.N[3*i], l.N[3*i+1], l.N[3*i+2]}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// ScaledVector returns mag*n per row as one flat triple buffer.
func (l *load0) ScaledVector() []float64 {
	out := make([]float64, len(l.N))
	for i, mag := range l.Mag {
		for k := 0; k < 3; k++ {
			out[3*i+k] = mag * l.N[3*i+k]
		}
	}
	return out
}

// FORCE applies a concentrated force at a grid point.
type FORCE struct{ load0 }

func NewFORCE() *FORCE { return &FORCE{load0{name: "FORCE"}} }

func (f *FORCE) Convert(scales Scales) {
	floats.Scale(scales.Force, f.Mag)
}

func (f *FORCE) SliceByIndex(rows []int) *FORCE { return &FORCE{*f.sliceByIndex(rows)} }

func (f *FORCE) SliceByLoadID(id int) LoadSource {
	return f.SliceByIndex(rowsWithID(f.LoadID, id))
}

// SumForces accumulates the scaled force vectors into one resultant
// triple. Loads in a non-basic frame are left untransformed; frame
// handling lives with the geometry engine.
func (f *FORCE) SumForces() [3]float64 {
	v := f.ScaledVector()
	var out [3]float64
	for k := 0; k < 3; k++ {
		comp := make([]float64, f.n)
		for i := range comp {
			comp[i] = v[3*i+k]
		}
		out[k] = floats.Sum(comp)
	}
	return out
}

// MOMENT applies a concentrated moment at a grid point.
type MOMENT struct{ load0 }

func NewMOMENT() *MOMENT { return &MOMENT{load0{name: "MOMENT"}} }

func (m *MOMENT) Convert(scales Scales) {
	floats.Scale(scales.Moment, m.Mag)
}

func (m *MOMENT) SliceByIndex(rows []int) *MOMENT { return &MOMENT{*m.sliceByIndex(rows)} }

func (m *MOMENT) SliceByLoadID(id int) LoadSource {
	return m.SliceByIndex(rowsWithID(m.LoadID, id))
}

// GRAV defines a gravity vector for quasi-static acceleration loads.
//
//	+------+-----+-----+------+----+----+----+----+
//	|  1   |  2  |  3  |  4   | 5  | 6  | 7  | 8  |
//	+======+=====+=====+======+====+====+====+====+
//	| GRAV | SID | CID |  A   | N1 | N2 | N3 | MB |
//	+------+-----+-----+------+----+----+----+----+
type GRAV struct {
	n     int
	cards []gravStaged

	LoadID  []int
	CoordID []int
	Accel   []float64
	N       []float64 // stride 3
	MB      []int
}

type gravStaged struct {
	sid, cid, mb int
	accel        float64
	n            [3]float64
}

func NewGRAV() *GRAV { return &GRAV{} }

func (g *GRAV) Type() string { return "GRAV" }
func (g *GRAV) Len() int     { return g.n }

func (g *GRAV) Add(sid int, accel float64, n [3]float64, cid, mb int) int {
	g.cards = append(g.cards, gravStaged{sid: sid, cid: cid, mb: mb, accel: accel, n: n})
	g.n++
	return g.n
}

func (g *GRAV) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	cid, err := c.IntegerOrBlank(2, "cid", 0)
	if err != nil {
		return 0, err
	}
	accel, err := c.Double(3, "A")
	if err != nil {
		return 0, err
	}
	var n [3]float64
	for k, name := range [3]string{"N1", "N2", "N3"} {
		n[k], err = c.DoubleOrBlank(4+k, name, 0)
		if err != nil {
			return 0, err
		}
	}
	mb, err := c.IntegerOrBlank(7, "mb", 0)
	if err != nil {
		return 0, err
	}
	return g.Add(sid, accel, n, cid, mb), nil
}

func (g *GRAV) ParseCards() error {
	if len(g.cards) == 0 {
		return nil
	}
	for _, s := range g.cards {
		g.LoadID = append(g.LoadID, s.sid)
		g.CoordID = append(g.CoordID, s.cid)
		g.Accel = append(g.Accel, s.accel)
		g.MB = append(g.MB, s.mb)
		g.N = append(g.N, s.n[0], s.n[1], s.n[2])
	}
	g.cards = nil
	g.n = len(g.LoadID)
	checkParallel("GRAV", g.n, len(g.CoordID), len(g.Accel), len(g.MB), len(g.N)/3)
	return nil
}

func (g *GRAV) Convert(scales Scales) {
	floats.Scale(scales.Accel, g.Accel)
}

func (g *GRAV) SliceByIndex(rows []int) *GRAV {
	out := NewGRAV()
	out.n = len(rows)
	out.LoadID = gatherInts(rows, g.LoadID)
	out.CoordID = gatherInts(rows, g.CoordID)
	out.Accel = gatherFloats(rows, g.Accel)
	out.MB = gatherInts(rows, g.MB)
	out.N = gatherStrided(rows, g.N, 3)
	return out
}

func (g *GRAV) LoadIDs() []int { return g.LoadID }

func (g *GRAV) SliceByLoadID(id int) LoadSource {
	return g.SliceByIndex(rowsWithID(g.LoadID, id))
}

func (g *GRAV) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "GRAV", "coord_id", refs.CoordIDs(), g.CoordID, true)
}

func (g *GRAV) WriteFile(w io.Writer, size int, isDouble bool) error {
	if g.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(g.LoadID), size)
	printCard := field.PrintCard(size, isDouble)
	for i, sid := range g.LoadID {
		fields := []any{"GRAV", sid,
			field.SetBlankIfDefault(g.CoordID[i], 0),
			g.Accel[i], g.N[3*i], g.N[3*i+1], g.N[3*i+2],
			field.SetBlankIfDefault(g.MB[i], 0)}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// SPCD applies enforced displacement values selected as a load set.
// Shares the SPC line grammar: one or two groups per line.
type SPCD struct {
	n     int
	cards []spcStaged

	LoadID     []int
	NodeID     []int
	Components []int
	Enforced   []float64
}

func NewSPCD() *SPCD { return &SPCD{} }

func (s *SPCD) Type() string { return "SPCD" }
func (s *SPCD) Len() int     { return s.n }

func (s *SPCD) Add(sid, nid, components int, enforced float64) int {
	s.cards = append(s.cards, spcStaged{sid: sid, nid: nid, components: components, enforced: enforced})
	s.n++
	return s.n
}

func (s *SPCD) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	ngroups := 1
	if c.Field(5) != "" {
		ngroups = 2
	}
	for g := 0; g < ngroups; g++ {
		base := 2 + 3*g
		nid, err := c.Integer(base, fmt.Sprintf("G%d", g+1))
		if err != nil {
			return 0, err
		}
		components, err := c.ComponentsOrBlank(base+1, fmt.Sprintf("C%d", g+1), 0)
		if err != nil {
			return 0, err
		}
		enforced, err := c.DoubleOrBlank(base+2, fmt.Sprintf("D%d", g+1), 0)
		if err != nil {
			return 0, err
		}
		s.Add(sid, nid, components, enforced)
	}
	return s.n, nil
}

func (s *SPCD) ParseCards() error {
	if len(s.cards) == 0 {
		return nil
	}
	for _, st := range s.cards {
		s.LoadID = append(s.LoadID, st.sid)
		s.NodeID = append(s.NodeID, st.nid)
		s.Components = append(s.Components, st.components)
		s.Enforced = append(s.Enforced, st.enforced)
	}
	s.cards = nil
	s.n = len(s.LoadID)
	checkParallel("SPCD", s.n, len(s.NodeID), len(s.Components), len(s.Enforced))
	return nil
}

func (s *SPCD) Convert(scales Scales) {
	floats.Scale(scales.XYZ, s.Enforced)
}

func (s *SPCD) SliceByIndex(rows []int) *SPCD {
	out := NewSPCD()
	out.n = len(rows)
	out.LoadID = gatherInts(rows, s.LoadID)
	out.NodeID = gatherInts(rows, s.NodeID)
	out.Components = gatherInts(rows, s.Components)
	out.Enforced = gatherFloats(rows, s.Enforced)
	return out
}

func (s *SPCD) LoadIDs() []int { return s.LoadID }

func (s *SPCD) SliceByLoadID(id int) LoadSource {
	return s.SliceByIndex(rowsWithID(s.LoadID, id))
}

func (s *SPCD) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "SPCD", "node_id", refs.NodeIDs(), s.NodeID, false)
}

func (s *SPCD) WriteFile(w io.Writer, size int, isDouble bool) error {
	if s.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(s.NodeID), size)
	printCard := field.PrintCard(size, isDouble)
	for i, sid := range s.LoadID {
		fields := []any{"SPCD", sid, s.NodeID[i],
			field.SetBlankIfDefault(s.Components[i], 0),
			s.Enforced[i]}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// DEFORM applies an enforced axial deformation to line elements. One
// physical line packs up to three element/value pairs; each pair is a
// logical row.
//
//	+--------+-----+-----+------+----+----+----+----+
//	|    1   |  2  |  3  |   4  |  5 |  6 |  7 |  8 |
//	+========+=====+=====+======+====+====+====+====+
//	| DEFORM | SID |  E1 |  D1  | E2 | D2 | E3 | D3 |
//	+--------+-----+-----+------+----+----+----+----+
type DEFORM struct {
	n     int
	cards []deformStaged

	LoadID    []int
	ElementID []int
	Enforced  []float64
}

type deformStaged struct {
	sid, eid int
	enforced float64
}

func NewDEFORM() *DEFORM { return &DEFORM{} }

func (d *DEFORM) Type() string { return "DEFORM" }
func (d *DEFORM) Len() int     { return d.n }

func (d *DEFORM) Add(sid, eid int, deformation float64) int {
	d.cards = append(d.cards, deformStaged{sid: sid, eid: eid, enforced: deformation})
	d.n++
	return d.n
}

func (d *DEFORM) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	for pair := 0; pair < 3; pair++ {
		base := 2 + 2*pair
		if pair > 0 && c.Field(base) == "" {
			break
		}
		eid, err := c.Integer(base, fmt.Sprintf("E%d", pair+1))
		if err != nil {
			return 0, err
		}
		enforced, err := c.Double(base+1, fmt.Sprintf("D%d", pair+1))
		if err != nil {
			return 0, err
		}
		d.Add(sid, eid, enforced)
	}
	return d.n, nil
}

func (d *DEFORM) ParseCards() error {
	if len(d.cards) == 0 {
		return nil
	}
	for _, s := range d.cards {
		d.LoadID = append(d.LoadID, s.sid)
		d.ElementID = append(d.ElementID, s.eid)
		d.Enforced = append(d.Enforced, s.enforced)
	}
	d.cards = nil
	d.n = len(d.LoadID)
	checkParallel("DEFORM", d.n, len(d.ElementID), len(d.Enforced))
	d.Sort()
	return nil
}

func (d *DEFORM) Sort() {
	if intsAscending(d.LoadID) {
		return
	}
	perm := argsort(d.LoadID)
	d.LoadID = gatherInts(perm, d.LoadID)
	d.ElementID = gatherInts(perm, d.ElementID)
	d.Enforced = gatherFloats(perm, d.Enforced)
}

func (d *DEFORM) Convert(scales Scales) {
	floats.Scale(scales.XYZ, d.Enforced)
}

func (d *DEFORM) SliceByIndex(rows []int) *DEFORM {
	out := NewDEFORM()
	out.n = len(rows)
	out.LoadID = gatherInts(rows, d.LoadID)
	out.ElementID = gatherInts(rows, d.ElementID)
	out.Enforced = gatherFloats(rows, d.Enforced)
	return out
}

func (d *DEFORM) LoadIDs() []int { return d.LoadID }

func (d *DEFORM) SliceByLoadID(id int) LoadSource {
	return d.SliceByIndex(rowsWithID(d.LoadID, id))
}

func (d *DEFORM) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "DEFORM", "element_id", refs.ElementIDs(), d.ElementID, false)
}

func (d *DEFORM) WriteFile(w io.Writer, size int, isDouble bool) error {
	if d.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(d.ElementID), size)
	printCard := field.PrintCard(size, isDouble)
	for i, sid := range d.LoadID {
		fields := []any{"DEFORM", sid, d.ElementID[i], d.Enforced[i]}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// LOAD superposes other static load sets: per union row a global scale
// and a ragged list of (scale factor, load set id) pairs.
//
//	+------+-----+------+------+----+-----+----+----+----+
//	|   1  |  2  |  3   |  4   | 5  |  6  | 7  | 8  | 9  |
//	+======+=====+======+======+====+=====+====+====+====+
//	| LOAD | SID |  S   |  S1  | L1 | S2  | L2 | S3 | L3 |
//	+------+-----+------+------+----+-----+----+----+----+
type LOAD struct {
	n     int
	cards []loadStaged

	LoadID       []int
	Scale        []float64
	LoadIDList   []int     // flat referenced set ids
	ScaleFactors []float64 // flat, parallel to LoadIDList
	NLoads       []int     // per-row pair counts
}

type loadStaged struct {
	sid    int
	scale  float64
	scales []float64
	ids    []int
}

func NewLOAD() *LOAD { return &LOAD{} }

func (l *LOAD) Type() string { return "LOAD" }
func (l *LOAD) Len() int     { return l.n }

func (l *LOAD) Iload() [][2]int { return Idim(l.NLoads) }

// Add stages one superposition row. An empty pair list is malformed.
func (l *LOAD) Add(sid int, scale float64, scaleFactors []float64, loadIDs []int) (int, error) {
	if len(loadIDs) == 0 || len(loadIDs) != len(scaleFactors) {
		return 0, fmt.Errorf("LOAD sid=%d: need matching non-empty scale factors and load ids: %d vs %d",
			sid, len(scaleFactors), len(loadIDs))
	}
	l.cards = append(l.cards, loadStaged{sid: sid, scale: scale, scales: scaleFactors, ids: loadIDs})
	l.n++
	return l.n, nil
}

func (l *LOAD) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	scale, err := c.Double(2, "scale")
	if err != nil {
		return 0, err
	}
	npairs := (c.Len() - 3) / 2
	if (c.Len()-3)%2 != 0 {
		return 0, fmt.Errorf("LOAD sid=%d: scale factor without load id", sid)
	}
	var scales []float64
	var ids []int
	for p := 0; p < npairs; p++ {
		base := 3 + 2*p
		s, err := c.Double(base, fmt.Sprintf("S%d", p+1))
		if err != nil {
			return 0, err
		}
		id, err := c.Integer(base+1, fmt.Sprintf("L%d", p+1))
		if err != nil {
			return 0, err
		}
		scales = append(scales, s)
		ids = append(ids, id)
	}
	return l.Add(sid, scale, scales, ids)
}

func (l *LOAD) ParseCards() error {
	if len(l.cards) == 0 {
		return nil
	}
	for _, s := range l.cards {
		l.LoadID = append(l.LoadID, s.sid)
		l.Scale = append(l.Scale, s.scale)
		l.LoadIDList = append(l.LoadIDList, s.ids...)
		l.ScaleFactors = append(l.ScaleFactors, s.scales...)
		l.NLoads = append(l.NLoads, len(s.ids))
	}
	l.cards = nil
	l.n = len(l.LoadID)
	CheckRagged("LOAD.load_ids", l.NLoads, len(l.LoadIDList))
	CheckRagged("LOAD.scale_factors", l.NLoads, len(l.ScaleFactors))
	return nil
}

func (l *LOAD) Sort() {
	if intsAscending(l.LoadID) {
		return
	}
	perm := argsort(l.LoadID)
	idim := l.Iload()
	l.LoadID = gatherInts(perm, l.LoadID)
	l.Scale = gatherFloats(perm, l.Scale)
	l.LoadIDList, _ = HSliceInts(perm, idim, l.LoadIDList)
	l.ScaleFactors, l.NLoads = HSliceFloats(perm, idim, l.ScaleFactors)
}

func (l *LOAD) SliceByIndex(rows []int) *LOAD {
	out := NewLOAD()
	out.n = len(rows)
	out.LoadID = gatherInts(rows, l.LoadID)
	out.Scale = gatherFloats(rows, l.Scale)
	idim := l.Iload()
	out.LoadIDList, _ = HSliceInts(rows, idim, l.LoadIDList)
	out.ScaleFactors, out.NLoads = HSliceFloats(rows, idim, l.ScaleFactors)
	return out
}

func (l *LOAD) GeomCheck(missing *Missing, refs Refs) {
	var known []int
	for _, src := range refs.LoadSources() {
		known = append(known, src.LoadIDs()...)
	}
	checkRefs(missing, "LOAD", "load_ids", known, l.LoadIDList, false)
}

func (l *LOAD) WriteFile(w io.Writer, size int, isDouble bool) error {
	if l.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(max(maxInt(l.LoadID), maxInt(l.LoadIDList)), size)
	printCard := field.PrintCard(size, isDouble)
	for i, d := range l.Iload() {
		fields := []any{"LOAD", l.LoadID[i], l.Scale[i]}
		for k := d[0]; k < d[1]; k++ {
			fields = append(fields, l.ScaleFactors[k], l.LoadIDList[k])
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// ReducedLoad is one resolved member of a load superposition: the
// effective scale factor (global times per-member) and the concrete
// rows it selects.
type ReducedLoad struct {
	Scale float64
	Loads []LoadSource
}

// ReduceOptions tunes GetReducedLoads.
type ReduceOptions struct {
	// StopOnFailure raises the first dangling reference instead of
	// collecting partial results. The conservative default is true.
	StopOnFailure bool
	// FilterZeroScaleFactors drops members whose effective scale is
	// exactly zero. Off by default; a zero factor is retained.
	FilterZeroScaleFactors bool
}

// DefaultReduceOptions is the conservative configuration.
func DefaultReduceOptions() ReduceOptions {
	return ReduceOptions{StopOnFailure: true}
}

// GetReducedLoads resolves every LOAD row into its concrete members.
// The concrete-id map is built once over all registered load sources.
// Load set ids never referenced by any LOAD row are still included
// under their own id with unit scale: unreferenced loads still apply
// when directly selected.
func (l *LOAD) GetReducedLoads(refs Refs, opts ReduceOptions) (map[int][]ReducedLoad, error) {
	log := refs.Logger()
	reduced := make(map[int][]ReducedLoad)
	if l.n == 0 {
		return reduced, nil
	}

	byLoadID := make(map[int][]LoadSource)
	for _, src := range refs.LoadSources() {
		if src.Len() == 0 {
			continue
		}
		seen := make(map[int]struct{})
		for _, id := range src.LoadIDs() {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			byLoadID[id] = append(byLoadID[id], src.SliceByLoadID(id))
		}
	}

	aggregate := make(map[int]struct{}, l.n)
	for _, sid := range l.LoadID {
		aggregate[sid] = struct{}{}
	}

	for i, d := range l.Iload() {
		sid := l.LoadID[i]
		global := l.Scale[i]
		if global == 0 && opts.FilterZeroScaleFactors {
			continue
		}
		var members []ReducedLoad
		for k := d[0]; k < d[1]; k++ {
			scale := global * l.ScaleFactors[k]
			ref := l.LoadIDList[k]
			if scale == 0 && opts.FilterZeroScaleFactors {
				continue
			}
			if found, ok := byLoadID[ref]; ok {
				members = append(members, ReducedLoad{Scale: scale, Loads: found})
				continue
			}
			if _, nested := aggregate[ref]; nested {
				// Nested superposition is permitted by the format but
				// unusual; surfaced, never recursed.
				log.Warn("LOAD references another LOAD; not recursing",
					zap.Int("sid", sid), zap.Int("referenced", ref))
				continue
			}
			err := fmt.Errorf("no referenced loads found for load_id=%d on LOAD sid=%d", ref, sid)
			log.Error(err.Error())
			if opts.StopOnFailure {
				return nil, err
			}
		}
		if len(members) == 0 {
			continue
		}
		reduced[sid] = members
	}

	// Loads never referenced by a LOAD row.
	for id, found := range byLoadID {
		if _, ok := reduced[id]; !ok {
			reduced[id] = []ReducedLoad{{Scale: 1, Loads: found}}
		}
	}
	return reduced, nil
}
