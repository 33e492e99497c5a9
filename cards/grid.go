package cards

import (
	"io"

	"gonum.org/v1/gonum/floats"

	"github.com/LetterRay/bulkdata/field"
)

// GRID is the grid point table. Coordinates are stored as one flat
// float64 buffer with stride 3, one triple per row.
//
//	+------+-----+----+----+----+----+----+----+------+
//	|  1   |  2  | 3  | 4  | 5  | 6  | 7  | 8  |  9   |
//	+======+=====+====+====+====+====+====+====+======+
//	| GRID | NID | CP | X1 | X2 | X3 | CD | PS | SEID |
//	+------+-----+----+----+----+----+----+----+------+
type GRID struct {
	n     int
	cards []gridStaged

	NodeID []int
	CP     []int // position coordinate frame
	CD     []int // displacement coordinate frame
	XYZ    []float64
	PS     []int // permanent single-point constraints
	SEID   []int
}

type gridStaged struct {
	nid, cp, cd, ps, seid int
	xyz                   [3]float64
}

func NewGRID() *GRID { return &GRID{} }

func (g *GRID) Type() string { return "GRID" }
func (g *GRID) Len() int     { return g.n }

// Add stages one grid point from already-typed values.
func (g *GRID) Add(nid, cp int, xyz [3]float64, cd, ps, seid int) int {
	g.cards = append(g.cards, gridStaged{nid: nid, cp: cp, cd: cd, ps: ps, seid: seid, xyz: xyz})
	g.n++
	return g.n
}

// AddCard stages one grid point from a tokenized card.
func (g *GRID) AddCard(c *field.Card) (int, error) {
	nid, err := c.Integer(1, "nid")
	if err != nil {
		return 0, err
	}
	cp, err := c.IntegerOrBlank(2, "cp", 0)
	if err != nil {
		return 0, err
	}
	var xyz [3]float64
	for k, name := range [3]string{"x1", "x2", "x3"} {
		xyz[k], err = c.DoubleOrBlank(3+k, name, 0)
		if err != nil {
			return 0, err
		}
	}
	cd, err := c.IntegerOrBlank(6, "cd", 0)
	if err != nil {
		return 0, err
	}
	ps, err := c.ComponentsOrBlank(7, "ps", 0)
	if err != nil {
		return 0, err
	}
	seid, err := c.IntegerOrBlank(8, "seid", 0)
	if err != nil {
		return 0, err
	}
	return g.Add(nid, cp, xyz, cd, ps, seid), nil
}

func (g *GRID) ParseCards() error {
	if len(g.cards) == 0 {
		return nil
	}
	for _, s := range g.cards {
		g.NodeID = append(g.NodeID, s.nid)
		g.CP = append(g.CP, s.cp)
		g.CD = append(g.CD, s.cd)
		g.PS = append(g.PS, s.ps)
		g.SEID = append(g.SEID, s.seid)
		g.XYZ = append(g.XYZ, s.xyz[0], s.xyz[1], s.xyz[2])
	}
	g.cards = nil
	g.n = len(g.NodeID)
	checkParallel("GRID", g.n, len(g.CP), len(g.CD), len(g.PS), len(g.SEID), len(g.XYZ)/3)
	g.Sort()
	return checkUniqueIDs("GRID", "node_id", g.NodeID)
}

// Sort reorders all columns by ascending node id when not already
// ordered. Idempotent.
func (g *GRID) Sort() {
	if intsAscending(g.NodeID) {
		return
	}
	perm := argsort(g.NodeID)
	g.NodeID = gatherInts(perm, g.NodeID)
	g.CP = gatherInts(perm, g.CP)
	g.CD = gatherInts(perm, g.CD)
	g.PS = gatherInts(perm, g.PS)
	g.SEID = gatherInts(perm, g.SEID)
	g.XYZ = gatherStrided(perm, g.XYZ, 3)
}

// SliceByIndex returns a new table holding the selected rows in order.
func (g *GRID) SliceByIndex(rows []int) *GRID {
	out := NewGRID()
	out.n = len(rows)
	out.NodeID = gatherInts(rows, g.NodeID)
	out.CP = gatherInts(rows, g.CP)
	out.CD = gatherInts(rows, g.CD)
	out.PS = gatherInts(rows, g.PS)
	out.SEID = gatherInts(rows, g.SEID)
	out.XYZ = gatherStrided(rows, g.XYZ, 3)
	return out
}

// SliceByID resolves node ids against the id column; every id must
// match exactly.
func (g *GRID) SliceByID(ids []int) (*GRID, error) {
	rows, err := indexByID("GRID", g.NodeID, ids)
	if err != nil {
		return nil, err
	}
	return g.SliceByIndex(rows), nil
}

// Convert rescales coordinates by the length factor.
func (g *GRID) Convert(scales Scales) {
	floats.Scale(scales.XYZ, g.XYZ)
}

// Index maps node ids to row indices. Every id must exist.
func (g *GRID) Index(ids []int) ([]int, error) {
	return indexByID("GRID", g.NodeID, ids)
}

func (g *GRID) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "GRID", "cp", refs.CoordIDs(), g.CP, true)
	checkRefs(missing, "GRID", "cd", refs.CoordIDs(), g.CD, true)
}

func (g *GRID) WriteFile(w io.Writer, size int, isDouble bool) error {
	if g.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(g.NodeID), size)
	printCard := field.PrintCard(size, isDouble)
	for i, nid := range g.NodeID {
		fields := []any{"GRID", nid,
			field.SetBlankIfDefault(g.CP[i], 0),
			g.XYZ[3*i], g.XYZ[3*i+1], g.XYZ[3*i+2],
			field.SetBlankIfDefault(g.CD[i], 0),
			field.SetBlankIfDefault(g.PS[i], 0),
			field.SetBlankIfDefault(g.SEID[i], 0),
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}
