package cards

import (
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/LetterRay/bulkdata/field"
)

// CONM2 defines a concentrated mass at a grid point: a scalar mass, an
// offset from the grid point, and six mass moments of inertia about
// the center of mass.
//
//	+-------+--------+-------+-------+-----+-----+-----+-----+
//	|   1   |    2   |   3   |   4   |  5  |  6  |  7  |  8  |
//	+=======+========+=======+=======+=====+=====+=====+=====+
//	| CONM2 |   EID  |   G   |  CID  |  M  | X1  | X2  | X3  |
//	+-------+--------+-------+-------+-----+-----+-----+-----+
//	|       |  I11   |  I21  |  I22  | I31 | I32 | I33 |     |
//	+-------+--------+-------+-------+-----+-----+-----+-----+
type CONM2 struct {
	n     int
	cards []conm2Staged

	ElementID []int
	NodeID    []int
	CoordID   []int
	Mass      []float64
	XYZOffset []float64 // stride 3
	Inertia   []float64 // stride 6: I11 I21 I22 I31 I32 I33
}

type conm2Staged struct {
	eid, nid, cid int
	mass          float64
	xyz           [3]float64
	inertia       [6]float64
}

func NewCONM2() *CONM2 { return &CONM2{} }

func (c *CONM2) Type() string { return "CONM2" }
func (c *CONM2) Len() int     { return c.n }

func (c *CONM2) Add(eid, nid int, mass float64, cid int, xyz [3]float64, inertia [6]float64) int {
	c.cards = append(c.cards, conm2Staged{eid: eid, nid: nid, cid: cid,
		mass: mass, xyz: xyz, inertia: inertia})
	c.n++
	return c.n
}

func (c *CONM2) AddCard(card *field.Card) (int, error) {
	eid, err := card.Integer(1, "eid")
	if err != nil {
		return 0, err
	}
	nid, err := card.Integer(2, "node")
	if err != nil {
		return 0, err
	}
	cid, err := card.IntegerOrBlank(3, "cid", 0)
	if err != nil {
		return 0, err
	}
	mass, err := card.DoubleOrBlank(4, "mass", 0)
	if err != nil {
		return 0, err
	}
	var xyz [3]float64
	for k, name := range [3]string{"x1", "x2", "x3"} {
		xyz[k], err = card.DoubleOrBlank(5+k, name, 0)
		if err != nil {
			return 0, err
		}
	}
	var inertia [6]float64
	for k, name := range [6]string{"I11", "I21", "I22", "I31", "I32", "I33"} {
		inertia[k], err = card.DoubleOrBlank(9+k, name, 0)
		if err != nil {
			return 0, err
		}
	}
	return c.Add(eid, nid, mass, cid, xyz, inertia), nil
}

func (c *CONM2) ParseCards() error {
	if len(c.cards) == 0 {
		return nil
	}
	for _, s := range c.cards {
		c.ElementID = append(c.ElementID, s.eid)
		c.NodeID = append(c.NodeID, s.nid)
		c.CoordID = append(c.CoordID, s.cid)
		c.Mass = append(c.Mass, s.mass)
		c.XYZOffset = append(c.XYZOffset, s.xyz[0], s.xyz[1], s.xyz[2])
		c.Inertia = append(c.Inertia, s.inertia[:]...)
	}
	c.cards = nil
	c.n = len(c.ElementID)
	checkParallel("CONM2", c.n, len(c.NodeID), len(c.CoordID), len(c.Mass),
		len(c.XYZOffset)/3, len(c.Inertia)/6)
	c.Sort()
	return checkUniqueIDs("CONM2", "element_id", c.ElementID)
}

func (c *CONM2) Sort() {
	if intsAscending(c.ElementID) {
		return
	}
	perm := argsort(c.ElementID)
	c.ElementID = gatherInts(perm, c.ElementID)
	c.NodeID = gatherInts(perm, c.NodeID)
	c.CoordID = gatherInts(perm, c.CoordID)
	c.Mass = gatherFloats(perm, c.Mass)
	c.XYZOffset = gatherStrided(perm, c.XYZOffset, 3)
	c.Inertia = gatherStrided(perm, c.Inertia, 6)
}

func (c *CONM2) SliceByIndex(rows []int) *CONM2 {
	out := NewCONM2()
	out.n = len(rows)
	out.ElementID = gatherInts(rows, c.ElementID)
	out.NodeID = gatherInts(rows, c.NodeID)
	out.CoordID = gatherInts(rows, c.CoordID)
	out.Mass = gatherFloats(rows, c.Mass)
	out.XYZOffset = gatherStrided(rows, c.XYZOffset, 3)
	out.Inertia = gatherStrided(rows, c.Inertia, 6)
	return out
}

func (c *CONM2) SliceByID(ids []int) (*CONM2, error) {
	rows, err := indexByID("CONM2", c.ElementID, ids)
	if err != nil {
		return nil, err
	}
	return c.SliceByIndex(rows), nil
}

func (c *CONM2) Convert(scales Scales) {
	floats.Scale(scales.Mass, c.Mass)
	floats.Scale(scales.XYZ, c.XYZOffset)
	floats.Scale(scales.MassInertia, c.Inertia)
}

func (c *CONM2) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "CONM2", "node_id", refs.NodeIDs(), c.NodeID, false)
	checkRefs(missing, "CONM2", "coord_id", refs.CoordIDs(), c.CoordID, true)
}

func (c *CONM2) WriteFile(w io.Writer, size int, isDouble bool) error {
	if c.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(max(maxInt(c.ElementID), maxInt(c.NodeID)), size)
	printCard := field.PrintCard(size, isDouble)
	for i, eid := range c.ElementID {
		fields := []any{"CONM2", eid, c.NodeID[i],
			field.SetBlankIfDefault(c.CoordID[i], 0),
			c.Mass[i],
			field.SetBlankIfDefault(c.XYZOffset[3*i], 0.0),
			field.SetBlankIfDefault(c.XYZOffset[3*i+1], 0.0),
			field.SetBlankIfDefault(c.XYZOffset[3*i+2], 0.0)}
		I := c.Inertia[6*i : 6*i+6]
		if !allZero(I) {
			fields = append(fields, nil)
			for _, v := range I {
				fields = append(fields, field.SetBlankIfDefault(v, 0.0))
			}
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// TotalMass sums the scalar masses.
func (c *CONM2) TotalMass() float64 {
	return floats.Sum(c.Mass)
}

// MassMatrix assembles the 6x6 rigid-body mass matrix of one row about
// its grid point. Inertia terms are given about the center of mass;
// the offset contributes the parallel-axis and coupling terms. The
// product-of-inertia sign convention puts -I21 etc. off the diagonal.
func (c *CONM2) MassMatrix(row int) *mat.SymDense {
	m := c.Mass[row]
	x := c.XYZOffset[3*row]
	y := c.XYZOffset[3*row+1]
	z := c.XYZOffset[3*row+2]
	I := c.Inertia[6*row : 6*row+6]

	mm := mat.NewSymDense(6, nil)
	mm.SetSym(0, 0, m)
	mm.SetSym(1, 1, m)
	mm.SetSym(2, 2, m)

	// Translation/rotation coupling from the offset.
	mm.SetSym(0, 4, m*z)
	mm.SetSym(0, 5, -m*y)
	mm.SetSym(1, 3, -m*z)
	mm.SetSym(1, 5, m*x)
	mm.SetSym(2, 3, m*y)
	mm.SetSym(2, 4, -m*x)

	// Rotational block about the grid point.
	mm.SetSym(3, 3, I[0]+m*(y*y+z*z))
	mm.SetSym(4, 4, I[2]+m*(x*x+z*z))
	mm.SetSym(5, 5, I[5]+m*(x*x+y*y))
	mm.SetSym(3, 4, -I[1]-m*x*y)
	mm.SetSym(3, 5, -I[3]-m*x*z)
	mm.SetSym(4, 5, -I[4]-m*y*z)
	return mm
}

func allZero(vs []float64) bool {
	for _, v := range vs {
		if v != 0 {
			return false
		}
	}
	return true
}
