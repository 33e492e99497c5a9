package cards

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"

	"github.com/LetterRay/bulkdata/field"
)

// PLOTEL defines a dummy two-node element for plotting. One physical
// line packs up to two elements; the second occupies fields 5 to 7.
//
//	+--------+-----+-----+-----+-----+-----+-----+
//	|   1    |  2  |  3  |  4  |  5  |  6  |  7  |
//	+========+=====+=====+=====+=====+=====+=====+
//	| PLOTEL | EID | G1  | G2  | EID | G1  | G2  |
//	+--------+-----+-----+-----+-----+-----+-----+
type PLOTEL struct {
	n     int
	cards []plotelStaged

	ElementID []int
	Nodes     []int // stride 2
}

type plotelStaged struct {
	eid, g1, g2 int
}

func NewPLOTEL() *PLOTEL { return &PLOTEL{} }

func (p *PLOTEL) Type() string { return "PLOTEL" }
func (p *PLOTEL) Len() int     { return p.n }

func (p *PLOTEL) Add(eid, g1, g2 int) int {
	p.cards = append(p.cards, plotelStaged{eid: eid, g1: g1, g2: g2})
	p.n++
	return p.n
}

func (p *PLOTEL) AddCard(c *field.Card) (int, error) {
	for e := 0; e < 2; e++ {
		base := 1 + 3*e
		if e == 1 && c.Field(base) == "" {
			break
		}
		eid, err := c.Integer(base, "eid")
		if err != nil {
			return 0, err
		}
		g1, err := c.Integer(base+1, "g1")
		if err != nil {
			return 0, err
		}
		g2, err := c.Integer(base+2, "g2")
		if err != nil {
			return 0, err
		}
		p.Add(eid, g1, g2)
	}
	return p.n, nil
}

func (p *PLOTEL) ParseCards() error {
	if len(p.cards) == 0 {
		return nil
	}
	for _, s := range p.cards {
		p.ElementID = append(p.ElementID, s.eid)
		p.Nodes = append(p.Nodes, s.g1, s.g2)
	}
	p.cards = nil
	p.n = len(p.ElementID)
	checkParallel("PLOTEL", p.n, len(p.Nodes)/2)
	p.Sort()
	return checkUniqueIDs("PLOTEL", "element_id", p.ElementID)
}

func (p *PLOTEL) Sort() {
	if intsAscending(p.ElementID) {
		return
	}
	perm := argsort(p.ElementID)
	p.ElementID = gatherInts(perm, p.ElementID)
	p.Nodes = gatherStridedInts(perm, p.Nodes, 2)
}

func (p *PLOTEL) SliceByIndex(rows []int) *PLOTEL {
	out := NewPLOTEL()
	out.n = len(rows)
	out.ElementID = gatherInts(rows, p.ElementID)
	out.Nodes = gatherStridedInts(rows, p.Nodes, 2)
	return out
}

func (p *PLOTEL) SliceByID(ids []int) (*PLOTEL, error) {
	rows, err := indexByID("PLOTEL", p.ElementID, ids)
	if err != nil {
		return nil, err
	}
	return p.SliceByIndex(rows), nil
}

func (p *PLOTEL) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "PLOTEL", "node_id", refs.NodeIDs(), p.Nodes, false)
}

func (p *PLOTEL) WriteFile(w io.Writer, size int, isDouble bool) error {
	if p.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(max(maxInt(p.ElementID), maxInt(p.Nodes)), size)
	printCard := field.PrintCard(size, isDouble)
	// Two elements per line when the field width allows it.
	if size == 8 {
		for i := 0; i < p.n; i += 2 {
			fields := []any{"PLOTEL", p.ElementID[i], p.Nodes[2*i], p.Nodes[2*i+1]}
			if i+1 < p.n {
				fields = append(fields, p.ElementID[i+1], p.Nodes[2*i+2], p.Nodes[2*i+3])
			}
			if _, err := io.WriteString(w, printCard(fields)); err != nil {
				return err
			}
		}
		return nil
	}
	for i, eid := range p.ElementID {
		fields := []any{"PLOTEL", eid, p.Nodes[2*i], p.Nodes[2*i+1]}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// nodeXYZ resolves node positions from the grid table.
func (p *PLOTEL) nodeXYZ(grid *GRID) ([][3]float64, [][3]float64, error) {
	g1 := make([]int, p.n)
	g2 := make([]int, p.n)
	for i := 0; i < p.n; i++ {
		g1[i] = p.Nodes[2*i]
		g2[i] = p.Nodes[2*i+1]
	}
	i1, err := grid.Index(g1)
	if err != nil {
		return nil, nil, fmt.Errorf("PLOTEL: %w", err)
	}
	i2, err := grid.Index(g2)
	if err != nil {
		return nil, nil, fmt.Errorf("PLOTEL: %w", err)
	}
	x1 := make([][3]float64, p.n)
	x2 := make([][3]float64, p.n)
	for i := range i1 {
		copy(x1[i][:], grid.XYZ[3*i1[i]:3*i1[i]+3])
		copy(x2[i][:], grid.XYZ[3*i2[i]:3*i2[i]+3])
	}
	return x1, x2, nil
}

// Length returns the straight-line length of every element.
func (p *PLOTEL) Length(grid *GRID) ([]float64, error) {
	x1, x2, err := p.nodeXYZ(grid)
	if err != nil {
		return nil, err
	}
	out := make([]float64, p.n)
	for i := range out {
		out[i] = floats.Distance(x1[i][:], x2[i][:], 2)
	}
	return out, nil
}

// Centroid returns the midpoint of every element, stride 3.
func (p *PLOTEL) Centroid(grid *GRID) ([]float64, error) {
	x1, x2, err := p.nodeXYZ(grid)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 3*p.n)
	for i := range x1 {
		for k := 0; k < 3; k++ {
			out[3*i+k] = 0.5 * (x1[i][k] + x2[i][k])
		}
	}
	return out, nil
}
