package cards

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/LetterRay/bulkdata/field"
)

// MAT1 defines linear isotropic material properties. Any two of E, G
// and nu determine the third; blank inputs are derived on add.
//
//	+------+-----+-----+-----+-------+-----+------+------+-----+
//	|   1  |  2  | 3   | 4   |   5   |  6  |  7   |  8   |  9  |
//	+======+=====+=====+=====+=======+=====+======+======+=====+
//	| MAT1 | MID |  E  |  G  |  NU   | RHO |  A   | TREF | GE  |
//	+------+-----+-----+-----+-------+-----+------+------+-----+
//	|      | ST  | SC  | SS  | MCSID |     |      |      |     |
//	+------+-----+-----+-----+-------+-----+------+------+-----+
type MAT1 struct {
	n     int
	cards []mat1Staged

	MaterialID []int
	E          []float64
	G          []float64
	Nu         []float64
	Rho        []float64
	Alpha      []float64
	Tref       []float64
	Ge         []float64
	St         []float64
	Sc         []float64
	Ss         []float64
	Mcsid      []int
}

type mat1Staged struct {
	mid, mcsid           int
	e, g, nu             float64
	rho, alpha, tref, ge float64
	st, sc, ss           float64
}

func NewMAT1() *MAT1 { return &MAT1{} }

func (m *MAT1) Type() string { return "MAT1" }
func (m *MAT1) Len() int     { return m.n }

// DeriveEGNu fills in one missing elastic constant. A negative input
// marks the blank; exactly one of the three may be blank.
func DeriveEGNu(e, g, nu float64) (float64, float64, float64, error) {
	eBlank, gBlank, nuBlank := e < 0, g < 0, nu < 0
	switch {
	case gBlank && nuBlank:
		g, nu = 0, 0
	case eBlank && nuBlank:
		e, nu = 0, 0
	case eBlank:
		e = 2 * (1 + nu) * g
	case gBlank:
		g = e / (2 * (1 + nu))
	case nuBlank:
		nu = e/(2*g) - 1
	}
	if e < 0 || g < 0 {
		return 0, 0, 0, fmt.Errorf("MAT1: negative modulus E=%g G=%g", e, g)
	}
	return e, g, nu, nil
}

func gDefault(e, nu float64) float64 {
	if e == 0 {
		return 0
	}
	return e / (2 * (1 + nu))
}

func (m *MAT1) Add(mid int, e, g, nu, rho, alpha, tref, ge, st, sc, ss float64, mcsid int) (int, error) {
	e, g, nu, err := DeriveEGNu(e, g, nu)
	if err != nil {
		return 0, err
	}
	m.cards = append(m.cards, mat1Staged{
		mid: mid, e: e, g: g, nu: nu,
		rho: rho, alpha: alpha, tref: tref, ge: ge,
		st: st, sc: sc, ss: ss, mcsid: mcsid,
	})
	m.n++
	return m.n, nil
}

func (m *MAT1) AddCard(c *field.Card) (int, error) {
	mid, err := c.Integer(1, "mid")
	if err != nil {
		return 0, err
	}
	// -1 marks a blank elastic constant for derivation.
	e, err := c.DoubleOrBlank(2, "E", -1)
	if err != nil {
		return 0, err
	}
	g, err := c.DoubleOrBlank(3, "G", -1)
	if err != nil {
		return 0, err
	}
	nu, err := c.DoubleOrBlank(4, "nu", -1)
	if err != nil {
		return 0, err
	}
	if e < 0 && g < 0 && nu < 0 {
		e, g, nu = 0, 0, 0
	}
	rho, err := c.DoubleOrBlank(5, "rho", 0)
	if err != nil {
		return 0, err
	}
	alpha, err := c.DoubleOrBlank(6, "a", 0)
	if err != nil {
		return 0, err
	}
	tref, err := c.DoubleOrBlank(7, "tref", 0)
	if err != nil {
		return 0, err
	}
	ge, err := c.DoubleOrBlank(8, "ge", 0)
	if err != nil {
		return 0, err
	}
	st, err := c.DoubleOrBlank(9, "St", 0)
	if err != nil {
		return 0, err
	}
	sc, err := c.DoubleOrBlank(10, "Sc", 0)
	if err != nil {
		return 0, err
	}
	ss, err := c.DoubleOrBlank(11, "Ss", 0)
	if err != nil {
		return 0, err
	}
	mcsid, err := c.IntegerOrBlank(12, "mcsid", 0)
	if err != nil {
		return 0, err
	}
	if c.Len() > 13 {
		return 0, fmt.Errorf("MAT1 mid=%d: %d fields, at most 13 allowed", mid, c.Len())
	}
	return m.Add(mid, e, g, nu, rho, alpha, tref, ge, st, sc, ss, mcsid)
}

func (m *MAT1) ParseCards() error {
	if len(m.cards) == 0 {
		return nil
	}
	for _, s := range m.cards {
		m.MaterialID = append(m.MaterialID, s.mid)
		m.E = append(m.E, s.e)
		m.G = append(m.G, s.g)
		m.Nu = append(m.Nu, s.nu)
		m.Rho = append(m.Rho, s.rho)
		m.Alpha = append(m.Alpha, s.alpha)
		m.Tref = append(m.Tref, s.tref)
		m.Ge = append(m.Ge, s.ge)
		m.St = append(m.St, s.st)
		m.Sc = append(m.Sc, s.sc)
		m.Ss = append(m.Ss, s.ss)
		m.Mcsid = append(m.Mcsid, s.mcsid)
	}
	m.cards = nil
	m.n = len(m.MaterialID)
	checkParallel("MAT1", m.n, len(m.E), len(m.G), len(m.Nu), len(m.Rho),
		len(m.Alpha), len(m.Tref), len(m.Ge), len(m.St), len(m.Sc), len(m.Ss), len(m.Mcsid))
	m.Sort()
	return checkUniqueIDs("MAT1", "material_id", m.MaterialID)
}

func (m *MAT1) Sort() {
	if intsAscending(m.MaterialID) {
		return
	}
	perm := argsort(m.MaterialID)
	m.MaterialID = gatherInts(perm, m.MaterialID)
	m.E = gatherFloats(perm, m.E)
	m.G = gatherFloats(perm, m.G)
	m.Nu = gatherFloats(perm, m.Nu)
	m.Rho = gatherFloats(perm, m.Rho)
	m.Alpha = gatherFloats(perm, m.Alpha)
	m.Tref = gatherFloats(perm, m.Tref)
	m.Ge = gatherFloats(perm, m.Ge)
	m.St = gatherFloats(perm, m.St)
	m.Sc = gatherFloats(perm, m.Sc)
	m.Ss = gatherFloats(perm, m.Ss)
	m.Mcsid = gatherInts(perm, m.Mcsid)
}

func (m *MAT1) SliceByIndex(rows []int) *MAT1 {
	out := NewMAT1()
	out.n = len(rows)
	out.MaterialID = gatherInts(rows, m.MaterialID)
	out.E = gatherFloats(rows, m.E)
	out.G = gatherFloats(rows, m.G)
	out.Nu = gatherFloats(rows, m.Nu)
	out.Rho = gatherFloats(rows, m.Rho)
	out.Alpha = gatherFloats(rows, m.Alpha)
	out.Tref = gatherFloats(rows, m.Tref)
	out.Ge = gatherFloats(rows, m.Ge)
	out.St = gatherFloats(rows, m.St)
	out.Sc = gatherFloats(rows, m.Sc)
	out.Ss = gatherFloats(rows, m.Ss)
	out.Mcsid = gatherInts(rows, m.Mcsid)
	return out
}

// SliceByID selects materials by id; ids must all exist.
func (m *MAT1) SliceByID(ids []int) (*MAT1, error) {
	rows, err := indexByID("MAT1", m.MaterialID, ids)
	if err != nil {
		return nil, err
	}
	return m.SliceByIndex(rows), nil
}

func (m *MAT1) Index(ids []int) ([]int, error) {
	return indexByID("MAT1", m.MaterialID, ids)
}

func (m *MAT1) Convert(scales Scales) {
	floats.Scale(scales.Stiffness, m.E)
	floats.Scale(scales.Stiffness, m.G)
	floats.Scale(scales.Density, m.Rho)
	floats.Scale(scales.Alpha, m.Alpha)
	floats.Scale(scales.Stress, m.St)
	floats.Scale(scales.Stress, m.Sc)
	floats.Scale(scales.Stress, m.Ss)
}

func (m *MAT1) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "MAT1", "mcsid", refs.CoordIDs(), m.Mcsid, true)
}

func (m *MAT1) WriteFile(w io.Writer, size int, isDouble bool) error {
	if m.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(max(maxInt(m.MaterialID), maxInt(m.Mcsid)), size)
	printCard := field.PrintCard(size, isDouble)
	for i, mid := range m.MaterialID {
		g := field.SetBlankIfDefault(m.G[i], gDefault(m.E[i], m.Nu[i]))
		fields := []any{"MAT1", mid, m.E[i], g, m.Nu[i],
			field.SetBlankIfDefault(m.Rho[i], 0.0),
			field.SetBlankIfDefault(m.Alpha[i], 0.0),
			field.SetBlankIfDefault(m.Tref[i], 0.0),
			field.SetBlankIfDefault(m.Ge[i], 0.0)}
		if m.St[i] != 0 || m.Sc[i] != 0 || m.Ss[i] != 0 || m.Mcsid[i] != 0 {
			fields = append(fields,
				field.SetBlankIfDefault(m.St[i], 0.0),
				field.SetBlankIfDefault(m.Sc[i], 0.0),
				field.SetBlankIfDefault(m.Ss[i], 0.0),
				field.SetBlankIfDefault(m.Mcsid[i], 0))
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// Compliance returns the plane-stress compliance matrix per material:
//
//	[  1/E  -nu/E    0  ]
//	[ -nu/E   1/E    0  ]
//	[   0      0    1/G ]
//
// Rows with E or G equal to zero yield infinities, matching the direct
// reciprocal.
func (m *MAT1) Compliance() []*mat.SymDense {
	out := make([]*mat.SymDense, m.n)
	for i := range out {
		s := mat.NewSymDense(3, nil)
		s.SetSym(0, 0, 1/m.E[i])
		s.SetSym(1, 1, 1/m.E[i])
		s.SetSym(0, 1, -m.Nu[i]/m.E[i])
		s.SetSym(2, 2, 1/m.G[i])
		out[i] = s
	}
	return out
}

// RhoMax reports the densest material, a cheap sanity probe for unit
// conversions gone wrong.
func (m *MAT1) RhoMax() float64 {
	if m.n == 0 {
		return math.NaN()
	}
	return floats.Max(m.Rho)
}
