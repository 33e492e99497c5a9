package cards

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/LetterRay/bulkdata/field"
)

// SPC is the single-point constraint table with enforced values. One
// physical line may pack two constraint groups; each group becomes one
// row.
//
//	+-----+-----+----+----+------+----+----+----+
//	|  1  |  2  |  3 |  4 |   5  |  6 |  7 |  8 |
//	+=====+=====+====+====+======+====+====+====+
//	| SPC | SID | G1 | C1 |  D1  | G2 | C2 | D2 |
//	+-----+-----+----+----+------+----+----+----+
type SPC struct {
	n     int
	cards []spcStaged

	SPCID      []int
	NodeID     []int
	Components []int
	Enforced   []float64
}

type spcStaged struct {
	sid, nid, components int
	enforced             float64
}

func NewSPC() *SPC { return &SPC{} }

func (s *SPC) Type() string { return "SPC" }
func (s *SPC) Len() int     { return s.n }

// Add stages one constraint row from already-typed values.
func (s *SPC) Add(sid, nid, components int, enforced float64) int {
	s.cards = append(s.cards, spcStaged{sid: sid, nid: nid, components: components, enforced: enforced})
	s.n++
	return s.n
}

// AddCard stages one or two rows, depending on whether the G2 group is
// present on the line.
func (s *SPC) AddCard(c *field.Card) (int, error) {
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

func (s *SPC) ParseCards() error {
	if len(s.cards) == 0 {
		return nil
	}
	for _, st := range s.cards {
		s.SPCID = append(s.SPCID, st.sid)
		s.NodeID = append(s.NodeID, st.nid)
		s.Components = append(s.Components, st.components)
		s.Enforced = append(s.Enforced, st.enforced)
	}
	s.cards = nil
	s.n = len(s.SPCID)
	checkParallel("SPC", s.n, len(s.NodeID), len(s.Components), len(s.Enforced))
	return nil
}

func (s *SPC) Sort() {
	if intsAscending(s.SPCID) {
		return
	}
	perm := argsort(s.SPCID)
	s.SPCID = gatherInts(perm, s.SPCID)
	s.NodeID = gatherInts(perm, s.NodeID)
	s.Components = gatherInts(perm, s.Components)
	s.Enforced = gatherFloats(perm, s.Enforced)
}

func (s *SPC) SliceByIndex(rows []int) *SPC {
	out := NewSPC()
	out.n = len(rows)
	out.SPCID = gatherInts(rows, s.SPCID)
	out.NodeID = gatherInts(rows, s.NodeID)
	out.Components = gatherInts(rows, s.Components)
	out.Enforced = gatherFloats(rows, s.Enforced)
	return out
}

func (s *SPC) SetIDs() []int { return s.SPCID }

func (s *SPC) SliceBySetID(id int) ConstraintSource {
	return s.SliceByIndex(rowsWithID(s.SPCID, id))
}

func (s *SPC) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "SPC", "node_id", refs.NodeIDs(), s.NodeID, false)
}

func (s *SPC) WriteFile(w io.Writer, size int, isDouble bool) error {
	if s.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(s.NodeID), size)
	printCard := field.PrintCard(size, isDouble)
	for i, sid := range s.SPCID {
		fields := []any{"SPC", sid, s.NodeID[i],
			field.SetBlankIfDefault(s.Components[i], 0),
			field.SetBlankIfDefault(s.Enforced[i], 0.0),
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// SPC1 constrains a ragged list of nodes to zero displacement on one
// component set. Node lists accept THRU ranges.
//
//	+------+-----+-------+----+------+----+----+----+----+
//	|  1   |  2  |   3   |  4 |  5   |  6 |  7 |  8 |  9 |
//	+======+=====+=======+====+======+====+====+====+====+
//	| SPC1 | SID |   C   | G1 |  G2  | G3 | G4 | G5 | G6 |
//	+------+-----+-------+----+------+----+----+----+----+
//	| SPC1 | SID |   C   | G1 | THRU | G2 |    |    |    |
//	+------+-----+-------+----+------+----+----+----+----+
type SPC1 struct {
	n     int
	cards []spc1Staged

	SPCID      []int
	Components []int
	NodeID     []int // flat ragged buffer
	NNodes     []int // per-row node counts
}

type spc1Staged struct {
	sid, components int
	nodes           []int
}

func NewSPC1() *SPC1 { return &SPC1{} }

func (s *SPC1) Type() string { return "SPC1" }
func (s *SPC1) Len() int     { return s.n }

// Inode derives the per-row [start, end) offsets into NodeID.
func (s *SPC1) Inode() [][2]int { return Idim(s.NNodes) }

// Add stages one row. The node list must not be empty.
func (s *SPC1) Add(sid, components int, nodes []int) (int, error) {
	if len(nodes) == 0 {
		return 0, fmt.Errorf("SPC1 sid=%d: empty node list", sid)
	}
	s.cards = append(s.cards, spc1Staged{sid: sid, components: components, nodes: nodes})
	s.n++
	return s.n, nil
}

func (s *SPC1) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	components, err := c.ComponentsOrBlank(2, "components", 0)
	if err != nil {
		return 0, err
	}
	nodes, err := field.ExpandThru(c.Fields(3))
	if err != nil {
		return 0, fmt.Errorf("SPC1 sid=%d nodes: %w", sid, err)
	}
	return s.Add(sid, components, nodes)
}

func (s *SPC1) ParseCards() error {
	if len(s.cards) == 0 {
		return nil
	}
	for _, st := range s.cards {
		s.SPCID = append(s.SPCID, st.sid)
		s.Components = append(s.Components, st.components)
		s.NodeID = append(s.NodeID, st.nodes...)
		s.NNodes = append(s.NNodes, len(st.nodes))
	}
	s.cards = nil
	s.n = len(s.SPCID)
	checkParallel("SPC1", s.n, len(s.Components), len(s.NNodes))
	CheckRagged("SPC1.node_id", s.NNodes, len(s.NodeID))
	return nil
}

// Sort reorders rows by ascending set id, re-deriving the ragged node
// buffer consistently with the new order.
func (s *SPC1) Sort() {
	if intsAscending(s.SPCID) {
		return
	}
	perm := argsort(s.SPCID)
	idim := s.Inode()
	s.SPCID = gatherInts(perm, s.SPCID)
	s.Components = gatherInts(perm, s.Components)
	s.NodeID, s.NNodes = HSliceInts(perm, idim, s.NodeID)
	CheckRagged("SPC1.node_id", s.NNodes, len(s.NodeID))
}

func (s *SPC1) SliceByIndex(rows []int) *SPC1 {
	out := NewSPC1()
	out.n = len(rows)
	out.SPCID = gatherInts(rows, s.SPCID)
	out.Components = gatherInts(rows, s.Components)
	out.NodeID, out.NNodes = HSliceInts(rows, s.Inode(), s.NodeID)
	CheckRagged("SPC1.node_id", out.NNodes, len(out.NodeID))
	return out
}

func (s *SPC1) SetIDs() []int { return s.SPCID }

func (s *SPC1) SliceBySetID(id int) ConstraintSource {
	return s.SliceByIndex(rowsWithID(s.SPCID, id))
}

func (s *SPC1) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "SPC1", "node_id", refs.NodeIDs(), s.NodeID, false)
}

func (s *SPC1) WriteFile(w io.Writer, size int, isDouble bool) error {
	if s.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(s.NodeID), size)
	printCard := field.PrintCard(size, isDouble)
	for i, d := range s.Inode() {
		fields := []any{"SPC1", s.SPCID[i],
			field.SetBlankIfDefault(s.Components[i], 0)}
		for _, nid := range s.NodeID[d[0]:d[1]] {
			fields = append(fields, nid)
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// MPC is the multipoint constraint table: per row a ragged list of
// (node, component, coefficient) terms read two to a line stride.
//
//	+-----+-----+----+----+-----+----+----+----+
//	|  1  |  2  |  3 |  4 |  5  |  6 |  7 |  8 |
//	+=====+=====+====+====+=====+====+====+====+
//	| MPC | SID | G1 | C1 |  A1 | G2 | C2 | A2 |
//	+-----+-----+----+----+-----+----+----+----+
//	|     |  G3 | C3 | A3 | ... |    |    |    |
//	+-----+-----+----+----+-----+----+----+----+
type MPC struct {
	n     int
	cards []mpcStaged

	MPCID        []int
	NodeID       []int     // flat
	Components   []int     // flat
	Coefficients []float64 // flat
	NTerms       []int     // per-row term counts
}

type mpcStaged struct {
	sid          int
	nodes, comps []int
	coeffs       []float64
}

func NewMPC() *MPC { return &MPC{} }

func (m *MPC) Type() string { return "MPC" }
func (m *MPC) Len() int     { return m.n }

func (m *MPC) Iterm() [][2]int { return Idim(m.NTerms) }

// Add stages one constraint equation. Parallel slices must agree and
// must not be empty.
func (m *MPC) Add(sid int, nodes, comps []int, coeffs []float64) (int, error) {
	if len(nodes) == 0 || len(nodes) != len(comps) || len(nodes) != len(coeffs) {
		return 0, fmt.Errorf("MPC sid=%d: terms must be non-empty and parallel: %d nodes, %d components, %d coefficients",
			sid, len(nodes), len(comps), len(coeffs))
	}
	m.cards = append(m.cards, mpcStaged{sid: sid, nodes: nodes, comps: comps, coeffs: coeffs})
	m.n++
	return m.n, nil
}

func (m *MPC) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	var nodes, comps []int
	var coeffs []float64
	nfields := c.Len()
	term := 1
	// Two (G, C, A) groups per 8-field line stride.
	for base := 2; base < nfields; base += 8 {
		for _, off := range [2]int{0, 3} {
			pos := base + off
			if pos >= nfields || (c.Field(pos) == "" && term > 1) {
				continue
			}
			nid, err := c.Integer(pos, fmt.Sprintf("G%d", term))
			if err != nil {
				return 0, err
			}
			comp, err := c.ComponentsOrBlank(pos+1, fmt.Sprintf("C%d", term), 0)
			if err != nil {
				return 0, err
			}
			var coeff float64
			if term == 1 {
				// The leading coefficient defines the dependent term and
				// must be nonzero.
				coeff, err = c.Double(pos+2, fmt.Sprintf("A%d", term))
				if err == nil && coeff == 0 {
					err = fmt.Errorf("MPC sid=%d: A1 must be nonzero", sid)
				}
			} else {
				coeff, err = c.DoubleOrBlank(pos+2, fmt.Sprintf("A%d", term), 0)
			}
			if err != nil {
				return 0, err
			}
			nodes = append(nodes, nid)
			comps = append(comps, comp)
			coeffs = append(coeffs, coeff)
			term++
		}
	}
	return m.Add(sid, nodes, comps, coeffs)
}

func (m *MPC) ParseCards() error {
	if len(m.cards) == 0 {
		return nil
	}
	for _, st := range m.cards {
		m.MPCID = append(m.MPCID, st.sid)
		m.NodeID = append(m.NodeID, st.nodes...)
		m.Components = append(m.Components, st.comps...)
		m.Coefficients = append(m.Coefficients, st.coeffs...)
		m.NTerms = append(m.NTerms, len(st.nodes))
	}
	m.cards = nil
	m.n = len(m.MPCID)
	CheckRagged("MPC.node_id", m.NTerms, len(m.NodeID))
	CheckRagged("MPC.coefficients", m.NTerms, len(m.Coefficients))
	return nil
}

func (m *MPC) Sort() {
	if intsAscending(m.MPCID) {
		return
	}
	perm := argsort(m.MPCID)
	idim := m.Iterm()
	m.MPCID = gatherInts(perm, m.MPCID)
	m.NodeID, _ = HSliceInts(perm, idim, m.NodeID)
	m.Components, _ = HSliceInts(perm, idim, m.Components)
	m.Coefficients, m.NTerms = HSliceFloats(perm, idim, m.Coefficients)
}

func (m *MPC) SliceByIndex(rows []int) *MPC {
	out := NewMPC()
	out.n = len(rows)
	out.MPCID = gatherInts(rows, m.MPCID)
	idim := m.Iterm()
	out.NodeID, _ = HSliceInts(rows, idim, m.NodeID)
	out.Components, _ = HSliceInts(rows, idim, m.Components)
	out.Coefficients, out.NTerms = HSliceFloats(rows, idim, m.Coefficients)
	return out
}

func (m *MPC) SetIDs() []int { return m.MPCID }

func (m *MPC) SliceBySetID(id int) ConstraintSource {
	return m.SliceByIndex(rowsWithID(m.MPCID, id))
}

func (m *MPC) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "MPC", "node_id", refs.NodeIDs(), m.NodeID, false)
}

func (m *MPC) WriteFile(w io.Writer, size int, isDouble bool) error {
	if m.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(m.NodeID), size)
	printCard := field.PrintCard(size, isDouble)
	for i, d := range m.Iterm() {
		fields := []any{"MPC", m.MPCID[i]}
		for k := d[0]; k < d[1]; k++ {
			fields = append(fields, m.NodeID[k],
				field.SetBlankIfDefault(m.Components[k], 0),
				m.Coefficients[k])
			// Two terms per line; the trailing pair of columns stays
			// blank so continuation terms land on G positions.
			if (k-d[0])%2 == 1 && k != d[1]-1 {
				fields = append(fields, nil, nil)
			}
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// setUnion is the shared storage of the aggregate (union) cards: a
// primary set id plus a ragged list of referenced set ids.
type setUnion struct {
	name  string
	n     int
	cards []unionStaged

	SID   []int
	SIDs  []int // flat referenced ids
	NSIDs []int // per-row counts
}

type unionStaged struct {
	sid  int
	sids []int
}

func (u *setUnion) Type() string { return u.name }
func (u *setUnion) Len() int     { return u.n }

func (u *setUnion) Idim() [][2]int { return Idim(u.NSIDs) }

// Add stages one union row. A union card with no members is malformed.
func (u *setUnion) Add(sid int, sids []int) (int, error) {
	if len(sids) == 0 {
		return 0, fmt.Errorf("%s sid=%d: union card with no members", u.name, sid)
	}
	u.cards = append(u.cards, unionStaged{sid: sid, sids: sids})
	u.n++
	return u.n, nil
}

func (u *setUnion) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	sids, err := field.ExpandThru(c.Fields(2))
	if err != nil {
		return 0, fmt.Errorf("%s sid=%d: %w", u.name, sid, err)
	}
	return u.Add(sid, sids)
}

func (u *setUnion) ParseCards() error {
	if len(u.cards) == 0 {
		return nil
	}
	for _, st := range u.cards {
		u.SID = append(u.SID, st.sid)
		u.SIDs = append(u.SIDs, st.sids...)
		u.NSIDs = append(u.NSIDs, len(st.sids))
	}
	u.cards = nil
	u.n = len(u.SID)
	CheckRagged(u.name+".sids", u.NSIDs, len(u.SIDs))
	return nil
}

func (u *setUnion) Sort() {
	if intsAscending(u.SID) {
		return
	}
	perm := argsort(u.SID)
	idim := u.Idim()
	u.SID = gatherInts(perm, u.SID)
	u.SIDs, u.NSIDs = HSliceInts(perm, idim, u.SIDs)
}

func (u *setUnion) WriteFile(w io.Writer, size int, isDouble bool) error {
	if u.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(max(maxInt(u.SID), maxInt(u.SIDs)), size)
	printCard := field.PrintCard(size, isDouble)
	for i, d := range u.Idim() {
		fields := []any{u.name, u.SID[i]}
		for _, sid := range u.SIDs[d[0]:d[1]] {
			fields = append(fields, sid)
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// SPCADD unions single-point constraint sets defined on SPC or SPC1
// rows.
//
//	+--------+----+----+----+
//	|    1   | 2  |  3 |  4 |
//	+========+====+====+====+
//	| SPCADD | 2  |  1 |  3 |
//	+--------+----+----+----+
type SPCADD struct{ setUnion }

func NewSPCADD() *SPCADD { return &SPCADD{setUnion{name: "SPCADD"}} }

func (s *SPCADD) GeomCheck(missing *Missing, refs Refs) {
	var known []int
	for _, src := range refs.SPCSources() {
		known = append(known, src.SetIDs()...)
	}
	checkRefs(missing, "SPCADD", "spc_ids", known, s.SIDs, false)
}

// GetReducedSPCs resolves every referenced set id against the concrete
// SPC/SPC1 tables.
func (s *SPCADD) GetReducedSPCs(refs Refs, stopOnFailure bool) (ReducedConstraints, error) {
	return reduceUnion(&s.setUnion, refs.SPCSources(), refs.Logger(), stopOnFailure)
}

// MPCADD unions multipoint constraint sets.
type MPCADD struct{ setUnion }

func NewMPCADD() *MPCADD { return &MPCADD{setUnion{name: "MPCADD"}} }

func (m *MPCADD) GeomCheck(missing *Missing, refs Refs) {
	var known []int
	for _, src := range refs.MPCSources() {
		known = append(known, src.SetIDs()...)
	}
	checkRefs(missing, "MPCADD", "mpc_ids", known, m.SIDs, false)
}

// GetReducedMPCs resolves every referenced set id against the concrete
// MPC tables.
func (m *MPCADD) GetReducedMPCs(refs Refs, stopOnFailure bool) (ReducedConstraints, error) {
	return reduceUnion(&m.setUnion, refs.MPCSources(), refs.Logger(), stopOnFailure)
}

// ReducedConstraints maps an aggregate set id to the concrete
// constraint tables it unions, in referenced order.
type ReducedConstraints map[int][]ConstraintSource

// reduceUnion resolves the referenced set ids of every union row
// against the concrete source tables. The id map is built once over
// all sources, not once per union row. A reference to another union
// row is a nested aggregate: it is logged and not recursed. With
// stopOnFailure, a dangling reference fails immediately; otherwise it
// is logged and skipped so partial results can be inspected.
func reduceUnion(u *setUnion, sources []ConstraintSource, log *zap.Logger, stopOnFailure bool) (ReducedConstraints, error) {
	bySetID := make(map[int][]ConstraintSource)
	for _, src := range sources {
		if src.Len() == 0 {
			continue
		}
		seen := make(map[int]struct{})
		for _, id := range src.SetIDs() {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			bySetID[id] = append(bySetID[id], src.SliceBySetID(id))
		}
	}

	aggregate := make(map[int]struct{}, u.n)
	for _, sid := range u.SID {
		aggregate[sid] = struct{}{}
	}

	reduced := make(ReducedConstraints, u.n)
	for i, d := range u.Idim() {
		sid := u.SID[i]
		var members []ConstraintSource
		for _, ref := range u.SIDs[d[0]:d[1]] {
			found, ok := bySetID[ref]
			if !ok {
				if _, nested := aggregate[ref]; nested {
					log.Warn("union card references another union card; not recursing",
						zap.String("card", u.name), zap.Int("sid", sid), zap.Int("referenced", ref))
					continue
				}
				err := fmt.Errorf("no referenced constraint sets found for set_id=%d on %s sid=%d", ref, u.name, sid)
				log.Error(err.Error())
				if stopOnFailure {
					return nil, err
				}
				continue
			}
			members = append(members, found...)
		}
		reduced[sid] = members
	}
	return reduced, nil
}
