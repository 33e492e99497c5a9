package cards

import (
	"fmt"
	"io"
	"strings"

	"github.com/LetterRay/bulkdata/field"
)

// setBase is the shared storage of the node/component membership sets
// (ASET, BSET, CSET, QSET, OMIT): per-row a grid point and a component
// string. Two input grammars land in the same table:
//
//	ASET   G1 C1 G2 C2 ...        (pairs)
//	ASET1  C  G1 G2 G3 ...        (one component, THRU allowed)
type setBase struct {
	name  string
	cards []setStaged

	n          int
	NodeID     []int
	Components []int
}

type setStaged struct {
	nid, components int
}

func (s *setBase) Type() string { return s.name }
func (s *setBase) Len() int     { return s.n }

func (s *setBase) Add(nids []int, components int) int {
	for _, nid := range nids {
		s.cards = append(s.cards, setStaged{nid: nid, components: components})
	}
	s.n += len(nids)
	return s.n
}

// AddSetCard parses the paired grammar: alternating grid/component.
func (s *setBase) AddSetCard(c *field.Card) (int, error) {
	nfields := c.Len()
	if (nfields-1)%2 != 0 {
		return 0, fmt.Errorf("%s: grid without components", s.name)
	}
	for base := 1; base < nfields; base += 2 {
		g := (base-1)/2 + 1
		nid, err := c.Integer(base, fmt.Sprintf("G%d", g))
		if err != nil {
			return 0, err
		}
		components, err := c.Components(base+1, fmt.Sprintf("C%d", g))
		if err != nil {
			return 0, err
		}
		s.Add([]int{nid}, components)
	}
	return s.n, nil
}

// AddSet1Card parses the single-component grammar with THRU ranges.
func (s *setBase) AddSet1Card(c *field.Card) (int, error) {
	components, err := c.Components(1, "components")
	if err != nil {
		return 0, err
	}
	nids, err := field.ExpandThru(c.Fields(2))
	if err != nil {
		return 0, fmt.Errorf("%s1: %w", s.name, err)
	}
	if len(nids) == 0 {
		return 0, fmt.Errorf("%s1: no grid points", s.name)
	}
	return s.Add(nids, components), nil
}

func (s *setBase) ParseCards() error {
	if len(s.cards) == 0 {
		return nil
	}
	for _, st := range s.cards {
		s.NodeID = append(s.NodeID, st.nid)
		s.Components = append(s.Components, st.components)
	}
	s.cards = nil
	s.n = len(s.NodeID)
	checkParallel(s.name, s.n, len(s.Components))
	return nil
}

func (s *setBase) Sort() {
	if intsAscending(s.NodeID) {
		return
	}
	perm := argsort(s.NodeID)
	s.NodeID = gatherInts(perm, s.NodeID)
	s.Components = gatherInts(perm, s.Components)
}

func (s *setBase) sliceByIndex(rows []int) *setBase {
	out := &setBase{name: s.name, n: len(rows)}
	out.NodeID = gatherInts(rows, s.NodeID)
	out.Components = gatherInts(rows, s.Components)
	return out
}

func (s *setBase) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, s.name, "node_id", refs.NodeIDs(), s.NodeID, false)
}

// WriteFile regroups rows by component, in first-seen order, and emits
// one list card per component with ranges collapsed to THRU.
func (s *setBase) WriteFile(w io.Writer, size int, isDouble bool) error {
	if s.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(s.NodeID), size)
	printCard := field.PrintCard(size, isDouble)

	tag := s.name[:1] + "SET1"
	if s.name == "OMIT" {
		tag = "OMIT1"
	}
	var order []int
	byComp := make(map[int][]int)
	for i, comp := range s.Components {
		if _, ok := byComp[comp]; !ok {
			order = append(order, comp)
		}
		byComp[comp] = append(byComp[comp], s.NodeID[i])
	}
	for _, comp := range order {
		fields := []any{tag, comp}
		for _, f := range field.CollapseThru(byComp[comp]) {
			fields = append(fields, f)
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}

// ASET defines degrees of freedom in the analysis set.
type ASET struct{ setBase }

func NewASET() *ASET { return &ASET{setBase{name: "ASET"}} }

func (a *ASET) SliceByIndex(rows []int) *ASET { return &ASET{*a.sliceByIndex(rows)} }

// BSET defines fixed analysis-set degrees of freedom in component mode
// synthesis.
type BSET struct{ setBase }

func NewBSET() *BSET { return &BSET{setBase{name: "BSET"}} }

func (b *BSET) SliceByIndex(rows []int) *BSET { return &BSET{*b.sliceByIndex(rows)} }

// CSET defines free analysis-set degrees of freedom.
type CSET struct{ setBase }

func NewCSET() *CSET { return &CSET{setBase{name: "CSET"}} }

func (c *CSET) SliceByIndex(rows []int) *CSET { return &CSET{*c.sliceByIndex(rows)} }

// QSET defines generalized degrees of freedom.
type QSET struct{ setBase }

func NewQSET() *QSET { return &QSET{setBase{name: "QSET"}} }

func (q *QSET) SliceByIndex(rows []int) *QSET { return &QSET{*q.sliceByIndex(rows)} }

// OMIT defines degrees of freedom excluded from the analysis set.
type OMIT struct{ setBase }

func NewOMIT() *OMIT { return &OMIT{setBase{name: "OMIT"}} }

func (o *OMIT) SliceByIndex(rows []int) *OMIT { return &OMIT{*o.sliceByIndex(rows)} }

// SUPORT defines determinate reaction degrees of freedom for free
// bodies. Unlike the ASET family it carries an id column: rows with
// suport_id 0 come from SUPORT cards, nonzero from SUPORT1.
type SUPORT struct {
	n     int
	cards []suportStaged

	SuportID   []int
	NodeID     []int
	Components []int
}

type suportStaged struct {
	sid, nid, components int
}

func NewSUPORT() *SUPORT { return &SUPORT{} }

func (s *SUPORT) Type() string { return "SUPORT" }
func (s *SUPORT) Len() int     { return s.n }

func (s *SUPORT) Add(sid int, nids []int, components []int) (int, error) {
	if len(nids) != len(components) {
		return 0, fmt.Errorf("SUPORT: %d nodes vs %d components", len(nids), len(components))
	}
	for i, nid := range nids {
		s.cards = append(s.cards, suportStaged{sid: sid, nid: nid, components: components[i]})
	}
	s.n += len(nids)
	return s.n, nil
}

// AddCard parses a SUPORT line: alternating grid/component pairs, all
// landing in the anonymous suport_id 0 group.
func (s *SUPORT) AddCard(c *field.Card) (int, error) {
	nfields := c.Len()
	if (nfields-1)%2 != 0 {
		return 0, fmt.Errorf("SUPORT: grid without components")
	}
	var nids, comps []int
	for base := 1; base < nfields; base += 2 {
		g := (base-1)/2 + 1
		nid, err := c.Integer(base, fmt.Sprintf("ID%d", g))
		if err != nil {
			return 0, err
		}
		components, err := c.ComponentsOrBlank(base+1, fmt.Sprintf("C%d", g), 0)
		if err != nil {
			return 0, err
		}
		nids = append(nids, nid)
		comps = append(comps, components)
	}
	return s.Add(0, nids, comps)
}

// AddSuport1Card parses a SUPORT1 line: an id then grid/component pairs.
func (s *SUPORT) AddSuport1Card(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "suport_id")
	if err != nil {
		return 0, err
	}
	nfields := c.Len()
	if (nfields-2)%2 != 0 {
		return 0, fmt.Errorf("SUPORT1 sid=%d: grid without components", sid)
	}
	var nids, comps []int
	for base := 2; base < nfields; base += 2 {
		g := (base-2)/2 + 1
		nid, err := c.Integer(base, fmt.Sprintf("ID%d", g))
		if err != nil {
			return 0, err
		}
		components, err := c.ComponentsOrBlank(base+1, fmt.Sprintf("C%d", g), 0)
		if err != nil {
			return 0, err
		}
		nids = append(nids, nid)
		comps = append(comps, components)
	}
	return s.Add(sid, nids, comps)
}

func (s *SUPORT) ParseCards() error {
	if len(s.cards) == 0 {
		return nil
	}
	for _, st := range s.cards {
		s.SuportID = append(s.SuportID, st.sid)
		s.NodeID = append(s.NodeID, st.nid)
		s.Components = append(s.Components, st.components)
	}
	s.cards = nil
	s.n = len(s.SuportID)
	checkParallel("SUPORT", s.n, len(s.NodeID), len(s.Components))
	return nil
}

func (s *SUPORT) Sort() {
	if intsAscending(s.SuportID) {
		return
	}
	perm := argsort(s.SuportID)
	s.SuportID = gatherInts(perm, s.SuportID)
	s.NodeID = gatherInts(perm, s.NodeID)
	s.Components = gatherInts(perm, s.Components)
}

func (s *SUPORT) SliceByIndex(rows []int) *SUPORT {
	out := NewSUPORT()
	out.n = len(rows)
	out.SuportID = gatherInts(rows, s.SuportID)
	out.NodeID = gatherInts(rows, s.NodeID)
	out.Components = gatherInts(rows, s.Components)
	return out
}

func (s *SUPORT) GeomCheck(missing *Missing, refs Refs) {
	checkRefs(missing, "SUPORT", "node_id", refs.NodeIDs(), s.NodeID, false)
}

func (s *SUPORT) WriteFile(w io.Writer, size int, isDouble bool) error {
	if s.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(maxInt(s.NodeID), size)
	printCard := field.PrintCard(size, isDouble)
	// Anonymous rows first, on one SUPORT card; SUPORT1 by id.
	var order []int
	byID := make(map[int][]int)
	for i, sid := range s.SuportID {
		if _, ok := byID[sid]; !ok {
			order = append(order, sid)
		}
		byID[sid] = append(byID[sid], i)
	}
	// Both forms restart the tag once a card fills instead of spilling
	// onto continuation lines: four pairs per SUPORT, three per SUPORT1.
	for _, sid := range order {
		var head []any
		full := 9
		if sid == 0 {
			head = []any{"SUPORT"}
		} else {
			head = []any{"SUPORT1", sid}
			full = 8
		}
		fields := append([]any{}, head...)
		for _, i := range byID[sid] {
			fields = append(fields, s.NodeID[i], field.SetBlankIfDefault(s.Components[i], 0))
			if len(fields) >= full {
				if _, err := io.WriteString(w, printCard(fields)); err != nil {
					return err
				}
				fields = append([]any{}, head...)
			}
		}
		if len(fields) > len(head) {
			if _, err := io.WriteString(w, printCard(fields)); err != nil {
				return err
			}
		}
	}
	return nil
}

// SET1 defines a named list of structural points (or, with the SKIN
// token, element faces). The id list is ragged over the rows.
//
//	+------+--------+--------+-----+------+-----+-----+------+-----+
//	|  1   |   2    |   3    |  4  |  5   |  6  |  7  |  8   |  9  |
//	+======+========+========+=====+======+=====+=====+======+=====+
//	| SET1 |  SID   |  ID1   | ID2 | ID3  | ID4 | ID5 | ID6  | ID7 |
//	+------+--------+--------+-----+------+-----+-----+------+-----+
type SET1 struct {
	n     int
	cards []set1Staged

	SetID  []int
	IsSkin []bool
	IDs    []int // flat
	NumIDs []int // per-row counts
}

type set1Staged struct {
	sid    int
	isSkin bool
	ids    []int
}

func NewSET1() *SET1 { return &SET1{} }

func (s *SET1) Type() string { return "SET1" }
func (s *SET1) Len() int     { return s.n }

func (s *SET1) Inid() [][2]int { return Idim(s.NumIDs) }

func (s *SET1) Add(sid int, ids []int, isSkin bool) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("SET1 sid=%d: no ids", sid)
	}
	s.cards = append(s.cards, set1Staged{sid: sid, isSkin: isSkin, ids: ids})
	s.n++
	return s.n, nil
}

func (s *SET1) AddCard(c *field.Card) (int, error) {
	sid, err := c.Integer(1, "sid")
	if err != nil {
		return 0, err
	}
	raw := c.Fields(2)
	isSkin := false
	if len(raw) > 0 && strings.EqualFold(raw[0], "SKIN") {
		isSkin = true
		raw = raw[1:]
	}
	ids, err := field.ExpandThru(raw)
	if err != nil {
		return 0, fmt.Errorf("SET1 sid=%d: %w", sid, err)
	}
	return s.Add(sid, ids, isSkin)
}

func (s *SET1) ParseCards() error {
	if len(s.cards) == 0 {
		return nil
	}
	for _, st := range s.cards {
		s.SetID = append(s.SetID, st.sid)
		s.IsSkin = append(s.IsSkin, st.isSkin)
		s.IDs = append(s.IDs, st.ids...)
		s.NumIDs = append(s.NumIDs, len(st.ids))
	}
	s.cards = nil
	s.n = len(s.SetID)
	CheckRagged("SET1.ids", s.NumIDs, len(s.IDs))
	return nil
}

func (s *SET1) Sort() {
	if intsAscending(s.SetID) {
		return
	}
	perm := argsort(s.SetID)
	idim := s.Inid()
	s.SetID = gatherInts(perm, s.SetID)
	s.IsSkin = gatherBools(perm, s.IsSkin)
	s.IDs, s.NumIDs = HSliceInts(perm, idim, s.IDs)
}

func (s *SET1) SliceByIndex(rows []int) *SET1 {
	out := NewSET1()
	out.n = len(rows)
	idim := s.Inid()
	out.SetID = gatherInts(rows, s.SetID)
	out.IsSkin = gatherBools(rows, s.IsSkin)
	out.IDs, out.NumIDs = HSliceInts(rows, idim, s.IDs)
	return out
}

// SliceBySetID returns the rows carrying the given set id.
func (s *SET1) SliceBySetID(id int) *SET1 {
	return s.SliceByIndex(rowsWithID(s.SetID, id))
}

func (s *SET1) GeomCheck(missing *Missing, refs Refs) {
	// Skinless sets reference structural points; skin sets reference
	// elements and are checked against that universe instead.
	var nodeIDs, elemIDs []int
	for i, d := range s.Inid() {
		if s.IsSkin[i] {
			elemIDs = append(elemIDs, s.IDs[d[0]:d[1]]...)
		} else {
			nodeIDs = append(nodeIDs, s.IDs[d[0]:d[1]]...)
		}
	}
	checkRefs(missing, "SET1", "node_id", refs.NodeIDs(), nodeIDs, false)
	checkRefs(missing, "SET1", "element_id", refs.ElementIDs(), elemIDs, false)
}

func (s *SET1) WriteFile(w io.Writer, size int, isDouble bool) error {
	if s.n == 0 {
		return nil
	}
	size = field.UpdateFieldSize(max(maxInt(s.SetID), maxInt(s.IDs)), size)
	printCard := field.PrintCard(size, isDouble)
	for i, d := range s.Inid() {
		fields := []any{"SET1", s.SetID[i]}
		if s.IsSkin[i] {
			fields = append(fields, "SKIN")
		}
		for _, f := range field.CollapseThru(s.IDs[d[0]:d[1]]) {
			fields = append(fields, f)
		}
		if _, err := io.WriteString(w, printCard(fields)); err != nil {
			return err
		}
	}
	return nil
}
