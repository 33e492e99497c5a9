// Package model ties the card tables into one bulk data model: reading
// deck text, committing staged cards, unit conversion, cross-reference
// checking and write-back.
package model

import (
	"go.uber.org/zap"

	"github.com/LetterRay/bulkdata/cards"
)

// Model owns one table per supported card type. Tables start empty;
// cards staged through the reader or the Add methods become visible
// after ParseCards.
type Model struct {
	log *zap.Logger

	Grid *cards.GRID

	Plotel *cards.PLOTEL
	Conm2  *cards.CONM2

	Mat1 *cards.MAT1

	Spc    *cards.SPC
	Spc1   *cards.SPC1
	SpcAdd *cards.SPCADD
	Mpc    *cards.MPC
	MpcAdd *cards.MPCADD

	Force  *cards.FORCE
	Moment *cards.MOMENT
	Grav   *cards.GRAV
	Spcd   *cards.SPCD
	Deform *cards.DEFORM
	Load   *cards.LOAD

	Aset   *cards.ASET
	Bset   *cards.BSET
	Cset   *cards.CSET
	Qset   *cards.QSET
	Omit   *cards.OMIT
	Suport *cards.SUPORT
	Set1   *cards.SET1
}

// New builds an empty model. A nil logger disables logging.
func New(log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	return &Model{
		log: log,

		Grid: cards.NewGRID(),

		Plotel: cards.NewPLOTEL(),
		Conm2:  cards.NewCONM2(),

		Mat1: cards.NewMAT1(),

		Spc:    cards.NewSPC(),
		Spc1:   cards.NewSPC1(),
		SpcAdd: cards.NewSPCADD(),
		Mpc:    cards.NewMPC(),
		MpcAdd: cards.NewMPCADD(),

		Force:  cards.NewFORCE(),
		Moment: cards.NewMOMENT(),
		Grav:   cards.NewGRAV(),
		Spcd:   cards.NewSPCD(),
		Deform: cards.NewDEFORM(),
		Load:   cards.NewLOAD(),

		Aset:   cards.NewASET(),
		Bset:   cards.NewBSET(),
		Cset:   cards.NewCSET(),
		Qset:   cards.NewQSET(),
		Omit:   cards.NewOMIT(),
		Suport: cards.NewSUPORT(),
		Set1:   cards.NewSET1(),
	}
}

// tables returns every table in deck section order: geometry,
// elements, materials, constraints, loads, sets. Write-back follows
// this order.
func (m *Model) tables() []cards.Table {
	return []cards.Table{
		m.Grid,
		m.Plotel, m.Conm2,
		m.Mat1,
		m.Spc, m.Spc1, m.SpcAdd, m.Mpc, m.MpcAdd,
		m.Force, m.Moment, m.Grav, m.Spcd, m.Deform, m.Load,
		m.Aset, m.Bset, m.Cset, m.Qset, m.Omit, m.Suport, m.Set1,
	}
}

// ParseCards commits every table's staged cards into its columns.
func (m *Model) ParseCards() error {
	for _, t := range m.tables() {
		if err := t.ParseCards(); err != nil {
			return err
		}
	}
	return nil
}

// Convert rescales every convertible table in place. Non-empty tables
// without conversion support are rolled up into one warning.
func (m *Model) Convert(scales cards.Scales) {
	var skipped []string
	for _, t := range m.tables() {
		c, ok := t.(cards.Converter)
		if !ok {
			if t.Len() > 0 {
				skipped = append(skipped, t.Type())
			}
			continue
		}
		c.Convert(scales)
	}
	if len(skipped) > 0 {
		m.log.Warn("cards skipped by unit conversion", zap.Strings("types", skipped))
	}
}

// GeomCheck sweeps every table for dangling cross references. The
// result is advisory; nothing is mutated.
func (m *Model) GeomCheck() *cards.Missing {
	missing := cards.NewMissing()
	for _, t := range m.tables() {
		t.GeomCheck(missing, m)
	}
	return missing
}

// ReducedSPCs resolves the SPCADD unions against the concrete
// constraint tables.
func (m *Model) ReducedSPCs(stopOnFailure bool) (cards.ReducedConstraints, error) {
	return m.SpcAdd.GetReducedSPCs(m, stopOnFailure)
}

// ReducedMPCs resolves the MPCADD unions.
func (m *Model) ReducedMPCs(stopOnFailure bool) (cards.ReducedConstraints, error) {
	return m.MpcAdd.GetReducedMPCs(m, stopOnFailure)
}

// ReducedLoads resolves the LOAD superpositions against the concrete
// load tables.
func (m *Model) ReducedLoads(opts cards.ReduceOptions) (map[int][]cards.ReducedLoad, error) {
	return m.Load.GetReducedLoads(m, opts)
}

// Refs implementation: the model is the registry context handed to the
// tables.

func (m *Model) NodeIDs() []int { return m.Grid.NodeID }

// CoordIDs lists the defined coordinate frames. Only the basic frame
// exists; CORD2R and friends are out of scope, so any nonzero cid is a
// dangling reference.
func (m *Model) CoordIDs() []int { return []int{0} }

func (m *Model) ElementIDs() []int {
	out := make([]int, 0, len(m.Plotel.ElementID)+len(m.Conm2.ElementID))
	out = append(out, m.Plotel.ElementID...)
	out = append(out, m.Conm2.ElementID...)
	return out
}

func (m *Model) SPCSources() []cards.ConstraintSource {
	return []cards.ConstraintSource{m.Spc, m.Spc1}
}

func (m *Model) MPCSources() []cards.ConstraintSource {
	return []cards.ConstraintSource{m.Mpc}
}

func (m *Model) LoadSources() []cards.LoadSource {
	return []cards.LoadSource{m.Force, m.Moment, m.Grav, m.Spcd, m.Deform}
}

func (m *Model) Logger() *zap.Logger { return m.log }
