package cards

import (
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
)

// Table is the surface every card table exposes to the model container.
type Table interface {
	// Type is the fixed card-kind tag, e.g. "SPC1".
	Type() string
	// Len is the committed row count; staged rows count once ParseCards
	// has run.
	Len() int
	// ParseCards commits every staged tuple into the columnar arrays,
	// concatenating onto any earlier batch, then clears the staging
	// list. A table with nothing staged is a no-op.
	ParseCards() error
	// WriteFile renders all rows in fixed-format text. A table with no
	// rows writes nothing. size is 8 or 16 and may be promoted
	// per-table by id magnitude.
	WriteFile(w io.Writer, size int, isDouble bool) error
	// GeomCheck validates every foreign-id column against the
	// referenced tables, appending dangling ids to missing. Non-fatal.
	GeomCheck(missing *Missing, refs Refs)
}

// Converter is implemented by tables carrying physically-scaled
// columns. Tables without one are reported once as skipped by the
// model's Convert pass.
type Converter interface {
	Convert(scales Scales)
}

// Refs is the passed-in registry context giving card tables access to
// the id columns of the tables they reference. The model container
// implements it; card tables never reach into a global.
type Refs interface {
	// NodeIDs is the grid table's id column.
	NodeIDs() []int
	// CoordIDs lists the defined coordinate frame ids. Frame 0 (basic)
	// is always defined.
	CoordIDs() []int
	// ElementIDs is the union of all element tables' id columns.
	ElementIDs() []int
	// SPCSources lists the concrete (non-aggregate) single-point
	// constraint tables registered on the model.
	SPCSources() []ConstraintSource
	// MPCSources lists the concrete multipoint constraint tables.
	MPCSources() []ConstraintSource
	// LoadSources lists the concrete (non-aggregate) load tables.
	LoadSources() []LoadSource
	// Logger is the model's structured logger.
	Logger() *zap.Logger
}

// ConstraintSource is a concrete constraint table referenced by id from
// an aggregate (SPCADD/MPCADD) row.
type ConstraintSource interface {
	Table
	// SetIDs is the constraint-set id column, one entry per row.
	SetIDs() []int
	// SliceBySetID returns the rows carrying the given set id, as a new
	// table of the same kind. Zero matches is a valid empty result.
	SliceBySetID(id int) ConstraintSource
}

// LoadSource is a concrete load table referenced by id from a LOAD row.
type LoadSource interface {
	Table
	// LoadIDs is the load-set id column, one entry per row.
	LoadIDs() []int
	// SliceByLoadID returns the rows carrying the given load set id.
	SliceByLoadID(id int) LoadSource
}

// Scales is the shared unit-conversion factor set passed to every
// table's Convert. Each card family applies only the factors on its
// allow-list and ignores the rest, so one Scales value serves the whole
// model. The zero value is unusable; use UnitScales or NewScales.
type Scales struct {
	XYZ         float64
	Area        float64
	Volume      float64
	Time        float64
	Mass        float64
	Gravity     float64
	Temperature float64
	Alpha       float64

	Velocity float64
	Accel    float64
	Force    float64
	Moment   float64
	Pressure float64

	Density     float64
	MassInertia float64
	AreaInertia float64

	Stress    float64
	Stiffness float64
}

// UnitScales returns the identity conversion.
func UnitScales() Scales {
	return NewScales(1, 1, 1, 1, 1)
}

// NewScales derives the full factor set from the five independent
// scales, the same way a unit-system change does.
func NewScales(xyz, mass, time, gravity, temperature float64) Scales {
	force := mass * gravity * xyz / (time * time)
	area := xyz * xyz
	stress := force / area
	return Scales{
		XYZ:         xyz,
		Area:        area,
		Volume:      xyz * xyz * xyz,
		Time:        time,
		Mass:        mass,
		Gravity:     gravity,
		Temperature: temperature,
		Alpha:       1 / temperature,

		Velocity: xyz / time,
		Accel:    xyz / (time * time),
		Force:    force,
		Moment:   force * xyz,
		Pressure: stress,

		Density:     force / (xyz * xyz * xyz),
		MassInertia: mass * xyz * xyz,
		AreaInertia: area * area,

		Stress:    stress,
		Stiffness: stress,
	}
}

// Missing accumulates dangling cross references discovered by
// GeomCheck, keyed by "<card type>.<column role>". It is the soft
// failure mode: ids are collected and reported, never raised.
type Missing struct {
	keys []string
	ids  map[string][]int
}

// NewMissing returns an empty accumulator.
func NewMissing() *Missing {
	return &Missing{ids: make(map[string][]int)}
}

// Add records dangling ids under the given table type and column role.
func (m *Missing) Add(tableType, role string, ids []int) {
	if len(ids) == 0 {
		return
	}
	key := tableType + "." + role
	if _, ok := m.ids[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.ids[key] = append(m.ids[key], ids...)
}

// Empty reports whether nothing dangling was found.
func (m *Missing) Empty() bool { return len(m.keys) == 0 }

// Keys lists the populated "<type>.<role>" keys in first-seen order.
func (m *Missing) Keys() []string { return m.keys }

// IDs returns the dangling ids recorded under a key.
func (m *Missing) IDs(key string) []int { return m.ids[key] }

// String renders the report one key per line.
func (m *Missing) String() string {
	if m.Empty() {
		return "no missing references"
	}
	s := ""
	for _, k := range m.keys {
		s += fmt.Sprintf("%s: missing ids %v\n", k, m.ids[k])
	}
	return s
}

// checkRefs looks up each used id in the known id column and records
// the ones not found. filterZero skips id 0, for roles where 0 means
// "none" or the basic frame rather than a reference.
func checkRefs(m *Missing, tableType, role string, known, used []int, filterZero bool) {
	set := make(map[int]struct{}, len(known))
	for _, id := range known {
		set[id] = struct{}{}
	}
	var missing []int
	seen := make(map[int]struct{})
	for _, id := range used {
		if filterZero && id == 0 {
			continue
		}
		if _, ok := set[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	sort.Ints(missing)
	m.Add(tableType, role, missing)
}

// argsort returns the permutation that orders ids ascending, stable
// across duplicates.
func argsort(ids []int) []int {
	perm := make([]int, len(ids))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool { return ids[perm[a]] < ids[perm[b]] })
	return perm
}

func intsAscending(ids []int) bool {
	for i := 1; i < len(ids); i++ {
		if ids[i] < ids[i-1] {
			return false
		}
	}
	return true
}

func maxInt(ids []int) int {
	m := 0
	for _, v := range ids {
		if v > m {
			m = v
		}
	}
	return m
}

// indexByID returns the row indices of each requested id against a
// primary id column that is unique per row. Every id must match.
func indexByID(tableType string, column, ids []int) ([]int, error) {
	byID := make(map[int]int, len(column))
	for i, id := range column {
		byID[id] = i
	}
	rows := make([]int, len(ids))
	var missing []int
	for k, id := range ids {
		i, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		rows[k] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: ids %v not found; have %v", tableType, missing, column)
	}
	return rows, nil
}

// checkUniqueIDs rejects repeated values in a sorted primary id column.
func checkUniqueIDs(tableType, role string, ids []int) error {
	var dups []int
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] && (len(dups) == 0 || dups[len(dups)-1] != ids[i]) {
			dups = append(dups, ids[i])
		}
	}
	if len(dups) > 0 {
		return fmt.Errorf("%s: duplicate %s %v", tableType, role, dups)
	}
	return nil
}

// rowsWithID returns the indices of every row carrying id in a
// non-unique id column, in row order.
func rowsWithID(column []int, id int) []int {
	var rows []int
	for i, v := range column {
		if v == id {
			rows = append(rows, i)
		}
	}
	return rows
}

func checkParallel(tableType string, n int, lens ...int) {
	for _, l := range lens {
		if l != n {
			panic(fmt.Sprintf("%s: parallel arrays out of step: n=%d len=%d", tableType, n, l))
		}
	}
}
