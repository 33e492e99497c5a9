package cards

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/LetterRay/bulkdata/field"
)

// testRefs is a minimal registry context for table tests.
type testRefs struct {
	nodes    []int
	coords   []int
	elements []int
	spcs     []ConstraintSource
	mpcs     []ConstraintSource
	loads    []LoadSource
}

func (r *testRefs) NodeIDs() []int { return r.nodes }
func (r *testRefs) CoordIDs() []int {
	if r.coords == nil {
		return []int{0}
	}
	return r.coords
}
func (r *testRefs) ElementIDs() []int              { return r.elements }
func (r *testRefs) SPCSources() []ConstraintSource { return r.spcs }
func (r *testRefs) MPCSources() []ConstraintSource { return r.mpcs }
func (r *testRefs) LoadSources() []LoadSource      { return r.loads }
func (r *testRefs) Logger() *zap.Logger            { return zap.NewNop() }

func TestSPC_AddCard(t *testing.T) {
	spc := NewSPC()

	t.Run("one_group", func(t *testing.T) {
		c := field.NewCard([]string{"SPC", "1", "10", "123", "0.5"})
		if _, err := spc.AddCard(c); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("two_groups", func(t *testing.T) {
		c := field.NewCard([]string{"SPC", "1", "20", "456", "0.0", "21", "1", "2.5"})
		if _, err := spc.AddCard(c); err != nil {
			t.Fatal(err)
		}
	})

	if err := spc.ParseCards(); err != nil {
		t.Fatal(err)
	}
	if spc.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", spc.Len())
	}
	if spc.NodeID[1] != 20 || spc.NodeID[2] != 21 {
		t.Errorf("two-group parse: nodes %v", spc.NodeID)
	}
	if spc.Enforced[2] != 2.5 {
		t.Errorf("enforced %v", spc.Enforced)
	}
}

func TestSPC1_RaggedSort(t *testing.T) {
	s := NewSPC1()
	mustAdd := func(sid, comp int, nodes []int) {
		t.Helper()
		if _, err := s.Add(sid, comp, nodes); err != nil {
			t.Fatal(err)
		}
	}
	mustAdd(10, 123, []int{100, 101, 102})
	mustAdd(5, 456, []int{200})
	mustAdd(7, 1, []int{300, 301})
	if err := s.ParseCards(); err != nil {
		t.Fatal(err)
	}
	s.Sort()

	wantIDs := []int{5, 7, 10}
	for i, want := range wantIDs {
		if s.SPCID[i] != want {
			t.Fatalf("sorted ids %v, want %v", s.SPCID, wantIDs)
		}
	}
	// The flat node buffer follows its rows.
	wantNodes := []int{200, 300, 301, 100, 101, 102}
	for i, want := range wantNodes {
		if s.NodeID[i] != want {
			t.Fatalf("nodes %v, want %v", s.NodeID, wantNodes)
		}
	}
	wantCounts := []int{1, 2, 3}
	for i, want := range wantCounts {
		if s.NNodes[i] != want {
			t.Fatalf("counts %v, want %v", s.NNodes, wantCounts)
		}
	}
}

func TestSPC1_ThruExpansion(t *testing.T) {
	s := NewSPC1()
	c := field.NewCard([]string{"SPC1", "4", "123", "10", "THRU", "13", "20"})
	if _, err := s.AddCard(c); err != nil {
		t.Fatal(err)
	}
	if err := s.ParseCards(); err != nil {
		t.Fatal(err)
	}
	want := []int{10, 11, 12, 13, 20}
	if len(s.NodeID) != len(want) {
		t.Fatalf("nodes %v", s.NodeID)
	}
	for i := range want {
		if s.NodeID[i] != want[i] {
			t.Errorf("nodes %v, want %v", s.NodeID, want)
		}
	}
}

func TestSPC1_EmptyNodeList(t *testing.T) {
	s := NewSPC1()
	if _, err := s.Add(1, 123, nil); err == nil {
		t.Error("expected error for empty node list")
	}
}

func TestMPC_AddCard(t *testing.T) {
	m := NewMPC()
	// Three terms: two on the first line, one on the continuation.
	// Positions 8 and 9 are the format's pad fields.
	c := field.NewCard([]string{"MPC", "2",
		"10", "1", "1.0", "11", "2", "-1.0",
		"", "",
		"12", "3", "0.5"})
	if _, err := m.AddCard(c); err != nil {
		t.Fatal(err)
	}
	if err := m.ParseCards(); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 {
		t.Fatalf("rows %d", m.Len())
	}
	if m.NTerms[0] != 3 {
		t.Fatalf("terms %v", m.NTerms)
	}
	wantNodes := []int{10, 11, 12}
	for i, want := range wantNodes {
		if m.NodeID[i] != want {
			t.Errorf("nodes %v", m.NodeID)
		}
	}
	if m.Coefficients[2] != 0.5 {
		t.Errorf("coefficients %v", m.Coefficients)
	}
}

func TestMPC_FirstCoefficientRequired(t *testing.T) {
	m := NewMPC()
	c := field.NewCard([]string{"MPC", "2", "10", "1", "0.0"})
	if _, err := m.AddCard(c); err == nil {
		t.Error("expected error for zero A1")
	}
}

func TestSPCADD_GetReducedSPCs(t *testing.T) {
	spc := NewSPC()
	spc.Add(3, 30, 123, 0)
	if err := spc.ParseCards(); err != nil {
		t.Fatal(err)
	}

	spc1 := NewSPC1()
	if _, err := spc1.Add(2, 456, []int{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := spc1.ParseCards(); err != nil {
		t.Fatal(err)
	}

	refs := &testRefs{spcs: []ConstraintSource{spc, spc1}}

	t.Run("union_resolves", func(t *testing.T) {
		add := NewSPCADD()
		if _, err := add.Add(5, []int{2, 3}); err != nil {
			t.Fatal(err)
		}
		if err := add.ParseCards(); err != nil {
			t.Fatal(err)
		}
		reduced, err := add.GetReducedSPCs(refs, true)
		if err != nil {
			t.Fatal(err)
		}
		members := reduced[5]
		if len(members) != 2 {
			t.Fatalf("expected 2 members, got %d", len(members))
		}
		total := 0
		for _, m := range members {
			total += m.Len()
		}
		if total != 2 {
			t.Errorf("expected 2 constraint rows across members, got %d", total)
		}
	})

	t.Run("dangling_reference", func(t *testing.T) {
		add := NewSPCADD()
		if _, err := add.Add(6, []int{99}); err != nil {
			t.Fatal(err)
		}
		if err := add.ParseCards(); err != nil {
			t.Fatal(err)
		}
		_, err := add.GetReducedSPCs(refs, true)
		if err == nil {
			t.Fatal("expected error for dangling set id")
		}
		if !strings.Contains(err.Error(), "99") {
			t.Errorf("error should name the missing id: %v", err)
		}

		// Collect mode keeps going.
		reduced, err := add.GetReducedSPCs(refs, false)
		if err != nil {
			t.Fatal(err)
		}
		if len(reduced[6]) != 0 {
			t.Errorf("dangling-only union should have no members, got %d", len(reduced[6]))
		}
	})

	t.Run("nested_union_not_recursed", func(t *testing.T) {
		add := NewSPCADD()
		if _, err := add.Add(7, []int{2}); err != nil {
			t.Fatal(err)
		}
		if _, err := add.Add(8, []int{7}); err != nil {
			t.Fatal(err)
		}
		if err := add.ParseCards(); err != nil {
			t.Fatal(err)
		}
		reduced, err := add.GetReducedSPCs(refs, true)
		if err != nil {
			t.Fatal(err)
		}
		if len(reduced[8]) != 0 {
			t.Errorf("nested union must not recurse, got %d members", len(reduced[8]))
		}
		if len(reduced[7]) != 1 {
			t.Errorf("concrete reference should resolve, got %d", len(reduced[7]))
		}
	})
}

func TestSPC1_WriteFile(t *testing.T) {
	s := NewSPC1()
	if _, err := s.Add(1, 123, []int{5, 6, 7}); err != nil {
		t.Fatal(err)
	}
	if err := s.ParseCards(); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.WriteFile(&buf, 8, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "SPC1") {
		t.Errorf("output %q", out)
	}
	for _, tok := range []string{"123", "5", "6", "7"} {
		if !strings.Contains(out, tok) {
			t.Errorf("output missing %s: %q", tok, out)
		}
	}
}

func TestSPCADD_GeomCheck(t *testing.T) {
	spc1 := NewSPC1()
	if _, err := spc1.Add(2, 456, []int{1}); err != nil {
		t.Fatal(err)
	}
	if err := spc1.ParseCards(); err != nil {
		t.Fatal(err)
	}

	add := NewSPCADD()
	if _, err := add.Add(5, []int{2, 44}); err != nil {
		t.Fatal(err)
	}
	if err := add.ParseCards(); err != nil {
		t.Fatal(err)
	}

	missing := NewMissing()
	add.GeomCheck(missing, &testRefs{spcs: []ConstraintSource{spc1}})
	if missing.Empty() {
		t.Fatal("expected a dangling reference")
	}
	ids := missing.IDs("SPCADD.spc_ids")
	if len(ids) != 1 || ids[0] != 44 {
		t.Errorf("missing ids %v", ids)
	}
}
