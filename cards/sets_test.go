package cards

import (
	"bytes"
	"strings"
	"testing"

	"github.com/LetterRay/bulkdata/field"
)

func TestSetBase_BothGrammars(t *testing.T) {
	a := NewASET()

	// Paired grammar: alternating grid/component.
	c := field.NewCard([]string{"ASET", "16", "2", "23", "3516", "1", "4"})
	if _, err := a.AddSetCard(c); err != nil {
		t.Fatal(err)
	}
	// List grammar: one component, THRU range.
	c = field.NewCard([]string{"ASET1", "123", "40", "THRU", "42"})
	if _, err := a.AddSet1Card(c); err != nil {
		t.Fatal(err)
	}
	if err := a.ParseCards(); err != nil {
		t.Fatal(err)
	}

	if a.Len() != 6 {
		t.Fatalf("rows %d", a.Len())
	}
	wantNodes := []int{16, 23, 1, 40, 41, 42}
	wantComps := []int{2, 3516, 4, 123, 123, 123}
	for i := range wantNodes {
		if a.NodeID[i] != wantNodes[i] || a.Components[i] != wantComps[i] {
			t.Fatalf("nodes %v comps %v", a.NodeID, a.Components)
		}
	}
}

func TestSetBase_WriteGroupsByComponent(t *testing.T) {
	q := NewQSET()
	c := field.NewCard([]string{"QSET1", "123", "1", "THRU", "5"})
	if _, err := q.AddSet1Card(c); err != nil {
		t.Fatal(err)
	}
	c = field.NewCard([]string{"QSET", "9", "6", "10", "123"})
	if _, err := q.AddSetCard(c); err != nil {
		t.Fatal(err)
	}
	if err := q.ParseCards(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := q.WriteFile(&buf, 8, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// One QSET1 line per distinct component, first-seen order.
	if len(lines) != 2 {
		t.Fatalf("lines %v", lines)
	}
	if !strings.HasPrefix(lines[0], "QSET1") || !strings.HasPrefix(lines[1], "QSET1") {
		t.Errorf("tags: %v", lines)
	}
	// Component 123 groups nodes 1-5 and 10; the run collapses to THRU.
	if !strings.Contains(lines[0], "THRU") {
		t.Errorf("run not collapsed: %q", lines[0])
	}
	fields := strings.Fields(lines[1])
	if fields[1] != "6" || fields[2] != "9" {
		t.Errorf("second component group: %v", fields)
	}
}

func TestOMIT_WriteTag(t *testing.T) {
	o := NewOMIT()
	c := field.NewCard([]string{"OMIT1", "1", "2", "3"})
	if _, err := o.AddSet1Card(c); err != nil {
		t.Fatal(err)
	}
	if err := o.ParseCards(); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := o.WriteFile(&buf, 8, false); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "OMIT1") {
		t.Errorf("tag: %q", buf.String())
	}
}

func TestSUPORT_AnonymousAndIdentified(t *testing.T) {
	s := NewSUPORT()
	c := field.NewCard([]string{"SUPORT", "10", "123", "11", "456"})
	if _, err := s.AddCard(c); err != nil {
		t.Fatal(err)
	}
	c = field.NewCard([]string{"SUPORT1", "5", "20", "3"})
	if _, err := s.AddSuport1Card(c); err != nil {
		t.Fatal(err)
	}
	if err := s.ParseCards(); err != nil {
		t.Fatal(err)
	}

	if s.Len() != 3 {
		t.Fatalf("rows %d", s.Len())
	}
	if s.SuportID[0] != 0 || s.SuportID[1] != 0 || s.SuportID[2] != 5 {
		t.Errorf("suport ids %v", s.SuportID)
	}

	var buf bytes.Buffer
	if err := s.WriteFile(&buf, 8, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "SUPORT1") {
		t.Errorf("SUPORT1 group missing: %q", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if !strings.HasPrefix(lines[0], "SUPORT ") {
		t.Errorf("anonymous group first: %v", lines)
	}
}

func TestSUPORT_RestartsTagEveryFourPairs(t *testing.T) {
	s := NewSUPORT()
	c := field.NewCard([]string{"SUPORT",
		"1", "1", "2", "2", "3", "3", "4", "4", "5", "5", "6", "6"})
	if _, err := s.AddCard(c); err != nil {
		t.Fatal(err)
	}
	if err := s.ParseCards(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.WriteFile(&buf, 8, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("six pairs want two cards, got %v", lines)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "SUPORT ") {
			t.Errorf("continuation instead of a fresh tag: %q", line)
		}
	}
}

func TestSUPORT1_RestartsTagEveryThreePairs(t *testing.T) {
	s := NewSUPORT()
	c := field.NewCard([]string{"SUPORT1", "9",
		"1", "1", "2", "2", "3", "3", "4", "4"})
	if _, err := s.AddSuport1Card(c); err != nil {
		t.Fatal(err)
	}
	if err := s.ParseCards(); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.WriteFile(&buf, 8, false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("four pairs want two cards, got %v", lines)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "SUPORT1 ") {
			t.Errorf("continuation instead of a fresh tag: %q", line)
		}
	}
}

func TestSET1_RaggedSliceAndSkin(t *testing.T) {
	s := NewSET1()
	c := field.NewCard([]string{"SET1", "31", "100", "THRU", "103"})
	if _, err := s.AddCard(c); err != nil {
		t.Fatal(err)
	}
	c = field.NewCard([]string{"SET1", "7", "SKIN", "500", "501"})
	if _, err := s.AddCard(c); err != nil {
		t.Fatal(err)
	}
	if err := s.ParseCards(); err != nil {
		t.Fatal(err)
	}
	s.Sort()

	if s.SetID[0] != 7 || !s.IsSkin[0] {
		t.Fatalf("sort lost the skin flag: ids %v skin %v", s.SetID, s.IsSkin)
	}
	// The ragged buffer follows its rows through the sort.
	if s.NumIDs[0] != 2 || s.IDs[0] != 500 {
		t.Fatalf("ragged after sort: counts %v flat %v", s.NumIDs, s.IDs)
	}

	sl := s.SliceBySetID(31)
	if sl.Len() != 1 || sl.NumIDs[0] != 4 || sl.IDs[3] != 103 {
		t.Fatalf("slice: counts %v flat %v", sl.NumIDs, sl.IDs)
	}

	t.Run("write_skin_token", func(t *testing.T) {
		var buf bytes.Buffer
		if err := s.WriteFile(&buf, 8, false); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		if !strings.Contains(lines[0], "SKIN") {
			t.Errorf("skin token lost: %q", lines[0])
		}
		if !strings.Contains(lines[1], "THRU") {
			t.Errorf("range not collapsed: %q", lines[1])
		}
	})
}

func TestSET1_GeomCheckSplitsUniverse(t *testing.T) {
	s := NewSET1()
	if _, err := s.Add(1, []int{10, 99}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(2, []int{500, 77}, true); err != nil {
		t.Fatal(err)
	}
	if err := s.ParseCards(); err != nil {
		t.Fatal(err)
	}
	missing := NewMissing()
	s.GeomCheck(missing, &testRefs{nodes: []int{10}, elements: []int{500}})

	if ids := missing.IDs("SET1.node_id"); len(ids) != 1 || ids[0] != 99 {
		t.Errorf("node misses %v", ids)
	}
	if ids := missing.IDs("SET1.element_id"); len(ids) != 1 || ids[0] != 77 {
		t.Errorf("element misses %v", ids)
	}
}
