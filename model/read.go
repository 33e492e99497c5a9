package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/LetterRay/bulkdata/cards"
	"github.com/LetterRay/bulkdata/field"
)

// ReadFile reads a deck from disk, stages its cards and commits them.
func (m *Model) ReadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := m.ReadBulkData(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return m.ParseCards()
}

// ReadBulkData stages every card of the bulk data section. Cards are
// committed by a later ParseCards call. Executive and case control
// lines before BEGIN BULK are skipped; reading stops at ENDDATA.
// Unknown card types are counted and rolled into one warning.
func (m *Model) ReadBulkData(r io.Reader) error {
	lines, err := bulkLines(r)
	if err != nil {
		return err
	}

	unknown := make(map[string]int)
	var card []string
	flush := func() error {
		if len(card) == 0 {
			return nil
		}
		// Fixed-line padding leaves trailing blanks; positional parsers
		// key off the real field count.
		for len(card) > 1 && strings.TrimSpace(card[len(card)-1]) == "" {
			card = card[:len(card)-1]
		}
		err := m.addCard(field.NewCard(card), unknown)
		card = nil
		return err
	}

	for _, line := range lines {
		if isContinuation(line) {
			if len(card) == 0 {
				return fmt.Errorf("continuation line with no open card: %q", line)
			}
			fields := tokenize(line)
			// Drop the continuation marker so positions stay
			// continuous across physical lines.
			card = append(card, fields[1:]...)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		card = tokenize(line)
		if len(card) > 0 {
			card[0] = strings.TrimSuffix(strings.TrimSpace(card[0]), "*")
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if len(unknown) > 0 {
		types := make([]string, 0, len(unknown))
		for name := range unknown {
			types = append(types, name)
		}
		sort.Strings(types)
		total := 0
		for _, n := range unknown {
			total += n
		}
		m.log.Warn("unsupported cards skipped",
			zap.Strings("types", types), zap.Int("count", total))
	}
	return nil
}

// bulkLines returns the cleaned bulk-section lines: comments stripped,
// blanks dropped, bounded by BEGIN BULK (if present) and ENDDATA.
func bulkLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	begin := -1
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '$'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		upper := strings.ToUpper(strings.TrimSpace(line))
		if strings.HasPrefix(upper, "BEGIN") && strings.Contains(upper, "BULK") {
			begin = len(lines)
			continue
		}
		if strings.HasPrefix(upper, "ENDDATA") {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if begin >= 0 {
		lines = lines[begin:]
	}
	return lines, nil
}

// isContinuation reports whether a physical line continues the open
// card: a +, * or comma marker, or a blank first column.
func isContinuation(line string) bool {
	switch line[0] {
	case '+', '*', ' ', '\t', ',':
		return true
	}
	return false
}

// tokenize splits one physical line into fields. Free-field lines
// split on commas; fixed lines slice 8-character columns, or
// 16-character columns when the tag carries the large-field *. Fixed
// lines always contribute their full field count (8 small, 4 large)
// so positions stay aligned when short lines precede a continuation;
// columns past 72 hold the trailing continuation marker and are
// dropped.
func tokenize(line string) []string {
	if strings.ContainsRune(line, ',') {
		return strings.Split(line, ",")
	}
	if len(line) > 72 {
		line = line[:72]
	}
	tag := line
	if len(line) > 8 {
		tag = line[:8]
	}
	width := 8
	nfields := 8
	if strings.HasSuffix(strings.TrimSpace(tag), "*") || line[0] == '*' {
		width = 16
		nfields = 4
	}
	fields := []string{tag}
	for k := 0; k < nfields; k++ {
		pos := 8 + k*width
		end := pos + width
		var f string
		if pos < len(line) {
			if end > len(line) {
				end = len(line)
			}
			f = line[pos:end]
		}
		fields = append(fields, f)
	}
	return fields
}

// addCard stages one logical card on its table. Unrecognized tags are
// tallied, not fatal.
func (m *Model) addCard(c *field.Card, unknown map[string]int) error {
	var err error
	switch name := c.Name(); name {
	case "GRID":
		_, err = m.Grid.AddCard(c)
	case "PLOTEL":
		_, err = m.Plotel.AddCard(c)
	case "CONM2":
		_, err = m.Conm2.AddCard(c)
	case "MAT1":
		_, err = m.Mat1.AddCard(c)
	case "SPC":
		_, err = m.Spc.AddCard(c)
	case "SPC1":
		_, err = m.Spc1.AddCard(c)
	case "SPCADD":
		_, err = m.SpcAdd.AddCard(c)
	case "MPC":
		_, err = m.Mpc.AddCard(c)
	case "MPCADD":
		_, err = m.MpcAdd.AddCard(c)
	case "FORCE":
		_, err = m.Force.AddCard(c)
	case "MOMENT":
		_, err = m.Moment.AddCard(c)
	case "GRAV":
		_, err = m.Grav.AddCard(c)
	case "SPCD":
		_, err = m.Spcd.AddCard(c)
	case "DEFORM":
		_, err = m.Deform.AddCard(c)
	case "LOAD":
		_, err = m.Load.AddCard(c)
	case "ASET":
		_, err = m.Aset.AddSetCard(c)
	case "ASET1":
		_, err = m.Aset.AddSet1Card(c)
	case "BSET":
		_, err = m.Bset.AddSetCard(c)
	case "BSET1":
		_, err = m.Bset.AddSet1Card(c)
	case "CSET":
		_, err = m.Cset.AddSetCard(c)
	case "CSET1":
		_, err = m.Cset.AddSet1Card(c)
	case "QSET":
		_, err = m.Qset.AddSetCard(c)
	case "QSET1":
		_, err = m.Qset.AddSet1Card(c)
	case "OMIT":
		_, err = m.Omit.AddSetCard(c)
	case "OMIT1":
		_, err = m.Omit.AddSet1Card(c)
	case "SUPORT":
		_, err = m.Suport.AddCard(c)
	case "SUPORT1":
		_, err = m.Suport.AddSuport1Card(c)
	case "SET1":
		_, err = m.Set1.AddCard(c)
	default:
		unknown[name]++
	}
	return err
}

var _ cards.Refs = (*Model)(nil)
