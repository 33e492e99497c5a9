package model

import (
	"bufio"
	"io"
	"os"
)

// WriteBulkData writes the committed model back as deck text in
// section order. size selects the nominal field width (8 or 16); each
// table still promotes itself when its ids overflow the small format.
// isDouble requests double-precision large-field floats and implies
// size 16.
func (m *Model) WriteBulkData(w io.Writer, size int, isDouble, enddata bool) error {
	if isDouble {
		size = 16
	}
	if size != 8 && size != 16 {
		size = 8
	}
	bw := bufio.NewWriter(w)
	if _, err := io.WriteString(bw, "BEGIN BULK\n"); err != nil {
		return err
	}
	for _, t := range m.tables() {
		if err := t.WriteFile(bw, size, isDouble); err != nil {
			return err
		}
	}
	if enddata {
		if _, err := io.WriteString(bw, "ENDDATA\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the deck to disk with a trailing ENDDATA.
func (m *Model) WriteFile(path string, size int, isDouble bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.WriteBulkData(f, size, isDouble, true); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
