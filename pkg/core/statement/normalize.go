package statement

// Normalize indexes a raw table by (cleaned label, cleaned period).
//
// Rows with an empty label are dropped and repeated labels keep their first
// occurrence; the same keep-first rule applies to repeated period columns.
// Cells beyond the header width are ignored, absent cells are missing.
func Normalize(t RawTable, kind Kind) *Statement {
	s := newStatement(kind)
	if len(t) == 0 {
		return s
	}

	// column index -> period, only for the first column carrying each label
	header := t[0]
	cols := make(map[int]string)
	seenPeriod := make(map[string]struct{})
	for j := 1; j < len(header); j++ {
		p := CleanLabel(header[j])
		if p == "" {
			continue
		}
		if _, dup := seenPeriod[p]; dup {
			continue
		}
		seenPeriod[p] = struct{}{}
		cols[j] = p
		s.periods = append(s.periods, p)
	}

	for _, row := range t[1:] {
		if len(row) == 0 {
			continue
		}
		label := CleanLabel(row[0])
		if label == "" || s.HasLabel(label) {
			continue
		}
		s.hasRow[label] = struct{}{}
		s.labels = append(s.labels, label)

		for j, p := range cols {
			if j >= len(row) {
				continue
			}
			if v, ok := ParseNumber(row[j]); ok {
				s.cells[cellKey{label: label, period: p}] = v
			}
		}
	}
	return s
}

// ToRawTable renders the statement back into the raw grid shape. Missing
// cells become empty strings, so Normalize(s.ToRawTable(), s.Kind) reproduces s.
func (s *Statement) ToRawTable() RawTable {
	t := make(RawTable, 0, len(s.labels)+1)

	header := make([]string, 0, len(s.periods)+1)
	header = append(header, "")
	header = append(header, s.periods...)
	t = append(t, header)

	for _, label := range s.labels {
		row := make([]string, 0, len(s.periods)+1)
		row = append(row, label)
		for _, p := range s.periods {
			if v, ok := s.Value(label, p); ok {
				row = append(row, FormatNumber(v))
			} else {
				row = append(row, "")
			}
		}
		t = append(t, row)
	}
	return t
}

// dataRows counts the rows below the header.
func (t RawTable) dataRows() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// labelSet returns the cleaned first-column labels of the data rows.
func (t RawTable) labelSet() map[string]struct{} {
	set := make(map[string]struct{}, t.dataRows())
	for i := 1; i < len(t); i++ {
		if len(t[i]) == 0 {
			continue
		}
		set[CleanLabel(t[i][0])] = struct{}{}
	}
	return set
}
