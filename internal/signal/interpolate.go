package signal

// Interpolate returns a table in which absent cells of numeric columns that
// lie between two known samples are filled linearly in time. Leading and
// trailing gaps stay absent, as do all cells of columns holding any
// non-numeric value.
func (t *Table) Interpolate() *Table {
	out := &Table{
		samples:    make([]Sample, len(t.samples)),
		columns:    t.Columns(),
		timeAsDate: t.timeAsDate,
	}
	for i, s := range t.samples {
		out.samples[i] = s.clone()
	}

	for _, col := range t.columns {
		if !t.numericColumn(col) {
			continue
		}
		prev := -1
		for i, s := range t.samples {
			if _, ok := s.Values[col]; !ok {
				continue
			}
			if prev >= 0 && i-prev > 1 {
				t.fillGap(out, col, prev, i)
			}
			prev = i
		}
	}
	return out
}

func (t *Table) numericColumn(col string) bool {
	for _, s := range t.samples {
		if v, ok := s.Values[col]; ok && v.Kind() != KindNumber {
			return false
		}
	}
	return true
}

// fillGap fills rows strictly between lo and hi.
func (t *Table) fillGap(out *Table, col string, lo, hi int) {
	x0, x1 := t.samples[lo].Offset, t.samples[hi].Offset
	y0, _ := t.samples[lo].Values[col].Float()
	y1, _ := t.samples[hi].Values[col].Float()
	for k := lo + 1; k < hi; k++ {
		y := y0
		if x1 > x0 {
			y = y0 + (y1-y0)*(t.samples[k].Offset-x0)/(x1-x0)
		}
		out.samples[k].Values[col] = Number(y)
	}
}
