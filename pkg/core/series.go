package core

// Series is an ordered (time, value) sequence. A raw series has one entry per
// scan and no padding. A normalized series has a fixed length, uniform spacing
// and PadLeft/PadRight zero entries (time and value both 0) around the
// observed region.
type Series struct {
	Times    []float64
	Values   []float64
	PadLeft  int
	PadRight int
}

// Len returns the number of entries.
func (s Series) Len() int {
	return len(s.Values)
}

// Observed returns the unpadded region of the series.
func (s Series) Observed() Series {
	end := len(s.Values) - s.PadRight
	if s.PadLeft > end {
		return Series{}
	}
	return Series{
		Times:  s.Times[s.PadLeft:end],
		Values: s.Values[s.PadLeft:end],
	}
}

// Record converts the series into the downstream record shape.
func (s Series) Record() SignalRecord {
	return SignalRecord{Counts: s.Values, RT: s.Times}
}

// SignalRecord is the per-target or per-TIC record handed to consumers.
type SignalRecord struct {
	Counts []float64 `json:"counts"`
	RT     []float64 `json:"rt"`
}
