package core

// ScanRecord is the per-scan record handed to downstream consumers.
type ScanRecord struct {
	MassArray       []float64 `json:"mz_array"`
	IntensityArray  []float64 `json:"inty_array"`
	RetentionTime   float64   `json:"rt"`
	Mode            string    `json:"mode"`
	Level           int       `json:"level"`
	PrecursorMZ     *float64  `json:"precursor"`
	CollisionEnergy *float64  `json:"collision_level"`
}

// ExtractScanRecords flattens an experiment into per-scan records, positive
// scans first and negative scans second, each group in acquisition order.
// Scans of unknown polarity are skipped. Precursor m/z and collision energy
// are reported for MS2 scans only; an MS2 scan without a precursor aborts
// extraction with a *MissingPrecursorError.
func ExtractScanRecords(exp *Experiment) ([]ScanRecord, error) {
	var records []ScanRecord
	for _, pol := range []Polarity{Positive, Negative} {
		for i := range exp.Scans {
			sc := &exp.Scans[i]
			if sc.Polarity != pol {
				continue
			}
			rec, err := scanRecord(sc, exp.SourceFile)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func scanRecord(sc *Scan, source string) (ScanRecord, error) {
	rec := ScanRecord{
		MassArray:      sc.Masses,
		IntensityArray: sc.Intensities,
		RetentionTime:  sc.RetentionTime,
		Mode:           sc.Polarity.String(),
		Level:          sc.Level,
	}
	if sc.Level != 2 {
		return rec, nil
	}
	if len(sc.Precursors) == 0 {
		return ScanRecord{}, &MissingPrecursorError{ScanID: sc.Name(), Source: source}
	}

	prec := sc.Precursors[0]
	mz := prec.MZ
	rec.PrecursorMZ = &mz
	if len(prec.ActivationMethods) > 0 {
		ce := prec.ActivationEnergy
		rec.CollisionEnergy = &ce
	}
	return rec, nil
}
