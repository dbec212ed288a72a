// Package mzml reads mzML and indexedmzML files into experiments.
package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/msnorm/internal/monitoring"
	"github.com/ChrisMcGann/msnorm/pkg/core"
	"golang.org/x/net/html/charset"
)

var (
	// ErrNoContent means the document has no <mzML> element.
	ErrNoContent = errors.New("mzml: no mzML element found")
	// ErrUnsupportedCompression means the arrays use MS-Numpress.
	ErrUnsupportedCompression = errors.New("mzml: unsupported compression")
	// ErrUnknownParamGroup means a referenceableParamGroupRef names no group.
	ErrUnknownParamGroup = errors.New("mzml: unknown referenceable param group")
)

// Load opens and reads an mzML file.
func Load(path string) (*core.Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.DataLoadError{Path: path, Err: err}
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses mzML content from r. source names the input in errors and
// ends up as the experiment's SourceFile. Every failure is returned as a
// *core.DataLoadError.
func Read(r io.Reader, source string) (*core.Experiment, error) {
	content, err := decode(r)
	if err != nil {
		return nil, &core.DataLoadError{Path: source, Err: err}
	}

	groups, err := paramGroups(content)
	if err != nil {
		return nil, &core.DataLoadError{Path: source, Err: err}
	}

	exp := &core.Experiment{
		ID:         content.Run.ID,
		StartTime:  content.Run.StartTimeStamp,
		SourceFile: source,
		Scans:      make([]core.Scan, 0, len(content.Run.SpectrumList.Spectrum)),
	}
	noPolarity := 0
	for i := range content.Run.SpectrumList.Spectrum {
		s := &content.Run.SpectrumList.Spectrum[i]
		if err := groups.resolveSpectrum(s); err != nil {
			return nil, &core.DataLoadError{Path: source, Err: err}
		}
		sc, err := convertSpectrum(s)
		if err != nil {
			return nil, &core.DataLoadError{Path: source, Err: err}
		}
		if sc.Polarity == core.PolarityUnknown {
			noPolarity++
		}
		exp.Scans = append(exp.Scans, sc)
	}
	if noPolarity > 0 {
		monitoring.Logf("Warning: %d of %d spectra in %s have no polarity", noPolarity, len(exp.Scans), source)
	}
	monitoring.Debugf("mzml: read %d spectra from %s", len(exp.Scans), source)
	return exp, nil
}

// groupIndex maps referenceableParamGroup ids to their CV terms.
type groupIndex map[string][]CVParam

func paramGroups(content *mzMLContent) (groupIndex, error) {
	groups := groupIndex{}
	for _, list := range content.ParamGroups {
		for _, g := range list.Group {
			if _, dup := groups[g.ID]; dup {
				return nil, fmt.Errorf("duplicate referenceable param group %q", g.ID)
			}
			groups[g.ID] = g.CvPar
		}
	}
	return groups, nil
}

// expand appends the terms of every referenced group to params.
func (g groupIndex) expand(params []CVParam, refs []paramGroupRef) ([]CVParam, error) {
	for _, ref := range refs {
		terms, ok := g[ref.Ref]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownParamGroup, ref.Ref)
		}
		params = append(params, terms...)
	}
	return params, nil
}

// resolveSpectrum inlines group references on every element convertSpectrum
// reads terms from.
func (g groupIndex) resolveSpectrum(s *spectrum) (err error) {
	if s.CvPar, err = g.expand(s.CvPar, s.GroupRef); err != nil {
		return fmt.Errorf("spectrum %s: %w", s.ID, err)
	}
	for i := range s.ScanList.Scan {
		sc := &s.ScanList.Scan[i]
		if sc.CvPar, err = g.expand(sc.CvPar, sc.GroupRef); err != nil {
			return fmt.Errorf("spectrum %s: %w", s.ID, err)
		}
	}
	for i := range s.PrecursorList {
		for j := range s.PrecursorList[i].Precursor {
			p := &s.PrecursorList[i].Precursor[j]
			if p.IsolationWindow.CvPar, err = g.expand(p.IsolationWindow.CvPar, p.IsolationWindow.GroupRef); err != nil {
				return fmt.Errorf("spectrum %s: %w", s.ID, err)
			}
			if p.Activation.CvPar, err = g.expand(p.Activation.CvPar, p.Activation.GroupRef); err != nil {
				return fmt.Errorf("spectrum %s: %w", s.ID, err)
			}
			for k := range p.SelectedIonList.SelectedIon {
				ion := &p.SelectedIonList.SelectedIon[k]
				if ion.CvPar, err = g.expand(ion.CvPar, ion.GroupRef); err != nil {
					return fmt.Errorf("spectrum %s: %w", s.ID, err)
				}
			}
		}
	}
	for i := range s.BinaryDataArrayList.BinaryDataArray {
		b := &s.BinaryDataArrayList.BinaryDataArray[i]
		if b.CvPar, err = g.expand(b.CvPar, b.GroupRef); err != nil {
			return fmt.Errorf("spectrum %s: %w", s.ID, err)
		}
	}
	return nil
}

// decode skips an indexedmzML wrapper and anything else outside <mzML>.
func decode(r io.Reader) (*mzMLContent, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel

	for {
		t, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return nil, ErrNoContent
			}
			return nil, err
		}
		if se, ok := t.(xml.StartElement); ok && se.Name.Local == "mzML" {
			var content mzMLContent
			if err := d.DecodeElement(&content, &se); err != nil {
				return nil, err
			}
			return &content, nil
		}
	}
}

func convertSpectrum(s *spectrum) (core.Scan, error) {
	sc := core.Scan{
		ID:    s.ID,
		Index: s.Index,
		Level: 1, // If nothing else, guess it's MS1
	}

	if p, ok := find(s.CvPar, cvMSLevel); ok {
		level, err := strconv.Atoi(strings.TrimSpace(p.Value))
		if err != nil {
			return sc, fmt.Errorf("spectrum %s: invalid ms level %q: %w", s.ID, p.Value, err)
		}
		sc.Level = level
	}

	switch {
	case hasTerm(s.CvPar, cvPositiveScan):
		sc.Polarity = core.Positive
	case hasTerm(s.CvPar, cvNegativeScan):
		sc.Polarity = core.Negative
	}

	rt, err := retentionTime(s)
	if err != nil {
		return sc, err
	}
	sc.RetentionTime = rt

	for _, pl := range s.PrecursorList {
		for i := range pl.Precursor {
			prec, ok, err := convertPrecursor(&pl.Precursor[i])
			if err != nil {
				return sc, fmt.Errorf("spectrum %s: %w", s.ID, err)
			}
			if ok {
				sc.Precursors = append(sc.Precursors, prec)
			}
		}
	}

	if err := readArrays(s, &sc); err != nil {
		return sc, fmt.Errorf("spectrum %s: %w", s.ID, err)
	}
	sc.SortPeaks()
	return sc, nil
}

func hasTerm(params []CVParam, accession string) bool {
	_, ok := find(params, accession)
	return ok
}

// retentionTime returns the scan start time in seconds.
func retentionTime(s *spectrum) (float64, error) {
	for _, scan := range s.ScanList.Scan {
		p, ok := find(scan.CvPar, cvScanStartTime)
		if !ok {
			continue
		}
		rt, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
		if err != nil {
			return 0, fmt.Errorf("spectrum %s: invalid scan start time %q: %w", s.ID, p.Value, err)
		}
		// Check if the retention time is in minutes, otherwise assume it's seconds
		if p.UnitAccession == unitMinute || p.UnitAccession == unitMinuteMS {
			rt *= 60
		}
		return rt, nil
	}
	return 0, fmt.Errorf("spectrum %s has no scan start time", s.ID)
}

// convertPrecursor reads the selected ion m/z, falling back to the
// isolation window target. ok is false when neither is present.
func convertPrecursor(x *xmlPrecursor) (core.Precursor, bool, error) {
	var prec core.Precursor

	var mzParam CVParam
	found := false
	for _, ion := range x.SelectedIonList.SelectedIon {
		if p, ok := find(ion.CvPar, cvSelectedIonMz); ok {
			mzParam, found = p, true
			break
		}
	}
	if !found {
		mzParam, found = find(x.IsolationWindow.CvPar, cvIsolationTargetMz)
	}
	if !found {
		return prec, false, nil
	}
	mz, err := strconv.ParseFloat(strings.TrimSpace(mzParam.Value), 64)
	if err != nil {
		return prec, false, fmt.Errorf("invalid precursor m/z %q: %w", mzParam.Value, err)
	}
	prec.MZ = mz

	for _, p := range x.Activation.CvPar {
		if p.Accession == cvCollisionEnergy {
			ce, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
			if err != nil {
				return prec, false, fmt.Errorf("invalid collision energy %q: %w", p.Value, err)
			}
			prec.ActivationEnergy = ce
			continue
		}
		if name, ok := activationMethods[p.Accession]; ok {
			prec.ActivationMethods = append(prec.ActivationMethods, name)
		}
	}
	return prec, true, nil
}

// arrayPars holds the decoded CV terms of one binaryDataArray.
type arrayPars struct {
	zlib      bool
	bits64    bool
	mzArray   bool
	intensity bool
}

// binaryDataPars decodes the CV terms in a binaryDataArray. Arrays default
// to uncompressed 32-bit floats.
func binaryDataPars(b *binaryDataArray) (arrayPars, error) {
	var pars arrayPars
	for _, p := range b.CvPar {
		switch p.Accession {
		case cvZlib:
			pars.zlib = true
		case cvNoCompress:
			pars.zlib = false
		case cvFloat64:
			pars.bits64 = true
		case cvFloat32:
			pars.bits64 = false
		case cvMzArray:
			pars.mzArray = true
		case cvIntArray:
			pars.intensity = true
		default:
			if numpress[p.Accession] {
				return pars, fmt.Errorf("%w (CV term %s)", ErrUnsupportedCompression, p.Accession)
			}
		}
	}
	return pars, nil
}

func readArrays(s *spectrum, sc *core.Scan) error {
	var haveMz, haveInt bool
	for i := range s.BinaryDataArrayList.BinaryDataArray {
		b := &s.BinaryDataArrayList.BinaryDataArray[i]
		pars, err := binaryDataPars(b)
		if err != nil {
			return err
		}
		// We are only interested in m/z and intensity
		if !pars.mzArray && !pars.intensity {
			continue
		}
		values, err := decodeArray(b.Binary, pars)
		if err != nil {
			return err
		}
		if pars.mzArray {
			sc.Masses, haveMz = values, true
		} else {
			sc.Intensities, haveInt = values, true
		}
	}

	if !haveMz && !haveInt {
		if s.DefaultArrayLength > 0 {
			return fmt.Errorf("expected %d peaks but no m/z or intensity array", s.DefaultArrayLength)
		}
		return nil
	}
	if len(sc.Masses) != len(sc.Intensities) {
		return fmt.Errorf("m/z array has %d values but intensity array has %d",
			len(sc.Masses), len(sc.Intensities))
	}
	return nil
}

// decodeArray base64-decodes, optionally inflates, and converts
// little-endian floats.
func decodeArray(encoded string, pars arrayPars) ([]float64, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 array: %w", err)
	}
	if pars.zlib && len(data) > 0 {
		z, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("invalid zlib array: %w", err)
		}
		defer z.Close()
		if data, err = io.ReadAll(z); err != nil {
			return nil, fmt.Errorf("invalid zlib array: %w", err)
		}
	}

	width := 4
	if pars.bits64 {
		width = 8
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("array of %d bytes is not a multiple of %d", len(data), width)
	}

	cnt := len(data) / width
	values := make([]float64, cnt)
	for i := 0; i < cnt; i++ {
		if pars.bits64 {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		} else {
			values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
		}
	}
	return values, nil
}
