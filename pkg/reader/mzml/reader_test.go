package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChrisMcGann/msnorm/internal/monitoring"
	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode64(t *testing.T, values []float64, compress bool) string {
	t.Helper()
	buf := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	if compress {
		var z bytes.Buffer
		w := zlib.NewWriter(&z)
		_, err := w.Write(buf)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		buf = z.Bytes()
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func encode32(values []float64) string {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func array(kind, width, compression, data string) string {
	return fmt.Sprintf(`<binaryDataArray encodedLength="%d">
  <cvParam cvRef="MS" accession="%s" name="float"/>
  <cvParam cvRef="MS" accession="%s" name="compression"/>
  <cvParam cvRef="MS" accession="%s" name="array"/>
  <binary>%s</binary>
</binaryDataArray>`, len(data), width, compression, kind, data)
}

func spectrumXML(index int, id, params, rt, precursors, arrays string) string {
	return fmt.Sprintf(`<spectrum index="%d" id="%s" defaultArrayLength="3">
  %s
  <scanList count="1"><scan>%s</scan></scanList>
  %s
  <binaryDataArrayList count="2">%s</binaryDataArrayList>
</spectrum>`, index, id, params, rt, precursors, arrays)
}

func document(spectra ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<indexedmzML xmlns="http://psi.hupo.org/ms/mzml">
<mzML xmlns="http://psi.hupo.org/ms/mzml" id="sample" version="1.1.0">
  <cvList count="1"><cv id="MS" fullName="PSI-MS"/></cvList>
  <run id="run1" startTimeStamp="2024-01-02T03:04:05Z">
    <spectrumList count="` + fmt.Sprint(len(spectra)) + `">
` + strings.Join(spectra, "\n") + `
    </spectrumList>
  </run>
</mzML>
<indexList count="0"/>
</indexedmzML>`
}

const (
	ms1       = `<cvParam cvRef="MS" accession="MS:1000511" name="ms level" value="1"/>`
	ms2       = `<cvParam cvRef="MS" accession="MS:1000511" name="ms level" value="2"/>`
	positive  = `<cvParam cvRef="MS" accession="MS:1000130" name="positive scan"/>`
	negative  = `<cvParam cvRef="MS" accession="MS:1000129" name="negative scan"/>`
	rtMinutes = `<cvParam cvRef="MS" accession="MS:1000016" name="scan start time" value="0.5" unitCvRef="UO" unitAccession="UO:0000031" unitName="minute"/>`
	rtSeconds = `<cvParam cvRef="MS" accession="MS:1000016" name="scan start time" value="42.5" unitCvRef="UO" unitAccession="UO:0000010" unitName="second"/>`

	hcdPrecursor = `<precursorList count="1"><precursor>
  <selectedIonList count="1"><selectedIon>
    <cvParam cvRef="MS" accession="MS:1000744" name="selected ion m/z" value="445.12"/>
  </selectedIon></selectedIonList>
  <activation>
    <cvParam cvRef="MS" accession="MS:1000422" name="beam-type collision-induced dissociation"/>
    <cvParam cvRef="MS" accession="MS:1000045" name="collision energy" value="30"/>
  </activation>
</precursor></precursorList>`

	isolationOnly = `<precursorList count="1"><precursor>
  <isolationWindow>
    <cvParam cvRef="MS" accession="MS:1000827" name="isolation window target m/z" value="300.5"/>
  </isolationWindow>
  <selectedIonList count="0"/>
  <activation/>
</precursor></precursorList>`
)

func sampleDocument(t *testing.T) string {
	mz := []float64{100.5, 200.25, 300.125}
	inty := []float64{10, 20, 30}

	return document(
		spectrumXML(0, "scan=1", ms1+positive, rtMinutes, "",
			array(cvMzArray, cvFloat64, cvZlib, encode64(t, mz, true))+
				array(cvIntArray, cvFloat64, cvZlib, encode64(t, inty, true))),
		spectrumXML(1, "scan=2", ms2+positive, rtMinutes, hcdPrecursor,
			array(cvMzArray, cvFloat64, cvNoCompress, encode64(t, mz, false))+
				array(cvIntArray, cvFloat64, cvNoCompress, encode64(t, inty, false))),
		spectrumXML(2, "scan=3", ms1+negative, rtSeconds, "",
			array(cvMzArray, cvFloat32, cvNoCompress, encode32([]float64{300, 100, 200}))+
				array(cvIntArray, cvFloat32, cvNoCompress, encode32([]float64{3, 1, 2}))),
		spectrumXML(3, "scan=4", ms2+negative, rtSeconds, isolationOnly,
			array(cvMzArray, cvFloat32, cvNoCompress, encode32(mz))+
				array(cvIntArray, cvFloat32, cvNoCompress, encode32(inty))),
	)
}

func TestRead(t *testing.T) {
	exp, err := Read(strings.NewReader(sampleDocument(t)), "sample.mzML")
	require.NoError(t, err)

	assert.Equal(t, "run1", exp.ID)
	assert.Equal(t, "2024-01-02T03:04:05Z", exp.StartTime)
	assert.Equal(t, "sample.mzML", exp.SourceFile)
	require.Len(t, exp.Scans, 4)

	s0 := exp.Scans[0]
	assert.Equal(t, "scan=1", s0.ID)
	assert.Equal(t, core.Positive, s0.Polarity)
	assert.Equal(t, 1, s0.Level)
	assert.InDelta(t, 30.0, s0.RetentionTime, 1e-12)
	assert.Equal(t, []float64{100.5, 200.25, 300.125}, s0.Masses)
	assert.Equal(t, []float64{10, 20, 30}, s0.Intensities)
	assert.Empty(t, s0.Precursors)

	s1 := exp.Scans[1]
	assert.Equal(t, 2, s1.Level)
	require.Len(t, s1.Precursors, 1)
	assert.Equal(t, 445.12, s1.Precursors[0].MZ)
	assert.Equal(t, []string{"HCD"}, s1.Precursors[0].ActivationMethods)
	assert.Equal(t, 30.0, s1.Precursors[0].ActivationEnergy)

	s2 := exp.Scans[2]
	assert.Equal(t, core.Negative, s2.Polarity)
	assert.InDelta(t, 42.5, s2.RetentionTime, 1e-12)
	// Peaks come back sorted by m/z with intensities carried along.
	assert.Equal(t, []float64{100, 200, 300}, s2.Masses)
	assert.Equal(t, []float64{1, 2, 3}, s2.Intensities)

	s3 := exp.Scans[3]
	require.Len(t, s3.Precursors, 1)
	assert.InDelta(t, 300.5, s3.Precursors[0].MZ, 1e-12)
	assert.Empty(t, s3.Precursors[0].ActivationMethods)
	assert.InDelta(t, 200.25, s3.Masses[1], 1e-4)
}

func TestReadFeedsRecords(t *testing.T) {
	exp, err := Read(strings.NewReader(sampleDocument(t)), "sample.mzML")
	require.NoError(t, err)

	records, err := core.ExtractScanRecords(exp)
	require.NoError(t, err)
	require.Len(t, records, 4)

	require.NotNil(t, records[1].PrecursorMZ)
	require.NotNil(t, records[1].CollisionEnergy)
	assert.Equal(t, 30.0, *records[1].CollisionEnergy)
	// No activation method, so no collision energy.
	assert.Nil(t, records[3].CollisionEnergy)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.mzML")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument(t)), 0o644))

	exp, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, exp.SourceFile)
	assert.Len(t, exp.Scans, 4)
}

// groupedDocument wraps spectra in a document that declares a survey-scan
// group and a 64-bit uncompressed array group.
func groupedDocument(spectra ...string) string {
	return strings.Replace(document(spectra...), "<run ", `<referenceableParamGroupList count="2">
    <referenceableParamGroup id="survey">`+ms1+positive+`</referenceableParamGroup>
    <referenceableParamGroup id="raw64">
      <cvParam cvRef="MS" accession="MS:1000523" name="64-bit float"/>
      <cvParam cvRef="MS" accession="MS:1000576" name="no compression"/>
    </referenceableParamGroup>
  </referenceableParamGroupList>
  <run `, 1)
}

func groupedArray(kind, data string) string {
	return fmt.Sprintf(`<binaryDataArray encodedLength="%d">
  <referenceableParamGroupRef ref="raw64"/>
  <cvParam cvRef="MS" accession="%s" name="array"/>
  <binary>%s</binary>
</binaryDataArray>`, len(data), kind, data)
}

func TestReadParamGroups(t *testing.T) {
	mz := []float64{100.5, 200.25, 300.125}
	inty := []float64{10, 20, 30}
	doc := groupedDocument(
		spectrumXML(0, "scan=1", `<referenceableParamGroupRef ref="survey"/>`, rtSeconds, "",
			groupedArray(cvMzArray, encode64(t, mz, false))+
				groupedArray(cvIntArray, encode64(t, inty, false))),
	)

	exp, err := Read(strings.NewReader(doc), "grouped.mzML")
	require.NoError(t, err)
	require.Len(t, exp.Scans, 1)

	sc := exp.Scans[0]
	assert.Equal(t, 1, sc.Level)
	assert.Equal(t, core.Positive, sc.Polarity)
	assert.Equal(t, mz, sc.Masses)
	assert.Equal(t, inty, sc.Intensities)
}

func TestReadWarnsWithoutPolarity(t *testing.T) {
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	defer monitoring.SetLogger(log.Printf)

	mz := encode32([]float64{1, 2, 3})
	doc := document(spectrumXML(0, "scan=1", ms1, rtSeconds, "",
		array(cvMzArray, cvFloat32, cvNoCompress, mz)+
			array(cvIntArray, cvFloat32, cvNoCompress, mz)))

	exp, err := Read(strings.NewReader(doc), "unsigned.mzML")
	require.NoError(t, err)
	assert.Equal(t, core.PolarityUnknown, exp.Scans[0].Polarity)
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "1 of 1 spectra in unsigned.mzML have no polarity")
}

func TestReadErrors(t *testing.T) {
	mz := encode32([]float64{1, 2, 3})

	tests := []struct {
		name    string
		doc     string
		wantErr error
		wantMsg string
	}{
		{
			name:    "no mzML element",
			doc:     `<?xml version="1.0"?><other/>`,
			wantErr: ErrNoContent,
		},
		{
			name:    "malformed xml",
			doc:     `<mzML><run>`,
			wantMsg: "XML syntax error",
		},
		{
			name: "numpress",
			doc: document(spectrumXML(0, "scan=1", ms1+positive, rtSeconds, "",
				array(cvMzArray, cvFloat64, "MS:1002312", mz)+
					array(cvIntArray, cvFloat32, cvNoCompress, mz))),
			wantErr: ErrUnsupportedCompression,
		},
		{
			name: "length mismatch",
			doc: document(spectrumXML(0, "scan=1", ms1+positive, rtSeconds, "",
				array(cvMzArray, cvFloat32, cvNoCompress, mz)+
					array(cvIntArray, cvFloat32, cvNoCompress, encode32([]float64{1, 2})))),
			wantMsg: "intensity array has 2",
		},
		{
			name: "missing retention time",
			doc: document(spectrumXML(0, "scan=1", ms1+positive, "", "",
				array(cvMzArray, cvFloat32, cvNoCompress, mz)+
					array(cvIntArray, cvFloat32, cvNoCompress, mz))),
			wantMsg: "no scan start time",
		},
		{
			name: "bad base64",
			doc: document(spectrumXML(0, "scan=1", ms1+positive, rtSeconds, "",
				array(cvMzArray, cvFloat32, cvNoCompress, "!!!")+
					array(cvIntArray, cvFloat32, cvNoCompress, mz))),
			wantMsg: "invalid base64",
		},
		{
			name: "unknown param group",
			doc: groupedDocument(spectrumXML(0, "scan=1", `<referenceableParamGroupRef ref="missing"/>`, rtSeconds, "",
				array(cvMzArray, cvFloat32, cvNoCompress, mz)+
					array(cvIntArray, cvFloat32, cvNoCompress, mz))),
			wantErr: ErrUnknownParamGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc), "bad.mzML")
			require.Error(t, err)

			var loadErr *core.DataLoadError
			require.True(t, errors.As(err, &loadErr), "got %T", err)
			assert.Equal(t, "bad.mzML", loadErr.Path)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.mzML"))

	var loadErr *core.DataLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
