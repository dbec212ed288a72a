package mzml

import "encoding/xml"

// The subset of the mzML schema needed to build scans. Everything else in
// the document is skipped by the decoder.
type mzMLContent struct {
	XMLName     xml.Name         `xml:"mzML"`
	ID          string           `xml:"id,attr,omitempty"`
	ParamGroups []paramGroupList `xml:"referenceableParamGroupList"`
	Run         run              `xml:"run"`
}

type paramGroupList struct {
	Group []paramGroup `xml:"referenceableParamGroup"`
}

// paramGroup is a named set of CV terms that elements pull in through
// <referenceableParamGroupRef ref="..."/>.
type paramGroup struct {
	ID    string    `xml:"id,attr"`
	CvPar []CVParam `xml:"cvParam"`
}

type paramGroupRef struct {
	Ref string `xml:"ref,attr"`
}

type run struct {
	ID             string       `xml:"id,attr,omitempty"`
	StartTimeStamp string       `xml:"startTimeStamp,attr,omitempty"`
	SpectrumList   spectrumList `xml:"spectrumList"`
}

type spectrumList struct {
	Count    int        `xml:"count,attr,omitempty"`
	Spectrum []spectrum `xml:"spectrum"`
}

type spectrum struct {
	Index               int                 `xml:"index,attr"`
	ID                  string              `xml:"id,attr"`
	DefaultArrayLength  int                 `xml:"defaultArrayLength,attr"`
	GroupRef            []paramGroupRef     `xml:"referenceableParamGroupRef"`
	CvPar               []CVParam           `xml:"cvParam"`
	ScanList            scanList            `xml:"scanList"`
	PrecursorList       []precursorList     `xml:"precursorList"`
	BinaryDataArrayList binaryDataArrayList `xml:"binaryDataArrayList"`
}

type scanList struct {
	Scan []scan `xml:"scan"`
}

type scan struct {
	GroupRef []paramGroupRef `xml:"referenceableParamGroupRef"`
	CvPar    []CVParam       `xml:"cvParam"`
}

type precursorList struct {
	Precursor []xmlPrecursor `xml:"precursor"`
}

type xmlPrecursor struct {
	SpectrumRef     string          `xml:"spectrumRef,attr,omitempty"`
	IsolationWindow isolationWindow `xml:"isolationWindow"`
	SelectedIonList selectedIonList `xml:"selectedIonList"`
	Activation      activation      `xml:"activation"`
}

type isolationWindow struct {
	GroupRef []paramGroupRef `xml:"referenceableParamGroupRef"`
	CvPar    []CVParam       `xml:"cvParam"`
}

type selectedIonList struct {
	SelectedIon []selectedIon `xml:"selectedIon"`
}

type selectedIon struct {
	GroupRef []paramGroupRef `xml:"referenceableParamGroupRef"`
	CvPar    []CVParam       `xml:"cvParam"`
}

type activation struct {
	GroupRef []paramGroupRef `xml:"referenceableParamGroupRef"`
	CvPar    []CVParam       `xml:"cvParam"`
}

type binaryDataArrayList struct {
	BinaryDataArray []binaryDataArray `xml:"binaryDataArray"`
}

type binaryDataArray struct {
	EncodedLength int             `xml:"encodedLength,attr,omitempty"`
	ArrayLength   int             `xml:"arrayLength,attr,omitempty"`
	GroupRef      []paramGroupRef `xml:"referenceableParamGroupRef"`
	CvPar         []CVParam       `xml:"cvParam"`
	Binary        string          `xml:"binary"`
}

// CVParam contains values and attributes of a mzML controlled vocabulary term.
type CVParam struct {
	Accession     string `xml:"accession,attr,omitempty"`
	Name          string `xml:"name,attr,omitempty"`
	Value         string `xml:"value,attr,omitempty"`
	UnitCvRef     string `xml:"unitCvRef,attr,omitempty"`
	UnitAccession string `xml:"unitAccession,attr,omitempty"`
	UnitName      string `xml:"unitName,attr,omitempty"`
}

// find returns the first term with the given accession.
func find(params []CVParam, accession string) (CVParam, bool) {
	for _, p := range params {
		if p.Accession == accession {
			return p, true
		}
	}
	return CVParam{}, false
}

// CV accessions
const (
	cvMSLevel           = "MS:1000511"
	cvPositiveScan      = "MS:1000130"
	cvNegativeScan      = "MS:1000129"
	cvScanStartTime     = "MS:1000016"
	cvSelectedIonMz     = "MS:1000744"
	cvIsolationTargetMz = "MS:1000827"
	cvCollisionEnergy   = "MS:1000045"

	cvZlib       = "MS:1000574"
	cvNoCompress = "MS:1000576"
	cvFloat32    = "MS:1000521"
	cvFloat64    = "MS:1000523"
	cvMzArray    = "MS:1000514"
	cvIntArray   = "MS:1000515"

	unitMinute   = "UO:0000031"
	unitMinuteMS = "MS:1000038"
)

// Dissociation methods recognised inside <activation>.
var activationMethods = map[string]string{
	"MS:1000133": "CID",
	"MS:1000422": "HCD",
	"MS:1000598": "ETD",
	"MS:1000250": "ECD",
	"MS:1000435": "MPD",
	"MS:1002631": "EThcD",
	"MS:1003246": "UVPD",
}

// MS-Numpress compression terms, which are not supported.
var numpress = map[string]bool{
	"MS:1002312": true,
	"MS:1002313": true,
	"MS:1002314": true,
	"MS:1002746": true,
	"MS:1002747": true,
	"MS:1002748": true,
}
