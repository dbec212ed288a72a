// Package sqlite stores extracted chromatograms and scan records in SQLite
// run files.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/ChrisMcGann/msnorm/pkg/resample"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Date format for RunTable and HeaderTable (ISO 8601)
	headerDateFormat = time.RFC3339
)

// Chromatogram kinds
const (
	KindTIC = "TIC"
	KindXIC = "XIC"
)

// Run describes one input file processed with one resampling setup.
type Run struct {
	ID           string // generated when empty
	SourceFile   string
	ExperimentID string
	StartTime    string
	Resample     resample.Config
	ScanCount    int
}

// Chromatogram is one extracted signal of a run.
type Chromatogram struct {
	Kind         string // KindTIC or KindXIC
	Name         string
	TargetMz     float64
	PPM          float64
	PPMOffset    float64
	Polarity     core.Polarity
	Interpolated bool
	Series       core.Series
}

// Writer handles writing runs to SQLite database files. It is safe for
// concurrent use.
type Writer struct {
	mu        sync.Mutex
	db        *sql.DB
	runStmt   *sql.Stmt
	chromStmt *sql.Stmt
	scanStmt  *sql.Stmt
	chromCnt  int
	closed    bool
}

// NewWriter opens (or creates) outputPath and brings its schema up to date.
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers on one sqlite file.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	w := &Writer{db: db}
	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.runStmt, err = w.db.Prepare(`
		INSERT INTO RunTable (
			RunId, SourceFile, ExperimentId, StartTime, CreationDate,
			SeqLen, MaxTime, Step, ScanCount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare run statement: %w", err)
	}

	w.chromStmt, err = w.db.Prepare(`
		INSERT INTO ChromatogramTable (
			RunId, Kind, Name, TargetMz, PPM, PPMOffset, Polarity,
			Interpolated, PadLeft, PadRight, Length, blobRT, blobCounts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chromatogram statement: %w", err)
	}

	w.scanStmt, err = w.db.Prepare(`
		INSERT INTO ScanTable (
			RunId, Polarity, MSLevel, RetentionTime, PrecursorMass,
			CollisionEnergy, blobMass, blobIntensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare scan statement: %w", err)
	}

	return nil
}

// WriteRun inserts a run row and returns its id.
func (w *Writer) WriteRun(run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.runStmt.Exec(
		run.ID,
		run.SourceFile,
		run.ExperimentID,
		run.StartTime,
		time.Now().UTC().Format(headerDateFormat),
		run.Resample.SeqLen,
		run.Resample.MaxTime,
		run.Resample.Step,
		run.ScanCount,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run %s: %w", run.SourceFile, err)
	}
	return run.ID, nil
}

// WriteChromatogram stores c under runID.
func (w *Writer) WriteChromatogram(runID string, c Chromatogram) error {
	if c.Kind != KindTIC && c.Kind != KindXIC {
		return fmt.Errorf("unknown chromatogram kind %q", c.Kind)
	}

	// TIC rows carry no target
	var mz, ppm, offset interface{}
	if c.Kind == KindXIC {
		mz, ppm, offset = c.TargetMz, c.PPM, c.PPMOffset
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.chromStmt.Exec(
		runID,
		c.Kind,
		c.Name,
		mz,
		ppm,
		offset,
		c.Polarity.String(),
		c.Interpolated,
		c.Series.PadLeft,
		c.Series.PadRight,
		c.Series.Len(),
		encodeFloat64(c.Series.Times),
		encodeFloat64(c.Series.Values),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chromatogram %s: %w", c.Name, err)
	}
	w.chromCnt++
	return nil
}

// WriteScan stores one scan record under runID.
func (w *Writer) WriteScan(runID string, rec core.ScanRecord) error {
	// Handle optional precursor fields
	var prec, ce interface{}
	if rec.PrecursorMZ != nil {
		prec = *rec.PrecursorMZ
	}
	if rec.CollisionEnergy != nil {
		ce = *rec.CollisionEnergy
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.scanStmt.Exec(
		runID,
		rec.Mode,
		rec.Level,
		rec.RetentionTime,
		prec,
		ce,
		encodeFloat64(rec.MassArray),
		encodeFloat64(rec.IntensityArray),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan at rt %.3f: %w", rec.RetentionTime, err)
	}
	return nil
}

// encodeFloat64 encodes values as a little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeFloat64 reverses encodeFloat64.
func decodeFloat64(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, fmt.Errorf("blob of %d bytes is not a float64 array", len(blob))
	}
	values := make([]float64, len(blob)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return values, nil
}

// Finalize writes the header table and closes the database
func (w *Writer) Finalize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	now := time.Now().UTC().Format(headerDateFormat)
	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, SchemaVersion, now, now, fmt.Sprintf("%d chromatograms", w.chromCnt))
	if err != nil {
		w.db.Close()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	// Close prepared statements
	for _, stmt := range []*sql.Stmt{w.runStmt, w.chromStmt, w.scanStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
