package sqlite

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/ChrisMcGann/msnorm/pkg/core"
)

// RunSummary counts what a run file holds for one run.
type RunSummary struct {
	ID           string
	SourceFile   string
	CreationDate string
	SeqLen       int
	ScanCount    int
	TICs         int
	XICs         int
	StoredScans  int
}

// Summary describes a run file.
type Summary struct {
	SchemaVersion uint
	Runs          []RunSummary
}

// StoredChromatogram is a chromatogram read back from a run file.
type StoredChromatogram struct {
	Chromatogram
	RunID string
}

// Reader reads run files written by Writer.
type Reader struct {
	db *sql.DB
}

// Open opens an existing run file read-only.
func Open(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Reader{db: db}, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Summarize counts runs, chromatograms and stored scans.
func (r *Reader) Summarize() (Summary, error) {
	var s Summary
	version, dirty, err := r.version()
	if err != nil {
		return s, err
	}
	if dirty {
		return s, fmt.Errorf("schema version %d is dirty", version)
	}
	s.SchemaVersion = version

	rows, err := r.db.Query(`
		SELECT r.RunId, r.SourceFile, r.CreationDate, r.SeqLen, r.ScanCount,
			(SELECT COUNT(*) FROM ChromatogramTable c WHERE c.RunId = r.RunId AND c.Kind = ?),
			(SELECT COUNT(*) FROM ChromatogramTable c WHERE c.RunId = r.RunId AND c.Kind = ?),
			(SELECT COUNT(*) FROM ScanTable s WHERE s.RunId = r.RunId)
		FROM RunTable r
		ORDER BY r.CreationDate, r.SourceFile
	`, KindTIC, KindXIC)
	if err != nil {
		return s, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.ID, &rs.SourceFile, &rs.CreationDate, &rs.SeqLen,
			&rs.ScanCount, &rs.TICs, &rs.XICs, &rs.StoredScans); err != nil {
			return s, fmt.Errorf("failed to read run: %w", err)
		}
		s.Runs = append(s.Runs, rs)
	}
	return s, rows.Err()
}

// version reads the migration table directly since the file is read-only.
func (r *Reader) version() (uint, bool, error) {
	var version uint
	var dirty bool
	err := r.db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// Chromatograms returns the chromatograms stored for runID in insertion
// order.
func (r *Reader) Chromatograms(runID string) ([]StoredChromatogram, error) {
	rows, err := r.db.Query(`
		SELECT Kind, Name, TargetMz, PPM, PPMOffset, Polarity, Interpolated,
			PadLeft, PadRight, blobRT, blobCounts
		FROM ChromatogramTable
		WHERE RunId = ?
		ORDER BY ChromatogramId
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromatograms: %w", err)
	}
	defer rows.Close()

	var out []StoredChromatogram
	for rows.Next() {
		var (
			c                  StoredChromatogram
			name               sql.NullString
			mz, ppm, offset    sql.NullFloat64
			polarity           string
			rtBlob, countsBlob []byte
		)
		if err := rows.Scan(&c.Kind, &name, &mz, &ppm, &offset, &polarity, &c.Interpolated,
			&c.Series.PadLeft, &c.Series.PadRight, &rtBlob, &countsBlob); err != nil {
			return nil, fmt.Errorf("failed to read chromatogram: %w", err)
		}
		c.RunID = runID
		c.Name = name.String
		c.TargetMz, c.PPM, c.PPMOffset = mz.Float64, ppm.Float64, offset.Float64

		if c.Polarity, err = core.ParseMode(polarity); err != nil {
			return nil, fmt.Errorf("chromatogram %s: %w", c.Name, err)
		}
		if c.Series.Times, err = decodeFloat64(rtBlob); err != nil {
			return nil, fmt.Errorf("chromatogram %s: %w", c.Name, err)
		}
		if c.Series.Values, err = decodeFloat64(countsBlob); err != nil {
			return nil, fmt.Errorf("chromatogram %s: %w", c.Name, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
