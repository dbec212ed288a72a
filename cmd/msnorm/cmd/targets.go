package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/msnorm/pkg/chrom"
	"github.com/ChrisMcGann/msnorm/pkg/config"
	"github.com/ChrisMcGann/msnorm/pkg/core"
)

// loadTargetsCSV reads Name,Target rows after a header line. Target is an
// m/z value or a molecular formula.
func loadTargetsCSV(path string) ([]core.Target, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var result []core.Target
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields (Name,Target), got %d", lineNum, len(parts))
		}

		name := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if name == "" || value == "" {
			return nil, fmt.Errorf("line %d: empty name or target", lineNum)
		}
		if seen[name] {
			return nil, fmt.Errorf("line %d: duplicate target name '%s'", lineNum, name)
		}
		seen[name] = true

		t := core.Target{Name: name}
		if mz, err := strconv.ParseFloat(value, 64); err == nil {
			if mz <= 0 {
				return nil, fmt.Errorf("line %d: m/z must be positive, got %g", lineNum, mz)
			}
			t.Mz = mz
		} else {
			if _, err := core.FormulaMass(value); err != nil {
				return nil, fmt.Errorf("line %d: invalid target '%s': %w", lineNum, value, err)
			}
			t.Formula = value
		}
		result = append(result, t)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no targets in %s", path)
	}

	return result, nil
}

// targetQueries resolves targets to queries for polarity p.
func targetQueries(targets []core.Target, p core.Polarity, params *config.Params) ([]chrom.Query, error) {
	queries := make([]chrom.Query, len(targets))
	for i, t := range targets {
		mz, err := t.MzFor(p)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}
		queries[i] = newQuery(params, mz)
	}
	return queries, nil
}
