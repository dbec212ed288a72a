package core

import (
	"fmt"
	"strconv"
	"unicode"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.0078250321
	MassC  = 12.0000000000
	MassN  = 14.0030740052
	MassO  = 15.9949146221
	MassS  = 31.9720706900
	MassP  = 30.9737615100
	MassNa = 22.9897692820
	MassK  = 38.9637064864
	MassCl = 34.9688527300

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688
)

// ElementMasses maps element symbols to monoisotopic masses.
var ElementMasses = map[string]float64{
	"H":  MassH,
	"C":  MassC,
	"N":  MassN,
	"O":  MassO,
	"S":  MassS,
	"P":  MassP,
	"Na": MassNa,
	"K":  MassK,
	"Cl": MassCl,
}

// FormulaMass computes the monoisotopic neutral mass of a molecular formula
// such as "C6H12O6".
func FormulaMass(formula string) (float64, error) {
	if formula == "" {
		return 0, fmt.Errorf("empty formula")
	}

	runes := []rune(formula)
	mass := 0.0
	for i := 0; i < len(runes); {
		if !unicode.IsUpper(runes[i]) {
			return 0, fmt.Errorf("invalid formula '%s' at position %d", formula, i)
		}
		j := i + 1
		for j < len(runes) && unicode.IsLower(runes[j]) {
			j++
		}
		symbol := string(runes[i:j])

		k := j
		for k < len(runes) && unicode.IsDigit(runes[k]) {
			k++
		}
		count := 1
		if k > j {
			n, err := strconv.Atoi(string(runes[j:k]))
			if err != nil {
				return 0, fmt.Errorf("invalid count for %s in '%s': %w", symbol, formula, err)
			}
			count = n
		}

		m, ok := ElementMasses[symbol]
		if !ok {
			return 0, fmt.Errorf("unknown element '%s' in formula '%s'", symbol, formula)
		}
		mass += float64(count) * m
		i = k
	}
	return mass, nil
}

// Target is a named mass to extract. Either Mz is given directly, or Formula
// names a neutral molecule whose singly charged ion is used.
type Target struct {
	Name    string
	Mz      float64
	Formula string
}

// MzFor returns the m/z to search for under the given polarity:
// [M+H]+ for positive and [M-H]- for negative formula targets.
func (t Target) MzFor(p Polarity) (float64, error) {
	if t.Formula == "" {
		return t.Mz, nil
	}
	mass, err := FormulaMass(t.Formula)
	if err != nil {
		return 0, err
	}
	switch p {
	case Positive:
		return mass + ProtonMass, nil
	case Negative:
		return mass - ProtonMass, nil
	default:
		return 0, &InvalidModeError{Mode: p.String()}
	}
}
