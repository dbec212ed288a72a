package core

import (
	"errors"
	"math"
	"testing"
)

func TestFormulaMass(t *testing.T) {
	tests := []struct {
		name      string
		formula   string
		wantMass  float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "glucose",
			formula:   "C6H12O6",
			wantMass:  180.063388,
			tolerance: 1e-5,
		},
		{
			name:      "water",
			formula:   "H2O",
			wantMass:  18.010565,
			tolerance: 1e-5,
		},
		{
			name:      "two letter element",
			formula:   "NaCl",
			wantMass:  MassNa + MassCl,
			tolerance: 1e-9,
		},
		{
			name:    "unknown element",
			formula: "C6Xx2",
			wantErr: true,
		},
		{
			name:    "lowercase start",
			formula: "c6h6",
			wantErr: true,
		},
		{
			name:    "empty",
			formula: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormulaMass(tt.formula)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FormulaMass() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if math.Abs(got-tt.wantMass) > tt.tolerance {
				t.Errorf("FormulaMass() = %.6f, want %.6f (within %g)", got, tt.wantMass, tt.tolerance)
			}
		})
	}
}

func TestTargetMzFor(t *testing.T) {
	glucose := Target{Name: "glucose", Formula: "C6H12O6"}

	pos, err := glucose.MzFor(Positive)
	if err != nil {
		t.Fatalf("MzFor(Positive) error: %v", err)
	}
	if math.Abs(pos-181.070665) > 1e-5 {
		t.Errorf("Expected [M+H]+ 181.070665, got %.6f", pos)
	}

	neg, err := glucose.MzFor(Negative)
	if err != nil {
		t.Fatalf("MzFor(Negative) error: %v", err)
	}
	if math.Abs(neg-179.056112) > 1e-5 {
		t.Errorf("Expected [M-H]- 179.056112, got %.6f", neg)
	}

	_, err = glucose.MzFor(PolarityUnknown)
	var modeErr *InvalidModeError
	if !errors.As(err, &modeErr) {
		t.Errorf("Expected InvalidModeError for unknown polarity, got %v", err)
	}

	direct := Target{Name: "direct", Mz: 200.5}
	mz, err := direct.MzFor(Negative)
	if err != nil || mz != 200.5 {
		t.Errorf("Expected direct m/z 200.5, got %v (err %v)", mz, err)
	}
}
