package standards

import "math"

// WeightCheck is the outcome of comparing a member's reported weight against
// the tabulated per-foot weight of its designation.
type WeightCheck struct {
	Designation  string
	LengthFt     float64
	ExpectedLb   float64
	ActualLb     float64
	ToleranceLb  float64
	TolerancePct float64
	Within       bool
}

// VerifyWeight computes the expected weight of a beam or pipe of the given
// designation and length and checks the reported weight against a percentage
// tolerance band. tolPct <= 0 selects the code default. The boolean is false
// when the designation is not tabulated.
func (s *Store) VerifyWeight(designation string, lengthFt, actualLb, tolPct float64) (WeightCheck, bool) {
	rec, ok := s.Lookup(CategoryBeam, designation)
	if !ok {
		rec, ok = s.Lookup(CategoryPipe, designation)
	}
	if !ok {
		return WeightCheck{}, false
	}
	plf, ok := rec.Property("weight_plf")
	if !ok {
		return WeightCheck{}, false
	}
	if tolPct <= 0 {
		tolPct = s.limits.WeightTolerancePct
	}
	expected := plf * lengthFt
	tol := expected * tolPct / 100
	return WeightCheck{
		Designation:  rec.Designation,
		LengthFt:     lengthFt,
		ExpectedLb:   expected,
		ActualLb:     actualLb,
		ToleranceLb:  tol,
		TolerancePct: tolPct,
		Within:       math.Abs(actualLb-expected) <= tol,
	}, true
}
