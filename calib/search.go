/*
Copyright © 2026 the GWFIO authors.
This file is part of GWFIO.

GWFIO is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GWFIO is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GWFIO.  If not, see <http://www.gnu.org/licenses/>.
*/

package calib

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gwfio"
)

// Grids specifies the candidate values for each tunable parameter. The
// search evaluates the full Cartesian product of the grids. A nil (or
// empty) grid holds that parameter at its base value; this makes a
// fixed parameter an ordinary single-value grid, so the scoring logic
// never needs to special-case it.
type Grids struct {
	// DecayRates are candidate spatial decay coefficients k [1/m].
	DecayRates []float64

	// ShedRates are candidate per-person FIO shedding rates
	// [organisms/person/day].
	ShedRates []float64

	// Candidate containment efficiencies per facility category [0-1].
	SeweredEffs        []float64
	SepticEffs         []float64
	PitEffs            []float64
	OpenDefecationEffs []float64
}

// check validates every candidate value before any computation starts.
func (g *Grids) check() error {
	for _, k := range g.DecayRates {
		if k < 0 || math.IsNaN(k) {
			return gwfio.ConfigErrorf("candidate decay rate %g must not be negative", k)
		}
	}
	for _, e := range g.ShedRates {
		if e <= 0 || math.IsNaN(e) {
			return gwfio.ConfigErrorf("candidate shedding rate %g must be positive", e)
		}
	}
	for _, grid := range [][]float64{g.SeweredEffs, g.SepticEffs, g.PitEffs, g.OpenDefecationEffs} {
		for _, e := range grid {
			if e < 0 || e > 1 || math.IsNaN(e) {
				return gwfio.ConfigErrorf("candidate efficiency %g is outside the valid range [0,1]", e)
			}
		}
	}
	return nil
}

// orBase substitutes a single-value grid holding base for an
// unspecified grid.
func orBase(grid []float64, base float64) []float64 {
	if len(grid) == 0 {
		return []float64{base}
	}
	return grid
}

// vectors enumerates the Cartesian product of the grids, substituting
// base values for unspecified parameters. The enumeration order is
// deterministic: later grids vary fastest.
func (g *Grids) vectors(baseT gwfio.TransportConfig, baseEff gwfio.CategoryEfficiencies) []ParamVector {
	var out []ParamVector
	for _, k := range orBase(g.DecayRates, baseT.DecayRate) {
		for _, shed := range orBase(g.ShedRates, baseT.ShedRate) {
			for _, sew := range orBase(g.SeweredEffs, baseEff.Sewered) {
				for _, sep := range orBase(g.SepticEffs, baseEff.Septic) {
					for _, pit := range orBase(g.PitEffs, baseEff.Pit) {
						for _, od := range orBase(g.OpenDefecationEffs, baseEff.OpenDefecation) {
							eff := baseEff
							eff.Sewered = sew
							eff.Septic = sep
							eff.Pit = pit
							eff.OpenDefecation = od
							out = append(out, ParamVector{
								DecayRate:    k,
								ShedRate:     shed,
								Efficiencies: eff,
							})
						}
					}
				}
			}
		}
	}
	return out
}

// ParamVector is one point of the calibration parameter grid.
type ParamVector struct {
	// DecayRate is the spatial decay coefficient k [1/m].
	DecayRate float64

	// ShedRate is the per-person FIO shedding rate
	// [organisms/person/day].
	ShedRate float64

	// Efficiencies holds the per-category containment efficiencies.
	Efficiencies gwfio.CategoryEfficiencies
}

// RunRecord is the immutable result of evaluating one grid point.
type RunRecord struct {
	Params  ParamVector
	Metrics Metrics

	// Err is non-nil if the pipeline failed for this grid point.
	// A failed point is reported but does not abort the search.
	Err error
}

// scoreable reports whether the record can participate in
// best-selection: its run must have succeeded and at least one of its
// selection metrics must be defined.
func (r *RunRecord) scoreable() bool {
	if r.Err != nil || r.Metrics.N == 0 {
		return false
	}
	m := r.Metrics
	return !math.IsNaN(m.SpearmanRho) || !math.IsNaN(m.KendallTau) ||
		!math.IsNaN(m.PearsonLogR) || !math.IsNaN(m.RMSELog)
}

// Report is the result of a calibration search.
type Report struct {
	// Records holds one record per grid point, ranked best-first.
	Records []RunRecord

	// Best points at the best-by-trend record within Records, or is
	// nil if no grid point was scoreable.
	Best *RunRecord
}

// Searcher runs the transport pipeline once per point of a parameter
// grid and scores each run against observed receptor concentrations.
type Searcher struct {
	// Model supplies the base inventory, the receptors, the optional
	// scenario, and the base transport configuration. The search
	// never modifies it; each grid point derives its own inventory
	// and transport configuration from the base.
	Model *gwfio.Model

	// Observations maps receptor IDs to laboratory-measured
	// concentrations [CFU/100 mL]. If nil, the observations carried
	// by the model's receptors are used.
	Observations map[string]float64

	// DetectionThreshold is the concentration below which an
	// observation is treated as a non-detect and excluded from
	// matching [CFU/100 mL].
	DetectionThreshold float64

	// MinMatched is the minimum number of matched receptors required
	// to score a grid point; points with fewer matches get undefined
	// metrics. If zero, a minimum of 2 is used, the smallest set on
	// which correlation is defined.
	MinMatched int

	// Grids are the candidate parameter values.
	Grids Grids

	// Log receives progress information. If nil, the standard logger
	// is used.
	Log logrus.FieldLogger
}

func (s *Searcher) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// observations returns the observed-concentration table to calibrate
// against.
func (s *Searcher) observations() map[string]float64 {
	if s.Observations != nil {
		return s.Observations
	}
	obs := make(map[string]float64)
	for _, r := range s.Model.Receptors {
		if r.HasObservation() {
			obs[r.ID] = r.Observed
		}
	}
	return obs
}

// Search evaluates every grid point and returns the ranked report.
// Grid points are independent pure computations over the shared base
// tables, so they are evaluated concurrently; the ranking is a
// reduction over the complete record set and does not depend on
// completion order. A data-validation failure at one grid point is
// recorded on that point's record and does not abort the search.
func (s *Searcher) Search() (*Report, error) {
	if err := s.Grids.check(); err != nil {
		return nil, err
	}
	if s.DetectionThreshold < 0 || math.IsNaN(s.DetectionThreshold) {
		return nil, gwfio.ConfigErrorf("detection threshold %g must not be negative", s.DetectionThreshold)
	}
	minMatched := s.MinMatched
	if minMatched == 0 {
		minMatched = 2
	}

	obs := s.observations()
	points := s.Grids.vectors(s.Model.Transport, s.Model.Efficiencies)
	s.logger().WithFields(logrus.Fields{
		"gridPoints":   len(points),
		"observations": len(obs),
	}).Info("starting calibration search")

	records := make([]RunRecord, len(points))
	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for ii := pp; ii < len(points); ii += nprocs {
				records[ii] = s.evaluate(points[ii], obs, minMatched)
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()

	rank(records)
	report := &Report{Records: records}
	for i := range report.Records {
		if report.Records[i].scoreable() {
			report.Best = &report.Records[i]
			break
		}
	}

	f := logrus.Fields{"gridPoints": len(points)}
	if report.Best != nil {
		f["decayRate"] = report.Best.Params.DecayRate
		f["shedRate"] = report.Best.Params.ShedRate
		f["spearmanRho"] = report.Best.Metrics.SpearmanRho
	}
	s.logger().WithFields(f).Info("calibration search finished")
	return report, nil
}

// evaluate runs the pipeline for a single grid point.
func (s *Searcher) evaluate(p ParamVector, obs map[string]float64, minMatched int) RunRecord {
	rec := RunRecord{Params: p, Metrics: Compute(nil)}

	inv, err := s.Model.Inventory.WithCategoryEfficiencies(p.Efficiencies)
	if err != nil {
		rec.Err = err
		return rec
	}
	if s.Model.Scenario != nil {
		if inv, err = s.Model.Scenario.Apply(inv, p.Efficiencies); err != nil {
			rec.Err = err
			return rec
		}
	}
	tc := gwfio.TransportConfig{
		ShedRate:   p.ShedRate,
		DecayRate:  p.DecayRate,
		LinkRadius: s.Model.Transport.LinkRadius,
	}
	results, err := tc.Concentrations(inv, s.Model.Receptors)
	if err != nil {
		rec.Err = err
		return rec
	}

	pairs := MatchedPairs(results.Concentrations(), obs, s.DetectionThreshold)
	if len(pairs) < minMatched {
		rec.Metrics.N = len(pairs)
		return rec
	}
	rec.Metrics = Compute(pairs)
	return rec
}

// rank sorts records best-first by (Spearman rho descending, Kendall
// tau descending, Pearson-log r descending, RMSE-log ascending),
// lexicographically. An undefined (NaN) metric always loses to a
// defined one. The sort is stable, so records that tie on all four
// metrics keep their grid enumeration order and re-running the same
// grid yields an identical ranking.
func rank(records []RunRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Metrics, records[j].Metrics
		if c := cmpDesc(a.SpearmanRho, b.SpearmanRho); c != 0 {
			return c > 0
		}
		if c := cmpDesc(a.KendallTau, b.KendallTau); c != 0 {
			return c > 0
		}
		if c := cmpDesc(a.PearsonLogR, b.PearsonLogR); c != 0 {
			return c > 0
		}
		return cmpAsc(a.RMSELog, b.RMSELog) > 0
	})
}

// cmpDesc compares two metric values where higher is better and NaN
// always loses. It returns >0 if a ranks before b, <0 if b ranks before
// a, and 0 if they tie.
func cmpDesc(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// cmpAsc is like cmpDesc except that lower values are better; NaN
// still always loses.
func cmpAsc(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return 1
	case a > b:
		return -1
	default:
		return 0
	}
}
