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

// Package calib chooses transport and efficiency parameters for the
// GWFIO model by scoring pipeline runs over a discrete parameter grid
// against observed receptor concentrations.
package calib

import (
	"math"
	"sort"

	"github.com/GaryBoone/GoStats/stats"
	"gonum.org/v1/gonum/stat"
)

// logFloor is the smallest concentration allowed into log10 transforms
// [CFU/100 mL]; smaller (or zero) values are clipped to it so that the
// logarithm stays defined.
const logFloor = 1.e-9

// Pair is one receptor with both a predicted and an observed
// concentration [CFU/100 mL].
type Pair struct {
	ID                  string
	Predicted, Observed float64
}

// MatchedPairs joins predicted and observed concentrations on receptor
// ID, keeping only receptors where the observation exceeds
// detectionThreshold. Observations at or below the threshold are
// non-detects and carry no usable rank information. The result is
// sorted by receptor ID so that downstream computations are
// deterministic regardless of map iteration order.
func MatchedPairs(predicted, observed map[string]float64, detectionThreshold float64) []Pair {
	var pairs []Pair
	for id, obs := range observed {
		if math.IsNaN(obs) || obs <= detectionThreshold {
			continue
		}
		pred, ok := predicted[id]
		if !ok || math.IsNaN(pred) {
			continue
		}
		pairs = append(pairs, Pair{ID: id, Predicted: pred, Observed: obs})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })
	return pairs
}

// Metrics holds the scores for one calibration run. The rank and
// correlation metrics are NaN when they are undefined, i.e. when the
// matched set has fewer than two pairs or either series has fewer than
// two distinct values; an undefined metric never causes a run to be
// selected as best.
type Metrics struct {
	// N is the number of matched receptors.
	N int

	// SpearmanRho is the Spearman rank correlation between predicted
	// and observed concentrations (primary selection metric).
	SpearmanRho float64

	// KendallTau is the Kendall rank correlation (first tie-break).
	KendallTau float64

	// PearsonLogR is the Pearson correlation of the log10-transformed
	// concentrations (second tie-break).
	PearsonLogR float64

	// RMSELog is the root-mean-square error of the log10-transformed
	// concentrations (final tie-break; lower is better).
	RMSELog float64

	// Slope, Intercept, and RSquared summarize the linear regression
	// of log10 observed on log10 predicted, for reporting.
	Slope, Intercept, RSquared float64
}

// Compute calculates the calibration metrics for a matched set.
func Compute(pairs []Pair) Metrics {
	m := Metrics{
		N:           len(pairs),
		SpearmanRho: math.NaN(),
		KendallTau:  math.NaN(),
		PearsonLogR: math.NaN(),
		RMSELog:     math.NaN(),
		Slope:       math.NaN(),
		Intercept:   math.NaN(),
		RSquared:    math.NaN(),
	}
	if len(pairs) == 0 {
		return m
	}

	pred := make([]float64, len(pairs))
	obs := make([]float64, len(pairs))
	logPred := make([]float64, len(pairs))
	logObs := make([]float64, len(pairs))
	for i, p := range pairs {
		pred[i] = p.Predicted
		obs[i] = p.Observed
		logPred[i] = log10Clip(p.Predicted)
		logObs[i] = log10Clip(p.Observed)
	}

	var sse float64
	for i := range logPred {
		d := logPred[i] - logObs[i]
		sse += d * d
	}
	m.RMSELog = math.Sqrt(sse / float64(len(logPred)))

	if !hasVariation(pred) || !hasVariation(obs) {
		return m
	}
	m.SpearmanRho = stat.Correlation(ranks(pred), ranks(obs), nil)
	m.KendallTau = stat.Kendall(pred, obs, nil)
	if hasVariation(logPred) && hasVariation(logObs) {
		m.PearsonLogR = stat.Correlation(logPred, logObs, nil)
		m.Slope, m.Intercept, m.RSquared, _, _, _ = stats.LinearRegression(logPred, logObs)
	}
	return m
}

// log10Clip returns log10 of v clipped below to logFloor.
func log10Clip(v float64) float64 {
	if v < logFloor {
		v = logFloor
	}
	return math.Log10(v)
}

// hasVariation reports whether v contains at least two distinct values.
// Correlation is undefined on a constant series.
func hasVariation(v []float64) bool {
	if len(v) < 2 {
		return false
	}
	for _, x := range v[1:] {
		if x != v[0] {
			return true
		}
	}
	return false
}

// ranks returns the 1-based ranks of v, assigning tied values the mean
// of the ranks they span.
func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return v[idx[i]] < v[idx[j]] })

	r := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		// Mean of the 1-based ranks i+1 .. j+1.
		mean := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = mean
		}
		i = j + 1
	}
	return r
}
