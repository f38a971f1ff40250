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

package gwfio

import (
	"math"
	"runtime"
	"sync"
)

// TransportConfig holds the parameters of the source-to-receptor
// transport calculation.
type TransportConfig struct {
	// ShedRate is the per-person FIO shedding rate
	// [organisms/person/day].
	ShedRate float64

	// DecayRate is the first-order spatial die-off coefficient k
	// [1/m]. The fraction of a facility's emitted load surviving
	// transport over distance d is exp(-k d).
	DecayRate float64

	// LinkRadius is the maximum distance [m] over which a facility
	// contributes load to a receptor.
	LinkRadius float64
}

// Validate returns a ConfigError if any transport parameter is outside
// its valid domain.
func (c *TransportConfig) Validate() error {
	if c.ShedRate <= 0 || math.IsNaN(c.ShedRate) {
		return ConfigErrorf("shedding rate %g must be positive", c.ShedRate)
	}
	if c.DecayRate < 0 || math.IsNaN(c.DecayRate) {
		return ConfigErrorf("decay rate %g must not be negative", c.DecayRate)
	}
	if c.LinkRadius <= 0 || math.IsNaN(c.LinkRadius) {
		return ConfigErrorf("link radius %g must be positive", c.LinkRadius)
	}
	return nil
}

// Link is the contribution of one facility row to one receptor. Rows
// sharing a facility ID contribute independently; there is no
// deduplication by ID.
type Link struct {
	FacilityID string
	ReceptorID string

	// Distance between facility and receptor [m].
	Distance float64

	// DecayWeight is exp(-k Distance), the surviving fraction of the
	// facility's emitted load.
	DecayWeight float64

	// Load is the surviving load delivered to the receptor
	// [organisms/day].
	Load float64
}

// ReceptorResult holds the transport prediction for one receptor. A
// receptor with no facility within the link radius has a zero surviving
// load and a zero concentration; that is a valid result, not an error.
type ReceptorResult struct {
	Receptor *Receptor

	// SurvivingLoad is the summed load delivered over all links
	// [organisms/day].
	SurvivingLoad float64

	// Concentration is the predicted FIO concentration [CFU/100 mL].
	Concentration float64

	// Links are the per-facility-row contributions to this receptor.
	Links []Link
}

// Results holds the output of one transport run.
type Results struct {
	Receptors []*ReceptorResult

	// TotalEmitted is the summed net load escaping all facility rows
	// [organisms/day], before spatial decay.
	TotalEmitted float64
}

// Concentrations returns the predicted concentrations keyed by
// receptor ID [CFU/100 mL].
func (r *Results) Concentrations() map[string]float64 {
	o := make(map[string]float64, len(r.Receptors))
	for _, rr := range r.Receptors {
		o[rr.Receptor.ID] = rr.Concentration
	}
	return o
}

// Links returns the per-link contribution records for all receptors.
func (r *Results) Links() []Link {
	var o []Link
	for _, rr := range r.Receptors {
		o = append(o, rr.Links...)
	}
	return o
}

// Concentrations computes the predicted FIO concentration at every
// receptor. For each receptor it finds the facility rows within the
// link radius using the inventory's spatial index, attenuates each
// row's emitted load by exp(-k d), sums the surviving load, and dilutes
// it in the receptor's water flux. Facility and receptor locations must
// be in the same planar coordinate system [m]. The inputs are not
// modified; receptors are processed concurrently.
func (c *TransportConfig) Concentrations(inv *Inventory, receptors []*Receptor) (*Results, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateReceptors(receptors); err != nil {
		return nil, err
	}

	results := &Results{
		Receptors:    make([]*ReceptorResult, len(receptors)),
		TotalEmitted: inv.TotalEmittedLoad(c.ShedRate),
	}

	// Concurrently link each receptor to the facilities around it.
	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for ii := pp; ii < len(receptors); ii += nprocs {
				results.Receptors[ii] = c.linkReceptor(inv, receptors[ii])
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()

	return results, nil
}

// linkReceptor computes the surviving load and diluted concentration
// for a single receptor.
func (c *TransportConfig) linkReceptor(inv *Inventory, r *Receptor) *ReceptorResult {
	rr := &ReceptorResult{Receptor: r}
	facilities, distances := inv.searchWithin(r.Point, c.LinkRadius)
	for i, f := range facilities {
		w := math.Exp(-c.DecayRate * distances[i])
		l := Link{
			FacilityID:  f.ID,
			ReceptorID:  r.ID,
			Distance:    distances[i],
			DecayWeight: w,
			Load:        f.EmittedLoad(c.ShedRate) * w,
		}
		rr.SurvivingLoad += l.Load
		rr.Links = append(rr.Links, l)
	}
	rr.Concentration = rr.SurvivingLoad / r.WaterFlux * litersPer100mL
	return rr
}
