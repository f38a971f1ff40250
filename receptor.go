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

	"github.com/ctessum/geom"
)

// Receptor is a groundwater supply point (typically a well or borehole)
// where a FIO concentration is predicted. Locations are in the planar
// model coordinate system [m]. Receptors are immutable within a model
// run.
type Receptor struct {
	geom.Point

	// ID identifies the receptor.
	ID string

	// WaterFlux is the volume of water abstracted at the receptor
	// [L/day]. It must be positive.
	WaterFlux float64

	// Observed is the laboratory-measured FIO concentration at the
	// receptor [CFU/100 mL], or NaN where no measurement exists.
	Observed float64
}

// HasObservation reports whether the receptor carries a laboratory
// measurement.
func (r *Receptor) HasObservation() bool { return !math.IsNaN(r.Observed) }

// ValidateReceptors checks the receptor set against the model's data
// requirements, returning a DataError naming the offending receptor if
// any has a non-positive or non-finite water flux. A zero or negative
// flux indicates bad upstream enrichment and is fatal rather than being
// coerced to a zero concentration.
func ValidateReceptors(receptors []*Receptor) error {
	for _, r := range receptors {
		if math.IsNaN(r.WaterFlux) || math.IsInf(r.WaterFlux, 0) {
			return DataErrorf(r.ID, "water flux is not finite")
		}
		if r.WaterFlux <= 0 {
			return DataErrorf(r.ID, "non-positive water flux %g L/day", r.WaterFlux)
		}
	}
	return nil
}

// distance returns the Euclidean distance between two points in the
// planar model coordinate system [m].
func distance(a, b geom.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
