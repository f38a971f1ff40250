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
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Facility is one row of the sanitation facility inventory. A single
// physical facility (one ID) may be represented by several rows after a
// scenario intervention splits its population among categories; the
// rows then contribute to the transport calculation independently.
// Locations are in the planar model coordinate system [m].
type Facility struct {
	geom.Point

	// ID identifies the physical facility this row belongs to.
	ID string

	// Category is one of the recognized sanitation categories.
	Category string

	// Population is the number of people served by this row.
	// Fractional values are allowed; they arise from intervention
	// splits and from population scaling.
	Population float64

	// Efficiency is the fraction of the shed FIO load that the
	// facility retains [0-1].
	Efficiency float64
}

// EmittedLoad returns the net FIO load escaping this facility row
// [organisms/day], given a per-person shedding rate
// [organisms/person/day].
func (f *Facility) EmittedLoad(shedRate float64) float64 {
	return f.Population * shedRate * (1 - f.Efficiency)
}

// Inventory is a holder for sanitation facility data.
type Inventory struct {
	tree *rtree.Rtree
	rows []*Facility
}

// NewInventory initializes a new facility inventory holder.
func NewInventory() *Inventory {
	return &Inventory{
		tree: rtree.NewTree(25, 50),
	}
}

// Add adds a facility row to the inventory and indexes it spatially.
func (inv *Inventory) Add(f *Facility) {
	inv.tree.Insert(f)
	inv.rows = append(inv.rows, f)
}

// Rows returns all facility rows in the inventory. The returned slice
// must not be modified.
func (inv *Inventory) Rows() []*Facility { return inv.rows }

// Len returns the number of facility rows.
func (inv *Inventory) Len() int { return len(inv.rows) }

// TotalPopulation returns the summed population over all rows.
func (inv *Inventory) TotalPopulation() float64 {
	var sum float64
	for _, f := range inv.rows {
		sum += f.Population
	}
	return sum
}

// TotalEmittedLoad returns the summed net FIO load over all rows
// [organisms/day] for the given shedding rate [organisms/person/day].
func (inv *Inventory) TotalEmittedLoad(shedRate float64) float64 {
	var sum float64
	for _, f := range inv.rows {
		sum += f.EmittedLoad(shedRate)
	}
	return sum
}

// searchWithin returns the facility rows whose location lies within
// radius [m] of p, together with the distance to each.
func (inv *Inventory) searchWithin(p geom.Point, radius float64) ([]*Facility, []float64) {
	b := &geom.Bounds{
		Min: geom.Point{X: p.X - radius, Y: p.Y - radius},
		Max: geom.Point{X: p.X + radius, Y: p.Y + radius},
	}
	var facilities []*Facility
	var distances []float64
	for _, fI := range inv.tree.SearchIntersect(b) {
		f := fI.(*Facility)
		d := distance(p, f.Point)
		if d <= radius {
			facilities = append(facilities, f)
			distances = append(distances, d)
		}
	}
	return facilities, distances
}

// WithCategoryEfficiencies returns a copy of the inventory in which
// every row's containment efficiency is replaced by the value eff
// assigns to its category. The receiver is not modified. The
// calibration search uses this to try candidate per-category
// efficiencies against a shared base inventory.
func (inv *Inventory) WithCategoryEfficiencies(eff CategoryEfficiencies) (*Inventory, error) {
	if err := eff.Check(); err != nil {
		return nil, err
	}
	out := NewInventory()
	for _, f := range inv.rows {
		e, err := eff.ForCategory(f.Category)
		if err != nil {
			return nil, DataErrorf(f.ID, "%v", err)
		}
		c := *f
		c.Efficiency = e
		out.Add(&c)
	}
	return out, nil
}

// Validate checks the inventory rows against the model's data
// requirements, returning a DataError naming the offending facility if
// any row has a negative population, an efficiency outside [0,1], or an
// unrecognized category.
func (inv *Inventory) Validate() error {
	for _, f := range inv.rows {
		if f.Population < 0 {
			return DataErrorf(f.ID, "negative population %g", f.Population)
		}
		if f.Efficiency < 0 || f.Efficiency > 1 {
			return DataErrorf(f.ID, "containment efficiency %g is outside [0,1]", f.Efficiency)
		}
		var ok bool
		for _, c := range Categories {
			if f.Category == c {
				ok = true
				break
			}
		}
		if !ok {
			return DataErrorf(f.ID, "unrecognized facility category '%s'", f.Category)
		}
	}
	return nil
}
