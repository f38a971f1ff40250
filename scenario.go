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

// Scenario specifies a sanitation intervention to be applied to the
// facility inventory before running the transport calculation. Every
// option is independently optional; the zero value of each option is a
// no-op. The transform conserves total population exactly: population
// is moved between categories by splitting rows, never created or
// destroyed.
type Scenario struct {
	// PopFactor scales every row's population. Zero means no scaling
	// (i.e. a factor of 1); negative values are invalid.
	PopFactor float64

	// ODReduction is the fraction of each open-defecation row's
	// population moved to septic containment [0-1].
	ODReduction float64

	// InfraUpgrade is the fraction of each pit-latrine row's
	// population moved to septic containment [0-1].
	InfraUpgrade float64

	// CentralizedTreatment, if true, raises the efficiency of all
	// sewered rows to the centralized-treatment efficiency. Treatment
	// is all-or-nothing per facility, so this mutates efficiency
	// rather than splitting population.
	CentralizedTreatment bool

	// FSMTreatment is the fraction of each low-efficiency septic
	// row's population moved to the faecal sludge management
	// efficiency [0-1].
	FSMTreatment float64
}

// Validate returns a ConfigError if any scenario option is outside its
// valid domain. It is called before any transform runs.
func (s *Scenario) Validate() error {
	if s.PopFactor < 0 {
		return ConfigErrorf("population factor %g must not be negative", s.PopFactor)
	}
	fracs := map[string]float64{
		"ODReduction":  s.ODReduction,
		"InfraUpgrade": s.InfraUpgrade,
		"FSMTreatment": s.FSMTreatment,
	}
	for name, f := range fracs {
		if f < 0 || f > 1 {
			return ConfigErrorf("%s fraction %g is outside the valid range [0,1]", name, f)
		}
	}
	return nil
}

// An inventoryManipulator transforms a list of facility rows into a new
// list, leaving the input untouched. The scenario transform is a fixed
// sequence of manipulators.
type inventoryManipulator func(rows []*Facility) []*Facility

// Apply applies the scenario to the inventory, returning a new
// inventory and leaving the input unmodified. eff supplies the
// efficiencies used when rows change category. The intervention steps
// run in a fixed order (population scaling first, then open-defecation
// reduction, infrastructure upgrade, centralized treatment, and faecal
// sludge management) because later steps operate on rows created by
// earlier ones. Rows left with zero population are dropped.
func (s *Scenario) Apply(inv *Inventory, eff CategoryEfficiencies) (*Inventory, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := eff.Check(); err != nil {
		return nil, err
	}

	rows := make([]*Facility, len(inv.Rows()))
	for i, f := range inv.Rows() {
		c := *f // shallow copy; the transform never aliases input rows
		rows[i] = &c
	}

	for _, step := range []inventoryManipulator{
		scalePopulation(s.PopFactor),
		moveCategoryShare(OpenDefecation, s.ODReduction, Septic, eff.Septic),
		moveCategoryShare(Pit, s.InfraUpgrade, Septic, eff.Septic),
		centralizeTreatment(s.CentralizedTreatment, eff.CentralizedSewered),
		manageFaecalSludge(s.FSMTreatment, eff.FSMHigh),
	} {
		rows = step(rows)
	}

	out := NewInventory()
	for _, f := range rows {
		if f.Population == 0 {
			continue
		}
		out.Add(f)
	}
	return out, nil
}

// scalePopulation multiplies every row's population by factor. A factor
// of zero is treated as "unset" and leaves populations unchanged.
func scalePopulation(factor float64) inventoryManipulator {
	return func(rows []*Facility) []*Facility {
		if factor == 0 || factor == 1 {
			return rows
		}
		for _, f := range rows {
			f.Population *= factor
		}
		return rows
	}
}

// moveCategoryShare splits every row of category from, moving fraction
// frac of its population to a new row with category to and efficiency
// toEff. The remainder row keeps its category and efficiency. The two
// rows share the original facility ID, which is how a partly-upgraded
// facility is represented.
func moveCategoryShare(from string, frac float64, to string, toEff float64) inventoryManipulator {
	return func(rows []*Facility) []*Facility {
		if frac <= 0 {
			return rows
		}
		out := make([]*Facility, 0, len(rows))
		for _, f := range rows {
			if f.Category != from {
				out = append(out, f)
				continue
			}
			moved := *f
			moved.Category = to
			moved.Efficiency = toEff
			moved.Population = f.Population * frac
			f.Population *= 1 - frac
			out = append(out, f, &moved)
		}
		return out
	}
}

// centralizeTreatment raises the efficiency of all sewered rows to
// centralEff.
func centralizeTreatment(enabled bool, centralEff float64) inventoryManipulator {
	return func(rows []*Facility) []*Facility {
		if !enabled {
			return rows
		}
		for _, f := range rows {
			if f.Category == Sewered && f.Efficiency < centralEff {
				f.Efficiency = centralEff
			}
		}
		return rows
	}
}

// manageFaecalSludge splits every septic row whose efficiency is below
// highEff, moving fraction frac of its population to a new septic row
// at highEff and leaving the remainder at its prior efficiency.
func manageFaecalSludge(frac, highEff float64) inventoryManipulator {
	return func(rows []*Facility) []*Facility {
		if frac <= 0 {
			return rows
		}
		out := make([]*Facility, 0, len(rows))
		for _, f := range rows {
			if f.Category != Septic || f.Efficiency >= highEff {
				out = append(out, f)
				continue
			}
			treated := *f
			treated.Efficiency = highEff
			treated.Population = f.Population * frac
			f.Population *= 1 - frac
			out = append(out, f, &treated)
		}
		return out
	}
}
