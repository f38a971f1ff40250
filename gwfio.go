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

// Package gwfio implements a steady-state model of faecal indicator
// organism (FIO) transport from on-site sanitation facilities to
// groundwater supply points. Facility populations shed organisms, a
// fraction of which escapes containment; the escaped load attenuates
// exponentially with distance and is diluted in the water flux of each
// receptor to give a predicted concentration in CFU per 100 mL.
package gwfio

import (
	"fmt"
	"math"
)

// Version gives the version number of this version of GWFIO.
const Version = "0.1.0"

// Sanitation facility categories.
const (
	Sewered        = "sewered"
	Septic         = "septic"
	Pit            = "pit"
	OpenDefecation = "open_defecation"
)

// Categories lists the recognized sanitation facility categories.
var Categories = []string{Sewered, Septic, Pit, OpenDefecation}

// litersPer100mL converts a concentration in organisms per liter to the
// reporting unit of organisms per 100 mL. Surviving load [organisms/day]
// divided by receptor water flux [L/day] gives organisms/L.
// This constant is fixed by the unit system and is not tunable.
const litersPer100mL = 0.1

// CategoryEfficiencies holds the containment efficiency assigned to each
// facility category when the input data doesn't specify one, along with
// the efficiencies used by scenario interventions. Efficiency is the
// fraction of shed organisms retained by the facility, so it must be
// within [0, 1]. Values of this type are treated as immutable
// configuration and passed explicitly into the scenario transform and
// the transport calculation.
type CategoryEfficiencies struct {
	Sewered        float64
	Septic         float64
	Pit            float64
	OpenDefecation float64

	// CentralizedSewered is the efficiency assigned to sewered
	// facilities when a scenario enables centralized treatment.
	CentralizedSewered float64

	// FSMHigh is the efficiency of faecal sludge management. Septic
	// facilities below this value have a share of their population
	// moved to it by the FSM intervention.
	FSMHigh float64
}

// DefaultEfficiencies returns the default containment efficiency
// configuration.
func DefaultEfficiencies() CategoryEfficiencies {
	return CategoryEfficiencies{
		Sewered:            0.85,
		Septic:             0.3,
		Pit:                0.15,
		OpenDefecation:     0,
		CentralizedSewered: 0.95,
		FSMHigh:            0.8,
	}
}

// ForCategory returns the default efficiency for the given facility
// category.
func (e CategoryEfficiencies) ForCategory(category string) (float64, error) {
	switch category {
	case Sewered:
		return e.Sewered, nil
	case Septic:
		return e.Septic, nil
	case Pit:
		return e.Pit, nil
	case OpenDefecation:
		return e.OpenDefecation, nil
	default:
		return 0, fmt.Errorf("gwfio: unknown facility category '%s'", category)
	}
}

// Check returns an error if any of the efficiencies is outside [0, 1].
func (e CategoryEfficiencies) Check() error {
	vals := map[string]float64{
		"Sewered":            e.Sewered,
		"Septic":             e.Septic,
		"Pit":                e.Pit,
		"OpenDefecation":     e.OpenDefecation,
		"CentralizedSewered": e.CentralizedSewered,
		"FSMHigh":            e.FSMHigh,
	}
	for name, v := range vals {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return ConfigError(fmt.Sprintf("efficiency %s=%g is outside the valid range [0,1]", name, v))
		}
	}
	return nil
}
