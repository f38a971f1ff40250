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
	"github.com/sirupsen/logrus"
)

// Model ties a facility inventory and a receptor set to a scenario and
// a transport parameterization. Run does not modify the model, so a
// single Model may be shared by concurrent runs with different
// parameter values.
type Model struct {
	// Inventory is the base sanitation facility inventory.
	Inventory *Inventory

	// Receptors are the groundwater supply points at which
	// concentrations are predicted.
	Receptors []*Receptor

	// Efficiencies is the containment efficiency configuration used
	// by the scenario transform.
	Efficiencies CategoryEfficiencies

	// Scenario is the intervention to apply before transport; nil
	// runs the base inventory unchanged.
	Scenario *Scenario

	// Transport holds the transport parameters.
	Transport TransportConfig

	// Log receives progress information. If nil, the standard logger
	// is used.
	Log logrus.FieldLogger
}

func (m *Model) logger() logrus.FieldLogger {
	if m.Log == nil {
		return logrus.StandardLogger()
	}
	return m.Log
}

// Run applies the scenario (if any) to the inventory and computes the
// predicted concentration at every receptor.
func (m *Model) Run() (*Results, error) {
	inv := m.Inventory
	if m.Scenario != nil {
		var err error
		inv, err = m.Scenario.Apply(inv, m.Efficiencies)
		if err != nil {
			return nil, err
		}
		m.logger().WithFields(logrus.Fields{
			"baseRows":     m.Inventory.Len(),
			"scenarioRows": inv.Len(),
			"population":   inv.TotalPopulation(),
		}).Info("applied scenario")
	}

	results, err := m.Transport.Concentrations(inv, m.Receptors)
	if err != nil {
		return nil, err
	}
	m.logger().WithFields(logrus.Fields{
		"receptors":    len(results.Receptors),
		"totalEmitted": results.TotalEmitted,
	}).Info("computed concentrations")
	return results, nil
}
