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

package gwfioutil

import (
	"io/ioutil"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
)

// exampleConfig mirrors the layout of cmd/gwfio/configExample.toml.
type exampleConfig struct {
	FacilityShapefiles []string
	ReceptorShapefile  string
	ModelProj          string
	OutputFile         string
	LinkOutputFile     string
	OutputVariables    map[string]string
	Transport          struct {
		ShedRate   float64
		DecayRate  float64
		LinkRadius float64
	}
	Scenario struct {
		PopFactor            float64
		ODReduction          float64
		InfraUpgrade         float64
		CentralizedTreatment bool
		FSMTreatment         float64
	}
	Efficiencies struct {
		Sewered            float64
		Septic             float64
		Pit                float64
		OpenDefecation     float64
		CentralizedSewered float64
		FSMHigh            float64
	}
	Calib struct {
		DecayRates         []string
		ShedRates          []string
		PitEffs            []string
		DetectionThreshold float64
		MinMatched         int
		ReportFile         string
	}
}

// TestConfigExample makes sure the example configuration file stays in
// sync with the options the commands accept.
func TestConfigExample(t *testing.T) {
	b, err := ioutil.ReadFile("../cmd/gwfio/configExample.toml")
	if err != nil {
		t.Fatal(err)
	}
	cfg := new(exampleConfig)
	if _, err := toml.Decode(string(b), cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.FacilityShapefiles) != 1 {
		t.Errorf("FacilityShapefiles: %v", cfg.FacilityShapefiles)
	}
	if cfg.Transport.ShedRate != 1.e10 {
		t.Errorf("Transport.ShedRate = %g", cfg.Transport.ShedRate)
	}
	if cfg.Transport.DecayRate != 0.06 || cfg.Transport.LinkRadius != 100 {
		t.Errorf("transport parameters: %+v", cfg.Transport)
	}
	if cfg.Efficiencies.Sewered != 0.85 || cfg.Efficiencies.Pit != 0.15 {
		t.Errorf("efficiencies: %+v", cfg.Efficiencies)
	}
	if len(cfg.Calib.DecayRates) == 0 || cfg.Calib.DetectionThreshold != 1 {
		t.Errorf("calibration section: %+v", cfg.Calib)
	}

	// Every key in the example file must be a registered option.
	known := make(map[string]bool)
	for _, option := range options {
		known[option.name] = true
	}
	md, err := toml.Decode(string(b), new(map[string]interface{}))
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range md.Keys() {
		k := key.String()
		if known[k] {
			continue
		}
		// Section headers and map entries are not options themselves.
		if k == "Transport" || k == "Scenario" || k == "Efficiencies" || k == "Calib" ||
			k == "OutputVariables" || strings.HasPrefix(k, "OutputVariables.") {
			continue
		}
		t.Errorf("configuration key '%s' is not a registered option", k)
	}
}
