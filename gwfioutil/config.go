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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/gwfio"
	"github.com/spatialmodel/gwfio/calib"
	"github.com/spf13/cast"
)

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`gwfio: you need to specify an output file configuration variable (for example: OutputFile="output.shp")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("gwfio: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkOutputVars removes end lines and expands environment variables
// in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("gwfio: there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		vars[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return vars, nil
}

// GetStringMapString returns a map[string]string from a viper
// configuration, accounting for the fact that it might be a json
// object if it was set from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}

// getFloatSlice parses a configuration variable that may be a slice of
// strings or numbers into a slice of float64s.
func getFloatSlice(varName string, cfg *viper.Viper) ([]float64, error) {
	var out []float64
	for _, s := range cfg.GetStringSlice(varName) {
		v, err := cast.ToFloat64E(os.ExpandEnv(s))
		if err != nil {
			return nil, fmt.Errorf("gwfio: parsing configuration variable %s: %v", varName, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// efficienciesFromCfg builds the containment efficiency configuration.
func efficienciesFromCfg(cfg *viper.Viper) gwfio.CategoryEfficiencies {
	return gwfio.CategoryEfficiencies{
		Sewered:            cfg.GetFloat64("Efficiencies.Sewered"),
		Septic:             cfg.GetFloat64("Efficiencies.Septic"),
		Pit:                cfg.GetFloat64("Efficiencies.Pit"),
		OpenDefecation:     cfg.GetFloat64("Efficiencies.OpenDefecation"),
		CentralizedSewered: cfg.GetFloat64("Efficiencies.CentralizedSewered"),
		FSMHigh:            cfg.GetFloat64("Efficiencies.FSMHigh"),
	}
}

// scenarioFromCfg builds the scenario from the configuration, or nil if
// no intervention option is set.
func scenarioFromCfg(cfg *viper.Viper) *gwfio.Scenario {
	s := &gwfio.Scenario{
		PopFactor:            cfg.GetFloat64("Scenario.PopFactor"),
		ODReduction:          cfg.GetFloat64("Scenario.ODReduction"),
		InfraUpgrade:         cfg.GetFloat64("Scenario.InfraUpgrade"),
		CentralizedTreatment: cfg.GetBool("Scenario.CentralizedTreatment"),
		FSMTreatment:         cfg.GetFloat64("Scenario.FSMTreatment"),
	}
	if *s == (gwfio.Scenario{}) {
		return nil
	}
	return s
}

// modelFromCfg loads the input tables and assembles the model.
func modelFromCfg(cfg *viper.Viper) (*gwfio.Model, error) {
	eff := efficienciesFromCfg(cfg)
	if err := eff.Check(); err != nil {
		return nil, err
	}

	modelSR, err := proj.Parse(os.ExpandEnv(cfg.GetString("ModelProj")))
	if err != nil {
		return nil, fmt.Errorf("gwfio: parsing ModelProj: %v", err)
	}

	var inv *gwfio.Inventory
	if f := os.ExpandEnv(cfg.GetString("FacilityCSV")); f != "" {
		r, err := os.Open(f)
		if err != nil {
			return nil, fmt.Errorf("gwfio: opening FacilityCSV: %v", err)
		}
		defer r.Close()
		if inv, err = gwfio.ReadFacilityCSV(r, eff); err != nil {
			return nil, err
		}
	} else {
		shapefiles := expandStringSlice(cfg.GetStringSlice("FacilityShapefiles"))
		if len(shapefiles) == 0 {
			return nil, fmt.Errorf("gwfio: no facility input specified; set FacilityShapefiles or FacilityCSV")
		}
		if inv, err = gwfio.ReadFacilityShapefiles(modelSR, eff, outChan(), shapefiles...); err != nil {
			return nil, err
		}
	}

	var receptors []*gwfio.Receptor
	if f := os.ExpandEnv(cfg.GetString("ReceptorCSV")); f != "" {
		r, err := os.Open(f)
		if err != nil {
			return nil, fmt.Errorf("gwfio: opening ReceptorCSV: %v", err)
		}
		defer r.Close()
		if receptors, err = gwfio.ReadReceptorCSV(r); err != nil {
			return nil, err
		}
	} else {
		f := os.ExpandEnv(cfg.GetString("ReceptorShapefile"))
		if f == "" {
			return nil, fmt.Errorf("gwfio: no receptor input specified; set ReceptorShapefile or ReceptorCSV")
		}
		if receptors, err = gwfio.ReadReceptorShapefile(modelSR, f); err != nil {
			return nil, err
		}
	}

	return &gwfio.Model{
		Inventory:    inv,
		Receptors:    receptors,
		Efficiencies: eff,
		Scenario:     scenarioFromCfg(cfg),
		Transport: gwfio.TransportConfig{
			ShedRate:   cfg.GetFloat64("Transport.ShedRate"),
			DecayRate:  cfg.GetFloat64("Transport.DecayRate"),
			LinkRadius: cfg.GetFloat64("Transport.LinkRadius"),
		},
		Log: Log,
	}, nil
}

// searcherFromCfg builds the calibration searcher for the model.
func searcherFromCfg(cfg *viper.Viper, model *gwfio.Model) (*calib.Searcher, error) {
	grids := calib.Grids{}
	var err error
	if grids.DecayRates, err = getFloatSlice("Calib.DecayRates", cfg); err != nil {
		return nil, err
	}
	if grids.ShedRates, err = getFloatSlice("Calib.ShedRates", cfg); err != nil {
		return nil, err
	}
	if grids.SeweredEffs, err = getFloatSlice("Calib.SeweredEffs", cfg); err != nil {
		return nil, err
	}
	if grids.SepticEffs, err = getFloatSlice("Calib.SepticEffs", cfg); err != nil {
		return nil, err
	}
	if grids.PitEffs, err = getFloatSlice("Calib.PitEffs", cfg); err != nil {
		return nil, err
	}
	if grids.OpenDefecationEffs, err = getFloatSlice("Calib.OpenDefecationEffs", cfg); err != nil {
		return nil, err
	}
	return &calib.Searcher{
		Model:              model,
		DetectionThreshold: cfg.GetFloat64("Calib.DetectionThreshold"),
		MinMatched:         cfg.GetInt("Calib.MinMatched"),
		Grids:              grids,
		Log:                Log,
	}, nil
}

// outChan returns a channel printing to standard output.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for {
			msg := <-outChan
			fmt.Printf(msg)
		}
	}()
	return outChan
}
