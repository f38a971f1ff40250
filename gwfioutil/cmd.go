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

// Package gwfioutil wires the GWFIO model to its command-line
// interface and configuration system.
package gwfioutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/gwfio"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to GWFIO.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "FacilityShapefiles",
			usage: `
              FacilityShapefiles is the list of paths to the shapefiles
              containing the sanitation facility inventory. Locations are
              reprojected to the model projection. Can include environment
              variables.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "FacilityCSV",
			usage: `
              FacilityCSV is the path to a CSV file containing the sanitation
              facility inventory with planar model coordinates. When set it is
              used instead of FacilityShapefiles.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ReceptorShapefile",
			usage: `
              ReceptorShapefile is the path to the shapefile containing the
              groundwater supply points (receptors). Locations are reprojected
              to the model projection.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ReceptorCSV",
			usage: `
              ReceptorCSV is the path to a CSV file containing the receptors
              with planar model coordinates. When set it is used instead of
              ReceptorShapefile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ModelProj",
			usage: `
              ModelProj gives the planar spatial projection of the model in
              Proj4 format. Shapefile inputs are reprojected to it and it is
              written alongside shapefile outputs. Units must be meters.`,
			defaultVal: "+proj=utm +zone=36 +south +datum=WGS84 +units=m +no_defs",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired output shapefile of
              per-receptor predicted concentrations.`,
			defaultVal: "concentrations.shp",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LinkOutputFile",
			usage: `
              LinkOutputFile is the path to the desired CSV output of
              per-link facility-to-receptor contributions. If empty, the
              link table is not written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which model variables should be
              included in the output file, as a mapping from output field
              names to expressions over the per-receptor values Conc, Load,
              Flux, Obs, and NLinks, e.g. {"Conc":"Conc","LogC":"log10(Conc)"}.`,
			defaultVal: map[string]string{"Conc": "Conc"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ScenarioOutputFile",
			usage: `
              ScenarioOutputFile is the path to the desired CSV output of the
              scenario-transformed facility inventory.`,
			defaultVal: "scenario_inventory.csv",
			flagsets:   []*pflag.FlagSet{scenarioCmd.Flags()},
		},
		{
			name: "Transport.ShedRate",
			usage: `
              Transport.ShedRate is the per-person FIO shedding rate
              [organisms/person/day].`,
			defaultVal: 1.e10,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Transport.DecayRate",
			usage: `
              Transport.DecayRate is the first-order spatial die-off
              coefficient k [1/m].`,
			defaultVal: 0.06,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Transport.LinkRadius",
			usage: `
              Transport.LinkRadius is the maximum distance [m] over which a
              facility contributes load to a receptor.`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Scenario.PopFactor",
			usage: `
              Scenario.PopFactor scales every facility row's population.
              Zero means no scaling.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Scenario.ODReduction",
			usage: `
              Scenario.ODReduction is the fraction of each open-defecation
              row's population moved to septic containment [0-1].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Scenario.InfraUpgrade",
			usage: `
              Scenario.InfraUpgrade is the fraction of each pit-latrine row's
              population moved to septic containment [0-1].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Scenario.CentralizedTreatment",
			usage: `
              Scenario.CentralizedTreatment raises the efficiency of all
              sewered rows to the centralized-treatment efficiency.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Scenario.FSMTreatment",
			usage: `
              Scenario.FSMTreatment is the fraction of each low-efficiency
              septic row's population moved to faecal sludge management [0-1].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Efficiencies.Sewered",
			usage: `
              Efficiencies.Sewered is the default containment efficiency of
              sewered facilities [0-1].`,
			defaultVal: 0.85,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Efficiencies.Septic",
			usage: `
              Efficiencies.Septic is the default containment efficiency of
              septic facilities [0-1].`,
			defaultVal: 0.3,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Efficiencies.Pit",
			usage: `
              Efficiencies.Pit is the default containment efficiency of pit
              latrines [0-1].`,
			defaultVal: 0.15,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Efficiencies.OpenDefecation",
			usage: `
              Efficiencies.OpenDefecation is the containment efficiency of
              open defecation [0-1].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Efficiencies.CentralizedSewered",
			usage: `
              Efficiencies.CentralizedSewered is the efficiency assigned to
              sewered facilities by the centralized treatment intervention
              [0-1].`,
			defaultVal: 0.95,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Efficiencies.FSMHigh",
			usage: `
              Efficiencies.FSMHigh is the efficiency of faecal sludge
              management [0-1].`,
			defaultVal: 0.8,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Calib.DecayRates",
			usage: `
              Calib.DecayRates is the list of candidate spatial decay
              coefficients k [1/m] for the calibration search. If empty, the
              decay rate is held at Transport.DecayRate.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calib.ShedRates",
			usage: `
              Calib.ShedRates is the list of candidate per-person shedding
              rates [organisms/person/day]. If empty, the shedding rate is
              held at Transport.ShedRate.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calib.SeweredEffs",
			usage: `
              Calib.SeweredEffs is the list of candidate sewered containment
              efficiencies [0-1]. If empty, the efficiency is held at
              Efficiencies.Sewered.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calib.SepticEffs",
			usage: `
              Calib.SepticEffs is the list of candidate septic containment
              efficiencies [0-1]. If empty, the efficiency is held at
              Efficiencies.Septic.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calib.PitEffs",
			usage: `
              Calib.PitEffs is the list of candidate pit-latrine containment
              efficiencies [0-1]. If empty, the efficiency is held at
              Efficiencies.Pit.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calib.OpenDefecationEffs",
			usage: `
              Calib.OpenDefecationEffs is the list of candidate open-defecation
              containment efficiencies [0-1]. If empty, the efficiency is held
              at Efficiencies.OpenDefecation.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calib.DetectionThreshold",
			usage: `
              Calib.DetectionThreshold is the concentration [CFU/100 mL] below
              which an observation is treated as a non-detect and excluded
              from calibration matching.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calib.MinMatched",
			usage: `
              Calib.MinMatched is the minimum number of matched receptors
              required to score a calibration grid point.`,
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
		{
			name: "Calib.ReportFile",
			usage: `
              Calib.ReportFile is the path to the desired CSV output of the
              ranked calibration report.`,
			defaultVal: "calibration.csv",
			flagsets:   []*pflag.FlagSet{calibrateCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GWFIO")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				set.String(option.name, option.defaultVal.(string), option.usage)
			case []string:
				set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
			case bool:
				set.Bool(option.name, option.defaultVal.(bool), option.usage)
			case int:
				set.Int(option.name, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				set.String(option.name, string(b.Bytes()), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(scenarioCmd)
	Root.AddCommand(calibrateCmd)
}

// Log receives progress information from the commands.
var Log logrus.FieldLogger = logrus.StandardLogger()

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gwfio: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gwfio",
	Short: "A groundwater faecal contamination model.",
	Long: `GWFIO is a steady-state model of faecal indicator organism transport
from on-site sanitation facilities to groundwater supply points.
Use the subcommands specified below to access the model functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GWFIO_var' where 'var' is
the name of the variable to be set. Many configuration variables are
additionally allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration
information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of GWFIO.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("GWFIO v%s\n", gwfio.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd runs the transport pipeline and writes the predicted
// concentrations.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run applies the configured scenario (if any) to the facility
inventory, computes the predicted FIO concentration at every receptor, and
writes the results to OutputFile (and the per-link contributions to
LinkOutputFile, if set).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := modelFromCfg(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		return Run(model, outputFile, os.ExpandEnv(Cfg.GetString("LinkOutputFile")),
			Cfg.GetString("ModelProj"), outputVars)
	},
	DisableAutoGenTag: true,
}

// scenarioCmd applies the scenario transform and writes the resulting
// inventory without running the transport calculation.
var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Apply the scenario transform to the facility inventory.",
	Long: `scenario applies the configured intervention options to the facility
inventory and writes the transformed inventory to ScenarioOutputFile for
inspection, without running the transport calculation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := modelFromCfg(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("ScenarioOutputFile"))
		if err != nil {
			return err
		}
		return WriteScenario(model, outputFile)
	},
	DisableAutoGenTag: true,
}

// calibrateCmd runs the calibration search.
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate model parameters against observations.",
	Long: `calibrate runs the transport pipeline once for every point of the
configured parameter grid, scores each run against the observed receptor
concentrations, and writes the ranked report to Calib.ReportFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := modelFromCfg(Cfg)
		if err != nil {
			return err
		}
		reportFile, err := checkOutputFile(Cfg.GetString("Calib.ReportFile"))
		if err != nil {
			return err
		}
		searcher, err := searcherFromCfg(Cfg, model)
		if err != nil {
			return err
		}
		return Calibrate(searcher, reportFile)
	},
	DisableAutoGenTag: true,
}
