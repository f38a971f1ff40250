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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
)

// facilityRec is the shapefile attribute layout for facility input.
type facilityRec struct {
	geom.Geom
	FacID      string  `shp:"fac_id"`
	Category   string  `shp:"category"`
	Pop        float64 `shp:"pop"`
	Efficiency float64 `shp:"eff"`
}

// receptorRec is the shapefile attribute layout for receptor input.
type receptorRec struct {
	geom.Geom
	RecID     string  `shp:"rec_id"`
	WaterFlux float64 `shp:"flux_lday"`
	Observed  float64 `shp:"obs_conc"`
}

// pointOf converts an input geometry to the point location used by the
// model, taking the centroid of polygonal inputs.
func pointOf(g geom.Geom) (geom.Point, error) {
	switch t := g.(type) {
	case geom.Point:
		return t, nil
	case *geom.Point:
		return *t, nil
	case geom.Polygonal:
		return t.Centroid(), nil
	default:
		return geom.Point{}, fmt.Errorf("gwfio: unsupported input geometry type %T; need a point or polygon", g)
	}
}

// ReadFacilityShapefiles returns the facility inventory contained in
// the given shapefiles, reprojecting all locations to the spatial
// reference modelSR. Rows missing an efficiency value receive the
// default for their category from eff. c is a channel over which status
// updates will be sent. If c is nil, no updates will be sent.
func ReadFacilityShapefiles(modelSR *proj.SR, eff CategoryEfficiencies, c chan string, shapefiles ...string) (*Inventory, error) {
	if err := eff.Check(); err != nil {
		return nil, err
	}
	inv := NewInventory()
	for _, fname := range shapefiles {
		if c != nil {
			c <- fmt.Sprintf("Loading facility shapefile: %s.", fname)
		}
		fname = strings.TrimSuffix(fname, ".shp")
		f, err := shp.NewDecoder(fname + ".shp")
		if err != nil {
			return nil, fmt.Errorf("gwfio: reading facility shapefile '%s': %v", fname, err)
		}
		sr, err := f.SR()
		if err != nil {
			return nil, fmt.Errorf("gwfio: reading projection for facility shapefile '%s': %v", fname, err)
		}
		trans, err := sr.NewTransform(modelSR)
		if err != nil {
			return nil, fmt.Errorf("gwfio: creating spatial reprojector for facility shapefile '%s': %v", fname, err)
		}
		for {
			rec := facilityRec{Efficiency: math.NaN()}
			if ok := f.DecodeRow(&rec); !ok {
				break
			}
			g, err := rec.Transform(trans)
			if err != nil {
				return nil, fmt.Errorf("gwfio: reprojecting facility shapefile '%s': %v", fname, err)
			}
			p, err := pointOf(g)
			if err != nil {
				return nil, err
			}
			e := rec.Efficiency
			if math.IsNaN(e) {
				if e, err = eff.ForCategory(rec.Category); err != nil {
					return nil, DataErrorf(rec.FacID, "%v", err)
				}
			}
			inv.Add(&Facility{
				Point:      p,
				ID:         rec.FacID,
				Category:   rec.Category,
				Population: rec.Pop,
				Efficiency: e,
			})
		}
		f.Close()
		if err := f.Error(); err != nil {
			return nil, fmt.Errorf("gwfio: problem reading facility shapefile.\nfile: %s\nerror: %v", fname, err)
		}
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// ReadReceptorShapefile returns the receptors contained in the given
// shapefile, reprojecting locations to the spatial reference modelSR.
// Receptors missing an observed concentration get NaN, marking them as
// unmeasured.
func ReadReceptorShapefile(modelSR *proj.SR, fname string) ([]*Receptor, error) {
	fname = strings.TrimSuffix(fname, ".shp")
	f, err := shp.NewDecoder(fname + ".shp")
	if err != nil {
		return nil, fmt.Errorf("gwfio: reading receptor shapefile '%s': %v", fname, err)
	}
	sr, err := f.SR()
	if err != nil {
		return nil, fmt.Errorf("gwfio: reading projection for receptor shapefile '%s': %v", fname, err)
	}
	trans, err := sr.NewTransform(modelSR)
	if err != nil {
		return nil, fmt.Errorf("gwfio: creating spatial reprojector for receptor shapefile '%s': %v", fname, err)
	}
	var receptors []*Receptor
	for {
		rec := receptorRec{Observed: math.NaN()}
		if ok := f.DecodeRow(&rec); !ok {
			break
		}
		g, err := rec.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("gwfio: reprojecting receptor shapefile '%s': %v", fname, err)
		}
		p, err := pointOf(g)
		if err != nil {
			return nil, err
		}
		receptors = append(receptors, &Receptor{
			Point:     p,
			ID:        rec.RecID,
			WaterFlux: rec.WaterFlux,
			Observed:  rec.Observed,
		})
	}
	f.Close()
	if err := f.Error(); err != nil {
		return nil, fmt.Errorf("gwfio: problem reading receptor shapefile.\nfile: %s\nerror: %v", fname, err)
	}
	if err := ValidateReceptors(receptors); err != nil {
		return nil, err
	}
	return receptors, nil
}

// csvColumns maps lower-cased header names to column indices.
func csvColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func csvFloat(rec []string, cols map[string]int, name string) (float64, bool, error) {
	i, ok := cols[name]
	if !ok || strings.TrimSpace(rec[i]) == "" {
		return math.NaN(), false, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0, true, fmt.Errorf("gwfio: parsing CSV column '%s': %v", name, err)
	}
	return v, true, nil
}

// ReadFacilityCSV reads a facility inventory from CSV data with the
// columns fac_id, x, y, category, pop, and (optionally) eff.
// Coordinates are taken to already be in the planar model coordinate
// system [m]. Rows with an empty efficiency receive the default for
// their category from eff.
func ReadFacilityCSV(r io.Reader, eff CategoryEfficiencies) (*Inventory, error) {
	if err := eff.Check(); err != nil {
		return nil, err
	}
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("gwfio: reading facility CSV header: %v", err)
	}
	cols := csvColumns(header)
	for _, req := range []string{"fac_id", "x", "y", "category", "pop"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("gwfio: facility CSV is missing required column '%s'", req)
		}
	}
	inv := NewInventory()
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("gwfio: reading facility CSV: %v", err)
		}
		id := strings.TrimSpace(rec[cols["fac_id"]])
		x, _, err := csvFloat(rec, cols, "x")
		if err != nil {
			return nil, DataErrorf(id, "%v", err)
		}
		y, _, err := csvFloat(rec, cols, "y")
		if err != nil {
			return nil, DataErrorf(id, "%v", err)
		}
		pop, _, err := csvFloat(rec, cols, "pop")
		if err != nil {
			return nil, DataErrorf(id, "%v", err)
		}
		category := strings.TrimSpace(rec[cols["category"]])
		e, present, err := csvFloat(rec, cols, "eff")
		if err != nil {
			return nil, DataErrorf(id, "%v", err)
		}
		if !present {
			if e, err = eff.ForCategory(category); err != nil {
				return nil, DataErrorf(id, "%v", err)
			}
		}
		inv.Add(&Facility{
			Point:      geom.Point{X: x, Y: y},
			ID:         id,
			Category:   category,
			Population: pop,
			Efficiency: e,
		})
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// ReadReceptorCSV reads receptors from CSV data with the columns
// rec_id, x, y, flux_lday, and (optionally) obs_conc. Coordinates are
// taken to already be in the planar model coordinate system [m].
func ReadReceptorCSV(r io.Reader) ([]*Receptor, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("gwfio: reading receptor CSV header: %v", err)
	}
	cols := csvColumns(header)
	for _, req := range []string{"rec_id", "x", "y", "flux_lday"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("gwfio: receptor CSV is missing required column '%s'", req)
		}
	}
	var receptors []*Receptor
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("gwfio: reading receptor CSV: %v", err)
		}
		id := strings.TrimSpace(rec[cols["rec_id"]])
		x, _, err := csvFloat(rec, cols, "x")
		if err != nil {
			return nil, DataErrorf(id, "%v", err)
		}
		y, _, err := csvFloat(rec, cols, "y")
		if err != nil {
			return nil, DataErrorf(id, "%v", err)
		}
		flux, present, err := csvFloat(rec, cols, "flux_lday")
		if err != nil {
			return nil, DataErrorf(id, "%v", err)
		}
		if !present {
			return nil, DataErrorf(id, "missing water flux")
		}
		obs, _, err := csvFloat(rec, cols, "obs_conc")
		if err != nil {
			return nil, DataErrorf(id, "%v", err)
		}
		receptors = append(receptors, &Receptor{
			Point:     geom.Point{X: x, Y: y},
			ID:        id,
			WaterFlux: flux,
			Observed:  obs,
		})
	}
	if err := ValidateReceptors(receptors); err != nil {
		return nil, err
	}
	return receptors, nil
}

// Outputter writes per-receptor model results to a point shapefile.
type Outputter struct {
	fileName        string
	proj4           string
	outputVariables map[string]string
	expressions     map[string]*govaluate.EvaluableExpression
}

// baseOutputVars are the per-receptor values available to output
// expressions.
var baseOutputVars = []string{"Conc", "Load", "Flux", "Obs", "NLinks"}

// NewOutputter initializes an Outputter writing to fileName (the
// extension is replaced with .shp). outputVariables maps output field
// names to expressions over the per-receptor values Conc [CFU/100 mL],
// Load [organisms/day], Flux [L/day], Obs [CFU/100 mL], and NLinks;
// for example {"Conc": "Conc", "LogConc": "log10(Conc)"}.
// outputFunctions optionally adds to the default expression functions
// exp and log10. proj4, if non-empty, is written alongside the
// shapefile as its .prj spatial reference.
func NewOutputter(fileName, proj4 string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("gwfio: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return (float64)(math.Exp(arg[0].(float64))), nil
		},
		"log10": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("gwfio: got %d arguments for function 'log10', but needs 1", len(arg))
			}
			v := arg[0].(float64)
			if v < logFloor {
				v = logFloor
			}
			return (float64)(math.Log10(v)), nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}
	if len(outputVariables) == 0 {
		outputVariables = map[string]string{"Conc": "Conc"}
	}

	o := &Outputter{
		fileName:        fileName,
		proj4:           proj4,
		outputVariables: outputVariables,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	for name, exprStr := range outputVariables {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(exprStr, defaultOutputFuncs)
		if err != nil {
			return nil, fmt.Errorf("gwfio: parsing output variable '%s': %v", name, err)
		}
		for _, v := range expr.Vars() {
			known := false
			for _, b := range baseOutputVars {
				if v == b {
					known = true
					break
				}
			}
			if !known {
				return nil, fmt.Errorf("gwfio: output variable '%s' refers to unknown value '%s'", name, v)
			}
		}
		o.expressions[name] = expr
	}
	return o, nil
}

// logFloor is the smallest value allowed into log10 transforms; smaller
// (or zero) values are clipped to it.
const logFloor = 1.e-9

// Output writes the per-receptor results to the output shapefile, one
// point per receptor, with one field per output variable plus the
// receptor ID.
func (o *Outputter) Output(results *Results) error {
	vars := make([]string, 0, len(o.outputVariables))
	for v := range o.outputVariables {
		vars = append(vars, v)
	}
	sort.Strings(vars)

	fields := make([]goshp.Field, 0, len(vars)+1)
	fields = append(fields, goshp.StringField("rec_id", 25))
	for _, v := range vars {
		fields = append(fields, goshp.FloatField(v, 14, 8))
	}

	fileBase := strings.TrimSuffix(o.fileName, filepath.Ext(o.fileName))
	fileName := fileBase + ".shp"
	shape, err := shp.NewEncoderFromFields(fileName, goshp.POINT, fields...)
	if err != nil {
		return fmt.Errorf("gwfio: error creating output shapefile: %v", err)
	}
	for _, rr := range results.Receptors {
		params := map[string]interface{}{
			"Conc":   rr.Concentration,
			"Load":   rr.SurvivingLoad,
			"Flux":   rr.Receptor.WaterFlux,
			"Obs":    rr.Receptor.Observed,
			"NLinks": float64(len(rr.Links)),
		}
		outFields := make([]interface{}, 0, len(vars)+1)
		outFields = append(outFields, rr.Receptor.ID)
		for _, v := range vars {
			result, err := o.expressions[v].Evaluate(params)
			if err != nil {
				return fmt.Errorf("gwfio: evaluating output variable '%s': %v", v, err)
			}
			outFields = append(outFields, result)
		}
		if err := shape.EncodeFields(rr.Receptor.Point, outFields...); err != nil {
			return fmt.Errorf("gwfio: error writing output shapefile: %v", err)
		}
	}
	shape.Close()

	if o.proj4 != "" {
		f, err := os.Create(fileBase + ".prj")
		if err != nil {
			return fmt.Errorf("gwfio: error creating output prj file: %v", err)
		}
		fmt.Fprint(f, o.proj4)
		f.Close()
	}
	return nil
}

// WriteConcentrationCSV writes the per-receptor predicted
// concentrations to w.
func WriteConcentrationCSV(w io.Writer, results *Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rec_id", "conc_cfu100ml", "surviving_load", "n_links"}); err != nil {
		return err
	}
	for _, rr := range results.Receptors {
		err := cw.Write([]string{
			rr.Receptor.ID,
			strconv.FormatFloat(rr.Concentration, 'g', -1, 64),
			strconv.FormatFloat(rr.SurvivingLoad, 'g', -1, 64),
			strconv.Itoa(len(rr.Links)),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLinkCSV writes the per-link contribution table to w for use by
// external reporting and visualization tools.
func WriteLinkCSV(w io.Writer, results *Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"fac_id", "rec_id", "distance_m", "decay_weight", "load"}); err != nil {
		return err
	}
	for _, l := range results.Links() {
		err := cw.Write([]string{
			l.FacilityID,
			l.ReceptorID,
			strconv.FormatFloat(l.Distance, 'g', -1, 64),
			strconv.FormatFloat(l.DecayWeight, 'g', -1, 64),
			strconv.FormatFloat(l.Load, 'g', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteInventoryCSV writes a facility inventory to w, for inspecting
// the result of a scenario transform.
func WriteInventoryCSV(w io.Writer, inv *Inventory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"fac_id", "x", "y", "category", "pop", "eff"}); err != nil {
		return err
	}
	for _, f := range inv.Rows() {
		err := cw.Write([]string{
			f.ID,
			strconv.FormatFloat(f.X, 'g', -1, 64),
			strconv.FormatFloat(f.Y, 'g', -1, 64),
			f.Category,
			strconv.FormatFloat(f.Population, 'g', -1, 64),
			strconv.FormatFloat(f.Efficiency, 'g', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
