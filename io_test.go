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
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

func TestReadFacilityCSV(t *testing.T) {
	const data = `fac_id,x,y,category,pop,eff
f1,100,200,pit,12,
f2,150,250,septic,30,0.5
f3,0,0,open_defecation,8,
`
	inv, err := ReadFacilityCSV(strings.NewReader(data), DefaultEfficiencies())
	if err != nil {
		t.Fatal(err)
	}
	want := []Facility{
		{ID: "f1", Category: Pit, Population: 12, Efficiency: 0.15},
		{ID: "f2", Category: Septic, Population: 30, Efficiency: 0.5},
		{ID: "f3", Category: OpenDefecation, Population: 8, Efficiency: 0},
	}
	if inv.Len() != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), inv.Len())
	}
	for i, f := range inv.Rows() {
		w := want[i]
		if f.ID != w.ID || f.Category != w.Category || f.Population != w.Population || f.Efficiency != w.Efficiency {
			t.Errorf("row %d: have %v, want %v", i, *f, w)
		}
	}
	if f := inv.Rows()[0]; f.X != 100 || f.Y != 200 {
		t.Errorf("row 0 location: (%g, %g)", f.X, f.Y)
	}
}

func TestReadFacilityCSVErrors(t *testing.T) {
	eff := DefaultEfficiencies()
	cases := []struct {
		name, data, wantID string
	}{
		{
			name: "negative population",
			data: "fac_id,x,y,category,pop\nbad,0,0,pit,-3\n",
			wantID: "bad",
		},
		{
			name: "unknown category",
			data: "fac_id,x,y,category,pop\nweird,0,0,composting,5\n",
			wantID: "weird",
		},
		{
			name: "unparseable number",
			data: "fac_id,x,y,category,pop\nnan,0,0,pit,lots\n",
			wantID: "nan",
		},
	}
	for _, c := range cases {
		_, err := ReadFacilityCSV(strings.NewReader(c.data), eff)
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		dErr, ok := err.(DataError)
		if !ok {
			t.Errorf("%s: error %v is not a DataError", c.name, err)
		} else if dErr.ID != c.wantID {
			t.Errorf("%s: error names '%s', want '%s'", c.name, dErr.ID, c.wantID)
		}
	}

	if _, err := ReadFacilityCSV(strings.NewReader("fac_id,x,y,pop\nf1,0,0,5\n"), eff); err == nil {
		t.Error("missing category column: expected error")
	}
}

func TestReadReceptorCSV(t *testing.T) {
	const data = `rec_id,x,y,flux_lday,obs_conc
w1,10,10,1e6,120
w2,20,20,5e5,
`
	receptors, err := ReadReceptorCSV(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(receptors) != 2 {
		t.Fatalf("expected 2 receptors, got %d", len(receptors))
	}
	w1 := receptors[0]
	if w1.ID != "w1" || w1.WaterFlux != 1.e6 || w1.Observed != 120 || !w1.HasObservation() {
		t.Errorf("w1: %v", pretty.Sprint(w1))
	}
	w2 := receptors[1]
	if w2.ID != "w2" || !math.IsNaN(w2.Observed) || w2.HasObservation() {
		t.Errorf("w2 should be unmeasured: %v", pretty.Sprint(w2))
	}
}

func TestReadReceptorCSVErrors(t *testing.T) {
	cases := []struct {
		name, data, wantID string
	}{
		{
			name: "zero flux",
			data: "rec_id,x,y,flux_lday\ndry,0,0,0\n",
			wantID: "dry",
		},
		{
			name: "negative flux",
			data: "rec_id,x,y,flux_lday\nneg,0,0,-100\n",
			wantID: "neg",
		},
		{
			name: "missing flux",
			data: "rec_id,x,y,flux_lday\nempty,0,0,\n",
			wantID: "empty",
		},
	}
	for _, c := range cases {
		_, err := ReadReceptorCSV(strings.NewReader(c.data))
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		dErr, ok := err.(DataError)
		if !ok {
			t.Errorf("%s: error %v is not a DataError", c.name, err)
		} else if dErr.ID != c.wantID {
			t.Errorf("%s: error names '%s', want '%s'", c.name, dErr.ID, c.wantID)
		}
	}
}

func TestNewOutputter(t *testing.T) {
	good := map[string]string{
		"Conc":    "Conc",
		"LogConc": "log10(Conc)",
		"PerFlux": "Load / Flux",
	}
	if _, err := NewOutputter("out.shp", "", good, nil); err != nil {
		t.Errorf("valid output variables rejected: %v", err)
	}

	bad := map[string]string{"X": "Concentraton * 2"}
	if _, err := NewOutputter("out.shp", "", bad, nil); err == nil {
		t.Error("unknown value in output expression should be rejected")
	}

	unparseable := map[string]string{"X": "log10("}
	if _, err := NewOutputter("out.shp", "", unparseable, nil); err == nil {
		t.Error("unparseable output expression should be rejected")
	}
}

func TestWriteCSVRoundTrips(t *testing.T) {
	inv := NewInventory()
	inv.Add(&Facility{ID: "f1", Category: Pit, Population: 10, Efficiency: 0.15})
	receptors := []*Receptor{{ID: "w1", WaterFlux: 1.e6, Observed: math.NaN()}}
	c := &TransportConfig{ShedRate: 1.e9, DecayRate: 0.06, LinkRadius: 100}
	results, err := c.Concentrations(inv, receptors)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteConcentrationCSV(&buf, results); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("concentration CSV: expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "w1,") {
		t.Errorf("concentration CSV row: %s", lines[1])
	}

	buf.Reset()
	if err := WriteLinkCSV(&buf, results); err != nil {
		t.Fatal(err)
	}
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("link CSV: expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "f1,w1,") {
		t.Errorf("link CSV row: %s", lines[1])
	}

	buf.Reset()
	if err := WriteInventoryCSV(&buf, inv); err != nil {
		t.Fatal(err)
	}
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("inventory CSV: expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "f1,") {
		t.Errorf("inventory CSV row: %s", lines[1])
	}
}
