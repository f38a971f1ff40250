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
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/ctessum/geom"
)

func TestTransportSingleLink(t *testing.T) {
	// One facility emitting 1e9 organisms/day at 10 m from the
	// receptor, k = 0.06 /m, flux = 1e6 L/day:
	// surviving load = 1e9 exp(-0.6), concentration = load/flux*0.1.
	inv := NewInventory()
	inv.Add(&Facility{Point: geom.Point{X: 0, Y: 0}, ID: "f1", Category: OpenDefecation, Population: 1, Efficiency: 0})
	receptors := []*Receptor{
		{Point: geom.Point{X: 10, Y: 0}, ID: "w1", WaterFlux: 1.e6, Observed: math.NaN()},
	}
	c := &TransportConfig{ShedRate: 1.e9, DecayRate: 0.06, LinkRadius: 50}

	results, err := c.Concentrations(inv, receptors)
	if err != nil {
		t.Fatal(err)
	}
	if len(results.Receptors) != 1 {
		t.Fatalf("expected 1 receptor result, got %d", len(results.Receptors))
	}
	rr := results.Receptors[0]
	if len(rr.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(rr.Links))
	}
	l := rr.Links[0]
	if l.FacilityID != "f1" || l.ReceptorID != "w1" {
		t.Errorf("link IDs: %+v", l)
	}
	if !closeEnough(l.Distance, 10, 1.e-12) {
		t.Errorf("link distance = %g, want 10", l.Distance)
	}
	wantWeight := math.Exp(-0.6) // 0.548811636...
	if !closeEnough(l.DecayWeight, wantWeight, 1.e-12) {
		t.Errorf("decay weight = %g, want %g", l.DecayWeight, wantWeight)
	}
	wantLoad := 1.e9 * wantWeight
	if !closeEnough(rr.SurvivingLoad, wantLoad, 1.e-12) {
		t.Errorf("surviving load = %g, want %g", rr.SurvivingLoad, wantLoad)
	}
	wantConc := wantLoad / 1.e6 * 0.1
	if !closeEnough(rr.Concentration, wantConc, 1.e-12) {
		t.Errorf("concentration = %g, want %g", rr.Concentration, wantConc)
	}
	if !closeEnough(results.TotalEmitted, 1.e9, 1.e-12) {
		t.Errorf("total emitted = %g, want 1e9", results.TotalEmitted)
	}
}

func TestTransportDecayMonotonic(t *testing.T) {
	// Surviving load decreases strictly with distance and with the
	// decay rate.
	inv := NewInventory()
	inv.Add(&Facility{Point: geom.Point{X: 0, Y: 0}, ID: "f1", Category: Pit, Population: 10, Efficiency: 0.15})
	receptors := []*Receptor{
		{Point: geom.Point{X: 5, Y: 0}, ID: "near", WaterFlux: 1.e6, Observed: math.NaN()},
		{Point: geom.Point{X: 40, Y: 0}, ID: "mid", WaterFlux: 1.e6, Observed: math.NaN()},
		{Point: geom.Point{X: 90, Y: 0}, ID: "far", WaterFlux: 1.e6, Observed: math.NaN()},
	}

	var prevConc []float64
	for _, k := range []float64{0.01, 0.05, 0.2} {
		c := &TransportConfig{ShedRate: 1.e10, DecayRate: k, LinkRadius: 100}
		results, err := c.Concentrations(inv, receptors)
		if err != nil {
			t.Fatal(err)
		}
		var conc []float64
		for i, rr := range results.Receptors {
			if rr.Receptor.ID != receptors[i].ID {
				t.Fatalf("result order changed: %s at index %d", rr.Receptor.ID, i)
			}
			conc = append(conc, rr.Concentration)
		}
		for i := 1; i < len(conc); i++ {
			if conc[i] >= conc[i-1] {
				t.Errorf("k=%g: concentration not decreasing with distance: %v", k, conc)
			}
		}
		if prevConc != nil {
			for i := range conc {
				if conc[i] >= prevConc[i] {
					t.Errorf("receptor %s: concentration not decreasing with k: %g >= %g",
						receptors[i].ID, conc[i], prevConc[i])
				}
			}
		}
		prevConc = conc
	}
}

func TestTransportLinkRadius(t *testing.T) {
	inv := NewInventory()
	inv.Add(&Facility{Point: geom.Point{X: 0, Y: 0}, ID: "in", Category: Pit, Population: 10, Efficiency: 0})
	// Inside the receptor's bounding box but outside the radius:
	// distance is 90*sqrt(2) ≈ 127 m.
	inv.Add(&Facility{Point: geom.Point{X: 90, Y: 90}, ID: "corner", Category: Pit, Population: 10, Efficiency: 0})
	inv.Add(&Facility{Point: geom.Point{X: 500, Y: 0}, ID: "out", Category: Pit, Population: 10, Efficiency: 0})
	receptors := []*Receptor{
		{Point: geom.Point{X: 30, Y: 0}, ID: "w1", WaterFlux: 1.e6, Observed: math.NaN()},
		{Point: geom.Point{X: 1.e4, Y: 1.e4}, ID: "lonely", WaterFlux: 1.e6, Observed: math.NaN()},
	}
	c := &TransportConfig{ShedRate: 1.e9, DecayRate: 0.06, LinkRadius: 100}

	results, err := c.Concentrations(inv, receptors)
	if err != nil {
		t.Fatal(err)
	}
	w1 := results.Receptors[0]
	if len(w1.Links) != 1 || w1.Links[0].FacilityID != "in" {
		t.Errorf("expected only facility 'in' linked to w1, got %+v", w1.Links)
	}
	lonely := results.Receptors[1]
	if len(lonely.Links) != 0 {
		t.Errorf("expected no links for isolated receptor, got %d", len(lonely.Links))
	}
	if lonely.SurvivingLoad != 0 || lonely.Concentration != 0 {
		t.Errorf("isolated receptor: load = %g, conc = %g; want zeros",
			lonely.SurvivingLoad, lonely.Concentration)
	}
}

func TestTransportDilution(t *testing.T) {
	// Concentration scales inversely with water flux: conc * flux is
	// the same for co-located receptors.
	inv := NewInventory()
	inv.Add(&Facility{Point: geom.Point{X: 0, Y: 0}, ID: "f1", Category: Septic, Population: 100, Efficiency: 0.3})
	receptors := []*Receptor{
		{Point: geom.Point{X: 20, Y: 0}, ID: "small", WaterFlux: 1.e5, Observed: math.NaN()},
		{Point: geom.Point{X: 20, Y: 0}, ID: "large", WaterFlux: 1.e7, Observed: math.NaN()},
	}
	c := &TransportConfig{ShedRate: 1.e10, DecayRate: 0.06, LinkRadius: 100}

	results, err := c.Concentrations(inv, receptors)
	if err != nil {
		t.Fatal(err)
	}
	conc := results.Concentrations()
	if conc["small"] <= conc["large"] {
		t.Errorf("less flux should mean more concentration: %g <= %g", conc["small"], conc["large"])
	}
	if !closeEnough(conc["small"]*1.e5, conc["large"]*1.e7, 1.e-12) {
		t.Errorf("conc*flux differs: %g != %g", conc["small"]*1.e5, conc["large"]*1.e7)
	}
}

func TestTransportMatchesBruteForce(t *testing.T) {
	// The r-tree linking must agree with a direct all-pairs
	// calculation on a randomized facility field.
	rng := rand.New(rand.NewSource(1))
	inv := NewInventory()
	for i := 0; i < 200; i++ {
		inv.Add(&Facility{
			Point:      geom.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000},
			ID:         fmt.Sprintf("f%03d", i),
			Category:   Categories[i%len(Categories)],
			Population: 1 + rng.Float64()*50,
			Efficiency: rng.Float64(),
		})
	}
	var receptors []*Receptor
	for i := 0; i < 50; i++ {
		receptors = append(receptors, &Receptor{
			Point:     geom.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000},
			ID:        fmt.Sprintf("w%02d", i),
			WaterFlux: 1.e5 + rng.Float64()*1.e6,
			Observed:  math.NaN(),
		})
	}
	c := &TransportConfig{ShedRate: 1.e9, DecayRate: 0.02, LinkRadius: 120}

	results, err := c.Concentrations(inv, receptors)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range receptors {
		var want float64
		var nLinks int
		for _, f := range inv.Rows() {
			d := math.Hypot(r.X-f.X, r.Y-f.Y)
			if d > c.LinkRadius {
				continue
			}
			nLinks++
			want += f.EmittedLoad(c.ShedRate) * math.Exp(-c.DecayRate*d)
		}
		rr := results.Receptors[i]
		if len(rr.Links) != nLinks {
			t.Errorf("receptor %s: %d links, want %d", r.ID, len(rr.Links), nLinks)
		}
		if !closeEnough(rr.SurvivingLoad, want, 1.e-9) {
			t.Errorf("receptor %s: surviving load %g, want %g", r.ID, rr.SurvivingLoad, want)
		}
	}
}

func TestTransportValidation(t *testing.T) {
	goodInv := func() *Inventory {
		inv := NewInventory()
		inv.Add(&Facility{ID: "f1", Category: Pit, Population: 10, Efficiency: 0.15})
		return inv
	}
	goodReceptors := func() []*Receptor {
		return []*Receptor{{ID: "w1", WaterFlux: 1.e6, Observed: math.NaN()}}
	}

	configs := []TransportConfig{
		{ShedRate: 0, DecayRate: 0.06, LinkRadius: 100},
		{ShedRate: -1, DecayRate: 0.06, LinkRadius: 100},
		{ShedRate: 1.e9, DecayRate: -0.1, LinkRadius: 100},
		{ShedRate: 1.e9, DecayRate: 0.06, LinkRadius: 0},
		{ShedRate: math.NaN(), DecayRate: 0.06, LinkRadius: 100},
	}
	for _, c := range configs {
		if _, err := c.Concentrations(goodInv(), goodReceptors()); err == nil {
			t.Errorf("config %+v: expected error", c)
		} else if _, ok := err.(ConfigError); !ok {
			t.Errorf("config %+v: error %v is not a ConfigError", c, err)
		}
	}

	c := &TransportConfig{ShedRate: 1.e9, DecayRate: 0.06, LinkRadius: 100}

	badInv := NewInventory()
	badInv.Add(&Facility{ID: "bad", Category: Pit, Population: -5, Efficiency: 0.15})
	if _, err := c.Concentrations(badInv, goodReceptors()); err == nil {
		t.Error("negative population: expected error")
	} else if dErr, ok := err.(DataError); !ok || dErr.ID != "bad" {
		t.Errorf("negative population: error %v should be a DataError naming 'bad'", err)
	}

	badReceptors := []*Receptor{{ID: "dry", WaterFlux: 0, Observed: math.NaN()}}
	if _, err := c.Concentrations(goodInv(), badReceptors); err == nil {
		t.Error("zero flux: expected error")
	} else if dErr, ok := err.(DataError); !ok || dErr.ID != "dry" {
		t.Errorf("zero flux: error %v should be a DataError naming 'dry'", err)
	}
}

func TestResultsTables(t *testing.T) {
	inv := NewInventory()
	inv.Add(&Facility{Point: geom.Point{X: 0, Y: 0}, ID: "f1", Category: Pit, Population: 10, Efficiency: 0})
	inv.Add(&Facility{Point: geom.Point{X: 5, Y: 0}, ID: "f2", Category: Septic, Population: 20, Efficiency: 0.3})
	receptors := []*Receptor{
		{Point: geom.Point{X: 10, Y: 0}, ID: "w1", WaterFlux: 1.e6, Observed: math.NaN()},
		{Point: geom.Point{X: 12, Y: 0}, ID: "w2", WaterFlux: 1.e6, Observed: math.NaN()},
	}
	c := &TransportConfig{ShedRate: 1.e9, DecayRate: 0.06, LinkRadius: 100}
	results, err := c.Concentrations(inv, receptors)
	if err != nil {
		t.Fatal(err)
	}
	conc := results.Concentrations()
	if len(conc) != 2 {
		t.Errorf("expected 2 concentrations, got %d", len(conc))
	}
	for _, id := range []string{"w1", "w2"} {
		if _, ok := conc[id]; !ok {
			t.Errorf("missing concentration for %s", id)
		}
	}
	if links := results.Links(); len(links) != 4 {
		t.Errorf("expected 4 links, got %d", len(links))
	}
}
