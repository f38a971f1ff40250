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

package calib

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes the ranked calibration report to w, one row per grid
// point, for consumption by external reporting and visualization
// layers. Undefined metrics appear as "NaN"; failed grid points carry
// their error message in the last column.
func (rep *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"rank", "decay_rate", "shed_rate",
		"eff_sewered", "eff_septic", "eff_pit", "eff_open_defecation",
		"n_matched", "spearman_rho", "kendall_tau", "pearson_r_log", "rmse_log",
		"slope_log", "intercept_log", "r_squared_log", "error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for i, r := range rep.Records {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		row := []string{
			strconv.Itoa(i + 1),
			ff(r.Params.DecayRate),
			ff(r.Params.ShedRate),
			ff(r.Params.Efficiencies.Sewered),
			ff(r.Params.Efficiencies.Septic),
			ff(r.Params.Efficiencies.Pit),
			ff(r.Params.Efficiencies.OpenDefecation),
			strconv.Itoa(r.Metrics.N),
			ff(r.Metrics.SpearmanRho),
			ff(r.Metrics.KendallTau),
			ff(r.Metrics.PearsonLogR),
			ff(r.Metrics.RMSELog),
			ff(r.Metrics.Slope),
			ff(r.Metrics.Intercept),
			ff(r.Metrics.RSquared),
			errMsg,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
