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

import "fmt"

// ConfigError is returned when scenario, transport, or calibration
// configuration is outside its valid domain. It is always returned
// before any computation starts.
type ConfigError string

func (e ConfigError) Error() string {
	return "gwfio: invalid configuration: " + string(e)
}

// ConfigErrorf creates a ConfigError with a formatted message.
func ConfigErrorf(format string, args ...interface{}) ConfigError {
	return ConfigError(fmt.Sprintf(format, args...))
}

// DataError is returned when input data violates the model's
// requirements, for example a negative facility population or a
// receptor with non-positive water flux. ID identifies the offending
// facility or receptor.
type DataError struct {
	ID  string
	Msg string
}

func (e DataError) Error() string {
	return fmt.Sprintf("gwfio: invalid data for '%s': %s", e.ID, e.Msg)
}

// DataErrorf creates a DataError for the identifier id with a
// formatted message.
func DataErrorf(id, format string, args ...interface{}) DataError {
	return DataError{ID: id, Msg: fmt.Sprintf(format, args...)}
}
