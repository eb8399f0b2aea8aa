/*
 *    packetanalyzer, passive TCP connection and SYN flood analysis
 *
 *    Copyright (C) 2026  The packetanalyzer Authors
 *
 *    This program is free software: you can redistribute it and/or modify
 *    it under the terms of the GNU General Public License as published by
 *    the Free Software Foundation, either version 3 of the License, or
 *    (at your option) any later version.
 *
 *    This program is distributed in the hope that it will be useful,
 *    but WITHOUT ANY WARRANTY; without even the implied warranty of
 *    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *    GNU General Public License for more details.
 *
 *    You should have received a copy of the GNU General Public License
 *    along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package drivers

import (
	"sort"

	"github.com/liquidfortress/packetanalyzer/types"
)

// Drivers maps a DAQ name to the factory opening capture files with it.
var Drivers = map[string]func(*types.SnifferDriverOptions) (types.PacketDataSourceCloser, error){}

// SnifferRegister makes a capture file driver available by the provided name.
// If SnifferRegister is called twice with the same name or if driver is nil, it panics.
func SnifferRegister(name string, packetDataSourceCloserFactory func(*types.SnifferDriverOptions) (types.PacketDataSourceCloser, error)) {
	if packetDataSourceCloserFactory == nil {
		panic("sniffer: packetDataSourceCloserFactory is nil")
	}
	if _, dup := Drivers[name]; dup {
		panic("sniffer: Register called twice for sniffer " + name)
	}
	Drivers[name] = packetDataSourceCloserFactory
}

// Names returns the registered driver names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Drivers))
	for name := range Drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
