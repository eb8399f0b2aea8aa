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

package types

import (
	"strconv"
)

// Step is one recorded TCP sequence or acknowledgment number of a
// connection's handshake or teardown. The zero Step is unset.
//
// Sequence numbers are 32 bit on the wire and are widened to uint64 so that
// the +1 arithmetic used by the handshake checks has no sign ambiguity.
// No modulo 2^32 wraparound is applied.
type Step struct {
	value uint64
	valid bool
}

// NewStep returns a set Step holding v.
func NewStep(v uint64) Step {
	return Step{value: v, valid: true}
}

// Value returns the stored number and whether the step is set.
func (s Step) Value() (uint64, bool) {
	return s.value, s.valid
}

// IsSet reports whether the step has been recorded.
func (s Step) IsSet() bool {
	return s.valid
}

// Next reports whether v is exactly one past the stored number.
// An unset step never has a successor.
func (s Step) Next(v uint64) bool {
	return s.valid && v == s.value+1
}

// Format renders the stored number, or placeholder when unset.
func (s Step) Format(placeholder string) string {
	if !s.valid {
		return placeholder
	}
	return strconv.FormatUint(s.value, 10)
}
