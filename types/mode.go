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
	"fmt"
	"strings"
)

// Mode selects which side behaviours an analysis run performs.
type Mode uint8

const (
	// BasicAnalysis tracks handshakes, teardowns and flow byte counts.
	BasicAnalysis Mode = iota
	// DetailedAnalysis adds a trace line for every TCP packet.
	DetailedAnalysis
	// PossibleAttacksAnalysis additionally drives SYN flood detection.
	PossibleAttacksAnalysis
)

func (m Mode) String() string {
	switch m {
	case BasicAnalysis:
		return "BASIC_ANALYSIS"
	case DetailedAnalysis:
		return "DETAILED_ANALYSIS"
	case PossibleAttacksAnalysis:
		return "POSSIBLE_ATTACKS_ANALYSIS"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode accepts "basic", "detailed" or "attacks" (case insensitive) as
// well as the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic", "basic_analysis":
		return BasicAnalysis, nil
	case "detailed", "detailed_analysis":
		return DetailedAnalysis, nil
	case "attacks", "possible_attacks", "possible_attacks_analysis":
		return PossibleAttacksAnalysis, nil
	}
	return BasicAnalysis, fmt.Errorf("unknown analysis mode %q", s)
}
