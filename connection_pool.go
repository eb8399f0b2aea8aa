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

package packetanalyzer

import (
	"fmt"
	"log/slog"
	"net/netip"
	"sort"

	"github.com/liquidfortress/packetanalyzer/types"
)

// RegistrySummary is a snapshot of a ConnectionRegistry's counters.
type RegistrySummary struct {
	ActiveConnections      int
	ClosedConnections      int
	EstablishedConnections uint64
	UniqueAddresses        int
}

// ConnectionRegistry is used to track TCP connections of one capture.
// It keeps the in-progress connections keyed by their client to server
// FlowKey, the closed connections in the order they closed, the number
// of handshakes that completed and the set of IP addresses seen.
//
// Connections that never finish their handshake or teardown stay active
// for the lifetime of the registry. A ConnectionRegistry is not safe for
// concurrent use; each capture gets its own.
type ConnectionRegistry struct {
	active      map[types.FlowKey]*Connection
	closed      []*Connection
	established uint64
	addresses   map[netip.Addr]struct{}
	log         *slog.Logger
}

// NewConnectionRegistry returns a new, empty ConnectionRegistry
func NewConnectionRegistry(logger *slog.Logger) *ConnectionRegistry {
	if logger == nil {
		logger = discardLogger()
	}
	return &ConnectionRegistry{
		active:    make(map[types.FlowKey]*Connection),
		closed:    make([]*Connection, 0),
		addresses: make(map[netip.Addr]struct{}),
		log:       logger,
	}
}

// Has returns true if an active connection is tracked under key
func (r *ConnectionRegistry) Has(key types.FlowKey) bool {
	_, ok := r.active[key]
	return ok
}

// Get returns the active connection tracked under key. The reverse of
// key never matches.
func (r *ConnectionRegistry) Get(key types.FlowKey) (*Connection, bool) {
	conn, ok := r.active[key]
	return conn, ok
}

// Put starts tracking conn under its client to server FlowKey.
func (r *ConnectionRegistry) Put(conn *Connection) {
	key := conn.Key()
	if _, ok := r.active[key]; ok {
		r.log.Debug("replacing active connection", "flow", key)
	}
	r.active[key] = conn
}

// Close moves the closed connection tracked under key from the active
// map to the end of the closed list.
func (r *ConnectionRegistry) Close(key types.FlowKey) error {
	conn, ok := r.active[key]
	if !ok {
		return fmt.Errorf("no active connection for flow %s", key)
	}
	if !conn.Closed() {
		return fmt.Errorf("connection %s is in state %s, not closed", key, conn.State())
	}
	delete(r.active, key)
	r.closed = append(r.closed, conn)
	return nil
}

// Active returns the active connections ordered by FlowKey.
func (r *ConnectionRegistry) Active() []*Connection {
	conns := make([]*Connection, 0, len(r.active))
	for _, conn := range r.active {
		conns = append(conns, conn)
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].Key().String() < conns[j].Key().String()
	})
	return conns
}

func (r *ConnectionRegistry) ActiveCount() int {
	return len(r.active)
}

// Closed returns the closed connections in the order they closed.
func (r *ConnectionRegistry) Closed() []*Connection {
	conns := make([]*Connection, len(r.closed))
	copy(conns, r.closed)
	return conns
}

func (r *ConnectionRegistry) ClosedCount() int {
	return len(r.closed)
}

// IncrementEstablished counts one completed handshake.
func (r *ConnectionRegistry) IncrementEstablished() {
	r.established += 1
}

func (r *ConnectionRegistry) EstablishedCount() uint64 {
	return r.established
}

// AddAddress records an observed IP address and returns true if it had
// not been seen before.
func (r *ConnectionRegistry) AddAddress(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()
	if _, ok := r.addresses[addr]; ok {
		return false
	}
	r.addresses[addr] = struct{}{}
	return true
}

func (r *ConnectionRegistry) UniqueAddressCount() int {
	return len(r.addresses)
}

// TotalBytes sums the flow bytes of all active and closed connections.
func (r *ConnectionRegistry) TotalBytes() uint64 {
	var total uint64
	for _, conn := range r.active {
		total += conn.TotalBytes()
	}
	for _, conn := range r.closed {
		total += conn.TotalBytes()
	}
	return total
}

// Summary returns a snapshot of the registry's counters.
func (r *ConnectionRegistry) Summary() RegistrySummary {
	return RegistrySummary{
		ActiveConnections:      len(r.active),
		ClosedConnections:      len(r.closed),
		EstablishedConnections: r.established,
		UniqueAddresses:        len(r.addresses),
	}
}
