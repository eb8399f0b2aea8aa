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
	"log/slog"

	"github.com/liquidfortress/packetanalyzer/types"
)

// PacketDispatcher classifies each decoded TCP packet against the phase
// of the connection it belongs to and applies the matching transition.
// Packets must be handed to Process one at a time in capture order.
//
// The dispatcher never fails: packets that fit no transition are
// absorbed and traced at debug level.
type PacketDispatcher struct {
	registry *ConnectionRegistry
	detector *SynFloodDetector
	mode     types.Mode
	log      *slog.Logger
}

// NewPacketDispatcher returns a dispatcher feeding registry. detector is
// only used in PossibleAttacksAnalysis mode and may be nil otherwise.
func NewPacketDispatcher(registry *ConnectionRegistry, detector *SynFloodDetector, mode types.Mode, logger *slog.Logger) *PacketDispatcher {
	if logger == nil {
		logger = discardLogger()
	}
	return &PacketDispatcher{
		registry: registry,
		detector: detector,
		mode:     mode,
		log:      logger,
	}
}

func (d *PacketDispatcher) Mode() types.Mode {
	return d.mode
}

func (d *PacketDispatcher) detectAttacks() bool {
	return d.mode == types.PossibleAttacksAnalysis && d.detector != nil
}

// Process applies one packet to the registry.
//
// The packet's own FlowKey is looked up first. On a miss a bare SYN opens
// a new connection under that key; any other packet is tried against the
// reversed key, which is how the server's replies reach the connection
// its client opened.
func (d *PacketDispatcher) Process(p *types.TcpPacket) {
	d.trace(p)
	d.registry.AddAddress(p.Flow.Src.Addr)
	d.registry.AddAddress(p.Flow.Dst.Addr)

	key := p.Flow
	conn, ok := d.registry.Get(key)
	if !ok {
		if p.IsBareSyn() {
			d.openConnection(p)
			return
		}
		key = p.Flow.Reverse()
		conn, ok = d.registry.Get(key)
		if !ok {
			d.log.Debug("packet ignored: no connection", "flow", p.Flow, "flags", p.Flags(), "packet", p.Number)
			return
		}
	}

	switch {
	case conn.Closed():
		// closed connections leave the active map at step 7, so the key
		// is free again
		if p.IsBareSyn() && key == p.Flow {
			d.openConnection(p)
		}
	case !conn.Connected():
		d.handshake(conn, p)
	default:
		d.teardown(key, conn, p)
	}
}

func (d *PacketDispatcher) trace(p *types.TcpPacket) {
	if d.mode == types.DetailedAnalysis {
		d.log.Info("TCP", "packet", p.Number, "source", p.Flow.Src, "destination", p.Flow.Dst, "SYN", p.SYN, "ACK", p.ACK, "FIN", p.FIN, "seq", p.Seq, "ack", p.Ack, "length", p.Length)
		return
	}
	d.log.Debug("TCP", "packet", p.Number, "flow", p.Flow, "flags", p.Flags(), "seq", p.Seq, "ack", p.Ack, "length", p.Length)
}

func (d *PacketDispatcher) addBytes(conn *Connection, p *types.TcpPacket) {
	if err := conn.AddBytes(int64(p.Length)); err != nil {
		d.log.Debug("bytes ignored", "flow", conn.Key(), "reason", err)
	}
}

func (d *PacketDispatcher) ignored(conn *Connection, p *types.TcpPacket, err error) {
	d.log.Debug("packet ignored", "flow", conn.Key(), "packet", p.Number, "flags", p.Flags(), "reason", err)
}

// openConnection handles step 1: a client SYN for a flow with no record.
func (d *PacketDispatcher) openConnection(p *types.TcpPacket) {
	conn := NewConnection(p.Flow.Src, p.Flow.Dst, d.log)
	if err := conn.SetStep1(p.Seq); err != nil {
		d.ignored(conn, p, err)
		return
	}
	d.addBytes(conn, p)
	d.registry.Put(conn)
	if d.detectAttacks() {
		d.detector.Detect(conn.Server(), NewPacketMetadata(p), d.registry.Summary())
	}
}

// handshake handles steps 2 and 3.
func (d *PacketDispatcher) handshake(conn *Connection, p *types.TcpPacket) {
	switch {
	case p.SYN && p.ACK: // step 2: server SYN-ACK
		err := conn.SetStep2(p.Ack, p.Seq)
		d.addBytes(conn, p)
		if err != nil {
			d.ignored(conn, p, err)
			return
		}
		if d.detectAttacks() {
			step1, _ := conn.Step1().Value()
			d.detector.AckReceived(conn.Server(), PacketMetadata{
				Flow:      conn.Key(),
				Seq:       step1,
				Length:    p.Length,
				Timestamp: p.Timestamp,
				Number:    p.Number,
			})
		}
	case p.ACK && !p.SYN: // step 3: client ACK
		err := conn.SetStep3(p.Ack, p.Seq)
		d.addBytes(conn, p)
		if err != nil {
			d.ignored(conn, p, err)
			return
		}
		d.registry.IncrementEstablished()
		d.log.Debug("connected", "flow", conn.Key(), "packet", p.Number)
	default:
		d.log.Debug("packet ignored during handshake", "flow", conn.Key(), "packet", p.Number, "flags", p.Flags())
	}
}

// teardown handles steps 4 to 7. The first rule whose flags and
// recorded steps match wins; anything else only counts its bytes. The
// final ACK is counted before it closes the connection.
func (d *PacketDispatcher) teardown(key types.FlowKey, conn *Connection, p *types.TcpPacket) {
	var err error
	step4 := conn.Step4().IsSet()
	step5 := conn.Step5().IsSet()
	step6 := conn.Step6().IsSet()
	step7 := conn.Step7().IsSet()

	switch {
	case p.FIN && !step4: // step 4: initiator FIN
		err = conn.SetStep4(p.Seq)
	case p.ACK && !p.FIN && step4 && !step5: // step 5: receiver ACK
		err = conn.SetStep5(p.Ack)
	case p.FIN && !p.ACK && step5 && !step6: // step 6: receiver FIN
		err = conn.SetStep6(p.Seq)
	case p.FIN && p.ACK && step4 && !step5 && !step6: // steps 5 and 6 in one FIN+ACK
		err = conn.SetStep5And6(p.Ack, p.Seq)
	case p.ACK && !p.FIN && step5 && step6 && !step7: // step 7: initiator ACK
		d.addBytes(conn, p)
		err = conn.SetStep7(p.Ack)
		if err != nil {
			d.ignored(conn, p, err)
			return
		}
		if err := d.registry.Close(key); err != nil {
			d.log.Error("closing connection", "flow", key, "error", err)
			return
		}
		d.log.Debug("closed", "flow", key, "packet", p.Number, "bytes", conn.TotalBytes())
		return
	}
	d.addBytes(conn, p)
	if err != nil {
		d.ignored(conn, p, err)
	}
}
