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
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/liquidfortress/packetanalyzer/types"
)

// ConnState is the lifecycle state of a Connection. It is derived from
// which handshake and teardown steps have been recorded.
type ConnState uint8

const (
	TCP_INIT         ConnState = iota
	TCP_SYN_SENT               // step 1
	TCP_SYN_RECEIVED           // step 2
	TCP_ESTABLISHED            // step 3
	TCP_FIN_WAIT               // step 4
	TCP_CLOSE_WAIT             // step 5
	TCP_LAST_ACK               // step 6
	TCP_CLOSED                 // step 7, terminal
)

func (s ConnState) String() string {
	switch s {
	case TCP_INIT:
		return "INIT"
	case TCP_SYN_SENT:
		return "SYN_SENT"
	case TCP_SYN_RECEIVED:
		return "SYN_RECEIVED"
	case TCP_ESTABLISHED:
		return "ESTABLISHED"
	case TCP_FIN_WAIT:
		return "FIN_WAIT"
	case TCP_CLOSE_WAIT:
		return "CLOSE_WAIT"
	case TCP_LAST_ACK:
		return "LAST_ACK"
	case TCP_CLOSED:
		return "CLOSED"
	}
	return fmt.Sprintf("ConnState(%d)", uint8(s))
}

const (
	handshakeNotCompleted = "TCP Connection Handshake Not Completed"
	connectionNotClosed   = "TCP Connection Not Closed"
)

var (
	ErrConnectionClosed = errors.New("connection was previously closed")
	ErrAlreadyConnected = errors.New("connection was previously made")
	ErrNotConnected     = errors.New("connection was never made")
	ErrStepUnset        = errors.New("prerequisite step not yet set")
	ErrStepAlreadySet   = errors.New("step already set")
	ErrAckMismatch      = errors.New("unexpected acknowledgment number")
	ErrSeqMismatch      = errors.New("unexpected sequence number")
	ErrNegativeBytes    = errors.New("byte count must be non-negative")
)

// TransitionError reports why a Connection refused a step. The
// Connection is unchanged whenever one is returned.
type TransitionError struct {
	Step   int
	Err    error
	Detail string
}

func (e *TransitionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("step %d ignored: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %d ignored: %v: %s", e.Step, e.Err, e.Detail)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Connection records the progress of a single TCP connection: the three
// packets of the handshake, the four of the teardown and the number of
// bytes seen in between. Steps are only ever recorded in order and once
// the teardown completes the Connection no longer changes.
type Connection struct {
	client types.Endpoint
	server types.Endpoint
	log    *slog.Logger

	step1ClientSeq types.Step // chosen by client
	step2ServerAck types.Step // step1ClientSeq + 1
	step2ServerSeq types.Step // chosen by server
	step3ClientAck types.Step // step2ServerSeq + 1
	step3ClientSeq types.Step // step1ClientSeq + 1
	step4FinSeq    types.Step
	step5FinAck    types.Step
	step6FinSeq    types.Step
	step7FinAck    types.Step

	connected  bool
	closed     bool
	totalBytes uint64
}

// NewConnection returns a Connection between the given client and server.
// Rejected transitions are traced to logger at debug level; a nil logger
// discards them.
func NewConnection(client, server types.Endpoint, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = discardLogger()
	}
	return &Connection{
		client: client,
		server: server,
		log:    logger,
	}
}

func (c *Connection) Client() types.Endpoint {
	return c.client
}

func (c *Connection) Server() types.Endpoint {
	return c.server
}

// Key returns the client to server FlowKey the connection is tracked under.
func (c *Connection) Key() types.FlowKey {
	return types.NewFlowKey(c.client, c.server)
}

func (c *Connection) Step1() types.Step {
	return c.step1ClientSeq
}

// Step2 returns the server's SYN-ACK acknowledgment and sequence numbers.
func (c *Connection) Step2() (ack, seq types.Step) {
	return c.step2ServerAck, c.step2ServerSeq
}

// Step3 returns the client's final handshake acknowledgment and sequence numbers.
func (c *Connection) Step3() (ack, seq types.Step) {
	return c.step3ClientAck, c.step3ClientSeq
}

func (c *Connection) Step4() types.Step {
	return c.step4FinSeq
}

func (c *Connection) Step5() types.Step {
	return c.step5FinAck
}

func (c *Connection) Step6() types.Step {
	return c.step6FinSeq
}

func (c *Connection) Step7() types.Step {
	return c.step7FinAck
}

// Connected is true only after the handshake completed and before the
// teardown completed.
func (c *Connection) Connected() bool {
	return c.connected
}

func (c *Connection) Closed() bool {
	return c.closed
}

func (c *Connection) TotalBytes() uint64 {
	return c.totalBytes
}

// State returns the lifecycle state implied by the recorded steps.
func (c *Connection) State() ConnState {
	switch {
	case c.closed:
		return TCP_CLOSED
	case c.step6FinSeq.IsSet():
		return TCP_LAST_ACK
	case c.step5FinAck.IsSet():
		return TCP_CLOSE_WAIT
	case c.step4FinSeq.IsSet():
		return TCP_FIN_WAIT
	case c.connected:
		return TCP_ESTABLISHED
	case c.step2ServerSeq.IsSet():
		return TCP_SYN_RECEIVED
	case c.step1ClientSeq.IsSet():
		return TCP_SYN_SENT
	}
	return TCP_INIT
}

func (c *Connection) reject(step int, err error, detail string) error {
	e := &TransitionError{
		Step:   step,
		Err:    err,
		Detail: detail,
	}
	c.log.Debug("transition ignored", "flow", c.Key(), "state", c.State(), "reason", e.Error())
	return e
}

// checkHandshake holds the preconditions shared by steps 1 to 3.
func (c *Connection) checkHandshake(step int) error {
	if c.closed {
		return c.reject(step, ErrConnectionClosed, "")
	}
	if c.connected {
		return c.reject(step, ErrAlreadyConnected, "")
	}
	return nil
}

// checkTeardown holds the preconditions shared by steps 4 to 7: the
// connection is open and every earlier teardown step is recorded.
func (c *Connection) checkTeardown(step int) error {
	if c.closed {
		return c.reject(step, ErrConnectionClosed, "")
	}
	if !c.connected {
		return c.reject(step, ErrNotConnected, "")
	}
	prior := []types.Step{c.step4FinSeq, c.step5FinAck, c.step6FinSeq}
	for i := 0; i < step-4; i++ {
		if !prior[i].IsSet() {
			return c.reject(step, ErrStepUnset, fmt.Sprintf("step %d was not set", i+4))
		}
	}
	return nil
}

// SetStep1 records the client's initial sequence number from its SYN.
func (c *Connection) SetStep1(seq uint64) error {
	if err := c.checkHandshake(1); err != nil {
		return err
	}
	if c.step1ClientSeq.IsSet() {
		return c.reject(1, ErrStepAlreadySet, "")
	}
	c.step1ClientSeq = types.NewStep(seq)
	return nil
}

// SetStep2 records the server's SYN-ACK. ack must be the client's initial
// sequence number plus one.
func (c *Connection) SetStep2(ack, seq uint64) error {
	if err := c.checkHandshake(2); err != nil {
		return err
	}
	if !c.step1ClientSeq.IsSet() {
		return c.reject(2, ErrStepUnset, "step 1 client sequence number not yet set")
	}
	if c.step2ServerSeq.IsSet() {
		return c.reject(2, ErrStepAlreadySet, "")
	}
	if !c.step1ClientSeq.Next(ack) {
		return c.reject(2, ErrAckMismatch, fmt.Sprintf("got %d, want step 1 sequence %s + 1", ack, c.step1ClientSeq.Format("?")))
	}
	c.step2ServerAck = types.NewStep(ack)
	c.step2ServerSeq = types.NewStep(seq)
	return nil
}

// SetStep3 records the client's final handshake ACK and marks the
// connection established. ack must be the server's sequence number plus
// one and seq the client's initial sequence number plus one.
func (c *Connection) SetStep3(ack, seq uint64) error {
	if err := c.checkHandshake(3); err != nil {
		return err
	}
	if !c.step1ClientSeq.IsSet() {
		return c.reject(3, ErrStepUnset, "step 1 client sequence number not yet set")
	}
	if !c.step2ServerAck.IsSet() || !c.step2ServerSeq.IsSet() {
		return c.reject(3, ErrStepUnset, "step 2 server numbers not yet set")
	}
	if !c.step2ServerSeq.Next(ack) {
		return c.reject(3, ErrAckMismatch, fmt.Sprintf("got %d, want step 2 sequence %s + 1", ack, c.step2ServerSeq.Format("?")))
	}
	if !c.step1ClientSeq.Next(seq) {
		return c.reject(3, ErrSeqMismatch, fmt.Sprintf("got %d, want step 1 sequence %s + 1", seq, c.step1ClientSeq.Format("?")))
	}
	c.step3ClientAck = types.NewStep(ack)
	c.step3ClientSeq = types.NewStep(seq)
	c.connected = true
	return nil
}

// SetStep4 records the sequence number of the initiator's FIN.
func (c *Connection) SetStep4(seq uint64) error {
	if err := c.checkTeardown(4); err != nil {
		return err
	}
	if c.step4FinSeq.IsSet() {
		return c.reject(4, ErrStepAlreadySet, "")
	}
	c.step4FinSeq = types.NewStep(seq)
	return nil
}

// SetStep5 records the acknowledgment number of the receiver's ACK of
// the first FIN.
func (c *Connection) SetStep5(ack uint64) error {
	if err := c.checkTeardown(5); err != nil {
		return err
	}
	if c.step5FinAck.IsSet() {
		return c.reject(5, ErrStepAlreadySet, "")
	}
	c.step5FinAck = types.NewStep(ack)
	return nil
}

// SetStep6 records the sequence number of the receiver's FIN.
func (c *Connection) SetStep6(seq uint64) error {
	if err := c.checkTeardown(6); err != nil {
		return err
	}
	if c.step6FinSeq.IsSet() {
		return c.reject(6, ErrStepAlreadySet, "")
	}
	c.step6FinSeq = types.NewStep(seq)
	return nil
}

// SetStep5And6 records a receiver FIN+ACK that acknowledges the first
// FIN and closes its own side in one packet. Either both steps are
// recorded or neither is.
func (c *Connection) SetStep5And6(ack, seq uint64) error {
	if err := c.checkTeardown(5); err != nil {
		return err
	}
	if c.step5FinAck.IsSet() {
		return c.reject(5, ErrStepAlreadySet, "")
	}
	if c.step6FinSeq.IsSet() {
		return c.reject(6, ErrStepAlreadySet, "")
	}
	c.step5FinAck = types.NewStep(ack)
	c.step6FinSeq = types.NewStep(seq)
	return nil
}

// SetStep7 records the initiator's final ACK. The connection is closed
// afterwards and refuses all further changes.
func (c *Connection) SetStep7(ack uint64) error {
	if err := c.checkTeardown(7); err != nil {
		return err
	}
	c.step7FinAck = types.NewStep(ack)
	c.connected = false
	c.closed = true
	return nil
}

// AddBytes adds delta to the flow's byte total. Negative deltas are
// refused, as is any change to a closed connection.
func (c *Connection) AddBytes(delta int64) error {
	if c.closed {
		return ErrConnectionClosed
	}
	if delta < 0 {
		c.log.Debug("byte count ignored", "flow", c.Key(), "delta", delta)
		return ErrNegativeBytes
	}
	c.totalBytes += uint64(delta)
	return nil
}

// Report renders the connection's handshake and teardown details.
func (c *Connection) Report() string {
	var buffer bytes.Buffer
	buffer.WriteString(fmt.Sprintf("TCP Flow Details: %s => %s\n", c.client, c.server))
	buffer.WriteString("=== Connection Establishment Handshake Details ===\n")
	buffer.WriteString(fmt.Sprintf("Client SYN Sequence Number: %s\n", c.step1ClientSeq.Format(handshakeNotCompleted)))
	buffer.WriteString(fmt.Sprintf("Server SYN-ACK Acknowledge Number: %s\n", c.step2ServerAck.Format(handshakeNotCompleted)))
	buffer.WriteString(fmt.Sprintf("Server SYN-ACK Sequence Number: %s\n", c.step2ServerSeq.Format(handshakeNotCompleted)))
	buffer.WriteString(fmt.Sprintf("Client ACK Acknowledge Number: %s\n", c.step3ClientAck.Format(handshakeNotCompleted)))
	buffer.WriteString(fmt.Sprintf("Client ACK Sequence Number: %s\n", c.step3ClientSeq.Format(handshakeNotCompleted)))
	buffer.WriteString("=== Connection Termination Details ===\n")
	buffer.WriteString(fmt.Sprintf("Initiator FIN Sequence Number: %s\n", c.step4FinSeq.Format(connectionNotClosed)))
	buffer.WriteString(fmt.Sprintf("Receiver ACK Acknowledge Number: %s\n", c.step5FinAck.Format(connectionNotClosed)))
	buffer.WriteString(fmt.Sprintf("Receiver FIN Sequence Number: %s\n", c.step6FinSeq.Format(connectionNotClosed)))
	buffer.WriteString(fmt.Sprintf("Initiator ACK Acknowledge Number: %s\n", c.step7FinAck.Format(connectionNotClosed)))
	buffer.WriteString(fmt.Sprintf("=== Total Bytes in Flow: %d ===\n", c.totalBytes))
	return buffer.String()
}

func (c *Connection) String() string {
	return c.Report()
}
