package packetanalyzer

import (
	"errors"
	"testing"

	"github.com/liquidfortress/packetanalyzer/types"
)

var (
	clientA = types.MustParseEndpoint("10.0.0.1:1234")
	serverB = types.MustParseEndpoint("10.0.0.2:80")
)

func connectedConnection(t *testing.T) *Connection {
	t.Helper()
	conn := NewConnection(clientA, serverB, nil)
	if err := conn.SetStep1(100); err != nil {
		t.Fatal(err)
	}
	if err := conn.SetStep2(101, 500); err != nil {
		t.Fatal(err)
	}
	if err := conn.SetStep3(501, 101); err != nil {
		t.Fatal(err)
	}
	return conn
}

func assertRejected(t *testing.T, err error, step int, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Errorf("got %v, want %v", err, want)
		return
	}
	var transitionErr *TransitionError
	if errors.As(err, &transitionErr) && transitionErr.Step != step {
		t.Errorf("rejection names step %d, want %d", transitionErr.Step, step)
	}
}

func TestConnectionHandshake(t *testing.T) {
	conn := NewConnection(clientA, serverB, nil)
	if conn.State() != TCP_INIT || conn.Connected() || conn.Closed() {
		t.Error("new connection must be idle")
	}
	if conn.Key() != types.NewFlowKey(clientA, serverB) {
		t.Errorf("unexpected key %s", conn.Key())
	}

	if err := conn.SetStep1(100); err != nil {
		t.Fatal(err)
	}
	if conn.State() != TCP_SYN_SENT {
		t.Errorf("state %s after SYN", conn.State())
	}
	if err := conn.SetStep2(101, 500); err != nil {
		t.Fatal(err)
	}
	if conn.State() != TCP_SYN_RECEIVED {
		t.Errorf("state %s after SYN-ACK", conn.State())
	}
	if err := conn.SetStep3(501, 101); err != nil {
		t.Fatal(err)
	}
	if !conn.Connected() || conn.State() != TCP_ESTABLISHED {
		t.Errorf("state %s after ACK", conn.State())
	}
	ack, seq := conn.Step3()
	if v, _ := ack.Value(); v != 501 {
		t.Errorf("step 3 ack %d", v)
	}
	if v, _ := seq.Value(); v != 101 {
		t.Errorf("step 3 seq %d", v)
	}
}

func TestConnectionHandshakeChecks(t *testing.T) {
	conn := NewConnection(clientA, serverB, nil)
	assertRejected(t, conn.SetStep2(1, 500), 2, ErrStepUnset)
	assertRejected(t, conn.SetStep3(501, 1), 3, ErrStepUnset)

	conn.SetStep1(100)
	assertRejected(t, conn.SetStep1(200), 1, ErrStepAlreadySet)
	if v, _ := conn.Step1().Value(); v != 100 {
		t.Error("step 1 overwritten")
	}

	assertRejected(t, conn.SetStep2(100, 500), 2, ErrAckMismatch)
	ack, seq := conn.Step2()
	if ack.IsSet() || seq.IsSet() {
		t.Error("rejected step 2 mutated the connection")
	}
	assertRejected(t, conn.SetStep3(501, 101), 3, ErrStepUnset)

	conn.SetStep2(101, 500)
	assertRejected(t, conn.SetStep2(101, 600), 2, ErrStepAlreadySet)
	assertRejected(t, conn.SetStep3(502, 101), 3, ErrAckMismatch)
	assertRejected(t, conn.SetStep3(501, 100), 3, ErrSeqMismatch)
	if conn.Connected() {
		t.Error("rejected step 3 connected the connection")
	}

	conn.SetStep3(501, 101)
	assertRejected(t, conn.SetStep3(501, 101), 3, ErrAlreadyConnected)
	assertRejected(t, conn.SetStep1(1), 1, ErrAlreadyConnected)
}

func TestConnectionTeardownRequiresConnection(t *testing.T) {
	conn := NewConnection(clientA, serverB, nil)
	conn.SetStep1(100)
	assertRejected(t, conn.SetStep4(1), 4, ErrNotConnected)
	assertRejected(t, conn.SetStep7(1), 7, ErrNotConnected)
	if conn.Step4().IsSet() || conn.Closed() {
		t.Error("teardown applied to an unconnected connection")
	}
}

func TestConnectionFourWayTeardown(t *testing.T) {
	conn := connectedConnection(t)
	assertRejected(t, conn.SetStep5(901), 5, ErrStepUnset)
	assertRejected(t, conn.SetStep6(700), 6, ErrStepUnset)
	assertRejected(t, conn.SetStep7(701), 7, ErrStepUnset)

	if err := conn.SetStep4(900); err != nil {
		t.Fatal(err)
	}
	if conn.State() != TCP_FIN_WAIT {
		t.Errorf("state %s after FIN", conn.State())
	}
	assertRejected(t, conn.SetStep4(901), 4, ErrStepAlreadySet)
	assertRejected(t, conn.SetStep6(700), 6, ErrStepUnset)

	if err := conn.SetStep5(901); err != nil {
		t.Fatal(err)
	}
	if conn.State() != TCP_CLOSE_WAIT {
		t.Errorf("state %s after ACK of FIN", conn.State())
	}
	assertRejected(t, conn.SetStep7(701), 7, ErrStepUnset)

	if err := conn.SetStep6(700); err != nil {
		t.Fatal(err)
	}
	if conn.State() != TCP_LAST_ACK {
		t.Errorf("state %s after second FIN", conn.State())
	}

	if err := conn.SetStep7(701); err != nil {
		t.Fatal(err)
	}
	if !conn.Closed() || conn.Connected() || conn.State() != TCP_CLOSED {
		t.Errorf("state %s after last ACK", conn.State())
	}
}

func TestConnectionCombinedFinAck(t *testing.T) {
	conn := connectedConnection(t)
	assertRejected(t, conn.SetStep5And6(901, 700), 5, ErrStepUnset)

	conn.SetStep4(900)
	if err := conn.SetStep5And6(901, 700); err != nil {
		t.Fatal(err)
	}
	if v, _ := conn.Step5().Value(); v != 901 {
		t.Errorf("step 5 %d", v)
	}
	if v, _ := conn.Step6().Value(); v != 700 {
		t.Errorf("step 6 %d", v)
	}
	if err := conn.SetStep7(701); err != nil {
		t.Fatal(err)
	}
	if !conn.Closed() {
		t.Error("connection not closed")
	}
}

func TestConnectionCombinedFinAckIsAtomic(t *testing.T) {
	conn := connectedConnection(t)
	conn.SetStep4(900)
	conn.SetStep5(901)
	assertRejected(t, conn.SetStep5And6(999, 700), 5, ErrStepAlreadySet)
	if conn.Step6().IsSet() {
		t.Error("step 6 recorded although step 5 was refused")
	}
	if v, _ := conn.Step5().Value(); v != 901 {
		t.Error("step 5 overwritten")
	}
}

func TestClosedConnectionIsImmutable(t *testing.T) {
	conn := connectedConnection(t)
	conn.AddBytes(60)
	conn.SetStep4(900)
	conn.SetStep5And6(901, 700)
	conn.SetStep7(701)
	report := conn.Report()

	assertRejected(t, conn.SetStep1(1), 1, ErrConnectionClosed)
	assertRejected(t, conn.SetStep2(2, 2), 2, ErrConnectionClosed)
	assertRejected(t, conn.SetStep3(3, 3), 3, ErrConnectionClosed)
	assertRejected(t, conn.SetStep4(4), 4, ErrConnectionClosed)
	assertRejected(t, conn.SetStep5(5), 5, ErrConnectionClosed)
	assertRejected(t, conn.SetStep6(6), 6, ErrConnectionClosed)
	assertRejected(t, conn.SetStep5And6(5, 6), 5, ErrConnectionClosed)
	assertRejected(t, conn.SetStep7(7), 7, ErrConnectionClosed)
	if err := conn.AddBytes(10); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("AddBytes on closed connection: %v", err)
	}

	if conn.Report() != report || conn.TotalBytes() != 60 {
		t.Error("closed connection changed")
	}
}

func TestConnectionAddBytes(t *testing.T) {
	conn := NewConnection(clientA, serverB, nil)
	if err := conn.AddBytes(40); err != nil {
		t.Fatal(err)
	}
	if err := conn.AddBytes(0); err != nil {
		t.Fatal(err)
	}
	if err := conn.AddBytes(-5); !errors.Is(err, ErrNegativeBytes) {
		t.Errorf("negative delta accepted: %v", err)
	}
	if conn.TotalBytes() != 40 {
		t.Errorf("total bytes %d, want 40", conn.TotalBytes())
	}
}

func TestConnectionReport(t *testing.T) {
	conn := NewConnection(clientA, serverB, nil)
	want := `TCP Flow Details: 10.0.0.1:1234 => 10.0.0.2:80
=== Connection Establishment Handshake Details ===
Client SYN Sequence Number: TCP Connection Handshake Not Completed
Server SYN-ACK Acknowledge Number: TCP Connection Handshake Not Completed
Server SYN-ACK Sequence Number: TCP Connection Handshake Not Completed
Client ACK Acknowledge Number: TCP Connection Handshake Not Completed
Client ACK Sequence Number: TCP Connection Handshake Not Completed
=== Connection Termination Details ===
Initiator FIN Sequence Number: TCP Connection Not Closed
Receiver ACK Acknowledge Number: TCP Connection Not Closed
Receiver FIN Sequence Number: TCP Connection Not Closed
Initiator ACK Acknowledge Number: TCP Connection Not Closed
=== Total Bytes in Flow: 0 ===
`
	if conn.Report() != want {
		t.Errorf("unexpected report\n%s", conn.Report())
	}

	conn = connectedConnection(t)
	conn.AddBytes(120)
	conn.SetStep4(0)
	want = `TCP Flow Details: 10.0.0.1:1234 => 10.0.0.2:80
=== Connection Establishment Handshake Details ===
Client SYN Sequence Number: 100
Server SYN-ACK Acknowledge Number: 101
Server SYN-ACK Sequence Number: 500
Client ACK Acknowledge Number: 501
Client ACK Sequence Number: 101
=== Connection Termination Details ===
Initiator FIN Sequence Number: 0
Receiver ACK Acknowledge Number: TCP Connection Not Closed
Receiver FIN Sequence Number: TCP Connection Not Closed
Initiator ACK Acknowledge Number: TCP Connection Not Closed
=== Total Bytes in Flow: 120 ===
`
	if conn.String() != want {
		t.Errorf("unexpected report\n%s", conn)
	}
}
