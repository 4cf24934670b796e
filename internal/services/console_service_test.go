package services_test

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"gpsbridge/internal/services"
	"gpsbridge/tests/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startConsole(t *testing.T, maxClients, queueSize int, powerCtl *mocks.FakePowerController) *services.ConsoleService {
	t.Helper()

	svc := services.NewConsoleService("127.0.0.1:0", maxClients, queueSize, powerCtl, zerolog.Nop())
	require.NoError(t, svc.Start())
	t.Cleanup(func() { svc.Stop() })
	return svc
}

func dialConsole(t *testing.T, svc *services.ConsoleService) net.Conn {
	t.Helper()

	addr := svc.Addr()
	require.NotNil(t, addr)
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, svc *services.ConsoleService, want int) {
	t.Helper()

	assert.Eventually(t, func() bool {
		return svc.Stats().Clients == want
	}, 2*time.Second, 10*time.Millisecond)
}

// TestConsoleService_StartStop tests the running state guards.
func TestConsoleService_StartStop(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	svc := services.NewConsoleService("127.0.0.1:0", 2, 4, powerCtl, zerolog.Nop())

	err := svc.Start()
	assert.NoError(t, err)

	err = svc.Start()
	assert.Error(t, err)
	assert.Equal(t, "console service is already running", err.Error())

	err = svc.Stop()
	assert.NoError(t, err)

	err = svc.Stop()
	assert.Error(t, err)
	assert.Equal(t, "console service is not running", err.Error())
}

// TestConsoleService_BroadcastReachesClient tests that receiver lines
// arrive CR/LF framed at an attached client.
func TestConsoleService_BroadcastReachesClient(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	svc := startConsole(t, 2, 16, powerCtl)
	conn := dialConsole(t, svc)
	waitForClients(t, svc, 1)

	svc.Broadcast("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	assert.NoError(t, err)
	assert.Equal(t, "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n", line)

	assert.Equal(t, uint64(1), svc.Stats().LinesOut)
}

// TestConsoleService_PowerBytes tests the single-byte power protocol:
// '1' switches the receiver on, '0' switches it off.
func TestConsoleService_PowerBytes(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	svc := startConsole(t, 2, 16, powerCtl)
	conn := dialConsole(t, svc)
	waitForClients(t, svc, 1)

	_, err := conn.Write([]byte{'1'})
	require.NoError(t, err)
	assert.Eventually(t, powerCtl.State, 2*time.Second, 10*time.Millisecond)

	_, err = conn.Write([]byte{'0'})
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return !powerCtl.State() }, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return svc.Stats().Commands == 2
	}, 2*time.Second, 10*time.Millisecond)
}

// TestConsoleService_IgnoresOtherBytes tests that anything other than
// '0' and '1' leaves the power rail alone.
func TestConsoleService_IgnoresOtherBytes(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	svc := startConsole(t, 2, 16, powerCtl)
	conn := dialConsole(t, svc)
	waitForClients(t, svc, 1)

	_, err := conn.Write([]byte("x9\r\n2"))
	require.NoError(t, err)
	_, err = conn.Write([]byte{'1'})
	require.NoError(t, err)

	// The '1' arrives after the noise, so once it has been applied the
	// earlier bytes are known to have been ignored.
	assert.Eventually(t, powerCtl.State, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, powerCtl.OnCalls())
	assert.Equal(t, 0, powerCtl.OffCalls())
}

// TestConsoleService_RejectsExcessClients tests the connection cap.
func TestConsoleService_RejectsExcessClients(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	svc := startConsole(t, 1, 4, powerCtl)

	first := dialConsole(t, svc)
	waitForClients(t, svc, 1)

	second := dialConsole(t, svc)
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := second.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF, "rejected connection should be closed by the server")

	assert.Equal(t, 1, svc.Stats().Clients)
	first.Close()
}

// TestConsoleService_SlowClientLosesLines tests that a client that never
// reads drops lines instead of stalling the broadcast path.
func TestConsoleService_SlowClientLosesLines(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	svc := startConsole(t, 2, 1, powerCtl)
	dialConsole(t, svc)
	waitForClients(t, svc, 1)

	// Big frames fill the client queue and both socket buffers long
	// before the loop ends, so later broadcasts must drop.
	line := strings.Repeat("A", 64*1024)
	for i := 0; i < 600; i++ {
		svc.Broadcast(line)
	}

	stats := svc.Stats()
	assert.Equal(t, uint64(600), stats.LinesOut)
	assert.Greater(t, stats.DroppedLines, uint64(0))
}

// TestConsoleService_StopDetachesClients tests that Stop closes attached
// connections.
func TestConsoleService_StopDetachesClients(t *testing.T) {
	powerCtl := mocks.NewFakePowerController(false)
	svc := startConsole(t, 2, 4, powerCtl)
	conn := dialConsole(t, svc)
	waitForClients(t, svc, 1)

	require.NoError(t, svc.Stop())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := conn.Read(make([]byte, 1))
	assert.Error(t, err)
	assert.Equal(t, 0, svc.Stats().Clients)
}
