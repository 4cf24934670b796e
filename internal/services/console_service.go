package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"gpsbridge/internal/constants"
	"gpsbridge/internal/models"
	"gpsbridge/pkg/power"
)

// consoleClient is one attached console connection. Lines are queued
// into send; the done channel stops the write loop without ever closing
// send, so a concurrent Broadcast can never hit a closed channel.
type consoleClient struct {
	id        string
	conn      net.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *consoleClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// ConsoleService exposes the receiver console over TCP. Every line from
// the receiver is fanned out to all attached clients, and single bytes
// from clients drive the power rail: '1' powers the receiver on, '0'
// powers it off, everything else is ignored. A slow client loses lines
// rather than stalling the feed.
type ConsoleService struct {
	listenAddr string
	maxClients int
	queueSize  int
	powerCtl   power.Controller
	logger     zerolog.Logger

	clients  cmap.ConcurrentMap[string, *consoleClient]
	listener net.Listener

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	acceptWG  sync.WaitGroup
	clientsWG sync.WaitGroup

	linesOut     atomic.Uint64
	droppedLines atomic.Uint64
	commands     atomic.Uint64
}

// NewConsoleService creates the console listener.
func NewConsoleService(listenAddr string, maxClients, queueSize int, powerCtl power.Controller, logger zerolog.Logger) *ConsoleService {
	return &ConsoleService{
		listenAddr: listenAddr,
		maxClients: maxClients,
		queueSize:  queueSize,
		powerCtl:   powerCtl,
		logger:     logger,
		clients:    cmap.New[*consoleClient](),
	}
}

// Start begins accepting console connections.
func (c *ConsoleService) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx != nil {
		return errors.New("console service is already running")
	}
	listener, err := net.Listen("tcp", c.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.listenAddr, err)
	}
	c.listener = listener
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.acceptWG.Add(1)
	go c.acceptLoop()
	c.logger.Info().Str("listen", c.listenAddr).Msg("Console listening")
	return nil
}

// Stop closes the listener and detaches every client.
func (c *ConsoleService) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return errors.New("console service is not running")
	}
	c.cancel()
	c.listener.Close()
	c.acceptWG.Wait()

	for item := range c.clients.IterBuffered() {
		item.Val.close()
	}
	c.clients.Clear()
	c.clientsWG.Wait()

	c.ctx = nil
	c.cancel = nil
	c.listener = nil
	c.logger.Info().Msg("Console stopped")
	return nil
}

// Addr returns the bound listener address, or nil while stopped. With a
// ":0" listen address this is where the ephemeral port shows up.
func (c *ConsoleService) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

func (c *ConsoleService) acceptLoop() {
	defer c.acceptWG.Done()
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			c.logger.Warn().Err(err).Msg("Console accept failed")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		c.attach(conn)
	}
}

func (c *ConsoleService) attach(conn net.Conn) {
	if c.clients.Count() >= c.maxClients {
		c.logger.Warn().Str("remote", conn.RemoteAddr().String()).Msg("Console full, rejecting connection")
		conn.Close()
		return
	}
	client := &consoleClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, c.queueSize),
		done: make(chan struct{}),
	}
	c.clients.Set(client.id, client)
	c.logger.Info().Str("client_id", client.id).Str("remote", conn.RemoteAddr().String()).Msg("Console client attached")

	c.clientsWG.Add(2)
	go c.writeLoop(client)
	go c.readLoop(client)
}

func (c *ConsoleService) writeLoop(client *consoleClient) {
	defer c.clientsWG.Done()
	for {
		select {
		case <-client.done:
			return
		case frame := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if _, err := client.conn.Write(frame); err != nil {
				c.detach(client)
				return
			}
		}
	}
}

func (c *ConsoleService) readLoop(client *consoleClient) {
	defer c.clientsWG.Done()
	reader := bufio.NewReader(client.conn)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			c.detach(client)
			return
		}
		c.handleCommandByte(client, b)
	}
}

// handleCommandByte applies the single-byte console protocol.
func (c *ConsoleService) handleCommandByte(client *consoleClient, b byte) {
	switch b {
	case constants.ConsoleBytePowerOn:
		c.commands.Add(1)
		if err := c.powerCtl.On(); err != nil {
			c.logger.Error().Err(err).Str("client_id", client.id).Msg("Console power on failed")
			return
		}
		c.logger.Info().Str("client_id", client.id).Msg("Receiver powered on from console")
	case constants.ConsoleBytePowerOff:
		c.commands.Add(1)
		if err := c.powerCtl.Off(); err != nil {
			c.logger.Error().Err(err).Str("client_id", client.id).Msg("Console power off failed")
			return
		}
		c.logger.Info().Str("client_id", client.id).Msg("Receiver powered off from console")
	default:
		// every other byte is ignored, as on the original control UART
	}
}

func (c *ConsoleService) detach(client *consoleClient) {
	if _, ok := c.clients.Pop(client.id); !ok {
		return
	}
	client.close()
	c.logger.Info().Str("client_id", client.id).Msg("Console client detached")
}

// Broadcast queues one receiver line to every attached client. Clients
// whose queue is full skip the line.
func (c *ConsoleService) Broadcast(line string) {
	c.linesOut.Add(1)
	if c.clients.Count() == 0 {
		return
	}
	frame := append([]byte(line), '\r', '\n')
	for item := range c.clients.IterBuffered() {
		select {
		case item.Val.send <- frame:
		default:
			c.droppedLines.Add(1)
		}
	}
}

// Stats returns the console counters.
func (c *ConsoleService) Stats() models.ConsoleStats {
	return models.ConsoleStats{
		Clients:      c.clients.Count(),
		LinesOut:     c.linesOut.Load(),
		DroppedLines: c.droppedLines.Load(),
		Commands:     c.commands.Load(),
	}
}
