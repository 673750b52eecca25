package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/ratikiyer/hft-exchange/internal/common"
	"github.com/ratikiyer/hft-exchange/internal/engine"
)

const (
	maxRecvSize        = 4 * 1024
	defaultMaxConns    = 10
	defaultConnTimeout = 5 * time.Second
)

var ErrClientGone = errors.New("client connection no longer tracked")

// clientSession is the live connection behind one client address.
type clientSession struct {
	conn net.Conn
}

// clientMessage links a decoded message to the connection it arrived on.
type clientMessage struct {
	clientAddress string
	message       Message
}

// Server is the order-entry TCP front end. It decodes wire frames, converts
// them into engine.NOS/cancel calls, and writes ExecutionReports back to the
// originating connection.
type Server struct {
	address string
	port    int
	engine  *engine.MatchingEngine

	connSlots chan struct{}
	cancel    context.CancelFunc

	sessionsLock sync.Mutex
	sessions     map[string]clientSession

	inbound chan clientMessage
}

// New constructs a Server bound to address:port, dispatching decoded orders
// to eng. At most defaultMaxConns connections are served concurrently; an
// accepted connection beyond that blocks the accept loop until a slot frees
// up, which is the backpressure this front end offers instead of an
// unbounded goroutine-per-connection fan-out.
func New(address string, port int, eng *engine.MatchingEngine) *Server {
	return &Server{
		address:   address,
		port:      port,
		engine:    eng,
		connSlots: make(chan struct{}, defaultMaxConns),
		sessions:  make(map[string]clientSession),
		inbound:   make(chan clientMessage, 1),
	}
}

// Shutdown cancels the server's run context.
func (s *Server) Shutdown() {
	log.Info().Msg("order-entry server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections until ctx is cancelled, spawning one
// semaphore-gated goroutine per connection to decode frames and handing
// decoded messages to the session handler for engine dispatch.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start order-entry listener")
		return err
	}
	defer func() {
		if cerr := listener.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("order-entry server listening")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error().Err(err).Msg("error accepting client connection")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("client connected")
			s.addSession(conn)

			select {
			case s.connSlots <- struct{}{}:
			case <-t.Dying():
				s.closeSession(conn)
				return nil
			}
			t.Go(func() error {
				defer func() { <-s.connSlots }()
				s.serveConnection(t, conn)
				return nil
			})
		}
	}
}

// serveConnection owns conn for its lifetime: it loops reading and
// dispatching frames until the connection errors (including the read
// deadline expiring) or t starts dying. A malformed frame is answered with
// an error report and the loop goes on reading. Unlike a shared worker pool pulling reconnection tasks
// off a channel, one goroutine here stays pinned to one connection for as
// long as it's alive.
func (s *Server) serveConnection(t *tomb.Tomb, conn net.Conn) {
	defer s.closeSession(conn)

	buf := make([]byte, maxRecvSize)
	for {
		select {
		case <-t.Dying():
			return
		default:
		}

		if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed setting read deadline")
			return
		}

		n, err := conn.Read(buf)
		if err != nil {
			log.Info().Err(err).Str("address", conn.RemoteAddr().String()).Msg("client connection closed")
			return
		}

		msg, err := parseMessage(buf[:n])
		if err != nil {
			log.Warn().Err(err).Str("address", conn.RemoteAddr().String()).Msg("malformed message")
			conn.Write(errorReportWire(common.NilOrderID, err))
			continue
		}

		s.inbound <- clientMessage{
			clientAddress: conn.RemoteAddr().String(),
			message:       msg,
		}
	}
}

// sessionHandler drains decoded messages and dispatches each to the engine,
// serialized through this single goroutine so per-symbol book access stays
// single-writer regardless of how many connections are active.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.inbound:
			s.dispatch(msg)
		}
	}
}

func (s *Server) dispatch(cm clientMessage) {
	switch m := cm.message.(type) {
	case NewOrderMessage:
		report := s.engine.OnNOS(m.NOS())
		s.writeReport(cm.clientAddress, m.Side, report)
	case CancelOrderMessage:
		if err := s.engine.CancelOrder(m.Symbol, m.OrderID); err != nil {
			log.Warn().Err(err).Str("address", cm.clientAddress).Msg("cancel failed")
			s.writeError(cm.clientAddress, m.OrderID, err)
		}
	case LogBookMessage:
		s.logBooks()
	default:
		log.Error().Str("address", cm.clientAddress).Msg("unhandled message type reached dispatch")
	}
}

func (s *Server) writeReport(clientAddress string, side common.Side, report engine.ExecutionReport) {
	s.sessionsLock.Lock()
	session, ok := s.sessions[clientAddress]
	s.sessionsLock.Unlock()
	if !ok {
		log.Warn().Str("address", clientAddress).Msg("no session to deliver report to")
		return
	}
	if _, err := session.conn.Write(executionReportWire(side, report)); err != nil {
		log.Error().Err(err).Str("address", clientAddress).Msg("failed writing execution report")
		s.deleteSession(clientAddress)
	}
}

func (s *Server) writeError(clientAddress string, id common.OrderID, err error) {
	s.sessionsLock.Lock()
	session, ok := s.sessions[clientAddress]
	s.sessionsLock.Unlock()
	if !ok {
		return
	}
	if _, werr := session.conn.Write(errorReportWire(id, err)); werr != nil {
		s.deleteSession(clientAddress)
	}
}

func (s *Server) logBooks() {
	for _, b := range s.engine.Snapshot() {
		bid, hasBid := b.BestBid()
		ask, hasAsk := b.BestAsk()
		log.Info().
			Str("symbol", b.Symbol).
			Bool("hasBid", hasBid).
			Uint32("bestBid", bid).
			Bool("hasAsk", hasAsk).
			Uint32("bestAsk", ask).
			Msg("book snapshot")
	}
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) deleteSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.sessions, address)
}

func (s *Server) closeSession(conn net.Conn) {
	address := conn.RemoteAddr().String()
	s.deleteSession(address)
	if err := conn.Close(); err != nil {
		log.Debug().Err(err).Str("address", address).Msg("error closing connection")
	}
}
