package ipc

import (
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/kartikbazzad/tskv/internal/logger"
)

// Server accepts connections on a unix socket (and optionally TCP) and runs
// request frames through the handler. One goroutine per connection;
// requests on a connection are served in order.
type Server struct {
	mu        sync.Mutex
	handler   *Handler
	logger    *logger.Logger
	listeners []net.Listener
	conns     map[net.Conn]struct{}
	stopped   bool
	wg        sync.WaitGroup
}

// NewServer creates a server over the given handler.
func NewServer(h *Handler, log *logger.Logger) *Server {
	return &Server{
		handler: h,
		logger:  log,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen starts accepting on the unix socket path and, when tcpPort is
// non-zero, on localhost TCP.
func (s *Server) Listen(socketPath string, tcpPort int) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return err
	}
	ul, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	s.addListener(ul)

	if tcpPort > 0 {
		tl, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", tcpPort))
		if err != nil {
			ul.Close()
			return err
		}
		s.addListener(tl)
	}

	s.mu.Lock()
	listeners := append([]net.Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l := l
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.acceptLoop(l)
		}()
		s.logger.Info("listening on %s", l.Addr())
	}
	return nil
}

func (s *Server) addListener(l net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Server) acceptLoop(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			s.logger.Warn("accept: %v", err)
			continue
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	log := s.logger.With("conn", conn.RemoteAddr())

	for {
		frame, err := ReadRequest(conn)
		if err != nil {
			if err != io.EOF {
				log.Debug("read: %v", err)
			}
			return
		}

		resp := s.handler.Handle(frame)
		if err := WriteResponse(conn, resp); err != nil {
			log.Debug("write: %v", err)
			return
		}
	}
}

// Stop closes the listeners and all live connections, then waits for the
// connection goroutines.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	listeners := s.listeners
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l.Close()
	}
	for _, c := range conns {
		c.Close()
	}
	s.wg.Wait()

	s.logger.Info("ipc server stopped")
}
