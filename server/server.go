package server

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"kitsunedns/cache"
	"kitsunedns/dns"
	"kitsunedns/stats"
)

// Resolver produces an answer packet and address for a name and record type.
type Resolver interface {
	Resolve(name string, qtype dns.RecordType) (*dns.Packet, net.IP, error)
}

// Server answers DNS queries over UDP, serving from the cache and resolving
// misses through the Resolver.
type Server struct {
	port     int
	logger   logrus.FieldLogger
	stats    *stats.Stats
	cache    *cache.Cache
	resolver Resolver
	conn     *net.UDPConn
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewServer creates a new DNS server
func NewServer(port int, logger logrus.FieldLogger, st *stats.Stats, c *cache.Cache, r Resolver) *Server {
	return &Server{
		port:     port,
		logger:   logger,
		stats:    st,
		cache:    c,
		resolver: r,
		shutdown: make(chan struct{}),
	}
}

// Start binds the listening socket and begins serving in the background.
func (s *Server) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to resolve address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.conn = conn
	s.logger.Infof("DNS server listening on UDP port %d", s.Addr().Port)

	s.wg.Add(1)
	go s.handleRequests()

	return nil
}

// Addr returns the address the server is listening on, or nil before Start.
func (s *Server) Addr() *net.UDPAddr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Stop shuts the server down and waits for in-flight workers to finish.
// A worker stalled on a silent upstream nameserver stalls Stop with it.
func (s *Server) Stop() {
	close(s.shutdown)
	s.wg.Wait()
	if s.conn != nil {
		s.conn.Close()
	}
	s.logger.Info("DNS server stopped")
}

// handleRequests receives datagrams and hands each one to its own worker.
func (s *Server) handleRequests() {
	defer s.wg.Done()
	buffer := make([]byte, 1024)

	for {
		select {
		case <-s.shutdown:
			return
		default:
			s.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
			n, clientAddr, err := s.conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				s.logger.Errorf("Error reading from UDP: %v", err)
				continue
			}

			// The read buffer is reused, each worker gets its own copy.
			data := make([]byte, n)
			copy(data, buffer[:n])

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleRequest(data, clientAddr)
			}()
		}
	}
}

// handleRequest runs the full lifecycle of one query: decode, answer from
// the cache or resolve, re-encode, reply. Any failure is logged and the
// query is dropped without a reply, so the client sees a timeout rather
// than an error response.
func (s *Server) handleRequest(data []byte, clientAddr *net.UDPAddr) {
	startTime := time.Now()

	query, err := dns.ParseQuery(data)
	if err != nil {
		s.logger.Errorf("Error parsing query: %v", err)
		return
	}
	if len(query.Questions) == 0 {
		s.logger.Errorf("Query %d from %s carries no question", query.Header.ID, clientAddr)
		return
	}

	question := query.Questions[0]
	s.stats.RecordQuery(question.Name, question.Type)

	var resolvedIP net.IP
	response, hit, err := s.cache.Fetch(question.Name, func() (*dns.Packet, error) {
		packet, ip, err := s.resolver.Resolve(question.Name, question.Type)
		if err != nil {
			return nil, err
		}
		resolvedIP = ip
		return packet, nil
	})
	if err != nil {
		s.logger.Errorf("%v", err)
		s.stats.RecordResponse(false, time.Since(startTime))
		return
	}

	if hit {
		s.stats.RecordCacheHit()
		s.logger.Debugf("Answering %s for %s from cache", question.Name, clientAddr)
	} else {
		s.stats.RecordCacheMiss()
		s.logger.Debugf("Found IP %s for %s requested by %s", resolvedIP, question.Name, clientAddr)
	}

	// The same resolved packet answers every requester of this name; only
	// the transaction id is the client's own.
	response.Header.ID = query.Header.ID

	responseBytes, err := response.ToBytes()
	if err != nil {
		s.logger.Errorf("Error converting response to bytes: %v", err)
		s.stats.RecordResponse(false, time.Since(startTime))
		return
	}

	if _, err := s.conn.WriteToUDP(responseBytes, clientAddr); err != nil {
		s.logger.Errorf("Error sending response: %v", err)
		s.stats.RecordResponse(false, time.Since(startTime))
		return
	}

	s.stats.RecordResponse(true, time.Since(startTime))
}
