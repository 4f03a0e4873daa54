package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"simple-rpc/codec"
	"simple-rpc/message"
	"simple-rpc/protocol"
	"simple-rpc/registry"
)

// Server serves a Router over TCP.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (single goroutine reads frames)
//	  → for each request: go handleRequest (parallel processing)
//	    → Codec.Decode envelope → Router.Dispatch → Codec.Encode envelope → write response
type Server struct {
	router   *Router
	opts     options
	listener net.Listener
	wg       sync.WaitGroup // Tracks in-flight requests for graceful shutdown
	shutdown atomic.Bool    // Set to true during shutdown to suppress Accept errors

	registry      registry.Registry // nil if not using discovery
	advertiseAddr string            // Address published in the registry (e.g., "127.0.0.1:8080")
	ttl           int64

	mu        sync.Mutex
	conns     map[net.Conn]struct{}
	ready     chan struct{} // closed once the listener is set or listening failed
	readyOnce sync.Once
}

// NewServer creates a Server for router. Only WithCompression and WithLogger apply.
func NewServer(router *Router, opts ...Option) *Server {
	return &Server{
		router: router,
		opts:   newOptions("server", opts),
		conns:  make(map[net.Conn]struct{}),
		ready:  make(chan struct{}),
	}
}

// WithRegistry publishes every mounted service at advertiseAddr when Serve starts and
// withdraws them on Shutdown. advertiseAddr differs from the listen address because
// ":8080" is not routable for other hosts.
func (svr *Server) WithRegistry(reg registry.Registry, advertiseAddr string, ttl int64) *Server {
	svr.registry = reg
	svr.advertiseAddr = advertiseAddr
	svr.ttl = ttl
	return svr
}

// ListenAndServe listens on address and serves until Shutdown.
func (svr *Server) ListenAndServe(network, address string) error {
	listener, err := net.Listen(network, address)
	if err != nil {
		svr.readyOnce.Do(func() { close(svr.ready) })
		return err
	}
	return svr.Serve(listener)
}

// Serve registers the mounted services, if a registry is set, and enters the Accept loop.
// It returns nil after Shutdown.
func (svr *Server) Serve(listener net.Listener) error {
	svr.mu.Lock()
	svr.listener = listener
	svr.readyOnce.Do(func() { close(svr.ready) })
	if svr.shutdown.Load() {
		svr.mu.Unlock()
		listener.Close()
		return nil
	}
	svr.mu.Unlock()

	if svr.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		for _, info := range svr.router.Services() {
			inst := registry.NewInstance(info, svr.advertiseAddr)
			if err := svr.registry.Register(ctx, inst, svr.ttl); err != nil {
				cancel()
				listener.Close()
				return fmt.Errorf("register %s: %w", info.ProtoName, err)
			}
			svr.opts.logger.Info("registered", "service", info.ProtoName, "addr", svr.advertiseAddr, "id", inst.ID)
		}
		cancel()
	}

	// Accept loop: one goroutine per connection
	for {
		conn, err := listener.Accept()
		if err != nil {
			// During shutdown, listener.Close() causes Accept to return an error.
			if svr.shutdown.Load() {
				return nil
			}
			return err
		}
		svr.track(conn, true)
		go svr.handleConn(conn)
	}
}

// Addr returns the listen address, blocking until Serve has started. It returns nil
// when ListenAndServe failed to listen.
func (svr *Server) Addr() net.Addr {
	<-svr.ready
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.listener == nil {
		return nil
	}
	return svr.listener.Addr()
}

func (svr *Server) track(conn net.Conn, add bool) {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if add {
		svr.conns[conn] = struct{}{}
	} else {
		delete(svr.conns, conn)
	}
}

// handleConn processes a single TCP connection.
// It runs a read loop in a single goroutine (reads must be sequential to parse frame boundaries),
// but dispatches each request to its own goroutine for parallel processing.
//
// A per-connection write mutex (writeMu) is shared among all request goroutines on this connection.
// This prevents frame interleaving when multiple goroutines write responses concurrently.
func (svr *Server) handleConn(conn net.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		conn.Close()
		svr.track(conn, false)
	}()

	writeMu := &sync.Mutex{}
	for {
		header, body, err := protocol.Decode(conn)
		if err != nil {
			if !svr.shutdown.Load() && !errors.Is(err, net.ErrClosed) {
				svr.opts.logger.Debug("connection closed", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}

		// Skip heartbeat frames, they exist only to keep the connection alive
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}
		if header.MsgType != protocol.MsgTypeRequest {
			svr.opts.logger.Warn("unexpected frame", "type", header.MsgType, "remote", conn.RemoteAddr())
			continue
		}

		if !svr.beginRequest() {
			return
		}
		go svr.handleRequest(ctx, header, body, conn, writeMu)
	}
}

// beginRequest counts a request as in flight. It fails once shutdown has started, so
// no request is added while Shutdown waits.
func (svr *Server) beginRequest() bool {
	svr.mu.Lock()
	defer svr.mu.Unlock()
	if svr.shutdown.Load() {
		return false
	}
	svr.wg.Add(1)
	return true
}

// handleRequest processes a single request: decode → route → encode → write.
func (svr *Server) handleRequest(ctx context.Context, header *protocol.Header, body []byte, conn net.Conn, writeMu *sync.Mutex) {
	defer svr.wg.Done()

	c := codec.GetCodec(codec.CodecType(header.CodecType))
	reply := &message.RPCMessage{}

	plain, err := protocol.Unpack(header, body)
	if err == nil {
		var req message.RPCMessage
		if err = c.Decode(plain, &req); err == nil {
			reply.ServiceMethod = req.ServiceMethod
			reply.Payload, err = svr.router.Dispatch(ctx, req.ServiceMethod, req.Payload)
		} else {
			err = fmt.Errorf("malformed request envelope: %w", err)
		}
	}
	if err != nil {
		failure(reply, err)
	}

	result, err := c.Encode(reply)
	if err != nil {
		svr.opts.logger.Error("encode reply", "method", reply.ServiceMethod, "err", err)
		return
	}

	// Build response header, preserve the same Seq so the client can match it
	replyHeader := protocol.Header{
		CodecType: header.CodecType,
		MsgType:   protocol.MsgTypeResponse,
		Seq:       header.Seq,
	}
	result, err = protocol.Pack(&replyHeader, result, svr.opts.compress || header.Compressed)
	if err != nil {
		svr.opts.logger.Error("compress reply", "method", reply.ServiceMethod, "err", err)
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	if err := protocol.Encode(conn, &replyHeader, result); err != nil {
		svr.opts.logger.Debug("write reply", "method", reply.ServiceMethod, "err", err)
	}
}

// Shutdown performs graceful shutdown:
//  1. Deregister all services (clients stop routing to this server)
//  2. Set shutdown flag (so Accept error is recognized as intentional)
//  3. Close the listener (stop accepting new connections)
//  4. Wait for in-flight requests to finish (with timeout)
//  5. Close the remaining connections
func (svr *Server) Shutdown(timeout time.Duration) error {
	if svr.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		for _, info := range svr.router.Services() {
			if err := svr.registry.Deregister(ctx, info.ProtoName, svr.advertiseAddr); err != nil {
				svr.opts.logger.Warn("deregister", "service", info.ProtoName, "err", err)
			}
		}
		cancel()
	}

	// Set shutdown flag BEFORE closing listener, otherwise Serve reports the Accept error.
	svr.mu.Lock()
	svr.shutdown.Store(true)
	if svr.listener != nil {
		svr.listener.Close()
	}
	svr.mu.Unlock()

	done := make(chan struct{})
	go func() {
		svr.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("timeout waiting for ongoing requests to finish")
	}

	svr.mu.Lock()
	for conn := range svr.conns {
		conn.Close()
	}
	svr.mu.Unlock()
	return err
}
