// Package transport is the reference TCP Handler: it carries raw calls between a
// client.Client and a server.Server running in different processes.
//
// ClientTransport enables multiple concurrent calls over a single TCP connection.
// Each request gets a unique sequence ID, and a background goroutine (recvLoop)
// continuously reads responses and routes them to the correct caller via pending channels.
//
//	goroutine-1 ──Call(seq=1)──┐
//	goroutine-2 ──Call(seq=2)──┼──→ single TCP conn ──→ Server
//	goroutine-3 ──Call(seq=3)──┘
//
//	recvLoop:  ←── response(seq=2) → pending[2] chan ← response → goroutine-2 wakes up
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"simple-rpc/codec"
	"simple-rpc/message"
	"simple-rpc/protocol"

	"github.com/charmbracelet/log"
)

// ErrClosed is returned for calls on a transport whose connection is gone.
var ErrClosed = errors.New("transport: connection closed")

// DefaultHeartbeat is the interval between heartbeat frames.
const DefaultHeartbeat = 30 * time.Second

type options struct {
	codec     codec.CodecType
	compress  bool
	heartbeat time.Duration
	logger    *log.Logger
}

// Option configures a ClientTransport or a Server.
type Option func(*options)

// WithCodec sets the envelope codec. The default is codec.CodecTypeBinary.
func WithCodec(t codec.CodecType) Option {
	return func(o *options) {
		o.codec = t
	}
}

// WithCompression zstd-compresses frame bodies of at least protocol.CompressThreshold bytes.
func WithCompression(on bool) Option {
	return func(o *options) {
		o.compress = on
	}
}

// WithHeartbeat sets the heartbeat interval. Zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(o *options) {
		o.heartbeat = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(prefix string, opts []Option) options {
	o := options{codec: codec.CodecTypeBinary, heartbeat: DefaultHeartbeat}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.WithPrefix(prefix)
	}
	return o
}

// response is what a pending caller receives: a decoded envelope or a failure.
type response struct {
	msg *message.RPCMessage
	err error
}

// ClientTransport manages a single multiplexed TCP connection.
type ClientTransport struct {
	conn    net.Conn   // Underlying TCP connection
	opts    options    // codec, compression, heartbeat, logger
	seq     uint32     // Monotonically increasing sequence number (protected by sending mutex)
	pending sync.Map   // map[uint32]chan response, each request waits on its own channel
	sending sync.Mutex // Write lock, writes must be serialized to prevent frame interleaving

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to addr and wraps the connection in a ClientTransport.
func Dial(ctx context.Context, addr string, opts ...Option) (*ClientTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClientTransport(conn, opts...), nil
}

// NewClientTransport creates a transport for the given connection and starts two background goroutines:
//   - recvLoop: continuously reads responses from the connection and dispatches to pending callers
//   - heartbeatLoop: sends periodic heartbeat frames to detect dead connections
func NewClientTransport(conn net.Conn, opts ...Option) *ClientTransport {
	t := &ClientTransport{
		conn:   conn,
		opts:   newOptions("transport", opts),
		closed: make(chan struct{}),
	}
	go t.recvLoop()
	if t.opts.heartbeat > 0 {
		go t.heartbeatLoop(t.opts.heartbeat)
	}
	return t
}

// Call sends payload to serviceMethod ("<service>/<method>") and waits for the reply.
// A failure reported by the peer is returned as *RemoteError. When ctx ends first the
// pending call is dropped and a late reply is discarded.
func (t *ClientTransport) Call(ctx context.Context, serviceMethod string, payload []byte) ([]byte, error) {
	seq, ch, err := t.send(serviceMethod, payload)
	if err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.err != nil {
			return nil, resp.err
		}
		if resp.msg.Failed() {
			return nil, remoteError(resp.msg)
		}
		return resp.msg.Payload, nil
	case <-ctx.Done():
		t.pending.Delete(seq)
		return nil, ctx.Err()
	}
}

// send serializes and sends one request frame.
// Returns the sequence number and a channel that will receive the response.
func (t *ClientTransport) send(serviceMethod string, payload []byte) (uint32, <-chan response, error) {
	rpcMessage := message.RPCMessage{
		ServiceMethod: serviceMethod,
		Payload:       payload,
	}
	body, err := codec.GetCodec(t.opts.codec).Encode(&rpcMessage)
	if err != nil {
		return 0, nil, err
	}
	header := protocol.Header{
		CodecType: byte(t.opts.codec),
		MsgType:   protocol.MsgTypeRequest,
	}
	body, err = protocol.Pack(&header, body, t.opts.compress)
	if err != nil {
		return 0, nil, err
	}

	t.sending.Lock()
	defer t.sending.Unlock()

	select {
	case <-t.closed:
		return 0, nil, t.closeErr
	default:
	}

	// Assign a unique sequence number for this request (protected by sending mutex)
	t.seq++
	header.Seq = t.seq

	// Register a response channel BEFORE sending (avoid race with recvLoop)
	respChan := make(chan response, 1) // Buffered to prevent recvLoop from blocking
	t.pending.Store(header.Seq, respChan)

	if err := protocol.Encode(t.conn, &header, body); err != nil {
		t.pending.Delete(header.Seq)
		t.shutdown(err)
		return 0, nil, fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return header.Seq, respChan, nil
}

// recvLoop runs in a dedicated goroutine, continuously reading responses from the connection.
// For each response, it looks up the sequence number in the pending map, finds the caller's
// channel, and sends the response. Responses can arrive in any order.
//
// TCP is a byte stream, reads must be sequential to correctly parse frame boundaries.
func (t *ClientTransport) recvLoop() {
	for {
		header, body, err := protocol.Decode(t.conn)
		if err != nil {
			// Connection broken, notify all pending callers
			t.shutdown(err)
			return
		}
		if header.MsgType != protocol.MsgTypeResponse {
			continue
		}

		channel, ok := t.pending.LoadAndDelete(header.Seq)
		if !ok {
			t.opts.logger.Debug("dropping reply for abandoned call", "seq", header.Seq)
			continue
		}
		channel.(chan response) <- decodeResponse(header, body)
	}
}

func decodeResponse(header *protocol.Header, body []byte) response {
	plain, err := protocol.Unpack(header, body)
	if err != nil {
		return response{err: err}
	}
	var msg message.RPCMessage
	if err := codec.GetCodec(codec.CodecType(header.CodecType)).Decode(plain, &msg); err != nil {
		return response{err: fmt.Errorf("malformed response envelope: %w", err)}
	}
	return response{msg: &msg}
}

// shutdown closes the connection once and fails every pending caller so they don't
// block forever waiting for a response.
func (t *ClientTransport) shutdown(cause error) {
	t.closeOnce.Do(func() {
		t.closeErr = fmt.Errorf("%w: %v", ErrClosed, cause)
		close(t.closed)
		t.conn.Close()
	})
	t.pending.Range(func(key, _ any) bool {
		if channel, ok := t.pending.LoadAndDelete(key); ok {
			channel.(chan response) <- response{err: t.closeErr}
		}
		return true
	})
}

// Close closes the connection. Pending calls fail with ErrClosed.
func (t *ClientTransport) Close() error {
	t.shutdown(errors.New("closed by client"))
	return nil
}

// Done is closed once the connection is gone.
func (t *ClientTransport) Done() <-chan struct{} {
	return t.closed
}

// Conn returns the underlying TCP connection.
func (t *ClientTransport) Conn() net.Conn {
	return t.conn
}

// heartbeatLoop sends periodic heartbeat frames to keep the connection alive.
// Heartbeat frames have MsgType=Heartbeat and no body, so they're very lightweight.
func (t *ClientTransport) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.closed:
			return
		case <-ticker.C:
		}
		header := &protocol.Header{MsgType: protocol.MsgTypeHeartbeat, CodecType: byte(t.opts.codec)}
		// Heartbeat writes also need the sending lock to avoid frame interleaving
		t.sending.Lock()
		err := protocol.Encode(t.conn, header, nil)
		t.sending.Unlock()
		if err != nil {
			t.shutdown(err)
			return
		}
	}
}
