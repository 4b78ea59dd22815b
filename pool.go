package minidb

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxConnections bounds the total number of connections a pool
	// will ever create.
	DefaultMaxConnections = 10

	// DefaultAcquireTimeout bounds how long Acquire waits for a connection
	// to be returned when the pool is at capacity.
	DefaultAcquireTimeout = 30 * time.Second
)

// StoreOpener creates the Store behind a new pooled connection. Whether the
// connections share one on-disk store or each get their own is the caller's
// decision; both Pebble and bbolt lock their files, so opening the same
// path from two connections will fail at creation time.
type StoreOpener func() (Store, error)

// Connection wraps one Store handle together with pool bookkeeping.
type Connection struct {
	store    Store
	inUse    bool
	lastUsed time.Time
}

// Store returns the Store handle held by the connection. It is only valid
// while the connection is leased.
func (c *Connection) Store() Store { return c.store }

func (c *Connection) close() error {
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

type PoolOption func(*ConnectionPool)

// WithMaxConnections sets the pool capacity.
func WithMaxConnections(n int) PoolOption {
	return func(p *ConnectionPool) {
		if n > 0 {
			p.max = n
		}
	}
}

// WithAcquireTimeout sets how long Acquire blocks for a returned connection
// when the pool is at capacity.
func WithAcquireTimeout(d time.Duration) PoolOption {
	return func(p *ConnectionPool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPoolLogger sets the pool's logger.
func WithPoolLogger(log Logger) PoolOption {
	return func(p *ConnectionPool) {
		if log != nil {
			p.log = log
		}
	}
}

// ConnectionPool hands out exclusive leases on Store-backed connections,
// creating them lazily up to a fixed capacity.
type ConnectionPool struct {
	open    StoreOpener
	max     int
	timeout time.Duration
	log     Logger

	ready chan *Connection

	mu     sync.Mutex
	conns  []*Connection // every connection ever created
	closed bool
}

// NewConnectionPool creates a pool over the given opener. No connection is
// created until the first Acquire.
func NewConnectionPool(open StoreOpener, opts ...PoolOption) *ConnectionPool {
	p := &ConnectionPool{
		open:    open,
		max:     DefaultMaxConnections,
		timeout: DefaultAcquireTimeout,
		log:     defaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ready = make(chan *Connection, p.max)
	return p
}

// Acquire leases a connection. The ready queue is polled first, then a
// fresh connection is created if the pool is below capacity, and only at
// capacity does Acquire block, up to the acquire timeout, for a connection
// to be returned before failing with ErrMaxConnections. A closed pool
// fails fast with ErrPoolClosed.
func (p *ConnectionPool) Acquire() (*Connection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	select {
	case conn := <-p.ready:
		conn.inUse = true
		return conn, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if len(p.conns) < p.max {
		store, err := p.open()
		if err != nil {
			p.mu.Unlock()
			return nil, fmt.Errorf("failed to create connection: %w", err)
		}
		conn := &Connection{store: store, inUse: true}
		p.conns = append(p.conns, conn)
		total := len(p.conns)
		p.mu.Unlock()
		p.log.Info("created new connection", "total", total)
		return conn, nil
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case conn := <-p.ready:
		conn.inUse = true
		return conn, nil
	case <-timer.C:
		return nil, ErrMaxConnections
	}
}

// Release returns a leased connection to the pool. If the ready queue is
// unexpectedly full the connection is closed with a warning rather than
// retried.
func (p *ConnectionPool) Release(conn *Connection) {
	if conn == nil {
		return
	}
	conn.inUse = false
	conn.lastUsed = time.Now()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case p.ready <- conn:
	case <-timer.C:
		p.log.Warn("connection pool full when returning connection, closing it")
		if err := conn.close(); err != nil {
			p.log.Error("error closing overflow connection", "error", err)
		}
	}
}

// WithConnection runs fn with a leased connection, releasing it on every
// exit path.
func (p *ConnectionPool) WithConnection(fn func(conn *Connection) error) error {
	conn, err := p.Acquire()
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}

// Close shuts the pool down: it drains the ready queue closing each
// connection, then closes every connection ever created (warning about
// those still leased), and marks the pool closed so subsequent Acquire
// calls fail. Close is idempotent; per-connection close failures are logged
// and do not stop the shutdown.
func (p *ConnectionPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conns := p.conns
	p.mu.Unlock()

	p.log.Info("closing connection pool", "connections", len(conns))

	for {
		select {
		case <-p.ready:
			// Closed below through the full roster.
			continue
		default:
		}
		break
	}

	for _, conn := range conns {
		if conn.inUse {
			p.log.Warn("closing in-use connection")
		}
		if err := conn.close(); err != nil {
			p.log.Error("error closing connection", "error", err)
		}
	}
	return nil
}
