package source

import (
	"io"
	"sync"
)

// DefaultPumpSize is the buffer size used by NewPump when none is given
const DefaultPumpSize = 1460

// Pump turns a blocking io.Reader such as a network connection into a
// non-blocking source. A goroutine reads ahead into a bounded buffer which
// Available and Read then drain without waiting.
type Pump struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	size   int
	err    error
	closed bool
}

// NewPump starts reading from r into a buffer of at most size bytes
func NewPump(r io.Reader, size int) *Pump {
	if size <= 0 {
		size = DefaultPumpSize
	}
	p := &Pump{
		buf:  make([]byte, 0, size),
		size: size,
	}
	p.cond = sync.NewCond(&p.mu)
	go p.run(r)
	return p
}

func (p *Pump) run(r io.Reader) {
	tmp := make([]byte, p.size)
	for {
		p.mu.Lock()
		for len(p.buf) == p.size && !p.closed {
			p.cond.Wait()
		}
		room, closed := p.size-len(p.buf), p.closed
		p.mu.Unlock()

		if closed {
			return
		}

		n, err := r.Read(tmp[:room])

		p.mu.Lock()
		p.buf = append(p.buf, tmp[:n]...)
		if err != nil {
			p.err = err
		}
		p.mu.Unlock()

		if err != nil {
			return
		}
	}
}

// Available returns the number of buffered bytes. Once the underlying
// reader has returned an error and the buffer is drained that error is
// returned, io.EOF is returned alongside the final buffered bytes.
func (p *Pump) Available() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.buf)
	switch {
	case p.err == io.EOF:
		return n, io.EOF
	case p.err != nil && n == 0:
		return 0, p.err
	}
	return n, nil
}

func (p *Pump) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := copy(b, p.buf)
	p.buf = append(p.buf[:0], p.buf[n:]...)
	p.cond.Signal()

	if n == 0 && len(b) > 0 && p.err != nil {
		return 0, p.err
	}
	return n, nil
}

// Close stops the read-ahead goroutine once its current read returns. It
// does not close the underlying reader.
func (p *Pump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.cond.Broadcast()
	return nil
}
