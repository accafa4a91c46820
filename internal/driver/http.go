// Package driver adapts the streaming parsing pipeline to a real network
// byte source: a chunked HTTP response body, fed into a BufferQueue by one
// goroutine while another drains it through the lexer/parser/resolver,
// exercising the would-block suspension contract against something other
// than a canned in-memory buffer.
package driver

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	goxml "github.com/r2xml/goxml/xml"
)

// HTTPDriver streams a GET response body straight into the parsing
// pipeline (adapted from the teacher's SoapClient/cert.go, trimmed of its
// SOAP envelope templating and WS-Security auth — see DESIGN.md).
type HTTPDriver struct {
	client    *http.Client
	chunkSize int
}

// Option configures an HTTPDriver, mirroring the teacher's functional
// ClientOption pattern.
type Option func(*HTTPDriver)

// WithTimeout sets the underlying *http.Client's timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *HTTPDriver) { d.client.Timeout = timeout }
}

// WithClientCertificate configures mTLS using a PEM certificate/key pair.
func WithClientCertificate(certFile, keyFile string) Option {
	return func(d *HTTPDriver) {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return
		}
		tr := transportOf(d)
		tr.TLSClientConfig.Certificates = []tls.Certificate{cert}
	}
}

// WithInsecureSkipVerify disables server certificate verification, for
// development against self-signed endpoints.
func WithInsecureSkipVerify() Option {
	return func(d *HTTPDriver) {
		transportOf(d).TLSClientConfig.InsecureSkipVerify = true
	}
}

// WithChunkSize sets the read size used when copying the response body
// into the BufferQueue. The default is 32 KiB.
func WithChunkSize(n int) Option {
	return func(d *HTTPDriver) { d.chunkSize = n }
}

func transportOf(d *HTTPDriver) *http.Transport {
	tr, ok := d.client.Transport.(*http.Transport)
	if !ok || tr == nil {
		tr = &http.Transport{}
		d.client.Transport = tr
	}
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	return tr
}

// NewHTTPDriver returns a driver using a 30s-timeout client unless
// overridden.
func NewHTTPDriver(opts ...Option) *HTTPDriver {
	d := &HTTPDriver{
		client:    &http.Client{Timeout: 30 * time.Second},
		chunkSize: 32 * 1024,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FetchTree issues a GET to url, streams the response body into the
// parsing pipeline as it arrives, and returns the resolved document tree.
func (d *HTTPDriver) FetchTree(ctx context.Context, url string) (*goxml.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "issuing request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}

	queue := goxml.NewBufferQueue()
	readErrCh := make(chan error, 1)
	go func() {
		buf := make([]byte, d.chunkSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				queue.Push(chunk)
			}
			if err != nil {
				queue.PushEOF()
				if err == io.EOF {
					readErrCh <- nil
				} else {
					readErrCh <- err
				}
				return
			}
		}
	}()

	lx := goxml.NewLexer(goxml.Config{})
	rp := goxml.NewRawParser(lx, queue)
	nr := goxml.NewNSResolver(rp, nil)

	root, err := d.drain(nr)
	if err != nil {
		return nil, err
	}
	if readErr := <-readErrCh; readErr != nil {
		return nil, errors.Wrap(readErr, "reading response body")
	}
	return root, nil
}

// drain builds the document tree, retrying on ErrWouldBlock until the
// background reader either supplies more bytes or pushes EOF.
func (d *HTTPDriver) drain(nr *goxml.NSResolver) (*goxml.Node, error) {
	var root *goxml.Node
	var current *goxml.Node

	for {
		ev, err := nr.ResolveEvent()
		if err != nil {
			if errors.Is(err, goxml.ErrWouldBlock) {
				time.Sleep(time.Millisecond)
				continue
			}
			return nil, errors.Wrap(err, "parsing response body")
		}
		if ev == nil {
			break
		}
		switch ev.Kind {
		case goxml.ResolvedStartElement:
			n := &goxml.Node{Name: ev.Name, Attrs: ev.Attrs, Parent: current}
			if current == nil {
				root = n
			} else {
				current.Children = append(current.Children, n)
			}
			current = n
		case goxml.ResolvedText:
			if current != nil {
				current.Text += string(ev.Text)
			}
		case goxml.ResolvedEndElement:
			if current != nil {
				current = current.Parent
			}
		}
	}
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	return root, nil
}
