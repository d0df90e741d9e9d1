package pico

import "io"

type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// readCloserFaker "upgrades" decompressing readers that don't need to be
// closed themselves, while still closing the underlying source.
type readCloserFaker struct {
	io.Reader
	closer io.Closer
}

func (c *readCloserFaker) Close() error {
	if c.closer == nil {
		return nil
	}

	return c.closer.Close()
}
