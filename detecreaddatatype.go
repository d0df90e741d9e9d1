package pico

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZlib
	DataTypeBZip2
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZlib:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

type signature struct {
	dt  DataType
	sig []byte
}

// zlib streams have no magic number; these are the headers written at the
// default, fastest and best compression levels with a 32K window.
var byteCodeSigs = []signature{
	{DataTypeGzip, []byte{0x1f, 0x8b, 0x08}},
	{DataTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{DataTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{DataTypeBZip2, []byte{0x42, 0x5a, 0x68}},
	{DataTypeZlib, []byte{0x78, 0x9c}},
	{DataTypeZlib, []byte{0x78, 0x01}},
	{DataTypeZlib, []byte{0x78, 0xda}},
}

// DetectDataType attempts to detect the data type of a stream by checking
// against a set of known data types.  Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(r io.Reader) (DataType, error) {
	buff := make([]byte, 6)
	n, err := io.ReadFull(r, buff)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return DataTypeInvalid, err
	}
	buff = buff[:n]

	// Match known signatures
	for _, known := range byteCodeSigs {
		if bytes.HasPrefix(buff, known.sig) {
			return known.dt, nil
		}
	}

	return DataTypeNoCompression, nil
}

// MaybeDecompressReadCloser sniffs the first bytes of rs and, if they carry a
// known compression signature, wraps rs in the matching decompressor. The
// returned ReadCloser closes rs.
func MaybeDecompressReadCloser(rs ReadSeekCloser) (io.ReadCloser, DataType, error) {
	dt, err := DetectDataType(rs)
	if err != nil {
		return nil, dt, err
	}

	// Reset the original reader
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, dt, err
	}

	switch dt {
	case DataTypeGzip:
		r, err := gzip.NewReader(rs)
		if err != nil {
			return nil, dt, err
		}
		return &readCloserFaker{Reader: r, closer: rs}, dt, nil
	case DataTypeZip:
		// Only the first entry of a zip archive is read
		zr := zipstream.NewReader(rs)
		if _, err := zr.Next(); err != nil {
			return nil, dt, err
		}
		return &readCloserFaker{Reader: zr, closer: rs}, dt, nil
	case DataTypeBZip2:
		return &readCloserFaker{Reader: bzip2.NewReader(rs), closer: rs}, dt, nil
	case DataTypeXZ:
		reader, err := xz.NewReader(rs, 0)
		if err != nil {
			return nil, dt, err
		}
		return &readCloserFaker{Reader: reader, closer: rs}, dt, nil
	case DataTypeZlib:
		r, err := zlib.NewReader(rs)
		if err != nil {
			return nil, dt, err
		}
		return &readCloserFaker{Reader: r, closer: rs}, dt, nil
	}

	// No data type detected. For now, we assume this is uncompressed.
	return rs, dt, nil
}
