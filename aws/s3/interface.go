//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"errors"
	"io"
)

var ErrKeyNotFound = errors.New("key not found")

type BasicClient interface {
	Lister
	PrefixLister
	Getter
	Putter
	BufferPutter
	Deleter
	ExistsChecker
}

type Lister interface {
	// List returns all keys that start with the given prefix, in lexical order.
	List(prefix string) (keys []string, err error)
}

type PrefixLister interface {
	// ListPrefixes returns the distinct key prefixes up to and including the next delimiter after prefix,
	// i.e. the "directories" directly under prefix.
	ListPrefixes(prefix string, delimiter string) (prefixes []string, err error)
}

type Getter interface {
	// Get returns ErrKeyNotFound if the given key doesn't exist.
	Get(key string) (data []byte, err error)
}

type Putter interface {
	Put(key string, data []byte) (err error)
}

// BufferPutter can be used to put a file to S3 since File implements Read and Seek.
type BufferPutter interface {
	BufferPut(key string, buf io.ReadSeeker) (err error)
}

type Deleter interface {
	Delete(key string) error
}

type ExistsChecker interface {
	Exists(key string) (bool, error)
}
