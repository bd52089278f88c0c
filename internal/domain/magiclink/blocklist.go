package magiclink

import (
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

// Blocklist is a read-only bloom filter over disposable email domains.
// False positives block a small fraction of legitimate domains; the filter's
// false positive rate is chosen at ingest time to keep that negligible.
type Blocklist struct {
	filter *bloom.BloomFilter
}

// NewBlocklist wraps an already-populated filter. Used by tests and the
// ingest command.
func NewBlocklist(filter *bloom.BloomFilter) *Blocklist {
	return &Blocklist{filter: filter}
}

// LoadBlocklist reads a serialized bloom filter produced by blocklist-ingest.
func LoadBlocklist(path string) (*Blocklist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open blocklist %s", path)
	}
	defer func() { _ = f.Close() }()

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(f); err != nil {
		return nil, errors.Wrapf(err, "read blocklist %s", path)
	}

	return &Blocklist{filter: filter}, nil
}

// Blocked reports whether the domain is (probably) on the blocklist.
func (b *Blocklist) Blocked(domain string) bool {
	if domain == "" {
		return false
	}
	return b.filter.TestString(domain)
}
