// Package mem defines the requests that drive the cache models.
package mem

import "fmt"

// AccessKind tells whether a request reads or writes memory.
type AccessKind int

// Kinds of memory accesses.
const (
	Read AccessKind = iota
	Write
)

func (k AccessKind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("AccessKind(%d)", int(k))
	}
}

// AccessReq is a single memory access in a trace.
type AccessReq struct {
	ID      string
	Address uint64
	Kind    AccessKind
}

// NewReadReq creates a request that reads from address.
func NewReadReq(id string, address uint64) *AccessReq {
	return &AccessReq{ID: id, Address: address, Kind: Read}
}

// NewWriteReq creates a request that writes to address.
func NewWriteReq(id string, address uint64) *AccessReq {
	return &AccessReq{ID: id, Address: address, Kind: Write}
}

// IsWrite returns true if the request modifies memory.
func (r *AccessReq) IsWrite() bool {
	return r.Kind == Write
}
