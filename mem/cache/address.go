package cache

import "math/bits"

// AddressDecoder splits addresses into a tag, a set index, and a block offset.
type AddressDecoder struct {
	log2BlockSize int
	log2NumSets   int
}

// NewAddressDecoder creates a decoder for a cache with 2^log2BlockSize-byte
// blocks and numSets sets. numSets must be a power of 2.
func NewAddressDecoder(log2BlockSize int, numSets int) AddressDecoder {
	if numSets <= 0 || numSets&(numSets-1) != 0 {
		panic("number of sets must be a power of 2")
	}

	return AddressDecoder{
		log2BlockSize: log2BlockSize,
		log2NumSets:   bits.TrailingZeros(uint(numSets)),
	}
}

// BlockSize returns the number of bytes in a block.
func (d AddressDecoder) BlockSize() uint64 {
	return uint64(1) << d.log2BlockSize
}

// Offset returns the byte offset of the address within its block.
func (d AddressDecoder) Offset(addr uint64) uint64 {
	return addr & (uint64(1)<<d.log2BlockSize - 1)
}

// SetID returns the index of the set that the address maps to.
func (d AddressDecoder) SetID(addr uint64) int {
	mask := uint64(1)<<d.log2NumSets - 1
	return int((addr >> d.log2BlockSize) & mask)
}

// Tag returns the tag that identifies the block of the address within its
// set.
func (d AddressDecoder) Tag(addr uint64) uint64 {
	return addr >> (d.log2BlockSize + d.log2NumSets)
}

// Decode returns the tag, set index, and offset of the address.
func (d AddressDecoder) Decode(addr uint64) (tag uint64, setID int, offset uint64) {
	return d.Tag(addr), d.SetID(addr), d.Offset(addr)
}
