package bucketsort

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// multisetDigest is an order-independent fingerprint of a bag of records.
// Partition workers each keep their own and combine them at the end; the
// final merge builds another over what it emits. Equal digests mean (with
// overwhelming probability) the output holds exactly the partitioned records.
//
// Each record contributes the xxh3 hash of its id and text. Hashes are
// combined with wrapping addition and with XOR so that reordering has no
// effect while a dropped or duplicated record almost surely does.
type multisetDigest struct {
	count uint64
	sum   uint64
	xor   uint64
}

// add folds one record into the digest. scratch is reused to avoid an
// allocation per record and is returned for the next call.
func (d *multisetDigest) add(r Record, scratch []byte) []byte {
	scratch = strconv.AppendInt(scratch[:0], r.ID, 10)
	scratch = append(scratch, 0)
	scratch = append(scratch, r.Text...)
	h := xxh3.Hash(scratch)
	d.count++
	d.sum += h
	d.xor ^= h * 0x9E3779B97F4A7C15
	return scratch
}

// combine folds another digest into d.
func (d *multisetDigest) combine(o multisetDigest) {
	d.count += o.count
	d.sum += o.sum
	d.xor ^= o.xor
}
