// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vectorindex

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/go-crypt/x/blake2b"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

const (
	magic         = "PDFQAIDX"
	formatVersion = 1
	checksumSize  = blake2b.Size256
)

// encode serializes idx and appends the body checksum.
func encode(idx *Index) []byte {
	keys := slices.Sorted(maps.Keys(idx.metadata))

	size := len(magic) +
		varint.Uint64.Size(formatVersion) +
		varint.Uint64.Size(uint64(idx.dimension)) +
		varint.Uint64.Size(uint64(len(idx.entries))) +
		varint.Uint64.Size(uint64(len(keys)))
	for _, k := range keys {
		size += ord.String.Size(k) + ord.String.Size(idx.metadata[k])
	}
	for _, e := range idx.entries {
		size += ord.String.Size(e.text)
		for _, x := range e.vector {
			size += raw.Float32.Size(x)
		}
	}

	bs := make([]byte, size, size+checksumSize)
	n := copy(bs, magic)
	n += varint.Uint64.Marshal(formatVersion, bs[n:])
	n += varint.Uint64.Marshal(uint64(idx.dimension), bs[n:])
	n += varint.Uint64.Marshal(uint64(len(idx.entries)), bs[n:])
	n += varint.Uint64.Marshal(uint64(len(keys)), bs[n:])
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(idx.metadata[k], bs[n:])
	}
	for _, e := range idx.entries {
		n += ord.String.Marshal(e.text, bs[n:])
		for _, x := range e.vector {
			n += raw.Float32.Marshal(x, bs[n:])
		}
	}

	sum := blake2b.Sum256(bs[:n])
	return append(bs[:n], sum[:]...)
}

// decode verifies the checksum and rebuilds an index without an embedder.
func decode(data []byte) (*Index, error) {
	if len(data) < len(magic)+checksumSize {
		return nil, fmt.Errorf("%w: truncated", ErrCorruptIndex)
	}
	body, trailer := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	sum := blake2b.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptIndex)
	}
	if string(body[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptIndex)
	}

	d := decoder{bs: body, pos: len(magic)}
	version := d.readUint()
	if d.err == nil && version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptIndex, version)
	}
	dim := int(d.readUint())
	count := int(d.readUint())
	metaCount := int(d.readUint())
	if d.err != nil {
		return nil, d.err
	}
	if dim <= 0 || count <= 0 || dim > len(body) || count > len(body) || metaCount > len(body) {
		return nil, fmt.Errorf("%w: implausible header (dim=%d count=%d)", ErrCorruptIndex, dim, count)
	}

	meta := make(map[string]string, metaCount)
	for i := 0; i < metaCount && d.err == nil; i++ {
		k := d.readString()
		meta[k] = d.readString()
	}

	texts := make([]string, count)
	vectors := make([][]float32, count)
	for i := 0; i < count && d.err == nil; i++ {
		texts[i] = d.readString()
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = d.readFloat32()
		}
		vectors[i] = vec
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.pos != len(body) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptIndex, len(body)-d.pos)
	}

	idx, err := newIndex(texts, vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}
	idx.metadata = meta
	return idx, nil
}

// decoder reads sequential mus-go values and latches the first error.
type decoder struct {
	bs  []byte
	pos int
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: offset %d: %w", ErrCorruptIndex, d.pos, err)
	}
}

func (d *decoder) readUint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.bs[d.pos:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.pos += n
	return v
}

func (d *decoder) readString() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.pos:])
	if err != nil {
		d.fail(err)
		return ""
	}
	d.pos += n
	return v
}

func (d *decoder) readFloat32() float32 {
	if d.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(d.bs[d.pos:])
	if err != nil {
		d.fail(err)
		return 0
	}
	d.pos += n
	return v
}
