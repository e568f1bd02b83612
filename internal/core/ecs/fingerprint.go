package ecs

import (
	"encoding/binary"
	"hash"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the observable structure of the World in id order:
// entity names, active flags, attached component names and tags. Ids and
// interning order are left out since both are process-global, so two worlds
// built through the same steps hash equal. Component payloads are not hashed.
//
// Every string and list is length-prefixed, so no choice of names or tags can
// shift bytes from one field into the next.
func (w *World) Fingerprint() uint64 {
	d := xxhash.New()
	writeUint(d, uint64(len(w.entities)))
	for _, e := range w.Entities() {
		writeString(d, e.name)
		if e.active {
			_, _ = d.Write([]byte{1})
		} else {
			_, _ = d.Write([]byte{0})
		}

		names := make([]string, 0, len(e.components))
		for id := range e.components {
			names = append(names, id.String())
		}
		slices.Sort(names)
		writeUint(d, uint64(len(names)))
		for _, name := range names {
			writeString(d, name)
		}

		tags := e.Tags()
		writeUint(d, uint64(len(tags)))
		for _, tag := range tags {
			writeString(d, tag)
		}
	}
	return d.Sum64()
}

func writeUint(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func writeString(h hash.Hash64, s string) {
	writeUint(h, uint64(len(s)))
	_, _ = h.Write([]byte(s))
}
