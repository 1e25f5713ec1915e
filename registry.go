package notibus

import "container/list"

// observer is a registered callback bound to one key and one payload
// signature. An observer is owned by the bucket that holds it; the reverse
// index refers to it only through its list element.
type observer struct {
	id  ObserverID
	key Key
	fn  Handler
}

// bucket is the ordered observer collection for one key. Every member shares
// the signature fixed by the bucket's first observer. A bucket exists exactly
// while it has members; emptiness is represented by absence from the registry.
type bucket struct {
	sig     Signature
	members *list.List // of *observer, in registration order
}

// location is the reverse-index record for one observer id: the key it lives
// under and its stable element handle, so removal never scans a bucket.
type location struct {
	key  Key
	elem *list.Element
}

// registry maps notification keys to buckets plus observer ids to locations.
// It is not self-locking; the bus mutex guards it.
type registry struct {
	buckets   map[Key]*bucket
	locations map[ObserverID]location
}

func newRegistry() *registry {
	return &registry{
		buckets:   make(map[Key]*bucket),
		locations: make(map[ObserverID]location),
	}
}

// insert appends an observer to the bucket for key, creating the bucket if
// absent. The bucket's signature is fixed by its first member; a differing
// signature fails without mutating state.
func (r *registry) insert(key Key, sig Signature, id ObserverID, fn Handler) error {
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{sig: sig, members: list.New()}
		r.buckets[key] = b
	} else if b.sig != sig {
		return ErrPayloadTypeMismatch
	}
	elem := b.members.PushBack(&observer{id: id, key: key, fn: fn})
	r.locations[id] = location{key: key, elem: elem}
	return nil
}

// locate returns the reverse-index record for id.
func (r *registry) locate(id ObserverID) (location, bool) {
	loc, ok := r.locations[id]
	return loc, ok
}

// forget drops the reverse-index entry for id, so further lookups fail while
// the member itself stays in its bucket until erase.
func (r *registry) forget(id ObserverID) {
	delete(r.locations, id)
}

// erase unlinks an observer from its bucket, dropping the bucket once empty.
// Erasing an element that was already unlinked (a racing bulk removal) is a
// no-op.
func (r *registry) erase(loc location) {
	b, ok := r.buckets[loc.key]
	if !ok {
		return
	}
	b.members.Remove(loc.elem)
	if b.members.Len() == 0 {
		delete(r.buckets, loc.key)
	}
}

// snapshot returns the bucket signature and an ordered copy of its members.
// The copy stays valid regardless of later registry mutation.
func (r *registry) snapshot(key Key) (Signature, []*observer, bool) {
	b, ok := r.buckets[key]
	if !ok {
		return "", nil, false
	}
	members := make([]*observer, 0, b.members.Len())
	for e := b.members.Front(); e != nil; e = e.Next() {
		members = append(members, e.Value.(*observer))
	}
	return b.sig, members, true
}

// counts returns the live observer count per key.
func (r *registry) counts() map[Key]int {
	out := make(map[Key]int, len(r.buckets))
	for key, b := range r.buckets {
		out[key] = b.members.Len()
	}
	return out
}
