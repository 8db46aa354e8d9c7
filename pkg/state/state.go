// Package state provides a heterogeneous value store accessed through
// typed tokens.
//
// Callbacks running on an event loop frequently need to share mutable
// state without resorting to package-level variables. A Store holds any
// number of values of arbitrary types; inserting a value yields a
// Token[T], a typed key that grants access to exactly that slot.
//
// Tokens are keys, not references: they are cheap to copy, carry no
// pointer into the store, and are only usable against the store that
// issued them. Presenting a token to a different store is a programming
// error and panics rather than silently aliasing an unrelated slot.
package state

import (
	"fmt"
	"sync/atomic"
)

var storeIDs atomic.Uint64

// Store holds arbitrarily typed values, each addressed by the token
// returned when it was inserted. A Store is not safe for concurrent use;
// the event loop's single-threaded dispatch is its intended context.
type Store struct {
	id     uint64
	values []any
}

// NewStore creates an empty store with a process-unique identity.
func NewStore() *Store {
	return &Store{id: storeIDs.Add(1)}
}

// Len returns the number of stored values.
func (s *Store) Len() int {
	return len(s.values)
}

// Token is a typed key to one value in one specific Store. The zero Token
// is invalid and panics on use.
type Token[T any] struct {
	store uint64
	index int
}

// Insert stores v and returns its token. Slots live for the lifetime of
// the store; there is no removal.
func Insert[T any](s *Store, v T) Token[T] {
	// Slots are boxed pointers so Get can hand out *T without copying.
	s.values = append(s.values, &v)
	return Token[T]{store: s.id, index: len(s.values)}
}

// Get returns a pointer to the slot addressed by tok. It panics if tok
// was issued by a different store or is the zero Token.
func Get[T any](s *Store, tok Token[T]) *T {
	slot := s.slot(tok.store, tok.index)
	v, ok := slot.(*T)
	if !ok {
		// Unreachable unless a token was forged: the type parameter is
		// fixed at Insert time.
		panic(fmt.Sprintf("state: token type %T does not match slot %T", tok, slot))
	}
	return v
}

// Set replaces the value addressed by tok. Same panics as Get.
func Set[T any](s *Store, tok Token[T], v T) {
	*Get(s, tok) = v
}

// With runs f with the value addressed by tok and stores the result back.
func With[T any](s *Store, tok Token[T], f func(T) T) {
	p := Get(s, tok)
	*p = f(*p)
}

// slot validates token provenance and returns the slot's pointer box.
func (s *Store) slot(store uint64, index int) any {
	if s == nil {
		panic("state: token used against nil store")
	}
	if store != s.id {
		panic(fmt.Sprintf("state: token from store %d used against store %d", store, s.id))
	}
	if index < 1 || index > len(s.values) {
		panic("state: invalid token")
	}
	return s.values[index-1]
}
