// Package endpoint owns the static endpoint directory: identity byte,
// network address and logical name for every LIONS service.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/danmuck/admiral/internal/protocol/frame"
)

// Identity is the one-byte endpoint id carried in a payload envelope.
type Identity uint8

const (
	Admiral Identity = iota
	Hotel
	Scheduler
)

var (
	ErrDuplicateIdentity = errors.New("endpoint: duplicate identity")
	ErrDuplicateName     = errors.New("endpoint: duplicate name")
	ErrDuplicateAddr     = errors.New("endpoint: duplicate address")
	ErrInvalidEntry      = errors.New("endpoint: invalid entry")
)

// Entry is one row of the endpoint directory.
type Entry struct {
	ID   Identity `json:"id"`
	Name string   `json:"name"`
	Host string   `json:"host"`
	Port uint16   `json:"port"`
}

// Addr is the entry's host:port.
func (e Entry) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// DefaultEntries is the built-in LIONS directory.
func DefaultEntries() []Entry {
	return []Entry{
		{ID: Admiral, Name: "admiral", Host: "100.109.120.90", Port: 5321},
		{ID: Hotel, Name: "hotel", Host: "100.103.121.7", Port: 4200},
		{ID: Scheduler, Name: "scheduler", Host: "100.103.121.7", Port: 6767},
	}
}

// Registry is an immutable lookup over a set of entries. It is safe for
// concurrent use once built.
type Registry struct {
	byID   map[Identity]Entry
	byAddr map[string]Entry
	byName map[string]Entry
}

// NewRegistry validates entries and indexes them.
func NewRegistry(entries []Entry) (*Registry, error) {
	r := &Registry{
		byID:   make(map[Identity]Entry, len(entries)),
		byAddr: make(map[string]Entry, len(entries)),
		byName: make(map[string]Entry, len(entries)),
	}
	for i, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" || strings.TrimSpace(e.Host) == "" || e.Port == 0 {
			return nil, fmt.Errorf("%w: entry[%d] requires name, host and port", ErrInvalidEntry, i)
		}
		addr, err := frame.NormalizeAddr(e.Addr())
		if err != nil {
			return nil, fmt.Errorf("%w: entry[%d] host must be numeric: %v", ErrInvalidEntry, i, err)
		}
		if _, ok := r.byID[e.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateIdentity, e.ID)
		}
		if _, ok := r.byName[e.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, e.Name)
		}
		if _, ok := r.byAddr[addr]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAddr, addr)
		}
		r.byID[e.ID] = e
		r.byAddr[addr] = e
		r.byName[e.Name] = e
	}
	return r, nil
}

// MustDefault builds the registry for DefaultEntries.
func MustDefault() *Registry {
	r, err := NewRegistry(DefaultEntries())
	if err != nil {
		panic(err)
	}
	return r
}

// Identify maps a numeric peer host:port to its registered entry.
func (r *Registry) Identify(peerAddr string) (Entry, bool) {
	addr, err := frame.NormalizeAddr(peerAddr)
	if err != nil {
		return Entry{}, false
	}
	e, ok := r.byAddr[addr]
	return e, ok
}

// Lookup resolves an identity.
func (r *Registry) Lookup(id Identity) (Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// ByName resolves a logical name.
func (r *Registry) ByName(name string) (Entry, bool) {
	e, ok := r.byName[strings.TrimSpace(name)]
	return e, ok
}

// Valid reports whether id is registered.
func (r *Registry) Valid(id Identity) bool {
	_, ok := r.byID[id]
	return ok
}

// Name returns the logical name for id, or "unknown(<id>)".
func (r *Registry) Name(id Identity) string {
	if e, ok := r.byID[id]; ok {
		return e.Name
	}
	return fmt.Sprintf("unknown(%d)", id)
}

// Entries returns every entry ordered by identity.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
