// Package guard decides whether a conditional mutation may proceed.
package guard

import (
	"fmt"
	"strings"

	"github.com/samber/mo"
)

// Mode selects what happens to a mutation that carries no conditional header.
type Mode int

const (
	// ModeStrict rejects unconditional mutations with PreconditionMissing.
	ModeStrict Mode = iota
	// ModePermissive lets unconditional mutations through (last writer wins).
	ModePermissive
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ModeStrict, nil
	case "permissive":
		return ModePermissive, nil
	}
	return ModeStrict, fmt.Errorf("unknown concurrency mode %q", s)
}

func (m Mode) String() string {
	if m == ModePermissive {
		return "permissive"
	}
	return "strict"
}

// Operation is the kind of mutation being authorized.
type Operation int

const (
	// OpPut creates the resource or replaces it.
	OpPut Operation = iota
	// OpDelete removes the resource.
	OpDelete
)

func (o Operation) String() string {
	if o == OpDelete {
		return "delete"
	}
	return "put"
}

// Decision is the outcome of Authorize.
type Decision int

const (
	Allow Decision = iota
	Conflict
	PreconditionMissing
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Conflict:
		return "conflict"
	default:
		return "precondition-missing"
	}
}

// Conditions are the raw If-Match and If-None-Match header values of a request.
type Conditions struct {
	IfMatch     string
	IfNoneMatch string
}

// Empty reports whether the request carried no conditional header.
func (c Conditions) Empty() bool {
	return strings.TrimSpace(c.IfMatch) == "" && strings.TrimSpace(c.IfNoneMatch) == ""
}

// Guard compares client conditions with the current entity tag.
type Guard struct {
	mode Mode
}

// New returns a Guard operating in the given mode.
func New(mode Mode) Guard {
	return Guard{mode: mode}
}

// Mode returns the configured mode.
func (g Guard) Mode() Mode { return g.mode }

// Authorize decides a mutation. current holds the entity tag of the resource
// as it is stored right now, or None if nothing exists at the target. The
// function is pure; callers must evaluate it inside the same atomic step as
// the write it protects.
func (g Guard) Authorize(current mo.Option[string], cond Conditions, op Operation) Decision {
	if cond.Empty() {
		if g.mode == ModePermissive {
			return Allow
		}
		return PreconditionMissing
	}

	if ifMatch := strings.TrimSpace(cond.IfMatch); ifMatch != "" {
		tag, exists := current.Get()
		if !exists {
			return Conflict
		}
		if ifMatch != "*" && !listContains(ifMatch, tag) {
			return Conflict
		}
	}

	if ifNone := strings.TrimSpace(cond.IfNoneMatch); ifNone != "" {
		tag, exists := current.Get()
		if ifNone == "*" {
			if exists {
				return Conflict
			}
		} else if exists && listContains(ifNone, tag) {
			return Conflict
		}
	}

	return Allow
}

// NotModified reports whether a GET carrying the If-None-Match header may be
// answered with 304. Unlike the mutation preconditions it uses weak
// comparison, so W/ tags match their strong counterpart.
func NotModified(ifNoneMatch, tag string) bool {
	want := unquote(tag)
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if candidate != "" && unquote(strings.TrimPrefix(candidate, "W/")) == want {
			return true
		}
	}
	return false
}

// listContains reports whether a comma separated list of entity tags holds
// tag under strong comparison. Weak tags never match. Unquoted tags are
// accepted for clients that strip the quotes.
func listContains(list, tag string) bool {
	want := unquote(tag)
	for _, candidate := range strings.Split(list, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || strings.HasPrefix(candidate, "W/") {
			continue
		}
		if unquote(candidate) == want {
			return true
		}
	}
	return false
}

func unquote(tag string) string {
	if len(tag) >= 2 && tag[0] == '"' && tag[len(tag)-1] == '"' {
		return tag[1 : len(tag)-1]
	}
	return tag
}
