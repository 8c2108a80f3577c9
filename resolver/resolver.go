// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolver defines the ClassResolver collaborator the verifier
// consumes to answer class-hierarchy questions (spec §6.1). Class loading,
// constant-pool well-formedness, and the enclosing runtime's class table are
// all out of scope for this repository (spec §1); resolver only specifies
// the interface and ships one in-memory reference implementation for tests
// and the CLI, the way wasm.ResolveFunc is an injected callback in the
// teacher rather than a hardwired global loader.
package resolver

import "errors"

// LoadStatus is the result of a GetClass call (spec §6.1).
type LoadStatus int

const (
	Loaded LoadStatus = iota
	Inaccessible
	NotYetLoaded
	OutOfMemory
)

// ErrInaccessible and ErrNotYetLoaded let callers use errors.Is against a
// GetClass failure in the common cases, alongside checking LoadStatus.
var (
	ErrInaccessible = errors.New("resolver: class is inaccessible")
	ErrNotYetLoaded = errors.New("resolver: class not yet loaded")
	ErrOutOfMemory  = errors.New("resolver: out of memory loading class")
)

// ClassInfo is the information the verifier needs about a loaded class
// (spec §6.1 classInfo): its modifiers, its depth in the class hierarchy
// (java/lang/Object is depth 0), and the chain of superclass names from
// itself up to and including java/lang/Object.
type ClassInfo struct {
	Name        string
	Modifiers   uint16
	Depth       int
	Superchain  []string // Superchain[0] == Name, Superchain[Depth] == "java/lang/Object"
	IsInterface bool
}

// Superclass returns the direct superclass name, or "" if info is
// java/lang/Object itself.
func (info ClassInfo) Superclass() string {
	if info.Depth == 0 {
		return ""
	}
	return info.Superchain[1]
}

// Resolver answers class-hierarchy questions on behalf of the verifier.
// Implementations may load classes lazily and may block; the only
// suspension point in the core verifier is a call through this interface
// (spec §5).
type Resolver interface {
	// GetClass loads (or returns already-loaded information about) the
	// class named name. loader is an opaque classloader handle the
	// embedding runtime defines; this repository never inspects it.
	GetClass(loader any, name string) (ClassInfo, LoadStatus, error)

	// IsSameOrSuperclassOf reports whether a is the same class as, or a
	// superclass of, b. Both must already be Loaded ClassInfo values.
	// This is constant-time over the two superchains (spec §6.1).
	IsSameOrSuperclassOf(a, b ClassInfo) bool
}
