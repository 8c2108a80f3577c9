// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vtype implements the abstract type lattice used by the bytecode
// verifier: packed type words (C1), class-name interning (C2), and the
// isAssignable/mergeClasses relations (C3).
package vtype

import (
	"io"
	"log"
	"os"
)

// PrintDebugInfo enables verbose logging of lattice operations. Off by
// default; it is read once, in init, and no other package sets it.
var PrintDebugInfo = false

var logger *log.Logger

func init() {
	w := io.Discard
	if PrintDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "vtype: ", log.Lshortfile)
}
