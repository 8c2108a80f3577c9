// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classfile provides a read-only parser for the ROM class layout
// the verifier consumes (spec §6.2): constant pool, method table, exception
// handlers, and the optional StackMapTable / debug attributes. Structural
// well-formedness of the constant pool is assumed already done by a static
// verifier (spec §1 "Deliberately out of scope"); this package reads just
// enough to hand the verifier named, typed methods to check.
package classfile

import (
	"io"
	"log"
	"os"
)

var PrintDebugInfo = false

var logger *log.Logger

func init() {
	w := io.Discard
	if PrintDebugInfo {
		w = os.Stderr
	}
	logger = log.New(w, "classfile: ", log.Lshortfile)
}
