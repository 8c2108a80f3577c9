// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bcmap builds the per-method bytecode map: branch-target
// discovery, the instruction effect table (length/pop-push shape/action
// code per opcode), and the StackMapTable compressed-frame codec. It is
// the shared substrate both verification passes walk over.
package bcmap

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
	logger = log.New(w, "bcmap: ", log.Lshortfile)
}
