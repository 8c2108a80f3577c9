package bcmap

import (
	"fmt"

	"github.com/eclipse-openj9/openj9-sub059/classfile"
)

// Flag is a bitfield over one bytecode offset (spec §3.4 bytecode_map).
type Flag uint8

const (
	FlagBranchTarget Flag = 1 << iota
	FlagExceptionStart
	FlagOnUnwalkedQueue
	FlagOnRewalkQueue
)

// BytecodeMap is the per-method branch/exception annotation built by
// DiscoverBranches: one flag byte per bytecode offset, plus the dense
// list of distinct targets that size stack_maps[] (spec §3.4, §4.2).
type BytecodeMap struct {
	Flags   []Flag // indexed by pc; zero for non-instruction-boundary offsets
	Targets []int  // distinct branch targets, in first-seen order
	index   map[int]int
}

// TargetIndex returns the dense index of pc within Targets, allocating
// one if this is the first time pc is seen as a target.
func (m *BytecodeMap) TargetIndex(pc int) int {
	if idx, ok := m.index[pc]; ok {
		return idx
	}
	idx := len(m.Targets)
	m.Targets = append(m.Targets, pc)
	m.index[pc] = idx
	return idx
}

func (m *BytecodeMap) mark(pc int, f Flag) {
	m.Flags[pc] |= f
}

// DiscoverBranches makes one pass over code, using the effect table to
// step by instruction length, marking every branch target and exception
// range start (spec §4.2 "Branch discovery").
func DiscoverBranches(code []byte, handlers []classfile.ExceptionHandler) (*BytecodeMap, error) {
	m := &BytecodeMap{Flags: make([]Flag, len(code)), index: map[int]int{}}

	pc := 0
	for pc < len(code) {
		n, err := InstrLength(code, pc)
		if err != nil {
			return nil, err
		}
		op := code[pc]
		eff, ok := Lookup(op)
		if !ok && op != OpTableswitch && op != OpLookupswitch {
			return nil, fmt.Errorf("bcmap: unrecognized opcode %#02x at pc %d", op, pc)
		}
		switch eff.BranchAction {
		case BranchConditional, BranchGoto:
			target := pc + int(int16(be16(code[pc+1:])))
			if err := checkTarget(target, len(code)); err != nil {
				return nil, err
			}
			m.mark(target, FlagBranchTarget)
			m.TargetIndex(target)
			if eff.BranchAction == BranchConditional {
				fallthroughPC := pc + n
				if fallthroughPC < len(code) {
					m.mark(fallthroughPC, FlagBranchTarget)
					m.TargetIndex(fallthroughPC)
				}
			}
		case BranchSwitch:
			targets, err := switchTargets(code, pc, op)
			if err != nil {
				return nil, err
			}
			for _, t := range targets {
				if err := checkTarget(t, len(code)); err != nil {
					return nil, err
				}
				m.mark(t, FlagBranchTarget)
				m.TargetIndex(t)
			}
		}
		pc += n
	}

	for _, h := range handlers {
		if int(h.StartPC) != int(h.HandlerPC) {
			m.mark(int(h.StartPC), FlagExceptionStart)
		}
		m.mark(int(h.HandlerPC), FlagBranchTarget)
		m.TargetIndex(int(h.HandlerPC))
	}

	return m, nil
}

func checkTarget(pc, codeLen int) error {
	if pc < 0 || pc >= codeLen {
		return fmt.Errorf("bcmap: branch target pc %d out of range (len %d)", pc, codeLen)
	}
	return nil
}

func switchTargets(code []byte, pc int, op byte) ([]int, error) {
	p := pc + 1 + pad4(pc)
	defaultOff := int(be32(code[p:]))
	targets := []int{pc + defaultOff}
	switch op {
	case OpTableswitch:
		low := int(be32(code[p+4:]))
		high := int(be32(code[p+8:]))
		base := p + 12
		for i := 0; i <= high-low; i++ {
			off := int(be32(code[base+i*4:]))
			targets = append(targets, pc+off)
		}
	case OpLookupswitch:
		npairs := int(be32(code[p+4:]))
		base := p + 8
		for i := 0; i < npairs; i++ {
			off := int(be32(code[base+i*8+4:]))
			targets = append(targets, pc+off)
		}
	}
	return targets, nil
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
