package verify

import (
	"github.com/eclipse-openj9/openj9-sub059/bcmap"
	"github.com/eclipse-openj9/openj9-sub059/classfile"
	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

// buildEntryFrame synthesizes the frame at pc 0 from the method's own
// signature (spec §4.3 step 1): `this` (or an UninitThis tag for
// `<init>`, except on java/lang/Object itself) occupies local 0 of an
// instance method, followed by the declared argument types in order.
func buildEntryFrame(class *classfile.Class, method *classfile.Method, interner *vtype.Interner, arena *Arena) (*Frame, error) {
	f := arena.Frame(int(method.MaxLocals), int(method.MaxStack))
	f.Live = true

	i := 0
	if !method.IsStatic() {
		classIdx := interner.Intern(class.Name)
		if method.IsInit() && class.Name != "java/lang/Object" {
			f.SetLocal(0, vtype.Type{Kind: vtype.UninitThis, Class: uint32(classIdx)})
			f.UninitializedThis = true
		} else {
			f.SetLocal(0, vtype.Type{Kind: vtype.Object, Class: uint32(classIdx)})
		}
		i = 1
	}

	args, err := classfile.ArgumentTypes(method.Descriptor)
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		t := entryArgType(a, interner)
		f.SetLocal(i, t)
		i++
		if t.IsWide() {
			i++
		}
	}
	return f, nil
}

func entryArgType(ft classfile.FieldType, interner *vtype.Interner) vtype.Type {
	if ft.Arity > 0 {
		if ft.Base == 'L' {
			return vtype.Type{Kind: vtype.Object, Class: uint32(interner.Intern(ft.ClassName)), Arity: ft.Arity}
		}
		return baseArrayType(ft.Base).WithArity(ft.Arity)
	}
	if ft.Base == 'L' {
		return vtype.Type{Kind: vtype.Object, Class: uint32(interner.Intern(ft.ClassName))}
	}
	return baseScalarType(ft.Base)
}

// workQueue is the unwalked/rewalk pair of spec §4.3's worklist: pc
// reached for the first time goes on unwalked (its frame is brand new
// and must be walked through once); a pc whose already-visited frame
// widened under a later merge goes on rewalk instead, since later
// instructions may now need to re-derive from the wider frame.
type workQueue struct {
	order   []int
	pending map[int]bool
}

func newWorkQueue() *workQueue {
	return &workQueue{pending: map[int]bool{}}
}

func (q *workQueue) push(pc int) {
	if q.pending[pc] {
		return
	}
	q.pending[pc] = true
	q.order = append(q.order, pc)
}

func (q *workQueue) pop() (int, bool) {
	for len(q.order) > 0 {
		pc := q.order[0]
		q.order = q.order[1:]
		if q.pending[pc] {
			delete(q.pending, pc)
			return pc, true
		}
	}
	return 0, false
}

// simulateStack runs Pass A (spec §4.3, C8): the abstract-interpretation
// dataflow fixpoint that synthesizes a stack map frame at every branch
// target and exception-handler entry. It's used both as the sole check
// for pre-StackMapTable class files and, when ignore_stack_maps is set,
// as a full replacement for Pass B.
func simulateStack(class *classfile.Class, method *classfile.Method, lattice *vtype.Lattice, cfg Config, arena *Arena, bmap *bcmap.BytecodeMap) (map[int]*Frame, error) {
	frames := make(map[int]*Frame)
	getFrame := func(pc int) *Frame {
		f, ok := frames[pc]
		if !ok {
			f = arena.Frame(int(method.MaxLocals), int(method.MaxStack))
			frames[pc] = f
		}
		return f
	}

	entry, err := buildEntryFrame(class, method, lattice.Interner, arena)
	if err != nil {
		return nil, err
	}
	frames[0] = entry

	unwalked := newWorkQueue()
	rewalk := newWorkQueue()
	unwalked.push(0)

	var s *simulator
	mergeInto := func(pc int, src *Frame) error {
		target := getFrame(pc)
		firstVisit, changed, err := mergeStacks(lattice, target, src)
		if err != nil {
			return err
		}
		if firstVisit {
			unwalked.push(pc)
		} else if changed {
			rewalk.push(pc)
		}
		return nil
	}

	s = &simulator{
		class:    class,
		method:   method,
		lattice:  lattice,
		interner: lattice.Interner,
		code:     method.Code,
		cfg:      cfg,
		onBranch: mergeInto,
	}

	for {
		pc, ok := unwalked.pop()
		if !ok {
			pc, ok = rewalk.pop()
		}
		if !ok {
			break
		}
		if err := walkBlock(s, mergeInto, lattice, method, getFrame(pc), pc); err != nil {
			return nil, err
		}
	}

	return frames, nil
}

// walkBlock steps forward from pc until a terminator, merging the
// exception-handler edges of every instruction that can raise along the
// way (spec §4.2's implicit single-element handler-class stack).
func walkBlock(s *simulator, mergeInto func(pc int, src *Frame) error, lattice *vtype.Lattice, method *classfile.Method, start *Frame, startPC int) error {
	live := start.Clone()
	pc := startPC
	for {
		op := s.code[pc]
		eff, ok := bcmap.Lookup(op)
		canRaise := ok && eff.CanRaise
		preStack := live.Clone()

		n, term, err := s.step(live, pc)
		if err != nil {
			return err
		}
		if canRaise {
			if err := mergeExceptionHandlers(mergeInto, lattice, method, pc, preStack); err != nil {
				return err
			}
		}
		if term {
			return nil
		}
		pc += n
		if pc >= len(s.code) {
			return BadBytecodeError{PC: pc, Message: "fell off the end of the code array"}
		}
	}
}

// mergeExceptionHandlers merges the frame just before a raising
// instruction, with its operand stack cleared and replaced by the single
// handler-class reference the JVM pushes on entry to a catch block, into
// every handler whose range covers pc (spec §4.2, §4.6).
func mergeExceptionHandlers(mergeInto func(pc int, src *Frame) error, lattice *vtype.Lattice, method *classfile.Method, pc int, preStack *Frame) error {
	for _, h := range method.ExceptionTable {
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		handlerEntry := preStack.Clone()
		handlerEntry.StackTop = 0
		var excType vtype.Type
		if h.CatchType == "" {
			excType = vtype.Type{Kind: vtype.Object, Class: uint32(vtype.ClassThrowable)}
		} else {
			excType = vtype.Type{Kind: vtype.Object, Class: uint32(lattice.Interner.Intern(h.CatchType))}
		}
		if err := handlerEntry.Push(excType); err != nil {
			return err
		}
		if err := mergeInto(int(h.HandlerPC), handlerEntry); err != nil {
			return err
		}
	}
	return nil
}

func kindOf(err error) Kind {
	switch err.(type) {
	case IncompatibleTypeError:
		return KindIncompatibleType
	case StackUnderflowError:
		return KindStackUnderflow
	case StackOverflowError:
		return KindStackOverflow
	case BadBytecodeError:
		return KindBadBytecode
	case UninitializedReceiverError:
		return KindUninitializedReceiver
	case AccessDeniedError:
		return KindAccessDenied
	default:
		return KindNone
	}
}
