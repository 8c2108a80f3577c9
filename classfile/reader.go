// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile

import (
	"fmt"
	"io"
)

// ReadOptions controls which optional parts of a class file ReadClass
// bothers to decode. The zero value reads everything it can.
type ReadOptions struct {
	// ExcludeAttributes names attributes ReadClass should skip over
	// without decoding, mirroring the `exclude_attribute=<name>` option
	// (spec §6.3). StackMapTable is a common candidate, to force Pass A.
	ExcludeAttributes map[string]bool
}

func (o ReadOptions) excludes(name string) bool {
	return o.ExcludeAttributes != nil && o.ExcludeAttributes[name]
}

// ReadClass parses a class file from r into a Class. It assumes the
// constant pool and attribute structure are already well-formed (spec §1
// "Deliberately out of scope" for structural class-file validation) and
// returns an error only on outright malformed or truncated input.
func ReadClass(r io.Reader, opts ReadOptions) (*Class, error) {
	magic, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("classfile: bad magic %#08x", magic)
	}

	minor, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading minor version: %w", err)
	}
	major, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading major version: %w", err)
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading constant pool: %w", err)
	}

	modifiers, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading access flags: %w", err)
	}

	thisIdx, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading this_class: %w", err)
	}
	name, err := pool.className(thisIdx)
	if err != nil {
		return nil, fmt.Errorf("classfile: resolving this_class: %w", err)
	}

	superIdx, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading super_class: %w", err)
	}
	var superName string
	if superIdx != 0 {
		superName, err = pool.className(superIdx)
		if err != nil {
			return nil, fmt.Errorf("classfile: resolving super_class: %w", err)
		}
	}

	ifaceCount, err := readU16(r)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading interfaces_count: %w", err)
	}
	for i := uint16(0); i < ifaceCount; i++ {
		if _, err := readU16(r); err != nil {
			return nil, fmt.Errorf("classfile: reading interface %d: %w", i, err)
		}
	}

	if err := skipFields(r); err != nil {
		return nil, fmt.Errorf("classfile: skipping fields: %w", err)
	}

	methods, err := readMethods(r, pool, opts)
	if err != nil {
		return nil, fmt.Errorf("classfile: reading methods: %w", err)
	}

	if err := skipAttributes(r, opts); err != nil {
		return nil, fmt.Errorf("classfile: skipping class attributes: %w", err)
	}

	return &Class{
		Name:           name,
		SuperclassName: superName,
		Modifiers:      modifiers,
		Major:          major,
		Minor:          minor,
		Methods:        methods,
		Pool:           pool,
	}, nil
}

func readConstantPool(r io.Reader) (*ConstantPool, error) {
	count, err := readU16(r)
	if err != nil {
		return nil, err
	}
	entries := make([]cpEntry, count) // index 0 unused; long/double occupy two slots
	for i := uint16(1); i < count; i++ {
		tag, err := readU8(r)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		switch tag {
		case tagUtf8:
			n, err := readU16(r)
			if err != nil {
				return nil, err
			}
			b, err := readBytes(r, int(n))
			if err != nil {
				return nil, err
			}
			entries[i] = cpEntry{tag: tag, utf8: string(b)}
		case tagInteger, tagFloat:
			if _, err := readU32(r); err != nil {
				return nil, err
			}
			entries[i] = cpEntry{tag: tag}
		case tagLong, tagDouble:
			if _, err := readU64(r); err != nil {
				return nil, err
			}
			entries[i] = cpEntry{tag: tag}
			i++ // occupies two constant pool slots (JVMS §4.4.5)
		case tagClass, tagString, tagMethodType:
			idx, err := readU16(r)
			if err != nil {
				return nil, err
			}
			entries[i] = cpEntry{tag: tag, i1: idx}
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagInvokeDynamic:
			i1, err := readU16(r)
			if err != nil {
				return nil, err
			}
			i2, err := readU16(r)
			if err != nil {
				return nil, err
			}
			entries[i] = cpEntry{tag: tag, i1: i1, i2: i2}
		case tagMethodHandle:
			if _, err := readU8(r); err != nil {
				return nil, err
			}
			idx, err := readU16(r)
			if err != nil {
				return nil, err
			}
			entries[i] = cpEntry{tag: tag, i1: idx}
		default:
			return nil, fmt.Errorf("entry %d: unknown constant pool tag %d", i, tag)
		}
	}
	return &ConstantPool{entries: entries}, nil
}

// skipFields consumes the field table; the verifier never inspects field
// declarations, only method bodies.
func skipFields(r io.Reader) error {
	count, err := readU16(r)
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		if _, err := readU16(r); err != nil { // access_flags
			return err
		}
		if _, err := readU16(r); err != nil { // name_index
			return err
		}
		if _, err := readU16(r); err != nil { // descriptor_index
			return err
		}
		if err := skipAttributes(r, ReadOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func readMethods(r io.Reader, pool *ConstantPool, opts ReadOptions) ([]*Method, error) {
	count, err := readU16(r)
	if err != nil {
		return nil, err
	}
	methods := make([]*Method, 0, getInitialCap(count))
	for i := uint16(0); i < count; i++ {
		m, err := readMethod(r, pool, opts)
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func readMethod(r io.Reader, pool *ConstantPool, opts ReadOptions) (*Method, error) {
	modifiers, err := readU16(r)
	if err != nil {
		return nil, err
	}
	nameIdx, err := readU16(r)
	if err != nil {
		return nil, err
	}
	name, err := pool.utf8(nameIdx)
	if err != nil {
		return nil, err
	}
	descIdx, err := readU16(r)
	if err != nil {
		return nil, err
	}
	descriptor, err := pool.utf8(descIdx)
	if err != nil {
		return nil, err
	}

	argCount, _, err := ParseMethodDescriptor(descriptor)
	if err != nil {
		return nil, fmt.Errorf("parsing descriptor %q: %w", descriptor, err)
	}
	if modifiers&AccStatic == 0 {
		argCount++ // implicit `this` receiver slot
	}

	m := &Method{
		Name:       name,
		Descriptor: descriptor,
		Modifiers:  modifiers,
		ArgCount:   uint16(argCount),
	}

	attrCount, err := readU16(r)
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < attrCount; i++ {
		attrNameIdx, err := readU16(r)
		if err != nil {
			return nil, err
		}
		attrName, err := pool.utf8(attrNameIdx)
		if err != nil {
			return nil, err
		}
		length, err := readU32(r)
		if err != nil {
			return nil, err
		}
		if opts.excludes(attrName) {
			if _, err := readBytes(r, int(length)); err != nil {
				return nil, err
			}
			continue
		}
		switch attrName {
		case AttrCode:
			if err := readCodeAttribute(r, m, pool, opts); err != nil {
				return nil, fmt.Errorf("Code attribute: %w", err)
			}
		default:
			if _, err := readBytes(r, int(length)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func readCodeAttribute(r io.Reader, m *Method, pool *ConstantPool, opts ReadOptions) error {
	maxStack, err := readU16(r)
	if err != nil {
		return err
	}
	maxLocals, err := readU16(r)
	if err != nil {
		return err
	}
	codeLen, err := readU32(r)
	if err != nil {
		return err
	}
	code, err := readBytes(r, int(codeLen))
	if err != nil {
		return err
	}

	excCount, err := readU16(r)
	if err != nil {
		return err
	}
	handlers := make([]ExceptionHandler, 0, getInitialCap(excCount))
	for i := uint16(0); i < excCount; i++ {
		start, err := readU16(r)
		if err != nil {
			return err
		}
		end, err := readU16(r)
		if err != nil {
			return err
		}
		handlerPC, err := readU16(r)
		if err != nil {
			return err
		}
		catchIdx, err := readU16(r)
		if err != nil {
			return err
		}
		var catchType string
		if catchIdx != 0 {
			catchType, err = pool.className(catchIdx)
			if err != nil {
				return err
			}
		}
		handlers = append(handlers, ExceptionHandler{
			StartPC: start, EndPC: end, HandlerPC: handlerPC, CatchType: catchType,
		})
	}

	m.MaxStack = maxStack
	m.MaxLocals = maxLocals
	m.Code = code
	m.ExceptionTable = handlers

	attrCount, err := readU16(r)
	if err != nil {
		return err
	}
	for i := uint16(0); i < attrCount; i++ {
		nameIdx, err := readU16(r)
		if err != nil {
			return err
		}
		attrName, err := pool.utf8(nameIdx)
		if err != nil {
			return err
		}
		length, err := readU32(r)
		if err != nil {
			return err
		}
		if opts.excludes(attrName) {
			if _, err := readBytes(r, int(length)); err != nil {
				return err
			}
			continue
		}
		switch attrName {
		case AttrStackMapTable:
			raw, err := readBytes(r, int(length))
			if err != nil {
				return err
			}
			m.StackMapTable = raw
		default:
			if _, err := readBytes(r, int(length)); err != nil {
				return err
			}
		}
	}
	return nil
}

// skipAttributes consumes a class- or field-level attribute table whose
// contents the verifier has no use for.
func skipAttributes(r io.Reader, opts ReadOptions) error {
	count, err := readU16(r)
	if err != nil {
		return err
	}
	for i := uint16(0); i < count; i++ {
		if _, err := readU16(r); err != nil { // attribute_name_index
			return err
		}
		length, err := readU32(r)
		if err != nil {
			return err
		}
		if _, err := readBytes(r, int(length)); err != nil {
			return err
		}
	}
	_ = opts
	return nil
}
