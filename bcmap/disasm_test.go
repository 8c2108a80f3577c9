package bcmap

import (
	"strings"
	"testing"
)

func TestDisassembleBasic(t *testing.T) {
	code := []byte{OpAload0, OpInvokespecial, 0, 1, OpReturn}
	d, err := Disassemble(code)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Instrs) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(d.Instrs))
	}
	if d.Instrs[1].Op != OpInvokespecial || len(d.Instrs[1].Operands) != 2 {
		t.Fatalf("invokespecial operands = %+v", d.Instrs[1])
	}
}

func TestDisassemblyDump(t *testing.T) {
	code := []byte{OpAload0, OpReturn}
	d, err := Disassemble(code)
	if err != nil {
		t.Fatal(err)
	}
	out := d.Dump()
	if !strings.Contains(out, "aload_0") || !strings.Contains(out, "return") {
		t.Fatalf("dump missing mnemonics: %q", out)
	}
}
