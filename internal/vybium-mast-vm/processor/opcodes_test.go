package processor

import (
	"testing"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

func TestLookupKnownOpReturnsCategory(t *testing.T) {
	info, err := Lookup(0, mast.OpAdd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Category != CategoryField {
		t.Fatalf("expected CategoryField, got %v", info.Category)
	}
}

func TestLookupEveryCategoryRepresented(t *testing.T) {
	cases := map[mast.OpCode]Category{
		mast.OpNoop:                  CategorySystem,
		mast.OpDup:                   CategoryStack,
		mast.OpAdd:                   CategoryField,
		mast.OpU32add:                CategoryU32,
		mast.OpMLoad:                 CategoryIO,
		mast.OpHPerm:                 CategoryCrypto,
		mast.OpExt2Add:               CategoryExtension,
		mast.OpArithmeticCircuitEval: CategoryACE,
	}
	for op, want := range cases {
		info, err := Lookup(0, op)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", op, err)
		}
		if info.Category != want {
			t.Fatalf("%s: got category %v, want %v", op, info.Category, want)
		}
	}
}

func TestLookupUnknownOpFailsWithInvalidOpcode(t *testing.T) {
	_, err := Lookup(5, mast.OpCode(200))
	if err == nil {
		t.Fatalf("expected an error for an out-of-table op-code")
	}
	perr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if perr.Kind != KindInvalidOpcode {
		t.Fatalf("expected KindInvalidOpcode, got %v", perr.Kind)
	}
	if perr.Clk != 5 {
		t.Fatalf("expected clk 5 to be preserved in the error, got %d", perr.Clk)
	}
}
