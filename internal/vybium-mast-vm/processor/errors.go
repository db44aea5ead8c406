// Package processor drives execution of a mast.Program: the decoder
// walks the MAST depth-first, the op dispatcher consumes op-codes
// against the stack and chiplets, and the host supplies advice values
// and handles events.
package processor

import (
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/mast"
)

// Span is the optional source location an error carries when MAST debug
// info is available.
type Span = mast.DebugInfo

// Error is the single error type every processor failure returns,
// carrying the clock at which it occurred and, when available, a source
// span. Kind distinguishes the taxonomy member so callers (in
// particular the CLI's exit-code mapping) can switch on it without
// string matching.
type Error struct {
	Kind Kind
	Clk  uint64
	Span *Span
	// Detail carries kind-specific context (assertion code, addresses,
	// digests) rendered into Error() but not otherwise structured.
	Detail string
}

// Kind is the closed set of error taxonomy members.
type Kind uint8

const (
	KindAssertionFailed Kind = iota
	KindDivideByZero
	KindNotBinaryValue
	KindInvalidStackDepthOnReturn
	KindMemoryError
	KindAdviceError
	KindCycleLimitExceeded
	KindSyscallTargetNotInKernel
	KindDynamicCallOverflowsStack
	KindInvalidOpcode
	KindMalformedProgram
	KindAceError
)

func (k Kind) String() string {
	switch k {
	case KindAssertionFailed:
		return "AssertionFailed"
	case KindDivideByZero:
		return "DivideByZero"
	case KindNotBinaryValue:
		return "NotBinaryValue"
	case KindInvalidStackDepthOnReturn:
		return "InvalidStackDepthOnReturn"
	case KindMemoryError:
		return "MemoryError"
	case KindAdviceError:
		return "AdviceError"
	case KindCycleLimitExceeded:
		return "CycleLimitExceeded"
	case KindSyscallTargetNotInKernel:
		return "SyscallTargetNotInKernel"
	case KindDynamicCallOverflowsStack:
		return "DynamicCallOverflowsStack"
	case KindInvalidOpcode:
		return "InvalidOpcode"
	case KindMalformedProgram:
		return "MalformedProgram"
	case KindAceError:
		return "AceError"
	default:
		return "Unknown"
	}
}

func (e *Error) Error() string {
	if e.Span != nil {
		return fmt.Sprintf("%s at clk=%d (%s:%d): %s", e.Kind, e.Clk, e.Span.File, e.Span.Line, e.Detail)
	}
	return fmt.Sprintf("%s at clk=%d: %s", e.Kind, e.Clk, e.Detail)
}

// ExitCode maps an error kind to the CLI's exit-code table.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindAssertionFailed:
		return 64
	case KindCycleLimitExceeded:
		return 65
	case KindMemoryError:
		return 66
	case KindAdviceError:
		return 67
	case KindInvalidStackDepthOnReturn, KindDynamicCallOverflowsStack:
		return 68
	case KindInvalidOpcode:
		return 69
	default:
		return 1
	}
}

func newErr(kind Kind, clk uint64, span *Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Clk: clk, Span: span, Detail: fmt.Sprintf(format, args...)}
}
