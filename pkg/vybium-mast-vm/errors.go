package vybiummastvm

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/processor"
)

// ErrorKind mirrors the processor's error taxonomy without exposing the
// internal package to callers.
type ErrorKind uint8

const (
	ErrAssertionFailed ErrorKind = iota
	ErrDivideByZero
	ErrNotBinaryValue
	ErrInvalidStackDepthOnReturn
	ErrMemoryError
	ErrAdviceError
	ErrCycleLimitExceeded
	ErrSyscallTargetNotInKernel
	ErrDynamicCallOverflowsStack
	ErrInvalidOpcode
	ErrMalformedProgram
	ErrAceError
	ErrOther
)

var kindNames = map[ErrorKind]string{
	ErrAssertionFailed:           "AssertionFailed",
	ErrDivideByZero:              "DivideByZero",
	ErrNotBinaryValue:            "NotBinaryValue",
	ErrInvalidStackDepthOnReturn: "InvalidStackDepthOnReturn",
	ErrMemoryError:               "MemoryError",
	ErrAdviceError:               "AdviceError",
	ErrCycleLimitExceeded:        "CycleLimitExceeded",
	ErrSyscallTargetNotInKernel:  "SyscallTargetNotInKernel",
	ErrDynamicCallOverflowsStack: "DynamicCallOverflowsStack",
	ErrInvalidOpcode:             "InvalidOpcode",
	ErrMalformedProgram:          "MalformedProgram",
	ErrAceError:                  "AceError",
	ErrOther:                     "Other",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// VMError is the single error type every public-facing operation
// returns on failure: a kind plus the clock at which execution aborted
// and a wrapped cause, with Unwrap/Is support for errors.Is/As.
type VMError struct {
	Kind  ErrorKind
	Clk   uint64
	Cause error
}

func (e *VMError) Error() string {
	return fmt.Sprintf("vybium-mast-vm: %s at clk=%d: %v", e.Kind, e.Clk, e.Cause)
}

func (e *VMError) Unwrap() error { return e.Cause }

func (e *VMError) Is(target error) bool {
	t, ok := target.(*VMError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ExitCode returns the CLI's exit code for this error.
func (e *VMError) ExitCode() int {
	var perr *processor.Error
	if errors.As(e.Cause, &perr) {
		return perr.ExitCode()
	}
	return 1
}

var processorKindToPublic = map[processor.Kind]ErrorKind{
	processor.KindAssertionFailed:           ErrAssertionFailed,
	processor.KindDivideByZero:              ErrDivideByZero,
	processor.KindNotBinaryValue:            ErrNotBinaryValue,
	processor.KindInvalidStackDepthOnReturn: ErrInvalidStackDepthOnReturn,
	processor.KindMemoryError:               ErrMemoryError,
	processor.KindAdviceError:               ErrAdviceError,
	processor.KindCycleLimitExceeded:        ErrCycleLimitExceeded,
	processor.KindSyscallTargetNotInKernel:  ErrSyscallTargetNotInKernel,
	processor.KindDynamicCallOverflowsStack: ErrDynamicCallOverflowsStack,
	processor.KindInvalidOpcode:             ErrInvalidOpcode,
	processor.KindMalformedProgram:          ErrMalformedProgram,
	processor.KindAceError:                  ErrAceError,
}

// wrapErr converts an internal processor/mast/air error into a VMError. A
// non-processor error (e.g. a malformed MAST binary decoded before
// execution starts) is reported with clock zero and ErrMalformedProgram.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var perr *processor.Error
	if errors.As(err, &perr) {
		kind, ok := processorKindToPublic[perr.Kind]
		if !ok {
			kind = ErrOther
		}
		return &VMError{Kind: kind, Clk: perr.Clk, Cause: err}
	}
	return &VMError{Kind: ErrMalformedProgram, Cause: err}
}
