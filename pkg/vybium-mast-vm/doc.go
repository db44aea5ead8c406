// Package vybiummastvm is the public API of the zero-knowledge virtual
// machine: build or load a Program, execute it against stack inputs and
// a host, and obtain the stack outputs plus (optionally) a self-checked
// execution trace. Internals live under internal/vybium-mast-vm and are
// not exported directly; this package re-exposes the types an embedding
// program needs (Program, Digest, Word, ExecutionOptions) and wraps
// internal errors into a single VMError.
package vybiummastvm
