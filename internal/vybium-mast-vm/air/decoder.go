package air

import (
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/core"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/processor"
	"github.com/vybium/vybium-mast-vm/internal/vybium-mast-vm/trace"
)

// DecoderBoundary asserts the trace begins with a decoder-emitted row
// (Start/Span, never an End or Halt with nothing preceding it): the walk
// always enters the program's entry node first.
func DecoderBoundary(tr *trace.Trace) []Assertion {
	if len(tr.Decoder) == 0 {
		return nil
	}
	first := tr.Decoder[0]
	bad := core.ZeroFelt()
	if first.Kind == processor.RowEnd || first.Kind == processor.RowHalt {
		bad = core.NewFelt(1)
	}
	return []Assertion{{Row: 0, Label: "decoder_starts_with_entry", Value: bad}}
}

// DecoderTransition enforces the op-group counter's progression across
// consecutive Span/Respan rows. The end-row digest identity (the hasher
// slot a node allocated must reproduce the node's declared digest) is
// enforced at execution time by the decoder's block stack and again by
// the hasher bus; this file owns only the row-local counter relation.
func DecoderTransition(tr *trace.Trace, row int) []core.Felt {
	if row+1 >= tr.Height {
		return nil
	}
	cur, next := tr.Decoder[row], tr.Decoder[row+1]
	if (cur.Kind == processor.RowSpan || cur.Kind == processor.RowRespan) &&
		(next.Kind == processor.RowSpan || next.Kind == processor.RowRespan) {
		if next.GroupIdx != cur.GroupIdx+1 {
			return []core.Felt{core.NewFelt(1)}
		}
	}
	return nil
}
