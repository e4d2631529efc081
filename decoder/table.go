package decoder

import "sort"

// Rule is one entry in a decode Table: a matched bit-pattern plus the
// closure that extracts its fields and invokes the visitor.
type Rule[V any] struct {
	Name   string
	Mask   uint32
	Expect uint32
	Fields []Field

	// Visit is called with the fields extracted in pattern order
	// (spec §4.1: "a closure that extracts the fields and calls the
	// visitor's member named in the pattern"). It returns
	// should_continue per spec §4.2 step 4.
	Visit func(v V, fields []uint32) bool
}

// Matches reports whether instr satisfies this rule's mask/expect
// pair.
func (r Rule[V]) Matches(instr uint32) bool { return instr&r.Mask == r.Expect }

// extract returns the decoded field values in pattern order.
func (r Rule[V]) extract(instr uint32) []uint32 {
	if len(r.Fields) == 0 {
		return nil
	}
	out := make([]uint32, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Extract(instr)
	}
	return out
}

// Table is an ordered, stably-sorted sequence of Rules for one
// instruction-word width. Lookup is a linear scan for the first
// matching rule (spec §4.1).
type Table[V any] struct {
	rules []Rule[V]
}

// NewRule builds a Rule from a bit-pattern of the given width (32 for
// A32/A64/Thumb32, 16 for Thumb16) and a Visit closure.
func NewRule[V any](name string, width int, pattern string, visit func(v V, fields []uint32) bool) Rule[V] {
	mask, expect, fields := ParsePatternWidth(pattern, width)
	return Rule[V]{Name: name, Mask: mask, Expect: expect, Fields: fields, Visit: visit}
}

// NewTable builds a Table from the given rules, sorting them stably by
// descending specificity (most fixed bits first) so an unconditional
// catch-all pattern never shadows a more specific one ahead of it in
// source order.
func NewTable[V any](rules ...Rule[V]) *Table[V] {
	t := &Table[V]{rules: append([]Rule[V](nil), rules...)}
	sort.SliceStable(t.rules, func(i, j int) bool {
		return specificity(t.rules[i].Mask) > specificity(t.rules[j].Mask)
	})
	return t
}

// Decode finds the first rule matching instr and invokes its Visit
// closure against v, returning (shouldContinue, true). If no rule
// matches it returns (false, false); per spec §4.1 the caller must then
// invoke the visitor's UDF/undefined handler.
func (t *Table[V]) Decode(v V, instr uint32) (shouldContinue bool, matched bool) {
	for _, r := range t.rules {
		if r.Matches(instr) {
			return r.Visit(v, r.extract(instr)), true
		}
	}
	return false, false
}

// Len reports the number of rules in the table.
func (t *Table[V]) Len() int { return len(t.rules) }
