package frontend

// ConditionalState tracks A32's block-level condition-code handling
// while translating a sequence of conditionally-executed instructions
// into one block with a single shared entry condition (spec §4.2). Its
// four states were resolved against original_source's
// ARMTranslatorVisitor::cond_state, which is a 4-valued enum rather
// than the "three-valued" label in the distilled spec text.
type ConditionalState int

const (
	// CondNone: no conditional instruction has been seen yet in this
	// block. The next instruction may set the block's entry condition.
	CondNone ConditionalState = iota
	// CondTranslating: currently translating a run of instructions that
	// all share the block's entry condition.
	CondTranslating
	// CondTrailing: the block's shared condition no longer applies (an
	// unconditional instruction was seen after a conditional run); only
	// unconditional instructions may still be appended.
	CondTrailing
	// CondBreak: translation of this block must stop at the next
	// instruction boundary (a conditional instruction with a condition
	// different from the block's during CondTranslating, or any
	// conditional instruction during CondTrailing).
	CondBreak
)

func (s ConditionalState) String() string {
	switch s {
	case CondNone:
		return "None"
	case CondTranslating:
		return "Translating"
	case CondTrailing:
		return "Trailing"
	case CondBreak:
		return "Break"
	default:
		return "Invalid"
	}
}
