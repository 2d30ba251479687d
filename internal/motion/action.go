package motion

// Raw action codes as the platform packs them: the low byte carries the
// phase, bits 8..15 carry the contact index for the index-scoped phases
// (secondary down/up).
const (
	ActionDown        = 0x0000
	ActionUp          = 0x0001
	ActionMove        = 0x0002
	ActionCancel      = 0x0003
	ActionOutside     = 0x0004
	ActionPointerDown = 0x0005
	ActionPointerUp   = 0x0006

	ActionMask       = 0x00ff
	ActionIndexMask  = 0xff00
	ActionIndexShift = 8
)

// Phase is the decoded gesture phase of a native event.
type Phase int

const (
	// PhaseUnknown covers action codes outside the recognized set. The
	// adapter dispatches nothing for them.
	PhaseUnknown Phase = iota

	// PhasePrimaryStart: the first contact touched down.
	PhasePrimaryStart

	// PhasePrimaryEnd: the last contact lifted.
	PhasePrimaryEnd

	// PhaseSecondaryStart: an additional contact touched down while others
	// remain active. Carries an embedded contact index.
	PhaseSecondaryStart

	// PhaseSecondaryEnd: a non-last contact lifted. Carries an embedded
	// contact index.
	PhaseSecondaryEnd

	// PhaseMove: one or more active contacts changed position.
	PhaseMove

	// PhaseCancel: the gesture was abandoned by the platform.
	PhaseCancel

	// PhaseOutside: the gesture happened outside the interactive region.
	PhaseOutside
)

var phaseNames = map[Phase]string{
	PhaseUnknown:        "unknown",
	PhasePrimaryStart:   "primary-start",
	PhasePrimaryEnd:     "primary-end",
	PhaseSecondaryStart: "secondary-start",
	PhaseSecondaryEnd:   "secondary-end",
	PhaseMove:           "move",
	PhaseCancel:         "cancel",
	PhaseOutside:        "outside",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// Indexed reports whether the phase carries an embedded contact index.
func (p Phase) Indexed() bool {
	return p == PhaseSecondaryStart || p == PhaseSecondaryEnd
}

// DecodeAction splits a packed action code into its phase and, for
// index-scoped phases, the embedded contact index. The index is 0 for all
// other phases. Decoding happens once per native event; nothing downstream
// re-derives the bits.
func DecodeAction(code int) (Phase, int) {
	index := (code & ActionIndexMask) >> ActionIndexShift
	switch code & ActionMask {
	case ActionDown:
		return PhasePrimaryStart, 0
	case ActionUp:
		return PhasePrimaryEnd, 0
	case ActionPointerDown:
		return PhaseSecondaryStart, index
	case ActionPointerUp:
		return PhaseSecondaryEnd, index
	case ActionMove:
		return PhaseMove, 0
	case ActionCancel:
		return PhaseCancel, 0
	case ActionOutside:
		return PhaseOutside, 0
	default:
		return PhaseUnknown, 0
	}
}

// EncodeAction packs a phase and contact index back into an action code.
// The index is only encoded for index-scoped phases. Event sources that
// synthesize native events (evdev) use this as the inverse of DecodeAction.
func EncodeAction(p Phase, index int) int {
	switch p {
	case PhasePrimaryStart:
		return ActionDown
	case PhasePrimaryEnd:
		return ActionUp
	case PhaseSecondaryStart:
		return ActionPointerDown | (index << ActionIndexShift & ActionIndexMask)
	case PhaseSecondaryEnd:
		return ActionPointerUp | (index << ActionIndexShift & ActionIndexMask)
	case PhaseMove:
		return ActionMove
	case PhaseCancel:
		return ActionCancel
	case PhaseOutside:
		return ActionOutside
	default:
		return -1
	}
}
