package osu

// Mode is a play mode as encoded on the wire and in storage.
// Relax is not a real client mode: it is standard play with the
// Relax mod bit set, stored on its own leaderboard as mode 4.
type Mode uint8

const (
	ModeStd Mode = iota
	ModeTaiko
	ModeCtb
	ModeMania
	ModeRelax
)

// ModeFromID maps a wire id to a Mode, defaulting to standard.
func ModeFromID(id uint8) Mode {
	if id > uint8(ModeRelax) {
		return ModeStd
	}
	return Mode(id)
}

// EffectiveMode resolves the leaderboard mode for a play: standard
// with the Relax mod bit routes to the Relax leaderboard.
func EffectiveMode(declared Mode, mods Mods) Mode {
	if mods&ModRelax != 0 && declared == ModeStd {
		return ModeRelax
	}
	return declared
}

func (m Mode) String() string {
	switch m {
	case ModeTaiko:
		return "osu!taiko"
	case ModeCtb:
		return "osu!catch"
	case ModeMania:
		return "osu!mania"
	case ModeRelax:
		return "osu!rx"
	default:
		return "osu!"
	}
}

// AllModes lists every leaderboard mode, Relax included.
func AllModes() []Mode {
	return []Mode{ModeStd, ModeTaiko, ModeCtb, ModeMania, ModeRelax}
}
