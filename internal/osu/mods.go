package osu

import "strings"

// Mods is the 32-bit mod bitfield submitted by the client.
type Mods uint32

const (
	ModNoFail      Mods = 1 << 0
	ModEasy        Mods = 1 << 1
	ModTouchDevice Mods = 1 << 2
	ModHidden      Mods = 1 << 3
	ModHardRock    Mods = 1 << 4
	ModSuddenDeath Mods = 1 << 5
	ModDoubleTime  Mods = 1 << 6
	ModRelax       Mods = 1 << 7
	ModHalfTime    Mods = 1 << 8
	ModNightcore   Mods = 1 << 9
	ModFlashlight  Mods = 1 << 10
	ModSpunOut     Mods = 1 << 12
	ModAutopilot   Mods = 1 << 13
)

// modOrder fixes the acronym order for formatting; map iteration
// order would make Format non-deterministic.
var modOrder = []struct {
	bit  Mods
	name string
}{
	{ModNoFail, "NF"},
	{ModEasy, "EZ"},
	{ModTouchDevice, "TD"},
	{ModHidden, "HD"},
	{ModHardRock, "HR"},
	{ModSuddenDeath, "SD"},
	{ModDoubleTime, "DT"},
	{ModRelax, "RX"},
	{ModHalfTime, "HT"},
	{ModNightcore, "NC"},
	{ModFlashlight, "FL"},
	{ModSpunOut, "SO"},
	{ModAutopilot, "AP"},
}

// Format renders the set bits as concatenated acronyms, "NM" when none.
func (m Mods) Format() string {
	var sb strings.Builder
	for _, e := range modOrder {
		if m&e.bit != 0 {
			sb.WriteString(e.name)
		}
	}
	if sb.Len() == 0 {
		return "NM"
	}
	return sb.String()
}

// ParseMods reads concatenated two-letter acronyms ("HDDT") into a
// bitfield. Unknown pairs are skipped. NC implies DT.
func ParseMods(s string) Mods {
	s = strings.ToUpper(s)
	var out Mods
	for i := 0; i+1 < len(s); i += 2 {
		pair := s[i : i+2]
		for _, e := range modOrder {
			if e.name == pair {
				if e.bit == ModNightcore {
					out |= ModDoubleTime
				}
				out |= e.bit
				break
			}
		}
	}
	return out
}

// HiddenOrFlashlight reports whether the grade should use the
// "hidden" letters (XH/SH).
func (m Mods) HiddenOrFlashlight() bool {
	return m&(ModHidden|ModFlashlight) != 0
}
