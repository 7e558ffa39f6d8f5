// Package performance turns a beatmap file and play data into
// performance points and a star rating. The calculation is a pure
// deterministic function: identical inputs always produce identical
// output, and an unreadable beatmap yields 0 instead of an error.
package performance

import (
	"math"

	"github.com/miosrv/mio/internal/osu"
)

// Caps are the maximum believable pp per mode. Scores above the cap
// from unverified accounts trigger a restriction.
var Caps = map[osu.Mode]float64{
	osu.ModeStd:   727,
	osu.ModeTaiko: 800,
	osu.ModeCtb:   2300,
	osu.ModeMania: 1200,
	osu.ModeRelax: 1800,
}

// CapReached reports whether the pp value exceeds the mode's cap.
// Verified users bypass the cap.
func CapReached(pp float64, mode osu.Mode, verified bool) bool {
	if verified {
		return false
	}
	limit, ok := Caps[mode]
	if !ok {
		return false
	}
	return pp > limit
}

// Calculate computes performance points for a play. Standard plays
// carrying the Relax mod bit and mode 4 route to the relax weighting.
func Calculate(beatmap []byte, play osu.Play, combo int32) float64 {
	diff, err := parseBeatmap(beatmap)
	if err != nil {
		return 0
	}
	mode := osu.EffectiveMode(play.Mode, play.Mods)
	stars := diff.stars(play.Mods)
	return scorePP(stars, diff, play.Accuracy(), combo, int(play.CountMiss), mode, play.Mods)
}

// Stars computes the mod-adjusted star rating of a beatmap.
func Stars(beatmap []byte, mods osu.Mods) float64 {
	diff, err := parseBeatmap(beatmap)
	if err != nil {
		return 0
	}
	return diff.stars(mods)
}

// Estimate is one entry of an accuracy sweep.
type Estimate struct {
	Accuracy float64
	PP       float64
	Stars    float64
}

// ForAccuracies computes full-combo pp at each target accuracy. Used
// by the bot's !np, !with and !acc replies.
func ForAccuracies(beatmap []byte, mods osu.Mods, mode osu.Mode, accuracies []float64) []Estimate {
	diff, err := parseBeatmap(beatmap)
	if err != nil {
		return nil
	}
	stars := diff.stars(mods)
	out := make([]Estimate, 0, len(accuracies))
	for _, acc := range accuracies {
		pp := scorePP(stars, diff, acc, int32(diff.objects), 0, mode, mods)
		out = append(out, Estimate{Accuracy: acc, PP: pp, Stars: stars})
	}
	return out
}

// scorePP folds star rating, accuracy, combo and misses into a pp
// value. The relax weighting leans harder on aim (stars) and less on
// accuracy than the unified weighting.
func scorePP(stars float64, diff *difficulty, accuracy float64, combo int32, misses int, mode osu.Mode, mods osu.Mods) float64 {
	if stars <= 0 || accuracy <= 0 {
		return 0
	}

	base := math.Pow(stars, 2.2) * 2.1
	if mode == osu.ModeRelax {
		base = math.Pow(stars, 2.35) * 1.7
	}

	accFactor := math.Pow(accuracy/100, 5.5)
	if mode == osu.ModeRelax {
		accFactor = math.Pow(accuracy/100, 3.2)
	}

	maxCombo := float64(diff.objects)
	if maxCombo < 1 {
		maxCombo = 1
	}
	comboFactor := math.Min(math.Pow(float64(combo)/maxCombo, 0.8), 1)
	missFactor := math.Pow(0.97, float64(misses))

	pp := base * accFactor * comboFactor * missFactor * lengthBonus(diff.objects)
	if mods&(osu.ModHidden|osu.ModFlashlight) != 0 {
		pp *= 1.08
	}
	if mods&osu.ModNoFail != 0 {
		pp *= 0.95
	}
	if mods&osu.ModSpunOut != 0 {
		pp *= 0.97
	}
	return pp
}

func lengthBonus(objects int) float64 {
	n := math.Min(float64(objects), 3000)
	return 0.95 + 0.3*(n/3000)
}
