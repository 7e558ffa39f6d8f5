package osu

// Play carries the hit judgement counts of a single play together
// with the mods and mode they were scored under.
type Play struct {
	Count300  int32
	Count100  int32
	Count50   int32
	CountGeki int32
	CountKatu int32
	CountMiss int32
	Mods      Mods
	Mode      Mode
	Failed    bool
}

// TotalHits returns the judged object count for the play's mode.
func (p Play) TotalHits() int32 {
	switch p.Mode {
	case ModeCtb:
		return p.Count300 + p.Count100 + p.Count50 + p.CountMiss + p.CountKatu
	case ModeMania:
		return p.Count300 + p.Count100 + p.Count50 + p.CountMiss + p.CountGeki + p.CountKatu
	default:
		return p.Count300 + p.Count100 + p.Count50 + p.CountMiss
	}
}

// Accuracy returns the play accuracy as a percentage in [0,100].
// Zero judged objects yield 0, never NaN.
func (p Play) Accuracy() float64 {
	total := p.TotalHits()
	if total == 0 {
		return 0
	}
	switch p.Mode {
	case ModeTaiko:
		return float64(p.Count300*150+p.Count100*300) / float64(total) * 100
	case ModeCtb:
		return float64(p.Count50+p.Count100+p.Count300) / float64(total) * 100
	case ModeMania:
		return float64((p.Count300+p.CountGeki)*300+p.CountKatu*200+p.Count100*100+p.Count50*50) /
			float64(total*300) * 100
	default:
		return float64(p.Count300*300+p.Count100*100+p.Count50*50) / float64(total*300) * 100
	}
}

// Grade derives the rank letter for the play. Failed plays grade F.
func (p Play) Grade() string {
	if p.Failed {
		return "F"
	}
	switch p.Mode {
	case ModeCtb:
		return p.gradeByAccuracy(98, 94, 90, 85)
	case ModeMania:
		return p.gradeByAccuracy(95, 90, 80, 70)
	default:
		return p.gradeStandard()
	}
}

func (p Play) gradeStandard() string {
	total := p.TotalHits()
	if total == 0 {
		return "D"
	}
	ratio300 := float64(p.Count300) / float64(total)
	ratio50 := float64(p.Count50) / float64(total)

	if ratio300 == 1 {
		if p.Mods.HiddenOrFlashlight() {
			return "XH"
		}
		return "X"
	}
	if ratio300 > 0.9 && ratio50 <= 0.01 && p.CountMiss == 0 {
		if p.Mods.HiddenOrFlashlight() {
			return "SH"
		}
		return "S"
	}
	if (ratio300 > 0.8 && p.CountMiss == 0) || ratio300 > 0.9 {
		return "A"
	}
	if (ratio300 > 0.7 && p.CountMiss == 0) || ratio300 > 0.8 {
		return "B"
	}
	if ratio300 > 0.6 {
		return "C"
	}
	return "D"
}

// gradeByAccuracy covers the accuracy-stepped modes (ctb, mania).
func (p Play) gradeByAccuracy(s, a, b, c float64) string {
	acc := p.Accuracy()
	switch {
	case acc == 100:
		if p.Mods.HiddenOrFlashlight() {
			return "XH"
		}
		return "X"
	case acc >= s:
		if p.Mods.HiddenOrFlashlight() {
			return "SH"
		}
		return "S"
	case acc >= a:
		return "A"
	case acc >= b:
		return "B"
	case acc >= c:
		return "C"
	default:
		return "D"
	}
}
