package performance

import (
	"bufio"
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/miosrv/mio/internal/osu"
)

var errNotABeatmap = errors.New("not a beatmap file")

// difficulty holds the parsed settings a rating is derived from.
type difficulty struct {
	od               float64
	ar               float64
	cs               float64
	hp               float64
	sliderMultiplier float64
	objects          int
}

// parseBeatmap extracts the [Difficulty] section and counts hit
// objects from a .osu file. Only the fields the rating needs are
// read; everything else is skipped.
func parseBeatmap(data []byte) (*difficulty, error) {
	if !bytes.Contains(data, []byte("osu file format")) {
		return nil, errNotABeatmap
	}

	d := &difficulty{ar: -1, sliderMultiplier: 1.4}
	section := ""
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line
			continue
		}
		switch section {
		case "[Difficulty]":
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				continue
			}
			switch strings.TrimSpace(key) {
			case "OverallDifficulty":
				d.od = f
			case "ApproachRate":
				d.ar = f
			case "CircleSize":
				d.cs = f
			case "HPDrainRate":
				d.hp = f
			case "SliderMultiplier":
				d.sliderMultiplier = f
			}
		case "[HitObjects]":
			d.objects++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if d.objects == 0 {
		return nil, errNotABeatmap
	}
	// Old format versions omit ApproachRate and reuse OD.
	if d.ar < 0 {
		d.ar = d.od
	}
	return d, nil
}

// stars derives the mod-adjusted rating. Speed mods rescale the
// whole rating, difficulty mods shift the underlying settings.
func (d *difficulty) stars(mods osu.Mods) float64 {
	od, ar, cs := d.od, d.ar, d.cs
	if mods&osu.ModHardRock != 0 {
		od = min(od*1.4, 10)
		ar = min(ar*1.4, 10)
		cs = min(cs*1.3, 10)
	}
	if mods&osu.ModEasy != 0 {
		od, ar, cs = od/2, ar/2, cs/2
	}

	density := float64(d.objects) / 600
	if density > 1 {
		density = 1 + (density-1)*0.25
	}
	rating := 0.28*od + 0.30*ar + 0.08*cs + 0.9*density + 0.5*d.sliderMultiplier

	if mods&osu.ModDoubleTime != 0 {
		rating *= 1.4
	}
	if mods&osu.ModHalfTime != 0 {
		rating *= 0.7
	}
	return rating
}
