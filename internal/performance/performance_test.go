package performance

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miosrv/mio/internal/osu"
)

func sampleBeatmap(objects int) []byte {
	var sb strings.Builder
	sb.WriteString("osu file format v14\n\n")
	sb.WriteString("[Difficulty]\n")
	sb.WriteString("HPDrainRate:5\n")
	sb.WriteString("CircleSize:4\n")
	sb.WriteString("OverallDifficulty:8\n")
	sb.WriteString("ApproachRate:9\n")
	sb.WriteString("SliderMultiplier:1.8\n\n")
	sb.WriteString("[HitObjects]\n")
	for i := 0; i < objects; i++ {
		fmt.Fprintf(&sb, "%d,%d,%d,1,0\n", i*7%512, i*11%384, i*120)
	}
	return []byte(sb.String())
}

func fullComboPlay(objects int) osu.Play {
	return osu.Play{Count300: int32(objects), Mode: osu.ModeStd}
}

func TestCalculateDeterministic(t *testing.T) {
	bm := sampleBeatmap(500)
	play := fullComboPlay(500)

	a := Calculate(bm, play, 500)
	b := Calculate(bm, play, 500)
	assert.Greater(t, a, 0.0)
	assert.Equal(t, a, b)
}

func TestUnreadableBeatmapYieldsZero(t *testing.T) {
	assert.Zero(t, Calculate([]byte("<html>not found</html>"), fullComboPlay(100), 100))
	assert.Zero(t, Calculate(nil, fullComboPlay(100), 100))
	assert.Zero(t, Stars([]byte("garbage"), 0))
}

func TestHigherAccuracyMorePP(t *testing.T) {
	bm := sampleBeatmap(500)
	perfect := Calculate(bm, fullComboPlay(500), 500)
	sloppy := Calculate(bm, osu.Play{Count300: 400, Count100: 100, Mode: osu.ModeStd}, 500)
	assert.Greater(t, perfect, sloppy)
}

func TestMissesReducePP(t *testing.T) {
	bm := sampleBeatmap(500)
	clean := Calculate(bm, fullComboPlay(500), 500)
	missed := Calculate(bm, osu.Play{Count300: 495, CountMiss: 5, Mode: osu.ModeStd}, 480)
	assert.Greater(t, clean, missed)
}

func TestSpeedModsRaiseStars(t *testing.T) {
	bm := sampleBeatmap(500)
	nomod := Stars(bm, 0)
	dt := Stars(bm, osu.ModDoubleTime)
	ht := Stars(bm, osu.ModHalfTime)
	assert.Greater(t, dt, nomod)
	assert.Less(t, ht, nomod)
}

func TestRelaxRouting(t *testing.T) {
	bm := sampleBeatmap(500)
	vanilla := Calculate(bm, fullComboPlay(500), 500)

	relaxPlay := fullComboPlay(500)
	relaxPlay.Mods = osu.ModRelax
	relax := Calculate(bm, relaxPlay, 500)

	declaredRelax := fullComboPlay(500)
	declaredRelax.Mode = osu.ModeRelax
	declaredRelax.Mods = osu.ModRelax
	declared := Calculate(bm, declaredRelax, 500)

	// Mod bit on standard and declared mode 4 use the same weighting.
	assert.Equal(t, relax, declared)
	assert.NotEqual(t, vanilla, relax)
}

func TestForAccuracies(t *testing.T) {
	bm := sampleBeatmap(500)
	est := ForAccuracies(bm, 0, osu.ModeStd, []float64{100, 99, 98})
	require.Len(t, est, 3)
	assert.Greater(t, est[0].PP, est[1].PP)
	assert.Greater(t, est[1].PP, est[2].PP)
	assert.Equal(t, est[0].Stars, est[2].Stars)

	assert.Nil(t, ForAccuracies([]byte("garbage"), 0, osu.ModeStd, []float64{100}))
}

func TestCapReached(t *testing.T) {
	assert.True(t, CapReached(728, osu.ModeStd, false))
	assert.False(t, CapReached(727, osu.ModeStd, false))
	assert.False(t, CapReached(5000, osu.ModeStd, true))
	assert.False(t, CapReached(1799, osu.ModeRelax, false))
	assert.True(t, CapReached(1801, osu.ModeRelax, false))
}

func TestMissingApproachRateFallsBackToOD(t *testing.T) {
	bm := []byte("osu file format v5\n[Difficulty]\nOverallDifficulty:6\n[HitObjects]\n1,1,1,1,0\n2,2,2,1,0\n")
	assert.Greater(t, Stars(bm, 0), 0.0)
}
