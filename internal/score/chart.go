package score

import (
	"fmt"
	"strings"

	"github.com/miosrv/mio/internal/model"
)

// Chart is one record of the post-submission chart payload the client
// renders as its ranking panel.
type Chart struct {
	ID           string
	URL          string
	Name         string
	ScoreID      int32
	RankBefore   int64
	RankAfter    int64
	ComboBefore  int32
	ComboAfter   int32
	AccBefore    float64
	AccAfter     float64
	RankedBefore int64
	RankedAfter  int64
	TotalBefore  int64
	TotalAfter   int64
	PPBefore     float64
	PPAfter      float64
}

// render emits the record with a fixed key order.
func (c *Chart) render() string {
	pairs := []string{
		"chartId:" + c.ID,
		"chartUrl:" + c.URL,
		"chartName:" + c.Name,
		fmt.Sprintf("rankBefore:%d", c.RankBefore),
		fmt.Sprintf("rankAfter:%d", c.RankAfter),
		fmt.Sprintf("maxComboBefore:%d", c.ComboBefore),
		fmt.Sprintf("maxComboAfter:%d", c.ComboAfter),
		fmt.Sprintf("accuracyBefore:%v", c.AccBefore),
		fmt.Sprintf("accuracyAfter:%v", c.AccAfter),
		fmt.Sprintf("rankedScoreBefore:%d", c.RankedBefore),
		fmt.Sprintf("rankedScoreAfter:%d", c.RankedAfter),
		fmt.Sprintf("totalScoreBefore:%d", c.TotalBefore),
		fmt.Sprintf("totalScoreAfter:%d", c.TotalAfter),
		fmt.Sprintf("ppBefore:%v", c.PPBefore),
		fmt.Sprintf("ppAfter:%v", c.PPAfter),
		"achievements-new:",
		fmt.Sprintf("onlineScoreId:%d", c.ScoreID),
	}
	return strings.Join(pairs, "|")
}

// BuildChart renders the full submission response: header line, blank
// line, then the per-beatmap and overall chart records.
func BuildChart(b *model.Beatmap, beatmapChart, overall *Chart) string {
	return fmt.Sprintf("beatmapId:%d|beatmapSetId:%d|beatmapPlaycount:0|beatmapPasscount:0|approvedDate:\n\n%s\n%s",
		b.BeatmapID, b.ParentID, beatmapChart.render(), overall.render())
}
