package osu

// ScoreStatus classifies a stored score. The numeric values leak
// onto the wire and into storage and must not change.
type ScoreStatus int32

const (
	ScoreFailed    ScoreStatus = -1
	ScoreUnranked  ScoreStatus = 0
	ScoreRanked    ScoreStatus = 1
	ScoreBest      ScoreStatus = 2
	ScoreLoved     ScoreStatus = 3
	ScoreLovedBest ScoreStatus = 4
)

// BeatmapStatus is the ranked state of a beatmap.
type BeatmapStatus int32

const (
	BeatmapUnknown      BeatmapStatus = -2
	BeatmapNotSubmitted BeatmapStatus = -1
	BeatmapPending      BeatmapStatus = 0
	BeatmapNeedUpdate   BeatmapStatus = 1
	BeatmapRanked       BeatmapStatus = 2
	BeatmapApproved     BeatmapStatus = 3
	BeatmapQualified    BeatmapStatus = 4
	BeatmapLoved        BeatmapStatus = 5
)

// BeatmapStatusFromMirror coerces the mirror's "ranked" field into
// our status encoding.
func BeatmapStatusFromMirror(ranked int32) BeatmapStatus {
	switch ranked {
	case 1:
		return BeatmapRanked
	case 2:
		return BeatmapApproved
	case 3:
		return BeatmapQualified
	case 4:
		return BeatmapLoved
	default:
		return BeatmapPending
	}
}

// BestStatusFor returns the score status a personal best carries on
// a beatmap of the given status: Best on ranked/approved maps,
// LovedBest on qualified/loved maps, Unranked everywhere else.
func BestStatusFor(bs BeatmapStatus) ScoreStatus {
	switch bs {
	case BeatmapRanked, BeatmapApproved:
		return ScoreBest
	case BeatmapQualified, BeatmapLoved:
		return ScoreLovedBest
	default:
		return ScoreUnranked
	}
}

// Demoted returns the non-best status a replaced best falls back to.
func (s ScoreStatus) Demoted() ScoreStatus {
	switch s {
	case ScoreBest:
		return ScoreRanked
	case ScoreLovedBest:
		return ScoreLoved
	default:
		return s
	}
}

func (s BeatmapStatus) String() string {
	switch s {
	case BeatmapUnknown:
		return "Unknown"
	case BeatmapNotSubmitted:
		return "Not submitted"
	case BeatmapPending:
		return "Pending"
	case BeatmapNeedUpdate:
		return "Needs update"
	case BeatmapRanked:
		return "Ranked"
	case BeatmapApproved:
		return "Approved"
	case BeatmapQualified:
		return "Qualified"
	case BeatmapLoved:
		return "Loved"
	default:
		return "Unknown"
	}
}
