package model

import (
	"time"

	"github.com/miosrv/mio/internal/osu"
)

// Beatmap is a single difficulty of a beatmap set.
type Beatmap struct {
	BeatmapID   int32
	ParentID    int32 // beatmap set id
	Checksum    string
	Artist      string
	Title       string
	Version     string
	Creator     string
	AR          float64
	OD          float64
	CS          float64
	HP          float64
	Stars       float64
	BPM         float64
	MaxCombo    int32
	HitLength   int32
	TotalLength int32
	GameMode    osu.Mode
	Status      osu.BeatmapStatus
	Frozen      bool // status locked against mirror overwrites
	UpdatedAt   time.Time
}
