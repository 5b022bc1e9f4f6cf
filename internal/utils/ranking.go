package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64
	WeightComment  float64
	WeightUpvote   float64
	WeightDownvote float64
	ScaleFactor    float64
}

var DefaultConfig = RankConfig{
	Gravity:        1.5,
	WeightComment:  2.0,
	WeightUpvote:   1.0,
	WeightDownvote: 1.5,
	ScaleFactor:    100.0, // keeps fresh posts in roughly 0-100
}

// HotScore ranks a post by log-smoothed engagement decayed by age in hours.
func HotScore(createdAt, now time.Time, up, down, comments int) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}

	weightedSum := float64(up)*DefaultConfig.WeightUpvote +
		float64(comments)*DefaultConfig.WeightComment -
		float64(down)*DefaultConfig.WeightDownvote
	if weightedSum < 0 {
		weightedSum = 0
	}

	numerator := math.Log10(weightedSum+1) * DefaultConfig.ScaleFactor
	decay := math.Pow(hours+2, DefaultConfig.Gravity)
	return numerator / decay
}
