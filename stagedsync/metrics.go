package stagedsync

import (
	"sync"

	"github.com/erigontech/erigon-lib/metrics"
)

// stageHeightGauges tracks one gauge per stage, created lazily so tests that
// construct many stages in the same process don't hit metrics' duplicate-
// registration guard.
var (
	stageHeightGaugesMu sync.Mutex
	stageHeightGauges   = map[string]metrics.Gauge{}
)

func stageHeightGauge(stageName string) metrics.Gauge {
	stageHeightGaugesMu.Lock()
	defer stageHeightGaugesMu.Unlock()
	if g, ok := stageHeightGauges[stageName]; ok {
		return g
	}
	g := metrics.NewGauge(`stage_height{stage="` + stageName + `"}`)
	stageHeightGauges[stageName] = g
	return g
}

func setStageHeight(stageName string, height uint64) {
	stageHeightGauge(stageName).Set(float64(height))
}
