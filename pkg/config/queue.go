package config

import "time"

// QueueConfig contains waiting-list configuration: notification timers
// and the knobs of the wait-time estimator.
type QueueConfig struct {
	// NoShowTimeout is how long a notified party has to show up before
	// their entry expires to NO_SHOW.
	NoShowTimeout time.Duration `yaml:"no_show_timeout"`

	// EstimatePerPartyMinutes is the assumed minutes of wait each party
	// ahead in the queue contributes.
	EstimatePerPartyMinutes float64 `yaml:"estimate_per_party_minutes"`

	// EstimateFloorMinutes is the minimum estimate ever returned.
	EstimateFloorMinutes float64 `yaml:"estimate_floor_minutes"`

	// MaxPartySize caps admitted party sizes.
	MaxPartySize int `yaml:"max_party_size"`

	// HistoryWindow is how many recent observed waits feed the estimator.
	HistoryWindow int `yaml:"history_window"`

	// AccuracySamples is how many recent samples feed the 24h estimate
	// accuracy statistic.
	AccuracySamples int `yaml:"accuracy_samples"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		NoShowTimeout:           15 * time.Minute,
		EstimatePerPartyMinutes: 15,
		EstimateFloorMinutes:    5,
		MaxPartySize:            20,
		HistoryWindow:           20,
		AccuracySamples:         50,
	}
}
