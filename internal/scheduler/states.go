package scheduler

import "github.com/reachforge/puppet/internal/config"

// validTransitions is the job state machine. completed and cancelled are
// terminal; warning and failed may re-enter pending only through retry
// actions.
var validTransitions = map[config.JobStatus][]config.JobStatus{
	config.JobStatusPending: {
		config.JobStatusQueued,
		config.JobStatusCancelled,
	},
	config.JobStatusQueued: {
		config.JobStatusRunning,
		config.JobStatusCancelled,
	},
	config.JobStatusRunning: {
		config.JobStatusCompleted,
		config.JobStatusFailed,
		config.JobStatusWarning,
		config.JobStatusCancelled,
		config.JobStatusRateLimited,
		config.JobStatusPending, // stuck-execution recovery
	},
	config.JobStatusFailed: {
		config.JobStatusPending, // retry
		config.JobStatusCancelled,
	},
	config.JobStatusWarning: {
		config.JobStatusPending, // admin retry only, never automatic
		config.JobStatusCancelled,
	},
	config.JobStatusRateLimited: {
		config.JobStatusPending,
		config.JobStatusCancelled,
	},
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to config.JobStatus) bool {
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
