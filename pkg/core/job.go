package core

import (
	"fmt"
	"strings"

	"github.com/jdziat/simple-triggers/pkg/jobdata"
)

// JobDetail describes a registered job.
//
// JobType names the implementation registered with the scheduler; the detail
// itself holds no code and can be persisted.
type JobDetail struct {
	Key         JobKey
	Description string
	JobType     string
	Data        *jobdata.Map

	// Durable jobs are kept after their last trigger is removed.
	Durable          bool
	RequestsRecovery bool

	// ConcurrentExecutionDisallowed prevents two runs of this job from overlapping.
	ConcurrentExecutionDisallowed bool
	// PersistJobDataAfterExecution stores changes a run makes to Data.
	PersistJobDataAfterExecution bool
}

// Validate checks the detail is complete enough to be stored.
func (d *JobDetail) Validate() error {
	if d.Key.IsZero() {
		return ErrInvalidJobName
	}
	if strings.TrimSpace(d.JobType) == "" {
		return ErrInvalidJobType
	}
	return nil
}

// JobData returns the data map, creating it on first use.
func (d *JobDetail) JobData() *jobdata.Map {
	if d.Data == nil {
		d.Data = jobdata.New()
	}
	return d.Data
}

// Duplicate returns a copy with its own data map.
func (d *JobDetail) Duplicate() *JobDetail {
	cp := *d
	if d.Data != nil {
		cp.Data = d.Data.Duplicate()
	}
	return &cp
}

func (d *JobDetail) String() string {
	return fmt.Sprintf("JobDetail '%s': jobType: '%s' concurrentExecutionDisallowed: %t persistJobDataAfterExecution: %t durable: %t requestsRecovery: %t",
		d.Key, d.JobType, d.ConcurrentExecutionDisallowed, d.PersistJobDataAfterExecution, d.Durable, d.RequestsRecovery)
}
