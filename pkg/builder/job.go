package builder

import (
	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
)

// JobBuilder assembles a core.JobDetail.
type JobBuilder struct {
	detail core.JobDetail
	data   *jobdata.Map
	err    error
}

// NewJob starts a job definition for the implementation registered as jobType.
func NewJob(jobType string) *JobBuilder {
	return &JobBuilder{detail: core.JobDetail{JobType: jobType}, data: jobdata.New()}
}

func (b *JobBuilder) WithIdentity(name, group string) *JobBuilder {
	k, err := core.NewJobKey(name, group)
	if err != nil && b.err == nil {
		b.err = err
	}
	b.detail.Key = k
	return b
}

func (b *JobBuilder) WithKey(k core.JobKey) *JobBuilder {
	b.detail.Key = k
	return b
}

func (b *JobBuilder) WithDescription(d string) *JobBuilder {
	b.detail.Description = d
	return b
}

func (b *JobBuilder) OfType(jobType string) *JobBuilder {
	b.detail.JobType = jobType
	return b
}

// RequestRecovery asks for the job to be re-run if the scheduler stops
// while it is executing.
func (b *JobBuilder) RequestRecovery(v bool) *JobBuilder {
	b.detail.RequestsRecovery = v
	return b
}

// StoreDurably keeps the job once no trigger points at it.
func (b *JobBuilder) StoreDurably(v bool) *JobBuilder {
	b.detail.Durable = v
	return b
}

func (b *JobBuilder) DisallowConcurrentExecution(v bool) *JobBuilder {
	b.detail.ConcurrentExecutionDisallowed = v
	return b
}

func (b *JobBuilder) PersistJobDataAfterExecution(v bool) *JobBuilder {
	b.detail.PersistJobDataAfterExecution = v
	return b
}

func (b *JobBuilder) UsingJobData(key string, value any) *JobBuilder {
	b.data.Put(key, value)
	return b
}

func (b *JobBuilder) UsingJobDataMap(m *jobdata.Map) *JobBuilder {
	b.data.PutAll(m)
	return b
}

// SetJobData replaces all data set so far.
func (b *JobBuilder) SetJobData(m *jobdata.Map) *JobBuilder {
	b.data = jobdata.New()
	b.data.PutAll(m)
	return b
}

// Build creates the detail. Without an identity the job gets a unique name in
// the default group.
func (b *JobBuilder) Build() (*core.JobDetail, error) {
	if b.err != nil {
		return nil, b.err
	}
	d := b.detail
	if d.Key.IsZero() {
		k, err := core.NewJobKey(core.UniqueName(""), "")
		if err != nil {
			return nil, err
		}
		d.Key = k
	}
	if !b.data.IsEmpty() {
		d.Data = b.data.Duplicate()
		d.Data.ClearDirty()
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
