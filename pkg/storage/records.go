package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
	"github.com/jdziat/simple-triggers/pkg/jobdata"
	"github.com/jdziat/simple-triggers/pkg/trigger"
)

// JobRecord is the stored form of a core.JobDetail.
type JobRecord struct {
	Name  string `gorm:"column:job_name;primaryKey;size:200"`
	Group string `gorm:"column:job_group;primaryKey;size:200"`

	Description                   string
	JobType                       string `gorm:"size:200;not null"`
	Durable                       bool
	RequestsRecovery              bool
	ConcurrentExecutionDisallowed bool
	PersistJobDataAfterExecution  bool
	Data                          []byte

	UpdatedAt time.Time
}

func (JobRecord) TableName() string { return "trigger_jobs" }

// TriggerRecord is the stored form of a trigger and its scheduling state.
// Null instants are stored as NULL.
type TriggerRecord struct {
	Name  string `gorm:"column:trigger_name;primaryKey;size:200"`
	Group string `gorm:"column:trigger_group;primaryKey;size:200"`

	JobName  string            `gorm:"size:200;index:idx_triggers_job"`
	JobGroup string            `gorm:"size:200;index:idx_triggers_job"`
	Kind     string            `gorm:"size:16;not null"`
	State    core.TriggerState `gorm:"size:16;index"`

	Description        string
	CalendarName       string `gorm:"size:200;index"`
	Priority           int
	MisfireInstruction int

	StartTime        time.Time
	EndTime          *time.Time
	NextFireTime     *time.Time `gorm:"index"`
	PreviousFireTime *time.Time
	FireInstanceID   string `gorm:"size:64"`

	RepeatCount    int
	RepeatInterval time.Duration
	TimesTriggered int
	Complete       bool

	CronExpression string `gorm:"size:120"`
	TimeZone       string `gorm:"size:80"`

	Data []byte

	UpdatedAt time.Time
}

func (TriggerRecord) TableName() string { return "trigger_triggers" }

func encodeData(m *jobdata.Map) ([]byte, error) {
	if m == nil || m.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("storage: encode job data: %w", err)
	}
	return b, nil
}

func decodeData(b []byte) (*jobdata.Map, error) {
	if len(b) == 0 {
		return nil, nil
	}
	m := jobdata.New()
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("storage: decode job data: %w", err)
	}
	return m, nil
}

func nullable(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func instant(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func jobRecord(d *core.JobDetail) (JobRecord, error) {
	data, err := encodeData(d.Data)
	if err != nil {
		return JobRecord{}, err
	}
	return JobRecord{
		Name:                          d.Key.Name(),
		Group:                         d.Key.Group(),
		Description:                   d.Description,
		JobType:                       d.JobType,
		Durable:                       d.Durable,
		RequestsRecovery:              d.RequestsRecovery,
		ConcurrentExecutionDisallowed: d.ConcurrentExecutionDisallowed,
		PersistJobDataAfterExecution:  d.PersistJobDataAfterExecution,
		Data:                          data,
	}, nil
}

func (r *JobRecord) detail() (*core.JobDetail, error) {
	key, err := core.NewJobKey(r.Name, r.Group)
	if err != nil {
		return nil, err
	}
	data, err := decodeData(r.Data)
	if err != nil {
		return nil, err
	}
	return &core.JobDetail{
		Key:                           key,
		Description:                   r.Description,
		JobType:                       r.JobType,
		Data:                          data,
		Durable:                       r.Durable,
		RequestsRecovery:              r.RequestsRecovery,
		ConcurrentExecutionDisallowed: r.ConcurrentExecutionDisallowed,
		PersistJobDataAfterExecution:  r.PersistJobDataAfterExecution,
	}, nil
}

func triggerRecord(t *trigger.Trigger, state core.TriggerState) (TriggerRecord, error) {
	s := t.Snapshot()
	data, err := encodeData(s.Data)
	if err != nil {
		return TriggerRecord{}, err
	}
	return TriggerRecord{
		Name:               s.Name,
		Group:              s.Group,
		JobName:            s.JobName,
		JobGroup:           s.JobGroup,
		Kind:               string(s.Kind),
		State:              state,
		Description:        s.Description,
		CalendarName:       s.CalendarName,
		Priority:           s.Priority,
		MisfireInstruction: int(s.MisfireInstruction),
		StartTime:          s.StartTime.UTC(),
		EndTime:            nullable(s.EndTime),
		NextFireTime:       nullable(s.NextFireTime),
		PreviousFireTime:   nullable(s.PreviousFireTime),
		FireInstanceID:     s.FireInstanceID,
		RepeatCount:        s.RepeatCount,
		RepeatInterval:     s.RepeatInterval,
		TimesTriggered:     s.TimesTriggered,
		Complete:           s.Complete,
		CronExpression:     s.CronExpression,
		TimeZone:           s.TimeZone,
		Data:               data,
	}, nil
}

func (r *TriggerRecord) trigger() (*trigger.Trigger, error) {
	data, err := decodeData(r.Data)
	if err != nil {
		return nil, err
	}
	t, err := trigger.FromSnapshot(trigger.Snapshot{
		Kind:               trigger.Kind(r.Kind),
		Name:               r.Name,
		Group:              r.Group,
		JobName:            r.JobName,
		JobGroup:           r.JobGroup,
		Description:        r.Description,
		CalendarName:       r.CalendarName,
		Data:               data,
		Priority:           r.Priority,
		MisfireInstruction: trigger.MisfireInstruction(r.MisfireInstruction),
		StartTime:          r.StartTime,
		EndTime:            instant(r.EndTime),
		NextFireTime:       instant(r.NextFireTime),
		PreviousFireTime:   instant(r.PreviousFireTime),
		FireInstanceID:     r.FireInstanceID,
		RepeatCount:        r.RepeatCount,
		RepeatInterval:     r.RepeatInterval,
		TimesTriggered:     r.TimesTriggered,
		Complete:           r.Complete,
		CronExpression:     r.CronExpression,
		TimeZone:           r.TimeZone,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: restore trigger %s.%s: %w", r.Group, r.Name, err)
	}
	return t, nil
}
