package temporal

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
)

// ScheduleSpec describes a cron schedule that starts one workflow.
type ScheduleSpec struct {
	// ID is the schedule identifier. It also seeds the started workflow IDs.
	ID string
	// Cron is a standard five field cron expression.
	Cron string
	// Timezone is an IANA zone name the cron expression is evaluated in.
	Timezone string
	// Workflow is the registered workflow name.
	Workflow string
	// Args are passed to every started workflow.
	Args []interface{}
}

// EnsureSchedule creates the schedule, or updates it in place when a schedule
// with the same ID already exists. Overlapping runs are skipped.
func (c *WorkflowClient) EnsureSchedule(ctx context.Context, spec ScheduleSpec) error {
	if c.isClosed() {
		return closedError("EnsureSchedule", spec.ID, "")
	}
	if spec.ID == "" || spec.Cron == "" || spec.Workflow == "" {
		return &TemporalError{
			Op:   "EnsureSchedule",
			Kind: ErrInvalidArgument,
			Err:  fmt.Errorf("schedule id, cron and workflow are required"),
		}
	}

	scheduleSpec := client.ScheduleSpec{
		CronExpressions: []string{spec.Cron},
		TimeZoneName:    spec.Timezone,
	}
	action := &client.ScheduleWorkflowAction{
		ID:        spec.ID,
		Workflow:  spec.Workflow,
		Args:      spec.Args,
		TaskQueue: c.taskQueue,
	}

	schedules := c.client.ScheduleClient()
	_, err := schedules.Create(ctx, client.ScheduleOptions{
		ID:      spec.ID,
		Spec:    scheduleSpec,
		Action:  action,
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return wrapTemporalError("EnsureSchedule", err, spec.ID, "")
	}

	handle := schedules.GetHandle(ctx, spec.ID)
	err = handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(in client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			schedule := in.Description.Schedule
			schedule.Spec = &scheduleSpec
			schedule.Action = action
			if schedule.Policy == nil {
				schedule.Policy = &client.SchedulePolicies{}
			}
			schedule.Policy.Overlap = enumspb.SCHEDULE_OVERLAP_POLICY_SKIP
			return &client.ScheduleUpdate{Schedule: &schedule}, nil
		},
	})
	if err != nil {
		return wrapTemporalError("EnsureSchedule", err, spec.ID, "")
	}
	return nil
}
