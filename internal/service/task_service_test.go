package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/opsdesk/internal/domain"
)

func newTaskFixture(t *testing.T) (*TaskService, *requestFixture) {
	t.Helper()
	f := newRequestFixture(t, defaultPolicies())
	svc := NewTaskService(TaskDependencies{
		TaskRepo:    f.tasks,
		RequestRepo: f.requests,
		Tracking:    f.service.tracking,
		Pauses:      f.service.pauses,
		Dispatcher:  f.dispatcher,
	})
	return svc, f
}

func TestCreateTaskInheritsAndTracks(t *testing.T) {
	svc, f := newTaskFixture(t)
	request, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{
		Title:    "parent",
		Priority: domain.PriorityHigh,
	})
	require.NoError(t, err)

	task, tracking, err := svc.CreateTask(context.Background(), adminOperator(), request.ID, TaskCreateInput{Title: "step one"})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Equal(t, request.ID, task.RequestID)
	// the TASK universal policy carries an 8h target
	assert.Equal(t, f.now.Add(8*time.Hour), tracking.Deadline)
	require.NotNil(t, task.SLADeadline)
}

func TestCreateTaskOnClosedRequest(t *testing.T) {
	svc, f := newTaskFixture(t)
	request := createInProgressRequest(t, f)
	_, err := f.service.SubmitForApproval(context.Background(), adminOperator(), request.ID)
	require.NoError(t, err)
	_, err = f.service.ApproveCompletion(context.Background(), "u1", request.ID)
	require.NoError(t, err)

	_, _, err = svc.CreateTask(context.Background(), adminOperator(), request.ID, TaskCreateInput{Title: "late"})
	assert.Error(t, err)
}

func TestTaskPauseResumeCycle(t *testing.T) {
	svc, f := newTaskFixture(t)
	request, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{Title: "parent"})
	require.NoError(t, err)
	task, _, err := svc.CreateTask(context.Background(), adminOperator(), request.ID, TaskCreateInput{Title: "step"})
	require.NoError(t, err)

	paused, err := svc.PauseTask(context.Background(), adminOperator(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntityKindTask, paused.Kind)

	_, err = svc.PauseTask(context.Background(), adminOperator(), task.ID)
	assert.True(t, errors.Is(err, ErrAlreadyPaused))

	resumed, err := svc.ResumeTask(context.Background(), adminOperator(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), resumed.TotalPausedMinutes)

	_, err = svc.ResumeTask(context.Background(), adminOperator(), task.ID)
	assert.True(t, errors.Is(err, ErrNotPaused))
}

func TestTaskTransitionTable(t *testing.T) {
	cases := []struct {
		from    domain.TaskStatus
		to      domain.TaskStatus
		allowed bool
	}{
		{domain.TaskStatusPending, domain.TaskStatusInProgress, true},
		{domain.TaskStatusPending, domain.TaskStatusDone, false},
		{domain.TaskStatusInProgress, domain.TaskStatusDone, true},
		{domain.TaskStatusInProgress, domain.TaskStatusCancelled, true},
		{domain.TaskStatusDone, domain.TaskStatusInProgress, false},
		{domain.TaskStatusCancelled, domain.TaskStatusInProgress, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, taskTransitionAllowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionTaskRejected(t *testing.T) {
	svc, f := newTaskFixture(t)
	request, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{Title: "parent"})
	require.NoError(t, err)
	task, _, err := svc.CreateTask(context.Background(), adminOperator(), request.ID, TaskCreateInput{Title: "step"})
	require.NoError(t, err)

	_, err = svc.TransitionTask(context.Background(), adminOperator(), task.ID, domain.TaskStatusDone)
	assert.Error(t, err)

	got, err := svc.TransitionTask(context.Background(), adminOperator(), task.ID, domain.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, got.Status)
}
