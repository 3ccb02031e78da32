package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/opsdesk/internal/domain"
	"github.com/spec-kit/opsdesk/internal/events"
	"github.com/spec-kit/opsdesk/internal/observability"
	"github.com/spec-kit/opsdesk/internal/repository"
)

type mockRequestRepo struct {
	*mockSLAStore
	requests map[string]*domain.Request
	nextID   string
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{
		mockSLAStore: newMockSLAStore(nil),
		requests:     map[string]*domain.Request{},
		nextID:       "r1",
	}
}

func (m *mockRequestRepo) Create(_ context.Context, request *domain.Request) error {
	request.ID = m.nextID
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	m.requests[request.ID] = request
	m.snap = &domain.SLASnapshot{ID: request.ID, Kind: domain.EntityKindRequest}
	return nil
}

func (m *mockRequestRepo) Update(_ context.Context, request *domain.Request) error {
	if _, ok := m.requests[request.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.requests[request.ID] = request
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*domain.Request, error) {
	request, ok := m.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *request
	if m.snap != nil && m.snap.ID == id {
		c.SLAInfo = m.snap.SLAInfo
	}
	return &c, nil
}

func (m *mockRequestRepo) GetByExternalKey(_ context.Context, key string) (*domain.Request, error) {
	for _, request := range m.requests {
		if request.ExternalKey == key {
			c := *request
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRequestRepo) ListWithFilter(_ context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	out := []domain.Request{}
	for _, request := range m.requests {
		if filter.RequesterID != nil && request.RequesterID != *filter.RequesterID {
			continue
		}
		out = append(out, *request)
	}
	return out, nil
}

type mockTaskRepo struct {
	*mockSLAStore
	tasks map[string]*domain.Task
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{mockSLAStore: newMockSLAStore(nil), tasks: map[string]*domain.Task{}}
}

func (m *mockTaskRepo) Create(_ context.Context, task *domain.Task) error {
	task.ID = "t1"
	m.tasks[task.ID] = task
	m.snap = &domain.SLASnapshot{ID: task.ID, Kind: domain.EntityKindTask}
	return nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *domain.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *task
	if m.snap != nil && m.snap.ID == id {
		c.SLAInfo = m.snap.SLAInfo
	}
	return &c, nil
}

func (m *mockTaskRepo) ListByRequest(_ context.Context, requestID string) ([]domain.Task, error) {
	out := []domain.Task{}
	for _, task := range m.tasks {
		if task.RequestID == requestID {
			out = append(out, *task)
		}
	}
	return out, nil
}

type mockCategoryRepo struct {
	categories map[string]*domain.Category
}

func (m *mockCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	category, ok := m.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return category, nil
}

func (m *mockCategoryRepo) ListActive(_ context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, category := range m.categories {
		if category.IsActive {
			out = append(out, *category)
		}
	}
	return out, nil
}

type requestFixture struct {
	service    *RequestService
	requests   *mockRequestRepo
	tasks      *mockTaskRepo
	dispatcher *recordingDispatcher
	now        time.Time
}

func newRequestFixture(t *testing.T, policies []domain.SLAPolicy) *requestFixture {
	t.Helper()
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	requests := newMockRequestRepo()
	tasks := newMockTaskRepo()
	dispatcher := &recordingDispatcher{}
	stores := SLAStores{
		domain.EntityKindRequest: requests,
		domain.EntityKindTask:    tasks,
	}
	tracking := NewSLATrackingService(SLATrackingDependencies{
		Stores:     stores,
		Resolver:   NewPolicyResolver(&mockPolicySource{policies: policies}),
		Engine:     engineAt(now),
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
	})
	tracking.now = func() time.Time { return now }
	pauses := NewSLAPauseService(stores, engineAt(now), dispatcher)
	pauses.now = func() time.Time { return now }

	categories := &mockCategoryRepo{categories: map[string]*domain.Category{
		"c1": {ID: "c1", Name: "SUPPORT", IsActive: true},
		"c2": {ID: "c2", Name: "BILLING", IsActive: true},
		"c3": {ID: "c3", Name: "LEGACY", IsActive: false},
	}}

	svc := NewRequestService(RequestDependencies{
		RequestRepo:  requests,
		TaskRepo:     tasks,
		CategoryRepo: categories,
		Tracking:     tracking,
		Pauses:       pauses,
		Dispatcher:   dispatcher,
	})
	return &requestFixture{service: svc, requests: requests, tasks: tasks, dispatcher: dispatcher, now: now}
}

func adminOperator() *domain.Operator {
	return &domain.Operator{ID: "op1", Role: domain.OperatorRoleAdmin, Active: true}
}

func defaultPolicies() []domain.SLAPolicy {
	return []domain.SLAPolicy{
		policy("p1", domain.EntityKindRequest, prioPtr(domain.PriorityUrgent), strPtr("SUPPORT"), 1),
		policy("p2", domain.EntityKindRequest, nil, nil, 24),
		policy("p3", domain.EntityKindTask, nil, nil, 8),
	}
}

func TestCreateRequestInitializesTracking(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	categoryID := "c1"

	request, tracking, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{
		CategoryID: &categoryID,
		Title:      "vpn down",
		Priority:   domain.PriorityUrgent,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusNew, request.Status)
	assert.NotEmpty(t, request.ExternalKey)
	require.NotNil(t, request.SLADeadline)
	assert.Equal(t, f.now.Add(time.Hour), *request.SLADeadline)
	assert.Equal(t, "p1", tracking.PolicyID)
	assert.Equal(t, domain.SLAStatusOnTime, tracking.Status)

	var created bool
	for _, ev := range f.dispatcher.published {
		if ev.Type == events.EventRequestCreated {
			created = true
		}
	}
	assert.True(t, created)
}

func TestCreateRequestDefaultsPriority(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())

	request, tracking, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{Title: "printer"})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, request.Priority)
	assert.Equal(t, "p2", tracking.PolicyID)
	assert.Equal(t, f.now.Add(24*time.Hour), tracking.Deadline)
}

func TestCreateRequestFailsWithoutPolicy(t *testing.T) {
	f := newRequestFixture(t, nil)

	_, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{Title: "no sla"})
	assert.True(t, errors.Is(err, ErrNoPolicyFound))
}

func TestCreateRequestUnknownCategory(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	categoryID := "missing"

	_, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{
		CategoryID: &categoryID,
		Title:      "x",
	})
	assert.Error(t, err)
}

func TestCreateRequestInactiveCategory(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	categoryID := "c3"

	_, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{
		CategoryID: &categoryID,
		Title:      "x",
	})
	assert.Error(t, err)
}

func createInProgressRequest(t *testing.T, f *requestFixture) *domain.Request {
	t.Helper()
	request, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{Title: "work"})
	require.NoError(t, err)
	request, err = f.service.StartWork(context.Background(), adminOperator(), request.ID)
	require.NoError(t, err)
	return request
}

func TestWaitOnRequesterPausesClock(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	request := createInProgressRequest(t, f)

	got, err := f.service.WaitOnRequester(context.Background(), adminOperator(), request.ID, "need logs")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusWaitingRequester, got.Status)
	require.NotNil(t, f.requests.snap.SLAPausedAt)
	assert.Equal(t, domain.SLAStatusPaused, *f.requests.snap.SLAStatus)
}

func TestResumeFromRequesterResumesClock(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	request := createInProgressRequest(t, f)

	_, err := f.service.WaitOnRequester(context.Background(), adminOperator(), request.ID, "")
	require.NoError(t, err)

	got, err := f.service.ResumeFromRequester(context.Background(), adminOperator(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusInProgress, got.Status)
	assert.Nil(t, f.requests.snap.SLAPausedAt)
}

func TestTransitionRejected(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	request, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{Title: "x"})
	require.NoError(t, err)

	// NEW cannot jump straight to PENDING_APPROVAL
	_, err = f.service.SubmitForApproval(context.Background(), adminOperator(), request.ID)
	assert.Error(t, err)
}

func TestApproveCompletionRequiresPendingApproval(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	request := createInProgressRequest(t, f)

	_, err := f.service.ApproveCompletion(context.Background(), "u1", request.ID)
	assert.Error(t, err)

	_, err = f.service.SubmitForApproval(context.Background(), adminOperator(), request.ID)
	require.NoError(t, err)

	got, err := f.service.ApproveCompletion(context.Background(), "u1", request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestApproveCompletionOwnerOnly(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	request := createInProgressRequest(t, f)
	_, err := f.service.SubmitForApproval(context.Background(), adminOperator(), request.ID)
	require.NoError(t, err)

	_, err = f.service.ApproveCompletion(context.Background(), "someone-else", request.ID)
	assert.Error(t, err)
}

func TestCancelClosedRequest(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	request := createInProgressRequest(t, f)
	_, err := f.service.SubmitForApproval(context.Background(), adminOperator(), request.ID)
	require.NoError(t, err)
	_, err = f.service.ApproveCompletion(context.Background(), "u1", request.ID)
	require.NoError(t, err)

	_, err = f.service.CancelRequest(context.Background(), "u1", request.ID)
	assert.Error(t, err)
}

func TestAgentScopedByCategory(t *testing.T) {
	f := newRequestFixture(t, defaultPolicies())
	categoryID := "c1"
	request, _, err := f.service.CreateRequest(context.Background(), "u1", RequestCreateInput{
		CategoryID: &categoryID,
		Title:      "x",
	})
	require.NoError(t, err)

	otherCategory := "c2"
	agent := &domain.Operator{ID: "op2", Role: domain.OperatorRoleAgent, CategoryID: &otherCategory, Active: true}
	_, err = f.service.StartWork(context.Background(), agent, request.ID)
	assert.Error(t, err)
}

func TestRequestTransitionTable(t *testing.T) {
	cases := []struct {
		from    domain.RequestStatus
		to      domain.RequestStatus
		allowed bool
	}{
		{domain.RequestStatusNew, domain.RequestStatusInProgress, true},
		{domain.RequestStatusNew, domain.RequestStatusPendingApproval, false},
		{domain.RequestStatusInProgress, domain.RequestStatusWaitingRequester, true},
		{domain.RequestStatusInProgress, domain.RequestStatusPendingApproval, true},
		{domain.RequestStatusWaitingRequester, domain.RequestStatusInProgress, true},
		{domain.RequestStatusWaitingRequester, domain.RequestStatusPendingApproval, false},
		{domain.RequestStatusPendingApproval, domain.RequestStatusCompleted, true},
		{domain.RequestStatusPendingApproval, domain.RequestStatusInProgress, true},
		{domain.RequestStatusCompleted, domain.RequestStatusInProgress, false},
		{domain.RequestStatusCancelled, domain.RequestStatusInProgress, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, transitionAllowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
