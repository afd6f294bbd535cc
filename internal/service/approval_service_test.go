package service

import (
	"context"
	"testing"

	"servicehub/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type approvalFixture struct {
	users     *fakeUserRepo
	teams     *fakeTeamRepo
	groups    *fakeGroupRepo
	tasks     *fakeTaskRepo
	projects  *fakeProjectRepo
	approvals *fakeApprovalRepo
	audit     *fakeAuditRepo
	notifier  *fakeNotifier
	svc       ApprovalService
}

func newApprovalFixture(users ...*model.User) *approvalFixture {
	fx := &approvalFixture{
		users:     newFakeUserRepo(users...),
		teams:     newFakeTeamRepo(),
		groups:    newFakeGroupRepo(),
		tasks:     newFakeTaskRepo(),
		projects:  newFakeProjectRepo(),
		approvals: newFakeApprovalRepo(),
		audit:     &fakeAuditRepo{},
		notifier:  &fakeNotifier{},
	}
	hierarchy := NewHierarchyService(fx.users)
	resolver := NewStepResolver(fx.users, fx.teams, fx.groups, hierarchy)
	fx.svc = NewApprovalService(
		fx.approvals, fx.tasks, fx.projects, fx.audit,
		hierarchy, resolver, fakeTxManager{}, fx.notifier,
	)
	return fx
}

func (fx *approvalFixture) addTask(name string) *model.Task {
	task := &model.Task{ID: uuid.New(), Name: name, Status: "open"}
	fx.tasks.tasks[task.ID] = task
	return task
}

func (fx *approvalFixture) addProject(name string, budget decimal.Decimal) *model.Project {
	project := &model.Project{ID: uuid.New(), Name: name, Status: "open", Budget: budget}
	fx.projects.projects[project.ID] = project
	return project
}

// Directory used by most tests: sam reports to mark, mark reports to diana.
func submitterChain() (sam, mark, diana *model.User) {
	diana = newTestUser("diana", "director", nil)
	mark = newTestUser("mark", "manager", &diana.ID)
	sam = newTestUser("sam", "staff", &mark.ID)
	return sam, mark, diana
}

func TestSubmitTaskApprovalViaHierarchy(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	task := fx.addTask("Migrate database")

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{
		Comments: "please review",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Levels)

	wf := fx.approvals.workflows[resp.WorkflowID]
	require.NotNil(t, wf)
	assert.Equal(t, model.ApprovalPending, wf.Status)
	assert.Equal(t, model.EntityTypeTask, wf.EntityType)
	assert.Equal(t, sam.ID, wf.SubmittedBy)
	assert.Equal(t, uint(model.DefaultApprovalTypeID), wf.ApprovalTypeID)

	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Level)
	assert.Equal(t, mark.ID, records[0].ApproverID)
	assert.Equal(t, 2, records[1].Level)
	assert.Equal(t, diana.ID, records[1].ApproverID)

	assert.Equal(t, model.EntityStatusPendingApproval, task.Status)
	assert.Contains(t, fx.audit.actions(), model.ActionSubmitTaskApproval)
	require.Len(t, fx.notifier.events, 1)
	assert.Equal(t, EventApprovalSubmitted, fx.notifier.events[0].event)
}

func TestSubmitTaskApprovalNoApprovers(t *testing.T) {
	loner := newTestUser("loner", "staff", nil)
	fx := newApprovalFixture(loner)
	task := fx.addTask("Orphan task")

	_, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), loner.ID.String(), SubmitApprovalRequest{})
	require.ErrorIs(t, err, ErrNoApprovers)

	// Nothing persisted, nothing announced.
	assert.Empty(t, fx.approvals.workflows)
	assert.Equal(t, "open", task.Status)
	assert.Empty(t, fx.audit.entries)
	assert.Empty(t, fx.notifier.events)
}

func TestSubmitTaskApprovalTaskNotFound(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)

	_, err := fx.svc.SubmitTaskApproval(context.Background(), uuid.NewString(), sam.ID.String(), SubmitApprovalRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitTaskApprovalViaWorkflowGroup(t *testing.T) {
	sam, mark, diana := submitterChain()
	cfo := newTestUser("fiona", "finance", nil)
	fx := newApprovalFixture(sam, mark, diana, cfo)
	task := fx.addTask("Buy licenses")

	groupID := uuid.New()
	require.NoError(t, fx.groups.CreateStep(context.Background(), &model.WorkflowStep{
		GroupID: groupID, StepOrder: 1, StepType: model.StepTypeSuperior, IsActive: true,
	}))
	require.NoError(t, fx.groups.CreateStep(context.Background(), &model.WorkflowStep{
		GroupID: groupID, StepOrder: 2, StepType: model.StepTypeSpecificUser, AssignedValue: cfo.ID.String(), IsActive: true,
	}))

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{
		WorkflowGroupID: groupID.String(),
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Levels)

	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)
	require.Len(t, records, 2)
	assert.Equal(t, mark.ID, records[0].ApproverID)
	assert.Equal(t, cfo.ID, records[1].ApproverID)
}

func TestProcessTaskApprovalIntermediateApprove(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	task := fx.addTask("Migrate database")

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)

	out, err := fx.svc.ProcessTaskApproval(context.Background(), records[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{
		Action: "approve", Comments: "lgtm",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, out.RecordStatus)
	assert.Equal(t, model.ApprovalPending, out.WorkflowStatus)

	assert.Equal(t, model.ApprovalApproved, records[0].Status)
	assert.Equal(t, "lgtm", records[0].Comments)
	require.NotNil(t, records[0].ApprovedAt)

	wf := fx.approvals.workflows[resp.WorkflowID]
	assert.Equal(t, model.ApprovalPending, wf.Status)
	assert.Nil(t, wf.CompletedAt)
	assert.Equal(t, model.EntityStatusPendingApproval, task.Status)

	// Only the submission event so far.
	require.Len(t, fx.notifier.events, 1)
}

func TestProcessTaskApprovalLastApproveCompletes(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	task := fx.addTask("Migrate database")

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)

	_, err = fx.svc.ProcessTaskApproval(context.Background(), records[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{Action: "approve"})
	require.NoError(t, err)

	out, err := fx.svc.ProcessTaskApproval(context.Background(), records[1].ID.String(), diana.ID.String(), ProcessApprovalRequest{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, out.WorkflowStatus)

	wf := fx.approvals.workflows[resp.WorkflowID]
	assert.Equal(t, model.ApprovalApproved, wf.Status)
	require.NotNil(t, wf.CompletedAt)
	assert.Equal(t, model.EntityStatusApproved, task.Status)

	assert.Contains(t, fx.audit.actions(), model.ActionWorkflowApproved)
	require.Len(t, fx.notifier.events, 2)
	assert.Equal(t, EventApprovalApproved, fx.notifier.events[1].event)
}

func TestProcessTaskApprovalRejectShortCircuits(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	task := fx.addTask("Migrate database")

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)

	out, err := fx.svc.ProcessTaskApproval(context.Background(), records[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{
		Action: "reject", Comments: "not now",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalRejected, out.WorkflowStatus)

	wf := fx.approvals.workflows[resp.WorkflowID]
	assert.Equal(t, model.ApprovalRejected, wf.Status)
	require.NotNil(t, wf.CompletedAt)
	assert.Equal(t, model.EntityStatusRejected, task.Status)

	// The untouched level keeps its stored status for the audit trail.
	assert.Equal(t, model.ApprovalPending, records[1].Status)

	assert.Contains(t, fx.audit.actions(), model.ActionWorkflowRejected)
	require.Len(t, fx.notifier.events, 2)
	assert.Equal(t, EventApprovalRejected, fx.notifier.events[1].event)
}

func TestProcessTaskApprovalWrongActor(t *testing.T) {
	sam, mark, diana := submitterChain()
	intruder := newTestUser("iggy", "staff", nil)
	fx := newApprovalFixture(sam, mark, diana, intruder)
	task := fx.addTask("Migrate database")

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)

	_, err = fx.svc.ProcessTaskApproval(context.Background(), records[0].ID.String(), intruder.ID.String(), ProcessApprovalRequest{Action: "approve"})
	require.ErrorIs(t, err, ErrNotApprover)

	assert.Equal(t, model.ApprovalPending, records[0].Status)
	assert.Equal(t, model.ApprovalPending, fx.approvals.workflows[resp.WorkflowID].Status)
}

func TestProcessTaskApprovalRecordAlreadyActioned(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	task := fx.addTask("Migrate database")

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)

	_, err = fx.svc.ProcessTaskApproval(context.Background(), records[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{Action: "approve"})
	require.NoError(t, err)

	// The same record cannot be actioned twice.
	_, err = fx.svc.ProcessTaskApproval(context.Background(), records[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{Action: "reject"})
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, model.ApprovalApproved, records[0].Status)
}

func TestProcessTaskApprovalTerminalWorkflow(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	task := fx.addTask("Migrate database")

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)

	_, err = fx.svc.ProcessTaskApproval(context.Background(), records[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{Action: "reject"})
	require.NoError(t, err)

	// Acting on a remaining pending record of a terminal workflow fails, and
	// the completion side effects do not fire a second time.
	_, err = fx.svc.ProcessTaskApproval(context.Background(), records[1].ID.String(), diana.ID.String(), ProcessApprovalRequest{Action: "approve"})
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	assert.Equal(t, model.EntityStatusRejected, task.Status)
	require.Len(t, fx.notifier.events, 2) // submitted + rejected, nothing more
}

func TestProcessTaskApprovalInvalidAction(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	task := fx.addTask("Migrate database")

	resp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	records := fx.approvals.taskApprovalsForWorkflow(resp.WorkflowID)

	_, err = fx.svc.ProcessTaskApproval(context.Background(), records[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{Action: "escalate"})
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, model.ApprovalPending, records[0].Status)
}

func TestSubmitProjectApprovalStampsBudget(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	project := fx.addProject("New warehouse", decimal.NewFromInt(50000))

	requested := decimal.NewFromInt(75000)
	resp, err := fx.svc.SubmitProjectApproval(context.Background(), project.ID.String(), sam.ID.String(), SubmitApprovalRequest{
		BudgetRequested: &requested,
	})
	require.NoError(t, err)

	records := fx.approvals.projectApprovalsForWorkflow(resp.WorkflowID)
	require.Len(t, records, 2)
	for _, rec := range records {
		require.True(t, rec.BudgetApproved.Valid)
		assert.True(t, rec.BudgetApproved.Decimal.Equal(requested))
	}
	assert.Equal(t, model.EntityStatusPendingApproval, project.Status)
}

func TestSubmitProjectApprovalDefaultsToStoredBudget(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	project := fx.addProject("New warehouse", decimal.NewFromInt(50000))

	resp, err := fx.svc.SubmitProjectApproval(context.Background(), project.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)

	records := fx.approvals.projectApprovalsForWorkflow(resp.WorkflowID)
	require.NotEmpty(t, records)
	assert.True(t, records[0].BudgetApproved.Decimal.Equal(decimal.NewFromInt(50000)))
}

func TestProcessProjectApprovalFullCycle(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	project := fx.addProject("New warehouse", decimal.NewFromInt(50000))

	resp, err := fx.svc.SubmitProjectApproval(context.Background(), project.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	records := fx.approvals.projectApprovalsForWorkflow(resp.WorkflowID)

	_, err = fx.svc.ProcessProjectApproval(context.Background(), records[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.EntityStatusPendingApproval, project.Status)

	out, err := fx.svc.ProcessProjectApproval(context.Background(), records[1].ID.String(), diana.ID.String(), ProcessApprovalRequest{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, out.WorkflowStatus)
	assert.Equal(t, model.EntityStatusApproved, project.Status)
}

func TestListPendingForUser(t *testing.T) {
	sam, mark, diana := submitterChain()
	fx := newApprovalFixture(sam, mark, diana)
	task := fx.addTask("Migrate database")
	project := fx.addProject("New warehouse", decimal.NewFromInt(10000))

	taskResp, err := fx.svc.SubmitTaskApproval(context.Background(), task.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)
	_, err = fx.svc.SubmitProjectApproval(context.Background(), project.ID.String(), sam.ID.String(), SubmitApprovalRequest{})
	require.NoError(t, err)

	rows, err := fx.svc.ListPendingForUser(context.Background(), mark.ID.String())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Newest submission first.
	assert.Equal(t, model.EntityTypeProject, rows[0].EntityType)
	assert.Equal(t, model.EntityTypeTask, rows[1].EntityType)

	// Rejecting the task workflow removes diana's still-pending level-2 record
	// from her listing: the workflow itself is no longer pending.
	taskRecords := fx.approvals.taskApprovalsForWorkflow(taskResp.WorkflowID)
	_, err = fx.svc.ProcessTaskApproval(context.Background(), taskRecords[0].ID.String(), mark.ID.String(), ProcessApprovalRequest{Action: "reject"})
	require.NoError(t, err)

	dianaRows, err := fx.svc.ListPendingForUser(context.Background(), diana.ID.String())
	require.NoError(t, err)
	require.Len(t, dianaRows, 1)
	assert.Equal(t, model.EntityTypeProject, dianaRows[0].EntityType)
}

func TestGetHierarchyInvalidID(t *testing.T) {
	fx := newApprovalFixture()
	_, err := fx.svc.GetHierarchy(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
