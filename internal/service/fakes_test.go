package service

import (
	"context"
	"sort"
	"time"

	"servicehub/internal/model"
	"servicehub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes of the repository interfaces. They reproduce the conditional
// update semantics of the real persistence layer (approver/status scoped
// updates, guarded terminal transition) so the state machine can be exercised
// without a database.

// --- users ---

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	uID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	user, ok := f.users[uID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetWithDirectory(ctx context.Context, id string) (*model.User, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindActiveByRole(_ context.Context, roleName string) ([]model.User, error) {
	var matched []model.User
	for _, u := range f.users {
		if u.IsActive && u.RoleName == roleName {
			matched = append(matched, *u)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })
	return matched, nil
}

func (f *fakeUserRepo) ListRoleNames(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, u := range f.users {
		if u.IsActive && !seen[u.RoleName] {
			seen[u.RoleName] = true
			names = append(names, u.RoleName)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeUserRepo) ListActive(_ context.Context) ([]model.User, error) {
	var active []model.User
	for _, u := range f.users {
		if u.IsActive {
			active = append(active, *u)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Username < active[j].Username })
	return active, nil
}

func (f *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range f.users {
		all = append(all, *u)
	}
	return all, int64(len(all)), nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	uID, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	delete(f.users, uID)
	return nil
}

// --- teams ---

type fakeTeamRepo struct {
	teams   map[uuid.UUID]*model.Team
	members map[uuid.UUID][]model.User
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{
		teams:   make(map[uuid.UUID]*model.Team),
		members: make(map[uuid.UUID][]model.User),
	}
}

func (f *fakeTeamRepo) add(team *model.Team, members ...model.User) {
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	f.teams[team.ID] = team
	f.members[team.ID] = members
}

func (f *fakeTeamRepo) GetByID(_ context.Context, id string) (*model.Team, error) {
	tID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	team, ok := f.teams[tID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return team, nil
}

func (f *fakeTeamRepo) ListMembers(_ context.Context, teamID string) ([]model.User, error) {
	tID, err := uuid.Parse(teamID)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var active []model.User
	for _, m := range f.members[tID] {
		if m.IsActive {
			active = append(active, m)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Username < active[j].Username })
	return active, nil
}

func (f *fakeTeamRepo) List(_ context.Context) ([]model.Team, error) {
	var all []model.Team
	for _, t := range f.teams {
		all = append(all, *t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

// --- workflow groups ---

type fakeGroupRepo struct {
	groups map[uuid.UUID]*model.WorkflowGroup
	steps  map[uuid.UUID]*model.WorkflowStep
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{
		groups: make(map[uuid.UUID]*model.WorkflowGroup),
		steps:  make(map[uuid.UUID]*model.WorkflowStep),
	}
}

func (f *fakeGroupRepo) CreateGroup(_ context.Context, group *model.WorkflowGroup) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	f.groups[group.ID] = group
	return nil
}

func (f *fakeGroupRepo) GetGroupByID(_ context.Context, id string) (*model.WorkflowGroup, error) {
	gID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	group, ok := f.groups[gID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return group, nil
}

func (f *fakeGroupRepo) ListGroups(_ context.Context, _, _ int) ([]model.WorkflowGroup, int64, error) {
	var all []model.WorkflowGroup
	for _, g := range f.groups {
		all = append(all, *g)
	}
	return all, int64(len(all)), nil
}

func (f *fakeGroupRepo) UpdateGroup(_ context.Context, group *model.WorkflowGroup) error {
	f.groups[group.ID] = group
	return nil
}

func (f *fakeGroupRepo) CreateStep(_ context.Context, step *model.WorkflowStep) error {
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	f.steps[step.ID] = step
	return nil
}

func (f *fakeGroupRepo) GetStepByID(_ context.Context, id string) (*model.WorkflowStep, error) {
	sID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	step, ok := f.steps[sID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return step, nil
}

func (f *fakeGroupRepo) UpdateStep(_ context.Context, step *model.WorkflowStep) error {
	f.steps[step.ID] = step
	return nil
}

func (f *fakeGroupRepo) ListActiveSteps(_ context.Context, groupID string) ([]model.WorkflowStep, error) {
	gID, err := uuid.Parse(groupID)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	var active []model.WorkflowStep
	for _, s := range f.steps {
		if s.GroupID == gID && s.IsActive {
			active = append(active, *s)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].StepOrder < active[j].StepOrder })
	return active, nil
}

// --- tasks / projects ---

type fakeTaskRepo struct {
	tasks map[uuid.UUID]*model.Task
}

func newFakeTaskRepo(tasks ...*model.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: make(map[uuid.UUID]*model.Task)}
	for _, t := range tasks {
		repo.tasks[t.ID] = t
	}
	return repo
}

func (f *fakeTaskRepo) Create(_ context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	tID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	task, ok := f.tasks[tID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return task, nil
}

func (f *fakeTaskRepo) UpdateStatus(_ context.Context, id string, status string) error {
	tID, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	if task, ok := f.tasks[tID]; ok {
		task.Status = status
	}
	return nil
}

type fakeProjectRepo struct {
	projects map[uuid.UUID]*model.Project
}

func newFakeProjectRepo(projects ...*model.Project) *fakeProjectRepo {
	repo := &fakeProjectRepo{projects: make(map[uuid.UUID]*model.Project)}
	for _, p := range projects {
		repo.projects[p.ID] = p
	}
	return repo
}

func (f *fakeProjectRepo) Create(_ context.Context, project *model.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	f.projects[project.ID] = project
	return nil
}

func (f *fakeProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	pID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	project, ok := f.projects[pID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return project, nil
}

func (f *fakeProjectRepo) UpdateStatus(_ context.Context, id string, status string) error {
	pID, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	if project, ok := f.projects[pID]; ok {
		project.Status = status
	}
	return nil
}

// --- approvals ---

type fakeApprovalRepo struct {
	workflows        map[uuid.UUID]*model.ApprovalWorkflow
	taskApprovals    map[uuid.UUID]*model.TaskApproval
	projectApprovals map[uuid.UUID]*model.ProjectApproval
	clock            time.Time
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{
		workflows:        make(map[uuid.UUID]*model.ApprovalWorkflow),
		taskApprovals:    make(map[uuid.UUID]*model.TaskApproval),
		projectApprovals: make(map[uuid.UUID]*model.ProjectApproval),
		clock:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeApprovalRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeApprovalRepo) CreateWorkflow(_ context.Context, wf *model.ApprovalWorkflow) error {
	if wf.ID == uuid.Nil {
		wf.ID = uuid.New()
	}
	if wf.SubmittedAt.IsZero() {
		wf.SubmittedAt = f.tick()
	}
	f.workflows[wf.ID] = wf
	return nil
}

func (f *fakeApprovalRepo) GetWorkflowByID(_ context.Context, id uuid.UUID) (*model.ApprovalWorkflow, error) {
	wf, ok := f.workflows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return wf, nil
}

func (f *fakeApprovalRepo) GetWorkflowForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalWorkflow, error) {
	return f.GetWorkflowByID(ctx, id)
}

func (f *fakeApprovalRepo) CompleteWorkflow(_ context.Context, id uuid.UUID, status string, completedAt time.Time) (bool, error) {
	wf, ok := f.workflows[id]
	if !ok || wf.Status != model.ApprovalPending {
		return false, nil
	}
	wf.Status = status
	wf.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeApprovalRepo) CreateTaskApprovals(_ context.Context, records []model.TaskApproval) error {
	for i := range records {
		if records[i].ID == uuid.Nil {
			records[i].ID = uuid.New()
		}
		rec := records[i]
		f.taskApprovals[rec.ID] = &rec
	}
	return nil
}

func (f *fakeApprovalRepo) GetTaskApprovalByID(_ context.Context, id string) (*model.TaskApproval, error) {
	aID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	rec, ok := f.taskApprovals[aID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeApprovalRepo) ActionTaskApproval(_ context.Context, id uuid.UUID, approverID uuid.UUID, status, comments string, at time.Time) (bool, error) {
	rec, ok := f.taskApprovals[id]
	if !ok || rec.ApproverID != approverID || rec.Status != model.ApprovalPending {
		return false, nil
	}
	rec.Status = status
	rec.Comments = comments
	rec.ApprovedAt = &at
	return true, nil
}

func (f *fakeApprovalRepo) CountPendingTaskApprovals(_ context.Context, workflowID uuid.UUID) (int64, error) {
	var count int64
	for _, rec := range f.taskApprovals {
		if rec.WorkflowID == workflowID && rec.Status == model.ApprovalPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeApprovalRepo) CreateProjectApprovals(_ context.Context, records []model.ProjectApproval) error {
	for i := range records {
		if records[i].ID == uuid.Nil {
			records[i].ID = uuid.New()
		}
		rec := records[i]
		f.projectApprovals[rec.ID] = &rec
	}
	return nil
}

func (f *fakeApprovalRepo) GetProjectApprovalByID(_ context.Context, id string) (*model.ProjectApproval, error) {
	aID, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	rec, ok := f.projectApprovals[aID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeApprovalRepo) ActionProjectApproval(_ context.Context, id uuid.UUID, approverID uuid.UUID, status, comments string, at time.Time) (bool, error) {
	rec, ok := f.projectApprovals[id]
	if !ok || rec.ApproverID != approverID || rec.Status != model.ApprovalPending {
		return false, nil
	}
	rec.Status = status
	rec.Comments = comments
	rec.ApprovedAt = &at
	return true, nil
}

func (f *fakeApprovalRepo) CountPendingProjectApprovals(_ context.Context, workflowID uuid.UUID) (int64, error) {
	var count int64
	for _, rec := range f.projectApprovals {
		if rec.WorkflowID == workflowID && rec.Status == model.ApprovalPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeApprovalRepo) ListPendingForUser(_ context.Context, approverID uuid.UUID) ([]repository.PendingApprovalRow, error) {
	var rows []repository.PendingApprovalRow
	for _, rec := range f.taskApprovals {
		wf := f.workflows[rec.WorkflowID]
		if rec.ApproverID != approverID || rec.Status != model.ApprovalPending || wf == nil || wf.Status != model.ApprovalPending {
			continue
		}
		rows = append(rows, repository.PendingApprovalRow{
			ApprovalID:  rec.ID,
			WorkflowID:  rec.WorkflowID,
			EntityType:  model.EntityTypeTask,
			EntityID:    rec.TaskID,
			Level:       rec.Level,
			SubmittedBy: wf.SubmittedBy,
			Comments:    wf.Comments,
			SubmittedAt: wf.SubmittedAt,
		})
	}
	for _, rec := range f.projectApprovals {
		wf := f.workflows[rec.WorkflowID]
		if rec.ApproverID != approverID || rec.Status != model.ApprovalPending || wf == nil || wf.Status != model.ApprovalPending {
			continue
		}
		rows = append(rows, repository.PendingApprovalRow{
			ApprovalID:  rec.ID,
			WorkflowID:  rec.WorkflowID,
			EntityType:  model.EntityTypeProject,
			EntityID:    rec.ProjectID,
			Level:       rec.Level,
			SubmittedBy: wf.SubmittedBy,
			Comments:    wf.Comments,
			SubmittedAt: wf.SubmittedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubmittedAt.After(rows[j].SubmittedAt) })
	return rows, nil
}

func (f *fakeApprovalRepo) taskApprovalsForWorkflow(workflowID uuid.UUID) []*model.TaskApproval {
	var recs []*model.TaskApproval
	for _, rec := range f.taskApprovals {
		if rec.WorkflowID == workflowID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Level < recs[j].Level })
	return recs
}

func (f *fakeApprovalRepo) projectApprovalsForWorkflow(workflowID uuid.UUID) []*model.ProjectApproval {
	var recs []*model.ProjectApproval
	for _, rec := range f.projectApprovals {
		if rec.WorkflowID == workflowID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Level < recs[j].Level })
	return recs
}

// --- audit / tx / notifier ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, action string, _, _ int) ([]model.AuditLog, int64, error) {
	var matched []model.AuditLog
	for _, e := range f.entries {
		if action == "" || e.Action == action {
			matched = append(matched, e)
		}
	}
	return matched, int64(len(matched)), nil
}

func (f *fakeAuditRepo) actions() []string {
	names := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		names = append(names, e.Action)
	}
	return names
}

// fakeTxManager runs the function directly; the fakes mutate shared state, so
// there is nothing to commit or roll back.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type publishedEvent struct {
	event   string
	payload interface{}
}

type fakeNotifier struct {
	events []publishedEvent
}

func (f *fakeNotifier) Publish(event string, payload interface{}) {
	f.events = append(f.events, publishedEvent{event: event, payload: payload})
}

// --- shared builders ---

func newTestUser(username, role string, superiorID *uuid.UUID) *model.User {
	return &model.User{
		ID:         uuid.New(),
		Username:   username,
		Email:      username + "@example.com",
		RoleName:   role,
		SuperiorID: superiorID,
		IsActive:   true,
	}
}
