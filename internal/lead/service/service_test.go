package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"noro/internal/lead/models"
	"noro/internal/lead/store"
	id "noro/pkg/domain"
	dErrors "noro/pkg/domain-errors"
	"noro/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store *store.Memory
	svc   *Service
	scope models.Scope
	user  id.UserID
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.svc = New(s.store, logger)
	s.scope = models.Scope{TenantID: id.NewTenantID(), Schema: "t_acme"}
	s.user = id.NewUserID()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) authed() context.Context {
	return requestcontext.WithUserID(context.Background(), s.user)
}

func (s *ServiceSuite) createLead(name string) *models.Lead {
	lead, err := s.svc.Create(context.Background(), s.scope, models.CreateLeadRequest{
		Name:   name,
		Email:  name + "@example.com",
		Source: "manual",
	})
	s.Require().NoError(err)
	return lead
}

func (s *ServiceSuite) moveTo(lead *models.Lead, stage models.Stage) {
	_, err := s.svc.MoveStage(context.Background(), s.scope, models.MoveStageRequest{
		LeadID: lead.ID.String(),
		Stage:  stage,
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) positions(stage models.Stage) map[string]int {
	leads, err := s.store.ListLeads(context.Background(), s.scope, stage)
	s.Require().NoError(err)
	out := make(map[string]int, len(leads))
	for _, lead := range leads {
		out[lead.ID.String()] = lead.Position
	}
	return out
}

func (s *ServiceSuite) TestCreateAppendsToNewColumn() {
	first := s.createLead("ana")
	second := s.createLead("bruno")

	s.Equal(models.StageNew, first.Stage)
	s.Equal(1, first.Position)
	s.Equal(2, second.Position)

	activities, err := s.store.ListActivities(context.Background(), s.scope, first.ID)
	s.Require().NoError(err)
	s.Require().Len(activities, 1)
	s.Equal(models.ActivityCreated, activities[0].Action)
}

func (s *ServiceSuite) TestAssignRequiresAuthenticationAndWritesNothing() {
	lead := s.createLead("ana")

	_, err := s.svc.Assign(context.Background(), s.scope, models.AssignRequest{LeadID: lead.ID.String()})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	stored, err := s.store.FindLead(context.Background(), s.scope, lead.ID)
	s.Require().NoError(err)
	s.Nil(stored.OwnerID, "unauthenticated assign must not write an owner")

	activities, err := s.store.ListActivities(context.Background(), s.scope, lead.ID)
	s.Require().NoError(err)
	s.Len(activities, 1, "only the creation activity should exist")
}

func (s *ServiceSuite) TestAssignSetsOwnerAndActivity() {
	lead := s.createLead("ana")

	assigned, err := s.svc.Assign(s.authed(), s.scope, models.AssignRequest{LeadID: lead.ID.String()})
	s.Require().NoError(err)
	s.Require().NotNil(assigned.OwnerID)
	s.Equal(s.user, *assigned.OwnerID)

	activities, err := s.store.ListActivities(context.Background(), s.scope, lead.ID)
	s.Require().NoError(err)
	s.Require().Len(activities, 2)
	s.Equal(models.ActivityAssigned, activities[1].Action)
	s.Equal(s.user.String(), activities[1].Details["to"])
}

func (s *ServiceSuite) TestAssignIsIdempotentByOverwrite() {
	lead := s.createLead("ana")

	_, err := s.svc.Assign(s.authed(), s.scope, models.AssignRequest{LeadID: lead.ID.String()})
	s.Require().NoError(err)
	_, err = s.svc.Assign(s.authed(), s.scope, models.AssignRequest{LeadID: lead.ID.String()})
	s.Require().NoError(err, "repeated assignment overwrites without a uniqueness check")
}

func (s *ServiceSuite) TestMoveStageWritesExactlyOneActivity() {
	lead := s.createLead("ana")

	moved, err := s.svc.MoveStage(context.Background(), s.scope, models.MoveStageRequest{
		LeadID: lead.ID.String(),
		Stage:  models.StageContacted,
	})
	s.Require().NoError(err)
	s.Equal(models.StageContacted, moved.Stage)

	stored, err := s.store.FindLead(context.Background(), s.scope, lead.ID)
	s.Require().NoError(err)
	s.Equal(models.StageContacted, stored.Stage, "a read right after moveStage sees the new stage")

	activities, err := s.store.ListActivities(context.Background(), s.scope, lead.ID)
	s.Require().NoError(err)
	s.Require().Len(activities, 2)
	last := activities[1]
	s.Equal(models.ActivityStatusChanged, last.Action)
	s.Equal(string(models.StageNew), last.Details["from"])
	s.Equal(string(models.StageContacted), last.Details["to"])
}

func (s *ServiceSuite) TestMoveStageUnknownLead() {
	_, err := s.svc.MoveStage(context.Background(), s.scope, models.MoveStageRequest{
		LeadID: id.NewLeadID().String(),
		Stage:  models.StageWon,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestReorderAssignsDensePositions() {
	l1 := s.createLead("ana")
	l2 := s.createLead("bruno")
	l3 := s.createLead("carla")
	for _, lead := range []*models.Lead{l1, l2, l3} {
		s.moveTo(lead, models.StageNegotiating)
	}

	err := s.svc.Reorder(context.Background(), s.scope, models.ReorderRequest{
		Stage:   models.StageNegotiating,
		LeadIDs: []string{l1.ID.String(), l2.ID.String(), l3.ID.String()},
	})
	s.Require().NoError(err)

	got := s.positions(models.StageNegotiating)
	s.Equal(1, got[l1.ID.String()])
	s.Equal(2, got[l2.ID.String()])
	s.Equal(3, got[l3.ID.String()])
}

// A partial list only touches the listed leads. L2 keeps its old position
// even though L1 now shares it; the client follows up with a full-column
// reorder to restore density.
func (s *ServiceSuite) TestPartialReorderLeavesUnlistedLeadsAlone() {
	l1 := s.createLead("ana")
	l2 := s.createLead("bruno")
	l3 := s.createLead("carla")
	for _, lead := range []*models.Lead{l1, l2, l3} {
		s.moveTo(lead, models.StageNegotiating)
	}
	s.Require().NoError(s.svc.Reorder(context.Background(), s.scope, models.ReorderRequest{
		Stage:   models.StageNegotiating,
		LeadIDs: []string{l1.ID.String(), l2.ID.String(), l3.ID.String()},
	}))

	s.Require().NoError(s.svc.Reorder(context.Background(), s.scope, models.ReorderRequest{
		Stage:   models.StageNegotiating,
		LeadIDs: []string{l3.ID.String(), l1.ID.String()},
	}))

	got := s.positions(models.StageNegotiating)
	s.Equal(1, got[l3.ID.String()])
	s.Equal(2, got[l1.ID.String()])
	s.Equal(2, got[l2.ID.String()], "unlisted lead keeps its position")
}

func (s *ServiceSuite) TestReorderUnknownLeadTouchesNothing() {
	l1 := s.createLead("ana")
	s.moveTo(l1, models.StageNegotiating)
	s.Require().NoError(s.svc.Reorder(context.Background(), s.scope, models.ReorderRequest{
		Stage:   models.StageNegotiating,
		LeadIDs: []string{l1.ID.String()},
	}))

	err := s.svc.Reorder(context.Background(), s.scope, models.ReorderRequest{
		Stage:   models.StageNegotiating,
		LeadIDs: []string{id.NewLeadID().String(), l1.ID.String()},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	got := s.positions(models.StageNegotiating)
	s.Equal(1, got[l1.ID.String()], "failed reorder must roll back entirely")
}

// A stale client can send a reorder naming a lead that already moved to
// another column. The whole call fails rather than repositioning the lead
// inside the column it left.
func (s *ServiceSuite) TestReorderRejectsLeadOutsideStage() {
	l1 := s.createLead("ana")
	l2 := s.createLead("bruno")
	s.moveTo(l2, models.StageContacted)

	err := s.svc.Reorder(context.Background(), s.scope, models.ReorderRequest{
		Stage:   models.StageNew,
		LeadIDs: []string{l2.ID.String(), l1.ID.String()},
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Equal(1, s.positions(models.StageNew)[l1.ID.String()], "listed leads keep their positions on failure")
	s.Equal(2, s.positions(models.StageContacted)[l2.ID.String()], "the moved lead is untouched")
}

func (s *ServiceSuite) TestConcurrentReordersDoNotInterleave() {
	l1 := s.createLead("ana")
	l2 := s.createLead("bruno")
	forward := []string{l1.ID.String(), l2.ID.String()}
	backward := []string{l2.ID.String(), l1.ID.String()}

	done := make(chan error, 2)
	go func() {
		done <- s.svc.Reorder(context.Background(), s.scope, models.ReorderRequest{Stage: models.StageNew, LeadIDs: forward})
	}()
	go func() {
		done <- s.svc.Reorder(context.Background(), s.scope, models.ReorderRequest{Stage: models.StageNew, LeadIDs: backward})
	}()
	s.Require().NoError(<-done)
	s.Require().NoError(<-done)

	// Whichever call won, the result must be one of the two orderings, never
	// an interleaving where both leads share a position.
	got := s.positions(models.StageNew)
	s.ElementsMatch([]int{1, 2}, []int{got[l1.ID.String()], got[l2.ID.String()]})
}

func (s *ServiceSuite) TestCreateFollowUpTask() {
	lead := s.createLead("ana")

	task, err := s.svc.CreateFollowUpTask(s.authed(), s.scope, models.CreateTaskRequest{
		LeadID: lead.ID.String(),
		Title:  "call back tomorrow",
	})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusOpen, task.Status)
	s.Equal(models.EntityTypeLead, task.EntityType)
	s.Equal(lead.ID, task.EntityID)
	s.Require().NotNil(task.AssigneeID)
	s.Equal(s.user, *task.AssigneeID)
}

func (s *ServiceSuite) TestCreateFollowUpTaskUnknownLead() {
	_, err := s.svc.CreateFollowUpTask(s.authed(), s.scope, models.CreateTaskRequest{
		LeadID: id.NewLeadID().String(),
		Title:  "call back",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "missing lead is the caller's error: %v", err)
}

func (s *ServiceSuite) TestCreateFollowUpTaskRequiresAuthentication() {
	lead := s.createLead("ana")
	_, err := s.svc.CreateFollowUpTask(context.Background(), s.scope, models.CreateTaskRequest{
		LeadID: lead.ID.String(),
		Title:  "call back",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *ServiceSuite) TestScopesAreIsolated() {
	lead := s.createLead("ana")

	other := models.Scope{TenantID: id.NewTenantID(), Schema: "t_other"}
	_, err := s.svc.List(context.Background(), other, "")
	s.Require().NoError(err)

	_, err = s.store.FindLead(context.Background(), other, lead.ID)
	s.Error(err, "a lead must not be visible through another tenant's scope")
}
