package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

func TestAssignAndReturn(t *testing.T) {
	f := newFixture(t)
	a := f.asset(f.ftl, f.rifle, 1)
	due := f.clock.Now().Add(72 * time.Hour)

	asg, err := f.svc.CreateAssignment(f.ctx, f.commander, CreateAssignmentInput{
		AssetID: a.ID, AssigneeID: f.soldier.ID, ExpectedReturnDate: &due, Purpose: "range week",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentActive, asg.Status)
	assert.Equal(t, f.ftl.ID, asg.BaseID)
	assert.Equal(t, "soldier", asg.AssigneeName)
	assert.Equal(t, model.AssetAssigned, f.reload(a.ID).Status)

	f.clock.Advance(time.Hour)
	asg, err = f.svc.ReturnAssignment(f.ctx, f.commander, asg.ID, model.ConditionFair)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentReturned, asg.Status)
	require.NotNil(t, asg.ActualReturnDate)
	assert.True(t, asg.ActualReturnDate.Equal(f.clock.Now()))

	back := f.reload(a.ID)
	assert.Equal(t, model.AssetAvailable, back.Status)
	assert.Equal(t, model.ConditionFair, back.Condition)

	_, err = f.svc.ReturnAssignment(f.ctx, f.commander, asg.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
}

func TestSingleActiveAssignmentPerAsset(t *testing.T) {
	f := newFixture(t)
	a := f.asset(f.ftl, f.rifle, 1)
	other := f.user("private", model.RoleUser, &f.ftl.ID)

	_, err := f.svc.CreateAssignment(f.ctx, f.commander, CreateAssignmentInput{AssetID: a.ID, AssigneeID: f.soldier.ID})
	require.NoError(t, err)

	_, err = f.svc.CreateAssignment(f.ctx, f.commander, CreateAssignmentInput{AssetID: a.ID, AssigneeID: other.ID})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "asset is no longer AVAILABLE, got %v", err)

	active, err := store.ListAssignments(f.ctx, f.db, store.AssignmentFilter{AssetID: &a.ID, Status: model.AssignmentActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreateAssignmentRules(t *testing.T) {
	f := newFixture(t)
	a := f.asset(f.ftl, f.rifle, 1)
	remote := f.user("remote", model.RoleUser, &f.ftb.ID)
	past := f.clock.Now().Add(-time.Hour)

	tests := []struct {
		name  string
		actor model.Actor
		in    CreateAssignmentInput
		kind  apperr.Kind
	}{
		{"logistics cannot assign", f.logistics, CreateAssignmentInput{AssetID: a.ID, AssigneeID: f.soldier.ID}, apperr.KindAccessDenied},
		{"foreign commander", f.remoteCmdr, CreateAssignmentInput{AssetID: a.ID, AssigneeID: f.soldier.ID}, apperr.KindAccessDenied},
		{"cross-base assignee", f.commander, CreateAssignmentInput{AssetID: a.ID, AssigneeID: remote.ID}, apperr.KindValidation},
		{"due in the past", f.commander, CreateAssignmentInput{AssetID: a.ID, AssigneeID: f.soldier.ID, ExpectedReturnDate: &past}, apperr.KindValidation},
		{"unknown assignee", f.commander, CreateAssignmentInput{AssetID: a.ID, AssigneeID: 999}, apperr.KindNotFound},
		{"unknown asset", f.commander, CreateAssignmentInput{AssetID: 999, AssigneeID: f.soldier.ID}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateAssignment(f.ctx, tt.actor, tt.in)
			assert.True(t, apperr.Is(err, tt.kind), "expected %s, got %v", tt.kind, err)
		})
	}
	assert.Equal(t, model.AssetAvailable, f.reload(a.ID).Status)

	// Admins may assign across bases.
	_, err := f.svc.CreateAssignment(f.ctx, f.admin, CreateAssignmentInput{AssetID: a.ID, AssigneeID: remote.ID})
	require.NoError(t, err)
}

func TestMarkAssignment(t *testing.T) {
	f := newFixture(t)
	lost := f.asset(f.ftl, f.rifle, 1)
	damaged := f.asset(f.ftl, f.rifle, 1)

	lostAsg, err := f.svc.CreateAssignment(f.ctx, f.commander, CreateAssignmentInput{AssetID: lost.ID, AssigneeID: f.soldier.ID})
	require.NoError(t, err)
	damagedAsg, err := f.svc.CreateAssignment(f.ctx, f.commander, CreateAssignmentInput{AssetID: damaged.ID, AssigneeID: f.soldier.ID})
	require.NoError(t, err)

	_, err = f.svc.MarkAssignment(f.ctx, f.commander, lostAsg.ID, model.AssignmentReturned)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	lostAsg, err = f.svc.MarkAssignment(f.ctx, f.commander, lostAsg.ID, model.AssignmentLost)
	require.NoError(t, err)
	assert.Equal(t, model.AssignmentLost, lostAsg.Status)
	assert.NotNil(t, lostAsg.ActualReturnDate)
	a := f.reload(lost.ID)
	assert.Equal(t, model.AssetExpended, a.Status)
	assert.Equal(t, model.ConditionUnserviceable, a.Condition)

	_, err = f.svc.MarkAssignment(f.ctx, f.commander, damagedAsg.ID, model.AssignmentDamaged)
	require.NoError(t, err)
	a = f.reload(damaged.ID)
	assert.Equal(t, model.AssetMaintenance, a.Status)
	assert.Equal(t, model.ConditionPoor, a.Condition)
}

func TestUpdateAssignment(t *testing.T) {
	f := newFixture(t)
	a := f.asset(f.ftl, f.rifle, 1)

	asg, err := f.svc.CreateAssignment(f.ctx, f.commander, CreateAssignmentInput{AssetID: a.ID, AssigneeID: f.soldier.ID})
	require.NoError(t, err)

	purpose := "guard duty"
	later := asg.AssignmentDate.Add(48 * time.Hour)
	asg, err = f.svc.UpdateAssignment(f.ctx, f.commander, asg.ID, AssignmentPatch{Purpose: &purpose, ExpectedReturnDate: &later})
	require.NoError(t, err)
	assert.Equal(t, "guard duty", asg.Purpose)
	require.NotNil(t, asg.ExpectedReturnDate)
	assert.True(t, asg.ExpectedReturnDate.Equal(later))

	earlier := asg.AssignmentDate.Add(-time.Minute)
	_, err = f.svc.UpdateAssignment(f.ctx, f.commander, asg.ID, AssignmentPatch{ExpectedReturnDate: &earlier})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)

	_, err = f.svc.ReturnAssignment(f.ctx, f.commander, asg.ID, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateAssignment(f.ctx, f.commander, asg.ID, AssignmentPatch{Purpose: &purpose})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
}

func TestDeleteAssignmentRetention(t *testing.T) {
	f := newFixture(t)
	active := f.asset(f.ftl, f.rifle, 1)
	lost := f.asset(f.ftl, f.rifle, 1)

	activeAsg, err := f.svc.CreateAssignment(f.ctx, f.commander, CreateAssignmentInput{AssetID: active.ID, AssigneeID: f.soldier.ID})
	require.NoError(t, err)
	lostAsg, err := f.svc.CreateAssignment(f.ctx, f.commander, CreateAssignmentInput{AssetID: lost.ID, AssigneeID: f.soldier.ID})
	require.NoError(t, err)
	_, err = f.svc.MarkAssignment(f.ctx, f.commander, lostAsg.ID, model.AssignmentLost)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAssignment(f.ctx, f.commander, activeAsg.ID))
	assert.Equal(t, model.AssetAvailable, f.reload(active.ID).Status)
	_, err = f.svc.GetAssignment(f.ctx, f.commander, activeAsg.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)

	err = f.svc.DeleteAssignment(f.ctx, f.commander, lostAsg.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
}
