package workflow

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

var assignRoles = []string{model.RoleAdmin, model.RoleBaseCommander}

// CreateAssignmentInput hands an asset to a person.
type CreateAssignmentInput struct {
	AssetID            int64
	AssigneeID         int64
	ExpectedReturnDate *time.Time
	Purpose            string
	Notes              string
}

// CreateAssignment records an ACTIVE assignment and marks the asset ASSIGNED.
func (s *Service) CreateAssignment(ctx context.Context, actor model.Actor, in CreateAssignmentInput) (*model.Assignment, error) {
	if err := requireRole(actor, "assign assets", assignRoles...); err != nil {
		return nil, err
	}
	now := s.now()
	if in.ExpectedReturnDate != nil && !in.ExpectedReturnDate.After(now) {
		return nil, apperr.Validation("expected return date must be in the future")
	}

	// The pool key is read up front so the lock is held before the
	// transaction begins; everything is checked again inside it.
	peek, err := loadAsset(ctx, s.db, in.AssetID)
	if err != nil {
		return nil, err
	}
	ref, err := s.newRef()
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(peek.BaseID, peek.EquipmentTypeID)
	defer unlock()

	var created *model.Assignment
	err = db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		a, err := loadAsset(ctx, tx, in.AssetID)
		if err != nil {
			return err
		}
		if err := requireBase(actor, a.BaseID); err != nil {
			return err
		}

		assignee, err := store.GetUser(ctx, tx, in.AssigneeID)
		if err != nil {
			return err
		}
		if assignee == nil || assignee.DeletedAt != nil {
			return apperr.NotFound("user", in.AssigneeID)
		}
		if actor.Role != model.RoleAdmin && (assignee.BaseID == nil || *assignee.BaseID != a.BaseID) {
			return apperr.Validation("assignee must belong to the asset's base")
		}

		if a.Status != model.AssetAvailable {
			return apperr.InvalidState("asset %s is %s, not %s", a.SerialNumber, a.Status, model.AssetAvailable)
		}
		active, err := store.ActiveAssignmentsForAssets(ctx, tx, []int64{a.ID})
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return apperr.Conflict("asset %s already has an active assignment", a.SerialNumber)
		}
		open, err := store.AssetInOpenExpenditure(ctx, tx, a.ID)
		if err != nil {
			return err
		}
		if open {
			return apperr.InvalidState("asset %s is held by an open expenditure", a.SerialNumber)
		}

		if err := store.SetAssetsStatus(ctx, tx, []int64{a.ID}, model.AssetAssigned, now); err != nil {
			return err
		}
		created, err = store.CreateAssignment(ctx, tx, &model.Assignment{
			Ref:                ref,
			AssetID:            a.ID,
			AssigneeID:         assignee.ID,
			BaseID:             a.BaseID,
			AssignmentDate:     now,
			ExpectedReturnDate: in.ExpectedReturnDate,
			Status:             model.AssignmentActive,
			AssignedBy:         actor.UserID,
			Purpose:            in.Purpose,
			Notes:              in.Notes,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	assignmentLog(ctx, created).WithField("assignee", created.AssigneeID).Info("Asset assigned")
	return created, nil
}

// ReturnAssignment closes an ACTIVE assignment. The asset becomes AVAILABLE
// and takes the reported condition, when one is given.
func (s *Service) ReturnAssignment(ctx context.Context, actor model.Actor, id int64, condition string) (*model.Assignment, error) {
	if condition != "" && !model.ValidCondition(condition) {
		return nil, apperr.Validation("invalid condition %q", condition)
	}
	return s.closeAssignment(ctx, actor, id, model.AssignmentReturned, func(a *model.Asset) {
		a.Status = model.AssetAvailable
		if condition != "" {
			a.Condition = condition
		}
	})
}

// MarkAssignment closes an ACTIVE assignment as LOST or DAMAGED. A lost
// asset is written off; a damaged one goes to maintenance. Neither is
// allowed while an open expenditure holds the asset.
func (s *Service) MarkAssignment(ctx context.Context, actor model.Actor, id int64, status string) (*model.Assignment, error) {
	switch status {
	case model.AssignmentLost:
		return s.closeAssignment(ctx, actor, id, status, func(a *model.Asset) {
			a.Status = model.AssetExpended
			a.Condition = model.ConditionUnserviceable
		})
	case model.AssignmentDamaged:
		return s.closeAssignment(ctx, actor, id, status, func(a *model.Asset) {
			a.Status = model.AssetMaintenance
			a.Condition = model.ConditionPoor
		})
	}
	return nil, apperr.Validation("status must be %s or %s", model.AssignmentLost, model.AssignmentDamaged)
}

func (s *Service) closeAssignment(ctx context.Context, actor model.Actor, id int64, status string, apply func(*model.Asset)) (*model.Assignment, error) {
	if err := requireRole(actor, "close assignments", assignRoles...); err != nil {
		return nil, err
	}

	var updated *model.Assignment
	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		asg, err := s.loadAssignment(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if asg.Status != model.AssignmentActive {
			return apperr.InvalidState("assignment %s is %s, not %s", asg.Ref, asg.Status, model.AssignmentActive)
		}

		a, err := loadAsset(ctx, tx, asg.AssetID)
		if err != nil {
			return err
		}
		now := s.now()
		apply(a)
		if a.Status != model.AssetAvailable {
			open, err := store.AssetInOpenExpenditure(ctx, tx, a.ID)
			if err != nil {
				return err
			}
			if open {
				return apperr.InvalidState("asset %s is held by an open expenditure", a.SerialNumber)
			}
		}
		a.UpdatedAt = now
		if err := store.UpdateAsset(ctx, tx, a); err != nil {
			return err
		}

		asg.Status = status
		asg.ActualReturnDate = &now
		asg.UpdatedAt = now
		if err := store.UpdateAssignment(ctx, tx, asg); err != nil {
			return err
		}
		updated, err = store.GetAssignment(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	assignmentLog(ctx, updated).WithField("actor", actor.Username).Info("Assignment closed")
	return updated, nil
}

// AssignmentPatch holds the editable assignment fields. Nil fields are left
// alone.
type AssignmentPatch struct {
	ExpectedReturnDate *time.Time
	Purpose            *string
	Notes              *string
}

// UpdateAssignment edits an ACTIVE assignment.
func (s *Service) UpdateAssignment(ctx context.Context, actor model.Actor, id int64, p AssignmentPatch) (*model.Assignment, error) {
	if err := requireRole(actor, "edit assignments", assignRoles...); err != nil {
		return nil, err
	}

	var updated *model.Assignment
	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		asg, err := s.loadAssignment(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if asg.Status != model.AssignmentActive {
			return apperr.InvalidState("assignment %s is %s and cannot be edited", asg.Ref, asg.Status)
		}

		if p.ExpectedReturnDate != nil {
			if !p.ExpectedReturnDate.After(asg.AssignmentDate) {
				return apperr.Validation("expected return date must be after the assignment date")
			}
			asg.ExpectedReturnDate = p.ExpectedReturnDate
		}
		if p.Purpose != nil {
			asg.Purpose = *p.Purpose
		}
		if p.Notes != nil {
			asg.Notes = *p.Notes
		}

		asg.UpdatedAt = s.now()
		if err := store.UpdateAssignment(ctx, tx, asg); err != nil {
			return err
		}
		updated, err = store.GetAssignment(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAssignment removes an ACTIVE or RETURNED assignment. Deleting an
// ACTIVE one gives the asset back to the pool. Assignments that changed the
// asset for good are kept.
func (s *Service) DeleteAssignment(ctx context.Context, actor model.Actor, id int64) error {
	if err := requireRole(actor, "delete assignments", assignRoles...); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		asg, err := s.loadAssignment(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		switch asg.Status {
		case model.AssignmentActive:
			a, err := loadAsset(ctx, tx, asg.AssetID)
			if err != nil {
				return err
			}
			if a.Status == model.AssetAssigned {
				if err := store.SetAssetsStatus(ctx, tx, []int64{a.ID}, model.AssetAvailable, s.now()); err != nil {
					return err
				}
			}
		case model.AssignmentReturned:
		default:
			return apperr.InvalidState("%s assignment %s is kept as history", asg.Status, asg.Ref)
		}
		return store.DeleteAssignment(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("assignment", id).Info("Assignment deleted")
	return nil
}

// GetAssignment returns an assignment at one of the actor's bases.
func (s *Service) GetAssignment(ctx context.Context, actor model.Actor, id int64) (*model.Assignment, error) {
	return s.loadAssignment(ctx, s.db, actor, id)
}

// ListAssignments returns assignments within the actor's scope.
func (s *Service) ListAssignments(ctx context.Context, actor model.Actor, f store.AssignmentFilter) ([]model.Assignment, error) {
	f.BaseID = actor.ScopeBase(f.BaseID)
	return store.ListAssignments(ctx, s.db, f)
}

func (s *Service) loadAssignment(ctx context.Context, q db.DBTX, actor model.Actor, id int64) (*model.Assignment, error) {
	asg, err := store.GetAssignment(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if asg == nil {
		return nil, apperr.NotFound("assignment", id)
	}
	if err := requireBase(actor, asg.BaseID); err != nil {
		return nil, err
	}
	return asg, nil
}

func assignmentLog(ctx context.Context, a *model.Assignment) *logrus.Entry {
	return logger.FromContext(ctx).WithFields(logrus.Fields{
		"assignment": a.ID,
		"ref":        a.Ref,
		"asset":      a.AssetID,
		"status":     a.Status,
	})
}
