package workflow

import (
	"context"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

var approveExpenditureRoles = []string{model.RoleAdmin, model.RoleBaseCommander}

// CreateExpenditureInput requests consumption of a quantity at a base.
// Without AssetIDs the oldest AVAILABLE or ASSIGNED assets are taken.
type CreateExpenditureInput struct {
	BaseID           int64
	EquipmentTypeID  int64
	Quantity         int
	Reason           string
	AssetIDs         []int64
	ExpenditureDate  *time.Time
	OperationDetails string
	Notes            string
}

// CreateExpenditure records a PENDING expenditure backed by allocated
// assets. Asset status is untouched until completion.
func (s *Service) CreateExpenditure(ctx context.Context, actor model.Actor, in CreateExpenditureInput) (*model.Expenditure, error) {
	if err := requireRole(actor, "create expenditures", writeRoles...); err != nil {
		return nil, err
	}
	if err := requireBase(actor, in.BaseID); err != nil {
		return nil, err
	}
	if !model.ValidReason(in.Reason) {
		return nil, apperr.Validation("invalid reason %q", in.Reason)
	}
	if err := validateAllocationInput(in.Quantity, in.AssetIDs); err != nil {
		return nil, err
	}

	ref, err := s.newRef()
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(in.BaseID, in.EquipmentTypeID)
	defer unlock()

	var created *model.Expenditure
	err = db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		if _, err := loadBase(ctx, tx, in.BaseID); err != nil {
			return err
		}
		if _, err := loadEquipmentType(ctx, tx, in.EquipmentTypeID); err != nil {
			return err
		}

		req := AllocationRequest{
			BaseID:          in.BaseID,
			EquipmentTypeID: in.EquipmentTypeID,
			Quantity:        in.Quantity,
			AssetIDs:        in.AssetIDs,
			Eligible:        ExpenditureEligible,
		}
		alloc, err := Allocate(ctx, tx, req)
		if err != nil {
			return err
		}
		want := requested(req, alloc)
		if alloc.Total < want || alloc.Total == 0 {
			return apperr.InsufficientSupply(want, alloc.Total)
		}
		if err := s.reserve(ctx, tx, alloc); err != nil {
			return err
		}

		now := s.now()
		date := now
		if in.ExpenditureDate != nil {
			date = in.ExpenditureDate.UTC()
		}
		e := &model.Expenditure{
			Ref:              ref,
			EquipmentTypeID:  in.EquipmentTypeID,
			BaseID:           in.BaseID,
			Quantity:         alloc.Total,
			ExpenditureDate:  date,
			Reason:           in.Reason,
			Status:           model.ExpenditurePending,
			AuthorizedBy:     actor.UserID,
			OperationDetails: in.OperationDetails,
			Notes:            in.Notes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		for _, l := range alloc.Lines {
			e.Assets = append(e.Assets, model.ExpenditureAsset{AssetID: l.Asset.ID, Quantity: l.Quantity})
		}
		created, err = store.CreateExpenditure(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, err
	}

	expenditureLog(ctx, created).WithField("quantity", created.Quantity).Info("Expenditure requested")
	return created, nil
}

// ApproveExpenditure moves a PENDING expenditure to APPROVED.
func (s *Service) ApproveExpenditure(ctx context.Context, actor model.Actor, id int64) (*model.Expenditure, error) {
	return s.advanceExpenditure(ctx, actor, id, approveExpenditureRoles, func(e *model.Expenditure, tx db.DBTX) error {
		if e.Status != model.ExpenditurePending {
			return apperr.InvalidState("expenditure %s is %s, not %s", e.Ref, e.Status, model.ExpenditurePending)
		}
		e.Status = model.ExpenditureApproved
		e.ApprovedBy = &actor.UserID
		return nil
	}, "Expenditure approved")
}

// CompleteExpenditure consumes the backing assets. Any ACTIVE assignment on
// them ends as EXPENDED.
func (s *Service) CompleteExpenditure(ctx context.Context, actor model.Actor, id int64) (*model.Expenditure, error) {
	return s.advanceExpenditure(ctx, actor, id, writeRoles, func(e *model.Expenditure, tx db.DBTX) error {
		if e.Status != model.ExpenditureApproved {
			return apperr.InvalidState("expenditure %s is %s, not %s", e.Ref, e.Status, model.ExpenditureApproved)
		}

		now := s.now()
		ids := make([]int64, len(e.Assets))
		for i, a := range e.Assets {
			ids[i] = a.AssetID
		}
		if err := checkStillEligible(ctx, tx, e, ids); err != nil {
			return err
		}
		if err := store.ExpendAssets(ctx, tx, ids, now); err != nil {
			return err
		}

		active, err := store.ActiveAssignmentsForAssets(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i := range active {
			asg := &active[i]
			asg.Status = model.AssignmentExpended
			asg.ActualReturnDate = &now
			asg.UpdatedAt = now
			if err := store.UpdateAssignment(ctx, tx, asg); err != nil {
				return err
			}
		}

		e.Status = model.ExpenditureCompleted
		e.CompletedBy = &actor.UserID
		e.CompletedDate = &now
		return nil
	}, "Expenditure completed")
}

// CancelExpenditure cancels an expenditure that has not completed. No asset
// was touched yet, so only the record changes.
func (s *Service) CancelExpenditure(ctx context.Context, actor model.Actor, id int64, reason string) (*model.Expenditure, error) {
	return s.advanceExpenditure(ctx, actor, id, approveExpenditureRoles, func(e *model.Expenditure, tx db.DBTX) error {
		if !expenditureOpen(e) {
			return apperr.InvalidState("expenditure %s is %s and cannot be cancelled", e.Ref, e.Status)
		}
		e.Status = model.ExpenditureCancelled
		if reason != "" {
			e.Notes = appendNote(e.Notes, "Cancelled: "+reason)
		}
		return nil
	}, "Expenditure cancelled")
}

// ExpenditurePatch holds the editable expenditure fields. Nil fields are
// left alone.
type ExpenditurePatch struct {
	Reason           *string
	OperationDetails *string
	Notes            *string
}

// UpdateExpenditure edits a PENDING or APPROVED expenditure.
func (s *Service) UpdateExpenditure(ctx context.Context, actor model.Actor, id int64, p ExpenditurePatch) (*model.Expenditure, error) {
	return s.advanceExpenditure(ctx, actor, id, writeRoles, func(e *model.Expenditure, tx db.DBTX) error {
		if !expenditureOpen(e) {
			return apperr.InvalidState("expenditure %s is %s and cannot be edited", e.Ref, e.Status)
		}
		if p.Reason != nil {
			if !model.ValidReason(*p.Reason) {
				return apperr.Validation("invalid reason %q", *p.Reason)
			}
			e.Reason = *p.Reason
		}
		if p.OperationDetails != nil {
			e.OperationDetails = *p.OperationDetails
		}
		if p.Notes != nil {
			e.Notes = *p.Notes
		}
		return nil
	}, "")
}

func (s *Service) advanceExpenditure(ctx context.Context, actor model.Actor, id int64, roles []string, fn func(*model.Expenditure, db.DBTX) error, event string) (*model.Expenditure, error) {
	if err := requireRole(actor, "change expenditures", roles...); err != nil {
		return nil, err
	}

	var updated *model.Expenditure
	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		e, err := loadExpenditure(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := fn(e, tx); err != nil {
			return err
		}

		e.UpdatedAt = s.now()
		if err := store.UpdateExpenditure(ctx, tx, e); err != nil {
			return err
		}
		updated, err = store.GetExpenditure(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if event != "" {
		expenditureLog(ctx, updated).WithField("actor", actor.Username).Info(event)
	}
	return updated, nil
}

// DeleteExpenditure removes an expenditure that has not completed.
func (s *Service) DeleteExpenditure(ctx context.Context, actor model.Actor, id int64) error {
	if err := requireRole(actor, "delete expenditures", approveExpenditureRoles...); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		e, err := loadExpenditure(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if e.Status == model.ExpenditureCompleted {
			return apperr.InvalidState("completed expenditure %s is kept as history", e.Ref)
		}
		return store.DeleteExpenditure(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("expenditure", id).Info("Expenditure deleted")
	return nil
}

// GetExpenditure returns an expenditure at one of the actor's bases.
func (s *Service) GetExpenditure(ctx context.Context, actor model.Actor, id int64) (*model.Expenditure, error) {
	return loadExpenditure(ctx, s.db, actor, id)
}

// ListExpenditures returns expenditures within the actor's scope.
func (s *Service) ListExpenditures(ctx context.Context, actor model.Actor, f store.ExpenditureFilter) ([]model.Expenditure, error) {
	f.BaseID = actor.ScopeBase(f.BaseID)
	return store.ListExpenditures(ctx, s.db, f)
}

func loadExpenditure(ctx context.Context, q db.DBTX, actor model.Actor, id int64) (*model.Expenditure, error) {
	e, err := store.GetExpenditure(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound("expenditure", id)
	}
	if err := requireBase(actor, e.BaseID); err != nil {
		return nil, err
	}
	return e, nil
}

// checkStillEligible rejects completion when a backing asset left the
// expendable statuses after the expenditure was created.
func checkStillEligible(ctx context.Context, q db.DBTX, e *model.Expenditure, ids []int64) error {
	found, err := store.GetAssets(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		a, ok := found[id]
		if !ok {
			return apperr.InvalidState("asset %d backing expenditure %s no longer exists", id, e.Ref)
		}
		if !slices.Contains(ExpenditureEligible, a.Status) {
			return apperr.InvalidState("asset %s backing expenditure %s is %s", a.SerialNumber, e.Ref, a.Status)
		}
	}
	return nil
}

func expenditureOpen(e *model.Expenditure) bool {
	return e.Status == model.ExpenditurePending || e.Status == model.ExpenditureApproved
}

func expenditureLog(ctx context.Context, e *model.Expenditure) *logrus.Entry {
	return logger.FromContext(ctx).WithFields(logrus.Fields{
		"expenditure": e.ID,
		"ref":         e.Ref,
		"base":        e.BaseID,
		"status":      e.Status,
	})
}
