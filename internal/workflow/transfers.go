package workflow

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// InitiateTransferInput requests a transfer. Without AssetIDs the oldest
// AVAILABLE assets at the source base are taken.
type InitiateTransferInput struct {
	FromBaseID       int64
	ToBaseID         int64
	EquipmentTypeID  int64
	Quantity         int
	AssetIDs         []int64
	TransportDetails string
	Notes            string
}

// InitiateTransfer reserves assets at the source base and records an
// INITIATED transfer. The reserved assets become IN_TRANSIT.
func (s *Service) InitiateTransfer(ctx context.Context, actor model.Actor, in InitiateTransferInput) (*model.Transfer, error) {
	if err := requireRole(actor, "initiate transfers", writeRoles...); err != nil {
		return nil, err
	}
	if in.FromBaseID == in.ToBaseID {
		return nil, apperr.Validation("source and destination base must differ")
	}
	if !actor.GlobalScope() && !actor.HomeBase(in.FromBaseID) && !actor.HomeBase(in.ToBaseID) {
		return nil, apperr.AccessDenied("transfer must involve your base")
	}
	if err := validateAllocationInput(in.Quantity, in.AssetIDs); err != nil {
		return nil, err
	}

	ref, err := s.newRef()
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(in.FromBaseID, in.EquipmentTypeID)
	defer unlock()

	var created *model.Transfer
	err = db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		if _, err := loadBase(ctx, tx, in.FromBaseID); err != nil {
			return err
		}
		if _, err := loadBase(ctx, tx, in.ToBaseID); err != nil {
			return err
		}
		if _, err := loadEquipmentType(ctx, tx, in.EquipmentTypeID); err != nil {
			return err
		}

		req := AllocationRequest{
			BaseID:          in.FromBaseID,
			EquipmentTypeID: in.EquipmentTypeID,
			Quantity:        in.Quantity,
			AssetIDs:        in.AssetIDs,
			Eligible:        TransferEligible,
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
		if err := store.SetAssetsStatus(ctx, tx, alloc.AssetIDs(), model.AssetInTransit, now); err != nil {
			return err
		}

		t := &model.Transfer{
			Ref:              ref,
			FromBaseID:       in.FromBaseID,
			ToBaseID:         in.ToBaseID,
			EquipmentTypeID:  in.EquipmentTypeID,
			TotalQuantity:    alloc.Total,
			Status:           model.TransferInitiated,
			InitiatedBy:      actor.UserID,
			TransferDate:     now,
			TransportDetails: in.TransportDetails,
			Notes:            in.Notes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		for _, l := range alloc.Lines {
			t.Lines = append(t.Lines, model.TransferLine{AssetID: l.Asset.ID, Quantity: l.Quantity})
		}
		created, err = store.CreateTransfer(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	transferLog(ctx, created).WithField("quantity", created.TotalQuantity).Info("Transfer initiated")
	return created, nil
}

// ApproveTransfer dispatches an INITIATED transfer.
func (s *Service) ApproveTransfer(ctx context.Context, actor model.Actor, id int64) (*model.Transfer, error) {
	return s.advanceTransfer(ctx, actor, id, func(t *model.Transfer, tx db.DBTX) error {
		if !actor.GlobalScope() && !(actor.Role == model.RoleBaseCommander && actor.HomeBase(t.FromBaseID)) {
			return apperr.AccessDenied("only the source base may approve transfer %s", t.Ref)
		}
		if t.Status != model.TransferInitiated {
			return apperr.InvalidState("transfer %s is %s, not %s", t.Ref, t.Status, model.TransferInitiated)
		}
		t.Status = model.TransferInTransit
		t.ApprovedBy = &actor.UserID
		return nil
	}, "Transfer approved")
}

// CompleteTransfer moves the transfer's assets to the destination base,
// where they become AVAILABLE.
func (s *Service) CompleteTransfer(ctx context.Context, actor model.Actor, id int64) (*model.Transfer, error) {
	return s.advanceTransfer(ctx, actor, id, func(t *model.Transfer, tx db.DBTX) error {
		if !actor.GlobalScope() && !(actor.Role == model.RoleBaseCommander && actor.HomeBase(t.ToBaseID)) {
			return apperr.AccessDenied("only the destination base may complete transfer %s", t.Ref)
		}
		if t.Status != model.TransferInTransit {
			return apperr.InvalidState("transfer %s is %s, not %s", t.Ref, t.Status, model.TransferInTransit)
		}

		now := s.now()
		if err := store.MoveAssets(ctx, tx, lineAssetIDs(t), t.ToBaseID, now); err != nil {
			return err
		}
		t.Status = model.TransferCompleted
		t.CompletedBy = &actor.UserID
		t.CompletionDate = &now
		return nil
	}, "Transfer completed")
}

// CancelTransfer cancels an open transfer. Its assets never left the source
// base, so they only become AVAILABLE again.
func (s *Service) CancelTransfer(ctx context.Context, actor model.Actor, id int64, reason string) (*model.Transfer, error) {
	return s.advanceTransfer(ctx, actor, id, func(t *model.Transfer, tx db.DBTX) error {
		if !actor.GlobalScope() && actor.UserID != t.InitiatedBy {
			return apperr.AccessDenied("only the initiator may cancel transfer %s", t.Ref)
		}
		if !t.Open() {
			return apperr.InvalidState("transfer %s is %s and cannot be cancelled", t.Ref, t.Status)
		}

		if err := store.SetAssetsStatus(ctx, tx, lineAssetIDs(t), model.AssetAvailable, s.now()); err != nil {
			return err
		}
		t.Status = model.TransferCancelled
		if reason != "" {
			t.Notes = appendNote(t.Notes, "Cancelled: "+reason)
		}
		return nil
	}, "Transfer cancelled")
}

// TransferPatch holds the editable transfer fields. Nil fields are left alone.
type TransferPatch struct {
	TransportDetails *string
	Notes            *string
}

// UpdateTransfer edits transport details and notes of an open transfer.
func (s *Service) UpdateTransfer(ctx context.Context, actor model.Actor, id int64, p TransferPatch) (*model.Transfer, error) {
	return s.advanceTransfer(ctx, actor, id, func(t *model.Transfer, tx db.DBTX) error {
		if !actor.HasRole(writeRoles...) || !transferVisible(actor, t) {
			return apperr.AccessDenied("you may not edit transfer %s", t.Ref)
		}
		if !t.Open() {
			return apperr.InvalidState("transfer %s is %s and cannot be edited", t.Ref, t.Status)
		}
		if p.TransportDetails != nil {
			t.TransportDetails = *p.TransportDetails
		}
		if p.Notes != nil {
			t.Notes = *p.Notes
		}
		return nil
	}, "")
}

// advanceTransfer loads a transfer, applies fn and saves it, all in one
// transaction.
func (s *Service) advanceTransfer(ctx context.Context, actor model.Actor, id int64, fn func(*model.Transfer, db.DBTX) error, event string) (*model.Transfer, error) {
	var updated *model.Transfer
	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		t, err := store.GetTransfer(ctx, tx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return apperr.NotFound("transfer", id)
		}
		if err := fn(t, tx); err != nil {
			return err
		}

		t.UpdatedAt = s.now()
		if err := store.UpdateTransfer(ctx, tx, t); err != nil {
			return err
		}
		updated, err = store.GetTransfer(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if event != "" {
		transferLog(ctx, updated).WithField("actor", actor.Username).Info(event)
	}
	return updated, nil
}

// DeleteTransfer removes a transfer that was never completed, releasing
// any assets it still holds.
func (s *Service) DeleteTransfer(ctx context.Context, actor model.Actor, id int64) error {
	if err := requireRole(actor, "delete transfers", model.RoleAdmin, model.RoleLogisticsOfficer); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		t, err := store.GetTransfer(ctx, tx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return apperr.NotFound("transfer", id)
		}
		if t.Status == model.TransferCompleted {
			return apperr.InvalidState("completed transfer %s is kept as history", t.Ref)
		}
		if t.Open() {
			if err := store.SetAssetsStatus(ctx, tx, lineAssetIDs(t), model.AssetAvailable, s.now()); err != nil {
				return err
			}
		}
		return store.DeleteTransfer(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("transfer", id).Info("Transfer deleted")
	return nil
}

// GetTransfer returns a transfer touching one of the actor's bases.
func (s *Service) GetTransfer(ctx context.Context, actor model.Actor, id int64) (*model.Transfer, error) {
	t, err := store.GetTransfer(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("transfer", id)
	}
	if !transferVisible(actor, t) {
		return nil, apperr.AccessDenied("transfer %s is outside your scope", t.Ref)
	}
	return t, nil
}

// ListTransfers returns transfers within the actor's scope, newest first.
func (s *Service) ListTransfers(ctx context.Context, actor model.Actor, f store.TransferFilter) ([]model.Transfer, error) {
	if !actor.GlobalScope() {
		f.BaseID = actor.ScopeBase(nil)
	}
	return store.ListTransfers(ctx, s.db, f, 0, 0)
}

func transferVisible(actor model.Actor, t *model.Transfer) bool {
	return actor.CanAccessBase(t.FromBaseID) || actor.CanAccessBase(t.ToBaseID)
}

func lineAssetIDs(t *model.Transfer) []int64 {
	ids := make([]int64, len(t.Lines))
	for i, l := range t.Lines {
		ids[i] = l.AssetID
	}
	return ids
}

func transferLog(ctx context.Context, t *model.Transfer) *logrus.Entry {
	return logger.FromContext(ctx).WithFields(logrus.Fields{
		"transfer": t.ID,
		"ref":      t.Ref,
		"status":   t.Status,
		"route":    fmt.Sprintf("%d->%d", t.FromBaseID, t.ToBaseID),
	})
}
