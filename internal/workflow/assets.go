package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// writeRoles may create and edit inventory records.
var writeRoles = []string{model.RoleAdmin, model.RoleBaseCommander, model.RoleLogisticsOfficer}

// CreateAssetInput describes a new asset. Quantity defaults to 1, Condition
// to NEW and SerialNumber to the next free A### serial.
type CreateAssetInput struct {
	EquipmentTypeID int64
	BaseID          int64
	Quantity        int
	Condition       string
	SerialNumber    string
	Notes           string
}

// CreateAsset adds an AVAILABLE asset to a base.
func (s *Service) CreateAsset(ctx context.Context, actor model.Actor, in CreateAssetInput) (*model.Asset, error) {
	if err := requireRole(actor, "create assets", writeRoles...); err != nil {
		return nil, err
	}
	if err := requireBase(actor, in.BaseID); err != nil {
		return nil, err
	}
	if in.Quantity < 0 {
		return nil, apperr.Validation("quantity must not be negative")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Condition == "" {
		in.Condition = model.ConditionNew
	}
	if !model.ValidCondition(in.Condition) {
		return nil, apperr.Validation("invalid condition %q", in.Condition)
	}
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)

	var created *model.Asset
	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		if _, err := loadBase(ctx, tx, in.BaseID); err != nil {
			return err
		}
		if _, err := loadEquipmentType(ctx, tx, in.EquipmentTypeID); err != nil {
			return err
		}

		serial := in.SerialNumber
		if serial == "" {
			var err error
			if serial, err = store.NextSerialNumber(ctx, tx); err != nil {
				return err
			}
		}

		now := s.now()
		var err error
		created, err = store.CreateAsset(ctx, tx, &model.Asset{
			SerialNumber:    serial,
			EquipmentTypeID: in.EquipmentTypeID,
			BaseID:          in.BaseID,
			Status:          model.AssetAvailable,
			Condition:       in.Condition,
			Quantity:        in.Quantity,
			Notes:           in.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"asset":  created.ID,
		"serial": created.SerialNumber,
		"base":   created.BaseID,
	}).Info("Asset created")
	return created, nil
}

// GetAsset returns an asset the actor may see.
func (s *Service) GetAsset(ctx context.Context, actor model.Actor, id int64) (*model.Asset, error) {
	a, err := loadAsset(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := requireBase(actor, a.BaseID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssets returns assets matching the filter within the actor's scope.
func (s *Service) ListAssets(ctx context.Context, actor model.Actor, f store.AssetFilter) ([]model.Asset, error) {
	f.BaseID = actor.ScopeBase(f.BaseID)
	return store.ListAssets(ctx, s.db, f)
}

// AssetPatch holds the editable asset fields. Nil fields are left alone.
type AssetPatch struct {
	Condition *string
	Status    *string
	Notes     *string
}

// UpdateAsset edits condition and notes. Status may only move between
// AVAILABLE and MAINTENANCE, and only while no workflow holds the asset.
func (s *Service) UpdateAsset(ctx context.Context, actor model.Actor, id int64, p AssetPatch) (*model.Asset, error) {
	if err := requireRole(actor, "edit assets", writeRoles...); err != nil {
		return nil, err
	}

	var updated *model.Asset
	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		a, err := loadAsset(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireBase(actor, a.BaseID); err != nil {
			return err
		}

		if p.Condition != nil {
			if !model.ValidCondition(*p.Condition) {
				return apperr.Validation("invalid condition %q", *p.Condition)
			}
			a.Condition = *p.Condition
		}
		if p.Notes != nil {
			a.Notes = *p.Notes
		}
		if p.Status != nil && *p.Status != a.Status {
			if err := checkManualStatusChange(ctx, tx, a, *p.Status); err != nil {
				return err
			}
			a.Status = *p.Status
		}

		a.UpdatedAt = s.now()
		if err := store.UpdateAsset(ctx, tx, a); err != nil {
			return err
		}
		updated, err = store.GetAsset(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func checkManualStatusChange(ctx context.Context, q db.DBTX, a *model.Asset, to string) error {
	manual := func(status string) bool {
		return status == model.AssetAvailable || status == model.AssetMaintenance
	}
	if !model.ValidAssetStatus(to) {
		return apperr.Validation("invalid status %q", to)
	}
	if !manual(to) {
		return apperr.Validation("status %s is set by workflows only", to)
	}
	if !manual(a.Status) {
		return apperr.InvalidState("asset %s is %s", a.SerialNumber, a.Status)
	}
	open, err := store.AssetInOpenExpenditure(ctx, q, a.ID)
	if err != nil {
		return err
	}
	if open {
		return apperr.InvalidState("asset %s is held by an open expenditure", a.SerialNumber)
	}
	return nil
}

// DeleteAsset removes an AVAILABLE asset that no workflow record references.
func (s *Service) DeleteAsset(ctx context.Context, actor model.Actor, id int64) error {
	if err := requireRole(actor, "delete assets", model.RoleAdmin, model.RoleLogisticsOfficer); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		a, err := loadAsset(ctx, tx, id)
		if err != nil {
			return err
		}
		if a.Status != model.AssetAvailable {
			return apperr.InvalidState("asset %s is %s and cannot be deleted", a.SerialNumber, a.Status)
		}
		referenced, err := store.AssetReferenced(ctx, tx, id)
		if err != nil {
			return err
		}
		if referenced {
			return apperr.InvalidState("asset %s has workflow history and cannot be deleted", a.SerialNumber)
		}
		return store.DeleteAsset(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("asset", id).Info("Asset deleted")
	return nil
}

// splitAsset moves quantity out of a batch into a new asset with its own
// serial and the given status. The source asset keeps the remainder.
func (s *Service) splitAsset(ctx context.Context, q db.DBTX, a *model.Asset, quantity int, status string) (*model.Asset, error) {
	if quantity <= 0 || quantity >= a.Quantity {
		return nil, fmt.Errorf("splitting %d from asset %d holding %d", quantity, a.ID, a.Quantity)
	}

	now := s.now()
	a.Quantity -= quantity
	a.UpdatedAt = now
	if err := store.UpdateAsset(ctx, q, a); err != nil {
		return nil, err
	}

	serial, err := store.NextSerialNumber(ctx, q)
	if err != nil {
		return nil, err
	}
	part, err := store.CreateAsset(ctx, q, &model.Asset{
		SerialNumber:    serial,
		EquipmentTypeID: a.EquipmentTypeID,
		BaseID:          a.BaseID,
		Status:          status,
		Condition:       a.Condition,
		Quantity:        quantity,
		PurchaseID:      a.PurchaseID,
		Notes:           fmt.Sprintf("Split from %s", a.SerialNumber),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}
