package workflow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/logger"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// CreatePurchaseInput describes a procurement order.
type CreatePurchaseInput struct {
	BaseID          int64
	EquipmentTypeID int64
	Quantity        int
	UnitPrice       decimal.Decimal
	SupplierName    string
	SupplierContact string
	PurchaseDate    *time.Time
	Notes           string
}

// CreatePurchase records an ORDERED purchase.
func (s *Service) CreatePurchase(ctx context.Context, actor model.Actor, in CreatePurchaseInput) (*model.Purchase, error) {
	if err := requireRole(actor, "create purchases", writeRoles...); err != nil {
		return nil, err
	}
	if err := requireBase(actor, in.BaseID); err != nil {
		return nil, err
	}
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if in.UnitPrice.IsNegative() {
		return nil, apperr.Validation("unit price must not be negative")
	}

	ref, err := s.newRef()
	if err != nil {
		return nil, err
	}

	var created *model.Purchase
	err = db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		if _, err := loadBase(ctx, tx, in.BaseID); err != nil {
			return err
		}
		if _, err := loadEquipmentType(ctx, tx, in.EquipmentTypeID); err != nil {
			return err
		}

		now := s.now()
		date := now
		if in.PurchaseDate != nil {
			date = in.PurchaseDate.UTC()
		}
		var err error
		created, err = store.CreatePurchase(ctx, tx, &model.Purchase{
			Ref:             ref,
			BaseID:          in.BaseID,
			EquipmentTypeID: in.EquipmentTypeID,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			TotalAmount:     model.PurchaseTotal(in.Quantity, in.UnitPrice),
			SupplierName:    in.SupplierName,
			SupplierContact: in.SupplierContact,
			PurchaseDate:    date,
			Status:          model.PurchaseOrdered,
			CreatedBy:       actor.UserID,
			Notes:           in.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	purchaseLog(ctx, created).WithField("total", created.TotalAmount.StringFixed(2)).Info("Purchase ordered")
	return created, nil
}

// PurchasePatch holds the editable purchase fields. Nil fields are left alone.
type PurchasePatch struct {
	Quantity        *int
	UnitPrice       *decimal.Decimal
	SupplierName    *string
	SupplierContact *string
	Notes           *string
}

// UpdatePurchase edits an ORDERED purchase and recomputes its total.
func (s *Service) UpdatePurchase(ctx context.Context, actor model.Actor, id int64, p PurchasePatch) (*model.Purchase, error) {
	return s.advancePurchase(ctx, actor, id, writeRoles, func(pu *model.Purchase, tx db.DBTX) error {
		if pu.Status != model.PurchaseOrdered {
			return apperr.InvalidState("purchase %s is %s and cannot be edited", pu.Ref, pu.Status)
		}
		if p.Quantity != nil {
			if *p.Quantity < 1 {
				return apperr.Validation("quantity must be at least 1")
			}
			pu.Quantity = *p.Quantity
		}
		if p.UnitPrice != nil {
			if p.UnitPrice.IsNegative() {
				return apperr.Validation("unit price must not be negative")
			}
			pu.UnitPrice = *p.UnitPrice
		}
		if p.SupplierName != nil {
			pu.SupplierName = *p.SupplierName
		}
		if p.SupplierContact != nil {
			pu.SupplierContact = *p.SupplierContact
		}
		if p.Notes != nil {
			pu.Notes = *p.Notes
		}
		pu.TotalAmount = model.PurchaseTotal(pu.Quantity, pu.UnitPrice)
		return nil
	}, "")
}

// DeliverPurchase receives an ORDERED purchase and creates its assets at
// the purchase's base. Fungible categories arrive as one batch asset; others
// as one asset per unit.
func (s *Service) DeliverPurchase(ctx context.Context, actor model.Actor, id int64) (*model.Purchase, error) {
	return s.advancePurchase(ctx, actor, id, writeRoles, func(pu *model.Purchase, tx db.DBTX) error {
		if pu.Status != model.PurchaseOrdered {
			return apperr.InvalidState("purchase %s is %s, not %s", pu.Ref, pu.Status, model.PurchaseOrdered)
		}
		et, err := loadEquipmentType(ctx, tx, pu.EquipmentTypeID)
		if err != nil {
			return err
		}

		now := s.now()
		units, perUnit := pu.Quantity, 1
		if model.Fungible(et.Category) {
			units, perUnit = 1, pu.Quantity
		}
		serials, err := store.NextSerialNumbers(ctx, tx, units)
		if err != nil {
			return err
		}
		for _, serial := range serials {
			if _, err := store.CreateAsset(ctx, tx, &model.Asset{
				SerialNumber:    serial,
				EquipmentTypeID: pu.EquipmentTypeID,
				BaseID:          pu.BaseID,
				Status:          model.AssetAvailable,
				Condition:       model.ConditionNew,
				Quantity:        perUnit,
				PurchaseID:      &pu.ID,
				CreatedAt:       now,
				UpdatedAt:       now,
			}); err != nil {
				return err
			}
		}

		pu.Status = model.PurchaseDelivered
		pu.DeliveryDate = &now
		return nil
	}, "Purchase delivered")
}

// CancelPurchase cancels an ORDERED purchase.
func (s *Service) CancelPurchase(ctx context.Context, actor model.Actor, id int64, reason string) (*model.Purchase, error) {
	return s.advancePurchase(ctx, actor, id, writeRoles, func(pu *model.Purchase, tx db.DBTX) error {
		if pu.Status != model.PurchaseOrdered {
			return apperr.InvalidState("purchase %s is %s and cannot be cancelled", pu.Ref, pu.Status)
		}
		pu.Status = model.PurchaseCancelled
		if reason != "" {
			pu.Notes = appendNote(pu.Notes, "Cancelled: "+reason)
		}
		return nil
	}, "Purchase cancelled")
}

func (s *Service) advancePurchase(ctx context.Context, actor model.Actor, id int64, roles []string, fn func(*model.Purchase, db.DBTX) error, event string) (*model.Purchase, error) {
	if err := requireRole(actor, "change purchases", roles...); err != nil {
		return nil, err
	}

	var updated *model.Purchase
	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		pu, err := loadPurchase(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := fn(pu, tx); err != nil {
			return err
		}

		pu.UpdatedAt = s.now()
		if err := store.UpdatePurchase(ctx, tx, pu); err != nil {
			return err
		}
		updated, err = store.GetPurchase(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if event != "" {
		purchaseLog(ctx, updated).WithField("actor", actor.Username).Info(event)
	}
	return updated, nil
}

// DeletePurchase removes a purchase that was never delivered.
func (s *Service) DeletePurchase(ctx context.Context, actor model.Actor, id int64) error {
	if err := requireRole(actor, "delete purchases", model.RoleAdmin, model.RoleLogisticsOfficer); err != nil {
		return err
	}

	err := db.WithTx(ctx, s.db, func(tx db.DBTX) error {
		pu, err := loadPurchase(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if pu.Status == model.PurchaseDelivered {
			return apperr.InvalidState("delivered purchase %s is kept as history", pu.Ref)
		}
		return store.DeletePurchase(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).WithField("purchase", id).Info("Purchase deleted")
	return nil
}

// GetPurchase returns a purchase at one of the actor's bases.
func (s *Service) GetPurchase(ctx context.Context, actor model.Actor, id int64) (*model.Purchase, error) {
	return loadPurchase(ctx, s.db, actor, id)
}

// ListPurchases returns purchases within the actor's scope, newest first.
func (s *Service) ListPurchases(ctx context.Context, actor model.Actor, f store.PurchaseFilter) ([]model.Purchase, error) {
	f.BaseID = actor.ScopeBase(f.BaseID)
	return store.ListPurchases(ctx, s.db, f, 0, 0)
}

func loadPurchase(ctx context.Context, q db.DBTX, actor model.Actor, id int64) (*model.Purchase, error) {
	pu, err := store.GetPurchase(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if pu == nil {
		return nil, apperr.NotFound("purchase", id)
	}
	if err := requireBase(actor, pu.BaseID); err != nil {
		return nil, err
	}
	return pu, nil
}

func purchaseLog(ctx context.Context, p *model.Purchase) *logrus.Entry {
	return logger.FromContext(ctx).WithFields(logrus.Fields{
		"purchase": p.ID,
		"ref":      p.Ref,
		"base":     p.BaseID,
		"status":   p.Status,
	})
}
