package workflow

import (
	"context"
	"slices"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// Eligible statuses per workflow.
var (
	TransferEligible    = []string{model.AssetAvailable}
	ExpenditureEligible = []string{model.AssetAvailable, model.AssetAssigned}
)

// AllocationRequest asks for a quantity of one equipment type at one base.
// With AssetIDs set only those assets are considered, in the given order,
// and a zero Quantity takes all of them.
type AllocationRequest struct {
	BaseID          int64
	EquipmentTypeID int64
	Quantity        int
	AssetIDs        []int64
	Eligible        []string
}

// AllocationLine is the quantity taken from one asset.
type AllocationLine struct {
	Asset    model.Asset
	Quantity int
}

// Allocation is the result of Allocate. Total may fall short of the request;
// comparing it with the request is the caller's job.
type Allocation struct {
	Lines []AllocationLine
	Total int
}

// AssetIDs returns the allocated asset ids in line order.
func (a *Allocation) AssetIDs() []int64 {
	ids := make([]int64, len(a.Lines))
	for i, l := range a.Lines {
		ids[i] = l.Asset.ID
	}
	return ids
}

// Allocate selects the assets that satisfy req. It only reads.
func Allocate(ctx context.Context, q db.DBTX, req AllocationRequest) (*Allocation, error) {
	if len(req.AssetIDs) > 0 {
		return allocateExplicit(ctx, q, req)
	}

	candidates, err := store.ListAllocatableAssets(ctx, q, req.BaseID, req.EquipmentTypeID, req.Eligible)
	if err != nil {
		return nil, err
	}
	return takeInOrder(candidates, req.Quantity), nil
}

func allocateExplicit(ctx context.Context, q db.DBTX, req AllocationRequest) (*Allocation, error) {
	seen := make(map[int64]bool, len(req.AssetIDs))
	for _, id := range req.AssetIDs {
		if seen[id] {
			return nil, apperr.Allocation("asset %d listed more than once", id)
		}
		seen[id] = true
	}

	found, err := store.GetAssets(ctx, q, req.AssetIDs)
	if err != nil {
		return nil, err
	}

	chosen := make([]model.Asset, 0, len(req.AssetIDs))
	for _, id := range req.AssetIDs {
		a, ok := found[id]
		if !ok {
			return nil, apperr.Allocation("asset %d does not exist", id)
		}
		if a.BaseID != req.BaseID {
			return nil, apperr.Allocation("asset %s is not at base %d", a.SerialNumber, req.BaseID)
		}
		if a.EquipmentTypeID != req.EquipmentTypeID {
			return nil, apperr.Allocation("asset %s is not of equipment type %d", a.SerialNumber, req.EquipmentTypeID)
		}
		if !slices.Contains(req.Eligible, a.Status) || a.Quantity <= 0 {
			return nil, apperr.Allocation("asset %s is %s and cannot be allocated", a.SerialNumber, a.Status)
		}
		open, err := store.AssetInOpenExpenditure(ctx, q, a.ID)
		if err != nil {
			return nil, err
		}
		if open {
			return nil, apperr.Allocation("asset %s is held by an open expenditure", a.SerialNumber)
		}
		chosen = append(chosen, *a)
	}

	quantity := req.Quantity
	if quantity == 0 {
		for _, a := range chosen {
			quantity += a.Quantity
		}
	}
	return takeInOrder(chosen, quantity), nil
}

// takeInOrder consumes candidates front to back until quantity is met.
func takeInOrder(candidates []model.Asset, quantity int) *Allocation {
	alloc := &Allocation{}
	for _, a := range candidates {
		if alloc.Total >= quantity {
			break
		}
		take := min(a.Quantity, quantity-alloc.Total)
		if take <= 0 {
			continue
		}
		alloc.Lines = append(alloc.Lines, AllocationLine{Asset: a, Quantity: take})
		alloc.Total += take
	}
	return alloc
}

// requested returns the quantity an allocation must reach: the request, or
// for a zero request over explicit ids, whatever those ids hold.
func requested(req AllocationRequest, alloc *Allocation) int {
	if req.Quantity == 0 && len(req.AssetIDs) > 0 {
		return alloc.Total
	}
	return req.Quantity
}

// validateAllocationInput checks the shape of a quantity request.
func validateAllocationInput(quantity int, assetIDs []int64) error {
	if quantity < 0 {
		return apperr.Validation("quantity must not be negative")
	}
	if quantity == 0 && len(assetIDs) == 0 {
		return apperr.Validation("quantity must be at least 1")
	}
	return nil
}

// reserve materializes an allocation. A line that takes part of a batch
// splits it, so every line covers a whole asset. The part split off an
// ASSIGNED batch is AVAILABLE: the assignment stays with the remainder.
func (s *Service) reserve(ctx context.Context, q db.DBTX, alloc *Allocation) error {
	for i := range alloc.Lines {
		l := &alloc.Lines[i]
		if l.Quantity >= l.Asset.Quantity {
			continue
		}
		status := l.Asset.Status
		if status == model.AssetAssigned {
			status = model.AssetAvailable
		}
		part, err := s.splitAsset(ctx, q, &l.Asset, l.Quantity, status)
		if err != nil {
			return err
		}
		l.Asset = *part
	}
	return nil
}
