package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

func TestTransferLifecycle(t *testing.T) {
	f := newFixture(t)
	rifle := f.asset(f.ftl, f.rifle, 1)
	require.Equal(t, "A001", rifle.SerialNumber)

	tr, err := f.svc.InitiateTransfer(f.ctx, f.commander, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransferInitiated, tr.Status)
	assert.Equal(t, 1, tr.TotalQuantity)
	require.Len(t, tr.Lines, 1)
	assert.Equal(t, rifle.ID, tr.Lines[0].AssetID)
	assert.Equal(t, model.AssetInTransit, f.reload(rifle.ID).Status)

	tr, err = f.svc.ApproveTransfer(f.ctx, f.commander, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferInTransit, tr.Status)
	require.NotNil(t, tr.ApprovedBy)
	assert.Equal(t, f.commander.UserID, *tr.ApprovedBy)

	// The source commander cannot receive the goods.
	_, err = f.svc.CompleteTransfer(f.ctx, f.commander, tr.ID)
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied), "got %v", err)

	f.clock.Advance(24 * time.Hour)
	tr, err = f.svc.CompleteTransfer(f.ctx, f.remoteCmdr, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferCompleted, tr.Status)
	require.NotNil(t, tr.CompletionDate)
	assert.True(t, tr.CompletionDate.Equal(f.clock.Now()))

	moved := f.reload(rifle.ID)
	assert.Equal(t, f.ftb.ID, moved.BaseID)
	assert.Equal(t, model.AssetAvailable, moved.Status)

	sum := 0
	for _, l := range tr.Lines {
		sum += l.Quantity
		assert.Equal(t, f.ftb.ID, f.reload(l.AssetID).BaseID)
	}
	assert.Equal(t, tr.TotalQuantity, sum)
}

func TestTransferTransitionsAreOneShot(t *testing.T) {
	f := newFixture(t)
	f.asset(f.ftl, f.rifle, 1)

	tr, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1,
	})
	require.NoError(t, err)

	_, err = f.svc.ApproveTransfer(f.ctx, f.admin, tr.ID)
	require.NoError(t, err)
	_, err = f.svc.ApproveTransfer(f.ctx, f.admin, tr.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)

	_, err = f.svc.CompleteTransfer(f.ctx, f.admin, tr.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteTransfer(f.ctx, f.admin, tr.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)

	_, err = f.svc.CancelTransfer(f.ctx, f.admin, tr.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
}

func TestCompleteRequiresApproval(t *testing.T) {
	f := newFixture(t)
	f.asset(f.ftl, f.rifle, 1)

	tr, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1,
	})
	require.NoError(t, err)

	_, err = f.svc.CompleteTransfer(f.ctx, f.admin, tr.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
}

func TestInitiateTransferValidation(t *testing.T) {
	f := newFixture(t)
	f.asset(f.ftl, f.rifle, 1)

	tests := []struct {
		name  string
		actor model.Actor
		in    InitiateTransferInput
		kind  apperr.Kind
	}{
		{"same base", f.admin, InitiateTransferInput{FromBaseID: f.ftl.ID, ToBaseID: f.ftl.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1}, apperr.KindValidation},
		{"zero quantity", f.admin, InitiateTransferInput{FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID}, apperr.KindValidation},
		{"unknown base", f.admin, InitiateTransferInput{FromBaseID: f.ftl.ID, ToBaseID: 999, EquipmentTypeID: f.rifle.ID, Quantity: 1}, apperr.KindNotFound},
		{"unknown type", f.admin, InitiateTransferInput{FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: 999, Quantity: 1}, apperr.KindNotFound},
		{"foreign commander", f.remoteCmdr, InitiateTransferInput{FromBaseID: f.ftl.ID, ToBaseID: 999, EquipmentTypeID: f.rifle.ID, Quantity: 1}, apperr.KindAccessDenied},
		{"read-only user", f.soldier.Actor(), InitiateTransferInput{FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1}, apperr.KindAccessDenied},
		{"too many", f.admin, InitiateTransferInput{FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 2}, apperr.KindInsufficientSupply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.InitiateTransfer(f.ctx, tt.actor, tt.in)
			assert.True(t, apperr.Is(err, tt.kind), "expected %s, got %v", tt.kind, err)
		})
	}

	n, err := store.CountTransfers(f.ctx, f.db, store.TransferFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "failed initiations must not leave records")
	assert.Equal(t, model.AssetAvailable, f.reload(1).Status)
}

func TestInsufficientSupplyCarriesQuantities(t *testing.T) {
	f := newFixture(t)
	f.asset(f.ftl, f.ammo, 40)

	_, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.ammo.ID, Quantity: 100,
	})
	e, ok := apperr.As(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.KindInsufficientSupply, e.Kind)
	assert.Equal(t, 100, e.Requested)
	assert.Equal(t, 40, e.Available)
}

func TestTransferSplitsBatch(t *testing.T) {
	f := newFixture(t)
	batch := f.asset(f.ftl, f.ammo, 100)

	tr, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.ammo.ID, Quantity: 30,
	})
	require.NoError(t, err)
	require.Len(t, tr.Lines, 1)
	assert.Equal(t, 30, tr.Lines[0].Quantity)
	assert.NotEqual(t, batch.ID, tr.Lines[0].AssetID)
	assert.Equal(t, "A002", tr.Lines[0].SerialNumber)

	rest := f.reload(batch.ID)
	assert.Equal(t, 70, rest.Quantity)
	assert.Equal(t, model.AssetAvailable, rest.Status)

	part := f.reload(tr.Lines[0].AssetID)
	assert.Equal(t, 30, part.Quantity)
	assert.Equal(t, model.AssetInTransit, part.Status)
	assert.True(t, part.CreatedAt.Equal(batch.CreatedAt), "split keeps the batch's age")
}

func TestCancelTransferReleasesAssets(t *testing.T) {
	f := newFixture(t)
	a := f.asset(f.ftl, f.rifle, 1)

	tr, err := f.svc.InitiateTransfer(f.ctx, f.commander, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1,
	})
	require.NoError(t, err)
	_, err = f.svc.ApproveTransfer(f.ctx, f.admin, tr.ID)
	require.NoError(t, err)

	// Neither the initiator nor a global role: denied.
	_, err = f.svc.CancelTransfer(f.ctx, f.remoteCmdr, tr.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied), "got %v", err)

	tr, err = f.svc.CancelTransfer(f.ctx, f.commander, tr.ID, "convoy unavailable")
	require.NoError(t, err)
	assert.Equal(t, model.TransferCancelled, tr.Status)
	assert.Contains(t, tr.Notes, "convoy unavailable")

	released := f.reload(a.ID)
	assert.Equal(t, model.AssetAvailable, released.Status)
	assert.Equal(t, f.ftl.ID, released.BaseID)
}

func TestUpdateTransferOnlyWhileOpen(t *testing.T) {
	f := newFixture(t)
	f.asset(f.ftl, f.rifle, 1)

	tr, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1,
	})
	require.NoError(t, err)

	details := "Convoy 7"
	tr, err = f.svc.UpdateTransfer(f.ctx, f.logistics, tr.ID, TransferPatch{TransportDetails: &details})
	require.NoError(t, err)
	assert.Equal(t, "Convoy 7", tr.TransportDetails)

	_, err = f.svc.CancelTransfer(f.ctx, f.admin, tr.ID, "")
	require.NoError(t, err)
	_, err = f.svc.UpdateTransfer(f.ctx, f.logistics, tr.ID, TransferPatch{TransportDetails: &details})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
}

func TestDeleteTransfer(t *testing.T) {
	f := newFixture(t)
	open := f.asset(f.ftl, f.rifle, 1)
	done := f.asset(f.ftl, f.rifle, 1)

	openTr, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, AssetIDs: []int64{open.ID},
	})
	require.NoError(t, err)
	doneTr, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, AssetIDs: []int64{done.ID},
	})
	require.NoError(t, err)
	_, err = f.svc.ApproveTransfer(f.ctx, f.admin, doneTr.ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteTransfer(f.ctx, f.admin, doneTr.ID)
	require.NoError(t, err)

	err = f.svc.DeleteTransfer(f.ctx, f.commander, openTr.ID)
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied), "got %v", err)

	require.NoError(t, f.svc.DeleteTransfer(f.ctx, f.admin, openTr.ID))
	assert.Equal(t, model.AssetAvailable, f.reload(open.ID).Status)

	err = f.svc.DeleteTransfer(f.ctx, f.admin, doneTr.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)
}

func TestTransferVisibility(t *testing.T) {
	f := newFixture(t)
	f.asset(f.ftl, f.rifle, 1)
	other, err := store.CreateBase(f.ctx, f.db, "Camp Pendleton", "CPN001", "", f.clock.Now())
	require.NoError(t, err)

	tr, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1,
	})
	require.NoError(t, err)

	_, err = f.svc.GetTransfer(f.ctx, f.remoteCmdr, tr.ID)
	require.NoError(t, err, "destination base sees inbound transfers")

	outsider := model.Actor{UserID: 99, Role: model.RoleBaseCommander, BaseID: &other.ID}
	_, err = f.svc.GetTransfer(f.ctx, outsider, tr.ID)
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied), "got %v", err)

	list, err := f.svc.ListTransfers(f.ctx, outsider, store.TransferFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConcurrentInitiateSingleAsset(t *testing.T) {
	f := newFixtureWithDB(t, db.NewFileTestDB(t))
	f.asset(f.ftl, f.rifle, 1)

	const callers = 2
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
				FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1,
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindInsufficientSupply), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)

	n, err := store.CountTransfers(f.ctx, f.db, store.TransferFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConcurrentInitiateSeparateServices(t *testing.T) {
	database := db.NewFileTestDB(t)
	f := newFixtureWithDB(t, database)
	f.asset(f.ftl, f.rifle, 1)

	// Two services share no in-process lock; the immediate transaction
	// still serializes them.
	services := []*Service{f.svc, NewService(database, WithClock(f.clock), WithIDGen(&seqIDs{n: 100}))}
	var wg sync.WaitGroup
	errs := make([]error, len(services))
	for i, svc := range services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
				FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1,
			})
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.True(t, apperr.Is(err, apperr.KindInsufficientSupply), "got %v", err)
		}
	}
	assert.Equal(t, 1, failed)
}
