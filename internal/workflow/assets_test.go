package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/arzenal/internal/apperr"
	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

func TestCreateAssetAssignsSerials(t *testing.T) {
	f := newFixture(t)

	first := f.asset(f.ftl, f.rifle, 1)
	assert.Equal(t, "A001", first.SerialNumber)
	assert.Equal(t, model.AssetAvailable, first.Status)
	assert.Equal(t, model.ConditionNew, first.Condition)
	assert.Equal(t, 1, first.Quantity)
	assert.Equal(t, f.ftl.ID, first.BaseID)

	second := f.asset(f.ftl, f.rifle, 1)
	assert.Equal(t, "A002", second.SerialNumber)
}

func TestCreateAssetDefaultsQuantity(t *testing.T) {
	f := newFixture(t)

	a, err := f.svc.CreateAsset(f.ctx, f.admin, CreateAssetInput{EquipmentTypeID: f.rifle.ID, BaseID: f.ftl.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Quantity)
}

func TestCreateAssetExplicitSerialConflict(t *testing.T) {
	f := newFixture(t)

	in := CreateAssetInput{EquipmentTypeID: f.rifle.ID, BaseID: f.ftl.ID, SerialNumber: "SN-1"}
	_, err := f.svc.CreateAsset(f.ctx, f.admin, in)
	require.NoError(t, err)

	_, err = f.svc.CreateAsset(f.ctx, f.admin, in)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
}

func TestCreateAssetScoping(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateAsset(f.ctx, f.commander, CreateAssetInput{EquipmentTypeID: f.rifle.ID, BaseID: f.ftb.ID})
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied), "got %v", err)

	_, err = f.svc.CreateAsset(f.ctx, f.soldier.Actor(), CreateAssetInput{EquipmentTypeID: f.rifle.ID, BaseID: f.ftl.ID})
	assert.True(t, apperr.Is(err, apperr.KindAccessDenied), "got %v", err)

	_, err = f.svc.CreateAsset(f.ctx, f.admin, CreateAssetInput{EquipmentTypeID: 999, BaseID: f.ftl.ID})
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestListAssetsScopedToHomeBase(t *testing.T) {
	f := newFixture(t)
	f.asset(f.ftl, f.rifle, 1)
	f.asset(f.ftb, f.rifle, 1)

	all, err := f.svc.ListAssets(f.ctx, f.admin, store.AssetFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	other := f.ftb.ID
	mine, err := f.svc.ListAssets(f.ctx, f.commander, store.AssetFilter{BaseID: &other})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.ftl.ID, mine[0].BaseID)
}

func TestUpdateAssetStatus(t *testing.T) {
	f := newFixture(t)
	a := f.asset(f.ftl, f.rifle, 1)

	maintenance := model.AssetMaintenance
	updated, err := f.svc.UpdateAsset(f.ctx, f.commander, a.ID, AssetPatch{Status: &maintenance})
	require.NoError(t, err)
	assert.Equal(t, model.AssetMaintenance, updated.Status)

	expended := model.AssetExpended
	_, err = f.svc.UpdateAsset(f.ctx, f.commander, a.ID, AssetPatch{Status: &expended})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestUpdateAssetStatusBlockedByWorkflow(t *testing.T) {
	f := newFixture(t)
	a := f.asset(f.ftl, f.rifle, 1)

	_, err := f.svc.CreateExpenditure(f.ctx, f.admin, CreateExpenditureInput{
		BaseID: f.ftl.ID, EquipmentTypeID: f.rifle.ID, Quantity: 1, Reason: model.ReasonTraining,
	})
	require.NoError(t, err)

	maintenance := model.AssetMaintenance
	_, err = f.svc.UpdateAsset(f.ctx, f.admin, a.ID, AssetPatch{Status: &maintenance})
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)

	// Condition edits stay allowed.
	poor := model.ConditionPoor
	updated, err := f.svc.UpdateAsset(f.ctx, f.admin, a.ID, AssetPatch{Condition: &poor})
	require.NoError(t, err)
	assert.Equal(t, model.ConditionPoor, updated.Condition)
}

func TestDeleteAssetRetention(t *testing.T) {
	f := newFixture(t)
	free := f.asset(f.ftl, f.rifle, 1)
	moved := f.asset(f.ftl, f.rifle, 1)

	_, err := f.svc.InitiateTransfer(f.ctx, f.admin, InitiateTransferInput{
		FromBaseID: f.ftl.ID, ToBaseID: f.ftb.ID, EquipmentTypeID: f.rifle.ID, AssetIDs: []int64{moved.ID},
	})
	require.NoError(t, err)

	err = f.svc.DeleteAsset(f.ctx, f.admin, moved.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)

	require.NoError(t, f.svc.DeleteAsset(f.ctx, f.admin, free.ID))
	_, err = f.svc.GetAsset(f.ctx, f.admin, free.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}
