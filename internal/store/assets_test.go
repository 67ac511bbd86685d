package store

import (
	"context"
	"slices"
	"testing"

	"github.com/erazemk/arzenal/internal/db"
	"github.com/erazemk/arzenal/internal/model"
)

func seedPool(t *testing.T) (db.DBTX, *model.Base, *model.EquipmentType) {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	base, err := CreateBase(ctx, database, "Fort Lee", "FTL001", "", testNow)
	if err != nil {
		t.Fatalf("CreateBase: %v", err)
	}
	et, err := CreateEquipmentType(ctx, database, "M4A1", "WPN-M4A1", model.CategoryWeapon, "", testNow)
	if err != nil {
		t.Fatalf("CreateEquipmentType: %v", err)
	}
	return database, base, et
}

func insertAsset(t *testing.T, q db.DBTX, serial string, base *model.Base, et *model.EquipmentType, status string) *model.Asset {
	t.Helper()
	a, err := CreateAsset(context.Background(), q, &model.Asset{
		SerialNumber:    serial,
		EquipmentTypeID: et.ID,
		BaseID:          base.ID,
		Status:          status,
		Condition:       model.ConditionNew,
		Quantity:        1,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	})
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	return a
}

func TestNextSerialNumber(t *testing.T) {
	q, base, et := seedPool(t)
	ctx := context.Background()

	serial, err := NextSerialNumber(ctx, q)
	if err != nil {
		t.Fatalf("NextSerialNumber: %v", err)
	}
	if serial != "A001" {
		t.Errorf("expected A001 on empty pool, got %s", serial)
	}

	insertAsset(t, q, "A009", base, et, model.AssetAvailable)
	insertAsset(t, q, "A1x", base, et, model.AssetAvailable)
	insertAsset(t, q, "B500", base, et, model.AssetAvailable)

	serial, _ = NextSerialNumber(ctx, q)
	if serial != "A010" {
		t.Errorf("expected A010, got %s", serial)
	}

	insertAsset(t, q, "A1234", base, et, model.AssetAvailable)
	serial, _ = NextSerialNumber(ctx, q)
	if serial != "A1235" {
		t.Errorf("expected A1235, got %s", serial)
	}
}

func TestNextSerialNumbers(t *testing.T) {
	q, base, et := seedPool(t)
	ctx := context.Background()

	insertAsset(t, q, "A007", base, et, model.AssetAvailable)

	serials, err := NextSerialNumbers(ctx, q, 3)
	if err != nil {
		t.Fatalf("NextSerialNumbers: %v", err)
	}
	want := []string{"A008", "A009", "A010"}
	if !slices.Equal(serials, want) {
		t.Errorf("expected %v, got %v", want, serials)
	}
}

func TestListAllocatableAssetsSkipsOpenExpenditures(t *testing.T) {
	q, base, et := seedPool(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, q, "cmd", "hash", "", model.RoleAdmin, nil, testNow)
	free := insertAsset(t, q, "A001", base, et, model.AssetAvailable)
	held := insertAsset(t, q, "A002", base, et, model.AssetAvailable)
	insertAsset(t, q, "A003", base, et, model.AssetMaintenance)

	_, err := CreateExpenditure(ctx, q, &model.Expenditure{
		Ref: "01EXP", EquipmentTypeID: et.ID, BaseID: base.ID, Quantity: 1,
		ExpenditureDate: testNow, Reason: model.ReasonTraining, Status: model.ExpenditurePending,
		AuthorizedBy: user.ID, CreatedAt: testNow, UpdatedAt: testNow,
		Assets: []model.ExpenditureAsset{{AssetID: held.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("CreateExpenditure: %v", err)
	}

	assets, err := ListAllocatableAssets(ctx, q, base.ID, et.ID, []string{model.AssetAvailable})
	if err != nil {
		t.Fatalf("ListAllocatableAssets: %v", err)
	}
	if len(assets) != 1 || assets[0].ID != free.ID {
		t.Errorf("expected only %s, got %v", free.SerialNumber, assets)
	}

	open, _ := AssetInOpenExpenditure(ctx, q, held.ID)
	if !open {
		t.Error("expected held asset to be in an open expenditure")
	}
	referenced, _ := AssetReferenced(ctx, q, free.ID)
	if referenced {
		t.Error("free asset should not be referenced")
	}
}

func TestDeleteBaseInUse(t *testing.T) {
	q, base, et := seedPool(t)
	ctx := context.Background()

	insertAsset(t, q, "A001", base, et, model.AssetAvailable)

	if err := DeleteBase(ctx, q, base.ID); err == nil {
		t.Error("expected error deleting a base that holds assets")
	}
}
