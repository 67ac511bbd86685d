// Package dashboard computes period balances and movement totals from the
// asset pool and workflow history. It never writes.
package dashboard

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service answers dashboard queries.
type Service struct {
	db    *sql.DB
	clock Clock
}

// NewService creates a Service. A nil clock means wall time.
func NewService(database *sql.DB, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{db: database, clock: clock}
}

// Filter narrows every dashboard query. Statuses applies to balances only.
// Start and End default to the current quarter unless both are set.
type Filter struct {
	BaseID          *int64
	EquipmentTypeID *int64
	Statuses        []string
	Start           *time.Time
	End             *time.Time
}

// Metrics are the headline numbers for a period.
type Metrics struct {
	Period         Window `json:"period"`
	OpeningBalance int    `json:"opening_balance"`
	ClosingBalance int    `json:"closing_balance"`
	Purchases      int    `json:"purchases"`
	TransfersIn    int    `json:"transfers_in"`
	TransfersOut   int    `json:"transfers_out"`
	NetMovement    int    `json:"net_movement"`
	AssignedCount  int    `json:"assigned_count"`
	ExpendedCount  int    `json:"expended_count"`
}

// Movement is a record count and the quantity those records moved.
type Movement struct {
	Count    int `json:"count"`
	Quantity int `json:"quantity"`
}

// Breakdown splits net movement by record kind.
type Breakdown struct {
	Period        Window          `json:"period"`
	Purchases     Movement        `json:"purchases"`
	TransfersIn   Movement        `json:"transfers_in"`
	TransfersOut  Movement        `json:"transfers_out"`
	Expenditures  Movement        `json:"expenditures"`
	NetMovement   int             `json:"net_movement"`
	PurchaseValue decimal.Decimal `json:"purchase_value"`
}

// scope is a resolved filter: window fixed and base pinned for the actor.
type scope struct {
	window          Window
	baseID          *int64
	equipmentTypeID *int64
	statuses        []string
}

func (s *Service) resolve(actor model.Actor, f Filter) (scope, error) {
	w, err := PeriodWindow(s.clock.Now(), f.Start, f.End)
	if err != nil {
		return scope{}, err
	}
	return scope{
		window:          w,
		baseID:          actor.ScopeBase(f.BaseID),
		equipmentTypeID: f.EquipmentTypeID,
		statuses:        f.Statuses,
	}, nil
}

func (sc scope) purchases() store.PurchaseFilter {
	return store.PurchaseFilter{
		BaseID:          sc.baseID,
		EquipmentTypeID: sc.equipmentTypeID,
		ExcludeStatus:   model.PurchaseCancelled,
		From:            &sc.window.Start,
		To:              &sc.window.End,
	}
}

func (sc scope) transfersIn() store.TransferFilter {
	return store.TransferFilter{
		ToBaseID:        sc.baseID,
		EquipmentTypeID: sc.equipmentTypeID,
		Status:          model.TransferCompleted,
		CompletedFrom:   &sc.window.Start,
		CompletedTo:     &sc.window.End,
	}
}

func (sc scope) transfersOut() store.TransferFilter {
	f := sc.transfersIn()
	f.ToBaseID, f.FromBaseID = nil, sc.baseID
	return f
}

func (sc scope) expenditures() store.ExpenditureFilter {
	return store.ExpenditureFilter{
		BaseID:          sc.baseID,
		EquipmentTypeID: sc.equipmentTypeID,
		Status:          model.ExpenditureCompleted,
		CompletedFrom:   &sc.window.Start,
		CompletedTo:     &sc.window.End,
	}
}

func (sc scope) balance(at time.Time) store.BalanceFilter {
	return store.BalanceFilter{
		BaseID:          sc.baseID,
		EquipmentTypeID: sc.equipmentTypeID,
		Statuses:        sc.statuses,
		CreatedBy:       at,
	}
}

// Metrics computes balances and movement for the period. The queries are
// independent and run concurrently.
func (s *Service) Metrics(ctx context.Context, actor model.Actor, f Filter) (*Metrics, error) {
	sc, err := s.resolve(actor, f)
	if err != nil {
		return nil, err
	}

	closingAt := sc.window.End
	if now := s.clock.Now(); now.Before(closingAt) {
		closingAt = now
	}

	m := &Metrics{Period: sc.window}
	var purchases, in, out, expended store.Totals

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		m.OpeningBalance, err = store.SumAssetQuantity(gctx, s.db, sc.balance(sc.window.Start))
		return err
	})
	g.Go(func() (err error) {
		m.ClosingBalance, err = store.SumAssetQuantity(gctx, s.db, sc.balance(closingAt))
		return err
	})
	g.Go(func() (err error) {
		purchases, err = store.SumPurchases(gctx, s.db, sc.purchases())
		return err
	})
	g.Go(func() (err error) {
		in, err = store.SumTransfers(gctx, s.db, sc.transfersIn())
		return err
	})
	g.Go(func() (err error) {
		out, err = store.SumTransfers(gctx, s.db, sc.transfersOut())
		return err
	})
	g.Go(func() (err error) {
		expended, err = store.SumExpenditures(gctx, s.db, sc.expenditures())
		return err
	})
	g.Go(func() (err error) {
		m.AssignedCount, err = store.CountActiveAssignments(gctx, s.db, sc.baseID, sc.equipmentTypeID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.Purchases = purchases.Quantity
	m.TransfersIn = in.Quantity
	m.TransfersOut = out.Quantity
	m.ExpendedCount = expended.Quantity
	m.NetMovement = m.Purchases + m.TransfersIn - m.TransfersOut
	return m, nil
}

// NetMovement returns the grouped totals behind Metrics.NetMovement, with
// the same filter semantics.
func (s *Service) NetMovement(ctx context.Context, actor model.Actor, f Filter) (*Breakdown, error) {
	sc, err := s.resolve(actor, f)
	if err != nil {
		return nil, err
	}

	b := &Breakdown{Period: sc.window}
	var purchases, in, out, expended store.Totals

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		purchases, err = store.SumPurchases(gctx, s.db, sc.purchases())
		return err
	})
	g.Go(func() (err error) {
		b.PurchaseValue, err = store.SumPurchaseValue(gctx, s.db, sc.purchases())
		return err
	})
	g.Go(func() (err error) {
		in, err = store.SumTransfers(gctx, s.db, sc.transfersIn())
		return err
	})
	g.Go(func() (err error) {
		out, err = store.SumTransfers(gctx, s.db, sc.transfersOut())
		return err
	})
	g.Go(func() (err error) {
		expended, err = store.SumExpenditures(gctx, s.db, sc.expenditures())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.Purchases = Movement(purchases)
	b.TransfersIn = Movement(in)
	b.TransfersOut = Movement(out)
	b.Expenditures = Movement(expended)
	b.NetMovement = purchases.Quantity + in.Quantity - out.Quantity
	return b, nil
}
