package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/arzenal/internal/model"
	"github.com/erazemk/arzenal/internal/store"
)

// Paging defaults.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest selects one page of a detail list. Zero values take defaults.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrev      bool `json:"has_prev"`
}

func paginate(p PageRequest, total int) Pagination {
	pages := (total + p.Limit - 1) / p.Limit
	return Pagination{
		CurrentPage:  p.Page,
		TotalPages:   pages,
		TotalRecords: total,
		HasNext:      p.Page < pages,
		HasPrev:      p.Page > 1,
	}
}

// Page is one page of a detail list.
type Page[T any] struct {
	Period     Window     `json:"period"`
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// PurchasesDetail lists the period's purchases, newest first.
func (s *Service) PurchasesDetail(ctx context.Context, actor model.Actor, f Filter, p PageRequest) (*Page[model.Purchase], error) {
	sc, err := s.resolve(actor, f)
	if err != nil {
		return nil, err
	}
	p = p.normalize()
	pf := sc.purchases()

	page := &Page[model.Purchase]{Period: sc.window}
	var total int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		page.Data, err = store.ListPurchases(gctx, s.db, pf, p.Limit, p.offset())
		return err
	})
	g.Go(func() (err error) {
		total, err = store.CountPurchases(gctx, s.db, pf)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if page.Data == nil {
		page.Data = []model.Purchase{}
	}
	page.Pagination = paginate(p, total)
	return page, nil
}

// TransfersInDetail lists the period's completed inbound transfers.
func (s *Service) TransfersInDetail(ctx context.Context, actor model.Actor, f Filter, p PageRequest) (*Page[model.Transfer], error) {
	sc, err := s.resolve(actor, f)
	if err != nil {
		return nil, err
	}
	return s.transfersPage(ctx, sc, sc.transfersIn(), p)
}

// TransfersOutDetail lists the period's completed outbound transfers.
func (s *Service) TransfersOutDetail(ctx context.Context, actor model.Actor, f Filter, p PageRequest) (*Page[model.Transfer], error) {
	sc, err := s.resolve(actor, f)
	if err != nil {
		return nil, err
	}
	return s.transfersPage(ctx, sc, sc.transfersOut(), p)
}

func (s *Service) transfersPage(ctx context.Context, sc scope, tf store.TransferFilter, p PageRequest) (*Page[model.Transfer], error) {
	p = p.normalize()

	total, err := store.CountTransfers(ctx, s.db, tf)
	if err != nil {
		return nil, err
	}
	data, err := store.ListTransfers(ctx, s.db, tf, p.Limit, p.offset())
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []model.Transfer{}
	}

	return &Page[model.Transfer]{
		Period:     sc.window,
		Data:       data,
		Pagination: paginate(p, total),
	}, nil
}
