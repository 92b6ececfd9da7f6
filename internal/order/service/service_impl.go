package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	"github.com/smallbiznis/gymcore/internal/observability/metrics"
	"github.com/smallbiznis/gymcore/internal/order/domain"
	"github.com/smallbiznis/gymcore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxLineQuantity = 10000
	// transitionAttempts bounds how often a lost status race is re-read.
	transitionAttempts = 3
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

type line struct {
	productID snowflake.ID
	quantity  int64
}

// Create places an order for the caller. Stock for every line is taken in
// the same transaction that writes the order, so either all lines are
// reserved or none are.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}
	buyerID, ok := gymcontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidBuyer
	}

	lines, err := coalesce(req.Items)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order := &domain.Order{
		ID:        s.genID.Generate(),
		GymID:     gymID,
		BuyerID:   buyerID,
		Number:    "ORD-" + ulid.Make().String(),
		Status:    domain.StatusPendingApproval,
		Notes:     normalize(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	items := make([]domain.OrderItem, 0, len(lines))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range lines {
			taken, err := s.repo.DecrementStock(ctx, tx, gymID, l.productID, l.quantity, now)
			if err != nil {
				return err
			}
			product, err := s.repo.FindProduct(ctx, tx, gymID, l.productID)
			if err != nil {
				return err
			}
			if !taken {
				if product == nil || !product.IsActive {
					return domain.ErrProductNotFound
				}
				return domain.ErrInsufficientStock
			}
			if product == nil {
				return domain.ErrProductNotFound
			}

			lineTotal, ok := multiplyAmount(product.Price, l.quantity)
			if !ok {
				return domain.ErrAmountOverflow
			}
			total, ok := addAmount(order.TotalAmount, lineTotal)
			if !ok {
				return domain.ErrAmountOverflow
			}

			item := domain.OrderItem{
				ID:          s.genID.Generate(),
				OrderID:     order.ID,
				GymID:       gymID,
				ProductID:   l.productID,
				ProductName: product.Name,
				Quantity:    l.quantity,
				UnitPrice:   product.Price,
				LineTotal:   lineTotal,
				CreatedAt:   now,
			}
			order.TotalAmount = total
			items = append(items, item)
		}

		if err := s.repo.Insert(ctx, tx, order); err != nil {
			return err
		}
		return s.repo.InsertItems(ctx, tx, items)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.metrics.RecordOrderEvent(ctx, "insufficient_stock")
		}
		return nil, err
	}

	s.metrics.RecordOrderEvent(ctx, "created")
	s.audit(ctx, gymID, "order.created", order.ID, map[string]any{
		"number":       order.Number,
		"total_amount": order.TotalAmount,
		"items":        len(items),
	})
	return toResponse(order, items), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	order, err := s.repo.FindByID(ctx, s.db, gymID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, gymID, orderID)
	if err != nil {
		return nil, err
	}
	return toResponse(order, items), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidGym
	}

	filter, err := listFilter(req)
	if err != nil {
		return domain.ListResponse{}, err
	}
	if raw := strings.TrimSpace(req.BuyerID); raw != "" {
		buyerID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidBuyer
		}
		filter.BuyerID = &buyerID
	}
	return s.list(ctx, gymID, filter)
}

// ListMine lists the caller's own orders. Any buyer filter in req is ignored.
func (s *Service) ListMine(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidGym
	}
	buyerID, ok := gymcontext.UserIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidBuyer
	}

	filter, err := listFilter(req)
	if err != nil {
		return domain.ListResponse{}, err
	}
	filter.BuyerID = &buyerID
	return s.list(ctx, gymID, filter)
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	orderID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	target := domain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !target.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	return s.transition(ctx, gymID, orderID, target, nil)
}

// CancelOwn lets a buyer withdraw an order that has not been prepared yet.
func (s *Service) CancelOwn(ctx context.Context, id string) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}
	requesterID, ok := gymcontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidBuyer
	}

	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	return s.transition(ctx, gymID, orderID, domain.StatusCancelled, func(o *domain.Order) error {
		if o.BuyerID != requesterID {
			return domain.ErrForbidden
		}
		if o.Status != domain.StatusPendingApproval {
			return domain.ErrInvalidTransition
		}
		return nil
	})
}

// transition moves an order to target through a compare-and-swap on its
// current status. Cancelling returns every line's quantity to stock inside
// the same transaction.
func (s *Service) transition(ctx context.Context, gymID, orderID snowflake.ID, target domain.Status, guard func(*domain.Order) error) (*domain.Response, error) {
	var (
		updated *domain.Order
		items   []domain.OrderItem
		from    domain.Status
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; attempt < transitionAttempts; attempt++ {
			current, err := s.repo.FindByID(ctx, tx, gymID, orderID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if guard != nil {
				if err := guard(current); err != nil {
					return err
				}
			}
			if !current.Status.CanTransition(target) {
				return domain.ErrInvalidTransition
			}

			now := s.clock.Now()
			swapped, err := s.repo.CompareAndSetStatus(ctx, tx, gymID, orderID, current.Status, target, now)
			if err != nil {
				return err
			}
			if !swapped {
				s.log.Debug("order status changed concurrently, retrying",
					zap.String("order_id", orderID.String()),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			from = current.Status

			items, err = s.repo.ListItems(ctx, tx, gymID, orderID)
			if err != nil {
				return err
			}
			if target == domain.StatusCancelled {
				for _, item := range items {
					if err := s.repo.IncrementStock(ctx, tx, gymID, item.ProductID, item.Quantity, now); err != nil {
						return err
					}
				}
			}

			updated, err = s.repo.FindByID(ctx, tx, gymID, orderID)
			return err
		}
		return domain.ErrInvalidTransition
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	s.metrics.RecordOrderEvent(ctx, string(target))
	s.audit(ctx, gymID, "order.status_changed", orderID, map[string]any{
		"from": string(from),
		"to":   string(target),
	})
	return toResponse(updated, items), nil
}

func (s *Service) list(ctx context.Context, gymID snowflake.ID, filter domain.ListFilter) (domain.ListResponse, error) {
	orders, err := s.repo.List(ctx, s.db, gymID, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	rows := make([]*domain.Order, 0, len(orders))
	for i := range orders {
		rows = append(rows, &orders[i])
	}
	rows, pageInfo := pagination.BuildCursorPageInfo(rows, filter.Limit, func(o *domain.Order) string {
		return pagination.EncodeTimeCursor(o.ID, o.CreatedAt)
	})

	resp := make([]domain.Response, 0, len(rows))
	for _, o := range rows {
		resp = append(resp, *toResponse(o, nil))
	}
	return domain.ListResponse{PageInfo: *pageInfo, Orders: resp}, nil
}

func (s *Service) audit(ctx context.Context, gymID snowflake.ID, action string, orderID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := orderID.String()
	if err := s.auditSvc.AuditLog(ctx, &gymID, "", nil, action, "order", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// coalesce validates requested lines and merges repeated products. Lines are
// returned ordered by product ID so concurrent orders touch stock rows in the
// same order.
func coalesce(reqs []domain.ItemRequest) ([]line, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	quantities := make(map[snowflake.ID]int64, len(reqs))
	for _, item := range reqs {
		productID, err := snowflake.ParseString(strings.TrimSpace(item.ProductID))
		if err != nil || productID <= 0 {
			return nil, domain.ErrInvalidProduct
		}
		if item.Quantity <= 0 || item.Quantity > maxLineQuantity {
			return nil, domain.ErrInvalidQuantity
		}
		quantities[productID] += item.Quantity
		if quantities[productID] > maxLineQuantity {
			return nil, domain.ErrInvalidQuantity
		}
	}

	lines := make([]line, 0, len(quantities))
	for productID, qty := range quantities {
		lines = append(lines, line{productID: productID, quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].productID < lines[j].productID })
	return lines, nil
}

// multiplyAmount and addAmount keep totals exact: a result that does not
// fit in int64 minor units is rejected instead of wrapping.
func multiplyAmount(price, quantity int64) (int64, bool) {
	if price < 0 || quantity < 0 {
		return 0, false
	}
	if quantity != 0 && price > math.MaxInt64/quantity {
		return 0, false
	}
	return price * quantity, true
}

func addAmount(total, amount int64) (int64, bool) {
	if amount < 0 || total > math.MaxInt64-amount {
		return 0, false
	}
	return total + amount, true
}

func listFilter(req domain.ListRequest) (domain.ListFilter, error) {
	cursor, err := pagination.DecodeTimeCursor(req.PageToken)
	if err != nil {
		return domain.ListFilter{}, domain.ErrInvalidPageToken
	}
	filter := domain.ListFilter{
		Cursor: cursor,
		Limit:  pagination.Pagination{PageSize: req.PageSize}.Limit(),
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := domain.Status(strings.ToLower(raw))
		if !status.Valid() {
			return filter, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	return filter, nil
}

func normalize(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(o *domain.Order, items []domain.OrderItem) *domain.Response {
	resp := &domain.Response{
		ID:          o.ID.String(),
		GymID:       o.GymID.String(),
		BuyerID:     o.BuyerID.String(),
		Number:      o.Number,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Notes:       o.Notes,
		PreparedAt:  o.PreparedAt,
		CompletedAt: o.CompletedAt,
		CancelledAt: o.CancelledAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if len(items) > 0 {
		resp.Items = make([]domain.ItemResponse, 0, len(items))
		for _, item := range items {
			resp.Items = append(resp.Items, domain.ItemResponse{
				ID:          item.ID.String(),
				ProductID:   item.ProductID.String(),
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				LineTotal:   item.LineTotal,
			})
		}
	}
	return resp
}
