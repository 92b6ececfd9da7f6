package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	"github.com/smallbiznis/gymcore/internal/migration"
	"github.com/smallbiznis/gymcore/internal/order/domain"
	"github.com/smallbiznis/gymcore/internal/order/repository"
	productdomain "github.com/smallbiznis/gymcore/internal/product/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	conn  *gorm.DB
	svc   domain.Service
	node  *snowflake.Node
	gymID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.ApplySchema(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return &fixture{conn: conn, svc: svc, node: node, gymID: node.Generate()}
}

// buyer returns a context acting as a fresh member of the fixture gym.
func (f *fixture) buyer() (context.Context, snowflake.ID) {
	userID := f.node.Generate()
	ctx := gymcontext.WithGymID(context.Background(), f.gymID.Int64())
	return gymcontext.WithUserID(ctx, userID.Int64()), userID
}

func (f *fixture) product(t *testing.T, name string, price, stock int64) string {
	t.Helper()
	now := time.Now().UTC()
	p := productdomain.Product{
		ID:            f.node.Generate(),
		GymID:         f.gymID,
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.conn.Create(&p).Error)
	return p.ID.String()
}

func (f *fixture) stock(t *testing.T, productID string) int64 {
	t.Helper()
	var qty int64
	require.NoError(t, f.conn.Raw(`SELECT stock_quantity FROM products WHERE id = ?`, productID).Scan(&qty).Error)
	return qty
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&domain.Order{}).Count(&count).Error)
	return count
}

func TestStockScenario(t *testing.T) {
	f := newFixture(t)
	ctx, buyerID := f.buyer()
	shake := f.product(t, "Protein shake", 4500, 5)

	_, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: shake, Quantity: 6}}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.EqualValues(t, 5, f.stock(t, shake))
	assert.Zero(t, f.countOrders(t))

	order, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: shake, Quantity: 5}}})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPendingApproval), order.Status)
	assert.Equal(t, buyerID.String(), order.BuyerID)
	assert.EqualValues(t, 22500, order.TotalAmount)
	assert.Contains(t, order.Number, "ORD-")
	assert.Zero(t, f.stock(t, shake))

	cancelled, err := f.svc.CancelOwn(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusCancelled), cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.EqualValues(t, 5, f.stock(t, shake))
}

func TestCreateIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.buyer()
	towel := f.product(t, "Towel", 1500, 10)
	bottle := f.product(t, "Bottle", 900, 1)

	_, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{
		{ProductID: towel, Quantity: 3},
		{ProductID: bottle, Quantity: 2},
	}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.EqualValues(t, 10, f.stock(t, towel))
	assert.EqualValues(t, 1, f.stock(t, bottle))
	assert.Zero(t, f.countOrders(t))

	var items int64
	require.NoError(t, f.conn.Model(&domain.OrderItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestCreateValidationAndCoalescing(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.buyer()
	towel := f.product(t, "Towel", 1500, 10)

	order, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{
		{ProductID: towel, Quantity: 2},
		{ProductID: towel, Quantity: 3},
	}})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.EqualValues(t, 5, order.Items[0].Quantity)
	assert.EqualValues(t, 1500, order.Items[0].UnitPrice)
	assert.EqualValues(t, 7500, order.Items[0].LineTotal)
	assert.Equal(t, "Towel", order.Items[0].ProductName)
	assert.EqualValues(t, 5, f.stock(t, towel))

	cases := []struct {
		name  string
		items []domain.ItemRequest
		err   error
	}{
		{"empty", nil, domain.ErrEmptyOrder},
		{"zero quantity", []domain.ItemRequest{{ProductID: towel, Quantity: 0}}, domain.ErrInvalidQuantity},
		{"negative quantity", []domain.ItemRequest{{ProductID: towel, Quantity: -2}}, domain.ErrInvalidQuantity},
		{"malformed product", []domain.ItemRequest{{ProductID: "towel", Quantity: 1}}, domain.ErrInvalidProduct},
		{"unknown product", []domain.ItemRequest{{ProductID: f.node.Generate().String(), Quantity: 1}}, domain.ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, domain.CreateRequest{Items: tc.items})
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestCreateRejectsTotalsBeyondInt64(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.buyer()
	// rows written before the product price cap existed
	bullion := f.product(t, "Gold bar", 1_000_000_000_000_000, 10000)
	plate := f.product(t, "Plate", 900_000_000_000_000, 10000)
	bell := f.product(t, "Kettlebell", 900_000_000_000_000, 10000)

	_, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: bullion, Quantity: 10000}}})
	assert.ErrorIs(t, err, domain.ErrAmountOverflow)

	_, err = f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{
		{ProductID: plate, Quantity: 10000},
		{ProductID: bell, Quantity: 10000},
	}})
	assert.ErrorIs(t, err, domain.ErrAmountOverflow)

	assert.EqualValues(t, 10000, f.stock(t, bullion))
	assert.EqualValues(t, 10000, f.stock(t, plate))
	assert.EqualValues(t, 10000, f.stock(t, bell))
	assert.Zero(t, f.countOrders(t))

	order, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: plate, Quantity: 10000}}})
	require.NoError(t, err)
	assert.EqualValues(t, int64(9_000_000_000_000_000_000), order.TotalAmount)
}

func TestAmountArithmetic(t *testing.T) {
	total, ok := multiplyAmount(4500, 5)
	assert.True(t, ok)
	assert.EqualValues(t, 22500, total)

	_, ok = multiplyAmount(math.MaxInt64/2+1, 2)
	assert.False(t, ok)
	_, ok = addAmount(math.MaxInt64-10, 11)
	assert.False(t, ok)

	sum, ok := addAmount(math.MaxInt64-10, 10)
	assert.True(t, ok)
	assert.EqualValues(t, int64(math.MaxInt64), sum)
}

func TestInactiveProductCannotBeOrdered(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.buyer()
	towel := f.product(t, "Towel", 1500, 10)
	require.NoError(t, f.conn.Exec(`UPDATE products SET is_active = ? WHERE id = ?`, false, towel).Error)

	_, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: towel, Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.EqualValues(t, 10, f.stock(t, towel))
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.buyer()
	towel := f.product(t, "Towel", 1500, 10)

	order, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: towel, Quantity: 4}}})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "completed"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "pending orders cannot skip preparation")

	_, err = f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "shipped"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	prepared, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "prepared"})
	require.NoError(t, err)
	assert.Equal(t, "prepared", prepared.Status)
	require.NotNil(t, prepared.PreparedAt)

	_, err = f.svc.CancelOwn(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "buyers only cancel pending orders")

	completed, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "completed"})
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)

	_, err = f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "cancelled"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "completed is terminal")
	assert.EqualValues(t, 6, f.stock(t, towel))
}

func TestStaffCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.buyer()
	towel := f.product(t, "Towel", 1500, 10)
	bottle := f.product(t, "Bottle", 900, 4)

	order, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{
		{ProductID: towel, Quantity: 2},
		{ProductID: bottle, Quantity: 4},
	}})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "prepared"})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "cancelled"})
	require.NoError(t, err)
	assert.EqualValues(t, 10, f.stock(t, towel))
	assert.EqualValues(t, 4, f.stock(t, bottle))

	_, err = f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: order.ID, Status: "cancelled"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.EqualValues(t, 10, f.stock(t, towel), "stock is restored once")
}

func TestCancelOwnRequiresBuyer(t *testing.T) {
	f := newFixture(t)
	buyerCtx, _ := f.buyer()
	otherCtx, _ := f.buyer()
	towel := f.product(t, "Towel", 1500, 10)

	order, err := f.svc.Create(buyerCtx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: towel, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.svc.CancelOwn(otherCtx, order.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.EqualValues(t, 9, f.stock(t, towel))

	mine, err := f.svc.ListMine(otherCtx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, mine.Orders)

	all, err := f.svc.List(otherCtx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 1)
}

func TestListPagesByCursor(t *testing.T) {
	f := newFixture(t)
	buyerCtx, _ := f.buyer()
	otherCtx, _ := f.buyer()
	towel := f.product(t, "Towel", 1500, 20)

	// The fixture clock is frozen, so every order shares created_at and
	// pages are cut on the id.
	var mine []string
	for i := 0; i < 5; i++ {
		o, err := f.svc.Create(buyerCtx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: towel, Quantity: 1}}})
		require.NoError(t, err)
		mine = append(mine, o.ID)
		_, err = f.svc.Create(otherCtx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: towel, Quantity: 1}}})
		require.NoError(t, err)
	}

	first, err := f.svc.ListMine(buyerCtx, domain.ListRequest{PageSize: 3})
	require.NoError(t, err)
	require.Len(t, first.Orders, 3)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := f.svc.ListMine(buyerCtx, domain.ListRequest{PageSize: 3, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Orders, 2)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextPageToken)

	var got []string
	for _, o := range append(first.Orders, second.Orders...) {
		got = append(got, o.ID)
	}
	assert.Equal(t, []string{mine[4], mine[3], mine[2], mine[1], mine[0]}, got)

	all, err := f.svc.List(buyerCtx, domain.ListRequest{PageSize: 6})
	require.NoError(t, err)
	require.Len(t, all.Orders, 6)
	rest, err := f.svc.List(buyerCtx, domain.ListRequest{PageSize: 6, PageToken: all.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, rest.Orders, 4)
	assert.False(t, rest.HasMore)

	_, err = f.svc.List(buyerCtx, domain.ListRequest{PageToken: "garbage"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
	_, err = f.svc.ListMine(buyerCtx, domain.ListRequest{PageToken: "garbage"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

func TestOrdersAreGymScoped(t *testing.T) {
	f := newFixture(t)
	ctx, _ := f.buyer()
	towel := f.product(t, "Towel", 1500, 10)
	order, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: towel, Quantity: 1}}})
	require.NoError(t, err)

	elsewhere := gymcontext.WithUserID(
		gymcontext.WithGymID(context.Background(), f.node.Generate().Int64()),
		f.node.Generate().Int64(),
	)
	_, err = f.svc.Get(elsewhere, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.UpdateStatus(elsewhere, domain.UpdateStatusRequest{ID: order.ID, Status: "prepared"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Create(elsewhere, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: towel, Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	got, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	shake := f.product(t, "Protein shake", 4500, 3)

	const buyers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		placed  int
		refused int
	)
	for i := 0; i < buyers; i++ {
		ctx, _ := f.buyer()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, domain.CreateRequest{Items: []domain.ItemRequest{{ProductID: shake, Quantity: 1}}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.Is(err, domain.ErrInsufficientStock):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, placed)
	assert.Equal(t, buyers-3, refused)
	assert.Zero(t, f.stock(t, shake))
	assert.EqualValues(t, 3, f.countOrders(t))
}
