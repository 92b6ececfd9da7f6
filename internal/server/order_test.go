package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/gymcore/internal/authorization"
	authzmocks "github.com/smallbiznis/gymcore/internal/authorization/mocks"
	orderdomain "github.com/smallbiznis/gymcore/internal/order/domain"
	ordermocks "github.com/smallbiznis/gymcore/internal/order/mocks"
	"github.com/smallbiznis/gymcore/internal/permission"
	"github.com/smallbiznis/gymcore/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	managerPerms = permission.Permissions{
		permission.Orders: {Create: true, Read: true, Update: true, Delete: true},
	}
	buyerPerms = permission.Permissions{
		permission.Orders: {Create: true, Read: true, Delete: true},
	}
)

func newOrderRouter(t *testing.T, perms permission.Permissions) (*gin.Engine, *ordermocks.MockService, *authzmocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	orders := ordermocks.NewMockService(ctrl)
	authz := authzmocks.NewMockService(ctrl)

	s := &Server{orderSvc: orders, authzSvc: authz}
	r := newTestEngine()
	r.Use(withCaller(testUserID, perms))
	r.GET("/orders", s.ListOrders)
	r.GET("/orders/:id", s.GetOrderByID)
	r.POST("/orders", s.CreateOrder)
	r.POST("/orders/:id/cancel", s.CancelOrder)
	return r, orders, authz
}

func TestListOrdersScopesByGrant(t *testing.T) {
	t.Run("manager sees every order", func(t *testing.T) {
		r, orders, _ := newOrderRouter(t, managerPerms)
		orders.EXPECT().List(gomock.Any(), gomock.Any()).Return(orderdomain.ListResponse{Orders: []orderdomain.Response{{ID: "1"}, {ID: "2"}}}, nil)

		w := perform(r, http.MethodGet, "/orders?status=prepared", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("buyer sees own orders", func(t *testing.T) {
		r, orders, _ := newOrderRouter(t, buyerPerms)
		orders.EXPECT().ListMine(gomock.Any(), orderdomain.ListRequest{Status: "pending_approval"}).Return(orderdomain.ListResponse{}, nil)

		w := perform(r, http.MethodGet, "/orders?status=pending_approval", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestListOrdersForwardsPageToken(t *testing.T) {
	r, orders, _ := newOrderRouter(t, managerPerms)
	orders.EXPECT().
		List(gomock.Any(), orderdomain.ListRequest{PageToken: "abc", PageSize: 2}).
		Return(orderdomain.ListResponse{
			PageInfo: pagination.PageInfo{NextPageToken: "def", HasMore: true},
			Orders:   []orderdomain.Response{{ID: "1"}, {ID: "2"}},
		}, nil)
	orders.EXPECT().
		List(gomock.Any(), orderdomain.ListRequest{PageToken: "broken"}).
		Return(orderdomain.ListResponse{}, orderdomain.ErrInvalidPageToken)

	w := perform(r, http.MethodGet, "/orders?page_token=abc&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data     []orderdomain.Response `json:"data"`
		PageInfo pagination.PageInfo    `json:"page_info"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, pagination.PageInfo{NextPageToken: "def", HasMore: true}, body.PageInfo)

	w = perform(r, http.MethodGet, "/orders?page_token=broken", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "page_token", payload.Errors[0].Field)
	assert.Equal(t, "invalid_page_token", payload.Errors[0].Code)
}

func TestGetOrderHidesOtherBuyers(t *testing.T) {
	other := orderdomain.Response{ID: "10", BuyerID: "9999"}

	t.Run("buyer", func(t *testing.T) {
		r, orders, _ := newOrderRouter(t, buyerPerms)
		orders.EXPECT().Get(gomock.Any(), "10").Return(&other, nil)

		w := perform(r, http.MethodGet, "/orders/10", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("manager", func(t *testing.T) {
		r, orders, _ := newOrderRouter(t, managerPerms)
		orders.EXPECT().Get(gomock.Any(), "10").Return(&other, nil)

		w := perform(r, http.MethodGet, "/orders/10", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("own order", func(t *testing.T) {
		r, orders, _ := newOrderRouter(t, buyerPerms)
		mine := orderdomain.Response{ID: "11", BuyerID: testUserID.String()}
		orders.EXPECT().Get(gomock.Any(), "11").Return(&mine, nil)

		w := perform(r, http.MethodGet, "/orders/11", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	r, orders, _ := newOrderRouter(t, buyerPerms)
	orders.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, orderdomain.ErrInsufficientStock)

	w := perform(r, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{{"product_id": "5", "quantity": 6}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "insufficient_stock", decodeError(t, w).Type)
}

func TestCancelOrderRequiresOwnership(t *testing.T) {
	t.Run("not the buyer", func(t *testing.T) {
		r, orders, authz := newOrderRouter(t, buyerPerms)
		orders.EXPECT().Get(gomock.Any(), "20").Return(&orderdomain.Response{ID: "20", BuyerID: "9999"}, nil)
		authz.EXPECT().
			AuthorizeOwned(gomock.Any(), testUserID, testGymID, permission.Orders, permission.ActionDelete, gomock.Any()).
			Return(nil, authorization.ErrForbidden)

		w := perform(r, http.MethodPost, "/orders/20/cancel", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("buyer cancels", func(t *testing.T) {
		r, orders, authz := newOrderRouter(t, buyerPerms)
		orders.EXPECT().Get(gomock.Any(), "21").Return(&orderdomain.Response{ID: "21", BuyerID: testUserID.String()}, nil)
		authz.EXPECT().
			AuthorizeOwned(gomock.Any(), testUserID, testGymID, permission.Orders, permission.ActionDelete, testUserID).
			Return(&authorization.Grant{UserID: testUserID, GymID: testGymID, Permissions: buyerPerms}, nil)
		orders.EXPECT().CancelOwn(gomock.Any(), "21").
			Return(&orderdomain.Response{ID: "21", Status: string(orderdomain.StatusCancelled)}, nil)

		w := perform(r, http.MethodPost, "/orders/21/cancel", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("already processed", func(t *testing.T) {
		r, orders, authz := newOrderRouter(t, buyerPerms)
		orders.EXPECT().Get(gomock.Any(), "22").Return(&orderdomain.Response{ID: "22", BuyerID: testUserID.String()}, nil)
		authz.EXPECT().AuthorizeOwned(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&authorization.Grant{Permissions: buyerPerms}, nil)
		orders.EXPECT().CancelOwn(gomock.Any(), "22").Return(nil, orderdomain.ErrInvalidTransition)

		w := perform(r, http.MethodPost, "/orders/22/cancel", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_transition", decodeError(t, w).Type)
	})
}

func TestCancelOrderRouteChecksPermissionBeforeLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := ordermocks.NewMockService(ctrl)
	authz := authzmocks.NewMockService(ctrl)

	s := &Server{orderSvc: orders, authzSvc: authz}
	r := newTestEngine()
	s.registerOrderRoutes(r.Group("/api", withCaller(testUserID, nil)))

	authz.EXPECT().
		Authorize(gomock.Any(), testUserID, testGymID, permission.Orders, permission.ActionDelete).
		Return(nil, authorization.ErrForbidden).
		Times(3)

	for _, path := range []string{
		"/api/orders/20/cancel",
		"/api/orders/123456789/cancel",
		"/api/orders/not-an-id/cancel",
	} {
		w := perform(r, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.Equal(t, "forbidden", decodeError(t, w).Type, path)
	}
}

func TestCancelOrderRouteReachesOwnershipCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	orders := ordermocks.NewMockService(ctrl)
	authz := authzmocks.NewMockService(ctrl)

	s := &Server{orderSvc: orders, authzSvc: authz}
	r := newTestEngine()
	s.registerOrderRoutes(r.Group("/api", withCaller(testUserID, nil)))

	gomock.InOrder(
		authz.EXPECT().
			Authorize(gomock.Any(), testUserID, testGymID, permission.Orders, permission.ActionDelete).
			Return(&authorization.Grant{UserID: testUserID, GymID: testGymID, Permissions: buyerPerms}, nil),
		orders.EXPECT().Get(gomock.Any(), "20").Return(&orderdomain.Response{ID: "20", BuyerID: "9999"}, nil),
		authz.EXPECT().
			AuthorizeOwned(gomock.Any(), testUserID, testGymID, permission.Orders, permission.ActionDelete, gomock.Any()).
			Return(nil, authorization.ErrForbidden),
	)

	w := perform(r, http.MethodPost, "/api/orders/20/cancel", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
