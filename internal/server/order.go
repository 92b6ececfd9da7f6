package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gymcore/internal/authorization"
	orderdomain "github.com/smallbiznis/gymcore/internal/order/domain"
	"github.com/smallbiznis/gymcore/internal/permission"
)

func (s *Server) CreateOrder(c *gin.Context) {
	var req orderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type listOrdersQuery struct {
	BuyerID   string `form:"buyer_id"`
	Status    string `form:"status"`
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// ListOrders returns every order of the gym to callers who may manage
// orders and only the caller's own orders to everyone else.
func (s *Server) ListOrders(c *gin.Context) {
	var query listOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := orderdomain.ListRequest{
		BuyerID:   strings.TrimSpace(query.BuyerID),
		Status:    strings.TrimSpace(query.Status),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	}

	ctx := c.Request.Context()
	grant, _ := authorization.GrantFromContext(ctx)
	var (
		resp orderdomain.ListResponse
		err  error
	)
	if grant.Allows(permission.Orders, permission.ActionUpdate) {
		resp, err = s.orderSvc.List(ctx, req)
	} else {
		resp, err = s.orderSvc.ListMine(ctx, req)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Orders, "page_info": resp.PageInfo})
}

func (s *Server) ListMyOrders(c *gin.Context) {
	var query listOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.ListMine(c.Request.Context(), orderdomain.ListRequest{
		Status:    strings.TrimSpace(query.Status),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Orders, "page_info": resp.PageInfo})
}

// GetOrderByID hides other members' orders from callers who cannot manage
// orders.
func (s *Server) GetOrderByID(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := s.orderSvc.Get(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	grant, _ := authorization.GrantFromContext(ctx)
	if !grant.Allows(permission.Orders, permission.ActionUpdate) {
		identity, ok := identityFromContext(c)
		if !ok || resp.BuyerID != identity.UserID.String() {
			AbortWithError(c, orderdomain.ErrNotFound)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateOrderStatus(c *gin.Context) {
	var req orderdomain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))
	req.Status = strings.TrimSpace(req.Status)

	resp, err := s.orderSvc.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CancelOrder lets a buyer withdraw their own pending order. The route
// already required orders.delete; here the caller must also be the buyer.
func (s *Server) CancelOrder(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))

	current, err := s.orderSvc.Get(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	buyerID, err := snowflake.ParseString(current.BuyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	grant, err := s.authzSvc.AuthorizeOwned(ctx, identity.UserID, gymOf(identity), permission.Orders, permission.ActionDelete, buyerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ctx = authorization.WithGrant(ctx, grant)

	resp, err := s.orderSvc.CancelOwn(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isOrderValidationError(err error) bool {
	switch err {
	case orderdomain.ErrInvalidGym,
		orderdomain.ErrInvalidBuyer,
		orderdomain.ErrInvalidID,
		orderdomain.ErrEmptyOrder,
		orderdomain.ErrInvalidQuantity,
		orderdomain.ErrInvalidProduct,
		orderdomain.ErrProductNotFound,
		orderdomain.ErrAmountOverflow,
		orderdomain.ErrInvalidStatus,
		orderdomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}
