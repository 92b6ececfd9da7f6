package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/authorization"
	gymdomain "github.com/smallbiznis/gymcore/internal/gym/domain"
	"github.com/smallbiznis/gymcore/internal/observability/logger"
	orderdomain "github.com/smallbiznis/gymcore/internal/order/domain"
	"github.com/smallbiznis/gymcore/internal/permission"
	productdomain "github.com/smallbiznis/gymcore/internal/product/domain"
	categorydomain "github.com/smallbiznis/gymcore/internal/productcategory/domain"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	matchdomain "github.com/smallbiznis/gymcore/internal/trainermatch/domain"
	userdomain "github.com/smallbiznis/gymcore/internal/user/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("request failed",
				zap.String("route", c.FullPath()),
				zap.Error(lastErr.Err),
			)
		}
		if payload.Type == "busy" {
			c.Header("Retry-After", "1")
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog reports the public type and code of err for request
// logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	if err == nil {
		return payload.Type, ""
	}
	return payload.Type, err.Error()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isInvalidOperationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_operation",
			Message: invalidOperationMessage(err),
		}
	case errors.Is(err, orderdomain.ErrInsufficientStock):
		return http.StatusBadRequest, errorPayload{
			Type:    "insufficient_stock",
			Message: "not enough stock to fulfil the order",
		}
	case errors.Is(err, matchdomain.ErrInvalidTransition),
		errors.Is(err, orderdomain.ErrInvalidTransition):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_transition",
			Message: "status transition not allowed",
		}
	case isUnauthenticatedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, orderdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, matchdomain.ErrBusy):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "busy",
			Message: "trainer match is being created by another request",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isPermissionValidationError(err),
		isGymValidationError(err),
		isRoleValidationError(err),
		isUserValidationError(err),
		isTrainerMatchValidationError(err),
		isProductCategoryValidationError(err),
		isProductValidationError(err),
		isOrderValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isPermissionValidationError(err error) bool {
	return errors.Is(err, permission.ErrMalformed) ||
		errors.Is(err, permission.ErrUnknownResource) ||
		errors.Is(err, permission.ErrInvalidFlag) ||
		errors.Is(err, authdomain.ErrInvalidEmail) ||
		errors.Is(err, authdomain.ErrWeakPassword)
}

func isAuditValidationError(err error) bool {
	return errors.Is(err, auditdomain.ErrInvalidGym) ||
		errors.Is(err, auditdomain.ErrInvalidPageToken) ||
		errors.Is(err, auditdomain.ErrInvalidTimeRange) ||
		errors.Is(err, auditdomain.ErrInvalidAction)
}

func isInvalidOperationError(err error) bool {
	return errors.Is(err, roledomain.ErrSystemRoleRename) ||
		errors.Is(err, roledomain.ErrSystemRoleDelete) ||
		errors.Is(err, roledomain.ErrRoleInUse) ||
		errors.Is(err, userdomain.ErrSelfDeactivate)
}

func invalidOperationMessage(err error) string {
	switch {
	case errors.Is(err, roledomain.ErrSystemRoleRename):
		return "system roles cannot be renamed"
	case errors.Is(err, roledomain.ErrSystemRoleDelete):
		return "system roles cannot be deleted"
	case errors.Is(err, roledomain.ErrRoleInUse):
		return "role is still assigned to users"
	case errors.Is(err, userdomain.ErrSelfDeactivate):
		return "users cannot disable themselves"
	default:
		return "operation not allowed"
	}
}

func isUnauthenticatedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrUserDisabled),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, roledomain.ErrNameTaken),
		errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, gymdomain.ErrSlugTaken),
		errors.Is(err, matchdomain.ErrConflict),
		errors.Is(err, categorydomain.ErrNameTaken):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, roledomain.ErrNameTaken):
		return "a role with this name already exists"
	case errors.Is(err, userdomain.ErrEmailTaken), errors.Is(err, authdomain.ErrUserExists):
		return "email already registered"
	case errors.Is(err, gymdomain.ErrSlugTaken):
		return "slug already in use"
	case errors.Is(err, matchdomain.ErrConflict):
		return "trainer and student already have a current match"
	case errors.Is(err, categorydomain.ErrNameTaken):
		return "a category with this name already exists"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gymdomain.ErrNotFound),
		errors.Is(err, roledomain.ErrNotFound),
		errors.Is(err, roledomain.ErrTemplateNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, matchdomain.ErrNotFound),
		errors.Is(err, categorydomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// validationErrorCode returns the sentinel behind err. Wrapped permission
// errors report the sentinel, not the wrapping text.
func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, permission.ErrUnknownResource):
		return permission.ErrUnknownResource.Error()
	case errors.Is(err, permission.ErrInvalidFlag):
		return permission.ErrInvalidFlag.Error()
	case errors.Is(err, permission.ErrMalformed), errors.Is(err, roledomain.ErrInvalidPermissions):
		return roledomain.ErrInvalidPermissions.Error()
	}
	code := err.Error()
	if idx := strings.Index(code, ":"); idx > 0 {
		code = code[:idx]
	}
	return code
}

var validationFields = map[string]string{
	"invalid_request":         "request",
	"invalid_permission_flag": "permissions",
	"unknown_resource":        "permissions",
	"invalid_display_name":    "display_name",
	"invalid_stock_quantity":  "stock_quantity",
	"trainer_is_student":      "student_id",
	"role_mismatch":           "role",
	"weak_password":           "password",
	"empty_order":             "items",
	"amount_overflow":         "items",
	"product_not_found":       "product_id",
	"invalid_product":         "product_id",
	"invalid_trainer":         "trainer_id",
	"invalid_student":         "student_id",
	"invalid_category":        "category_id",
	"invalid_role":            "role_id",
	"invalid_page_token":      "page_token",
}

func validationErrorField(code string) string {
	if field, ok := validationFields[code]; ok {
		return field
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

var validationMessages = map[string]string{
	"invalid_request":    "invalid request",
	"role_mismatch":      "user does not hold the required role",
	"trainer_is_student": "trainer and student must be different users",
	"empty_order":        "order must contain at least one item",
	"product_not_found":  "product does not exist or is inactive",
	"amount_overflow":    "order total is too large",
	"weak_password":      "password must be at least 8 characters",
}

func validationErrorMessage(code string) string {
	if msg, ok := validationMessages[code]; ok {
		return msg
	}
	return "invalid value"
}
