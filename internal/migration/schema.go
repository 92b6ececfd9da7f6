package migration

import (
	"fmt"

	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	gymdomain "github.com/smallbiznis/gymcore/internal/gym/domain"
	orderdomain "github.com/smallbiznis/gymcore/internal/order/domain"
	productdomain "github.com/smallbiznis/gymcore/internal/product/domain"
	categorydomain "github.com/smallbiznis/gymcore/internal/productcategory/domain"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	matchdomain "github.com/smallbiznis/gymcore/internal/trainermatch/domain"
	"gorm.io/gorm"
)

const currentPairIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_trainer_matches_current_pair
	ON trainer_matches (trainer_id, student_id) WHERE status <> 'ended'`

// Models lists every table owned by the service.
func Models() []any {
	return []any{
		&gymdomain.Gym{},
		&roledomain.Role{},
		&authdomain.User{},
		&authdomain.Session{},
		&matchdomain.TrainerMatch{},
		&categorydomain.ProductCategory{},
		&productdomain.Product{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&auditdomain.AuditLog{},
	}
}

// ApplySchema builds the schema from the gorm models for dialects without
// SQL migrations (sqlite, mysql). Postgres goes through RunMigrations.
func ApplySchema(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// mysql has no partial indexes; the in-transaction pair check and the
	// optional pair lock are the only guards there.
	if conn.Dialector.Name() == "mysql" {
		return nil
	}
	if err := conn.Exec(currentPairIndex).Error; err != nil {
		return fmt.Errorf("create current pair index: %w", err)
	}
	return nil
}
