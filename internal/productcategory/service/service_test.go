package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	"github.com/smallbiznis/gymcore/internal/productcategory/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/smallbiznis/gymcore/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.ProductCategory{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
		Store: repository.ProvideStore[domain.ProductCategory](conn),
	}), node
}

func TestCategoryNamesAreUniquePerGym(t *testing.T) {
	svc, node := newService(t)
	gymA := gymcontext.WithGymID(context.Background(), node.Generate().Int64())
	gymB := gymcontext.WithGymID(context.Background(), node.Generate().Int64())

	created, err := svc.Create(gymA, domain.CreateRequest{Name: " Supplements "})
	require.NoError(t, err)
	assert.Equal(t, "Supplements", created.Name)

	_, err = svc.Create(gymA, domain.CreateRequest{Name: "Supplements"})
	assert.ErrorIs(t, err, domain.ErrNameTaken)

	_, err = svc.Create(gymB, domain.CreateRequest{Name: "Supplements"})
	assert.NoError(t, err)

	_, err = svc.Create(gymA, domain.CreateRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCategoryUpdateAndScoping(t *testing.T) {
	svc, node := newService(t)
	gymA := gymcontext.WithGymID(context.Background(), node.Generate().Int64())
	gymB := gymcontext.WithGymID(context.Background(), node.Generate().Int64())

	apparel, err := svc.Create(gymA, domain.CreateRequest{Name: "Apparel"})
	require.NoError(t, err)
	_, err = svc.Create(gymA, domain.CreateRequest{Name: "Drinks"})
	require.NoError(t, err)

	rename := "Drinks"
	_, err = svc.Update(gymA, domain.UpdateRequest{ID: apparel.ID, Name: &rename})
	assert.ErrorIs(t, err, domain.ErrNameTaken)

	rename = "Clothing"
	desc := "Shirts and shorts"
	updated, err := svc.Update(gymA, domain.UpdateRequest{ID: apparel.ID, Name: &rename, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Clothing", updated.Name)

	got, err := svc.Get(gymA, apparel.ID)
	require.NoError(t, err)
	assert.Equal(t, "Clothing", got.Name)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)

	_, err = svc.Get(gymB, apparel.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(gymA, domain.ListRequest{SortBy: "name"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Clothing", list[0].Name)
	assert.Equal(t, "Drinks", list[1].Name)

	_, err = svc.Get(gymA, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
