package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cargoledger/backend/internal/domain/identity"
	"github.com/cargoledger/backend/internal/domain/partner"
	"github.com/cargoledger/backend/internal/domain/shared"
	"github.com/cargoledger/backend/internal/infrastructure/persistence/models"
)

// newSQLiteDB opens an in-memory database for round-trip tests that need
// real SQL execution instead of sqlmock expectations.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.SupplierModel{},
		&models.UserModel{},
	))
	return db
}

func TestGormSupplierRepository_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormSupplierRepository(db)
	ctx := context.Background()

	supplier, err := partner.NewSupplier("Canton Traders", "Mr. Wei", "+86 139 0000 0000", "wei@canton.example", "Guangzhou", "")
	require.NoError(t, err)

	t.Run("save then find by id and name", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, supplier))

		byID, err := repo.FindByID(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, "Canton Traders", byID.Name)
		assert.True(t, byID.Active)

		byName, err := repo.FindByName(ctx, "Canton Traders")
		require.NoError(t, err)
		assert.Equal(t, supplier.ID, byName.ID)
	})

	t.Run("active filter narrows the list", func(t *testing.T) {
		inactive, err := partner.NewSupplier("Dormant Trading", "", "", "", "", "")
		require.NoError(t, err)
		inactive.Active = false
		require.NoError(t, repo.Save(ctx, inactive))

		filter := shared.DefaultFilter()
		filter.Filters = map[string]any{"active": true}

		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Canton Traders", found[0].Name)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, supplier.ID))

		_, err := repo.FindByID(ctx, supplier.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, supplier.ID), shared.ErrNotFound)
	})
}

func TestGormUserRepository_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	user, err := identity.NewUser("amira", "Amira S.", "correct-horse", identity.RoleAccountant)
	require.NoError(t, err)

	t.Run("save then find by username", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, user))

		found, err := repo.FindByUsername(ctx, "amira")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, identity.RoleAccountant, found.Role)
		assert.True(t, found.CheckPassword("correct-horse"))
	})

	t.Run("role filter narrows the list", func(t *testing.T) {
		admin, err := identity.NewUser("root", "Root", "super-secret", identity.RoleAdmin)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, admin))

		filter := shared.DefaultFilter()
		filter.Filters = map[string]any{"role": "ADMIN"}

		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "root", found[0].Username)
	})

	t.Run("unknown username returns not found", func(t *testing.T) {
		_, err := repo.FindByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
