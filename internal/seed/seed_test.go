package seed

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	capacitydomain "github.com/smallbiznis/bookline/internal/capacity/domain"
	tenantdomain "github.com/smallbiznis/bookline/internal/tenant/domain"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&capacitydomain.Slot{}, &tenantdomain.PhoneBinding{}))
	return db
}

func TestEnsureDemoTenant(t *testing.T) {
	db := setupSeedDB(t)

	require.NoError(t, EnsureDemoTenant(db))

	var slots int64
	require.NoError(t, db.Model(&capacitydomain.Slot{}).Count(&slots).Error)
	require.EqualValues(t, demoSlots, slots)

	var binding tenantdomain.PhoneBinding
	require.NoError(t, db.Where("phone = ?", demoPhone).First(&binding).Error)
	require.Equal(t, demoTenantID, binding.TenantID)
}

func TestEnsureDemoTenantIsIdempotent(t *testing.T) {
	db := setupSeedDB(t)

	require.NoError(t, EnsureDemoTenant(db))
	require.NoError(t, EnsureDemoTenant(db))

	var slots int64
	require.NoError(t, db.Model(&capacitydomain.Slot{}).Count(&slots).Error)
	require.EqualValues(t, demoSlots, slots)

	var bindings int64
	require.NoError(t, db.Model(&tenantdomain.PhoneBinding{}).Count(&bindings).Error)
	require.EqualValues(t, 1, bindings)
}
