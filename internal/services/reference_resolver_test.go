package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func resolveVehicle(t *testing.T, db *gorm.DB, plate string, owner *uint) (*models.Vehicle, bool, error) {
	t.Helper()
	var vehicle *models.Vehicle
	var created bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		vehicle, created, err = NewReferenceResolver().ResolveVehicle(context.Background(), tx, plate, owner)
		return err
	})
	return vehicle, created, err
}

func resolvePO(db *gorm.DB, in POInput) (*models.PurchaseOrder, bool, error) {
	var po *models.PurchaseOrder
	var created bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		po, created, err = NewReferenceResolver().ResolvePO(context.Background(), tx, in)
		return err
	})
	return po, created, err
}

func TestPlateNormalizationResolvesSameVehicle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	first, created, err := resolveVehicle(t, db, " mh12ab1234 ", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "MH12AB1234", first.RegistrationNo)

	second, created, err := resolveVehicle(t, db, "MH12AB1234", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, testutil.Count(t, db, &models.Vehicle{}))
}

func TestInvalidPlateRejected(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	for _, plate := range []string{"", "   ", "MH12#1234", "мх12"} {
		_, _, err := resolveVehicle(t, db, plate, nil)
		assert.ErrorIs(t, err, apperrors.ErrValidation, plate)
	}
	assert.EqualValues(t, 0, testutil.Count(t, db, &models.Vehicle{}))
}

func TestVehicleOwnerBackfilledButNotReassigned(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ownerA, ownerB := uint(1), uint(2)

	_, _, err := resolveVehicle(t, db, "KA01AA0001", nil)
	require.NoError(t, err)

	v, _, err := resolveVehicle(t, db, "ka01aa0001", &ownerA)
	require.NoError(t, err)
	require.NotNil(t, v.OwnerCustomerID)
	assert.Equal(t, ownerA, *v.OwnerCustomerID)

	// ТС может использоваться несколькими клиентами
	v, _, err = resolveVehicle(t, db, "KA01AA0001", &ownerB)
	require.NoError(t, err)
	require.NotNil(t, v.OwnerCustomerID)
	assert.Equal(t, ownerA, *v.OwnerCustomerID)
}

func TestResolvePOCreatesAndReturnsExisting(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	po, created, err := resolvePO(db, POInput{Number: " po-100 ", OwnerID: 7})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "PO-100", po.ID)

	again, created, err := resolvePO(db, POInput{Number: "PO-100", OwnerID: 7})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, po.ID, again.ID)
}

func TestResolvePOOtherOwnerConflicts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	_, _, err := resolvePO(db, POInput{Number: "PO-1", OwnerID: 1})
	require.NoError(t, err)

	_, _, err = resolvePO(db, POInput{Number: "po-1", OwnerID: 2})
	assert.ErrorIs(t, err, apperrors.ErrOwnershipConflict)

	var po models.PurchaseOrder
	require.NoError(t, db.First(&po, "id = ?", "PO-1").Error)
	require.NotNil(t, po.CustomerUserID)
	assert.EqualValues(t, 1, *po.CustomerUserID)
}

func TestResolvePOBackfillsMissingOwner(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, db.Create(&models.PurchaseOrder{ID: "PO-LEGACY"}).Error)

	po, created, err := resolvePO(db, POInput{Number: "po-legacy", OwnerID: 3})
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, po.CustomerUserID)
	assert.EqualValues(t, 3, *po.CustomerUserID)
}

func TestResolvePOUnknownZone(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	zone := uint(42)

	_, _, err := resolvePO(db, POInput{Number: "PO-2", OwnerID: 1, ZoneID: &zone})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.EqualValues(t, 0, testutil.Count(t, db, &models.PurchaseOrder{}))
}

func TestConcurrentResolvePODifferentOwners(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	var succeeded, conflicted int32
	var wg sync.WaitGroup
	for _, owner := range []uint{1, 2} {
		wg.Add(1)
		go func(owner uint) {
			defer wg.Done()
			_, _, err := resolvePO(db, POInput{Number: "PO-RACE", OwnerID: owner})
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case apperrors.KindOf(err) == apperrors.KindOwnershipConflict:
				atomic.AddInt32(&conflicted, 1)
			default:
				t.Errorf("неожиданная ошибка: %v", err)
			}
		}(owner)
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded)
	assert.EqualValues(t, 1, conflicted)
	assert.EqualValues(t, 1, testutil.Count(t, db, &models.PurchaseOrder{}))
}
