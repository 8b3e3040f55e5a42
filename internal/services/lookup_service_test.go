package services

import (
	"context"
	"testing"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/storage"
	"github.com/Arnav10090/Customer-web-portal/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupVehicleAutofillAndCache(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	mr, client := newMiniRedis(t)

	cache := NewLookupCache(client, 5*time.Minute, true)
	linker := NewDocumentLinker(db, files, cache)
	issuer := NewGatePassIssuer(db, files, NewAuditService(db), &fakeEmail{}, &fakeSMS{}, cache, 0)
	lookup := NewLookupService(db, cache, linker)
	ctx := context.Background()

	_, err = lookup.LookupVehicle(ctx, 1, "MH12AB1234")
	assert.ErrorIs(t, err, apperrors.ErrReferenceNotFound)

	_, err = issuer.Issue(ctx, IssueRequest{
		CustomerID:    1,
		CustomerEmail: "customer@example.com",
		VehiclePlate:  "MH12AB1234",
		Driver:        IdentityInput{Name: "Ramesh", Phone: "9876543210", NationalID: "123456789012"},
		PONumber:      "PO-1",
	})
	require.NoError(t, err)
	issuer.Wait()

	_, err = linker.Link(ctx, LinkRequest{
		DocumentType: "driver_license",
		FileName:     "dl.png",
		ContentType:  "image/png",
		Data:         []byte("png"),
		OwnerID:      1,
		OwnerEmail:   "customer@example.com",
		Phone:        "9876543210",
	})
	require.NoError(t, err)

	resp, err := lookup.LookupVehicle(ctx, 1, " mh12ab1234 ")
	require.NoError(t, err)
	assert.Equal(t, "MH12AB1234", resp.Vehicle.RegistrationNo)
	require.NotNil(t, resp.Driver)
	assert.Equal(t, "Ramesh", resp.Driver.Name)
	assert.Nil(t, resp.Helper)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "driver_license", resp.Documents[0].Type)
	assert.True(t, mr.Exists(cache.VehicleLookupKey(1, "MH12AB1234")))

	// Другой клиент не видит водителя и документы первого
	other, err := lookup.LookupVehicle(ctx, 2, "MH12AB1234")
	require.NoError(t, err)
	assert.Nil(t, other.Driver)
	assert.Empty(t, other.Documents)

	// Новая заявка сбрасывает кэш клиента
	_, err = issuer.Issue(ctx, IssueRequest{
		CustomerID:    1,
		CustomerEmail: "customer@example.com",
		VehiclePlate:  "MH12AB1234",
		Driver:        IdentityInput{Name: "Ramesh", Phone: "9876543210"},
		PONumber:      "PO-1",
	})
	require.NoError(t, err)
	issuer.Wait()
	assert.False(t, mr.Exists(cache.VehicleLookupKey(1, "MH12AB1234")))
}

func TestLookupRefreshedAfterDocumentChanges(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	mr, client := newMiniRedis(t)

	cache := NewLookupCache(client, 5*time.Minute, true)
	linker := NewDocumentLinker(db, files, cache)
	lookup := NewLookupService(db, cache, linker)
	ctx := context.Background()
	key := cache.VehicleLookupKey(1, "MH12AB1234")

	registration := func(data string) LinkRequest {
		return LinkRequest{
			DocumentType: "vehicle_registration",
			FileName:     "rc.pdf",
			ContentType:  "application/pdf",
			Data:         []byte(data),
			OwnerID:      1,
			OwnerEmail:   "customer@example.com",
			VehiclePlate: "MH12AB1234",
		}
	}

	first, err := linker.Link(ctx, registration("v1"))
	require.NoError(t, err)
	resp, err := lookup.LookupVehicle(ctx, 1, "MH12AB1234")
	require.NoError(t, err)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, first.Document.ID, resp.Documents[0].ID)
	require.True(t, mr.Exists(key))

	// Замена документа
	second, err := linker.Link(ctx, registration("v2"))
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	resp, err = lookup.LookupVehicle(ctx, 1, "MH12AB1234")
	require.NoError(t, err)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, second.Document.ID, resp.Documents[0].ID)
	_, rc, err := linker.Open(ctx, resp.Documents[0].ID, 1)
	require.NoError(t, err)
	rc.Close()

	// Мягкое удаление
	require.True(t, mr.Exists(key))
	require.NoError(t, linker.Remove(ctx, second.Document.ID, 1, false))
	assert.False(t, mr.Exists(key))
	resp, err = lookup.LookupVehicle(ctx, 1, "MH12AB1234")
	require.NoError(t, err)
	assert.Empty(t, resp.Documents)

	// Полное удаление
	require.True(t, mr.Exists(key))
	require.NoError(t, linker.Remove(ctx, first.Document.ID, 1, true))
	assert.False(t, mr.Exists(key))
}

func TestDeleteVehicleDropsLookupsOfAllCustomers(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	mr, client := newMiniRedis(t)

	cache := NewLookupCache(client, 5*time.Minute, true)
	lookup := NewLookupService(db, cache, NewDocumentLinker(db, files, cache))
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Vehicle{RegistrationNo: "KA01AA0001"}).Error)
	for _, customer := range []uint{1, 2} {
		_, err := lookup.LookupVehicle(ctx, customer, "KA01AA0001")
		require.NoError(t, err)
		require.True(t, mr.Exists(cache.VehicleLookupKey(customer, "KA01AA0001")))
	}
	require.NoError(t, cache.Set(ctx, cache.VehicleLookupKey(1, "OTHER1"), map[string]string{}))

	require.NoError(t, lookup.DeleteVehicle(ctx, "ka01aa0001"))
	assert.False(t, mr.Exists(cache.VehicleLookupKey(1, "KA01AA0001")))
	assert.False(t, mr.Exists(cache.VehicleLookupKey(2, "KA01AA0001")))
	assert.True(t, mr.Exists(cache.VehicleLookupKey(1, "OTHER1")))

	_, err = lookup.LookupVehicle(ctx, 1, "KA01AA0001")
	assert.ErrorIs(t, err, apperrors.ErrReferenceNotFound)
}

func TestLookupCacheDisabledWithoutClient(t *testing.T) {
	cache := NewLookupCache(nil, time.Minute, true)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", map[string]string{"a": "b"}))
	var out map[string]string
	found, err := cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Invalidate(ctx, "k"))
	assert.NoError(t, cache.InvalidateMatching(ctx, cache.CustomerLookupPattern(1)))
}

func TestDeleteVehicleAndIdentityRefusedWhenUsed(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	issuer := NewGatePassIssuer(db, files, NewAuditService(db), nil, nil, nil, 0)
	lookup := NewLookupService(db, NewLookupCache(nil, 0, false), NewDocumentLinker(db, files, nil))
	ctx := context.Background()

	sub, err := issuer.Issue(ctx, IssueRequest{
		CustomerID:    1,
		CustomerEmail: "customer@example.com",
		VehiclePlate:  "MH12AB1234",
		Driver:        IdentityInput{Name: "Ramesh", Phone: "9876543210", NationalID: "123456789012"},
		PONumber:      "PO-1",
	})
	require.NoError(t, err)
	issuer.Wait()

	assert.ErrorIs(t, lookup.DeleteVehicle(ctx, "mh12ab1234"), apperrors.ErrValidation)
	_, err = lookup.DeleteIdentity(ctx, sub.DriverID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	crew, err := lookup.IdentitiesByVehicle(ctx, sub.VehicleID)
	require.NoError(t, err)
	require.Len(t, crew.Drivers, 1)
	assert.Empty(t, crew.Helpers)

	require.NoError(t, db.Create(&models.Vehicle{RegistrationNo: "UNUSED1"}).Error)
	assert.NoError(t, lookup.DeleteVehicle(ctx, "unused1"))
	assert.ErrorIs(t, lookup.DeleteVehicle(ctx, "unused1"), apperrors.ErrReferenceNotFound)

	vehicles, err := lookup.ListVehicles(ctx, 1)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)

	pos, err := lookup.ListPurchaseOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "PO-1", pos[0].ID)
}
