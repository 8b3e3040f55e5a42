package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Arnav10090/Customer-web-portal/internal/apperrors"
	"github.com/Arnav10090/Customer-web-portal/internal/models"
	"github.com/Arnav10090/Customer-web-portal/internal/storage"
	"github.com/Arnav10090/Customer-web-portal/internal/testutil"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type fakeEmail struct {
	mu   sync.Mutex
	err  error
	sent []GatePassEmail
}

func (f *fakeEmail) Send(_ context.Context, email GatePassEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, email)
	return f.err
}

type fakeSMS struct {
	mu   sync.Mutex
	err  error
	jobs []SMSJob
}

func (f *fakeSMS) Enqueue(_ context.Context, job SMSJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.err
}

type GatePassIssuerSuite struct {
	suite.Suite
	db     *gorm.DB
	files  *storage.FileStore
	email  *fakeEmail
	sms    *fakeSMS
	issuer *GatePassIssuer
}

func (s *GatePassIssuerSuite) SetupTest() {
	s.db = testutil.NewSQLiteDB(s.T())
	files, err := storage.NewFileStore(s.T().TempDir())
	s.Require().NoError(err)
	s.files = files
	s.email = &fakeEmail{}
	s.sms = &fakeSMS{}
	s.issuer = NewGatePassIssuer(s.db, s.files, NewAuditService(s.db), s.email, s.sms, nil, 0)
}

func (s *GatePassIssuerSuite) request() IssueRequest {
	return IssueRequest{
		CustomerID:    1,
		CustomerEmail: "customer@example.com",
		CustomerPhone: "+919999999999",
		VehiclePlate:  " mh12ab1234 ",
		Driver: IdentityInput{
			Name:       "Ramesh Kumar",
			Phone:      "9876543210",
			NationalID: "123456789012",
			Language:   "hi",
		},
		Helper: &IdentityInput{
			Name:       "Suresh",
			Phone:      "9876500000",
			NationalID: "210987654321",
		},
		PONumber:  "po-777",
		IPAddress: "127.0.0.1",
	}
}

func (s *GatePassIssuerSuite) counts() map[string]int64 {
	t := s.T()
	return map[string]int64{
		"vehicles":    testutil.Count(t, s.db, &models.Vehicle{}),
		"identities":  testutil.Count(t, s.db, &models.Identity{}),
		"pos":         testutil.Count(t, s.db, &models.PurchaseOrder{}),
		"taggings":    testutil.Count(t, s.db, &models.DriverVehicleTagging{}),
		"po_taggings": testutil.Count(t, s.db, &models.PODriverVehicleTagging{}),
		"submissions": testutil.Count(t, s.db, &models.GateEntrySubmission{}),
	}
}

func (s *GatePassIssuerSuite) TestIssueCreatesFullChain() {
	sub, err := s.issuer.Issue(context.Background(), s.request())
	s.Require().NoError(err)
	s.issuer.Wait()

	s.Equal(map[string]int64{
		"vehicles": 1, "identities": 2, "pos": 1, "taggings": 1, "po_taggings": 1, "submissions": 1,
	}, s.counts())

	s.Equal(models.SubmissionStatusPending, sub.Status)
	s.Equal("MH12AB1234", sub.Vehicle.RegistrationNo)
	s.Equal(models.RoleDriver, sub.Driver.Role)
	s.Require().NotNil(sub.Helper)
	s.Equal(models.RoleHelper, sub.Helper.Role)

	expected, err := PayloadHash(sub.PODriverVehicleTaggingID)
	s.Require().NoError(err)
	s.Require().NotNil(sub.QRPayloadHash)
	s.Equal(expected, *sub.QRPayloadHash)

	var stored models.GateEntrySubmission
	s.Require().NoError(s.db.First(&stored, sub.ID).Error)
	s.Require().NotNil(stored.QRPayloadHash)
	s.Equal(expected, *stored.QRPayloadHash)
	s.Equal(qrCodePath(sub.PODriverVehicleTaggingID), stored.QRCodeImage)
	s.True(s.files.Exists(stored.QRCodeImage))

	var po models.PurchaseOrder
	s.Require().NoError(s.db.First(&po, "id = ?", "PO-777").Error)
	s.Require().NotNil(po.CustomerUserID)
	s.EqualValues(1, *po.CustomerUserID)
}

func (s *GatePassIssuerSuite) TestNotificationsAudited() {
	sub, err := s.issuer.Issue(context.Background(), s.request())
	s.Require().NoError(err)
	s.issuer.Wait()

	s.Require().Len(s.email.sent, 1)
	s.Equal("customer@example.com", s.email.sent[0].To)
	s.Contains(s.email.sent[0].Subject, "MH12AB1234")
	s.Require().Len(s.sms.jobs, 1)
	s.Equal(sub.ID, s.sms.jobs[0].SubmissionID)

	logs, err := NewAuditService(s.db).ListBySubmission(context.Background(), sub.ID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	s.ElementsMatch([]string{models.AuditSubmissionCreated, models.AuditEmailSent, models.AuditSMSQueued}, actions)
}

func (s *GatePassIssuerSuite) TestNotificationFailureDoesNotFailIssue() {
	s.email.err = errors.New("smtp down")
	s.sms.err = errors.New("broker down")

	sub, err := s.issuer.Issue(context.Background(), s.request())
	s.Require().NoError(err)
	s.issuer.Wait()

	var failed int64
	s.Require().NoError(s.db.Model(&models.AuditLog{}).
		Where("submission_id = ? AND action IN ?", sub.ID, []string{models.AuditEmailFailed, models.AuditSMSFailed}).
		Count(&failed).Error)
	s.EqualValues(2, failed)
	s.EqualValues(1, testutil.Count(s.T(), s.db, &models.GateEntrySubmission{}))
}

func (s *GatePassIssuerSuite) TestDriverConflictRollsBackEverything() {
	uid := "555555555555"
	s.Require().NoError(s.db.Create(&models.Identity{
		Name: "Someone Else", Phone: "+919876543210", Role: models.RoleDriver, NationalID: &uid,
	}).Error)
	before := s.counts()

	_, err := s.issuer.Issue(context.Background(), s.request())
	s.ErrorIs(err, apperrors.ErrIdentityConflict)
	s.issuer.Wait()

	s.Equal(before, s.counts())
	s.Empty(s.email.sent)
}

func (s *GatePassIssuerSuite) TestLateFailureRemovesQRFile() {
	// Аудит пишется последним в транзакции: без таблицы падает уже после записи QR
	s.Require().NoError(s.db.Migrator().DropTable(&models.AuditLog{}))
	before := s.counts()

	_, err := s.issuer.Issue(context.Background(), s.request())
	s.Require().Error(err)
	s.issuer.Wait()

	s.Equal(before, s.counts())
	s.False(s.files.Exists(qrCodePath(1)))
}

func (s *GatePassIssuerSuite) TestHelperWithDriverPhoneRejected() {
	req := s.request()
	req.Helper.Phone = req.Driver.Phone

	_, err := s.issuer.Issue(context.Background(), req)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.EqualValues(0, testutil.Count(s.T(), s.db, &models.Vehicle{}))
}

func (s *GatePassIssuerSuite) TestKnownHelperAsDriverConflicts() {
	_, err := s.issuer.Issue(context.Background(), s.request())
	s.Require().NoError(err)
	s.issuer.Wait()

	req := s.request()
	req.Driver = IdentityInput{Name: "Suresh", Phone: "9876500000"}
	req.Helper = nil
	_, err = s.issuer.Issue(context.Background(), req)
	s.ErrorIs(err, apperrors.ErrIdentityConflict)
	s.EqualValues(1, testutil.Count(s.T(), s.db, &models.GateEntrySubmission{}))
}

func (s *GatePassIssuerSuite) TestPOOwnedByAnotherCustomer() {
	other := uint(2)
	s.Require().NoError(s.db.Create(&models.PurchaseOrder{ID: "PO-777", CustomerUserID: &other}).Error)

	_, err := s.issuer.Issue(context.Background(), s.request())
	s.ErrorIs(err, apperrors.ErrOwnershipConflict)
	s.EqualValues(0, testutil.Count(s.T(), s.db, &models.GateEntrySubmission{}))
	s.EqualValues(0, testutil.Count(s.T(), s.db, &models.Vehicle{}))
}

func (s *GatePassIssuerSuite) TestRepeatSubmissionIsNewEvent() {
	first, err := s.issuer.Issue(context.Background(), s.request())
	s.Require().NoError(err)
	second, err := s.issuer.Issue(context.Background(), s.request())
	s.Require().NoError(err)
	s.issuer.Wait()

	s.NotEqual(first.PODriverVehicleTaggingID, second.PODriverVehicleTaggingID)
	s.NotEqual(*first.QRPayloadHash, *second.QRPayloadHash)
	s.Equal(first.DriverID, second.DriverID)
	s.EqualValues(2, testutil.Count(s.T(), s.db, &models.GateEntrySubmission{}))
	s.EqualValues(2, testutil.Count(s.T(), s.db, &models.Identity{}))
}

func TestGatePassIssuerSuite(t *testing.T) {
	suite.Run(t, new(GatePassIssuerSuite))
}
