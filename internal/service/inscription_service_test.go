package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type mockCourseReader struct{ courses map[int64]models.Course }

func (m *mockCourseReader) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseReader) ExistsByShortCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	for id, c := range m.courses {
		if c.ShortCode == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type mockPersonReader struct{ persons map[int64]models.Person }

func (m *mockPersonReader) FindByID(ctx context.Context, id int64) (*models.Person, error) {
	if p, ok := m.persons[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPersonReader) ExistsByIdentification(ctx context.Context, identification string, excludeID int64) (bool, error) {
	for id, p := range m.persons {
		if p.Identification == identification && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPersonReader) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	for id, p := range m.persons {
		if p.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type mockBillingReader struct{ billings map[int64]models.BillingProfile }

func (m *mockBillingReader) FindByID(ctx context.Context, id int64) (*models.BillingProfile, error) {
	if b, ok := m.billings[id]; ok {
		return &b, nil
	}
	return nil, sql.ErrNoRows
}

type mockVoucherReader struct{ vouchers map[int64]models.Voucher }

func (m *mockVoucherReader) FindByID(ctx context.Context, id int64) (*models.Voucher, error) {
	if v, ok := m.vouchers[id]; ok {
		return &v, nil
	}
	return nil, sql.ErrNoRows
}

type mockDiscountReader struct{ discounts map[int64]models.Discount }

func (m *mockDiscountReader) FindByID(ctx context.Context, id int64) (*models.Discount, error) {
	if d, ok := m.discounts[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

type mockInscriptionRepo struct {
	inscriptions map[int64]models.Inscription
	nextID       int64
	deleted      []int64
	applied      map[int64]models.InscriptionChanges

	// dropBeforeApply removes the row right before ApplyChanges touches it,
	// simulating a delete that lands between the load and the update.
	dropBeforeApply int64
}

func (m *mockInscriptionRepo) List(ctx context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, int, error) {
	var out []models.InscriptionDetail
	for _, i := range m.inscriptions {
		out = append(out, models.InscriptionDetail{Inscription: i, DerivedStatus: i.Status()})
	}
	return out, len(out), nil
}

func (m *mockInscriptionRepo) FindByID(ctx context.Context, id int64) (*models.Inscription, error) {
	if i, ok := m.inscriptions[id]; ok {
		return &i, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockInscriptionRepo) FindDetailByID(ctx context.Context, id int64) (*models.InscriptionDetail, error) {
	if i, ok := m.inscriptions[id]; ok {
		return &models.InscriptionDetail{Inscription: i, DerivedStatus: i.Status()}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockInscriptionRepo) ExistsByCourseAndPerson(ctx context.Context, courseID, personID, excludeID int64) (bool, error) {
	for id, i := range m.inscriptions {
		if i.CourseID == courseID && i.PersonID == personID && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInscriptionRepo) ExistsByVoucher(ctx context.Context, voucherID, excludeID int64) (bool, error) {
	for id, i := range m.inscriptions {
		if i.VoucherID == voucherID && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInscriptionRepo) ExistsForCourse(ctx context.Context, courseID int64) (bool, error) {
	for _, i := range m.inscriptions {
		if i.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInscriptionRepo) Create(ctx context.Context, inscription *models.Inscription) error {
	if m.inscriptions == nil {
		m.inscriptions = make(map[int64]models.Inscription)
	}
	m.nextID++
	inscription.ID = m.nextID
	inscription.Enrolled = false
	inscription.CreatedAt = time.Now().UTC()
	m.inscriptions[inscription.ID] = *inscription
	return nil
}

func (m *mockInscriptionRepo) ApplyChanges(ctx context.Context, current *models.Inscription, changes models.InscriptionChanges) error {
	if m.applied == nil {
		m.applied = make(map[int64]models.InscriptionChanges)
	}
	id := current.ID
	m.applied[id] = changes
	if m.dropBeforeApply == id {
		delete(m.inscriptions, id)
	}
	i, ok := m.inscriptions[id]
	if !ok {
		return sql.ErrNoRows
	}
	if changes.CourseID.Set && changes.CourseID.Valid {
		i.CourseID = changes.CourseID.Value
	}
	if changes.BillingID.Set && changes.BillingID.Valid {
		i.BillingID = changes.BillingID.Value
	}
	if changes.DiscountID.Set {
		i.DiscountID = changes.DiscountID.Ptr()
	}
	if changes.Enrolled.Set && changes.Enrolled.Valid {
		i.Enrolled = changes.Enrolled.Value
	}
	m.inscriptions[id] = i
	return nil
}

func (m *mockInscriptionRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.inscriptions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.inscriptions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockInvoiceLookup struct{ invoices map[int64]models.Invoice }

func (m *mockInvoiceLookup) FindByInscriptionID(ctx context.Context, inscriptionID int64) (*models.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.InscriptionID == inscriptionID {
			return &inv, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockInvoiceLookup) ExistsByInscription(ctx context.Context, inscriptionID int64) (bool, error) {
	_, err := m.FindByInscriptionID(ctx, inscriptionID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (m *mockInvoiceLookup) ExistsByInvoiceNumber(ctx context.Context, number string, excludeID int64) (bool, error) {
	for id, inv := range m.invoices {
		if inv.InvoiceNumber == number && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInvoiceLookup) ExistsByIncomeNumber(ctx context.Context, number string, excludeID int64) (bool, error) {
	for id, inv := range m.invoices {
		if inv.IncomeNumber == number && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type inscriptionFixture struct {
	svc      *InscriptionService
	repo     *mockInscriptionRepo
	invoices *mockInvoiceLookup
	courses  *mockCourseReader
	billings *mockBillingReader
}

func newInscriptionFixture() *inscriptionFixture {
	courses := &mockCourseReader{courses: map[int64]models.Course{
		1: {ID: 1, Name: "Go Basics", ShortCode: "GO-101"},
		2: {ID: 2, Name: "Advanced Go", ShortCode: "GO-201"},
	}}
	persons := &mockPersonReader{persons: map[int64]models.Person{
		10: {ID: 10, FullName: "Ada", Email: "ada@example.com", Identification: "ID-0010"},
	}}
	billings := &mockBillingReader{billings: map[int64]models.BillingProfile{
		20: {ID: 20, PersonID: 10, LegalName: "Ada Ltd"},
		21: {ID: 21, PersonID: 99, LegalName: "Someone Else"},
	}}
	vouchers := &mockVoucherReader{vouchers: map[int64]models.Voucher{
		30: {ID: 30, OriginalFilename: "receipt.pdf"},
		31: {ID: 31, OriginalFilename: "receipt-2.pdf"},
	}}
	discounts := &mockDiscountReader{discounts: map[int64]models.Discount{
		40: {ID: 40, Type: models.DiscountTypeFlat},
	}}

	repo := &mockInscriptionRepo{}
	invoices := &mockInvoiceLookup{}
	refs := NewReferenceValidator(courses, persons, billings, vouchers, discounts)
	guard := NewConflictGuard(repo, invoices, persons, courses)
	audit := NewAuditRecorder(nil, zap.NewNop())
	svc := NewInscriptionService(repo, invoices, refs, guard, audit, nil, zap.NewNop())

	return &inscriptionFixture{svc: svc, repo: repo, invoices: invoices, courses: courses, billings: billings}
}

func TestInscriptionCreateStartsPending(t *testing.T) {
	f := newInscriptionFixture()

	detail, err := f.svc.Create(context.Background(), CreateInscriptionRequest{
		CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30,
	}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, models.InscriptionStatusPending, detail.DerivedStatus)
	assert.False(t, detail.Enrolled)
}

func TestInscriptionCreateMissingReference(t *testing.T) {
	f := newInscriptionFixture()

	_, err := f.svc.Create(context.Background(), CreateInscriptionRequest{
		CourseID: 1, PersonID: 10, BillingID: 999, VoucherID: 30,
	}, Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "billing profile")
	assert.Contains(t, err.Error(), "999")
}

func TestInscriptionCreateDuplicatePair(t *testing.T) {
	f := newInscriptionFixture()

	_, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30}, Actor{})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 31}, Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestInscriptionCreateVoucherReuse(t *testing.T) {
	f := newInscriptionFixture()

	_, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30}, Actor{})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 2, PersonID: 10, BillingID: 20, VoucherID: 30}, Actor{})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	assert.Contains(t, err.Error(), "voucher")
}

func TestInscriptionCreateForeignBillingRejected(t *testing.T) {
	f := newInscriptionFixture()

	_, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 21, VoucherID: 30}, Actor{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestInscriptionEnrollRequiresAdmin(t *testing.T) {
	f := newInscriptionFixture()
	detail, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30}, Actor{})
	require.NoError(t, err)

	changes := models.InscriptionChanges{Enrolled: models.Some(true)}
	_, err = f.svc.Update(context.Background(), detail.ID, changes, Actor{UserID: 2, Role: models.UserRoleStaff})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	updated, err := f.svc.Update(context.Background(), detail.ID, changes, Actor{UserID: 1, Role: models.UserRoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.InscriptionStatusEnrolled, updated.DerivedStatus)
}

func TestInscriptionEnrollIsOneWay(t *testing.T) {
	f := newInscriptionFixture()
	detail, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30}, Actor{})
	require.NoError(t, err)

	admin := Actor{UserID: 1, Role: models.UserRoleAdmin}
	_, err = f.svc.Update(context.Background(), detail.ID, models.InscriptionChanges{Enrolled: models.Some(true)}, admin)
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), detail.ID, models.InscriptionChanges{Enrolled: models.Some(false)}, admin)
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestInscriptionUpdateClearsDiscount(t *testing.T) {
	f := newInscriptionFixture()
	discountID := int64(40)
	detail, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30, DiscountID: &discountID}, Actor{})
	require.NoError(t, err)
	require.NotNil(t, detail.DiscountID)

	updated, err := f.svc.Update(context.Background(), detail.ID, models.InscriptionChanges{DiscountID: models.Null[int64]()}, Actor{Role: models.UserRoleStaff})
	require.NoError(t, err)
	assert.Nil(t, updated.DiscountID)
}

func TestInscriptionUpdateEmptyPayload(t *testing.T) {
	f := newInscriptionFixture()
	_, err := f.svc.Update(context.Background(), 1, models.InscriptionChanges{}, Actor{Role: models.UserRoleAdmin})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestInscriptionDeleteRules(t *testing.T) {
	f := newInscriptionFixture()
	admin := Actor{UserID: 1, Role: models.UserRoleAdmin}

	detail, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30}, Actor{})
	require.NoError(t, err)

	// verified invoice pins the inscription
	f.invoices.invoices = map[int64]models.Invoice{
		1: {ID: 1, InscriptionID: detail.ID, PaymentVerified: true},
	}
	err = f.svc.Delete(context.Background(), detail.ID, admin)
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))

	// enrolled inscriptions are kept even without an invoice
	f.invoices.invoices = nil
	_, err = f.svc.Update(context.Background(), detail.ID, models.InscriptionChanges{Enrolled: models.Some(true)}, admin)
	require.NoError(t, err)
	err = f.svc.Delete(context.Background(), detail.ID, admin)
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
}

func TestInscriptionUpdateConcurrentlyDeleted(t *testing.T) {
	f := newInscriptionFixture()
	detail, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30}, Actor{})
	require.NoError(t, err)

	f.repo.dropBeforeApply = detail.ID
	_, err = f.svc.Update(context.Background(), detail.ID, models.InscriptionChanges{BillingID: models.Some(int64(20))}, Actor{Role: models.UserRoleStaff})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestInscriptionDeletePending(t *testing.T) {
	f := newInscriptionFixture()
	detail, err := f.svc.Create(context.Background(), CreateInscriptionRequest{CourseID: 1, PersonID: 10, BillingID: 20, VoucherID: 30}, Actor{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), detail.ID, Actor{Role: models.UserRoleStaff}))
	assert.Contains(t, f.repo.deleted, detail.ID)
}
