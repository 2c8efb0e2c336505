package repo

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patientRow(p *Patient) *sqlmock.Rows {
	cols := strings.Split(strings.Join(strings.Fields(patientColumns), ""), ",")
	var hash, height any
	if p.HospitalNumberHash != nil {
		hash = *p.HospitalNumberHash
	}
	if p.HeightCm != nil {
		height = *p.HeightCm
	}
	return sqlmock.NewRows(cols).AddRow(
		p.ID.String(), p.OrganisationID.String(), p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.HospitalNumberEnc, hash, p.Ward, p.Bed, p.Diagnosis, "{"+strings.Join(p.Allergies, ",")+"}",
		height, nil, p.Category, p.Status, nil, nil, p.CreatedAt, p.UpdatedAt,
	)
}

func TestPatientCreateThenGet(t *testing.T) {
	c, mock := newMockClient(t)
	ctx := context.Background()

	orgID := uuid.New()
	height := 172.5
	hash := "abc123"
	in := &Patient{
		OrganisationID:     orgID,
		FirstName:          "Ada",
		LastName:           "Byron",
		DateOfBirth:        time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		Gender:             "female",
		HospitalNumberEnc:  "ciphertext",
		HospitalNumberHash: &hash,
		Ward:               "A1",
		Bed:                "4",
		Diagnosis:          "Sepsis",
		Allergies:          pq.StringArray{"penicillin", "latex"},
		HeightCm:           &height,
		Category:           "adult",
		Status:             "active",
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO patients")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, c.Patients.Create(ctx, in))
	require.NotEqual(t, uuid.Nil, in.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM patients")).
		WithArgs(in.ID, orgID).
		WillReturnRows(patientRow(in))

	got, err := c.Patients.Get(ctx, orgID, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.FirstName, got.FirstName)
	assert.Equal(t, in.LastName, got.LastName)
	assert.True(t, in.DateOfBirth.Equal(got.DateOfBirth))
	assert.Equal(t, in.Allergies, got.Allergies)
	assert.Equal(t, *in.HeightCm, *got.HeightCm)
	assert.Nil(t, got.WeightKg)
	assert.Equal(t, in.Category, got.Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientGetMissing(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM patients")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := c.Patients.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatientSoftDeleteAlreadyDeleted(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE patients SET deleted_at = NOW()")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := c.Patients.SoftDelete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatientAgeAt(t *testing.T) {
	p := &Patient{DateOfBirth: time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)}

	years, months := p.AgeAt(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 3, years)
	assert.Equal(t, 47, months)

	years, _ = p.AgeAt(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 4, years)

	years, months = p.AgeAt(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Zero(t, years)
	assert.Zero(t, months)
}
