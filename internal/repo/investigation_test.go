package repo

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReportCommitsAllRows(t *testing.T) {
	c, mock := newMockClient(t)

	rep := &InvestigationReport{
		RequestedInvestigationID: uuid.New(),
		PatientID:                uuid.New(),
		OrganisationID:           uuid.New(),
		ReportedBy:               uuid.New(),
		Summary:                  "mild anaemia",
		Values: []ReportValue{
			{ParameterID: uuid.New(), Value: "10.1", Flag: "low"},
			{ParameterID: uuid.New(), Value: "7.2", Flag: "normal"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requested_investigations SET status")).
		WithArgs(rep.RequestedInvestigationID, InvestigationInProgress, InvestigationReported).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO investigation_reports")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO investigation_report_values")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO investigation_report_values")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, c.Investigations.CreateReport(context.Background(), rep, InvestigationInProgress))
	assert.NotEqual(t, uuid.Nil, rep.ID)
	for _, v := range rep.Values {
		assert.Equal(t, rep.ID, v.ReportID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReportRollsBackWhenRequestMoved(t *testing.T) {
	c, mock := newMockClient(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requested_investigations SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := c.Investigations.CreateReport(context.Background(), &InvestigationReport{
		RequestedInvestigationID: uuid.New(),
	}, InvestigationRequested)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestsBatch(t *testing.T) {
	c, mock := newMockClient(t)
	patientID := uuid.New()
	reqs := []RequestedInvestigation{
		{PatientID: patientID, TestID: uuid.New(), Priority: "routine"},
		{PatientID: patientID, TestID: uuid.New(), Priority: "stat"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requested_investigations")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requested_investigations")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, c.Investigations.CreateRequests(context.Background(), reqs))
	for _, r := range reqs {
		assert.Equal(t, InvestigationRequested, r.Status)
		assert.NotEqual(t, uuid.Nil, r.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
