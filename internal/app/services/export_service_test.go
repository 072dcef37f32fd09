package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/univgates1-stack/univgates-sub001/internal/app/models"
	"github.com/xuri/excelize/v2"
)

func TestApplicationsXLSX(t *testing.T) {
	f := newApplicationFixture(t)
	ctx := context.Background()
	app := f.confirmedApp(t)
	doc := f.documents.add(f.studentID, "transcript.pdf")
	_, err := f.svc.Submit(ctx, f.studentID, app.ID, []uuid.UUID{doc})
	require.NoError(t, err)

	other := uuid.New()
	f.profiles.addStudent(&models.Student{IdentityID: other})
	_, err = f.svc.Apply(ctx, other, f.program.ID)
	require.NoError(t, err)

	export := NewExportService(f.apps, zerolog.Nop())

	buf, err := export.ApplicationsXLSX(ctx, nil)
	require.NoError(t, err)
	wb, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Application ID", rows[0][0])
	assert.Equal(t, "Submitted At", rows[0][8])

	submitted := models.ApplicationStatusSubmitted
	buf, err = export.ApplicationsXLSX(ctx, &submitted)
	require.NoError(t, err)
	wb2, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer wb2.Close()
	rows, err = wb2.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, app.ID.String(), rows[1][0])
	assert.Equal(t, "Boğaziçi University", rows[1][2])
	assert.Equal(t, "submitted", rows[1][5])
	assert.NotEmpty(t, rows[1][8])
}
