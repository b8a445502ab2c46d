package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

func TestLikePatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		" Zhang ": "%zhang%",
		"100%":    `%100\%%`,
		"wang_li": `%wang\_li%`,
		`C:\temp`: `%c:\\temp%`,
		"":        "%%",
	}
	for input, want := range cases {
		assert.Equal(t, want, likePattern(input), input)
	}
}

func TestCoachListSearchMatchesWildcardsLiterally(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCoachRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`LIKE $1`)).
		WithArgs(`%\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).
		WithArgs(`%\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.CoachFilter{Search: "_"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
