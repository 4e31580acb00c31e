package db

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"biteindex/internal/types"
)

func TestCategoryRepository_List(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCategoryRepository(db)

	rows := newMockRows([][]any{
		{"pike", "Щука", "Pike", "pike", 1},
		{"perch", "Окунь", "Perch", "perch", 2},
	})
	db.On("Query", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "FROM fish_types")
	}), mock.Anything).Return(rows, nil)

	got, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.Category{ID: "pike", DisplayName: "Щука", NameEN: "Pike", IconName: "pike", SortOrder: 1}, got[0])
	assert.Equal(t, "perch", got[1].ID)
	assert.True(t, rows.closed, "rows must be closed")
	db.AssertExpectations(t)
}

func TestCategoryRepository_List_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(db *mockDBTX)
	}{
		{"query", func(db *mockDBTX) {
			db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
		}},
		{"scan", func(db *mockDBTX) {
			rows := newMockRows([][]any{{"pike"}})
			rows.scanErr = errors.New("bad column")
			db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)
		}},
		{"iterate", func(db *mockDBTX) {
			rows := newMockRows(nil)
			rows.errVal = errors.New("conn reset")
			db.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(rows, nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(mockDBTX)
			tt.setup(db)

			_, err := NewCategoryRepository(db).List(context.Background())

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
		})
	}
}
