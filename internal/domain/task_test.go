package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	due := time.Now().UTC().Add(2 * time.Hour)

	tests := []struct {
		name        string
		userID      string
		description string
		due         *time.Time
		priority    Priority
		category    Category
		wantErr     error
	}{
		{
			name:        "valid_task_with_due",
			userID:      "user-1",
			description: "finish report",
			due:         &due,
			priority:    PriorityNormal,
			category:    CategoryOrdinary,
		},
		{
			name:        "valid_task_without_due",
			userID:      "user-1",
			description: "buy milk",
			priority:    PriorityLow,
			category:    CategoryOrdinary,
		},
		{
			name:        "empty_user_id",
			userID:      "",
			description: "finish report",
			priority:    PriorityNormal,
			category:    CategoryOrdinary,
			wantErr:     ErrTaskUserIDEmpty,
		},
		{
			name:        "empty_description",
			userID:      "user-1",
			description: "   ",
			priority:    PriorityNormal,
			category:    CategoryOrdinary,
			wantErr:     ErrTaskDescriptionEmpty,
		},
		{
			name:        "invalid_priority",
			userID:      "user-1",
			description: "finish report",
			priority:    Priority("urgent"),
			category:    CategoryOrdinary,
			wantErr:     ErrInvalidPriority,
		},
		{
			name:        "invalid_category",
			userID:      "user-1",
			description: "finish report",
			priority:    PriorityNormal,
			category:    Category("misc"),
			wantErr:     ErrInvalidCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewTask(tt.userID, tt.description, tt.due, tt.priority, tt.category)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, task)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, task.ID)
			assert.Equal(t, StatusOpen, task.Status)
			assert.False(t, task.ReminderSent)
			if tt.due != nil {
				require.NotNil(t, task.Due)
				assert.True(t, task.Due.Equal(*tt.due))
			}
		})
	}
}

func TestTaskTransitions(t *testing.T) {
	newOpenTask := func(t *testing.T) *Task {
		t.Helper()
		task, err := NewTask("user-1", "call mom", nil, PriorityNormal, CategoryOrdinary)
		require.NoError(t, err)
		return task
	}

	t.Run("complete_open_task", func(t *testing.T) {
		task := newOpenTask(t)
		require.NoError(t, task.Complete())
		assert.Equal(t, StatusCompleted, task.Status)
	})

	t.Run("complete_twice_fails", func(t *testing.T) {
		task := newOpenTask(t)
		require.NoError(t, task.Complete())
		assert.ErrorIs(t, task.Complete(), ErrInvalidTransition)
	})

	t.Run("expire_open_task", func(t *testing.T) {
		task := newOpenTask(t)
		require.NoError(t, task.Expire())
		assert.Equal(t, StatusExpired, task.Status)
	})

	t.Run("expire_completed_task_fails", func(t *testing.T) {
		task := newOpenTask(t)
		require.NoError(t, task.Complete())
		assert.ErrorIs(t, task.Expire(), ErrInvalidTransition)
	})
}

func TestSetDueClearsReminderSent(t *testing.T) {
	task, err := NewTask("user-1", "pay rent", nil, PriorityHigh, CategoryOrdinary)
	require.NoError(t, err)

	task.ReminderSent = true
	due := time.Now().UTC().Add(time.Hour)
	task.SetDue(&due)

	assert.False(t, task.ReminderSent)
	require.NotNil(t, task.Due)
	assert.True(t, task.Due.Equal(due))
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Less(t, PriorityNormal.Rank(), PriorityLow.Rank())
	assert.Greater(t, Priority("bogus").Rank(), PriorityLow.Rank())
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		input string
		want  Priority
	}{
		{"low", PriorityLow},
		{"HIGH", PriorityHigh},
		{"normal", PriorityNormal},
		{"medium", PriorityNormal},
		{"urgent", PriorityNormal},
		{"", PriorityNormal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePriority(tt.input), "input %q", tt.input)
	}
}

func TestCategoryForDescription(t *testing.T) {
	tests := []struct {
		description string
		want        Category
	}{
		{"take a break", CategoryWellness},
		{"drink water", CategoryWellness},
		{"stretch for 5 minutes", CategoryWellness},
		{"finish quarterly report", CategoryOrdinary},
		{"call mom", CategoryOrdinary},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryForDescription(tt.description), "description %q", tt.description)
	}
}
