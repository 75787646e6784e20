package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveCompletedAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)

	tests := []struct {
		name     string
		from, to TodoStatus
		oldTS    *time.Time
		want     *time.Time
	}{
		{"pending to completed sets now", StatusPending, StatusCompleted, nil, &now},
		{"in_progress to completed sets now", StatusInProgress, StatusCompleted, nil, &now},
		{"completed to pending clears", StatusCompleted, StatusPending, &earlier, nil},
		{"completed to in_progress clears", StatusCompleted, StatusInProgress, &earlier, nil},
		{"completed to completed keeps old", StatusCompleted, StatusCompleted, &earlier, &earlier},
		{"pending to pending keeps nil", StatusPending, StatusPending, nil, nil},
		{"pending to in_progress keeps nil", StatusPending, StatusInProgress, nil, nil},
		{"in_progress to pending keeps nil", StatusInProgress, StatusPending, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveCompletedAt(tt.from, tt.to, tt.oldTS, now)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v, want %v", *got, *tt.want)
		})
	}
}

func TestTodoStatusValid(t *testing.T) {
	for _, s := range []TodoStatus{StatusPending, StatusInProgress, StatusCompleted} {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range []TodoStatus{"", "done", "COMPLETED", "in-progress"} {
		assert.False(t, s.Valid(), s)
	}
}

func TestTodoPatchApply(t *testing.T) {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	desc := "keep me"
	prio := 2
	due := Date{Year: 2024, Month: time.March, Day: 3}
	cat := "cat-1"

	base := func() Todo {
		return Todo{
			ID:          "todo-1",
			Title:       "Original",
			Description: &desc,
			Status:      StatusPending,
			Priority:    &prio,
			DueDate:     &due,
			CategoryID:  &cat,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
	}

	t.Run("empty patch only touches updated_at", func(t *testing.T) {
		todo := base()
		TodoPatch{}.Apply(&todo, now)

		assert.Equal(t, "Original", todo.Title)
		assert.Equal(t, &desc, todo.Description)
		assert.Equal(t, &prio, todo.Priority)
		assert.Equal(t, &due, todo.DueDate)
		assert.Equal(t, &cat, todo.CategoryID)
		assert.Equal(t, created, todo.CreatedAt)
		assert.Equal(t, now, todo.UpdatedAt)
	})

	t.Run("explicit nulls clear nullable fields", func(t *testing.T) {
		todo := base()
		TodoPatch{
			Description: Null[string](),
			Priority:    Null[int](),
			DueDate:     Null[Date](),
			CategoryID:  Null[string](),
		}.Apply(&todo, now)

		assert.Nil(t, todo.Description)
		assert.Nil(t, todo.Priority)
		assert.Nil(t, todo.DueDate)
		assert.Nil(t, todo.CategoryID)
		assert.Equal(t, "Original", todo.Title)
	})

	t.Run("values replace fields", func(t *testing.T) {
		todo := base()
		TodoPatch{
			Title:    Some("Renamed"),
			Priority: Some(0),
			DueDate:  Some(Date{Year: 2025, Month: time.January, Day: 1}),
		}.Apply(&todo, now)

		assert.Equal(t, "Renamed", todo.Title)
		require.NotNil(t, todo.Priority)
		assert.Equal(t, 0, *todo.Priority)
		assert.Equal(t, "2025-01-01", todo.DueDate.String())
	})

	t.Run("status completed stamps completed_at", func(t *testing.T) {
		todo := base()
		TodoPatch{Status: Some(StatusCompleted)}.Apply(&todo, now)

		assert.Equal(t, StatusCompleted, todo.Status)
		require.NotNil(t, todo.CompletedAt)
		assert.Equal(t, now, *todo.CompletedAt)
	})

	t.Run("reopening clears completed_at", func(t *testing.T) {
		todo := base()
		todo.Status = StatusCompleted
		todo.CompletedAt = &created
		TodoPatch{Status: Some(StatusPending)}.Apply(&todo, now)

		assert.Equal(t, StatusPending, todo.Status)
		assert.Nil(t, todo.CompletedAt)
	})
}

func TestTodoPatchFromJSON(t *testing.T) {
	var patch struct {
		Description Optional[string] `json:"description"`
		Priority    Optional[int]    `json:"priority"`
		DueDate     Optional[Date]   `json:"due_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"description": null, "due_date": "2024-12-31"}`), &patch))

	assert.True(t, patch.Description.IsNull())
	assert.False(t, patch.Priority.Set)
	require.NotNil(t, patch.DueDate.Value)
	assert.Equal(t, "2024-12-31", patch.DueDate.Value.String())
}

func TestTodoJSONShape(t *testing.T) {
	todo := Todo{
		ID:        "abc",
		UserID:    "owner",
		Title:     "Buy groceries",
		Status:    StatusPending,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(todo)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.NotContains(t, got, "user_id")
	for _, key := range []string{"description", "priority", "due_date", "category_id", "completed_at"} {
		assert.Contains(t, got, key)
		assert.Nil(t, got[key], key)
	}
	assert.Equal(t, "pending", got["status"])
}
