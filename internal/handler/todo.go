package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

type TodoService interface {
	Create(ctx context.Context, userID string, in model.NewTodo) (*model.Todo, error)
	Get(ctx context.Context, userID, id string) (*model.Todo, error)
	List(ctx context.Context, userID string, filter repository.TodoFilter) ([]model.Todo, error)
	Update(ctx context.Context, userID, id string, patch model.TodoPatch) (*model.Todo, error)
	Delete(ctx context.Context, userID, id string) error
}

// Validation tags shared by create, update and the list filters.
const (
	titleRule    = "min=1,max=255"
	priorityRule = "min=0,max=4"
	statusRule   = "oneof=pending in_progress completed"
)

// TodoHandler serves /todos. Every route requires authentication and only
// ever sees the caller's own todos.
type TodoHandler struct {
	todos  TodoService
	logger *slog.Logger
}

func NewTodoHandler(svc TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todos: svc, logger: logger}
}

type createTodoRequest struct {
	Title       string      `json:"title"       validate:"required,max=255"`
	Description *string     `json:"description"`
	Priority    *int        `json:"priority"    validate:"omitnil,min=0,max=4"`
	DueDate     *model.Date `json:"due_date"`
	CategoryID  *string     `json:"category_id"`
}

// updateTodoRequest distinguishes a field the client left out from one it
// set to null. Validator cannot see through model.Optional, so the fields
// are checked one by one in patch.
type updateTodoRequest struct {
	Title       model.Optional[string]           `json:"title"`
	Description model.Optional[string]           `json:"description"`
	Status      model.Optional[model.TodoStatus] `json:"status"`
	Priority    model.Optional[int]              `json:"priority"`
	DueDate     model.Optional[model.Date]       `json:"due_date"`
	CategoryID  model.Optional[string]           `json:"category_id"`
}

func (req updateTodoRequest) patch() (model.TodoPatch, error) {
	if req.Title.IsNull() {
		return model.TodoPatch{}, apperror.ValidationFailed("title", "title: must not be null")
	}
	if req.Status.IsNull() {
		return model.TodoPatch{}, apperror.ValidationFailed("status", "status: must not be null")
	}
	if v := req.Title.Value; v != nil {
		if err := validateVar("title", *v, titleRule); err != nil {
			return model.TodoPatch{}, err
		}
	}
	if v := req.Status.Value; v != nil {
		if err := validateVar("status", string(*v), statusRule); err != nil {
			return model.TodoPatch{}, err
		}
	}
	if v := req.Priority.Value; v != nil {
		if err := validateVar("priority", *v, priorityRule); err != nil {
			return model.TodoPatch{}, err
		}
	}

	return model.TodoPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		CategoryID:  req.CategoryID,
	}, nil
}

// HandleList → GET /todos?status=&priority=&category_id=&due_before=&due_after=
//
// Filters combine with AND. Results are newest first.
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	filter, err := parseTodoFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	todos, err := h.todos.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

// HandleCreate → POST /todos
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req createTodoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	todo, err := h.todos.Create(r.Context(), userID, model.NewTodo{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

// HandleGet → GET /todos/{id}
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	todo, err := h.todos.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleUpdate → PATCH /todos/{id}
//
//	{"priority": 1}        sets priority, leaves everything else
//	{"priority": null}     clears priority
//	{"status": "completed"} also stamps completed_at
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req updateTodoRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	todo, err := h.todos.Update(r.Context(), userID, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleDelete → DELETE /todos/{id}, 204 with no body.
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.todos.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseTodoFilter reads the list filters. A parameter that is present must
// be valid, an empty value included.
func parseTodoFilter(q url.Values) (repository.TodoFilter, error) {
	var f repository.TodoFilter

	if q.Has("status") {
		v := q.Get("status")
		if err := validateVar("status", v, statusRule); err != nil {
			return f, err
		}
		status := model.TodoStatus(v)
		f.Status = &status
	}

	if q.Has("priority") {
		p, err := strconv.Atoi(q.Get("priority"))
		if err != nil {
			return f, apperror.ValidationFailed("priority", "priority: must be an integer")
		}
		if err := validateVar("priority", p, priorityRule); err != nil {
			return f, err
		}
		f.Priority = &p
	}

	if q.Has("category_id") {
		v := q.Get("category_id")
		if v == "" {
			return f, apperror.ValidationFailed("category_id", "category_id: must not be empty")
		}
		f.CategoryID = &v
	}

	var err error
	if f.DueBefore, err = dateParam(q, "due_before"); err != nil {
		return f, err
	}
	if f.DueAfter, err = dateParam(q, "due_after"); err != nil {
		return f, err
	}
	return f, nil
}

func dateParam(q url.Values, name string) (*model.Date, error) {
	if !q.Has(name) {
		return nil, nil
	}
	d, err := model.ParseDate(q.Get(name))
	if err != nil {
		return nil, apperror.ValidationFailed(name, name+": "+err.Error())
	}
	return &d, nil
}
