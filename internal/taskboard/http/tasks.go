package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

// TaskHandler serves /tasks. Every route sits behind AuthnMiddleware, so
// the subject is always present.
type TaskHandler struct {
	Tasks *service.TaskService
}

// List godoc
//
//	@Summary		List tasks
//	@Description	Newest first. limit defaults to 10 (max 100), page to 1.
//	@Tags			Tasks
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int		false	"page size"
//	@Param			page	query		int		false	"1-based page"
//	@Param			status	query		string	false	"TODO, IN_PROGRESS or DONE"
//	@Param			search	query		string	false	"case-insensitive match on title or description"
//	@Success		200		{object}	tasksdk.TaskListResponse
//	@Failure		400		{object}	httpx.ErrorEnvelope
//	@Failure		401		{object}	httpx.ErrorEnvelope
//	@Router			/tasks [get].
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.TaskFilter{
		Limit:  queryInt(q.Get("limit")),
		Page:   queryInt(q.Get("page")),
		Status: domain.TaskStatus(q.Get("status")),
		Search: q.Get("search"),
	}

	items, total, f, err := h.Tasks.List(r.Context(), accountID(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := tasksdk.TaskListResponse{
		Items: make([]tasksdk.Task, 0, len(items)),
		Meta:  tasksdk.PageMeta{Total: total, Page: f.Page, Limit: f.Limit},
	}
	for _, t := range items {
		resp.Items = append(resp.Items, taskResponse(t))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Create godoc
//
//	@Summary	Create task
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		tasksdk.CreateTaskRequest	true	"title is required"
//	@Success	201		{object}	tasksdk.Task
//	@Failure	400		{object}	httpx.ErrorEnvelope
//	@Failure	401		{object}	httpx.ErrorEnvelope
//	@Router		/tasks [post].
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.Tasks.Create(r.Context(), accountID(r), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, taskResponse(t))
}

// Get godoc
//
//	@Summary	Get task
//	@Tags		Tasks
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		string	true	"task id"
//	@Success	200	{object}	tasksdk.Task
//	@Failure	404	{object}	httpx.ErrorEnvelope	"Task not found"
//	@Router		/tasks/{id} [get].
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(r.Context(), accountID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, taskResponse(t))
}

// Update godoc
//
//	@Summary	Update task
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		string						true	"task id"
//	@Param		body	body		tasksdk.UpdateTaskRequest	true	"fields to change"
//	@Success	200		{object}	tasksdk.MessageResponse
//	@Failure	400		{object}	httpx.ErrorEnvelope
//	@Failure	404		{object}	httpx.ErrorEnvelope	"Task not found"
//	@Router		/tasks/{id} [patch].
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.UpdateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in := service.UpdateTaskInput{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		st := domain.TaskStatus(*req.Status)
		in.Status = &st
	}

	if err := h.Tasks.Update(r.Context(), accountID(r), r.PathValue("id"), in); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tasksdk.MessageResponse{Message: "Updated successfully"})
}

// Delete godoc
//
//	@Summary	Delete task
//	@Tags		Tasks
//	@Security	BearerAuth
//	@Param		id	path	string	true	"task id"
//	@Success	204
//	@Failure	404	{object}	httpx.ErrorEnvelope	"Task not found"
//	@Router		/tasks/{id} [delete].
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), accountID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle godoc
//
//	@Summary		Toggle task status
//	@Description	TODO -> IN_PROGRESS -> DONE -> TODO
//	@Tags			Tasks
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"task id"
//	@Success		200	{object}	tasksdk.ToggleResponse
//	@Failure		404	{object}	httpx.ErrorEnvelope	"Task not found"
//	@Router			/tasks/{id}/toggle [post].
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	status, err := h.Tasks.Toggle(r.Context(), accountID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tasksdk.ToggleResponse{Message: "Status updated", Status: string(status)})
}

func taskResponse(t domain.Task) tasksdk.Task {
	return tasksdk.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

func accountID(r *http.Request) string {
	id, _ := httpx.SubjectFromContext(r.Context())
	return id
}

// queryInt parses a positive integer; anything else is 0 and falls back
// to the service default.
func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
