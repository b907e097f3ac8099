package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/model"
	"taskboard/internal/service/task"
)

type TaskHandler struct {
	svc    *task.Service
	logger *zap.Logger
}

func NewTaskHandler(svc *task.Service, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

func (h *TaskHandler) Create(c *gin.Context) {
	var in task.CreateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.Warn("CreateTask: invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": t})
}

func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

// List applies the query-string filter and sort before returning the actor's
// tasks. All filter predicates are ANDed together.
func (h *TaskHandler) List(c *gin.Context) {
	f := task.Filter{
		ProjectID: c.Query("project_id"),
		Status:    model.TaskStatus(c.Query("status")),
		Priority:  model.TaskPriority(c.Query("priority")),
		Due:       task.DueBucket(c.Query("due")),
		Search:    c.Query("search"),
	}
	if v, ok := parseTimeParam(c, "due_start"); ok {
		f.DueStart = v
	} else {
		return
	}
	if v, ok := parseTimeParam(c, "due_end"); ok {
		f.DueEnd = v
	} else {
		return
	}

	s := task.Sort{
		Field: task.SortField(c.Query("sort")),
		Desc:  c.Query("order") == "desc",
	}

	tasks, err := h.svc.List(c.Request.Context(), actorFrom(c), f, s)
	if err != nil {
		h.logger.Error("ListTasks: failed", zap.Error(err))
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) ListByProject(c *gin.Context) {
	tasks, err := h.svc.ListByProject(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var in task.UpdateTaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.Warn("UpdateTask: invalid request body",
			zap.String("task_id", c.Param("id")),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.svc.Update(c.Request.Context(), actorFrom(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// History returns a page of the task's audit trail, most recent first.
func (h *TaskHandler) History(c *gin.Context) {
	f := task.HistoryFilter{
		Action: model.HistoryAction(c.Query("action_type")),
	}
	if v, ok := parseTimeParam(c, "start_date"); ok {
		f.Since = v
	} else {
		return
	}
	if v, ok := parseTimeParam(c, "end_date"); ok {
		f.Until = v
	} else {
		return
	}
	if v, ok := parseIntParam(c, "limit"); ok {
		f.Limit = v
	} else {
		return
	}
	if v, ok := parseIntParam(c, "offset"); ok {
		f.Offset = v
	} else {
		return
	}

	page, err := h.svc.History(c.Request.Context(), actorFrom(c), c.Param("id"), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type addSubtaskRequest struct {
	Title string `json:"title"`
}

func (h *TaskHandler) AddSubtask(c *gin.Context) {
	var req addSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.svc.AddSubtask(c.Request.Context(), actorFrom(c), c.Param("id"), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": t})
}

func (h *TaskHandler) UpdateSubtask(c *gin.Context) {
	var patch task.SubtaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.svc.UpdateSubtask(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("subtaskId"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *TaskHandler) DeleteSubtask(c *gin.Context) {
	t, err := h.svc.DeleteSubtask(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("subtaskId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

// parseTimeParam reads an optional RFC 3339 query parameter. On a malformed
// value it writes the 400 response itself and reports ok=false.
func parseTimeParam(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &t, true
}

func parseIntParam(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
