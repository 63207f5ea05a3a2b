package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

// attachmentField is the multipart field carrying the PDF.
const attachmentField = "attachment"

type jsonAttachment struct {
	Filename string `json:"filename"`
	// Data is base64 in JSON.
	Data []byte `json:"data"`
}

type taskRequest struct {
	Title       string          `json:"title" form:"title"`
	Description string          `json:"description" form:"description"`
	DueDate     string          `json:"due_date" form:"due_date"`
	Status      string          `json:"status" form:"status"`
	Priority    string          `json:"priority" form:"priority"`
	Attachment  *jsonAttachment `json:"attachment" form:"-"`
}

type listResponse struct {
	Tasks  []models.TaskView `json:"tasks"`
	Stats  *services.Stats   `json:"stats"`
	Filter services.Filter   `json:"filter"`
	Sort   services.Sort     `json:"sort"`
}

// handleHealth reports readiness based on database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	if s.db != nil {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			s.logger.Warn(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// taskID reads the :id parameter. Malformed identifiers cannot name a task,
// so they are answered with 404.
func (s *Server) taskID(c *gin.Context) (string, bool) {
	raw := c.Param("id")
	if _, err := uuid.Parse(raw); err != nil {
		s.respondError(c, common.ErrorNotFound)
		return "", false
	}
	return raw, true
}

func (s *Server) view(t *models.Task) models.TaskView {
	return models.NewTaskView(t, s.tasks.Now())
}

func (s *Server) handleListTasks(c *gin.Context) {
	q, err := services.ParseListQuery(c.Query("filter"), c.Query("sort"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	tasks, err := s.tasks.List(ctx, q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	stats, err := s.tasks.Stats(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}

	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, s.view(t))
	}
	c.JSON(http.StatusOK, listResponse{Tasks: views, Stats: stats, Filter: q.Filter, Sort: q.Sort})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}
	task, err := s.tasks.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": s.view(task)})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	in, err := s.bindTaskInput(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	task, err := s.tasks.Create(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": s.view(task)})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}
	in, err := s.bindTaskInput(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	task, err := s.tasks.Update(c.Request.Context(), id, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": s.view(task)})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}
	if err := s.tasks.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleToggleStatus(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}
	task, err := s.tasks.ToggleStatus(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": s.view(task)})
}

func (s *Server) handleDownloadAttachment(c *gin.Context) {
	id, ok := s.taskID(c)
	if !ok {
		return
	}
	a, err := s.tasks.DownloadAttachment(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

// bindTaskInput accepts either a JSON body or a multipart form whose
// "attachment" part is the file.
func (s *Server) bindTaskInput(c *gin.Context) (services.TaskInput, error) {
	var req taskRequest
	var in services.TaskInput

	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm:
		if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
			return in, badRequest(err)
		}
		upload, err := s.readUpload(c)
		if err != nil {
			return in, err
		}
		in.Attachment = upload
	case binding.MIMEPOSTForm:
		if err := c.ShouldBindWith(&req, binding.Form); err != nil {
			return in, badRequest(err)
		}
	default:
		if err := c.ShouldBindJSON(&req); err != nil {
			return in, badRequest(err)
		}
		if req.Attachment != nil {
			in.Attachment = &services.Upload{Filename: req.Attachment.Filename, Data: req.Attachment.Data}
		}
	}

	in.Title = req.Title
	in.Description = req.Description
	in.DueDate = req.DueDate
	in.Status = req.Status
	in.Priority = req.Priority
	return in, nil
}

func (s *Server) readUpload(c *gin.Context) (*services.Upload, error) {
	fh, err := c.FormFile(attachmentField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, badRequest(err)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, badRequest(err)
	}
	defer f.Close()

	// One byte past the limit is enough for validation to reject it.
	data, err := io.ReadAll(io.LimitReader(f, s.tasks.MaxAttachmentSize()+1))
	if err != nil {
		return nil, badRequest(err)
	}

	return &services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// badRequest turns malformed-body errors into a validation failure on the
// request as a whole. Oversized bodies keep their own type.
func badRequest(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	ve := common.NewValidationError()
	ve.Add("body", "The request body could not be parsed.")
	return ve
}
