package handler

import (
	"mime"
	"time"

	"github.com/gofiber/fiber/v2"

	"panes/internal/http/middleware"
	"panes/internal/model"
	"panes/internal/service"
)

// DefaultFrameAncestors is used when no frame-ancestors list is configured.
const DefaultFrameAncestors = "'self' http://localhost:*"

// PaneResponse is the public view of a pane.
type PaneResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ViewCount    int64     `json:"viewCount"`
	IsPublic     bool      `json:"isPublic"`
	ShareURL     string    `json:"shareUrl"`
}

// PaneListResponse is the body of GET /panes.
type PaneListResponse struct {
	Panes []PaneResponse `json:"panes"`
	Total int            `json:"total"`
}

// CleanupResponse is the body of POST /panes/cleanup.
type CleanupResponse struct {
	Deleted    int64 `json:"deleted"`
	Errors     int64 `json:"errors"`
	DurationMs int64 `json:"durationMs"`
}

func toPaneResponse(p *model.Pane, shareURL string) PaneResponse {
	return PaneResponse{
		ID:           p.ID,
		OriginalName: p.OriginalName,
		SizeBytes:    p.SizeBytes,
		CreatedAt:    p.CreatedAt,
		ExpiresAt:    p.ExpiresAt,
		ViewCount:    p.ViewCount,
		IsPublic:     p.IsPublic,
		ShareURL:     shareURL,
	}
}

// UploadPane stores an HTML document for the caller.
//
// @Summary Upload a pane
// @Tags panes
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "HTML document"
// @Success 201 {object} service.UploadResult
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /panes/upload [post]
func UploadPane(svc service.PaneService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		res, err := svc.Upload(c.UserContext(), service.UploadFile{
			Content:     f,
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: ct,
		}, middleware.Principal(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListPanes returns the caller's unexpired panes.
//
// @Summary List my panes
// @Tags panes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PaneListResponse
// @Failure 401 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /panes [get]
func ListPanes(svc service.PaneService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.ListByOwner(c.UserContext(), middleware.Principal(c))
		if err != nil {
			return writeServiceError(c, err)
		}

		out := PaneListResponse{Panes: make([]PaneResponse, 0, len(res.Panes)), Total: res.Total}
		for i := range res.Panes {
			out.Panes = append(out.Panes, toPaneResponse(&res.Panes[i], svc.ShareURL(res.Panes[i].ID)))
		}
		return c.JSON(out)
	}
}

// GetPane returns a pane's metadata.
//
// @Summary Get pane metadata
// @Tags panes
// @Produce json
// @Param id path string true "Pane ID"
// @Success 200 {object} PaneResponse
// @Failure 404 {object} errorPayload
// @Failure 410 {object} errorPayload
// @Router /panes/{id} [get]
func GetPane(svc service.PaneService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := svc.GetMetadata(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(toPaneResponse(p, svc.ShareURL(p.ID)))
	}
}

// GetPaneRaw serves the document itself for sandboxed rendering.
//
// @Summary Get raw pane document
// @Tags panes
// @Produce html
// @Param id path string true "Pane ID"
// @Success 200 {string} string "HTML document"
// @Failure 404 {object} errorPayload
// @Failure 410 {object} errorPayload
// @Router /panes/{id}/raw [get]
func GetPaneRaw(svc service.PaneService, frameAncestors string) fiber.Handler {
	if frameAncestors == "" {
		frameAncestors = DefaultFrameAncestors
	}
	csp := "default-src 'self' 'unsafe-inline' 'unsafe-eval' data: blob: https:; frame-ancestors " + frameAncestors

	return func(c *fiber.Ctx) error {
		content, err := svc.GetContent(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Set(fiber.HeaderContentType, "text/html; charset=utf-8")
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderContentSecurityPolicy, csp)
		c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("inline", map[string]string{
			"filename": content.Pane.OriginalName,
		}))
		return c.Send(content.Data)
	}
}

// DeletePane removes one of the caller's panes.
//
// @Summary Delete a pane
// @Tags panes
// @Security BearerAuth
// @Param id path string true "Pane ID"
// @Success 204
// @Failure 401 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /panes/{id} [delete]
func DeletePane(svc service.PaneService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id"), middleware.Principal(c), false); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// TriggerCleanup runs one expiration sweep, for external schedulers.
//
// @Summary Sweep expired panes
// @Tags panes
// @Produce json
// @Param X-Cleanup-Key header string false "Cleanup key, when configured"
// @Success 200 {object} CleanupResponse
// @Failure 401 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /panes/cleanup [post]
func TriggerCleanup(sw service.Sweeper) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := sw.Run(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(CleanupResponse{
			Deleted:    res.Deleted,
			Errors:     res.Errors,
			DurationMs: res.Elapsed.Milliseconds(),
		})
	}
}
