package repos

import (
	"errors"
	"fmt"

	"github.com/go-core-fx/fiberfx/handler"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/repodash/repodash/internal/repos"
	"github.com/repodash/repodash/internal/server/validation"
	"github.com/repodash/repodash/internal/tree"
	"go.uber.org/zap"
)

// TreeQuery selects the tree layout. Flat returns the rows in display order.
type TreeQuery struct {
	Flat bool `query:"flat"`
}

type Handler struct {
	registry *repos.Registry

	validator *validator.Validate
	logger    *zap.Logger
}

func NewHandler(registry *repos.Registry, validator *validator.Validate, logger *zap.Logger) handler.Handler {
	return &Handler{
		registry: registry,

		validator: validator,
		logger:    logger,
	}
}

// Register implements handler.Handler.
func (h *Handler) Register(r fiber.Router) {
	r = r.Group("/repos")

	r.Use(h.errorsHandler)
	r.Get("/", h.list)
	r.Post("/", validation.DecorateWithBodyEx(h.validator, h.post))
	r.Delete("/", validation.DecorateWithQueryEx(h.validator, h.delete))
	r.Post("/scan", validation.DecorateWithBodyEx(h.validator, h.scan))

	r.Get("/tree", validation.DecorateWithQueryEx(h.validator, h.tree))
	r.Get("/tree/select", validation.DecorateWithQueryEx(h.validator, h.selectRow))
	r.Get("/status", validation.DecorateWithQueryEx(h.validator, h.status))
	r.Get("/busy", h.busy)

	r.Post("/refresh", h.refreshAll)
	r.Post("/fetch", h.fetchAll)
	r.Post("/refresh-one", validation.DecorateWithQueryEx(h.validator, h.refreshOne))
	r.Post("/fetch-one", validation.DecorateWithQueryEx(h.validator, h.fetchOne))
	r.Post("/cancel", h.cancel)
}

func (h *Handler) list(c *fiber.Ctx) error {
	entries := h.registry.Entries()

	responses := make([]RepoResponse, len(entries))
	for i, e := range entries {
		responses[i] = newRepoResponse(e.Path(), e.Status())
	}

	return c.JSON(responses)
}

func (h *Handler) post(c *fiber.Ctx, req *POSTRequest) error {
	return h.started(c, h.registry.StartAddRepo(req.Path))
}

func (h *Handler) scan(c *fiber.Ctx, req *ScanRequest) error {
	return h.started(c, h.registry.StartAddReposInDirectory(req.Dir))
}

func (h *Handler) delete(c *fiber.Ctx, req *PathQuery) error {
	if !h.registry.RemoveRepo(req.Path) {
		return fmt.Errorf("failed to remove repository: %w: %s", repos.ErrNotFound, req.Path)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) tree(c *fiber.Ctx, req *TreeQuery) error {
	root := h.registry.Tree()

	if !req.Flat {
		return c.JSON(h.toNode(root, 0))
	}

	rows := make([]NodeResponse, 0)
	tree.Walk(root, func(n tree.Node, depth int) bool {
		rows = append(rows, h.toRow(n, depth))
		return true
	})

	return c.JSON(rows)
}

func (h *Handler) selectRow(c *fiber.Ctx, req *SelectQuery) error {
	row := 0
	selected := tree.Select(h.registry.Tree(), func(_ tree.Node, _ int) bool {
		current := row
		row++
		return current == req.Row
	})
	if selected == nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("no repository at row %d", req.Row))
	}

	status, err := h.registry.Status(selected.Path)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	return c.JSON(newRepoResponse(selected.Path, status))
}

func (h *Handler) status(c *fiber.Ctx, req *PathQuery) error {
	status, err := h.registry.Status(req.Path)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	return c.JSON(newStatusResponse(status))
}

func (h *Handler) busy(c *fiber.Ctx) error {
	busy, ok := h.registry.Busy()
	if !ok {
		return c.JSON(nil)
	}

	return c.JSON(newBusyResponse(busy))
}

func (h *Handler) refreshAll(c *fiber.Ctx) error {
	return h.started(c, h.registry.StartRefreshAll())
}

func (h *Handler) fetchAll(c *fiber.Ctx) error {
	return h.started(c, h.registry.StartFetchAll())
}

func (h *Handler) refreshOne(c *fiber.Ctx, req *PathQuery) error {
	if err := h.registry.Refresh(c.Context(), req.Path); err != nil {
		return fmt.Errorf("failed to refresh repository: %w", err)
	}

	return h.status(c, req)
}

func (h *Handler) fetchOne(c *fiber.Ctx, req *PathQuery) error {
	if err := h.registry.Fetch(c.Context(), req.Path); err != nil {
		return fmt.Errorf("failed to fetch repository: %w", err)
	}

	return h.status(c, req)
}

func (h *Handler) cancel(c *fiber.Ctx) error {
	if !h.registry.CancelBulk() {
		return fiber.NewError(fiber.StatusConflict, "no bulk operation running")
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// started reports whether a bulk operation was accepted. A dropped request
// is not an error.
func (h *Handler) started(c *fiber.Ctx, ok bool) error {
	if !ok {
		h.logger.Debug("bulk operation already running", zap.String("path", c.Path()))
		return c.JSON(StartedResponse{Started: false})
	}

	return c.Status(fiber.StatusAccepted).JSON(StartedResponse{Started: true})
}

func (h *Handler) errorsHandler(c *fiber.Ctx) error {
	err := c.Next()
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, repos.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, repos.ErrInvalidPath):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return err //nolint:wrapcheck //already wrapped
}

// toRow describes n without its children.
func (h *Handler) toRow(n tree.Node, depth int) NodeResponse {
	node := NodeResponse{
		Kind:  n.Kind().String(),
		Name:  n.Name(),
		Depth: depth,
	}

	switch n := n.(type) {
	case *tree.Dir:
		node.Path = n.Path()
	case *tree.Repo:
		node.Path = n.Path
		// Removed since the tree was read: no status.
		if status, err := h.registry.Status(n.Path); err == nil {
			resp := newStatusResponse(status)
			node.Status = &resp
		}
	}

	return node
}

func (h *Handler) toNode(n tree.Node, depth int) NodeResponse {
	node := h.toRow(n, depth)

	if dir, ok := n.(*tree.Dir); ok {
		node.Children = make([]NodeResponse, 0, len(dir.Children))
		for _, child := range dir.Children {
			node.Children = append(node.Children, h.toNode(child, depth+1))
		}
	}

	return node
}
