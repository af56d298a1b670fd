package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/call-diarization/internal/logging"
	"github.com/codebuildervaibhav/call-diarization/internal/storage"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

const defaultRunLimit = 50

// RunReader reads the run history.
type RunReader interface {
	GetRun(runID string) (*types.Report, error)
	ListRuns(limit int) ([]storage.RunSummary, error)
}

// RunsHandler serves the run history
type RunsHandler struct {
	runs RunReader
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(runs RunReader) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// List returns the latest runs, newest first.
func (h *RunsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultRunLimit)
	if limit < 1 {
		return c.Status(400).JSON(fiber.Map{
			"error": "limit must be positive",
			"code":  "ERR_INVALID_LIMIT",
		})
	}

	runs, err := h.runs.ListRuns(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error(), "code": "ERR_STORE"})
	}
	if runs == nil {
		runs = []storage.RunSummary{}
	}
	return c.JSON(runs)
}

// Get returns one run with its per-recording metrics.
func (h *RunsHandler) Get(c *fiber.Ctx) error {
	report, err := h.runs.GetRun(c.Params("id"))
	if errors.Is(err, types.ErrRunNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "Run not found", "code": "ERR_NOT_FOUND"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error(), "code": "ERR_STORE"})
	}
	return c.JSON(report)
}

// Logs returns the buffered server log lines.
func Logs(buf *logging.Buffer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": buf.Lines(),
		})
	}
}
