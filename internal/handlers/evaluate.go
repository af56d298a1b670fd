package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/call-diarization/internal/pipeline"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Evaluator scores a hypothesis table against a reference table.
type Evaluator interface {
	Evaluate(ctx context.Context, in pipeline.EvaluateInput) (*types.Report, error)
}

// EvaluateHandler handles table uploads for scoring
type EvaluateHandler struct {
	evaluator Evaluator
	tempDir   string
	maxSizeMB int
	log       zerolog.Logger
}

// NewEvaluateHandler creates a new evaluate handler
func NewEvaluateHandler(evaluator Evaluator, tempDir string, maxSizeMB int, log zerolog.Logger) *EvaluateHandler {
	return &EvaluateHandler{
		evaluator: evaluator,
		tempDir:   tempDir,
		maxSizeMB: maxSizeMB,
		log:       log.With().Str("component", "handlers").Logger(),
	}
}

// Handle processes the evaluate request. Both tables are required; the
// report is returned once every recording is scored.
func (h *EvaluateHandler) Handle(c *fiber.Ctx) error {
	runID := uuid.New().String()

	refPath, rej := h.save(c, "reference", runID)
	if rej != nil {
		return rej.send(c)
	}
	defer os.Remove(refPath)

	hypPath, rej := h.save(c, "hypothesis", runID)
	if rej != nil {
		return rej.send(c)
	}
	defer os.Remove(hypPath)

	report, err := h.evaluator.Evaluate(c.UserContext(), pipeline.EvaluateInput{
		RunID:          runID,
		ReferencePath:  refPath,
		HypothesisPath: hypPath,
	})
	if err != nil {
		if errors.Is(err, types.ErrMissingColumn) {
			return c.Status(400).JSON(fiber.Map{
				"error": err.Error(),
				"code":  "ERR_INVALID_TABLE",
			})
		}
		h.log.Error().Err(err).Str("run_id", runID).Msg("Evaluation failed")
		return c.Status(500).JSON(fiber.Map{
			"error": "Evaluation failed",
			"code":  "ERR_EVALUATION_FAILED",
		})
	}

	return c.JSON(report)
}

// rejection is an error response for the client.
type rejection struct {
	status int
	msg    string
	code   string
}

func (r *rejection) send(c *fiber.Ctx) error {
	return c.Status(r.status).JSON(fiber.Map{
		"error": r.msg,
		"code":  r.code,
	})
}

// save stores one uploaded table in the temp dir.
func (h *EvaluateHandler) save(c *fiber.Ctx, field, runID string) (string, *rejection) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", &rejection{400, fmt.Sprintf("No %s table uploaded", field), "ERR_NO_FILE"}
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if h.maxSizeMB > 0 && file.Size > maxSize {
		return "", &rejection{400, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE"}
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".csv") {
		return "", &rejection{400, "Unsupported table format", "ERR_INVALID_FORMAT"}
	}

	if err := os.MkdirAll(h.tempDir, 0755); err != nil {
		h.log.Error().Err(err).Msg("Failed to create temp dir")
		return "", &rejection{500, "Failed to save file", "ERR_SAVE_FAILED"}
	}
	tempPath := filepath.Join(h.tempDir, fmt.Sprintf("%s_%s.csv", runID, field))
	if err := c.SaveFile(file, tempPath); err != nil {
		h.log.Error().Err(err).Str("field", field).Msg("Failed to save uploaded file")
		return "", &rejection{500, "Failed to save file", "ERR_SAVE_FAILED"}
	}
	return tempPath, nil
}
