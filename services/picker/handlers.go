// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package picker

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AretaiLabs/tablescout/services/picker/kg"
)

// Handlers holds the HTTP handlers for the picker service.
type Handlers struct {
	service *Service
}

// NewHandlers creates the handler set for a service.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleSelect handles POST /v1/picker/select.
//
// Description:
//
//	Runs the relevance pipeline for one natural-language query and returns
//	the ranked selection with relationships and a confidence verdict. An
//	empty selection returns 200 with LOW confidence, not an error: finding
//	nothing relevant is an answer.
//
// Response:
//
//	200 OK: Selection
//	400 Bad Request: Malformed body or empty query
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleSelect(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleSelect")

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	selection, err := h.service.SelectTables(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_QUERY",
		})
		return
	}

	logger.Info("table selection",
		slog.Int("selected", len(selection.SelectedTables)),
		slog.String("confidence", string(selection.Confidence.Level)),
		slog.Bool("generic", selection.IsGeneric),
		slog.Bool("mismatch", selection.IsDomainMismatch),
	)

	c.JSON(http.StatusOK, selection)
}

// HandleListTables handles GET /v1/picker/tables.
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleListTables(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListTables())
}

// HandleGetTable handles GET /v1/picker/tables/:name.
//
// Response:
//
//	200 OK: TableDetailResponse
//	404 Not Found: Unknown table
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleGetTable(c *gin.Context) {
	name := c.Param("name")

	detail, err := h.service.GetTable(name)
	if err != nil {
		if errors.Is(err, kg.ErrTableNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "table not found: " + name,
				Code:  "TABLE_NOT_FOUND",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// HandleHealth handles GET /v1/picker/health.
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Health())
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one, and
// echoes it on the response so callers can correlate logs.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
