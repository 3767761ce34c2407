// Copyright (C) 2025 Aretai Labs (oss@aretailabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package picker

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all picker routes with the router.
//
// Description:
//
//	Registers all /v1/picker/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/picker/select - Select relevant tables for a query
//	GET  /v1/picker/tables - List catalog tables
//	GET  /v1/picker/tables/:name - Get one table with its relationships
//	GET  /v1/picker/health - Health check
//
// Example:
//
//	service := picker.NewService(store, engine, vectors, logger)
//	handlers := picker.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	picker.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	picker := rg.Group("/picker")
	{
		// Selection
		picker.POST("/select", handlers.HandleSelect)

		// Catalog inspection
		picker.GET("/tables", handlers.HandleListTables)
		picker.GET("/tables/:name", handlers.HandleGetTable)

		// Health checks
		picker.GET("/health", handlers.HandleHealth)
	}
}
