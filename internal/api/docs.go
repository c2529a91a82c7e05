package api

import "net/http"

// ServeDocJSON serves the hand-maintained OpenAPI document consumed by
// the swagger UI mounted at /docs/.
func ServeDocJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(docJSON))
}

const docJSON = `{
  "swagger": "2.0",
  "info": {
    "title": "DRVN Reminder API",
    "description": "Appointment reminder scheduling, dedup-checked push dispatch, and dedup-marker retention.",
    "version": "1.0.0"
  },
  "basePath": "/",
  "schemes": ["http", "https"],
  "securityDefinitions": {
    "AdminToken": {"type": "apiKey", "name": "Authorization", "in": "header"}
  },
  "paths": {
    "/": {
      "get": {"tags": ["meta"], "summary": "API root info", "responses": {"200": {"description": "OK"}}}
    },
    "/health": {
      "get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
    },
    "/health/db": {
      "get": {"tags": ["health"], "summary": "Database health check", "responses": {"200": {"description": "OK"}, "503": {"description": "Database unreachable"}}}
    },
    "/api/v1/reminders/scan": {
      "post": {
        "tags": ["reminders"],
        "summary": "Run a reminder scan now",
        "security": [{"AdminToken": []}],
        "responses": {"200": {"description": "Scan summary"}, "401": {"description": "Unauthenticated"}, "500": {"description": "Scan aborted"}, "503": {"description": "Push transport not configured"}}
      }
    },
    "/api/v1/reminders/sweep": {
      "post": {
        "tags": ["reminders"],
        "summary": "Run a retention sweep now",
        "security": [{"AdminToken": []}],
        "responses": {"200": {"description": "Sweep summary"}, "401": {"description": "Unauthenticated"}, "500": {"description": "Sweep aborted"}}
      }
    },
    "/api/v1/notifications/test": {
      "post": {
        "tags": ["notifications"],
        "summary": "Send a test push notification",
        "security": [{"AdminToken": []}],
        "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"user_id": {"type": "string"}}}}],
        "responses": {"200": {"description": "Sent"}, "400": {"description": "Missing user_id"}, "401": {"description": "Unauthenticated"}, "404": {"description": "User has no registered device"}, "502": {"description": "Push delivery failed"}}
      }
    }
  }
}`
