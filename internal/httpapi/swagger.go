//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// apiDoc is the OpenAPI document served at /swagger/doc.json.
const apiDoc = `{
  "swagger": "2.0",
  "info": {"title": "poolchat API", "version": "1.0",
    "description": "Chat with a tensor-parallel model over a worker pool."},
  "basePath": "/",
  "paths": {
    "/chat": {"post": {
      "summary": "Submit a conversation turn",
      "consumes": ["application/json"],
      "produces": ["application/x-ndjson"],
      "parameters": [{"in": "body", "name": "request", "required": true,
        "schema": {"$ref": "#/definitions/ChatRequest"}}],
      "responses": {
        "200": {"description": "stream of updates", "schema": {"$ref": "#/definitions/Update"}},
        "400": {"description": "bad request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
        "429": {"description": "busy or input locked", "schema": {"$ref": "#/definitions/ErrorResponse"}},
        "503": {"description": "model failed to load", "schema": {"$ref": "#/definitions/ErrorResponse"}}
      }}},
    "/reset": {"post": {
      "summary": "Clear the conversation",
      "responses": {"200": {"description": "empty finished update", "schema": {"$ref": "#/definitions/Update"}}}}},
    "/status": {"get": {
      "summary": "Session and worker status",
      "responses": {"200": {"description": "status", "schema": {"$ref": "#/definitions/StatusResponse"}}}}}
  },
  "definitions": {
    "Message": {"type": "object", "properties": {
      "role": {"type": "string", "enum": ["System", "User", "Assistant"]},
      "content": {"type": "string"}}},
    "Update": {"type": "object", "properties": {
      "messages": {"type": "array", "items": {"$ref": "#/definitions/Message"}},
      "is_finished": {"type": "boolean"}}},
    "ChatRequest": {"type": "object", "properties": {
      "messages": {"type": "array", "items": {"$ref": "#/definitions/Message"}},
      "content": {"type": "string"}}},
    "ErrorResponse": {"type": "object", "properties": {
      "error": {"type": "string"}, "code": {"type": "integer"}}},
    "StatusResponse": {"type": "object"}
  }
}`

type staticDoc struct{}

func (staticDoc) ReadDoc() string { return apiDoc }

func init() {
	swag.Register(swag.Name, staticDoc{})
}

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
