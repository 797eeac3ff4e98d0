// Package docs registers the OpenAPI document served by the swagger UI.
// Regenerate with `swag init -g cmd/relax3d/docs.go -o internal/httpapi/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/runs/preprocess": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Start a preprocessing run",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.PreprocessRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.RunResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/runs/relax": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Start a relaxation run",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.RelaxRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.RunResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/runs/cancel": {
            "post": {
                "produces": ["application/json"],
                "summary": "Request cancellation of the active run",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CancelResponse"}}}
            }
        },
        "/runs": {
            "get": {
                "produces": ["application/json"],
                "summary": "List finished runs, newest first",
                "parameters": [{"in": "query", "name": "limit", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RunsResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Status of the active or last run",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/layers": {
            "get": {
                "produces": ["application/json"],
                "summary": "Configured layers",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LayersResponse"}}}
            }
        },
        "/events": {
            "get": {
                "produces": ["application/x-ndjson"],
                "summary": "Stream status events (NDJSON)",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "types.PreprocessRequest": {
            "type": "object",
            "properties": {
                "file": {"type": "string", "example": "L12.dxf"},
                "option": {"type": "string", "example": "L"},
                "mode": {"type": "string", "example": "R"}
            }
        },
        "types.RelaxRequest": {
            "type": "object",
            "properties": {"option": {"type": "string", "example": "L"}}
        },
        "types.RunResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "pipeline": {"type": "string", "example": "preprocess"},
                "stages": {"type": "array", "items": {"type": "string"}},
                "output_file": {"type": "string", "example": "L12.txt"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "busy": {"type": "boolean"},
                "run_id": {"type": "string"},
                "pipeline": {"type": "string"},
                "phase": {"type": "string", "example": "running"},
                "stage": {"type": "string"},
                "cause": {"type": "string"},
                "active": {"type": "string"},
                "active_pid": {"type": "integer"},
                "last_cpu": {"type": "number"},
                "started_at": {"type": "string"}
            }
        },
        "types.CancelResponse": {
            "type": "object",
            "properties": {"cancelled": {"type": "boolean"}}
        },
        "types.RunsResponse": {
            "type": "object",
            "properties": {"runs": {"type": "array", "items": {"type": "object"}}}
        },
        "types.LayersResponse": {
            "type": "object",
            "properties": {"layers": {"type": "array", "items": {"type": "object"}}}
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid JSON body"},
                "code": {"type": "integer", "example": 400}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "relax3d API",
	Description:      "Drives the Relax3D preprocessing tools and solver.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
