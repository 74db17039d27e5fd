// Package docs holds the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/process": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/pdf", "application/json"],
                "tags": ["conversions"],
                "summary": "Stamp a name onto every slide and return a PDF",
                "parameters": [
                    {"type": "string", "description": "Label stamped onto each slide", "name": "name", "in": "formData", "required": true},
                    {"type": "file", "description": "PowerPoint deck (.pptx)", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Rendered PDF", "schema": {"type": "file"}, "headers": {"X-Conversion-ID": {"type": "string", "description": "Ledger id of the conversion"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/conversions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["conversions"],
                "summary": "List recorded conversions",
                "parameters": [
                    {"type": "integer", "description": "Page size (max 100)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ConversionListResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/conversions/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["conversions"],
                "summary": "Get a conversion by id",
                "parameters": [
                    {"type": "string", "description": "Conversion ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Conversion"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness: render engine and ledger database",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "error": {"$ref": "#/definitions/handler.errorEnvelope"}
            }
        },
        "model.Conversion": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "original_filename": {"type": "string"},
                "size": {"type": "integer"},
                "slides": {"type": "integer"},
                "status": {"type": "string", "enum": ["processing", "succeeded", "failed"]},
                "error_code": {"type": "string"},
                "archive_object": {"type": "string"},
                "duration_ms": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "service.ConversionListResult": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.Conversion"}},
                "total": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "deckstamp API",
	Description:      "Stamps a name onto every slide of a PowerPoint deck and returns it as PDF.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
