package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student ID Card API",
        "description": "Student registration, card templates and card exports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Students", "description": "Registration and record history"},
        {"name": "Photos", "description": "Portrait uploads"},
        {"name": "Templates", "description": "Card template registry"},
        {"name": "Cards", "description": "Rendered cards and downloads"},
        {"name": "Exports", "description": "Queued exports and signed downloads"}
    ],
    "paths": {
        "/students": {
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/history": {
            "get": {
                "tags": ["Students"],
                "summary": "Last two submissions, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/history.csv": {
            "get": {
                "tags": ["Students"],
                "summary": "Record history as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV file"}
                }
            }
        },
        "/students/current": {
            "get": {
                "tags": ["Students"],
                "summary": "Most recent submission",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No student data", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/photos": {
            "post": {
                "tags": ["Photos"],
                "summary": "Upload a portrait",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "photo", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Empty or oversized file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "415": {"description": "Unsupported media type", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/templates": {
            "get": {
                "tags": ["Templates"],
                "summary": "List card templates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/templates/current": {
            "get": {
                "tags": ["Templates"],
                "summary": "Current card template",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Templates"],
                "summary": "Select the current card template",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectTemplateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown template", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cards": {
            "get": {
                "tags": ["Cards"],
                "summary": "Rendered card views with the current template",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cards/{viewId}": {
            "get": {
                "tags": ["Cards"],
                "summary": "A single rendered card view",
                "parameters": [
                    {"name": "viewId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "View not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cards/{viewId}/download": {
            "get": {
                "tags": ["Cards"],
                "summary": "Capture a card and download it",
                "produces": ["image/png", "application/pdf"],
                "parameters": [
                    {"name": "viewId", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["png", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Card artefact"},
                    "404": {"description": "View not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Export failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cards/{viewId}/exports": {
            "post": {
                "tags": ["Cards"],
                "summary": "Queue a card export",
                "parameters": [
                    {"name": "viewId", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["png", "pdf"]}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "View not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/jobs/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a generated artefact",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Card artefact"},
                    "404": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitStudentRequest": {
            "type": "object",
            "required": ["name", "rollNumber", "classDivision", "rackNumber", "busRoute"],
            "properties": {
                "name": {"type": "string"},
                "rollNumber": {"type": "string"},
                "classDivision": {"type": "string", "enum": ["1A", "1B", "2A", "2B"]},
                "allergies": {"type": "array", "items": {"type": "string", "enum": ["Peanuts", "Dairy", "Gluten", "Dust", "Pollen"]}},
                "rackNumber": {"type": "string"},
                "busRoute": {"type": "string", "enum": ["Route 1", "Route 2", "Route 3"]},
                "photoReference": {"type": "string"},
                "photoName": {"type": "string"}
            }
        },
        "SelectTemplateRequest": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
