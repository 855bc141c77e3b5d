// Package docs holds the OpenAPI description served at /swagger. Regenerate
// with: swag init -g cmd/server/main.go -o docs
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
        "/plans": {
            "get": {
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "List planning runs",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListPlansResponse"}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "Plan a week of seating",
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/planner.Request"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/services.PlanResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/plans/validate": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["plans"],
                "summary": "Validate a planning request",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/planner.Request"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/plans/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["plans"],
                "summary": "Fetch a stored plan",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.PlanResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/feedback": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["feedback"],
                "summary": "Record satisfaction feedback",
                "parameters": [
                    {"name": "feedback", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.FeedbackInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.SatisfactionFeedback"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/feedback/alerts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["feedback"],
                "summary": "Employees with sustained low satisfaction",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/employees/{id}/feedback": {
            "get": {
                "produces": ["application/json"],
                "tags": ["feedback"],
                "summary": "List feedback for an employee",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}}
            }
        },
        "/employees/{id}/satisfaction": {
            "get": {
                "produces": ["application/json"],
                "tags": ["feedback"],
                "summary": "Learned satisfaction for an employee",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "handlers.ListPlansResponse": {
            "type": "object",
            "properties": {
                "plans": {"type": "array", "items": {"type": "object"}},
                "pagination": {"type": "object"}
            }
        },
        "planner.Request": {
            "type": "object",
            "required": ["employees", "seats", "capacity"],
            "properties": {
                "employees": {"type": "array", "items": {"type": "object"}},
                "seats": {"type": "array", "items": {"type": "object"}},
                "capacity": {"description": "integer or per-day map"},
                "days": {"type": "array", "items": {"type": "string"}},
                "solver": {"type": "string", "enum": ["auto", "optimal", "greedy"]}
            }
        },
        "services.PlanResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "assignments": {"type": "array", "items": {"type": "object"}},
                "warnings": {"type": "array", "items": {"type": "object"}},
                "schedule": {"type": "object"},
                "meta": {"type": "object"},
                "alerts": {"type": "array", "items": {"type": "object"}},
                "created_at": {"type": "string"}
            }
        },
        "services.FeedbackInput": {
            "type": "object",
            "required": ["employee_id", "assignment_date", "seat_id", "satisfaction_score"],
            "properties": {
                "employee_id": {"type": "string"},
                "assignment_date": {"type": "string"},
                "seat_id": {"type": "string"},
                "satisfaction_score": {"type": "integer", "minimum": 1, "maximum": 5}
            }
        },
        "domain.SatisfactionFeedback": {"type": "object"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Seat Planner API",
	Description:      "Weekly office seat planning with satisfaction feedback.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
