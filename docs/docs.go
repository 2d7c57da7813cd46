// Package docs holds the swagger description served at /swagger/*any.
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
        "/candidate/{test_link}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Candidate"],
                "summary": "Get the candidate's session view",
                "parameters": [{"type": "string", "name": "test_link", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SessionViewDTO"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/candidate/{test_link}/start": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Candidate"],
                "summary": "Start the test session",
                "parameters": [{"type": "string", "name": "test_link", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.StartResponseDTO"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/candidate/{test_link}/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Candidate"],
                "summary": "Get the session status",
                "parameters": [{"type": "string", "name": "test_link", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SessionStatusDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/candidate/{test_link}/responses": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Candidate"],
                "summary": "Save a response",
                "parameters": [
                    {"type": "string", "name": "test_link", "in": "path", "required": true},
                    {"name": "response", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.RecordResponseDTO"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/dto.ResponseDTO"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.ResponseDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "409": {"description": "Test not started; answers are accepted only after POST /start", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/candidate/{test_link}/responses/{question_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Candidate"],
                "summary": "Get a saved response",
                "parameters": [
                    {"type": "string", "name": "test_link", "in": "path", "required": true},
                    {"type": "integer", "name": "question_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ResponseDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/candidate/{test_link}/submit": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Candidate"],
                "summary": "Submit the test",
                "parameters": [
                    {"type": "string", "name": "test_link", "in": "path", "required": true},
                    {"name": "submission", "in": "body", "schema": {"$ref": "#/definitions/dto.SubmitRequestDTO"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SubmitResultDTO"}},
                    "400": {"description": "Unknown or malformed field", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/candidate/{test_link}/integrity": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Candidate"],
                "summary": "Report an integrity violation",
                "parameters": [
                    {"type": "string", "name": "test_link", "in": "path", "required": true},
                    {"name": "event", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.IntegrityEventDTO"}}
                ],
                "responses": {
                    "202": {"description": "Accepted"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/admin/tests": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List tests",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.TestSummaryDTO"}}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Create a test with its questions",
                "parameters": [{"name": "test", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.TestCreateDTO"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.TestDetailDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/admin/tests/{test_id}/candidates": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List candidates of a test",
                "parameters": [{"type": "integer", "name": "test_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.CandidateDTO"}}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Invite a candidate",
                "parameters": [
                    {"type": "integer", "name": "test_id", "in": "path", "required": true},
                    {"name": "candidate", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.InviteCandidateDTO"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.CandidateDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/admin/tests/{test_id}/candidates/bulk": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Invite many candidates",
                "parameters": [
                    {"type": "integer", "name": "test_id", "in": "path", "required": true},
                    {"name": "candidates", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.BulkInviteDTO"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.BulkInviteResultDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/admin/tests/{test_id}/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Test statistics",
                "parameters": [{"type": "integer", "name": "test_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.TestStatsDTO"}}}
            }
        },
        "/admin/tests/{test_id}/live": {
            "get": {
                "tags": ["Admin"],
                "summary": "Live proctoring websocket feed",
                "description": "Browsers pass the key as the api_key query parameter; the Origin must be allowed.",
                "parameters": [
                    {"type": "integer", "name": "test_id", "in": "path", "required": true},
                    {"type": "string", "name": "api_key", "in": "query", "required": false}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "details": {"type": "array", "items": {"type": "string"}}}
        },
        "dto.StartResponseDTO": {
            "type": "object",
            "properties": {"started_at": {"type": "string"}, "status": {"type": "string"}}
        },
        "dto.SessionStatusDTO": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "started_at": {"type": "string"},
                "completed_at": {"type": "string"},
                "score": {"type": "integer"},
                "auto_submitted": {"type": "boolean"}
            }
        },
        "dto.SessionViewDTO": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "integer"},
                "candidate_name": {"type": "string"},
                "status": {"type": "string"},
                "test_title": {"type": "string"},
                "test_description": {"type": "string"},
                "duration": {"type": "integer"},
                "started_at": {"type": "string"},
                "questions": {"type": "array", "items": {"$ref": "#/definitions/dto.CandidateQuestionDTO"}}
            }
        },
        "dto.CandidateQuestionDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string"},
                "content": {"type": "string"},
                "code_snippet": {"type": "string"},
                "options": {"type": "array", "items": {"type": "string"}},
                "test_cases": {"type": "array", "items": {"type": "object"}},
                "evaluation_guidelines": {"type": "string"},
                "image_url": {"type": "string"},
                "points": {"type": "integer"},
                "order": {"type": "integer"}
            }
        },
        "dto.RecordResponseDTO": {
            "type": "object",
            "required": ["questionId"],
            "properties": {"questionId": {"type": "integer"}, "response": {"type": "string"}}
        },
        "dto.ResponseDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "question_id": {"type": "integer"},
                "response": {"type": "string"},
                "submitted_at": {"type": "string"}
            }
        },
        "dto.SubmitRequestDTO": {
            "type": "object",
            "properties": {"autoSubmitted": {"type": "boolean"}}
        },
        "dto.SubmitResultDTO": {
            "type": "object",
            "properties": {
                "score": {"type": "integer"},
                "total_score": {"type": "integer"},
                "total_points": {"type": "integer"}
            }
        },
        "dto.IntegrityEventDTO": {
            "type": "object",
            "required": ["kind"],
            "properties": {"kind": {"type": "string"}, "count": {"type": "integer"}}
        },
        "dto.TestCreateDTO": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "duration": {"type": "integer"},
                "passing_score": {"type": "integer"},
                "shuffle_questions": {"type": "boolean"},
                "questions": {"type": "array", "items": {"type": "object"}}
            }
        },
        "dto.TestDetailDTO": {"type": "object"},
        "dto.TestSummaryDTO": {"type": "object"},
        "dto.InviteCandidateDTO": {
            "type": "object",
            "required": ["name", "email"],
            "properties": {"name": {"type": "string"}, "email": {"type": "string"}}
        },
        "dto.BulkInviteDTO": {
            "type": "object",
            "required": ["candidates"],
            "properties": {"candidates": {"type": "array", "items": {"$ref": "#/definitions/dto.InviteCandidateDTO"}}}
        },
        "dto.BulkInviteResultDTO": {
            "type": "object",
            "properties": {
                "invited": {"type": "integer"},
                "failed": {"type": "integer"},
                "results": {"type": "array", "items": {"type": "object"}}
            }
        },
        "dto.CandidateDTO": {"type": "object"},
        "dto.TestStatsDTO": {
            "type": "object",
            "properties": {
                "total_candidates": {"type": "integer"},
                "completed": {"type": "integer"},
                "in_progress": {"type": "integer"},
                "pending": {"type": "integer"},
                "average_score": {"type": "number"},
                "pass_rate": {"type": "number"}
            }
        }
    },
    "securityDefinitions": {
        "AdminAPIKey": {"type": "apiKey", "name": "X-Admin-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "CodeScreen Assessment API",
	Description:      "Proctored candidate test sessions: start, autosave, submit and timeout reaping.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
