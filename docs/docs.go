// Package docs holds the Swagger 2.0 document served at /swagger. It mirrors
// the godoc annotations of internal/handlers: regenerate it whenever they
// change.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/areas": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Record fields",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Create a record",
                "description": "Validates required fields, fills empty parent ids from the active context and stores the record owned by the caller.",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size (default 10, max 100)",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "List records",
                "description": "Lists the caller's records newest first. Supports limit, offset and per-entity equality filters.",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/areas/export": {
            "get": {
                "produces": [
                    "application/json",
                    "text/csv"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "required": false,
                        "description": "csv, json or geojson",
                        "type": "string",
                        "default": "json"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Export records",
                "description": "Streams every record of the caller as csv, json or geojson (entities with coordinates only).",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/areas/import": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Records",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Import records",
                "description": "Creates every item of a JSON array or none: a missing required field, a repeated or existing unique value or an unknown parent rejects the whole batch.",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/areas/search": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Search term",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search records",
                "description": "Case-insensitive substring match over the entity's text columns.",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/areas/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Statistics"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Record statistics",
                "description": "Total plus counts for every value of the entity's fixed enums.",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/areas/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a record",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a record",
                "description": "Merges the allow-listed fields of the body. Ownership and identity fields are ignored.",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a record",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/areas/{id}/lists/{field}": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Append to a list field",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/areas/{id}/lists/{field}/{index}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Replace a list item",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Remove a list item",
                "tags": [
                    "areas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/context": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/handlers.ContextResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Current working context",
                "tags": [
                    "context"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/handlers.ContextResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Clear the working context",
                "tags": [
                    "context"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/context/area": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Area",
                        "schema": {
                            "$ref": "#/definitions/models.SelectRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/handlers.ContextResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Select the working area",
                "description": "Requires a selected project that owns the area. Clears the site selection.",
                "tags": [
                    "context"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/context/check": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/handlers.ContextResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Require a complete context",
                "description": "Answers 412 unless a project, area and site are selected.",
                "tags": [
                    "context"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/context/details": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/handlers.ContextDetailsResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Current working context with its rows",
                "description": "The selected project, area and site records, null where nothing is selected.",
                "tags": [
                    "context"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/context/project": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Project",
                        "schema": {
                            "$ref": "#/definitions/models.SelectRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/handlers.ContextResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Select the working project",
                "description": "Clears any area and site selection and the persisted context.",
                "tags": [
                    "context"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/context/site": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Site",
                        "schema": {
                            "$ref": "#/definitions/models.SelectRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/handlers.ContextResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Select the working site",
                "description": "Requires a selected area that contains the site. Persists the complete context.",
                "tags": [
                    "context"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Record fields",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Create a record",
                "description": "Validates required fields, fills empty parent ids from the active context and stores the record owned by the caller.",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size (default 10, max 100)",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "List records",
                "description": "Lists the caller's records newest first. Supports limit, offset and per-entity equality filters.",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/code/{code}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "code",
                        "in": "path",
                        "required": true,
                        "description": "Excavation code",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Excavation"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Find an excavation by code",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/export": {
            "get": {
                "produces": [
                    "application/json",
                    "text/csv"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "required": false,
                        "description": "csv, json or geojson",
                        "type": "string",
                        "default": "json"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Export records",
                "description": "Streams every record of the caller as csv, json or geojson (entities with coordinates only).",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/import": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Records",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Import records",
                "description": "Creates every item of a JSON array or none: a missing required field, a repeated or existing unique value or an unknown parent rejects the whole batch.",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/search": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Search term",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search records",
                "description": "Case-insensitive substring match over the entity's text columns.",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/site/{site_id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "site_id",
                        "in": "path",
                        "required": true,
                        "description": "Site ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/models.Excavation"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "List excavations of a site",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Statistics"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Record statistics",
                "description": "Total plus counts for every value of the entity's fixed enums.",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a record",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a record",
                "description": "Merges the allow-listed fields of the body. Ownership and identity fields are ignored.",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a record",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/{id}/lists/{field}": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Append to a list field",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/excavations/{id}/lists/{field}/{index}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Replace a list item",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Remove a list item",
                "tags": [
                    "excavations"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/fieldwork-sessions": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Record fields",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Create a record",
                "description": "Validates required fields, fills empty parent ids from the active context and stores the record owned by the caller.",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size (default 10, max 100)",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "List records",
                "description": "Lists the caller's records newest first. Supports limit, offset and per-entity equality filters.",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/fieldwork-sessions/export": {
            "get": {
                "produces": [
                    "application/json",
                    "text/csv"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "required": false,
                        "description": "csv, json or geojson",
                        "type": "string",
                        "default": "json"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Export records",
                "description": "Streams every record of the caller as csv, json or geojson (entities with coordinates only).",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/fieldwork-sessions/import": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Records",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Import records",
                "description": "Creates every item of a JSON array or none: a missing required field, a repeated or existing unique value or an unknown parent rejects the whole batch.",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/fieldwork-sessions/search": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Search term",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search records",
                "description": "Case-insensitive substring match over the entity's text columns.",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/fieldwork-sessions/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Statistics"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Record statistics",
                "description": "Total plus counts for every value of the entity's fixed enums.",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/fieldwork-sessions/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a record",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a record",
                "description": "Merges the allow-listed fields of the body. Ownership and identity fields are ignored.",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a record",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/fieldwork-sessions/{id}/lists/{field}": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Append to a list field",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/fieldwork-sessions/{id}/lists/{field}/{index}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Replace a list item",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Remove a list item",
                "tags": [
                    "fieldwork-sessions"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Record fields",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Create a record",
                "description": "Validates required fields, fills empty parent ids from the active context and stores the record owned by the caller.",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size (default 10, max 100)",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "List records",
                "description": "Lists the caller's records newest first. Supports limit, offset and per-entity equality filters.",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/catalog/{catalog_number}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "catalog_number",
                        "in": "path",
                        "required": true,
                        "description": "Catalog number",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Finding"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Find a finding by catalog number",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/export": {
            "get": {
                "produces": [
                    "application/json",
                    "text/csv"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "required": false,
                        "description": "csv, json or geojson",
                        "type": "string",
                        "default": "json"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Export records",
                "description": "Streams every record of the caller as csv, json or geojson (entities with coordinates only).",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/import": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Records",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Import records",
                "description": "Creates every item of a JSON array or none: a missing required field, a repeated or existing unique value or an unknown parent rejects the whole batch.",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/search": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Search term",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search records",
                "description": "Case-insensitive substring match over the entity's text columns.",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Statistics"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Record statistics",
                "description": "Total plus counts for every value of the entity's fixed enums.",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a record",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a record",
                "description": "Merges the allow-listed fields of the body. Ownership and identity fields are ignored.",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a record",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/{id}/lists/{field}": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Append to a list field",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/{id}/lists/{field}/{index}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Replace a list item",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Remove a list item",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/findings/{id}/media": {
            "post": {
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Finding ID",
                        "type": "string"
                    },
                    {
                        "name": "file",
                        "in": "formData",
                        "required": true,
                        "description": "Image file",
                        "type": "file"
                    },
                    {
                        "name": "kind",
                        "in": "formData",
                        "required": false,
                        "description": "photo or drawing",
                        "type": "string",
                        "default": "photo"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.MediaResponse"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Upload a photo or drawing",
                "description": "Stores the file in object storage and appends its public URL to the finding's photos or drawings.",
                "tags": [
                    "findings"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/health": {
            "get": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.HealthResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/models.HealthResponse"
                        }
                    }
                },
                "summary": "Health check",
                "description": "Returns the health status of the API and, when configured, its direct database connection",
                "tags": [
                    "health"
                ]
            }
        },
        "/milestones/{id}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Milestone ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Milestone"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a milestone",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Milestone ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a milestone",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/profile": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.PublicProfile"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get own public profile",
                "description": "Returns the caller's profile, or an empty private one when none has been saved.",
                "tags": [
                    "profiles"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Profile fields",
                        "schema": {
                            "$ref": "#/definitions/models.PublicProfile"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.PublicProfile"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update own public profile",
                "tags": [
                    "profiles"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Record fields",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Create a record",
                "description": "Validates required fields, fills empty parent ids from the active context and stores the record owned by the caller.",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size (default 10, max 100)",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "List records",
                "description": "Lists the caller's records newest first. Supports limit, offset and per-entity equality filters.",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects/export": {
            "get": {
                "produces": [
                    "application/json",
                    "text/csv"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "required": false,
                        "description": "csv, json or geojson",
                        "type": "string",
                        "default": "json"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Export records",
                "description": "Streams every record of the caller as csv, json or geojson (entities with coordinates only).",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects/import": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Records",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Import records",
                "description": "Creates every item of a JSON array or none: a missing required field, a repeated or existing unique value or an unknown parent rejects the whole batch.",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects/search": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Search term",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search records",
                "description": "Case-insensitive substring match over the entity's text columns.",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Statistics"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Record statistics",
                "description": "Total plus counts for every value of the entity's fixed enums.",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a record",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a record",
                "description": "Merges the allow-listed fields of the body. Ownership and identity fields are ignored.",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a record",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects/{id}/lists/{field}": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Append to a list field",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects/{id}/lists/{field}/{index}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Replace a list item",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Remove a list item",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/projects/{id}/milestones": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Project ID",
                        "type": "string"
                    },
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/models.Milestone"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "List project milestones",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Project ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Milestone",
                        "schema": {
                            "$ref": "#/definitions/models.Milestone"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Milestone"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Add a milestone to a project",
                "tags": [
                    "projects"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/public/researchers/{user_id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "user_id",
                        "in": "path",
                        "required": true,
                        "description": "Researcher user ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.PublicProfile"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Public researcher profile",
                "description": "Served without authentication. Private and missing profiles both answer 404.",
                "tags": [
                    "profiles"
                ]
            }
        },
        "/researchers": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Record fields",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Create a record",
                "description": "Validates required fields, fills empty parent ids from the active context and stores the record owned by the caller.",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size (default 10, max 100)",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "List records",
                "description": "Lists the caller's records newest first. Supports limit, offset and per-entity equality filters.",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/by-institution": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Institution",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/models.Researcher"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search researchers by institution",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/by-specialization": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Specialization",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/models.Researcher"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search researchers by specialization",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/export": {
            "get": {
                "produces": [
                    "application/json",
                    "text/csv"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "required": false,
                        "description": "csv, json or geojson",
                        "type": "string",
                        "default": "json"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Export records",
                "description": "Streams every record of the caller as csv, json or geojson (entities with coordinates only).",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/import": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Records",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Import records",
                "description": "Creates every item of a JSON array or none: a missing required field, a repeated or existing unique value or an unknown parent rejects the whole batch.",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/search": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Search term",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search records",
                "description": "Case-insensitive substring match over the entity's text columns.",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Statistics"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Record statistics",
                "description": "Total plus counts for every value of the entity's fixed enums.",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a record",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a record",
                "description": "Merges the allow-listed fields of the body. Ownership and identity fields are ignored.",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a record",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/{id}/lists/{field}": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Append to a list field",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/researchers/{id}/lists/{field}/{index}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Replace a list item",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Remove a list item",
                "tags": [
                    "researchers"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/schemas": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Form schemas",
                "description": "Required fields, list fields and context pre-fill rules of every form.",
                "tags": [
                    "schemas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/schemas/{form}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "form",
                        "in": "path",
                        "required": true,
                        "description": "Form name",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/forms.Spec"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "One form schema",
                "tags": [
                    "schemas"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Record fields",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Create a record",
                "description": "Validates required fields, fills empty parent ids from the active context and stores the record owned by the caller.",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size (default 10, max 100)",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "List records",
                "description": "Lists the caller's records newest first. Supports limit, offset and per-entity equality filters.",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites/export": {
            "get": {
                "produces": [
                    "application/json",
                    "text/csv"
                ],
                "parameters": [
                    {
                        "name": "format",
                        "in": "query",
                        "required": false,
                        "description": "csv, json or geojson",
                        "type": "string",
                        "default": "json"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Export records",
                "description": "Streams every record of the caller as csv, json or geojson (entities with coordinates only).",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites/import": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Records",
                        "schema": {
                            "type": "array",
                            "items": {
                                "type": "object"
                            }
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Import records",
                "description": "Creates every item of a JSON array or none: a missing required field, a repeated or existing unique value or an unknown parent rejects the whole batch.",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites/nearby": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "lat",
                        "in": "query",
                        "required": true,
                        "description": "Latitude",
                        "type": "number"
                    },
                    {
                        "name": "lon",
                        "in": "query",
                        "required": true,
                        "description": "Longitude",
                        "type": "number"
                    },
                    {
                        "name": "radius_km",
                        "in": "query",
                        "required": false,
                        "description": "Radius in kilometres",
                        "type": "number"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/services.NearbySite"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Sites near a point",
                "description": "Returns the caller's sites within radius_km (default 10) of lat/lon, nearest first.",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites/search": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "q",
                        "in": "query",
                        "required": true,
                        "description": "Search term",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Search records",
                "description": "Case-insensitive substring match over the entity's text columns.",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Statistics"
                                        }
                                    }
                                }
                            ]
                        }
                    }
                },
                "summary": "Record statistics",
                "description": "Total plus counts for every value of the entity's fixed enums.",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a record",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "409": {
                        "description": "Conflict",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a record",
                "description": "Merges the allow-listed fields of the body. Ownership and identity fields are ignored.",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a record",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites/{id}/lists/{field}": {
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Append to a list field",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/sites/{id}/lists/{field}/{index}": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Item",
                        "schema": {
                            "$ref": "#/definitions/models.ListItemRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Replace a list item",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Record ID",
                        "type": "string"
                    },
                    {
                        "name": "field",
                        "in": "path",
                        "required": true,
                        "description": "List field",
                        "type": "string"
                    },
                    {
                        "name": "index",
                        "in": "path",
                        "required": true,
                        "description": "Item index",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Remove a list item",
                "tags": [
                    "sites"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/tools/context": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Active context of the tools",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/tools/grid-units": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "required": false,
                        "description": "active, completed or paused",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/models.GridUnit"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Grid units of the active site",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Grid unit",
                        "schema": {
                            "$ref": "#/definitions/models.GridUnit"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.GridUnit"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Record a grid unit",
                "description": "The unit is stamped with the active project, area and site. An excavation_id must name one of the caller's excavations.",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/tools/grid-units/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Grid unit ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.GridUnit"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a grid unit of the active site",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Grid unit ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.GridUnit"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a grid unit of the active site",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Grid unit ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a grid unit of the active site",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/tools/mapping/export": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.MappingExport"
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Download the mapping data of the active site",
                "description": "A JSON attachment with every grid unit, every measurement and the statistics.",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/tools/mapping/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.MappingStats"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Mapping statistics of the active site",
                "description": "Counts grid units, measurements and findings of the site and sums the grid surface.",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/tools/measurements": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "limit",
                        "in": "query",
                        "required": false,
                        "description": "Page size",
                        "type": "integer"
                    },
                    {
                        "name": "offset",
                        "in": "query",
                        "required": false,
                        "description": "Rows to skip",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "type": "array",
                                            "items": {
                                                "$ref": "#/definitions/models.Measurement"
                                            }
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Measurements of the active site",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "post": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Measurement",
                        "schema": {
                            "$ref": "#/definitions/models.Measurement"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Measurement"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Record a measurement",
                "description": "The measurement is stamped with the active project, area and site.",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        },
        "/tools/measurements/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Measurement ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Measurement"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Get a measurement of the active site",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "put": {
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Measurement ID",
                        "type": "string"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "description": "Fields to change",
                        "schema": {
                            "type": "object"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "allOf": [
                                {
                                    "$ref": "#/definitions/models.Envelope"
                                },
                                {
                                    "type": "object",
                                    "properties": {
                                        "data": {
                                            "$ref": "#/definitions/models.Measurement"
                                        }
                                    }
                                }
                            ]
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Update a measurement of the active site",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "description": "Measurement ID",
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    },
                    "412": {
                        "description": "Precondition Failed",
                        "schema": {
                            "$ref": "#/definitions/models.Envelope"
                        }
                    }
                },
                "summary": "Delete a measurement of the active site",
                "tags": [
                    "tools"
                ],
                "security": [
                    {
                        "Bearer": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "activecontext.Triple": {
            "type": "object",
            "properties": {
                "project": {
                    "type": "string"
                },
                "area": {
                    "type": "string"
                },
                "site": {
                    "type": "string"
                }
            }
        },
        "forms.Spec": {
            "type": "object",
            "properties": {
                "required": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "lists": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "context": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                }
            }
        },
        "handlers.ContextDetailsResponse": {
            "type": "object",
            "properties": {
                "state": {
                    "type": "string"
                },
                "context": {
                    "$ref": "#/definitions/activecontext.Triple"
                },
                "complete": {
                    "type": "boolean"
                },
                "project": {
                    "$ref": "#/definitions/models.Project"
                },
                "area": {
                    "$ref": "#/definitions/models.Area"
                },
                "site": {
                    "$ref": "#/definitions/models.Site"
                }
            }
        },
        "handlers.ContextResponse": {
            "type": "object",
            "properties": {
                "state": {
                    "type": "string"
                },
                "context": {
                    "$ref": "#/definitions/activecontext.Triple"
                },
                "complete": {
                    "type": "boolean"
                }
            }
        },
        "models.Area": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "project_id": {
                    "type": "string"
                },
                "countries": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "states": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "municipalities": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "north_bound": {
                    "type": "number"
                },
                "south_bound": {
                    "type": "number"
                },
                "east_bound": {
                    "type": "number"
                },
                "west_bound": {
                    "type": "number"
                },
                "conservation_status": {
                    "type": "string"
                },
                "threats": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "models.Dimensions": {
            "type": "object",
            "properties": {
                "length": {
                    "type": "number"
                },
                "width": {
                    "type": "number"
                },
                "height": {
                    "type": "number"
                },
                "diameter": {
                    "type": "number"
                }
            }
        },
        "models.Envelope": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "data": {},
                "pagination": {
                    "$ref": "#/definitions/models.Pagination"
                },
                "message": {
                    "type": "string"
                },
                "errors": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                },
                "detail": {
                    "type": "string"
                }
            }
        },
        "models.Excavation": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "excavation_code": {
                    "type": "string"
                },
                "site_id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "start_date": {
                    "type": "string"
                },
                "end_date": {
                    "type": "string"
                },
                "planned_duration": {
                    "type": "integer"
                },
                "season_number": {
                    "type": "integer"
                },
                "methodology": {
                    "type": "string"
                },
                "excavation_method": {
                    "type": "string"
                },
                "stratigraphic_recording": {
                    "type": "boolean"
                },
                "three_dimensional_recording": {
                    "type": "boolean"
                },
                "photographic_documentation": {
                    "type": "boolean"
                },
                "field_notes": {
                    "type": "boolean"
                },
                "objects_recovered": {
                    "type": "integer"
                },
                "dating_samples_collected": {
                    "type": "integer"
                },
                "budget_allocated": {
                    "type": "number"
                }
            }
        },
        "models.Finding": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "material": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "coordinates": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                },
                "depth": {
                    "type": "number"
                },
                "dimensions": {
                    "$ref": "#/definitions/models.Dimensions"
                },
                "weight": {
                    "type": "number"
                },
                "condition": {
                    "type": "string"
                },
                "catalog_number": {
                    "type": "string"
                },
                "context": {
                    "type": "string"
                },
                "associations": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "photos": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "drawings": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "site_id": {
                    "type": "string"
                },
                "area_id": {
                    "type": "string"
                },
                "project_id": {
                    "type": "string"
                },
                "fieldwork_session_id": {
                    "type": "string"
                },
                "conservation_treatment": {
                    "type": "string"
                },
                "conservation_notes": {
                    "type": "string"
                },
                "current_location": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "discovered_by": {
                    "type": "string"
                },
                "discovered_date": {
                    "type": "string"
                }
            }
        },
        "models.GridUnit": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "code": {
                    "type": "string"
                },
                "excavation_id": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "coordinates": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                },
                "size_width": {
                    "type": "number"
                },
                "size_height": {
                    "type": "number"
                },
                "depth": {
                    "type": "number"
                },
                "soil_type": {
                    "type": "string"
                },
                "stratigraphy": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "project_id": {
                    "type": "string"
                },
                "area_id": {
                    "type": "string"
                },
                "site_id": {
                    "type": "string"
                }
            }
        },
        "models.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                }
            }
        },
        "models.ListItemRequest": {
            "type": "object",
            "properties": {
                "value": {}
            }
        },
        "models.MappingExport": {
            "type": "object",
            "properties": {
                "project_id": {
                    "type": "string"
                },
                "area_id": {
                    "type": "string"
                },
                "site_id": {
                    "type": "string"
                },
                "grid_units": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.GridUnit"
                    }
                },
                "measurements": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Measurement"
                    }
                },
                "stats": {
                    "$ref": "#/definitions/models.MappingStats"
                },
                "exported_at": {
                    "type": "string"
                }
            }
        },
        "models.MappingStats": {
            "type": "object",
            "properties": {
                "total_grid_units": {
                    "type": "integer"
                },
                "total_measurements": {
                    "type": "integer"
                },
                "total_findings": {
                    "type": "integer"
                },
                "total_area": {
                    "type": "number"
                },
                "active_grid_units": {
                    "type": "integer"
                },
                "completed_grid_units": {
                    "type": "integer"
                }
            }
        },
        "models.Measurement": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "measurement_type": {
                    "type": "string"
                },
                "value": {
                    "type": "number"
                },
                "unit": {
                    "type": "string"
                },
                "coordinates": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                },
                "notes": {
                    "type": "string"
                },
                "project_id": {
                    "type": "string"
                },
                "area_id": {
                    "type": "string"
                },
                "site_id": {
                    "type": "string"
                }
            }
        },
        "models.MediaResponse": {
            "type": "object",
            "properties": {
                "url": {
                    "type": "string"
                },
                "kind": {
                    "type": "string"
                },
                "finding": {
                    "$ref": "#/definitions/models.Finding"
                }
            }
        },
        "models.Milestone": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "project_id": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "date": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "models.Pagination": {
            "type": "object",
            "properties": {
                "total": {
                    "type": "integer"
                },
                "limit": {
                    "type": "integer"
                },
                "offset": {
                    "type": "integer"
                }
            }
        },
        "models.Project": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "methodology": {
                    "type": "string"
                },
                "objectives": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "start_date": {
                    "type": "string"
                },
                "end_date": {
                    "type": "string"
                },
                "budget": {
                    "type": "number"
                },
                "team_size": {
                    "type": "integer"
                },
                "director": {
                    "type": "string"
                },
                "site_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "progress": {
                    "type": "integer"
                }
            }
        },
        "models.PublicProfile": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "string"
                },
                "is_public": {
                    "type": "boolean"
                },
                "display_name": {
                    "type": "string"
                },
                "bio": {
                    "type": "string"
                },
                "specialization": {
                    "type": "string"
                },
                "institution": {
                    "type": "string"
                },
                "location": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "website": {
                    "type": "string"
                },
                "social_media": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "string"
                    }
                },
                "custom_message": {
                    "type": "string"
                },
                "public_projects": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "public_findings": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "public_reports": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "public_publications": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "models.Researcher": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "first_name": {
                    "type": "string"
                },
                "last_name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "institution": {
                    "type": "string"
                },
                "specialization": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                }
            }
        },
        "models.SelectRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                }
            }
        },
        "models.Site": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "coordinates": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                },
                "area_id": {
                    "type": "string"
                },
                "project_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "findings_count": {
                    "type": "integer"
                },
                "artifacts_count": {
                    "type": "integer"
                },
                "samples_count": {
                    "type": "integer"
                }
            }
        },
        "models.Statistics": {
            "type": "object",
            "properties": {
                "total": {
                    "type": "integer"
                },
                "groups": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "object",
                        "additionalProperties": {
                            "type": "integer"
                        }
                    }
                }
            }
        },
        "services.NearbySite": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "created_by": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "coordinates": {
                    "type": "array",
                    "items": {
                        "type": "number"
                    }
                },
                "area_id": {
                    "type": "string"
                },
                "project_id": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "findings_count": {
                    "type": "integer"
                },
                "artifacts_count": {
                    "type": "integer"
                },
                "samples_count": {
                    "type": "integer"
                },
                "distance_km": {
                    "type": "number"
                }
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Arqueo Backend API",
	Description:      "Backend API for archaeological research data: projects, areas, sites, excavations, findings, researchers and field sessions, with a per-user working context, mapping tools and csv/json/geojson export.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
