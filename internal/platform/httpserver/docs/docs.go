// Package docs registers the OpenAPI description served at /swagger/doc.json.
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
        "/v1/submissions": {
            "post": {
                "summary": "Submit a character request",
                "tags": ["submissions"],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/v1/submissions/{submission_id}": {
            "get": {
                "summary": "Fetch one submission",
                "tags": ["submissions"],
                "responses": {"200": {"description": "OK"}}
            },
            "patch": {
                "summary": "Edit a pending submission",
                "tags": ["submissions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/submissions/{submission_id}/cancel": {
            "post": {
                "summary": "Cancel a submission and refund its cost",
                "tags": ["submissions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/submissions/{submission_id}/start": {
            "post": {
                "summary": "Move a submission into work",
                "tags": ["submissions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/submissions/{submission_id}/complete": {
            "post": {
                "summary": "Deliver a submission",
                "tags": ["submissions"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/queues/{queue_type}": {
            "get": {
                "summary": "Public lane view in position order",
                "tags": ["queues"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/submissions/{submission_id}/vote": {
            "post": {
                "summary": "Cast a vote on a free-lane submission",
                "tags": ["votes"],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "summary": "Withdraw a vote",
                "tags": ["votes"],
                "responses": {"200": {"description": "OK"}}
            },
            "get": {
                "summary": "Whether the caller voted for the submission",
                "tags": ["votes"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/votes/allowance": {
            "get": {
                "summary": "Caller's monthly vote allowance",
                "tags": ["votes"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/credits/balance": {
            "get": {
                "summary": "Caller's credit balance",
                "tags": ["credits"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/credits/history": {
            "get": {
                "summary": "Caller's credit transaction history",
                "tags": ["credits"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/admin/credits/grant": {
            "post": {
                "summary": "Issue a monthly credit grant",
                "tags": ["credits"],
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Atelier Request Queue API",
	Description:      "Character request queues, credit ledger and free-lane voting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
