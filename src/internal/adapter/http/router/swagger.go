package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Core Banking Engine API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Core Banking Engine API",
    "version": "1.0.0"
  },
  "security": [{"BearerAuth": []}],
  "paths": {
    "/healthz": {
      "get": {
        "summary": "Liveness check",
        "security": [],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/transactions": {
      "post": {
        "summary": "Submit a deposit, withdrawal or transfer",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/SubmitTransaction"}}}
        },
        "responses": {
          "201": {"description": "Completed"},
          "202": {"description": "Awaiting approval"},
          "400": {"description": "Validation error"},
          "401": {"description": "Unauthorized"},
          "403": {"description": "Insufficient privilege"},
          "404": {"description": "Account not found"},
          "409": {"description": "Operation not allowed in account state"},
          "422": {"description": "Limit exceeded"}
        }
      }
    },
    "/transactions/pending": {
      "get": {
        "summary": "List transactions the caller may decide on",
        "responses": {"200": {"description": "Pending transactions"}, "401": {"description": "Unauthorized"}}
      }
    },
    "/transactions/{id}": {
      "get": {
        "summary": "Get a transaction",
        "parameters": [{"$ref": "#/components/parameters/ID"}],
        "responses": {
          "200": {"description": "Transaction"},
          "403": {"description": "Insufficient privilege"},
          "404": {"description": "Transaction not found"}
        }
      }
    },
    "/transactions/{id}/decision": {
      "post": {
        "summary": "Approve or reject a pending transaction",
        "parameters": [{"$ref": "#/components/parameters/ID"}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {"type": "object", "required": ["approve"], "properties": {"approve": {"type": "boolean"}}}
            }
          }
        },
        "responses": {
          "200": {"description": "Decision applied"},
          "403": {"description": "Approver role below the pending tier"},
          "404": {"description": "Transaction not found"},
          "409": {"description": "Transaction not pending or account state forbids it"},
          "422": {"description": "Limit exceeded at decision time"}
        }
      }
    },
    "/accounts": {
      "get": {
        "summary": "List accounts of an owner",
        "parameters": [{"name": "ownerId", "in": "query", "required": false, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "Accounts"}, "403": {"description": "Insufficient privilege"}}
      },
      "post": {
        "summary": "Open an account",
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/OpenAccount"}}}
        },
        "responses": {
          "201": {"description": "Created"},
          "400": {"description": "Validation error"},
          "403": {"description": "Insufficient privilege"}
        }
      }
    },
    "/accounts/{id}": {
      "get": {
        "summary": "Get an account with its aggregated balance",
        "parameters": [{"$ref": "#/components/parameters/ID"}],
        "responses": {"200": {"description": "Account"}, "404": {"description": "Account not found"}}
      }
    },
    "/accounts/{id}/state": {
      "put": {
        "summary": "Change the account state",
        "parameters": [{"$ref": "#/components/parameters/ID"}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["state"],
                "properties": {"state": {"type": "string", "enum": ["ACTIVE", "FROZEN", "SUSPENDED", "CLOSED"]}}
              }
            }
          }
        },
        "responses": {"200": {"description": "Updated"}, "409": {"description": "Account is closed"}}
      }
    },
    "/accounts/{id}/features": {
      "post": {
        "summary": "Add a feature decorator",
        "parameters": [{"$ref": "#/components/parameters/ID"}],
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Feature"}}}
        },
        "responses": {"200": {"description": "Updated"}, "400": {"description": "Validation error"}}
      }
    },
    "/accounts/{id}/children": {
      "post": {
        "summary": "Group an account under this one",
        "parameters": [{"$ref": "#/components/parameters/ID"}],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {"type": "object", "required": ["childId"], "properties": {"childId": {"type": "string"}}}
            }
          }
        },
        "responses": {"200": {"description": "Updated"}, "400": {"description": "Already grouped, different owner or would create a cycle"}}
      }
    },
    "/accounts/{id}/children/{childId}": {
      "delete": {
        "summary": "Remove an account from this group",
        "parameters": [
          {"$ref": "#/components/parameters/ID"},
          {"name": "childId", "in": "path", "required": true, "schema": {"type": "string"}}
        ],
        "responses": {"200": {"description": "Updated"}, "400": {"description": "Not a child of this account"}}
      }
    },
    "/accounts/{id}/transactions": {
      "get": {
        "summary": "Transaction history of an account",
        "parameters": [{"$ref": "#/components/parameters/ID"}],
        "responses": {"200": {"description": "Transactions"}}
      }
    },
    "/reports/daily": {
      "get": {
        "summary": "Daily aggregates",
        "parameters": [{"name": "date", "in": "query", "required": false, "schema": {"type": "string", "format": "date"}}],
        "responses": {"200": {"description": "Report"}, "403": {"description": "Employees and admins only"}}
      }
    },
    "/audit": {
      "get": {
        "summary": "Most recent audit records",
        "parameters": [{"name": "limit", "in": "query", "required": false, "schema": {"type": "integer", "minimum": 1}}],
        "responses": {"200": {"description": "Audit records"}, "403": {"description": "Admins only"}}
      }
    },
    "/notifications": {
      "get": {
        "summary": "Notifications for the caller",
        "parameters": [{"name": "recipientId", "in": "query", "required": false, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "Notifications"}}
      }
    }
  },
  "components": {
    "parameters": {
      "ID": {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}
    },
    "schemas": {
      "SubmitTransaction": {
        "type": "object",
        "required": ["type", "amount"],
        "properties": {
          "type": {"type": "string", "enum": ["DEPOSIT", "WITHDRAWAL", "TRANSFER"]},
          "amount": {"type": "string", "example": "30000.00"},
          "sourceAccountId": {"type": "string"},
          "targetAccountId": {"type": "string"},
          "description": {"type": "string"},
          "pin": {"type": "string"}
        }
      },
      "Feature": {
        "type": "object",
        "required": ["kind"],
        "properties": {
          "kind": {
            "type": "string",
            "enum": ["OVERDRAFT_PROTECTION", "INVESTMENT_BONUS", "PREMIUM_SAVINGS", "BUSINESS_LOAN_EXTENSION", "WITHDRAWAL_CAP"]
          },
          "limit": {"type": "string"},
          "rate": {"type": "string"},
          "minBalanceForRate": {"type": "string"},
          "maxExtension": {"type": "string"}
        }
      },
      "OpenAccount": {
        "type": "object",
        "required": ["ownerId", "type"],
        "properties": {
          "ownerId": {"type": "string"},
          "type": {"type": "string", "enum": ["CHECKING", "SAVINGS", "INVESTMENT", "LOAN", "BUSINESS_LOAN"]},
          "openingBalance": {"type": "string"},
          "features": {"type": "array", "items": {"$ref": "#/components/schemas/Feature"}},
          "pin": {"type": "string"}
        }
      }
    },
    "securitySchemes": {
      "BearerAuth": {
        "type": "http",
        "scheme": "bearer",
        "bearerFormat": "JWT"
      }
    }
  }
}`
