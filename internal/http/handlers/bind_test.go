package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/changepassword/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindLogin(body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/auth/login", func(ctx *gin.Context) {
		var req handlers.LoginRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w := bindLogin(`{"username":"alice"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	if len(resp.Error.Details.Fields) != 1 {
		t.Fatalf("want exactly one field error, got %+v", resp.Error.Details.Fields)
	}

	fe := resp.Error.Details.Fields[0]
	if fe.Field != "password" || fe.Rule != "required" || fe.Message == "" {
		t.Fatalf("unexpected field error: %+v", fe)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w := bindLogin(`{"username": }`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}

	if resp.Error.Details.JSON != "invalid_json_syntax" {
		t.Fatalf("unexpected error payload: %s", w.Body.String())
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w := bindLogin(`{"username":42,"password":"x"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}

	if resp.Error.Details.JSON != "invalid_json_type" || resp.Error.Details.Field != "username" {
		t.Fatalf("unexpected details: %+v", resp.Error.Details)
	}
}
