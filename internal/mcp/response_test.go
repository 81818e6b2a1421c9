package mcp

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestCreateJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		data    interface{}
		wantErr bool
	}{
		{name: "map", data: map[string]interface{}{"count": 42}},
		{name: "nil", data: nil},
		{name: "unmarshalable", data: make(chan int), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := createJSONResponse(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("createJSONResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			text, ok := result.Content[0].(*mcp.TextContent)
			if !ok {
				t.Fatal("createJSONResponse() did not return TextContent")
			}
			var parsed interface{}
			if err := json.Unmarshal([]byte(text.Text), &parsed); err != nil {
				t.Errorf("createJSONResponse() returned invalid JSON: %v", err)
			}
		})
	}
}

func TestCreateErrorResponse(t *testing.T) {
	result, err := createErrorResponse("search", errors.New("boom"))
	if err != nil {
		t.Fatalf("createErrorResponse() error = %v", err)
	}
	if !result.IsError {
		t.Error("createErrorResponse() should set IsError")
	}
	text := result.Content[0].(*mcp.TextContent).Text
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["error"] != "boom" || body["operation"] != "search" || body["success"] != false {
		t.Errorf("unexpected error body: %v", body)
	}
}
