package builtins

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"wandelscript/types"
)

func TestFetchDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"answer": 42, "name": "nova"}`))
	}))
	defer server.Close()

	result := callBuiltin(t, "fetch", types.NewString(server.URL))
	record, ok := result.(types.RecordValue)
	require.True(t, ok)

	status, _ := record.Get("status_code")
	require.True(t, types.NewInt(200).Equal(status))

	data, _ := record.Get("data")
	payload, ok := data.(types.RecordValue)
	require.True(t, ok)
	answer, _ := payload.Get("answer")
	require.True(t, types.NewInt(42).Equal(answer))
}

func TestFetchTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("plain text"))
	}))
	defer server.Close()

	result := callBuiltin(t, "fetch", types.NewString(server.URL))
	record := result.(types.RecordValue)
	data, _ := record.Get("data")
	require.True(t, types.NewString("plain text").Equal(data))
}

func TestFetchPostWithBody(t *testing.T) {
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	options := types.NewRecord(
		[]string{"method", "body"},
		[]types.Value{
			types.NewString("post"),
			types.NewRecord([]string{"a"}, []types.Value{types.NewInt(1)}),
		},
	)
	result := callBuiltin(t, "fetch", types.NewString(server.URL), options)
	record := result.(types.RecordValue)
	status, _ := record.Get("status_code")
	require.True(t, types.NewInt(201).Equal(status))
	require.Equal(t, http.MethodPost, method)
}

func TestFetchRejectsUnknownMethod(t *testing.T) {
	registry := NewRegistry()
	fetch, _ := registry.Lookup("fetch")
	options := types.NewRecord([]string{"method"}, []types.Value{types.NewString("PATCH")})
	_, err := fetch(context.Background(), testContext(), []types.Value{
		types.NewString("http://localhost"), options,
	})
	require.Error(t, err)
}
