package builtins

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"wandelscript/exception"
	"wandelscript/runtime"
	"wandelscript/serializer"
	"wandelscript/types"
)

// builtinFetch performs an HTTP request and decodes the response by
// content type. The options record supports method, body and headers;
// the result is a record with data and status_code.
func builtinFetch(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, argCountError("fetch", 2, len(args))
	}
	url, ok := args[0].(types.StringValue)
	if !ok {
		return nil, &exception.TypeError{Text: "fetch expects a URL string"}
	}

	method := http.MethodGet
	var body io.Reader
	headers := map[string]string{}
	if len(args) == 2 {
		options, ok := args[1].(types.RecordValue)
		if !ok {
			return nil, &exception.TypeError{Text: "fetch expects an options record"}
		}
		if m, ok := options.Get("method"); ok {
			s, ok := m.(types.StringValue)
			if !ok {
				return nil, &exception.TypeError{Text: "fetch method must be a string"}
			}
			method = strings.ToUpper(s.Val)
			switch method {
			case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
			default:
				return nil, &exception.TypeError{Text: "fetch supports GET, POST, PUT and DELETE"}
			}
		}
		if b, ok := options.Get("body"); ok {
			encoded, err := serializer.Dumps(b)
			if err != nil {
				return nil, &exception.TypeError{Text: "fetch body is not serializable: " + err.Error()}
			}
			body = strings.NewReader(encoded)
			headers["Content-Type"] = "application/json"
		}
		if h, ok := options.Get("headers"); ok {
			record, ok := h.(types.RecordValue)
			if !ok {
				return nil, &exception.TypeError{Text: "fetch headers must be a record"}
			}
			for _, key := range record.Keys() {
				value, _ := record.Get(key)
				s, ok := value.(types.StringValue)
				if !ok {
					return nil, &exception.TypeError{Text: "fetch header values must be strings"}
				}
				headers[key] = s.Val
			}
		}
	}

	request, err := http.NewRequestWithContext(ctx, method, url.Val, body)
	if err != nil {
		return nil, &exception.GenericRuntimeError{Range: ec.Location, Text: "fetch: " + err.Error()}
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, &exception.GenericRuntimeError{Range: ec.Location, Text: "fetch: " + err.Error()}
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &exception.GenericRuntimeError{Range: ec.Location, Text: "fetch: " + err.Error()}
	}

	var data types.Value
	contentType := response.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		data, err = serializer.DecodeJSON(payload)
		if err != nil {
			return nil, &exception.GenericRuntimeError{
				Range: ec.Location,
				Text:  fmt.Sprintf("fetch: invalid JSON response: %v", err),
			}
		}
	default:
		data = types.NewString(string(payload))
	}

	return types.NewRecord(
		[]string{"data", "status_code"},
		[]types.Value{data, types.NewInt(int64(response.StatusCode))},
	), nil
}
