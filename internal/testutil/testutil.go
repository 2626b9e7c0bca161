// Package testutil provides shared test helpers: HTTP assertions, record and
// table fixtures, and an in-memory decoder for pipeline tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/irex-4qt/logparser/internal/signal"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// Record builds a record from alternating signal names and values. Values
// may be float64, int, []byte or string.
func Record(offset float64, group string, kv ...any) signal.Record {
	values := make(map[string]signal.Value, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		name := kv[i].(string)
		switch v := kv[i+1].(type) {
		case float64:
			values[name] = signal.Number(v)
		case int:
			values[name] = signal.Number(float64(v))
		case []byte:
			values[name] = signal.Bytes(v)
		case string:
			values[name] = signal.Text(v)
		default:
			panic("testutil.Record: unsupported value type")
		}
	}
	return signal.Record{Offset: offset, Group: group, Values: values}
}

// Table builds a relative-time table from records, one row each, keeping
// the given order and using names as given.
func Table(records ...signal.Record) *signal.Table {
	samples := make([]signal.Sample, len(records))
	for i, r := range records {
		samples[i] = signal.Sample{Offset: r.Offset, Values: r.Values}
	}
	return signal.NewTable(nil, samples, false)
}
