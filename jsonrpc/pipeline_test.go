package jsonrpc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfwatch/plugins/json"
	"github.com/perfwatch/plugins/logging"
	"github.com/perfwatch/plugins/metrics"
)

func newTestPipeline(t *testing.T, maxClients int64) (*Pipeline, *metrics.Counters) {
	t.Helper()

	reg := NewRegistry()
	reg.MustRegister("echo", HandlerFunc(func(params json.RawMessage) (any, *Error) {
		if params == nil {
			return "ok", nil
		}
		var v any
		if err := json.Unmarshal(params, &v); err != nil {
			return nil, ErrInvalidParams()
		}
		return v, nil
	}))
	reg.MustRegister("boom", HandlerFunc(func(params json.RawMessage) (any, *Error) {
		return nil, NewError(-32000, "backend on fire")
	}))

	counters := metrics.NewCounters()
	return NewPipeline(reg, counters, maxClients, logging.Nop()), counters
}

func post(p *Pipeline, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	return rec
}

func TestPipeline_RejectsGET(t *testing.T) {
	p, counters := newTestPipeline(t, 16)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorPage, rec.Body.String())
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Equal(t, int64(1), counters.Failed())
	assert.Equal(t, int64(1), counters.NewConnections())
}

func TestPipeline_UnknownMethod(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	rec := post(p, "application/json-rpc", `{"jsonrpc":"2.0","id":1,"method":"unknown_method"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json-rpc", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		`{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found."},"id":1}`,
		rec.Body.String())
}

func TestPipeline_SingleSuccess(t *testing.T) {
	p, counters := newTestPipeline(t, 16)

	rec := post(p, "application/json-rpc", `{"jsonrpc":"2.0","id":3,"method":"echo","params":"hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"jsonrpc":"2.0","result":"hello","id":3}`, rec.Body.String())
	assert.Equal(t, int64(1), counters.Succeeded())
	assert.Equal(t, int64(0), counters.Failed())
	assert.Equal(t, int64(0), counters.ActiveClients())
}

func TestPipeline_IDZeroIsValid(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	rec := post(p, "", `{"jsonrpc":"2.0","id":0,"method":"echo"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"jsonrpc":"2.0","result":"ok","id":0}`, rec.Body.String())
}

func TestPipeline_MissingID(t *testing.T) {
	p, counters := newTestPipeline(t, 16)

	rec := post(p, "", `{"jsonrpc":"2.0","method":"echo"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, parseErrorPage, rec.Body.String())
	assert.Equal(t, int64(1), counters.Failed())
}

func TestPipeline_WrongVersion(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	rec := post(p, "", `{"jsonrpc":"1.0","id":1,"method":"echo"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, parseErrorPage, rec.Body.String())
}

func TestPipeline_MissingMethod(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	rec := post(p, "", `{"jsonrpc":"2.0","id":7}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"jsonrpc":"2.0","error":{"code":-32600,"message":"Invalid Request."},"id":7}`,
		rec.Body.String())
}

func TestPipeline_HandlerError(t *testing.T) {
	p, counters := newTestPipeline(t, 16)

	rec := post(p, "", `{"jsonrpc":"2.0","id":5,"method":"boom"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"jsonrpc":"2.0","error":{"code":-32000,"message":"backend on fire"},"id":5}`,
		rec.Body.String())
	// An error envelope is still a served response.
	assert.Equal(t, int64(1), counters.Succeeded())
}

func TestPipeline_Batch(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	rec := post(p, "", `[{"jsonrpc":"2.0","id":1,"method":"echo"},{"jsonrpc":"2.0","id":2,"method":"echo"}]`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`[{"jsonrpc":"2.0","result":"ok","id":1}, {"jsonrpc":"2.0","result":"ok","id":2}]`,
		rec.Body.String())
}

func TestPipeline_BatchNonObjectElementFailsWhole(t *testing.T) {
	p, counters := newTestPipeline(t, 16)

	rec := post(p, "", `[{"jsonrpc":"2.0","id":1,"method":"echo"},42]`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, parseErrorPage, rec.Body.String())
	assert.Equal(t, int64(1), counters.Failed())
}

func TestPipeline_ParseError(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	for _, body := range []string{`{"jsonrpc":`, `"just a string"`, `42`} {
		rec := post(p, "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, parseErrorPage, rec.Body.String(), "body %q", body)
	}
}

func TestPipeline_EmptyBody(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	rec := post(p, "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorPage, rec.Body.String())
}

func TestPipeline_FormURLEncoded(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	body := `%7B%22jsonrpc%22%3A%222.0%22%2C%22id%22%3A1%2C%22method%22%3A%22echo%22%7D`
	rec := post(p, "application/x-www-form-urlencoded", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"jsonrpc":"2.0","result":"ok","id":1}`, rec.Body.String())
}

func TestPipeline_FormURLEncodedBadEscape(t *testing.T) {
	p, _ := newTestPipeline(t, 16)

	rec := post(p, "application/x-www-form-urlencoded", `%7B%zz`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, parseErrorPage, rec.Body.String())
}

func TestPipeline_BusyRejection(t *testing.T) {
	p, counters := newTestPipeline(t, 1)

	// Occupy the only seat.
	require.True(t, counters.TryAcquireClient(1))
	defer counters.ReleaseClient()

	rec := post(p, "", `{"jsonrpc":"2.0","id":1,"method":"echo"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, busyPage, rec.Body.String())
	assert.Equal(t, "application/json-rpc", rec.Header().Get("Content-Type"))
	// The rejected request never held a seat.
	assert.Equal(t, int64(1), counters.ActiveClients())
	assert.Equal(t, int64(0), counters.NewConnections())
}

func TestDecodeFormBody(t *testing.T) {
	got, err := decodeFormBody([]byte(`a+b%20c%2F`))
	require.NoError(t, err)
	assert.Equal(t, "a b c/", string(got))

	_, err = decodeFormBody([]byte(`%2`))
	assert.Error(t, err)
}
