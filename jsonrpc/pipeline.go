package jsonrpc

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/perfwatch/plugins/json"
	"github.com/perfwatch/plugins/logging"
	"github.com/perfwatch/plugins/metrics"
)

// Pipeline is the HTTP request handler. It decodes the body, parses the
// JSON-RPC envelope or batch, dispatches against the method registry and
// writes the response, keeping the pipeline counters current throughout.
type Pipeline struct {
	registry   *Registry
	counters   *metrics.Counters
	maxClients int64
	log        logging.Logger
}

// NewPipeline wires a handler over registry and counters. maxClients bounds
// the number of in-flight POST requests.
func NewPipeline(registry *Registry, counters *metrics.Counters, maxClients int64, log logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	return &Pipeline{
		registry:   registry,
		counters:   counters,
		maxClients: maxClients,
		log:        log,
	}
}

// outcome is the result of body processing: either a JSON-RPC response body
// or one of the fixed error pages.
type outcome struct {
	body   string
	status int
	mime   string
	ok     bool
}

func rpcOutcome(body []byte) outcome {
	return outcome{body: string(body), status: http.StatusOK, mime: mimeJSONRPC, ok: true}
}

func pageOutcome(status int, page string) outcome {
	return outcome{body: page, status: status, mime: mimeTextHTML}
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		p.counters.IncNewConnection()
		p.counters.IncFailed()
		p.log.Debug("rejected request", zap.String("method", r.Method), zap.String("remote_addr", r.RemoteAddr))
		writePage(w, http.StatusBadRequest, mimeTextHTML, errorPage)
		return
	}

	if !p.counters.TryAcquireClient(p.maxClients) {
		p.counters.IncFailed()
		p.log.Debug("rejected request, too many clients", zap.Int64("max_clients", p.maxClients))
		writePage(w, http.StatusServiceUnavailable, mimeJSONRPC, busyPage)
		return
	}
	defer p.counters.ReleaseClient()
	p.counters.IncNewConnection()

	log := p.log.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("remote_addr", r.RemoteAddr),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		p.counters.IncFailed()
		log.WithError(err).Debug("empty or unreadable request body")
		writePage(w, http.StatusBadRequest, mimeTextHTML, errorPage)
		return
	}

	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		body, err = decodeFormBody(body)
		if err != nil {
			p.counters.IncFailed()
			log.WithError(err).Debug("could not decode form-urlencoded body")
			writePage(w, http.StatusBadRequest, mimeTextHTML, parseErrorPage)
			return
		}
	}

	out := p.process(body, log)
	if !out.ok {
		p.counters.IncFailed()
		writePage(w, out.status, out.mime, out.body)
		return
	}
	p.counters.IncSucceeded()
	w.Header().Set("Content-Type", out.mime)
	w.WriteHeader(out.status)
	_, _ = io.WriteString(w, out.body)
}

// process parses body as a single envelope or a batch and produces the
// response. Any element of a batch that is not answerable fails the whole
// batch.
func (p *Pipeline) process(body []byte, log logging.Logger) outcome {
	switch firstByte(body) {
	case '{':
		answer, ok := p.dispatchEnvelope(body, log)
		if !ok {
			log.Debug("request failed, unanswerable envelope")
			return pageOutcome(http.StatusBadRequest, parseErrorPage)
		}
		return rpcOutcome(answer)

	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(body, &elements); err != nil {
			log.WithError(err).Debug("request failed, parse error")
			return pageOutcome(http.StatusBadRequest, parseErrorPage)
		}
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, element := range elements {
			if firstByte(element) != '{' {
				log.Debug("request failed, batch element is not an object")
				return pageOutcome(http.StatusBadRequest, parseErrorPage)
			}
			answer, ok := p.dispatchEnvelope(element, log)
			if !ok {
				log.Debug("request failed, unanswerable batch element")
				return pageOutcome(http.StatusBadRequest, parseErrorPage)
			}
			if i != 0 {
				buf.WriteString(", ")
			}
			buf.Write(answer)
		}
		buf.WriteByte(']')
		return rpcOutcome(buf.Bytes())

	default:
		log.Debug("request failed, expected object or array")
		return pageOutcome(http.StatusBadRequest, parseErrorPage)
	}
}

// dispatchEnvelope runs a single request envelope through validation, method
// lookup and the handler. The second return is false when the envelope is so
// broken no response id is available: the version marker is wrong or the id
// is missing or not an integer. An id of 0 is valid.
func (p *Pipeline) dispatchEnvelope(raw []byte, log logging.Logger) ([]byte, bool) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, false
	}
	if req.JSONRPC != Version || req.ID == nil {
		return nil, false
	}
	id := *req.ID

	if req.Method == "" {
		return errorEnvelope(id, NewError(CodeInvalidRequest, "")), true
	}

	handler, ok := p.registry.Lookup(req.Method)
	if !ok {
		log.Debug("method not found", zap.String("rpc_method", req.Method))
		return errorEnvelope(id, NewError(CodeMethodNotFound, "")), true
	}

	result, rpcErr := handler.Handle(req.Params)
	if rpcErr != nil {
		return errorEnvelope(id, NewError(rpcErr.Code, rpcErr.Message)), true
	}

	answer, err := successEnvelope(id, result)
	if err != nil {
		log.WithError(err).Error("could not serialize result", zap.String("rpc_method", req.Method))
		return errorEnvelope(id, ErrInternal()), true
	}
	return answer, true
}

func writePage(w http.ResponseWriter, status int, mime, page string) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Connection", "close")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, page)
}

// decodeFormBody undoes www-form-urlencoded escaping over the whole body:
// plus becomes space and percent escapes become raw bytes.
func decodeFormBody(s []byte) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '+':
			out = append(out, ' ')
		case '%':
			if i+2 >= len(s) {
				return nil, errors.New("truncated percent escape")
			}
			v, err := strconv.ParseUint(string(s[i+1:i+3]), 16, 8)
			if err != nil {
				return nil, errors.New("invalid percent escape")
			}
			out = append(out, byte(v))
			i += 2
		default:
			out = append(out, c)
		}
	}
	return out, nil
}
