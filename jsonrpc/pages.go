package jsonrpc

// Fixed response bodies. These are served verbatim so that load balancers and
// probes can match on them byte for byte.
const (
	busyPage = `{ "jsonrpc": "2.0", "error": {"code": -32400, "message": "Too many connections"}, "id": null}`

	errorPage       = "<html><body><h1>Some error occured</h1></body></html>"
	parseErrorPage  = "<html><body><h1>Parse error</h1></body></html>"
	serverErrorPage = "<html><body>An internal server error has occured.</body></html>"
)

const (
	mimeTextHTML = "text/html"
	mimeJSONRPC  = "application/json-rpc"
)
