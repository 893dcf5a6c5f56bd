package sensors

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/perfwatch/plugins/logging"
)

// maxPayload caps one daemon response. A full buffer means the daemon sent
// more than expected and the tail is dropped.
const maxPayload = 1024

// daemonSource dials an mbmon-style daemon on every read. The daemon writes
// its sensor table and closes the connection.
type daemonSource struct {
	addr string
	log  logging.Logger
}

func (s *daemonSource) Readings(ctx context.Context) ([]reading, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}

	buf := make([]byte, maxPayload)
	n, err := io.ReadFull(conn, buf)
	switch {
	case err == nil:
		s.log.Warn("daemon response truncated", zap.Int("limit", maxPayload))
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Normal case, the daemon sent less than the cap and closed.
	case errors.Is(err, io.EOF):
		return nil, errors.New("daemon closed the connection without sending data")
	default:
		return nil, err
	}

	return s.parse(buf[:n]), nil
}

// parse decodes "NAME : value" lines. TEMP, FAN and V prefixes map to
// temperature, fanspeed and voltage with the remainder as instance; other
// prefixes are skipped. A value with trailing garbage aborts the scan.
func (s *daemonSource) parse(data []byte) []reading {
	var readings []reading
	for _, line := range strings.Split(string(data), "\n") {
		name, rawValue, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)

		value, err := strconv.ParseFloat(strings.TrimSpace(rawValue), 64)
		if err != nil {
			s.log.Error("sensor value contains invalid characters",
				zap.String("sensor", name), zap.String("value", rawValue))
			break
		}

		var typ, instance string
		switch {
		case strings.HasPrefix(name, "TEMP"):
			typ, instance = "temperature", name[len("TEMP"):]
		case strings.HasPrefix(name, "FAN"):
			typ, instance = "fanspeed", name[len("FAN"):]
		case strings.HasPrefix(name, "V"):
			typ, instance = "voltage", name[len("V"):]
		default:
			continue
		}
		readings = append(readings, reading{Type: typ, Instance: instance, Value: value})
	}
	return readings
}
