package gateway

import (
	"io"
	"log/slog"
	"net"
)

// startReader watches a receive-only downlink connection for
// disconnection: a byte received from the client is ignored, and any read
// error, EOF included, closes the client.
func (s *Server) startReader(ctxDone <-chan struct{}, conn net.Conn, cl *Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		buf := make([]byte, 1)
		for {
			select {
			case <-ctxDone:
				return
			case <-cl.Closed:
				return
			default:
			}
			if _, err := conn.Read(buf); err != nil {
				if err != io.EOF {
					logger.Debug("downlink_read_error", "error", err)
				}
				cl.Close()
				return
			}
			// A byte from a downlink client is unexpected on this
			// receive-only feed; ignore it and keep watching for EOF.
		}
	}()
}
