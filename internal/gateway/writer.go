package gateway

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/uviespace/airspace-compress/internal/metrics"
)

// startWriter launches the goroutine pushing queued compressed frames to a
// single downlink connection, batching writes on a flush ticker.
func (s *Server) startWriter(ctxDone <-chan struct{}, conn net.Conn, cl *Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = conn.Close()
			if s.Hub != nil {
				s.Hub.Remove(cl)
			}
			s.totalDisconnected.Add(1)
			logger.Info("client_disconnected")
		}()
		t := time.NewTicker(s.flushInterval)
		defer t.Stop()
		batch := make([][]byte, 0, s.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n := len(batch)
			for _, fr := range batch {
				if _, err := conn.Write(fr); err != nil {
					batch = batch[:0]
					wrap := fmt.Errorf("%w: %v", ErrConnWrite, err)
					metrics.IncError(mapErrToMetric(wrap))
					s.setError(wrap)
					return wrap
				}
			}
			batch = batch[:0]
			metrics.AddTCPTx(n)
			return nil
		}
		for {
			select {
			case fr := <-cl.Out:
				batch = append(batch, fr)
				if len(batch) >= s.batchSize {
					if err := flush(); err != nil {
						return
					}
				}
			case <-t.C:
				if err := flush(); err != nil {
					return
				}
			case <-cl.Closed:
				_ = flush()
				return
			case <-ctxDone:
				_ = flush()
				return
			}
		}
	}()
}
