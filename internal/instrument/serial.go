package instrument

import (
	"time"

	"github.com/tarm/serial"
)

// OpenSerial opens a tarm/serial port as an instrument Port, mirroring the
// teacher's internal/serial.Open helper.
func OpenSerial(name string, baud int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	return serial.OpenPort(cfg)
}
