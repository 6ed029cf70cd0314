package manager

import (
	"io"
	"strings"

	"github.com/urmzd/zwcore/pkg/serialapi"
	"github.com/urmzd/zwcore/pkg/serialapi/simulator"
)

// Dialer opens the byte stream to a controller endpoint.
type Dialer func(endpoint string) (io.ReadWriteCloser, error)

// Dial opens sim:// endpoints on the built-in virtual controller and
// everything else as a serial port, optionally suffixed with ?baud=N.
func Dial(endpoint string) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(endpoint, simulator.Scheme+"://") {
		cfg, err := simulator.ParseEndpoint(endpoint)
		if err != nil {
			return nil, err
		}
		rw, _ := simulator.Dial(cfg)
		return rw, nil
	}
	port, err := serialapi.OpenPort(endpoint)
	if err != nil {
		return nil, err
	}
	return port, nil
}
