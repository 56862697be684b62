package port_reader

import (
	"fmt"
	"io"
	"os"

	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
	"github.com/jacobsa/go-serial/serial"
)

// Opener returns a fresh read handle on a section device.
type Opener func(section *types.Section) (io.ReadCloser, error)

// OpenDevice opens the section port. Without a baudrate the port is opened
// as a plain file: a FIFO, a capture file or a tty configured with stty.
// Otherwise the serial line is set to the TeleInfo 7E1 framing.
func OpenDevice(section *types.Section) (io.ReadCloser, error) {
	if section.Baudrate == 0 {
		f, err := os.Open(section.Port)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", section.Port, err)
		}
		return f, nil
	}

	options := serial.OpenOptions{
		PortName:        section.Port,
		BaudRate:        section.Baudrate,
		DataBits:        7,
		StopBits:        1,
		ParityMode:      serial.PARITY_EVEN,
		MinimumReadSize: 1,
	}
	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", section.Port, err)
	}
	return port, nil
}
