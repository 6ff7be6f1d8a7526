package sink

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// DefaultSPIFreq is the NRZ bit clock for WS2812 strips (3 SPI bits per data
// bit at 800kHz, plus headroom).
const DefaultSPIFreq = 2500 * physic.KiloHertz

// SPIBus encodes frames for WS2812 strips wired to a SPI MOSI line.
type SPIBus struct {
	port spi.PortCloser
	dev  *nrzled.Dev
}

// OpenSPI initialises the host drivers and opens the named SPI port ("" picks
// the first one).
func OpenSPI(name string, count int, freq physic.Frequency) (*SPIBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", name, err)
	}
	b, err := NewSPIBus(port, count, freq)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return b, nil
}

// NewSPIBus wraps an already open port.
func NewSPIBus(port spi.PortCloser, count int, freq physic.Frequency) (*SPIBus, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	if freq == 0 {
		freq = DefaultSPIFreq
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &SPIBus{port: port, dev: dev}, nil
}

func (b *SPIBus) Write(rgb []byte) (int, error) {
	return b.dev.Write(rgb)
}

// Close blanks the strip and releases the port.
func (b *SPIBus) Close() error {
	herr := b.dev.Halt()
	if err := b.port.Close(); err != nil {
		return err
	}
	return herr
}

func (b *SPIBus) String() string { return b.dev.String() }
