package kettle

import (
	"fmt"

	"go.uber.org/zap"
)

// Limits accepted by the keep-warm setters
const (
	MinKeepWarmTemperature = 40
	MaxKeepWarmTemperature = 90
	MaxKeepWarmHalfHours   = 24
)

// withSession runs fn on an authenticated connection while holding the
// client lock. A transport fault drops the connection before returning.
func (c *Client) withSession(fn func() error) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	err := c.connect()
	if err == nil {
		err = c.auth.Authenticate()
	}
	if err == nil {
		err = fn()
	}
	if err != nil && IsTransportFault(err) {
		c.logger.Debug("Transport fault", zap.Error(err))
		c.events.Record(Event{Type: EventTransportFault, Time: c.clock.Now(), Address: c.identity.Address(), Err: err})
		c.resetConnection()
	}
	return err
}

// readNonEmpty reads handle and fails when the kettle returns nothing.
// Caller runs inside withSession.
func (c *Client) readNonEmpty(name string, handle Handle) ([]byte, error) {
	data, err := c.transport.ReadCharacteristic(handle)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, NewMissingCharacteristicError(name, handle, c.identity.Address())
	}
	return data, nil
}

func (c *Client) readString(name string, handle Handle) (string, error) {
	var value string
	err := c.withSession(func() error {
		data, err := c.readNonEmpty(name, handle)
		if err != nil {
			return err
		}
		value = string(data)
		return nil
	})
	return value, err
}

// FirmwareVersion reads the firmware version string
func (c *Client) FirmwareVersion() (string, error) {
	return c.readString("FIRMWARE_VERSION", HandleFirmwareVersion)
}

// Name reads the advertised device name
func (c *Client) Name() (string, error) {
	return c.readString("NAME", HandleName)
}

// Manufacturer reads the manufacturer string
func (c *Client) Manufacturer() (string, error) {
	return c.readString("MANUFACTURER", HandleManufacturer)
}

// KeepWarm reads the keep-warm type and target temperature
func (c *Client) KeepWarm() (KeepWarmType, int, error) {
	var (
		kwType KeepWarmType
		temp   int
	)
	err := c.withSession(func() error {
		data, err := c.readNonEmpty("KEEP_WARM", HandleKeepWarm)
		if err != nil {
			return err
		}
		if len(data) < 2 {
			return NewMalformedFrameError(fmt.Sprintf("keep warm value too short: %d bytes, want 2", len(data)))
		}
		kwType = KeepWarmType(data[0])
		temp = int(data[1])
		return nil
	})
	return kwType, temp, err
}

// KeepWarmTime reads the keep-warm duration in half hours
func (c *Client) KeepWarmTime() (int, error) {
	var halfHours int
	err := c.withSession(func() error {
		data, err := c.readNonEmpty("KEEP_WARM_TIME", HandleKeepWarmTime)
		if err != nil {
			return err
		}
		halfHours = int(data[0])
		return nil
	})
	return halfHours, err
}

// ExtendedWarmUpSetting reads the extended warm up flag
func (c *Client) ExtendedWarmUpSetting() (ExtendedWarmUp, error) {
	var ewu ExtendedWarmUp
	err := c.withSession(func() error {
		data, err := c.readNonEmpty("EXTENDED_WARM_UP", HandleExtendedWarmUp)
		if err != nil {
			return err
		}
		ewu = ExtendedWarmUp(data[0])
		return nil
	})
	return ewu, err
}

// ConfigureKeepWarm sets the keep-warm type and target temperature (40-90 °C)
func (c *Client) ConfigureKeepWarm(kwType KeepWarmType, temperature int) error {
	if kwType != KeepWarmBoilAndCool && kwType != KeepWarmWarmUp {
		return NewValidationError(fmt.Sprintf("keep warm type must be 0 or 1, got %d", kwType))
	}
	if temperature < MinKeepWarmTemperature || temperature > MaxKeepWarmTemperature {
		return NewValidationError(fmt.Sprintf("keep warm temperature must be between %d and %d, got %d",
			MinKeepWarmTemperature, MaxKeepWarmTemperature, temperature))
	}
	return c.write(HandleKeepWarm, []byte{byte(kwType), byte(temperature)})
}

// ConfigureKeepWarmTime sets the keep-warm duration in half hours (0-24)
func (c *Client) ConfigureKeepWarmTime(halfHours int) error {
	if halfHours < 0 || halfHours > MaxKeepWarmHalfHours {
		return NewValidationError(fmt.Sprintf("keep warm time must be between 0 and %d half hours, got %d",
			MaxKeepWarmHalfHours, halfHours))
	}
	return c.write(HandleKeepWarmTime, []byte{byte(halfHours)})
}

// ConfigureExtendedWarmUp sets the extended warm up flag
func (c *Client) ConfigureExtendedWarmUp(ewu ExtendedWarmUp) error {
	if ewu != ExtendedWarmUpOn && ewu != ExtendedWarmUpOff {
		return NewValidationError(fmt.Sprintf("extended warm up must be 0 or 1, got %d", ewu))
	}
	return c.write(HandleExtendedWarmUp, []byte{byte(ewu)})
}

// write performs an acknowledged write and invalidates the cache on success
func (c *Client) write(handle Handle, value []byte) error {
	err := c.withSession(func() error {
		c.logger.Debug("Write characteristic",
			zap.Uint16("handle", uint16(handle)),
			zap.Binary("value", value),
		)
		return c.transport.WriteCharacteristic(handle, value, true)
	})
	if err != nil {
		return err
	}
	c.ClearCache()
	return nil
}
