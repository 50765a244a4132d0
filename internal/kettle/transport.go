package kettle

// NotificationHandler is invoked by a Transport for every notification the
// kettle sends. It must not block.
type NotificationHandler func(handle Handle, payload []byte)

// Transport is the characteristic-level connection the client drives.
//
// Implementations report link-layer failures (adapter errors, dropped
// connections) as TransportFault errors via NewTransportError; the client
// drops the connection and retries immediately on those. Any other error
// counts as an ordinary failed attempt.
type Transport interface {
	// Connect opens the connection. It is a no-op when already connected.
	Connect(address, iface string) error

	// ReadCharacteristic reads the value at handle
	ReadCharacteristic(handle Handle) ([]byte, error)

	// WriteCharacteristic writes data to handle, waiting for the device's
	// acknowledgement when withResponse is set
	WriteCharacteristic(handle Handle, data []byte, withResponse bool) error

	// DescriptorsForService lists the service's descriptor handles in
	// attribute-table order
	DescriptorsForService(uuid string) ([]Handle, error)

	// WriteDescriptor writes data to a descriptor
	WriteDescriptor(descriptor Handle, data []byte, withResponse bool) error

	// SetNotificationHandler registers the callback for incoming notifications
	SetNotificationHandler(h NotificationHandler)

	// Disconnect closes the connection
	Disconnect() error
}
