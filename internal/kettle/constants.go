package kettle

// Handle addresses a characteristic or descriptor on the kettle's attribute table
type Handle uint16

// Characteristic handles exposed by the kettle firmware
const (
	HandleManufacturer    Handle = 18
	HandleName            Handle = 20
	HandleFirmwareVersion Handle = 26
	HandleAuth            Handle = 37
	HandleVerify          Handle = 42
	HandleAuthInit        Handle = 44
	HandleKeepWarm        Handle = 58
	HandleStatus          Handle = 61
	HandleKeepWarmTime    Handle = 65
	HandleExtendedWarmUp  Handle = 68
)

// Service UUIDs
const (
	// KettleServiceUUID is the 16-bit Xiaomi service carrying the auth characteristics
	KettleServiceUUID = "fe95"

	// DataServiceUUID carries status, keep-warm and extended warm up characteristics
	DataServiceUUID = "01344736-0000-1000-8000-262837236156"
)

// Positions of the notification-enable descriptors in the ordered descriptor
// list each service reports.
const (
	AuthNotifyDescriptorIndex   = 1
	StatusNotifyDescriptorIndex = 3
)

var (
	// Key1 is written to the auth-init handle to open the handshake
	Key1 = []byte{0x90, 0xCA, 0x85, 0xDE}

	// Key2 is enciphered with the session token to confirm the handshake
	Key2 = []byte{0x92, 0xAB, 0x54, 0xFA}

	// SubscribeValue enables notifications when written to a descriptor
	SubscribeValue = []byte{0x01, 0x00}
)

// StatusFrameSize is the length of a status notification payload
const StatusFrameSize = 11
