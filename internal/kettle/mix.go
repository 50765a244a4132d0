package kettle

// MixA derives the key used to encipher the session token sent to the kettle.
// The byte selection is fixed by the kettle firmware.
func MixA(mac [6]byte, productID uint16) [8]byte {
	lo := byte(productID)
	return [8]byte{mac[0], mac[2], mac[5], lo, lo, mac[4], mac[5], mac[1]}
}

// MixB derives the key used to verify the kettle's response.
func MixB(mac [6]byte, productID uint16) [8]byte {
	lo := byte(productID)
	hi := byte(productID >> 8)
	return [8]byte{mac[0], mac[2], mac[5], hi, mac[4], mac[0], mac[5], lo}
}
