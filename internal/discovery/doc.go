// Package discovery finds and advertises mikettle status servers using mDNS
// (Multicast DNS) service discovery.
//
// A status server started with 'mikettle serve' registers itself as a
// _mikettle._tcp service on the local network. Its TXT records name the
// kettle it reads from, so other hosts can find a kettle's status without
// a Bluetooth radio of their own.
//
// # Basic Usage
//
//	scanner := discovery.NewScanner()
//	instances, err := scanner.Scan()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, inst := range instances {
//	    fmt.Printf("Found: %s -> %s\n", inst, inst.StatusURL())
//	}
//
// # TXT Records
//
//   - mac: MAC address of the kettle (upper case)
//   - version: mikettle version of the server
//   - path: path of the JSON status endpoint
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Servers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
