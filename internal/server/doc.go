// Package server exposes a kettle's status over HTTP and WebSocket.
//
// The server sits in front of a kettle.Client and never talks to the radio
// itself. Every request is a pull: the client's cache decides whether the
// kettle is polled or a recent reading is served.
//
// # Endpoints
//
//   - GET /status: cached reading as JSON; ?fresh=1 bypasses the cache
//   - GET /ws: WebSocket; send "status" or "refresh", receive one JSON reply
//   - GET /healthz: liveness and open websocket count
//   - GET /version: build information
//
// A failed read answers /status with 503 and an error body:
//
//	{"address":"AA:BB:CC:DD:EE:FF","error":"No data from kettle","hint":"..."}
//
// # TLS
//
// When Config.CertPath and Config.KeyPath are set the server speaks HTTPS
// (TLS 1.2 or later) and websocket clients connect with wss://.
// Config.GenerateCert serves HTTPS with a self-signed certificate that only
// lives in memory.
//
// # mDNS
//
// With Config.Advertise the server registers itself as a _mikettle._tcp
// service so 'mikettle discover' on another host can find it.
//
// # Graceful Shutdown
//
// Start blocks until SIGINT or SIGTERM, then stops accepting requests,
// closes open websockets and withdraws the mDNS advertisement.
package server
