// Package kettle implements the client side of the Xiaomi Mi Kettle (YM-K1501)
// Bluetooth LE protocol.
//
// The kettle only reports status to an authenticated session. A session is
// opened with a vendor handshake that enciphers a 12-byte token under keys
// derived from the kettle's MAC address and product id, then checks the
// kettle's answer against the same token. Once authenticated the client
// subscribes to status notifications and decodes the 11-byte frames into a
// Status.
//
// # Reading Status
//
// Status readings are cached. A reading younger than Options.CacheTTL is
// served without touching the radio:
//
//	transport := ble.NewTransport(logger)
//	client, err := kettle.New(transport, kettle.Options{
//	    MAC:       "AA:BB:CC:DD:EE:FF",
//	    ProductID: 275,
//	    Logger:    logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	status, err := client.Status(true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s at %d°C\n", status.Action, status.CurrentTemperature)
//
// # Retry Policy
//
// A refill makes up to Options.Retries attempts. Transport faults drop the
// connection and retry immediately. Timeouts, malformed frames and auth
// mismatches wait Options.RetryDelay before the next attempt. When every
// attempt fails the client returns a NoData error and stops refilling for
// Options.BackoffWindow, so a kettle that is switched off is not polled on
// every call.
//
// # Transports
//
// The package never talks to an adapter directly. It drives a Transport,
// which exposes the kettle's characteristics by handle and pushes
// notifications to the client. The ble package provides one backed by
// tinygo.org/x/bluetooth; tests use an in-memory fake.
//
// # Telemetry
//
// Pass an EventSink in Options.Events to observe fill attempts, faults,
// timeouts and backoff. MemorySink keeps them in memory for inspection.
package kettle
