// Package app wires the trade dashboard together and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (cmd/mtid)
//	2. Initialize logging and OpenTelemetry
//	3. Load the formal and informal trade files
//	4. Create the session store, chat service, socket hub and dashboard service
//	5. Build the chi router and its middleware chain
//	6. Serve until interrupted, then notify socket clients and shut down
//
// # Usage
//
//	application, err := app.NewApplication(ctx, cfg, logger, frontendFS)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
package app
